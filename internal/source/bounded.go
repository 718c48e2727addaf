package source

import "io"

// Bounded wraps a Source so that it reports end-of-stream once the
// absolute cursor reaches end, regardless of how much data the underlying
// Source actually has left. This is how a CARv2 reader confines the shared
// framer to exactly the embedded CARv1 payload's [dataOffset, dataOffset+
// dataSize) window.
type Bounded struct {
	Source
	end int64
}

// NewBounded wraps src so reads past the absolute offset end are refused.
func NewBounded(src Source, end int64) *Bounded {
	return &Bounded{Source: src, end: end}
}

func (b *Bounded) remaining() int64 {
	r := b.end - b.Source.Pos()
	if r < 0 {
		return 0
	}
	return r
}

func (b *Bounded) Upto(n int) ([]byte, error) {
	if rem := b.remaining(); int64(n) > rem {
		n = int(rem)
	}
	return b.Source.Upto(n)
}

func (b *Bounded) Exactly(n int) ([]byte, error) {
	if int64(n) > b.remaining() {
		return nil, io.ErrUnexpectedEOF
	}
	return b.Source.Exactly(n)
}

func (b *Bounded) ReadByte() (byte, error) {
	if b.remaining() <= 0 {
		return 0, io.EOF
	}
	return b.Source.ReadByte()
}

func (b *Bounded) Seek(n int64) error {
	if n < 0 {
		return ErrBackwardSeek
	}
	if n > b.remaining() {
		return io.ErrUnexpectedEOF
	}
	return b.Source.Seek(n)
}
