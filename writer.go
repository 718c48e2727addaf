package car

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/ipfs/go-cid"

	"github.com/quietpath/carstream/internal/source"
	"github.com/quietpath/carstream/internal/varint"
)

// Writer encodes a CAR v1 stream (header plus sections) onto an io.Writer.
// It is the framer's inverse (§4.8): it shares the varint codec and CID
// byte serialisation only.
type Writer struct {
	w      io.Writer
	opts   Options
	closed bool
}

// NewWriter writes the header for roots immediately and returns a Writer
// ready to accept sections via Put.
func NewWriter(w io.Writer, roots []cid.Cid, opts ...Option) (*Writer, error) {
	if w == nil {
		return nil, ErrInvalidArgument
	}
	o := ApplyOptions(opts...)
	hb, err := headerBytes(Header{Version: 1, Roots: roots})
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(hb); err != nil {
		return nil, err
	}
	return &Writer{w: w, opts: o}, nil
}

// Put frames and writes one block as a section. It returns ErrWriterClosed
// if called after Close, and ErrSectionTooLarge if the section would
// exceed the configured ceiling.
func (w *Writer) Put(b Block) error {
	if w.closed {
		return ErrWriterClosed
	}
	frame, err := encodeSection(b, w.opts.MaxAllowedSectionSize)
	if err != nil {
		return err
	}
	_, err = w.w.Write(frame)
	return err
}

// Close marks the writer closed; any further Put fails with
// ErrWriterClosed. CAR v1 has no trailing marker, so Close never writes
// anything of its own.
func (w *Writer) Close() error {
	w.closed = true
	logger.Debug("writer: closed")
	return nil
}

// encodeSection frames one block as varint(len) ‖ cidBytes ‖ payload.
func encodeSection(b Block, maxAllowedSectionSize uint64) ([]byte, error) {
	cidBytes := b.Cid.Bytes()
	total := uint64(len(cidBytes) + len(b.Bytes))
	if maxAllowedSectionSize != 0 && total > maxAllowedSectionSize {
		return nil, ErrSectionTooLarge
	}
	out := make([]byte, 0, varint.UvarintSize(total)+int(total))
	out = varint.Append(out, total)
	out = append(out, cidBytes...)
	out = append(out, b.Bytes...)
	return out, nil
}

// ChannelWriter is the push-style, backpressured flavour of Writer (§4.8,
// §9): framed bytes are sent on a channel instead of written directly,
// standing in for an asynchronous byte sink with bounded buffering. Put
// blocks on the channel send when the consumer is slow to drain it, and
// honours its context so a caller can give up on a stuck consumer. Close
// sends nothing and does not consult its context; it waits only for an
// in-flight Put to return.
type ChannelWriter struct {
	mu     sync.Mutex
	ch     chan []byte
	opts   Options
	closed bool
}

// NewChannelWriter creates a ChannelWriter and its paired output channel.
// The header is queued onto output immediately, as the first value a
// consumer will receive.
func NewChannelWriter(ctx context.Context, roots []cid.Cid, opts ...Option) (*ChannelWriter, <-chan []byte, error) {
	o := ApplyOptions(opts...)
	hb, err := headerBytes(Header{Version: 1, Roots: roots})
	if err != nil {
		return nil, nil, err
	}
	ch := make(chan []byte, 1)
	cw := &ChannelWriter{ch: ch, opts: o}
	select {
	case ch <- hb:
	case <-ctx.Done():
		close(ch)
		return nil, nil, ctx.Err()
	}
	return cw, ch, nil
}

// Put frames b and sends it to the output channel, blocking until the
// consumer accepts it or ctx is done.
func (w *ChannelWriter) Put(ctx context.Context, b Block) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrWriterClosed
	}
	frame, err := encodeSection(b, w.opts.MaxAllowedSectionSize)
	if err != nil {
		return err
	}
	select {
	case w.ch <- frame:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close closes the output channel, signalling end of stream to the
// consumer. Any Put after Close fails with ErrWriterClosed.
func (w *ChannelWriter) Close(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrWriterClosed
	}
	w.closed = true
	close(w.ch)
	logger.Debug("channel writer: closed")
	return nil
}

// UpdateRootsInBytes rewrites the header embedded in buf in place with
// newRoots, failing if the freshly encoded header would not be exactly the
// same byte length as the one it replaces (§4.8).
func UpdateRootsInBytes(buf []byte, newRoots []cid.Cid) error {
	src := source.NewFixed(buf)
	l, err := varint.ReadUvarint(src)
	if err != nil {
		return translateEnd(err)
	}
	if l == 0 {
		return ErrZeroLengthHeader
	}
	old, err := src.Exactly(int(l))
	if err != nil {
		return translateEnd(err)
	}
	oldTotal := int(src.Pos())

	ch, err := decodeHeaderNode(old)
	if err != nil {
		return err
	}
	newHb, err := headerBytes(Header{Version: ch.Version, Roots: newRoots})
	if err != nil {
		return err
	}
	if len(newHb) != oldTotal {
		return fmt.Errorf("carstream: new header is %d bytes, old header is %d bytes", len(newHb), oldTotal)
	}
	copy(buf, newHb)
	return nil
}
