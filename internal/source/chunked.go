package source

import (
	"io"
)

// chunkSize is the amount requested from the wrapped io.Reader per pull.
// A chunk boundary only ever matters for the property that decoding must be
// insensitive to how the caller's underlying reader happens to split data;
// the exact size is not load-bearing.
const chunkSize = 4096

// Chunked is a Source that pulls from an underlying io.Reader on demand,
// keeping a small deque of unconsumed buffers plus an offset into the head
// buffer. A request that can be satisfied from the head buffer alone
// returns a zero-copy borrow of it; a request crossing a buffer boundary is
// copied into a freshly allocated slice. Buffers are dropped eagerly once
// fully consumed.
type Chunked struct {
	r       io.Reader
	bufs    [][]byte
	headOff int
	pos     int64
	eof     bool
}

// NewChunked wraps r as a Source.
func NewChunked(r io.Reader) *Chunked {
	return &Chunked{r: r}
}

// buffered returns the total number of unconsumed bytes currently held.
func (c *Chunked) buffered() int {
	if len(c.bufs) == 0 {
		return 0
	}
	n := len(c.bufs[0]) - c.headOff
	for _, b := range c.bufs[1:] {
		n += len(b)
	}
	return n
}

// fill pulls chunks from the underlying reader until at least n bytes are
// buffered or the reader is exhausted.
func (c *Chunked) fill(n int) error {
	for !c.eof && c.buffered() < n {
		buf := make([]byte, chunkSize)
		rn, err := c.r.Read(buf)
		if rn > 0 {
			c.bufs = append(c.bufs, buf[:rn])
		}
		if err != nil {
			if err == io.EOF {
				c.eof = true
				return nil
			}
			return err
		}
		// A zero-length, error-free read is permitted upstream; just
		// loop around and pull again.
	}
	return nil
}

// Upto returns up to n bytes without consuming them.
func (c *Chunked) Upto(n int) ([]byte, error) {
	if err := c.fill(n); err != nil {
		return nil, err
	}
	if len(c.bufs) == 0 {
		return nil, nil
	}
	// Fast path: entirely within the head buffer.
	if len(c.bufs[0])-c.headOff >= n {
		return c.bufs[0][c.headOff : c.headOff+n], nil
	}
	// Slow path: concatenate across buffers, capped by what's available.
	avail := c.buffered()
	if n > avail {
		n = avail
	}
	out := make([]byte, 0, n)
	remaining := n
	out = append(out, c.bufs[0][c.headOff:]...)
	remaining -= len(c.bufs[0]) - c.headOff
	for _, b := range c.bufs[1:] {
		if remaining <= 0 {
			break
		}
		take := b
		if len(take) > remaining {
			take = take[:remaining]
		}
		out = append(out, take...)
		remaining -= len(take)
	}
	return out, nil
}

// Exactly returns exactly n bytes and consumes them, or io.ErrUnexpectedEOF.
func (c *Chunked) Exactly(n int) ([]byte, error) {
	b, err := c.Upto(n)
	if err != nil {
		return nil, err
	}
	if len(b) < n {
		return nil, io.ErrUnexpectedEOF
	}
	if err := c.consume(n); err != nil {
		return nil, err
	}
	return b, nil
}

// consume drops n bytes from the front of the buffered deque.
func (c *Chunked) consume(n int) error {
	c.pos += int64(n)
	for n > 0 && len(c.bufs) > 0 {
		avail := len(c.bufs[0]) - c.headOff
		if n < avail {
			c.headOff += n
			return nil
		}
		n -= avail
		c.bufs = c.bufs[1:]
		c.headOff = 0
	}
	return nil
}

// Seek advances the cursor by n bytes, pulling and discarding data as
// needed. n must be >= 0.
func (c *Chunked) Seek(n int64) error {
	if n < 0 {
		return ErrBackwardSeek
	}
	for n > 0 {
		step := n
		if step > chunkSize {
			step = chunkSize
		}
		if err := c.fill(int(step)); err != nil {
			return err
		}
		avail := int64(c.buffered())
		if avail == 0 {
			if step > 0 {
				return io.ErrUnexpectedEOF
			}
			break
		}
		if step > avail {
			step = avail
		}
		if err := c.consume(int(step)); err != nil {
			return err
		}
		n -= step
	}
	return nil
}

func (c *Chunked) Pos() int64 {
	return c.pos
}

func (c *Chunked) ReadByte() (byte, error) {
	if err := c.fill(1); err != nil {
		return 0, err
	}
	if c.buffered() == 0 {
		return 0, io.EOF
	}
	b, err := c.Exactly(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}
