package source

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFixedUptoDoesNotConsume(t *testing.T) {
	f := NewFixed([]byte("hello world"))
	got, err := f.Upto(5)
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), got)
	require.EqualValues(t, 0, f.Pos())

	got, err = f.Upto(100)
	require.NoError(t, err)
	require.Equal(t, []byte("hello world"), got)
	require.EqualValues(t, 0, f.Pos())
}

func TestFixedExactlyConsumes(t *testing.T) {
	f := NewFixed([]byte("hello world"))
	got, err := f.Exactly(5)
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), got)
	require.EqualValues(t, 5, f.Pos())

	_, err = f.Exactly(100)
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestFixedSeekIsForwardOnly(t *testing.T) {
	f := NewFixed([]byte("hello world"))
	require.NoError(t, f.Seek(6))
	require.EqualValues(t, 6, f.Pos())
	got, err := f.Exactly(5)
	require.NoError(t, err)
	require.Equal(t, []byte("world"), got)

	require.ErrorIs(t, f.Seek(-1), ErrBackwardSeek)
}

func TestFixedReadByte(t *testing.T) {
	f := NewFixed([]byte{1, 2})
	b, err := f.ReadByte()
	require.NoError(t, err)
	require.Equal(t, byte(1), b)
	b, err = f.ReadByte()
	require.NoError(t, err)
	require.Equal(t, byte(2), b)
	_, err = f.ReadByte()
	require.ErrorIs(t, err, io.EOF)
}

// slowReader returns at most n bytes per Read, forcing Chunked to cross
// chunk boundaries even for small fixtures.
type slowReader struct {
	buf []byte
	n   int
}

func (s *slowReader) Read(p []byte) (int, error) {
	if len(s.buf) == 0 {
		return 0, io.EOF
	}
	n := s.n
	if n > len(p) {
		n = len(p)
	}
	if n > len(s.buf) {
		n = len(s.buf)
	}
	copy(p, s.buf[:n])
	s.buf = s.buf[n:]
	return n, nil
}

func TestChunkedUptoAcrossBoundaries(t *testing.T) {
	data := []byte("0123456789abcdef")
	c := NewChunked(&slowReader{buf: data, n: 3})

	got, err := c.Upto(10)
	require.NoError(t, err)
	require.Equal(t, []byte("0123456789"), got)
	require.EqualValues(t, 0, c.Pos())

	got, err = c.Exactly(10)
	require.NoError(t, err)
	require.Equal(t, []byte("0123456789"), got)
	require.EqualValues(t, 10, c.Pos())

	got, err = c.Upto(100)
	require.NoError(t, err)
	require.Equal(t, []byte("abcdef"), got)
}

func TestChunkedExactlyShortIsUnexpectedEOF(t *testing.T) {
	c := NewChunked(bytes.NewReader([]byte("short")))
	_, err := c.Exactly(100)
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestChunkedSeekForwardOnly(t *testing.T) {
	c := NewChunked(&slowReader{buf: []byte("0123456789"), n: 2})
	require.NoError(t, c.Seek(4))
	require.EqualValues(t, 4, c.Pos())
	got, err := c.Exactly(3)
	require.NoError(t, err)
	require.Equal(t, []byte("456"), got)

	require.ErrorIs(t, c.Seek(-1), ErrBackwardSeek)
}

func TestChunkedSeekPastEndIsUnexpectedEOF(t *testing.T) {
	c := NewChunked(bytes.NewReader([]byte("abc")))
	require.ErrorIs(t, c.Seek(100), io.ErrUnexpectedEOF)
}

// zeroThenDataReader injects a zero-length, error-free Read before ever
// producing real bytes, exercising the "zero-length read is permitted
// upstream; just loop around and pull again" branch in Chunked.fill.
type zeroThenDataReader struct {
	buf      []byte
	returned bool
}

func (z *zeroThenDataReader) Read(p []byte) (int, error) {
	if !z.returned {
		z.returned = true
		return 0, nil
	}
	if len(z.buf) == 0 {
		return 0, io.EOF
	}
	n := copy(p, z.buf)
	z.buf = z.buf[n:]
	return n, nil
}

func TestChunkedToleratesZeroLengthRead(t *testing.T) {
	c := NewChunked(&zeroThenDataReader{buf: []byte("data")})
	got, err := c.Exactly(4)
	require.NoError(t, err)
	require.Equal(t, []byte("data"), got)
}

func TestChunkedReadByte(t *testing.T) {
	c := NewChunked(&slowReader{buf: []byte{9, 8, 7}, n: 1})
	for _, want := range []byte{9, 8, 7} {
		b, err := c.ReadByte()
		require.NoError(t, err)
		require.Equal(t, want, b)
	}
	_, err := c.ReadByte()
	require.ErrorIs(t, err, io.EOF)
}

func TestBoundedStopsAtEnd(t *testing.T) {
	f := NewFixed([]byte("0123456789"))
	b := NewBounded(f, 5)

	got, err := b.Upto(10)
	require.NoError(t, err)
	require.Equal(t, []byte("01234"), got)

	got, err = b.Exactly(5)
	require.NoError(t, err)
	require.Equal(t, []byte("01234"), got)

	_, err = b.Exactly(1)
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)

	_, err = b.ReadByte()
	require.ErrorIs(t, err, io.EOF)
}

func TestBoundedSeekRespectsEnd(t *testing.T) {
	f := NewFixed([]byte("0123456789"))
	b := NewBounded(f, 5)
	require.ErrorIs(t, b.Seek(6), io.ErrUnexpectedEOF)
	require.NoError(t, b.Seek(5))
	_, err := b.Exactly(1)
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestBoundedPosIsAbsolute(t *testing.T) {
	f := NewFixed([]byte("0123456789"))
	require.NoError(t, f.Seek(2))
	b := NewBounded(f, 7)
	require.EqualValues(t, 2, b.Pos())
	_, err := b.Exactly(5)
	require.NoError(t, err)
	require.EqualValues(t, 7, b.Pos())
}
