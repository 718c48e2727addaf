// Package varint implements the unsigned LEB128 codec used to frame CAR
// headers and sections.
package varint

import (
	"errors"
	"math"

	mfvarint "github.com/multiformats/go-varint"
)

// MaxLen is the maximum number of bytes a section/header length varint may
// occupy. 9 bytes of 7 payload bits each covers the full 63-bit value space
// a CAR length is allowed to use.
const MaxLen = 9

var (
	// ErrVarintTooLong is returned when a varint is still carrying its
	// continuation bit after MaxLen bytes.
	ErrVarintTooLong = errors.New("varint too long")
	// ErrVarintOverflow is returned when a decoded varint exceeds
	// math.MaxInt64.
	ErrVarintOverflow = errors.New("varint overflow")
	// ErrUnexpectedEnd is returned when the underlying source is
	// exhausted before a full varint could be read.
	ErrUnexpectedEnd = errors.New("unexpected end of data")
)

// ByteReader is the minimal read surface ReadUvarint needs. internal/source.Source
// satisfies it directly.
type ByteReader interface {
	ReadByte() (byte, error)
}

// ReadUvarint decodes a single unsigned LEB128 varint from r, one byte at a
// time, enforcing the CAR-specific error vocabulary: a zero-byte read is
// ErrUnexpectedEnd, a 9th byte that still carries a continuation bit is
// ErrVarintTooLong, and a value beyond math.MaxInt64 is ErrVarintOverflow.
func ReadUvarint(r ByteReader) (uint64, error) {
	var x uint64
	var shift uint
	for i := 0; i < MaxLen; i++ {
		b, err := r.ReadByte()
		if err != nil {
			return 0, ErrUnexpectedEnd
		}
		if b < 0x80 {
			x |= uint64(b) << shift
			if x > math.MaxInt64 {
				return 0, ErrVarintOverflow
			}
			return x, nil
		}
		x |= uint64(b&0x7f) << shift
		shift += 7
	}
	return 0, ErrVarintTooLong
}

// PutUvarint writes the minimal-length encoding of x into buf, returning the
// number of bytes written. buf must be at least UvarintSize(x) long.
func PutUvarint(buf []byte, x uint64) int {
	return mfvarint.PutUvarint(buf, x)
}

// UvarintSize returns the number of bytes the minimal-length encoding of x
// occupies.
func UvarintSize(x uint64) int {
	return mfvarint.UvarintSize(x)
}

// Append encodes x and appends it to buf, returning the extended slice.
func Append(buf []byte, x uint64) []byte {
	tmp := make([]byte, UvarintSize(x))
	n := PutUvarint(tmp, x)
	return append(buf, tmp[:n]...)
}
