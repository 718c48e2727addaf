// Package cidutil parses a single CID off the head of a byte source,
// delegating the actual multihash/multicodec decoding to go-cid.
package cidutil

import (
	"errors"
	"io"

	"github.com/ipfs/go-cid"

	"github.com/quietpath/carstream/internal/source"
)

// ErrUnsupportedVersion is returned when the leading bytes of a CID don't
// match either the CIDv0 sniff (0x12 0x20) or a recognized CIDv1 varint
// version tag.
var ErrUnsupportedVersion = errors.New("unsupported CID version")

// cidv0Byte0 and cidv0Byte1 are the fixed sha2-256/length prefix that
// distinguishes a bare CIDv0 (no version/codec varints) from a CIDv1.
const (
	cidv0Byte0 = 0x12
	cidv0Byte1 = 0x20
	cidv0Len   = 34

	cidv1Version = 0x01
)

// Read parses a CID from the current cursor of src, returning the CID and
// the number of bytes consumed.
func Read(src source.Source) (cid.Cid, int, error) {
	head, err := src.Upto(2)
	if err != nil {
		return cid.Undef, 0, err
	}
	if len(head) == 2 && head[0] == cidv0Byte0 && head[1] == cidv0Byte1 {
		buf, err := src.Exactly(cidv0Len)
		if err != nil {
			return cid.Undef, 0, io.ErrUnexpectedEOF
		}
		n, c, err := cid.CidFromBytes(buf)
		if err != nil {
			return cid.Undef, 0, err
		}
		return c, n, nil
	}
	// A CIDv1 starts with the single-byte varint 0x01; a lone 0x12 may
	// still be a truncated CIDv0 and is left to the read below.
	if len(head) > 0 && head[0] != cidv1Version && !(len(head) == 1 && head[0] == cidv0Byte0) {
		return cid.Undef, 0, ErrUnsupportedVersion
	}

	n, c, err := cid.CidFromReader(reader{src})
	if err != nil {
		if err == io.EOF {
			return cid.Undef, 0, io.ErrUnexpectedEOF
		}
		return cid.Undef, 0, err
	}
	return c, n, nil
}

// reader adapts a source.Source to the io.Reader/io.ByteReader pair
// cid.CidFromReader wants, pulling one byte at a time. CIDs are short
// (tens of bytes), so the per-byte call overhead here is immaterial.
type reader struct {
	src source.Source
}

func (r reader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	b, err := r.src.ReadByte()
	if err != nil {
		return 0, err
	}
	p[0] = b
	return 1, nil
}

func (r reader) ReadByte() (byte, error) {
	return r.src.ReadByte()
}
