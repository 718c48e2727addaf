package car

import (
	"bytes"

	"github.com/ipfs/go-cid"
	"github.com/ipld/go-ipld-prime"
	"github.com/ipld/go-ipld-prime/codec/dagcbor"
	"github.com/ipld/go-ipld-prime/node/bindnode"
	"github.com/ipld/go-ipld-prime/schema"
	"golang.org/x/xerrors"

	"github.com/quietpath/carstream/internal/source"
	"github.com/quietpath/carstream/internal/varint"
)

// headerSchema describes the CBOR shape of both a CARv1 header and a CARv2
// pragma: roots is required for a genuine v1 header but the pragma-only
// form {version: 2} omits it, so the wire type keeps it optional and v1
// presence is checked by hand in readHeader (requireRoots) and decodeHeader.
const headerSchema = `
type CarHeader struct {
	roots optional [&Any]
	version Int
}
`

var headerPrototype schema.TypedPrototype

func init() {
	ts, err := ipld.LoadSchemaBytes([]byte(headerSchema))
	if err != nil {
		panic(err)
	}
	headerPrototype = bindnode.Prototype((*cborHeader)(nil), ts.TypeByName("CarHeader"))
}

// cborHeader is the schema-bound representation used only to round-trip
// through dagcbor; Header (below) is the public, already-validated type.
type cborHeader struct {
	Roots   []cid.Cid
	Version uint64
}

// Header is the decoded form of a CAR header: the archive version and its
// root CIDs. For a v2 archive, Roots is spliced in from the embedded v1
// header (§4.4).
type Header struct {
	Version uint64
	Roots   []cid.Cid
	// FullyIndexed reports the CARv2 "fully indexed" characteristic bit
	// (§6): true only when the source was a v2 archive whose index, if
	// any, catalogs every block. Always false for a v1 archive.
	FullyIndexed bool
}

// readLengthPrefixed reads a varint(L) ‖ L-byte frame from src, applying
// the zero-length and ceiling checks common to headers and sections.
func readLengthPrefixed(src source.Source, maxAllowed uint64, zeroLenErr error, tooLargeErr error) ([]byte, error) {
	l, err := varint.ReadUvarint(src)
	if err != nil {
		return nil, translateEnd(err)
	}
	if l == 0 {
		return nil, zeroLenErr
	}
	if maxAllowed != 0 && l > maxAllowed {
		return nil, tooLargeErr
	}
	buf, err := src.Exactly(int(l))
	if err != nil {
		return nil, translateEnd(err)
	}
	return buf, nil
}

// decodeHeaderNode decodes a CBOR-encoded header/pragma byte slice into a
// cborHeader using the schema-bound dagcbor codec, mirroring the teacher's
// v1HeaderOrPragmaPrototype handling in v3/carv1.go.
func decodeHeaderNode(buf []byte) (*cborHeader, error) {
	nb := headerPrototype.NewBuilder()
	if err := dagcbor.Decode(nb, bytes.NewReader(buf)); err != nil {
		return nil, xerrors.Errorf("%w: %s", ErrMalformedHeader, err)
	}
	node := bindnode.Unwrap(nb.Build())
	h, ok := node.(*cborHeader)
	if !ok {
		return nil, ErrMalformedHeader
	}
	return h, nil
}

// readHeader reads and fully validates one CARv1-shaped header (used both
// for a genuine v1 header and for the v2 pragma, which additionally
// tolerates an absent roots field).
func readHeader(src source.Source, maxAllowedHeaderSize uint64, requireRoots bool) (Header, error) {
	buf, err := readLengthPrefixed(src, maxAllowedHeaderSize, ErrZeroLengthHeader, ErrHeaderTooLarge)
	if err != nil {
		return Header{}, err
	}
	ch, err := decodeHeaderNode(buf)
	if err != nil {
		return Header{}, err
	}
	if ch.Version != 1 && ch.Version != 2 {
		return Header{}, xerrors.Errorf("%w: %d", ErrUnsupportedVersion, ch.Version)
	}
	if requireRoots && ch.Roots == nil {
		return Header{}, xerrors.Errorf("%w: missing roots", ErrMalformedHeader)
	}
	return Header{Version: ch.Version, Roots: ch.Roots}, nil
}

// headerBytes encodes h as the length-prefixed CBOR header used by Writer.
func headerBytes(h Header) ([]byte, error) {
	ch := &cborHeader{Roots: h.Roots, Version: h.Version}
	node := bindnode.Wrap(ch, headerPrototype.Type())

	var buf bytes.Buffer
	if err := dagcbor.Encode(node.Representation(), &buf); err != nil {
		return nil, err
	}
	out := make([]byte, 0, varint.UvarintSize(uint64(buf.Len()))+buf.Len())
	out = varint.Append(out, uint64(buf.Len()))
	out = append(out, buf.Bytes()...)
	return out, nil
}
