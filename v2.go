package car

import (
	"encoding/binary"

	"golang.org/x/xerrors"

	"github.com/quietpath/carstream/internal/source"
)

const (
	// v2PragmaSize is the fixed size, in bytes, of the CARv2 pragma.
	v2PragmaSize = 11
	// v2CharacteristicsSize is the fixed size of the characteristics
	// bitfield within the CARv2 header.
	v2CharacteristicsSize = 16
	// v2HeaderSize is the fixed size of the CARv2 header that follows
	// the pragma: characteristics ‖ dataOffset ‖ dataSize ‖ indexOffset.
	v2HeaderSize = v2CharacteristicsSize + 8 + 8 + 8
)

// characteristics is the CARv2 header's 16-byte flags field. Only its
// left-most bit is currently defined ("fully indexed"): bit 7 of the first
// byte, which is bit fullyIndexedBit of the little-endian Hi word. The rest
// is preserved opaquely and never branched on, per the spec's own caution.
type characteristics struct {
	Hi uint64
	Lo uint64
}

// fullyIndexedBit is the position of the Characteristics.Hi bit that
// records whether the index is a catalog of all CIDs.
const fullyIndexedBit = 7

// IsFullyIndexed reports whether the left-most ("fully indexed") bit is set.
func (c characteristics) IsFullyIndexed() bool {
	return c.Hi&(1<<fullyIndexedBit) != 0
}

// v2Header is the decoded CARv2-specific header (everything after the
// pragma).
type v2Header struct {
	Characteristics characteristics
	DataOffset      uint64
	DataSize        uint64
	IndexOffset     uint64
}

// readV2Header reads the 40-byte CARv2 header immediately following the
// pragma.
func readV2Header(src source.Source) (v2Header, error) {
	buf, err := src.Exactly(v2HeaderSize)
	if err != nil {
		return v2Header{}, translateEnd(err)
	}
	return v2Header{
		Characteristics: characteristics{
			Hi: binary.LittleEndian.Uint64(buf[0:8]),
			Lo: binary.LittleEndian.Uint64(buf[8:16]),
		},
		DataOffset:  binary.LittleEndian.Uint64(buf[16:24]),
		DataSize:    binary.LittleEndian.Uint64(buf[24:32]),
		IndexOffset: binary.LittleEndian.Uint64(buf[32:40]),
	}, nil
}

// decodeHeader reads whichever header sits at the start of src — a
// CARv1 header, or a CARv2 pragma followed by its own header and the
// embedded CARv1 header — and returns the logical Header plus a Source
// positioned at the first section of the (possibly inner) v1 payload.
func decodeHeader(src source.Source, opts Options) (Header, source.Source, error) {
	outer, err := readHeader(src, opts.MaxAllowedHeaderSize, false)
	if err != nil {
		return Header{}, nil, err
	}

	switch outer.Version {
	case 1:
		if outer.Roots == nil {
			return Header{}, nil, xerrors.Errorf("%w: missing roots", ErrMalformedHeader)
		}
		return outer, src, nil
	case 2:
		v2h, err := readV2Header(src)
		if err != nil {
			logger.Errorf("v2 header skip: failed to read CARv2 header: %s", err)
			return Header{}, nil, err
		}
		if v2h.DataOffset < v2PragmaSize+v2HeaderSize {
			err := xerrors.Errorf("%w: data offset %d precedes end of CARv2 header", ErrMalformedHeader, v2h.DataOffset)
			logger.Errorf("v2 header skip: %s", err)
			return Header{}, nil, err
		}
		logger.Debugf("v2 header skip: data window [%d, %d), fully indexed=%t", v2h.DataOffset, v2h.DataOffset+v2h.DataSize, v2h.Characteristics.IsFullyIndexed())
		if err := src.Seek(int64(v2h.DataOffset) - src.Pos()); err != nil {
			return Header{}, nil, translateEnd(err)
		}
		bounded := source.NewBounded(src, int64(v2h.DataOffset+v2h.DataSize))
		inner, err := readHeader(bounded, opts.MaxAllowedHeaderSize, true)
		if err != nil {
			return Header{}, nil, err
		}
		if inner.Version != 1 {
			return Header{}, nil, xerrors.Errorf("%w: embedded payload is not CARv1 (version %d)", ErrMalformedHeader, inner.Version)
		}
		return Header{Version: 2, Roots: inner.Roots, FullyIndexed: v2h.Characteristics.IsFullyIndexed()}, bounded, nil
	default:
		return Header{}, nil, xerrors.Errorf("%w: %d", ErrUnsupportedVersion, outer.Version)
	}
}
