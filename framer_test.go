package car

import (
	"io"
	"testing"

	blocks "github.com/ipfs/go-block-format"
	"github.com/ipfs/go-cid"
	"github.com/stretchr/testify/require"

	"github.com/quietpath/carstream/internal/source"
	"github.com/quietpath/carstream/internal/varint"
)

// buildSectionBytes builds one raw varint(len) ‖ cidBytes ‖ payload frame.
func buildSectionBytes(t *testing.T, c cid.Cid, payload []byte) []byte {
	t.Helper()
	cb := c.Bytes()
	l := uint64(len(cb) + len(payload))
	out := varint.Append(nil, l)
	out = append(out, cb...)
	out = append(out, payload...)
	return out
}

func TestFramerNextReadsOneSection(t *testing.T) {
	blk := blocks.NewBlock([]byte("hello framer"))
	buf := buildSectionBytes(t, blk.Cid(), blk.RawData())

	f := newFramer(source.NewFixed(buf), ApplyOptions(), false)
	sec, err := f.next()
	require.NoError(t, err)
	require.True(t, sec.Cid.Equals(blk.Cid()))
	require.Equal(t, blk.RawData(), sec.Data)
	require.EqualValues(t, 0, sec.Offset)
	require.EqualValues(t, len(buf), sec.Length)
	require.EqualValues(t, blk.RawData(), buf[sec.BlockOffset:sec.BlockOffset+sec.BlockLength])

	_, err = f.next()
	require.Equal(t, io.EOF, err)
}

func TestFramerNextEmptyPayloadBlock(t *testing.T) {
	blk := blocks.NewBlock(nil)
	buf := buildSectionBytes(t, blk.Cid(), nil)

	f := newFramer(source.NewFixed(buf), ApplyOptions(), false)
	sec, err := f.next()
	require.NoError(t, err)
	require.Empty(t, sec.Data)
	require.EqualValues(t, 0, sec.BlockLength)
}

func TestFramerMultipleSectionsInOrder(t *testing.T) {
	blkA := blocks.NewBlock([]byte("first"))
	blkB := blocks.NewBlock([]byte("second"))
	buf := append(buildSectionBytes(t, blkA.Cid(), blkA.RawData()), buildSectionBytes(t, blkB.Cid(), blkB.RawData())...)

	f := newFramer(source.NewFixed(buf), ApplyOptions(), false)
	sec1, err := f.next()
	require.NoError(t, err)
	require.True(t, sec1.Cid.Equals(blkA.Cid()))

	sec2, err := f.next()
	require.NoError(t, err)
	require.True(t, sec2.Cid.Equals(blkB.Cid()))
	require.Equal(t, sec1.Length, sec2.Offset)
}

func TestFramerSkipDataDoesNotRead(t *testing.T) {
	blkA := blocks.NewBlock([]byte("first block content"))
	blkB := blocks.NewBlock([]byte("second"))
	buf := append(buildSectionBytes(t, blkA.Cid(), blkA.RawData()), buildSectionBytes(t, blkB.Cid(), blkB.RawData())...)

	f := newFramer(source.NewFixed(buf), ApplyOptions(), true)
	sec1, err := f.next()
	require.NoError(t, err)
	require.True(t, sec1.Cid.Equals(blkA.Cid()))
	require.Nil(t, sec1.Data)

	sec2, err := f.next()
	require.NoError(t, err)
	require.True(t, sec2.Cid.Equals(blkB.Cid()))
}

func TestFramerZeroLengthSectionErrors(t *testing.T) {
	f := newFramer(source.NewFixed([]byte{0x00}), ApplyOptions(), false)
	_, err := f.next()
	require.ErrorIs(t, err, ErrZeroLengthSection)
}

func TestFramerZeroLengthSectionAsEOF(t *testing.T) {
	opts := ApplyOptions(ZeroLengthSectionAsEOF(true))
	f := newFramer(source.NewFixed([]byte{0x00}), opts, false)
	_, err := f.next()
	require.Equal(t, io.EOF, err)
}

func TestFramerSectionTooLarge(t *testing.T) {
	blk := blocks.NewBlock([]byte("x"))
	buf := buildSectionBytes(t, blk.Cid(), blk.RawData())

	opts := ApplyOptions()
	opts.MaxAllowedSectionSize = 1
	f := newFramer(source.NewFixed(buf), opts, false)
	_, err := f.next()
	require.ErrorIs(t, err, ErrSectionTooLarge)
}

func TestFramerTruncatedPayloadIsUnexpectedEOF(t *testing.T) {
	blk := blocks.NewBlock([]byte("needs more bytes than are present"))
	buf := buildSectionBytes(t, blk.Cid(), blk.RawData())
	buf = buf[:len(buf)-5]

	f := newFramer(source.NewFixed(buf), ApplyOptions(), false)
	_, err := f.next()
	require.ErrorIs(t, err, ErrUnexpectedEOF)
}

func TestValidateBlockDetectsMismatch(t *testing.T) {
	blk := blocks.NewBlock([]byte("original content"))
	require.NoError(t, ValidateBlock(Block{Cid: blk.Cid(), Bytes: blk.RawData()}))

	tampered := Block{Cid: blk.Cid(), Bytes: []byte("tampered content")}
	require.ErrorIs(t, ValidateBlock(tampered), ErrContentMismatch)
}
