package car

import (
	"fmt"
	"io"

	"github.com/ipfs/go-cid"

	"github.com/quietpath/carstream/internal/cidutil"
	"github.com/quietpath/carstream/internal/source"
	"github.com/quietpath/carstream/internal/varint"
)

// section is one decoded (length, cid, payload) triple, carrying enough
// positional metadata to serve the Indexer surface without re-reading.
type section struct {
	Cid    cid.Cid
	Data   []byte
	Offset uint64 // start of the length varint
	Length uint64 // total framed length: varint(len(cidBytes)+len(payload)) + len(cidBytes) + len(payload)
	// BlockOffset/BlockLength locate the payload within the section.
	BlockOffset uint64
	BlockLength uint64
}

// framer reads sections off a single Source in forward order. It never
// rewinds and is shared, unexported machinery behind every public reader
// surface.
type framer struct {
	src      source.Source
	opts     Options
	skipData bool // CID-only mode: seek over payload bytes instead of reading them
}

func newFramer(src source.Source, opts Options, skipData bool) *framer {
	return &framer{src: src, opts: opts, skipData: skipData}
}

// next reads one section, returning io.EOF when the source is cleanly
// exhausted (no bytes at all remain before the length varint).
func (f *framer) next() (section, error) {
	offset := uint64(f.src.Pos())

	// Peek: a clean end of stream is indistinguishable from "no more
	// sections" only when nothing at all is left to read.
	peek, err := f.src.Upto(1)
	if err != nil {
		return section{}, translateEnd(err)
	}
	if len(peek) == 0 {
		return section{}, io.EOF
	}

	l, err := varint.ReadUvarint(f.src)
	if err != nil {
		return section{}, translateEnd(err)
	}
	if l == 0 {
		if f.opts.ZeroLengthSectionAsEOF {
			return section{}, io.EOF
		}
		return section{}, ErrZeroLengthSection
	}
	if f.opts.MaxAllowedSectionSize != 0 && l > f.opts.MaxAllowedSectionSize {
		return section{}, ErrSectionTooLarge
	}

	c, consumed, err := cidutil.Read(f.src)
	if err != nil {
		return section{}, translateEnd(err)
	}
	if uint64(consumed) > l {
		return section{}, fmt.Errorf("invalid CAR section: CID occupies %d bytes of a %d-byte section", consumed, l)
	}
	blockLen := l - uint64(consumed)

	var data []byte
	if f.skipData {
		if err := f.src.Seek(int64(blockLen)); err != nil {
			return section{}, translateEnd(err)
		}
	} else {
		data, err = f.src.Exactly(int(blockLen))
		if err != nil {
			return section{}, translateEnd(err)
		}
		if !f.opts.TrustedCAR {
			if err := ValidateBlock(Block{Cid: c, Bytes: data}); err != nil {
				return section{}, err
			}
		}
	}

	return section{
		Cid:         c,
		Data:        data,
		Offset:      offset,
		Length:      uint64(f.src.Pos()) - offset,
		BlockOffset: offset + (uint64(f.src.Pos()) - offset) - blockLen,
		BlockLength: blockLen,
	}, nil
}

// ValidateBlock re-hashes b.Bytes under b.Cid's multihash prefix and
// reports a mismatch. The framer calls this itself for every materialized
// block unless Options.TrustedCAR is set (§4.11); callers that skip payload
// bytes (CIDIterator, Indexer) never materialize data to check, and a
// caller reusing a Block outside the framer can still call this directly.
func ValidateBlock(b Block) error {
	hashed, err := b.Cid.Prefix().Sum(b.Bytes)
	if err != nil {
		return err
	}
	if !hashed.Equals(b.Cid) {
		return ErrContentMismatch
	}
	return nil
}
