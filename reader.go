package car

import (
	"io"

	logging "github.com/ipfs/go-log/v2"

	"github.com/ipfs/go-cid"

	"github.com/quietpath/carstream/internal/source"
)

var logger = logging.Logger("carstream")

// Reader is the whole-archive, in-memory reader surface (§4.6). It
// eagerly consumes the framer to completion on construction and then
// serves Has/Get/Roots/Blocks/Cids purely from memory.
type Reader struct {
	version      uint64
	roots        []cid.Cid
	fullyIndexed bool
	order        []cid.Cid
	blocks       map[string][]byte
}

// NewReader builds an indexed Reader over data held entirely in memory.
func NewReader(data []byte, opts ...Option) (*Reader, error) {
	if data == nil {
		return nil, ErrInvalidArgument
	}
	return newReader(source.NewFixed(data), ApplyOptions(opts...))
}

// NewReaderFromIO builds an indexed Reader by streaming r to completion.
// Unlike NewReader this does not require the whole archive to already be
// in memory, but the resulting Reader still holds every block afterwards.
func NewReaderFromIO(r io.Reader, opts ...Option) (*Reader, error) {
	if r == nil {
		return nil, ErrInvalidArgument
	}
	return newReader(source.NewChunked(r), ApplyOptions(opts...))
}

func newReader(src source.Source, opts Options) (*Reader, error) {
	header, payload, err := decodeHeader(src, opts)
	if err != nil {
		return nil, err
	}

	rd := &Reader{
		version:      header.Version,
		roots:        header.Roots,
		fullyIndexed: header.FullyIndexed,
		blocks:       make(map[string][]byte),
	}

	f := newFramer(payload, opts, false)
	n := 0
	for {
		sec, err := f.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			logger.Errorf("indexed reader: aborting after %d blocks: %s", n, err)
			return nil, err
		}
		key := sec.Cid.KeyString()
		if _, dup := rd.blocks[key]; !dup {
			rd.order = append(rd.order, sec.Cid)
			rd.blocks[key] = sec.Data
		}
		n++
	}
	logger.Debugf("indexed reader: loaded %d blocks (%d unique)", n, len(rd.order))
	return rd, nil
}

// Version returns the detected CAR version (1 or 2).
func (r *Reader) Version() uint64 { return r.version }

// Roots returns the archive's root CIDs.
func (r *Reader) Roots() []cid.Cid { return r.roots }

// FullyIndexed reports the CARv2 "fully indexed" characteristic bit;
// always false for a v1 archive.
func (r *Reader) FullyIndexed() bool { return r.fullyIndexed }

// Has reports whether cid was seen in the archive.
func (r *Reader) Has(c cid.Cid) bool {
	_, ok := r.blocks[c.KeyString()]
	return ok
}

// Get returns the block for cid, and whether it was present. On duplicate
// CIDs within the archive, the first occurrence's payload wins.
func (r *Reader) Get(c cid.Cid) (Block, bool) {
	b, ok := r.blocks[c.KeyString()]
	if !ok {
		return Block{}, false
	}
	return Block{Cid: c, Bytes: b}, true
}

// Blocks returns every block in first-occurrence archive order.
func (r *Reader) Blocks() []Block {
	out := make([]Block, len(r.order))
	for i, c := range r.order {
		out[i] = Block{Cid: c, Bytes: r.blocks[c.KeyString()]}
	}
	return out
}

// Cids returns every CID in first-occurrence archive order.
func (r *Reader) Cids() []cid.Cid {
	out := make([]cid.Cid, len(r.order))
	copy(out, r.order)
	return out
}
