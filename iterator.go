package car

import (
	"io"

	"github.com/ipfs/go-cid"

	"github.com/quietpath/carstream/internal/source"
)

// iterState models the Fresh/Consuming/Done/Errored state machine shared by
// every streaming iterator (§4.7, §9). Each iterator is single-shot: once
// it reaches Done, a further step returns ErrReadMoreThanOnce rather than
// silently repeating io.EOF; once Errored, every further step repeats the
// same error.
type iterState int

const (
	stateFresh iterState = iota
	stateConsuming
	stateDone
	stateErrored
)

// BlockIterator streams Blocks from a CAR payload once, forward-only.
type BlockIterator struct {
	Version      uint64
	Roots        []cid.Cid
	FullyIndexed bool

	f     *framer
	state iterState
	err   error
}

// NewBlockIterator constructs a BlockIterator over in-memory data.
func NewBlockIterator(data []byte, opts ...Option) (*BlockIterator, error) {
	if data == nil {
		return nil, ErrInvalidArgument
	}
	return newBlockIterator(source.NewFixed(data), ApplyOptions(opts...))
}

// NewBlockIteratorFromIO constructs a BlockIterator over a streamed reader.
func NewBlockIteratorFromIO(r io.Reader, opts ...Option) (*BlockIterator, error) {
	if r == nil {
		return nil, ErrInvalidArgument
	}
	return newBlockIterator(source.NewChunked(r), ApplyOptions(opts...))
}

func newBlockIterator(src source.Source, opts Options) (*BlockIterator, error) {
	header, payload, err := decodeHeader(src, opts)
	if err != nil {
		return nil, err
	}
	return &BlockIterator{
		Version:      header.Version,
		Roots:        header.Roots,
		FullyIndexed: header.FullyIndexed,
		f:            newFramer(payload, opts, false),
	}, nil
}

// Next returns the next Block, io.EOF once the archive is exhausted, or
// ErrReadMoreThanOnce if called again after io.EOF was already returned.
func (it *BlockIterator) Next() (Block, error) {
	switch it.state {
	case stateDone:
		return Block{}, ErrReadMoreThanOnce
	case stateErrored:
		return Block{}, it.err
	}
	it.state = stateConsuming

	sec, err := it.f.next()
	switch err {
	case nil:
		return Block{Cid: sec.Cid, Bytes: sec.Data}, nil
	case io.EOF:
		it.state = stateDone
		return Block{}, io.EOF
	default:
		it.state = stateErrored
		it.err = err
		return Block{}, err
	}
}

// CIDIterator streams only CIDs from a CAR payload, seeking over payload
// bytes rather than materialising them.
type CIDIterator struct {
	Version      uint64
	Roots        []cid.Cid
	FullyIndexed bool

	f     *framer
	state iterState
	err   error
}

// NewCIDIterator constructs a CIDIterator over in-memory data.
func NewCIDIterator(data []byte, opts ...Option) (*CIDIterator, error) {
	if data == nil {
		return nil, ErrInvalidArgument
	}
	return newCIDIterator(source.NewFixed(data), ApplyOptions(opts...))
}

// NewCIDIteratorFromIO constructs a CIDIterator over a streamed reader.
func NewCIDIteratorFromIO(r io.Reader, opts ...Option) (*CIDIterator, error) {
	if r == nil {
		return nil, ErrInvalidArgument
	}
	return newCIDIterator(source.NewChunked(r), ApplyOptions(opts...))
}

func newCIDIterator(src source.Source, opts Options) (*CIDIterator, error) {
	header, payload, err := decodeHeader(src, opts)
	if err != nil {
		return nil, err
	}
	return &CIDIterator{
		Version:      header.Version,
		Roots:        header.Roots,
		FullyIndexed: header.FullyIndexed,
		f:            newFramer(payload, opts, true),
	}, nil
}

// Next returns the next CID, io.EOF at the end, or ErrReadMoreThanOnce on a
// call after io.EOF.
func (it *CIDIterator) Next() (cid.Cid, error) {
	switch it.state {
	case stateDone:
		return cid.Undef, ErrReadMoreThanOnce
	case stateErrored:
		return cid.Undef, it.err
	}
	it.state = stateConsuming

	sec, err := it.f.next()
	switch err {
	case nil:
		return sec.Cid, nil
	case io.EOF:
		it.state = stateDone
		return cid.Undef, io.EOF
	default:
		it.state = stateErrored
		it.err = err
		return cid.Undef, err
	}
}

// SectionInfo describes one framed section's position, enough for a
// downstream caller to mmap/seek the underlying file directly (§4.7).
type SectionInfo struct {
	Cid         cid.Cid
	Offset      uint64 // start of the section, before its length varint
	Length      uint64 // total bytes the section occupies on the wire
	BlockOffset uint64 // start of the payload within the section
	BlockLength uint64 // length of the payload
}

// Indexer streams section position records without materialising payload
// bytes, for building an out-of-band offset index.
type Indexer struct {
	Version      uint64
	Roots        []cid.Cid
	FullyIndexed bool

	f     *framer
	state iterState
	err   error
}

// NewIndexer constructs an Indexer over in-memory data.
func NewIndexer(data []byte, opts ...Option) (*Indexer, error) {
	if data == nil {
		return nil, ErrInvalidArgument
	}
	return newIndexer(source.NewFixed(data), ApplyOptions(opts...))
}

// NewIndexerFromIO constructs an Indexer over a streamed reader.
func NewIndexerFromIO(r io.Reader, opts ...Option) (*Indexer, error) {
	if r == nil {
		return nil, ErrInvalidArgument
	}
	return newIndexer(source.NewChunked(r), ApplyOptions(opts...))
}

func newIndexer(src source.Source, opts Options) (*Indexer, error) {
	header, payload, err := decodeHeader(src, opts)
	if err != nil {
		return nil, err
	}
	return &Indexer{
		Version:      header.Version,
		Roots:        header.Roots,
		FullyIndexed: header.FullyIndexed,
		f:            newFramer(payload, opts, true),
	}, nil
}

// Next returns the next SectionInfo, io.EOF at the end, or
// ErrReadMoreThanOnce on a call after io.EOF.
func (it *Indexer) Next() (SectionInfo, error) {
	switch it.state {
	case stateDone:
		return SectionInfo{}, ErrReadMoreThanOnce
	case stateErrored:
		return SectionInfo{}, it.err
	}
	it.state = stateConsuming

	sec, err := it.f.next()
	switch err {
	case nil:
		return SectionInfo{
			Cid:         sec.Cid,
			Offset:      sec.Offset,
			Length:      sec.Length,
			BlockOffset: sec.BlockOffset,
			BlockLength: sec.BlockLength,
		}, nil
	case io.EOF:
		it.state = stateDone
		return SectionInfo{}, io.EOF
	default:
		it.state = stateErrored
		it.err = err
		return SectionInfo{}, err
	}
}

// Close ends iteration early, releasing the iterator's grip on its byte
// source (§5: "dropping or aborting an iterator must release its byte
// source"): the iterator drops its reference to the framer and source. An
// io.Reader passed to NewIndexerFromIO is not closed. After Close, Next
// returns ErrReadMoreThanOnce.
func (it *Indexer) Close() error {
	it.state = stateDone
	it.f = nil
	return nil
}
