package car

import (
	"errors"
	"io"

	"github.com/quietpath/carstream/internal/source"
	"github.com/quietpath/carstream/internal/varint"
)

// Sentinel errors. Messages for the ones the test fixtures pin verbatim are
// kept exactly as specified; the rest are free-form.
var (
	// ErrZeroLengthHeader is returned when the header's length-prefix
	// varint decodes to zero.
	ErrZeroLengthHeader = errors.New("Invalid CAR header (zero length)")
	// ErrZeroLengthSection is returned when a section's length-prefix
	// varint decodes to zero, including on trailing NUL padding.
	ErrZeroLengthSection = errors.New("Invalid CAR section (zero length)")
	// ErrUnexpectedEOF is returned when the source is exhausted mid-frame.
	ErrUnexpectedEOF = errors.New("Unexpected end of data")
	// ErrReadMoreThanOnce is returned by a streaming iterator's second
	// attempt at consumption.
	ErrReadMoreThanOnce = errors.New("Cannot read more than once")

	// ErrUnsupportedVersion is returned for a header version other than 1 or 2.
	ErrUnsupportedVersion = errors.New("unsupported CAR version")
	// ErrMalformedHeader is returned on CBOR decode failure or missing
	// required header fields.
	ErrMalformedHeader = errors.New("malformed CAR header")
	// ErrSectionTooLarge is returned when a section's length exceeds the
	// configured ceiling.
	ErrSectionTooLarge = errors.New("CAR section exceeds maximum allowed size")
	// ErrHeaderTooLarge is returned when the header's length exceeds the
	// configured ceiling.
	ErrHeaderTooLarge = errors.New("CAR header exceeds maximum allowed size")
	// ErrWriterClosed is returned by Put after Close.
	ErrWriterClosed = errors.New("write to closed CAR writer")
	// ErrInvalidArgument is returned by a constructor given a nil/invalid
	// input.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrContentMismatch is returned by ValidateBlock when a block's bytes
	// don't hash to its CID's multihash.
	ErrContentMismatch = errors.New("block content does not match its CID")

	// ErrVarintOverflow and ErrVarintTooLong re-export internal/varint's
	// sentinels for callers that want to errors.Is against them without
	// importing the internal package.
	ErrVarintOverflow = varint.ErrVarintOverflow
	ErrVarintTooLong  = varint.ErrVarintTooLong
)

// translateEnd maps the low-level source/varint "ran out of bytes" errors
// onto the one CAR-level sentinel the spec fixes the message for.
func translateEnd(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, varint.ErrUnexpectedEnd),
		errors.Is(err, source.ErrBackwardSeek),
		errors.Is(err, io.ErrUnexpectedEOF):
		return ErrUnexpectedEOF
	default:
		return err
	}
}
