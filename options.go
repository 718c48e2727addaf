package car

// DefaultMaxAllowedHeaderSize bounds the CBOR header's length-prefix, same
// default the teacher repo uses for its own header ceiling.
const DefaultMaxAllowedHeaderSize = 32 << 20

// DefaultMaxAllowedSectionSize bounds a single section's length-prefix.
// Untrusted CAR streams must never be decoded without a ceiling: a crafted
// varint length otherwise lets a remote peer force an unbounded read.
const DefaultMaxAllowedSectionSize = 32 << 20

// Options holds the configuration produced by applying a sequence of Option
// funcs, following the shape of the teacher's own options.go.
type Options struct {
	MaxAllowedHeaderSize   uint64
	MaxAllowedSectionSize  uint64
	ZeroLengthSectionAsEOF bool
	TrustedCAR             bool
}

// Option configures decoder/writer construction.
type Option func(*Options)

// WithMaxAllowedHeaderSize overrides DefaultMaxAllowedHeaderSize.
func WithMaxAllowedHeaderSize(n uint64) Option {
	return func(o *Options) { o.MaxAllowedHeaderSize = n }
}

// WithMaxAllowedSectionSize overrides DefaultMaxAllowedSectionSize.
func WithMaxAllowedSectionSize(n uint64) Option {
	return func(o *Options) { o.MaxAllowedSectionSize = n }
}

// ZeroLengthSectionAsEOF treats a zero-length section as a clean end of
// stream instead of ErrZeroLengthSection, useful for CAR files followed by
// NUL padding of unknown length.
func ZeroLengthSectionAsEOF(enable bool) Option {
	return func(o *Options) { o.ZeroLengthSectionAsEOF = enable }
}

// WithTrustedCAR(true) disables the hash validation the framer otherwise
// runs (via ValidateBlock) on every materialized block; when false (the
// default) every block read through Reader or BlockIterator is validated.
func WithTrustedCAR(trusted bool) Option {
	return func(o *Options) { o.TrustedCAR = trusted }
}

// ApplyOptions applies opts over the documented defaults.
func ApplyOptions(opts ...Option) Options {
	o := Options{
		MaxAllowedHeaderSize:  DefaultMaxAllowedHeaderSize,
		MaxAllowedSectionSize: DefaultMaxAllowedSectionSize,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
