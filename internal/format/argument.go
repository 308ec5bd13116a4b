// Package format interpolates a printf-style (plus Apple's
// %{mods,type}conv extension) format string against a sequence of
// already-demultiplexed arguments (spec §4.7). It knows nothing about
// tracev3 bytes, descriptor kinds, or catalogs — internal/firehose
// resolves raw argument bytes into the Argument values this package
// consumes, the same separation server/internal/pkg/nanoql keeps
// between lexing/parsing a query string and evaluating it against a
// MemTable.
package format

// Argument is one already-resolved operand for a format conversion.
// Exactly one of HasScalar/HasStr/Bytes is meaningful for a given
// argument, mirroring the descriptor kinds in spec §4.6: scalar
// arguments populate Scalar+Width, string/object arguments populate
// Str or Bytes.
type Argument struct {
	HasScalar bool
	Scalar    uint64 // little-endian value widened to 64 bits
	Signed    bool   // true for args whose origin width should sign-extend
	Width     int    // source byte width: 1, 2, 4, or 8

	HasStr bool
	Str    string

	Bytes []byte // raw payload for %P object decoding

	// Redacted marks an argument that defaults to <private> unless the
	// format conversion carries an explicit "public" mod (spec §4.6
	// descriptor kinds 0x1, 0x3; spec §8 privacy invariant).
	Redacted bool
	// ForcedRedact marks a "sensitive" (0x8) argument: always <private>
	// even when the conversion explicitly says "public" (spec §4.6).
	ForcedRedact bool
}

// Scalar builders let callers (internal/firehose) construct arguments
// without reaching into the struct directly.

// NewScalar builds a plain numeric argument of the given byte width.
func NewScalar(value uint64, width int, signed bool) Argument {
	return Argument{HasScalar: true, Scalar: value, Width: width, Signed: signed}
}

// NewPrivateScalar builds a numeric argument that defaults to
// redacted (descriptor kind 0x1).
func NewPrivateScalar(value uint64, width int, signed bool) Argument {
	a := NewScalar(value, width, signed)
	a.Redacted = true
	return a
}

// NewString builds a string argument (descriptor kinds 0x2/0x3).
func NewString(s string, private bool) Argument {
	return Argument{HasStr: true, Str: s, Redacted: private}
}

// NewObject builds a raw-bytes argument for %P object decoding
// (descriptor kind 0x4).
func NewObject(b []byte, private bool) Argument {
	return Argument{Bytes: b, Redacted: private}
}

// NewSensitive builds an argument that is never revealed regardless
// of format hints (descriptor kind 0x8).
func NewSensitive(raw []byte) Argument {
	return Argument{Bytes: raw, ForcedRedact: true, Redacted: true}
}
