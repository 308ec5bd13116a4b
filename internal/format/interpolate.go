package format

import (
	"fmt"
	"math"
	"strings"

	"github.com/coffersTech/ulog/internal/diag"
)

// privateRedaction is the exact literal text default privacy renders
// (spec §8: "the rendered text for that argument is exactly the
// 9-byte string `<private>`").
const privateRedaction = "<private>"

// Interpolate walks formatStr left to right, emitting literal runs
// verbatim and consuming one Argument per conversion (spec §4.7). A
// shortfall of arguments does not stop it: an ArgumentShortfall is
// returned alongside the best-effort rendered string, with shortfall
// conversions rendered as "<missing arg>" (spec §8). A malformed
// conversion (an unterminated %{...} or a conversion cut off by the
// end of the string) stops the walk, and the text rendered so far is
// returned with the scanner's error.
func Interpolate(formatStr string, args []Argument) (string, error) {
	s := &scanner{input: formatStr}
	var b strings.Builder
	argIdx := 0
	wantCount := 0

	nextArg := func() (Argument, bool) {
		if argIdx >= len(args) {
			return Argument{}, false
		}
		a := args[argIdx]
		argIdx++
		return a, true
	}

	for {
		tok, err := s.next()
		if err != nil {
			return b.String(), err
		}
		if tok.kind == tokEOF {
			break
		}
		if tok.kind == tokLiteral {
			b.WriteString(tok.lit)
			continue
		}

		spec := tok.spec
		if spec.WidthFromArg {
			if a, ok := nextArg(); ok {
				w := int(signExtend(a.Scalar, a.Width))
				if w < 0 {
					spec.Flags += "-"
					w = -w
				}
				spec.Width = w
			}
		}
		if spec.PrecisionFromArg {
			if a, ok := nextArg(); ok {
				spec.Precision = int(signExtend(a.Scalar, a.Width))
			}
		}
		if spec.Conv == 'n' {
			continue // rejected per spec §4.7; consumes nothing
		}

		wantCount++
		a, ok := nextArg()
		if !ok {
			b.WriteString("<missing arg>")
			continue
		}
		b.WriteString(render(spec, a))
	}

	if wantCount > len(args) {
		return b.String(), &diag.ArgumentShortfall{Want: wantCount, Got: len(args)}
	}
	return b.String(), nil
}

func render(spec convSpec, a Argument) string {
	redact := a.ForcedRedact || spec.hasMod("private") || (a.Redacted && !spec.hasMod("public"))
	if redact {
		return privateRedaction
	}

	if spec.Conv == 'P' {
		return renderObject(spec, a)
	}
	if spec.Type != "" {
		if dec, ok := decoders[spec.Type]; ok {
			if s, ok := dec(a, spec.Precision, spec.HasPrecision); ok {
				return pad(spec, s)
			}
		}
	}
	return renderPlain(spec, a)
}

func renderObject(spec convSpec, a Argument) string {
	if spec.Type == "" {
		return "<decode error>"
	}
	dec, ok := decoders[spec.Type]
	if !ok {
		return "<decode error>"
	}
	s, ok := dec(a, spec.Precision, spec.HasPrecision)
	if !ok {
		return "<decode error>"
	}
	return pad(spec, s)
}

func pad(spec convSpec, s string) string {
	if !spec.HasWidth || spec.Width <= len(s) {
		return s
	}
	padding := strings.Repeat(" ", spec.Width-len(s))
	if strings.Contains(spec.Flags, "-") {
		return s + padding
	}
	return padding + s
}

func renderPlain(spec convSpec, a Argument) string {
	verb := buildVerb(spec)
	switch spec.Conv {
	case 'd', 'i':
		return fmt.Sprintf(verb, signExtend(a.Scalar, widthOr(a.Width, 8)))
	case 'u':
		return fmt.Sprintf(strings.TrimSuffix(verb, "u")+"d", maskTo(a.Scalar, widthOr(a.Width, 8)))
	case 'o', 'x', 'X':
		return fmt.Sprintf(verb, maskTo(a.Scalar, widthOr(a.Width, 8)))
	case 'c':
		return string(rune(a.Scalar))
	case 's':
		str := a.Str
		if spec.HasPrecision && spec.Precision < len(str) {
			str = str[:spec.Precision]
		}
		return pad(spec, str)
	case 'p':
		return fmt.Sprintf("0x%x", a.Scalar)
	case 'f', 'e', 'g', 'F', 'E', 'G', 'a', 'A':
		return renderFloat(spec, a)
	case '@':
		return a.Str
	case 'm':
		name, ok := errnoNames[int32(a.Scalar)]
		if !ok {
			return fmt.Sprintf("Unknown error: %d", int32(a.Scalar))
		}
		return name
	default:
		return fmt.Sprintf(verb, a.Scalar)
	}
}

func renderFloat(spec convSpec, a Argument) string {
	var f float64
	if widthOr(a.Width, 8) == 4 {
		f = float64(math.Float32frombits(uint32(a.Scalar)))
	} else {
		f = math.Float64frombits(a.Scalar)
	}
	if math.IsNaN(f) {
		return "nan"
	}
	if math.IsInf(f, 1) {
		return "inf"
	}
	if math.IsInf(f, -1) {
		return "-inf"
	}
	verb := buildVerb(spec)
	return fmt.Sprintf(verb, f)
}

func widthOr(w, fallback int) int {
	if w == 0 {
		return fallback
	}
	return w
}

func maskTo(v uint64, width int) uint64 {
	if width >= 8 {
		return v
	}
	return v & ((uint64(1) << (width * 8)) - 1)
}

// buildVerb reassembles a Go fmt verb string from a parsed conversion
// spec, reusing Go's own flag/width/precision handling for the
// portion of printf syntax it already understands.
func buildVerb(spec convSpec) string {
	var b strings.Builder
	b.WriteByte('%')
	for _, f := range spec.Flags {
		if f != '#' { // Go's '#' has different semantics than C's for these verbs
			b.WriteRune(f)
		}
	}
	if spec.HasWidth {
		fmt.Fprintf(&b, "%d", spec.Width)
	}
	if spec.HasPrecision {
		fmt.Fprintf(&b, ".%d", spec.Precision)
	}
	b.WriteByte(spec.Conv)
	return b.String()
}
