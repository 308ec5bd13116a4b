package format

import (
	"fmt"
	"strconv"
	"strings"
)

// appleTypes are the type names recognized inside a %{mods,type}conv
// brace group (spec §4.7). Anything else found in the brace group is
// treated as a privacy/redaction mod instead.
var appleTypes = map[string]bool{
	"uuid_t":            true,
	"odtype":            true,
	"BOOL":              true,
	"bool":              true,
	"darwin.errno":      true,
	"darwin.mode":       true,
	"darwin.signal":     true,
	"network:in_addr":   true,
	"network:in6_addr":  true,
	"network:sockaddr":  true,
	"time_t":            true,
	"timeval":           true,
	"timespec":          true,
	"bitrate":           true,
	"iec-bytes":         true,
}

var lengthModifiers = []string{"hh", "ll", "h", "l", "j", "z", "t"}

type tokenKind int

const (
	tokLiteral tokenKind = iota
	tokConv
	tokEOF
)

// convSpec is one parsed conversion, covering both plain printf
// conversions and the Apple %{mods,type}conv extension (spec §4.7).
type convSpec struct {
	Mods             []string
	Type             string
	Flags            string
	HasWidth         bool
	Width            int
	WidthFromArg     bool
	HasPrecision     bool
	Precision        int
	PrecisionFromArg bool
	Length           string
	Conv             byte
}

func (s convSpec) hasMod(name string) bool {
	for _, m := range s.Mods {
		if m == name {
			return true
		}
	}
	return false
}

type token struct {
	kind tokenKind
	lit  string
	spec convSpec
}

// scanner walks a format string left to right the way
// server/internal/pkg/nanoql.Lexer walks a query string: a plain
// position cursor over the raw input, no separate token channel.
type scanner struct {
	input string
	pos   int
}

func (s *scanner) next() (token, error) {
	if s.pos >= len(s.input) {
		return token{kind: tokEOF}, nil
	}
	if s.input[s.pos] != '%' {
		start := s.pos
		for s.pos < len(s.input) && s.input[s.pos] != '%' {
			s.pos++
		}
		return token{kind: tokLiteral, lit: s.input[start:s.pos]}, nil
	}
	return s.scanConv()
}

func (s *scanner) scanConv() (token, error) {
	start := s.pos
	s.pos++ // skip '%'
	if s.pos < len(s.input) && s.input[s.pos] == '%' {
		s.pos++
		return token{kind: tokLiteral, lit: "%"}, nil
	}

	var spec convSpec
	if s.pos < len(s.input) && s.input[s.pos] == '{' {
		s.pos++
		braceStart := s.pos
		for s.pos < len(s.input) && s.input[s.pos] != '}' {
			s.pos++
		}
		if s.pos >= len(s.input) {
			return token{}, fmt.Errorf("format: unterminated %%{...} starting at offset %d", start)
		}
		inner := s.input[braceStart:s.pos]
		s.pos++ // skip '}'
		for _, part := range strings.Split(inner, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if appleTypes[part] {
				spec.Type = part
			} else {
				spec.Mods = append(spec.Mods, part)
			}
		}
	}

	for s.pos < len(s.input) && strings.ContainsRune("-+ 0#", rune(s.input[s.pos])) {
		spec.Flags += string(s.input[s.pos])
		s.pos++
	}

	if s.pos < len(s.input) && s.input[s.pos] == '*' {
		spec.HasWidth = true
		spec.WidthFromArg = true
		s.pos++
	} else if wstart := s.pos; s.advanceDigits() > wstart {
		spec.HasWidth = true
		spec.Width, _ = strconv.Atoi(s.input[wstart:s.pos])
	}

	if s.pos < len(s.input) && s.input[s.pos] == '.' {
		s.pos++
		spec.HasPrecision = true
		if s.pos < len(s.input) && s.input[s.pos] == '*' {
			spec.PrecisionFromArg = true
			s.pos++
		} else {
			pstart := s.pos
			s.advanceDigits()
			if s.pos > pstart {
				spec.Precision, _ = strconv.Atoi(s.input[pstart:s.pos])
			}
		}
	}

	for _, mod := range lengthModifiers {
		if strings.HasPrefix(s.input[s.pos:], mod) {
			spec.Length = mod
			s.pos += len(mod)
			break
		}
	}

	if s.pos >= len(s.input) {
		return token{}, fmt.Errorf("format: truncated conversion starting at offset %d", start)
	}
	spec.Conv = s.input[s.pos]
	s.pos++
	return token{kind: tokConv, spec: spec}, nil
}

func (s *scanner) advanceDigits() int {
	for s.pos < len(s.input) && s.input[s.pos] >= '0' && s.input[s.pos] <= '9' {
		s.pos++
	}
	return s.pos
}
