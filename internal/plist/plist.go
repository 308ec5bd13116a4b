// Package plist stands in for the biplist property-list decoder that
// spec.md §1 explicitly treats as an opaque external collaborator:
// "the biplist property-list decoding used for backtrace dictionaries
// (treated as an opaque plist_decode(bytes) -> tree helper)". Callers
// in this module never depend on Decode actually succeeding — a
// backtrace that fails to decode is simply recorded as empty (spec §7
// recovery policy).
package plist

import "errors"

// ErrNotImplemented is returned by Decode: the plist decoder itself is
// out of scope for the core (spec §1).
var ErrNotImplemented = errors.New("plist: property-list decoding is an external collaborator, not implemented by the core")

// Tree is the opaque decoded structure a real biplist decoder would
// return.
type Tree = map[string]any

// Decode is the opaque plist_decode(bytes) -> tree contract from
// spec.md §1.
func Decode(data []byte) (Tree, error) {
	return nil, ErrNotImplemented
}
