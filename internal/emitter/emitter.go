// Package emitter hands decoded LogRecords to an abstract sink (spec
// §4.8: "the core does not itself format for output"). SinkFunc plays
// the same role server/internal/engine/flusher.go's FlushFunc does:
// it lets the decoder packages stay free of any output-formatter
// import.
package emitter

import "github.com/coffersTech/ulog/internal/model"

// SinkFunc receives one fully assembled LogRecord. Implementations
// that need to stop early return a non-nil error, which callers may
// treat as fatal to the enclosing parse.
type SinkFunc func(rec model.LogRecord) error

// Emit hands rec to fn if fn is non-nil.
func Emit(fn SinkFunc, rec model.LogRecord) error {
	if fn == nil {
		return nil
	}
	return fn(rec)
}

// Collect returns a SinkFunc that appends every record to a slice
// reachable through the returned function's closure — this is the
// sink tests reach for instead of standing up a real output writer,
// mirroring how engine tests in the source pass a closure FlushFunc
// instead of writing to storage.
func Collect(out *[]model.LogRecord) SinkFunc {
	return func(rec model.LogRecord) error {
		*out = append(*out, rec)
		return nil
	}
}
