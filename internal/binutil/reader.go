// Package binutil provides endian-aware fixed-width reads, bounded
// slicing, and the other binary reader primitives every decoder in
// this module is built on (spec §4.1). Every read reports an offset
// and chunk tag on failure instead of panicking, mirroring how
// server/internal/storage/reader.go validated headers/footers before
// trusting their contents.
package binutil

import (
	"encoding/binary"

	"github.com/coffersTech/ulog/internal/diag"
	"github.com/google/uuid"
)

// Cursor is a bounds-checked little-endian reader over a fixed byte
// slice. It never panics: every Read* method reports a *diag.Truncated
// instead of indexing out of range.
type Cursor struct {
	Buf      []byte
	Off      int
	ChunkTag uint32
}

// NewCursor wraps buf for reading, tagging any error with chunkTag.
func NewCursor(buf []byte, chunkTag uint32) *Cursor {
	return &Cursor{Buf: buf, ChunkTag: chunkTag}
}

func (c *Cursor) need(n int) error {
	if c.Off < 0 || n < 0 || c.Off+n > len(c.Buf) {
		return &diag.Truncated{Offset: int64(c.Off), ChunkTag: c.ChunkTag}
	}
	return nil
}

// Remaining reports how many bytes are left to read.
func (c *Cursor) Remaining() int {
	return len(c.Buf) - c.Off
}

// U8 reads one byte.
func (c *Cursor) U8() (uint8, error) {
	if err := c.need(1); err != nil {
		return 0, err
	}
	v := c.Buf[c.Off]
	c.Off++
	return v, nil
}

// U16 reads a little-endian uint16.
func (c *Cursor) U16() (uint16, error) {
	if err := c.need(2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(c.Buf[c.Off:])
	c.Off += 2
	return v, nil
}

// U32 reads a little-endian uint32.
func (c *Cursor) U32() (uint32, error) {
	if err := c.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(c.Buf[c.Off:])
	c.Off += 4
	return v, nil
}

// U64 reads a little-endian uint64.
func (c *Cursor) U64() (uint64, error) {
	if err := c.need(8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(c.Buf[c.Off:])
	c.Off += 8
	return v, nil
}

// I32 reads a little-endian int32.
func (c *Cursor) I32() (int32, error) {
	v, err := c.U32()
	return int32(v), err
}

// I64 reads a little-endian int64.
func (c *Cursor) I64() (int64, error) {
	v, err := c.U64()
	return int64(v), err
}

// Bytes reads and returns a copy of n raw bytes.
func (c *Cursor) Bytes(n int) ([]byte, error) {
	if err := c.need(n); err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, c.Buf[c.Off:c.Off+n])
	c.Off += n
	return out, nil
}

// Peek returns n raw bytes without advancing the cursor.
func (c *Cursor) Peek(n int) ([]byte, error) {
	if err := c.need(n); err != nil {
		return nil, err
	}
	return c.Buf[c.Off : c.Off+n], nil
}

// Skip advances the cursor by n bytes without returning them.
func (c *Cursor) Skip(n int) error {
	if err := c.need(n); err != nil {
		return err
	}
	c.Off += n
	return nil
}

// Uuid reads a 16-byte UUID.
func (c *Cursor) Uuid() (uuid.UUID, error) {
	if err := c.need(16); err != nil {
		return uuid.Nil, err
	}
	var u uuid.UUID
	copy(u[:], c.Buf[c.Off:c.Off+16])
	c.Off += 16
	return u, nil
}

// CString scans a zero-terminated string within the next max bytes.
// If no NUL is found within max, the whole max-byte window is taken as
// the string (the source data is malformed but we still advance by a
// declared size rather than aborting the caller's chunk).
func (c *Cursor) CString(max int) (string, error) {
	if err := c.need(max); err != nil {
		return "", err
	}
	window := c.Buf[c.Off : c.Off+max]
	n := 0
	for n < len(window) && window[n] != 0 {
		n++
	}
	s := string(window[:n])
	c.Off += max
	return s, nil
}

// SizedString reads exactly size bytes and strips a single trailing NUL.
func (c *Cursor) SizedString(size int) (string, error) {
	b, err := c.Bytes(size)
	if err != nil {
		return "", err
	}
	if len(b) > 0 && b[len(b)-1] == 0 {
		b = b[:len(b)-1]
	}
	return string(b), nil
}

// Align advances the cursor to the next boundary-byte alignment.
func (c *Cursor) Align(boundary int) error {
	rem := c.Off % boundary
	if rem == 0 {
		return nil
	}
	return c.Skip(boundary - rem)
}

// ReadCStringAt scans a zero-terminated string starting at a fixed
// offset in buf, bounded by max bytes, without disturbing any cursor.
// Used by catalog resolvers that seek to an absolute data offset
// (mirrors dsc_file.py's fixed-offset path-string reads).
func ReadCStringAt(buf []byte, offset, max int) (string, error) {
	if offset < 0 || offset > len(buf) {
		return "", &diag.Truncated{Offset: int64(offset)}
	}
	end := offset + max
	if end > len(buf) {
		end = len(buf)
	}
	window := buf[offset:end]
	n := 0
	for n < len(window) && window[n] != 0 {
		n++
	}
	return string(window[:n]), nil
}
