package diag

import "fmt"

// Truncated reports a read past the end of a buffer.
type Truncated struct {
	Offset   int64
	ChunkTag uint32
}

func (e *Truncated) Error() string {
	return fmt.Sprintf("truncated read at offset 0x%x in chunk 0x%x", e.Offset, e.ChunkTag)
}

// BadMagic reports a chunk envelope or file header with an unexpected
// magic value.
type BadMagic struct {
	Expected, Got uint64
	Offset        int64
}

func (e *BadMagic) Error() string {
	return fmt.Sprintf("bad magic at offset 0x%x: expected 0x%x, got 0x%x", e.Offset, e.Expected, e.Got)
}

// UnsupportedVersion reports a catalog/header version this decoder
// does not implement (e.g. uuidtext/dsc catalog v2, per spec Non-goals).
type UnsupportedVersion struct {
	Version string
}

func (e *UnsupportedVersion) Error() string {
	return fmt.Sprintf("unsupported format version: %s", e.Version)
}

// Lz4Failure reports a ChunkSet whose LZ4 block stream failed to
// decompress to its declared uncompressed size.
type Lz4Failure struct {
	Want, Got int
	Err       error
}

func (e *Lz4Failure) Error() string {
	return fmt.Sprintf("lz4 decompression failure: want %d bytes, got %d: %v", e.Want, e.Got, e.Err)
}

func (e *Lz4Failure) Unwrap() error { return e.Err }

// UuidNotFound reports a catalog miss: no uuidtext/dsc entry for uuid.
type UuidNotFound struct {
	Uuid [16]byte
}

func (e *UuidNotFound) Error() string {
	return fmt.Sprintf("uuid not found in catalog: %x", e.Uuid)
}

// OffsetOutOfRange reports a catalog hit on the uuid but a miss on the
// offset within it.
type OffsetOutOfRange struct {
	Uuid     [16]byte
	Offset   uint32
	Truncate bool // offset falls past a truncated/short capture, per spec §9
}

func (e *OffsetOutOfRange) Error() string {
	if e.Truncate {
		return fmt.Sprintf("offset 0x%x out of range for uuid %x (looks truncated)", e.Offset, e.Uuid)
	}
	return fmt.Sprintf("offset 0x%x out of range for uuid %x", e.Offset, e.Uuid)
}

// UnknownBoot reports a timesync lookup for a boot_uuid with no
// matching TimesyncBoot.
type UnknownBoot struct {
	BootUuid [16]byte
}

func (e *UnknownBoot) Error() string {
	return fmt.Sprintf("unknown boot uuid: %x", e.BootUuid)
}

// ArgumentShortfall reports a format string with more conversions than
// the argument stream supplied.
type ArgumentShortfall struct {
	Want, Got int
}

func (e *ArgumentShortfall) Error() string {
	return fmt.Sprintf("argument shortfall: format wants %d, entry supplied %d", e.Want, e.Got)
}

// BadArgumentDescriptor reports an argument item whose descriptor high
// nibble is not one of the recognized kinds.
type BadArgumentDescriptor struct {
	Descriptor byte
}

func (e *BadArgumentDescriptor) Error() string {
	return fmt.Sprintf("bad argument descriptor byte: 0x%02x", e.Descriptor)
}
