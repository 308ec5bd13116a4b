// Package tracev3 frames a tracev3 file as its sequence of typed
// chunks, inflates LZ4 ChunkSets, and routes each inner chunk to its
// decoder (spec §4.4). It owns the in-file Catalog snapshots and the
// Oversize back-reference buffer (spec §4.5, §9 DESIGN NOTES) but
// leaves format-string resolution, timesync, and LogRecord assembly
// to the orchestrator in package ulog.
//
// The top-level loop is grounded on
// server/internal/storage/reader.go's FileIterator: validate a
// header, then iterate a run of framed blocks until EOF, decompressing
// each before interpreting it — generalized here to a tagged chunk
// envelope instead of one fixed record shape, and to
// github.com/pierrec/lz4/v4 instead of zstd (spec's wire format is
// declared LZ4, spec §4.4).
package tracev3

import (
	"encoding/binary"

	"github.com/coffersTech/ulog/internal/binutil"
	"github.com/coffersTech/ulog/internal/diag"
	"github.com/coffersTech/ulog/internal/firehose"
	"github.com/google/uuid"
	"github.com/pierrec/lz4/v4"
)

// Chunk tags (spec §4.4, §6 "bit-exact").
const (
	TagHeader     = 0x1000
	TagFirehose   = 0x1001
	TagOversize   = 0x1002
	TagStateDump  = 0x1003
	TagSimpledump = 0x1004
	TagCatalog    = 0x600B
	TagChunkSet   = 0x600D

	lz4Algorithm = 0x100
)

// TraceFileContext is the Header chunk's payload (spec §4.4).
type TraceFileContext struct {
	BootUuid      uuid.UUID
	TimebaseNumer uint32
	TimebaseDenom uint32
	TimezonePath  string
	BuildVersion  string
}

// Page pairs a decoded firehose page with the catalog snapshot active
// when that page's enclosing Firehose chunk was parsed (spec §9
// DESIGN NOTES: "firehose decoders take a reference to the snapshot
// active when their page began").
type Page struct {
	Page     *firehose.Page
	Catalog  *CatalogSnapshot
}

// File is the fully decoded contents of one tracev3 file, ready for
// the orchestrator to resolve format strings and wall-clock times
// against.
type File struct {
	Context     TraceFileContext
	Pages       []Page
	StateDumps  []StateDumpChunk
	Simpledumps []SimpledumpChunk

	oversize       map[oversizeKey][]byte
	currentCatalog *CatalogSnapshot
}

type oversizeKey struct {
	procId1      uint64
	procId2      uint32
	dataRefIndex uint16
}

// oversizeLookup implements firehose.OversizeLookup against this
// file's buffered Oversize chunks (spec §9 DESIGN NOTES).
func (f *File) oversizeLookup(procId1 uint64, procId2 uint32, dataRefIndex uint16) ([]byte, bool) {
	b, ok := f.oversize[oversizeKey{procId1, procId2, dataRefIndex}]
	return b, ok
}

// DecodeFile parses one tracev3 file's complete byte stream (spec
// §4.4). Per-chunk failures are recovered (spec §7): an unknown tag is
// skipped with a diagnostic, a truncated chunk stops the enclosing
// container but keeps every record already decoded, and an LZ4
// failure is fatal only to its own ChunkSet.
func DecodeFile(data []byte, reporter *diag.Reporter) (*File, error) {
	f := &File{oversize: make(map[oversizeKey][]byte)}

	first := true
	err := walkChunks(data, reporter, func(tag, subtag uint32, payload []byte) {
		if first {
			first = false
			if tag != TagHeader {
				reporter.Report(0, tag, &diag.BadMagic{Expected: TagHeader, Got: uint64(tag)})
			}
		}
		f.dispatch(tag, subtag, payload, reporter)
	})
	return f, err
}

// dispatch interprets one chunk already extracted from the top-level
// stream or from an inflated ChunkSet.
func (f *File) dispatch(tag, subtag uint32, payload []byte, reporter *diag.Reporter) {
	switch tag {
	case TagHeader:
		ctx, err := parseHeader(payload)
		if err != nil {
			reporter.Report(0, tag, err)
			return
		}
		f.Context = ctx
	case TagChunkSet:
		f.decodeChunkSet(subtag, payload, reporter)
	case TagCatalog:
		snap, err := parseCatalog(payload)
		if err != nil {
			reporter.Report(0, tag, err)
			return
		}
		f.currentCatalog = snap
	case TagFirehose:
		p, err := firehose.DecodePage(payload, f.oversizeLookup, reporter)
		if err != nil {
			reporter.Report(0, tag, err)
			return
		}
		f.Pages = append(f.Pages, Page{Page: p, Catalog: f.currentCatalog})
	case TagOversize:
		key, data, err := parseOversize(payload)
		if err != nil {
			reporter.Report(0, tag, err)
			return
		}
		f.oversize[key] = data
	case TagStateDump:
		sd, err := parseStateDump(payload)
		if err != nil {
			reporter.Report(0, tag, err)
			return
		}
		f.StateDumps = append(f.StateDumps, sd)
	case TagSimpledump:
		sd, err := parseSimpledump(payload)
		if err != nil {
			reporter.Report(0, tag, err)
			return
		}
		f.Simpledumps = append(f.Simpledumps, sd)
	default:
		reporter.Report(0, tag, &diag.BadMagic{Got: uint64(tag)})
	}
}

// decodeChunkSet inflates an LZ4-compressed chunk stream and dispatches
// every inner chunk it contains. A ChunkSet nested inside another
// ChunkSet is not a valid shape (spec §4.4: "any tag except another
// ChunkSet") and is reported and skipped.
func (f *File) decodeChunkSet(subtag uint32, payload []byte, reporter *diag.Reporter) {
	if len(payload) < 8 {
		reporter.Report(0, TagChunkSet, &diag.Truncated{ChunkTag: TagChunkSet})
		return
	}
	uncompressedSize := binary.LittleEndian.Uint64(payload[:8])
	compressed := payload[8:]

	if subtag != lz4Algorithm {
		reporter.Report(0, TagChunkSet, &diag.UnsupportedVersion{Version: "chunkset algorithm"})
		return
	}

	out := make([]byte, uncompressedSize)
	n, err := lz4.UncompressBlock(compressed, out)
	if err != nil || uint64(n) != uncompressedSize {
		reporter.Report(0, TagChunkSet, &diag.Lz4Failure{Want: int(uncompressedSize), Got: n, Err: err})
		return
	}

	_ = walkChunks(out, reporter, func(tag, subtag uint32, inner []byte) {
		if tag == TagChunkSet {
			reporter.Report(0, tag, &diag.BadMagic{Got: uint64(tag)})
			return
		}
		f.dispatch(tag, subtag, inner, reporter)
	})
}

// walkChunks iterates the {tag, subtag, data_len, data} envelope
// stream (spec §4.4), 8-byte-aligning after each chunk, and invokes
// visit for each one. It stops (without an error) on truncation,
// since already-visited chunks remain valid (spec §7).
func walkChunks(data []byte, reporter *diag.Reporter, visit func(tag, subtag uint32, payload []byte)) error {
	off := 0
	for off < len(data) {
		if off+16 > len(data) {
			reporter.Report(int64(off), 0, &diag.Truncated{Offset: int64(off)})
			return nil
		}
		tag := binary.LittleEndian.Uint32(data[off:])
		subtag := binary.LittleEndian.Uint32(data[off+4:])
		dataLen := binary.LittleEndian.Uint64(data[off+8:])
		start := off + 16
		if dataLen > uint64(len(data)-start) {
			reporter.Report(int64(off), tag, &diag.Truncated{Offset: int64(off), ChunkTag: tag})
			return nil
		}
		end := start + int(dataLen)
		visit(tag, subtag, data[start:end])
		off = start + alignUp8(int(dataLen))
	}
	return nil
}

func alignUp8(n int) int {
	if rem := n % 8; rem != 0 {
		return n + (8 - rem)
	}
	return n
}

// parseHeader reads the Header chunk's boot_uuid/timebase/timezone
// path/build metadata into a TraceFileContext (spec §4.4). No
// byte-exact real header layout is specified, so this reads fixed
// fields (boot_uuid, timebase numer/denom) followed by two
// length-prefixed, NUL-padded strings: the timezone path and the build
// version.
func parseHeader(data []byte) (TraceFileContext, error) {
	c := binutil.NewCursor(data, TagHeader)
	var ctx TraceFileContext
	var err error
	if ctx.BootUuid, err = c.Uuid(); err != nil {
		return ctx, err
	}
	if ctx.TimebaseNumer, err = c.U32(); err != nil {
		return ctx, err
	}
	if ctx.TimebaseDenom, err = c.U32(); err != nil {
		return ctx, err
	}
	tzLen, err := c.U32()
	if err != nil {
		return ctx, err
	}
	if ctx.TimezonePath, err = c.CString(int(tzLen)); err != nil {
		return ctx, err
	}
	buildLen, err := c.U32()
	if err != nil {
		return ctx, err
	}
	if ctx.BuildVersion, err = c.CString(int(buildLen)); err != nil {
		return ctx, err
	}
	return ctx, nil
}
