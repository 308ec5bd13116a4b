package catalog

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/coffersTech/ulog/internal/binutil"
	"github.com/coffersTech/ulog/internal/diag"
	"github.com/google/uuid"
)

// dscMagic is the real on-disk signature for Apple's shared-cache
// strings (dsc) files, "hcsd" — original_source/UnifiedLog/dsc_file.go
// checks this literal 4-byte signature before trusting the rest of the
// header.
var dscMagic = [4]byte{'h', 'c', 's', 'd'}

// dscRange is one {uuid_index, v_offset, data_offset, size} tuple
// (spec §3 SharedCache.ranges).
type dscRange struct {
	UuidIndex  uint64
	VOffset    uint64
	DataOffset uint32
	Size       uint32
}

// dscUuidEntry is one {size, uuid, v_offset, path_offset, load_address}
// tuple (spec §3 SharedCache.uuids). load_address is not recoverable
// from the dsc file alone in this simplified (non-v2-catalog) reader
// and is always 0 here; the richer load_address the
// firehose decoder needs comes from the in-tracev3 ProcessInfo catalog
// instead (spec §4.5).
type dscUuidEntry struct {
	Size       uint32
	Uuid       uuid.UUID
	VOffset    uint64
	PathOffset uint32
	LoadAddr   uint64
}

// DscFile is a parsed shared-cache strings file (spec §3 SharedCache).
type DscFile struct {
	Uuid         uuid.UUID
	MajorVersion uint16
	MinorVersion uint16
	Ranges       []dscRange // sorted by VOffset ascending
	Uuids        []dscUuidEntry
	raw          []byte
}

// parseDscFile parses one uuidtext/dsc/<32-hex> file's raw bytes.
//
// original_source/UnifiedLog/dsc_file.py supports two physical range/
// uuid-entry encodings keyed off the header's major version (16 bytes
// vs 24 for range entries, 28 vs 32 for uuid entries); this is
// preserved per SPEC_FULL's "supplemented behavior" rather than
// hard-coding one layout.
func parseDscFile(id uuid.UUID, data []byte) (*DscFile, error) {
	c := binutil.NewCursor(data, 0)
	magicBytes, err := c.Bytes(4)
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(magicBytes, dscMagic[:]) {
		return nil, &diag.BadMagic{Offset: 0}
	}
	major, err := c.U16()
	if err != nil {
		return nil, err
	}
	minor, err := c.U16()
	if err != nil {
		return nil, err
	}
	numRange, err := c.U32()
	if err != nil {
		return nil, err
	}
	numUuid, err := c.U32()
	if err != nil {
		return nil, err
	}
	if major != 1 && major != 2 {
		return nil, &diag.UnsupportedVersion{Version: fmt.Sprintf("%d.%d", major, minor)}
	}

	f := &DscFile{Uuid: id, MajorVersion: major, MinorVersion: minor, raw: data}

	for i := uint32(0); i < numRange; i++ {
		var r dscRange
		if major == 1 {
			uuidIndex, err := c.U32()
			if err != nil {
				return nil, err
			}
			vOff, err := c.U32()
			if err != nil {
				return nil, err
			}
			dataOff, err := c.U32()
			if err != nil {
				return nil, err
			}
			size, err := c.U32()
			if err != nil {
				return nil, err
			}
			r = dscRange{UuidIndex: uint64(uuidIndex), VOffset: uint64(vOff), DataOffset: dataOff, Size: size}
		} else {
			vOff, err := c.U64()
			if err != nil {
				return nil, err
			}
			dataOff, err := c.U32()
			if err != nil {
				return nil, err
			}
			size, err := c.U32()
			if err != nil {
				return nil, err
			}
			uuidIndex, err := c.U64()
			if err != nil {
				return nil, err
			}
			r = dscRange{UuidIndex: uuidIndex, VOffset: vOff, DataOffset: dataOff, Size: size}
		}
		f.Ranges = append(f.Ranges, r)
	}
	sort.Slice(f.Ranges, func(i, j int) bool { return f.Ranges[i].VOffset < f.Ranges[j].VOffset })

	for i := uint32(0); i < numUuid; i++ {
		var e dscUuidEntry
		if major == 1 {
			vOff, err := c.U32()
			if err != nil {
				return nil, err
			}
			size, err := c.U32()
			if err != nil {
				return nil, err
			}
			id16, err := c.Uuid()
			if err != nil {
				return nil, err
			}
			dataOff, err := c.U32()
			if err != nil {
				return nil, err
			}
			e = dscUuidEntry{Size: size, Uuid: id16, VOffset: uint64(vOff), PathOffset: dataOff}
		} else {
			vOff, err := c.U64()
			if err != nil {
				return nil, err
			}
			size, err := c.U32()
			if err != nil {
				return nil, err
			}
			id16, err := c.Uuid()
			if err != nil {
				return nil, err
			}
			dataOff, err := c.U32()
			if err != nil {
				return nil, err
			}
			e = dscUuidEntry{Size: size, Uuid: id16, VOffset: vOff, PathOffset: dataOff}
		}
		f.Uuids = append(f.Uuids, e)
	}

	return f, nil
}

// resolve implements the dsc half of resolve_fmt (spec §4.3): binary
// search ranges by v_offset, then read the format string and library
// path/uuid for the matching range.
func (f *DscFile) resolve(offset uint64) (format, libraryPath string, libraryUuid uuid.UUID, err error) {
	idx := sort.Search(len(f.Ranges), func(i int) bool {
		return f.Ranges[i].VOffset+uint64(f.Ranges[i].Size) > offset
	})
	if idx == len(f.Ranges) || offset < f.Ranges[idx].VOffset {
		return "", "", uuid.Nil, &diag.OffsetOutOfRange{Uuid: f.Uuid, Offset: uint32(offset)}
	}
	r := f.Ranges[idx]
	base := int(r.DataOffset) + int(offset-r.VOffset)
	format, err = binutil.ReadCStringAt(f.raw, base, 1024)
	if err != nil {
		return "", "", uuid.Nil, err
	}

	ue, ok := f.uuidEntryByIndex(r.UuidIndex)
	if !ok {
		return format, "", uuid.Nil, &diag.UuidNotFound{}
	}
	libraryPath, err = binutil.ReadCStringAt(f.raw, int(ue.PathOffset), 1024)
	if err != nil {
		return format, "", ue.Uuid, err
	}
	return format, libraryPath, ue.Uuid, nil
}

func (f *DscFile) uuidEntryByIndex(idx uint64) (dscUuidEntry, bool) {
	if idx >= uint64(len(f.Uuids)) {
		return dscUuidEntry{}, false
	}
	return f.Uuids[idx], true
}
