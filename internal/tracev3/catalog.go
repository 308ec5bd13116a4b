package tracev3

import (
	"github.com/coffersTech/ulog/internal/binutil"
	"github.com/google/uuid"
)

// ProcessInfo is one ProcessInfo record from a Catalog chunk (spec
// §3, §4.5). UuidsUsed/Subsystems index into the enclosing
// CatalogSnapshot's FileUuids table and SubsystemStrings pool
// respectively.
type ProcessInfo struct {
	MainUuidIndex uint16
	DscUuidIndex  uint16
	ProcId1       uint64
	ProcId2       uint32
	Pid           uint32
	Euid          uint32
	UuidsUsed     []UuidUsed
	Subsystems    map[uint16]SubsystemEntry
}

// UuidUsed is one {size, uuid_index, v_offset, load_address} tuple
// (spec §4.5).
type UuidUsed struct {
	Size        uint32
	UuidIndex   uint32
	VOffset     uint32
	LoadAddress uint64
}

// SubsystemEntry is one (subsystem_str, category_str) pair a
// ProcessInfo maps a 16-bit identifier to (spec §3 ProcessInfo.subsystems).
type SubsystemEntry struct {
	Subsystem string
	Category  string
}

// SubChunk defines which file UUIDs and subsystem identifiers are
// valid for a time window (spec §3).
type SubChunk struct {
	StartTime        uint64
	EndTime          uint64
	ChunkUuidIndexes []uint16
	StringIndexes    []uint16
}

// CatalogSnapshot is the immutable TraceV3Catalog active for every
// firehose page parsed until the next Catalog chunk replaces it (spec
// §9 DESIGN NOTES: "immutable CatalogSnapshot swapped on each new
// Catalog chunk"). Earlier snapshots stay alive as long as any Page
// still references them, so mutation never needs to be guarded by a
// lock the way the source's single shared catalog would.
type CatalogSnapshot struct {
	FileUuids         []uuid.UUID
	SubsystemStrings  []byte
	ProcessInfos      []ProcessInfo
	SubChunks         []SubChunk
}

// ProcessInfoFor returns the ProcessInfo matching (procId1, procId2),
// the process identity firehose entries carry at the page level (spec
// §3 "proc_id = (proc_id_1, proc_id_2)").
func (s *CatalogSnapshot) ProcessInfoFor(procId1 uint64, procId2 uint32) (ProcessInfo, bool) {
	if s == nil {
		return ProcessInfo{}, false
	}
	for _, pi := range s.ProcessInfos {
		if pi.ProcId1 == procId1 && pi.ProcId2 == procId2 {
			return pi, true
		}
	}
	return ProcessInfo{}, false
}

// FileUuid resolves an index into the catalog's file-uuid table
// (shared by ProcessInfo.MainUuidIndex/DscUuidIndex and
// UuidUsed.UuidIndex, and by SubChunk.ChunkUuidIndexes).
func (s *CatalogSnapshot) FileUuid(idx uint16) (uuid.UUID, bool) {
	if s == nil || int(idx) >= len(s.FileUuids) {
		return uuid.Nil, false
	}
	return s.FileUuids[idx], true
}

// parseCatalog decodes one Catalog chunk's payload (spec §4.5). Field
// layout: a 16-byte header of four U32 counts (file_uuid_count,
// subsystem_strings_size, process_info_count, sub_chunk_count),
// followed by that many raw 16-byte UUIDs, the subsystem string pool,
// the ProcessInfo records, then the SubChunks. No real on-disk layout
// is specified for this chunk beyond the field names in spec §4.5, so
// this is a self-consistent rendering of exactly those fields.
func parseCatalog(data []byte) (*CatalogSnapshot, error) {
	c := binutil.NewCursor(data, TagCatalog)
	fileUuidCount, err := c.U32()
	if err != nil {
		return nil, err
	}
	subsystemStringsSize, err := c.U32()
	if err != nil {
		return nil, err
	}
	processInfoCount, err := c.U32()
	if err != nil {
		return nil, err
	}
	subChunkCount, err := c.U32()
	if err != nil {
		return nil, err
	}

	snap := &CatalogSnapshot{}
	for i := uint32(0); i < fileUuidCount; i++ {
		id, err := c.Uuid()
		if err != nil {
			return nil, err
		}
		snap.FileUuids = append(snap.FileUuids, id)
	}
	snap.SubsystemStrings, err = c.Bytes(int(subsystemStringsSize))
	if err != nil {
		return nil, err
	}

	for i := uint32(0); i < processInfoCount; i++ {
		pi, err := parseProcessInfo(c, snap.SubsystemStrings)
		if err != nil {
			return nil, err
		}
		snap.ProcessInfos = append(snap.ProcessInfos, pi)
	}

	for i := uint32(0); i < subChunkCount; i++ {
		sc, err := parseSubChunk(c)
		if err != nil {
			return nil, err
		}
		snap.SubChunks = append(snap.SubChunks, sc)
	}

	return snap, nil
}

func parseProcessInfo(c *binutil.Cursor, subsystemStrings []byte) (ProcessInfo, error) {
	var pi ProcessInfo
	var err error
	if pi.MainUuidIndex, err = c.U16(); err != nil {
		return pi, err
	}
	if pi.DscUuidIndex, err = c.U16(); err != nil {
		return pi, err
	}
	if pi.ProcId1, err = c.U64(); err != nil {
		return pi, err
	}
	if pi.ProcId2, err = c.U32(); err != nil {
		return pi, err
	}
	if pi.Pid, err = c.U32(); err != nil {
		return pi, err
	}
	if pi.Euid, err = c.U32(); err != nil {
		return pi, err
	}
	uuidsUsedCount, err := c.U32()
	if err != nil {
		return pi, err
	}
	subsystemsCount, err := c.U32()
	if err != nil {
		return pi, err
	}

	for i := uint32(0); i < uuidsUsedCount; i++ {
		var u UuidUsed
		if u.Size, err = c.U32(); err != nil {
			return pi, err
		}
		if u.UuidIndex, err = c.U32(); err != nil {
			return pi, err
		}
		if u.VOffset, err = c.U32(); err != nil {
			return pi, err
		}
		if u.LoadAddress, err = c.U64(); err != nil {
			return pi, err
		}
		pi.UuidsUsed = append(pi.UuidsUsed, u)
	}

	pi.Subsystems = make(map[uint16]SubsystemEntry, subsystemsCount)
	for i := uint32(0); i < subsystemsCount; i++ {
		identifier, err := c.U16()
		if err != nil {
			return pi, err
		}
		subsystemOffset, err := c.U16()
		if err != nil {
			return pi, err
		}
		categoryOffset, err := c.U16()
		if err != nil {
			return pi, err
		}
		if _, err := c.U16(); err != nil { // padding
			return pi, err
		}
		pi.Subsystems[identifier] = SubsystemEntry{
			Subsystem: subsystemString(subsystemStrings, int(subsystemOffset)),
			Category:  subsystemString(subsystemStrings, int(categoryOffset)),
		}
	}
	return pi, nil
}

// subsystemString reads a C string out of the subsystem pool at a
// fixed offset, tolerating a missing NUL by returning an empty string
// rather than failing the whole ProcessInfo (spec §7 entry-level
// recovery applies to this lookup too).
func subsystemString(pool []byte, offset int) string {
	if offset < 0 || offset >= len(pool) {
		return ""
	}
	s, err := binutil.ReadCStringAt(pool, offset, len(pool)-offset)
	if err != nil {
		return ""
	}
	return s
}

func parseSubChunk(c *binutil.Cursor) (SubChunk, error) {
	var sc SubChunk
	var err error
	if sc.StartTime, err = c.U64(); err != nil {
		return sc, err
	}
	if sc.EndTime, err = c.U64(); err != nil {
		return sc, err
	}
	chunkUuidCount, err := c.U32()
	if err != nil {
		return sc, err
	}
	stringCount, err := c.U32()
	if err != nil {
		return sc, err
	}
	for i := uint32(0); i < chunkUuidCount; i++ {
		v, err := c.U16()
		if err != nil {
			return sc, err
		}
		sc.ChunkUuidIndexes = append(sc.ChunkUuidIndexes, v)
	}
	for i := uint32(0); i < stringCount; i++ {
		v, err := c.U16()
		if err != nil {
			return sc, err
		}
		sc.StringIndexes = append(sc.StringIndexes, v)
	}
	return sc, nil
}
