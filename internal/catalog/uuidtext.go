package catalog

import (
	"fmt"
	"sort"

	"github.com/coffersTech/ulog/internal/binutil"
	"github.com/coffersTech/ulog/internal/diag"
	"github.com/google/uuid"
)

// uuidtextMagic mirrors the leading 4 bytes Apple's real uuidtext files
// carry. Non-goals (spec §1) explicitly excuse this reader from
// byte-perfect `log show` equivalence, so fields this package does not
// need to interpret (flags, reserved words) are read and kept but not
// further decoded.
const uuidtextMagic = 0x99999904

// uuidtextEntry is one {range_start, data_offset, size} triple from
// spec §3's CatalogFile.
type uuidtextEntry struct {
	RangeStart uint32
	DataOffset uint32
	Size       uint32
}

// UuidtextFile is a parsed per-binary format-string catalog (spec §3
// CatalogFile, §4.3).
type UuidtextFile struct {
	Uuid        uuid.UUID
	Entries     []uuidtextEntry
	FormatPool  []byte
	LibraryPath string
}

// parseUuidtextFile parses one uuidtext/XX/<30-hex> file's raw bytes.
func parseUuidtextFile(id uuid.UUID, data []byte) (*UuidtextFile, error) {
	c := binutil.NewCursor(data, 0)
	magic, err := c.U32()
	if err != nil {
		return nil, err
	}
	if magic != uuidtextMagic {
		return nil, &diag.BadMagic{Expected: uuidtextMagic, Got: uint64(magic), Offset: 0}
	}
	if _, err := c.U32(); err != nil { // reserved flags word
		return nil, err
	}
	entryCount, err := c.U32()
	if err != nil {
		return nil, err
	}
	formatPoolSize, err := c.U32()
	if err != nil {
		return nil, err
	}

	entries := make([]uuidtextEntry, 0, entryCount)
	for i := uint32(0); i < entryCount; i++ {
		rangeStart, err := c.U32()
		if err != nil {
			return nil, err
		}
		dataOffset, err := c.U32()
		if err != nil {
			return nil, err
		}
		size, err := c.U32()
		if err != nil {
			return nil, err
		}
		entries = append(entries, uuidtextEntry{RangeStart: rangeStart, DataOffset: dataOffset, Size: size})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].RangeStart < entries[j].RangeStart })

	pool, err := c.Bytes(int(formatPoolSize))
	if err != nil {
		return nil, err
	}

	libPath, err := c.CString(c.Remaining())
	if err != nil {
		return nil, err
	}

	return &UuidtextFile{Uuid: id, Entries: entries, FormatPool: pool, LibraryPath: libPath}, nil
}

// resolve implements the non-dsc half of resolve_fmt (spec §4.3):
// locate the entry covering offset, then scan a C string out of the
// format pool at data_offset + (offset - range_start).
func (f *UuidtextFile) resolve(offset uint32) (string, error) {
	idx := sort.Search(len(f.Entries), func(i int) bool {
		return f.Entries[i].RangeStart+f.Entries[i].Size > offset
	})
	if idx == len(f.Entries) || offset < f.Entries[idx].RangeStart {
		return "", &diag.OffsetOutOfRange{Uuid: f.Uuid, Offset: offset}
	}
	e := f.Entries[idx]
	base := int(e.DataOffset) + int(offset-e.RangeStart)
	s, err := binutil.ReadCStringAt(f.FormatPool, base, len(f.FormatPool)-base)
	if err != nil {
		return "", fmt.Errorf("uuidtext %s: %w", f.Uuid, err)
	}
	return s, nil
}
