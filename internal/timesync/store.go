// Package timesync parses *.timesync files and reconstructs wall-clock
// timestamps from continuous (Mach-absolute) time values (spec §4.2).
//
// The on-disk format is a flat run of 48-byte boot headers each
// followed by a run of 36-byte records until the next boot magic or
// EOF — the same shape as server/internal/engine/wal.go's Replay loop
// (read a fixed-size framing field, then the payload, until EOF),
// generalized to two record shapes instead of one.
package timesync

import (
	"encoding/binary"
	"fmt"
	"math/bits"
	"os"
	"path/filepath"
	"sort"

	"github.com/coffersTech/ulog/internal/diag"
	"github.com/google/uuid"
)

const (
	bootMagic   = 0xBBB0
	recordMagic = 0x54B0

	bootHeaderSize = 48
	recordSize     = 36
)

// Record is one TimesyncRecord (spec §3).
type Record struct {
	ContinuousTime uint64
	WallTimeNs     uint64
	KernelTime     uint64
	GmtOffsetMin   int32
	DstFlag        uint32
}

// Boot is one TimesyncBoot (spec §3): records are kept sorted by
// ContinuousTime ascending, per the invariant in spec §3.
type Boot struct {
	BootUuid       uuid.UUID
	TimebaseNumer  uint32
	TimebaseDenom  uint32
	AnchorWallNs   uint64
	Records        []Record
}

// Store is the loaded set of boots from one or more *.timesync files.
type Store struct {
	boots map[uuid.UUID]*Boot
}

// Load parses every *.timesync file directly inside dir (spec §6,
// "<timesync_path>: directory of *.timesync files").
func Load(dir string) (*Store, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	s := &Store{boots: make(map[uuid.UUID]*Boot)}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".timesync" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		if err := s.parseFile(data); err != nil {
			return nil, fmt.Errorf("timesync %s: %w", e.Name(), err)
		}
	}
	return s, nil
}

func (s *Store) parseFile(data []byte) error {
	off := 0
	var current *Boot
	for off < len(data) {
		if off+2 > len(data) {
			break
		}
		magic := binary.LittleEndian.Uint16(data[off:])
		switch magic {
		case bootMagic:
			if off+bootHeaderSize > len(data) {
				return &diag.Truncated{Offset: int64(off)}
			}
			b := &Boot{}
			// magic(2) + unknown(2) + boot_uuid(16) + timebase_numer(4) +
			// timebase_denom(4) + boot_record_size?(4) + wall_time_ns(8) + pad(8)
			p := off + 4
			copy(b.BootUuid[:], data[p:p+16])
			p += 16
			b.TimebaseNumer = binary.LittleEndian.Uint32(data[p:])
			p += 4
			b.TimebaseDenom = binary.LittleEndian.Uint32(data[p:])
			p += 4
			p += 4 // reserved/flags field
			b.AnchorWallNs = binary.LittleEndian.Uint64(data[p:])
			s.boots[b.BootUuid] = b
			current = b
			off += bootHeaderSize
		case recordMagic:
			if current == nil {
				return fmt.Errorf("timesync record before any boot header at offset %d", off)
			}
			if off+recordSize > len(data) {
				return &diag.Truncated{Offset: int64(off)}
			}
			p := off + 4 // magic(2) + pad(2)
			r := Record{
				ContinuousTime: binary.LittleEndian.Uint64(data[p:]),
				WallTimeNs:     binary.LittleEndian.Uint64(data[p+8:]),
				KernelTime:     binary.LittleEndian.Uint64(data[p+16:]),
				GmtOffsetMin:   int32(binary.LittleEndian.Uint32(data[p+24:])),
				DstFlag:        binary.LittleEndian.Uint32(data[p+28:]),
			}
			current.Records = append(current.Records, r)
			off += recordSize
		default:
			return fmt.Errorf("unrecognized timesync magic 0x%x at offset %d", magic, off)
		}
	}
	for _, b := range s.boots {
		sort.SliceStable(b.Records, func(i, j int) bool {
			return b.Records[i].ContinuousTime < b.Records[j].ContinuousTime
		})
	}
	return nil
}

// Boot returns the parsed TimesyncBoot for a boot_uuid, if loaded.
func (s *Store) Boot(bootUuid uuid.UUID) (*Boot, bool) {
	b, ok := s.boots[bootUuid]
	return b, ok
}

// ToWallNS reconstructs the wall-clock nanosecond timestamp for a
// continuous time value within the given boot (spec §4.2).
func (s *Store) ToWallNS(bootUuid uuid.UUID, continuousTime uint64) (int64, error) {
	b, ok := s.boots[bootUuid]
	if !ok {
		return 0, &diag.UnknownBoot{BootUuid: bootUuid}
	}
	return b.ToWallNS(continuousTime)
}

// ToWallNS implements the lookup/interpolation rule for one boot:
// locate the latest record at-or-before continuousTime (ties broken by
// taking the later record in file order, which sort.Search already
// gives us since it returns the first record NOT <= target), fall back
// to the boot anchor when continuousTime precedes every record.
func (b *Boot) ToWallNS(continuousTime uint64) (int64, error) {
	// idx = number of records with ContinuousTime <= continuousTime.
	idx := sort.Search(len(b.Records), func(i int) bool {
		return b.Records[i].ContinuousTime > continuousTime
	})

	var baseWall, baseCt uint64
	if idx == 0 {
		baseWall, baseCt = b.AnchorWallNs, 0
	} else {
		r := b.Records[idx-1]
		baseWall, baseCt = r.WallTimeNs, r.ContinuousTime
	}

	delta := continuousTime - baseCt
	offsetNs := widenedMulDiv(delta, uint64(b.TimebaseNumer), uint64(b.TimebaseDenom))
	return int64(baseWall + offsetNs), nil
}

// widenedMulDiv computes floor(a*numer/denom) using a 128-bit widened
// intermediate product so a*numer never silently overflows 64 bits
// (spec §4.2, "Overflow in the multiplication uses 128-bit widening").
func widenedMulDiv(a, numer, denom uint64) uint64 {
	if denom == 0 {
		return 0
	}
	hi, lo := bits.Mul64(a, numer)
	q, _ := bits.Div64(hi, lo, denom)
	return q
}
