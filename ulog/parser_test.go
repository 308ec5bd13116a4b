package ulog

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/coffersTech/ulog/internal/diag"
	"github.com/coffersTech/ulog/internal/model"
	"github.com/google/uuid"
)

// buildUuidtextFile writes one uuidtext/XX/<28-hex> file covering a
// single format string at range_start 0x100 (mirrors
// internal/catalog's parseUuidtextFile layout).
func buildUuidtextFile(t *testing.T, dir string, id uuid.UUID, formatStr, libPath string) {
	t.Helper()
	pool := append([]byte(formatStr), 0)

	var p []byte
	p = binary.LittleEndian.AppendUint32(p, 0x99999904) // magic
	p = binary.LittleEndian.AppendUint32(p, 0)          // reserved
	p = binary.LittleEndian.AppendUint32(p, 1)          // entry count
	p = binary.LittleEndian.AppendUint32(p, uint32(len(pool)))

	p = binary.LittleEndian.AppendUint32(p, 0x100) // range_start
	p = binary.LittleEndian.AppendUint32(p, 0)     // data_offset
	p = binary.LittleEndian.AppendUint32(p, uint32(len(pool)))

	p = append(p, pool...)
	p = append(p, []byte(libPath)...)

	full := hexUuid(id)
	sub := filepath.Join(dir, full[:2])
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(sub, full[2:]), p, 0o644); err != nil {
		t.Fatal(err)
	}
}

func hexUuid(id uuid.UUID) string {
	const hexDigits = "0123456789abcdef"
	b := make([]byte, 32)
	for i, c := range id {
		b[i*2] = hexDigits[c>>4]
		b[i*2+1] = hexDigits[c&0xf]
	}
	return string(b)
}

// buildTimesyncFile writes one *.timesync file with a single boot and
// a single record (mirrors internal/timesync's parseFile layout).
func buildTimesyncFile(t *testing.T, dir string, bootUuid uuid.UUID, anchorWallNs uint64) {
	t.Helper()
	var p []byte
	p = binary.LittleEndian.AppendUint16(p, 0xBBB0)
	p = binary.LittleEndian.AppendUint16(p, 0) // pad
	p = append(p, bootUuid[:]...)
	p = binary.LittleEndian.AppendUint32(p, 125) // timebase numer
	p = binary.LittleEndian.AppendUint32(p, 3)   // timebase denom
	p = binary.LittleEndian.AppendUint32(p, 0)   // reserved
	p = binary.LittleEndian.AppendUint64(p, anchorWallNs)
	for len(p) < 48 {
		p = append(p, 0)
	}

	var rec []byte
	rec = binary.LittleEndian.AppendUint16(rec, 0x54B0)
	rec = binary.LittleEndian.AppendUint16(rec, 0) // pad
	rec = binary.LittleEndian.AppendUint64(rec, 2000) // continuous_time
	rec = binary.LittleEndian.AppendUint64(rec, anchorWallNs+500)
	rec = binary.LittleEndian.AppendUint64(rec, 0) // kernel_time
	rec = binary.LittleEndian.AppendUint32(rec, 0) // gmt_offset_min
	rec = binary.LittleEndian.AppendUint32(rec, 0) // dst_flag

	p = append(p, rec...)

	if err := os.WriteFile(filepath.Join(dir, "0000000000000001.timesync"), p, 0o644); err != nil {
		t.Fatal(err)
	}
}

func e2eHeaderPayload(bootUuid uuid.UUID) []byte {
	var p []byte
	p = append(p, bootUuid[:]...)
	p = binary.LittleEndian.AppendUint32(p, 125)
	p = binary.LittleEndian.AppendUint32(p, 3)
	p = binary.LittleEndian.AppendUint32(p, 0)
	p = binary.LittleEndian.AppendUint32(p, 0)
	return p
}

func e2eCatalogPayload(mainUuid uuid.UUID, pid uint32) []byte {
	var p []byte
	p = binary.LittleEndian.AppendUint32(p, 1)
	p = binary.LittleEndian.AppendUint32(p, 0)
	p = binary.LittleEndian.AppendUint32(p, 1)
	p = binary.LittleEndian.AppendUint32(p, 0)
	p = append(p, mainUuid[:]...)

	p = binary.LittleEndian.AppendUint16(p, 0) // main_uuid_index
	p = binary.LittleEndian.AppendUint16(p, 0) // dsc_uuid_index
	p = binary.LittleEndian.AppendUint64(p, 0x1111)
	p = binary.LittleEndian.AppendUint32(p, 0x2222)
	p = binary.LittleEndian.AppendUint32(p, pid)
	p = binary.LittleEndian.AppendUint32(p, 501)
	p = binary.LittleEndian.AppendUint32(p, 0)
	p = binary.LittleEndian.AppendUint32(p, 0)
	return p
}

// e2eFirehosePayload builds a page with one entry whose format
// location resolves to "hello %d" against a scalar argument of 7, at
// continuous_time 2500 (500 past the lone timesync record).
func e2eFirehosePayload() []byte {
	argStream := []byte{0, 1, 0x00, 4, 7, 0, 0, 0}

	var entry []byte
	entry = append(entry, 0x04, 0x00) // activity_type=Log, log_type=Default
	entry = binary.LittleEndian.AppendUint16(entry, 0)
	entry = binary.LittleEndian.AppendUint32(entry, 0x100) // format_string_location
	entry = binary.LittleEndian.AppendUint64(entry, 0x1234)
	entry = binary.LittleEndian.AppendUint64(entry, 1500) // continuous_time_delta
	entry = binary.LittleEndian.AppendUint16(entry, uint16(len(argStream)))
	entry = append(entry, argStream...)

	var page []byte
	page = binary.LittleEndian.AppendUint64(page, 0x1111)
	page = binary.LittleEndian.AppendUint32(page, 0x2222)
	page = append(page, 0, 0)
	page = binary.LittleEndian.AppendUint16(page, 0)
	page = binary.LittleEndian.AppendUint16(page, uint16(len(entry)))
	page = binary.LittleEndian.AppendUint16(page, 0)
	page = binary.LittleEndian.AppendUint32(page, 0)
	page = binary.LittleEndian.AppendUint64(page, 1000) // base_continuous_time
	page = append(page, entry...)
	return page
}

func e2eAppendChunk(buf []byte, tag, subtag uint32, payload []byte) []byte {
	buf = binary.LittleEndian.AppendUint32(buf, tag)
	buf = binary.LittleEndian.AppendUint32(buf, subtag)
	buf = binary.LittleEndian.AppendUint64(buf, uint64(len(payload)))
	buf = append(buf, payload...)
	for len(buf)%8 != 0 {
		buf = append(buf, 0)
	}
	return buf
}

// TestParser_EndToEnd covers scenario 1 from the core's testable
// end-to-end behaviors: a tracev3 file with one Header, one Catalog,
// and one Firehose page produces a single LogRecord with the expected
// message, pid, thread id, and reconstructed wall-clock time.
func TestParser_EndToEnd(t *testing.T) {
	bootUuid := uuid.New()
	mainUuid := uuid.New()

	uuidtextDir := t.TempDir()
	buildUuidtextFile(t, uuidtextDir, mainUuid, "hello %d", "/usr/lib/libexample.dylib")

	timesyncDir := t.TempDir()
	buildTimesyncFile(t, timesyncDir, bootUuid, 1_000_000_000)

	const (
		tagHeader   = 0x1000
		tagFirehose = 0x1001
		tagCatalog  = 0x600B
	)
	var file []byte
	file = e2eAppendChunk(file, tagHeader, 0, e2eHeaderPayload(bootUuid))
	file = e2eAppendChunk(file, tagCatalog, 0, e2eCatalogPayload(mainUuid, 42))
	file = e2eAppendChunk(file, tagFirehose, 0, e2eFirehosePayload())

	tracev3Path := filepath.Join(t.TempDir(), "trace.tracev3")
	if err := os.WriteFile(tracev3Path, file, 0o644); err != nil {
		t.Fatal(err)
	}

	p, err := Open(uuidtextDir, timesyncDir, tracev3Path, diag.NewReporter(nil, 16))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer p.Close()

	if !p.Next() {
		t.Fatalf("expected at least one record, Err()=%v", p.Err())
	}
	rec := p.Record()

	if rec.Message != "hello 7" {
		t.Errorf("message = %q, want %q", rec.Message, "hello 7")
	}
	if rec.Pid != 42 {
		t.Errorf("pid = %d, want 42", rec.Pid)
	}
	if rec.ThreadId != 0x1234 {
		t.Errorf("thread id = 0x%x, want 0x1234", rec.ThreadId)
	}
	// continuous_time = base(1000) + delta(1500) = 2500, 500 past the
	// lone timesync record at ct=2000/wall=1_000_000_500, timebase 125/3.
	wantWall := int64(1_000_000_500) + int64(500*125/3)
	if rec.WallTimeNs != wantWall {
		t.Errorf("wall time = %d, want %d", rec.WallTimeNs, wantWall)
	}
	if rec.LogLevel != model.LevelDefault {
		t.Errorf("log level = %v, want Default", rec.LogLevel)
	}
	if rec.SenderName != "/usr/lib/libexample.dylib" {
		t.Errorf("sender name = %q", rec.SenderName)
	}

	if p.Next() {
		t.Fatalf("expected exactly one record, got a second: %+v", p.Record())
	}
	if err := p.Err(); err != nil {
		t.Fatalf("Err() = %v", err)
	}
}

// TestParser_PrivacyRedaction covers the privacy scenario: a private
// scalar argument renders as <private> without an explicit public mod.
func TestParser_PrivacyRedaction(t *testing.T) {
	bootUuid := uuid.New()
	mainUuid := uuid.New()

	uuidtextDir := t.TempDir()
	buildUuidtextFile(t, uuidtextDir, mainUuid, "secret is %{private}d", "/usr/lib/libexample.dylib")

	timesyncDir := t.TempDir()
	buildTimesyncFile(t, timesyncDir, bootUuid, 1_000_000_000)

	argStream := []byte{0, 1, 0x10, 4, 9, 0, 0, 0} // descriptor kind 0x1: private scalar

	var entry []byte
	entry = append(entry, 0x04, 0x00)
	entry = binary.LittleEndian.AppendUint16(entry, 0)
	entry = binary.LittleEndian.AppendUint32(entry, 0x100)
	entry = binary.LittleEndian.AppendUint64(entry, 0x1)
	entry = binary.LittleEndian.AppendUint64(entry, 0)
	entry = binary.LittleEndian.AppendUint16(entry, uint16(len(argStream)))
	entry = append(entry, argStream...)

	var page []byte
	page = binary.LittleEndian.AppendUint64(page, 0x1111)
	page = binary.LittleEndian.AppendUint32(page, 0x2222)
	page = append(page, 0, 0)
	page = binary.LittleEndian.AppendUint16(page, 0)
	page = binary.LittleEndian.AppendUint16(page, uint16(len(entry)))
	page = binary.LittleEndian.AppendUint16(page, 0)
	page = binary.LittleEndian.AppendUint32(page, 0)
	page = binary.LittleEndian.AppendUint64(page, 0)
	page = append(page, entry...)

	const (
		tagHeader   = 0x1000
		tagFirehose = 0x1001
		tagCatalog  = 0x600B
	)
	var file []byte
	file = e2eAppendChunk(file, tagHeader, 0, e2eHeaderPayload(bootUuid))
	file = e2eAppendChunk(file, tagCatalog, 0, e2eCatalogPayload(mainUuid, 7))
	file = e2eAppendChunk(file, tagFirehose, 0, page)

	tracev3Path := filepath.Join(t.TempDir(), "trace.tracev3")
	if err := os.WriteFile(tracev3Path, file, 0o644); err != nil {
		t.Fatal(err)
	}

	p, err := Open(uuidtextDir, timesyncDir, tracev3Path, diag.NewReporter(nil, 16))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer p.Close()

	if !p.Next() {
		t.Fatalf("expected a record, Err()=%v", p.Err())
	}
	rec := p.Record()
	if rec.Message != "secret is <private>" {
		t.Errorf("message = %q, want redacted", rec.Message)
	}
}
