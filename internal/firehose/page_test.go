package firehose

import (
	"encoding/binary"
	"testing"

	"github.com/coffersTech/ulog/internal/diag"
)

// buildPage assembles a synthetic firehose page with one entry whose
// argument stream is under the caller's control, mirroring spec §8
// scenario 1's shape.
func buildPage(t *testing.T, entryBody func() []byte) []byte {
	t.Helper()
	body := entryBody()

	var page []byte
	page = binary.LittleEndian.AppendUint64(page, 0x1111) // proc_id_1
	page = binary.LittleEndian.AppendUint32(page, 0x2222) // proc_id_2
	page = append(page, 0)                                // ttl
	page = append(page, 0)                                // collapsed
	page = binary.LittleEndian.AppendUint16(page, 0)      // pad

	entryHeaderAndBody := buildEntry(0x04, 0x00, 0, 0x100, 0x1234, 1000, body)
	publicDataSize := uint16(len(entryHeaderAndBody))
	page = binary.LittleEndian.AppendUint16(page, publicDataSize)
	page = binary.LittleEndian.AppendUint16(page, 0) // private_data_virt_offset
	page = binary.LittleEndian.AppendUint32(page, 0) // pad
	page = binary.LittleEndian.AppendUint64(page, 0) // base_continuous_time
	page = append(page, entryHeaderAndBody...)
	return page
}

func buildEntry(activityType, logType byte, flags uint16, fmtLoc uint32, threadId, delta uint64, body []byte) []byte {
	var e []byte
	e = append(e, activityType, logType)
	e = binary.LittleEndian.AppendUint16(e, flags)
	e = binary.LittleEndian.AppendUint32(e, fmtLoc)
	e = binary.LittleEndian.AppendUint64(e, threadId)
	e = binary.LittleEndian.AppendUint64(e, delta)
	e = binary.LittleEndian.AppendUint16(e, uint16(len(body)))
	e = append(e, body...)
	return e
}

func buildArgStream(items [][2]any) []byte {
	var b []byte
	b = append(b, 0) // unknown
	b = append(b, byte(len(items)))
	for _, it := range items {
		descriptor := it[0].(byte)
		data := it[1].([]byte)
		b = append(b, descriptor, byte(len(data)))
		b = append(b, data...)
	}
	return b
}

func u32le(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}

func TestDecodePage_ScalarArgument(t *testing.T) {
	argStream := buildArgStream([][2]any{{byte(0x00), u32le(7)}})
	page := buildPage(t, func() []byte { return argStream })

	p, err := DecodePage(page, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(p.Entries) != 1 {
		t.Fatalf("entries = %d", len(p.Entries))
	}
	e := p.Entries[0]
	if e.ActivityType != ActivityTypeLog || e.ThreadId != 0x1234 {
		t.Fatalf("entry = %+v", e)
	}
	if e.ContinuousTime != 1000 {
		t.Fatalf("continuous time = %d", e.ContinuousTime)
	}
	if len(e.Args) != 1 || !e.Args[0].HasScalar || e.Args[0].Scalar != 7 {
		t.Fatalf("args = %+v", e.Args)
	}
}

func TestDecodePage_DataRefSubstitutesOversizePayload(t *testing.T) {
	flags := uint16(0x0100) // has_data_ref
	body := make([]byte, 2)
	binary.LittleEndian.PutUint16(body, 5) // data_ref_index
	page := buildPage(t, func() []byte { return body })
	// patch flags into the entry header in place (offset 34: activity
	// type + log type occupy [32,34), flags occupy [34,36))
	binary.LittleEndian.PutUint16(page[34:], flags)

	// The oversize blob is itself both the argument stream and the
	// region ref_offset/ref_size index into: a 0x2 (string-in-public)
	// descriptor's data is (ref_offset, ref_size), not the string
	// bytes directly, so the literal "payload" text is appended after
	// the stream header and referenced by offset.
	header := []byte{0, 1, 0x20, 4}
	strOffset := len(header) + 4
	ref := make([]byte, 4)
	binary.LittleEndian.PutUint16(ref, uint16(strOffset))
	binary.LittleEndian.PutUint16(ref[2:], uint16(len("payload")))
	oversizePayload := append(header, ref...)
	oversizePayload = append(oversizePayload, []byte("payload")...)
	lookup := func(p1 uint64, p2 uint32, idx uint16) ([]byte, bool) {
		if p1 == 0x1111 && p2 == 0x2222 && idx == 5 {
			return oversizePayload, true
		}
		return nil, false
	}

	p, err := DecodePage(page, lookup, diag.NewReporter(nil, 8))
	if err != nil {
		t.Fatal(err)
	}
	e := p.Entries[0]
	if !e.HasDataRef || e.DataRefIndex != 5 {
		t.Fatalf("entry = %+v", e)
	}
	if len(e.Args) != 1 || !e.Args[0].HasStr || e.Args[0].Str != "payload" {
		t.Fatalf("args = %+v", e.Args)
	}
}
