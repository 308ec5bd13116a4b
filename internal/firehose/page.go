package firehose

import (
	"github.com/coffersTech/ulog/internal/binutil"
	"github.com/coffersTech/ulog/internal/diag"
	"github.com/coffersTech/ulog/internal/format"
	"github.com/coffersTech/ulog/internal/model"
	"github.com/coffersTech/ulog/internal/plist"
)

const firehoseChunkTag = 0x1001

// Page is one decoded FirehosePage (spec §3, §4.6).
type Page struct {
	ProcId1               uint64
	ProcId2               uint32
	Ttl                   uint8
	Collapsed             uint8
	PublicDataSize        uint16
	PrivateDataVirtOffset uint16
	BaseContinuousTime    uint64
	Entries               []*Entry

	raw []byte // the whole page buffer; ref_offset fields index into this
}

// OversizeLookup resolves an Oversize back-reference keyed by
// (proc_id_1, proc_id_2, data_ref_index) (spec §9 DESIGN NOTES).
type OversizeLookup func(procId1 uint64, procId2 uint32, dataRefIndex uint16) ([]byte, bool)

// DecodePage parses one firehose page's 32-byte header followed by
// its packed entry stream (spec §4.6). Decoding advances from entry to
// entry by each entry's declared body size, and a failed read inside
// an entry's body keeps the fields decoded so far (spec §7). An entry
// whose header or declared body runs past the buffer is reported
// through reporter and ends the page: the entries before it are kept,
// nothing after it is decoded.
func DecodePage(buf []byte, oversize OversizeLookup, reporter *diag.Reporter) (*Page, error) {
	c := binutil.NewCursor(buf, firehoseChunkTag)
	procId1, err := c.U64()
	if err != nil {
		return nil, err
	}
	procId2, err := c.U32()
	if err != nil {
		return nil, err
	}
	ttl, err := c.U8()
	if err != nil {
		return nil, err
	}
	collapsed, err := c.U8()
	if err != nil {
		return nil, err
	}
	if _, err := c.U16(); err != nil { // padding
		return nil, err
	}
	publicDataSize, err := c.U16()
	if err != nil {
		return nil, err
	}
	privateOff, err := c.U16()
	if err != nil {
		return nil, err
	}
	if _, err := c.U32(); err != nil { // padding
		return nil, err
	}
	baseCt, err := c.U64()
	if err != nil {
		return nil, err
	}

	p := &Page{
		ProcId1:               procId1,
		ProcId2:               procId2,
		Ttl:                   ttl,
		Collapsed:             collapsed,
		PublicDataSize:        publicDataSize,
		PrivateDataVirtOffset: privateOff,
		BaseContinuousTime:    baseCt,
		raw:                   buf,
	}

	off := 32
	end := 32 + int(publicDataSize)
	if end > len(buf) {
		end = len(buf)
	}
	for off < end {
		e, next, err := decodeEntry(p, off, oversize)
		if err != nil {
			reporter.Report(int64(off), firehoseChunkTag, err)
			break
		}
		p.Entries = append(p.Entries, e)
		off = next
	}
	return p, nil
}

// decodeEntry parses the 24-byte tracepoint header, a 2-byte body
// length, and that many body bytes carrying the optional fields and
// argument stream (spec §4.6). It returns the byte offset one past
// this entry so the caller can advance even when body-level decoding
// only partially succeeds.
func decodeEntry(page *Page, off int, oversize OversizeLookup) (*Entry, int, error) {
	c := binutil.NewCursor(page.raw, firehoseChunkTag)
	c.Off = off

	activityType, err := c.U8()
	if err != nil {
		return nil, off, err
	}
	logType, err := c.U8()
	if err != nil {
		return nil, off, err
	}
	flags, err := c.U16()
	if err != nil {
		return nil, off, err
	}
	fmtLoc, err := c.U32()
	if err != nil {
		return nil, off, err
	}
	threadId, err := c.U64()
	if err != nil {
		return nil, off, err
	}
	delta, err := c.U64()
	if err != nil {
		return nil, off, err
	}
	dataLen, err := c.U16()
	if err != nil {
		return nil, off, err
	}
	body, err := c.Bytes(int(dataLen))
	if err != nil {
		return nil, off, err
	}
	next := off + 24 + 2 + int(dataLen)

	e := &Entry{
		ActivityType:   activityType,
		LogType:        logType,
		Flags:          flags,
		FormatLoc:      fmtLoc,
		ThreadId:       threadId,
		ContinuousTime: page.BaseContinuousTime + delta,
	}

	bc := binutil.NewCursor(body, firehoseChunkTag)
	if flags&flagHasCurrentAid != 0 {
		v, err := bc.U64()
		if err != nil {
			return e, next, nil
		}
		bc.Skip(8) // sentinel
		e.HasCurrentAid, e.CurrentAid = true, v
	}
	if flags&flagHasSubsystem != 0 {
		v, err := bc.U16()
		if err != nil {
			return e, next, nil
		}
		e.HasSubsystem, e.SubsystemId = true, v
	}
	if flags&flagHasTtl != 0 {
		v, err := bc.U8()
		if err != nil {
			return e, next, nil
		}
		e.HasTtl, e.Ttl = true, v
	}
	if flags&flagHasDataRef != 0 {
		v, err := bc.U16()
		if err != nil {
			return e, next, nil
		}
		e.HasDataRef, e.DataRefIndex = true, v
	}
	if flags&flagHasSignpostName != 0 {
		v, err := bc.U32()
		if err != nil {
			return e, next, nil
		}
		e.HasSignpostName, e.SignpostNameLocation = true, v
		if activityType == ActivityTypeSignpost {
			if id, err := bc.U64(); err == nil {
				e.SignpostId = id
			}
		}
	}
	if flags&flagHasPrivateData != 0 {
		e.HasPrivateData = true
	}
	if flags&flagHasContextData != 0 {
		e.HasContextData = true
		if n, err := bc.U16(); err == nil {
			bc.Skip(int(n))
		}
	}

	remaining := body[bc.Off:]
	if flags&flagHasDataRef != 0 {
		if oversize != nil {
			if raw, ok := oversize(page.ProcId1, page.ProcId2, e.DataRefIndex); ok {
				e.Args, e.Backtrace = parseArgumentStream(raw, raw)
			}
		}
		// A dangling data_ref with no matching Oversize chunk is a
		// recoverable miss (spec §9): the entry still emits with no
		// arguments rather than aborting the page.
	} else {
		e.Args, e.Backtrace = parseArgumentStream(remaining, page.raw)
	}

	return e, next, nil
}

// parseArgumentStream reads the 1-byte unknown + 1-byte argument_count
// header followed by that many {descriptor, size, data} items (spec
// §4.6). region is the buffer ref_offset/ref_size pairs index into:
// the enclosing page for inline entries, or the Oversize payload
// itself for has_data_ref entries.
func parseArgumentStream(stream, region []byte) ([]format.Argument, []model.BacktraceFrame) {
	if len(stream) < 2 {
		return nil, nil
	}
	c := binutil.NewCursor(stream, firehoseChunkTag)
	if _, err := c.U8(); err != nil { // unknown
		return nil, nil
	}
	count, err := c.U8()
	if err != nil {
		return nil, nil
	}

	var args []format.Argument
	var backtrace []model.BacktraceFrame
	for i := 0; i < int(count); i++ {
		descriptor, err := c.U8()
		if err != nil {
			break
		}
		size, err := c.U8()
		if err != nil {
			break
		}
		data, err := c.Bytes(int(size))
		if err != nil {
			break
		}

		switch descriptor >> 4 {
		case 0x0:
			args = append(args, format.NewScalar(leToU64(data), len(data), false))
		case 0x1:
			args = append(args, format.NewPrivateScalar(leToU64(data), len(data), false))
		case 0x2:
			off, sz := refPair(data)
			args = append(args, format.NewString(cStringAt(region, off, sz), false))
		case 0x3:
			off, sz := refPair(data)
			args = append(args, format.NewString(cStringAt(region, off, sz), true))
		case 0x4:
			off, sz := refPair(data)
			args = append(args, format.NewObject(safeSlice(region, off, sz), false))
		case 0x5:
			off, sz := refPair(data)
			blob := safeSlice(region, off, sz)
			if tree, err := plist.Decode(blob); err == nil {
				backtrace = append(backtrace, backtraceFramesFrom(tree)...)
			}
			// plist.Decode is an opaque external collaborator (spec §1)
			// and always errors here; a failed backtrace decode simply
			// stays empty rather than failing the entry.
		case 0x8:
			args = append(args, format.NewSensitive(data))
		default:
			// BadArgumentDescriptor is recoverable at the argument level:
			// skip it and keep decoding the remaining arguments.
			continue
		}
	}
	return args, backtrace
}

func backtraceFramesFrom(tree plist.Tree) []model.BacktraceFrame {
	return nil // plist.Decode never succeeds in this core; see its doc comment.
}

func refPair(data []byte) (offset, size int) {
	if len(data) < 4 {
		return 0, 0
	}
	return int(data[0]) | int(data[1])<<8, int(data[2]) | int(data[3])<<8
}

func safeSlice(buf []byte, offset, size int) []byte {
	if offset < 0 || offset > len(buf) {
		return nil
	}
	end := offset + size
	if end > len(buf) || end < offset {
		end = len(buf)
	}
	return buf[offset:end]
}

func cStringAt(buf []byte, offset, size int) string {
	b := safeSlice(buf, offset, size)
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

func leToU64(b []byte) uint64 {
	var v uint64
	for i, c := range b {
		if i >= 8 {
			break
		}
		v |= uint64(c) << (8 * i)
	}
	return v
}
