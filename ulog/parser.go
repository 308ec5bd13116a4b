// Package ulog is the public entry point: it wires the uuidtext/dsc
// catalog, the timesync store, and one decoded tracev3 file together
// into the single-threaded, pull-based Parser the core specifies
// (spec §5). Nothing below this package knows about any of the
// others' concerns — ulog is where resolve_fmt, to_wall_ns, and
// format interpolation finally meet the decoded firehose entry.
package ulog

import (
	"fmt"
	"os"

	"github.com/coffersTech/ulog/internal/catalog"
	"github.com/coffersTech/ulog/internal/diag"
	"github.com/coffersTech/ulog/internal/firehose"
	"github.com/coffersTech/ulog/internal/format"
	"github.com/coffersTech/ulog/internal/model"
	"github.com/coffersTech/ulog/internal/timesync"
	"github.com/coffersTech/ulog/internal/tracev3"
	"github.com/google/uuid"
)

// Parser drives one tracev3 file at a time and yields LogRecords via
// a pull-based iterator (spec §5): Next advances, Record returns the
// value Next just produced, Err reports whether iteration stopped
// because of a fatal error versus simple exhaustion.
type Parser struct {
	catalog  *catalog.Catalog
	timesync *timesync.Store
	file     *tracev3.File
	reporter *diag.Reporter

	pageIdx, entryIdx    int
	stateIdx, simpleIdx  int
	stage                int

	cur model.LogRecord
	err error
}

const (
	stageFirehose = iota
	stageStateDump
	stageSimpledump
	stageDone
)

// Open loads the uuidtext/dsc catalog at uuidtextPath, the timesync
// store at timesyncPath, and fully decodes the single tracev3 file at
// tracev3Path (spec §6 external interfaces). reporter may be nil.
func Open(uuidtextPath, timesyncPath, tracev3Path string, reporter *diag.Reporter) (*Parser, error) {
	cat, err := catalog.Load(uuidtextPath)
	if err != nil {
		return nil, fmt.Errorf("ulog: loading catalog: %w", err)
	}
	ts, err := timesync.Load(timesyncPath)
	if err != nil {
		return nil, fmt.Errorf("ulog: loading timesync: %w", err)
	}
	data, err := os.ReadFile(tracev3Path)
	if err != nil {
		return nil, fmt.Errorf("ulog: reading tracev3 file: %w", err)
	}
	file, err := tracev3.DecodeFile(data, reporter)
	if err != nil {
		return nil, fmt.Errorf("ulog: decoding tracev3 file: %w", err)
	}
	return &Parser{catalog: cat, timesync: ts, file: file, reporter: reporter}, nil
}

// Next advances to the next record. It returns false once every
// firehose entry, state dump, and simple dump in the file has been
// visited (spec §5: "the caller may stop pulling at any time").
func (p *Parser) Next() bool {
	for {
		switch p.stage {
		case stageFirehose:
			if p.pageIdx >= len(p.file.Pages) {
				p.stage = stageStateDump
				continue
			}
			page := p.file.Pages[p.pageIdx]
			if p.entryIdx >= len(page.Page.Entries) {
				p.pageIdx++
				p.entryIdx = 0
				continue
			}
			e := page.Page.Entries[p.entryIdx]
			p.entryIdx++
			p.cur = p.buildFirehoseRecord(page, e)
			return true

		case stageStateDump:
			if p.stateIdx >= len(p.file.StateDumps) {
				p.stage = stageSimpledump
				continue
			}
			sd := p.file.StateDumps[p.stateIdx]
			p.stateIdx++
			p.cur = p.buildStateDumpRecord(sd)
			return true

		case stageSimpledump:
			if p.simpleIdx >= len(p.file.Simpledumps) {
				p.stage = stageDone
				continue
			}
			sd := p.file.Simpledumps[p.simpleIdx]
			p.simpleIdx++
			p.cur = p.buildSimpledumpRecord(sd)
			return true

		default:
			return false
		}
	}
}

// Record returns the LogRecord the most recent Next call produced.
func (p *Parser) Record() model.LogRecord { return p.cur }

// Err reports a fatal iteration error, if any. Recoverable per-entry
// problems never set this — they are reported through the Reporter
// passed to Open instead (spec §7).
func (p *Parser) Err() error { return p.err }

// Close releases resources held by the Parser. The current
// implementation holds no file handles past Open, so this is a no-op
// kept for interface symmetry with callers that defer it.
func (p *Parser) Close() error { return nil }

func (p *Parser) buildFirehoseRecord(page tracev3.Page, e *firehose.Entry) model.LogRecord {
	wallNs, err := p.timesync.ToWallNS(p.file.Context.BootUuid, e.ContinuousTime)
	if err != nil {
		p.reporter.Report(0, tracev3.TagFirehose, err)
	}

	pi, _ := page.Catalog.ProcessInfoFor(page.Page.ProcId1, page.Page.ProcId2)
	senderUuid, viaDsc := p.resolveSenderUuid(page.Catalog, pi, e)

	resolved, err := p.catalog.ResolveFmt(senderUuid, uint64(e.FormatLoc), viaDsc)
	if err != nil {
		p.reporter.Report(0, tracev3.TagFirehose, err)
	}
	message, err := format.Interpolate(resolved.Format, e.Args)
	if err != nil {
		p.reporter.Report(0, tracev3.TagFirehose, err)
	}

	procName, _ := p.catalog.LibraryPath(mainUuid(page.Catalog, pi))

	rec := model.LogRecord{
		WallTimeNs: wallNs,
		ThreadId:   e.ThreadId,
		LogLevel:   logLevelFor(e),
		ActivityId: e.CurrentAid,
		Pid:        pi.Pid,
		Euid:       pi.Euid,
		ProcName:   procName,
		SenderName: resolved.LibraryPath,
		Message:    message,
		Backtrace:  e.Backtrace,
	}

	if e.HasSubsystem {
		if sub, ok := pi.Subsystems[e.SubsystemId]; ok {
			rec.Subsystem = sub.Subsystem
			rec.Category = sub.Category
		}
	}
	if e.HasSignpostName {
		name, err := p.catalog.ResolveFmt(senderUuid, uint64(e.SignpostNameLocation), viaDsc)
		if err == nil {
			rec.SignpostName = name.Format
		}
		rec.SignpostType = signpostTypeFor(e.LogType)
	}
	return rec
}

// resolveSenderUuid picks the sender's uuidtext/dsc identity per the
// fmt_lookup_method sub-field of flags (spec §4.6). The distinction
// between main_plugin (0xa) and main_exe (0x2) is an open question
// this spec tells implementations not to guess at (spec §9); both
// resolve through the catalog's main uuid here, preserving the raw
// flags value on the Entry for any caller that needs to tell them
// apart later.
func (p *Parser) resolveSenderUuid(snap *tracev3.CatalogSnapshot, pi tracev3.ProcessInfo, e *firehose.Entry) (uuid.UUID, bool) {
	switch e.FormatLookup() {
	case firehose.FormatLookupSharedCache:
		if id, ok := snap.FileUuid(pi.DscUuidIndex); ok {
			return id, true
		}
	case firehose.FormatLookupUuidRelative:
		if id, ok := snap.FileUuid(pi.MainUuidIndex); ok {
			return id, false
		}
	default: // main_exe (0x2), main_plugin (0xa), absolute (0xc)
		if id, ok := snap.FileUuid(pi.MainUuidIndex); ok {
			return id, false
		}
	}
	return uuid.Nil, false
}

func mainUuid(snap *tracev3.CatalogSnapshot, pi tracev3.ProcessInfo) uuid.UUID {
	id, _ := snap.FileUuid(pi.MainUuidIndex)
	return id
}

func logLevelFor(e *firehose.Entry) model.LogLevel {
	switch e.ActivityType {
	case firehose.ActivityTypeActivity:
		return model.LevelActivity
	case firehose.ActivityTypeLoss:
		return model.LevelLoss
	case firehose.ActivityTypeSignpost:
		return model.LevelSignpost
	default:
		switch e.LogType {
		case firehose.LogTypeInfo:
			return model.LevelInfo
		case firehose.LogTypeDebug:
			return model.LevelDebug
		case firehose.LogTypeError:
			return model.LevelError
		case firehose.LogTypeFault:
			return model.LevelFault
		default:
			return model.LevelDefault
		}
	}
}

func signpostTypeFor(logType byte) model.SignpostType {
	switch logType {
	case firehose.SignpostTypeBegin:
		return model.SignpostBegin
	case firehose.SignpostTypeEnd:
		return model.SignpostEnd
	default:
		return model.SignpostEvent
	}
}

func (p *Parser) buildStateDumpRecord(sd tracev3.StateDumpChunk) model.LogRecord {
	wallNs, err := p.timesync.ToWallNS(p.file.Context.BootUuid, sd.ContinuousTime)
	if err != nil {
		p.reporter.Report(0, tracev3.TagStateDump, err)
	}
	return model.LogRecord{
		WallTimeNs: wallNs,
		LogLevel:   model.LevelStatedump,
		ActivityId: sd.ActivityId,
		Message:    sd.Title,
	}
}

func (p *Parser) buildSimpledumpRecord(sd tracev3.SimpledumpChunk) model.LogRecord {
	wallNs, err := p.timesync.ToWallNS(p.file.Context.BootUuid, sd.ContinuousTime)
	if err != nil {
		p.reporter.Report(0, tracev3.TagSimpledump, err)
	}
	return model.LogRecord{
		WallTimeNs: wallNs,
		ThreadId:   sd.ThreadId,
		LogLevel:   model.LevelSimpledump,
		Subsystem:  sd.Subsystem,
		Message:    sd.Message,
	}
}
