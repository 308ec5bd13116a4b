// Package firehose decodes one firehose page's tracepoint stream: the
// page header, each entry's 24-byte tracepoint header plus its
// flag-bitmap-driven optional fields, and the typed argument stream
// (spec §4.6). It never resolves a format string or assembles a
// LogRecord — that is the job of the orchestrator (package ulog),
// which owns the catalog and timesync lookups this package has no
// business depending on.
package firehose

import (
	"github.com/coffersTech/ulog/internal/format"
	"github.com/coffersTech/ulog/internal/model"
)

// Activity types (spec §6).
const (
	ActivityTypeActivity = 0x02
	ActivityTypeTrace    = 0x03
	ActivityTypeLog      = 0x04
	ActivityTypeSignpost = 0x06
	ActivityTypeLoss     = 0x07
)

// Log type values (spec §6).
const (
	LogTypeDefault       = 0x00
	LogTypeInfo          = 0x01
	LogTypeDebug         = 0x02
	LogTypeError         = 0x10
	LogTypeFault         = 0x11
	SignpostTypeEvent    = 0x80
	SignpostTypeBegin    = 0x81
	SignpostTypeEnd      = 0x82
)

// flags bit positions (spec §4.6).
const (
	flagHasCurrentAid   = 0x0001
	flagFmtLookupMask   = 0x000e
	flagHasSubsystem    = 0x0010
	flagHasTtl          = 0x0020
	flagHasDataRef      = 0x0100
	flagHasSignpostName = 0x0200
	flagHasPrivateData  = 0x0400
	flagHasContextData  = 0x1000
)

// FormatLookup is the fmt_lookup_method sub-field of flags (spec
// §4.6, bits 0x000e).
type FormatLookup uint16

const (
	FormatLookupMainExe      FormatLookup = 0x2
	FormatLookupSharedCache  FormatLookup = 0x4
	FormatLookupUuidRelative FormatLookup = 0x8
	FormatLookupMainPlugin   FormatLookup = 0xa
	FormatLookupAbsolute     FormatLookup = 0xc
)

// Entry is one decoded firehose tracepoint (spec §3 FirehoseEntry).
// Argument bytes have already been dereferenced against the page's
// public/private regions (or a substituted Oversize buffer) — Args is
// ready to hand to internal/format.
type Entry struct {
	ActivityType byte
	LogType      byte
	Flags        uint16
	FormatLoc    uint32
	ThreadId     uint64

	// ContinuousTime is base_continuous_time + continuous_time_delta,
	// already widened to an absolute value (spec §4.6).
	ContinuousTime uint64

	HasCurrentAid bool
	CurrentAid    uint64

	HasSubsystem bool
	SubsystemId  uint16

	HasTtl bool
	Ttl    uint8

	HasDataRef   bool
	DataRefIndex uint16

	HasSignpostName      bool
	SignpostNameLocation uint32
	SignpostId           uint64

	HasPrivateData bool
	HasContextData bool

	Args      []format.Argument
	Backtrace []model.BacktraceFrame
}

// FormatLookup extracts the fmt_lookup_method sub-field.
func (e *Entry) FormatLookup() FormatLookup {
	return FormatLookup(e.Flags & flagFmtLookupMask)
}
