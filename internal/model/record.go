// Package model defines the core's single output type, LogRecord
// (spec §3, §4.8). Nothing downstream of this package interprets raw
// tracev3 bytes; it only ever sees already-resolved, already-formatted
// values.
package model

import "github.com/google/uuid"

// LogLevel classifies a LogRecord the way spec §3/§6 enumerates it.
type LogLevel int

const (
	LevelDefault LogLevel = iota
	LevelInfo
	LevelDebug
	LevelError
	LevelFault
	LevelActivity
	LevelSignpost
	LevelLoss
	LevelSimpledump
	LevelStatedump
)

func (l LogLevel) String() string {
	switch l {
	case LevelInfo:
		return "Info"
	case LevelDebug:
		return "Debug"
	case LevelError:
		return "Error"
	case LevelFault:
		return "Fault"
	case LevelActivity:
		return "Activity"
	case LevelSignpost:
		return "Signpost"
	case LevelLoss:
		return "Loss"
	case LevelSimpledump:
		return "Simpledump"
	case LevelStatedump:
		return "Statedump"
	default:
		return "Default"
	}
}

// SignpostType distinguishes a signpost's position in its begin/end
// pairing (spec §6 log_type values 0x80/0x81/0x82).
type SignpostType int

const (
	SignpostNone SignpostType = iota
	SignpostEvent
	SignpostBegin
	SignpostEnd
)

// BacktraceFrame is one (uuid, offset) pair from a decoded backtrace
// (spec §3 LogRecord.backtrace).
type BacktraceFrame struct {
	Uuid   uuid.UUID
	Offset uint64
}

// LogRecord is the core's sole output contract (spec §3, §4.8, §6).
type LogRecord struct {
	WallTimeNs       int64
	ThreadId         uint64
	LogLevel         LogLevel
	ActivityId       uint64
	ParentActivityId uint64
	TraceId          uint64
	Pid              uint32
	Euid             uint32
	ProcName         string
	SenderName       string
	Subsystem        string
	Category         string
	Message          string
	SignpostName     string
	SignpostType     SignpostType
	Backtrace        []BacktraceFrame
}
