package tracev3

import (
	"github.com/coffersTech/ulog/internal/binutil"
	"github.com/google/uuid"
)

// StateDumpChunk is a pass-through record from a StateDump chunk
// (spec §4.4 lists it among the routed chunk tags; the core treats
// its payload opaquely beyond the fields needed to place it in the
// record stream — the biplist-encoded state body itself is out of
// scope the same way backtrace dictionaries are, spec §1).
type StateDumpChunk struct {
	ProcId1        uint64
	ProcId2        uint32
	ActivityId     uint64
	Uuid           uuid.UUID
	ContinuousTime uint64
	Title          string
	Data           []byte
}

func parseStateDump(data []byte) (StateDumpChunk, error) {
	c := binutil.NewCursor(data, TagStateDump)
	var sd StateDumpChunk
	var err error
	if sd.ProcId1, err = c.U64(); err != nil {
		return sd, err
	}
	if sd.ProcId2, err = c.U32(); err != nil {
		return sd, err
	}
	if sd.ActivityId, err = c.U64(); err != nil {
		return sd, err
	}
	if sd.Uuid, err = c.Uuid(); err != nil {
		return sd, err
	}
	if sd.ContinuousTime, err = c.U64(); err != nil {
		return sd, err
	}
	titleLen, err := c.U32()
	if err != nil {
		return sd, err
	}
	if sd.Title, err = c.CString(int(titleLen)); err != nil {
		return sd, err
	}
	dataLen, err := c.U32()
	if err != nil {
		return sd, err
	}
	if sd.Data, err = c.Bytes(int(dataLen)); err != nil {
		return sd, err
	}
	return sd, nil
}

// SimpledumpChunk is a pass-through record from a Simpledump chunk —
// a pre-formatted message with no argument stream to interpolate
// (spec §4.4).
type SimpledumpChunk struct {
	ProcId1        uint64
	ProcId2        uint32
	ContinuousTime uint64
	ThreadId       uint64
	Subsystem      string
	Message        string
}

func parseSimpledump(data []byte) (SimpledumpChunk, error) {
	c := binutil.NewCursor(data, TagSimpledump)
	var sd SimpledumpChunk
	var err error
	if sd.ProcId1, err = c.U64(); err != nil {
		return sd, err
	}
	if sd.ProcId2, err = c.U32(); err != nil {
		return sd, err
	}
	if sd.ContinuousTime, err = c.U64(); err != nil {
		return sd, err
	}
	if sd.ThreadId, err = c.U64(); err != nil {
		return sd, err
	}
	subsystemLen, err := c.U32()
	if err != nil {
		return sd, err
	}
	if sd.Subsystem, err = c.CString(int(subsystemLen)); err != nil {
		return sd, err
	}
	messageLen, err := c.U32()
	if err != nil {
		return sd, err
	}
	if sd.Message, err = c.CString(int(messageLen)); err != nil {
		return sd, err
	}
	return sd, nil
}
