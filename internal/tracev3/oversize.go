package tracev3

import "github.com/coffersTech/ulog/internal/binutil"

// parseOversize decodes one Oversize chunk's payload into the key
// firehose.OversizeLookup is queried with, plus its raw argument-
// stream bytes (spec §4.6 "the payload is carried by a separate
// Oversize chunk keyed by (proc_id_1, proc_id_2, data_ref_index)";
// spec §9 DESIGN NOTES, "Buffer Oversize chunks in a keyed map ...
// for the lifetime of the tracev3 file, consumed lazily when
// referenced").
func parseOversize(data []byte) (oversizeKey, []byte, error) {
	c := binutil.NewCursor(data, TagOversize)
	procId1, err := c.U64()
	if err != nil {
		return oversizeKey{}, nil, err
	}
	procId2, err := c.U32()
	if err != nil {
		return oversizeKey{}, nil, err
	}
	dataRefIndex, err := c.U16()
	if err != nil {
		return oversizeKey{}, nil, err
	}
	if _, err := c.U16(); err != nil { // padding
		return oversizeKey{}, nil, err
	}
	payload, err := c.Bytes(c.Remaining())
	if err != nil {
		return oversizeKey{}, nil, err
	}
	return oversizeKey{procId1: procId1, procId2: procId2, dataRefIndex: dataRefIndex}, payload, nil
}
