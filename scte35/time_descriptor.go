package scte35

import (
	"encoding/json"
	"time"
)

// TimeDescriptor carries wall-clock time as TAI seconds and nanoseconds
// plus the current UTC offset.
type TimeDescriptor struct {
	descriptorHeader
	TAISeconds     uint64 `json:"tai_seconds"`
	TAINanoseconds uint32 `json:"tai_ns"`
	UTCOffset      uint32 `json:"utc_offset"`
}

func (td *TimeDescriptor) Tag() uint32 { return TimeDescriptorTag }

func (td *TimeDescriptor) Name() string { return "Time Descriptor" }

// UTC converts the TAI time to UTC using the carried offset.
func (td *TimeDescriptor) UTC() time.Time {
	secs := int64(td.TAISeconds) - int64(td.UTCOffset)
	return time.Unix(secs, int64(td.TAINanoseconds)).UTC()
}

func (td *TimeDescriptor) decode(r *bitReader) error {
	td.decodeHeader(r)
	td.TAISeconds = r.readUint64(48)
	td.TAINanoseconds = r.readUint32(32)
	td.UTCOffset = r.readUint32(16)
	return nil
}

func (td *TimeDescriptor) MarshalJSON() ([]byte, error) {
	type fields TimeDescriptor
	return json.Marshal(struct {
		Name string `json:"name"`
		Tag  uint32 `json:"tag"`
		*fields
	}{td.Name(), td.Tag(), (*fields)(td)})
}
