package scte35

import "encoding/json"

// TimeSignal provides a time-synchronized data delivery mechanism.
type TimeSignal struct {
	SpliceTime SpliceTime `json:"splice_time"`
}

func (cmd *TimeSignal) Type() uint32 { return TimeSignalType }

func (cmd *TimeSignal) Name() string { return "Time Signal" }

func (cmd *TimeSignal) decode(r *bitReader) error {
	cmd.SpliceTime.decode(r)
	return nil
}

// MarshalJSON renders the command with its name.
func (cmd *TimeSignal) MarshalJSON() ([]byte, error) {
	type fields TimeSignal
	return json.Marshal(struct {
		Name string `json:"name"`
		Type uint32 `json:"command_type"`
		*fields
	}{cmd.Name(), cmd.Type(), (*fields)(cmd)})
}
