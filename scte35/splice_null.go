package scte35

import "encoding/json"

// SpliceNull is a no-op command used as a heartbeat.
type SpliceNull struct{}

func (cmd *SpliceNull) Type() uint32 { return SpliceNullType }

func (cmd *SpliceNull) Name() string { return "Splice Null" }

func (cmd *SpliceNull) decode(_ *bitReader) error { return nil }

// MarshalJSON renders the command with its name.
func (cmd *SpliceNull) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Name string `json:"name"`
		Type uint32 `json:"command_type"`
	}{cmd.Name(), cmd.Type()})
}
