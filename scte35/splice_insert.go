package scte35

import "encoding/json"

// SpliceInsert signals a splice point in the stream.
type SpliceInsert struct {
	SpliceEventID              uint32                  `json:"splice_event_id"`
	SpliceEventCancelIndicator bool                    `json:"splice_event_cancel_indicator"`
	OutOfNetworkIndicator      bool                    `json:"out_of_network_indicator"`
	ProgramSpliceFlag          bool                    `json:"program_splice_flag"`
	DurationFlag               bool                    `json:"duration_flag"`
	SpliceImmediateFlag        bool                    `json:"splice_immediate_flag"`
	SpliceTime                 *SpliceTime             `json:"splice_time,omitempty"`
	Components                 []SpliceInsertComponent `json:"components,omitempty"`
	BreakDuration              *BreakDuration          `json:"break_duration,omitempty"`
	UniqueProgramID            uint32                  `json:"unique_program_id"`
	AvailNum                   uint32                  `json:"avail_num"`
	AvailsExpected             uint32                  `json:"avails_expected"`
}

// SpliceInsertComponent is one elementary stream of a component splice.
// SpliceTime is nil for immediate splices.
type SpliceInsertComponent struct {
	ComponentTag uint32      `json:"component_tag"`
	SpliceTime   *SpliceTime `json:"splice_time,omitempty"`
}

func (cmd *SpliceInsert) Type() uint32 { return SpliceInsertType }

func (cmd *SpliceInsert) Name() string { return "Splice Insert" }

func (cmd *SpliceInsert) decode(r *bitReader) error {
	cmd.SpliceEventID = r.readUint32(32)
	cmd.SpliceEventCancelIndicator = r.readBit()
	r.skip(7) // reserved

	if cmd.SpliceEventCancelIndicator {
		return nil
	}

	cmd.OutOfNetworkIndicator = r.readBit()
	cmd.ProgramSpliceFlag = r.readBit()
	cmd.DurationFlag = r.readBit()
	cmd.SpliceImmediateFlag = r.readBit()
	r.skip(4) // reserved

	if cmd.ProgramSpliceFlag {
		if !cmd.SpliceImmediateFlag {
			cmd.SpliceTime = &SpliceTime{}
			cmd.SpliceTime.decode(r)
		}
	} else {
		componentCount := int(r.readUint32(8))
		for i := 0; i < componentCount && !r.overflow; i++ {
			c := SpliceInsertComponent{ComponentTag: r.readUint32(8)}
			if !cmd.SpliceImmediateFlag {
				c.SpliceTime = &SpliceTime{}
				c.SpliceTime.decode(r)
			}
			cmd.Components = append(cmd.Components, c)
		}
	}

	if cmd.DurationFlag {
		cmd.BreakDuration = &BreakDuration{}
		cmd.BreakDuration.decode(r)
	}
	cmd.UniqueProgramID = r.readUint32(16)
	cmd.AvailNum = r.readUint32(8)
	cmd.AvailsExpected = r.readUint32(8)
	return nil
}

// MarshalJSON renders the command with its name.
func (cmd *SpliceInsert) MarshalJSON() ([]byte, error) {
	type fields SpliceInsert
	return json.Marshal(struct {
		Name string `json:"name"`
		Type uint32 `json:"command_type"`
		*fields
	}{cmd.Name(), cmd.Type(), (*fields)(cmd)})
}
