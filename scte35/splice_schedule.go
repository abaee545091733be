package scte35

import "encoding/json"

// SpliceSchedule announces splice events ahead of time in UTC.
type SpliceSchedule struct {
	Events []ScheduledEvent `json:"events"`
}

// ScheduledEvent is one splice event of a splice_schedule. UTCSpliceTime
// is set for program splices; component splices carry a time per
// component instead.
type ScheduledEvent struct {
	SpliceEventID              uint32               `json:"splice_event_id"`
	SpliceEventCancelIndicator bool                 `json:"splice_event_cancel_indicator"`
	OutOfNetworkIndicator      bool                 `json:"out_of_network_indicator"`
	ProgramSpliceFlag          bool                 `json:"program_splice_flag"`
	DurationFlag               bool                 `json:"duration_flag"`
	UTCSpliceTime              *uint32              `json:"utc_splice_time,omitempty"`
	Components                 []ScheduledComponent `json:"components,omitempty"`
	BreakDuration              *BreakDuration       `json:"break_duration,omitempty"`
	UniqueProgramID            uint32               `json:"unique_program_id"`
	AvailNum                   uint32               `json:"avail_num"`
	AvailsExpected             uint32               `json:"avails_expected"`
}

// ScheduledComponent is the per-component splice time of a component
// splice, in GPS seconds.
type ScheduledComponent struct {
	ComponentTag  uint32 `json:"component_tag"`
	UTCSpliceTime uint32 `json:"utc_splice_time"`
}

func (cmd *SpliceSchedule) Type() uint32 { return SpliceScheduleType }

func (cmd *SpliceSchedule) Name() string { return "Splice Schedule" }

func (cmd *SpliceSchedule) decode(r *bitReader) error {
	spliceCount := int(r.readUint32(8))
	for i := 0; i < spliceCount && !r.overflow; i++ {
		var ev ScheduledEvent
		ev.decode(r)
		cmd.Events = append(cmd.Events, ev)
	}
	return nil
}

func (ev *ScheduledEvent) decode(r *bitReader) {
	ev.SpliceEventID = r.readUint32(32)
	ev.SpliceEventCancelIndicator = r.readBit()
	r.skip(7) // reserved
	if ev.SpliceEventCancelIndicator {
		return
	}

	ev.OutOfNetworkIndicator = r.readBit()
	ev.ProgramSpliceFlag = r.readBit()
	ev.DurationFlag = r.readBit()
	r.skip(5) // reserved

	if ev.ProgramSpliceFlag {
		t := r.readUint32(32)
		ev.UTCSpliceTime = &t
	} else {
		componentCount := int(r.readUint32(8))
		for i := 0; i < componentCount && !r.overflow; i++ {
			ev.Components = append(ev.Components, ScheduledComponent{
				ComponentTag:  r.readUint32(8),
				UTCSpliceTime: r.readUint32(32),
			})
		}
	}

	if ev.DurationFlag {
		ev.BreakDuration = &BreakDuration{}
		ev.BreakDuration.decode(r)
	}
	ev.UniqueProgramID = r.readUint32(16)
	ev.AvailNum = r.readUint32(8)
	ev.AvailsExpected = r.readUint32(8)
}

// MarshalJSON renders the command with its name.
func (cmd *SpliceSchedule) MarshalJSON() ([]byte, error) {
	type fields SpliceSchedule
	return json.Marshal(struct {
		Name string `json:"name"`
		Type uint32 `json:"command_type"`
		*fields
	}{cmd.Name(), cmd.Type(), (*fields)(cmd)})
}
