package scte35

import (
	"encoding/json"
	"fmt"
	"io"
)

// MarshalJSON renders the section as four groups: info_section, command,
// descriptors and, when the caller supplied a PID or PTS, packet_data.
func (sp *Splice) MarshalJSON() ([]byte, error) {
	descs := sp.Descriptors
	if descs == nil {
		descs = SpliceDescriptors{}
	}
	return json.Marshal(struct {
		InfoSection *InfoSection      `json:"info_section"`
		Command     SpliceCommand     `json:"command"`
		Descriptors SpliceDescriptors `json:"descriptors"`
		Packet      *PacketContext    `json:"packet_data,omitempty"`
		Warnings    []Warning         `json:"warnings,omitempty"`
	}{&sp.InfoSection, sp.Command, descs, sp.Packet, sp.Warnings})
}

// MarshalJSON renders the PID as hex and the PTS unchanged.
func (pc *PacketContext) MarshalJSON() ([]byte, error) {
	out := struct {
		PID string   `json:"pid,omitempty"`
		PTS *float64 `json:"pts,omitempty"`
	}{PTS: pc.PTS}
	if pc.PID != nil {
		out.PID = fmt.Sprintf("0x%x", *pc.PID)
	}
	return json.Marshal(out)
}

// String returns the section as compact JSON.
func (sp *Splice) String() string {
	b, err := json.Marshal(sp)
	if err != nil {
		return fmt.Sprintf("scte35: %v", err)
	}
	return string(b)
}

// Show writes the whole section as indented JSON.
func (sp *Splice) Show(w io.Writer) error {
	return show(w, sp)
}

// ShowInfoSection writes only the info section.
func (sp *Splice) ShowInfoSection(w io.Writer) error {
	return show(w, map[string]any{"info_section": &sp.InfoSection})
}

// ShowCommand writes only the splice command.
func (sp *Splice) ShowCommand(w io.Writer) error {
	return show(w, map[string]any{"command": sp.Command})
}

// ShowDescriptors writes only the descriptor list.
func (sp *Splice) ShowDescriptors(w io.Writer) error {
	descs := sp.Descriptors
	if descs == nil {
		descs = SpliceDescriptors{}
	}
	return show(w, map[string]any{"descriptors": descs})
}

func show(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	if err := enc.Encode(map[string]any{"SCTE35": v}); err != nil {
		return fmt.Errorf("scte35: show: %w", err)
	}
	return nil
}
