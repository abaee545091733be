package scte35

import "encoding/json"

// BandwidthReservation reserves bandwidth in a multiplex. It has no fields.
type BandwidthReservation struct{}

func (cmd *BandwidthReservation) Type() uint32 { return BandwidthReservationType }

func (cmd *BandwidthReservation) Name() string { return "Bandwidth Reservation" }

func (cmd *BandwidthReservation) decode(_ *bitReader) error { return nil }

// MarshalJSON renders the command with its name.
func (cmd *BandwidthReservation) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Name string `json:"name"`
		Type uint32 `json:"command_type"`
	}{cmd.Name(), cmd.Type()})
}
