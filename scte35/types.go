package scte35

import (
	"encoding/hex"
	"encoding/json"
	"strconv"
)

// Ticks is a value on the 90 kHz MPEG system clock.
type Ticks uint64

// Seconds converts the value to seconds.
func (t Ticks) Seconds() float64 {
	return float64(t) / 90000.0
}

// MarshalJSON renders the value in seconds with microsecond precision.
func (t Ticks) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatFloat(t.Seconds(), 'f', 6, 64)), nil
}

// HexBytes is an opaque byte field rendered as a 0x-prefixed hex string.
type HexBytes []byte

func (b HexBytes) String() string {
	return "0x" + hex.EncodeToString(b)
}

// MarshalJSON renders the bytes as a hex string.
func (b HexBytes) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.String())
}

// SpliceTime carries an optional PTS time. PTSTime is nil when
// time_specified_flag is 0.
type SpliceTime struct {
	PTSTime *Ticks `json:"pts_time,omitempty"`
}

func (st *SpliceTime) decode(r *bitReader) {
	if r.readBit() { // time_specified_flag
		r.skip(6) // reserved
		pts := Ticks(r.readUint64(33))
		st.PTSTime = &pts
	} else {
		r.skip(7) // reserved
	}
}

// BreakDuration specifies the duration of a commercial break.
type BreakDuration struct {
	AutoReturn bool  `json:"auto_return"`
	Duration   Ticks `json:"duration"`
}

func (bd *BreakDuration) decode(r *bitReader) {
	bd.AutoReturn = r.readBit()
	r.skip(6) // reserved
	bd.Duration = Ticks(r.readUint64(33))
}
