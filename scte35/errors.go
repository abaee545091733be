package scte35

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Sentinel errors for SCTE-35 decoding. Fatal conditions are returned from
// Decode wrapped in a *DecodeError; recoverable ones are attached to the
// decoded Splice as Warnings. Both support errors.Is.
var (
	ErrInputDecode             = errors.New("scte35: input is neither hex nor base64")
	ErrShortBuffer             = errors.New("scte35: not enough bytes")
	ErrUnexpectedTableID       = errors.New("scte35: table_id is not 0xFC")
	ErrUnknownCommandType      = errors.New("scte35: unknown splice command type")
	ErrUnknownDescriptorTag    = errors.New("scte35: unknown splice descriptor tag")
	ErrMalformedDescriptorLoop = errors.New("scte35: malformed descriptor loop")
	ErrCommandLengthCorrected  = errors.New("scte35: splice_command_length corrected")
	ErrTrailingBytes           = errors.New("scte35: trailing bytes after CRC_32")
	ErrCRCMismatch             = errors.New("scte35: CRC_32 mismatch")
)

// DecodeError reports a fatal failure while decoding a section. It records
// which field was being decoded and the byte offset into the section.
type DecodeError struct {
	Field  string
	Offset int
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("scte35: decode %s at byte %d: %v", e.Field, e.Offset, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Warning is a recoverable condition met while decoding. The section is
// still returned, possibly with fewer descriptors than it declared.
type Warning struct {
	Field  string
	Offset int
	Err    error
}

func (w Warning) Error() string {
	return fmt.Sprintf("%s at byte %d: %v", w.Field, w.Offset, w.Err)
}

func (w Warning) Unwrap() error {
	return w.Err
}

// MarshalJSON renders the warning as its message.
func (w Warning) MarshalJSON() ([]byte, error) {
	return json.Marshal(w.Error())
}
