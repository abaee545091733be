package scte35

import "fmt"

// splice_command_type values.
const (
	SpliceNullType           uint32 = 0x00
	SpliceScheduleType       uint32 = 0x04
	SpliceInsertType         uint32 = 0x05
	TimeSignalType           uint32 = 0x06
	BandwidthReservationType uint32 = 0x07
	PrivateCommandType       uint32 = 0xFF
)

// SpliceCommand is implemented by the six splice command types.
type SpliceCommand interface {
	Type() uint32
	Name() string
	decode(r *bitReader) error
}

// commandDecoders maps splice_command_type to a constructor. It is never
// modified after package initialization.
var commandDecoders = map[uint32]func() SpliceCommand{
	SpliceNullType:           func() SpliceCommand { return &SpliceNull{} },
	SpliceScheduleType:       func() SpliceCommand { return &SpliceSchedule{} },
	SpliceInsertType:         func() SpliceCommand { return &SpliceInsert{} },
	TimeSignalType:           func() SpliceCommand { return &TimeSignal{} },
	BandwidthReservationType: func() SpliceCommand { return &BandwidthReservation{} },
	PrivateCommandType:       func() SpliceCommand { return &PrivateCommand{} },
}

// maxCommandLength is the largest splice_command_length that fits in one
// transport packet after the fixed info section header (188 - 14).
const maxCommandLength = tsPacketSize - infoSectionLength

// commandLengthCorrection reports whether a declared splice_command_length
// is treated as an encoder defect rather than a real length. Some encoders
// write values larger than a single transport packet can carry after the
// header, most often the legacy 0xFFF. For those the command is decoded over
// the rest of the section and its consumed length replaces the declared one.
//
// The threshold is empirical. Confirm it against current encoder output
// before widening it or applying it anywhere else.
func commandLengthCorrection(declared uint32) bool {
	return declared > maxCommandLength
}

// decodeCommand dispatches on splice_command_type and decodes the command
// from its byte window, advancing the cursor past it.
func (d *decoder) decodeCommand(info *InfoSection) (SpliceCommand, error) {
	offset := d.pos
	newCommand, ok := commandDecoders[info.SpliceCommandType]
	if !ok {
		return nil, &DecodeError{
			Field:  "splice_command_type",
			Offset: offset - 1,
			Err:    fmt.Errorf("%w: 0x%02X", ErrUnknownCommandType, info.SpliceCommandType),
		}
	}

	declared := info.SpliceCommandLength
	window, corrected, err := d.selectCommandWindow(declared)
	if err != nil {
		return nil, err
	}

	cmd := newCommand()
	r := newBitReader(window)
	err = cmd.decode(r)
	if err == nil {
		err = r.err()
	}
	if err != nil {
		return nil, &DecodeError{
			Field:  "splice_command",
			Offset: offset,
			Err:    fmt.Errorf("%s: %w", cmd.Name(), err),
		}
	}

	consumed := len(window)
	if corrected {
		consumed = r.bytesConsumed()
		info.SpliceCommandLength = uint32(consumed)
		d.warn("splice_command_length", offset, fmt.Errorf("%w: declared %d, decoded %d", ErrCommandLengthCorrected, declared, consumed))
	}
	d.pos += consumed
	return cmd, nil
}

// selectCommandWindow returns the bytes the command decoder may read: the
// declared length, or everything left when the length is corrected.
func (d *decoder) selectCommandWindow(declared uint32) (window []byte, corrected bool, err error) {
	if commandLengthCorrection(declared) {
		return d.remaining(), true, nil
	}
	window, ok := d.peek(int(declared))
	if !ok {
		return nil, false, &DecodeError{
			Field:  "splice_command",
			Offset: d.pos,
			Err:    fmt.Errorf("%w: splice_command_length %d, %d bytes left", ErrShortBuffer, declared, len(d.remaining())),
		}
	}
	return window, false, nil
}
