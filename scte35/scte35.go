// Package scte35 decodes SCTE-35 splice_info_sections per ANSI/SCTE 35.
// It accepts hex or base64 strings as well as raw bytes and produces a
// Splice holding the info section, exactly one splice command, and the
// splice descriptors in wire order.
//
// All six splice commands (splice_null, splice_schedule, splice_insert,
// time_signal, bandwidth_reservation, private_command) and the five
// CUEI descriptors (avail, DTMF, segmentation, time, audio) are decoded.
// Encoding is not supported, and the trailing CRC_32 is captured but only
// checked when VerifyCRC is called.
package scte35

import (
	"encoding/binary"
	"fmt"
	"log/slog"
)

const (
	tableID = 0xFC

	// tsPacketSize is the size of one MPEG transport stream packet.
	tsPacketSize = 188

	// infoSectionLength covers table_id through splice_command_type.
	infoSectionLength = 14

	crcLength = 4
)

// Splice is a decoded splice_info_section.
type Splice struct {
	InfoSection InfoSection
	Command     SpliceCommand
	Descriptors SpliceDescriptors

	// Packet is nil unless the caller supplied a PID or PTS.
	Packet *PacketContext

	// Warnings lists every recoverable problem found while decoding.
	Warnings []Warning

	raw []byte
}

// PacketContext carries transport metadata supplied by the caller. It is
// never derived from the section bytes.
type PacketContext struct {
	PID *uint16
	PTS *float64
}

// Option configures a decode call.
type Option func(*decodeOptions)

type decodeOptions struct {
	pid *uint16
	pts *float64
	log *slog.Logger
}

// WithPID records the transport PID the section arrived on.
func WithPID(pid uint16) Option {
	return func(o *decodeOptions) { o.pid = &pid }
}

// WithPTS records the presentation timestamp, in seconds, of the packet
// that carried the section.
func WithPTS(pts float64) Option {
	return func(o *decodeOptions) { o.pts = &pts }
}

// WithLogger sets the logger warnings are reported to. If unset,
// slog.Default() is used.
func WithLogger(log *slog.Logger) Option {
	return func(o *decodeOptions) { o.log = log }
}

// Decode decodes a section given as an encoded string or as raw bytes.
func Decode(input any, opts ...Option) (*Splice, error) {
	switch v := input.(type) {
	case string:
		return DecodeString(v, opts...)
	case []byte:
		return DecodeBytes(v, opts...)
	default:
		return nil, fmt.Errorf("%w: unsupported input type %T", ErrInputDecode, input)
	}
}

// DecodeString normalizes a hex or base64 string and decodes it.
func DecodeString(s string, opts ...Option) (*Splice, error) {
	data, err := Normalize(s)
	if err != nil {
		return nil, err
	}
	return DecodeBytes(data, opts...)
}

// DecodeBytes decodes a binary splice_info_section. A nil Splice is
// returned only for fatal errors: a truncated header or command, or an
// unknown splice_command_type. Everything else is reported through
// Splice.Warnings.
func DecodeBytes(data []byte, opts ...Option) (*Splice, error) {
	var o decodeOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = slog.Default()
	}

	d := &decoder{
		data: data,
		log:  o.log.With("component", "scte35"),
	}
	sp, err := d.decode()
	if err != nil {
		return nil, err
	}
	if o.pid != nil || o.pts != nil {
		sp.Packet = &PacketContext{PID: o.pid, PTS: o.pts}
	}
	return sp, nil
}

// decoder walks one section front to back. pos is the byte cursor; every
// slice taken from data is bounds-checked through take.
type decoder struct {
	data     []byte
	pos      int
	log      *slog.Logger
	warnings []Warning
}

func (d *decoder) decode() (*Splice, error) {
	sp := &Splice{raw: d.data}

	header, ok := d.take(infoSectionLength)
	if !ok {
		return nil, &DecodeError{
			Field:  "info_section",
			Offset: 0,
			Err:    fmt.Errorf("%w: have %d, need %d", ErrShortBuffer, len(d.data), infoSectionLength),
		}
	}
	if err := sp.InfoSection.decode(header); err != nil {
		return nil, &DecodeError{Field: "info_section", Offset: 0, Err: err}
	}
	if sp.InfoSection.TableID != tableID {
		d.warn("table_id", 0, fmt.Errorf("%w: 0x%02X", ErrUnexpectedTableID, sp.InfoSection.TableID))
	}

	cmd, err := d.decodeCommand(&sp.InfoSection)
	if err != nil {
		return nil, err
	}
	sp.Command = cmd
	sp.Descriptors = d.decodeDescriptorLoop(&sp.InfoSection)
	d.captureCRC(&sp.InfoSection)

	sp.Warnings = d.warnings
	return sp, nil
}

func (d *decoder) remaining() []byte {
	return d.data[d.pos:]
}

// peek returns the next n bytes without advancing.
func (d *decoder) peek(n int) ([]byte, bool) {
	if n < 0 || n > len(d.data)-d.pos {
		return nil, false
	}
	return d.data[d.pos : d.pos+n], true
}

// take returns the next n bytes and advances past them. The cursor does
// not move when fewer than n bytes remain.
func (d *decoder) take(n int) ([]byte, bool) {
	b, ok := d.peek(n)
	if ok {
		d.pos += n
	}
	return b, ok
}

func (d *decoder) warn(field string, offset int, err error) {
	w := Warning{Field: field, Offset: offset, Err: err}
	d.warnings = append(d.warnings, w)
	d.log.Warn("SCTE-35 decode warning", "field", field, "offset", offset, "error", err)
}

// captureCRC stores the trailing CRC_32 as a hex string. It is not checked
// here; see VerifyCRC.
func (d *decoder) captureCRC(info *InfoSection) {
	offset := d.pos
	b, ok := d.take(crcLength)
	if !ok {
		d.warn("CRC_32", offset, fmt.Errorf("%w: %d bytes left, need %d", ErrShortBuffer, len(d.remaining()), crcLength))
		d.pos = len(d.data)
		return
	}
	info.CRC = fmt.Sprintf("0x%08x", binary.BigEndian.Uint32(b))

	if extra := len(d.remaining()); extra > 0 {
		d.warn("CRC_32", d.pos, fmt.Errorf("%w: %d", ErrTrailingBytes, extra))
	}
}
