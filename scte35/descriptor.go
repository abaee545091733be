package scte35

import (
	"encoding/binary"
	"fmt"
)

// splice_descriptor_tag values.
const (
	AvailDescriptorTag        uint32 = 0x00
	DTMFDescriptorTag         uint32 = 0x01
	SegmentationDescriptorTag uint32 = 0x02
	TimeDescriptorTag         uint32 = 0x03
	AudioDescriptorTag        uint32 = 0x04

	// CUEIdentifier is the CUEI ASCII identifier (0x43554549).
	CUEIdentifier uint32 = 0x43554549
)

// SpliceDescriptor is implemented by the five splice descriptor types.
type SpliceDescriptor interface {
	Tag() uint32
	Name() string

	// DescriptorLength is the payload length recorded on the wire,
	// excluding the tag and length bytes.
	DescriptorLength() int

	decode(r *bitReader) error
}

// SpliceDescriptors is a slice of SpliceDescriptor in wire order.
type SpliceDescriptors []SpliceDescriptor

// descriptorHeader holds the fields every CUEI descriptor starts with.
type descriptorHeader struct {
	Length     int    `json:"descriptor_length"`
	Identifier string `json:"identifier"`
}

func (h *descriptorHeader) DescriptorLength() int { return h.Length }

func (h *descriptorHeader) decodeHeader(r *bitReader) {
	h.Length = len(r.data)
	id := r.readBytes(4)
	h.Identifier = string(id)
}

// descriptorDecoders maps splice_descriptor_tag to a constructor. It is
// never modified after package initialization.
var descriptorDecoders = map[uint32]func() SpliceDescriptor{
	AvailDescriptorTag:        func() SpliceDescriptor { return &AvailDescriptor{} },
	DTMFDescriptorTag:         func() SpliceDescriptor { return &DTMFDescriptor{} },
	SegmentationDescriptorTag: func() SpliceDescriptor { return &SegmentationDescriptor{} },
	TimeDescriptorTag:         func() SpliceDescriptor { return &TimeDescriptor{} },
	AudioDescriptorTag:        func() SpliceDescriptor { return &AudioDescriptor{} },
}

// decodeDescriptorLoop reads descriptor_loop_length and then walks the
// loop until that budget is spent. Each entry advances the cursor by its
// length plus two whether or not its tag is known. Unknown tags are skipped
// with a warning; a truncated or undecodable entry stops the loop with a
// warning and keeps the descriptors decoded so far.
func (d *decoder) decodeDescriptorLoop(info *InfoSection) SpliceDescriptors {
	offset := d.pos
	lengthBytes, ok := d.take(2)
	if !ok {
		d.warn("descriptor_loop_length", offset, fmt.Errorf("%w: %w", ErrMalformedDescriptorLoop, ErrShortBuffer))
		d.pos = len(d.data)
		return nil
	}
	loopLength := int(binary.BigEndian.Uint16(lengthBytes))
	info.DescriptorLoopLength = uint32(loopLength)
	loopEnd := d.pos + loopLength

	var descs SpliceDescriptors
	budget := loopLength
	for budget > 0 {
		offset := d.pos
		header, ok := d.take(2)
		if !ok {
			d.warn("splice_descriptor", offset, fmt.Errorf("%w: %d bytes left for tag and length, %d declared",
				ErrMalformedDescriptorLoop, len(d.remaining()), budget))
			d.pos = len(d.data)
			return descs
		}
		tag := uint32(header[0])
		length := int(header[1])

		payload, ok := d.take(length)
		if !ok {
			d.warn("splice_descriptor", offset, fmt.Errorf("%w: tag 0x%02X declares %d bytes, %d left",
				ErrMalformedDescriptorLoop, tag, length, len(d.remaining())))
			d.pos = len(d.data)
			return descs
		}
		budget -= length + 2

		newDescriptor, known := descriptorDecoders[tag]
		if !known {
			d.warn("splice_descriptor_tag", offset, fmt.Errorf("%w: 0x%02X, %d bytes skipped", ErrUnknownDescriptorTag, tag, length))
			continue
		}

		desc := newDescriptor()
		r := newBitReader(payload)
		err := desc.decode(r)
		if err == nil {
			err = r.err()
		}
		if err != nil {
			d.warn("splice_descriptor", offset, fmt.Errorf("%w: %s: %w", ErrMalformedDescriptorLoop, desc.Name(), err))
			if loopEnd <= len(d.data) && loopEnd > d.pos {
				d.pos = loopEnd
			}
			return descs
		}
		descs = append(descs, desc)
	}

	if budget < 0 {
		d.warn("descriptor_loop_length", offset, fmt.Errorf("%w: entries overrun declared length %d by %d",
			ErrMalformedDescriptorLoop, loopLength, -budget))
	}
	return descs
}
