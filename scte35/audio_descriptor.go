package scte35

import "encoding/json"

// AudioDescriptor signals the audio PIDs of the program.
type AudioDescriptor struct {
	descriptorHeader
	Components []AudioComponent `json:"components"`
}

// AudioComponent describes one audio elementary stream.
type AudioComponent struct {
	ComponentTag     uint32 `json:"component_tag"`
	ISOCode          string `json:"iso_code"`
	BitStreamMode    uint32 `json:"bit_stream_mode"`
	NumChannels      uint32 `json:"num_channels"`
	FullServiceAudio bool   `json:"full_srvc_audio"`
}

func (ad *AudioDescriptor) Tag() uint32 { return AudioDescriptorTag }

func (ad *AudioDescriptor) Name() string { return "Audio Descriptor" }

func (ad *AudioDescriptor) decode(r *bitReader) error {
	ad.decodeHeader(r)
	count := int(r.readUint32(4))
	r.skip(4) // reserved
	for i := 0; i < count && !r.overflow; i++ {
		ad.Components = append(ad.Components, AudioComponent{
			ComponentTag:     r.readUint32(8),
			ISOCode:          string(r.readBytes(3)),
			BitStreamMode:    r.readUint32(3),
			NumChannels:      r.readUint32(4),
			FullServiceAudio: r.readBit(),
		})
	}
	return nil
}

func (ad *AudioDescriptor) MarshalJSON() ([]byte, error) {
	type fields AudioDescriptor
	return json.Marshal(struct {
		Name string `json:"name"`
		Tag  uint32 `json:"tag"`
		*fields
	}{ad.Name(), ad.Tag(), (*fields)(ad)})
}
