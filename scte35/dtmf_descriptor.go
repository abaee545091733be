package scte35

import "encoding/json"

// DTMFDescriptor carries the DTMF sequence an analog splicer should emit.
// Preroll is in tenths of a second.
type DTMFDescriptor struct {
	descriptorHeader
	Preroll   uint32 `json:"preroll"`
	DTMFCount uint32 `json:"dtmf_count"`
	DTMFChars string `json:"dtmf_chars"`
}

func (dd *DTMFDescriptor) Tag() uint32 { return DTMFDescriptorTag }

func (dd *DTMFDescriptor) Name() string { return "DTMF Descriptor" }

func (dd *DTMFDescriptor) decode(r *bitReader) error {
	dd.decodeHeader(r)
	dd.Preroll = r.readUint32(8)
	dd.DTMFCount = r.readUint32(3)
	r.skip(5) // reserved
	dd.DTMFChars = string(r.readBytes(int(dd.DTMFCount)))
	return nil
}

func (dd *DTMFDescriptor) MarshalJSON() ([]byte, error) {
	type fields DTMFDescriptor
	return json.Marshal(struct {
		Name string `json:"name"`
		Tag  uint32 `json:"tag"`
		*fields
	}{dd.Name(), dd.Tag(), (*fields)(dd)})
}
