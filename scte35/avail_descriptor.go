package scte35

import "encoding/json"

// AvailDescriptor is an extension to splice_insert carrying a provider
// avail identifier.
type AvailDescriptor struct {
	descriptorHeader
	ProviderAvailID uint32 `json:"provider_avail_id"`
}

func (ad *AvailDescriptor) Tag() uint32 { return AvailDescriptorTag }

func (ad *AvailDescriptor) Name() string { return "Avail Descriptor" }

func (ad *AvailDescriptor) decode(r *bitReader) error {
	ad.decodeHeader(r)
	ad.ProviderAvailID = r.readUint32(32)
	return nil
}

func (ad *AvailDescriptor) MarshalJSON() ([]byte, error) {
	type fields AvailDescriptor
	return json.Marshal(struct {
		Name string `json:"name"`
		Tag  uint32 `json:"tag"`
		*fields
	}{ad.Name(), ad.Tag(), (*fields)(ad)})
}
