package scte35

import "encoding/json"

// Segmentation type constants (segmentation_type_id).
const (
	SegmentationTypeNotIndicated              uint32 = 0x00
	SegmentationTypeContentIdentification     uint32 = 0x01
	SegmentationTypeProgramStart              uint32 = 0x10
	SegmentationTypeProgramEnd                uint32 = 0x11
	SegmentationTypeProgramEarlyTermination   uint32 = 0x12
	SegmentationTypeProgramBreakaway          uint32 = 0x13
	SegmentationTypeProgramResumption         uint32 = 0x14
	SegmentationTypeProgramRunoverPlanned     uint32 = 0x15
	SegmentationTypeProgramRunoverUnplanned   uint32 = 0x16
	SegmentationTypeProgramOverlapStart       uint32 = 0x17
	SegmentationTypeProgramBlackoutOverride   uint32 = 0x18
	SegmentationTypeProgramStartInProgress    uint32 = 0x19
	SegmentationTypeChapterStart              uint32 = 0x20
	SegmentationTypeChapterEnd                uint32 = 0x21
	SegmentationTypeBreakStart                uint32 = 0x22
	SegmentationTypeBreakEnd                  uint32 = 0x23
	SegmentationTypeOpeningCreditStart        uint32 = 0x24
	SegmentationTypeOpeningCreditEnd          uint32 = 0x25
	SegmentationTypeClosingCreditStart        uint32 = 0x26
	SegmentationTypeClosingCreditEnd          uint32 = 0x27
	SegmentationTypeProviderAdStart           uint32 = 0x30
	SegmentationTypeProviderAdEnd             uint32 = 0x31
	SegmentationTypeDistributorAdStart        uint32 = 0x32
	SegmentationTypeDistributorAdEnd          uint32 = 0x33
	SegmentationTypeProviderPOStart           uint32 = 0x34
	SegmentationTypeProviderPOEnd             uint32 = 0x35
	SegmentationTypeDistributorPOStart        uint32 = 0x36
	SegmentationTypeDistributorPOEnd          uint32 = 0x37
	SegmentationTypeProviderOverlayPOStart    uint32 = 0x38
	SegmentationTypeProviderOverlayPOEnd      uint32 = 0x39
	SegmentationTypeDistributorOverlayPOStart uint32 = 0x3a
	SegmentationTypeDistributorOverlayPOEnd   uint32 = 0x3b
	SegmentationTypeProviderPromoStart        uint32 = 0x3c
	SegmentationTypeProviderPromoEnd          uint32 = 0x3d
	SegmentationTypeDistributorPromoStart     uint32 = 0x3e
	SegmentationTypeDistributorPromoEnd       uint32 = 0x3f
	SegmentationTypeUnscheduledEventStart     uint32 = 0x40
	SegmentationTypeUnscheduledEventEnd       uint32 = 0x41
	SegmentationTypeAltConOppStart            uint32 = 0x42
	SegmentationTypeAltConOppEnd              uint32 = 0x43
	SegmentationTypeProviderAdBlockStart      uint32 = 0x44
	SegmentationTypeProviderAdBlockEnd        uint32 = 0x45
	SegmentationTypeDistributorAdBlockStart   uint32 = 0x46
	SegmentationTypeDistributorAdBlockEnd     uint32 = 0x47
	SegmentationTypeNetworkStart              uint32 = 0x50
	SegmentationTypeNetworkEnd                uint32 = 0x51
)

// segmentationTypeNames maps segmentation_type_id to its display name.
var segmentationTypeNames = map[uint32]string{
	SegmentationTypeNotIndicated:              "Not Indicated",
	SegmentationTypeContentIdentification:     "Content Identification",
	SegmentationTypeProgramStart:              "Program Start",
	SegmentationTypeProgramEnd:                "Program End",
	SegmentationTypeProgramEarlyTermination:   "Program Early Termination",
	SegmentationTypeProgramBreakaway:          "Program Breakaway",
	SegmentationTypeProgramResumption:         "Program Resumption",
	SegmentationTypeProgramRunoverPlanned:     "Program Runover Planned",
	SegmentationTypeProgramRunoverUnplanned:   "Program Runover Unplanned",
	SegmentationTypeProgramOverlapStart:       "Program Overlap Start",
	SegmentationTypeProgramBlackoutOverride:   "Program Blackout Override",
	SegmentationTypeProgramStartInProgress:    "Program Start - In Progress",
	SegmentationTypeChapterStart:              "Chapter Start",
	SegmentationTypeChapterEnd:                "Chapter End",
	SegmentationTypeBreakStart:                "Break Start",
	SegmentationTypeBreakEnd:                  "Break End",
	SegmentationTypeOpeningCreditStart:        "Opening Credit Start",
	SegmentationTypeOpeningCreditEnd:          "Opening Credit End",
	SegmentationTypeClosingCreditStart:        "Closing Credit Start",
	SegmentationTypeClosingCreditEnd:          "Closing Credit End",
	SegmentationTypeProviderAdStart:           "Provider Advertisement Start",
	SegmentationTypeProviderAdEnd:             "Provider Advertisement End",
	SegmentationTypeDistributorAdStart:        "Distributor Advertisement Start",
	SegmentationTypeDistributorAdEnd:          "Distributor Advertisement End",
	SegmentationTypeProviderPOStart:           "Provider Placement Opportunity Start",
	SegmentationTypeProviderPOEnd:             "Provider Placement Opportunity End",
	SegmentationTypeDistributorPOStart:        "Distributor Placement Opportunity Start",
	SegmentationTypeDistributorPOEnd:          "Distributor Placement Opportunity End",
	SegmentationTypeProviderOverlayPOStart:    "Provider Overlay Placement Opportunity Start",
	SegmentationTypeProviderOverlayPOEnd:      "Provider Overlay Placement Opportunity End",
	SegmentationTypeDistributorOverlayPOStart: "Distributor Overlay Placement Opportunity Start",
	SegmentationTypeDistributorOverlayPOEnd:   "Distributor Overlay Placement Opportunity End",
	SegmentationTypeProviderPromoStart:        "Provider Promo Start",
	SegmentationTypeProviderPromoEnd:          "Provider Promo End",
	SegmentationTypeDistributorPromoStart:     "Distributor Promo Start",
	SegmentationTypeDistributorPromoEnd:       "Distributor Promo End",
	SegmentationTypeUnscheduledEventStart:     "Unscheduled Event Start",
	SegmentationTypeUnscheduledEventEnd:       "Unscheduled Event End",
	SegmentationTypeAltConOppStart:            "Alternate Content Opportunity Start",
	SegmentationTypeAltConOppEnd:              "Alternate Content Opportunity End",
	SegmentationTypeProviderAdBlockStart:      "Provider Ad Block Start",
	SegmentationTypeProviderAdBlockEnd:        "Provider Ad Block End",
	SegmentationTypeDistributorAdBlockStart:   "Distributor Ad Block Start",
	SegmentationTypeDistributorAdBlockEnd:     "Distributor Ad Block End",
	SegmentationTypeNetworkStart:              "Network Start",
	SegmentationTypeNetworkEnd:                "Network End",
}

// UPID types (segmentation_upid_type).
const (
	UPIDTypeNotUsed     uint32 = 0x00
	UPIDTypeUserDefined uint32 = 0x01
	UPIDTypeISCI        uint32 = 0x02
	UPIDTypeAdID        uint32 = 0x03
	UPIDTypeUMID        uint32 = 0x04
	UPIDTypeISANLegacy  uint32 = 0x05
	UPIDTypeISAN        uint32 = 0x06
	UPIDTypeTID         uint32 = 0x07
	UPIDTypeTI          uint32 = 0x08
	UPIDTypeADI         uint32 = 0x09
	UPIDTypeEIDR        uint32 = 0x0A
	UPIDTypeATSC        uint32 = 0x0B
	UPIDTypeMPU         uint32 = 0x0C
	UPIDTypeMID         uint32 = 0x0D
	UPIDTypeADSInfo     uint32 = 0x0E
	UPIDTypeURI         uint32 = 0x0F
	UPIDTypeUUID        uint32 = 0x10
	UPIDTypeSCR         uint32 = 0x11
)

var upidTypeNames = map[uint32]string{
	UPIDTypeNotUsed:     "Not Used",
	UPIDTypeUserDefined: "User Defined",
	UPIDTypeISCI:        "ISCI",
	UPIDTypeAdID:        "Ad-ID",
	UPIDTypeUMID:        "UMID",
	UPIDTypeISANLegacy:  "ISAN (deprecated)",
	UPIDTypeISAN:        "ISAN",
	UPIDTypeTID:         "TID",
	UPIDTypeTI:          "TI",
	UPIDTypeADI:         "ADI",
	UPIDTypeEIDR:        "EIDR",
	UPIDTypeATSC:        "ATSC Content Identifier",
	UPIDTypeMPU:         "MPU",
	UPIDTypeMID:         "MID",
	UPIDTypeADSInfo:     "ADS Information",
	UPIDTypeURI:         "URI",
	UPIDTypeUUID:        "UUID",
	UPIDTypeSCR:         "SCR",
}

// SegmentationDescriptor carries segmentation information per SCTE-35 10.3.3.
// Restriction flags are meaningful only when DeliveryNotRestrictedFlag is
// false. SubSegmentNum and SubSegmentsExpected are set only for the
// placement opportunity types that carry them.
type SegmentationDescriptor struct {
	descriptorHeader
	SegmentationEventID                    uint32                  `json:"segmentation_event_id"`
	SegmentationEventCancelIndicator       bool                    `json:"segmentation_event_cancel_indicator"`
	SegmentationEventIDComplianceIndicator bool                    `json:"segmentation_event_id_compliance_indicator"`
	ProgramSegmentationFlag                bool                    `json:"program_segmentation_flag"`
	SegmentationDurationFlag               bool                    `json:"segmentation_duration_flag"`
	DeliveryNotRestrictedFlag              bool                    `json:"delivery_not_restricted_flag"`
	WebDeliveryAllowedFlag                 bool                    `json:"web_delivery_allowed_flag"`
	NoRegionalBlackoutFlag                 bool                    `json:"no_regional_blackout_flag"`
	ArchiveAllowedFlag                     bool                    `json:"archive_allowed_flag"`
	DeviceRestrictions                     uint32                  `json:"device_restrictions"`
	Components                             []SegmentationComponent `json:"components,omitempty"`
	SegmentationDuration                   *Ticks                  `json:"segmentation_duration,omitempty"`
	SegmentationUPIDType                   uint32                  `json:"segmentation_upid_type"`
	SegmentationUPID                       HexBytes                `json:"segmentation_upid"`
	SegmentationTypeID                     uint32                  `json:"segmentation_type_id"`
	SegmentNum                             uint32                  `json:"segment_num"`
	SegmentsExpected                       uint32                  `json:"segments_expected"`
	SubSegmentNum                          *uint32                 `json:"sub_segment_num,omitempty"`
	SubSegmentsExpected                    *uint32                 `json:"sub_segments_expected,omitempty"`
}

// SegmentationComponent is the PTS offset of one component of a
// component-level segmentation.
type SegmentationComponent struct {
	ComponentTag uint32 `json:"component_tag"`
	PTSOffset    Ticks  `json:"pts_offset"`
}

// Tag returns the splice_descriptor_tag.
func (sd *SegmentationDescriptor) Tag() uint32 {
	return SegmentationDescriptorTag
}

func (sd *SegmentationDescriptor) Name() string { return "Segmentation Descriptor" }

// TypeName returns a human-readable name for the segmentation type.
func (sd *SegmentationDescriptor) TypeName() string {
	if name, ok := segmentationTypeNames[sd.SegmentationTypeID]; ok {
		return name
	}
	return "Unknown"
}

// UPIDTypeName returns a human-readable name for the UPID type.
func (sd *SegmentationDescriptor) UPIDTypeName() string {
	if name, ok := upidTypeNames[sd.SegmentationUPIDType]; ok {
		return name
	}
	return "Unknown"
}

// hasSubSegments reports whether the segmentation type may carry
// sub_segment_num and sub_segments_expected.
func (sd *SegmentationDescriptor) hasSubSegments() bool {
	switch sd.SegmentationTypeID {
	case SegmentationTypeProviderPOStart, SegmentationTypeDistributorPOStart,
		SegmentationTypeProviderOverlayPOStart, SegmentationTypeDistributorOverlayPOStart:
		return true
	}
	return false
}

func (sd *SegmentationDescriptor) decode(r *bitReader) error {
	sd.decodeHeader(r)
	sd.SegmentationEventID = r.readUint32(32)
	sd.SegmentationEventCancelIndicator = r.readBit()
	sd.SegmentationEventIDComplianceIndicator = r.readBit()
	r.skip(6) // reserved

	if sd.SegmentationEventCancelIndicator {
		return nil
	}

	sd.ProgramSegmentationFlag = r.readBit()
	sd.SegmentationDurationFlag = r.readBit()
	sd.DeliveryNotRestrictedFlag = r.readBit()
	if !sd.DeliveryNotRestrictedFlag {
		sd.WebDeliveryAllowedFlag = r.readBit()
		sd.NoRegionalBlackoutFlag = r.readBit()
		sd.ArchiveAllowedFlag = r.readBit()
		sd.DeviceRestrictions = r.readUint32(2)
	} else {
		r.skip(5) // reserved
	}

	if !sd.ProgramSegmentationFlag {
		componentCount := int(r.readUint32(8))
		for i := 0; i < componentCount && !r.overflow; i++ {
			c := SegmentationComponent{ComponentTag: r.readUint32(8)}
			r.skip(7) // reserved
			c.PTSOffset = Ticks(r.readUint64(33))
			sd.Components = append(sd.Components, c)
		}
	}

	if sd.SegmentationDurationFlag {
		dur := Ticks(r.readUint64(40))
		sd.SegmentationDuration = &dur
	}

	sd.SegmentationUPIDType = r.readUint32(8)
	upidLen := int(r.readUint32(8))
	sd.SegmentationUPID = r.readBytes(upidLen)
	sd.SegmentationTypeID = r.readUint32(8)
	sd.SegmentNum = r.readUint32(8)
	sd.SegmentsExpected = r.readUint32(8)

	if sd.hasSubSegments() && r.bitsLeft() >= 16 {
		num := r.readUint32(8)
		expected := r.readUint32(8)
		sd.SubSegmentNum = &num
		sd.SubSegmentsExpected = &expected
	}
	return nil
}

// MarshalJSON renders the descriptor with its name and the names of its
// segmentation and UPID types.
func (sd *SegmentationDescriptor) MarshalJSON() ([]byte, error) {
	type fields SegmentationDescriptor
	return json.Marshal(struct {
		Name             string `json:"name"`
		Tag              uint32 `json:"tag"`
		SegmentationType string `json:"segmentation_message"`
		UPIDType         string `json:"segmentation_upid_type_name"`
		*fields
	}{sd.Name(), sd.Tag(), sd.TypeName(), sd.UPIDTypeName(), (*fields)(sd)})
}
