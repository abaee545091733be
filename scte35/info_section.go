package scte35

// InfoSection holds the fixed 14-byte splice_info_section header plus the
// fields filled in while walking the rest of the section.
// SpliceCommandLength is the declared value unless the command length
// correction applied, in which case it is the decoded command's length.
type InfoSection struct {
	TableID                uint32 `json:"table_id"`
	SectionSyntaxIndicator bool   `json:"section_syntax_indicator"`
	PrivateIndicator       bool   `json:"private_indicator"`
	SAPType                uint32 `json:"sap_type"`
	SectionLength          uint32 `json:"section_length"`
	ProtocolVersion        uint32 `json:"protocol_version"`
	EncryptedPacket        bool   `json:"encrypted_packet"`
	EncryptionAlgorithm    uint32 `json:"encryption_algorithm"`
	PTSAdjustment          Ticks  `json:"pts_adjustment"`
	CWIndex                uint32 `json:"cw_index"`
	Tier                   uint32 `json:"tier"`
	SpliceCommandLength    uint32 `json:"splice_command_length"`
	SpliceCommandType      uint32 `json:"splice_command_type"`
	DescriptorLoopLength   uint32 `json:"descriptor_loop_length"`
	CRC                    string `json:"crc"`
}

func (is *InfoSection) decode(data []byte) error {
	r := newBitReader(data)
	is.TableID = r.readUint32(8)
	is.SectionSyntaxIndicator = r.readBit()
	is.PrivateIndicator = r.readBit()
	is.SAPType = r.readUint32(2)
	is.SectionLength = r.readUint32(12)

	is.ProtocolVersion = r.readUint32(8)
	is.EncryptedPacket = r.readBit()
	is.EncryptionAlgorithm = r.readUint32(6)
	is.PTSAdjustment = Ticks(r.readUint64(33))
	is.CWIndex = r.readUint32(8)
	is.Tier = r.readUint32(12)

	is.SpliceCommandLength = r.readUint32(12)
	is.SpliceCommandType = r.readUint32(8)
	return r.err()
}
