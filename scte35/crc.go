package scte35

import (
	"encoding/binary"
	"fmt"
)

const crcPoly = 0x04C11DB7

// crcTable drives the MSB-first CRC-32/MPEG-2 used by PSI sections. The
// hash/crc32 tables are bit-reflected and cannot produce it.
var crcTable = func() (t [256]uint32) {
	for i := range t {
		c := uint32(i) << 24
		for range 8 {
			c = c<<1 ^ crcPoly*(c>>31)
		}
		t[i] = c
	}
	return t
}()

// crc32MPEG2 returns the CRC_32 of data: initial value 0xFFFFFFFF, no
// final XOR. Running it over a whole section, CRC included, yields zero.
func crc32MPEG2(data []byte) uint32 {
	c := ^uint32(0)
	for _, b := range data {
		c = c<<8 ^ crcTable[byte(c>>24)^b]
	}
	return c
}

// verifyCRC32 checks the trailing CRC_32 of a complete section.
func verifyCRC32(data []byte) error {
	if len(data) < crcLength {
		return fmt.Errorf("%w: %d bytes, need at least %d for CRC_32", ErrShortBuffer, len(data), crcLength)
	}
	computed := crc32MPEG2(data[:len(data)-crcLength])
	stored := binary.BigEndian.Uint32(data[len(data)-crcLength:])
	if computed != stored {
		return fmt.Errorf("%w: computed 0x%08x, stored 0x%08x", ErrCRCMismatch, computed, stored)
	}
	return nil
}

// VerifyCRC checks the section's CRC_32 against the bytes it was decoded
// from. The section spans the three bytes up to and including
// section_length plus section_length bytes. Decode never calls it.
func (sp *Splice) VerifyCRC() error {
	n := 3 + int(sp.InfoSection.SectionLength)
	if n > len(sp.raw) {
		return fmt.Errorf("%w: section_length %d exceeds %d bytes", ErrShortBuffer, sp.InfoSection.SectionLength, len(sp.raw)-3)
	}
	return verifyCRC32(sp.raw[:n])
}
