package scte35

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
)

// Normalize converts an encoded splice_info_section into bytes. A "0x"
// prefix, or a leading "fc" table_id, selects hexadecimal; anything else is
// read as base64 (standard alphabet, padding optional). Input that decodes
// as neither returns ErrInputDecode.
func Normalize(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("%w: empty input", ErrInputDecode)
	}

	prefixed := len(s) >= 2 && strings.EqualFold(s[:2], "0x")
	if prefixed {
		s = s[2:]
	}
	if prefixed || (len(s) >= 2 && strings.EqualFold(s[:2], "fc")) {
		b, err := hex.DecodeString(s)
		if err != nil {
			return nil, fmt.Errorf("%w: hex: %v", ErrInputDecode, err)
		}
		return b, nil
	}

	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		raw, rawErr := base64.RawStdEncoding.DecodeString(s)
		if rawErr != nil {
			return nil, fmt.Errorf("%w: base64: %v", ErrInputDecode, err)
		}
		b = raw
	}
	return b, nil
}
