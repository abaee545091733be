package scte35

import (
	"bytes"
	"encoding/base64"
	"errors"
	"testing"
)

func TestNormalize(t *testing.T) {
	t.Parallel()
	golden := mustHex(goldenVectors["ProviderAdStart"])
	b64 := base64.StdEncoding.EncodeToString(golden)

	tests := []struct {
		name  string
		input string
		want  []byte
	}{
		{"hex", goldenVectors["ProviderAdStart"], golden},
		{"hex upper", "FC3027", []byte{0xFC, 0x30, 0x27}},
		{"0x prefix", "0xfc3027", []byte{0xFC, 0x30, 0x27}},
		{"0X prefix", "0XFC3027", []byte{0xFC, 0x30, 0x27}},
		{"0x without fc", "0x0102", []byte{0x01, 0x02}},
		{"base64", b64, golden},
		{"base64 unpadded", "/DAn", []byte{0xFC, 0x30, 0x27}},
		{"base64 raw", "/DAnAA", []byte{0xFC, 0x30, 0x27, 0x00}},
		{"whitespace", "  " + b64 + "\n", golden},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := Normalize(tc.input)
			if err != nil {
				t.Fatalf("Normalize(%q): %v", tc.input, err)
			}
			if !bytes.Equal(got, tc.want) {
				t.Errorf("Normalize(%q) = %x, want %x", tc.input, got, tc.want)
			}
		})
	}
}

func TestNormalizeErrors(t *testing.T) {
	t.Parallel()
	for _, input := range []string{"", "   ", "fcz0", "0xabc", "!!!!", "not base64"} {
		if _, err := Normalize(input); !errors.Is(err, ErrInputDecode) {
			t.Errorf("Normalize(%q) = %v, want ErrInputDecode", input, err)
		}
	}
}
