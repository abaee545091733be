package scte35

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestSpliceJSON(t *testing.T) {
	t.Parallel()
	sp := decodeGolden(t, "SpliceInsertOut")

	var got struct {
		InfoSection map[string]any   `json:"info_section"`
		Command     map[string]any   `json:"command"`
		Descriptors []map[string]any `json:"descriptors"`
	}
	if err := json.Unmarshal([]byte(sp.String()), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.InfoSection["crc"] != "0x7f1add87" {
		t.Errorf("crc = %v", got.InfoSection["crc"])
	}
	if got.Command["name"] != "Splice Insert" || got.Command["command_type"] != float64(5) {
		t.Errorf("command = %v", got.Command)
	}
	bd, _ := got.Command["break_duration"].(map[string]any)
	if bd["duration"] != float64(90) {
		t.Errorf("break_duration = %v, want 90 seconds", bd)
	}
	if len(got.Descriptors) != 1 {
		t.Fatalf("descriptors = %v", got.Descriptors)
	}
	d := got.Descriptors[0]
	if d["name"] != "Segmentation Descriptor" || d["tag"] != float64(2) || d["identifier"] != "CUEI" {
		t.Errorf("descriptor = %v", d)
	}
	if d["segmentation_message"] != "Break Start" {
		t.Errorf("segmentation_message = %v", d["segmentation_message"])
	}
}

func TestTicksJSON(t *testing.T) {
	t.Parallel()
	b, err := json.Marshal(Ticks(900000))
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "10.000000" {
		t.Errorf("Ticks JSON = %s, want 10.000000", b)
	}
}

func TestEmptyDescriptorsRenderAsList(t *testing.T) {
	t.Parallel()
	sp, err := DecodeBytes(buildSection(SpliceNullType, -1, nil, nil), WithLogger(discardLogger()))
	if err != nil {
		t.Fatalf("DecodeBytes: %v", err)
	}
	if !strings.Contains(sp.String(), `"descriptors":[]`) {
		t.Errorf("String() = %s", sp.String())
	}
	var buf bytes.Buffer
	if err := sp.ShowDescriptors(&buf); err != nil {
		t.Fatal(err)
	}
	var out map[string]map[string][]any
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("unmarshal %s: %v", buf.String(), err)
	}
	if descs, ok := out["SCTE35"]["descriptors"]; !ok || len(descs) != 0 {
		t.Errorf("ShowDescriptors = %s", buf.String())
	}
}

func TestShowParts(t *testing.T) {
	t.Parallel()
	sp := decodeGolden(t, "ProviderAdStart")
	tests := []struct {
		name string
		show func(*bytes.Buffer) error
		keys []string
	}{
		{"all", func(b *bytes.Buffer) error { return sp.Show(b) }, []string{"info_section", "command", "descriptors"}},
		{"info", func(b *bytes.Buffer) error { return sp.ShowInfoSection(b) }, []string{"info_section"}},
		{"command", func(b *bytes.Buffer) error { return sp.ShowCommand(b) }, []string{"command"}},
		{"descriptors", func(b *bytes.Buffer) error { return sp.ShowDescriptors(b) }, []string{"descriptors"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			var buf bytes.Buffer
			if err := tc.show(&buf); err != nil {
				t.Fatal(err)
			}
			if !strings.Contains(buf.String(), "\n    ") {
				t.Error("output is not indented")
			}
			var out map[string]map[string]json.RawMessage
			if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			body, ok := out["SCTE35"]
			if !ok {
				t.Fatalf("missing SCTE35 wrapper: %s", buf.String())
			}
			if len(body) != len(tc.keys) {
				t.Errorf("keys = %v, want %v", body, tc.keys)
			}
			for _, k := range tc.keys {
				if _, ok := body[k]; !ok {
					t.Errorf("missing key %q", k)
				}
			}
		})
	}
}

func TestWarningsJSON(t *testing.T) {
	t.Parallel()
	data := append(mustHex(goldenVectors["ProviderAdStart"]), 0xAA)
	sp, err := DecodeBytes(data, WithLogger(discardLogger()))
	if err != nil {
		t.Fatal(err)
	}
	var out struct {
		Warnings []string `json:"warnings"`
	}
	if err := json.Unmarshal([]byte(sp.String()), &out); err != nil {
		t.Fatal(err)
	}
	if len(out.Warnings) != 1 || !strings.Contains(out.Warnings[0], "trailing bytes") {
		t.Errorf("warnings = %v", out.Warnings)
	}
}
