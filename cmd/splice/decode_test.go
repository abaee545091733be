package main

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

const (
	providerAdStart = "fc302700000000000000fff00506fe000dbba00011020f43554549000000017fbf0000300101ee197d02"
	spliceInsertIn  = "fc302d00000000000000fff00b05000000067f1f00000101010011020f43554549000000067fbf0000230101c2262974"
)

func decodeCLI(t *testing.T, stdin string, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := runDecode(context.Background(), args, strings.NewReader(stdin), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestDecodeArgsCompact(t *testing.T) {
	t.Parallel()

	code, out, errOut := decodeCLI(t, "", "-compact", "-pid", "0x1ff", providerAdStart, spliceInsertIn)
	if code != 0 {
		t.Fatalf("exit = %d, stderr:\n%s", code, errOut)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %d, want 2:\n%s", len(lines), out)
	}

	wantTypes := []float64{6, 5}
	for i, line := range lines {
		var doc struct {
			Command struct {
				Type float64 `json:"command_type"`
			} `json:"command"`
			Packet struct {
				PID string `json:"pid"`
			} `json:"packet_data"`
		}
		if err := json.Unmarshal([]byte(line), &doc); err != nil {
			t.Fatalf("line %d: %v", i, err)
		}
		if doc.Command.Type != wantTypes[i] {
			t.Errorf("line %d command_type = %v, want %v", i, doc.Command.Type, wantTypes[i])
		}
		if doc.Packet.PID != "0x1ff" {
			t.Errorf("line %d pid = %q, want 0x1ff", i, doc.Packet.PID)
		}
	}
}

func TestDecodeStdinPretty(t *testing.T) {
	t.Parallel()

	code, out, errOut := decodeCLI(t, "\n# heartbeat\n"+providerAdStart+"\n")
	if code != 0 {
		t.Fatalf("exit = %d, stderr:\n%s", code, errOut)
	}
	if !strings.HasPrefix(out, "{\n    \"SCTE35\": {") {
		t.Fatalf("output is not indented SCTE35 JSON:\n%s", out)
	}
}

func TestDecodePart(t *testing.T) {
	t.Parallel()

	tests := []struct {
		part    string
		key     string
		missing string
	}{
		{"info", "info_section", "command"},
		{"command", "command", "descriptors"},
		{"descriptors", "descriptors", "info_section"},
	}
	for _, tt := range tests {
		t.Run(tt.part, func(t *testing.T) {
			t.Parallel()
			code, out, errOut := decodeCLI(t, "", "-part", tt.part, providerAdStart)
			if code != 0 {
				t.Fatalf("exit = %d, stderr:\n%s", code, errOut)
			}
			var doc map[string]map[string]json.RawMessage
			if err := json.Unmarshal([]byte(out), &doc); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if _, ok := doc["SCTE35"][tt.key]; !ok {
				t.Errorf("missing %q in %s", tt.key, out)
			}
			if _, ok := doc["SCTE35"][tt.missing]; ok {
				t.Errorf("unexpected %q in %s", tt.missing, out)
			}
		})
	}
}

func TestDecodeFailuresSetExitStatus(t *testing.T) {
	t.Parallel()

	code, out, errOut := decodeCLI(t, "", "-compact", "zz!!", providerAdStart)
	if code != 1 {
		t.Fatalf("exit = %d, want 1", code)
	}
	if strings.Count(out, "\n") != 1 {
		t.Fatalf("want the good cue still printed, got:\n%s", out)
	}
	if !strings.Contains(errOut, "zz!!") {
		t.Fatalf("stderr does not name the bad input:\n%s", errOut)
	}
}

func TestDecodeVerifyCRC(t *testing.T) {
	t.Parallel()

	bad := providerAdStart[:len(providerAdStart)-1] + "3"
	code, _, errOut := decodeCLI(t, "", "-compact", "-verify-crc", bad)
	if code != 1 {
		t.Fatalf("exit = %d, want 1", code)
	}
	if !strings.Contains(errOut, "CRC_32 mismatch") {
		t.Fatalf("stderr = %q, want CRC mismatch", errOut)
	}

	if code, _, errOut := decodeCLI(t, "", "-compact", "-verify-crc", providerAdStart); code != 0 {
		t.Fatalf("valid CRC: exit = %d, stderr:\n%s", code, errOut)
	}
}

func TestDecodeUsageErrors(t *testing.T) {
	t.Parallel()

	tests := [][]string{
		{"-part", "bogus", providerAdStart},
		{"-compact", "-part", "info", providerAdStart},
		{"-pid", "70000", providerAdStart},
		{"-pts", "soon", providerAdStart},
		{"-nope"},
	}
	for _, args := range tests {
		if code, _, _ := decodeCLI(t, "", args...); code != 2 {
			t.Errorf("%v: exit = %d, want 2", args, code)
		}
	}
}

func TestPacketOptions(t *testing.T) {
	t.Parallel()

	opts, err := packetOptions("", "")
	if err != nil || len(opts) != 0 {
		t.Fatalf("empty flags = %d opts, %v", len(opts), err)
	}
	opts, err = packetOptions("0X1F", "1.5")
	if err != nil || len(opts) != 2 {
		t.Fatalf("pid and pts = %d opts, %v", len(opts), err)
	}
}

func TestAbbreviate(t *testing.T) {
	t.Parallel()

	if got := abbreviate("short"); got != "short" {
		t.Errorf("abbreviate(short) = %q", got)
	}
	if got := abbreviate(providerAdStart); got != providerAdStart[:24]+"..." {
		t.Errorf("abbreviate(long) = %q", got)
	}
}
