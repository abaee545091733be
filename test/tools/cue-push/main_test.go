package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
)

func TestReadCues(t *testing.T) {
	t.Parallel()

	in := "# splice_insert\n/DAlAAAAAAAAAP/wFAUAAAABf+/+ABtxVX4AKTLgAAEAAAAAXwDYoQ==\n\n  fc3011000000000000fffff0000000007a4fbfff  \n"
	cues, err := readCues(strings.NewReader(in))
	if err != nil {
		t.Fatalf("readCues: %v", err)
	}
	if len(cues) != 2 {
		t.Fatalf("cues = %q, want 2 entries", cues)
	}
	if cues[1] != "fc3011000000000000fffff0000000007a4fbfff" {
		t.Errorf("cues[1] = %q, want trimmed hex", cues[1])
	}
}

func TestFeedKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		key, file, want string
	}{
		{"studio", "cues/ads.txt", "studio"},
		{"", "cues/ads.txt", "ads"},
		{"", "", "default"},
		{"", ".txt", "default"},
	}
	for _, tt := range tests {
		if got := feedKey(tt.key, tt.file); got != tt.want {
			t.Errorf("feedKey(%q, %q) = %q, want %q", tt.key, tt.file, got, tt.want)
		}
	}
}

func TestDialerUnknownTransport(t *testing.T) {
	t.Parallel()

	if _, err := dialer("udp", "127.0.0.1:6000", "k"); err == nil {
		t.Fatal("want error for unknown transport")
	}
	for _, tr := range []string{"srt", "quic"} {
		if d, err := dialer(tr, "127.0.0.1:6000", "k"); err != nil || d == nil {
			t.Errorf("dialer(%q) = %v, %v", tr, d, err)
		}
	}
}

func TestSendLoopWritesLines(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	sent, err := sendLoop(context.Background(), &buf, []string{"a", "b"}, 0, false)
	if err != nil {
		t.Fatalf("sendLoop: %v", err)
	}
	if sent != 2 || buf.String() != "a\nb\n" {
		t.Fatalf("sent %d, wrote %q", sent, buf.String())
	}
}

type failAfter struct {
	n int
}

func (f *failAfter) Write(p []byte) (int, error) {
	if f.n == 0 {
		return 0, errors.New("connection reset")
	}
	f.n--
	return len(p), nil
}

func TestSendLoopStopsOnWriteError(t *testing.T) {
	t.Parallel()

	sent, err := sendLoop(context.Background(), &failAfter{n: 3}, []string{"a", "b"}, 0, true)
	if err == nil {
		t.Fatal("want write error")
	}
	if sent != 3 {
		t.Fatalf("sent = %d, want 3", sent)
	}
}

func TestSendLoopCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var buf bytes.Buffer
	sent, err := sendLoop(ctx, &buf, []string{"a", "b"}, 0, true)
	if err != nil {
		t.Fatalf("sendLoop: %v", err)
	}
	if sent != 1 {
		t.Fatalf("sent = %d, want 1 before noticing cancellation", sent)
	}
}
