package feed

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/zsiec/splice/internal/stats"
	"github.com/zsiec/splice/scte35"
)

const (
	providerAdStart = "fc302700000000000000fff00506fe000dbba00011020f43554549000000017fbf0000300101ee197d02"

	// splice_insert, out of network, with a Provider Advertisement Start
	// segmentation descriptor.
	insertWithSegmentation = "/DBDAAAAAAAAAP/wFAVIAACPf+/+c2nALv4AUsz1AAAAAAAeAhxDVUVJSAAAj3//AABSzPUICAAAAALLoaLzMAEBKVEgQg=="
)

type fakeSink struct {
	mu   sync.Mutex
	recs []Record
	err  error
}

func (f *fakeSink) Write(_ context.Context, rec Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recs = append(f.recs, rec)
	return f.err
}

func (f *fakeSink) records() []Record {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Record(nil), f.recs...)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunDecodesLines(t *testing.T) {
	t.Parallel()

	input := strings.Join([]string{
		providerAdStart,
		"",
		"# comment",
		"0x1ff,12.5," + insertWithSegmentation,
		"not a cue",
		"1,2",
	}, "\n")

	set := stats.NewSet()
	sink := &fakeSink{}
	d := NewDecoder(set, discardLogger(), WithSinks(sink))

	if err := d.Run(context.Background(), "studio-a", strings.NewReader(input)); err != nil {
		t.Fatalf("Run: %v", err)
	}

	recs := sink.records()
	if len(recs) != 2 {
		t.Fatalf("records = %d, want 2", len(recs))
	}

	first := recs[0]
	if first.Feed != "studio-a" || first.Line != 1 {
		t.Fatalf("first record = %s line %d, want studio-a line 1", first.Feed, first.Line)
	}
	if first.Event.CommandType != "time_signal" {
		t.Fatalf("first CommandType = %q, want time_signal", first.Event.CommandType)
	}
	if first.Splice.Packet != nil {
		t.Fatal("first record has packet context, want none")
	}

	second := recs[1]
	if second.Line != 4 {
		t.Fatalf("second Line = %d, want 4", second.Line)
	}
	if second.Input != insertWithSegmentation {
		t.Fatalf("second Input = %q", second.Input)
	}
	pkt := second.Splice.Packet
	if pkt == nil || pkt.PID == nil || *pkt.PID != 0x1ff {
		t.Fatalf("second PID = %+v, want 0x1ff", pkt)
	}
	if pkt.PTS == nil || *pkt.PTS != 12.5 {
		t.Fatalf("second PTS = %+v, want 12.5", pkt.PTS)
	}
	if second.Event.EventID != 0x4800008f {
		t.Fatalf("second EventID = %#x, want 0x4800008f", second.Event.EventID)
	}
	if second.Event.Description != "Provider Advertisement Start" {
		t.Fatalf("second Description = %q", second.Event.Description)
	}

	cs := set.Feed("studio-a").Snapshot()
	if cs.TotalCues != 2 {
		t.Fatalf("TotalCues = %d, want 2", cs.TotalCues)
	}
	if cs.FailedCues != 2 {
		t.Fatalf("FailedCues = %d, want 2", cs.FailedCues)
	}
	if cs.ByCommand["splice_insert"] != 1 || cs.ByCommand["time_signal"] != 1 {
		t.Fatalf("ByCommand = %v", cs.ByCommand)
	}
}

func TestRunSinkErrorDoesNotStopFeed(t *testing.T) {
	t.Parallel()

	sink := &fakeSink{err: errors.New("unavailable")}
	d := NewDecoder(stats.NewSet(), discardLogger(), WithSinks(sink))

	input := providerAdStart + "\n" + providerAdStart + "\n"
	if err := d.Run(context.Background(), "k", strings.NewReader(input)); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := len(sink.records()); got != 2 {
		t.Fatalf("records = %d, want 2", got)
	}
}

func TestRunCRCCheckLogsMismatch(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))
	sink := &fakeSink{}
	d := NewDecoder(stats.NewSet(), log, WithSinks(sink), WithCRCCheck())

	bad := providerAdStart[:len(providerAdStart)-1] + "3"
	if err := d.Run(context.Background(), "k", strings.NewReader(providerAdStart+"\n"+bad+"\n")); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := len(sink.records()); got != 2 {
		t.Fatalf("records = %d, want 2", got)
	}
	if n := strings.Count(buf.String(), "CRC check failed"); n != 1 {
		t.Fatalf("CRC failures logged = %d, want 1\n%s", n, buf.String())
	}
}

func TestRunCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sink := &fakeSink{}
	d := NewDecoder(stats.NewSet(), discardLogger(), WithSinks(sink))
	if err := d.Run(ctx, "k", strings.NewReader(providerAdStart+"\n")); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := len(sink.records()); got != 0 {
		t.Fatalf("records = %d after cancel, want 0", got)
	}
}

func TestRunClosedPipe(t *testing.T) {
	t.Parallel()

	pr, pw := io.Pipe()
	sink := &fakeSink{}
	d := NewDecoder(stats.NewSet(), discardLogger(), WithSinks(sink))

	done := make(chan error, 1)
	go func() { done <- d.Run(context.Background(), "k", pr) }()

	if _, err := pw.Write([]byte(providerAdStart + "\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	pw.Close()

	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := len(sink.records()); got != 1 {
		t.Fatalf("records = %d, want 1", got)
	}
}

func TestParseLine(t *testing.T) {
	t.Parallel()

	u16 := func(v uint16) *uint16 { return &v }
	f64 := func(v float64) *float64 { return &v }

	tests := []struct {
		name    string
		line    string
		pid     *uint16
		pts     *float64
		cue     string
		wantErr bool
	}{
		{name: "bare", line: "abc", cue: "abc"},
		{name: "decimal pid", line: "500,1.5,abc", pid: u16(500), pts: f64(1.5), cue: "abc"},
		{name: "hex pid", line: "0x1F4,,abc", pid: u16(500), cue: "abc"},
		{name: "leading zero is decimal", line: "010,,abc", pid: u16(10), cue: "abc"},
		{name: "pts only", line: ",38103.868589,abc", pts: f64(38103.868589), cue: "abc"},
		{name: "spaces", line: " 1 , 2 , abc ", pid: u16(1), pts: f64(2), cue: "abc"},
		{name: "two fields", line: "1,abc", wantErr: true},
		{name: "pid overflow", line: "70000,,abc", wantErr: true},
		{name: "bad pts", line: "1,x,abc", wantErr: true},
		{name: "empty cue", line: "1,2,", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseLine(tt.line)
			if tt.wantErr {
				if !errors.Is(err, ErrMalformedLine) {
					t.Fatalf("err = %v, want ErrMalformedLine", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseLine: %v", err)
			}
			if got.Cue != tt.cue {
				t.Errorf("Cue = %q, want %q", got.Cue, tt.cue)
			}
			if (got.PID == nil) != (tt.pid == nil) || (got.PID != nil && *got.PID != *tt.pid) {
				t.Errorf("PID = %v, want %v", got.PID, tt.pid)
			}
			if (got.PTS == nil) != (tt.pts == nil) || (got.PTS != nil && *got.PTS != *tt.pts) {
				t.Errorf("PTS = %v, want %v", got.PTS, tt.pts)
			}
		})
	}
}

func TestDecodeAllPreservesOrder(t *testing.T) {
	t.Parallel()

	inputs := []string{insertWithSegmentation, "bogus", providerAdStart, "0x10,," + providerAdStart}
	results, err := DecodeAll(context.Background(), inputs, 2, scte35.WithLogger(discardLogger()), scte35.WithPID(7))
	if err != nil {
		t.Fatalf("DecodeAll: %v", err)
	}
	if len(results) != len(inputs) {
		t.Fatalf("results = %d, want %d", len(results), len(inputs))
	}
	for i, r := range results {
		if r.Input != inputs[i] {
			t.Errorf("results[%d].Input = %q, want %q", i, r.Input, inputs[i])
		}
	}

	if _, ok := results[0].Splice.Command.(*scte35.SpliceInsert); !ok {
		t.Errorf("results[0] command = %T, want *SpliceInsert", results[0].Splice.Command)
	}
	if !errors.Is(results[1].Err, scte35.ErrInputDecode) {
		t.Errorf("results[1].Err = %v, want ErrInputDecode", results[1].Err)
	}
	if got := *results[2].Splice.Packet.PID; got != 7 {
		t.Errorf("results[2] PID = %d, want 7 from options", got)
	}
	if got := *results[3].Splice.Packet.PID; got != 0x10 {
		t.Errorf("results[3] PID = %d, want 0x10 from line", got)
	}
}

func TestDecodeAllCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := DecodeAll(ctx, []string{providerAdStart}, 1); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
