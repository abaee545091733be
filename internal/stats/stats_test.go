package stats

import (
	"sync"
	"testing"
	"time"

	"github.com/zsiec/splice/scte35"
)

func TestNewEventSpliceInsert(t *testing.T) {
	t.Parallel()

	pts := scte35.Ticks(900000)
	sp := &scte35.Splice{
		Command: &scte35.SpliceInsert{
			SpliceEventID:         42,
			OutOfNetworkIndicator: true,
			SpliceTime:            &scte35.SpliceTime{PTSTime: &pts},
			BreakDuration:         &scte35.BreakDuration{AutoReturn: true, Duration: 2700000},
		},
	}
	now := time.UnixMilli(1700000000000)

	ev := NewEvent(sp, now)
	if ev.CommandType != "splice_insert" {
		t.Fatalf("CommandType = %q, want splice_insert", ev.CommandType)
	}
	if ev.CommandTypeID != scte35.SpliceInsertType {
		t.Fatalf("CommandTypeID = %d, want %d", ev.CommandTypeID, scte35.SpliceInsertType)
	}
	if ev.EventID != 42 {
		t.Fatalf("EventID = %d, want 42", ev.EventID)
	}
	if ev.PTS != 10 {
		t.Fatalf("PTS = %v, want 10", ev.PTS)
	}
	if ev.Duration != 30 {
		t.Fatalf("Duration = %v, want 30", ev.Duration)
	}
	if !ev.OutOfNetwork {
		t.Fatal("OutOfNetwork = false, want true")
	}
	if ev.Description != "Splice Out (Ad Insertion)" {
		t.Fatalf("Description = %q", ev.Description)
	}
	if ev.ReceivedAt != now.UnixMilli() {
		t.Fatalf("ReceivedAt = %d, want %d", ev.ReceivedAt, now.UnixMilli())
	}
}

func TestNewEventSpliceInsertReturn(t *testing.T) {
	t.Parallel()

	sp := &scte35.Splice{Command: &scte35.SpliceInsert{SpliceEventID: 1, SpliceImmediateFlag: true}}
	ev := NewEvent(sp, time.Now())
	if ev.Description != "Splice In (Return to Program)" {
		t.Fatalf("Description = %q", ev.Description)
	}
	if !ev.Immediate {
		t.Fatal("Immediate = false, want true")
	}
}

func TestNewEventSegmentationOverridesCommand(t *testing.T) {
	t.Parallel()

	dur := scte35.Ticks(5400000)
	sp := &scte35.Splice{
		Command: &scte35.TimeSignal{},
		Descriptors: scte35.SpliceDescriptors{
			&scte35.AvailDescriptor{},
			&scte35.SegmentationDescriptor{
				SegmentationEventID:  7,
				SegmentationTypeID:   scte35.SegmentationTypeProviderAdStart,
				SegmentationDuration: &dur,
			},
			&scte35.SegmentationDescriptor{SegmentationEventID: 8},
		},
		Warnings: []scte35.Warning{{Field: "CRC_32"}},
	}

	ev := NewEvent(sp, time.Now())
	if ev.CommandType != "time_signal" {
		t.Fatalf("CommandType = %q, want time_signal", ev.CommandType)
	}
	if ev.EventID != 7 {
		t.Fatalf("EventID = %d, want first segmentation descriptor's 7", ev.EventID)
	}
	if ev.SegmentationType != "Provider Advertisement Start" {
		t.Fatalf("SegmentationType = %q", ev.SegmentationType)
	}
	if ev.Description != ev.SegmentationType {
		t.Fatalf("Description = %q, want %q", ev.Description, ev.SegmentationType)
	}
	if ev.Duration != 60 {
		t.Fatalf("Duration = %v, want 60", ev.Duration)
	}
	if ev.Warnings != 1 {
		t.Fatalf("Warnings = %d, want 1", ev.Warnings)
	}
}

func TestNewEventCommandNames(t *testing.T) {
	t.Parallel()

	tests := []struct {
		cmd  scte35.SpliceCommand
		want string
	}{
		{&scte35.SpliceNull{}, "splice_null"},
		{&scte35.SpliceSchedule{}, "splice_schedule"},
		{&scte35.SpliceInsert{}, "splice_insert"},
		{&scte35.TimeSignal{}, "time_signal"},
		{&scte35.BandwidthReservation{}, "bandwidth_reservation"},
		{&scte35.PrivateCommand{}, "private_command"},
	}
	for _, tt := range tests {
		ev := NewEvent(&scte35.Splice{Command: tt.cmd}, time.Now())
		if ev.CommandType != tt.want {
			t.Errorf("%T: CommandType = %q, want %q", tt.cmd, ev.CommandType, tt.want)
		}
		if ev.CommandTypeID != tt.cmd.Type() {
			t.Errorf("%T: CommandTypeID = %d, want %d", tt.cmd, ev.CommandTypeID, tt.cmd.Type())
		}
	}
}

func TestFeedStatsRecentWindowBounded(t *testing.T) {
	t.Parallel()

	fs := NewFeedStats("a")
	now := time.Now()
	for i := range maxRecentCues + 5 {
		fs.Record(CueEvent{CommandType: "splice_null", EventID: uint32(i), ReceivedAt: now.UnixMilli()})
	}

	cs := fs.snapshotAt(now)
	if cs.TotalCues != int64(maxRecentCues+5) {
		t.Fatalf("TotalCues = %d, want %d", cs.TotalCues, maxRecentCues+5)
	}
	if len(cs.Recent) != maxRecentCues {
		t.Fatalf("len(Recent) = %d, want %d", len(cs.Recent), maxRecentCues)
	}
	if cs.Recent[0].EventID != 5 {
		t.Fatalf("oldest kept EventID = %d, want 5", cs.Recent[0].EventID)
	}
	if cs.ByCommand["splice_null"] != int64(maxRecentCues+5) {
		t.Fatalf("ByCommand[splice_null] = %d", cs.ByCommand["splice_null"])
	}
}

func TestFeedStatsRecentExpiry(t *testing.T) {
	t.Parallel()

	fs := NewFeedStats("a")
	now := time.Now()
	fs.Record(CueEvent{CommandType: "time_signal", ReceivedAt: now.Add(-(cueExpirySec + 1) * time.Second).UnixMilli()})
	fs.Record(CueEvent{CommandType: "time_signal", ReceivedAt: now.UnixMilli()})
	fs.RecordFailure()

	cs := fs.snapshotAt(now)
	if len(cs.Recent) != 1 {
		t.Fatalf("len(Recent) = %d, want 1 after expiry", len(cs.Recent))
	}
	if cs.TotalCues != 2 {
		t.Fatalf("TotalCues = %d, want 2", cs.TotalCues)
	}
	if cs.FailedCues != 1 {
		t.Fatalf("FailedCues = %d, want 1", cs.FailedCues)
	}
	if cs.LastCueAt != now.UnixMilli() {
		t.Fatalf("LastCueAt = %d, want %d", cs.LastCueAt, now.UnixMilli())
	}
}

func TestFeedStatsConcurrent(t *testing.T) {
	t.Parallel()

	fs := NewFeedStats("a")
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				fs.Record(CueEvent{CommandType: "splice_insert", Warnings: 1, ReceivedAt: time.Now().UnixMilli()})
				_ = fs.Snapshot()
			}
		}()
	}
	wg.Wait()

	cs := fs.Snapshot()
	if cs.TotalCues != 800 {
		t.Fatalf("TotalCues = %d, want 800", cs.TotalCues)
	}
	if cs.Warnings != 800 {
		t.Fatalf("Warnings = %d, want 800", cs.Warnings)
	}
}

func TestSetFeedAndSnapshots(t *testing.T) {
	t.Parallel()

	s := NewSet()
	for _, key := range []string{"c", "a", "b"} {
		s.Feed(key).Record(CueEvent{CommandType: "splice_null", ReceivedAt: time.Now().UnixMilli()})
	}
	if s.Feed("a") != s.Feed("a") {
		t.Fatal("Feed returned different instances for the same key")
	}

	snaps := s.Snapshots()
	if len(snaps) != 3 {
		t.Fatalf("len(Snapshots) = %d, want 3", len(snaps))
	}
	for i, want := range []string{"a", "b", "c"} {
		if snaps[i].Feed != want {
			t.Errorf("Snapshots[%d].Feed = %q, want %q", i, snaps[i].Feed, want)
		}
	}

	s.Remove("b")
	if got := len(s.Snapshots()); got != 2 {
		t.Fatalf("len(Snapshots) after Remove = %d, want 2", got)
	}
}
