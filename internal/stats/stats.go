// Package stats keeps per-feed counters and a short window of recent cue
// events for the serve mode's status log and API consumers.
package stats

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zsiec/splice/scte35"
)

const (
	maxRecentCues = 20
	cueExpirySec  = 30
)

// CueEvent is a one-line summary of a decoded splice_info_section.
type CueEvent struct {
	PTS                float64 `json:"pts,omitempty"`
	CommandType        string  `json:"commandType"`
	CommandTypeID      uint32  `json:"commandTypeId"`
	EventID            uint32  `json:"eventId,omitempty"`
	SegmentationType   string  `json:"segmentationType,omitempty"`
	SegmentationTypeID uint32  `json:"segmentationTypeId,omitempty"`
	Duration           float64 `json:"duration,omitempty"`
	OutOfNetwork       bool    `json:"outOfNetwork,omitempty"`
	Immediate          bool    `json:"immediate,omitempty"`
	Warnings           int     `json:"warnings,omitempty"`
	Description        string  `json:"description"`
	ReceivedAt         int64   `json:"receivedAt"`
}

// NewEvent summarizes sp. The first segmentation descriptor, if any,
// supplies the event id, duration and description.
func NewEvent(sp *scte35.Splice, receivedAt time.Time) CueEvent {
	event := CueEvent{
		ReceivedAt: receivedAt.UnixMilli(),
		Warnings:   len(sp.Warnings),
	}
	if sp.Command == nil {
		event.CommandType = "unknown"
		event.Description = "Unknown Command"
		return event
	}
	event.CommandTypeID = sp.Command.Type()

	switch cmd := sp.Command.(type) {
	case *scte35.SpliceInsert:
		event.CommandType = "splice_insert"
		event.EventID = cmd.SpliceEventID
		event.OutOfNetwork = cmd.OutOfNetworkIndicator
		event.Immediate = cmd.SpliceImmediateFlag
		if cmd.SpliceTime != nil && cmd.SpliceTime.PTSTime != nil {
			event.PTS = cmd.SpliceTime.PTSTime.Seconds()
		}
		if cmd.BreakDuration != nil {
			event.Duration = cmd.BreakDuration.Duration.Seconds()
		}
		switch {
		case cmd.SpliceEventCancelIndicator:
			event.Description = "Splice Cancel"
		case event.OutOfNetwork:
			event.Description = "Splice Out (Ad Insertion)"
		default:
			event.Description = "Splice In (Return to Program)"
		}
	case *scte35.TimeSignal:
		event.CommandType = "time_signal"
		if cmd.SpliceTime.PTSTime != nil {
			event.PTS = cmd.SpliceTime.PTSTime.Seconds()
		}
		event.Description = "Time Signal"
	case *scte35.SpliceNull:
		event.CommandType = "splice_null"
		event.Description = "Heartbeat"
	case *scte35.SpliceSchedule:
		event.CommandType = "splice_schedule"
		event.Description = "Splice Schedule"
	case *scte35.BandwidthReservation:
		event.CommandType = "bandwidth_reservation"
		event.Description = "Bandwidth Reservation"
	case *scte35.PrivateCommand:
		event.CommandType = "private_command"
		event.Description = "Private Command"
	default:
		event.CommandType = "unknown"
		event.Description = "Unknown Command"
	}

	for _, desc := range sp.Descriptors {
		if sd, ok := desc.(*scte35.SegmentationDescriptor); ok {
			event.EventID = sd.SegmentationEventID
			event.SegmentationTypeID = sd.SegmentationTypeID
			event.SegmentationType = sd.TypeName()
			if sd.SegmentationDuration != nil {
				event.Duration = sd.SegmentationDuration.Seconds()
			}
			event.Description = sd.TypeName()
			break
		}
	}
	return event
}

// CueStats summarizes cue activity for one feed.
type CueStats struct {
	Feed       string           `json:"feed"`
	TotalCues  int64            `json:"totalCues"`
	FailedCues int64            `json:"failedCues"`
	Warnings   int64            `json:"warnings"`
	ByCommand  map[string]int64 `json:"byCommand,omitempty"`
	LastCueAt  int64            `json:"lastCueAt,omitempty"`
	Recent     []CueEvent       `json:"recent,omitempty"`
}

// FeedStats accumulates cue statistics for a single feed. It is safe for
// concurrent use.
type FeedStats struct {
	feed string

	total    atomic.Int64
	failed   atomic.Int64
	warnings atomic.Int64
	lastCue  atomic.Int64

	// mu guards byCommand and recent
	mu        sync.RWMutex
	byCommand map[string]int64
	recent    []CueEvent
}

// NewFeedStats creates an empty FeedStats for feed.
func NewFeedStats(feed string) *FeedStats {
	return &FeedStats{
		feed:      feed,
		byCommand: make(map[string]int64),
	}
}

// Record adds a decoded cue, maintaining a bounded recent-events window.
func (fs *FeedStats) Record(event CueEvent) {
	fs.total.Add(1)
	fs.warnings.Add(int64(event.Warnings))
	fs.lastCue.Store(event.ReceivedAt)

	fs.mu.Lock()
	fs.byCommand[event.CommandType]++
	fs.recent = append(fs.recent, event)
	if len(fs.recent) > maxRecentCues {
		fs.recent = fs.recent[len(fs.recent)-maxRecentCues:]
	}
	fs.mu.Unlock()
}

// RecordFailure counts a cue that could not be decoded.
func (fs *FeedStats) RecordFailure() {
	fs.failed.Add(1)
}

// Snapshot returns the current counters and the events received within the
// expiry window.
func (fs *FeedStats) Snapshot() CueStats {
	return fs.snapshotAt(time.Now())
}

func (fs *FeedStats) snapshotAt(now time.Time) CueStats {
	cs := CueStats{
		Feed:       fs.feed,
		TotalCues:  fs.total.Load(),
		FailedCues: fs.failed.Load(),
		Warnings:   fs.warnings.Load(),
		LastCueAt:  fs.lastCue.Load(),
	}

	cutoff := now.UnixMilli() - cueExpirySec*1000
	fs.mu.RLock()
	if len(fs.byCommand) > 0 {
		cs.ByCommand = make(map[string]int64, len(fs.byCommand))
		for k, v := range fs.byCommand {
			cs.ByCommand[k] = v
		}
	}
	for _, e := range fs.recent {
		if e.ReceivedAt >= cutoff {
			cs.Recent = append(cs.Recent, e)
		}
	}
	fs.mu.RUnlock()
	return cs
}

// Set holds FeedStats keyed by feed.
type Set struct {
	mu    sync.RWMutex
	feeds map[string]*FeedStats
}

// NewSet creates an empty Set.
func NewSet() *Set {
	return &Set{feeds: make(map[string]*FeedStats)}
}

// Feed returns the FeedStats for key, creating it on first use.
func (s *Set) Feed(key string) *FeedStats {
	s.mu.RLock()
	fs, ok := s.feeds[key]
	s.mu.RUnlock()
	if ok {
		return fs
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if fs, ok := s.feeds[key]; ok {
		return fs
	}
	fs = NewFeedStats(key)
	s.feeds[key] = fs
	return fs
}

// Remove drops the statistics for key.
func (s *Set) Remove(key string) {
	s.mu.Lock()
	delete(s.feeds, key)
	s.mu.Unlock()
}

// Snapshots returns a snapshot of every feed, sorted by feed key.
func (s *Set) Snapshots() []CueStats {
	s.mu.RLock()
	feeds := make([]*FeedStats, 0, len(s.feeds))
	for _, fs := range s.feeds {
		feeds = append(feeds, fs)
	}
	s.mu.RUnlock()

	out := make([]CueStats, 0, len(feeds))
	for _, fs := range feeds {
		out = append(out, fs.Snapshot())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Feed < out[j].Feed })
	return out
}
