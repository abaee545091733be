// Package feed turns a newline-delimited stream of encoded cues into decoded
// Records, fanning each one out to the configured Sinks and recording it in
// the per-feed statistics.
//
// Each line is either a bare hex or base64 cue, or "pid,pts,cue" where pid is
// decimal or 0x-prefixed hex and pts is in seconds. Either field may be left
// empty. Blank lines and lines starting with '#' are ignored.
package feed

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/zsiec/splice/internal/stats"
	"github.com/zsiec/splice/scte35"
)

// maxLineSize bounds a single input line. A splice_info_section is at most
// 4096 bytes, so its base64 or hex form always fits.
const maxLineSize = 64 * 1024

// ErrMalformedLine is returned by ParseLine for a line that is not a bare
// cue or a pid,pts,cue triple.
var ErrMalformedLine = errors.New("feed: malformed line")

// Record is one decoded cue together with where and when it arrived.
type Record struct {
	Feed       string
	Line       int
	Input      string
	ReceivedAt time.Time
	Splice     *scte35.Splice
	Event      stats.CueEvent
}

// Sink receives every decoded Record. Implementations must be safe for
// concurrent use because each feed runs its own Decoder loop.
type Sink interface {
	Write(ctx context.Context, rec Record) error
}

// Decoder decodes cue feeds. One Decoder serves every feed.
type Decoder struct {
	log       *slog.Logger
	stats     *stats.Set
	sinks     []Sink
	verifyCRC bool
	now       func() time.Time
}

// Option configures a Decoder.
type Option func(*Decoder)

// WithSinks adds sinks that receive every decoded Record.
func WithSinks(sinks ...Sink) Option {
	return func(d *Decoder) { d.sinks = append(d.sinks, sinks...) }
}

// WithCRCCheck makes the decoder verify each section's CRC_32 and log
// mismatches.
func WithCRCCheck() Option {
	return func(d *Decoder) { d.verifyCRC = true }
}

// NewDecoder creates a Decoder that records into set. A nil logger means
// slog.Default().
func NewDecoder(set *stats.Set, log *slog.Logger, opts ...Option) *Decoder {
	if log == nil {
		log = slog.Default()
	}
	d := &Decoder{
		log:   log.With("component", "feed"),
		stats: set,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run reads lines from r until EOF or ctx is cancelled. Undecodable lines
// are logged and counted but never end the feed. The returned error is nil
// on EOF or cancellation.
func (d *Decoder) Run(ctx context.Context, key string, r io.Reader) error {
	log := d.log.With("feed", key)
	fs := d.stats.Feed(key)
	log.Info("feed started")

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), maxLineSize)

	lineNo := 0
	for sc.Scan() {
		if ctx.Err() != nil {
			log.Info("feed cancelled", "lines", lineNo)
			return nil
		}
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		rec, err := d.decodeLine(log, key, lineNo, line)
		if err != nil {
			fs.RecordFailure()
			log.Warn("cue decode failed", "line", lineNo, "error", err)
			continue
		}
		fs.Record(rec.Event)
		log.Debug("cue", "line", lineNo, "command", rec.Event.CommandType,
			"desc", rec.Event.Description, "eventID", rec.Event.EventID)

		for _, s := range d.sinks {
			if err := s.Write(ctx, rec); err != nil {
				log.Warn("sink write failed", "sink", fmt.Sprintf("%T", s), "line", lineNo, "error", err)
			}
		}
	}

	if err := sc.Err(); err != nil && !errors.Is(err, io.ErrClosedPipe) {
		return fmt.Errorf("feed %s: read: %w", key, err)
	}
	log.Info("feed ended", "lines", lineNo)
	return nil
}

func (d *Decoder) decodeLine(log *slog.Logger, key string, lineNo int, line string) (Record, error) {
	pl, err := ParseLine(line)
	if err != nil {
		return Record{}, err
	}

	opts := []scte35.Option{scte35.WithLogger(log)}
	if pl.PID != nil {
		opts = append(opts, scte35.WithPID(*pl.PID))
	}
	if pl.PTS != nil {
		opts = append(opts, scte35.WithPTS(*pl.PTS))
	}
	sp, err := scte35.DecodeString(pl.Cue, opts...)
	if err != nil {
		return Record{}, err
	}
	if d.verifyCRC {
		if err := sp.VerifyCRC(); err != nil {
			log.Warn("CRC check failed", "line", lineNo, "crc", sp.InfoSection.CRC, "error", err)
		}
	}

	now := d.now()
	return Record{
		Feed:       key,
		Line:       lineNo,
		Input:      pl.Cue,
		ReceivedAt: now,
		Splice:     sp,
		Event:      stats.NewEvent(sp, now),
	}, nil
}

// Line is a parsed feed line.
type Line struct {
	PID *uint16
	PTS *float64
	Cue string
}

// ParseLine splits a feed line into its optional PID and PTS and the
// encoded cue.
func ParseLine(line string) (Line, error) {
	fields := strings.Split(line, ",")
	switch len(fields) {
	case 1:
		return Line{Cue: strings.TrimSpace(fields[0])}, nil
	case 3:
	default:
		return Line{}, fmt.Errorf("%w: %d comma-separated fields", ErrMalformedLine, len(fields))
	}

	var out Line
	if s := strings.TrimSpace(fields[0]); s != "" {
		base := 10
		if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
			s, base = s[2:], 16
		}
		pid, err := strconv.ParseUint(s, base, 16)
		if err != nil {
			return Line{}, fmt.Errorf("%w: pid %q: %w", ErrMalformedLine, s, err)
		}
		p := uint16(pid)
		out.PID = &p
	}
	if s := strings.TrimSpace(fields[1]); s != "" {
		pts, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Line{}, fmt.Errorf("%w: pts %q: %w", ErrMalformedLine, s, err)
		}
		out.PTS = &pts
	}
	out.Cue = strings.TrimSpace(fields[2])
	if out.Cue == "" {
		return Line{}, fmt.Errorf("%w: empty cue", ErrMalformedLine)
	}
	return out, nil
}
