// Package publish forwards decoded cues to NATS, one JSON message per cue on
// a per-feed subject.
package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/zsiec/splice/internal/feed"
	"github.com/zsiec/splice/internal/stats"
	"github.com/zsiec/splice/scte35"
)

// DefaultSubject is the subject prefix used when none is configured.
const DefaultSubject = "splice.cues"

// Conn is the subset of *nats.Conn the publisher uses.
type Conn interface {
	Publish(subject string, data []byte) error
	Drain() error
}

// Message is the JSON payload published for each cue.
type Message struct {
	Feed       string         `json:"feed"`
	Line       int            `json:"line"`
	ReceivedAt time.Time      `json:"receivedAt"`
	Input      string         `json:"input"`
	Event      stats.CueEvent `json:"event"`
	Splice     *scte35.Splice `json:"splice"`
}

// Publisher is a feed.Sink that publishes every record to
// <subject>.<feed key>.
type Publisher struct {
	conn    Conn
	subject string
	log     *slog.Logger
}

// New wraps an established connection. An empty subject means
// DefaultSubject; a nil logger means slog.Default().
func New(conn Conn, subject string, log *slog.Logger) *Publisher {
	if subject == "" {
		subject = DefaultSubject
	}
	if log == nil {
		log = slog.Default()
	}
	return &Publisher{
		conn:    conn,
		subject: strings.TrimSuffix(subject, "."),
		log:     log.With("component", "publish"),
	}
}

// Connect dials the NATS server at url and returns a Publisher on it. The
// connection reconnects indefinitely and logs disconnects.
func Connect(url, subject string, log *slog.Logger) (*Publisher, error) {
	if log == nil {
		log = slog.Default()
	}
	plog := log.With("component", "publish")

	nc, err := nats.Connect(url,
		nats.Name("splice"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				plog.Warn("NATS disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			plog.Info("NATS reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("publish: connect %s: %w", url, err)
	}
	plog.Info("NATS connected", "url", nc.ConnectedUrl(), "subject", subject)
	return New(nc, subject, log), nil
}

// Subject returns the subject a feed's cues are published on.
func (p *Publisher) Subject(feedKey string) string {
	return p.subject + "." + subjectToken(feedKey)
}

// Write publishes rec. It implements feed.Sink.
func (p *Publisher) Write(_ context.Context, rec feed.Record) error {
	data, err := json.Marshal(Message{
		Feed:       rec.Feed,
		Line:       rec.Line,
		ReceivedAt: rec.ReceivedAt,
		Input:      rec.Input,
		Event:      rec.Event,
		Splice:     rec.Splice,
	})
	if err != nil {
		return fmt.Errorf("publish: marshal: %w", err)
	}

	subject := p.Subject(rec.Feed)
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("publish: %s: %w", subject, err)
	}
	p.log.Debug("published cue", "subject", subject, "bytes", len(data))
	return nil
}

// Close drains pending messages and closes the connection.
func (p *Publisher) Close() error {
	return p.conn.Drain()
}

// subjectToken makes a feed key safe to use as a single subject token.
func subjectToken(key string) string {
	if key == "" {
		return "default"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\r', '\n':
			return '_'
		}
		return r
	}, key)
}
