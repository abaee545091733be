package srt

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	srtgo "github.com/zsiec/srtgo"

	"github.com/zsiec/splice/ingest"
)

const (
	// readBufferSize holds several SRT payloads (1316 bytes each); cue
	// lines are short, so one read usually carries many.
	readBufferSize = 1316 * 4

	latencyNs = 120_000_000

	streamIDPrefix = "cue/"
	maxFeedKeyLen  = 128
)

// Server accepts SRT publishers and turns each connection into a cue feed
// in the ingest registry. The SRT stream ID names the feed.
type Server struct {
	log      *slog.Logger
	addr     string
	registry *ingest.Registry
}

// NewServer creates an SRT server for addr. If log is nil, slog.Default()
// is used.
func NewServer(addr string, registry *ingest.Registry, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		log:      log.With("component", "srt-server"),
		addr:     addr,
		registry: registry,
	}
}

// Start listens on the configured address and accepts publishers until
// ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	cfg := srtgo.DefaultConfig()
	cfg.Latency = latencyNs

	l, err := srtgo.Listen(s.addr, cfg)
	if err != nil {
		return fmt.Errorf("SRT listen on %s: %w", s.addr, err)
	}
	l.SetAcceptRejectFunc(func(req srtgo.ConnRequest) srtgo.RejectReason {
		if reason := s.admit(req.StreamID); reason != "" {
			s.log.Warn("rejecting publisher", "stream_id", req.StreamID, "reason", reason)
			return srtgo.RejPeer
		}
		return 0
	})
	s.log.Info("listening", "addr", s.addr)

	stop := context.AfterFunc(ctx, func() { l.Close() })
	defer stop()

	for {
		conn, err := l.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.log.Warn("accept error", "error", err)
			continue
		}
		go s.serveFeed(ctx, conn)
	}
}

// admit reports why a publisher with streamID must be turned away, or ""
// to accept it. Register repeats the duplicate check, since two publishers
// can race through the handshake.
func (s *Server) admit(streamID string) string {
	if streamID == "" {
		return "missing stream id"
	}
	key := feedKeyFromStreamID(streamID)
	if !validFeedKey(key) {
		return "invalid feed key"
	}
	if _, busy := s.registry.Get(key); busy {
		return "feed already publishing"
	}
	return ""
}

func (s *Server) serveFeed(ctx context.Context, conn *srtgo.Conn) {
	defer conn.Close()

	key := feedKeyFromStreamID(conn.StreamID())
	log := s.log.With("feed", key)

	feed, _, err := s.registry.Register(key, ingest.TransportSRT)
	if err != nil {
		log.Warn("dropping publisher", "remote", conn.RemoteAddr(), "error", err)
		return
	}
	feed.SetRemoteAddr(conn.RemoteAddr().String())
	log.Info("publishing", "remote", conn.RemoteAddr())

	if err := feed.Pump(ctx, conn, readBufferSize); err != nil {
		log.Debug("feed interrupted", "error", err)
	}
	s.registry.Unregister(key)
	log.Info("publisher gone", "ingest", feed.IngestStats())
}

// feedKeyFromStreamID maps an SRT stream ID such as "/cue/channel1" to
// the feed key "channel1". An empty remainder becomes "default".
func feedKeyFromStreamID(streamID string) string {
	key := strings.TrimPrefix(streamID, "/")
	key = strings.TrimPrefix(key, streamIDPrefix)
	if key == "" {
		return "default"
	}
	return key
}

// validFeedKey accepts printable keys without spaces, up to maxFeedKeyLen
// bytes.
func validFeedKey(key string) bool {
	if key == "" || len(key) > maxFeedKeyLen {
		return false
	}
	for _, r := range key {
		if unicode.IsSpace(r) || !unicode.IsPrint(r) {
			return false
		}
	}
	return true
}
