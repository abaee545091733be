// Package quic carries SCTE-35 cue feeds over QUIC. Each unidirectional
// or bidirectional stream a client opens becomes its own feed.
package quic

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	quicgo "github.com/quic-go/quic-go"

	"github.com/zsiec/splice/certs"
	"github.com/zsiec/splice/ingest"
)

// ALPN is the application protocol clients must negotiate.
const ALPN = "splice-cue"

const (
	readBufferSize = 4096
	maxIdleTimeout = 30 * time.Second
)

// Server accepts QUIC connections and registers every stream on them
// with the ingest registry as a cue feed keyed "<remote>/<stream id>".
type Server struct {
	log      *slog.Logger
	addr     string
	cert     *certs.CertInfo
	registry *ingest.Registry
}

// NewServer creates a QUIC server that listens on addr with the given
// certificate. If log is nil, slog.Default() is used.
func NewServer(addr string, cert *certs.CertInfo, registry *ingest.Registry, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		log:      log.With("component", "quic-server"),
		addr:     addr,
		cert:     cert,
		registry: registry,
	}
}

// Start listens on the configured address and serves until the context
// is cancelled.
func (s *Server) Start(ctx context.Context) error {
	ln, err := quicgo.ListenAddr(s.addr, s.cert.TLSConfig(ALPN), &quicgo.Config{
		MaxIdleTimeout: maxIdleTimeout,
	})
	if err != nil {
		return fmt.Errorf("QUIC listen on %s: %w", s.addr, err)
	}
	s.log.Info("listening", "addr", ln.Addr().String(), "fingerprint", s.cert.FingerprintBase64())
	return s.Serve(ctx, ln)
}

// Serve accepts connections from ln until the context is cancelled. It
// closes ln before returning.
func (s *Server) Serve(ctx context.Context, ln *quicgo.Listener) error {
	stop := context.AfterFunc(ctx, func() { ln.Close() })
	defer stop()
	defer ln.Close()

	for {
		conn, err := ln.Accept(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("QUIC accept: %w", err)
		}
		s.log.Info("connection", "remote", conn.RemoteAddr())
		go s.handleConnection(ctx, conn)
	}
}

func (s *Server) handleConnection(ctx context.Context, conn quicgo.Connection) {
	defer conn.CloseWithError(0, "")

	for {
		stream, err := conn.AcceptStream(ctx)
		if err != nil {
			s.log.Debug("connection closed", "remote", conn.RemoteAddr(), "error", err)
			return
		}
		key := fmt.Sprintf("%s/%d", conn.RemoteAddr(), stream.StreamID())
		go s.handleStream(ctx, conn, stream, key)
	}
}

func (s *Server) handleStream(ctx context.Context, conn quicgo.Connection, stream quicgo.Stream, feedKey string) {
	defer stream.Close()
	log := s.log.With("feed", feedKey)

	feed, _, err := s.registry.Register(feedKey, ingest.TransportQUIC)
	if err != nil {
		log.Warn("rejecting stream", "error", err)
		stream.CancelRead(0)
		return
	}
	feed.SetRemoteAddr(conn.RemoteAddr().String())

	if err := feed.Pump(ctx, stream, readBufferSize); err != nil {
		log.Debug("stream interrupted", "error", err)
	}
	s.registry.Unregister(feedKey)
	log.Info("stream closed", "ingest", feed.IngestStats())
}
