// Package ingest manages active cue feed connections, coupling transport
// byte readers with metadata, lifecycle signaling, and decoder dispatch.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// ErrFeedExists is returned by Register when a feed with the same key is
// already active.
var ErrFeedExists = errors.New("ingest: feed already registered")

// Transport identifies how a feed reached the service.
type Transport int

// Supported feed transports.
const (
	TransportSRT Transport = iota
	TransportQUIC
)

func (t Transport) String() string {
	switch t {
	case TransportSRT:
		return "srt"
	case TransportQUIC:
		return "quic"
	default:
		return fmt.Sprintf("transport(%d)", int(t))
	}
}

// IngestStats captures connection-level metrics for a cue feed.
type IngestStats struct {
	Key           string `json:"key"`
	Transport     string `json:"transport"`
	BytesReceived int64  `json:"bytesReceived"`
	ReadCount     int64  `json:"readCount"`
	ConnectedAt   int64  `json:"connectedAt"`
	UptimeMs      int64  `json:"uptimeMs"`
	RemoteAddr    string `json:"remoteAddr"`
}

// LogValue groups the counters a transport logs when a feed closes.
func (s IngestStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("transport", s.Transport),
		slog.Int64("bytes", s.BytesReceived),
		slog.Int64("reads", s.ReadCount),
		slog.Int64("uptime_ms", s.UptimeMs),
	)
}

// Feed represents an active cue feed connection. Bytes written to the
// internal pipe by the transport receiver are read by the feed decoder.
type Feed struct {
	Key       string
	StartedAt time.Time
	Transport Transport
	input     io.ReadCloser
	pw        io.WriteCloser
	done      chan struct{}

	bytesReceived atomic.Int64
	readCount     atomic.Int64
	remoteAddr    atomic.Value
}

// RecordRead increments the byte and read counters, called by the
// transport receiver after each successful read.
func (f *Feed) RecordRead(n int) {
	f.bytesReceived.Add(int64(n))
	f.readCount.Add(1)
}

// SetRemoteAddr stores the remote address of the connection for
// diagnostics.
func (f *Feed) SetRemoteAddr(addr string) {
	f.remoteAddr.Store(addr)
}

// Done is closed when the feed is unregistered.
func (f *Feed) Done() <-chan struct{} {
	return f.done
}

// Pump copies src into the feed's pipe in reads of at most bufSize bytes
// until src reaches EOF, ctx is cancelled, or the decoder side of the pipe
// closes. EOF and cancellation return nil.
func (f *Feed) Pump(ctx context.Context, src io.Reader, bufSize int) error {
	buf := make([]byte, bufSize)
	for ctx.Err() == nil {
		n, err := src.Read(buf)
		if n > 0 {
			f.RecordRead(n)
			if _, werr := f.pw.Write(buf[:n]); werr != nil {
				return fmt.Errorf("feed %q: pipe write: %w", f.Key, werr)
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("feed %q: read: %w", f.Key, err)
		}
	}
	return nil
}

// IngestStats returns a snapshot of connection metrics.
func (f *Feed) IngestStats() IngestStats {
	addr, _ := f.remoteAddr.Load().(string)
	return IngestStats{
		Key:           f.Key,
		Transport:     f.Transport.String(),
		BytesReceived: f.bytesReceived.Load(),
		ReadCount:     f.readCount.Load(),
		ConnectedAt:   f.StartedAt.UnixMilli(),
		UptimeMs:      time.Since(f.StartedAt).Milliseconds(),
		RemoteAddr:    addr,
	}
}

// Registry tracks active feeds by key and hands each new feed to the
// onFeed callback. It is the rendezvous point between the transport
// listeners and the cue decoder.
type Registry struct {
	mu    sync.RWMutex
	feeds map[string]*Feed

	onFeed func(key string, input io.Reader)
}

// NewRegistry creates a Registry. The onFeed callback is invoked
// asynchronously whenever a new feed is registered.
func NewRegistry(onFeed func(key string, input io.Reader)) *Registry {
	return &Registry{
		feeds:  make(map[string]*Feed),
		onFeed: onFeed,
	}
}

// Register creates a feed with the given key, returning the Feed and a
// Writer that the transport receiver should write into. It fails with
// ErrFeedExists if the key is already in use.
func (r *Registry) Register(key string, transport Transport) (*Feed, io.Writer, error) {
	pr, pw := io.Pipe()

	feed := &Feed{
		Key:       key,
		StartedAt: time.Now(),
		Transport: transport,
		input:     pr,
		pw:        pw,
		done:      make(chan struct{}),
	}

	r.mu.Lock()
	if _, exists := r.feeds[key]; exists {
		r.mu.Unlock()
		return nil, nil, fmt.Errorf("%w: %q", ErrFeedExists, key)
	}
	r.feeds[key] = feed
	r.mu.Unlock()

	if r.onFeed != nil {
		go r.onFeed(key, pr)
	}

	return feed, pw, nil
}

// Unregister removes a feed by key, closing its pipe and signaling Done.
func (r *Registry) Unregister(key string) {
	r.mu.Lock()
	feed, ok := r.feeds[key]
	if ok {
		delete(r.feeds, key)
	}
	r.mu.Unlock()

	if ok {
		feed.pw.Close()
		close(feed.done)
	}
}

// Get returns the Feed for the given key, or false if not found.
func (r *Registry) Get(key string) (*Feed, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.feeds[key]
	return f, ok
}

// Stats returns connection metrics for every active feed, ordered by key.
func (r *Registry) Stats() []IngestStats {
	r.mu.RLock()
	feeds := make([]*Feed, 0, len(r.feeds))
	for _, f := range r.feeds {
		feeds = append(feeds, f)
	}
	r.mu.RUnlock()

	sort.Slice(feeds, func(i, j int) bool { return feeds[i].Key < feeds[j].Key })
	out := make([]IngestStats, len(feeds))
	for i, f := range feeds {
		out[i] = f.IngestStats()
	}
	return out
}
