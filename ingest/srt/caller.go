package srt

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	srtgo "github.com/zsiec/srtgo"

	"github.com/zsiec/splice/ingest"
)

// PullRequest describes a remote SRT cue source to pull from. StreamID
// defaults to "cue/<FeedKey>".
type PullRequest struct {
	Address  string `json:"address"`
	FeedKey  string `json:"feedKey"`
	StreamID string `json:"streamId,omitempty"`
}

const dialTimeoutDur = 10 * time.Second

type activePull struct {
	req    PullRequest
	cancel context.CancelFunc
}

// Caller manages SRT pull connections, dialing remote cue sources and
// streaming their bytes into the ingest registry.
type Caller struct {
	log      *slog.Logger
	registry *ingest.Registry

	mu    sync.Mutex
	pulls map[string]*activePull
}

// NewCaller creates a Caller that uses the given registry to register
// pulled feeds. If log is nil, slog.Default() is used.
func NewCaller(registry *ingest.Registry, log *slog.Logger) *Caller {
	if log == nil {
		log = slog.Default()
	}
	return &Caller{
		log:      log.With("component", "srt-caller"),
		registry: registry,
		pulls:    make(map[string]*activePull),
	}
}

// Pull dials the remote SRT listener synchronously (with a timeout),
// returning an error if the connection fails. On success, streaming
// continues in a background goroutine.
func (c *Caller) Pull(ctx context.Context, req PullRequest) error {
	if req.Address == "" {
		return fmt.Errorf("address is required")
	}
	if req.FeedKey == "" {
		return fmt.Errorf("feedKey is required")
	}

	c.mu.Lock()
	if _, exists := c.pulls[req.FeedKey]; exists {
		c.mu.Unlock()
		return fmt.Errorf("pull already active for feed %q", req.FeedKey)
	}
	c.mu.Unlock()

	c.log.Info("dialing", "address", req.Address, "feed", req.FeedKey)
	cfg := srtgo.DefaultConfig()
	cfg.Latency = latencyNs
	cfg.StreamID = req.streamID()
	conn, err := dialTimeout(ctx, req.Address, dialTimeoutDur, func() (*srtgo.Conn, error) {
		return srtgo.Dial(req.Address, cfg)
	})
	if err != nil {
		return err
	}
	return c.startStreaming(ctx, req, conn)
}

func (r PullRequest) streamID() string {
	if r.StreamID != "" {
		return r.StreamID
	}
	return streamIDPrefix + r.FeedKey
}

// dialTimeout runs dial, which takes no context, in the background. A
// connection that completes after the caller gave up is closed.
func dialTimeout(ctx context.Context, addr string, d time.Duration, dial func() (*srtgo.Conn, error)) (*srtgo.Conn, error) {
	type dialResult struct {
		conn *srtgo.Conn
		err  error
	}
	ch := make(chan dialResult, 1)
	go func() {
		conn, err := dial()
		ch <- dialResult{conn, err}
	}()

	timer := time.NewTimer(d)
	defer timer.Stop()

	var err error
	select {
	case res := <-ch:
		if res.err != nil {
			return nil, fmt.Errorf("SRT dial %s: %w", addr, res.err)
		}
		return res.conn, nil
	case <-timer.C:
		err = fmt.Errorf("SRT dial %s timed out after %s", addr, d)
	case <-ctx.Done():
		err = ctx.Err()
	}
	go func() {
		if res := <-ch; res.conn != nil {
			res.conn.Close()
		}
	}()
	return nil, err
}

func (c *Caller) startStreaming(ctx context.Context, req PullRequest, conn *srtgo.Conn) error {
	pullCtx, cancel := context.WithCancel(ctx)

	c.mu.Lock()
	if _, exists := c.pulls[req.FeedKey]; exists {
		c.mu.Unlock()
		cancel()
		conn.Close()
		return fmt.Errorf("pull already active for feed %q", req.FeedKey)
	}
	c.pulls[req.FeedKey] = &activePull{req: req, cancel: cancel}
	c.mu.Unlock()

	release := func() {
		cancel()
		c.mu.Lock()
		delete(c.pulls, req.FeedKey)
		c.mu.Unlock()
	}

	feed, _, err := c.registry.Register(req.FeedKey, ingest.TransportSRT)
	if err != nil {
		release()
		conn.Close()
		return err
	}
	feed.SetRemoteAddr(req.Address)
	log := c.log.With("feed", req.FeedKey)
	log.Info("connected", "address", req.Address)

	go func() {
		defer release()
		defer conn.Close()

		if err := feed.Pump(pullCtx, conn, readBufferSize); err != nil {
			log.Debug("pull interrupted", "error", err)
		}
		c.registry.Unregister(req.FeedKey)
		log.Info("pull ended", "ingest", feed.IngestStats())
	}()

	return nil
}

// Stop cancels the pull for feedKey.
func (c *Caller) Stop(feedKey string) error {
	c.mu.Lock()
	ap, ok := c.pulls[feedKey]
	c.mu.Unlock()

	if !ok {
		return fmt.Errorf("no active pull for feed %q", feedKey)
	}

	ap.cancel()
	return nil
}

// ActivePulls lists the pulls currently streaming.
func (c *Caller) ActivePulls() []PullRequest {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]PullRequest, 0, len(c.pulls))
	for _, ap := range c.pulls {
		out = append(out, ap.req)
	}
	return out
}

// ParsePullRequest parses a pull spec of the form "key=host:port" or
// "key=host:port/streamid".
func ParsePullRequest(spec string) (PullRequest, error) {
	key, addr, ok := strings.Cut(spec, "=")
	if !ok || key == "" || addr == "" {
		return PullRequest{}, fmt.Errorf("pull %q: want key=host:port[/streamid]", spec)
	}
	req := PullRequest{FeedKey: key, Address: addr}
	if host, streamID, found := strings.Cut(addr, "/"); found {
		req.Address = host
		req.StreamID = streamID
	}
	return req, nil
}

// Keep pulls req until ctx is cancelled, dialing again after retry each
// time the pull fails or the remote side closes the feed.
func (c *Caller) Keep(ctx context.Context, req PullRequest, retry time.Duration) {
	for {
		if err := c.Pull(ctx, req); err != nil {
			if ctx.Err() != nil {
				return
			}
			c.log.Warn("pull failed", "feed", req.FeedKey, "address", req.Address, "error", err, "retry", retry)
		} else if feed, ok := c.registry.Get(req.FeedKey); ok {
			select {
			case <-feed.Done():
			case <-ctx.Done():
				return
			}
		}

		t := time.NewTimer(retry)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return
		}
	}
}
