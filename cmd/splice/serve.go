package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/zsiec/splice/certs"
	"github.com/zsiec/splice/ingest"
	quicingest "github.com/zsiec/splice/ingest/quic"
	srtingest "github.com/zsiec/splice/ingest/srt"
	"github.com/zsiec/splice/internal/feed"
	"github.com/zsiec/splice/internal/publish"
	"github.com/zsiec/splice/internal/stats"
	"github.com/zsiec/splice/internal/storage"
)

const pullRetry = 5 * time.Second

type serveConfig struct {
	srtAddr       string
	quicAddr      string
	pulls         []string
	natsURL       string
	natsSubject   string
	dbPath        string
	certFile      string
	keyFile       string
	verifyCRC     bool
	statsInterval time.Duration
}

// stringList collects a repeatable flag.
type stringList []string

func (l *stringList) String() string { return strings.Join(*l, ",") }

func (l *stringList) Set(v string) error {
	*l = append(*l, v)
	return nil
}

func parseServeFlags(args []string) (serveConfig, error) {
	var cfg serveConfig
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.StringVar(&cfg.srtAddr, "srt", envOr("SRT_ADDR", ":6000"), "SRT listen address, empty to disable")
	fs.StringVar(&cfg.quicAddr, "quic", envOr("QUIC_ADDR", ":6001"), "QUIC listen address, empty to disable")
	fs.StringVar(&cfg.natsURL, "nats", envOr("NATS_URL", ""), "NATS server URL to publish decoded cues to")
	fs.StringVar(&cfg.natsSubject, "subject", envOr("NATS_SUBJECT", publish.DefaultSubject), "NATS subject prefix")
	fs.StringVar(&cfg.dbPath, "db", envOr("DB_PATH", ""), "SQLite database to archive decoded cues in")
	fs.StringVar(&cfg.certFile, "cert", envOr("TLS_CERT", ""), "QUIC certificate file; self-signed when empty")
	fs.StringVar(&cfg.keyFile, "key", envOr("TLS_KEY", ""), "QUIC private key file")
	fs.BoolVar(&cfg.verifyCRC, "verify-crc", envOr("VERIFY_CRC", "") != "", "check each section's CRC_32")

	interval, err := time.ParseDuration(envOr("STATS_INTERVAL", "30s"))
	if err != nil {
		return cfg, fmt.Errorf("STATS_INTERVAL: %w", err)
	}
	fs.DurationVar(&cfg.statsInterval, "stats-interval", interval, "how often feed statistics are logged, 0 to disable")

	var pulls stringList
	if env := envOr("SRT_PULL", ""); env != "" {
		for _, p := range strings.Split(env, ",") {
			if p = strings.TrimSpace(p); p != "" {
				pulls = append(pulls, p)
			}
		}
	}
	fs.Var(&pulls, "pull", "SRT feed to pull, key=host:port[/streamid] (repeatable)")

	if err := fs.Parse(args); err != nil {
		return cfg, err
	}
	if fs.NArg() > 0 {
		return cfg, fmt.Errorf("serve: unexpected arguments %q", fs.Args())
	}
	if (cfg.certFile == "") != (cfg.keyFile == "") {
		return cfg, fmt.Errorf("serve: -cert and -key must be set together")
	}
	cfg.pulls = pulls
	return cfg, nil
}

func runServe(ctx context.Context, args []string) error {
	cfg, err := parseServeFlags(args)
	if err != nil {
		return err
	}
	pullReqs := make([]srtingest.PullRequest, 0, len(cfg.pulls))
	for _, spec := range cfg.pulls {
		req, err := srtingest.ParsePullRequest(spec)
		if err != nil {
			return err
		}
		pullReqs = append(pullReqs, req)
	}

	var sinks []feed.Sink
	if cfg.natsURL != "" {
		pub, err := publish.Connect(cfg.natsURL, cfg.natsSubject, nil)
		if err != nil {
			return err
		}
		defer pub.Close()
		sinks = append(sinks, pub)
	}
	if cfg.dbPath != "" {
		db, err := storage.Open(cfg.dbPath)
		if err != nil {
			return err
		}
		defer db.Close()
		slog.Info("archiving cues", "db", cfg.dbPath)
		sinks = append(sinks, db)
	}

	var cert *certs.CertInfo
	if cfg.quicAddr != "" {
		if cert, err = loadCert(cfg.certFile, cfg.keyFile, cfg.quicAddr); err != nil {
			return err
		}
	}

	decOpts := []feed.Option{feed.WithSinks(sinks...)}
	if cfg.verifyCRC {
		decOpts = append(decOpts, feed.WithCRCCheck())
	}
	cueStats := stats.NewSet()
	dec := feed.NewDecoder(cueStats, nil, decOpts...)

	slog.Info("splice starting",
		"version", version,
		"srt", cfg.srtAddr,
		"quic", cfg.quicAddr,
		"pulls", len(pullReqs),
		"sinks", len(sinks),
	)

	g, ctx := errgroup.WithContext(ctx)

	// The registry is created after the errgroup so feed decoders stop when
	// any component fails.
	registry := ingest.NewRegistry(func(key string, input io.Reader) {
		if err := dec.Run(ctx, key, input); err != nil {
			slog.Error("feed error", "feed", key, "error", err)
			_, _ = io.Copy(io.Discard, input)
		}
	})

	if cfg.srtAddr != "" {
		srtSrv := srtingest.NewServer(cfg.srtAddr, registry, nil)
		g.Go(func() error {
			return srtSrv.Start(ctx)
		})
	}

	if cert != nil {
		quicSrv := quicingest.NewServer(cfg.quicAddr, cert, registry, nil)
		g.Go(func() error {
			return quicSrv.Start(ctx)
		})
	}

	if len(pullReqs) > 0 {
		caller := srtingest.NewCaller(registry, nil)
		for _, req := range pullReqs {
			g.Go(func() error {
				caller.Keep(ctx, req, pullRetry)
				return nil
			})
		}
	}

	if cfg.statsInterval > 0 {
		g.Go(func() error {
			logStats(ctx, cfg.statsInterval, registry, cueStats)
			return nil
		})
	}

	return g.Wait()
}

// loadCert reads the configured key pair, or generates a self-signed
// certificate that also names the QUIC listen host.
func loadCert(certFile, keyFile, listenAddr string) (*certs.CertInfo, error) {
	if certFile != "" {
		cert, err := certs.Load(certFile, keyFile)
		if err != nil {
			return nil, err
		}
		slog.Info("loaded certificate", "tls", cert)
		return cert, nil
	}

	var hosts []string
	if host, _, err := net.SplitHostPort(listenAddr); err == nil {
		if ip := net.ParseIP(host); host != "" && (ip == nil || !ip.IsUnspecified()) {
			hosts = append(hosts, host)
		}
	}
	cert, err := certs.Generate(certs.DefaultValidity, hosts...)
	if err != nil {
		return nil, fmt.Errorf("generate certificate: %w", err)
	}
	slog.Info("generated self-signed certificate", "tls", cert, "hosts", hosts)
	return cert, nil
}

// logStats periodically logs connection and cue counters for every feed
// until ctx is cancelled.
func logStats(ctx context.Context, interval time.Duration, registry *ingest.Registry, cueStats *stats.Set) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			for _, line := range statsLines(registry.Stats(), cueStats.Snapshots()) {
				slog.Info("feed stats", line...)
			}
		}
	}
}

// statsLines joins connection and cue statistics by feed key into slog
// attribute lists. Feeds that have disconnected keep their cue counters.
func statsLines(conns []ingest.IngestStats, cues []stats.CueStats) [][]any {
	byKey := make(map[string]ingest.IngestStats, len(conns))
	for _, c := range conns {
		byKey[c.Key] = c
	}

	lines := make([][]any, 0, len(cues))
	for _, cs := range cues {
		attrs := []any{
			"feed", cs.Feed,
			"cues", cs.TotalCues,
			"failed", cs.FailedCues,
			"warnings", cs.Warnings,
			"recent", len(cs.Recent),
		}
		if c, ok := byKey[cs.Feed]; ok {
			attrs = append(attrs,
				"transport", c.Transport,
				"remote", c.RemoteAddr,
				"bytes", c.BytesReceived,
				"uptime", (time.Duration(c.UptimeMs) * time.Millisecond).String(),
			)
		} else {
			attrs = append(attrs, "connected", false)
		}
		lines = append(lines, attrs)
	}
	return lines
}
