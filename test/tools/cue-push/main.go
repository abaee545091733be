// Command cue-push replays a file of encoded cues to a splice server over
// SRT or QUIC, one line at a time, reconnecting when the connection drops.
package main

import (
	"bufio"
	"context"
	"crypto/tls"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	quicgo "github.com/quic-go/quic-go"
	srt "github.com/zsiec/srtgo"

	quicingest "github.com/zsiec/splice/ingest/quic"
)

func main() {
	fileFlag := flag.String("file", "", "file of cues, one per line (default: stdin)")
	keyFlag := flag.String("key", "", "feed key (default: file name without extension)")
	addrFlag := flag.String("addr", "127.0.0.1:6000", "server address")
	transportFlag := flag.String("transport", "srt", "srt or quic")
	intervalFlag := flag.Duration("interval", 2*time.Second, "delay between cues")
	loopFlag := flag.Bool("loop", false, "replay the file until interrupted")
	flag.Parse()

	in := io.Reader(os.Stdin)
	if *fileFlag != "" {
		f, err := os.Open(*fileFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open file: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		in = f
	}
	cues, err := readCues(in)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read cues: %v\n", err)
		os.Exit(1)
	}
	if len(cues) == 0 {
		fmt.Fprintf(os.Stderr, "No cues to push\n")
		os.Exit(1)
	}

	key := feedKey(*keyFlag, *fileFlag)
	dial, err := dialer(*transportFlag, *addrFlag, key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Pushing %d cues to %s over %s as %q\n", len(cues), *addrFlag, *transportFlag, key)
	push(ctx, dial, cues, *intervalFlag, *loopFlag, key)
}

// readCues returns the non-blank, non-comment lines of r.
func readCues(r io.Reader) ([]string, error) {
	var cues []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		cues = append(cues, line)
	}
	return cues, sc.Err()
}

// feedKey picks the feed key: the explicit key, else the file's base name,
// else "default".
func feedKey(key, file string) string {
	if key != "" {
		return key
	}
	if file != "" {
		base := filepath.Base(file)
		if k := strings.TrimSuffix(base, filepath.Ext(base)); k != "" {
			return k
		}
	}
	return "default"
}

type dialFunc func(ctx context.Context) (io.WriteCloser, error)

func dialer(transport, addr, key string) (dialFunc, error) {
	switch transport {
	case "srt":
		return func(context.Context) (io.WriteCloser, error) {
			cfg := srt.DefaultConfig()
			cfg.StreamID = "cue/" + key
			conn, err := srt.Dial(addr, cfg)
			if err != nil {
				return nil, err
			}
			return conn, nil
		}, nil
	case "quic":
		return func(ctx context.Context) (io.WriteCloser, error) {
			return dialQUIC(ctx, addr)
		}, nil
	default:
		return nil, fmt.Errorf("unknown transport %q (want srt or quic)", transport)
	}
}

// quicStream closes its connection along with the stream.
type quicStream struct {
	quicgo.Stream
	conn quicgo.Connection
}

func (s *quicStream) Close() error {
	err := s.Stream.Close()
	s.conn.CloseWithError(0, "")
	return err
}

func dialQUIC(ctx context.Context, addr string) (io.WriteCloser, error) {
	tlsConf := &tls.Config{
		// The server normally runs with a self-signed certificate.
		InsecureSkipVerify: true,
		NextProtos:         []string{quicingest.ALPN},
	}
	conn, err := quicgo.DialAddr(ctx, addr, tlsConf, nil)
	if err != nil {
		return nil, err
	}
	stream, err := conn.OpenStreamSync(ctx)
	if err != nil {
		conn.CloseWithError(0, "")
		return nil, err
	}
	return &quicStream{Stream: stream, conn: conn}, nil
}

func push(ctx context.Context, dial dialFunc, cues []string, interval time.Duration, loop bool, key string) {
	for ctx.Err() == nil {
		fmt.Printf("[%s] Connecting...\n", key)
		w, err := dial(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "[%s] Connect failed: %v, retrying...\n", key, err)
			sleep(ctx, time.Second)
			continue
		}

		fmt.Printf("[%s] Connected\n", key)
		sent, writeErr := sendLoop(ctx, w, cues, interval, loop)
		w.Close()

		if writeErr == nil {
			fmt.Printf("[%s] Done, %d cues sent\n", key, sent)
			return
		}
		fmt.Fprintf(os.Stderr, "[%s] Connection lost after %d cues: %v, reconnecting...\n", key, sent, writeErr)
		sleep(ctx, time.Second)
	}
}

// sendLoop writes one cue per interval. It returns when the cues are
// exhausted (never, with loop set), ctx is cancelled, or a write fails.
func sendLoop(ctx context.Context, w io.Writer, cues []string, interval time.Duration, loop bool) (int, error) {
	sent := 0
	for {
		for _, cue := range cues {
			if _, err := io.WriteString(w, cue+"\n"); err != nil {
				return sent, err
			}
			sent++
			if !sleep(ctx, interval) {
				return sent, nil
			}
		}
		if !loop {
			return sent, nil
		}
	}
}

// sleep waits for d and reports whether ctx is still live.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
