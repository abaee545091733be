// Command splice decodes SCTE-35 cues from the command line and serves
// live cue feeds over SRT and QUIC.
//
//	splice decode [flags] [cue ...]
//	splice serve [flags]
//
// With no subcommand, the arguments are decoded as cues.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
)

var version = "dev"

func main() {
	setupLogging()

	args := os.Args[1:]
	cmd := "decode"
	if len(args) > 0 {
		switch args[0] {
		case "decode", "serve":
			cmd, args = args[0], args[1:]
		case "version", "-version", "--version":
			fmt.Println("splice", version)
			return
		case "help", "-h", "-help", "--help":
			usage(os.Stdout)
			return
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("received signal, shutting down", "signal", sig)
		cancel()
	}()

	switch cmd {
	case "serve":
		if err := runServe(ctx, args); err != nil && !errors.Is(err, flag.ErrHelp) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	default:
		os.Exit(runDecode(ctx, args, os.Stdin, os.Stdout, os.Stderr))
	}
}

func setupLogging() {
	level := slog.LevelInfo
	if os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

func usage(w io.Writer) {
	fmt.Fprint(w, strings.TrimLeft(`
usage:
  splice decode [-pid N] [-pts S] [-verify-crc] [-compact] [-part all|info|command|descriptors] [cue ...]
  splice serve [-srt addr] [-quic addr] [-pull key=host:port[/streamid]] [-nats url] [-db path]

Cues are hex (0x-prefixed or starting with fc) or base64. With no cue
arguments, decode reads one cue per line from stdin.
`, "\n"))
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
