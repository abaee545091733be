package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"runtime"
	"strconv"
	"strings"

	"github.com/zsiec/splice/internal/feed"
	"github.com/zsiec/splice/scte35"
)

// runDecode implements the decode subcommand and returns the process exit
// status: 0 when every cue decoded, 1 when any failed, 2 for usage errors.
func runDecode(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("decode", flag.ContinueOnError)
	fs.SetOutput(stderr)
	pidFlag := fs.String("pid", "", "transport PID the cues arrived on (decimal or 0x hex)")
	ptsFlag := fs.String("pts", "", "presentation timestamp of the carrying packet, in seconds")
	verify := fs.Bool("verify-crc", false, "check each section's CRC_32")
	compact := fs.Bool("compact", false, "print one line of JSON per cue")
	part := fs.String("part", "all", "what to print: all, info, command or descriptors")
	jobs := fs.Int("j", runtime.NumCPU(), "cues decoded concurrently")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	show, err := showFunc(*part, *compact)
	if err != nil {
		fmt.Fprintf(stderr, "splice: %v\n", err)
		return 2
	}
	opts, err := packetOptions(*pidFlag, *ptsFlag)
	if err != nil {
		fmt.Fprintf(stderr, "splice: %v\n", err)
		return 2
	}

	inputs := fs.Args()
	if len(inputs) == 0 {
		inputs, err = readLines(stdin)
		if err != nil {
			fmt.Fprintf(stderr, "splice: read stdin: %v\n", err)
			return 1
		}
	}

	results, err := feed.DecodeAll(ctx, inputs, *jobs, opts...)
	if err != nil {
		fmt.Fprintf(stderr, "splice: %v\n", err)
		return 1
	}

	status := 0
	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(stderr, "splice: %s: %v\n", abbreviate(r.Input), r.Err)
			status = 1
			continue
		}
		if *verify {
			if err := r.Splice.VerifyCRC(); err != nil {
				fmt.Fprintf(stderr, "splice: %s: %v\n", abbreviate(r.Input), err)
				status = 1
			}
		}
		if err := show(r.Splice, stdout); err != nil {
			fmt.Fprintf(stderr, "splice: %v\n", err)
			return 1
		}
	}
	return status
}

// showFunc selects the printer for -part and -compact.
func showFunc(part string, compact bool) (func(*scte35.Splice, io.Writer) error, error) {
	if compact {
		if part != "all" {
			return nil, errors.New("-compact prints whole sections only")
		}
		return func(sp *scte35.Splice, w io.Writer) error {
			_, err := fmt.Fprintln(w, sp.String())
			return err
		}, nil
	}
	switch part {
	case "all":
		return (*scte35.Splice).Show, nil
	case "info":
		return (*scte35.Splice).ShowInfoSection, nil
	case "command":
		return (*scte35.Splice).ShowCommand, nil
	case "descriptors":
		return (*scte35.Splice).ShowDescriptors, nil
	default:
		return nil, fmt.Errorf("unknown -part %q", part)
	}
}

// packetOptions converts the -pid and -pts flags into decode options.
func packetOptions(pid, pts string) ([]scte35.Option, error) {
	var opts []scte35.Option
	if pid != "" {
		s, base := pid, 10
		if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
			s, base = s[2:], 16
		}
		v, err := strconv.ParseUint(s, base, 16)
		if err != nil {
			return nil, fmt.Errorf("invalid -pid %q: %w", pid, err)
		}
		opts = append(opts, scte35.WithPID(uint16(v)))
	}
	if pts != "" {
		v, err := strconv.ParseFloat(pts, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid -pts %q: %w", pts, err)
		}
		opts = append(opts, scte35.WithPTS(v))
	}
	return opts, nil
}

func readLines(r io.Reader) ([]string, error) {
	var lines []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), 64*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	return lines, sc.Err()
}

// abbreviate shortens a cue for error messages.
func abbreviate(s string) string {
	const maxLen = 24
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
