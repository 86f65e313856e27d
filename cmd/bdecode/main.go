package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/harioms1522/bdecode/internal/bencode"
	"github.com/harioms1522/bdecode/internal/config"
	"github.com/harioms1522/bdecode/internal/logging"
	"github.com/harioms1522/bdecode/internal/torrent"
	"github.com/harioms1522/bdecode/internal/tracker"
	"github.com/harioms1522/bdecode/internal/verify"
)

var errNameMismatch = errors.New("torrent name mismatch")

type options struct {
	summary bool
	tracker bool
	expect  string
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := pflag.NewFlagSet("bdecode", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "TOML config file")
	maxDepth := fs.Int("max-depth", 0, "maximum list/dict nesting (overrides config)")
	logLevel := fs.String("log-level", "", "log level: trace, debug, info, warn, error, off")
	var opts options
	fs.BoolVar(&opts.summary, "summary", false, "print a torrent summary instead of the value tree")
	fs.BoolVar(&opts.tracker, "tracker", false, "print interval and peers of every tracker response in the input")
	fs.StringVar(&opts.expect, "expect", "", "check that the torrent's info.name equals this filename")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "usage: bdecode [flags] <file-or-url>...\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}
	if modes := btoi(opts.summary) + btoi(opts.tracker) + btoi(opts.expect != ""); modes > 1 {
		fmt.Fprintf(stderr, "bdecode: --summary, --tracker and --expect are exclusive\n")
		return 2
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "bdecode: %v\n", err)
		return 1
	}
	level := cfg.Log.Level
	if *logLevel != "" {
		level = *logLevel
	}
	log := logging.New(stderr, level, cfg.Log.Timestamp)

	dec := bencode.Decoder{MaxDepth: cfg.Decoder.MaxDepth, MaxStringLen: cfg.Decoder.MaxStringLength}
	if *maxDepth > 0 {
		dec.MaxDepth = *maxDepth
	}
	checker := &verify.Checker{
		UserAgent: cfg.Verify.UserAgent,
		MaxBytes:  cfg.Verify.MaxBytes,
		Decoder:   dec,
		Log:       log,
	}
	ctx := log.WithContext(context.Background())

	status := 0
	for _, input := range fs.Args() {
		inputCtx, cancel := context.WithTimeout(ctx, cfg.Verify.Timeout)
		err := process(inputCtx, checker, input, opts, stdout)
		cancel()
		if err != nil {
			log.Error().Err(err).Str("input", input).Msg("bdecode failed")
			status = 1
		}
	}
	return status
}

func isURL(input string) bool {
	return strings.HasPrefix(input, "http://") || strings.HasPrefix(input, "https://")
}

func process(ctx context.Context, checker *verify.Checker, input string, opts options, stdout io.Writer) error {
	if opts.expect != "" && isURL(input) {
		res := checker.Check(ctx, input, opts.expect)
		return reportCheck(stdout, input, res.Claimed, opts.expect, res.Err)
	}

	data, err := read(ctx, checker, input)
	if err != nil {
		return err
	}
	zerolog.Ctx(ctx).Debug().Str("input", input).Int("bytes", len(data)).Msg("read")

	switch {
	case opts.expect != "":
		claimed, err := checker.Inspect(data)
		return reportCheck(stdout, input, claimed, opts.expect, err)
	case opts.summary:
		meta, err := torrent.ParseFileWith(checker.Decoder, data)
		if err != nil {
			return err
		}
		printSummary(stdout, meta)
		return nil
	case opts.tracker:
		resps, err := tracker.ParseResponses(checker.Decoder, data)
		if err != nil {
			return err
		}
		printResponses(stdout, resps)
		return nil
	default:
		values, err := checker.Decoder.DecodeAll(data)
		if err != nil {
			return err
		}
		for _, v := range values {
			fmt.Fprintln(stdout, v)
		}
		return nil
	}
}

func read(ctx context.Context, checker *verify.Checker, input string) ([]byte, error) {
	if isURL(input) {
		return checker.Fetch(ctx, input)
	}
	data, err := os.ReadFile(input)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("file not found: %s", input)
		}
		return nil, err
	}
	return data, nil
}

func reportCheck(w io.Writer, input, claimed, expected string, err error) error {
	if err != nil {
		return err
	}
	if claimed != expected {
		fmt.Fprintf(w, "%s: claims filename %s instead of %s\n", input, claimed, expected)
		return errNameMismatch
	}
	fmt.Fprintf(w, "%s: ok %s\n", input, claimed)
	return nil
}

func printSummary(w io.Writer, meta *torrent.Meta) {
	fmt.Fprintln(w, "Name:", meta.Info.Name)
	fmt.Fprintln(w, "Info hash:", meta.InfoHashHex())
	fmt.Fprintln(w, "Piece count:", meta.PieceCount())
	fmt.Fprintln(w, "Piece length:", meta.Info.PieceLength)
	fmt.Fprintln(w, "File count:", meta.FileCount())
	fmt.Fprintln(w, "Total size:", humanize.Bytes(uint64(meta.TotalSize())))
}

func printResponses(w io.Writer, resps []*tracker.Response) {
	for i, resp := range resps {
		fmt.Fprintf(w, "Response %d: interval %s, %d peers", i, resp.Interval, len(resp.Peers))
		if resp.Complete > 0 || resp.Incomplete > 0 {
			fmt.Fprintf(w, ", %d seeders, %d leechers", resp.Complete, resp.Incomplete)
		}
		fmt.Fprintln(w)
		if resp.Warning != "" {
			fmt.Fprintln(w, "  warning:", resp.Warning)
		}
		for _, p := range resp.Peers {
			fmt.Fprintln(w, " ", p)
		}
	}
}

func btoi(b bool) int {
	if b {
		return 1
	}
	return 0
}
