// Command layoutmd converts a PDF or scanned image into Markdown and an
// annotated PDF showing the detected layout.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/tsawler/layoutmd"
	"github.com/tsawler/layoutmd/extract"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func usage(fs *flag.FlagSet) func() {
	return func() {
		fmt.Fprintf(os.Stderr, `layoutmd: convert documents to Markdown with a layout model

usage:
  layoutmd [flags] <input.pdf|image>

flags:
`)
		fs.PrintDefaults()
	}
}

func run(args []string) int {
	fs := flag.NewFlagSet("layoutmd", flag.ContinueOnError)
	var (
		configPath = fs.String("config", "", "YAML config file")
		outDir     = fs.String("out", "", "output directory (overrides output.dir)")
		layouts    = fs.String("layouts", "", "replay page_N.json region files from this directory instead of calling a model")
		endpoint   = fs.String("endpoint", "", "layout service URL (overrides extract.endpoint)")
		logLevel   = fs.String("log-level", "info", "debug, info, warn or error")
		logFormat  = fs.String("log-format", "text", "text or json")
	)
	fs.Usage = usage(fs)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return 2
	}
	input := fs.Arg(0)

	logger := newLogger(*logLevel, *logFormat)
	slog.SetDefault(logger)

	cfg := layoutmd.DefaultConfig()
	if *configPath != "" {
		loaded, err := layoutmd.LoadConfig(*configPath)
		if err != nil {
			slog.Error("config", "error", err)
			return 1
		}
		cfg = loaded
	}
	if *endpoint != "" {
		cfg.Extract.Engine = "http"
		cfg.Extract.Endpoint = *endpoint
	}

	conv := layoutmd.Open(input).WithConfig(cfg).Logger(logger)
	if *outDir != "" {
		conv = conv.OutputDir(*outDir)
	}
	if *layouts != "" {
		conv = conv.Extractor(extract.DirExtractor{Dir: *layouts})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, warnings, err := conv.Convert(ctx)
	if err != nil {
		if errors.Is(err, layoutmd.ErrInput) {
			fmt.Fprintf(os.Stderr, "input error: %v\n", err)
		} else {
			fmt.Fprintf(os.Stderr, "conversion failed: %v\n", err)
		}
		return 1
	}

	if len(warnings) > 0 {
		fmt.Fprintf(os.Stderr, "%d warnings:\n%s\n", len(warnings), layoutmd.FormatWarnings(warnings))
	}
	fmt.Printf("markdown:  %s\n", res.MarkdownPath)
	fmt.Printf("annotated: %s\n", res.AnnotatedPath)
	fmt.Printf("layout:    %s\n", res.LayoutPath)
	if res.HTMLPath != "" {
		fmt.Printf("html:      %s\n", res.HTMLPath)
	}
	if n := len(res.PreviewPaths); n > 0 {
		fmt.Printf("previews:  %d in %s\n", n, res.RunDir)
	}
	if !res.Annotation.Complete() {
		fmt.Fprintf(os.Stderr, "annotation incomplete: %d of %d pages failed\n", res.Annotation.Failed, res.Annotation.Pages)
	}
	return 0
}

func newLogger(level, format string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if strings.ToLower(format) == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
