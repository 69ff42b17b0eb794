package raster

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/tsawler/layoutmd/model"
)

// Runner runs an external command. Tests substitute a fake.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct {
	Logger *slog.Logger
}

// Run executes name with args and captures its output.
func (r ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}
	start := time.Now()

	cmd := exec.CommandContext(ctx, name, args...)
	var out, errb bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errb

	err := cmd.Run()
	dur := time.Since(start)
	if err != nil {
		logger.Error("exec failed",
			"cmd", name,
			"args", strings.Join(args, " "),
			"duration_ms", dur.Milliseconds(),
			"error", err,
			"stderr", truncate(errb.String(), 8<<10),
		)
	} else {
		logger.Debug("exec ok",
			"cmd", name,
			"args", strings.Join(args, " "),
			"duration_ms", dur.Milliseconds(),
		)
	}
	return out.Bytes(), errb.Bytes(), err
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}

// PdftoppmOptions configures a Pdftoppm rasterizer.
type PdftoppmOptions struct {
	// Binary is the pdftoppm executable (default "pdftoppm").
	Binary string
	// DPI is the render resolution (default DefaultDPI).
	DPI int
	// Quality is the JPEG quality (default 90).
	Quality int
	// Runner overrides command execution.
	Runner Runner
	Logger *slog.Logger
}

// Pdftoppm renders pages with poppler's pdftoppm.
type Pdftoppm struct {
	opts PdftoppmOptions
}

// NewPdftoppm creates a pdftoppm rasterizer.
func NewPdftoppm(opts PdftoppmOptions) *Pdftoppm {
	if opts.Binary == "" {
		opts.Binary = "pdftoppm"
	}
	if opts.DPI <= 0 {
		opts.DPI = DefaultDPI
	}
	if opts.Quality <= 0 || opts.Quality > 100 {
		opts.Quality = 90
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Runner == nil {
		opts.Runner = ExecRunner{Logger: opts.Logger}
	}
	return &Pdftoppm{opts: opts}
}

// Rasterize runs pdftoppm over the whole document.
func (p *Pdftoppm) Rasterize(ctx context.Context, pdfPath, outDir string) ([]model.PageImage, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating page dir: %w", err)
	}

	// pdftoppm -r 200 -jpeg -jpegopt quality=90 <in.pdf> <dir/page>
	prefix := filepath.Join(outDir, "page")
	if err := clearPages(prefix); err != nil {
		return nil, err
	}
	_, errb, err := p.opts.Runner.Run(ctx, p.opts.Binary,
		"-r", strconv.Itoa(p.opts.DPI),
		"-jpeg", "-jpegopt", fmt.Sprintf("quality=%d", p.opts.Quality),
		pdfPath, prefix)
	if err != nil {
		if msg := strings.TrimSpace(string(errb)); msg != "" {
			return nil, fmt.Errorf("pdftoppm: %w: %s", err, truncate(msg, 512))
		}
		return nil, fmt.Errorf("pdftoppm: %w", err)
	}

	pages, err := collect(prefix)
	if err != nil {
		return nil, err
	}
	p.opts.Logger.Debug("rasterized document", "pages", len(pages), "dpi", p.opts.DPI)
	return pages, nil
}

// clearPages removes page images left in the directory by an earlier run, so
// a shorter document does not inherit its trailing pages.
func clearPages(prefix string) error {
	stale, err := filepath.Glob(prefix + "-*.jpg")
	if err != nil {
		return err
	}
	for _, f := range stale {
		if err := os.Remove(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("removing stale page image: %w", err)
		}
	}
	return nil
}

// collect finds prefix-N.jpg files and renames zero-padded ones
// (page-01.jpg) to the unpadded form.
func collect(prefix string) ([]model.PageImage, error) {
	matches, err := filepath.Glob(prefix + "-*.jpg")
	if err != nil {
		return nil, err
	}
	var pages []model.PageImage
	for _, m := range matches {
		suffix := strings.TrimSuffix(strings.TrimPrefix(m, prefix+"-"), ".jpg")
		n, err := strconv.Atoi(suffix)
		if err != nil || n < 1 {
			continue
		}
		path := filepath.Join(filepath.Dir(prefix), FileName(n))
		if path != m {
			if err := os.Rename(m, path); err != nil {
				return nil, fmt.Errorf("renaming page image: %w", err)
			}
		}
		pages = append(pages, model.PageImage{PageNumber: n, Path: path})
	}
	if len(pages) == 0 {
		return nil, ErrNoPages
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i].PageNumber < pages[j].PageNumber })
	return pages, nil
}
