package layoutmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/tsawler/layoutmd/annotate"
	"github.com/tsawler/layoutmd/crop"
	"github.com/tsawler/layoutmd/extract"
	"github.com/tsawler/layoutmd/format"
	"github.com/tsawler/layoutmd/markdown"
	"github.com/tsawler/layoutmd/model"
	"github.com/tsawler/layoutmd/preview"
	"github.com/tsawler/layoutmd/raster"
	"github.com/tsawler/layoutmd/tables"
)

// Artifact names inside a run directory.
const (
	LayoutFile  = "layout.json"
	PagesDir    = "pages"
	PreviewsDir = "previews"
)

// Converter provides a fluent interface for converting one document.
// Each configuration method returns a new Converter, so a configured
// Converter can be reused and shared.
type Converter struct {
	path       string
	config     *Config
	outputDir  string
	extractor  extract.Extractor
	rasterizer raster.Rasterizer
	logger     *slog.Logger
}

// clone creates a copy of the Converter with a deep copy of its config.
func (c *Converter) clone() *Converter {
	n := *c
	n.config = c.config.clone()
	return &n
}

// WithConfig replaces the configuration.
func (c *Converter) WithConfig(cfg *Config) *Converter {
	n := c.clone()
	if cfg != nil {
		n.config = cfg.clone()
		n.config.applyDefaults()
	}
	return n
}

// OutputDir overrides the configured output directory.
//
// Example:
//
//	result, _, err := layoutmd.Open("doc.pdf").OutputDir("out").Convert(ctx)
func (c *Converter) OutputDir(dir string) *Converter {
	n := c.clone()
	n.outputDir = dir
	return n
}

// Extractor sets the layout extractor, overriding the configured engine.
func (c *Converter) Extractor(e extract.Extractor) *Converter {
	n := c.clone()
	n.extractor = e
	return n
}

// Rasterizer sets the page rasterizer, overriding the configured engine.
func (c *Converter) Rasterizer(r raster.Rasterizer) *Converter {
	n := c.clone()
	n.rasterizer = r
	return n
}

// Logger sets the logger used by every stage.
func (c *Converter) Logger(l *slog.Logger) *Converter {
	n := c.clone()
	if l != nil {
		n.logger = l
	}
	return n
}

// Result lists the artifacts of a conversion.
type Result struct {
	RunDir        string
	LayoutPath    string
	MarkdownPath  string
	AnnotatedPath string
	HTMLPath      string   // empty unless the HTML preview is enabled
	PreviewPaths  []string // annotated page PNGs, if enabled

	Pages      int
	Merges     tables.MergeReport
	Markdown   markdown.Report
	Annotation annotate.Report
}

// Convert runs the whole pipeline: rasterize, extract regions per page,
// fuse cross-page tables, then write the Markdown and the annotated PDF.
//
// The error is non-nil when the input is unusable (wrapping ErrInput), an
// output cannot be written, or ctx is cancelled. Region and page level
// problems are returned as warnings.
func (c *Converter) Convert(ctx context.Context) (*Result, []Warning, error) {
	start := time.Now()
	cfg := c.config
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("config: %w", err)
	}

	if err := c.checkInput(); err != nil {
		return nil, nil, err
	}

	rasterizer := c.rasterizer
	if rasterizer == nil {
		r, err := cfg.rasterizer(c.logger)
		if err != nil {
			return nil, nil, fmt.Errorf("rasterizer: %w", err)
		}
		rasterizer = r
	}
	extractor := c.extractor
	closeExtractor := func() error { return nil }
	if extractor == nil {
		e, closeFn, err := cfg.extractor(c.logger)
		if err != nil {
			return nil, nil, fmt.Errorf("extractor: %w", err)
		}
		extractor, closeExtractor = e, closeFn
	}
	defer closeExtractor()

	stem := strings.TrimSuffix(filepath.Base(c.path), filepath.Ext(c.path))
	runDir := c.outputDir
	if runDir == "" {
		runDir = cfg.Output.Dir
	}
	if cfg.Output.RunScoped {
		runDir = filepath.Join(runDir, stem+"-"+uuid.NewString())
	}
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("creating run dir: %w", err)
	}
	log := c.logger.With("run_dir", runDir)
	log.Info("converting document", "input", c.path)

	layouts, pdfPath, err := c.analyze(ctx, runDir, rasterizer, extractor, log)
	if err != nil {
		if cfg.Output.RunScoped {
			os.RemoveAll(runDir)
		}
		return nil, nil, err
	}

	merged, merges := tables.MergeCrossPage(layouts)
	log.Info("merged cross-page tables", "merges", merges.Count())

	res := &Result{
		RunDir:        runDir,
		LayoutPath:    filepath.Join(runDir, LayoutFile),
		MarkdownPath:  filepath.Join(runDir, stem+".md"),
		AnnotatedPath: filepath.Join(runDir, stem+"_layout.pdf"),
		Pages:         len(merged),
		Merges:        merges,
	}
	if err := model.SaveDocument(res.LayoutPath, model.NewDocument(c.path, merged)); err != nil {
		return nil, nil, err
	}

	toAnnotate := merged
	if cfg.Annotate.BeforeMerge {
		toAnnotate = layouts
	}

	var previewWarnings []Warning
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return c.writeMarkdown(gctx, model.CloneLayouts(merged), runDir, stem, res)
	})
	g.Go(func() error {
		pages := model.CloneLayouts(toAnnotate)
		report, err := annotate.New(cfg.annotateOptions(c.logger)).Annotate(gctx, pages, pdfPath, res.AnnotatedPath)
		res.Annotation = report
		if err != nil {
			return fmt.Errorf("annotating: %w", err)
		}
		if cfg.Output.PreviewImages {
			previewWarnings = c.writePreviews(pages, runDir, res)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	warnings := collectWarnings(res)
	warnings = append(warnings, previewWarnings...)

	log.Info("conversion finished", "pages", res.Pages, "warnings", len(warnings),
		"duration", time.Since(start))
	return res, warnings, nil
}

// checkInput rejects missing and unsupported inputs before anything is
// written.
func (c *Converter) checkInput() error {
	info, err := os.Stat(c.path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInput, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", ErrInput, c.path)
	}
	f, err := format.DetectFile(c.path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInput, err)
	}
	if !f.Supported() {
		return fmt.Errorf("%w: unsupported file format: %s", ErrInput, filepath.Base(c.path))
	}
	return nil
}

// analyze produces the per-page layouts, in page order, and the PDF the
// annotated copy is drawn on.
func (c *Converter) analyze(ctx context.Context, runDir string, rasterizer raster.Rasterizer, extractor extract.Extractor, log *slog.Logger) ([]model.PageLayout, string, error) {
	pdfPath, err := format.ToPDF(c.path, runDir)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrInput, err)
	}

	images, err := rasterizer.Rasterize(ctx, pdfPath, filepath.Join(runDir, PagesDir))
	if err != nil {
		if ctx.Err() != nil {
			return nil, "", ctx.Err()
		}
		return nil, "", fmt.Errorf("%w: rasterizing: %w", ErrInput, err)
	}
	log.Debug("rasterized pages", "pages", len(images))

	layouts := make([]model.PageLayout, len(images))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.config.Extract.Concurrency)
	for i, img := range images {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			regions, err := extractor.Extract(gctx, img)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				return fmt.Errorf("%w: page %d: %w", ErrInput, img.PageNumber, err)
			}
			for _, r := range regions {
				if !r.Type.Known() {
					log.Debug("unknown region type treated as text", "page", img.PageNumber, "type", r.Type)
				}
			}
			layouts[i] = model.NewPageLayout(img.PageNumber, img.Path, regions)
			log.Debug("extracted page", "page", img.PageNumber, "regions", len(regions))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, "", err
	}
	model.SortPages(layouts)
	return layouts, pdfPath, nil
}

func (c *Converter) writeMarkdown(ctx context.Context, pages []model.PageLayout, runDir, stem string, res *Result) error {
	opts, err := c.config.markdownOptions(c.logger)
	if err != nil {
		return err
	}
	cropper, err := crop.New(filepath.Join(runDir, crop.DirName), crop.Options{
		Quality: c.config.Markdown.JPEGQuality,
		Logger:  c.logger,
	})
	if err != nil {
		return err
	}

	md, report, err := markdown.New(cropper, opts).Render(ctx, pages)
	res.Markdown = report
	if err != nil {
		return err
	}
	if err := os.WriteFile(res.MarkdownPath, []byte(md), 0o644); err != nil {
		return fmt.Errorf("writing markdown: %w", err)
	}

	if c.config.Output.HTMLPreview {
		page, err := preview.HTML(md, stem)
		if err != nil {
			return err
		}
		res.HTMLPath = filepath.Join(runDir, stem+".html")
		if err := os.WriteFile(res.HTMLPath, page, 0o644); err != nil {
			return fmt.Errorf("writing html preview: %w", err)
		}
	}
	return nil
}

// writePreviews draws the regions onto each page raster. Failures only
// cost the preview.
func (c *Converter) writePreviews(pages []model.PageLayout, runDir string, res *Result) []Warning {
	var warnings []Warning
	opts := c.config.annotateOptions(c.logger)
	for _, p := range pages {
		if p.ImagePath == "" {
			continue
		}
		out := filepath.Join(runDir, PreviewsDir, fmt.Sprintf("page-%d.png", p.PageNumber))
		if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
			return append(warnings, Warning{Stage: StagePreview, Page: p.PageNumber, Region: -1, Message: err.Error()})
		}
		if err := annotate.WritePreview(p.ImagePath, p.Regions, out, opts); err != nil {
			c.logger.Warn("preview skipped", "page", p.PageNumber, "error", err)
			warnings = append(warnings, Warning{Stage: StagePreview, Page: p.PageNumber, Region: -1, Message: err.Error()})
			continue
		}
		res.PreviewPaths = append(res.PreviewPaths, out)
	}
	return warnings
}

func collectWarnings(res *Result) []Warning {
	var warnings []Warning
	for _, e := range res.Markdown.Errors {
		warnings = append(warnings, Warning{
			Stage:   StageMarkdown,
			Page:    e.Page,
			Region:  e.Region,
			Message: fmt.Sprintf("%s region skipped: %v", e.Type, e.Err),
		})
	}
	for _, e := range res.Annotation.PageErrors {
		warnings = append(warnings, Warning{
			Stage:   StageAnnotate,
			Page:    e.Page,
			Region:  -1,
			Message: "page left unannotated: " + e.Err.Error(),
		})
	}
	for _, e := range res.Annotation.Warnings {
		warnings = append(warnings, Warning{
			Stage:   StageAnnotate,
			Page:    e.Page,
			Region:  -1,
			Message: "rotation taken as 0: " + e.Err.Error(),
		})
	}
	return warnings
}
