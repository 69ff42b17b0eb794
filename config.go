package layoutmd

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tsawler/layoutmd/annotate"
	"github.com/tsawler/layoutmd/extract"
	"github.com/tsawler/layoutmd/markdown"
	"github.com/tsawler/layoutmd/ocr"
	"github.com/tsawler/layoutmd/raster"
)

// Config holds the full conversion configuration.
type Config struct {
	Output   OutputConfig   `yaml:"output"`
	Raster   RasterConfig   `yaml:"raster"`
	Extract  ExtractConfig  `yaml:"extract"`
	Markdown MarkdownConfig `yaml:"markdown"`
	Annotate AnnotateConfig `yaml:"annotate"`
}

// OutputConfig controls where artifacts go.
type OutputConfig struct {
	Dir string `yaml:"dir"`
	// RunScoped writes each conversion into <dir>/<stem>-<uuid>.
	RunScoped     bool `yaml:"run_scoped"`
	HTMLPreview   bool `yaml:"html_preview"`
	PreviewImages bool `yaml:"preview_images"`
}

// RasterConfig selects and tunes the page rasterizer.
type RasterConfig struct {
	Engine   string `yaml:"engine"` // pdftoppm | fitz
	DPI      int    `yaml:"dpi"`
	Quality  int    `yaml:"quality"`
	Pdftoppm string `yaml:"pdftoppm"`
}

// ExtractConfig selects and tunes the layout extractor.
type ExtractConfig struct {
	Engine      string            `yaml:"engine"` // http | dir | ocr
	Endpoint    string            `yaml:"endpoint"`
	Timeout     time.Duration     `yaml:"timeout"`
	Headers     map[string]string `yaml:"headers"`
	Dir         string            `yaml:"dir"`
	Languages   []string          `yaml:"languages"`
	Concurrency int               `yaml:"concurrency"`
}

// MarkdownConfig tunes Markdown rendering.
type MarkdownConfig struct {
	PageHeading         string `yaml:"page_heading"`
	ImageAlt            string `yaml:"image_alt"`
	TableFormat         string `yaml:"table_format"` // html | markdown
	SanitizeTables      bool   `yaml:"sanitize_tables"`
	FuseCrossPageTables bool   `yaml:"fuse_cross_page_tables"`
	JPEGQuality         int    `yaml:"jpeg_quality"`
	CropConcurrency     int    `yaml:"crop_concurrency"`
}

// AnnotateConfig tunes the annotated PDF.
type AnnotateConfig struct {
	Fill        bool    `yaml:"fill"`
	FillOpacity float64 `yaml:"fill_opacity"`
	FontSize    float64 `yaml:"font_size"`
	LineWidth   float64 `yaml:"line_width"`
	Concurrency int     `yaml:"concurrency"`
	// BeforeMerge draws the regions as the model returned them, before
	// cross-page tables are fused.
	BeforeMerge bool `yaml:"annotate_before_merge"`
}

// DefaultConfig returns sane defaults.
func DefaultConfig() *Config {
	return &Config{
		Output: OutputConfig{
			Dir:       "output",
			RunScoped: true,
		},
		Raster: RasterConfig{
			Engine:   "pdftoppm",
			DPI:      raster.DefaultDPI,
			Quality:  90,
			Pdftoppm: "pdftoppm",
		},
		Extract: ExtractConfig{
			Engine:      "http",
			Timeout:     120 * time.Second,
			Concurrency: 4,
		},
		Markdown: MarkdownConfig{
			PageHeading:     "# Page %d",
			ImageAlt:        "Image",
			TableFormat:     "html",
			JPEGQuality:     90,
			CropConcurrency: runtime.NumCPU(),
		},
		Annotate: AnnotateConfig{
			FillOpacity: 0.3,
			FontSize:    10,
			LineWidth:   1,
			Concurrency: runtime.NumCPU(),
		},
	}
}

// LoadConfig reads and parses a YAML config file. Returns DefaultConfig
// merged with the file.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// applyDefaults fills fields a config file zeroed out.
func (c *Config) applyDefaults() {
	d := DefaultConfig()
	if c.Output.Dir == "" {
		c.Output.Dir = d.Output.Dir
	}
	if c.Raster.Engine == "" {
		c.Raster.Engine = d.Raster.Engine
	}
	if c.Raster.DPI <= 0 {
		c.Raster.DPI = d.Raster.DPI
	}
	if c.Raster.Quality <= 0 {
		c.Raster.Quality = d.Raster.Quality
	}
	if c.Raster.Pdftoppm == "" {
		c.Raster.Pdftoppm = d.Raster.Pdftoppm
	}
	if c.Extract.Engine == "" {
		c.Extract.Engine = d.Extract.Engine
	}
	if c.Extract.Timeout <= 0 {
		c.Extract.Timeout = d.Extract.Timeout
	}
	if c.Extract.Concurrency <= 0 {
		c.Extract.Concurrency = d.Extract.Concurrency
	}
	if c.Markdown.PageHeading == "" {
		c.Markdown.PageHeading = d.Markdown.PageHeading
	}
	if c.Markdown.ImageAlt == "" {
		c.Markdown.ImageAlt = d.Markdown.ImageAlt
	}
	if c.Markdown.TableFormat == "" {
		c.Markdown.TableFormat = d.Markdown.TableFormat
	}
	if c.Markdown.JPEGQuality <= 0 {
		c.Markdown.JPEGQuality = d.Markdown.JPEGQuality
	}
	if c.Markdown.CropConcurrency <= 0 {
		c.Markdown.CropConcurrency = d.Markdown.CropConcurrency
	}
	if c.Annotate.FillOpacity <= 0 {
		c.Annotate.FillOpacity = d.Annotate.FillOpacity
	}
	if c.Annotate.FontSize <= 0 {
		c.Annotate.FontSize = d.Annotate.FontSize
	}
	if c.Annotate.LineWidth <= 0 {
		c.Annotate.LineWidth = d.Annotate.LineWidth
	}
	if c.Annotate.Concurrency <= 0 {
		c.Annotate.Concurrency = d.Annotate.Concurrency
	}
}

// Validate checks that values are sane.
func (c *Config) Validate() error {
	switch c.Raster.Engine {
	case "pdftoppm", "fitz":
	default:
		return fmt.Errorf("raster.engine: unsupported engine %q (use pdftoppm or fitz)", c.Raster.Engine)
	}
	if c.Raster.Quality > 100 || c.Markdown.JPEGQuality > 100 {
		return fmt.Errorf("jpeg quality must be between 1 and 100")
	}
	switch c.Extract.Engine {
	case "http":
		// endpoint may be supplied later through the CLI or an explicit extractor
	case "dir":
		if c.Extract.Dir == "" {
			return fmt.Errorf("extract.dir is required for the dir engine")
		}
	case "ocr":
	default:
		return fmt.Errorf("extract.engine: unsupported engine %q (use http, dir or ocr)", c.Extract.Engine)
	}
	if _, err := markdown.ParseTableFormat(c.Markdown.TableFormat); err != nil {
		return fmt.Errorf("markdown.table_format: %w", err)
	}
	if c.Annotate.FillOpacity > 1 {
		return fmt.Errorf("annotate.fill_opacity must be <= 1")
	}
	return nil
}

func (c *Config) rasterizer(logger *slog.Logger) (raster.Rasterizer, error) {
	if c.Raster.Engine == "fitz" {
		return raster.NewFitz(raster.FitzOptions{DPI: c.Raster.DPI, Quality: c.Raster.Quality, Logger: logger})
	}
	return raster.NewPdftoppm(raster.PdftoppmOptions{
		Binary:  c.Raster.Pdftoppm,
		DPI:     c.Raster.DPI,
		Quality: c.Raster.Quality,
		Logger:  logger,
	}), nil
}

// extractor builds the configured extractor. The returned close function
// releases engine resources and is never nil.
func (c *Config) extractor(logger *slog.Logger) (extract.Extractor, func() error, error) {
	noop := func() error { return nil }
	switch c.Extract.Engine {
	case "dir":
		return extract.DirExtractor{Dir: c.Extract.Dir}, noop, nil
	case "ocr":
		e, err := ocr.New(ocr.Options{Languages: c.Extract.Languages})
		if err != nil {
			return nil, noop, err
		}
		return e, e.Close, nil
	default:
		if c.Extract.Endpoint == "" {
			return nil, noop, fmt.Errorf("extract.endpoint is required for the http engine")
		}
		header := make(http.Header, len(c.Extract.Headers))
		for k, v := range c.Extract.Headers {
			header.Set(k, v)
		}
		return extract.NewHTTPExtractor(c.Extract.Endpoint, extract.HTTPOptions{
			Timeout: c.Extract.Timeout,
			Header:  header,
			Logger:  logger,
		}), noop, nil
	}
}

func (c *Config) markdownOptions(logger *slog.Logger) (markdown.Options, error) {
	tf, err := markdown.ParseTableFormat(c.Markdown.TableFormat)
	if err != nil {
		return markdown.Options{}, err
	}
	return markdown.Options{
		PageHeading:         c.Markdown.PageHeading,
		ImageAlt:            c.Markdown.ImageAlt,
		TableFormat:         tf,
		SanitizeTables:      c.Markdown.SanitizeTables,
		FuseCrossPageTables: c.Markdown.FuseCrossPageTables,
		CropConcurrency:     c.Markdown.CropConcurrency,
		Logger:              logger,
	}, nil
}

func (c *Config) annotateOptions(logger *slog.Logger) annotate.Options {
	return annotate.Options{
		Fill:        c.Annotate.Fill,
		FillOpacity: c.Annotate.FillOpacity,
		FontSize:    c.Annotate.FontSize,
		LineWidth:   c.Annotate.LineWidth,
		Concurrency: c.Annotate.Concurrency,
		Logger:      logger,
	}
}

// clone returns a deep copy of the config.
func (c *Config) clone() *Config {
	n := *c
	n.Extract.Languages = append([]string(nil), c.Extract.Languages...)
	if c.Extract.Headers != nil {
		n.Extract.Headers = make(map[string]string, len(c.Extract.Headers))
		for k, v := range c.Extract.Headers {
			n.Extract.Headers[k] = v
		}
	}
	return &n
}
