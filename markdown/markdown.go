// Package markdown reconstructs a document as Markdown from its page
// layouts.
//
// Pages are emitted in order, each introduced by a horizontal rule and a
// page heading. Regions are emitted in reading order, one block per region:
//
//   - text-like regions (and unknown types) as their raw content
//   - tables as their HTML fragment, verbatim unless a table option is set
//   - images as a reference to a crop written by the [ImageSource]
//   - equations wrapped in $$ display math delimiters
//
// Regions without content produce nothing. An image whose box is missing or
// whose crop fails produces nothing either; the failure is recorded in the
// [Report] and rendering carries on.
//
// The renderer expects layouts that have already been through
// tables.MergeCrossPage.
package markdown

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/unicode/norm"

	"github.com/tsawler/layoutmd/model"
	"github.com/tsawler/layoutmd/tables"
)

// TableFormat selects how table regions are written.
type TableFormat int

const (
	// TableHTML writes the table's HTML fragment as is.
	TableHTML TableFormat = iota
	// TableMarkdown converts the fragment to a pipe table.
	TableMarkdown
)

// String returns the configuration name of the format.
func (f TableFormat) String() string {
	switch f {
	case TableHTML:
		return "html"
	case TableMarkdown:
		return "markdown"
	default:
		return "unknown"
	}
}

// ParseTableFormat parses a configuration value. The empty string means
// TableHTML.
func ParseTableFormat(s string) (TableFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "html":
		return TableHTML, nil
	case "markdown", "md", "gfm":
		return TableMarkdown, nil
	}
	return TableHTML, fmt.Errorf("unknown table format %q", s)
}

// ImageSource produces the image files that image regions refer to.
// *crop.Cropper satisfies it.
type ImageSource interface {
	// Next reserves a sequence number for one crop.
	Next() int
	// Crop writes the crop and returns its path relative to the Markdown.
	Crop(pageImagePath string, box model.Box, pageNumber, seq int) (string, error)
}

// Options configures a Renderer.
type Options struct {
	// PageHeading is a format string with one %d verb for the page number.
	PageHeading string

	// ImageAlt is the alt text of image references.
	ImageAlt string

	// TableFormat selects HTML passthrough or pipe tables.
	TableFormat TableFormat

	// SanitizeTables strips table fragments down to table structure.
	SanitizeTables bool

	// FuseCrossPageTables rewrites fused cross-page fragments into a
	// single <table>.
	FuseCrossPageTables bool

	// CropConcurrency bounds parallel crops (default: number of CPUs).
	CropConcurrency int

	Logger *slog.Logger
}

// DefaultOptions returns the default rendering options.
func DefaultOptions() Options {
	return Options{
		PageHeading:     "# Page %d",
		ImageAlt:        "Image",
		TableFormat:     TableHTML,
		CropConcurrency: runtime.NumCPU(),
	}
}

func (o *Options) defaults() {
	d := DefaultOptions()
	if o.PageHeading == "" {
		o.PageHeading = d.PageHeading
	} else if !strings.Contains(o.PageHeading, "%d") {
		o.PageHeading += " %d"
	}
	if o.ImageAlt == "" {
		o.ImageAlt = d.ImageAlt
	}
	if o.CropConcurrency <= 0 {
		o.CropConcurrency = d.CropConcurrency
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// RegionError describes a region that could not be rendered as intended.
type RegionError struct {
	Page   int
	Region int // 0-based index within the page
	Type   model.RegionType
	Err    error
}

func (e RegionError) Error() string {
	return fmt.Sprintf("page %d region %d (%s): %v", e.Page, e.Region, e.Type, e.Err)
}

func (e RegionError) Unwrap() error { return e.Err }

// Report summarizes a rendering run.
type Report struct {
	Pages        int
	Regions      int // regions seen
	Emitted      int // regions that produced output
	Images       int // crops written
	ImagesFailed int // image regions dropped for a bad box or failed crop
	Errors       []RegionError
}

// Renderer converts page layouts to Markdown.
type Renderer struct {
	images ImageSource
	opts   Options
}

// New creates a Renderer. images may be nil, in which case image regions
// are dropped.
func New(images ImageSource, opts Options) *Renderer {
	opts.defaults()
	return &Renderer{images: images, opts: opts}
}

// cropJob is one image region waiting for its crop.
type cropJob struct {
	page, region int
	seq          int
	box          model.Box
	imagePath    string
	pageNumber   int
	rel          string
	err          error
}

// Render produces the Markdown for the given pages. The only side effect is
// the crop files written through the ImageSource. The returned error is
// non-nil only when ctx is cancelled.
func (r *Renderer) Render(ctx context.Context, pages []model.PageLayout) (string, Report, error) {
	pages = append([]model.PageLayout(nil), pages...)
	model.SortPages(pages)

	var report Report
	jobs := r.planCrops(pages, &report)

	if err := r.runCrops(ctx, jobs); err != nil {
		return "", report, err
	}

	crops := make(map[[2]int]*cropJob, len(jobs))
	for _, j := range jobs {
		crops[[2]int{j.page, j.region}] = j
	}

	var doc strings.Builder
	for pi, p := range pages {
		report.Pages++
		var body strings.Builder
		for ri, reg := range p.Regions {
			report.Regions++
			block := r.region(p, ri, reg, crops[[2]int{pi, ri}], &report)
			if block == "" {
				continue
			}
			report.Emitted++
			body.WriteString(block)
			body.WriteByte('\n')
		}
		fmt.Fprintf(&doc, "\n\n---\n\n%s\n\n%s", fmt.Sprintf(r.opts.PageHeading, p.PageNumber),
			strings.TrimSpace(body.String()))
	}

	r.opts.Logger.Debug("rendered markdown", "pages", report.Pages, "regions", report.Regions,
		"emitted", report.Emitted, "images", report.Images, "images_failed", report.ImagesFailed)
	return strings.TrimSpace(doc.String()), report, nil
}

// planCrops reserves sequence numbers for image regions in document order,
// so file names do not depend on the order crops finish in.
func (r *Renderer) planCrops(pages []model.PageLayout, report *Report) []*cropJob {
	var jobs []*cropJob
	for pi, p := range pages {
		for ri, reg := range p.Regions {
			if reg.Type != model.RegionImage {
				continue
			}
			box, ok := reg.Box()
			if !ok {
				r.fail(report, p.PageNumber, ri, reg.Type, fmt.Errorf("no usable box %v", reg.BBox))
				continue
			}
			if r.images == nil {
				r.fail(report, p.PageNumber, ri, reg.Type, fmt.Errorf("no image source"))
				continue
			}
			jobs = append(jobs, &cropJob{
				page:       pi,
				region:     ri,
				seq:        r.images.Next(),
				box:        box,
				imagePath:  p.ImagePath,
				pageNumber: p.PageNumber,
			})
		}
	}
	return jobs
}

func (r *Renderer) runCrops(ctx context.Context, jobs []*cropJob) error {
	if len(jobs) == 0 {
		return nil
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.CropConcurrency)
	for _, j := range jobs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			j.rel, j.err = r.images.Crop(j.imagePath, j.box, j.pageNumber, j.seq)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("cropping images: %w", err)
	}

	if rel, ok := r.images.(interface{ Release(string) }); ok {
		seen := make(map[string]bool)
		for _, j := range jobs {
			if !seen[j.imagePath] {
				seen[j.imagePath] = true
				rel.Release(j.imagePath)
			}
		}
	}
	return nil
}

// region returns the Markdown block for one region, or "" when the region
// produces nothing.
func (r *Renderer) region(p model.PageLayout, idx int, reg model.Region, job *cropJob, report *Report) string {
	switch {
	case reg.Type == model.RegionImage:
		if job == nil {
			return ""
		}
		if job.err != nil {
			r.fail(report, p.PageNumber, idx, reg.Type, job.err)
			return ""
		}
		report.Images++
		return fmt.Sprintf("![%s](%s)", r.opts.ImageAlt, job.rel)

	case reg.Type.IsEquation():
		content := clean(reg.Content)
		if content == "" {
			return ""
		}
		return "$$\n" + content + "\n$$"

	case reg.Type == model.RegionTable:
		content := clean(reg.Content)
		if content == "" {
			return ""
		}
		return r.table(p.PageNumber, idx, reg, content, report)

	default:
		return clean(reg.Content)
	}
}

func (r *Renderer) table(page, idx int, reg model.Region, content string, report *Report) string {
	if r.opts.FuseCrossPageTables && reg.IsCrossPage {
		fused, err := tables.FuseMarkup(content)
		if err != nil {
			r.fail(report, page, idx, reg.Type, err)
		} else {
			content = fused
		}
	}
	if r.opts.SanitizeTables {
		content = tables.Sanitize(content)
	}
	if r.opts.TableFormat == TableMarkdown {
		md, err := tables.ToMarkdown(content)
		if err != nil {
			r.fail(report, page, idx, reg.Type, err)
		} else if md != "" {
			content = md
		}
	}
	return content
}

func (r *Renderer) fail(report *Report, page, idx int, typ model.RegionType, err error) {
	if typ == model.RegionImage {
		report.ImagesFailed++
	}
	report.Errors = append(report.Errors, RegionError{Page: page, Region: idx, Type: typ, Err: err})
	r.opts.Logger.Warn("region skipped", "page", page, "region", idx, "type", typ, "error", err)
}

// clean normalizes content to NFC and trims blank lines around it.
// Indentation of the first content line is kept.
func clean(s string) string {
	s = norm.NFC.String(s)
	lines := strings.Split(s, "\n")
	start, end := 0, len(lines)
	for start < end && strings.TrimSpace(lines[start]) == "" {
		start++
	}
	for end > start && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}
	if start == end {
		return ""
	}
	lines = lines[start:end]
	lines[len(lines)-1] = strings.TrimRight(lines[len(lines)-1], " \t\r")
	return strings.Join(lines, "\n")
}
