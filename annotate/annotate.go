// Package annotate draws numbered, color-coded region boxes onto a copy of
// the original PDF so extraction quality can be checked by eye.
//
// For each page, the regions that have a usable box and are neither list
// nor abandon are numbered from 1 in extraction order. Each gets a rectangle
// in its type's color (outlined by default, translucent fill on request) and
// its number just right of the rectangle's top edge, or just left of it when
// the right side would run off the page.
//
// Overlays are plain content streams appended to the page. The page's own
// content is wrapped in q/Q first, so nothing it leaves in the graphics
// state reaches the overlay. Pages with nothing to draw are written through
// untouched:
//
//	a := annotate.New(annotate.Options{})
//	report, err := a.Annotate(ctx, pages, "in.pdf", "in_layout.pdf")
//	if err == nil && !report.Complete() {
//		log.Printf("%d pages could not be annotated", report.Failed)
//	}
package annotate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/tsawler/layoutmd/coords"
	"github.com/tsawler/layoutmd/model"
)

// ErrUnreadable is returned when the original document cannot be read.
var ErrUnreadable = errors.New("unreadable original document")

// ErrSamePath is returned when the output path names the original.
var ErrSamePath = errors.New("output would overwrite the original document")

// Options configures an Annotator. Zero values take the defaults noted.
type Options struct {
	// Fill draws translucent filled rectangles instead of outlines.
	Fill bool
	// FillOpacity is the fill alpha in fill mode (default 0.3).
	FillOpacity float64
	// LineWidth of outlines in points (default 1).
	LineWidth float64
	// FontSize of labels in points (default 10).
	FontSize float64
	// LabelGap is the distance between a box's right edge and its label
	// (default 2).
	LabelGap float64
	// LabelMargin is both the right margin that triggers moving a label to
	// the left and the label's offset from the left edge (default 15).
	LabelMargin float64
	// LabelDrop is how far below the box's top the label baseline sits
	// (default 10).
	LabelDrop float64
	// Concurrency bounds parallel overlay rendering (default: number of
	// CPUs).
	Concurrency int

	Logger *slog.Logger
}

func (o *Options) defaults() {
	if o.FillOpacity <= 0 || o.FillOpacity > 1 {
		o.FillOpacity = 0.3
	}
	if o.LineWidth <= 0 {
		o.LineWidth = 1
	}
	if o.FontSize <= 0 {
		o.FontSize = 10
	}
	if o.LabelGap == 0 {
		o.LabelGap = 2
	}
	if o.LabelMargin == 0 {
		o.LabelMargin = 15
	}
	if o.LabelDrop == 0 {
		o.LabelDrop = 10
	}
	if o.Concurrency <= 0 {
		o.Concurrency = runtime.NumCPU()
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// PageError records why a page was written without its overlay.
type PageError struct {
	Page int
	Err  error
}

func (e PageError) Error() string { return fmt.Sprintf("page %d: %v", e.Page, e.Err) }

func (e PageError) Unwrap() error { return e.Err }

// Report summarizes an annotation run.
type Report struct {
	Pages         int // pages in the output
	Annotated     int // pages that received an overlay
	PassedThrough int // pages with nothing to draw
	Failed        int // pages that had boxes but were written without them
	Boxes         int // rectangles drawn across all pages
	PageErrors    []PageError
	// Warnings lists pages annotated under an assumption, such as an
	// unreadable /Rotate taken as 0.
	Warnings []PageError
}

// Complete reports whether every page that had boxes to draw got them.
func (r Report) Complete() bool { return r.Failed == 0 }

// Annotator draws region overlays onto PDFs.
type Annotator struct {
	opts Options
}

// New creates an Annotator.
func New(opts Options) *Annotator {
	opts.defaults()
	return &Annotator{opts: opts}
}

// pagePlan is the work for one page of the original.
type pagePlan struct {
	number  int
	geom    coords.Page
	regions []model.Region
	names   resourceNames
	marks   []Mark
	overlay []byte
	err     error
}

// Annotate writes a copy of the PDF at originalPath to outputPath with the
// regions of pages drawn on it. Pages are matched by page number; pages of
// the original without a layout are copied through.
//
// The returned error is non-nil only when the original cannot be read, the
// output cannot be written, or ctx is cancelled. Page-level failures are
// reported in Report.
func (a *Annotator) Annotate(ctx context.Context, pages []model.PageLayout, originalPath, outputPath string) (Report, error) {
	var report Report
	if samePath(originalPath, outputPath) {
		return report, ErrSamePath
	}

	doc, err := openPDF(originalPath)
	if err != nil {
		return report, err
	}
	report.Pages = doc.pageCount()

	byNumber := make(map[int][]model.Region, len(pages))
	for _, p := range pages {
		byNumber[p.PageNumber] = p.Regions
	}

	plans := a.plan(doc, byNumber, &report)

	if err := a.render(ctx, plans); err != nil {
		return report, err
	}

	for _, p := range plans {
		if p.err == nil {
			p.err = doc.composite(p.number, p.overlay, p.names, a.opts)
		}
		if p.err != nil {
			a.failPage(&report, p.number, p.err)
			continue
		}
		report.Annotated++
		report.Boxes += len(p.marks)
		a.opts.Logger.Debug("annotated page", "page", p.number, "boxes", len(p.marks))
	}

	if err := doc.write(outputPath); err != nil {
		return report, err
	}

	a.opts.Logger.Info("annotated document", "output", outputPath, "pages", report.Pages,
		"annotated", report.Annotated, "passed_through", report.PassedThrough, "failed", report.Failed)
	return report, nil
}

// plan reads each page's geometry and picks the pages that need an overlay.
// It runs sequentially since it reads the shared document.
func (a *Annotator) plan(doc *pdfDoc, byNumber map[int][]model.Region, report *Report) []*pagePlan {
	var plans []*pagePlan
	for nr := 1; nr <= doc.pageCount(); nr++ {
		survivors := Survivors(byNumber[nr])
		if len(survivors) == 0 {
			report.PassedThrough++
			continue
		}

		setup, err := doc.pageInfo(nr)
		if err != nil {
			a.failPage(report, nr, err)
			continue
		}
		if setup.rotationErr != nil {
			report.Warnings = append(report.Warnings, PageError{Page: nr, Err: setup.rotationErr})
			a.opts.Logger.Warn("treating page as unrotated", "page", nr, "error", setup.rotationErr)
		}
		if err := setup.geom.Validate(); err != nil {
			a.failPage(report, nr, err)
			continue
		}
		plans = append(plans, &pagePlan{number: nr, geom: setup.geom, regions: survivors, names: setup.names})
	}
	return plans
}

// render builds every planned overlay in parallel.
func (a *Annotator) render(ctx context.Context, plans []*pagePlan) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.opts.Concurrency)
	for _, p := range plans {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			p.marks, p.err = Layout(p.geom, p.regions, a.opts)
			if p.err == nil {
				p.overlay = buildOverlay(p.marks, p.geom.Rotation, p.names, a.opts)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("rendering overlays: %w", err)
	}
	return nil
}

func (a *Annotator) failPage(report *Report, page int, err error) {
	report.Failed++
	report.PageErrors = append(report.PageErrors, PageError{Page: page, Err: err})
	a.opts.Logger.Warn("page written without overlay", "page", page, "error", err)
}
