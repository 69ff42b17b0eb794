//go:build fitz

package raster

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gen2brain/go-fitz"

	"github.com/tsawler/layoutmd/model"
)

// Fitz renders pages in-process with MuPDF.
type Fitz struct {
	opts FitzOptions
}

// NewFitz creates a MuPDF rasterizer.
func NewFitz(opts FitzOptions) (*Fitz, error) {
	opts.defaults()
	return &Fitz{opts: opts}, nil
}

// Rasterize renders every page of the document.
func (f *Fitz) Rasterize(ctx context.Context, pdfPath, outDir string) ([]model.PageImage, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating page dir: %w", err)
	}
	doc, err := fitz.New(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", filepath.Base(pdfPath), err)
	}
	defer doc.Close()

	var pages []model.PageImage
	for i := 0; i < doc.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		img, err := doc.ImageDPI(i, float64(f.opts.DPI))
		if err != nil {
			return nil, fmt.Errorf("rendering page %d: %w", i+1, err)
		}
		path := filepath.Join(outDir, FileName(i+1))
		if err := writeJPEG(path, img, f.opts.Quality); err != nil {
			return nil, fmt.Errorf("writing page %d: %w", i+1, err)
		}
		pages = append(pages, model.PageImage{PageNumber: i + 1, Path: path})
	}
	if len(pages) == 0 {
		return nil, ErrNoPages
	}
	f.opts.Logger.Debug("rasterized document", "pages", len(pages), "dpi", f.opts.DPI)
	return pages, nil
}
