// Package raster turns PDF pages into images for the layout model and the
// crop step.
//
// Two rasterizers are provided: [Pdftoppm] runs the poppler command line
// tool, and Fitz renders in-process with MuPDF when built with the "fitz"
// tag. Both write page-N.jpg files into the given directory.
package raster

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"

	"github.com/tsawler/layoutmd/model"
)

// DefaultDPI is the resolution pages are rendered at unless configured.
const DefaultDPI = 200

// ErrNoPages is returned when rasterizing produced no page images.
var ErrNoPages = errors.New("no pages rendered")

// Rasterizer renders every page of a PDF into outDir and returns the page
// images in page order.
type Rasterizer interface {
	Rasterize(ctx context.Context, pdfPath, outDir string) ([]model.PageImage, error)
}

// Func adapts a function to the Rasterizer interface.
type Func func(ctx context.Context, pdfPath, outDir string) ([]model.PageImage, error)

// Rasterize calls f.
func (f Func) Rasterize(ctx context.Context, pdfPath, outDir string) ([]model.PageImage, error) {
	return f(ctx, pdfPath, outDir)
}

// FileName returns the file name of a rendered page.
func FileName(pageNumber int) string {
	return fmt.Sprintf("page-%d.jpg", pageNumber)
}

func writeJPEG(path string, img image.Image, quality int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := jpeg.Encode(f, img, &jpeg.Options{Quality: quality}); err != nil {
		f.Close()
		return fmt.Errorf("encoding %s: %w", filepath.Base(path), err)
	}
	return f.Close()
}
