//go:build !fitz

package raster

import (
	"context"

	"github.com/tsawler/layoutmd/model"
)

// Fitz is a stub used when the "fitz" build tag is not set.
type Fitz struct{}

// NewFitz returns ErrFitzNotEnabled.
func NewFitz(opts FitzOptions) (*Fitz, error) {
	return nil, ErrFitzNotEnabled
}

// Rasterize returns ErrFitzNotEnabled.
func (f *Fitz) Rasterize(ctx context.Context, pdfPath, outDir string) ([]model.PageImage, error) {
	return nil, ErrFitzNotEnabled
}
