package raster

import (
	"errors"
	"log/slog"
)

// ErrFitzNotEnabled is returned by NewFitz when MuPDF support was not
// compiled in. Rebuild with -tags fitz to enable it.
var ErrFitzNotEnabled = errors.New("MuPDF support not enabled; rebuild with -tags fitz")

// FitzOptions configures the MuPDF rasterizer.
type FitzOptions struct {
	DPI     int // default DefaultDPI
	Quality int // JPEG quality, default 90
	Logger  *slog.Logger
}

func (o *FitzOptions) defaults() {
	if o.DPI <= 0 {
		o.DPI = DefaultDPI
	}
	if o.Quality <= 0 || o.Quality > 100 {
		o.Quality = 90
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}
