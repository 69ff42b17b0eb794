// Package coords maps normalized region boxes into page space.
//
// The perception model reports boxes relative to the upright page raster:
// fractions of its width and height with the origin at the top-left. Drawing
// on the original document happens in page space instead: points, origin at
// the bottom-left of the page box, y increasing upward, and before the page's
// /Rotate is applied. A page rotated by 90 or 270 degrees therefore displays
// with its width and height swapped relative to its stored page box.
//
// Only right-angle rotations are supported. Any other angle is reported as
// [ErrUnsupportedRotation] rather than guessed.
package coords

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/tsawler/layoutmd/model"
)

var (
	// ErrInvalidRotation is returned when a rotation value cannot be parsed.
	// Callers treat the page as unrotated and log a warning.
	ErrInvalidRotation = errors.New("invalid rotation value")

	// ErrUnsupportedRotation is returned for rotations that are not a
	// multiple of 90 degrees.
	ErrUnsupportedRotation = errors.New("unsupported page rotation")

	// ErrEmptyPage is returned for pages with non-positive dimensions.
	ErrEmptyPage = errors.New("page has no area")
)

// NormalizeRotation converts a page's declared rotation attribute to an
// angle in [0, 360). Integers, floats (truncated) and numeric strings are
// accepted; nil means 0.
func NormalizeRotation(v any) (int, error) {
	var n int
	switch r := v.(type) {
	case nil:
		return 0, nil
	case int:
		n = r
	case int32:
		n = int(r)
	case int64:
		n = int(r)
	case float32:
		if math.IsNaN(float64(r)) || math.IsInf(float64(r), 0) {
			return 0, fmt.Errorf("%w: %v", ErrInvalidRotation, r)
		}
		n = int(r)
	case float64:
		if math.IsNaN(r) || math.IsInf(r, 0) {
			return 0, fmt.Errorf("%w: %v", ErrInvalidRotation, r)
		}
		n = int(r)
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(r))
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidRotation, r)
		}
		n = parsed
	default:
		return 0, fmt.Errorf("%w: %T", ErrInvalidRotation, v)
	}
	return ((n % 360) + 360) % 360, nil
}

// Supported reports whether a normalized rotation is a right angle.
func Supported(rotation int) bool {
	switch rotation {
	case 0, 90, 180, 270:
		return true
	}
	return false
}

// Page is the geometry of a target document page.
type Page struct {
	Width    float64 // page box width in points, before rotation
	Height   float64 // page box height in points, before rotation
	OriginX  float64 // lower-left corner of the page box
	OriginY  float64
	Rotation int // normalized clockwise display rotation
}

// Validate checks that the page has area and a supported rotation.
func (p Page) Validate() error {
	if p.Width <= 0 || p.Height <= 0 {
		return fmt.Errorf("%w: %gx%g", ErrEmptyPage, p.Width, p.Height)
	}
	if !Supported(p.Rotation) {
		return fmt.Errorf("%w: %d", ErrUnsupportedRotation, p.Rotation)
	}
	return nil
}

// DisplaySize returns the width and height of the page as displayed, that
// is after rotation. These are the dimensions a normalized box scales with.
func (p Page) DisplaySize() (width, height float64) {
	if p.Rotation == 90 || p.Rotation == 270 {
		return p.Height, p.Width
	}
	return p.Width, p.Height
}

// Map converts a normalized box into a page-space rectangle.
func (p Page) Map(box model.Box) (model.BBox, error) {
	if err := p.Validate(); err != nil {
		return model.BBox{}, err
	}
	w, h := p.Width, p.Height
	var r model.BBox
	switch p.Rotation {
	case 0:
		r = model.BBox{X: box.X0 * w, Y: h - box.Y1*h, Width: box.Width() * w, Height: box.Height() * h}
	case 90:
		r = model.BBox{X: box.Y0 * w, Y: box.X0 * h, Width: box.Height() * w, Height: box.Width() * h}
	case 180:
		r = model.BBox{X: w - box.X1*w, Y: box.Y0 * h, Width: box.Width() * w, Height: box.Height() * h}
	case 270:
		r = model.BBox{X: w - box.Y1*w, Y: h - box.X1*h, Width: box.Height() * w, Height: box.Width() * h}
	}
	r.X += p.OriginX
	r.Y += p.OriginY
	return r, nil
}

// ToNormalized is the inverse of Map.
func (p Page) ToNormalized(r model.BBox) (model.Box, error) {
	if err := p.Validate(); err != nil {
		return model.Box{}, err
	}
	w, h := p.Width, p.Height
	x, y := r.X-p.OriginX, r.Y-p.OriginY
	switch p.Rotation {
	case 90:
		return model.Box{X0: y / h, Y0: x / w, X1: (y + r.Height) / h, Y1: (x + r.Width) / w}, nil
	case 180:
		return model.Box{X0: (w - x - r.Width) / w, Y0: y / h, X1: (w - x) / w, Y1: (y + r.Height) / h}, nil
	case 270:
		return model.Box{X0: (h - y - r.Height) / h, Y0: (w - x - r.Width) / w, X1: (h - y) / h, Y1: (w - x) / w}, nil
	default:
		return model.Box{X0: x / w, Y0: (h - y - r.Height) / h, X1: (x + r.Width) / w, Y1: (h - y) / h}, nil
	}
}

// MapPoint converts a point in upright display space (points, origin
// top-left, y down) into page space.
func (p Page) MapPoint(pt model.Point) (model.Point, error) {
	if err := p.Validate(); err != nil {
		return model.Point{}, err
	}
	w, h := p.Width, p.Height
	var out model.Point
	switch p.Rotation {
	case 0:
		out = model.Point{X: pt.X, Y: h - pt.Y}
	case 90:
		out = model.Point{X: pt.Y, Y: pt.X}
	case 180:
		out = model.Point{X: w - pt.X, Y: pt.Y}
	case 270:
		out = model.Point{X: w - pt.Y, Y: h - pt.X}
	}
	out.X += p.OriginX
	out.Y += p.OriginY
	return out, nil
}

// MapRegionToPageSpace maps a normalized box onto a page of the given size
// and rotation with its page box anchored at the origin.
func MapRegionToPageSpace(box model.Box, pageWidth, pageHeight float64, rotation int) (model.BBox, error) {
	return Page{Width: pageWidth, Height: pageHeight, Rotation: rotation}.Map(box)
}

// TextMatrix returns a text matrix that places the text origin at the given
// page-space point and counter-rotates by the page rotation, so that text
// reads upright once the viewer applies /Rotate.
func TextMatrix(rotation int, at model.Point) model.Matrix {
	var m model.Matrix
	switch rotation {
	case 90:
		m = model.Matrix{0, 1, -1, 0, 0, 0}
	case 180:
		m = model.Matrix{-1, 0, 0, -1, 0, 0}
	case 270:
		m = model.Matrix{0, -1, 1, 0, 0, 0}
	default:
		m = model.Identity()
	}
	return m.Multiply(model.Translate(at.X, at.Y))
}
