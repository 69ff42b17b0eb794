package model

import "math"

// Point represents a 2D point
type Point struct {
	X, Y float64
}

// BBox represents a rectangle in page space (PDF coordinate system,
// origin bottom-left, y increasing upward).
type BBox struct {
	X      float64 // Left
	Y      float64 // Bottom
	Width  float64
	Height float64
}

// NewBBox creates a bounding box from coordinates
func NewBBox(x, y, width, height float64) BBox {
	return BBox{X: x, Y: y, Width: width, Height: height}
}

// NewBBoxFromPoints creates a bounding box from two corner points
func NewBBoxFromPoints(p1, p2 Point) BBox {
	x := math.Min(p1.X, p2.X)
	y := math.Min(p1.Y, p2.Y)
	width := math.Abs(p2.X - p1.X)
	height := math.Abs(p2.Y - p1.Y)
	return BBox{X: x, Y: y, Width: width, Height: height}
}

// Left returns the left edge X coordinate
func (b BBox) Left() float64 {
	return b.X
}

// Right returns the right edge X coordinate
func (b BBox) Right() float64 {
	return b.X + b.Width
}

// Top returns the top edge Y coordinate
func (b BBox) Top() float64 {
	return b.Y + b.Height
}

// ApproxEqual reports whether two boxes match within tol on every field.
func (b BBox) ApproxEqual(other BBox, tol float64) bool {
	return math.Abs(b.X-other.X) <= tol &&
		math.Abs(b.Y-other.Y) <= tol &&
		math.Abs(b.Width-other.Width) <= tol &&
		math.Abs(b.Height-other.Height) <= tol
}

// Box is a region box in normalized coordinates: fractions of the page
// raster's width and height, origin top-left, y increasing downward.
type Box struct {
	X0, Y0, X1, Y1 float64
}

// Width returns the normalized width of the box.
func (b Box) Width() float64 { return b.X1 - b.X0 }

// Height returns the normalized height of the box.
func (b Box) Height() float64 { return b.Y1 - b.Y0 }

// InUnitSquare reports whether every edge lies within [0,1], allowing eps
// of slack for values a model rounded just past the border.
func (b Box) InUnitSquare(eps float64) bool {
	for _, v := range [4]float64{b.X0, b.Y0, b.X1, b.Y1} {
		if v < -eps || v > 1+eps {
			return false
		}
	}
	return true
}

// Slice returns the box as the four-number form used on the wire.
func (b Box) Slice() []float64 {
	return []float64{b.X0, b.Y0, b.X1, b.Y1}
}

// Matrix represents a 2D affine transformation matrix
type Matrix [6]float64

// Identity returns an identity matrix
func Identity() Matrix {
	return Matrix{1, 0, 0, 1, 0, 0}
}

// Transform applies the matrix transformation to a point
func (m Matrix) Transform(p Point) Point {
	return Point{
		X: m[0]*p.X + m[2]*p.Y + m[4],
		Y: m[1]*p.X + m[3]*p.Y + m[5],
	}
}

// Multiply multiplies two matrices
func (m Matrix) Multiply(other Matrix) Matrix {
	return Matrix{
		m[0]*other[0] + m[1]*other[2],
		m[0]*other[1] + m[1]*other[3],
		m[2]*other[0] + m[3]*other[2],
		m[2]*other[1] + m[3]*other[3],
		m[4]*other[0] + m[5]*other[2] + other[4],
		m[4]*other[1] + m[5]*other[3] + other[5],
	}
}

// Translate creates a translation matrix
func Translate(tx, ty float64) Matrix {
	return Matrix{1, 0, 0, 1, tx, ty}
}
