// Package model provides the data model shared by every stage of a
// layout conversion.
//
// The perception model returns, for each rasterized page, an ordered list of
// classified content areas. This package represents them as [Region] values
// grouped into a [PageLayout] per page, and a [Document] for a whole run.
//
// # Regions
//
// A [Region] has a [RegionType] from a closed set (text, title, list, index,
// page_number, table, table_caption, image, image_caption, equation,
// interline_equation, abandon), an optional content string and a raw box:
//
//	r := model.Region{Type: model.RegionTable, BBox: []float64{0.1, 0.2, 0.9, 0.5}}
//	if box, ok := r.Box(); ok {
//	    fmt.Println(box.Width(), box.Height())
//	}
//
// Boxes are normalized: fractions of the page raster, origin top-left. A box
// that is absent or does not hold four finite, ordered numbers is reported as
// missing by [Region.Box] and skipped by every consumer.
//
// # Geometry
//
// Page-space rectangles use [BBox] (origin bottom-left, y up, in points), the
// coordinate system drawing and compositing happen in. [Matrix] carries the
// affine transforms used when placing text on rotated pages.
//
// # Ownership
//
// Downstream stages that may run concurrently take private copies through
// [CloneLayouts]; nothing in this package is safe for concurrent mutation.
package model
