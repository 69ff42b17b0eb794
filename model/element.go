package model

import "math"

// RegionType is the class the perception model assigned to a region.
type RegionType string

const (
	RegionText              RegionType = "text"
	RegionTitle             RegionType = "title"
	RegionList              RegionType = "list"
	RegionIndex             RegionType = "index"
	RegionPageNumber        RegionType = "page_number"
	RegionTable             RegionType = "table"
	RegionTableCaption      RegionType = "table_caption"
	RegionImage             RegionType = "image"
	RegionImageCaption      RegionType = "image_caption"
	RegionEquation          RegionType = "equation"
	RegionInterlineEquation RegionType = "interline_equation"
	RegionAbandon           RegionType = "abandon"
)

// RegionTypes returns the closed set of known region types.
func RegionTypes() []RegionType {
	return []RegionType{
		RegionText, RegionTitle, RegionList, RegionIndex, RegionPageNumber,
		RegionTable, RegionTableCaption, RegionImage, RegionImageCaption,
		RegionEquation, RegionInterlineEquation, RegionAbandon,
	}
}

// Known reports whether t is one of the closed set of region types.
func (t RegionType) Known() bool {
	for _, k := range RegionTypes() {
		if t == k {
			return true
		}
	}
	return false
}

// IsEquation reports whether the region holds LaTeX display math.
func (t RegionType) IsEquation() bool {
	return t == RegionEquation || t == RegionInterlineEquation
}

func (t RegionType) String() string { return string(t) }

// Region is one classified content area on one page.
type Region struct {
	// PageNumber is 1-based and stable across all components.
	PageNumber int        `json:"page_number,omitempty"`
	Type       RegionType `json:"type"`
	// BBox is the raw box as returned by the perception model:
	// [x0, y0, x1, y1] in normalized top-left space. Use Box to read it.
	BBox []float64 `json:"bbox,omitempty"`
	// Content is plain text, an HTML table fragment, or LaTeX depending
	// on Type. Images carry no content.
	Content string `json:"content,omitempty"`
	// IsCrossPage is set when Content is the fusion of two table regions
	// that were split by a page boundary.
	IsCrossPage bool `json:"is_cross_page,omitempty"`
}

// Box returns the region's normalized box. The second result is false when
// the box is absent, does not hold exactly four finite numbers, or has
// inverted edges; every consumer skips such regions.
func (r Region) Box() (Box, bool) {
	if len(r.BBox) != 4 {
		return Box{}, false
	}
	for _, v := range r.BBox {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Box{}, false
		}
	}
	b := Box{X0: r.BBox[0], Y0: r.BBox[1], X1: r.BBox[2], Y1: r.BBox[3]}
	if b.X0 > b.X1 || b.Y0 > b.Y1 {
		return Box{}, false
	}
	return b, true
}

// HasBox reports whether the region carries a usable box.
func (r Region) HasBox() bool {
	_, ok := r.Box()
	return ok
}

// Clone returns a deep copy of the region.
func (r Region) Clone() Region {
	c := r
	if r.BBox != nil {
		c.BBox = append([]float64(nil), r.BBox...)
	}
	return c
}
