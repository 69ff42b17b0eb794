package model

// PageLayout is one page's ordered regions plus the path to that page's
// rasterized image.
type PageLayout struct {
	PageNumber int      `json:"page_number"` // 1-indexed page number
	ImagePath  string   `json:"image_path,omitempty"`
	Regions    []Region `json:"regions"`
}

// NewPageLayout creates a layout for the given page and raster, stamping
// the page number onto every region.
func NewPageLayout(pageNumber int, imagePath string, regions []Region) PageLayout {
	p := PageLayout{
		PageNumber: pageNumber,
		ImagePath:  imagePath,
		Regions:    make([]Region, 0, len(regions)),
	}
	for _, r := range regions {
		r = r.Clone()
		r.PageNumber = pageNumber
		p.Regions = append(p.Regions, r)
	}
	return p
}

// First returns the page's first region.
func (p PageLayout) First() (Region, bool) {
	if len(p.Regions) == 0 {
		return Region{}, false
	}
	return p.Regions[0], true
}

// Last returns the page's last region.
func (p PageLayout) Last() (Region, bool) {
	if len(p.Regions) == 0 {
		return Region{}, false
	}
	return p.Regions[len(p.Regions)-1], true
}

// RegionsOfType returns the regions of the given type, in page order.
func (p PageLayout) RegionsOfType(t RegionType) []Region {
	var out []Region
	for _, r := range p.Regions {
		if r.Type == t {
			out = append(out, r)
		}
	}
	return out
}

// Clone returns a deep copy of the page layout.
func (p PageLayout) Clone() PageLayout {
	c := p
	if p.Regions != nil {
		c.Regions = make([]Region, len(p.Regions))
		for i, r := range p.Regions {
			c.Regions[i] = r.Clone()
		}
	}
	return c
}

// CloneLayouts deep-copies a page sequence so a consumer can own a
// private view of it.
func CloneLayouts(pages []PageLayout) []PageLayout {
	if pages == nil {
		return nil
	}
	out := make([]PageLayout, len(pages))
	for i, p := range pages {
		out[i] = p.Clone()
	}
	return out
}

// PageImage is one rasterized page of the source document.
type PageImage struct {
	PageNumber int    `json:"page_number"`
	Path       string `json:"path"`
}
