// Package extract defines the perception collaborator: whatever turns a page
// raster into classified regions.
//
// The pipeline only depends on the [Extractor] interface, so any model can
// be plugged in:
//
//   - [HTTPExtractor] posts the raster to a layout service
//   - [DirExtractor] replays region lists saved as page_N.json files
//   - [FromDocument] replays a saved layout.json
//   - [Func] adapts a plain function, mostly for tests
//
// Extractors are constructed explicitly and passed to the pipeline; there
// is no package-level model instance.
package extract

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tsawler/layoutmd/model"
)

// Extractor returns the regions of one page raster, in reading order.
// Implementations must be safe for concurrent use; the pipeline extracts
// pages in parallel.
type Extractor interface {
	Extract(ctx context.Context, page model.PageImage) ([]model.Region, error)
}

// Func adapts a function to the Extractor interface.
type Func func(ctx context.Context, page model.PageImage) ([]model.Region, error)

// Extract calls f.
func (f Func) Extract(ctx context.Context, page model.PageImage) ([]model.Region, error) {
	return f(ctx, page)
}

// Static returns an Extractor that serves fixed regions by page number.
// Pages without an entry have no regions.
func Static(pages map[int][]model.Region) Extractor {
	return Func(func(_ context.Context, page model.PageImage) ([]model.Region, error) {
		regions := pages[page.PageNumber]
		out := make([]model.Region, len(regions))
		for i, r := range regions {
			out[i] = r.Clone()
		}
		return out, nil
	})
}

// FromDocument returns an Extractor that replays a saved document's
// regions by page number.
func FromDocument(doc *model.Document) Extractor {
	pages := make(map[int][]model.Region, len(doc.Pages))
	for _, p := range doc.Pages {
		pages[p.PageNumber] = p.Regions
	}
	return Static(pages)
}

// blocksResponse is the wire shape of a page's regions: either a bare
// array or an object with a "blocks" array.
type blocksResponse struct {
	Blocks []model.Region `json:"blocks"`
}

// DecodeRegions parses a page's regions from JSON.
func DecodeRegions(data []byte) ([]model.Region, error) {
	var regions []model.Region
	if err := json.Unmarshal(data, &regions); err == nil {
		return regions, nil
	}
	var resp blocksResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("decoding regions: %w", err)
	}
	return resp.Blocks, nil
}
