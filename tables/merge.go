package tables

import (
	"github.com/tsawler/layoutmd/model"
)

// Merge records one fusion of the trailing table on Page with the leading
// table on NextPage.
type Merge struct {
	Page     int
	NextPage int
}

// MergeReport lists the merges MergeCrossPage performed, in page order.
type MergeReport struct {
	Merges []Merge
}

// Count returns the number of fused page pairs.
func (r MergeReport) Count() int { return len(r.Merges) }

// MergeCrossPage fuses table fragments split across page boundaries.
//
// The input is not modified. The returned pages are sorted by page number and
// own fresh region slices, so callers may hand them to concurrent readers.
func MergeCrossPage(pages []model.PageLayout) ([]model.PageLayout, MergeReport) {
	out := model.CloneLayouts(pages)
	model.SortPages(out)

	var report MergeReport

	// lead is the page whose last region may absorb the next page's first.
	// It only skips ahead when a merge emptied the page in between.
	lead, fresh := -1, false
	for j := range out {
		if lead >= 0 && fuse(&out[lead], &out[j], fresh) {
			report.Merges = append(report.Merges, Merge{
				Page:     out[lead].PageNumber,
				NextPage: out[j].PageNumber,
			})
			if len(out[j].Regions) == 0 {
				fresh = true
				continue
			}
		}
		lead, fresh = j, false
	}
	return out, report
}

// fuse appends next's first region to cur's last region when both are
// tables. fresh is set when cur's last region was produced by this run.
func fuse(cur, next *model.PageLayout, fresh bool) bool {
	last, ok := cur.Last()
	if !ok || !canLead(last, fresh) {
		return false
	}
	first, ok := next.First()
	if !ok || !canTrail(first) {
		return false
	}

	fused := last
	fused.Content = last.Content + first.Content
	fused.IsCrossPage = true

	regions := make([]model.Region, len(cur.Regions))
	copy(regions, cur.Regions)
	regions[len(regions)-1] = fused
	cur.Regions = regions

	next.Regions = append([]model.Region{}, next.Regions[1:]...)
	return true
}

// canLead reports whether r may be the first half of a merge. A table fused
// earlier in the same pass keeps growing. A table that arrived already
// marked cross-page does not lead, although the plain rule would let any
// trailing table lead; this is deliberate and keeps MergeCrossPage
// idempotent on its own output.
func canLead(r model.Region, fresh bool) bool {
	return r.Type == model.RegionTable && (!r.IsCrossPage || fresh)
}

// canTrail reports whether r may be absorbed into the previous page's table.
func canTrail(r model.Region) bool {
	return r.Type == model.RegionTable && !r.IsCrossPage
}
