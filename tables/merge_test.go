package tables

import (
	"reflect"
	"testing"

	"github.com/tsawler/layoutmd/model"
)

func tableRegion(content string) model.Region {
	return model.Region{Type: model.RegionTable, BBox: []float64{0, 0, 1, 1}, Content: content}
}

func text(content string) model.Region {
	return model.Region{Type: model.RegionText, Content: content}
}

func page(n int, regions ...model.Region) model.PageLayout {
	return model.NewPageLayout(n, "", regions)
}

func contents(p model.PageLayout) []string {
	out := []string{}
	for _, r := range p.Regions {
		out = append(out, r.Content)
	}
	return out
}

func TestMergeCrossPage(t *testing.T) {
	tests := []struct {
		name   string
		pages  []model.PageLayout
		want   [][]string
		merges int
	}{
		{
			name:   "table ends page and starts next",
			pages:  []model.PageLayout{page(1, text("intro"), tableRegion("A")), page(2, tableRegion("B"), text("after"))},
			want:   [][]string{{"intro", "AB"}, {"after"}},
			merges: 1,
		},
		{
			name:   "text ends page",
			pages:  []model.PageLayout{page(1, tableRegion("A"), text("end")), page(2, tableRegion("B"))},
			want:   [][]string{{"A", "end"}, {"B"}},
			merges: 0,
		},
		{
			name:   "text starts next page",
			pages:  []model.PageLayout{page(1, tableRegion("A")), page(2, text("start"), tableRegion("B"))},
			want:   [][]string{{"A"}, {"start", "B"}},
			merges: 0,
		},
		{
			name:   "empty next page",
			pages:  []model.PageLayout{page(1, tableRegion("A")), page(2), page(3, tableRegion("C"))},
			want:   [][]string{{"A"}, {}, {"C"}},
			merges: 0,
		},
		{
			name: "three page table",
			pages: []model.PageLayout{
				page(1, text("intro"), tableRegion("A")),
				page(2, tableRegion("B")),
				page(3, tableRegion("C"), text("outro")),
			},
			want:   [][]string{{"intro", "ABC"}, {}, {"outro"}},
			merges: 2,
		},
		{
			name: "middle page keeps other content",
			pages: []model.PageLayout{
				page(1, tableRegion("A")),
				page(2, tableRegion("B"), text("note"), tableRegion("D")),
				page(3, tableRegion("E")),
			},
			want:   [][]string{{"AB"}, {"note", "DE"}, {}},
			merges: 2,
		},
		{
			name:   "pages out of order",
			pages:  []model.PageLayout{page(2, tableRegion("B")), page(1, tableRegion("A"))},
			want:   [][]string{{"AB"}, {}},
			merges: 1,
		},
		{
			name:   "single page",
			pages:  []model.PageLayout{page(1, tableRegion("A"))},
			want:   [][]string{{"A"}},
			merges: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, report := MergeCrossPage(tt.pages)
			if report.Count() != tt.merges {
				t.Errorf("merges = %d, want %d", report.Count(), tt.merges)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d pages, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if c := contents(got[i]); !reflect.DeepEqual(c, tt.want[i]) {
					t.Errorf("page %d = %q, want %q", got[i].PageNumber, c, tt.want[i])
				}
			}
		})
	}
}

func TestMergeMarksCrossPage(t *testing.T) {
	pages := []model.PageLayout{page(1, tableRegion("A")), page(2, tableRegion("B"), text("x"))}
	got, report := MergeCrossPage(pages)

	last, _ := got[0].Last()
	if !last.IsCrossPage {
		t.Error("fused region should be marked cross-page")
	}
	if last.PageNumber != 1 {
		t.Errorf("fused region page = %d, want 1", last.PageNumber)
	}
	if len(got[1].Regions) != 1 || got[1].Regions[0].IsCrossPage {
		t.Errorf("page 2 = %+v", got[1].Regions)
	}
	want := []Merge{{Page: 1, NextPage: 2}}
	if !reflect.DeepEqual(report.Merges, want) {
		t.Errorf("report = %+v, want %+v", report.Merges, want)
	}
}

func TestMergeDoesNotModifyInput(t *testing.T) {
	pages := []model.PageLayout{page(1, tableRegion("A")), page(2, tableRegion("B"))}
	MergeCrossPage(pages)

	if pages[0].Regions[0].Content != "A" || pages[0].Regions[0].IsCrossPage {
		t.Errorf("page 1 input changed: %+v", pages[0].Regions)
	}
	if len(pages[1].Regions) != 1 {
		t.Errorf("page 2 input changed: %+v", pages[1].Regions)
	}
}

func TestMergeIsIdempotent(t *testing.T) {
	inputs := [][]model.PageLayout{
		{page(1, tableRegion("A")), page(2, tableRegion("B"), tableRegion("C"))},
		{page(1, tableRegion("A")), page(2, tableRegion("B")), page(3, tableRegion("C"))},
		{page(1, text("t"), tableRegion("A")), page(2, tableRegion("B"), text("u")), page(3, tableRegion("C"))},
		{page(1, tableRegion("A")), page(2, text("x"))},
	}
	for i, in := range inputs {
		once, _ := MergeCrossPage(in)
		twice, report := MergeCrossPage(once)
		if report.Count() != 0 {
			t.Errorf("input %d: second run merged %+v", i, report.Merges)
		}
		if !reflect.DeepEqual(once, twice) {
			t.Errorf("input %d: second run changed the result\nonce:  %+v\ntwice: %+v", i, once, twice)
		}
	}
}

func TestMergeCrossPageRegionNotConsumed(t *testing.T) {
	fused := tableRegion("XY")
	fused.IsCrossPage = true
	pages := []model.PageLayout{page(1, tableRegion("A")), page(2, fused)}

	got, report := MergeCrossPage(pages)
	if report.Count() != 0 {
		t.Fatalf("already fused region was absorbed: %+v", got)
	}
}

func TestMergeCrossPageRegionDoesNotLead(t *testing.T) {
	fused := tableRegion("AB")
	fused.IsCrossPage = true
	pages := []model.PageLayout{page(1, fused), page(2, tableRegion("C"))}

	got, report := MergeCrossPage(pages)
	if report.Count() != 0 {
		t.Fatalf("table fused by an earlier run led a new merge: %+v", report.Merges)
	}
	if !reflect.DeepEqual(contents(got[1]), []string{"C"}) {
		t.Errorf("page 2 = %v", contents(got[1]))
	}
}

func TestMergeEmpty(t *testing.T) {
	got, report := MergeCrossPage(nil)
	if got != nil || report.Count() != 0 {
		t.Errorf("MergeCrossPage(nil) = %v, %+v", got, report)
	}
}
