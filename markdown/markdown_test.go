package markdown

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/tsawler/layoutmd/crop"
	"github.com/tsawler/layoutmd/model"
)

// fakeImages records crops without touching the file system.
type fakeImages struct {
	mu   sync.Mutex
	next int
	fail map[int]bool // page numbers whose crops fail
}

func (f *fakeImages) Next() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	return f.next
}

func (f *fakeImages) Crop(_ string, _ model.Box, page, seq int) (string, error) {
	if f.fail[page] {
		return "", errors.New("unreadable raster")
	}
	return "images/" + crop.FileName(page, seq), nil
}

func render(t *testing.T, images ImageSource, opts Options, pages ...model.PageLayout) (string, Report) {
	t.Helper()
	md, report, err := New(images, opts).Render(context.Background(), pages)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	return md, report
}

func TestRenderTextThenEquation(t *testing.T) {
	md, _ := render(t, nil, Options{}, model.NewPageLayout(1, "", []model.Region{
		{Type: model.RegionText, Content: "Hello"},
		{Type: model.RegionEquation, Content: "x=1"},
	}))

	hello := strings.Index(md, "Hello")
	eq := strings.Index(md, "$$\nx=1\n$$")
	if hello < 0 || eq < 0 || eq < hello {
		t.Errorf("want Hello followed by a $$ block, got:\n%s", md)
	}
}

func TestRenderExactOutput(t *testing.T) {
	pages := []model.PageLayout{
		model.NewPageLayout(1, "", []model.Region{
			{Type: model.RegionTitle, Content: "Report\n\n"},
			{Type: model.RegionText, Content: "\n\nFirst paragraph."},
			{Type: model.RegionTable, Content: "<table><tr><td>1</td></tr></table>"},
		}),
		model.NewPageLayout(2, "", []model.Region{
			{Type: model.RegionInterlineEquation, Content: "E=mc^2"},
			{Type: model.RegionPageNumber, Content: "2"},
		}),
	}
	md, report := render(t, nil, Options{}, pages...)

	want := "---\n\n# Page 1\n\n" +
		"Report\nFirst paragraph.\n<table><tr><td>1</td></tr></table>" +
		"\n\n---\n\n# Page 2\n\n" +
		"$$\nE=mc^2\n$$\n2"
	if md != want {
		t.Errorf("Render() =\n%q\nwant\n%q", md, want)
	}
	if report.Pages != 2 || report.Regions != 5 || report.Emitted != 5 {
		t.Errorf("report = %+v", report)
	}
}

func TestRenderDispatch(t *testing.T) {
	tests := []struct {
		name   string
		region model.Region
		want   string
		absent string
	}{
		{"list", model.Region{Type: model.RegionList, Content: "- a\n- b"}, "- a\n- b", ""},
		{"abandon falls back to text", model.Region{Type: model.RegionAbandon, Content: "footer"}, "footer", ""},
		{"unknown type falls back to text", model.Region{Type: "footnote", Content: "note 1"}, "note 1", ""},
		{"caption", model.Region{Type: model.RegionImageCaption, Content: "Figure 1"}, "Figure 1", ""},
		{"empty text skipped", model.Region{Type: model.RegionText, Content: "  \n "}, "# Page 1", "\n\n\n"},
		{"empty equation skipped", model.Region{Type: model.RegionEquation}, "# Page 1", "$$"},
		{"empty table skipped", model.Region{Type: model.RegionTable}, "# Page 1", "<table"},
		{"nfc", model.Region{Type: model.RegionText, Content: "Cafe\u0301"}, "Caf\u00e9", "e\u0301"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			md, _ := render(t, nil, Options{}, model.NewPageLayout(1, "", []model.Region{tt.region}))
			if !strings.Contains(md, tt.want) {
				t.Errorf("output missing %q:\n%s", tt.want, md)
			}
			if tt.absent != "" && strings.Contains(md, tt.absent) {
				t.Errorf("output should not contain %q:\n%s", tt.absent, md)
			}
		})
	}
}

func TestRenderImages(t *testing.T) {
	images := &fakeImages{fail: map[int]bool{2: true}}
	pages := []model.PageLayout{
		model.NewPageLayout(1, "p1.png", []model.Region{
			{Type: model.RegionImage, BBox: []float64{0, 0, 0.5, 0.5}},
			{Type: model.RegionImage, BBox: []float64{0.1, 0.2}},
			{Type: model.RegionImage, BBox: []float64{0.5, 0.5, 1, 1}},
		}),
		model.NewPageLayout(2, "p2.png", []model.Region{
			{Type: model.RegionImage, BBox: []float64{0, 0, 1, 1}},
			{Type: model.RegionText, Content: "after"},
		}),
	}
	md, report := render(t, images, Options{}, pages...)

	for _, want := range []string{"![Image](images/page_1_img_1.jpg)", "![Image](images/page_1_img_2.jpg)"} {
		if !strings.Contains(md, want) {
			t.Errorf("output missing %q:\n%s", want, md)
		}
	}
	if n := strings.Count(md, "!["); n != 2 {
		t.Errorf("got %d image references, want 2:\n%s", n, md)
	}
	if !strings.Contains(md, "# Page 2\n\nafter") {
		t.Errorf("failed crop should leave nothing behind:\n%s", md)
	}
	if report.Images != 2 || report.ImagesFailed != 2 || len(report.Errors) != 2 {
		t.Errorf("report = %+v", report)
	}
}

func TestRenderWithoutImageSource(t *testing.T) {
	md, report := render(t, nil, Options{}, model.NewPageLayout(1, "p.png", []model.Region{
		{Type: model.RegionImage, BBox: []float64{0, 0, 1, 1}},
	}))
	if strings.Contains(md, "![") {
		t.Errorf("no image source should mean no image references:\n%s", md)
	}
	if report.ImagesFailed != 1 {
		t.Errorf("ImagesFailed = %d, want 1", report.ImagesFailed)
	}
}

func TestRenderSequenceIsDocumentOrder(t *testing.T) {
	var regions []model.Region
	for i := 0; i < 20; i++ {
		regions = append(regions, model.Region{Type: model.RegionImage, BBox: []float64{0, 0, 1, 1}})
	}
	md, _ := render(t, &fakeImages{}, Options{CropConcurrency: 8},
		model.NewPageLayout(2, "b.png", regions[:10]),
		model.NewPageLayout(1, "a.png", regions[10:]))

	last := -1
	for i := 1; i <= 20; i++ {
		page := 1
		if i > 10 {
			page = 2
		}
		idx := strings.Index(md, fmt.Sprintf("page_%d_img_%d.jpg", page, i))
		if idx < 0 || idx < last {
			t.Fatalf("image %d missing or out of order:\n%s", i, md)
		}
		last = idx
	}
}

func TestRenderTableOptions(t *testing.T) {
	fused := model.Region{
		Type:        model.RegionTable,
		IsCrossPage: true,
		Content:     "<table><tr><td>a</td></tr></table><table><tr><td>b</td><td onclick=\"x()\">c</td></tr></table>",
	}
	page := model.NewPageLayout(1, "", []model.Region{fused})

	md, _ := render(t, nil, Options{}, page)
	if strings.Count(md, "<table>") != 2 {
		t.Errorf("default should emit tables verbatim:\n%s", md)
	}

	md, _ = render(t, nil, Options{FuseCrossPageTables: true, SanitizeTables: true}, page)
	if strings.Count(md, "<table>") != 1 || strings.Contains(md, "onclick") {
		t.Errorf("fused and sanitized table expected:\n%s", md)
	}

	md, _ = render(t, nil, Options{TableFormat: TableMarkdown}, model.NewPageLayout(1, "", []model.Region{{
		Type:    model.RegionTable,
		Content: "<table><thead><tr><th>k</th></tr></thead><tbody><tr><td>v</td></tr></tbody></table>",
	}}))
	if strings.Contains(md, "<table") || !strings.Contains(md, "|") {
		t.Errorf("pipe table expected:\n%s", md)
	}
}

func TestRenderCustomHeading(t *testing.T) {
	md, _ := render(t, nil, Options{PageHeading: "## Seite"}, model.NewPageLayout(3, "", nil))
	if md != "---\n\n## Seite 3" {
		t.Errorf("Render() = %q", md)
	}
}

func TestRenderCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := New(&fakeImages{}, Options{}).Render(ctx, []model.PageLayout{
		model.NewPageLayout(1, "p.png", []model.Region{{Type: model.RegionImage, BBox: []float64{0, 0, 1, 1}}}),
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Render() error = %v, want context.Canceled", err)
	}
}

func TestRenderWithCropper(t *testing.T) {
	dir := t.TempDir()
	raster := filepath.Join(dir, "page-1.png")
	img := image.NewGray(image.Rect(0, 0, 40, 40))
	for i := range img.Pix {
		img.Pix[i] = 200
	}
	img.Set(0, 0, color.Gray{Y: 0})
	f, err := os.Create(raster)
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	f.Close()

	c, err := crop.New(filepath.Join(dir, crop.DirName), crop.Options{})
	if err != nil {
		t.Fatal(err)
	}
	md, report := render(t, c, Options{}, model.NewPageLayout(1, raster, []model.Region{
		{Type: model.RegionImage, BBox: []float64{0, 0, 0.5, 0.5}},
		{Type: model.RegionImage, BBox: []float64{0.5, 0.5, 1.5, 1}},
	}))

	if !strings.Contains(md, "![Image](images/page_1_img_1.jpg)") {
		t.Errorf("missing crop reference:\n%s", md)
	}
	if _, err := os.Stat(filepath.Join(dir, "images", "page_1_img_1.jpg")); err != nil {
		t.Errorf("crop not written: %v", err)
	}
	if report.Images != 1 || report.ImagesFailed != 1 {
		t.Errorf("report = %+v", report)
	}
	if !errors.Is(report.Errors[0], crop.ErrBoxOutOfRange) {
		t.Errorf("expected ErrBoxOutOfRange, got %v", report.Errors[0])
	}
}
