package annotate

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/tsawler/layoutmd/coords"
	"github.com/tsawler/layoutmd/model"
)

const tol = 1e-9

func region(t model.RegionType, bbox ...float64) model.Region {
	return model.Region{Type: t, BBox: bbox}
}

func TestColorFor(t *testing.T) {
	tests := []struct {
		typ  model.RegionType
		want RGB
	}{
		{model.RegionImage, RGB{153, 255, 51}},
		{model.RegionImageCaption, RGB{102, 178, 255}},
		{model.RegionTable, RGB{204, 204, 0}},
		{model.RegionTableCaption, RGB{255, 255, 102}},
		{model.RegionTitle, RGB{102, 102, 255}},
		{model.RegionText, RGB{153, 0, 76}},
		{model.RegionEquation, RGB{0, 255, 0}},
		{model.RegionInterlineEquation, RGB{0, 255, 0}},
		{model.RegionList, RGB{40, 169, 92}},
		{model.RegionIndex, RGB{40, 169, 92}},
		{model.RegionPageNumber, RGB{255, 0, 255}},
		{model.RegionAbandon, DefaultColor},
		{"footnote", RGB{255, 0, 0}},
	}
	for _, tt := range tests {
		if got := ColorFor(tt.typ); got != tt.want {
			t.Errorf("ColorFor(%q) = %v, want %v", tt.typ, got, tt.want)
		}
	}
}

func TestSurvivors(t *testing.T) {
	regions := []model.Region{
		region(model.RegionText, 0, 0, 1, 0.1),
		region(model.RegionList, 0, 0.1, 1, 0.2),
		region(model.RegionImage),
		region(model.RegionAbandon, 0, 0.9, 1, 1),
		region(model.RegionTable, 0, 0.3, 1, 0.5),
		region(model.RegionTitle, 0.5, 0, 0.2, 0.1), // inverted
	}
	got := Survivors(regions)
	if len(got) != 2 || got[0].Type != model.RegionText || got[1].Type != model.RegionTable {
		t.Errorf("Survivors() = %+v", got)
	}
}

func TestLayoutNumbersSurvivorsOnly(t *testing.T) {
	page := coords.Page{Width: 612, Height: 792}
	marks, err := Layout(page, []model.Region{
		region(model.RegionList, 0, 0, 1, 1),
		region(model.RegionText, 0.1, 0.1, 0.4, 0.2),
		region(model.RegionAbandon, 0, 0.95, 1, 1),
		region(model.RegionTable, 0.1, 0.3, 0.4, 0.6),
	}, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(marks) != 2 {
		t.Fatalf("got %d marks, want 2", len(marks))
	}
	if marks[0].Number != 1 || marks[0].Type != model.RegionText {
		t.Errorf("mark 0 = %+v", marks[0])
	}
	if marks[1].Number != 2 || marks[1].Type != model.RegionTable {
		t.Errorf("mark 1 = %+v", marks[1])
	}
}

func TestLayoutLabelPlacement(t *testing.T) {
	page := coords.Page{Width: 612, Height: 792}

	marks, err := Layout(page, []model.Region{
		region(model.RegionText, 0.1, 0.1, 0.5, 0.2),
		region(model.RegionText, 0.5, 0.3, 0.99, 0.4),
	}, Options{})
	if err != nil {
		t.Fatal(err)
	}

	right := marks[0]
	if math.Abs(right.Label.X-(right.Rect.Right()+2)) > tol {
		t.Errorf("label x = %v, want right edge + 2 = %v", right.Label.X, right.Rect.Right()+2)
	}
	if math.Abs(right.Label.Y-(right.Rect.Top()-10)) > tol {
		t.Errorf("label y = %v, want top - 10 = %v", right.Label.Y, right.Rect.Top()-10)
	}

	flipped := marks[1]
	if math.Abs(flipped.Label.X-(flipped.Rect.Left()-15)) > tol {
		t.Errorf("flipped label x = %v, want left edge - 15 = %v", flipped.Label.X, flipped.Rect.Left()-15)
	}
}

func TestLayoutRotatedPage(t *testing.T) {
	page := coords.Page{Width: 612, Height: 792, Rotation: 90}
	marks, err := Layout(page, []model.Region{region(model.RegionTable, 0.1, 0.2, 0.3, 0.4)}, Options{})
	if err != nil {
		t.Fatal(err)
	}
	m := marks[0]

	want, _ := page.Map(model.Box{X0: 0.1, Y0: 0.2, X1: 0.3, Y1: 0.4})
	if !m.Rect.ApproxEqual(want, tol) {
		t.Errorf("rect = %+v, want %+v", m.Rect, want)
	}
	// The display's right edge is the page's top edge on a page turned 90
	// degrees, and the display's top is the page's left.
	if math.Abs(m.Label.Y-(m.Rect.Top()+2)) > tol || math.Abs(m.Label.X-(m.Rect.Left()+10)) > tol {
		t.Errorf("label = %+v for rect %+v", m.Label, m.Rect)
	}
}

func TestLayoutUnsupportedRotation(t *testing.T) {
	_, err := Layout(coords.Page{Width: 100, Height: 100, Rotation: 45},
		[]model.Region{region(model.RegionText, 0, 0, 1, 1)}, Options{})
	if !errors.Is(err, coords.ErrUnsupportedRotation) {
		t.Errorf("Layout() error = %v, want ErrUnsupportedRotation", err)
	}
}

func TestBuildOverlay(t *testing.T) {
	marks := []Mark{{
		Number: 3,
		Type:   model.RegionText,
		Color:  ColorFor(model.RegionText),
		Rect:   model.BBox{X: 10, Y: 20, Width: 30.5, Height: 40},
		Label:  model.Point{X: 42.5, Y: 50},
	}}
	names := resourceNames{Font: "LMDF1", ExtGState: "LMDGS1"}

	outline := string(buildOverlay(marks, 0, names, New(Options{}).opts))
	for _, want := range []string{
		"0.6 0 0.298 RG\n",
		"10 20 30.5 40 re S\n",
		"/LMDF1 10 Tf\n",
		"1 0 0 1 42.5 50 Tm\n",
		"(3) Tj\n",
	} {
		if !strings.Contains(outline, want) {
			t.Errorf("outline overlay missing %q:\n%s", want, outline)
		}
	}
	if strings.Contains(outline, " gs") {
		t.Errorf("outline overlay should not set a graphics state:\n%s", outline)
	}
	if strings.Count(outline, "q\n") != strings.Count(outline, "Q\n") {
		t.Errorf("unbalanced q/Q:\n%s", outline)
	}

	filled := string(buildOverlay(marks, 90, names, New(Options{Fill: true}).opts))
	for _, want := range []string{"/LMDGS1 gs\n", "0.6 0 0.298 rg\n", "re f\n", "0 1 -1 0 42.5 50 Tm\n"} {
		if !strings.Contains(filled, want) {
			t.Errorf("filled overlay missing %q:\n%s", want, filled)
		}
	}
}

func TestNum(t *testing.T) {
	tests := map[float64]string{
		0:           "0",
		10:          "10",
		100:         "100",
		0.5:         "0.5",
		1.23456:     "1.235",
		-0.0001:     "0",
		-12.5:       "-12.5",
		153.0 / 255: "0.6",
	}
	for in, want := range tests {
		if got := num(in); got != want {
			t.Errorf("num(%v) = %q, want %q", in, got, want)
		}
	}
}
