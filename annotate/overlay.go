package annotate

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/tsawler/layoutmd/coords"
	"github.com/tsawler/layoutmd/model"
)

// RGB is an 8-bit color.
type RGB struct{ R, G, B uint8 }

// DefaultColor is used for region types missing from the color table.
var DefaultColor = RGB{255, 0, 0}

var colors = map[model.RegionType]RGB{
	model.RegionImage:             {153, 255, 51},
	model.RegionImageCaption:      {102, 178, 255},
	model.RegionTable:             {204, 204, 0},
	model.RegionTableCaption:      {255, 255, 102},
	model.RegionTitle:             {102, 102, 255},
	model.RegionText:              {153, 0, 76},
	model.RegionEquation:          {0, 255, 0},
	model.RegionInterlineEquation: {0, 255, 0},
	model.RegionList:              {40, 169, 92},
	model.RegionIndex:             {40, 169, 92},
	model.RegionPageNumber:        {255, 0, 255},
}

// ColorFor returns the box color for a region type.
func ColorFor(t model.RegionType) RGB {
	if c, ok := colors[t]; ok {
		return c
	}
	return DefaultColor
}

// pdf returns the color as PDF operands in [0,1].
func (c RGB) pdf() string {
	return fmt.Sprintf("%s %s %s", num(float64(c.R)/255), num(float64(c.G)/255), num(float64(c.B)/255))
}

// Drawable reports whether a region gets a box on the overlay. Lists and
// abandoned regions duplicate or nest other regions and are left off.
func Drawable(r model.Region) bool {
	if r.Type == model.RegionList || r.Type == model.RegionAbandon {
		return false
	}
	return r.HasBox()
}

// Survivors returns the regions that get a box, in extraction order. A
// region's label is its index in this slice plus one.
func Survivors(regions []model.Region) []model.Region {
	var out []model.Region
	for _, r := range regions {
		if Drawable(r) {
			out = append(out, r)
		}
	}
	return out
}

// Mark is one drawn box with its label, in page space.
type Mark struct {
	Number int
	Type   model.RegionType
	Color  RGB
	Rect   model.BBox
	// Label is the text origin of the number, in page space.
	Label model.Point
}

// Layout places the boxes and labels for a page's surviving regions.
func Layout(page coords.Page, regions []model.Region, opts Options) ([]Mark, error) {
	opts.defaults()
	if err := page.Validate(); err != nil {
		return nil, err
	}
	displayWidth, displayHeight := page.DisplaySize()

	marks := make([]Mark, 0, len(regions))
	for i, r := range Survivors(regions) {
		box, _ := r.Box()
		rect, err := page.Map(box)
		if err != nil {
			return nil, err
		}

		// Label placement happens in upright display space, y down.
		x := box.X1*displayWidth + opts.LabelGap
		y := box.Y0*displayHeight + opts.LabelDrop
		if x > displayWidth-opts.LabelMargin {
			x = box.X0*displayWidth - opts.LabelMargin
		}
		at, err := page.MapPoint(model.Point{X: x, Y: y})
		if err != nil {
			return nil, err
		}

		marks = append(marks, Mark{
			Number: i + 1,
			Type:   r.Type,
			Color:  ColorFor(r.Type),
			Rect:   rect,
			Label:  at,
		})
	}
	return marks, nil
}

// resourceNames are the page resource names the overlay refers to.
type resourceNames struct {
	Font      string
	ExtGState string
}

// buildOverlay writes the content stream drawing marks on a page with the
// given rotation. The stream assumes a clean graphics state.
func buildOverlay(marks []Mark, rotation int, names resourceNames, opts Options) []byte {
	var buf bytes.Buffer
	buf.WriteString("q\n")
	fmt.Fprintf(&buf, "%s w\n", num(opts.LineWidth))
	for _, m := range marks {
		color := m.Color.pdf()
		r := m.Rect

		buf.WriteString("q\n")
		if opts.Fill {
			fmt.Fprintf(&buf, "/%s gs\n", names.ExtGState)
			fmt.Fprintf(&buf, "%s rg\n", color)
			fmt.Fprintf(&buf, "%s %s %s %s re f\n", num(r.X), num(r.Y), num(r.Width), num(r.Height))
		} else {
			fmt.Fprintf(&buf, "%s RG\n", color)
			fmt.Fprintf(&buf, "%s %s %s %s re S\n", num(r.X), num(r.Y), num(r.Width), num(r.Height))
		}
		buf.WriteString("Q\n")

		tm := coords.TextMatrix(rotation, m.Label)
		buf.WriteString("BT\n")
		fmt.Fprintf(&buf, "/%s %s Tf\n", names.Font, num(opts.FontSize))
		fmt.Fprintf(&buf, "%s rg\n", color)
		fmt.Fprintf(&buf, "%s %s %s %s %s %s Tm\n",
			num(tm[0]), num(tm[1]), num(tm[2]), num(tm[3]), num(tm[4]), num(tm[5]))
		fmt.Fprintf(&buf, "(%d) Tj\n", m.Number)
		buf.WriteString("ET\n")
	}
	buf.WriteString("Q\n")
	return buf.Bytes()
}

// num formats a content stream operand with at most three decimals.
func num(v float64) string {
	s := strconv.FormatFloat(v, 'f', 3, 64)
	for len(s) > 1 && s[len(s)-1] == '0' {
		s = s[:len(s)-1]
	}
	if s[len(s)-1] == '.' {
		s = s[:len(s)-1]
	}
	if s == "-0" {
		s = "0"
	}
	return s
}
