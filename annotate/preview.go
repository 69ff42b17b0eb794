package annotate

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/jpeg" // register decoder
	"image/png"
	"os"
	"strconv"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/tsawler/layoutmd/model"
)

// RenderPreview draws the page's boxes and labels onto a copy of its
// raster. The raster is the upright page, so boxes scale directly with its
// pixel size and no rotation handling is needed. Label offsets from Options
// are taken as pixels.
func RenderPreview(src image.Image, regions []model.Region, opts Options) *image.RGBA {
	opts.defaults()
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)

	w, h := float64(b.Dx()), float64(b.Dy())
	face := basicfont.Face7x13
	for i, r := range Survivors(regions) {
		box, _ := r.Box()
		c := ColorFor(r.Type)
		rect := image.Rect(int(box.X0*w), int(box.Y0*h), int(box.X1*w), int(box.Y1*h)).Intersect(dst.Bounds())

		if opts.Fill {
			fill := color.NRGBA{c.R, c.G, c.B, uint8(opts.FillOpacity * 255)}
			draw.Draw(dst, rect, image.NewUniform(fill), image.Point{}, draw.Over)
		} else {
			strokeRect(dst, rect, color.RGBA{c.R, c.G, c.B, 255}, max(1, int(opts.LineWidth)))
		}

		x := box.X1*w + opts.LabelGap
		if x > w-opts.LabelMargin {
			x = box.X0*w - opts.LabelMargin
		}
		y := box.Y0*h + opts.LabelDrop
		d := &font.Drawer{
			Dst:  dst,
			Src:  image.NewUniform(color.RGBA{c.R, c.G, c.B, 255}),
			Face: face,
			Dot:  fixed.P(int(x), int(y)),
		}
		d.DrawString(strconv.Itoa(i + 1))
	}
	return dst
}

func strokeRect(dst *image.RGBA, r image.Rectangle, c color.Color, width int) {
	if r.Empty() {
		return
	}
	u := image.NewUniform(c)
	edges := []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+width),
		image.Rect(r.Min.X, r.Max.Y-width, r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+width, r.Max.Y),
		image.Rect(r.Max.X-width, r.Min.Y, r.Max.X, r.Max.Y),
	}
	for _, e := range edges {
		draw.Draw(dst, e.Intersect(r), u, image.Point{}, draw.Src)
	}
}

// WritePreview renders a preview of the raster at imagePath and saves it as
// PNG at outPath.
func WritePreview(imagePath string, regions []model.Region, outPath string, opts Options) error {
	f, err := os.Open(imagePath)
	if err != nil {
		return fmt.Errorf("opening page image: %w", err)
	}
	src, _, err := image.Decode(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("decoding page image: %w", err)
	}

	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("creating preview: %w", err)
	}
	if err := png.Encode(out, RenderPreview(src, regions, opts)); err != nil {
		out.Close()
		return fmt.Errorf("encoding preview: %w", err)
	}
	return out.Close()
}
