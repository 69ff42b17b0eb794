package annotate

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/tsawler/layoutmd/model"
)

func whitePage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	return img
}

func TestRenderPreviewOutline(t *testing.T) {
	src := whitePage(200, 200)
	out := RenderPreview(src, []model.Region{
		region(model.RegionText, 0.1, 0.1, 0.5, 0.5),
		region(model.RegionList, 0.6, 0.6, 0.9, 0.9),
	}, Options{})

	text := color.RGBA{153, 0, 76, 255}
	if got := out.RGBAAt(20, 50); got != text {
		t.Errorf("left edge pixel = %v, want %v", got, text)
	}
	if got := out.RGBAAt(60, 60); got != (color.RGBA{255, 255, 255, 255}) {
		t.Errorf("box interior should stay white in outline mode, got %v", got)
	}
	if got := out.RGBAAt(120, 180); got != (color.RGBA{255, 255, 255, 255}) {
		t.Errorf("list region should not be drawn, got %v", got)
	}
	if src.RGBAAt(20, 50) != (color.RGBA{255, 255, 255, 255}) {
		t.Error("RenderPreview modified its source image")
	}
}

func TestRenderPreviewFill(t *testing.T) {
	out := RenderPreview(whitePage(100, 100), []model.Region{region(model.RegionTable, 0, 0, 0.5, 0.5)}, Options{Fill: true})

	got := out.RGBAAt(25, 40)
	if got == (color.RGBA{255, 255, 255, 255}) {
		t.Fatal("filled box should tint the interior")
	}
	if got.B > 200 || got.R < 200 {
		t.Errorf("tint %v should lean toward the table color", got)
	}
}

func TestWritePreview(t *testing.T) {
	dir := t.TempDir()
	raster := filepath.Join(dir, "page-1.png")
	f, err := os.Create(raster)
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, whitePage(50, 80)); err != nil {
		t.Fatal(err)
	}
	f.Close()

	out := filepath.Join(dir, "preview.png")
	if err := WritePreview(raster, []model.Region{region(model.RegionTitle, 0, 0, 1, 0.2)}, out, Options{}); err != nil {
		t.Fatalf("WritePreview() error = %v", err)
	}
	pf, err := os.Open(out)
	if err != nil {
		t.Fatal(err)
	}
	defer pf.Close()
	img, err := png.Decode(pf)
	if err != nil {
		t.Fatalf("preview is not a PNG: %v", err)
	}
	if img.Bounds().Dx() != 50 || img.Bounds().Dy() != 80 {
		t.Errorf("preview size = %v, want 50x80", img.Bounds().Size())
	}

	if err := WritePreview(filepath.Join(dir, "missing.png"), nil, out, Options{}); err == nil {
		t.Error("expected error for missing raster")
	}
}
