// Package ocr provides a layout extractor backed by the Tesseract OCR
// engine. It classifies every text block Tesseract finds as a text region,
// which is enough to convert scanned documents without a layout model.
//
// Tesseract support is compiled in with the "ocr" build tag:
//
//	go build -tags ocr
//
// This requires Tesseract to be installed. On macOS:
//
//	brew install tesseract
//
// On Ubuntu/Debian:
//
//	apt-get install tesseract-ocr libtesseract-dev
package ocr

import (
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"strings"

	"github.com/tsawler/layoutmd/model"
)

// ErrOCRNotEnabled is returned when OCR support was not compiled in.
// Rebuild with -tags ocr to enable it.
var ErrOCRNotEnabled = errors.New("OCR support not enabled; rebuild with -tags ocr")

// Level selects the granularity of the regions produced.
type Level int

const (
	// LevelBlock emits one region per Tesseract block (default).
	LevelBlock Level = iota
	// LevelParagraph emits one region per paragraph.
	LevelParagraph
	// LevelLine emits one region per text line.
	LevelLine
)

// Options configures the OCR extractor.
type Options struct {
	// Languages passed to Tesseract, e.g. "eng", "fra" (default "eng").
	Languages []string
	Level     Level
	// MinConfidence drops blocks Tesseract scored below it (0-100).
	MinConfidence float64
}

// Block is one recognized piece of text in pixel coordinates.
type Block struct {
	Rect       image.Rectangle
	Text       string
	Confidence float64
}

// Regions converts recognized blocks on a width×height raster into
// normalized text regions, in the order given. Blank or low-confidence
// blocks are skipped.
func Regions(blocks []Block, width, height int, minConfidence float64) []model.Region {
	if width <= 0 || height <= 0 {
		return nil
	}
	w, h := float64(width), float64(height)
	var out []model.Region
	for _, b := range blocks {
		text := strings.TrimSpace(b.Text)
		if text == "" || b.Confidence < minConfidence {
			continue
		}
		r := b.Rect.Canon().Intersect(image.Rect(0, 0, width, height))
		if r.Empty() {
			continue
		}
		out = append(out, model.Region{
			Type: model.RegionText,
			BBox: []float64{
				float64(r.Min.X) / w, float64(r.Min.Y) / h,
				float64(r.Max.X) / w, float64(r.Max.Y) / h,
			},
			Content: text,
		})
	}
	return out
}

// imageSize reads a raster's dimensions without decoding the pixels.
func imageSize(path string) (int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, fmt.Errorf("opening page image: %w", err)
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, fmt.Errorf("reading page image size: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}
