//go:build ocr

package ocr

import (
	"context"
	"fmt"
	"sync"

	"github.com/otiai10/gosseract/v2"

	"github.com/tsawler/layoutmd/model"
)

// Extractor recognizes text blocks on page rasters with Tesseract.
// A single Tesseract client is shared and guarded by a mutex.
type Extractor struct {
	mu     sync.Mutex
	client *gosseract.Client
	opts   Options
}

// New creates an OCR extractor. Close it when done.
func New(opts Options) (*Extractor, error) {
	client := gosseract.NewClient()
	langs := opts.Languages
	if len(langs) == 0 {
		langs = []string{"eng"}
	}
	if err := client.SetLanguage(langs...); err != nil {
		client.Close()
		return nil, fmt.Errorf("set languages: %w", err)
	}
	if err := client.SetPageSegMode(gosseract.PSM_AUTO); err != nil {
		client.Close()
		return nil, fmt.Errorf("set page segmentation mode: %w", err)
	}
	return &Extractor{client: client, opts: opts}, nil
}

// Close releases Tesseract resources. It is safe to call on a nil
// extractor.
func (e *Extractor) Close() error {
	if e == nil || e.client == nil {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	err := e.client.Close()
	e.client = nil
	return err
}

// Extract runs Tesseract on the page raster.
func (e *Extractor) Extract(ctx context.Context, page model.PageImage) ([]model.Region, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	width, height, err := imageSize(page.Path)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.client == nil {
		return nil, fmt.Errorf("ocr extractor is closed")
	}
	if err := e.client.SetImage(page.Path); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}
	boxes, err := e.client.GetBoundingBoxes(iteratorLevel(e.opts.Level))
	if err != nil {
		return nil, fmt.Errorf("OCR failed: %w", err)
	}

	blocks := make([]Block, 0, len(boxes))
	for _, b := range boxes {
		blocks = append(blocks, Block{Rect: b.Box, Text: b.Word, Confidence: b.Confidence})
	}
	return Regions(blocks, width, height, e.opts.MinConfidence), nil
}

func iteratorLevel(l Level) gosseract.PageIteratorLevel {
	switch l {
	case LevelParagraph:
		return gosseract.RIL_PARA
	case LevelLine:
		return gosseract.RIL_TEXTLINE
	default:
		return gosseract.RIL_BLOCK
	}
}
