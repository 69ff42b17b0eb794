//go:build !ocr

package ocr

import (
	"context"

	"github.com/tsawler/layoutmd/model"
)

// Extractor is a stub used when the "ocr" build tag is not set.
type Extractor struct{}

// New returns ErrOCRNotEnabled.
func New(opts Options) (*Extractor, error) {
	return nil, ErrOCRNotEnabled
}

// Close is a no-op for the stub extractor.
// It is safe to call on a nil extractor.
func (e *Extractor) Close() error {
	return nil
}

// Extract returns ErrOCRNotEnabled.
func (e *Extractor) Extract(ctx context.Context, page model.PageImage) ([]model.Region, error) {
	return nil, ErrOCRNotEnabled
}
