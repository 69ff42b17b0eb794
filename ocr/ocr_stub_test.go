//go:build !ocr

package ocr

import (
	"context"
	"errors"
	"testing"

	"github.com/tsawler/layoutmd/model"
)

func TestNewReturnsError(t *testing.T) {
	e, err := New(Options{})
	if !errors.Is(err, ErrOCRNotEnabled) {
		t.Errorf("Expected ErrOCRNotEnabled, got: %v", err)
	}
	if e != nil {
		t.Error("Expected nil extractor when OCR is disabled")
	}
}

func TestStubExtract(t *testing.T) {
	var e *Extractor
	if err := e.Close(); err != nil {
		t.Errorf("Close on nil extractor should not error: %v", err)
	}
	if _, err := e.Extract(context.Background(), model.PageImage{PageNumber: 1}); !errors.Is(err, ErrOCRNotEnabled) {
		t.Errorf("Extract() error = %v", err)
	}
}
