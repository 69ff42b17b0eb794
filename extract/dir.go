package extract

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/tsawler/layoutmd/model"
)

// DirExtractor replays region lists stored as page_N.json in a directory.
// Each file holds either a JSON array of regions or an object with a
// "blocks" array.
type DirExtractor struct {
	Dir string
	// AllowMissing treats a missing page file as a page without regions.
	AllowMissing bool
}

// FileName returns the file name DirExtractor reads for a page.
func FileName(pageNumber int) string {
	return fmt.Sprintf("page_%d.json", pageNumber)
}

// Extract reads the page's file.
func (d DirExtractor) Extract(ctx context.Context, page model.PageImage) ([]model.Region, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(d.Dir, FileName(page.PageNumber)))
	if err != nil {
		if d.AllowMissing && errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading regions for page %d: %w", page.PageNumber, err)
	}
	regions, err := DecodeRegions(data)
	if err != nil {
		return nil, fmt.Errorf("page %d: %w", page.PageNumber, err)
	}
	return regions, nil
}
