package model

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// Document is the region data of a whole conversion run: the source file
// and every page's layout in page order.
type Document struct {
	Source string       `json:"source"`
	Pages  []PageLayout `json:"pages"`
}

// NewDocument creates a document for the given source, sorting pages by
// page number.
func NewDocument(source string, pages []PageLayout) *Document {
	d := &Document{Source: source, Pages: CloneLayouts(pages)}
	SortPages(d.Pages)
	return d
}

// PageCount returns the total number of pages
func (d *Document) PageCount() int {
	return len(d.Pages)
}

// GetPage returns a page by number (1-indexed)
func (d *Document) GetPage(number int) *PageLayout {
	for i := range d.Pages {
		if d.Pages[i].PageNumber == number {
			return &d.Pages[i]
		}
	}
	return nil
}

// RegionCount returns the number of regions across all pages.
func (d *Document) RegionCount() int {
	n := 0
	for _, p := range d.Pages {
		n += len(p.Regions)
	}
	return n
}

// SortPages orders pages by ascending page number in place.
func SortPages(pages []PageLayout) {
	sort.SliceStable(pages, func(i, j int) bool {
		return pages[i].PageNumber < pages[j].PageNumber
	})
}

// SaveDocument writes the document as indented JSON.
func SaveDocument(path string, d *Document) error {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding layout: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing layout: %w", err)
	}
	return nil
}

// LoadDocument reads a document previously written by SaveDocument.
// Region page numbers are restamped from their page.
func LoadDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading layout: %w", err)
	}
	var d Document
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("decoding layout %s: %w", path, err)
	}
	for i := range d.Pages {
		for j := range d.Pages[i].Regions {
			d.Pages[i].Regions[j].PageNumber = d.Pages[i].PageNumber
		}
	}
	SortPages(d.Pages)
	return &d, nil
}
