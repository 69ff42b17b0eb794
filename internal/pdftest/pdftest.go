// Package pdftest builds small, valid PDF files for tests.
package pdftest

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// Page describes one page of a test document.
type Page struct {
	Width, Height float64 // media box size in points (default 612x792)
	Rotate        int     // written as /Rotate when non-zero
	RawRotate     string  // written verbatim as the /Rotate value, overrides Rotate
	CropBox       []float64
	Content       string // uncompressed content stream
	Resources     string // raw resources dict, default "<< >>"
}

// Build returns a PDF holding the given pages. Object offsets in the cross
// reference table are computed from the output, so the file is valid.
func Build(pages ...Page) []byte {
	var buf bytes.Buffer
	var offsets []int

	obj := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	buf.WriteString("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n")

	kids := ""
	for i := range pages {
		kids += fmt.Sprintf(" %d 0 R", 3+2*i)
	}
	obj("<< /Type /Catalog /Pages 2 0 R >>")
	obj(fmt.Sprintf("<< /Type /Pages /Kids [%s ] /Count %d >>", kids, len(pages)))

	for i, p := range pages {
		w, h := p.Width, p.Height
		if w == 0 {
			w = 612
		}
		if h == 0 {
			h = 792
		}
		res := p.Resources
		if res == "" {
			res = "<< >>"
		}

		dict := fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 %g %g] /Resources %s /Contents %d 0 R",
			w, h, res, 4+2*i)
		if len(p.CropBox) == 4 {
			dict += fmt.Sprintf(" /CropBox [%g %g %g %g]", p.CropBox[0], p.CropBox[1], p.CropBox[2], p.CropBox[3])
		}
		switch {
		case p.RawRotate != "":
			dict += " /Rotate " + p.RawRotate
		case p.Rotate != 0:
			dict += fmt.Sprintf(" /Rotate %d", p.Rotate)
		}
		obj(dict + " >>")
		obj(fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(p.Content), p.Content))
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(offsets)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)
	return buf.Bytes()
}

// Write builds a PDF into a new file under t.TempDir and returns its path.
func Write(t testing.TB, name string, pages ...Page) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, Build(pages...), 0o644); err != nil {
		t.Fatalf("failed to create test PDF: %v", err)
	}
	return path
}
