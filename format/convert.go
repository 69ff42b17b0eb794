package format

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif" // register decoder
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	_ "golang.org/x/image/bmp" // register decoder
)

// ErrUnsupported is returned for inputs that are neither PDF nor a
// supported image.
var ErrUnsupported = errors.New("unsupported input format")

// ToPDF returns a PDF path for the input. PDFs are returned as is; images
// are wrapped in a one-page PDF written to outDir. GIF and BMP inputs are
// converted to PNG first since the PDF import only takes JPEG, PNG, TIFF
// and WebP.
func ToPDF(path, outDir string) (string, error) {
	f, err := DetectFile(path)
	if err != nil {
		return "", err
	}
	if f == PDF {
		return path, nil
	}
	if !f.IsImage() {
		return "", fmt.Errorf("%w: %s", ErrUnsupported, filepath.Base(path))
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", fmt.Errorf("creating output dir: %w", err)
	}
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	src := path
	if f == GIF || f == BMP {
		src = filepath.Join(outDir, stem+"_source.png")
		if err := reencodePNG(path, src); err != nil {
			return "", err
		}
	}

	out := filepath.Join(outDir, stem+".pdf")
	conf := model.NewDefaultConfiguration()
	if err := api.ImportImagesFile([]string{src}, out, pdfcpu.DefaultImportConfig(), conf); err != nil {
		return "", fmt.Errorf("wrapping %s in PDF: %w", f, err)
	}
	return out, nil
}

func reencodePNG(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	img, _, err := image.Decode(in)
	if err != nil {
		return fmt.Errorf("decoding %s: %w", filepath.Base(src), err)
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if err := png.Encode(out, img); err != nil {
		out.Close()
		return fmt.Errorf("encoding %s: %w", filepath.Base(dst), err)
	}
	return out.Close()
}
