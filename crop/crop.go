// Package crop cuts region images out of rasterized pages.
//
// A [Cropper] is scoped to one conversion run. It owns the run's images
// directory and the sequence counter that keeps file names unique:
//
//	c, err := crop.New(filepath.Join(runDir, "images"), crop.Options{})
//	seq := c.Next()
//	rel, err := c.Crop("page-1.jpg", box, 1, seq) // "images/page_1_img_1.jpg"
//
// Boxes are converted with the raster's own pixel size, not the document's
// page size. Page rasters may be PNG, JPEG, GIF, TIFF, BMP or WebP.
package crop

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif" // register decoder
	"image/jpeg"
	_ "image/png" // register decoder
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	_ "golang.org/x/image/bmp"  // register decoder
	_ "golang.org/x/image/tiff" // register decoder
	_ "golang.org/x/image/webp" // register decoder

	"github.com/tsawler/layoutmd/model"
)

// ErrBoxOutOfRange is returned when a box leaves the unit square or covers
// no pixels once scaled to the raster.
var ErrBoxOutOfRange = errors.New("box out of range")

// DirName is the directory, relative to the Markdown file, that holds crops.
const DirName = "images"

// Options configures a Cropper.
type Options struct {
	// Quality is the JPEG quality, 1-100 (default 90).
	Quality int
	// Tolerance is how far past [0,1] a box edge may sit before it is
	// rejected (default 1e-6).
	Tolerance float64
	// Logger for debug messages (default slog.Default()).
	Logger *slog.Logger
}

func (o *Options) defaults() {
	if o.Quality <= 0 || o.Quality > 100 {
		o.Quality = 90
	}
	if o.Tolerance <= 0 {
		o.Tolerance = 1e-6
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Cropper writes region crops for one conversion run. It is safe for
// concurrent use.
type Cropper struct {
	dir     string
	opts    Options
	counter atomic.Int64

	mu    sync.Mutex
	cache map[string]*pageRaster
}

type pageRaster struct {
	once sync.Once
	img  image.Image
	err  error
}

// New creates a Cropper writing into dir, creating it if needed.
func New(dir string, opts Options) (*Cropper, error) {
	opts.defaults()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating images dir: %w", err)
	}
	return &Cropper{
		dir:   dir,
		opts:  opts,
		cache: make(map[string]*pageRaster),
	}, nil
}

// Dir returns the directory crops are written to.
func (c *Cropper) Dir() string { return c.dir }

// Next reserves the next sequence number. Numbers start at 1 and are never
// reused within a run.
func (c *Cropper) Next() int {
	return int(c.counter.Add(1))
}

// FileName returns the crop file name for a page and sequence number.
func FileName(pageNumber, seq int) string {
	return fmt.Sprintf("page_%d_img_%d.jpg", pageNumber, seq)
}

// Crop cuts box out of the page raster and writes it as a JPEG. It returns
// the crop's path relative to the Markdown file.
func (c *Cropper) Crop(pageImagePath string, box model.Box, pageNumber, seq int) (string, error) {
	img, err := c.load(pageImagePath)
	if err != nil {
		return "", err
	}

	rect, err := PixelRect(box, img.Bounds(), c.opts.Tolerance)
	if err != nil {
		return "", err
	}

	sub, err := subImage(img, rect)
	if err != nil {
		return "", err
	}

	name := FileName(pageNumber, seq)
	if err := writeJPEG(filepath.Join(c.dir, name), sub, c.opts.Quality); err != nil {
		return "", err
	}

	c.opts.Logger.Debug("cropped region", "page", pageNumber, "file", name,
		"width", rect.Dx(), "height", rect.Dy())
	return DirName + "/" + name, nil
}

// Release drops the cached raster for a page once no more crops need it.
func (c *Cropper) Release(pageImagePath string) {
	c.mu.Lock()
	delete(c.cache, pageImagePath)
	c.mu.Unlock()
}

// load decodes a page raster once and caches it for later crops.
func (c *Cropper) load(path string) (image.Image, error) {
	c.mu.Lock()
	pr, ok := c.cache[path]
	if !ok {
		pr = &pageRaster{}
		c.cache[path] = pr
	}
	c.mu.Unlock()

	pr.once.Do(func() {
		pr.img, pr.err = decodeFile(path)
	})
	return pr.img, pr.err
}

func decodeFile(path string) (image.Image, error) {
	if path == "" {
		return nil, fmt.Errorf("no page image")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening page image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding page image %s: %w", filepath.Base(path), err)
	}
	return img, nil
}

// PixelRect converts a normalized box to a pixel rectangle within bounds.
// Edges are truncated toward zero, as the box is scaled by the raster size.
func PixelRect(box model.Box, bounds image.Rectangle, tolerance float64) (image.Rectangle, error) {
	if !box.InUnitSquare(tolerance) {
		return image.Rectangle{}, fmt.Errorf("%w: %v", ErrBoxOutOfRange, box.Slice())
	}
	w, h := float64(bounds.Dx()), float64(bounds.Dy())
	r := image.Rect(
		bounds.Min.X+int(clamp01(box.X0)*w),
		bounds.Min.Y+int(clamp01(box.Y0)*h),
		bounds.Min.X+int(clamp01(box.X1)*w),
		bounds.Min.Y+int(clamp01(box.Y1)*h),
	).Intersect(bounds)
	if r.Empty() {
		return image.Rectangle{}, fmt.Errorf("%w: %v covers no pixels", ErrBoxOutOfRange, box.Slice())
	}
	return r, nil
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

type subImager interface {
	SubImage(r image.Rectangle) image.Image
}

func subImage(img image.Image, r image.Rectangle) (image.Image, error) {
	si, ok := img.(subImager)
	if !ok {
		return nil, fmt.Errorf("cannot crop %T", img)
	}
	return si.SubImage(r), nil
}

func writeJPEG(path string, img image.Image, quality int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating crop: %w", err)
	}
	if err := jpeg.Encode(f, img, &jpeg.Options{Quality: quality}); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("encoding crop: %w", err)
	}
	return f.Close()
}
