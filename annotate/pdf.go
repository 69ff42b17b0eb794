package annotate

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	pdfmodel "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/tsawler/layoutmd/coords"
)

// pdfDoc is an original document loaded for annotation. It is not safe for
// concurrent use.
type pdfDoc struct {
	ctx   *pdfmodel.Context
	pages []pageNode
}

// pageNode is a leaf of the page tree with its inheritable attributes
// resolved but not interpreted.
type pageNode struct {
	dict      types.Dict
	mediaBox  types.Object
	cropBox   types.Object
	rotate    types.Object
	resources types.Object
}

// openPDF reads the document without validating or optimizing it. Pages the
// overlay does not touch are written back as they were read, and a page with
// odd attributes only costs that page.
func openPDF(path string) (*pdfDoc, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnreadable, err)
	}
	defer f.Close()

	ctx, err := api.ReadContext(f, pdfmodel.NewDefaultConfiguration())
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUnreadable, filepath.Base(path), err)
	}
	doc := &pdfDoc{ctx: ctx}
	if err := doc.loadPages(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUnreadable, filepath.Base(path), err)
	}
	return doc, nil
}

func (d *pdfDoc) pageCount() int { return len(d.pages) }

// loadPages flattens the page tree in document order.
func (d *pdfDoc) loadPages() error {
	root, err := d.ctx.Catalog()
	if err != nil {
		return err
	}
	obj, found := root.Find("Pages")
	if !found || obj == nil {
		return errors.New("catalog has no page tree")
	}
	if err := d.walk(obj, pageNode{}, map[int]bool{}); err != nil {
		return err
	}
	if len(d.pages) == 0 {
		return errors.New("document has no pages")
	}
	return nil
}

func (d *pdfDoc) walk(obj types.Object, inherited pageNode, seen map[int]bool) error {
	if ref, ok := obj.(types.IndirectRef); ok {
		nr := ref.ObjectNumber.Value()
		if seen[nr] {
			return fmt.Errorf("page tree loops at object %d", nr)
		}
		seen[nr] = true
	}
	node, err := d.ctx.DereferenceDict(obj)
	if err != nil {
		return fmt.Errorf("reading page tree: %w", err)
	}
	if node == nil {
		return errors.New("page tree has a missing node")
	}

	attrs := inherited
	attrs.dict = node
	if v, ok := node.Find("MediaBox"); ok {
		attrs.mediaBox = v
	}
	if v, ok := node.Find("CropBox"); ok {
		attrs.cropBox = v
	}
	if v, ok := node.Find("Rotate"); ok {
		attrs.rotate = v
	}
	if v, ok := node.Find("Resources"); ok {
		attrs.resources = v
	}

	kids, ok := node.Find("Kids")
	if !ok {
		d.pages = append(d.pages, attrs)
		return nil
	}
	arr, err := d.ctx.DereferenceArray(kids)
	if err != nil {
		return fmt.Errorf("reading page tree: %w", err)
	}
	for _, kid := range arr {
		if kid == nil {
			continue
		}
		if err := d.walk(kid, attrs, seen); err != nil {
			return err
		}
	}
	return nil
}

func (d *pdfDoc) page(pageNr int) (pageNode, error) {
	if pageNr < 1 || pageNr > len(d.pages) {
		return pageNode{}, fmt.Errorf("page %d out of range", pageNr)
	}
	return d.pages[pageNr-1], nil
}

// pageSetup is what the overlay needs to know about a page.
type pageSetup struct {
	geom  coords.Page
	names resourceNames
	// rotationErr is set when /Rotate could not be read and 0 was assumed.
	rotationErr error
}

// pageInfo returns a page's geometry and free resource names for the
// overlay's font and graphics state. The geometry is not validated.
func (d *pdfDoc) pageInfo(pageNr int) (pageSetup, error) {
	node, err := d.page(pageNr)
	if err != nil {
		return pageSetup{}, err
	}

	box, ok := d.rect(node.cropBox)
	if !ok {
		box, ok = d.rect(node.mediaBox)
	}
	if !ok {
		return pageSetup{}, errors.New("page has no usable media box")
	}

	var setup pageSetup
	rotation, err := coords.NormalizeRotation(d.rotationValue(node.rotate))
	if err != nil {
		setup.rotationErr = err
		rotation = 0
	}
	setup.geom = coords.Page{
		Width:    box[2] - box[0],
		Height:   box[3] - box[1],
		OriginX:  box[0],
		OriginY:  box[1],
		Rotation: rotation,
	}

	setup.names = resourceNames{Font: "LMDF1", ExtGState: "LMDGS1"}
	if res, err := d.ctx.DereferenceDict(node.resources); err == nil && res != nil {
		setup.names.Font = d.freeName(res, "Font", "LMDF")
		setup.names.ExtGState = d.freeName(res, "ExtGState", "LMDGS")
	}
	return setup, nil
}

// rect reads a rectangle array as llx, lly, urx, ury.
func (d *pdfDoc) rect(obj types.Object) ([4]float64, bool) {
	var v [4]float64
	if obj == nil {
		return v, false
	}
	arr, err := d.ctx.DereferenceArray(obj)
	if err != nil || len(arr) != 4 {
		return v, false
	}
	for i, o := range arr {
		o, err := d.ctx.Dereference(o)
		if err != nil {
			return v, false
		}
		switch n := o.(type) {
		case types.Integer:
			v[i] = float64(n.Value())
		case types.Float:
			v[i] = n.Value()
		default:
			return v, false
		}
	}
	return [4]float64{
		math.Min(v[0], v[2]), math.Min(v[1], v[3]),
		math.Max(v[0], v[2]), math.Max(v[1], v[3]),
	}, true
}

// rotationValue turns a raw /Rotate object into something
// coords.NormalizeRotation understands.
func (d *pdfDoc) rotationValue(obj types.Object) any {
	if obj == nil {
		return nil
	}
	obj, err := d.ctx.Dereference(obj)
	if err != nil || obj == nil {
		return fmt.Sprint(obj)
	}
	switch v := obj.(type) {
	case types.Integer:
		return v.Value()
	case types.Float:
		return v.Value()
	case types.Name:
		return v.Value()
	case types.StringLiteral:
		return v.Value()
	default:
		return v.String()
	}
}

// freeName returns prefix followed by the smallest number not yet used as
// a key of the given resource category.
func (d *pdfDoc) freeName(resources types.Dict, category, prefix string) string {
	used, _ := d.subDict(resources, category)
	for i := 1; ; i++ {
		name := fmt.Sprintf("%s%d", prefix, i)
		if _, taken := used[name]; !taken {
			return name
		}
	}
}

// subDict returns the dereferenced resource category dict, or nil.
func (d *pdfDoc) subDict(resources types.Dict, category string) (types.Dict, error) {
	obj, found := resources.Find(category)
	if !found || obj == nil {
		return nil, nil
	}
	return d.ctx.DereferenceDict(obj)
}

// composite appends overlay to the page. New objects are created first and
// the page dict is only touched at the end, so a failure leaves the page as
// it was.
func (d *pdfDoc) composite(pageNr int, overlay []byte, names resourceNames, opts Options) error {
	node, err := d.page(pageNr)
	if err != nil {
		return err
	}
	pageDict := node.dict

	contents, err := d.contentRefs(pageDict)
	if err != nil {
		return err
	}

	open, err := d.newStream([]byte("q\n"))
	if err != nil {
		return err
	}
	closing := append([]byte("\nQ\n"), overlay...)
	over, err := d.newStream(closing)
	if err != nil {
		return err
	}

	resources, err := d.overlayResources(node.resources, names, opts)
	if err != nil {
		return err
	}

	arr := types.Array{*open}
	arr = append(arr, contents...)
	arr = append(arr, *over)

	pageDict.Update("Contents", arr)
	pageDict.Update("Resources", resources)
	return nil
}

// contentRefs returns the page's content stream references in order.
func (d *pdfDoc) contentRefs(pageDict types.Dict) (types.Array, error) {
	obj, found := pageDict.Find("Contents")
	if !found || obj == nil {
		return nil, nil
	}
	if ref, ok := obj.(types.IndirectRef); ok {
		target, err := d.ctx.Dereference(ref)
		if err != nil {
			return nil, fmt.Errorf("reading page contents: %w", err)
		}
		if arr, ok := target.(types.Array); ok {
			return append(types.Array{}, arr...), nil
		}
		return types.Array{ref}, nil
	}
	if arr, ok := obj.(types.Array); ok {
		return append(types.Array{}, arr...), nil
	}
	return nil, fmt.Errorf("unexpected page contents %T", obj)
}

func (d *pdfDoc) newStream(content []byte) (*types.IndirectRef, error) {
	sd, err := d.ctx.XRefTable.NewStreamDictForBuf(content)
	if err != nil {
		return nil, fmt.Errorf("creating overlay stream: %w", err)
	}
	if err := sd.Encode(); err != nil {
		return nil, fmt.Errorf("encoding overlay stream: %w", err)
	}
	ref, err := d.ctx.IndRefForNewObject(*sd)
	if err != nil {
		return nil, fmt.Errorf("adding overlay stream: %w", err)
	}
	return ref, nil
}

// overlayResources returns a copy of the page's resources with the overlay
// font and, in fill mode, the translucent graphics state added.
func (d *pdfDoc) overlayResources(current types.Object, names resourceNames, opts Options) (types.Dict, error) {
	inherited, err := d.ctx.DereferenceDict(current)
	if err != nil {
		return nil, fmt.Errorf("reading page resources: %w", err)
	}
	res := types.Dict{}
	for k, v := range inherited {
		res[k] = v
	}

	fonts, err := d.copySubDict(res, "Font")
	if err != nil {
		return nil, err
	}
	fontRef, err := d.ctx.IndRefForNewObject(types.Dict{
		"Type":     types.Name("Font"),
		"Subtype":  types.Name("Type1"),
		"BaseFont": types.Name("Helvetica"),
		"Encoding": types.Name("WinAnsiEncoding"),
	})
	if err != nil {
		return nil, fmt.Errorf("adding label font: %w", err)
	}
	fonts[names.Font] = *fontRef
	res["Font"] = fonts

	if opts.Fill {
		states, err := d.copySubDict(res, "ExtGState")
		if err != nil {
			return nil, err
		}
		states[names.ExtGState] = types.Dict{
			"Type": types.Name("ExtGState"),
			"ca":   types.Float(opts.FillOpacity),
			"CA":   types.Float(opts.FillOpacity),
		}
		res["ExtGState"] = states
	}
	return res, nil
}

func (d *pdfDoc) copySubDict(res types.Dict, category string) (types.Dict, error) {
	src, err := d.subDict(res, category)
	if err != nil {
		return nil, fmt.Errorf("reading %s resources: %w", category, err)
	}
	out := types.Dict{}
	for k, v := range src {
		out[k] = v
	}
	return out, nil
}

// write saves the document next to path and renames it into place, so a
// failed write never leaves a truncated file behind.
func (d *pdfDoc) write(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".annotate-*.pdf")
	if err != nil {
		return fmt.Errorf("creating output: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := api.WriteContext(d.ctx, tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("writing annotated document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing annotated document: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("writing annotated document: %w", err)
	}
	return nil
}

func samePath(a, b string) bool {
	if a == b {
		return true
	}
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return false
	}
	if absA == absB {
		return true
	}
	infoA, errA := os.Stat(absA)
	infoB, errB := os.Stat(absB)
	return errA == nil && errB == nil && os.SameFile(infoA, infoB)
}
