package pdf

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
)

// Minimum size and resolution for a raster to be worth describing. Anything
// smaller is treated as a decorative glyph or icon.
const (
	MinPixelSize  = 20
	MinResolution = 36
)

// ImageBlock is one image drawn on a page: the XObject's pixel data plus its
// placement on the page in PDF user space (origin bottom-left, points).
type ImageBlock struct {
	Name string // resource name, e.g. "/Im1"
	Page int    // 1-based

	X, Y, W, H float64 // placed bounding box

	PxWidth, PxHeight int     // intrinsic pixel dimensions
	XRes, YRes        float64 // effective dpi of the placement

	Data []byte // encoded raster, nil when the encoding is unsupported
	Kind string // "jpeg" or "png", matching Data
}

// Eligible reports whether the block passes the size and resolution
// thresholds. Boundaries are inclusive: 20x20 px at 36 dpi is processed.
func (b ImageBlock) Eligible() bool {
	if b.PxWidth < MinPixelSize || b.PxHeight < MinPixelSize {
		return false
	}
	if b.XRes < MinResolution || b.YRes < MinResolution {
		return false
	}
	return true
}

// matrix is a PDF transform [a b c d e f], last column implicitly (0 0 1).
type matrix [6]float64

func identityMatrix() matrix { return matrix{1, 0, 0, 1, 0, 0} }

func (a matrix) mult(b matrix) matrix {
	return matrix{
		a[0]*b[0] + a[1]*b[2],
		a[0]*b[1] + a[1]*b[3],
		a[2]*b[0] + a[3]*b[2],
		a[2]*b[1] + a[3]*b[3],
		a[4]*b[0] + a[5]*b[2] + b[4],
		a[4]*b[1] + a[5]*b[3] + b[5],
	}
}

// ImageBlocks scans the page's content streams and returns one block per
// image drawing operation, bbox derived from the CTM at the Do operator.
// Images whose encoding cannot be converted are reported with nil Data.
func (r *Reader) ImageBlocks(page *Page) ([]ImageBlock, error) {
	streams, err := r.contentStreams(page)
	if err != nil {
		return nil, err
	}

	s := &imageScanner{
		r:        r,
		page:     page,
		ctm:      identityMatrix(),
		xobjects: r.pageXObjects(page),
	}
	for _, data := range streams {
		if err := s.scan(data); err != nil && err != io.EOF {
			return nil, err
		}
	}
	return s.blocks, nil
}

type imageScanner struct {
	r    *Reader
	page *Page

	ctm      matrix
	stack    []matrix
	xobjects DictionaryObject
	depth    int

	blocks []ImageBlock
}

// maxFormDepth bounds form XObject nesting so that self-referential files
// cannot recurse forever.
const maxFormDepth = 8

// scan runs an operand/operator loop over one content stream. Only the
// operators that affect image placement are interpreted; text and path
// painting operators are discarded with their operands.
func (s *imageScanner) scan(data []byte) error {
	lexer := NewLexer(bytes.NewReader(data))
	var operands []Object

	for {
		obj, err := lexer.ReadObject()
		if err != nil {
			return err
		}

		kw, isOp := obj.(KeywordObject)
		if !isOp {
			operands = append(operands, obj)
			continue
		}

		switch string(kw) {
		case "q":
			s.stack = append(s.stack, s.ctm)
		case "Q":
			if n := len(s.stack); n > 0 {
				s.ctm = s.stack[n-1]
				s.stack = s.stack[:n-1]
			}
		case "cm":
			if len(operands) >= 6 {
				m := matrix{
					number(operands[0]), number(operands[1]),
					number(operands[2]), number(operands[3]),
					number(operands[4]), number(operands[5]),
				}
				s.ctm = m.mult(s.ctm)
			}
		case "Do":
			if len(operands) > 0 {
				if name, ok := operands[0].(NameObject); ok {
					s.drawXObject(string(name))
				}
			}
		case "ID":
			// Inline image data follows; decorative by convention, skip it.
			if err := lexer.skipInlineImage(); err != nil {
				return err
			}
		}
		operands = operands[:0]
	}
}

// drawXObject resolves a Do target against the current XObject resources.
// Images are captured; form XObjects are scanned recursively, since pages
// built by template import keep their images behind a form.
func (s *imageScanner) drawXObject(name string) {
	if s.xobjects == nil {
		return
	}
	stm, ok := s.r.Resolve(s.xobjects[name]).(StreamObject)
	if !ok {
		return
	}
	subtype, _ := s.r.Resolve(stm.Dictionary["/Subtype"]).(NameObject)
	switch string(subtype) {
	case "/Image":
		s.recordImage(name, stm)
	case "/Form":
		s.scanForm(stm)
	}
}

// scanForm runs the scanner over a form XObject's content with the form's
// matrix composed onto the CTM and names resolved against the form's own
// resources.
func (s *imageScanner) scanForm(stm StreamObject) {
	if s.depth >= maxFormDepth {
		return
	}

	savedCTM, savedStack, savedXObjects := s.ctm, len(s.stack), s.xobjects
	if m, ok := s.r.Resolve(stm.Dictionary["/Matrix"]).(ArrayObject); ok && len(m) == 6 {
		fm := matrix{
			number(m[0]), number(m[1]),
			number(m[2]), number(m[3]),
			number(m[4]), number(m[5]),
		}
		s.ctm = fm.mult(s.ctm)
	}
	if res, ok := s.r.Resolve(stm.Dictionary["/Resources"]).(DictionaryObject); ok {
		if xo, ok := s.r.Resolve(res["/XObject"]).(DictionaryObject); ok {
			s.xobjects = xo
		}
	}

	s.depth++
	s.scan(stm.Data) // a malformed nested stream degrades to a partial scan
	s.depth--

	s.ctm = savedCTM
	s.stack = s.stack[:savedStack]
	s.xobjects = savedXObjects
}

// recordImage captures one image XObject placement.
func (s *imageScanner) recordImage(name string, stm StreamObject) {
	pxW := int(number(s.r.Resolve(stm.Dictionary["/Width"])))
	pxH := int(number(s.r.Resolve(stm.Dictionary["/Height"])))

	// Images are drawn into the unit square; the CTM carries position and
	// placed size.
	x, y := s.ctm[4], s.ctm[5]
	w := math.Hypot(s.ctm[0], s.ctm[1])
	h := math.Hypot(s.ctm[2], s.ctm[3])

	block := ImageBlock{
		Name:     name,
		Page:     s.page.Index + 1,
		X:        x,
		Y:        y,
		W:        w,
		H:        h,
		PxWidth:  pxW,
		PxHeight: pxH,
	}
	if w > 0 {
		block.XRes = float64(pxW) * 72.0 / w
	}
	if h > 0 {
		block.YRes = float64(pxH) * 72.0 / h
	}
	block.Data, block.Kind, _ = encodeImageData(s.r, stm, pxW, pxH)

	s.blocks = append(s.blocks, block)
}

// encodeImageData converts an image XObject stream into an encoded raster
// file. DCTDecode streams already hold a complete JPEG; FlateDecode sample
// data is wrapped into a PNG for 8-bit gray and RGB. Anything else is
// unsupported and yields an error.
func encodeImageData(r *Reader, stm StreamObject, pxW, pxH int) ([]byte, string, error) {
	filters := filterNames(r.Resolve(stm.Dictionary["/Filter"]))
	for _, f := range filters {
		if f == "/DCTDecode" {
			return stm.Data, "jpeg", nil
		}
		if f == "/JPXDecode" || f == "/CCITTFaxDecode" || f == "/JBIG2Decode" {
			return nil, "", fmt.Errorf("unsupported image filter %s", f)
		}
	}

	// Flate (already inflated by the reader) or no filter: raw samples.
	bpc := int(number(r.Resolve(stm.Dictionary["/BitsPerComponent"])))
	if bpc != 8 {
		return nil, "", fmt.Errorf("unsupported bits per component %d", bpc)
	}
	cs, _ := r.Resolve(stm.Dictionary["/ColorSpace"]).(NameObject)
	var comps int
	switch string(cs) {
	case "/DeviceGray":
		comps = 1
	case "/DeviceRGB":
		comps = 3
	default:
		return nil, "", fmt.Errorf("unsupported color space %s", cs.String())
	}

	data := stm.Data
	if params, ok := r.Resolve(stm.Dictionary["/DecodeParms"]).(DictionaryObject); ok {
		switch p := int(number(r.Resolve(params["/Predictor"]))); {
		case p >= 10:
			// PNG-sourced images keep their scanline filters in the stream.
			columns := pxW
			if c := int(number(r.Resolve(params["/Columns"]))); c > 0 {
				columns = c
			}
			var err error
			data, err = undoPNGPredictor(data, columns*comps, comps)
			if err != nil {
				return nil, "", err
			}
		case p >= 2:
			return nil, "", fmt.Errorf("unsupported predictor %d on image stream", p)
		}
	}

	rowBytes := pxW * comps
	if len(data) < rowBytes*pxH {
		return nil, "", fmt.Errorf("short image data: %d bytes for %dx%dx%d", len(data), pxW, pxH, comps)
	}

	var img image.Image
	switch comps {
	case 1:
		g := image.NewGray(image.Rect(0, 0, pxW, pxH))
		for y := range pxH {
			copy(g.Pix[y*g.Stride:], data[y*rowBytes:(y+1)*rowBytes])
		}
		img = g
	case 3:
		rgba := image.NewNRGBA(image.Rect(0, 0, pxW, pxH))
		i := 0
		for y := range pxH {
			for x := range pxW {
				rgba.SetNRGBA(x, y, color.NRGBA{
					R: data[i],
					G: data[i+1],
					B: data[i+2],
					A: 0xFF,
				})
				i += 3
			}
		}
		img = rgba
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), "png", nil
}
