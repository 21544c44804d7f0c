package pdf

import (
	"bytes"
	"fmt"
	"io"

	"codeberg.org/go-pdf/fpdf"
	"codeberg.org/go-pdf/fpdf/contrib/gofpdi"
	"golang.org/x/text/encoding/charmap"
)

// Annotation is a caption box to draw over an image region. Coordinates are
// PDF user space, origin bottom-left.
type Annotation struct {
	Page       int // 1-based
	X, Y, W, H float64
	Text       string
}

// PageSize is one page's media box extent in points.
type PageSize struct {
	Width  float64
	Height float64
}

// WriteAnnotated rebuilds the document: every source page is imported as a
// template, then the caption boxes for that page are painted on top. Pages
// without annotations pass through unchanged apart from re-serialization.
func WriteAnnotated(src []byte, sizes []PageSize, annotations []Annotation, w io.Writer) error {
	byPage := make(map[int][]Annotation)
	for _, a := range annotations {
		byPage[a.Page] = append(byPage[a.Page], a)
	}

	doc := fpdf.New("P", "pt", "", "")
	doc.SetFont("Helvetica", "", captionFontSize)
	importer := gofpdi.NewImporter()
	rs := io.ReadSeeker(bytes.NewReader(src))

	for i, size := range sizes {
		pageNum := i + 1
		doc.AddPageFormat("P", fpdf.SizeType{Wd: size.Width, Ht: size.Height})

		tpl := importer.ImportPageFromStream(doc, &rs, pageNum, "/MediaBox")
		importer.UseImportedTemplate(doc, tpl, 0, 0, size.Width, 0)

		for _, a := range byPage[pageNum] {
			drawCaption(doc, a, size.Height)
		}
	}

	if err := doc.Output(w); err != nil {
		return fmt.Errorf("write annotated pdf: %w", err)
	}
	return nil
}

const captionFontSize = 9

// drawCaption paints a filled, red-bordered box across the image region with
// the caption text wrapped inside it.
func drawCaption(doc *fpdf.Fpdf, a Annotation, pageHeight float64) {
	// fpdf uses a top-left origin with y growing downward; flip the bbox.
	x := a.X
	y := pageHeight - (a.Y + a.H)

	latin1, err := charmap.ISO8859_1.NewEncoder().String(a.Text)
	if err != nil {
		latin1 = a.Text
	}

	doc.SetFillColor(255, 255, 255)
	doc.SetDrawColor(200, 0, 0)
	doc.SetTextColor(0, 0, 0)
	doc.Rect(x, y, a.W, a.H, "FD")

	doc.SetXY(x+2, y+2)
	doc.MultiCell(a.W-4, captionFontSize+2, latin1, "", "L", false)
}
