// Package doctest builds small real documents for adapter tests: OOXML
// packages assembled part by part, and PDFs produced through fpdf. It also
// provides a canned captioner.
package doctest

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"testing"

	"codeberg.org/go-pdf/fpdf"
)

// Captioner returns a fixed caption for every image and records the payloads
// it was called with.
type Captioner struct {
	Response string
	Err      error

	Calls [][]byte
}

func (c *Captioner) Name() string  { return "doctest" }
func (c *Captioner) Model() string { return "doctest-model" }
func (c *Captioner) IsHealthy() bool {
	return true
}

func (c *Captioner) Caption(_ context.Context, img []byte) (string, error) {
	c.Calls = append(c.Calls, img)
	if c.Err != nil {
		return "", c.Err
	}
	return c.Response, nil
}

// PNG returns a solid-color PNG of the given pixel size.
func PNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.SetNRGBA(x, y, color.NRGBA{R: 0x33, G: 0x66, B: 0x99, A: 0xFF})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// JPEG returns a solid-color JPEG of the given pixel size.
func JPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.SetRGBA(x, y, color.RGBA{R: 0xCC, G: 0x44, B: 0x22, A: 0xFF})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

const relsNS = "http://schemas.openxmlformats.org/package/2006/relationships"
const imageRelType = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/image"

// WritePPTX writes a presentation with one slide per entry of picsPerSlide,
// each slide holding that many pictures plus one non-picture shape.
func WritePPTX(t *testing.T, path string, picsPerSlide []int) {
	t.Helper()

	parts := map[string][]byte{
		"[Content_Types].xml": []byte(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="xml" ContentType="application/xml"/>
<Default Extension="png" ContentType="image/png"/>
</Types>`),
	}

	imageNum := 1
	for i, npics := range picsPerSlide {
		slideNum := i + 1

		var slide, rels bytes.Buffer
		slide.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<p:sld xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main">
<p:cSld><p:spTree>
<p:sp><p:nvSpPr><p:cNvPr id="1" name="Title 1"/></p:nvSpPr><p:spPr/></p:sp>
`)
		rels.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="` + relsNS + `">
`)

		for j := range npics {
			relID := fmt.Sprintf("rId%d", j+2)
			media := fmt.Sprintf("image%d.png", imageNum)
			fmt.Fprintf(&slide, `<p:pic><p:nvPicPr><p:cNvPr id="%d" name="Picture %d"/><p:cNvPicPr/><p:nvPr/></p:nvPicPr><p:blipFill><a:blip r:embed="%s"/></p:blipFill><p:spPr/></p:pic>
`, j+2, j+2, relID)
			fmt.Fprintf(&rels, `<Relationship Id="%s" Type="%s" Target="../media/%s"/>
`, relID, imageRelType, media)
			parts["ppt/media/"+media] = PNG(t, 32, 32)
			imageNum++
		}

		slide.WriteString("</p:spTree></p:cSld></p:sld>")
		rels.WriteString("</Relationships>")

		parts[fmt.Sprintf("ppt/slides/slide%d.xml", slideNum)] = slide.Bytes()
		parts[fmt.Sprintf("ppt/slides/_rels/slide%d.xml.rels", slideNum)] = rels.Bytes()
	}

	writeZip(t, path, parts)
}

// WriteDOCX writes a word-processing document holding nimages inline images
// in the body.
func WriteDOCX(t *testing.T, path string, nimages int) {
	t.Helper()

	var doc, rels bytes.Buffer
	doc.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main" xmlns:wp="http://schemas.openxmlformats.org/drawingml/2006/wordprocessingDrawing" xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships">
<w:body>
<w:p><w:r><w:t>Hello</w:t></w:r></w:p>
`)
	rels.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="` + relsNS + `">
`)

	parts := map[string][]byte{
		"[Content_Types].xml": []byte(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="xml" ContentType="application/xml"/>
<Default Extension="png" ContentType="image/png"/>
</Types>`),
	}

	for i := range nimages {
		relID := fmt.Sprintf("rId%d", i+1)
		media := fmt.Sprintf("image%d.png", i+1)
		fmt.Fprintf(&doc, `<w:p><w:r><w:drawing><wp:inline><wp:extent cx="914400" cy="914400"/><wp:docPr id="%d" name="Picture %d"/><a:graphic><a:graphicData><pic:pic xmlns:pic="http://schemas.openxmlformats.org/drawingml/2006/picture"><pic:blipFill><a:blip r:embed="%s"/></pic:blipFill></pic:pic></a:graphicData></a:graphic></wp:inline></w:drawing></w:r></w:p>
`, i+1, i+1, relID)
		fmt.Fprintf(&rels, `<Relationship Id="%s" Type="%s" Target="media/%s"/>
`, relID, imageRelType, media)
		parts["word/media/"+media] = PNG(t, 32, 32)
	}

	doc.WriteString("</w:body></w:document>")
	rels.WriteString("</Relationships>")
	parts["word/document.xml"] = doc.Bytes()
	parts["word/_rels/document.xml.rels"] = rels.Bytes()

	writeZip(t, path, parts)
}

func writeZip(t *testing.T, path string, parts map[string][]byte) {
	t.Helper()

	var names []string
	for name := range parts {
		names = append(names, name)
	}
	// Content types first, matching real packages; the rest in any order.
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	write := func(name string) {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write(parts[name]); err != nil {
			t.Fatal(err)
		}
	}
	write("[Content_Types].xml")
	for _, name := range names {
		if name != "[Content_Types].xml" {
			write(name)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
}

// PDFImage is one image placement for WritePDF. Pixel dimensions come from
// the generated raster; W and H are the placed size in points. PNG selects a
// PNG-sourced image (stored flate-compressed with scanline filters) instead
// of a JPEG.
type PDFImage struct {
	PxW, PxH int
	X, Y     float64
	W, H     float64
	PNG      bool
}

// WritePDF writes a single-page US Letter PDF carrying the given image
// placements. Coordinates are from the top-left, fpdf style.
func WritePDF(t *testing.T, path string, images []PDFImage) {
	t.Helper()

	doc := fpdf.New("P", "pt", "Letter", "")
	doc.AddPage()
	doc.SetFont("Helvetica", "", 12)
	doc.Text(72, 72, "Quarterly report")

	for i, img := range images {
		name := fmt.Sprintf("img%d", i)
		opts := fpdf.ImageOptions{ImageType: "JPG"}
		raster := JPEG(t, img.PxW, img.PxH)
		if img.PNG {
			opts.ImageType = "PNG"
			raster = PNG(t, img.PxW, img.PxH)
		}
		doc.RegisterImageOptionsReader(name, opts, bytes.NewReader(raster))
		doc.ImageOptions(name, img.X, img.Y, img.W, img.H, false, opts, 0, "")
	}

	if err := doc.OutputFileAndClose(path); err != nil {
		t.Fatal(err)
	}
}
