// Package pdf is the PDF format adapter. PDF pages have no per-image
// accessibility attribute to write into, so captions are painted as visible
// text boxes over the image regions of a re-built copy of the document.
//
// The package carries its own minimal PDF reader (lexer, xref, object and
// page access) because captioning needs the raw image streams and their
// placement, which rendering-oriented libraries do not expose.
package pdf

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/jmorikawa/alttext/captioner"
	"github.com/jmorikawa/alttext/document"
)

// pdfImage is one eligible image placement. SetDescription queues an overlay
// box; nothing is written until WriteAnnotated runs.
type pdfImage struct {
	block   ImageBlock
	caption string
	set     bool
}

func (p *pdfImage) Bytes() ([]byte, error) {
	if p.block.Data == nil {
		return nil, fmt.Errorf("image %s on page %d has an unsupported encoding", p.block.Name, p.block.Page)
	}
	return p.block.Data, nil
}

func (p *pdfImage) SetDescription(text string) {
	p.caption = text
	p.set = true
}

func (p *pdfImage) Location() string {
	return fmt.Sprintf("page %d %s", p.block.Page, p.block.Name)
}

// Process captions every eligible image in the PDF at path. If at least one
// caption was produced it saves <stem>_alt.pdf and returns that path,
// otherwise it returns "". Encrypted files fail with ErrEncrypted.
func Process(ctx context.Context, path string, c captioner.Captioner, log *zap.Logger) (string, []document.Outcome, error) {
	log.Info("processing pdf", zap.String("path", path))

	src, err := os.ReadFile(path)
	if err != nil {
		return "", nil, err
	}
	r, err := NewReader(bytes.NewReader(src))
	if err != nil {
		return "", nil, fmt.Errorf("open %s: %w", path, err)
	}

	n := r.NumPages()
	sizes := make([]PageSize, 0, n)
	var images []document.Image
	for i := range n {
		page, err := r.GetPage(i)
		if err != nil {
			return "", nil, fmt.Errorf("page %d: %w", i+1, err)
		}
		sizes = append(sizes, PageSize{Width: page.Width, Height: page.Height})

		blocks, err := r.ImageBlocks(page)
		if err != nil {
			log.Error("content stream scan failed",
				zap.Int("page", i+1), zap.Error(err))
			continue
		}
		for _, b := range blocks {
			if !b.Eligible() {
				log.Debug("image below size or resolution threshold",
					zap.Int("page", b.Page),
					zap.String("name", b.Name),
					zap.Int("px_width", b.PxWidth),
					zap.Int("px_height", b.PxHeight),
					zap.Float64("x_res", b.XRes),
					zap.Float64("y_res", b.YRes))
				continue
			}
			images = append(images, &pdfImage{block: b})
		}
	}

	outcomes, updated := document.CaptionAll(ctx, c, images, log)
	if updated == 0 {
		return "", outcomes, nil
	}

	var annotations []Annotation
	for _, img := range images {
		p := img.(*pdfImage)
		if !p.set {
			continue
		}
		annotations = append(annotations, Annotation{
			Page: p.block.Page,
			X:    p.block.X,
			Y:    p.block.Y,
			W:    p.block.W,
			H:    p.block.H,
			Text: p.caption,
		})
	}

	out := document.OutputPath(path)
	f, err := os.Create(out)
	if err != nil {
		return "", outcomes, err
	}
	if err := WriteAnnotated(src, sizes, annotations, f); err != nil {
		f.Close()
		os.Remove(out)
		return "", outcomes, err
	}
	if err := f.Close(); err != nil {
		return "", outcomes, err
	}
	log.Info("saved annotated pdf", zap.String("path", out))
	return out, outcomes, nil
}
