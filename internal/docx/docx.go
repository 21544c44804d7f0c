// Package docx is the word-processing-format adapter. All images in this
// format are inline shapes in the text flow; each resolves to its media part
// through an embedding relationship and takes its description on the inline
// drawing's wp:docPr element.
package docx

import (
	"context"
	"fmt"

	"github.com/beevik/etree"
	"go.uber.org/zap"

	"github.com/jmorikawa/alttext/captioner"
	"github.com/jmorikawa/alttext/document"
	"github.com/jmorikawa/alttext/internal/ooxml"
)

const documentPart = "word/document.xml"

type inlineImage struct {
	pkg   *ooxml.Package
	rels  map[string]string
	docPr *etree.Element
	relID string
	loc   string
}

func (im *inlineImage) Bytes() ([]byte, error) {
	target, ok := im.rels[im.relID]
	if !ok {
		return nil, fmt.Errorf("unresolved embedding relationship %q", im.relID)
	}
	data, ok := im.pkg.Part(target)
	if !ok {
		return nil, fmt.Errorf("missing media part %s", target)
	}
	return data, nil
}

func (im *inlineImage) SetDescription(text string) {
	im.docPr.CreateAttr("descr", text)
}

func (im *inlineImage) Location() string { return im.loc }

// Process captions every inline image shape in the document at path.
// Save/return semantics match the presentation adapter.
func Process(ctx context.Context, path string, c captioner.Captioner, log *zap.Logger) (string, []document.Outcome, error) {
	log.Info("processing document", zap.String("path", path))

	pkg, err := ooxml.Open(path)
	if err != nil {
		return "", nil, err
	}

	data, ok := pkg.Part(documentPart)
	if !ok {
		return "", nil, fmt.Errorf("package has no %s", documentPart)
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return "", nil, fmt.Errorf("parse %s: %w", documentPart, err)
	}

	inlines := doc.FindElements("//w:drawing/wp:inline")

	var images []document.Image
	if len(inlines) > 0 {
		rels, err := pkg.Rels(documentPart)
		if err != nil {
			return "", nil, err
		}

		for i, inline := range inlines {
			docPr := inline.FindElement("wp:docPr")
			blip := inline.FindElement(".//a:blip")
			if docPr == nil || blip == nil {
				log.Error("malformed inline shape, skipping",
					zap.Int("index", i+1))
				continue
			}
			relID := blip.SelectAttrValue("r:embed", "")
			images = append(images, &inlineImage{
				pkg:   pkg,
				rels:  rels,
				docPr: docPr,
				relID: relID,
				loc:   fmt.Sprintf("inline image %d (%s)", i+1, relID),
			})
		}
	}

	outcomes, updated := document.CaptionAll(ctx, c, images, log)
	if updated == 0 {
		return "", outcomes, nil
	}

	body, err := doc.WriteToBytes()
	if err != nil {
		return "", outcomes, fmt.Errorf("serialize %s: %w", documentPart, err)
	}
	pkg.SetPart(documentPart, body)

	out := document.OutputPath(path)
	if err := pkg.SaveAs(out); err != nil {
		return "", outcomes, err
	}
	log.Info("saved updated document", zap.String("path", out))
	return out, outcomes, nil
}
