// Package pptx is the presentation-format adapter. It walks every slide of a
// .pptx package, captions every picture shape, and writes the caption into the
// shape's accessibility description attribute.
package pptx

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"

	"github.com/beevik/etree"
	"go.uber.org/zap"

	"github.com/jmorikawa/alttext/captioner"
	"github.com/jmorikawa/alttext/document"
	"github.com/jmorikawa/alttext/internal/ooxml"
)

var slideRe = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

// picImage is one picture shape on a slide. The description lands on the
// p:nvPicPr/p:cNvPr element; the high-level markup has no other writable slot
// for it.
type picImage struct {
	pkg   *ooxml.Package
	rels  map[string]string
	cNvPr *etree.Element
	relID string
	loc   string
}

func (p *picImage) Bytes() ([]byte, error) {
	target, ok := p.rels[p.relID]
	if !ok {
		return nil, fmt.Errorf("unresolved embedding relationship %q", p.relID)
	}
	data, ok := p.pkg.Part(target)
	if !ok {
		return nil, fmt.Errorf("missing media part %s", target)
	}
	return data, nil
}

func (p *picImage) SetDescription(text string) {
	p.cNvPr.CreateAttr("descr", text)
}

func (p *picImage) Location() string { return p.loc }

// Process captions every picture shape in the presentation at path. If at
// least one description was written it saves <stem>_alt.pptx and returns that
// path, otherwise it returns "".
func Process(ctx context.Context, path string, c captioner.Captioner, log *zap.Logger) (string, []document.Outcome, error) {
	log.Info("processing presentation", zap.String("path", path))

	pkg, err := ooxml.Open(path)
	if err != nil {
		return "", nil, err
	}

	type slidePart struct {
		name string
		num  int
	}
	var slides []slidePart
	for _, name := range pkg.Names() {
		if m := slideRe.FindStringSubmatch(name); m != nil {
			n, _ := strconv.Atoi(m[1])
			slides = append(slides, slidePart{name: name, num: n})
		}
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].num < slides[j].num })

	var (
		images   []document.Image
		modified []struct {
			name string
			doc  *etree.Document
		}
	)
	for _, slide := range slides {
		data, _ := pkg.Part(slide.name)
		doc := etree.NewDocument()
		if err := doc.ReadFromBytes(data); err != nil {
			return "", nil, fmt.Errorf("parse %s: %w", slide.name, err)
		}

		pics := doc.FindElements("//p:pic")
		if len(pics) == 0 {
			continue
		}

		rels, err := pkg.Rels(slide.name)
		if err != nil {
			log.Error("slide has pictures but no relationships",
				zap.String("slide", slide.name), zap.Error(err))
			continue
		}

		for _, pic := range pics {
			cNvPr := pic.FindElement("p:nvPicPr/p:cNvPr")
			blip := pic.FindElement("p:blipFill/a:blip")
			if cNvPr == nil || blip == nil {
				log.Error("malformed picture shape, skipping",
					zap.String("slide", slide.name))
				continue
			}
			relID := blip.SelectAttrValue("r:embed", "")
			images = append(images, &picImage{
				pkg:   pkg,
				rels:  rels,
				cNvPr: cNvPr,
				relID: relID,
				loc:   fmt.Sprintf("slide %d %s", slide.num, cNvPr.SelectAttrValue("name", relID)),
			})
		}
		modified = append(modified, struct {
			name string
			doc  *etree.Document
		}{slide.name, doc})
	}

	outcomes, updated := document.CaptionAll(ctx, c, images, log)
	if updated == 0 {
		return "", outcomes, nil
	}

	for _, m := range modified {
		data, err := m.doc.WriteToBytes()
		if err != nil {
			return "", outcomes, fmt.Errorf("serialize %s: %w", m.name, err)
		}
		pkg.SetPart(m.name, data)
	}

	out := document.OutputPath(path)
	if err := pkg.SaveAs(out); err != nil {
		return "", outcomes, err
	}
	log.Info("saved updated presentation", zap.String("path", out))
	return out, outcomes, nil
}
