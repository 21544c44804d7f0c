// Package document holds the format-neutral pieces shared by the three
// format adapters: the describable-image capability, the per-image captioning
// loop, and output path derivation.
package document

import (
	"context"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/jmorikawa/alttext/captioner"
)

// CaptionFailed is the fixed text written in place of a caption whenever the
// captioning call fails. Callers cannot distinguish it from model output other
// than by string value; the log carries the underlying cause.
const CaptionFailed = "alt text generation error"

// OutputSuffix is appended to the file stem of every modified document.
const OutputSuffix = "_alt"

// Image is a raster image discovered inside a document that is eligible for
// captioning, together with a writable target for the generated description.
type Image interface {
	// Bytes returns the encoded image data (full file contents, header
	// included).
	Bytes() ([]byte, error)

	// SetDescription writes text into the image's description slot. For
	// OOXML formats this is the accessibility attribute on the underlying
	// markup element; for PDF it queues a visible text overlay.
	SetDescription(text string)

	// Location identifies the image for logs and run records, e.g.
	// "slide 3" or "page 2 /Im1".
	Location() string
}

// Outcome records what happened to a single image.
type Outcome struct {
	Location string
	Caption  string
	OK       bool
}

// CaptionAll runs the captioning loop over images in order. Extraction
// failures skip the image and siblings continue. Captioning failures
// substitute CaptionFailed and still count as an update. Returns the outcomes
// and the number of images whose description was written.
func CaptionAll(ctx context.Context, c captioner.Captioner, images []Image, log *zap.Logger) ([]Outcome, int) {
	var outcomes []Outcome
	updated := 0
	for _, img := range images {
		if ctx.Err() != nil {
			break
		}

		data, err := img.Bytes()
		if err != nil {
			log.Error("failed to extract image",
				zap.String("location", img.Location()),
				zap.Error(err))
			continue
		}

		text, err := c.Caption(ctx, data)
		ok := err == nil
		if err != nil {
			log.Error("caption request failed",
				zap.String("location", img.Location()),
				zap.Error(err))
			text = CaptionFailed
		}

		img.SetDescription(text)
		updated++
		outcomes = append(outcomes, Outcome{Location: img.Location(), Caption: text, OK: ok})
		log.Info("description written",
			zap.String("location", img.Location()),
			zap.Bool("ok", ok))
	}
	return outcomes, updated
}

// OutputPath derives the sibling output path for a modified document:
// <stem>_alt<ext> in the same directory. The input file is never overwritten;
// feeding an _alt file back in simply produces <stem>_alt_alt<ext>.
func OutputPath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + OutputSuffix + ext
}
