package alttext

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jmorikawa/alttext/captioner"
	"github.com/jmorikawa/alttext/document"
	"github.com/jmorikawa/alttext/internal/docx"
	"github.com/jmorikawa/alttext/internal/pdf"
	"github.com/jmorikawa/alttext/internal/pptx"
)

// supportedExts is also the processing order for folder runs.
var supportedExts = []string{".pptx", ".docx", ".pdf"}

// Processor runs documents through the captioning pipeline.
type Processor struct {
	Captioner captioner.Captioner
	Log       *zap.Logger
	DB        *DB // optional, records runs when set

	// Stop, when set, is polled between documents during folder runs. A true
	// return finishes the current batch after the in-flight document instead
	// of abandoning it mid-write.
	Stop func() bool
}

// ProcessFile captions a single document. It returns the output path, or ""
// when no image needed a description and no output was written.
func (p *Processor) ProcessFile(ctx context.Context, path string) (string, error) {
	var (
		err      error
		outPath  string
		outcomes []document.Outcome
	)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".pptx":
		outPath, outcomes, err = pptx.Process(ctx, path, p.Captioner, p.Log)
	case ".docx":
		outPath, outcomes, err = docx.Process(ctx, path, p.Captioner, p.Log)
	case ".pdf":
		outPath, outcomes, err = pdf.Process(ctx, path, p.Captioner, p.Log)
	default:
		p.Log.Warn("skipping unsupported file", zap.String("path", path))
		return "", nil
	}

	if err != nil {
		p.Log.Error("document processing failed",
			zap.String("path", path), zap.Error(err))
		return "", err
	}

	if p.DB != nil {
		if err := p.DB.RecordRun(ctx, path, outPath, outcomes, time.Now()); err != nil {
			p.Log.Error("failed to record run", zap.String("path", path), zap.Error(err))
		}
	}
	return outPath, nil
}

// ProcessFolder walks root recursively and captions every supported document,
// one extension at a time in supportedExts order. Per-file failures are
// logged and do not stop the batch. Returns the output paths written.
func (p *Processor) ProcessFolder(ctx context.Context, root string) ([]string, error) {
	var outputs []string
	for _, ext := range supportedExts {
		// Collect first so documents written during this run are not
		// picked up as inputs.
		var paths []string
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ext) {
				paths = append(paths, path)
			}
			return nil
		})
		if err != nil {
			return outputs, fmt.Errorf("walk %s: %w", root, err)
		}

		for _, path := range paths {
			if ctx.Err() != nil {
				return outputs, ctx.Err()
			}
			if p.Stop != nil && p.Stop() {
				p.Log.Info("stop requested, ending batch early",
					zap.Int("outputs", len(outputs)))
				return outputs, nil
			}
			out, err := p.ProcessFile(ctx, path)
			if err != nil {
				continue // already logged
			}
			if out != "" {
				outputs = append(outputs, out)
			}
		}
	}
	return outputs, nil
}
