package pdf

import (
	"bytes"
	"errors"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/jmorikawa/alttext/document"
	"github.com/jmorikawa/alttext/internal/doctest"
)

func openReader(t *testing.T, path string) *Reader {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	r, err := NewReader(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func TestReader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.pdf")
	doctest.WritePDF(t, path, []doctest.PDFImage{
		{PxW: 100, PxH: 80, X: 72, Y: 100, W: 200, H: 160},
	})

	r := openReader(t, path)
	if expected, actual := 1, r.NumPages(); expected != actual {
		t.Fatalf("Expected %d pages, got %d", expected, actual)
	}

	page, err := r.GetPage(0)
	if err != nil {
		t.Fatal(err)
	}
	if page.Width != 612 || page.Height != 792 {
		t.Errorf("Expected US Letter page, got %gx%g", page.Width, page.Height)
	}

	blocks, err := r.ImageBlocks(page)
	if err != nil {
		t.Fatal(err)
	}
	if len(blocks) != 1 {
		t.Fatalf("Expected 1 image block, got %d", len(blocks))
	}

	b := blocks[0]
	if b.PxWidth != 100 || b.PxHeight != 80 {
		t.Errorf("Expected 100x80 px, got %dx%d", b.PxWidth, b.PxHeight)
	}
	if math.Abs(b.W-200) > 0.5 || math.Abs(b.H-160) > 0.5 {
		t.Errorf("Expected 200x160 pt placement, got %gx%g", b.W, b.H)
	}
	if math.Abs(b.XRes-36) > 0.5 || math.Abs(b.YRes-36) > 0.5 {
		t.Errorf("Expected 36 dpi, got %gx%g", b.XRes, b.YRes)
	}
	if b.Kind != "jpeg" || len(b.Data) < 4 || b.Data[0] != 0xFF || b.Data[1] != 0xD8 {
		t.Error("Expected passthrough JPEG data")
	}
}

func TestProcess(t *testing.T) {
	log := zap.NewNop()

	t.Run("captions eligible images", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "report.pdf")
		doctest.WritePDF(t, path, []doctest.PDFImage{
			// 100px over 200pt is exactly 36 dpi, inclusive boundary.
			{PxW: 100, PxH: 100, X: 72, Y: 100, W: 200, H: 200},
			// Tiny icon, below the pixel threshold.
			{PxW: 10, PxH: 10, X: 72, Y: 400, W: 20, H: 20},
		})

		c := &doctest.Captioner{Response: "A photo of a bridge"}
		out, outcomes, err := Process(t.Context(), path, c, log)
		if err != nil {
			t.Fatal(err)
		}
		if expected, actual := document.OutputPath(path), out; expected != actual {
			t.Errorf("Expected output %q, got %q", expected, actual)
		}
		if expected, actual := 1, len(c.Calls); expected != actual {
			t.Fatalf("Expected %d caption call, got %d", expected, actual)
		}
		if c.Calls[0][0] != 0xFF || c.Calls[0][1] != 0xD8 {
			t.Error("Expected the captioner to receive JPEG data")
		}
		if len(outcomes) != 1 || !outcomes[0].OK {
			t.Fatalf("Expected one successful outcome, got %+v", outcomes)
		}

		// The output is itself a readable single page PDF.
		r := openReader(t, out)
		if expected, actual := 1, r.NumPages(); expected != actual {
			t.Errorf("Expected %d page in output, got %d", expected, actual)
		}
	})

	t.Run("captions png images", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "report.pdf")
		doctest.WritePDF(t, path, []doctest.PDFImage{
			{PxW: 100, PxH: 100, X: 72, Y: 100, W: 144, H: 144, PNG: true},
		})

		c := &doctest.Captioner{Response: "A blue square"}
		out, outcomes, err := Process(t.Context(), path, c, log)
		if err != nil {
			t.Fatal(err)
		}
		if out == "" {
			t.Fatal("Expected an output file")
		}
		if expected, actual := 1, len(c.Calls); expected != actual {
			t.Fatalf("Expected %d caption call, got %d", expected, actual)
		}
		if len(outcomes) != 1 || !outcomes[0].OK {
			t.Fatalf("Expected one successful outcome, got %+v", outcomes)
		}

		img, err := png.Decode(bytes.NewReader(c.Calls[0]))
		if err != nil {
			t.Fatalf("Captioner payload is not a PNG: %v", err)
		}
		b := img.Bounds()
		if b.Dx() != 100 || b.Dy() != 100 {
			t.Errorf("Expected 100x100 px payload, got %dx%d", b.Dx(), b.Dy())
		}
		r8, g8, b8, _ := img.At(50, 50).RGBA()
		if r8>>8 != 0x33 || g8>>8 != 0x66 || b8>>8 != 0x99 {
			t.Errorf("Pixel data corrupted: got %02x %02x %02x", r8>>8, g8>>8, b8>>8)
		}
	})

	t.Run("output can be reprocessed", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "report.pdf")
		doctest.WritePDF(t, path, []doctest.PDFImage{
			{PxW: 100, PxH: 100, X: 72, Y: 100, W: 200, H: 200},
		})

		first, _, err := Process(t.Context(), path, &doctest.Captioner{Response: "A bridge"}, log)
		if err != nil {
			t.Fatal(err)
		}
		if first == "" {
			t.Fatal("Expected a first-pass output file")
		}

		// The rebuilt document holds each page behind a form XObject; its
		// images must still be found.
		c := &doctest.Captioner{Response: "A bridge"}
		second, outcomes, err := Process(t.Context(), first, c, log)
		if err != nil {
			t.Fatal(err)
		}
		if expected, actual := document.OutputPath(first), second; expected != actual {
			t.Errorf("Expected output %q, got %q", expected, actual)
		}
		if expected, actual := 1, len(c.Calls); expected != actual {
			t.Errorf("Expected %d caption call on the reprocessed file, got %d", expected, actual)
		}
		if len(outcomes) != 1 {
			t.Errorf("Expected one outcome, got %+v", outcomes)
		}
	})

	t.Run("caption failure writes placeholder overlay", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "report.pdf")
		doctest.WritePDF(t, path, []doctest.PDFImage{
			{PxW: 100, PxH: 100, X: 72, Y: 100, W: 144, H: 144},
		})

		c := &doctest.Captioner{Err: errors.New("model unavailable")}
		out, outcomes, err := Process(t.Context(), path, c, log)
		if err != nil {
			t.Fatal(err)
		}
		if out == "" {
			t.Fatal("Expected an output file even when captioning fails")
		}
		if len(outcomes) != 1 || outcomes[0].OK {
			t.Fatalf("Expected one failed outcome, got %+v", outcomes)
		}
		if expected, actual := document.CaptionFailed, outcomes[0].Caption; expected != actual {
			t.Errorf("Expected placeholder caption, got %q", actual)
		}
	})

	t.Run("no eligible images no output", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "report.pdf")
		doctest.WritePDF(t, path, []doctest.PDFImage{
			{PxW: 10, PxH: 10, X: 72, Y: 100, W: 20, H: 20},
		})

		c := &doctest.Captioner{Response: "unused"}
		out, outcomes, err := Process(t.Context(), path, c, log)
		if err != nil {
			t.Fatal(err)
		}
		if out != "" {
			t.Errorf("Expected no output path, got %q", out)
		}
		if len(outcomes) != 0 {
			t.Errorf("Expected no outcomes, got %+v", outcomes)
		}
		if _, err := os.Stat(document.OutputPath(path)); !os.IsNotExist(err) {
			t.Error("Expected no output file to be written")
		}
	})
}
