package docx

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/beevik/etree"
	"go.uber.org/zap"

	"github.com/jmorikawa/alttext/document"
	"github.com/jmorikawa/alttext/internal/doctest"
	"github.com/jmorikawa/alttext/internal/ooxml"
)

func inlineDescrs(t *testing.T, path string) []string {
	t.Helper()

	pkg, err := ooxml.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	data, ok := pkg.Part("word/document.xml")
	if !ok {
		t.Fatal("output package has no document part")
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		t.Fatal(err)
	}

	var descrs []string
	for _, inline := range doc.FindElements("//w:drawing/wp:inline") {
		descrs = append(descrs, inline.FindElement("wp:docPr").SelectAttrValue("descr", ""))
	}
	return descrs
}

func TestProcess(t *testing.T) {
	log := zap.NewNop()

	t.Run("captions every inline image", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "report.docx")
		doctest.WriteDOCX(t, path, 2)

		c := &doctest.Captioner{Response: "An org chart"}
		out, outcomes, err := Process(t.Context(), path, c, log)
		if err != nil {
			t.Fatal(err)
		}
		if expected, actual := document.OutputPath(path), out; expected != actual {
			t.Errorf("Expected output %q, got %q", expected, actual)
		}
		if expected, actual := 2, len(c.Calls); expected != actual {
			t.Errorf("Expected %d caption calls, got %d", expected, actual)
		}
		if expected, actual := 2, len(outcomes); expected != actual {
			t.Fatalf("Expected %d outcomes, got %d", expected, actual)
		}

		descrs := inlineDescrs(t, out)
		if len(descrs) != 2 {
			t.Fatalf("Expected 2 inline images in output, got %d", len(descrs))
		}
		for _, d := range descrs {
			if d != "An org chart" {
				t.Errorf("Expected descr on every image, got %q", d)
			}
		}

		// The original file is untouched.
		for _, d := range inlineDescrs(t, path) {
			if d != "" {
				t.Errorf("Input file was modified, descr %q", d)
			}
		}
	})

	t.Run("caption failure writes placeholder", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "report.docx")
		doctest.WriteDOCX(t, path, 1)

		c := &doctest.Captioner{Err: errors.New("timeout")}
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

		descrs := inlineDescrs(t, out)
		if len(descrs) != 1 || descrs[0] != document.CaptionFailed {
			t.Errorf("Expected placeholder descr, got %v", descrs)
		}
	})

	t.Run("no images no output", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "report.docx")
		doctest.WriteDOCX(t, path, 0)

		c := &doctest.Captioner{Response: "unused"}
		out, _, err := Process(t.Context(), path, c, log)
		if err != nil {
			t.Fatal(err)
		}
		if out != "" {
			t.Errorf("Expected no output path, got %q", out)
		}
		if _, err := os.Stat(document.OutputPath(path)); !os.IsNotExist(err) {
			t.Error("Expected no output file to be written")
		}
	})
}
