package pptx

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

func slideDescrs(t *testing.T, path, slideName string) []string {
	t.Helper()

	pkg, err := ooxml.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	data, ok := pkg.Part(slideName)
	if !ok {
		t.Fatalf("output package has no part %s", slideName)
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		t.Fatal(err)
	}

	var descrs []string
	for _, pic := range doc.FindElements("//p:pic") {
		descrs = append(descrs, pic.FindElement("p:nvPicPr/p:cNvPr").SelectAttrValue("descr", ""))
	}
	return descrs
}

func TestProcess(t *testing.T) {
	log := zap.NewNop()

	t.Run("captions every picture", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "deck.pptx")
		doctest.WritePPTX(t, path, []int{2, 0, 1})

		c := &doctest.Captioner{Response: "A blue rectangle"}
		out, outcomes, err := Process(t.Context(), path, c, log)
		if err != nil {
			t.Fatal(err)
		}
		if expected, actual := document.OutputPath(path), out; expected != actual {
			t.Errorf("Expected output %q, got %q", expected, actual)
		}
		if expected, actual := 3, len(c.Calls); expected != actual {
			t.Errorf("Expected %d caption calls, got %d", expected, actual)
		}
		if expected, actual := 3, len(outcomes); expected != actual {
			t.Fatalf("Expected %d outcomes, got %d", expected, actual)
		}
		for _, o := range outcomes {
			if !o.OK || o.Caption != "A blue rectangle" {
				t.Errorf("Unexpected outcome %+v", o)
			}
		}

		for _, descr := range slideDescrs(t, out, "ppt/slides/slide1.xml") {
			if descr != "A blue rectangle" {
				t.Errorf("Expected descr on every picture, got %q", descr)
			}
		}
		if n := len(slideDescrs(t, out, "ppt/slides/slide1.xml")); n != 2 {
			t.Errorf("Expected 2 pictures on slide 1, got %d", n)
		}
		if n := len(slideDescrs(t, out, "ppt/slides/slide3.xml")); n != 1 {
			t.Errorf("Expected 1 picture on slide 3, got %d", n)
		}

		// The original file is untouched.
		for _, descr := range slideDescrs(t, path, "ppt/slides/slide1.xml") {
			if descr != "" {
				t.Errorf("Input file was modified, descr %q", descr)
			}
		}
	})

	t.Run("caption failure writes placeholder", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "deck.pptx")
		doctest.WritePPTX(t, path, []int{1})

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

		descrs := slideDescrs(t, out, "ppt/slides/slide1.xml")
		if len(descrs) != 1 || descrs[0] != document.CaptionFailed {
			t.Errorf("Expected placeholder descr, got %v", descrs)
		}
	})

	t.Run("no pictures no output", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "deck.pptx")
		doctest.WritePPTX(t, path, []int{0, 0})

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
