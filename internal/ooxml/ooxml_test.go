package ooxml

import (
	"path/filepath"
	"testing"

	"github.com/jmorikawa/alttext/internal/doctest"
)

func TestPackage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deck.pptx")
	doctest.WritePPTX(t, path, []int{1})

	pkg, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}

	t.Run("relative rel targets resolve", func(t *testing.T) {
		rels, err := pkg.Rels("ppt/slides/slide1.xml")
		if err != nil {
			t.Fatal(err)
		}
		if expected, actual := "ppt/media/image1.png", rels["rId2"]; expected != actual {
			t.Errorf("Expected rId2 -> %q, got %q", expected, actual)
		}
	})

	t.Run("package-absolute rel targets resolve", func(t *testing.T) {
		pkg.SetPart("ppt/slides/_rels/slide2.xml.rels", []byte(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId2" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/image" Target="/ppt/media/image1.png"/>
</Relationships>`))

		rels, err := pkg.Rels("ppt/slides/slide2.xml")
		if err != nil {
			t.Fatal(err)
		}
		if expected, actual := "ppt/media/image1.png", rels["rId2"]; expected != actual {
			t.Errorf("Expected rId2 -> %q, got %q", expected, actual)
		}
	})

	t.Run("missing rels part errors", func(t *testing.T) {
		if _, err := pkg.Rels("ppt/slides/slide9.xml"); err == nil {
			t.Error("Expected an error for a slide with no relationships")
		}
	})

	t.Run("save preserves part order", func(t *testing.T) {
		pkg.SetPart("ppt/slides/slide1.xml", []byte("<p:sld/>"))

		out := filepath.Join(t.TempDir(), "deck_alt.pptx")
		if err := pkg.SaveAs(out); err != nil {
			t.Fatal(err)
		}

		reread, err := Open(out)
		if err != nil {
			t.Fatal(err)
		}
		orig, saved := pkg.Names(), reread.Names()
		if len(orig) != len(saved) {
			t.Fatalf("Part count changed: %d vs %d", len(orig), len(saved))
		}
		for i := range orig {
			if orig[i] != saved[i] {
				t.Errorf("Part %d reordered: %q vs %q", i, orig[i], saved[i])
			}
		}
		data, _ := reread.Part("ppt/slides/slide1.xml")
		if string(data) != "<p:sld/>" {
			t.Error("Replaced part content not saved")
		}
	})
}
