package alttext

import (
	"testing"
	"time"

	"github.com/jmorikawa/alttext/document"
)

func TestRecordRun(t *testing.T) {
	db, err := NewDB(t.Context(), ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	t.Run("no outcomes", func(t *testing.T) {
		err := db.RecordRun(t.Context(), "/docs/empty.pptx", "", nil, time.Now())
		if err != nil {
			t.Errorf("Unexpected error %s", err)
		}

		docs, err := db.Documents(t.Context())
		if err != nil {
			t.Fatal(err)
		}
		if expected, actual := 1, len(docs); expected != actual {
			t.Fatalf("Expected %d documents, got %d", expected, actual)
		}
		if docs[0].OutputPath.Valid {
			t.Errorf("Expected NULL output path, got %q", docs[0].OutputPath.String)
		}
		if expected, actual := 0, docs[0].ImagesUpdated; expected != actual {
			t.Errorf("Expected %d images updated, got %d", expected, actual)
		}
	})

	t.Run("outcomes recorded", func(t *testing.T) {
		outcomes := []document.Outcome{
			{Location: "slide 1 Picture 1", Caption: "A bar chart of quarterly revenue", OK: true},
			{Location: "slide 2 Picture 3", Caption: document.CaptionFailed, OK: false},
		}
		err := db.RecordRun(t.Context(), "/docs/deck.pptx", "/docs/deck_alt.pptx", outcomes, time.Now())
		if err != nil {
			t.Fatal(err)
		}

		docs, err := db.Documents(t.Context())
		if err != nil {
			t.Fatal(err)
		}
		if expected, actual := 2, len(docs); expected != actual {
			t.Fatalf("Expected %d documents, got %d", expected, actual)
		}

		var doc *Document
		for _, d := range docs {
			if d.InputPath == "/docs/deck.pptx" {
				doc = d
			}
		}
		if doc == nil {
			t.Fatal("deck.pptx document row not found")
		}
		if expected, actual := "/docs/deck_alt.pptx", doc.OutputPath.String; expected != actual {
			t.Errorf("Expected output path %q, got %q", expected, actual)
		}
		if expected, actual := "pptx", doc.Format; expected != actual {
			t.Errorf("Expected format %q, got %q", expected, actual)
		}
		if expected, actual := 2, doc.ImagesUpdated; expected != actual {
			t.Errorf("Expected %d images updated, got %d", expected, actual)
		}

		caps, err := db.Captions(t.Context(), doc.Id)
		if err != nil {
			t.Fatal(err)
		}
		if expected, actual := 2, len(caps); expected != actual {
			t.Fatalf("Expected %d captions, got %d", expected, actual)
		}
		if caps[0].OK != true || caps[1].OK != false {
			t.Errorf("Caption ok flags wrong: %v %v", caps[0].OK, caps[1].OK)
		}
		if expected, actual := document.CaptionFailed, caps[1].Caption; expected != actual {
			t.Errorf("Expected caption %q, got %q", expected, actual)
		}
	})
}
