// Package alttext generates alt text for images embedded in office documents.
// It finds the images in .pptx, .docx and .pdf files, asks a vision language
// model to describe each one, and writes the descriptions back into a sibling
// copy of the document.
package alttext

import (
	"fmt"
	"net/http"

	"github.com/jmorikawa/alttext/captioner"
	"github.com/jmorikawa/alttext/internal/lmstudio"
	"github.com/jmorikawa/alttext/internal/openai"
)

type InitOptions struct {
	// Endpoint of an OpenAI-compatible chat completions server, e.g. a local
	// LM Studio instance. Empty selects the hosted OpenAI backend instead.
	Endpoint string
	APIKey   string
	Model    string

	OpenAI bool

	HttpClient *http.Client // if nil uses http.DefaultClient
}

type AltText struct {
	captioner.Captioner
}

func Init(aio InitOptions) (*AltText, error) {
	a := &AltText{}

	httpClient := aio.HttpClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	var n int
	if aio.OpenAI {
		n++
	}
	if aio.Endpoint != "" {
		n++
	}
	switch n {
	case 0:
		return nil, fmt.Errorf("no backend selected")
	case 1:
		// no-op
	default:
		return nil, fmt.Errorf("multiple backends selected, only one allowed")
	}

	if aio.OpenAI {
		a.Captioner = openai.Init(aio.Model, httpClient)
	} else {
		a.Captioner = lmstudio.Init(aio.Endpoint, aio.APIKey, aio.Model, httpClient)
	}

	return a, nil
}
