// Package lmstudio implements the captioner against any OpenAI-compatible
// chat-completions endpoint, such as a local LM Studio server.
package lmstudio

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/jmorikawa/alttext/captioner"
)

// instruction is the fixed user prompt sent with every image.
const instruction = "Describe the content of this image in English. Important - No talk, just go!"

type lmstudio struct {
	endpoint string
	apiKey   string
	model    string

	client *http.Client
}

var _ captioner.Captioner = &lmstudio{}

func Init(endpoint, apiKey, model string, httpClient *http.Client) *lmstudio {
	return &lmstudio{
		endpoint: endpoint,
		apiKey:   apiKey,
		model:    model,
		client:   httpClient,
	}
}

func (l *lmstudio) Name() string { return "lmstudio" }

func (l *lmstudio) Model() string { return l.model }

func (l *lmstudio) IsHealthy() bool {
	u, err := url.Parse(l.endpoint)
	if err != nil {
		return false
	}
	// The chat completions path only accepts POST, probe the models listing
	// instead. Derive it from the configured path so servers mounted under a
	// prefix keep working.
	if p, ok := strings.CutSuffix(u.Path, "/chat/completions"); ok {
		u.Path = p + "/models"
	} else {
		u.Path = "/v1/models"
	}
	u.RawQuery = ""

	resp, err := l.client.Get(u.String())
	if err != nil {
		return false
	}
	resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}

// request mirrors the chat-completions body for a single user turn carrying
// one inline image and the fixed instruction.
type request struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
	Stream      bool      `json:"stream"`
}

type message struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	ImageURL *imageURL `json:"image_url,omitempty"`
	Text     string    `json:"text,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

func (l *lmstudio) Caption(ctx context.Context, image []byte) (string, error) {
	imb64 := base64.StdEncoding.EncodeToString(image)

	body := request{
		Model: l.model,
		Messages: []message{
			{
				Role: "user",
				Content: []contentPart{
					{
						Type:     "image_url",
						ImageURL: &imageURL{URL: "data:image/png;base64," + imb64},
					},
					{
						Type: "text",
						Text: instruction,
					},
				},
			},
		},
		Temperature: 0.7,
		MaxTokens:   4096,
		Stream:      false,
	}

	buf := bytes.NewBuffer(make([]byte, 0, len(imb64)+1024))
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(&body); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.endpoint, bytes.NewReader(buf.Bytes()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if l.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+l.apiKey)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("caption endpoint returned %s", resp.Status)
	}

	respbody := struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}{}
	if err := json.NewDecoder(resp.Body).Decode(&respbody); err != nil {
		return "", err
	}
	if len(respbody.Choices) == 0 {
		return "", fmt.Errorf("caption response contained no choices")
	}

	return strings.TrimSpace(respbody.Choices[0].Message.Content), nil
}
