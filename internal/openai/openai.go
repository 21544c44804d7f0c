// Package openai implements the captioner on the hosted OpenAI API.
package openai

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"github.com/jmorikawa/alttext/captioner"

	oagc "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const instruction = "Describe the content of this image in English. Important - No talk, just go!"

type openai struct {
	oac   *oagc.Client
	model string
}

var _ captioner.Captioner = &openai{}

// Init creates the OpenAI backend. The API key is read by the SDK from
// OPENAI_API_KEY. An empty model falls back to gpt-4o-mini.
func Init(model string, httpClient *http.Client) *openai {
	if model == "" {
		model = "gpt-4o-mini"
	}

	return &openai{
		oac: oagc.NewClient(
			option.WithHTTPClient(httpClient),
		),
		model: model,
	}
}

func (o *openai) Name() string { return "openai" }

func (o *openai) Model() string { return o.model }

func (o *openai) IsHealthy() bool {
	// The hosted API has no cheap unauthenticated probe; rely on the request
	// itself to fail.
	return true
}

func (o *openai) Caption(ctx context.Context, image []byte) (string, error) {
	dataURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(image)

	resp, err := o.oac.Chat.Completions.New(ctx, oagc.ChatCompletionNewParams{
		Model: oagc.F(o.model),
		Messages: oagc.F([]oagc.ChatCompletionMessageParamUnion{
			oagc.UserMessageParts(
				oagc.ImagePart(dataURL),
				oagc.TextPart(instruction),
			),
		}),
		Temperature: oagc.Float(0.7),
		MaxTokens:   oagc.Int(4096),
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("caption response contained no choices")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
