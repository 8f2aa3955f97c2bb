package images

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"

	"github.com/japaniel/ankivocab/pkg/llm"
)

// OpenAIGenerator calls the OpenAI images endpoint (gpt-image-1, dall-e-3).
type OpenAIGenerator struct {
	Client *llm.OpenAIClient
	Model  string
	Size   string
	Retry  llm.RetryPolicy
	Log    *slog.Logger
}

type imageRequest struct {
	Model          string `json:"model"`
	Prompt         string `json:"prompt"`
	Size           string `json:"size"`
	N              int    `json:"n"`
	ResponseFormat string `json:"response_format,omitempty"`
}

type imageResponse struct {
	Data []struct {
		B64JSON string `json:"b64_json"`
	} `json:"data"`
}

func (g *OpenAIGenerator) Generate(ctx context.Context, prompt string) ([]byte, error) {
	if err := ValidateSize(g.Size); err != nil {
		return nil, err
	}
	body := imageRequest{Model: g.Model, Prompt: prompt, Size: g.Size, N: 1}
	if strings.HasPrefix(g.Model, "dall-e") {
		// gpt-image models always answer in base64 and reject the field
		body.ResponseFormat = "b64_json"
	}
	return llm.Do(ctx, g.Retry, g.Log, "image_generation", func(ctx context.Context) ([]byte, error) {
		var resp imageResponse
		if err := g.Client.PostJSON(ctx, "/images/generations", body, &resp); err != nil {
			return nil, err
		}
		if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
			return nil, fmt.Errorf("%w: image response missing b64_json", llm.ErrMalformedResponse)
		}
		data, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
		if err != nil {
			return nil, fmt.Errorf("%w: decode image: %v", llm.ErrMalformedResponse, err)
		}
		return data, nil
	})
}
