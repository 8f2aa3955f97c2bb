package images

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/japaniel/ankivocab/pkg/llm"
	"google.golang.org/genai"
)

// DefaultImagenModel is used when no Imagen model is configured.
const DefaultImagenModel = "imagen-4.0-generate-001"

type imagenModels interface {
	GenerateImages(ctx context.Context, model, prompt string, config *genai.GenerateImagesConfig) (*genai.GenerateImagesResponse, error)
}

// ImagenGenerator generates images with Google's Imagen models through the Gemini API.
type ImagenGenerator struct {
	models imagenModels
	Model  string
	Size   string
	Retry  llm.RetryPolicy
	Log    *slog.Logger
}

// NewImagenGenerator creates a Gemini API client for apiKey.
func NewImagenGenerator(ctx context.Context, apiKey, model, size string, retry llm.RetryPolicy, log *slog.Logger) (*ImagenGenerator, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	if model == "" {
		model = DefaultImagenModel
	}
	return &ImagenGenerator{models: client.Models, Model: model, Size: size, Retry: retry, Log: log}, nil
}

// aspectRatio maps a WxH size to an Imagen aspect ratio.
func aspectRatio(size string) (string, error) {
	switch size {
	case SizeSquare:
		return "1:1", nil
	case SizeLandscape:
		return "16:9", nil
	case SizePortrait:
		return "9:16", nil
	}
	return "", ValidateSize(size)
}

func (g *ImagenGenerator) Generate(ctx context.Context, prompt string) ([]byte, error) {
	ratio, err := aspectRatio(g.Size)
	if err != nil {
		return nil, err
	}
	cfg := &genai.GenerateImagesConfig{
		NumberOfImages: 1,
		AspectRatio:    ratio,
	}
	return llm.Do(ctx, g.Retry, g.Log, "image_generation", func(ctx context.Context) ([]byte, error) {
		resp, err := g.models.GenerateImages(ctx, g.Model, prompt, cfg)
		if err != nil {
			var apiErr genai.APIError
			if errors.As(err, &apiErr) {
				return nil, &llm.APIError{Provider: "imagen", StatusCode: apiErr.Code, Message: apiErr.Message}
			}
			return nil, err
		}
		if resp == nil || len(resp.GeneratedImages) == 0 || resp.GeneratedImages[0].Image == nil ||
			len(resp.GeneratedImages[0].Image.ImageBytes) == 0 {
			return nil, fmt.Errorf("%w: imagen returned no image", llm.ErrMalformedResponse)
		}
		return resp.GeneratedImages[0].Image.ImageBytes, nil
	})
}
