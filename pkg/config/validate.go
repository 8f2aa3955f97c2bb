package config

import (
	"fmt"
	"strings"

	"github.com/japaniel/ankivocab/pkg/images"
)

// Chat providers.
const (
	ChatOpenAI    = "openai"
	ChatAnthropic = "anthropic"
)

// Image providers.
const (
	ImageGPT    = "gpt-image-1"
	ImageDallE3 = "dall-e-3"
	ImageImagen = "imagen"
)

// Validate performs business-rule validation on the loaded configuration.
// It must be called after loading; Load calls it automatically.
func (c *Config) Validate() error {
	switch c.Providers.ChatProvider {
	case ChatOpenAI, ChatAnthropic:
	default:
		return fmt.Errorf("providers.chat_provider must be %q or %q (got %q)", ChatOpenAI, ChatAnthropic, c.Providers.ChatProvider)
	}
	switch c.Providers.ImageProvider {
	case ImageGPT, ImageDallE3, ImageImagen:
	default:
		return fmt.Errorf("providers.image_provider must be one of %s (got %q)",
			strings.Join([]string{ImageGPT, ImageDallE3, ImageImagen}, ", "), c.Providers.ImageProvider)
	}
	if err := images.ValidateSize(c.Providers.ImageSize); err != nil {
		return fmt.Errorf("providers.image_size: %w", err)
	}
	if c.Providers.Model == "" {
		return fmt.Errorf("providers.model must not be empty")
	}
	if err := c.Pipeline.validate(); err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be >= 1 (got %d)", c.Retry.MaxAttempts)
	}
	if c.Retry.Initial <= 0 || c.Retry.Max < c.Retry.Initial {
		return fmt.Errorf("retry: need 0 < initial <= max (got %s, %s)", c.Retry.Initial, c.Retry.Max)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json (got %q)", c.Log.Format)
	}
	return nil
}

func (p *PipelineConfig) validate() error {
	if p.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be > 0 (got %d)", p.BatchSize)
	}
	if p.MaxParallel <= 0 {
		return fmt.Errorf("max_parallel must be > 0 (got %d)", p.MaxParallel)
	}
	if p.PromptParallelism <= 0 {
		return fmt.Errorf("prompt_parallelism must be > 0 (got %d)", p.PromptParallelism)
	}
	if p.Temperature < 0 || p.Temperature > 2 {
		return fmt.Errorf("temperature must be within [0, 2] (got %v)", p.Temperature)
	}
	if p.ImagePause < 0 {
		return fmt.Errorf("image_pause must not be negative (got %s)", p.ImagePause)
	}
	if p.PhotoCount <= 0 {
		return fmt.Errorf("photo_count must be > 0 (got %d)", p.PhotoCount)
	}
	return nil
}

// ValidateCredentials checks that the selected providers have API keys.
// It is only needed before calling providers.
func (c *Config) ValidateCredentials() error {
	switch c.Providers.ChatProvider {
	case ChatOpenAI:
		if c.Providers.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required for chat provider %q", ChatOpenAI)
		}
	case ChatAnthropic:
		if c.Providers.AnthropicAPIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY is required for chat provider %q", ChatAnthropic)
		}
	}
	switch c.Providers.ImageProvider {
	case ImageImagen:
		if c.Providers.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required for image provider %q", ImageImagen)
		}
	default:
		if c.Providers.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required for image provider %q", c.Providers.ImageProvider)
		}
	}
	return nil
}
