package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultOpenAIBaseURL is the public OpenAI API root.
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	openAITimeout        = 60 * time.Second
)

// OpenAIClient calls an OpenAI-compatible chat completion endpoint.
type OpenAIClient struct {
	BaseURL string
	APIKey  string

	HTTPClient *http.Client
}

// NewOpenAIClient creates a client for baseURL ("" means the public API).
func NewOpenAIClient(apiKey, baseURL string) *OpenAIClient {
	if baseURL == "" {
		baseURL = DefaultOpenAIBaseURL
	}
	return &OpenAIClient{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		APIKey:     apiKey,
		HTTPClient: &http.Client{Timeout: openAITimeout},
	}
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature *float64  `json:"temperature,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

type openAIErrorBody struct {
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *OpenAIClient) Chat(ctx context.Context, req Request) (string, error) {
	if req.Model == "" {
		return "", fmt.Errorf("%w: model required", ErrValidation)
	}
	var payload chatResponse
	if err := c.post(ctx, "/chat/completions", chatRequest{
		Model:       req.Model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
	}, &payload); err != nil {
		return "", err
	}
	if len(payload.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices in chat response", ErrMalformedResponse)
	}
	return payload.Choices[0].Message.Content, nil
}

// post sends body as JSON to path and decodes a 2xx answer into out.
func (c *OpenAIClient) post(ctx context.Context, path string, body, out any) error {
	reqBody, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(reqBody))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		apiErr := &APIError{Provider: "openai", StatusCode: resp.StatusCode}
		var eb openAIErrorBody
		if json.Unmarshal(raw, &eb) == nil && eb.Error != nil {
			apiErr.Message = eb.Error.Message
		} else {
			apiErr.Message = strings.TrimSpace(string(raw))
		}
		return apiErr
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode openai response: %v", ErrMalformedResponse, err)
	}
	return nil
}

// PostJSON exposes the authenticated JSON POST for sibling endpoints
// such as image generation.
func (c *OpenAIClient) PostJSON(ctx context.Context, path string, body, out any) error {
	return c.post(ctx, path, body, out)
}

func (c *OpenAIClient) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: openAITimeout}
}
