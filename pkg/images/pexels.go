package images

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/japaniel/ankivocab/pkg/llm"
)

const pexelsBaseURL = "https://api.pexels.com/v1"

// Pexels searches the Pexels photo API.
type Pexels struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
	Retry      llm.RetryPolicy
	Log        *slog.Logger
}

// NewPexels creates a searcher. An empty key disables searching.
func NewPexels(apiKey string, retry llm.RetryPolicy, log *slog.Logger) *Pexels {
	if log == nil {
		log = slog.Default()
	}
	return &Pexels{
		APIKey:     apiKey,
		BaseURL:    pexelsBaseURL,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		Retry:      retry,
		Log:        log,
	}
}

type pexelsResponse struct {
	Photos []struct {
		Src struct {
			Small  string `json:"small"`
			Medium string `json:"medium"`
			Large  string `json:"large"`
		} `json:"src"`
	} `json:"photos"`
}

func (p *Pexels) Search(ctx context.Context, query string, count int) ([]string, error) {
	if p.APIKey == "" {
		p.Log.Warn("pexels api key not configured, skipping image search")
		return []string{}, nil
	}
	q := url.Values{}
	q.Set("query", query)
	q.Set("per_page", strconv.Itoa(count))
	q.Set("orientation", "landscape")
	q.Set("size", "medium")
	endpoint := p.BaseURL + "/search?" + q.Encode()

	payload, err := llm.Do(ctx, p.Retry, p.Log, "pexels_search", func(ctx context.Context) (*pexelsResponse, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", p.APIKey)
		resp, err := p.HTTPClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, &llm.APIError{Provider: "pexels", StatusCode: resp.StatusCode}
		}
		var out pexelsResponse
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return nil, fmt.Errorf("%w: decode pexels response: %v", llm.ErrMalformedResponse, err)
		}
		return &out, nil
	})
	if err != nil {
		return nil, err
	}

	urls := []string{}
	for _, photo := range payload.Photos {
		if len(urls) == count {
			break
		}
		switch {
		case photo.Src.Small != "":
			urls = append(urls, photo.Src.Small)
		case photo.Src.Medium != "":
			urls = append(urls, photo.Src.Medium)
		case photo.Src.Large != "":
			urls = append(urls, photo.Src.Large)
		}
	}
	p.Log.Info("pexels search completed", slog.String("query", query), slog.Int("found", len(urls)))
	return urls, nil
}
