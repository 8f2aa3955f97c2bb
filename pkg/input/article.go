package input

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/go-shiori/go-readability"
)

// 10 MB limit for HTML content
const maxBodySize = 10 * 1024 * 1024

// Article is the readable part of a fetched page.
type Article struct {
	Title string
	Text  string
	Words []string
}

// Fetcher downloads pages for LoadArticle.
type Fetcher struct {
	HTTPClient *http.Client
}

// NewFetcher returns a Fetcher with a 30s timeout.
func NewFetcher() *Fetcher {
	return &Fetcher{HTTPClient: &http.Client{Timeout: 30 * time.Second}}
}

// LoadArticle fetches rawURL, extracts the readable text and its words.
func (f *Fetcher) LoadArticle(ctx context.Context, rawURL string) (*Article, error) {
	parsedURL, err := url.Parse(rawURL)
	if err != nil || parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, fmt.Errorf("invalid url %q", rawURL)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	// Mimic a real browser to avoid being blocked (e.g. 403 Forbidden or Cloudflare)
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "hr-HR,hr;q=0.9,bs;q=0.8,sr;q=0.7,en;q=0.6")
	req.Header.Set("Upgrade-Insecure-Requests", "1")

	resp, err := f.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch url: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch url: got status code %d", resp.StatusCode)
	}
	if resp.ContentLength > int64(maxBodySize) {
		return nil, fmt.Errorf("content-length %d exceeds limit of %d bytes", resp.ContentLength, maxBodySize)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	// hitting the limit is treated as truncation
	if len(body) >= maxBodySize {
		return nil, fmt.Errorf("response body exceeded maximum size limit of %d bytes", maxBodySize)
	}

	article, err := readability.FromReader(bytes.NewReader(body), parsedURL)
	if err != nil {
		return nil, fmt.Errorf("extract article: %w", err)
	}
	return &Article{
		Title: article.Title,
		Text:  article.TextContent,
		Words: ExtractWords(article.TextContent),
	}, nil
}
