// Package images acquires card images: generated pictures for abstract words
// and stock photos for concrete ones.
package images

import (
	"context"
	"fmt"

	"github.com/japaniel/ankivocab/pkg/llm"
)

// Generator turns a prompt into raw image bytes.
type Generator interface {
	Generate(ctx context.Context, prompt string) ([]byte, error)
}

// Searcher returns up to count photo URLs for query.
// No results is an empty list, not an error.
type Searcher interface {
	Search(ctx context.Context, query string, count int) ([]string, error)
}

// Media stores image files locally.
type Media interface {
	// Download fetches url into filename and returns the local path.
	Download(ctx context.Context, url, filename string) (string, error)
	// Save writes data to filename and returns the local path.
	Save(filename string, data []byte) (string, error)
}

// Supported output sizes.
const (
	SizeSquare    = "1024x1024"
	SizeLandscape = "1792x1024"
	SizePortrait  = "1024x1792"
)

// ValidateSize rejects sizes the generators cannot produce.
func ValidateSize(size string) error {
	switch size {
	case SizeSquare, SizeLandscape, SizePortrait:
		return nil
	}
	return fmt.Errorf("%w: unsupported image size %q", llm.ErrValidation, size)
}

