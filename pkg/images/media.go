package images

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
)

const maxImageBytes = 20 << 20

// MediaDir stores images under Dir.
type MediaDir struct {
	Dir        string
	HTTPClient *http.Client
	Log        *slog.Logger
}

// NewMediaDir creates dir if needed.
func NewMediaDir(dir string, log *slog.Logger) (*MediaDir, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create image dir: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}
	return &MediaDir{
		Dir:        dir,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		Log:        log,
	}, nil
}

func (m *MediaDir) Download(ctx context.Context, url, filename string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := m.httpClient().Do(req)
	if err != nil {
		return "", fmt.Errorf("download %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("download %s: status %d", url, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return "", fmt.Errorf("download %s: %w", url, err)
	}
	return m.Save(filename, data)
}

func (m *MediaDir) Save(filename string, data []byte) (string, error) {
	path := filepath.Join(m.Dir, filepath.Base(filename))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write image: %w", err)
	}
	m.Log.Info("image saved", slog.String("file", path), slog.String("size", humanize.Bytes(uint64(len(data)))))
	return path, nil
}

func (m *MediaDir) httpClient() *http.Client {
	if m.HTTPClient != nil {
		return m.HTTPClient
	}
	return http.DefaultClient
}
