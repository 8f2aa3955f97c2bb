package images

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"sync/atomic"
	"testing"
	"time"

	"github.com/japaniel/ankivocab/pkg/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

var fastPolicy = llm.RetryPolicy{MaxAttempts: 3, Initial: time.Millisecond, Max: time.Millisecond}

func TestFileName(t *testing.T) {
	name := FileName("ljubav", 2, "")
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{8}_ljubav_2\.jpg$`), name)
	assert.NotEqual(t, name, FileName("ljubav", 2, ""))
	assert.Regexp(t, `^[0-9a-f]{8}_a_b_0\.png$`, FileName(`a/b`, 0, ".png"))
}

func TestValidateSize(t *testing.T) {
	for _, s := range []string{SizeSquare, SizeLandscape, SizePortrait} {
		assert.NoError(t, ValidateSize(s))
	}
	assert.ErrorIs(t, ValidateSize("512x512"), llm.ErrValidation)
}

func TestOpenAIGeneratorRejectsSizeWithoutCalling(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()

	g := &OpenAIGenerator{Client: llm.NewOpenAIClient("k", srv.URL), Model: "dall-e-3", Size: "640x480", Retry: fastPolicy}
	_, err := g.Generate(context.Background(), "a cat")
	assert.ErrorIs(t, err, llm.ErrValidation)
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestOpenAIGenerator(t *testing.T) {
	png := []byte("\x89PNG fake")
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/images/generations", r.URL.Path)
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		var body imageRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "dall-e-3", body.Model)
		assert.Equal(t, SizeLandscape, body.Size)
		assert.Equal(t, 1, body.N)
		assert.Equal(t, "b64_json", body.ResponseFormat)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]string{{"b64_json": base64.StdEncoding.EncodeToString(png)}},
		})
	}))
	defer srv.Close()

	g := &OpenAIGenerator{Client: llm.NewOpenAIClient("k", srv.URL), Model: "dall-e-3", Size: SizeLandscape, Retry: fastPolicy}
	data, err := g.Generate(context.Background(), "two hands")
	require.NoError(t, err)
	assert.Equal(t, png, data)
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestOpenAIGeneratorMissingData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"data":[]}`)
	}))
	defer srv.Close()

	g := &OpenAIGenerator{Client: llm.NewOpenAIClient("k", srv.URL), Model: "gpt-image-1", Size: SizeSquare, Retry: fastPolicy}
	_, err := g.Generate(context.Background(), "x")
	assert.ErrorIs(t, err, llm.ErrMalformedResponse)
}

type fakeImagen struct {
	resp  *genai.GenerateImagesResponse
	err   error
	calls int
	cfg   *genai.GenerateImagesConfig
}

func (f *fakeImagen) GenerateImages(ctx context.Context, model, prompt string, cfg *genai.GenerateImagesConfig) (*genai.GenerateImagesResponse, error) {
	f.calls++
	f.cfg = cfg
	return f.resp, f.err
}

func TestImagenGenerator(t *testing.T) {
	fake := &fakeImagen{resp: &genai.GenerateImagesResponse{
		GeneratedImages: []*genai.GeneratedImage{{Image: &genai.Image{ImageBytes: []byte("img")}}},
	}}
	g := &ImagenGenerator{models: fake, Model: DefaultImagenModel, Size: SizePortrait, Retry: fastPolicy}
	data, err := g.Generate(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, []byte("img"), data)
	assert.Equal(t, "9:16", fake.cfg.AspectRatio)
}

func TestImagenGeneratorErrors(t *testing.T) {
	fake := &fakeImagen{err: genai.APIError{Code: 429, Message: "quota"}}
	g := &ImagenGenerator{models: fake, Model: DefaultImagenModel, Size: SizeSquare, Retry: fastPolicy}
	_, err := g.Generate(context.Background(), "prompt")
	var apiErr *llm.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 429, apiErr.StatusCode)
	assert.Equal(t, fastPolicy.MaxAttempts, fake.calls)

	empty := &fakeImagen{resp: &genai.GenerateImagesResponse{}}
	g.models = empty
	_, err = g.Generate(context.Background(), "prompt")
	assert.ErrorIs(t, err, llm.ErrMalformedResponse)
	assert.Equal(t, 1, empty.calls)

	g.Size = "1x1"
	_, err = g.Generate(context.Background(), "prompt")
	assert.ErrorIs(t, err, llm.ErrValidation)
}

func TestPexelsSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "pk", r.Header.Get("Authorization"))
		assert.Equal(t, "apple", r.URL.Query().Get("query"))
		assert.Equal(t, "3", r.URL.Query().Get("per_page"))
		assert.Equal(t, "landscape", r.URL.Query().Get("orientation"))
		_, _ = io.WriteString(w, `{"photos":[
			{"src":{"small":"s1","medium":"m1"}},
			{"src":{"medium":"m2","large":"l2"}},
			{"src":{"large":"l3"}},
			{"src":{"small":"s4"}}
		]}`)
	}))
	defer srv.Close()

	p := NewPexels("pk", fastPolicy, nil)
	p.BaseURL = srv.URL
	urls, err := p.Search(context.Background(), "apple", 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"s1", "m2", "l3"}, urls)
}

func TestPexelsSoftFailures(t *testing.T) {
	urls, err := NewPexels("", fastPolicy, nil).Search(context.Background(), "apple", 3)
	require.NoError(t, err)
	assert.Empty(t, urls)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"photos":[]}`)
	}))
	defer srv.Close()
	p := NewPexels("pk", fastPolicy, nil)
	p.BaseURL = srv.URL
	urls, err = p.Search(context.Background(), "nothing", 3)
	require.NoError(t, err)
	assert.Empty(t, urls)
}

func TestPexelsHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()
	p := NewPexels("bad", fastPolicy, nil)
	p.BaseURL = srv.URL
	_, err := p.Search(context.Background(), "apple", 3)
	var apiErr *llm.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
}

func TestMediaDirDownloadAndSave(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		_, _ = io.WriteString(w, "jpegdata")
	}))
	defer srv.Close()

	dir := filepath.Join(t.TempDir(), "images")
	m, err := NewMediaDir(dir, nil)
	require.NoError(t, err)

	path, err := m.Download(context.Background(), srv.URL+"/photo.jpg", "abc_jabuka_0.jpg")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "abc_jabuka_0.jpg"), path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "jpegdata", string(data))

	_, err = m.Download(context.Background(), srv.URL+"/missing", "x.jpg")
	assert.Error(t, err)

	path, err = m.Save("gen.png", []byte("png"))
	require.NoError(t, err)
	assert.FileExists(t, path)
}
