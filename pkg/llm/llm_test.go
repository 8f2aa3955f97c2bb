package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fastPolicy = RetryPolicy{MaxAttempts: 3, Initial: time.Millisecond, Max: 2 * time.Millisecond, Jitter: 0}

func TestOpenAIChatSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		var body chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "gpt-test", body.Model)
		require.NotNil(t, body.Temperature)
		assert.InDelta(t, 0.7, *body.Temperature, 1e-9)
		require.Len(t, body.Messages, 1)
		assert.Contains(t, body.Messages[0].Content, "jabuka")
		_, _ = io.WriteString(w, `{"choices":[{"message":{"role":"assistant","content":"Answer"}}]}`)
	}))
	defer srv.Close()

	temp := 0.7
	c := NewOpenAIClient("sk-test", srv.URL+"/")
	out, err := c.Chat(context.Background(), UserRequest("gpt-test", "Word list: [\"jabuka\"]", &temp))
	require.NoError(t, err)
	assert.Equal(t, "Answer", out)
}

func TestOpenAIChatErrors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		transient bool
		malformed bool
	}{
		{name: "rate limited", status: 429, body: `{"error":{"message":"slow down"}}`, transient: true},
		{name: "server error", status: 502, body: `bad gateway`, transient: true},
		{name: "bad request", status: 400, body: `{"error":{"message":"bad"}}`},
		{name: "no choices", status: 200, body: `{"choices":[]}`, malformed: true},
		{name: "not json", status: 200, body: `<html>`, malformed: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			_, err := NewOpenAIClient("k", srv.URL).Chat(context.Background(), UserRequest("m", "p", nil))
			require.Error(t, err)
			assert.Equal(t, tt.transient, IsTransient(err))
			assert.Equal(t, tt.malformed, errors.Is(err, ErrMalformedResponse))
			if tt.status >= 300 {
				var apiErr *APIError
				require.True(t, errors.As(err, &apiErr))
				assert.Equal(t, tt.status, apiErr.StatusCode)
			}
		})
	}
}

func TestOpenAIChatRequiresModel(t *testing.T) {
	_, err := NewOpenAIClient("k", "http://127.0.0.1:1").Chat(context.Background(), Request{})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestAnthropicChat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/v1/messages"), r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "claude-test", body["model"])
		assert.InDelta(t, 1.0, body["temperature"], 1e-9)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"msg_1","type":"message","role":"assistant","model":"claude-test",
			"content":[{"type":"text","text":"[{\"word\":\"jabuka\"}]"}],
			"stop_reason":"end_turn","usage":{"input_tokens":3,"output_tokens":5}}`)
	}))
	defer srv.Close()

	temp := 1.5
	c := NewAnthropicClient("key", option.WithBaseURL(srv.URL))
	items, err := ChatJSON(context.Background(), c, UserRequest("claude-test", "p", &temp))
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.JSONEq(t, `{"word":"jabuka"}`, string(items[0]))
}

func TestAnthropicChatOverloaded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(529)
		_, _ = io.WriteString(w, `{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`)
	}))
	defer srv.Close()

	_, err := NewAnthropicClient("key", option.WithBaseURL(srv.URL)).Chat(context.Background(), UserRequest("claude-test", "p", nil))
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr), "got %v", err)
	assert.Equal(t, 529, apiErr.StatusCode)
	assert.True(t, IsTransient(err))
}

func TestStripCodeFence(t *testing.T) {
	tests := map[string]string{
		"[1]":                   "[1]",
		"```json\n[1]\n```":     "[1]",
		"```\n[1]\n```":         "[1]",
		"  ```json[1]```  ":     "[1]",
		"\n[{\"a\":1}]\n```\n": "[{\"a\":1}]",
	}
	for in, want := range tests {
		assert.Equal(t, want, StripCodeFence(in), "input %q", in)
	}
}

func TestParseJSONArray(t *testing.T) {
	items, err := ParseJSONArray("```json\n[{\"word\":\"a\"},{\"word\":\"b\"}]\n```")
	require.NoError(t, err)
	assert.Len(t, items, 2)

	_, err = ParseJSONArray(`{"word":"a"}`)
	assert.ErrorIs(t, err, ErrMalformedResponse)

	_, err = ParseJSONArray(`I'm sorry`)
	assert.ErrorIs(t, err, ErrMalformedResponse)
	assert.False(t, IsTransient(err))
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestIsTransient(t *testing.T) {
	assert.False(t, IsTransient(nil))
	assert.True(t, IsTransient(&APIError{StatusCode: 429}))
	assert.True(t, IsTransient(&APIError{StatusCode: 408}))
	assert.True(t, IsTransient(fmt.Errorf("wrapped: %w", &APIError{StatusCode: 503})))
	assert.False(t, IsTransient(&APIError{StatusCode: 401}))
	assert.True(t, IsTransient(timeoutErr{}))
	assert.True(t, IsTransient(fmt.Errorf("dial: %w", syscall.ECONNREFUSED)))
	assert.True(t, IsTransient(io.ErrUnexpectedEOF))
	assert.False(t, IsTransient(context.Canceled))
	assert.False(t, IsTransient(ErrValidation))
	assert.False(t, IsTransient(errors.New("boom")))
}

func TestRetryChatterRetriesTransient(t *testing.T) {
	var calls int32
	inner := ChatterFunc(func(ctx context.Context, req Request) (string, error) {
		if atomic.AddInt32(&calls, 1) < 3 {
			return "", &APIError{Provider: "fake", StatusCode: 503}
		}
		return "ok", nil
	})
	out, err := WithRetry(inner, fastPolicy, nil).Chat(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestRetryChatterStopsOnPermanent(t *testing.T) {
	var calls int32
	inner := ChatterFunc(func(ctx context.Context, req Request) (string, error) {
		atomic.AddInt32(&calls, 1)
		return "", &APIError{Provider: "fake", StatusCode: 400, Message: "bad"}
	})
	_, err := WithRetry(inner, fastPolicy, nil).Chat(context.Background(), Request{})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 400, apiErr.StatusCode)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestRetryChatterExhausts(t *testing.T) {
	var calls int32
	inner := ChatterFunc(func(ctx context.Context, req Request) (string, error) {
		atomic.AddInt32(&calls, 1)
		return "", &APIError{Provider: "fake", StatusCode: 429}
	})
	_, err := WithRetry(inner, fastPolicy, nil).Chat(context.Background(), Request{})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr), "cause must be preserved, got %v", err)
	assert.EqualValues(t, fastPolicy.MaxAttempts, atomic.LoadInt32(&calls))
}
