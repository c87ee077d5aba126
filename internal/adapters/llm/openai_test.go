package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cura-ai/cura/internal/core"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*OpenAIClient, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewOpenAIClient(Config{
		BaseURL:     srv.URL,
		APIKey:      "test-key",
		Model:       "test-model",
		RetryPolicy: NoRetryPolicy(),
	}, nil)
	require.NoError(t, err)
	return client, srv
}

func chatReply(text string) []byte {
	body, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"role": "assistant", "content": text}, "finish_reason": "stop"},
		},
	})
	return body
}

func TestNewOpenAIClient_RequiresAPIKey(t *testing.T) {
	_, err := NewOpenAIClient(Config{}, nil)
	require.Error(t, err)
	assert.True(t, core.IsCategory(err, core.ErrCatValidation))
}

func TestNewOpenAIClient_Defaults(t *testing.T) {
	client, err := NewOpenAIClient(Config{APIKey: "k"}, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultBaseURL, client.baseURL)
	assert.Equal(t, "openai:"+DefaultModel, client.Identity())
}

func TestComplete_SendsRequestAndParsesReply(t *testing.T) {
	var got chatRequest
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write(chatReply("the analysis"))
	})

	text, err := client.Complete(context.Background(), core.CompletionRequest{
		Prompt:      "analyze this",
		Temperature: 0.3,
		MaxTokens:   512,
	})
	require.NoError(t, err)
	assert.Equal(t, "the analysis", text)
	assert.Equal(t, "test-model", got.Model)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user", got.Messages[0].Role)
	assert.Equal(t, "analyze this", got.Messages[0].Content)
	assert.Equal(t, 0.3, got.Temperature)
	assert.Equal(t, 512, got.MaxTokens)
}

func TestComplete_ContentPartsArray(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[{"message":{"content":[{"type":"text","text":"part one "},{"type":"text","text":"part two"}]}}]}`))
	})

	text, err := client.Complete(context.Background(), core.CompletionRequest{Prompt: "p"})
	require.NoError(t, err)
	assert.Equal(t, "part one part two", text)
}

func TestComplete_RateLimitIsRetryable(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"rate limited"}}`))
	})

	_, err := client.Complete(context.Background(), core.CompletionRequest{Prompt: "p"})
	require.Error(t, err)
	assert.True(t, core.IsRetryable(err))
	assert.Contains(t, err.Error(), "rate limited")
}

func TestComplete_ServerErrorIsRetryable(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.Complete(context.Background(), core.CompletionRequest{Prompt: "p"})
	require.Error(t, err)
	assert.True(t, core.IsRetryable(err))
}

func TestComplete_AuthFailureNotRetryable(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"invalid api key"}}`))
	})

	_, err := client.Complete(context.Background(), core.CompletionRequest{Prompt: "p"})
	require.Error(t, err)
	assert.False(t, core.IsRetryable(err))
	assert.True(t, core.IsCategory(err, core.ErrCatValidation))
}

func TestComplete_BadRequestNotRetryable(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"context length exceeded"}}`))
	})

	_, err := client.Complete(context.Background(), core.CompletionRequest{Prompt: "p"})
	require.Error(t, err)
	assert.False(t, core.IsRetryable(err))
	assert.Contains(t, err.Error(), "context length exceeded")
}

func TestComplete_EmptyChoices(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	})

	_, err := client.Complete(context.Background(), core.CompletionRequest{Prompt: "p"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no choices")
}

func TestComplete_RetriesTransientFailure(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write(chatReply("recovered"))
	}))
	defer srv.Close()

	client, err := NewOpenAIClient(Config{
		BaseURL: srv.URL,
		APIKey:  "k",
		RetryPolicy: &RetryPolicy{
			MaxAttempts: 3,
			BaseDelay:   time.Millisecond,
			MaxDelay:    time.Millisecond,
			Multiplier:  1,
		},
	}, nil)
	require.NoError(t, err)

	text, err := client.Complete(context.Background(), core.CompletionRequest{Prompt: "p"})
	require.NoError(t, err)
	assert.Equal(t, "recovered", text)
	assert.Equal(t, int32(2), calls.Load())
}

func TestComplete_DoesNotRetryNonRetryable(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	client, err := NewOpenAIClient(Config{
		BaseURL: srv.URL,
		APIKey:  "k",
		RetryPolicy: &RetryPolicy{
			MaxAttempts: 3,
			BaseDelay:   time.Millisecond,
			MaxDelay:    time.Millisecond,
			Multiplier:  1,
		},
	}, nil)
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), core.CompletionRequest{Prompt: "p"})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestComplete_ContextCancellation(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		// Drain the body so the server's background read can observe the
		// client disconnect and cancel the request context; otherwise
		// srv.Close deadlocks waiting on this handler.
		io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := client.Complete(ctx, core.CompletionRequest{Prompt: "p"})
	require.Error(t, err)
}
