package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnthropicProvider_Complete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"Paris."}],"usage":{"input_tokens":12,"output_tokens":3}}`))
	}))
	defer srv.Close()

	p := NewAnthropicProvider("test-key", srv.URL)
	require.NoError(t, p.Open(context.Background()))

	resp, err := p.Complete(context.Background(), CompletionRequest{
		ModelID:    "claude-sonnet-4-5-20250929",
		ModelAlias: "claude",
		Messages:   []Message{{Role: "system", Content: "Be concise."}, {Role: "user", Content: "Capital of France?"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Paris.", resp.Content)
	assert.False(t, resp.Failed())
	require.NotNil(t, resp.InputTokens)
	assert.Equal(t, 12, *resp.InputTokens)
	require.NotNil(t, resp.TokenCount)
	assert.Equal(t, 15, *resp.TokenCount)
}

func TestAnthropicProvider_Complete_NoTextContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"content":[],"usage":{"input_tokens":1,"output_tokens":0}}`))
	}))
	defer srv.Close()

	p := NewAnthropicProvider("test-key", srv.URL)
	resp, err := p.Complete(context.Background(), CompletionRequest{ModelID: "m", ModelAlias: "claude"})
	require.NoError(t, err)
	assert.Equal(t, noTextContentSentinel, resp.Content)
}

func TestAnthropicProvider_Complete_VendorError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":{"type":"overloaded_error","message":"overloaded"}}`))
	}))
	defer srv.Close()

	p := NewAnthropicProvider("test-key", srv.URL)
	resp, err := p.Complete(context.Background(), CompletionRequest{ModelID: "m", ModelAlias: "claude"})
	require.NoError(t, err)
	assert.True(t, resp.Failed())
	assert.Contains(t, resp.Error, "overloaded")
}

func TestAnthropicProvider_Complete_TransportErrorNeverAbortsRound(t *testing.T) {
	p := NewAnthropicProvider("test-key", "http://127.0.0.1:1")
	resp, err := p.Complete(context.Background(), CompletionRequest{ModelID: "m", ModelAlias: "claude"})
	require.NoError(t, err)
	assert.True(t, resp.Failed())
}

func TestAnthropicProvider_Open_RequiresAPIKey(t *testing.T) {
	p := NewAnthropicProvider("", "")
	assert.Error(t, p.Open(context.Background()))
}

func TestOpenAIProvider_Complete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"Paris."}}],"usage":{"prompt_tokens":10,"completion_tokens":2,"total_tokens":12}}`))
	}))
	defer srv.Close()

	p := NewOpenAIProvider("test-key", srv.URL)
	resp, err := p.Complete(context.Background(), CompletionRequest{ModelID: "gpt-5.2", ModelAlias: "gpt"})
	require.NoError(t, err)
	assert.Equal(t, "Paris.", resp.Content)
	require.NotNil(t, resp.InputTokens)
	assert.Equal(t, 10, *resp.InputTokens)
	require.NotNil(t, resp.TokenCount)
	assert.Equal(t, 12, *resp.TokenCount)
}

func TestOpenAIProvider_Complete_MissingUsageFallsBackToEstimate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"Paris is the capital of France."}}]}`))
	}))
	defer srv.Close()

	p := NewOpenAIProvider("test-key", srv.URL)
	resp, err := p.Complete(context.Background(), CompletionRequest{
		ModelID:    "gpt-5.2",
		ModelAlias: "gpt",
		Messages:   []Message{{Role: "user", Content: "What is the capital of France?"}},
	})
	require.NoError(t, err)
	require.NotNil(t, resp.InputTokens)
	assert.Positive(t, *resp.InputTokens)
}

func TestLocalProvider_Open_NeverRequiresAPIKey(t *testing.T) {
	p := NewLocalProvider("")
	assert.NoError(t, p.Open(context.Background()))
}

func TestGoogleProvider_Complete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"Paris."}]}}],"usageMetadata":{"promptTokenCount":8,"candidatesTokenCount":2}}`))
	}))
	defer srv.Close()

	p := NewGoogleProvider("test-key", srv.URL+"/%s")
	resp, err := p.Complete(context.Background(), CompletionRequest{ModelID: "gemini-2.5-pro", ModelAlias: "gemini"})
	require.NoError(t, err)
	assert.Equal(t, "Paris.", resp.Content)
}

func TestAggregatorProvider_Complete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "https://example.com", r.Header.Get("HTTP-Referer"))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"Paris."}}],"usage":{"prompt_tokens":5,"completion_tokens":1,"total_tokens":6}}`))
	}))
	defer srv.Close()

	p := NewAggregatorProvider("test-key", srv.URL, "https://example.com", "mutual-dissent")
	resp, err := p.Complete(context.Background(), CompletionRequest{ModelID: "anthropic/claude-sonnet-4.5", ModelAlias: "claude"})
	require.NoError(t, err)
	assert.Equal(t, "Paris.", resp.Content)
	require.NotNil(t, resp.TokenCount)
	assert.Equal(t, 6, *resp.TokenCount)
}
