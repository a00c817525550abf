package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ollama/ollama/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/scripturerag/llm"
	"github.com/BaSui01/scripturerag/llm/providers"
	"github.com/BaSui01/scripturerag/types"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc) *OllamaProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	p, err := NewOllamaProvider(providers.OllamaConfig{
		BaseProviderConfig: providers.BaseProviderConfig{BaseURL: srv.URL, Model: "llama3.1"},
	}, zap.NewNop())
	require.NoError(t, err)
	return p
}

func TestOllamaProvider_Generate(t *testing.T) {
	var captured api.GenerateRequest
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		w.Header().Set("Content-Type", "application/x-ndjson")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"model":             "llama3.1",
			"response":          "The text describes duty.",
			"done":              true,
			"done_reason":       "stop",
			"prompt_eval_count": 40,
			"eval_count":        6,
		})
	})

	resp, err := p.Generate(context.Background(), &llm.GenerateRequest{
		System: "system prompt",
		User:   "user message",
		Config: llm.DefaultGenerationConfig(),
	})
	require.NoError(t, err)

	assert.Equal(t, "The text describes duty.", resp.Text)
	assert.Equal(t, "stop", resp.FinishReason)
	assert.Equal(t, 46, resp.Usage.TotalTokens)
	assert.Equal(t, "ollama", resp.Provider)

	assert.Equal(t, "llama3.1", captured.Model)
	assert.Equal(t, "system prompt", captured.System)
	assert.Equal(t, "user message", captured.Prompt)
	require.NotNil(t, captured.Stream)
	assert.False(t, *captured.Stream)
	assert.InDelta(t, 0.3, captured.Options["temperature"], 1e-9)
	assert.InDelta(t, 0.9, captured.Options["top_p"], 1e-9)
	assert.EqualValues(t, 8192, captured.Options["num_predict"])
}

func TestOllamaProvider_Generate_Errors(t *testing.T) {
	t.Run("error body", func(t *testing.T) {
		p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"model \"llama3.1\" not found, try pulling it first"}`))
		})

		_, err := p.Generate(context.Background(), &llm.GenerateRequest{User: "q"})
		require.Error(t, err)
		e, ok := types.AsError(err)
		require.True(t, ok)
		assert.Equal(t, types.ErrUpstreamError, e.Code)
		assert.Contains(t, e.Message, "not found")
	})

	t.Run("bare status", func(t *testing.T) {
		p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{}`))
		})

		_, err := p.Generate(context.Background(), &llm.GenerateRequest{User: "q"})
		require.Error(t, err)
		assert.Equal(t, types.ErrRateLimited, types.GetErrorCode(err))
	})
}

func TestOllamaProvider_Generate_EmptyUser(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("provider must not be called")
	})
	_, err := p.Generate(context.Background(), &llm.GenerateRequest{User: ""})
	assert.Equal(t, types.ErrInvalidRequest, types.GetErrorCode(err))
}

func TestNewClient_InvalidURL(t *testing.T) {
	_, err := NewClient(providers.BaseProviderConfig{BaseURL: "://bad"})
	assert.Error(t, err)
}
