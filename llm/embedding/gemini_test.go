package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/scripturerag/types"
)

func TestChooseModel(t *testing.T) {
	assert.Equal(t, "req-model", ChooseModel("req-model", "default", "fallback"))
	assert.Equal(t, "default", ChooseModel("", "default", "fallback"))
	assert.Equal(t, "fallback", ChooseModel("", "", "fallback"))
}

func TestMapTaskType(t *testing.T) {
	assert.Equal(t, geminiTaskRetrievalQuery, mapTaskType(InputTypeQuery))
	assert.Equal(t, geminiTaskRetrievalDocument, mapTaskType(InputTypeDocument))
	assert.Equal(t, geminiTaskType(""), mapTaskType(""))
}

func TestNewGeminiProvider_Defaults(t *testing.T) {
	p := NewGeminiProvider(GeminiConfig{APIKey: "k"})
	assert.Equal(t, defaultGeminiBaseURL, p.cfg.BaseURL)
	assert.Equal(t, defaultGeminiModel, p.cfg.Model)
	assert.Equal(t, defaultGeminiTimeout, p.cfg.Timeout)
	assert.Equal(t, "gemini-embedding", p.Name())
}

func TestGeminiProvider_EmbedQuery(t *testing.T) {
	var captured geminiBatchEmbedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/gemini-embedding-001:batchEmbedContents", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"embeddings": []map[string]any{{"values": []float64{0.1, 0.2, 0.3}}},
		})
	}))
	defer srv.Close()

	p := NewGeminiProvider(GeminiConfig{APIKey: "test-key", BaseURL: srv.URL + "/"})
	resp, err := p.Embed(context.Background(), &EmbeddingRequest{
		Input:     []string{"what is dharma"},
		InputType: InputTypeQuery,
	})
	require.NoError(t, err)
	require.Len(t, resp.Embeddings, 1)
	assert.Equal(t, []float64{0.1, 0.2, 0.3}, resp.Embeddings[0].Embedding)
	require.Len(t, captured.Requests, 1)
	assert.Equal(t, geminiTaskRetrievalQuery, captured.Requests[0].TaskType)
	assert.Equal(t, "models/gemini-embedding-001", captured.Requests[0].Model)
	assert.Equal(t, "what is dharma", captured.Requests[0].Content.Parts[0].Text)
}

func TestGeminiProvider_EmbedCountMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"embeddings": []map[string]any{{"values": []float64{1, 0}}},
		})
	}))
	defer srv.Close()

	p := NewGeminiProvider(GeminiConfig{APIKey: "k", BaseURL: srv.URL})
	_, err := p.Embed(context.Background(), &EmbeddingRequest{Input: []string{"a", "b"}})
	require.Error(t, err)
	assert.Equal(t, types.ErrUpstreamError, types.GetErrorCode(err))
	assert.False(t, IsRateLimited(err))
}

func TestGeminiProvider_EmbedBatchKeepsOrder(t *testing.T) {
	var captured geminiBatchEmbedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/gemini-embedding-001:batchEmbedContents", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		embs := make([]map[string]any, len(captured.Requests))
		for i := range captured.Requests {
			embs[i] = map[string]any{"values": []float64{float64(i), 1}}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"embeddings": embs})
	}))
	defer srv.Close()

	p := NewGeminiProvider(GeminiConfig{APIKey: "k", BaseURL: srv.URL})
	resp, err := p.Embed(context.Background(), &EmbeddingRequest{
		Input:     []string{"a", "b", "c"},
		InputType: InputTypeDocument,
	})
	require.NoError(t, err)

	require.Len(t, captured.Requests, 3)
	for _, r := range captured.Requests {
		assert.Equal(t, geminiTaskRetrievalDocument, r.TaskType)
	}
	vecs := resp.Vectors()
	require.Len(t, vecs, 3)
	for i, v := range vecs {
		assert.Equal(t, float64(i), v[0])
	}
}

func TestGeminiProvider_EmbedEmptyInput(t *testing.T) {
	p := NewGeminiProvider(GeminiConfig{APIKey: "k", BaseURL: "http://127.0.0.1:1"})
	resp, err := p.Embed(context.Background(), &EmbeddingRequest{})
	require.NoError(t, err)
	assert.Empty(t, resp.Embeddings)
}

func TestGeminiProvider_Errors(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantCode    types.ErrorCode
		rateLimited bool
	}{
		{
			name:        "429",
			status:      http.StatusTooManyRequests,
			body:        `{"error":{"code":429,"message":"quota","status":"RESOURCE_EXHAUSTED"}}`,
			wantCode:    types.ErrRateLimited,
			rateLimited: true,
		},
		{
			name:     "unauthorized",
			status:   http.StatusForbidden,
			body:     `{"error":{"code":403,"message":"bad key","status":"PERMISSION_DENIED"}}`,
			wantCode: types.ErrUnauthorized,
		},
		{
			name:     "server error",
			status:   http.StatusInternalServerError,
			body:     `oops`,
			wantCode: types.ErrUpstreamError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			p := NewGeminiProvider(GeminiConfig{APIKey: "k", BaseURL: srv.URL})
			_, err := p.Embed(context.Background(), &EmbeddingRequest{Input: []string{"x"}})
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, types.GetErrorCode(err))
			assert.Equal(t, tt.rateLimited, IsRateLimited(err))
		})
	}
}
