// Package embedding 提供统一的嵌入提供者接口、分批执行器与限流分类.
package embedding

import (
	"context"
	"time"
)

// EmbeddingRequest 表示生成嵌入的请求.
type EmbeddingRequest struct {
	Input     []string  `json:"input"`                // Text inputs to embed
	Model     string    `json:"model,omitempty"`      // Model to use
	InputType InputType `json:"input_type,omitempty"` // query, document
}

// InputType 指定嵌入优化的输入类型.
type InputType string

const (
	InputTypeQuery    InputType = "query"    // For search queries
	InputTypeDocument InputType = "document" // For documents to be indexed
)

// EmbeddingResponse 表示嵌入请求的响应.
type EmbeddingResponse struct {
	Provider   string          `json:"provider"`
	Model      string          `json:"model"`
	Embeddings []EmbeddingData `json:"embeddings"`
	CreatedAt  time.Time       `json:"created_at,omitempty"`
}

// EmbeddingData 表示单个嵌入结果.
type EmbeddingData struct {
	Index     int       `json:"index"`
	Embedding []float64 `json:"embedding"`
}

// Vectors 按输入顺序返回向量.
func (r *EmbeddingResponse) Vectors() [][]float64 {
	out := make([][]float64, len(r.Embeddings))
	for i, emb := range r.Embeddings {
		out[i] = emb.Embedding
	}
	return out
}

// Provider 定义统一的嵌入提供者接口.
// 实现必须保持输入顺序，并以 types.Error（RATE_LIMITED）区分限流失败.
type Provider interface {
	// Embed 为给定输入生成嵌入.
	Embed(ctx context.Context, req *EmbeddingRequest) (*EmbeddingResponse, error)

	// Name 返回提供者名称.
	Name() string
}

// ChooseModel 从请求或默认中选择模型。
func ChooseModel(reqModel, defaultModel, fallback string) string {
	if reqModel != "" {
		return reqModel
	}
	if defaultModel != "" {
		return defaultModel
	}
	return fallback
}
