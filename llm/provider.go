package llm

import (
	"context"
	"time"
)

// GenerationConfig 采样参数
type GenerationConfig struct {
	Temperature     float64 `json:"temperature" yaml:"temperature"`
	TopP            float64 `json:"top_p" yaml:"top_p"`
	MaxOutputTokens int     `json:"max_output_tokens" yaml:"max_output_tokens"`
}

// DefaultGenerationConfig 返回问答使用的固定采样参数。
func DefaultGenerationConfig() GenerationConfig {
	return GenerationConfig{
		Temperature:     0.3,
		TopP:            0.9,
		MaxOutputTokens: 8192,
	}
}

// GenerateRequest 一次单轮生成请求：系统指令 + 用户消息 + 采样参数。
type GenerateRequest struct {
	Model  string           `json:"model,omitempty"`
	System string           `json:"system"`
	User   string           `json:"user"`
	Config GenerationConfig `json:"config"`
}

// Usage token 用量（上游未返回时为零值）
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// GenerateResponse 生成结果
type GenerateResponse struct {
	Provider     string    `json:"provider"`
	Model        string    `json:"model"`
	Text         string    `json:"text"`
	FinishReason string    `json:"finish_reason,omitempty"`
	Usage        Usage     `json:"usage"`
	CreatedAt    time.Time `json:"created_at"`
}

// Provider 文本生成服务抽象。
// 实现需并发安全；超时由实现自身的 HTTP 客户端负责。
type Provider interface {
	Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error)
	Name() string
}
