package ollama

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
	"go.uber.org/zap"

	"github.com/BaSui01/scripturerag/llm"
	"github.com/BaSui01/scripturerag/llm/providers"
	"github.com/BaSui01/scripturerag/types"
)

const defaultModel = "llama3.1"

// OllamaProvider 通过本地 Ollama 服务生成回答
type OllamaProvider struct {
	client *api.Client
	model  string
	logger *zap.Logger
}

// NewClient 构建 ollama 客户端：BaseURL 为空时读取 OLLAMA_HOST
func NewClient(cfg providers.BaseProviderConfig) (*api.Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return api.ClientFromEnvironment()
	}
	u, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama base url %q: %w", cfg.BaseURL, err)
	}
	return api.NewClient(u, providers.NewHTTPClient(cfg.Timeout)), nil
}

// NewOllamaProvider 创建 Ollama Provider
func NewOllamaProvider(cfg providers.OllamaConfig, logger *zap.Logger) (*OllamaProvider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	client, err := NewClient(cfg.BaseProviderConfig)
	if err != nil {
		return nil, err
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	return &OllamaProvider{
		client: client,
		model:  model,
		logger: logger.With(zap.String("component", "ollama_provider")),
	}, nil
}

func (p *OllamaProvider) Name() string { return "ollama" }

// HealthCheck 确认 Ollama 服务可达
func (p *OllamaProvider) HealthCheck(ctx context.Context) error {
	if err := p.client.Heartbeat(ctx); err != nil {
		return providers.MapOllamaError(err, p.Name())
	}
	return nil
}

// Generate 实现 llm.Provider，使用非流式 generate 接口
func (p *OllamaProvider) Generate(ctx context.Context, req *llm.GenerateRequest) (*llm.GenerateResponse, error) {
	if req == nil || strings.TrimSpace(req.User) == "" {
		return nil, types.NewError(types.ErrInvalidRequest, "user message is required").
			WithHTTPStatus(http.StatusBadRequest).
			WithProvider(p.Name())
	}

	model := req.Model
	if model == "" {
		model = p.model
	}
	stream := false
	genReq := &api.GenerateRequest{
		Model:  model,
		Prompt: req.User,
		System: req.System,
		Stream: &stream,
		Options: map[string]any{
			"temperature": req.Config.Temperature,
			"top_p":       req.Config.TopP,
			"num_predict": req.Config.MaxOutputTokens,
		},
	}

	var (
		sb   strings.Builder
		last api.GenerateResponse
	)
	start := time.Now()
	err := p.client.Generate(ctx, genReq, func(resp api.GenerateResponse) error {
		sb.WriteString(resp.Response)
		last = resp
		return nil
	})
	if err != nil {
		mapped := providers.MapOllamaError(err, p.Name())
		p.logger.Warn("generate failed", zap.String("model", model), zap.Error(mapped))
		return nil, mapped
	}

	p.logger.Debug("generate completed",
		zap.String("model", model),
		zap.Int("eval_count", last.EvalCount),
		zap.Duration("latency", time.Since(start)),
	)

	return &llm.GenerateResponse{
		Provider:     p.Name(),
		Model:        model,
		Text:         sb.String(),
		FinishReason: last.DoneReason,
		Usage: llm.Usage{
			PromptTokens:     last.PromptEvalCount,
			CompletionTokens: last.EvalCount,
			TotalTokens:      last.PromptEvalCount + last.EvalCount,
		},
		CreatedAt: time.Now(),
	}, nil
}
