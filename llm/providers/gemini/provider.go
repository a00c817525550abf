package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/scripturerag/llm"
	"github.com/BaSui01/scripturerag/llm/providers"
	"github.com/BaSui01/scripturerag/types"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com"
	defaultModel   = "gemini-2.5-flash"
)

// GeminiProvider 实现 Google Gemini 的生成 Provider
// 1. 使用 x-goog-api-key 请求头认证
// 2. 系统指令走 systemInstruction 字段
// 3. 单轮非流式 generateContent
type GeminiProvider struct {
	cfg    providers.GeminiConfig
	client *http.Client
	logger *zap.Logger
}

// NewGeminiProvider 创建 Gemini Provider
func NewGeminiProvider(cfg providers.GeminiConfig, logger *zap.Logger) *GeminiProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}

	return &GeminiProvider{
		cfg:    cfg,
		client: providers.NewHTTPClient(cfg.Timeout),
		logger: logger.With(zap.String("component", "gemini_provider")),
	}
}

func (p *GeminiProvider) Name() string { return "gemini" }

// HealthCheck 调用 models 列表确认密钥与网络可用
func (p *GeminiProvider) HealthCheck(ctx context.Context) error {
	endpoint := fmt.Sprintf("%s/v1beta/models?pageSize=1", strings.TrimRight(p.cfg.BaseURL, "/"))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	p.buildHeaders(httpReq)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return providers.MapTransportError(err, p.Name())
	}
	defer providers.SafeCloseBody(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return providers.MapResponseError(resp, p.Name())
	}
	return nil
}

// Gemini 请求结构
type geminiContent struct {
	Role  string       `json:"role,omitempty"` // user, model
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text,omitempty"`
}

type geminiGenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	TopP            float64 `json:"topP,omitempty"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type geminiRequest struct {
	Contents          []geminiContent         `json:"contents"`
	SystemInstruction *geminiContent          `json:"systemInstruction,omitempty"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason,omitempty"`
	Index        int           `json:"index"`
}

type geminiUsageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

type geminiPromptFeedback struct {
	BlockReason string `json:"blockReason,omitempty"`
}

type geminiResponse struct {
	Candidates     []geminiCandidate     `json:"candidates"`
	UsageMetadata  *geminiUsageMetadata  `json:"usageMetadata,omitempty"`
	PromptFeedback *geminiPromptFeedback `json:"promptFeedback,omitempty"`
	ModelVersion   string                `json:"modelVersion,omitempty"`
}

func (p *GeminiProvider) buildHeaders(req *http.Request) {
	req.Header.Set("x-goog-api-key", p.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
}

// Generate 实现 llm.Provider
func (p *GeminiProvider) Generate(ctx context.Context, req *llm.GenerateRequest) (*llm.GenerateResponse, error) {
	if req == nil || strings.TrimSpace(req.User) == "" {
		return nil, types.NewError(types.ErrInvalidRequest, "user message is required").
			WithHTTPStatus(http.StatusBadRequest).
			WithProvider(p.Name())
	}

	body := geminiRequest{
		Contents: []geminiContent{{
			Role:  "user",
			Parts: []geminiPart{{Text: req.User}},
		}},
		GenerationConfig: &geminiGenerationConfig{
			Temperature:     req.Config.Temperature,
			TopP:            req.Config.TopP,
			MaxOutputTokens: req.Config.MaxOutputTokens,
		},
	}
	if req.System != "" {
		body.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: req.System}}}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	model := req.Model
	if model == "" {
		model = p.cfg.Model
	}
	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent", strings.TrimRight(p.cfg.BaseURL, "/"), model)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	p.buildHeaders(httpReq)

	start := time.Now()
	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, providers.MapTransportError(err, p.Name())
	}
	defer providers.SafeCloseBody(resp.Body)

	if resp.StatusCode >= 400 {
		mapped := providers.MapResponseError(resp, p.Name())
		p.logger.Warn("generateContent failed",
			zap.String("model", model),
			zap.Int("status", resp.StatusCode),
			zap.String("code", string(mapped.Code)),
		)
		return nil, mapped
	}

	var gr geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		return nil, providers.DecodeError(err, p.Name())
	}

	out, err := toGenerateResponse(gr, p.Name(), model)
	if err != nil {
		return nil, err
	}
	p.logger.Debug("generateContent completed",
		zap.String("model", out.Model),
		zap.Int("total_tokens", out.Usage.TotalTokens),
		zap.Duration("latency", time.Since(start)),
	)
	return out, nil
}

func toGenerateResponse(gr geminiResponse, provider, model string) (*llm.GenerateResponse, error) {
	if gr.PromptFeedback != nil && gr.PromptFeedback.BlockReason != "" && len(gr.Candidates) == 0 {
		return nil, types.NewError(types.ErrUpstreamError, "prompt blocked: "+gr.PromptFeedback.BlockReason).
			WithHTTPStatus(http.StatusBadGateway).
			WithProvider(provider)
	}
	if len(gr.Candidates) == 0 {
		return nil, types.NewError(types.ErrUpstreamError, "no candidates in response").
			WithHTTPStatus(http.StatusBadGateway).
			WithProvider(provider)
	}

	cand := gr.Candidates[0]
	var sb strings.Builder
	for _, part := range cand.Content.Parts {
		sb.WriteString(part.Text)
	}

	out := &llm.GenerateResponse{
		Provider:     provider,
		Model:        model,
		Text:         sb.String(),
		FinishReason: cand.FinishReason,
		CreatedAt:    time.Now(),
	}
	if gr.ModelVersion != "" {
		out.Model = gr.ModelVersion
	}
	if gr.UsageMetadata != nil {
		out.Usage = llm.Usage{
			PromptTokens:     gr.UsageMetadata.PromptTokenCount,
			CompletionTokens: gr.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      gr.UsageMetadata.TotalTokenCount,
		}
	}
	return out, nil
}
