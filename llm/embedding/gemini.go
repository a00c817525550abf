package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/BaSui01/scripturerag/llm/providers"
	"github.com/BaSui01/scripturerag/types"
)

const (
	defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultGeminiModel   = "gemini-embedding-001"
	defaultGeminiTimeout = 60 * time.Second
)

// GeminiConfig 配置 Gemini 嵌入提供者.
type GeminiConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// GeminiProvider 通过 batchEmbedContents 端点嵌入文本.
// 单条查询也走批量端点，请求与响应只有一种形状。
type GeminiProvider struct {
	cfg    GeminiConfig
	client *http.Client
}

// NewGeminiProvider 创建新的 Gemini 嵌入提供者，空字段使用默认值.
func NewGeminiProvider(cfg GeminiConfig) *GeminiProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultGeminiBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Model == "" {
		cfg.Model = defaultGeminiModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultGeminiTimeout
	}
	return &GeminiProvider{
		cfg:    cfg,
		client: providers.NewHTTPClient(cfg.Timeout),
	}
}

func (p *GeminiProvider) Name() string { return "gemini-embedding" }

type geminiTaskType string

const (
	geminiTaskRetrievalQuery    geminiTaskType = "RETRIEVAL_QUERY"
	geminiTaskRetrievalDocument geminiTaskType = "RETRIEVAL_DOCUMENT"
)

type geminiEmbedRequest struct {
	Model    string         `json:"model"`
	Content  geminiContent  `json:"content"`
	TaskType geminiTaskType `json:"taskType,omitempty"`
}

type geminiBatchEmbedRequest struct {
	Requests []geminiEmbedRequest `json:"requests"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiBatchEmbedResponse struct {
	Embeddings []struct {
		Values []float64 `json:"values"`
	} `json:"embeddings"`
}

// mapTaskType 查询与文档使用不同的检索任务类型，未指定时不发送.
func mapTaskType(inputType InputType) geminiTaskType {
	switch inputType {
	case InputTypeQuery:
		return geminiTaskRetrievalQuery
	case InputTypeDocument:
		return geminiTaskRetrievalDocument
	default:
		return ""
	}
}

// Embed 一次请求嵌入全部输入。返回的向量数与输入数不一致时视为上游错误.
func (p *GeminiProvider) Embed(ctx context.Context, req *EmbeddingRequest) (*EmbeddingResponse, error) {
	model := p.cfg.Model
	if req != nil {
		model = ChooseModel(req.Model, p.cfg.Model, defaultGeminiModel)
	}
	out := &EmbeddingResponse{Provider: p.Name(), Model: model, CreatedAt: time.Now()}
	if req == nil || len(req.Input) == 0 {
		return out, nil
	}

	taskType := mapTaskType(req.InputType)
	body := geminiBatchEmbedRequest{Requests: make([]geminiEmbedRequest, len(req.Input))}
	for i, text := range req.Input {
		body.Requests[i] = geminiEmbedRequest{
			Model:    "models/" + model,
			Content:  geminiContent{Parts: []geminiPart{{Text: text}}},
			TaskType: taskType,
		}
	}

	endpoint := fmt.Sprintf("%s/models/%s:batchEmbedContents", p.cfg.BaseURL, model)
	var gResp geminiBatchEmbedResponse
	if err := p.post(ctx, endpoint, body, &gResp); err != nil {
		return nil, err
	}

	if len(gResp.Embeddings) != len(req.Input) {
		return nil, types.NewError(types.ErrUpstreamError,
			fmt.Sprintf("gemini returned %d embeddings for %d inputs", len(gResp.Embeddings), len(req.Input))).
			WithProvider(p.Name())
	}

	out.Embeddings = make([]EmbeddingData, len(gResp.Embeddings))
	for i, emb := range gResp.Embeddings {
		out.Embeddings[i] = EmbeddingData{Index: i, Embedding: emb.Values}
	}
	return out, nil
}

// post 发送 JSON 请求并解码响应；认证使用 x-goog-api-key 头（不是 Bearer 令牌）
func (p *GeminiProvider) post(ctx context.Context, endpoint string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("x-goog-api-key", p.cfg.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return providers.MapTransportError(err, p.Name())
	}
	defer providers.SafeCloseBody(resp.Body)

	if resp.StatusCode >= 400 {
		return providers.MapResponseError(resp, p.Name())
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return providers.DecodeError(err, p.Name())
	}
	return nil
}
