package embedding

import (
	"context"
	"time"

	"github.com/ollama/ollama/api"

	"github.com/BaSui01/scripturerag/llm/providers"
	"github.com/BaSui01/scripturerag/llm/providers/ollama"
)

const defaultOllamaModel = "nomic-embed-text"

// OllamaProvider 通过本地 Ollama 的 /api/embed 生成嵌入.
type OllamaProvider struct {
	client *api.Client
	model  string
}

// NewOllamaProvider 创建 Ollama 嵌入提供者，BaseURL 为空时读取 OLLAMA_HOST.
func NewOllamaProvider(cfg providers.BaseProviderConfig) (*OllamaProvider, error) {
	client, err := ollama.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return &OllamaProvider{
		client: client,
		model:  ChooseModel(cfg.Model, "", defaultOllamaModel),
	}, nil
}

func (p *OllamaProvider) Name() string { return "ollama-embedding" }

// Embed 批量嵌入；Ollama 没有任务类型，InputType 被忽略.
func (p *OllamaProvider) Embed(ctx context.Context, req *EmbeddingRequest) (*EmbeddingResponse, error) {
	model := ChooseModel(req.Model, p.model, defaultOllamaModel)
	if len(req.Input) == 0 {
		return &EmbeddingResponse{Provider: p.Name(), Model: model, CreatedAt: time.Now()}, nil
	}

	resp, err := p.client.Embed(ctx, &api.EmbedRequest{
		Model: model,
		Input: req.Input,
	})
	if err != nil {
		return nil, providers.MapOllamaError(err, p.Name())
	}

	embeddings := make([]EmbeddingData, len(resp.Embeddings))
	for i, vec := range resp.Embeddings {
		values := make([]float64, len(vec))
		for j, v := range vec {
			values[j] = float64(v)
		}
		embeddings[i] = EmbeddingData{Index: i, Embedding: values}
	}

	return &EmbeddingResponse{
		Provider:   p.Name(),
		Model:      ChooseModel(resp.Model, model, model),
		Embeddings: embeddings,
		CreatedAt:  time.Now(),
	}, nil
}
