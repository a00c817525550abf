package mocks

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"
	"sync"
	"time"

	"github.com/BaSui01/scripturerag/llm/embedding"
)

// EmbedCall 记录一次向量化调用
type EmbedCall struct {
	Texts     []string
	InputType embedding.InputType
}

// MockEmbedder 同时实现 embedding.Provider 与 EmbedAll 形式的 Embedder。
// 预设文本返回预设向量，其余文本按 sha256 生成确定性的伪随机向量。
type MockEmbedder struct {
	mu sync.RWMutex

	dim     int
	vectors map[string][]float64
	err     error
	errOn   map[string]error
	calls   []EmbedCall
}

// NewMockEmbedder 创建 dim 维的 MockEmbedder
func NewMockEmbedder(dim int) *MockEmbedder {
	if dim <= 0 {
		dim = 8
	}
	return &MockEmbedder{
		dim:     dim,
		vectors: make(map[string][]float64),
		errOn:   make(map[string]error),
	}
}

// WithVector 为指定文本预设向量
func (m *MockEmbedder) WithVector(text string, vec []float64) *MockEmbedder {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]float64, len(vec))
	copy(cp, vec)
	m.vectors[text] = cp
	return m
}

// WithError 所有调用都返回 err
func (m *MockEmbedder) WithError(err error) *MockEmbedder {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// WithErrorOn 包含指定文本的调用返回 err
func (m *MockEmbedder) WithErrorOn(text string, err error) *MockEmbedder {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errOn[text] = err
	return m
}

// Name 实现 embedding.Provider
func (m *MockEmbedder) Name() string { return "mock-embedding" }

// EmbedAll 按输入顺序返回向量
func (m *MockEmbedder) EmbedAll(ctx context.Context, texts []string, inputType embedding.InputType) ([][]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.calls = append(m.calls, EmbedCall{Texts: append([]string(nil), texts...), InputType: inputType})
	m.mu.Unlock()

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	out := make([][]float64, len(texts))
	for i, t := range texts {
		if err, ok := m.errOn[t]; ok {
			return nil, err
		}
		if v, ok := m.vectors[t]; ok {
			out[i] = append([]float64(nil), v...)
			continue
		}
		out[i] = HashVector(t, m.dim)
	}
	return out, nil
}

// Embed 实现 embedding.Provider
func (m *MockEmbedder) Embed(ctx context.Context, req *embedding.EmbeddingRequest) (*embedding.EmbeddingResponse, error) {
	vecs, err := m.EmbedAll(ctx, req.Input, req.InputType)
	if err != nil {
		return nil, err
	}
	data := make([]embedding.EmbeddingData, len(vecs))
	for i, v := range vecs {
		data[i] = embedding.EmbeddingData{Index: i, Embedding: v}
	}
	return &embedding.EmbeddingResponse{
		Provider:   m.Name(),
		Model:      "mock",
		Embeddings: data,
		CreatedAt:  time.Now(),
	}, nil
}

// Calls 返回调用记录副本
func (m *MockEmbedder) Calls() []EmbedCall {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]EmbedCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount 返回调用次数
func (m *MockEmbedder) CallCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.calls)
}

// QueryCallCount 返回 query 类型调用次数
func (m *MockEmbedder) QueryCallCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, c := range m.calls {
		if c.InputType == embedding.InputTypeQuery {
			n++
		}
	}
	return n
}

// HashVector 由文本生成确定性的单位向量
func HashVector(text string, dim int) []float64 {
	seed := sha256.Sum256([]byte(text))
	vec := make([]float64, dim)
	var norm float64
	for i := range vec {
		h := sha256.Sum256(append(seed[:], byte(i%251)))
		u := binary.BigEndian.Uint32(h[:4])
		vec[i] = float64(u%2000)/1000.0 - 1.0
		norm += vec[i] * vec[i]
	}
	if norm == 0 {
		return vec
	}
	inv := 1 / math.Sqrt(norm)
	for i := range vec {
		vec[i] *= inv
	}
	return vec
}
