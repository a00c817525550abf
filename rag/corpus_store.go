package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/scripturerag/llm/embedding"
	"github.com/BaSui01/scripturerag/types"
)

// ErrStoreNotReady 语料库尚未构建或加载
var ErrStoreNotReady = errors.New("corpus store not built or loaded")

// Embedder 文本向量化。实现必须保持输入顺序，返回与输入等长的向量。
// embedding.Batcher 与 CachedEmbedder 都满足该接口。
type Embedder interface {
	EmbedAll(ctx context.Context, texts []string, inputType embedding.InputType) ([][]float64, error)
}

// StoreObserver 接收构建与检索的观测数据
type StoreObserver interface {
	ObserveBuild(corpora, documents int, duration time.Duration)
	ObserveSearch(scope string, candidates int, duration time.Duration)
}

type nopStoreObserver struct{}

func (nopStoreObserver) ObserveBuild(int, int, time.Duration)     {}
func (nopStoreObserver) ObserveSearch(string, int, time.Duration) {}

// SearchResult 一条检索结果
type SearchResult struct {
	Document
	Position int     `json:"position"`
	Score    float64 `json:"score"`
}

// CorpusStat 语料概况（list_texts）
type CorpusStat struct {
	Name       string `json:"name"`
	Tradition  string `json:"tradition"`
	EntryCount int    `json:"entry_count"`
}

// StoreOption 配置 CorpusStore
type StoreOption func(*CorpusStore)

// WithStoreObserver 设置观测者
func WithStoreObserver(o StoreObserver) StoreOption {
	return func(s *CorpusStore) {
		if o != nil {
			s.observer = o
		}
	}
}

// WithEmbeddingModel 记录到快照中的嵌入模型名
func WithEmbeddingModel(model string) StoreOption {
	return func(s *CorpusStore) {
		s.model = model
	}
}

// CorpusStore 多语料内存向量库。
//
// 文档、嵌入矩阵和语料索引只在 Build / Restore 时整体替换，之后只读，
// 因此检索可以并发进行。第 i 行向量对应第 i 个文档。
type CorpusStore struct {
	embedder Embedder
	catalog  *Catalog
	model    string
	observer StoreObserver
	logger   *zap.Logger

	mu         sync.RWMutex
	ready      bool
	documents  []Document
	embeddings [][]float64
	corpora    []SnapshotCorpus
	index      map[string][]int
}

// NewCorpusStore 创建空语料库
func NewCorpusStore(embedder Embedder, catalog *Catalog, logger *zap.Logger, opts ...StoreOption) *CorpusStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	if catalog == nil {
		catalog = NewCatalog()
	}
	s := &CorpusStore{
		embedder:   embedder,
		catalog:    catalog,
		observer:   nopStoreObserver{},
		logger:     logger.With(zap.String("component", "corpus_store")),
		documents:  []Document{},
		embeddings: [][]float64{},
		corpora:    []SnapshotCorpus{},
		index:      map[string][]int{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Build 用给定语料重建整个库。所有文本一次性向量化；
// 任一步失败时原有内容保持不变。
func (s *CorpusStore) Build(ctx context.Context, corpora []Corpus) error {
	start := time.Now()

	documents := make([]Document, 0)
	texts := make([]string, 0)
	index := make([]SnapshotCorpus, 0, len(corpora))
	seen := make(map[string]struct{}, len(corpora))

	for _, c := range corpora {
		if c.Name == "" {
			return types.NewError(types.ErrInvalidRequest, "corpus name is required")
		}
		if _, dup := seen[c.Name]; dup {
			return types.NewError(types.ErrInvalidRequest, fmt.Sprintf("corpus %q given twice", c.Name))
		}
		seen[c.Name] = struct{}{}

		tradition := c.Tradition
		if tradition == "" {
			tradition = s.catalog.Tradition(c.Name)
		}
		c.Tradition = tradition

		positions := make([]int, 0, len(c.Entries))
		for _, e := range c.Entries {
			doc := NewDocument(c, e)
			positions = append(positions, len(documents))
			documents = append(documents, doc)
			texts = append(texts, doc.DocText)
		}
		index = append(index, SnapshotCorpus{Name: c.Name, Tradition: tradition, Positions: positions})

		s.logger.Info("corpus loaded", zap.String("corpus", c.Name), zap.Int("entries", len(positions)))
	}

	s.logger.Info("computing embeddings", zap.Int("documents", len(documents)))

	embeddings := [][]float64{}
	if len(texts) > 0 {
		vecs, err := s.embedder.EmbedAll(ctx, texts, embedding.InputTypeDocument)
		if err != nil {
			return fmt.Errorf("embed corpus documents: %w", err)
		}
		if len(vecs) != len(texts) {
			return types.NewError(types.ErrUpstreamError,
				fmt.Sprintf("embedder returned %d vectors for %d documents", len(vecs), len(texts)))
		}
		embeddings = vecs
	}

	snap := &Snapshot{
		Version:    SnapshotVersion,
		Model:      s.model,
		CreatedAt:  time.Now().UTC(),
		Corpora:    index,
		Documents:  documents,
		Embeddings: embeddings,
	}
	if err := snap.Validate(); err != nil {
		return err
	}
	s.swap(snap)

	s.observer.ObserveBuild(len(index), len(documents), time.Since(start))
	s.logger.Info("corpus store built",
		zap.Int("corpora", len(index)),
		zap.Int("documents", len(documents)),
		zap.Int("dimension", snap.Dimension()),
		zap.Duration("took", time.Since(start)),
	)
	return nil
}

// Search 在给定范围内做精确余弦检索，返回前 topK 条（不做阈值过滤）。
// 库为空或范围内没有候选时返回空列表，不是错误。
func (s *CorpusStore) Search(ctx context.Context, query string, topK int, scope Scope) ([]SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, types.NewError(types.ErrInvalidRequest, "query is empty")
	}
	if topK <= 0 {
		return nil, types.NewError(types.ErrInvalidRequest, fmt.Sprintf("top_k must be positive, got %d", topK))
	}

	start := time.Now()

	s.mu.RLock()
	documents, embeddings, index := s.documents, s.embeddings, s.index
	s.mu.RUnlock()

	if len(documents) == 0 {
		return []SearchResult{}, nil
	}

	allowed := scope.allowedPositions(index)
	if allowed != nil && len(allowed) == 0 {
		s.logger.Debug("empty candidate set", zap.Strings("scope", scope.Names()))
		return []SearchResult{}, nil
	}

	vecs, err := s.embedder.EmbedAll(ctx, []string{query}, embedding.InputTypeQuery)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vecs) != 1 {
		return nil, types.NewError(types.ErrUpstreamError,
			fmt.Sprintf("embedder returned %d vectors for one query", len(vecs)))
	}
	q := vecs[0]
	if dim := len(embeddings[0]); len(q) != dim {
		return nil, types.NewError(types.ErrUpstreamError,
			fmt.Sprintf("query vector has dimension %d, store has %d", len(q), dim))
	}

	var candidates []scoredPosition
	if allowed == nil {
		candidates = make([]scoredPosition, len(documents))
		for i := range documents {
			candidates[i] = scoredPosition{position: i, score: CosineSimilarity(embeddings[i], q)}
		}
	} else {
		candidates = make([]scoredPosition, len(allowed))
		for i, pos := range allowed {
			candidates[i] = scoredPosition{position: pos, score: CosineSimilarity(embeddings[pos], q)}
		}
	}
	candidateCount := len(candidates)

	top := rankTopK(candidates, topK)
	results := make([]SearchResult, len(top))
	for i, c := range top {
		results[i] = SearchResult{Document: documents[c.position], Position: c.position, Score: c.score}
	}

	s.observer.ObserveSearch(scope.Kind().String(), candidateCount, time.Since(start))
	return results, nil
}

// Count 文档总数
func (s *CorpusStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.documents)
}

// Dimension 向量维度，空库为 0
func (s *CorpusStore) Dimension() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.embeddings) == 0 {
		return 0
	}
	return len(s.embeddings[0])
}

// CorpusCounts 每部语料的文档数
func (s *CorpusStore) CorpusCounts() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]int, len(s.corpora))
	for _, c := range s.corpora {
		out[c.Name] = len(c.Positions)
	}
	return out
}

// ListTexts 按构建顺序列出语料。传统依次取快照、目录，都没有时为 Unknown。
func (s *CorpusStore) ListTexts() []CorpusStat {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]CorpusStat, 0, len(s.corpora))
	for _, c := range s.corpora {
		tradition := c.Tradition
		if tradition == "" {
			tradition = s.catalog.Tradition(c.Name)
		}
		out = append(out, CorpusStat{Name: c.Name, Tradition: tradition, EntryCount: len(c.Positions)})
	}
	return out
}

// Ready 已构建或加载时返回 nil
func (s *CorpusStore) Ready() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.ready {
		return ErrStoreNotReady
	}
	return nil
}

// Snapshot 返回当前内容的快照。切片与库共享，调用方不得修改。
func (s *CorpusStore) Snapshot() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return &Snapshot{
		Version:    SnapshotVersion,
		Model:      s.model,
		CreatedAt:  time.Now().UTC(),
		Corpora:    s.corpora,
		Documents:  s.documents,
		Embeddings: s.embeddings,
	}
}

// Restore 校验后整体替换为快照内容
func (s *CorpusStore) Restore(snap *Snapshot) error {
	if err := snap.Validate(); err != nil {
		return err
	}
	if s.model != "" && snap.Model != "" && snap.Model != s.model {
		s.logger.Warn("snapshot was built with a different embedding model",
			zap.String("snapshot_model", snap.Model),
			zap.String("configured_model", s.model),
		)
	}
	s.swap(snap)
	return nil
}

// Save 通过后端持久化当前内容
func (s *CorpusStore) Save(ctx context.Context, backend Snapshotter) error {
	snap := s.Snapshot()
	if err := backend.SaveSnapshot(ctx, snap); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	s.logger.Info("snapshot saved", zap.Int("documents", len(snap.Documents)))
	return nil
}

// Load 从后端加载快照；行数与文档数不一致等损坏情况返回 CORRUPT_SNAPSHOT
func (s *CorpusStore) Load(ctx context.Context, backend Snapshotter) error {
	snap, err := backend.LoadSnapshot(ctx)
	if err != nil {
		return err
	}
	if err := s.Restore(snap); err != nil {
		return err
	}
	s.logger.Info("snapshot loaded", zap.Int("documents", len(snap.Documents)))
	for _, c := range snap.Corpora {
		s.logger.Info("corpus available", zap.String("corpus", c.Name), zap.Int("entries", len(c.Positions)))
	}
	return nil
}

func (s *CorpusStore) swap(snap *Snapshot) {
	index := make(map[string][]int, len(snap.Corpora))
	for _, c := range snap.Corpora {
		index[c.Name] = c.Positions
	}
	documents := snap.Documents
	if documents == nil {
		documents = []Document{}
	}
	embeddings := snap.Embeddings
	if embeddings == nil {
		embeddings = [][]float64{}
	}
	corpora := snap.Corpora
	if corpora == nil {
		corpora = []SnapshotCorpus{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.documents = documents
	s.embeddings = embeddings
	s.corpora = corpora
	s.index = index
	s.ready = true
}
