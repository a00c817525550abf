package rag

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"slices"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/BaSui01/scripturerag/internal/cache"
	"github.com/BaSui01/scripturerag/llm/embedding"
)

// queryCacheKeyPrefix 查询向量缓存键前缀
const queryCacheKeyPrefix = "scripturerag:qemb:"

// VectorCache 查询向量缓存的存取接口，internal/cache.Manager 满足该接口
type VectorCache interface {
	GetJSON(ctx context.Context, key string, dest any) error
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
}

// CacheObserver 记录缓存命中情况
type CacheObserver interface {
	RecordCacheHit(cacheType string)
	RecordCacheMiss(cacheType string)
}

type nopCacheObserver struct{}

func (nopCacheObserver) RecordCacheHit(string)  {}
func (nopCacheObserver) RecordCacheMiss(string) {}

// CachedEmbedder 为单条查询向量化加一层 redis 缓存，并用 singleflight
// 合并并发的相同查询。文档向量化（构建）直接透传。
//
// 缓存读写失败只记日志，不影响查询。
type CachedEmbedder struct {
	next     Embedder
	cache    VectorCache
	ttl      time.Duration
	model    string
	group    singleflight.Group
	observer CacheObserver
	logger   *zap.Logger
}

// NewCachedEmbedder 创建带缓存的 Embedder。model 参与缓存键，换模型后旧向量不会命中。
func NewCachedEmbedder(next Embedder, c VectorCache, ttl time.Duration, model string, logger *zap.Logger) *CachedEmbedder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedEmbedder{
		next:     next,
		cache:    c,
		ttl:      ttl,
		model:    model,
		observer: nopCacheObserver{},
		logger:   logger.With(zap.String("component", "query_embedding_cache")),
	}
}

// WithObserver 设置缓存观测者
func (e *CachedEmbedder) WithObserver(o CacheObserver) *CachedEmbedder {
	if o != nil {
		e.observer = o
	}
	return e
}

// EmbedAll 实现 Embedder
func (e *CachedEmbedder) EmbedAll(ctx context.Context, texts []string, inputType embedding.InputType) ([][]float64, error) {
	if e.cache == nil || inputType != embedding.InputTypeQuery || len(texts) != 1 {
		return e.next.EmbedAll(ctx, texts, inputType)
	}

	key := e.cacheKey(texts[0])

	var cached []float64
	err := e.cache.GetJSON(ctx, key, &cached)
	switch {
	case err == nil && len(cached) > 0:
		e.observer.RecordCacheHit("query_embedding")
		return [][]float64{cached}, nil
	case err != nil && !cache.IsCacheMiss(err):
		e.logger.Warn("query embedding cache read failed", zap.Error(err))
	}
	e.observer.RecordCacheMiss("query_embedding")

	// 共享调用不继承任一调用方的取消，每个调用方只等待自己的 ctx
	shared := context.WithoutCancel(ctx)
	ch := e.group.DoChan(key, func() (any, error) {
		vecs, err := e.next.EmbedAll(shared, texts, inputType)
		if err != nil {
			return nil, err
		}
		if len(vecs) == 1 {
			if err := e.cache.SetJSON(shared, key, vecs[0], e.ttl); err != nil {
				e.logger.Warn("query embedding cache write failed", zap.Error(err))
			}
		}
		return vecs, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			e.logger.Debug("query embedding shared with concurrent caller")
		}
		return slices.Clone(res.Val.([][]float64)), nil
	}
}

func (e *CachedEmbedder) cacheKey(query string) string {
	sum := sha256.Sum256([]byte(e.model + "\x00" + query))
	return queryCacheKeyPrefix + hex.EncodeToString(sum[:])
}
