package main

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/BaSui01/scripturerag/config"
	"github.com/BaSui01/scripturerag/internal/cache"
	"github.com/BaSui01/scripturerag/internal/database"
	"github.com/BaSui01/scripturerag/internal/metrics"
	"github.com/BaSui01/scripturerag/internal/telemetry"
	"github.com/BaSui01/scripturerag/llm"
	"github.com/BaSui01/scripturerag/llm/embedding"
	"github.com/BaSui01/scripturerag/llm/providers"
	"github.com/BaSui01/scripturerag/llm/providers/gemini"
	"github.com/BaSui01/scripturerag/llm/providers/ollama"
	"github.com/BaSui01/scripturerag/llm/tokenizer"
	"github.com/BaSui01/scripturerag/rag"
)

// =============================================================================
// 🧩 组件装配
// =============================================================================

// app 持有一次进程运行所需的全部组件。serve、build-index、ask、texts 共用。
type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	collector *metrics.Collector
	// OTel 仪表，遥测关闭时为 noop meter 上的仪表
	instruments *telemetry.Instruments

	catalog      *rag.Catalog
	store        *rag.CorpusStore
	snapshotter  rag.Snapshotter
	orchestrator *rag.Orchestrator

	cache *cache.Manager
	pool  *database.PoolManager
}

// appOptions 控制装配范围：只读命令不需要生成服务
type appOptions struct {
	withGenerator bool
}

// newApp 按配置装配组件，任何失败都会释放已创建的资源
func newApp(cfg *config.Config, logger *zap.Logger, collector *metrics.Collector, opts appOptions) (a *app, err error) {
	a = &app{
		cfg:       cfg,
		logger:    logger,
		collector: collector,
		catalog:   catalogFromConfig(cfg.Corpus),
	}
	defer func() {
		if err != nil {
			a.Close()
			a = nil
		}
	}()

	if a.instruments, err = telemetry.NewInstruments(otel.Meter(telemetry.InstrumentationName)); err != nil {
		return nil, fmt.Errorf("register otel instruments: %w", err)
	}

	embedder, err := a.buildEmbedder()
	if err != nil {
		return nil, err
	}

	a.store = rag.NewCorpusStore(embedder, a.catalog, logger,
		rag.WithStoreObserver(collector),
		rag.WithEmbeddingModel(cfg.Embedding.Model),
	)

	if a.snapshotter, err = a.buildSnapshotter(); err != nil {
		return nil, err
	}

	if opts.withGenerator {
		generator, err := newGenerator(cfg.Generation, logger)
		if err != nil {
			return nil, err
		}
		a.orchestrator = rag.NewOrchestrator(a.store, generator, orchestratorConfig(cfg), logger,
			rag.WithQueryObserver(a.queryObserver()),
			rag.WithTokenizer(tokenizer.ForModel(cfg.Generation.Model, logger)),
		)
	}

	return a, nil
}

func (a *app) queryObserver() rag.QueryObserver {
	if a.instruments == nil {
		return a.collector
	}
	return queryObservers{a.collector, a.instruments}
}

func (a *app) batchObserver() embedding.BatchObserver {
	if a.instruments == nil {
		return a.collector
	}
	return batchObservers{a.collector, a.instruments}
}

func (a *app) cacheObserver() rag.CacheObserver {
	if a.instruments == nil {
		return a.collector
	}
	return cacheObservers{a.collector, a.instruments}
}

// buildEmbedder 分批执行器，启用 redis 时外面再包一层查询向量缓存
func (a *app) buildEmbedder() (rag.Embedder, error) {
	provider, err := newEmbeddingProvider(a.cfg.Embedding)
	if err != nil {
		return nil, err
	}

	batcher := embedding.NewBatcher(provider, embedding.BatcherConfig{
		BatchSize:     a.cfg.Embedding.BatchSize,
		BatchInterval: a.cfg.Embedding.BatchInterval,
		MaxAttempts:   a.cfg.Embedding.MaxAttempts,
		BaseDelay:     a.cfg.Embedding.BaseDelay,
		ProgressEvery: embedding.DefaultBatcherConfig().ProgressEvery,
	}, a.logger, embedding.WithBatchObserver(a.batchObserver()))

	if !a.cfg.Redis.Enabled || a.cfg.Retrieval.QueryCacheTTL <= 0 {
		return batcher, nil
	}

	cacheCfg := cache.DefaultConfig()
	cacheCfg.Addr = a.cfg.Redis.Addr
	cacheCfg.Password = a.cfg.Redis.Password
	cacheCfg.DB = a.cfg.Redis.DB
	cacheCfg.TLS = a.cfg.Redis.TLS
	cacheCfg.DefaultTTL = a.cfg.Retrieval.QueryCacheTTL
	if a.cfg.Redis.PoolSize > 0 {
		cacheCfg.PoolSize = a.cfg.Redis.PoolSize
	}
	if a.cfg.Redis.MinIdleConns > 0 {
		cacheCfg.MinIdleConns = a.cfg.Redis.MinIdleConns
	}

	manager, err := cache.NewManager(cacheCfg, a.logger)
	if err != nil {
		// 缓存只是加速，连不上就直接走嵌入服务
		a.logger.Warn("query embedding cache disabled", zap.Error(err))
		return batcher, nil
	}
	a.cache = manager

	return rag.NewCachedEmbedder(batcher, manager, a.cfg.Retrieval.QueryCacheTTL, a.cfg.Embedding.Model, a.logger).
		WithObserver(a.cacheObserver()), nil
}

func (a *app) buildSnapshotter() (rag.Snapshotter, error) {
	switch a.cfg.Snapshot.Backend {
	case "file":
		return rag.NewFileSnapshotter(a.cfg.Snapshot.Path), nil
	case "database":
		db, err := database.Open(a.cfg.Database, a.logger)
		if err != nil {
			return nil, err
		}
		pool, err := database.NewPoolManager(db, database.PoolConfigFrom(a.cfg.Database), a.logger,
			database.WithStatsRecorder(a.cfg.Database.Driver, a.collector))
		if err != nil {
			if sqlDB, dbErr := db.DB(); dbErr == nil {
				_ = sqlDB.Close()
			}
			return nil, err
		}
		a.pool = pool
		return rag.NewSQLSnapshotter(pool.DB()), nil
	default:
		return nil, fmt.Errorf("unknown snapshot backend %q", a.cfg.Snapshot.Backend)
	}
}

// loadSnapshot 从快照恢复索引并刷新规模指标
func (a *app) loadSnapshot(ctx context.Context) error {
	if err := a.store.Load(ctx, a.snapshotter); err != nil {
		return err
	}
	a.collector.SetStoreSize(len(a.store.CorpusCounts()), a.store.Count())
	return nil
}

// Close 释放连接，可重复调用
func (a *app) Close() {
	if a == nil {
		return
	}
	var errs []error
	if a.cache != nil {
		errs = append(errs, a.cache.Close())
		a.cache = nil
	}
	if a.pool != nil {
		errs = append(errs, a.pool.Close())
		a.pool = nil
	}
	if err := errors.Join(errs...); err != nil {
		a.logger.Warn("failed to release resources", zap.Error(err))
	}
}

// =============================================================================
// 🔧 工厂函数
// =============================================================================

func catalogFromConfig(cfg config.CorpusConfig) *rag.Catalog {
	entries := make([]rag.CatalogEntry, 0, len(cfg.Catalog))
	for _, ce := range cfg.Catalog {
		entries = append(entries, rag.CatalogEntry{
			Name:      ce.Name,
			Tradition: ce.Tradition,
			File:      ce.File,
		})
	}
	return rag.NewCatalog(entries...)
}

func orchestratorConfig(cfg *config.Config) rag.OrchestratorConfig {
	return rag.OrchestratorConfig{
		TopK:               cfg.Retrieval.TopK,
		ScoreThreshold:     cfg.Retrieval.ScoreThreshold,
		UnscopedMinTopK:    cfg.Retrieval.UnscopedMinTopK,
		HistoryMaxMessages: cfg.Retrieval.HistoryMaxMessages,
		HistoryMaxChars:    cfg.Retrieval.HistoryMaxChars,
		Model:              cfg.Generation.Model,
		Generation: llm.GenerationConfig{
			Temperature:     cfg.Generation.Temperature,
			TopP:            cfg.Generation.TopP,
			MaxOutputTokens: cfg.Generation.MaxOutputTokens,
		},
	}
}

func newEmbeddingProvider(cfg config.EmbeddingConfig) (embedding.Provider, error) {
	switch cfg.Provider {
	case "gemini":
		if cfg.APIKey == "" {
			return nil, errors.New("embedding api_key is required for gemini (or set GOOGLE_API_KEY)")
		}
		return embedding.NewGeminiProvider(embedding.GeminiConfig{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Timeout: cfg.Timeout,
		}), nil
	case "ollama":
		return embedding.NewOllamaProvider(providers.BaseProviderConfig{
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Timeout: cfg.Timeout,
		})
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s (supported: gemini, ollama)", cfg.Provider)
	}
}

func newGenerator(cfg config.GenerationConfig, logger *zap.Logger) (llm.Provider, error) {
	base := providers.BaseProviderConfig{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
		Timeout: cfg.Timeout,
	}
	switch cfg.Provider {
	case "gemini":
		if cfg.APIKey == "" {
			return nil, errors.New("generation api_key is required for gemini (or set GOOGLE_API_KEY)")
		}
		return gemini.NewGeminiProvider(providers.GeminiConfig{BaseProviderConfig: base}, logger), nil
	case "ollama":
		return ollama.NewOllamaProvider(providers.OllamaConfig{BaseProviderConfig: base}, logger)
	default:
		return nil, fmt.Errorf("unsupported generation provider: %s (supported: gemini, ollama)", cfg.Provider)
	}
}
