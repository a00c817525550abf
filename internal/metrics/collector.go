// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/BaSui01/scripturerag/llm"
	"github.com/BaSui01/scripturerag/llm/retry"
)

// =============================================================================
// 📊 指标收集器
// =============================================================================

// Collector 指标收集器。
// 同时实现 embedding.BatchObserver、rag.StoreObserver、rag.QueryObserver
// 与 rag.CacheObserver，由 cmd 层注入各组件。
type Collector struct {
	// HTTP 指标
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpResponseSize    *prometheus.HistogramVec

	// 问答指标
	queriesTotal  *prometheus.CounterVec
	queryDuration *prometheus.HistogramVec

	// 生成模型指标
	llmRequestsTotal   *prometheus.CounterVec
	llmRequestDuration *prometheus.HistogramVec
	llmTokensUsed      *prometheus.CounterVec

	// 向量化指标
	embeddingBatchesTotal  *prometheus.CounterVec
	embeddingBatchDuration *prometheus.HistogramVec
	embeddingTextsTotal    *prometheus.CounterVec
	embeddingRetryAttempts *prometheus.HistogramVec

	// 语料库指标
	storeDocuments     prometheus.Gauge
	storeCorpora       prometheus.Gauge
	storeBuildDuration prometheus.Histogram
	searchDuration     *prometheus.HistogramVec
	searchCandidates   *prometheus.HistogramVec

	// 缓存指标
	cacheHits   *prometheus.CounterVec
	cacheMisses *prometheus.CounterVec

	// 数据库指标
	dbConnectionsOpen *prometheus.GaugeVec
	dbConnectionsIdle *prometheus.GaugeVec

	logger *zap.Logger
}

// NewCollector 创建指标收集器并注册到默认 Registry
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	return NewCollectorWithRegistry(namespace, prometheus.DefaultRegisterer, logger)
}

// NewCollectorWithRegistry 创建指标收集器并注册到指定 Registry（测试用独立 Registry）
func NewCollectorWithRegistry(namespace string, reg prometheus.Registerer, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	factory := promauto.With(reg)
	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	// HTTP 指标
	c.httpRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	c.httpRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	c.httpResponseSize = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_response_size_bytes",
			Help:      "HTTP response size in bytes",
			Buckets:   prometheus.ExponentialBuckets(100, 10, 8),
		},
		[]string{"method", "path"},
	)

	// 问答指标
	c.queriesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queries_total",
			Help:      "Total number of questions by scope mode and outcome",
		},
		[]string{"mode", "outcome"}, // outcome: answered, refused_advice, refused_no_evidence, error
	)

	c.queryDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_duration_seconds",
			Help:      "End-to-end question duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"mode"},
	)

	// 生成模型指标
	c.llmRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_requests_total",
			Help:      "Total number of generation requests",
		},
		[]string{"provider", "model", "status"},
	)

	c.llmRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_request_duration_seconds",
			Help:      "Generation request duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"provider", "model"},
	)

	c.llmTokensUsed = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_tokens_used_total",
			Help:      "Total number of tokens used",
		},
		[]string{"provider", "model", "type"}, // type: prompt, completion
	)

	// 向量化指标
	c.embeddingBatchesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "embedding_batches_total",
			Help:      "Total number of embedding batches by final outcome",
		},
		[]string{"provider", "outcome"},
	)

	c.embeddingBatchDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "embedding_batch_duration_seconds",
			Help:      "Embedding batch duration including retries",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120},
		},
		[]string{"provider"},
	)

	c.embeddingTextsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "embedding_texts_total",
			Help:      "Total number of texts sent for embedding",
		},
		[]string{"provider"},
	)

	c.embeddingRetryAttempts = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "embedding_batch_attempts",
			Help:      "Attempts needed per embedding batch",
			Buckets:   []float64{1, 2, 3, 4, 5},
		},
		[]string{"provider"},
	)

	// 语料库指标
	c.storeDocuments = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "store_documents",
		Help:      "Number of documents in the corpus store",
	})

	c.storeCorpora = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "store_corpora",
		Help:      "Number of corpora in the corpus store",
	})

	c.storeBuildDuration = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "store_build_duration_seconds",
		Help:      "Corpus store build duration in seconds",
		Buckets:   []float64{1, 10, 30, 60, 300, 600, 1800},
	})

	c.searchDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "Scoped similarity search duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"scope"},
	)

	c.searchCandidates = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_candidates",
			Help:      "Number of candidate documents scored per search",
			Buckets:   prometheus.ExponentialBuckets(10, 4, 7),
		},
		[]string{"scope"},
	)

	// 缓存指标
	c.cacheHits = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Total number of cache hits",
		},
		[]string{"cache_type"},
	)

	c.cacheMisses = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Total number of cache misses",
		},
		[]string{"cache_type"},
	)

	// 数据库指标
	c.dbConnectionsOpen = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "db_connections_open",
			Help:      "Number of open database connections",
		},
		[]string{"database"},
	)

	c.dbConnectionsIdle = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "db_connections_idle",
			Help:      "Number of idle database connections",
		},
		[]string{"database"},
	)

	logger.Info("metrics collector initialized", zap.String("namespace", namespace))

	return c
}

// =============================================================================
// 🎯 HTTP 指标记录
// =============================================================================

// RecordHTTPRequest 记录 HTTP 请求
func (c *Collector) RecordHTTPRequest(method, path string, status int, duration time.Duration, responseSize int64) {
	c.httpRequestsTotal.WithLabelValues(method, path, statusCode(status)).Inc()
	c.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	c.httpResponseSize.WithLabelValues(method, path).Observe(float64(responseSize))
}

// =============================================================================
// 📖 问答与生成
// =============================================================================

// ObserveQuery 记录一次问答
func (c *Collector) ObserveQuery(mode, outcome string, duration time.Duration) {
	c.queriesTotal.WithLabelValues(mode, outcome).Inc()
	c.queryDuration.WithLabelValues(mode).Observe(duration.Seconds())
}

// ObserveGeneration 记录一次生成调用
func (c *Collector) ObserveGeneration(provider, model, status string, duration time.Duration, usage llm.Usage) {
	c.llmRequestsTotal.WithLabelValues(provider, model, status).Inc()
	c.llmRequestDuration.WithLabelValues(provider, model).Observe(duration.Seconds())
	c.llmTokensUsed.WithLabelValues(provider, model, "prompt").Add(float64(usage.PromptTokens))
	c.llmTokensUsed.WithLabelValues(provider, model, "completion").Add(float64(usage.CompletionTokens))
}

// =============================================================================
// 🧮 向量化与检索
// =============================================================================

// ObserveEmbeddingBatch 记录一批向量化
func (c *Collector) ObserveEmbeddingBatch(provider string, size int, attempts int, outcome retry.Outcome, duration time.Duration) {
	c.embeddingBatchesTotal.WithLabelValues(provider, outcome.String()).Inc()
	c.embeddingBatchDuration.WithLabelValues(provider).Observe(duration.Seconds())
	c.embeddingTextsTotal.WithLabelValues(provider).Add(float64(size))
	c.embeddingRetryAttempts.WithLabelValues(provider).Observe(float64(attempts))
	if outcome == retry.OutcomeExhausted {
		c.logger.Warn("embedding batch exhausted retries",
			zap.String("provider", provider),
			zap.Int("size", size),
			zap.Int("attempts", attempts),
		)
	}
}

// ObserveBuild 记录一次语料库构建
func (c *Collector) ObserveBuild(corpora, documents int, duration time.Duration) {
	c.storeCorpora.Set(float64(corpora))
	c.storeDocuments.Set(float64(documents))
	c.storeBuildDuration.Observe(duration.Seconds())
}

// SetStoreSize 加载快照后同步库规模
func (c *Collector) SetStoreSize(corpora, documents int) {
	c.storeCorpora.Set(float64(corpora))
	c.storeDocuments.Set(float64(documents))
}

// ObserveSearch 记录一次范围检索
func (c *Collector) ObserveSearch(scope string, candidates int, duration time.Duration) {
	c.searchDuration.WithLabelValues(scope).Observe(duration.Seconds())
	c.searchCandidates.WithLabelValues(scope).Observe(float64(candidates))
}

// =============================================================================
// 💾 缓存指标记录
// =============================================================================

// RecordCacheHit 记录缓存命中
func (c *Collector) RecordCacheHit(cacheType string) {
	c.cacheHits.WithLabelValues(cacheType).Inc()
}

// RecordCacheMiss 记录缓存未命中
func (c *Collector) RecordCacheMiss(cacheType string) {
	c.cacheMisses.WithLabelValues(cacheType).Inc()
}

// =============================================================================
// 🗄️ 数据库指标记录
// =============================================================================

// RecordDBConnections 记录数据库连接数
func (c *Collector) RecordDBConnections(database string, open, idle int) {
	c.dbConnectionsOpen.WithLabelValues(database).Set(float64(open))
	c.dbConnectionsIdle.WithLabelValues(database).Set(float64(idle))
}

// =============================================================================
// 🔧 辅助函数
// =============================================================================

// statusCode 将 HTTP 状态码转换为字符串
func statusCode(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}
