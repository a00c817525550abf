package telemetry

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/BaSui01/scripturerag/llm"
	"github.com/BaSui01/scripturerag/llm/retry"
)

// InstrumentationName 问答与索引构建指标的 meter 名称
const InstrumentationName = "github.com/BaSui01/scripturerag"

// Instruments 通过 OTel meter 记录问答、生成、嵌入批次与查询缓存，
// 满足 rag.QueryObserver、embedding.BatchObserver 与 rag.CacheObserver。
// 遥测关闭时全局 meter 为 noop，记录没有开销。
type Instruments struct {
	queryTotal      metric.Int64Counter
	queryDuration   metric.Float64Histogram
	generationTotal metric.Int64Counter
	generationDur   metric.Float64Histogram
	tokenTotal      metric.Int64Counter
	batchTotal      metric.Int64Counter
	batchAttempts   metric.Int64Histogram
	batchDuration   metric.Float64Histogram
	cacheLookups    metric.Int64Counter
}

// NewInstruments 在 meter 上注册全部仪表
func NewInstruments(meter metric.Meter) (*Instruments, error) {
	var (
		in   Instruments
		errs []error
	)
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	var err error
	in.queryTotal, err = meter.Int64Counter("rag.query.total",
		metric.WithDescription("Questions answered, by scope mode and outcome"),
		metric.WithUnit("{query}"))
	collect(err)
	in.queryDuration, err = meter.Float64Histogram("rag.query.duration",
		metric.WithDescription("End-to-end question latency"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30))
	collect(err)
	in.generationTotal, err = meter.Int64Counter("rag.generation.total",
		metric.WithDescription("Generation provider calls"),
		metric.WithUnit("{request}"))
	collect(err)
	in.generationDur, err = meter.Float64Histogram("rag.generation.duration",
		metric.WithDescription("Generation provider latency"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.25, 0.5, 1, 2.5, 5, 10, 30, 60))
	collect(err)
	in.tokenTotal, err = meter.Int64Counter("rag.generation.tokens",
		metric.WithDescription("Tokens consumed by generation"),
		metric.WithUnit("{token}"))
	collect(err)
	in.batchTotal, err = meter.Int64Counter("embedding.batch.total",
		metric.WithDescription("Embedding batches, by outcome"),
		metric.WithUnit("{batch}"))
	collect(err)
	in.batchAttempts, err = meter.Int64Histogram("embedding.batch.attempts",
		metric.WithDescription("Attempts per embedding batch"),
		metric.WithUnit("{attempt}"),
		metric.WithExplicitBucketBoundaries(1, 2, 3, 4, 5))
	collect(err)
	in.batchDuration, err = meter.Float64Histogram("embedding.batch.duration",
		metric.WithDescription("Embedding batch latency including retries"),
		metric.WithUnit("s"))
	collect(err)
	in.cacheLookups, err = meter.Int64Counter("rag.query_cache.lookups",
		metric.WithDescription("Query embedding cache lookups, by result"),
		metric.WithUnit("{lookup}"))
	collect(err)

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return &in, nil
}

// ObserveQuery 记录一次问答
func (in *Instruments) ObserveQuery(mode, outcome string, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("mode", mode),
		attribute.String("outcome", outcome),
	)
	ctx := context.Background()
	in.queryTotal.Add(ctx, 1, attrs)
	in.queryDuration.Record(ctx, duration.Seconds(), attrs)
}

// ObserveGeneration 记录一次生成调用与 token 用量
func (in *Instruments) ObserveGeneration(provider, model, status string, duration time.Duration, usage llm.Usage) {
	ctx := context.Background()
	attrs := metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("model", model),
		attribute.String("status", status),
	)
	in.generationTotal.Add(ctx, 1, attrs)
	in.generationDur.Record(ctx, duration.Seconds(), attrs)

	for kind, n := range map[string]int{"prompt": usage.PromptTokens, "completion": usage.CompletionTokens} {
		if n > 0 {
			in.tokenTotal.Add(ctx, int64(n), metric.WithAttributes(
				attribute.String("provider", provider),
				attribute.String("model", model),
				attribute.String("type", kind),
			))
		}
	}
}

// ObserveEmbeddingBatch 记录一个嵌入批次
func (in *Instruments) ObserveEmbeddingBatch(provider string, size int, attempts int, outcome retry.Outcome, duration time.Duration) {
	ctx := context.Background()
	attrs := metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("outcome", outcome.String()),
	)
	in.batchTotal.Add(ctx, 1, attrs)
	in.batchAttempts.Record(ctx, int64(attempts), attrs)
	in.batchDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordCacheHit 查询向量缓存命中
func (in *Instruments) RecordCacheHit(cacheType string) {
	in.cacheLookups.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("cache", cacheType), attribute.String("result", "hit")))
}

// RecordCacheMiss 查询向量缓存未命中
func (in *Instruments) RecordCacheMiss(cacheType string) {
	in.cacheLookups.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("cache", cacheType), attribute.String("result", "miss")))
}
