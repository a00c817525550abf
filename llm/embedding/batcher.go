package embedding

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/scripturerag/llm/retry"
	"github.com/BaSui01/scripturerag/types"
)

// BatcherConfig 分批嵌入配置
type BatcherConfig struct {
	// BatchSize 每批文本数，至少 1
	BatchSize int
	// BatchInterval 每批成功后、下一批开始前的固定停顿
	BatchInterval time.Duration
	// MaxAttempts 限流时每批的总尝试次数（含首次）
	MaxAttempts int
	// BaseDelay 第一次重试前的等待，之后每次翻倍
	BaseDelay time.Duration
	// ProgressEvery 每处理多少批输出一次进度日志，0 表示不输出
	ProgressEvery int
}

// DefaultBatcherConfig 50 条一批、间隔 0.5s、限流最多尝试 5 次（5s 起步翻倍）
func DefaultBatcherConfig() BatcherConfig {
	return BatcherConfig{
		BatchSize:     50,
		BatchInterval: 500 * time.Millisecond,
		MaxAttempts:   5,
		BaseDelay:     5 * time.Second,
		ProgressEvery: 20,
	}
}

// BatchObserver 接收每一批的执行结果（指标采集用）
type BatchObserver interface {
	ObserveEmbeddingBatch(provider string, size int, attempts int, outcome retry.Outcome, duration time.Duration)
}

type nopBatchObserver struct{}

func (nopBatchObserver) ObserveEmbeddingBatch(string, int, int, retry.Outcome, time.Duration) {}

// BatcherOption 配置 Batcher
type BatcherOption func(*Batcher)

// WithBatchObserver 设置批次观察者
func WithBatchObserver(o BatchObserver) BatcherOption {
	return func(b *Batcher) {
		if o != nil {
			b.observer = o
		}
	}
}

// WithRetryOptions 透传给内部重试器（测试中用于替换等待实现）
func WithRetryOptions(opts ...retry.Option) BatcherOption {
	return func(b *Batcher) {
		b.retryOpts = append(b.retryOpts, opts...)
	}
}

// WithPause 替换批间停顿的实现（测试用）
func WithPause(fn retry.SleepFunc) BatcherOption {
	return func(b *Batcher) {
		if fn != nil {
			b.pause = fn
		}
	}
}

// Batcher 按固定批大小调用 Provider：批间限速，限流错误按指数退避重试，
// 其他错误立即返回。构建索引与查询向量化共用同一路径。
type Batcher struct {
	provider  Provider
	cfg       BatcherConfig
	retryer   retry.Retryer
	retryOpts []retry.Option
	observer  BatchObserver
	pause     retry.SleepFunc
	logger    *zap.Logger
}

// NewBatcher 创建分批执行器
func NewBatcher(provider Provider, cfg BatcherConfig, logger *zap.Logger, opts ...BatcherOption) *Batcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 1
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.BatchInterval < 0 {
		cfg.BatchInterval = 0
	}

	b := &Batcher{
		provider: provider,
		cfg:      cfg,
		observer: nopBatchObserver{},
		pause:    pauseContext,
		logger:   logger.With(zap.String("component", "embedding_batcher"), zap.String("provider", provider.Name())),
	}
	for _, opt := range opts {
		opt(b)
	}

	b.retryer = retry.NewBackoffRetryer(&retry.RetryPolicy{
		MaxAttempts:  cfg.MaxAttempts,
		InitialDelay: cfg.BaseDelay,
		MaxDelay:     cfg.BaseDelay * time.Duration(1<<uint(cfg.MaxAttempts)),
		Multiplier:   2.0,
		ShouldRetry:  IsRateLimited,
		OnRetry: func(attempt int, err error, delay time.Duration) {
			b.logger.Warn("rate limited, backing off",
				zap.Int("attempt", attempt),
				zap.Duration("wait", delay),
				zap.Error(err),
			)
		},
	}, logger, b.retryOpts...)

	return b
}

// ProviderName 返回底层 Provider 名称
func (b *Batcher) ProviderName() string { return b.provider.Name() }

// EmbedAll 嵌入全部文本，返回与输入等长、同序的向量。
// 任一批失败即整体失败，不返回部分结果。
func (b *Batcher) EmbedAll(ctx context.Context, texts []string, inputType InputType) ([][]float64, error) {
	if len(texts) == 0 {
		return [][]float64{}, nil
	}

	totalBatches := (len(texts) + b.cfg.BatchSize - 1) / b.cfg.BatchSize
	out := make([][]float64, 0, len(texts))

	for batchIdx := 0; batchIdx < totalBatches; batchIdx++ {
		start := batchIdx * b.cfg.BatchSize
		end := min(start+b.cfg.BatchSize, len(texts))
		batch := texts[start:end]

		vecs, err := b.embedBatch(ctx, batch, inputType)
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)

		if b.cfg.ProgressEvery > 0 && batchIdx > 0 && batchIdx%b.cfg.ProgressEvery == 0 {
			b.logger.Info("embedding progress",
				zap.Int("embedded", end),
				zap.Int("total", len(texts)),
				zap.Int("batch", batchIdx+1),
				zap.Int("batches", totalBatches),
			)
		}

		// 最后一批之后不停顿
		if batchIdx < totalBatches-1 && b.cfg.BatchInterval > 0 {
			if err := b.pause(ctx, b.cfg.BatchInterval); err != nil {
				return nil, err
			}
		}
	}

	return out, nil
}

func pauseContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// EmbedOne 嵌入单条文本（查询路径）
func (b *Batcher) EmbedOne(ctx context.Context, text string, inputType InputType) ([]float64, error) {
	vecs, err := b.EmbedAll(ctx, []string{text}, inputType)
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (b *Batcher) embedBatch(ctx context.Context, batch []string, inputType InputType) ([][]float64, error) {
	started := time.Now()
	resp, res := retry.DoWithResultTyped(ctx, b.retryer, func(ctx context.Context) (*EmbeddingResponse, error) {
		return b.provider.Embed(ctx, &EmbeddingRequest{Input: batch, InputType: inputType})
	})
	b.observer.ObserveEmbeddingBatch(b.provider.Name(), len(batch), res.Attempts, res.Outcome, time.Since(started))

	switch res.Outcome {
	case retry.OutcomeSucceeded:
	case retry.OutcomeExhausted:
		return nil, types.NewError(types.ErrProviderFailure,
			fmt.Sprintf("embedding still rate limited after %d attempts", res.Attempts)).
			WithCause(res.Err).
			WithHTTPStatus(http.StatusBadGateway).
			WithProvider(b.provider.Name())
	default:
		return nil, res.Err
	}

	if resp == nil || len(resp.Embeddings) != len(batch) {
		got := 0
		if resp != nil {
			got = len(resp.Embeddings)
		}
		return nil, types.NewError(types.ErrUpstreamError,
			fmt.Sprintf("embedding count mismatch: sent %d texts, got %d vectors", len(batch), got)).
			WithHTTPStatus(http.StatusBadGateway).
			WithProvider(b.provider.Name())
	}
	return resp.Vectors(), nil
}
