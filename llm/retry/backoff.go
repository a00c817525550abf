package retry

import (
	"context"
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"
)

// Outcome 描述一次带重试调用的最终结果
type Outcome int

const (
	// OutcomeSucceeded 某次尝试成功
	OutcomeSucceeded Outcome = iota
	// OutcomeExhausted 可重试错误持续出现，尝试次数耗尽
	OutcomeExhausted
	// OutcomeNonRetryable 遇到不可重试的错误，立即停止
	OutcomeNonRetryable
	// OutcomeCanceled 等待期间 context 被取消
	OutcomeCanceled
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSucceeded:
		return "succeeded"
	case OutcomeExhausted:
		return "exhausted"
	case OutcomeNonRetryable:
		return "non_retryable"
	case OutcomeCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// RetryPolicy 定义重试策略配置
type RetryPolicy struct {
	MaxAttempts  int                                               // 总尝试次数（含首次，至少 1）
	InitialDelay time.Duration                                     // 第一次重试前的等待
	MaxDelay     time.Duration                                     // 最大延迟时间
	Multiplier   float64                                           // 延迟时间倍增因子（指数退避）
	Jitter       bool                                              // 是否添加随机抖动
	ShouldRetry  func(err error) bool                              // 错误分类，nil 表示所有错误都可重试
	OnRetry      func(attempt int, err error, delay time.Duration) // 重试回调
}

// DefaultRetryPolicy 返回向量化调用使用的默认策略：
// 5 次尝试，5s 起步，每次翻倍。
func DefaultRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		MaxAttempts:  5,
		InitialDelay: 5 * time.Second,
		MaxDelay:     80 * time.Second,
		Multiplier:   2.0,
		Jitter:       false,
	}
}

// Result 是 Retryer 返回的类型化结果
type Result struct {
	Outcome  Outcome
	Attempts int
	// Err 为最后一次尝试的错误（Canceled 时为 ctx.Err()），成功时为 nil
	Err error
}

// OK 报告调用是否成功
func (r Result) OK() bool {
	return r.Outcome == OutcomeSucceeded
}

// Retryer 重试器接口
type Retryer interface {
	// Do 执行函数，失败时根据策略重试，返回类型化结果
	Do(ctx context.Context, fn func(ctx context.Context) error) Result
}

// SleepFunc 等待 d，context 取消时提前返回错误
type SleepFunc func(ctx context.Context, d time.Duration) error

// Option 配置 backoffRetryer
type Option func(*backoffRetryer)

// WithSleep 替换等待实现（测试中用于跳过真实延迟）
func WithSleep(fn SleepFunc) Option {
	return func(r *backoffRetryer) {
		if fn != nil {
			r.sleep = fn
		}
	}
}

// backoffRetryer 基于指数退避的重试器实现
type backoffRetryer struct {
	policy *RetryPolicy
	logger *zap.Logger
	sleep  SleepFunc
}

// NewBackoffRetryer 创建指数退避重试器
func NewBackoffRetryer(policy *RetryPolicy, logger *zap.Logger, opts ...Option) Retryer {
	if policy == nil {
		policy = DefaultRetryPolicy()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	// 参数校验，不修改调用方的策略
	p := *policy
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.InitialDelay < 0 {
		p.InitialDelay = 0
	}
	if p.MaxDelay < p.InitialDelay {
		p.MaxDelay = p.InitialDelay
	}
	if p.Multiplier < 1.0 {
		p.Multiplier = 2.0
	}

	r := &backoffRetryer{
		policy: &p,
		logger: logger.With(zap.String("component", "retry")),
		sleep:  sleepContext,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Do 实现 Retryer.Do
func (r *backoffRetryer) Do(ctx context.Context, fn func(ctx context.Context) error) Result {
	var lastErr error

	for attempt := 1; attempt <= r.policy.MaxAttempts; attempt++ {
		if attempt > 1 {
			delay := r.calculateDelay(attempt - 1)

			r.logger.Debug("retrying",
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", r.policy.MaxAttempts),
				zap.Duration("delay", delay),
				zap.Error(lastErr),
			)

			if r.policy.OnRetry != nil {
				r.policy.OnRetry(attempt, lastErr, delay)
			}

			if err := r.sleep(ctx, delay); err != nil {
				return Result{Outcome: OutcomeCanceled, Attempts: attempt - 1, Err: err}
			}
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			if attempt > 1 {
				r.logger.Info("retry succeeded", zap.Int("attempt", attempt))
			}
			return Result{Outcome: OutcomeSucceeded, Attempts: attempt}
		}

		if !r.isRetryable(lastErr) {
			r.logger.Debug("error is not retryable", zap.Error(lastErr))
			return Result{Outcome: OutcomeNonRetryable, Attempts: attempt, Err: lastErr}
		}
	}

	r.logger.Warn("retry attempts exhausted",
		zap.Int("attempts", r.policy.MaxAttempts),
		zap.Error(lastErr),
	)
	return Result{Outcome: OutcomeExhausted, Attempts: r.policy.MaxAttempts, Err: lastErr}
}

// calculateDelay 计算第 n 次重试前的等待：initial * multiplier^(n-1)
func (r *backoffRetryer) calculateDelay(retry int) time.Duration {
	delay := float64(r.policy.InitialDelay) * math.Pow(r.policy.Multiplier, float64(retry-1))

	if delay > float64(r.policy.MaxDelay) {
		delay = float64(r.policy.MaxDelay)
	}

	// ±25% 抖动
	if r.policy.Jitter {
		jitter := delay * 0.25
		delay = delay + (rand.Float64()*2-1)*jitter
	}

	if delay < float64(r.policy.InitialDelay) {
		delay = float64(r.policy.InitialDelay)
	}

	return time.Duration(delay)
}

// isRetryable 检查错误是否可重试
func (r *backoffRetryer) isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if r.policy.ShouldRetry == nil {
		return true
	}
	return r.policy.ShouldRetry(err)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
