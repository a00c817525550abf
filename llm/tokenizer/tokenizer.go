package tokenizer

import (
	"sync/atomic"

	"go.uber.org/zap"
)

// Tokenizer 统一的 token 计数接口
type Tokenizer interface {
	// CountTokens 返回给定文本的 token 数.
	CountTokens(text string) (int, error)

	// MaxTokens 返回模型的最大上下文长度.
	MaxTokens() int

	// Name 返回分词器的名称.
	Name() string
}

// ForModel 返回模型对应的计数器：优先 tiktoken，
// 编码数据不可用时（离线环境首次下载失败）回退到估算器。
func ForModel(model string, logger *zap.Logger) Tokenizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	primary := NewTiktokenTokenizer(model)
	return &fallbackTokenizer{
		primary:  primary,
		fallback: NewEstimatorTokenizer(model, primary.MaxTokens()),
		logger:   logger.With(zap.String("component", "tokenizer"), zap.String("model", model)),
	}
}

// fallbackTokenizer 先用 primary 计数，失败后永久切换到 fallback
type fallbackTokenizer struct {
	primary  Tokenizer
	fallback Tokenizer
	logger   *zap.Logger
	degraded atomic.Bool
}

func (f *fallbackTokenizer) CountTokens(text string) (int, error) {
	if !f.degraded.Load() {
		n, err := f.primary.CountTokens(text)
		if err == nil {
			return n, nil
		}
		if f.degraded.CompareAndSwap(false, true) {
			f.logger.Warn("tiktoken unavailable, falling back to estimator", zap.Error(err))
		}
	}
	return f.fallback.CountTokens(text)
}

func (f *fallbackTokenizer) MaxTokens() int { return f.primary.MaxTokens() }

func (f *fallbackTokenizer) Name() string {
	if f.degraded.Load() {
		return f.fallback.Name()
	}
	return f.primary.Name()
}
