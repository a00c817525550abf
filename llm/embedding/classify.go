package embedding

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/ollama/ollama/api"

	"github.com/BaSui01/scripturerag/types"
)

// IsRateLimited 判断错误是否属于限流类（可按退避策略重试）。
//
// 先看结构化信息：types.Error 的 RATE_LIMITED 码或 429 状态，
// 以及 ollama 的 api.StatusError。只有完全无类型的错误才回退到
// 消息文本匹配（"429"、"RESOURCE_EXHAUSTED"、"rate limit"）。
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	if e, ok := types.AsError(err); ok {
		return e.Code == types.ErrRateLimited || e.HTTPStatus == http.StatusTooManyRequests
	}

	var statusErr api.StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode == http.StatusTooManyRequests
	}

	return looksRateLimited(err.Error())
}

func looksRateLimited(msg string) bool {
	if strings.Contains(msg, "429") || strings.Contains(msg, "RESOURCE_EXHAUSTED") {
		return true
	}
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "rate limit") || strings.Contains(lower, "too many requests")
}
