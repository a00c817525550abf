package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/ollama/ollama/api"

	"github.com/BaSui01/scripturerag/types"
)

// googleStatusResourceExhausted 是 Google API 在配额或限流时返回的状态
const googleStatusResourceExhausted = "RESOURCE_EXHAUSTED"

// MapHTTPError 将 HTTP 状态码映射为带有合适重试标记的 types.Error
// 这是所有提供者使用的通用错误映射函数
func MapHTTPError(status int, msg string, provider string) *types.Error {
	var e *types.Error
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		e = types.NewError(types.ErrUnauthorized, msg)
	case http.StatusTooManyRequests:
		e = types.NewError(types.ErrRateLimited, msg).WithRetryable(true)
	case http.StatusBadRequest:
		e = types.NewError(types.ErrInvalidRequest, msg)
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		e = types.NewError(types.ErrUpstreamTimeout, msg).WithRetryable(true)
	case http.StatusServiceUnavailable, http.StatusBadGateway:
		e = types.NewError(types.ErrUpstreamError, msg).WithRetryable(true)
	default:
		e = types.NewError(types.ErrUpstreamError, msg).WithRetryable(status >= 500)
	}
	return e.WithHTTPStatus(status).WithProvider(provider)
}

// APIErrorBody Google 风格的错误响应体：{"error": {"code", "message", "status"}}
type APIErrorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
		Type    string `json:"type"`
	} `json:"error"`
}

// ReadErrorMessage 读取响应体中的错误消息与上游状态字段
// 尝试解析 JSON 错误响应，失败则回退到原始文本
func ReadErrorMessage(body io.Reader) (msg string, apiStatus string) {
	data, err := io.ReadAll(io.LimitReader(body, 1<<20))
	if err != nil {
		return "failed to read error response", ""
	}

	var errResp APIErrorBody
	if err := json.Unmarshal(data, &errResp); err == nil && errResp.Error.Message != "" {
		switch {
		case errResp.Error.Status != "":
			return fmt.Sprintf("%s (status: %s)", errResp.Error.Message, errResp.Error.Status), errResp.Error.Status
		case errResp.Error.Type != "":
			return fmt.Sprintf("%s (type: %s)", errResp.Error.Message, errResp.Error.Type), ""
		default:
			return errResp.Error.Message, ""
		}
	}

	return strings.TrimSpace(string(data)), ""
}

// MapResponseError 读取失败响应并映射为 types.Error。
// RESOURCE_EXHAUSTED 状态无论 HTTP 码如何都视为限流。
func MapResponseError(resp *http.Response, provider string) *types.Error {
	msg, apiStatus := ReadErrorMessage(resp.Body)
	if apiStatus == googleStatusResourceExhausted {
		return types.NewError(types.ErrRateLimited, msg).
			WithRetryable(true).
			WithHTTPStatus(http.StatusTooManyRequests).
			WithProvider(provider)
	}
	return MapHTTPError(resp.StatusCode, msg, provider)
}

// MapTransportError 将 client.Do 的错误映射为 types.Error
func MapTransportError(err error, provider string) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return types.NewError(types.ErrUpstreamTimeout, "upstream request timed out").
			WithCause(err).
			WithHTTPStatus(http.StatusGatewayTimeout).
			WithProvider(provider)
	}
	return types.NewError(types.ErrUpstreamError, err.Error()).
		WithCause(err).
		WithHTTPStatus(http.StatusBadGateway).
		WithRetryable(true).
		WithProvider(provider)
}

// MapOllamaError 将 ollama 客户端错误映射为 types.Error
func MapOllamaError(err error, provider string) error {
	var statusErr api.StatusError
	if errors.As(err, &statusErr) {
		msg := statusErr.ErrorMessage
		if msg == "" {
			msg = statusErr.Status
		}
		return MapHTTPError(statusErr.StatusCode, msg, provider).WithCause(err)
	}
	return MapTransportError(err, provider)
}

// DecodeError 响应体无法解析时的错误
func DecodeError(err error, provider string) *types.Error {
	return types.NewError(types.ErrUpstreamError, fmt.Sprintf("failed to decode response: %v", err)).
		WithCause(err).
		WithHTTPStatus(http.StatusBadGateway).
		WithRetryable(true).
		WithProvider(provider)
}

// SafeCloseBody 安全关闭 HTTP 响应体并忽略错误
func SafeCloseBody(body io.ReadCloser) {
	if body != nil {
		_ = body.Close()
	}
}
