package types

import (
	"errors"
	"fmt"
)

// ErrorCode 跨层共享的错误码，handlers 据此映射 HTTP 状态
type ErrorCode string

// 请求与上游提供者
const (
	ErrInvalidRequest      ErrorCode = "INVALID_REQUEST"
	ErrUnauthorized        ErrorCode = "UNAUTHORIZED"
	ErrRateLimited         ErrorCode = "RATE_LIMITED"
	ErrUpstreamTimeout     ErrorCode = "UPSTREAM_TIMEOUT"
	ErrUpstreamError       ErrorCode = "UPSTREAM_ERROR"
	ErrProviderFailure     ErrorCode = "PROVIDER_FAILURE"
	ErrInternalError       ErrorCode = "INTERNAL_ERROR"
	ErrServiceUnavailable  ErrorCode = "SERVICE_UNAVAILABLE"
	ErrProviderUnavailable ErrorCode = "PROVIDER_UNAVAILABLE"
)

// 索引与快照
const (
	ErrCorruptSnapshot   ErrorCode = "CORRUPT_SNAPSHOT"
	ErrSnapshotNotFound  ErrorCode = "SNAPSHOT_NOT_FOUND"
	ErrCorpusUnavailable ErrorCode = "CORPUS_UNAVAILABLE"
)

// Error 带错误码的结构化错误。Cause 只进日志，不序列化给客户端。
type Error struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	HTTPStatus int       `json:"http_status,omitempty"`
	Retryable  bool      `json:"retryable"`
	Provider   string    `json:"provider,omitempty"`
	Cause      error     `json:"-"`
}

func (e *Error) Error() string {
	msg := "[" + string(e.Code) + "] " + e.Message
	if e.Cause == nil {
		return msg
	}
	return fmt.Sprintf("%s: %v", msg, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

// NewError 构造错误，其余字段用 With* 链式补充
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithHTTPStatus 覆盖按错误码推导的状态码
func (e *Error) WithHTTPStatus(status int) *Error {
	e.HTTPStatus = status
	return e
}

func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// WithProvider 记录出错的嵌入或生成提供者名称
func (e *Error) WithProvider(provider string) *Error {
	e.Provider = provider
	return e
}

// AsError 取错误链上第一个 *Error
func AsError(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

// IsRetryable 错误链上没有 *Error 时视为不可重试
func IsRetryable(err error) bool {
	e, ok := AsError(err)
	return ok && e.Retryable
}

// GetErrorCode 没有 *Error 时返回空串
func GetErrorCode(err error) ErrorCode {
	if e, ok := AsError(err); ok {
		return e.Code
	}
	return ""
}

// HasCode 错误链上是否带有指定错误码
func HasCode(err error, code ErrorCode) bool {
	return GetErrorCode(err) == code
}
