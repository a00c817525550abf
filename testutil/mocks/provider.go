// Package mocks 提供生成与嵌入提供者的测试替身，支持固定响应、
// 调用记录与错误注入。
package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/BaSui01/scripturerag/llm"
)

// MockProvider 是 llm.Provider 的模拟实现
type MockProvider struct {
	mu sync.RWMutex

	response         string
	err              error
	promptTokens     int
	completionTokens int
	delay            time.Duration
	generateFunc     func(ctx context.Context, req *llm.GenerateRequest) (*llm.GenerateResponse, error)

	calls []*llm.GenerateRequest
}

// NewMockProvider 创建新的 MockProvider
func NewMockProvider() *MockProvider {
	return &MockProvider{
		response:         "Mock response",
		promptTokens:     10,
		completionTokens: 20,
	}
}

// WithResponse 设置固定响应内容
func (m *MockProvider) WithResponse(response string) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.response = response
	return m
}

// WithError 设置返回错误
func (m *MockProvider) WithError(err error) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// WithTokenUsage 设置 Token 使用量
func (m *MockProvider) WithTokenUsage(prompt, completion int) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.promptTokens = prompt
	m.completionTokens = completion
	return m
}

// WithDelay 设置响应延迟
func (m *MockProvider) WithDelay(d time.Duration) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
	return m
}

// WithGenerateFunc 设置自定义生成函数（优先于固定响应）
func (m *MockProvider) WithGenerateFunc(fn func(ctx context.Context, req *llm.GenerateRequest) (*llm.GenerateResponse, error)) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.generateFunc = fn
	return m
}

// Name 实现 llm.Provider
func (m *MockProvider) Name() string { return "mock" }

// Generate 实现 llm.Provider
func (m *MockProvider) Generate(ctx context.Context, req *llm.GenerateRequest) (*llm.GenerateResponse, error) {
	m.mu.Lock()
	m.calls = append(m.calls, req)
	fn, err, delay := m.generateFunc, m.err, m.delay
	response, prompt, completion := m.response, m.promptTokens, m.completionTokens
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	if fn != nil {
		return fn(ctx, req)
	}
	if err != nil {
		return nil, err
	}
	return &llm.GenerateResponse{
		Provider:     m.Name(),
		Model:        req.Model,
		Text:         response,
		FinishReason: "stop",
		Usage: llm.Usage{
			PromptTokens:     prompt,
			CompletionTokens: completion,
			TotalTokens:      prompt + completion,
		},
		CreatedAt: time.Now(),
	}, nil
}

// CallCount 返回调用次数
func (m *MockProvider) CallCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.calls)
}

// Calls 返回调用记录副本
func (m *MockProvider) Calls() []*llm.GenerateRequest {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*llm.GenerateRequest, len(m.calls))
	copy(out, m.calls)
	return out
}

// LastCall 返回最近一次请求，没有调用时为 nil
func (m *MockProvider) LastCall() *llm.GenerateRequest {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.calls) == 0 {
		return nil
	}
	return m.calls[len(m.calls)-1]
}

// Reset 清空调用记录
func (m *MockProvider) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}
