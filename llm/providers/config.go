package providers

import (
	"net/http"
	"time"

	"github.com/BaSui01/scripturerag/internal/tlsutil"
)

// DefaultTimeout 生成请求的默认超时
const DefaultTimeout = 120 * time.Second

// BaseProviderConfig 所有 Provider 共享的基础配置字段。
type BaseProviderConfig struct {
	APIKey  string        `json:"api_key" yaml:"api_key"`
	BaseURL string        `json:"base_url" yaml:"base_url"`
	Model   string        `json:"model,omitempty" yaml:"model,omitempty"`
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// GeminiConfig Gemini Provider 配置
type GeminiConfig struct {
	BaseProviderConfig `yaml:",inline"`
}

// OllamaConfig 本地 Ollama Provider 配置（BaseURL 为空时读取 OLLAMA_HOST）
type OllamaConfig struct {
	BaseProviderConfig `yaml:",inline"`
}

// NewHTTPClient 按超时创建 TLS 加固的客户端，timeout 为 0 时使用 DefaultTimeout
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return tlsutil.SecureHTTPClient(timeout)
}
