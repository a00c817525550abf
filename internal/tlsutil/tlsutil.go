package tlsutil

import (
	"crypto/tls"
	"net"
	"net/http"
	"slices"
	"time"
)

// aeadSuites TLS 1.2 下允许的套件，TLS 1.3 套件由 Go 固定
var aeadSuites = []uint16{
	tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
	tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
	tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
	tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
	tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305,
	tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305,
}

// 上游连接参数。嵌入批次与生成请求打到同一个主机，每主机空闲连接放宽到 16。
const (
	dialTimeout         = 30 * time.Second
	keepAlive           = 30 * time.Second
	idleConnTimeout     = 90 * time.Second
	handshakeTimeout    = 10 * time.Second
	maxIdleConns        = 100
	maxIdleConnsPerHost = 16
)

// DefaultTLSConfig 返回 TLS 1.2 起步、仅 AEAD 套件的配置，每次调用都是新副本。
func DefaultTLSConfig() *tls.Config {
	return &tls.Config{
		MinVersion:   tls.VersionTLS12,
		CipherSuites: slices.Clone(aeadSuites),
	}
}

// ClientTLSConfig 为连接 addr 的客户端生成配置，ServerName 取主机部分。
func ClientTLSConfig(addr string) *tls.Config {
	cfg := DefaultTLSConfig()
	cfg.ServerName = hostOf(addr)
	return cfg
}

func hostOf(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}

// SecureTransport 供 Gemini 嵌入与生成客户端共用
func SecureTransport() *http.Transport {
	dialer := &net.Dialer{Timeout: dialTimeout, KeepAlive: keepAlive}
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		TLSClientConfig:       DefaultTLSConfig(),
		TLSHandshakeTimeout:   handshakeTimeout,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          maxIdleConns,
		MaxIdleConnsPerHost:   maxIdleConnsPerHost,
		IdleConnTimeout:       idleConnTimeout,
		ExpectContinueTimeout: time.Second,
	}
}

// SecureHTTPClient 带整体超时的客户端
func SecureHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout, Transport: SecureTransport()}
}
