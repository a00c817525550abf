package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/scripturerag/internal/tlsutil"
)

// Config 单个监听端口的配置
type Config struct {
	// Name 用于日志区分 api / metrics
	Name            string
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	MaxHeaderBytes  int
	ShutdownTimeout time.Duration
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Name:            "api",
		Addr:            ":8080",
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    30 * time.Second,
		IdleTimeout:     120 * time.Second,
		MaxHeaderBytes:  1 << 20,
		ShutdownTimeout: 30 * time.Second,
	}
}

// Manager 管理一个 http.Server 的启动与优雅关闭。
// 生命周期只有一次：Shutdown 之后不能再 Start。
type Manager struct {
	server *http.Server
	config Config
	logger *zap.Logger

	mu       sync.RWMutex
	listener net.Listener
	closed   bool

	// serveErr 只保留第一个异常退出错误
	serveErr chan error
}

// NewManager 创建管理器，nil logger 使用 Nop
func NewManager(handler http.Handler, config Config, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.Name == "" {
		config.Name = "http"
	}

	return &Manager{
		server: &http.Server{
			Addr:           config.Addr,
			Handler:        handler,
			ReadTimeout:    config.ReadTimeout,
			WriteTimeout:   config.WriteTimeout,
			IdleTimeout:    config.IdleTimeout,
			MaxHeaderBytes: config.MaxHeaderBytes,
		},
		config:   config,
		logger:   logger.With(zap.String("component", "http_server"), zap.String("server", config.Name)),
		serveErr: make(chan error, 1),
	}
}

// Start 监听并在后台提供 HTTP 服务
func (m *Manager) Start() error {
	return m.listen(func(l net.Listener) error { return m.server.Serve(l) },
		zap.String("scheme", "http"))
}

// StartTLS 监听并在后台提供 HTTPS 服务。证书在首个连接之前加载，
// 加载失败通过 WaitForShutdown 返回。
func (m *Manager) StartTLS(certFile, keyFile string) error {
	m.server.TLSConfig = tlsutil.DefaultTLSConfig()
	return m.listen(func(l net.Listener) error { return m.server.ServeTLS(l, certFile, keyFile) },
		zap.String("scheme", "https"), zap.String("cert", certFile))
}

func (m *Manager) listen(serve func(net.Listener) error, fields ...zap.Field) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch {
	case m.closed:
		return errors.New("server is closed")
	case m.listener != nil:
		return errors.New("server already started")
	}

	l, err := net.Listen("tcp", m.config.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", m.config.Addr, err)
	}
	m.listener = l
	m.logger.Info("listening", append(fields, zap.String("addr", l.Addr().String()))...)

	go func() {
		if err := serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error("server exited", zap.Error(err))
			select {
			case m.serveErr <- err:
			default:
			}
		}
	}()
	return nil
}

// Shutdown 在 ShutdownTimeout 内等待进行中的请求结束。重复调用是安全的。
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true

	if m.config.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.config.ShutdownTimeout)
		defer cancel()
	}

	if err := m.server.Shutdown(ctx); err != nil {
		m.logger.Error("shutdown failed", zap.Error(err))
		return err
	}
	m.listener = nil
	m.logger.Info("server stopped")
	return nil
}

// WaitForShutdown 阻塞到 ctx 结束（进程信号由调用方挂在 ctx 上）或服务异常退出，
// 然后关闭服务器。返回异常退出的错误。
func (m *Manager) WaitForShutdown(ctx context.Context) error {
	var exitErr error
	select {
	case <-ctx.Done():
		m.logger.Info("shutting down", zap.NamedError("reason", context.Cause(ctx)))
	case exitErr = <-m.serveErr:
	}

	if err := m.Shutdown(context.WithoutCancel(ctx)); err != nil && exitErr == nil {
		exitErr = err
	}
	return exitErr
}

// Addr 已启动时返回实际监听地址（配置为 :0 时可拿到随机端口）
func (m *Manager) Addr() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.listener != nil {
		return m.listener.Addr().String()
	}
	return m.config.Addr
}

// IsRunning 已启动且尚未关闭
func (m *Manager) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listener != nil && !m.closed
}
