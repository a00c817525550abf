package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/BaSui01/scripturerag/api/handlers"
	"github.com/BaSui01/scripturerag/guardrails"
	"github.com/BaSui01/scripturerag/internal/server"
	"github.com/BaSui01/scripturerag/internal/telemetry"
)

// =============================================================================
// 🖥️ Server 结构
// =============================================================================

// Server 问答服务：API 监听与 metrics 监听
type Server struct {
	app       *app
	telemetry *telemetry.Providers
	logger    *zap.Logger

	httpManager    *server.Manager
	metricsManager *server.Manager

	healthHandler *handlers.HealthHandler
	queryHandler  *handlers.QueryHandler

	rateLimiterCancel context.CancelFunc
}

// NewServer 创建服务器实例，app 须已加载快照
func NewServer(a *app, otel *telemetry.Providers) *Server {
	return &Server{
		app:       a,
		telemetry: otel,
		logger:    a.logger,
	}
}

// =============================================================================
// 🚀 启动流程
// =============================================================================

// Start 启动所有监听（非阻塞）
func (s *Server) Start() error {
	s.initHandlers()

	if err := s.startHTTPServer(); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	if err := s.startMetricsServer(); err != nil {
		return fmt.Errorf("failed to start metrics server: %w", err)
	}

	s.logger.Info("All servers started",
		zap.Int("http_port", s.app.cfg.Server.HTTPPort),
		zap.Int("metrics_port", s.app.cfg.Server.MetricsPort),
	)
	return nil
}

func (s *Server) initHandlers() {
	s.healthHandler = handlers.NewHealthHandler(s.app.store, s.logger)
	s.healthHandler.RegisterCheck(handlers.NewStoreReadyCheck(s.app.store.Ready))
	if s.app.pool != nil {
		s.healthHandler.RegisterCheck(handlers.NewCheck("database", s.app.pool.Ping))
	}
	if s.app.cache != nil {
		s.healthHandler.RegisterCheck(handlers.NewCheck("redis", s.app.cache.Ping))
	}

	guard := guardrails.NewQuestionGuard(s.app.cfg.Server.MaxQuestionLength)
	s.queryHandler = handlers.NewQueryHandler(s.app.orchestrator, s.app.store, guard, s.logger)
}

// newRouter 注册全部路由
func newRouter(health *handlers.HealthHandler, query *handlers.QueryHandler) *http.ServeMux {
	mux := http.NewServeMux()

	// 探针与版本信息
	mux.HandleFunc("/healthz", health.HandleHealthz)
	mux.HandleFunc("/ready", health.HandleReady)
	mux.HandleFunc("/version", health.HandleVersion(Version, BuildTime, GitCommit))

	// 问答 API
	mux.HandleFunc("/api/health", health.HandleHealth)
	mux.HandleFunc("/api/ask", query.HandleAsk)
	mux.HandleFunc("/api/texts", query.HandleTexts)

	return mux
}

// skipAuthPaths 不需要 API Key 的路径
var skipAuthPaths = []string{"/healthz", "/ready", "/version", "/api/health"}

// buildHandler 路由加中间件链
func (s *Server) buildHandler(ctx context.Context) http.Handler {
	cfg := s.app.cfg.Server
	return Chain(newRouter(s.healthHandler, s.queryHandler),
		Recovery(s.logger),
		RequestID(),
		OTelTracing(),
		SecurityHeaders(),
		RequestLogger(s.logger),
		MetricsMiddleware(s.app.collector),
		CORS(cfg.CORSAllowedOrigins),
		RateLimiter(ctx, float64(cfg.RateLimitRPS), cfg.RateLimitBurst, s.logger),
		APIKeyAuth(cfg.APIKeys, skipAuthPaths, cfg.AllowQueryAPIKey, s.logger),
	)
}

// =============================================================================
// 🌐 HTTP 服务器
// =============================================================================

func (s *Server) startHTTPServer() error {
	cfg := s.app.cfg.Server

	rateLimiterCtx, cancel := context.WithCancel(context.Background())
	s.rateLimiterCancel = cancel

	s.httpManager = server.NewManager(s.buildHandler(rateLimiterCtx), server.Config{
		Name:            "api",
		Addr:            fmt.Sprintf(":%d", cfg.HTTPPort),
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		IdleTimeout:     2 * cfg.ReadTimeout,
		MaxHeaderBytes:  1 << 20, // 1 MB
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, s.logger)

	if cfg.TLSCertFile != "" {
		return s.httpManager.StartTLS(cfg.TLSCertFile, cfg.TLSKeyFile)
	}
	return s.httpManager.Start()
}

// =============================================================================
// 📊 Metrics 服务器
// =============================================================================

func (s *Server) startMetricsServer() error {
	cfg := s.app.cfg.Server
	if cfg.MetricsPort == 0 {
		s.logger.Info("Metrics server disabled")
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	s.metricsManager = server.NewManager(mux, server.Config{
		Name:            "metrics",
		Addr:            fmt.Sprintf(":%d", cfg.MetricsPort),
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.ReadTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, s.logger)

	return s.metricsManager.Start()
}

// =============================================================================
// 🛑 关闭流程
// =============================================================================

// WaitForShutdown 等待信号、ctx 结束或 API 监听异常退出，然后关闭全部组件
func (s *Server) WaitForShutdown(ctx context.Context) error {
	var err error
	if s.httpManager != nil {
		err = s.httpManager.WaitForShutdown(ctx)
	}
	s.Shutdown()
	return err
}

// Shutdown 优雅关闭所有服务
func (s *Server) Shutdown() {
	s.logger.Info("Starting graceful shutdown...")

	ctx, cancel := context.WithTimeout(context.Background(), s.app.cfg.Server.ShutdownTimeout+5*time.Second)
	defer cancel()

	if s.rateLimiterCancel != nil {
		s.rateLimiterCancel()
	}

	if s.httpManager != nil {
		if err := s.httpManager.Shutdown(ctx); err != nil {
			s.logger.Error("HTTP server shutdown error", zap.Error(err))
		}
	}
	if s.metricsManager != nil {
		if err := s.metricsManager.Shutdown(ctx); err != nil {
			s.logger.Error("Metrics server shutdown error", zap.Error(err))
		}
	}

	if s.telemetry != nil {
		if err := s.telemetry.Shutdown(ctx); err != nil {
			s.logger.Error("Telemetry shutdown error", zap.Error(err))
		}
	}

	s.app.Close()
	s.logger.Info("Graceful shutdown completed")
}
