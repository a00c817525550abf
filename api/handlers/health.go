package handlers

import (
	"context"
	"net/http"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/scripturerag/api"
)

// StoreStats 索引统计（由 rag.CorpusStore 实现）
type StoreStats interface {
	Count() int
	CorpusCounts() map[string]int
}

// HealthHandler 提供索引统计与存活、就绪探针
type HealthHandler struct {
	logger *zap.Logger
	store  StoreStats
	checks []HealthCheck
	mu     sync.RWMutex
}

// HealthCheck 就绪检查项
type HealthCheck interface {
	Name() string
	Check(ctx context.Context) error
}

// ServiceHealthResponse 探针响应
type ServiceHealthResponse struct {
	Status    string                 `json:"status"` // "healthy", "unhealthy"
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// CheckResult 单个检查结果
type CheckResult struct {
	Status  string `json:"status"` // "pass", "fail"
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// NewHealthHandler 创建健康检查处理器，store 可为 nil
func NewHealthHandler(store StoreStats, logger *zap.Logger) *HealthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HealthHandler{logger: logger, store: store}
}

// RegisterCheck 注册就绪检查，同名检查后注册的覆盖先注册的结果
func (h *HealthHandler) RegisterCheck(check HealthCheck) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks = append(h.checks, check)
}

// HandleHealth 处理 /api/health 请求：索引规模与各语料条数
// @Summary 索引健康检查
// @Description 返回索引中的总条数与各语料条数
// @Tags 健康
// @Produce json
// @Success 200 {object} api.StoreHealth "索引状况"
// @Router /api/health [get]
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	resp := api.StoreHealth{Status: "ok", Texts: map[string]int{}}
	if h.store != nil {
		resp.TotalEntries = h.store.Count()
		if counts := h.store.CorpusCounts(); counts != nil {
			resp.Texts = counts
		}
	}
	WriteJSON(w, http.StatusOK, resp)
}

// HandleHealthz 处理 /healthz 请求（Kubernetes 风格）
// @Summary Kubernetes 活跃度探针
// @Tags 健康
// @Produce json
// @Success 200 {object} ServiceHealthResponse "服务处于活动状态"
// @Router /healthz [get]
func (h *HealthHandler) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	// 只说明进程还活着，不看依赖
	WriteJSON(w, http.StatusOK, ServiceHealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
	})
}

// HandleReady 处理 /ready 请求（就绪检查）
// @Summary 准备情况检查
// @Description 并发执行已注册的检查（索引、数据库、Redis），任一失败返回 503
// @Tags 健康
// @Produce json
// @Success 200 {object} ServiceHealthResponse "服务已准备就绪"
// @Failure 503 {object} ServiceHealthResponse "服务尚未准备好"
// @Router /ready [get]
func (h *HealthHandler) HandleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	h.mu.RLock()
	checks := slices.Clone(h.checks)
	h.mu.RUnlock()

	resp := ServiceHealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
		Checks:    h.runChecks(ctx, checks),
	}

	code := http.StatusOK
	for _, res := range resp.Checks {
		if res.Status != "pass" {
			resp.Status = "unhealthy"
			code = http.StatusServiceUnavailable
			break
		}
	}
	WriteJSON(w, code, resp)
}

// readyTimeout 所有检查共用的截止时间
const readyTimeout = 5 * time.Second

func (h *HealthHandler) runChecks(ctx context.Context, checks []HealthCheck) map[string]CheckResult {
	results := make([]CheckResult, len(checks))
	var wg sync.WaitGroup
	for i, check := range checks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = h.runCheck(ctx, check)
		}()
	}
	wg.Wait()

	out := make(map[string]CheckResult, len(checks))
	for i, check := range checks {
		out[check.Name()] = results[i]
	}
	return out
}

func (h *HealthHandler) runCheck(ctx context.Context, check HealthCheck) CheckResult {
	start := time.Now()
	err := check.Check(ctx)
	latency := time.Since(start)

	if err == nil {
		return CheckResult{Status: "pass", Latency: latency.String()}
	}
	h.logger.Warn("readiness check failed",
		zap.String("check", check.Name()),
		zap.Duration("latency", latency),
		zap.Error(err),
	)
	return CheckResult{Status: "fail", Message: err.Error(), Latency: latency.String()}
}

// HandleVersion 处理 /version 请求
// @Summary 版本信息
// @Tags 健康
// @Produce json
// @Success 200 {object} Response "版本信息"
// @Router /version [get]
func (h *HealthHandler) HandleVersion(version, buildTime, gitCommit string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteSuccess(w, r, map[string]string{
			"version":    version,
			"build_time": buildTime,
			"git_commit": gitCommit,
		})
	}
}

type funcCheck struct {
	name string
	fn   func(ctx context.Context) error
}

func (c *funcCheck) Name() string                    { return c.name }
func (c *funcCheck) Check(ctx context.Context) error { return c.fn(ctx) }

// NewCheck 用函数构造检查项（数据库 Ping、Redis Ping 等）
func NewCheck(name string, fn func(ctx context.Context) error) HealthCheck {
	return &funcCheck{name: name, fn: fn}
}

// NewStoreReadyCheck 索引未构建或未加载时失败
func NewStoreReadyCheck(ready func() error) HealthCheck {
	return NewCheck("corpus_store", func(context.Context) error {
		return ready()
	})
}
