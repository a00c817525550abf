package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/scripturerag/api"
)

// =============================================================================
// 🧪 测试辅助类型
// =============================================================================

type stubStore struct {
	counts map[string]int
}

func (s *stubStore) Count() int {
	total := 0
	for _, n := range s.counts {
		total += n
	}
	return total
}

func (s *stubStore) CorpusCounts() map[string]int { return s.counts }

// =============================================================================
// 🧪 HealthHandler 测试
// =============================================================================

func TestHealthHandler_HandleHealth(t *testing.T) {
	store := &stubStore{counts: map[string]int{"Bhagavad Gita": 700, "Upanishads": 300}}
	handler := NewHealthHandler(store, zap.NewNop())

	w := httptest.NewRecorder()
	handler.HandleHealth(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)

	var resp api.StoreHealth
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 1000, resp.TotalEntries)
	assert.Equal(t, 700, resp.Texts["Bhagavad Gita"])
	assert.Equal(t, 300, resp.Texts["Upanishads"])
}

func TestHealthHandler_HandleHealth_EmptyStore(t *testing.T) {
	handler := NewHealthHandler(nil, nil)

	w := httptest.NewRecorder()
	handler.HandleHealth(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","total_entries":0,"texts":{}}`, w.Body.String())
}

func TestHealthHandler_HandleHealthz(t *testing.T) {
	handler := NewHealthHandler(nil, zap.NewNop())

	w := httptest.NewRecorder()
	handler.HandleHealthz(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, w.Code)

	var status ServiceHealthResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&status))
	assert.Equal(t, "healthy", status.Status)
	assert.False(t, status.Timestamp.IsZero())
}

func TestHealthHandler_HandleReady(t *testing.T) {
	notReady := errors.New("corpus store not built or loaded")

	tests := []struct {
		name           string
		checks         []HealthCheck
		expectedStatus int
		checkStatus    func(*testing.T, *ServiceHealthResponse)
	}{
		{
			name:           "no checks - ready",
			expectedStatus: http.StatusOK,
			checkStatus: func(t *testing.T, status *ServiceHealthResponse) {
				assert.Equal(t, "healthy", status.Status)
			},
		},
		{
			name: "all checks pass",
			checks: []HealthCheck{
				NewCheck("database", func(context.Context) error { return nil }),
				NewStoreReadyCheck(func() error { return nil }),
			},
			expectedStatus: http.StatusOK,
			checkStatus: func(t *testing.T, status *ServiceHealthResponse) {
				assert.Len(t, status.Checks, 2)
				assert.Equal(t, "pass", status.Checks["database"].Status)
				assert.Equal(t, "pass", status.Checks["corpus_store"].Status)
			},
		},
		{
			name: "store not loaded",
			checks: []HealthCheck{
				NewCheck("redis", func(context.Context) error { return nil }),
				NewStoreReadyCheck(func() error { return notReady }),
			},
			expectedStatus: http.StatusServiceUnavailable,
			checkStatus: func(t *testing.T, status *ServiceHealthResponse) {
				assert.Equal(t, "unhealthy", status.Status)
				assert.Equal(t, "pass", status.Checks["redis"].Status)
				assert.Equal(t, "fail", status.Checks["corpus_store"].Status)
				assert.Equal(t, notReady.Error(), status.Checks["corpus_store"].Message)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(nil, zap.NewNop())
			for _, c := range tt.checks {
				h.RegisterCheck(c)
			}

			w := httptest.NewRecorder()
			h.HandleReady(w, httptest.NewRequest(http.MethodGet, "/ready", nil))

			assert.Equal(t, tt.expectedStatus, w.Code)

			var status ServiceHealthResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&status))
			tt.checkStatus(t, &status)
		})
	}
}

func TestHealthHandler_ReadyPassesDeadline(t *testing.T) {
	h := NewHealthHandler(nil, zap.NewNop())
	h.RegisterCheck(NewCheck("deadline", func(ctx context.Context) error {
		if _, ok := ctx.Deadline(); !ok {
			return errors.New("no deadline")
		}
		return nil
	}))

	w := httptest.NewRecorder()
	h.HandleReady(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHealthHandler_HandleVersion(t *testing.T) {
	handler := NewHealthHandler(nil, zap.NewNop())

	w := httptest.NewRecorder()
	handler.HandleVersion("1.0.0", "2026-01-01T00:00:00Z", "abc123")(w, httptest.NewRequest(http.MethodGet, "/version", nil))

	assert.Equal(t, http.StatusOK, w.Code)

	var resp Response
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.True(t, resp.Success)

	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "1.0.0", data["version"])
	assert.Equal(t, "2026-01-01T00:00:00Z", data["build_time"])
	assert.Equal(t, "abc123", data["git_commit"])
}

func TestHealthHandler_ConcurrentChecks(t *testing.T) {
	handler := NewHealthHandler(nil, zap.NewNop())
	for i := 0; i < 10; i++ {
		handler.RegisterCheck(NewCheck(string(rune('a'+i)), func(context.Context) error { return nil }))
	}

	done := make(chan bool)
	for i := 0; i < 10; i++ {
		go func() {
			w := httptest.NewRecorder()
			handler.HandleReady(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
			assert.Equal(t, http.StatusOK, w.Code)
			done <- true
		}()
	}
	for i := 0; i < 10; i++ {
		<-done
	}
}

func TestHealthHandler_ReadyRunsChecksConcurrently(t *testing.T) {
	h := NewHealthHandler(nil, zap.NewNop())

	// 两个检查互相等待，串行执行会一直卡到截止时间
	a, b := make(chan struct{}), make(chan struct{})
	h.RegisterCheck(NewCheck("database", func(ctx context.Context) error {
		close(a)
		select {
		case <-b:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}))
	h.RegisterCheck(NewCheck("redis", func(ctx context.Context) error {
		close(b)
		select {
		case <-a:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}))

	w := httptest.NewRecorder()
	h.HandleReady(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
