package metrics

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/scripturerag/llm"
	"github.com/BaSui01/scripturerag/llm/retry"
)

var collectorNamespaceSeq uint64

func nextTestNamespace() string {
	seq := atomic.AddUint64(&collectorNamespaceSeq, 1)
	return fmt.Sprintf("test_%d", seq)
}

func newTestCollector(t *testing.T) (*Collector, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	return NewCollectorWithRegistry(nextTestNamespace(), reg, zap.NewNop()), reg
}

// =============================================================================
// 🧪 Collector 测试
// =============================================================================

func TestNewCollector_DefaultRegistry(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), nil)

	assert.NotNil(t, collector.httpRequestsTotal)
	assert.NotNil(t, collector.queriesTotal)
	assert.NotNil(t, collector.embeddingBatchesTotal)
}

func TestNewCollector_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	ns := nextTestNamespace()
	NewCollectorWithRegistry(ns, reg, nil)

	assert.Panics(t, func() { NewCollectorWithRegistry(ns, reg, nil) })
}

func TestCollector_RecordHTTPRequest(t *testing.T) {
	collector, _ := newTestCollector(t)

	collector.RecordHTTPRequest("POST", "/api/ask", 200, 100*time.Millisecond, 2048)
	collector.RecordHTTPRequest("POST", "/api/ask", 502, 50*time.Millisecond, 128)
	collector.RecordHTTPRequest("POST", "/api/ask", 201, 50*time.Millisecond, 128)

	assert.Equal(t, 2.0, testutil.ToFloat64(collector.httpRequestsTotal.WithLabelValues("POST", "/api/ask", "2xx")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.httpRequestsTotal.WithLabelValues("POST", "/api/ask", "5xx")))
}

func TestCollector_ObserveQuery(t *testing.T) {
	collector, _ := newTestCollector(t)

	collector.ObserveQuery("compare", "answered", time.Second)
	collector.ObserveQuery("compare", "answered", time.Second)
	collector.ObserveQuery("single", "refused_advice", time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(collector.queriesTotal.WithLabelValues("compare", "answered")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.queriesTotal.WithLabelValues("single", "refused_advice")))
	assert.Equal(t, 2, testutil.CollectAndCount(collector.queryDuration))
}

func TestCollector_ObserveGeneration(t *testing.T) {
	collector, _ := newTestCollector(t)

	collector.ObserveGeneration("gemini", "gemini-2.5-flash", "success", 2*time.Second,
		llm.Usage{PromptTokens: 1200, CompletionTokens: 300, TotalTokens: 1500})

	assert.Equal(t, 1.0, testutil.ToFloat64(collector.llmRequestsTotal.WithLabelValues("gemini", "gemini-2.5-flash", "success")))
	assert.Equal(t, 1200.0, testutil.ToFloat64(collector.llmTokensUsed.WithLabelValues("gemini", "gemini-2.5-flash", "prompt")))
	assert.Equal(t, 300.0, testutil.ToFloat64(collector.llmTokensUsed.WithLabelValues("gemini", "gemini-2.5-flash", "completion")))
}

func TestCollector_ObserveEmbeddingBatch(t *testing.T) {
	collector, _ := newTestCollector(t)

	collector.ObserveEmbeddingBatch("gemini", 50, 1, retry.OutcomeSucceeded, time.Second)
	collector.ObserveEmbeddingBatch("gemini", 20, 3, retry.OutcomeSucceeded, 15*time.Second)
	collector.ObserveEmbeddingBatch("gemini", 50, 5, retry.OutcomeExhausted, 75*time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(collector.embeddingBatchesTotal.WithLabelValues("gemini", "succeeded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.embeddingBatchesTotal.WithLabelValues("gemini", "exhausted")))
	assert.Equal(t, 120.0, testutil.ToFloat64(collector.embeddingTextsTotal.WithLabelValues("gemini")))
}

func TestCollector_StoreMetrics(t *testing.T) {
	collector, _ := newTestCollector(t)

	collector.ObserveBuild(3, 1500, time.Minute)
	assert.Equal(t, 3.0, testutil.ToFloat64(collector.storeCorpora))
	assert.Equal(t, 1500.0, testutil.ToFloat64(collector.storeDocuments))

	collector.SetStoreSize(4, 2000)
	assert.Equal(t, 2000.0, testutil.ToFloat64(collector.storeDocuments))

	collector.ObserveSearch("single", 700, time.Millisecond)
	collector.ObserveSearch("unscoped", 2000, time.Millisecond)
	assert.Equal(t, 2, testutil.CollectAndCount(collector.searchCandidates))
}

func TestCollector_RecordCacheOperation(t *testing.T) {
	collector, _ := newTestCollector(t)

	collector.RecordCacheHit("query_embedding")
	collector.RecordCacheMiss("query_embedding")
	collector.RecordCacheMiss("query_embedding")

	assert.Equal(t, 1.0, testutil.ToFloat64(collector.cacheHits.WithLabelValues("query_embedding")))
	assert.Equal(t, 2.0, testutil.ToFloat64(collector.cacheMisses.WithLabelValues("query_embedding")))
}

func TestCollector_RecordDBConnections(t *testing.T) {
	collector, _ := newTestCollector(t)

	collector.RecordDBConnections("postgres", 10, 5)

	assert.Equal(t, 10.0, testutil.ToFloat64(collector.dbConnectionsOpen.WithLabelValues("postgres")))
	assert.Equal(t, 5.0, testutil.ToFloat64(collector.dbConnectionsIdle.WithLabelValues("postgres")))
}

func TestCollector_ConcurrentRecording(t *testing.T) {
	collector, _ := newTestCollector(t)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			collector.RecordHTTPRequest("GET", "/api/texts", 200, time.Millisecond, 512)
			collector.ObserveQuery("unscoped", "answered", time.Millisecond)
			collector.RecordCacheHit("query_embedding")
		}()
	}
	wg.Wait()

	assert.Equal(t, 10.0, testutil.ToFloat64(collector.httpRequestsTotal.WithLabelValues("GET", "/api/texts", "2xx")))
	assert.Equal(t, 10.0, testutil.ToFloat64(collector.queriesTotal.WithLabelValues("unscoped", "answered")))
}

func TestCollector_GatherFromRegistry(t *testing.T) {
	collector, reg := newTestCollector(t)
	collector.ObserveQuery("single", "answered", time.Millisecond)

	families, err := reg.Gather()
	require.NoError(t, err)

	var found bool
	for _, f := range families {
		if f.GetName() != "" && len(f.GetMetric()) > 0 && f.GetHelp() == "Total number of questions by scope mode and outcome" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestStatusCode(t *testing.T) {
	assert.Equal(t, "2xx", statusCode(204))
	assert.Equal(t, "3xx", statusCode(304))
	assert.Equal(t, "4xx", statusCode(429))
	assert.Equal(t, "5xx", statusCode(503))
	assert.Equal(t, "unknown", statusCode(0))
}
