package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap/zaptest"

	"github.com/BaSui01/scripturerag/config"
)

// keepGlobals 在测试结束后恢复全局 otel provider
func keepGlobals(t *testing.T) {
	t.Helper()
	tp, mp := otel.GetTracerProvider(), otel.GetMeterProvider()
	t.Cleanup(func() {
		otel.SetTracerProvider(tp)
		otel.SetMeterProvider(mp)
	})
}

// shutdownQuickly 没有 collector 时导出会失败，只给 1 秒
func shutdownQuickly(t *testing.T, p *Providers) {
	t.Helper()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = p.Shutdown(ctx)
	})
}

func TestInit_DisabledLeavesGlobalsAlone(t *testing.T) {
	keepGlobals(t)
	before := otel.GetTracerProvider()

	p, err := Init(config.TelemetryConfig{Enabled: false}, "1.0.0", zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.False(t, p.Enabled())
	assert.Nil(t, p.tp)
	assert.Nil(t, p.mp)
	assert.Equal(t, before, otel.GetTracerProvider())
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestInit_EnabledInstallsSDKProviders(t *testing.T) {
	keepGlobals(t)

	cfg := config.DefaultTelemetryConfig()
	cfg.Enabled = true
	p, err := Init(cfg, "", nil)
	require.NoError(t, err)
	shutdownQuickly(t, p)

	assert.True(t, p.Enabled())
	assert.IsType(t, &sdktrace.TracerProvider{}, otel.GetTracerProvider())
	assert.IsType(t, &sdkmetric.MeterProvider{}, otel.GetMeterProvider())
}

func TestInit_SpansRecordedWhenSampled(t *testing.T) {
	keepGlobals(t)

	cfg := config.DefaultTelemetryConfig()
	cfg.Enabled = true
	cfg.SampleRate = 1
	p, err := Init(cfg, "test", zaptest.NewLogger(t))
	require.NoError(t, err)
	shutdownQuickly(t, p)

	_, span := otel.Tracer("scripturerag/test").Start(context.Background(), "rag.query")
	defer span.End()
	assert.True(t, span.SpanContext().IsSampled())
}

func TestResolveSettings(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.TelemetryConfig
		version string
		want    settings
	}{
		{
			name:    "explicit values",
			cfg:     config.TelemetryConfig{OTLPEndpoint: "otel:4317", ServiceName: "rag", SampleRate: 0.25},
			version: "1.2.3",
			want:    settings{endpoint: "otel:4317", serviceName: "rag", version: "1.2.3", sampleRate: 0.25},
		},
		{
			name: "defaults filled",
			cfg:  config.TelemetryConfig{OTLPEndpoint: "localhost:4317", SampleRate: 7},
			want: settings{endpoint: "localhost:4317", serviceName: DefaultServiceName, version: "dev", sampleRate: 1},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, resolveSettings(tt.cfg, tt.version))
		})
	}
}

func TestClampRate(t *testing.T) {
	for in, want := range map[float64]float64{-0.5: 0, 0: 0, 0.25: 0.25, 1: 1, 3: 1} {
		assert.Equal(t, want, clampRate(in), "rate %v", in)
	}
}

func TestNilProviders(t *testing.T) {
	var p *Providers
	assert.False(t, p.Enabled())
	assert.NoError(t, p.Shutdown(context.Background()))
}
