package telemetry

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.uber.org/zap"

	"github.com/BaSui01/scripturerag/config"
)

// DefaultServiceName 未配置 service_name 时使用
const DefaultServiceName = "scripturerag"

// Providers 持有 SDK 的 trace / metric provider。遥测关闭时两者都为 nil。
type Providers struct {
	tp *sdktrace.TracerProvider
	mp *sdkmetric.MeterProvider
}

// Enabled 是否创建了真实的 SDK provider
func (p *Providers) Enabled() bool {
	return p != nil && p.tp != nil
}

// Init 按配置安装全局 otel provider。
// 关闭时返回空 Providers，全局保持 noop，rag.query 等 span 没有开销。
func Init(cfg config.TelemetryConfig, version string, logger *zap.Logger) (*Providers, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !cfg.Enabled {
		logger.Info("telemetry disabled, using noop providers")
		return &Providers{}, nil
	}

	settings := resolveSettings(cfg, version)
	ctx := context.Background()

	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceNameKey.String(settings.serviceName),
		semconv.ServiceVersionKey.String(settings.version),
	))
	if err != nil {
		return nil, fmt.Errorf("create otel resource: %w", err)
	}

	p := &Providers{}
	if p.tp, err = newTracerProvider(ctx, settings, res); err != nil {
		return nil, err
	}
	if p.mp, err = newMeterProvider(ctx, settings, res); err != nil {
		_ = p.tp.Shutdown(ctx)
		return nil, err
	}

	otel.SetTracerProvider(p.tp)
	otel.SetMeterProvider(p.mp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.Info("telemetry initialized",
		zap.String("endpoint", settings.endpoint),
		zap.String("service_name", settings.serviceName),
		zap.String("service_version", settings.version),
		zap.Float64("sample_rate", settings.sampleRate),
	)
	return p, nil
}

// settings 是补齐默认值后的遥测参数
type settings struct {
	endpoint    string
	serviceName string
	version     string
	sampleRate  float64
}

func resolveSettings(cfg config.TelemetryConfig, version string) settings {
	s := settings{
		endpoint:    cfg.OTLPEndpoint,
		serviceName: cfg.ServiceName,
		version:     version,
		sampleRate:  clampRate(cfg.SampleRate),
	}
	if s.serviceName == "" {
		s.serviceName = DefaultServiceName
	}
	if s.version == "" {
		s.version = buildVersion()
	}
	return s
}

func newTracerProvider(ctx context.Context, s settings, res *resource.Resource) (*sdktrace.TracerProvider, error) {
	exp, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(s.endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("create trace exporter: %w", err)
	}
	// 父 span 已采样则跟随，根 span 按比例采样
	sampler := sdktrace.ParentBased(sdktrace.TraceIDRatioBased(s.sampleRate))
	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	), nil
}

func newMeterProvider(ctx context.Context, s settings, res *resource.Resource) (*sdkmetric.MeterProvider, error) {
	exp, err := otlpmetricgrpc.New(ctx,
		otlpmetricgrpc.WithEndpoint(s.endpoint),
		otlpmetricgrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("create metric exporter: %w", err)
	}
	return sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp)),
		sdkmetric.WithResource(res),
	), nil
}

// Shutdown 刷新并关闭导出器，nil 或 noop Providers 直接返回。
func (p *Providers) Shutdown(ctx context.Context) error {
	if p == nil {
		return nil
	}
	var errs []error
	if p.tp != nil {
		if err := p.tp.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown tracer provider: %w", err))
		}
	}
	if p.mp != nil {
		if err := p.mp.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown meter provider: %w", err))
		}
	}
	return errors.Join(errs...)
}

func clampRate(r float64) float64 {
	return min(max(r, 0), 1)
}

// buildVersion 取模块版本，开发构建返回 "dev"
func buildVersion() string {
	info, ok := debug.ReadBuildInfo()
	if !ok || info.Main.Version == "" || info.Main.Version == "(devel)" {
		return "dev"
	}
	return info.Main.Version
}
