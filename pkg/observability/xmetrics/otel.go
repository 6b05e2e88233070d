package xmetrics

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/omeyang/xgate/pkg/context/xctx"
)

const (
	// DefaultInstrumentationName 默认 instrumentation 名称。
	DefaultInstrumentationName = "github.com/omeyang/xgate"

	unknownComponent = "unknown"
	unknownOperation = "unknown"

	metricOperationTotal    = "xgate.operation.total"
	metricOperationDuration = "xgate.operation.duration"
)

// NewOTelObserver 返回的错误。
var (
	ErrCreateCounter   = errors.New("xmetrics: create counter failed")
	ErrCreateHistogram = errors.New("xmetrics: create histogram failed")
)

type otelConfig struct {
	instrumentationName string
	tracerProvider      trace.TracerProvider
	meterProvider       metric.MeterProvider
}

// Option 定义 OTel Observer 的配置选项。
type Option func(*otelConfig)

// WithInstrumentationName 设置 OTel instrumentation 名称。
func WithInstrumentationName(name string) Option {
	return func(cfg *otelConfig) {
		if name != "" {
			cfg.instrumentationName = name
		}
	}
}

// WithTracerProvider 设置 TracerProvider。
func WithTracerProvider(provider trace.TracerProvider) Option {
	return func(cfg *otelConfig) {
		if provider != nil {
			cfg.tracerProvider = provider
		}
	}
}

// WithMeterProvider 设置 MeterProvider。
func WithMeterProvider(provider metric.MeterProvider) Option {
	return func(cfg *otelConfig) {
		if provider != nil {
			cfg.meterProvider = provider
		}
	}
}

// NewOTelObserver 创建基于 OpenTelemetry 的 Observer。
// 未指定 Provider 时使用 otel 全局 Provider。
func NewOTelObserver(opts ...Option) (Observer, error) {
	cfg := &otelConfig{
		instrumentationName: DefaultInstrumentationName,
		tracerProvider:      otel.GetTracerProvider(),
		meterProvider:       otel.GetMeterProvider(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}

	meter := cfg.meterProvider.Meter(cfg.instrumentationName)
	total, err := meter.Int64Counter(metricOperationTotal,
		metric.WithDescription("total operations"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCreateCounter, err)
	}
	duration, err := meter.Float64Histogram(metricOperationDuration,
		metric.WithDescription("operation duration"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCreateHistogram, err)
	}

	return &otelObserver{
		tracer:   cfg.tracerProvider.Tracer(cfg.instrumentationName),
		total:    total,
		duration: duration,
	}, nil
}

type otelObserver struct {
	tracer   trace.Tracer
	total    metric.Int64Counter
	duration metric.Float64Histogram
}

func (o *otelObserver) Start(ctx context.Context, opts SpanOptions) (context.Context, Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = ensureParentSpan(ctx)

	component := opts.Component
	if component == "" {
		component = unknownComponent
	}
	operation := opts.Operation
	if operation == "" {
		operation = unknownOperation
	}

	attrs := make([]attribute.KeyValue, 0, 2+len(opts.Attrs))
	attrs = append(attrs,
		attribute.String("component", component),
		attribute.String("operation", operation),
	)
	attrs = append(attrs, toOTel(opts.Attrs)...)

	ctx, span := o.tracer.Start(ctx, component+"."+operation,
		trace.WithSpanKind(spanKind(opts.Kind)),
		trace.WithAttributes(attrs...),
	)
	ctx = syncXctx(ctx, span.SpanContext())

	return ctx, &otelSpan{
		span:      span,
		observer:  o,
		ctx:       ctx,
		component: component,
		operation: operation,
		start:     time.Now(),
	}
}

type otelSpan struct {
	span      trace.Span
	observer  *otelObserver
	ctx       context.Context
	component string
	operation string
	start     time.Time
	endOnce   sync.Once
}

func (s *otelSpan) End(result Result) {
	s.endOnce.Do(func() {
		status := resolveStatus(result)

		if result.Err != nil {
			s.span.RecordError(result.Err)
		}
		if status == StatusError {
			msg := "operation failed"
			if result.Err != nil {
				msg = result.Err.Error()
			}
			s.span.SetStatus(codes.Error, msg)
		} else {
			s.span.SetStatus(codes.Ok, "")
		}
		if len(result.Attrs) > 0 {
			s.span.SetAttributes(toOTel(result.Attrs)...)
		}
		s.span.End()

		// 请求 ctx 可能已取消，指标照常记录
		metricsCtx := context.WithoutCancel(s.ctx)
		set := metric.WithAttributes(
			attribute.String("component", s.component),
			attribute.String("operation", s.operation),
			attribute.String("status", string(status)),
		)
		s.observer.total.Add(metricsCtx, 1, set)
		s.observer.duration.Record(metricsCtx, time.Since(s.start).Seconds(), set)
	})
}

func resolveStatus(result Result) Status {
	if result.Status != "" {
		return result.Status
	}
	if result.Err != nil {
		return StatusError
	}
	return StatusOK
}

func spanKind(kind Kind) trace.SpanKind {
	switch kind {
	case KindServer:
		return trace.SpanKindServer
	case KindClient:
		return trace.SpanKindClient
	default:
		return trace.SpanKindInternal
	}
}

func toOTel(attrs []Attr) []attribute.KeyValue {
	if len(attrs) == 0 {
		return nil
	}
	out := make([]attribute.KeyValue, 0, len(attrs))
	for _, a := range attrs {
		if a.Key == "" || a.Value == nil {
			continue
		}
		switch v := a.Value.(type) {
		case string:
			out = append(out, attribute.String(a.Key, v))
		case bool:
			out = append(out, attribute.Bool(a.Key, v))
		case int:
			out = append(out, attribute.Int(a.Key, v))
		case int64:
			out = append(out, attribute.Int64(a.Key, v))
		case time.Duration:
			out = append(out, attribute.Int64(a.Key, v.Nanoseconds()))
		default:
			out = append(out, attribute.String(a.Key, fmt.Sprint(v)))
		}
	}
	return out
}

// ensureParentSpan 当 ctx 中没有 otel span 但 xctx 携带了上游 trace 时，恢复远程父 span
func ensureParentSpan(ctx context.Context) context.Context {
	if trace.SpanContextFromContext(ctx).IsValid() {
		return ctx
	}
	traceID, err := trace.TraceIDFromHex(xctx.TraceID(ctx))
	if err != nil {
		return ctx
	}
	spanID, err := trace.SpanIDFromHex(xctx.SpanID(ctx))
	if err != nil {
		return ctx
	}
	var flags trace.TraceFlags
	if s := xctx.TraceFlags(ctx); s != "" {
		if parsed, err := strconv.ParseUint(s, 16, 8); err == nil {
			flags = trace.TraceFlags(parsed)
		}
	}
	return trace.ContextWithSpanContext(ctx, trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: flags,
		Remote:     true,
	}))
}

func syncXctx(ctx context.Context, sc trace.SpanContext) context.Context {
	if !sc.IsValid() {
		return ctx
	}
	if next, err := xctx.WithTraceID(ctx, sc.TraceID().String()); err == nil {
		ctx = next
	}
	if next, err := xctx.WithSpanID(ctx, sc.SpanID().String()); err == nil {
		ctx = next
	}
	if next, err := xctx.WithTraceFlags(ctx, fmt.Sprintf("%02x", byte(sc.TraceFlags()))); err == nil {
		ctx = next
	}
	return ctx
}
