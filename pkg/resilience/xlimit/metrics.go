package xlimit

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName = "github.com/omeyang/xgate/xlimit"

	metricNameRequestsTotal = "xlimit.requests.total"
	metricNameDeniedTotal   = "xlimit.denied.total"
	metricNameFallbackTotal = "xlimit.fallback.total"
	metricNameCheckDuration = "xlimit.check.duration"
)

// 检查结果标签
const (
	resultAccepted = "accepted"
	resultDenied   = "denied"
	resultError    = "error"
)

// Metrics 限流指标。nil *Metrics 的方法均为空操作。
type Metrics struct {
	requestsTotal metric.Int64Counter
	deniedTotal   metric.Int64Counter
	fallbackTotal metric.Int64Counter
	checkDuration metric.Float64Histogram
}

// NewMetrics 创建指标收集器，meterProvider 为 nil 时返回 nil。
func NewMetrics(meterProvider metric.MeterProvider) (*Metrics, error) {
	if meterProvider == nil {
		return nil, nil
	}
	meter := meterProvider.Meter(meterName)

	requestsTotal, err := meter.Int64Counter(metricNameRequestsTotal,
		metric.WithDescription("限流检查总数"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}
	deniedTotal, err := meter.Int64Counter(metricNameDeniedTotal,
		metric.WithDescription("超出限额被拒绝的请求数"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}
	fallbackTotal, err := meter.Int64Counter(metricNameFallbackTotal,
		metric.WithDescription("降级次数"),
		metric.WithUnit("{fallback}"),
	)
	if err != nil {
		return nil, err
	}
	checkDuration, err := meter.Float64Histogram(metricNameCheckDuration,
		metric.WithDescription("限流检查耗时"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		requestsTotal: requestsTotal,
		deniedTotal:   deniedTotal,
		fallbackTotal: fallbackTotal,
		checkDuration: checkDuration,
	}, nil
}

// RecordCheck 记录一次检查，result 为 accepted / denied / error。
func (m *Metrics) RecordCheck(ctx context.Context, backend string, period Period, result string, duration time.Duration) {
	if m == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	attrs := metric.WithAttributes(
		attribute.String("backend", backend),
		attribute.String("period", period.String()),
		attribute.String("result", result),
	)
	m.requestsTotal.Add(ctx, 1, attrs)
	if result == resultDenied {
		m.deniedTotal.Add(ctx, 1, attrs)
	}
	m.checkDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordFallback 记录一次降级。
func (m *Metrics) RecordFallback(ctx context.Context, strategy FallbackStrategy, reason string) {
	if m == nil {
		return
	}
	m.fallbackTotal.Add(context.WithoutCancel(ctx), 1, metric.WithAttributes(
		attribute.String("strategy", string(strategy)),
		attribute.String("reason", reason),
	))
}
