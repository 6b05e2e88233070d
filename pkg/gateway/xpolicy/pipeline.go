package xpolicy

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/omeyang/xgate/pkg/context/xctx"
	"github.com/omeyang/xgate/pkg/observability/xlog"
	"github.com/omeyang/xgate/pkg/observability/xmetrics"
)

const (
	metricPolicyOutcomes = "xgate.policy.outcomes"
	meterName            = "github.com/omeyang/xgate/xpolicy"
)

// PipelineOption 配置 Pipeline。
type PipelineOption func(*Pipeline)

// WithLogger 设置日志记录器。
func WithLogger(logger xlog.Logger) PipelineOption {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithObserver 设置跨度观测器。
func WithObserver(observer xmetrics.Observer) PipelineOption {
	return func(p *Pipeline) {
		if observer != nil {
			p.observer = observer
		}
	}
}

// WithMeterProvider 设置终态计数使用的 MeterProvider，默认 otel 全局 Provider。
func WithMeterProvider(provider metric.MeterProvider) PipelineOption {
	return func(p *Pipeline) {
		if provider != nil {
			p.meterProvider = provider
		}
	}
}

type namedPolicy struct {
	name   string
	policy Policy
}

// Pipeline 按注册顺序执行策略，第一个 Fail/Error 终止评估。
// Use 应在 Evaluate 之前完成，Evaluate 本身并发安全。
type Pipeline struct {
	policies      []namedPolicy
	logger        xlog.Logger
	observer      xmetrics.Observer
	meterProvider metric.MeterProvider
	outcomes      metric.Int64Counter
}

// NewPipeline 创建空 Pipeline。
func NewPipeline(opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		logger:        xlog.Discard(),
		observer:      xmetrics.NoopObserver{},
		meterProvider: otel.GetMeterProvider(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	counter, err := p.meterProvider.Meter(meterName).Int64Counter(metricPolicyOutcomes,
		metric.WithDescription("policy evaluation outcomes"),
		metric.WithUnit("1"),
	)
	if err != nil {
		p.logger.Warn(context.Background(), "xpolicy: create outcome counter failed", xlog.Err(err))
	}
	p.outcomes = counter
	return p
}

// Use 追加一个策略。
func (p *Pipeline) Use(name string, policy Policy) error {
	if policy == nil {
		return fmt.Errorf("%w: %s", ErrNilPolicy, name)
	}
	p.policies = append(p.policies, namedPolicy{name: name, policy: policy})
	return nil
}

// Len 返回策略数量。
func (p *Pipeline) Len() int { return len(p.policies) }

// Evaluate 依次评估所有策略并返回终态。
//
// 仅在 ctx 结束时返回 error，此时正在执行的策略稍后给出的终态会被丢弃。
// 策略 panic 会被转换为 Error 终态。
func (p *Pipeline) Evaluate(ctx context.Context, req *Request) (out Outcome, err error) {
	if req == nil {
		return Outcome{}, ErrNilRequest
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if ensured, ensureErr := xctx.EnsureRequestID(ctx); ensureErr == nil {
		ctx = ensured
	}

	ctx, span := xmetrics.Start(ctx, p.observer, xmetrics.SpanOptions{
		Component: "xpolicy",
		Operation: "evaluate",
		Kind:      xmetrics.KindInternal,
		Attrs:     []xmetrics.Attr{xmetrics.Int("policies", len(p.policies))},
	})
	defer func() {
		span.End(spanResult(out, err))
	}()

	current := req
	for _, np := range p.policies {
		out, err = p.evaluateOne(ctx, np, current)
		if err != nil {
			p.logger.Warn(ctx, "xpolicy: evaluation abandoned",
				slog.String("policy", np.name), xlog.Err(err))
			return Outcome{}, err
		}
		p.record(ctx, np.name, out.Kind())
		if out.Kind() != KindApply {
			return out, nil
		}
		current = out.Request()
	}
	return Applied(current), nil
}

func (p *Pipeline) evaluateOne(ctx context.Context, np namedPolicy, req *Request) (Outcome, error) {
	settle := NewSettle(p.logger.With(slog.String("policy", np.name)))
	func() {
		defer func() {
			if r := recover(); r != nil {
				settle.Error(fmt.Errorf("%w: %s: %v", ErrPolicyPanic, np.name, r))
			}
		}()
		np.policy.Apply(ctx, req, settle)
	}()
	return settle.Wait(ctx)
}

func (p *Pipeline) record(ctx context.Context, policy string, kind Kind) {
	if p.outcomes == nil {
		return
	}
	p.outcomes.Add(context.WithoutCancel(ctx), 1, metric.WithAttributes(
		attribute.String("policy", policy),
		attribute.String("outcome", kind.String()),
	))
}

func spanResult(out Outcome, err error) xmetrics.Result {
	if err != nil {
		return xmetrics.Result{Err: err}
	}
	attrs := []xmetrics.Attr{xmetrics.String("outcome", out.Kind().String())}
	switch out.Kind() {
	case KindFail:
		attrs = append(attrs, xmetrics.String("failure_code", out.Failure().Code().String()))
		return xmetrics.Result{Status: xmetrics.StatusRejected, Attrs: attrs}
	case KindError:
		return xmetrics.Result{Err: out.Err(), Attrs: attrs}
	default:
		return xmetrics.Result{Status: xmetrics.StatusOK, Attrs: attrs}
	}
}
