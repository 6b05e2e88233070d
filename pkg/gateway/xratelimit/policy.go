package xratelimit

import (
	"context"
	"log/slog"

	"golang.org/x/text/language"

	"github.com/omeyang/xgate/pkg/config/xconf"
	"github.com/omeyang/xgate/pkg/gateway/xpolicy"
	"github.com/omeyang/xgate/pkg/observability/xlog"
	"github.com/omeyang/xgate/pkg/resilience/xlimit"
	"github.com/omeyang/xgate/pkg/util/xasync"
)

// RateLimiter 异步准入判断，*xlimit.Component 实现了该接口。
//
// handler 必须恰好被调用一次：true 表示已计数放行，false 表示超出限额。
type RateLimiter interface {
	Accept(ctx context.Context, bucketID string, period xlimit.Period, limit int64, handler xasync.Handler[bool])
}

var _ RateLimiter = (*xlimit.Component)(nil)

// Option 策略选项。
type Option func(*Policy)

// WithLocale 设置失败消息的语言，默认英文。
func WithLocale(tag language.Tag) Option {
	return func(p *Policy) { p.locale = tag }
}

// WithLogger 设置日志记录器。
func WithLogger(logger xlog.Logger) Option {
	return func(p *Policy) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithMessages 替换消息目录。
func WithMessages(m *xpolicy.Messages) Option {
	return func(p *Policy) {
		if m != nil {
			p.messages = m
		}
	}
}

// Policy 限流策略，实现 xpolicy.Policy。创建后配置不再变化，可并发使用。
type Policy struct {
	cfg      Config
	limiter  RateLimiter
	failures xpolicy.FailureFactory
	messages *xpolicy.Messages
	locale   language.Tag
	logger   xlog.Logger
}

var _ xpolicy.Policy = (*Policy)(nil)

// New 创建限流策略。
func New(cfg Config, limiter RateLimiter, failures xpolicy.FailureFactory, opts ...Option) (*Policy, error) {
	if limiter == nil {
		return nil, ErrNilLimiter
	}
	if failures == nil {
		return nil, ErrNilFailureFactory
	}
	cfg = cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	p := &Policy{
		cfg:      cfg,
		limiter:  limiter,
		failures: failures,
		messages: xpolicy.NewMessages(),
		locale:   language.English,
		logger:   xlog.Discard(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p, nil
}

// NewFromBytes 解析 JSON 或 YAML 配置后创建限流策略。
func NewFromBytes(data []byte, format xconf.Format, limiter RateLimiter, failures xpolicy.FailureFactory, opts ...Option) (*Policy, error) {
	cfg, err := ParseConfig(data, format)
	if err != nil {
		return nil, err
	}
	return New(cfg, limiter, failures, opts...)
}

// Config 返回策略配置。
func (p *Policy) Config() Config { return p.cfg }

// Apply 对请求执行限流，结果通过 chain 恰好报告一次，可能在其他 goroutine 上。
func (p *Policy) Apply(ctx context.Context, req *xpolicy.Request, chain xpolicy.Chain) {
	if req == nil {
		chain.Error(xpolicy.ErrNilRequest)
		return
	}
	bucketID, ok := BucketID(req, p.cfg)
	if !ok {
		p.logger.Info(ctx, "xratelimit: no user for rate limiting",
			slog.String("header", p.cfg.UserHeader), slog.String("api_key", req.APIKey))
		chain.Fail(p.failure(xpolicy.NoUserForRateLimiting, xpolicy.MsgNoUser))
		return
	}
	period := MapPeriod(p.cfg.Period)

	p.limiter.Accept(ctx, bucketID, period, p.cfg.Limit, xasync.Once(func(r xasync.Result[bool]) {
		attrs := []slog.Attr{slog.String("bucket", bucketID), slog.String("period", period.String())}
		switch {
		case r.IsError():
			p.logger.Warn(ctx, "xratelimit: rate limiter failed", append(attrs, xlog.Err(r.Err()))...)
			chain.Error(r.Err())
		case r.Value():
			p.logger.Debug(ctx, "xratelimit: request accepted", attrs...)
			chain.Apply(req)
		default:
			p.logger.Info(ctx, "xratelimit: rate limit exceeded", append(attrs, slog.Int64("limit", p.cfg.Limit))...)
			chain.Fail(p.failure(xpolicy.RateLimitExceeded, xpolicy.MsgRateExceeded))
		}
	}, func(xasync.Result[bool]) {
		p.logger.Warn(ctx, "xratelimit: duplicate rate limiter callback dropped", slog.String("bucket", bucketID))
	}))
}

func (p *Policy) failure(code xpolicy.FailureCode, key string) xpolicy.PolicyFailure {
	return p.failures.CreateFailure(xpolicy.FailureOther, code, p.messages.Format(p.locale, key))
}
