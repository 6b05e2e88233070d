package xlimit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/omeyang/xgate/pkg/observability/xlog"
	"github.com/omeyang/xgate/pkg/observability/xmetrics"
	"github.com/omeyang/xgate/pkg/util/xasync"
	"github.com/omeyang/xgate/pkg/util/xpool"
)

// check 一次排队中的准入检查
type check struct {
	ctx      context.Context
	bucketID string
	period   Period
	limit    int64
	handler  xasync.Handler[bool]
}

// Component 固定窗口准入控制组件。
type Component struct {
	backend  Backend
	pool     *xpool.WorkerPool[check]
	prefix   string
	timeout  time.Duration
	loc      *time.Location
	now      func() time.Time
	logger   xlog.Logger
	observer xmetrics.Observer
	metrics  *Metrics
	closed   atomic.Bool
}

// New 创建组件并启动 worker。
//
// 配置启用熔断时 backend 外层包装熔断器；配置了降级策略时再包装降级层，
// FallbackLocal 使用按 Config.Local 创建的本地后端。
func New(backend Backend, opts ...Option) (*Component, error) {
	if backend == nil {
		return nil, ErrNilBackend
	}
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	cfg := o.config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	loc, err := cfg.location()
	if err != nil {
		return nil, err
	}
	metrics, err := NewMetrics(o.meterProvider)
	if err != nil {
		return nil, fmt.Errorf("xlimit: create metrics: %w", err)
	}
	logger := xlog.OrDiscard(o.logger)

	if cs, ok := backend.(clockSetter); ok {
		cs.setClock(o.now)
	}
	if cfg.Breaker.Enabled {
		backend = newBreakerBackend(backend, cfg.Breaker, logger, o.onStateChange)
	}
	if cfg.Fallback != FallbackNone {
		fb := &fallbackBackend{
			primary:    backend,
			strategy:   cfg.Fallback,
			logger:     logger,
			metrics:    metrics,
			onFallback: o.onFallback,
		}
		if cfg.Fallback == FallbackLocal {
			if fb.local, err = NewLocalBackend(cfg.Local.Shards, cfg.Local.Capacity); err != nil {
				return nil, err
			}
		}
		backend = fb
	}

	c := &Component{
		backend:  backend,
		prefix:   cfg.KeyPrefix,
		timeout:  cfg.Timeout,
		loc:      loc,
		now:      o.now,
		logger:   logger,
		observer: xmetrics.OrNoop(o.observer),
		metrics:  metrics,
	}
	pool, err := xpool.NewWorkerPool(cfg.Workers, cfg.QueueSize, c.run,
		xpool.WithLogger(logger), xpool.WithName("xlimit"))
	if err != nil {
		return nil, err
	}
	c.pool = pool
	pool.Start()
	return c, nil
}

// Accept 异步判断 bucketID 在当前 period 窗口内是否仍低于 limit，
// 是则计数并以 true 回调，否则以 false 回调；失败时以 error 回调。
//
// 不阻塞调用方，handler 恰好被调用一次，可能在其他 goroutine 上。
// 队列满或组件已关闭时 handler 在当前 goroutine 上以错误立即调用。
func (c *Component) Accept(ctx context.Context, bucketID string, period Period, limit int64, handler xasync.Handler[bool]) {
	if handler == nil {
		c.logger.Warn(ctx, "xlimit: accept called without handler", slog.String("bucket", bucketID))
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	h := xasync.Once(handler)

	if c.closed.Load() {
		h(xasync.Error[bool](ErrClosed))
		return
	}
	err := c.pool.Submit(check{ctx: ctx, bucketID: bucketID, period: period, limit: limit, handler: h})
	switch {
	case err == nil:
	case errors.Is(err, xpool.ErrQueueFull):
		c.logger.Warn(ctx, "xlimit: check queue full", slog.String("bucket", bucketID))
		h(xasync.Error[bool](ErrQueueFull))
	default:
		h(xasync.Error[bool](ErrClosed))
	}
}

// AcceptSync 同步版本的 Accept，等待结果或 ctx 结束。
func (c *Component) AcceptSync(ctx context.Context, bucketID string, period Period, limit int64) (bool, error) {
	future := xasync.NewFuture[bool]()
	c.Accept(ctx, bucketID, period, limit, future.Complete)
	return future.Wait(ctx)
}

// Reset 删除 bucketID 当前窗口的计数器。
func (c *Component) Reset(ctx context.Context, bucketID string, period Period) error {
	if bucketID == "" {
		return ErrInvalidKey
	}
	w, err := period.Window(c.now(), c.loc)
	if err != nil {
		return err
	}
	return c.backend.Delete(ctx, counterKey(c.prefix, bucketID, period, w))
}

// Close 停止接收新请求，等待排队中的检查完成后关闭后端，幂等。
func (c *Component) Close(ctx context.Context) error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.pool.Stop()
	return c.backend.Close(ctx)
}

// BackendName 返回后端类型。
func (c *Component) BackendName() string { return c.backend.Name() }

func (c *Component) run(ck check) {
	accepted, err := c.evaluate(ck.ctx, ck.bucketID, ck.period, ck.limit)
	ck.handler(xasync.From(accepted, err))
}

func (c *Component) evaluate(ctx context.Context, bucketID string, period Period, limit int64) (accepted bool, err error) {
	if bucketID == "" {
		return false, ErrInvalidKey
	}
	if limit <= 0 {
		return false, fmt.Errorf("%w: %d", ErrInvalidLimit, limit)
	}
	w, err := period.Window(c.now(), c.loc)
	if err != nil {
		return false, err
	}
	key := counterKey(c.prefix, bucketID, period, w)

	// 已提交的检查不随调用方取消，只受组件超时约束
	ctx = context.WithoutCancel(ctx)
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	ctx, span := xmetrics.Start(ctx, c.observer, xmetrics.SpanOptions{
		Component: "xlimit",
		Operation: "increment",
		Kind:      xmetrics.KindClient,
		Attrs: []xmetrics.Attr{
			xmetrics.String("backend", c.backend.Name()),
			xmetrics.String("period", period.String()),
			xmetrics.Int64("limit", limit),
		},
	})
	start := time.Now()
	d, err := c.increment(ctx, key, limit, w.End)
	elapsed := time.Since(start)

	switch {
	case err != nil:
		span.End(xmetrics.Result{Err: err})
		c.metrics.RecordCheck(ctx, c.backend.Name(), period, resultError, elapsed)
		c.logger.Warn(ctx, "xlimit: backend increment failed",
			slog.String("key", key), slog.String("reason", classifyError(err)), xlog.Err(err))
		return false, err
	case !d.Accepted:
		span.End(xmetrics.Result{Status: xmetrics.StatusRejected, Attrs: []xmetrics.Attr{xmetrics.Int64("count", d.Count)}})
		c.metrics.RecordCheck(ctx, c.backend.Name(), period, resultDenied, elapsed)
		return false, nil
	default:
		span.End(xmetrics.Result{Attrs: []xmetrics.Attr{xmetrics.Int64("count", d.Count)}})
		c.metrics.RecordCheck(ctx, c.backend.Name(), period, resultAccepted, elapsed)
		return true, nil
	}
}

// increment 调用后端，panic 被转换为 ErrBackendPanic，保证 handler 仍会被回调
func (c *Component) increment(ctx context.Context, key string, limit int64, expireAt time.Time) (d Decision, err error) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error(ctx, "xlimit: backend panic recovered",
				slog.String("key", key), slog.Any("panic", r))
			d, err = Decision{}, fmt.Errorf("%w: %v", ErrBackendPanic, r)
		}
	}()
	return c.backend.Increment(ctx, key, limit, expireAt)
}
