package xlimit

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/omeyang/xgate/pkg/observability/xlog"
)

// fallbackBackend 主后端出现基础设施错误时按策略降级
type fallbackBackend struct {
	primary    Backend
	local      Backend
	strategy   FallbackStrategy
	logger     xlog.Logger
	metrics    *Metrics
	onFallback func(key string, strategy FallbackStrategy, err error)
}

func (f *fallbackBackend) Name() string { return f.primary.Name() }

func (f *fallbackBackend) Increment(ctx context.Context, key string, limit int64, expireAt time.Time) (Decision, error) {
	d, err := f.primary.Increment(ctx, key, limit, expireAt)
	if err == nil || !IsInfraError(err) {
		return d, err
	}

	f.logger.Warn(ctx, "xlimit: falling back due to backend error",
		slog.String("backend", f.primary.Name()),
		slog.String("strategy", string(f.strategy)),
		xlog.Err(err),
	)
	f.metrics.RecordFallback(ctx, f.strategy, classifyError(err))
	if f.onFallback != nil {
		f.onFallback(key, f.strategy, err)
	}

	switch f.strategy {
	case FallbackLocal:
		// 主后端的超时可能已耗尽 ctx，本地计数不依赖它
		return f.local.Increment(context.WithoutCancel(ctx), key, limit, expireAt)
	case FallbackOpen:
		return Decision{Accepted: true}, nil
	case FallbackClose:
		return Decision{Accepted: false}, nil
	default:
		return d, err
	}
}

func (f *fallbackBackend) Delete(ctx context.Context, key string) error {
	var errs []error
	if err := f.primary.Delete(ctx, key); err != nil && !IsInfraError(err) {
		errs = append(errs, err)
	}
	if f.local != nil {
		if err := f.local.Delete(ctx, key); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f *fallbackBackend) Close(ctx context.Context) error {
	var errs []error
	if err := f.primary.Close(ctx); err != nil {
		errs = append(errs, err)
	}
	if f.local != nil {
		if err := f.local.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
