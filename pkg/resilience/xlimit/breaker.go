package xlimit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/omeyang/xgate/pkg/observability/xlog"
)

// breakerBackend 用熔断器包装后端，熔断打开时快速失败
type breakerBackend struct {
	next Backend
	cb   *gobreaker.CircuitBreaker[Decision]
}

func newBreakerBackend(next Backend, cfg BreakerConfig, logger xlog.Logger, onStateChange func(name, from, to string)) *breakerBackend {
	failures := cfg.Failures
	openTimeout := cfg.OpenTimeout
	if openTimeout <= 0 {
		openTimeout = 30 * time.Second
	}

	st := gobreaker.Settings{
		Name:        "xlimit-" + next.Name(),
		MaxRequests: 1,
		Timeout:     openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		// 只有基础设施错误计入失败
		IsSuccessful: func(err error) bool {
			return !IsInfraError(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn(context.Background(), "xlimit: breaker state changed",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
			if onStateChange != nil {
				onStateChange(name, from.String(), to.String())
			}
		},
	}
	return &breakerBackend{next: next, cb: gobreaker.NewCircuitBreaker[Decision](st)}
}

func (b *breakerBackend) Name() string { return b.next.Name() }

func (b *breakerBackend) Increment(ctx context.Context, key string, limit int64, expireAt time.Time) (Decision, error) {
	d, err := b.cb.Execute(func() (Decision, error) {
		return b.next.Increment(ctx, key, limit, expireAt)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return Decision{}, fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
	}
	return d, err
}

func (b *breakerBackend) Delete(ctx context.Context, key string) error {
	return b.next.Delete(ctx, key)
}

func (b *breakerBackend) Close(ctx context.Context) error {
	return b.next.Close(ctx)
}

// State 返回熔断器状态。
func (b *breakerBackend) State() gobreaker.State {
	return b.cb.State()
}
