package xlimit

import (
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/omeyang/xgate/pkg/observability/xlog"
	"github.com/omeyang/xgate/pkg/observability/xmetrics"
)

type options struct {
	config        Config
	logger        xlog.Logger
	observer      xmetrics.Observer
	meterProvider metric.MeterProvider
	now           func() time.Time
	onFallback    func(key string, strategy FallbackStrategy, err error)
	onStateChange func(name, from, to string)
}

// Option 配置 Component。
type Option func(*options)

func defaultOptions() *options {
	return &options{
		config: DefaultConfig(),
		now:    time.Now,
	}
}

// WithConfig 使用完整配置覆盖默认值。
func WithConfig(config Config) Option {
	return func(o *options) {
		o.config = config
	}
}

// WithKeyPrefix 设置计数器键前缀。
func WithKeyPrefix(prefix string) Option {
	return func(o *options) {
		o.config.KeyPrefix = prefix
	}
}

// WithTimeout 设置单次后端调用超时。
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.config.Timeout = d
	}
}

// WithFallback 设置降级策略。
func WithFallback(strategy FallbackStrategy) Option {
	return func(o *options) {
		o.config.Fallback = strategy
	}
}

// WithWorkers 设置 worker 数量与队列容量。
func WithWorkers(workers, queueSize int) Option {
	return func(o *options) {
		o.config.Workers = workers
		o.config.QueueSize = queueSize
	}
}

// WithBreaker 启用熔断。
func WithBreaker(failures uint32, openTimeout time.Duration) Option {
	return func(o *options) {
		o.config.Breaker = BreakerConfig{Enabled: true, Failures: failures, OpenTimeout: openTimeout}
	}
}

// WithLogger 设置日志记录器。
func WithLogger(logger xlog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithObserver 设置跨度观测器。
func WithObserver(observer xmetrics.Observer) Option {
	return func(o *options) {
		o.observer = observer
	}
}

// WithMeterProvider 设置 MeterProvider，不设置时不收集指标。
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) {
		o.meterProvider = mp
	}
}

// WithClock 设置时间源，用于窗口计算。
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithOnFallback 设置降级回调。
func WithOnFallback(fn func(key string, strategy FallbackStrategy, err error)) Option {
	return func(o *options) {
		o.onFallback = fn
	}
}

// WithOnStateChange 设置熔断状态变化回调。
func WithOnStateChange(fn func(name, from, to string)) Option {
	return func(o *options) {
		o.onStateChange = fn
	}
}
