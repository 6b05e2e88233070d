package xlimit

import (
	"fmt"
	"time"
)

// FallbackStrategy 后端出现基础设施错误时的降级策略。
type FallbackStrategy string

const (
	// FallbackNone 不降级，错误原样返回（默认）。
	FallbackNone FallbackStrategy = ""
	// FallbackLocal 降级到进程内计数，仅对本实例生效。
	FallbackLocal FallbackStrategy = "local"
	// FallbackOpen 放行所有请求。
	FallbackOpen FallbackStrategy = "open"
	// FallbackClose 拒绝所有请求，表现为超出限额。
	FallbackClose FallbackStrategy = "close"
)

// IsValid 报告策略是否有效。
func (s FallbackStrategy) IsValid() bool {
	switch s {
	case FallbackNone, FallbackLocal, FallbackOpen, FallbackClose:
		return true
	default:
		return false
	}
}

// BreakerConfig 熔断配置。
type BreakerConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled" koanf:"enabled"`
	// Failures 连续失败多少次后打开熔断。
	Failures uint32 `json:"failures" yaml:"failures" koanf:"failures"`
	// OpenTimeout 熔断打开后多久进入半开。
	OpenTimeout time.Duration `json:"open_timeout" yaml:"open_timeout" koanf:"open_timeout"`
}

// LocalConfig 本地后端配置。
type LocalConfig struct {
	Shards   int `json:"shards" yaml:"shards" koanf:"shards"`
	Capacity int `json:"capacity" yaml:"capacity" koanf:"capacity"`
}

// Config 组件配置。
type Config struct {
	// Backend 后端类型：redis | etcd | local，由调用方据此构造 Backend。
	Backend string `json:"backend" yaml:"backend" koanf:"backend"`

	// KeyPrefix 计数器键前缀。
	KeyPrefix string `json:"key_prefix" yaml:"key_prefix" koanf:"key_prefix"`

	// Timeout 单次后端调用超时，0 表示不设置。
	Timeout time.Duration `json:"timeout" yaml:"timeout" koanf:"timeout"`

	Fallback FallbackStrategy `json:"fallback" yaml:"fallback" koanf:"fallback"`

	// Location 窗口对齐使用的时区名，空值为 UTC。
	Location string `json:"location" yaml:"location" koanf:"location"`

	Workers   int `json:"workers" yaml:"workers" koanf:"workers"`
	QueueSize int `json:"queue_size" yaml:"queue_size" koanf:"queue_size"`

	Breaker BreakerConfig `json:"breaker" yaml:"breaker" koanf:"breaker"`
	Local   LocalConfig   `json:"local" yaml:"local" koanf:"local"`
}

// DefaultConfig 返回默认配置。
func DefaultConfig() Config {
	return Config{
		Backend:   "local",
		KeyPrefix: "xgate:",
		Timeout:   200 * time.Millisecond,
		Workers:   8,
		QueueSize: 1024,
		Breaker: BreakerConfig{
			Failures:    5,
			OpenTimeout: 30 * time.Second,
		},
		Local: LocalConfig{
			Shards:   DefaultLocalShards,
			Capacity: DefaultLocalCapacity,
		},
	}
}

// Validate 校验配置。
func (c Config) Validate() error {
	switch c.Backend {
	case "redis", "etcd", "local", "":
	default:
		return fmt.Errorf("%w: unknown backend %q", ErrInvalidConfig, c.Backend)
	}
	if !c.Fallback.IsValid() {
		return fmt.Errorf("%w: unknown fallback strategy %q", ErrInvalidConfig, c.Fallback)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("%w: negative timeout", ErrInvalidConfig)
	}
	if c.Workers < 0 || c.QueueSize < 0 {
		return fmt.Errorf("%w: workers and queue_size cannot be negative", ErrInvalidConfig)
	}
	if c.Breaker.Enabled && c.Breaker.Failures == 0 {
		return fmt.Errorf("%w: breaker.failures must be positive", ErrInvalidConfig)
	}
	if _, err := c.location(); err != nil {
		return err
	}
	return nil
}

func (c Config) location() (*time.Location, error) {
	if c.Location == "" || c.Location == "UTC" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Location)
	if err != nil {
		return nil, fmt.Errorf("%w: location %q: %w", ErrInvalidConfig, c.Location, err)
	}
	return loc, nil
}
