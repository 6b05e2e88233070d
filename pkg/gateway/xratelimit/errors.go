package xratelimit

import "errors"

var (
	// ErrNilLimiter 未提供限流器。
	ErrNilLimiter = errors.New("xratelimit: nil rate limiter")

	// ErrNilFailureFactory 未提供失败工厂。
	ErrNilFailureFactory = errors.New("xratelimit: nil failure factory")

	// ErrInvalidConfig 策略配置无效。
	ErrInvalidConfig = errors.New("xratelimit: invalid config")
)
