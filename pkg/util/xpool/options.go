package xpool

import "github.com/omeyang/xgate/pkg/observability/xlog"

// Option 定义 pool 可选配置。
type Option func(*options)

type options struct {
	logger xlog.Logger
	name   string
}

// WithLogger 设置日志记录器，默认丢弃。nil 被忽略。
func WithLogger(logger xlog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithName 设置 pool 名称，用于在日志中区分多个实例。
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}
