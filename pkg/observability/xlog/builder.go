package xlog

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"gopkg.in/natefinch/lumberjack.v2"
)

// 轮转默认值
const (
	// DefaultMaxSizeMB 单个日志文件最大大小（MB）
	DefaultMaxSizeMB = 500
	// DefaultMaxBackups 保留的备份文件数量
	DefaultMaxBackups = 7
	// DefaultMaxAgeDays 保留备份的天数
	DefaultMaxAgeDays = 30
)

// RotationOption 日志轮转选项
type RotationOption func(*lumberjack.Logger)

// WithMaxSize 设置单个日志文件最大大小（MB）
func WithMaxSize(mb int) RotationOption {
	return func(l *lumberjack.Logger) {
		if mb > 0 {
			l.MaxSize = mb
		}
	}
}

// WithMaxBackups 设置保留的备份文件数量，0 表示不限制
func WithMaxBackups(n int) RotationOption {
	return func(l *lumberjack.Logger) {
		if n >= 0 {
			l.MaxBackups = n
		}
	}
}

// WithMaxAge 设置保留备份的天数，0 表示不按天数清理
func WithMaxAge(days int) RotationOption {
	return func(l *lumberjack.Logger) {
		if days >= 0 {
			l.MaxAge = days
		}
	}
}

// WithCompress 设置是否 gzip 压缩备份文件
func WithCompress(compress bool) RotationOption {
	return func(l *lumberjack.Logger) {
		l.Compress = compress
	}
}

// Builder 日志配置构建器
type Builder struct {
	output       io.Writer
	levelVar     *slog.LevelVar
	format       string
	addSource    bool
	enableEnrich bool
	rotator      *lumberjack.Logger
	err          error
}

// New 创建配置构建器，默认 Info 级别、text 格式、输出到 stderr
func New() *Builder {
	levelVar := new(slog.LevelVar)
	levelVar.Set(slog.LevelInfo)
	return &Builder{
		output:       os.Stderr,
		levelVar:     levelVar,
		format:       "text",
		enableEnrich: true,
	}
}

// SetOutput 设置日志输出目标
func (b *Builder) SetOutput(w io.Writer) *Builder {
	if w != nil {
		b.output = w
	}
	return b
}

// SetLevel 设置日志级别
func (b *Builder) SetLevel(level Level) *Builder {
	b.levelVar.Set(slog.Level(level))
	return b
}

// SetLevelString 通过字符串设置日志级别
func (b *Builder) SetLevelString(s string) *Builder {
	level, err := ParseLevel(s)
	if err != nil {
		b.err = err
		return b
	}
	return b.SetLevel(level)
}

// SetFormat 设置输出格式：text 或 json，空值使用 text
func (b *Builder) SetFormat(format string) *Builder {
	normalized := strings.ToLower(strings.TrimSpace(format))
	switch normalized {
	case "":
		b.format = "text"
	case "text", "json":
		b.format = normalized
	default:
		b.err = fmt.Errorf("xlog: unknown format %q", format)
	}
	return b
}

// SetAddSource 是否在日志中添加源码位置
func (b *Builder) SetAddSource(enable bool) *Builder {
	b.addSource = enable
	return b
}

// SetEnrich 是否自动注入 xctx 追踪字段，默认启用
func (b *Builder) SetEnrich(enable bool) *Builder {
	b.enableEnrich = enable
	return b
}

// SetRotation 输出到按大小轮转的文件
func (b *Builder) SetRotation(filename string, opts ...RotationOption) *Builder {
	if strings.TrimSpace(filename) == "" {
		b.err = fmt.Errorf("xlog: empty rotation filename")
		return b
	}
	rotator := &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    DefaultMaxSizeMB,
		MaxBackups: DefaultMaxBackups,
		MaxAge:     DefaultMaxAgeDays,
		Compress:   true,
	}
	for _, opt := range opts {
		opt(rotator)
	}
	b.rotator = rotator
	b.output = rotator
	return b
}

// Build 构建 Logger 实例
//
// 返回值：
//   - LoggerWithLevel: 日志实例
//   - func() error: 清理函数，关闭轮转文件，可重复调用
//   - error: 配置错误
func (b *Builder) Build() (LoggerWithLevel, func() error, error) {
	if b.err != nil {
		return nil, nil, b.err
	}

	opts := &slog.HandlerOptions{
		Level:     b.levelVar,
		AddSource: b.addSource,
	}

	var handler slog.Handler
	if b.format == "json" {
		handler = slog.NewJSONHandler(b.output, opts)
	} else {
		handler = slog.NewTextHandler(b.output, opts)
	}
	if b.enableEnrich {
		handler = NewEnrichHandler(handler)
	}

	logger := &xlogger{
		handler:    handler,
		levelVar:   b.levelVar,
		addSource:  b.addSource,
		errorCount: new(atomic.Uint64),
	}

	var once sync.Once
	rotator := b.rotator
	cleanup := func() error {
		var err error
		once.Do(func() {
			if rotator != nil {
				err = rotator.Close()
			}
		})
		return err
	}

	return logger, cleanup, nil
}
