package xlog

import (
	"context"
	"io"
	"log/slog"
	"runtime"
	"sync/atomic"
	"time"
)

// 编译时接口检查
var _ LoggerWithLevel = (*xlogger)(nil)

// xlogger Logger 接口的实现
type xlogger struct {
	handler    slog.Handler
	levelVar   *slog.LevelVar
	addSource  bool
	errorCount *atomic.Uint64 // Handler 写入失败计数，派生 logger 共享
}

//go:noinline
func (l *xlogger) log(ctx context.Context, level slog.Level, msg string, attrs []slog.Attr) {
	if ctx == nil {
		ctx = context.Background()
	}
	if !l.handler.Enabled(ctx, level) {
		return
	}

	var pc uintptr
	if l.addSource {
		var pcs [1]uintptr
		// Callers → log → Debug/Info/... → 业务代码
		runtime.Callers(3, pcs[:])
		pc = pcs[0]
	}

	r := slog.NewRecord(time.Now(), level, msg, pc)
	r.AddAttrs(attrs...)
	if err := l.handler.Handle(ctx, r); err != nil {
		l.errorCount.Add(1)
	}
}

// Debug 记录 Debug 级别日志
func (l *xlogger) Debug(ctx context.Context, msg string, attrs ...slog.Attr) {
	l.log(ctx, slog.LevelDebug, msg, attrs)
}

// Info 记录 Info 级别日志
func (l *xlogger) Info(ctx context.Context, msg string, attrs ...slog.Attr) {
	l.log(ctx, slog.LevelInfo, msg, attrs)
}

// Warn 记录 Warn 级别日志
func (l *xlogger) Warn(ctx context.Context, msg string, attrs ...slog.Attr) {
	l.log(ctx, slog.LevelWarn, msg, attrs)
}

// Error 记录 Error 级别日志
func (l *xlogger) Error(ctx context.Context, msg string, attrs ...slog.Attr) {
	l.log(ctx, slog.LevelError, msg, attrs)
}

// With 返回带额外属性的派生 Logger
func (l *xlogger) With(attrs ...slog.Attr) Logger {
	if len(attrs) == 0 {
		return l
	}
	return &xlogger{
		handler:    l.handler.WithAttrs(attrs),
		levelVar:   l.levelVar,
		addSource:  l.addSource,
		errorCount: l.errorCount,
	}
}

// SetLevel 动态设置日志级别
func (l *xlogger) SetLevel(level Level) {
	l.levelVar.Set(slog.Level(level))
}

// GetLevel 获取当前日志级别
func (l *xlogger) GetLevel() Level {
	return Level(l.levelVar.Level())
}

// Enabled 检查指定级别是否启用
func (l *xlogger) Enabled(ctx context.Context, level Level) bool {
	if ctx == nil {
		ctx = context.Background()
	}
	return l.handler.Enabled(ctx, slog.Level(level))
}

// ErrorCount 返回 Handler 写入失败次数，logger 不是本包实现时返回 0
func ErrorCount(logger Logger) uint64 {
	if xl, ok := logger.(*xlogger); ok {
		return xl.errorCount.Load()
	}
	return 0
}

// Discard 返回丢弃所有输出的 Logger，用于未注入 logger 的组件和测试
func Discard() Logger {
	levelVar := new(slog.LevelVar)
	levelVar.Set(slog.LevelError + 1)
	return &xlogger{
		handler:    slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: levelVar}),
		levelVar:   levelVar,
		errorCount: new(atomic.Uint64),
	}
}

// OrDiscard logger 为 nil 时返回 Discard()
func OrDiscard(logger Logger) Logger {
	if logger == nil {
		return Discard()
	}
	return logger
}
