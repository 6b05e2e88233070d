package xctx

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// 日志属性 Key，遵循 OpenTelemetry 语义约定（下划线分隔）
const (
	KeyTraceID    = "trace_id"
	KeySpanID     = "span_id"
	KeyTraceFlags = "trace_flags"
	KeyRequestID  = "request_id"
)

const (
	keyTraceID    = contextKey("xctx:trace_id")
	keySpanID     = contextKey("xctx:span_id")
	keyTraceFlags = contextKey("xctx:trace_flags")
	keyRequestID  = contextKey("xctx:request_id")
)

func withValue(ctx context.Context, key contextKey, value string) (context.Context, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	return context.WithValue(ctx, key, value), nil
}

func value(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}

// WithTraceID 将 trace ID 注入 context
func WithTraceID(ctx context.Context, traceID string) (context.Context, error) {
	return withValue(ctx, keyTraceID, traceID)
}

// TraceID 从 context 提取 trace ID，不存在返回空字符串
func TraceID(ctx context.Context) string {
	return value(ctx, keyTraceID)
}

// WithSpanID 将 span ID 注入 context
func WithSpanID(ctx context.Context, spanID string) (context.Context, error) {
	return withValue(ctx, keySpanID, spanID)
}

// SpanID 从 context 提取 span ID
func SpanID(ctx context.Context) string {
	return value(ctx, keySpanID)
}

// WithTraceFlags 将 W3C trace flags（两位十六进制）注入 context
func WithTraceFlags(ctx context.Context, flags string) (context.Context, error) {
	return withValue(ctx, keyTraceFlags, flags)
}

// TraceFlags 从 context 提取 trace flags
func TraceFlags(ctx context.Context) string {
	return value(ctx, keyTraceFlags)
}

// WithRequestID 将请求 ID 注入 context
func WithRequestID(ctx context.Context, requestID string) (context.Context, error) {
	return withValue(ctx, keyRequestID, requestID)
}

// RequestID 从 context 提取请求 ID
func RequestID(ctx context.Context) string {
	return value(ctx, keyRequestID)
}

// RequireRequestID 从 context 获取请求 ID，不存在则返回 ErrMissingRequestID。
func RequireRequestID(ctx context.Context) (string, error) {
	if ctx == nil {
		return "", ErrNilContext
	}
	v := RequestID(ctx)
	if v == "" {
		return "", ErrMissingRequestID
	}
	return v, nil
}

// GenerateRequestID 生成新的请求 ID（UUIDv4）。
func GenerateRequestID() string {
	return uuid.NewString()
}

// EnsureRequestID 确保 context 中存在请求 ID，已存在时原样返回。
func EnsureRequestID(ctx context.Context) (context.Context, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	if RequestID(ctx) != "" {
		return ctx, nil
	}
	return WithRequestID(ctx, GenerateRequestID())
}

// TraceAttrs 返回 context 中非空的追踪字段，用于日志注入。
func TraceAttrs(ctx context.Context) []slog.Attr {
	return AppendTraceAttrs(nil, ctx)
}

// AppendTraceAttrs 将 context 中非空的追踪字段追加到 attrs。
func AppendTraceAttrs(attrs []slog.Attr, ctx context.Context) []slog.Attr {
	if ctx == nil {
		return attrs
	}
	if v := TraceID(ctx); v != "" {
		attrs = append(attrs, slog.String(KeyTraceID, v))
	}
	if v := SpanID(ctx); v != "" {
		attrs = append(attrs, slog.String(KeySpanID, v))
	}
	if v := RequestID(ctx); v != "" {
		attrs = append(attrs, slog.String(KeyRequestID, v))
	}
	if v := TraceFlags(ctx); v != "" {
		attrs = append(attrs, slog.String(KeyTraceFlags, v))
	}
	return attrs
}
