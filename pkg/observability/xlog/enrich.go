package xlog

import (
	"context"
	"log/slog"

	"github.com/omeyang/xgate/pkg/context/xctx"
)

// enrichHandler 从 context 提取 xctx 追踪字段并注入每条日志
type enrichHandler struct {
	base slog.Handler
}

// NewEnrichHandler 包装 base handler。base 为 nil 时 panic。
func NewEnrichHandler(base slog.Handler) slog.Handler {
	if base == nil {
		panic("xlog: base handler is nil")
	}
	return &enrichHandler{base: base}
}

func (h *enrichHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.base.Enabled(ctx, level)
}

func (h *enrichHandler) Handle(ctx context.Context, r slog.Record) error {
	if attrs := xctx.TraceAttrs(ctx); len(attrs) > 0 {
		r = r.Clone()
		r.AddAttrs(attrs...)
	}
	return h.base.Handle(ctx, r)
}

func (h *enrichHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &enrichHandler{base: h.base.WithAttrs(attrs)}
}

func (h *enrichHandler) WithGroup(name string) slog.Handler {
	return &enrichHandler{base: h.base.WithGroup(name)}
}
