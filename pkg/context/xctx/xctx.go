package xctx

import "errors"

// contextKey 包私有的 context key 类型。
type contextKey string

var (
	// ErrNilContext 表示传入的 context 为 nil。
	ErrNilContext = errors.New("xctx: nil context")

	// ErrMissingTraceID trace_id 缺失
	ErrMissingTraceID = errors.New("xctx: missing trace_id")

	// ErrMissingRequestID request_id 缺失
	ErrMissingRequestID = errors.New("xctx: missing request_id")
)
