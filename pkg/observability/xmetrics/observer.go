package xmetrics

import (
	"context"
	"strconv"
)

// Kind 表示观测跨度类型。
type Kind int

const (
	// KindInternal 表示内部操作，如策略评估。
	KindInternal Kind = iota
	// KindServer 表示服务端处理。
	KindServer
	// KindClient 表示对外部依赖的调用，如计数后端。
	KindClient
)

func (k Kind) String() string {
	switch k {
	case KindInternal:
		return "Internal"
	case KindServer:
		return "Server"
	case KindClient:
		return "Client"
	default:
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Status 表示观测结果状态。
type Status string

const (
	// StatusOK 表示成功。
	StatusOK Status = "ok"
	// StatusRejected 表示业务拒绝，跨度状态仍为 Ok。
	StatusRejected Status = "rejected"
	// StatusError 表示失败。
	StatusError Status = "error"
)

// Attr 表示观测属性。
type Attr struct {
	Key   string
	Value any
}

// SpanOptions 定义观测跨度的创建参数。
type SpanOptions struct {
	Component string
	Operation string
	Kind      Kind
	Attrs     []Attr
}

// Result 表示观测跨度结束时的结果。
type Result struct {
	// Status 为空时根据 Err 推导。
	Status Status
	Err    error
	Attrs  []Attr
}

// Span 表示一次观测跨度。
type Span interface {
	// End 结束观测并记录结果，重复调用只生效一次。
	End(result Result)
}

// Observer 定义统一观测接口。
type Observer interface {
	Start(ctx context.Context, opts SpanOptions) (context.Context, Span)
}

// NoopObserver 是空实现。
type NoopObserver struct{}

// Start 返回 ctx 和空跨度。
func (NoopObserver) Start(ctx context.Context, _ SpanOptions) (context.Context, Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	return ctx, NoopSpan{}
}

// NoopSpan 是空跨度实现。
type NoopSpan struct{}

// End 空实现。
func (NoopSpan) End(Result) {}

// Start 使用 observer 开始观测。
// 保证返回非 nil 的 ctx 和 Span；observer 为 nil 或返回 nil 值时兜底为空实现。
func Start(ctx context.Context, observer Observer, opts SpanOptions) (context.Context, Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	if observer == nil {
		return ctx, NoopSpan{}
	}
	retCtx, span := observer.Start(ctx, opts)
	if retCtx == nil {
		retCtx = ctx
	}
	if span == nil {
		span = NoopSpan{}
	}
	return retCtx, span
}

// OrNoop observer 为 nil 时返回 NoopObserver。
func OrNoop(observer Observer) Observer {
	if observer == nil {
		return NoopObserver{}
	}
	return observer
}
