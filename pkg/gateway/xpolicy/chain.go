package xpolicy

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/omeyang/xgate/pkg/observability/xlog"
)

// Chain 策略完成评估时调用的三个终态方法。
// 每次评估应恰好调用其中一个。
type Chain interface {
	// Apply 放行，将请求交给下一阶段。
	Apply(req *Request)
	// Fail 策略拒绝。
	Fail(failure PolicyFailure)
	// Error 系统故障。
	Error(err error)
}

// Policy 一个策略。Apply 可以立即完成 chain，也可以在任意 goroutine 上稍后完成。
type Policy interface {
	Apply(ctx context.Context, req *Request, chain Chain)
}

// PolicyFunc 函数适配器。
type PolicyFunc func(ctx context.Context, req *Request, chain Chain)

// Apply 调用 f。
func (f PolicyFunc) Apply(ctx context.Context, req *Request, chain Chain) {
	f(ctx, req, chain)
}

var _ Chain = (*Settle)(nil)

// Settle 单次赋值的 Chain：第一次调用生效，之后的调用被丢弃、计数并记录 Warn 日志。
// 并发安全。
type Settle struct {
	outcome    atomic.Pointer[Outcome]
	done       chan struct{}
	violations atomic.Int64
	logger     xlog.Logger
}

// NewSettle 创建 Settle。logger 为 nil 时不记录重复调用。
func NewSettle(logger xlog.Logger) *Settle {
	return &Settle{
		done:   make(chan struct{}),
		logger: xlog.OrDiscard(logger),
	}
}

// Apply 实现 Chain。
func (s *Settle) Apply(req *Request) {
	if req == nil {
		s.settle(Errored(ErrInvalidOutcome))
		return
	}
	s.settle(Applied(req))
}

// Fail 实现 Chain。
func (s *Settle) Fail(failure PolicyFailure) { s.settle(Failed(failure)) }

// Error 实现 Chain。
func (s *Settle) Error(err error) { s.settle(Errored(err)) }

func (s *Settle) settle(o Outcome) {
	if s.outcome.CompareAndSwap(nil, &o) {
		close(s.done)
		return
	}
	s.violations.Add(1)
	first := s.outcome.Load()
	s.logger.Warn(context.Background(), "xpolicy: chain already settled, outcome dropped",
		slog.String("settled", first.kind.String()),
		slog.String("dropped", o.kind.String()),
	)
}

// Done 在终态确定后关闭。
func (s *Settle) Done() <-chan struct{} { return s.done }

// Outcome 返回终态，尚未确定时 ok 为 false。
func (s *Settle) Outcome() (Outcome, bool) {
	if o := s.outcome.Load(); o != nil {
		return *o, true
	}
	return Outcome{}, false
}

// Wait 阻塞直到终态确定或 ctx 结束。
func (s *Settle) Wait(ctx context.Context) (Outcome, error) {
	select {
	case <-s.done:
		return *s.outcome.Load(), nil
	default:
	}
	select {
	case <-s.done:
		return *s.outcome.Load(), nil
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
}

// Violations 返回被丢弃的重复调用次数。
func (s *Settle) Violations() int64 { return s.violations.Load() }
