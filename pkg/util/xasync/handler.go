package xasync

import (
	"context"
	"sync"
	"sync/atomic"
)

// Handler 异步结果回调。
type Handler[T any] func(Result[T])

// Once 包装 handler，保证最多执行一次。
// 后续调用被丢弃；若提供 onDuplicate，则以被丢弃的结果调用它。
func Once[T any](h Handler[T], onDuplicate ...func(Result[T])) Handler[T] {
	var fired atomic.Bool
	var dup func(Result[T])
	if len(onDuplicate) > 0 {
		dup = onDuplicate[0]
	}
	return func(r Result[T]) {
		if !fired.CompareAndSwap(false, true) {
			if dup != nil {
				dup(r)
			}
			return
		}
		if h != nil {
			h(r)
		}
	}
}

// Future 单次赋值的异步结果。
// 第一次 Complete 生效，之后的 Complete 返回 false 且不改变结果。
type Future[T any] struct {
	once   sync.Once
	done   chan struct{}
	result Result[T]
}

// NewFuture 创建未完成的 Future。
func NewFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Complete 设置结果。可作为 Handler 直接传递给异步组件。
func (f *Future[T]) Complete(r Result[T]) {
	f.TryComplete(r)
}

// TryComplete 设置结果，返回本次调用是否生效。
func (f *Future[T]) TryComplete(r Result[T]) bool {
	won := false
	f.once.Do(func() {
		f.result = r
		won = true
		close(f.done)
	})
	return won
}

// Done 返回在结果就绪时关闭的 channel。
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Result 非阻塞读取结果，未完成时第二个返回值为 false。
func (f *Future[T]) Result() (Result[T], bool) {
	select {
	case <-f.done:
		return f.result, true
	default:
		return Result[T]{}, false
	}
}

// Wait 阻塞等待结果或 ctx 结束。
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.result.Get()
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
