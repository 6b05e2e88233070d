package xpool

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/omeyang/xgate/pkg/observability/xlog"
)

const (
	// DefaultQueueSize queueSize < 1 时使用的队列大小。
	DefaultQueueSize = 100
)

// WorkerPool 泛型 worker pool。
type WorkerPool[T any] struct {
	workers int
	handler func(T)
	queue   chan T
	logger  xlog.Logger

	mu      sync.RWMutex // 保护 started/stopped 与 queue 的关闭
	started bool
	stopped bool
	wg      sync.WaitGroup
}

// NewWorkerPool 创建 worker pool。
//
// workers 最小为 1；queueSize < 1 时使用 DefaultQueueSize。
// 创建后需调用 Start，Start 之前提交的任务会在队列中等待。
func NewWorkerPool[T any](workers, queueSize int, handler func(T), opts ...Option) (*WorkerPool[T], error) {
	if handler == nil {
		return nil, ErrNilHandler
	}
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = DefaultQueueSize
	}

	o := options{}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	logger := xlog.OrDiscard(o.logger)
	if o.name != "" {
		logger = logger.With(slog.String("pool", o.name))
	}

	return &WorkerPool[T]{
		workers: workers,
		handler: handler,
		queue:   make(chan T, queueSize),
		logger:  logger,
	}, nil
}

// Start 启动 worker，幂等。
func (p *WorkerPool[T]) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started || p.stopped {
		return
	}
	p.started = true
	for range p.workers {
		p.wg.Add(1)
		go p.worker()
	}
}

func (p *WorkerPool[T]) worker() {
	defer p.wg.Done()
	for task := range p.queue {
		p.run(task)
	}
}

func (p *WorkerPool[T]) run(task T) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error(context.Background(), "xpool: worker panic recovered",
				slog.String("panic", fmt.Sprint(r)))
		}
	}()
	p.handler(task)
}

// Submit 非阻塞提交任务。
// 返回 ErrQueueFull 或 ErrPoolStopped 时任务未被接收。
func (p *WorkerPool[T]) Submit(task T) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return ErrPoolStopped
	}
	select {
	case p.queue <- task:
		return nil
	default:
		return ErrQueueFull
	}
}

// Stop 停止接收新任务并等待队列中的任务执行完毕，幂等。
// 未 Start 的 pool 会丢弃队列中的任务。
func (p *WorkerPool[T]) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.queue)
	started := p.started
	p.mu.Unlock()

	if !started {
		return
	}
	p.wg.Wait()
}

// Workers 返回 worker 数量。
func (p *WorkerPool[T]) Workers() int { return p.workers }

// QueueSize 返回队列容量。
func (p *WorkerPool[T]) QueueSize() int { return cap(p.queue) }

// Pending 返回排队中尚未执行的任务数。
func (p *WorkerPool[T]) Pending() int { return len(p.queue) }
