package xpool

import "errors"

var (
	// ErrNilHandler handler 为 nil。
	ErrNilHandler = errors.New("xpool: handler cannot be nil")

	// ErrPoolStopped pool 已停止，无法提交任务。
	ErrPoolStopped = errors.New("xpool: pool is stopped")

	// ErrQueueFull 任务队列已满。
	ErrQueueFull = errors.New("xpool: queue is full")
)
