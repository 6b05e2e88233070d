package xlimit

import (
	"context"
	"errors"
	"io"
	"net"
	"syscall"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	// ErrClosed 组件已关闭。
	ErrClosed = errors.New("xlimit: component closed")

	// ErrQueueFull 检查队列已满。
	ErrQueueFull = errors.New("xlimit: check queue full")

	// ErrBackendUnavailable 计数后端不可用（含熔断打开）。
	ErrBackendUnavailable = errors.New("xlimit: backend unavailable")

	// ErrCASConflict CAS 重试次数耗尽。
	ErrCASConflict = errors.New("xlimit: compare-and-swap retries exhausted")

	// ErrInvalidKey bucketID 为空。
	ErrInvalidKey = errors.New("xlimit: invalid bucket id")

	// ErrInvalidLimit limit 必须为正数。
	ErrInvalidLimit = errors.New("xlimit: limit must be positive")

	// ErrInvalidPeriod 未知的周期。
	ErrInvalidPeriod = errors.New("xlimit: invalid period")

	// ErrInvalidConfig 配置无效。
	ErrInvalidConfig = errors.New("xlimit: invalid config")

	// ErrNilBackend 未提供后端。
	ErrNilBackend = errors.New("xlimit: nil backend")

	// ErrBackendPanic 后端调用发生 panic，已恢复并作为错误回调。
	ErrBackendPanic = errors.New("xlimit: backend panic")
)

// infraErrors 视为基础设施故障的错误
var infraErrors = []error{
	ErrClosed,
	ErrQueueFull,
	ErrBackendUnavailable,
	ErrCASConflict,
	context.DeadlineExceeded,
	syscall.ECONNREFUSED,
	syscall.ECONNRESET,
	syscall.EPIPE,
	syscall.ETIMEDOUT,
	io.EOF,
	io.ErrUnexpectedEOF,
}

// IsInfraError 报告 err 是否为基础设施错误（网络、超时、后端不可用、熔断）。
// 参数错误与 nil 返回 false。
func IsInfraError(err error) bool {
	if err == nil {
		return false
	}
	for _, target := range infraErrors {
		if errors.Is(err, target) {
			return true
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	// etcd 客户端返回 gRPC status
	if s, ok := status.FromError(err); ok {
		switch s.Code() {
		case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted, codes.Aborted:
			return true
		}
	}
	return false
}

// classifyError 将错误归为低基数的指标标签
func classifyError(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrBackendUnavailable):
		return "unavailable"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, ErrCASConflict):
		return "conflict"
	case IsInfraError(err):
		return "network"
	default:
		return "other"
	}
}
