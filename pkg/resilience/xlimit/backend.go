package xlimit

import (
	"context"
	"time"
)

// Decision 一次递增尝试的结果。
type Decision struct {
	// Accepted 是否放行（即是否完成了递增）。
	Accepted bool
	// Count 操作后窗口内的计数。
	Count int64
}

// Backend 计数后端，实现必须并发安全。
type Backend interface {
	// Increment 原子地执行"count < limit 则递增"，计数器应在 expireAt 之后过期。
	Increment(ctx context.Context, key string, limit int64, expireAt time.Time) (Decision, error)

	// Delete 删除计数器，不存在时不返回错误。
	Delete(ctx context.Context, key string) error

	// Name 后端类型标识，用于日志和指标。
	Name() string

	// Close 释放后端自有资源，不关闭注入的外部客户端。
	Close(ctx context.Context) error
}

// minCounterTTL 计数器的最短存活时间。窗口即将结束或已结束时仍在途的检查
// 也要落在同一个计数器上，而不是让键立即过期后重新计数。
const minCounterTTL = time.Second

func counterTTL(expireAt, now time.Time) time.Duration {
	return max(expireAt.Sub(now), minCounterTTL)
}

// clockSetter 由需要把窗口结束时间换算成 TTL 的后端实现，
// Component 创建时注入自己的时钟。
type clockSetter interface {
	setClock(now func() time.Time)
}
