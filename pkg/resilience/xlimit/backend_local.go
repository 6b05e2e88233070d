package xlimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	// DefaultLocalShards 本地后端默认分片数。
	DefaultLocalShards = 32
	// DefaultLocalCapacity 本地后端默认总容量（计数器个数）。
	DefaultLocalCapacity = 65536
)

type localCounter struct {
	count    int64
	expireAt time.Time
}

type localShard struct {
	mu    sync.Mutex // 保证同一分片内读-改-写的原子性
	cache *lru.Cache[string, *localCounter]
}

// LocalBackend 进程内计数后端。
//
// 按 key 的 xxhash 分片，每个分片是有界 LRU；容量耗尽时淘汰最久未用的计数器，
// 被淘汰的 bucket 会从 0 重新计数。只在单个实例内有效。
//
// 计数器的归属只由 key 与 expireAt 决定，不读取本地时钟：key 已包含窗口起点，
// 过期的旧窗口计数器不再被访问，由 LRU 自然淘汰。
type LocalBackend struct {
	shards []*localShard
}

// NewLocalBackend 创建本地后端。shards、capacity <= 0 时使用默认值。
func NewLocalBackend(shards, capacity int) (*LocalBackend, error) {
	if shards <= 0 {
		shards = DefaultLocalShards
	}
	if capacity <= 0 {
		capacity = DefaultLocalCapacity
	}
	perShard := max(capacity/shards, 1)

	b := &LocalBackend{shards: make([]*localShard, shards)}
	for i := range b.shards {
		cache, err := lru.New[string, *localCounter](perShard)
		if err != nil {
			return nil, fmt.Errorf("%w: local shard: %w", ErrInvalidConfig, err)
		}
		b.shards[i] = &localShard{cache: cache}
	}
	return b, nil
}

func (b *LocalBackend) shard(key string) *localShard {
	return b.shards[xxhash.Sum64String(key)%uint64(len(b.shards))]
}

// Name 实现 Backend。
func (b *LocalBackend) Name() string { return "local" }

// Increment 实现 Backend。
func (b *LocalBackend) Increment(ctx context.Context, key string, limit int64, expireAt time.Time) (Decision, error) {
	if err := ctx.Err(); err != nil {
		return Decision{}, err
	}
	s := b.shard(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.cache.Get(key)
	// expireAt 不同说明同一 key 属于另一个窗口实例
	if !ok || !c.expireAt.Equal(expireAt) {
		c = &localCounter{expireAt: expireAt}
		s.cache.Add(key, c)
	}
	if c.count >= limit {
		return Decision{Accepted: false, Count: c.count}, nil
	}
	c.count++
	return Decision{Accepted: true, Count: c.count}, nil
}

// Delete 实现 Backend。
func (b *LocalBackend) Delete(_ context.Context, key string) error {
	s := b.shard(key)
	s.mu.Lock()
	s.cache.Remove(key)
	s.mu.Unlock()
	return nil
}

// Len 返回当前保存的计数器数量。
func (b *LocalBackend) Len() int {
	n := 0
	for _, s := range b.shards {
		n += s.cache.Len()
	}
	return n
}

// Close 实现 Backend，清空所有计数器。
func (b *LocalBackend) Close(context.Context) error {
	for _, s := range b.shards {
		s.mu.Lock()
		s.cache.Purge()
		s.mu.Unlock()
	}
	return nil
}

var _ Backend = (*LocalBackend)(nil)
