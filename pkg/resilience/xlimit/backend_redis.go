package xlimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// incrementScript 低于阈值才递增，首次创建时设置毫秒 TTL。
// 返回 {accepted(0/1), count}。
var incrementScript = redis.NewScript(`
local current = tonumber(redis.call('GET', KEYS[1]) or '0')
if current >= tonumber(ARGV[1]) then
  return {0, current}
end
current = redis.call('INCR', KEYS[1])
if current == 1 then
  redis.call('PEXPIRE', KEYS[1], ARGV[2])
end
return {1, current}
`)

// RedisBackend 基于 Redis 的分布式计数后端。
// 比较与递增在一个 Lua 脚本内完成，对所有网关实例线性一致。
type RedisBackend struct {
	rdb redis.UniversalClient
	now func() time.Time
}

// NewRedisBackend 创建 Redis 后端。rdb 由调用方管理生命周期。
func NewRedisBackend(rdb redis.UniversalClient) (*RedisBackend, error) {
	if rdb == nil {
		return nil, fmt.Errorf("%w: redis client", ErrNilBackend)
	}
	return &RedisBackend{rdb: rdb, now: time.Now}, nil
}

// Name 实现 Backend。
func (b *RedisBackend) Name() string { return "redis" }

func (b *RedisBackend) setClock(now func() time.Time) { b.now = now }

// Increment 实现 Backend。
func (b *RedisBackend) Increment(ctx context.Context, key string, limit int64, expireAt time.Time) (Decision, error) {
	ttl := counterTTL(expireAt, b.now())
	vals, err := incrementScript.Run(ctx, b.rdb, []string{key}, limit, ttl.Milliseconds()).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("xlimit: redis increment %q: %w", key, err)
	}
	if len(vals) != 2 {
		return Decision{}, fmt.Errorf("xlimit: redis increment %q: unexpected reply %v", key, vals)
	}
	return Decision{Accepted: vals[0] == 1, Count: vals[1]}, nil
}

// Delete 实现 Backend。
func (b *RedisBackend) Delete(ctx context.Context, key string) error {
	if err := b.rdb.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("xlimit: redis delete %q: %w", key, err)
	}
	return nil
}

// Close 实现 Backend，不关闭注入的客户端。
func (b *RedisBackend) Close(context.Context) error { return nil }

var (
	_ Backend     = (*RedisBackend)(nil)
	_ clockSetter = (*RedisBackend)(nil)
)
