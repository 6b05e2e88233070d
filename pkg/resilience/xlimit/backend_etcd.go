package xlimit

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/avast/retry-go/v5"
	clientv3 "go.etcd.io/etcd/client/v3"
)

const (
	// DefaultCASRetries etcd 后端的默认 CAS 尝试次数。
	DefaultCASRetries = 16
	// DefaultCASBackoff CAS 冲突后的初始退避上限。
	DefaultCASBackoff = 2 * time.Millisecond
	// DefaultCASMaxBackoff CAS 冲突后的最大退避上限。
	DefaultCASMaxBackoff = 50 * time.Millisecond
)

// errCASLost 本次 CAS 被其他写入抢先
var errCASLost = errors.New("xlimit: cas lost")

// casStore etcd 后端依赖的最小存储能力。
//
// revision 为 0 表示"键不存在时创建"，否则表示"键的 ModRevision 等于 revision 时更新"。
type casStore interface {
	Load(ctx context.Context, key string) (value, revision int64, err error)
	CompareAndSwap(ctx context.Context, key string, revision, value int64, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, key string) error
}

// EtcdBackend 基于 etcd 事务的分布式计数后端。
//
// 同一 key 上的并发写入以 CAS 串行化，冲突后按全抖动指数退避重试。
// 尝试次数耗尽时返回 ErrCASConflict，因此热点 key 上远超
// WithCASRetries 的并发突发中，部分请求会得到错误而不是拒绝决策。
type EtcdBackend struct {
	store      casStore
	retries    int
	backoff    time.Duration
	maxBackoff time.Duration
	now        func() time.Time
}

// EtcdOption 配置 EtcdBackend。
type EtcdOption func(*EtcdBackend)

// WithCASRetries 设置 CAS 冲突时的最大尝试次数。
func WithCASRetries(n int) EtcdOption {
	return func(b *EtcdBackend) {
		if n > 0 {
			b.retries = n
		}
	}
}

// WithCASBackoff 设置 CAS 冲突后的退避区间，base 为 0 时不等待。
func WithCASBackoff(base, maxBackoff time.Duration) EtcdOption {
	return func(b *EtcdBackend) {
		if base >= 0 && maxBackoff >= base {
			b.backoff, b.maxBackoff = base, maxBackoff
		}
	}
}

// NewEtcdBackend 创建 etcd 后端。client 由调用方管理生命周期。
func NewEtcdBackend(client *clientv3.Client, opts ...EtcdOption) (*EtcdBackend, error) {
	if client == nil {
		return nil, fmt.Errorf("%w: etcd client", ErrNilBackend)
	}
	return newEtcdBackend(&etcdStore{kv: client, lease: client}, opts...), nil
}

func newEtcdBackend(store casStore, opts ...EtcdOption) *EtcdBackend {
	b := &EtcdBackend{
		store:      store,
		retries:    DefaultCASRetries,
		backoff:    DefaultCASBackoff,
		maxBackoff: DefaultCASMaxBackoff,
		now:        time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

// Name 实现 Backend。
func (b *EtcdBackend) Name() string { return "etcd" }

// setClock 使租约 TTL 与调用方计算窗口所用的时钟一致。
func (b *EtcdBackend) setClock(now func() time.Time) { b.now = now }

// Increment 实现 Backend。读取当前值与 revision，低于阈值时以 CAS 写入 value+1，冲突则退避后重读。
func (b *EtcdBackend) Increment(ctx context.Context, key string, limit int64, expireAt time.Time) (Decision, error) {
	ttl := counterTTL(expireAt, b.now())
	d, err := retry.NewWithData[Decision](
		retry.Context(ctx),
		retry.Attempts(uint(b.retries)),
		retry.Delay(b.backoff),
		retry.MaxDelay(b.maxBackoff),
		retry.DelayType(retry.FullJitterBackoffDelay),
		retry.RetryIf(func(err error) bool { return errors.Is(err, errCASLost) }),
		retry.LastErrorOnly(true),
	).Do(func() (Decision, error) {
		value, rev, err := b.store.Load(ctx, key)
		if err != nil {
			return Decision{}, fmt.Errorf("xlimit: etcd load %q: %w", key, err)
		}
		if value >= limit {
			return Decision{Accepted: false, Count: value}, nil
		}
		ok, err := b.store.CompareAndSwap(ctx, key, rev, value+1, ttl)
		if err != nil {
			return Decision{}, fmt.Errorf("xlimit: etcd cas %q: %w", key, err)
		}
		if !ok {
			return Decision{}, errCASLost
		}
		return Decision{Accepted: true, Count: value + 1}, nil
	})
	if errors.Is(err, errCASLost) {
		return Decision{}, fmt.Errorf("%w: %q after %d attempts", ErrCASConflict, key, b.retries)
	}
	return d, err
}

// Delete 实现 Backend。
func (b *EtcdBackend) Delete(ctx context.Context, key string) error {
	if err := b.store.Delete(ctx, key); err != nil {
		return fmt.Errorf("xlimit: etcd delete %q: %w", key, err)
	}
	return nil
}

// Close 实现 Backend，不关闭注入的客户端。
func (b *EtcdBackend) Close(context.Context) error { return nil }

var (
	_ Backend     = (*EtcdBackend)(nil)
	_ clockSetter = (*EtcdBackend)(nil)
)

// etcdStore 以 clientv3 实现 casStore。
type etcdStore struct {
	kv    clientv3.KV
	lease clientv3.Lease
}

func (s *etcdStore) Load(ctx context.Context, key string) (int64, int64, error) {
	resp, err := s.kv.Get(ctx, key)
	if err != nil {
		return 0, 0, err
	}
	if len(resp.Kvs) == 0 {
		return 0, 0, nil
	}
	kv := resp.Kvs[0]
	value, err := strconv.ParseInt(string(kv.Value), 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("corrupted counter value %q: %w", kv.Value, err)
	}
	return value, kv.ModRevision, nil
}

func (s *etcdStore) CompareAndSwap(ctx context.Context, key string, revision, value int64, ttl time.Duration) (bool, error) {
	encoded := strconv.FormatInt(value, 10)
	if revision != 0 {
		// 更新沿用创建时绑定的租约
		resp, err := s.kv.Txn(ctx).
			If(clientv3.Compare(clientv3.ModRevision(key), "=", revision)).
			Then(clientv3.OpPut(key, encoded, clientv3.WithIgnoreLease())).
			Commit()
		if err != nil {
			return false, err
		}
		return resp.Succeeded, nil
	}

	// 向上取整，保证键存活到窗口结束
	ttlSeconds := max(int64(math.Ceil(ttl.Seconds())), 1)
	lease, err := s.lease.Grant(ctx, ttlSeconds)
	if err != nil {
		return false, fmt.Errorf("grant lease: %w", err)
	}
	resp, err := s.kv.Txn(ctx).
		If(clientv3.Compare(clientv3.CreateRevision(key), "=", 0)).
		Then(clientv3.OpPut(key, encoded, clientv3.WithLease(lease.ID))).
		Commit()
	if err != nil || !resp.Succeeded {
		s.revoke(lease.ID)
		if err != nil {
			return false, err
		}
		return false, nil
	}
	return true, nil
}

func (s *etcdStore) revoke(id clientv3.LeaseID) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, _ = s.lease.Revoke(ctx, id)
}

func (s *etcdStore) Delete(ctx context.Context, key string) error {
	_, err := s.kv.Delete(ctx, key)
	return err
}
