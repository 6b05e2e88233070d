package xlimit

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/mock/gomock"

	"github.com/omeyang/xgate/pkg/util/xasync"
)

// stubBackend 可编程的测试后端
type stubBackend struct {
	calls   atomic.Int64
	keys    sync.Map
	release chan struct{}
	fn      func(ctx context.Context) (Decision, error)
}

func (s *stubBackend) Increment(ctx context.Context, key string, _ int64, _ time.Time) (Decision, error) {
	s.calls.Add(1)
	s.keys.Store(key, true)
	if s.release != nil {
		<-s.release
	}
	if s.fn != nil {
		return s.fn(ctx)
	}
	return Decision{Accepted: true, Count: 1}, nil
}

func (s *stubBackend) Delete(_ context.Context, key string) error {
	s.keys.Delete(key)
	return nil
}

func (s *stubBackend) Name() string                { return "stub" }
func (s *stubBackend) Close(context.Context) error { return nil }

func (s *stubBackend) hasKey(key string) bool {
	_, ok := s.keys.Load(key)
	return ok
}

func failingWith(err error) func(context.Context) (Decision, error) {
	return func(context.Context) (Decision, error) { return Decision{}, err }
}

func newTestComponent(t *testing.T, backend Backend, opts ...Option) *Component {
	t.Helper()
	c, err := New(backend, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close(context.Background()) })
	return c
}

func TestComponent_AcceptExactlyOnce(t *testing.T) {
	local, err := NewLocalBackend(4, 64)
	require.NoError(t, err)
	c := newTestComponent(t, local)

	var calls atomic.Int32
	results := make(chan xasync.Result[bool], 4)
	for range 3 {
		c.Accept(context.Background(), "k1||APP||org1||app1", Minute, 2, func(r xasync.Result[bool]) {
			calls.Add(1)
			results <- r
		})
	}

	var accepted, rejected int
	for range 3 {
		r := <-results
		require.NoError(t, r.Err())
		if r.Value() {
			accepted++
		} else {
			rejected++
		}
	}
	assert.Equal(t, 2, accepted)
	assert.Equal(t, 1, rejected)
	assert.Equal(t, int32(3), calls.Load())
}

func TestComponent_AcceptSync_InvalidInput(t *testing.T) {
	c := newTestComponent(t, &stubBackend{})
	ctx := context.Background()

	_, err := c.AcceptSync(ctx, "", Minute, 10)
	assert.ErrorIs(t, err, ErrInvalidKey)
	_, err = c.AcceptSync(ctx, "k", Minute, 0)
	assert.ErrorIs(t, err, ErrInvalidLimit)
	_, err = c.AcceptSync(ctx, "k", Period(99), 10)
	assert.ErrorIs(t, err, ErrInvalidPeriod)
}

func TestComponent_CounterKeyAndReset(t *testing.T) {
	stub := &stubBackend{}
	now := time.Unix(1_700_000_070, 0)
	c := newTestComponent(t, stub, WithKeyPrefix("rl:"), WithClock(func() time.Time { return now }))

	ok, err := c.AcceptSync(context.Background(), "k1||SERVICE||orgS||svc1", Minute, 10)
	require.NoError(t, err)
	assert.True(t, ok)

	key := "rl:k1||SERVICE||orgS||svc1::MINUTE::1700000040"
	assert.True(t, stub.hasKey(key))

	require.NoError(t, c.Reset(context.Background(), "k1||SERVICE||orgS||svc1", Minute))
	assert.False(t, stub.hasKey(key))
	assert.ErrorIs(t, c.Reset(context.Background(), "", Minute), ErrInvalidKey)
}

func TestComponent_WindowRollover(t *testing.T) {
	local, err := NewLocalBackend(1, 16)
	require.NoError(t, err)
	var now atomic.Int64
	now.Store(time.Date(2024, 3, 1, 10, 0, 59, 0, time.UTC).Unix())
	c := newTestComponent(t, local, WithClock(func() time.Time { return time.Unix(now.Load(), 0) }))
	ctx := context.Background()

	ok, err := c.AcceptSync(ctx, "b", Minute, 1)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, _ = c.AcceptSync(ctx, "b", Minute, 1)
	assert.False(t, ok)

	// 下一分钟是新窗口
	now.Add(1)
	ok, err = c.AcceptSync(ctx, "b", Minute, 1)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestComponent_ConcurrentAdmission(t *testing.T) {
	local, err := NewLocalBackend(8, 256)
	require.NoError(t, err)
	now := time.Unix(1_700_000_000, 0)
	c := newTestComponent(t, local, WithWorkers(8, 512), WithClock(func() time.Time { return now }))

	const n, limit = 300, 120
	var wg sync.WaitGroup
	var accepted, rejected atomic.Int64
	wg.Add(n)
	for range n {
		c.Accept(context.Background(), "hot", Second, limit, func(r xasync.Result[bool]) {
			defer wg.Done()
			switch {
			case r.IsError():
			case r.Value():
				accepted.Add(1)
			default:
				rejected.Add(1)
			}
		})
	}
	wg.Wait()
	assert.Equal(t, int64(limit), accepted.Load())
	assert.Equal(t, int64(n-limit), rejected.Load())
}

func TestComponent_QueueFullAndClosed(t *testing.T) {
	stub := &stubBackend{release: make(chan struct{})}
	c, err := New(stub, WithWorkers(1, 1))
	require.NoError(t, err)

	results := make(chan error, 3)
	handler := func(r xasync.Result[bool]) { results <- r.Err() }

	c.Accept(context.Background(), "k", Minute, 1, handler) // worker 取走后阻塞
	require.Eventually(t, func() bool { return stub.calls.Load() == 1 }, time.Second, time.Millisecond)
	c.Accept(context.Background(), "k", Minute, 1, handler) // 占满队列
	c.Accept(context.Background(), "k", Minute, 1, handler)
	assert.ErrorIs(t, <-results, ErrQueueFull)

	close(stub.release)
	assert.NoError(t, <-results)
	assert.NoError(t, <-results)

	require.NoError(t, c.Close(context.Background()))
	require.NoError(t, c.Close(context.Background()))
	_, err = c.AcceptSync(context.Background(), "k", Minute, 1)
	assert.ErrorIs(t, err, ErrClosed)
	assert.NotPanics(t, func() { c.Accept(context.Background(), "k", Minute, 1, nil) })
}

func TestComponent_CallerCancelDoesNotAbortCheck(t *testing.T) {
	stub := &stubBackend{fn: func(ctx context.Context) (Decision, error) {
		return Decision{Accepted: ctx.Err() == nil}, nil
	}}
	c := newTestComponent(t, stub, WithTimeout(0))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan xasync.Result[bool], 1)
	cancel()
	c.Accept(ctx, "k", Minute, 1, func(r xasync.Result[bool]) { done <- r })

	r := <-done
	require.NoError(t, r.Err())
	assert.True(t, r.Value())
}

func TestComponent_Timeout(t *testing.T) {
	stub := &stubBackend{fn: func(ctx context.Context) (Decision, error) {
		<-ctx.Done()
		return Decision{}, ctx.Err()
	}}
	c := newTestComponent(t, stub, WithTimeout(10*time.Millisecond))

	_, err := c.AcceptSync(context.Background(), "k", Minute, 1)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, IsInfraError(err))
}

func TestComponent_Fallback(t *testing.T) {
	refused := &stubBackend{fn: failingWith(syscall.ECONNREFUSED)}
	invalid := errors.New("WRONGTYPE Operation against a key holding the wrong kind of value")

	tests := []struct {
		name     string
		backend  *stubBackend
		strategy FallbackStrategy
		want     bool
		wantErr  error
	}{
		{"none propagates", refused, FallbackNone, false, syscall.ECONNREFUSED},
		{"open accepts", refused, FallbackOpen, true, nil},
		{"close rejects", refused, FallbackClose, false, nil},
		{"local counts", refused, FallbackLocal, true, nil},
		{"non-infra error skips fallback", &stubBackend{fn: failingWith(invalid)}, FallbackOpen, false, invalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var fellBack atomic.Bool
			c := newTestComponent(t, tt.backend, WithFallback(tt.strategy),
				WithOnFallback(func(string, FallbackStrategy, error) { fellBack.Store(true) }))

			ok, err := c.AcceptSync(context.Background(), "k", Minute, 1)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.False(t, fellBack.Load())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
			assert.True(t, fellBack.Load())
		})
	}
}

func TestComponent_LocalFallbackEnforcesLimit(t *testing.T) {
	c := newTestComponent(t, &stubBackend{fn: failingWith(syscall.ECONNRESET)}, WithFallback(FallbackLocal))
	ctx := context.Background()

	ok, err := c.AcceptSync(ctx, "k", Hour, 1)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = c.AcceptSync(ctx, "k", Hour, 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestComponent_BreakerOpens(t *testing.T) {
	stub := &stubBackend{fn: failingWith(syscall.ECONNREFUSED)}
	var transitions []string
	var mu sync.Mutex
	c := newTestComponent(t, stub, WithBreaker(2, time.Minute),
		WithOnStateChange(func(_, from, to string) {
			mu.Lock()
			transitions = append(transitions, from+"->"+to)
			mu.Unlock()
		}))
	ctx := context.Background()

	for range 2 {
		_, err := c.AcceptSync(ctx, "k", Minute, 1)
		assert.ErrorIs(t, err, syscall.ECONNREFUSED)
	}
	_, err := c.AcceptSync(ctx, "k", Minute, 1)
	assert.ErrorIs(t, err, ErrBackendUnavailable)
	assert.Equal(t, int64(2), stub.calls.Load(), "open breaker does not call backend")

	mu.Lock()
	assert.Equal(t, []string{"closed->open"}, transitions)
	mu.Unlock()
}

func TestComponent_Metrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	local, err := NewLocalBackend(1, 8)
	require.NoError(t, err)
	c := newTestComponent(t, local, WithMeterProvider(mp))
	for range 3 {
		_, err := c.AcceptSync(context.Background(), "k", Day, 2)
		require.NoError(t, err)
	}

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	sums := map[string]map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			sums[m.Name] = map[string]int64{}
			for _, dp := range sum.DataPoints {
				result, _ := dp.Attributes.Value(attribute.Key("result"))
				sums[m.Name][result.AsString()] += dp.Value
			}
		}
	}
	assert.Equal(t, int64(2), sums[metricNameRequestsTotal][resultAccepted])
	assert.Equal(t, int64(1), sums[metricNameRequestsTotal][resultDenied])
	assert.Equal(t, int64(1), sums[metricNameDeniedTotal][resultDenied])
}

func TestNew_Validation(t *testing.T) {
	_, err := New(nil)
	assert.ErrorIs(t, err, ErrNilBackend)

	_, err = New(&stubBackend{}, WithFallback("random"))
	assert.ErrorIs(t, err, ErrInvalidConfig)

	cfg := DefaultConfig()
	cfg.Location = "Mars/Olympus_Mons"
	_, err = New(&stubBackend{}, WithConfig(cfg))
	assert.ErrorIs(t, err, ErrInvalidConfig)

	cfg = DefaultConfig()
	cfg.Breaker = BreakerConfig{Enabled: true}
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

	cfg = DefaultConfig()
	cfg.Backend = "memcached"
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
}

func TestComponent_BackendPanicResolvesHandler(t *testing.T) {
	stub := &stubBackend{fn: func(context.Context) (Decision, error) {
		panic("counter store exploded")
	}}
	c := newTestComponent(t, stub, WithWorkers(1, 4))

	done := make(chan xasync.Result[bool], 1)
	c.Accept(context.Background(), "k", Minute, 5, func(r xasync.Result[bool]) { done <- r })

	select {
	case r := <-done:
		require.True(t, r.IsError())
		assert.ErrorIs(t, r.Err(), ErrBackendPanic)
		assert.False(t, IsInfraError(r.Err()))
	case <-time.After(time.Second):
		t.Fatal("handler not invoked after backend panic")
	}

	// worker 仍然可用
	stub.fn = nil
	ok, err := c.AcceptSync(context.Background(), "k", Minute, 5)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestComponent_ClockSharedWithBackend(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := NewMockcasStore(ctrl)
	b := newEtcdBackend(store)
	// 窗口 [1700000040, 1700000100)，距结束 30s
	now := time.Unix(1_700_000_070, 0)
	c := newTestComponent(t, b, WithClock(func() time.Time { return now }))

	key := "xgate:k::MINUTE::1700000040"
	store.EXPECT().Load(gomock.Any(), key).Return(int64(0), int64(0), nil)
	store.EXPECT().CompareAndSwap(gomock.Any(), key, int64(0), int64(1), 30*time.Second).Return(true, nil)

	ok, err := c.AcceptSync(context.Background(), "k", Minute, 5)
	require.NoError(t, err)
	assert.True(t, ok)
}
