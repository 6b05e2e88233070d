package xlimit

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalBackend_IncrementUntilLimit(t *testing.T) {
	b, err := NewLocalBackend(4, 64)
	require.NoError(t, err)
	ctx := context.Background()
	expireAt := time.Now().Add(time.Minute)

	for i := int64(1); i <= 3; i++ {
		d, err := b.Increment(ctx, "k", 3, expireAt)
		require.NoError(t, err)
		assert.True(t, d.Accepted)
		assert.Equal(t, i, d.Count)
	}

	d, err := b.Increment(ctx, "k", 3, expireAt)
	require.NoError(t, err)
	assert.False(t, d.Accepted)
	assert.Equal(t, int64(3), d.Count, "rejected call does not increment")

	require.NoError(t, b.Delete(ctx, "k"))
	d, err = b.Increment(ctx, "k", 3, expireAt)
	require.NoError(t, err)
	assert.Equal(t, int64(1), d.Count)
	assert.Equal(t, "local", b.Name())
}

func TestLocalBackend_NewWindowRestartsCounter(t *testing.T) {
	b, err := NewLocalBackend(1, 8)
	require.NoError(t, err)
	end := time.Unix(1_700_000_001, 0)

	_, err = b.Increment(context.Background(), "k", 1, end)
	require.NoError(t, err)
	d, _ := b.Increment(context.Background(), "k", 1, end)
	assert.False(t, d.Accepted)

	d, err = b.Increment(context.Background(), "k", 1, end.Add(time.Second))
	require.NoError(t, err)
	assert.True(t, d.Accepted)
	assert.Equal(t, int64(1), d.Count)
}

func TestLocalBackend_PastExpiryStillEnforcesLimit(t *testing.T) {
	b, err := NewLocalBackend(1, 8)
	require.NoError(t, err)
	// 调用方时钟可能落后于本机，窗口终点已过去时同一窗口仍需按阈值计数
	expireAt := time.Now().Add(-time.Millisecond)

	var admitted int
	for range 10 {
		d, err := b.Increment(context.Background(), "k", 3, expireAt)
		require.NoError(t, err)
		if d.Accepted {
			admitted++
		}
	}
	assert.Equal(t, 3, admitted)
}

func TestLocalBackend_EvictsLeastRecentlyUsed(t *testing.T) {
	b, err := NewLocalBackend(1, 2)
	require.NoError(t, err)
	ctx := context.Background()
	expireAt := time.Now().Add(time.Hour)

	for i := range 3 {
		_, err := b.Increment(ctx, "k"+strconv.Itoa(i), 10, expireAt)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, b.Len())

	require.NoError(t, b.Close(ctx))
	assert.Zero(t, b.Len())
}

func TestLocalBackend_CanceledContext(t *testing.T) {
	b, err := NewLocalBackend(0, 0)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = b.Increment(ctx, "k", 1, time.Now().Add(time.Minute))
	assert.ErrorIs(t, err, context.Canceled)
}

// assertConcurrentAdmission N 个并发请求恰好放行 min(N, limit) 个
func assertConcurrentAdmission(t *testing.T, b Backend, n int, limit int64) {
	t.Helper()
	var (
		wg       sync.WaitGroup
		accepted atomic.Int64
		start    = make(chan struct{})
		expireAt = time.Now().Add(time.Minute)
	)
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			d, err := b.Increment(context.Background(), "hot-bucket", limit, expireAt)
			if assert.NoError(t, err) && d.Accepted {
				accepted.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()
	assert.Equal(t, min(int64(n), limit), accepted.Load())
}

func TestLocalBackend_ConcurrentAdmission(t *testing.T) {
	for _, tc := range []struct {
		n     int
		limit int64
	}{{200, 50}, {30, 50}} {
		b, err := NewLocalBackend(8, 128)
		require.NoError(t, err)
		assertConcurrentAdmission(t, b, tc.n, tc.limit)
	}
}
