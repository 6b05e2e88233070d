package xpool

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestNewWorkerPool_Defaults(t *testing.T) {
	_, err := NewWorkerPool[int](1, 1, nil)
	assert.ErrorIs(t, err, ErrNilHandler)

	p, err := NewWorkerPool(0, 0, func(int) {}, nil, WithName("test"))
	require.NoError(t, err)
	assert.Equal(t, 1, p.Workers())
	assert.Equal(t, DefaultQueueSize, p.QueueSize())
	p.Stop()
}

func TestWorkerPool_ProcessesAll(t *testing.T) {
	var sum atomic.Int64
	p, err := NewWorkerPool(4, 64, func(n int) { sum.Add(int64(n)) })
	require.NoError(t, err)
	p.Start()
	p.Start()

	for i := 1; i <= 50; i++ {
		require.NoError(t, p.Submit(i))
	}
	p.Stop()
	assert.Equal(t, int64(1275), sum.Load())
}

func TestWorkerPool_QueueFull(t *testing.T) {
	release := make(chan struct{})
	p, err := NewWorkerPool(1, 1, func(int) { <-release })
	require.NoError(t, err)
	p.Start()

	require.NoError(t, p.Submit(1))
	// 等待 worker 取走第一个任务，队列重新可用
	require.Eventually(t, func() bool { return p.Pending() == 0 }, time.Second, time.Millisecond)
	require.NoError(t, p.Submit(2))
	assert.ErrorIs(t, p.Submit(3), ErrQueueFull)

	close(release)
	p.Stop()
}

func TestWorkerPool_SubmitAfterStop(t *testing.T) {
	p, err := NewWorkerPool(1, 4, func(int) {})
	require.NoError(t, err)
	p.Start()
	p.Stop()
	p.Stop()
	assert.ErrorIs(t, p.Submit(1), ErrPoolStopped)
}

func TestWorkerPool_PanicRecovered(t *testing.T) {
	var done atomic.Int32
	p, err := NewWorkerPool(1, 8, func(n int) {
		if n == 0 {
			panic("boom")
		}
		done.Add(1)
	})
	require.NoError(t, err)
	p.Start()

	require.NoError(t, p.Submit(0))
	require.NoError(t, p.Submit(1))
	require.NoError(t, p.Submit(2))
	p.Stop()
	assert.Equal(t, int32(2), done.Load())
}

func TestWorkerPool_ConcurrentSubmitAndStop(t *testing.T) {
	p, err := NewWorkerPool(2, 16, func(int) {})
	require.NoError(t, err)
	p.Start()

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range 100 {
				err := p.Submit(i*100 + j)
				if err != nil {
					assert.True(t, err == ErrQueueFull || err == ErrPoolStopped)
				}
			}
		}()
	}
	p.Stop()
	wg.Wait()
}

func TestWorkerPool_StopWithoutStart(t *testing.T) {
	var ran atomic.Bool
	p, err := NewWorkerPool(1, 4, func(int) { ran.Store(true) })
	require.NoError(t, err)
	require.NoError(t, p.Submit(1))
	p.Stop()
	p.Start()
	assert.False(t, ran.Load())
}
