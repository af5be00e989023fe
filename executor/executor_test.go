package executor_test

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/code19m/errx"
	"github.com/rise-and-shine/statebus/executor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSingleRunsInOrder(t *testing.T) {
	ex := executor.NewSingle()

	var (
		mu  sync.Mutex
		got []int
	)
	for i := range 50 {
		require.NoError(t, ex.Submit(func() {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
		}))
	}
	ex.Shutdown()

	want := make([]int, 50)
	for i := range want {
		want[i] = i
	}
	assert.Equal(t, want, got)
}

func TestPoolRunsConcurrently(t *testing.T) {
	ex := executor.NewPool(4)
	defer ex.Shutdown()

	var running, peak atomic.Int32
	var wg sync.WaitGroup
	release := make(chan struct{})

	for range 4 {
		wg.Add(1)
		require.NoError(t, ex.Submit(func() {
			defer wg.Done()
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			<-release
			running.Add(-1)
		}))
	}

	assert.Eventually(t, func() bool { return peak.Load() == 4 }, time.Second, time.Millisecond)
	close(release)
	wg.Wait()
}

func TestShutdown(t *testing.T) {
	ex := executor.NewPool(2)

	var done atomic.Int32
	for range 10 {
		require.NoError(t, ex.Submit(func() {
			time.Sleep(time.Millisecond)
			done.Add(1)
		}))
	}

	ex.Shutdown()
	ex.Shutdown()

	assert.True(t, ex.IsShutdown())
	assert.Equal(t, int32(10), done.Load(), "queued tasks drain before shutdown returns")

	err := ex.Submit(func() {})
	require.Error(t, err)
	assert.True(t, errx.IsCodeIn(err, executor.CodeExecutorShutdown))
}

func TestPanickingTaskKeepsWorkerAlive(t *testing.T) {
	ex := executor.NewSingle()
	defer ex.Shutdown()

	require.NoError(t, ex.Submit(func() { panic("boom") }))

	ran := make(chan struct{})
	require.NoError(t, ex.Submit(func() { close(ran) }))

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("worker did not survive panic")
	}
}

func TestSubmitFromRunningTask(t *testing.T) {
	ex := executor.NewSingle()
	defer ex.Shutdown()

	done := make(chan struct{})
	var innerErr error
	require.NoError(t, ex.Submit(func() {
		innerErr = ex.Submit(func() { close(done) })
	}))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("task submitted from a running task never ran")
	}
	assert.NoError(t, innerErr)
}
