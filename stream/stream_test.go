package stream_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rise-and-shine/statebus/executor"
	"github.com/rise-and-shine/statebus/stream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder[T any] struct {
	mu        sync.Mutex
	values    []T
	err       error
	completed bool
	done      chan struct{}
	once      sync.Once
}

func newRecorder[T any]() *recorder[T] {
	return &recorder[T]{done: make(chan struct{})}
}

func (r *recorder[T]) observer() stream.Observer[T] {
	return stream.Observer[T]{
		OnNext: func(v T) {
			r.mu.Lock()
			r.values = append(r.values, v)
			r.mu.Unlock()
		},
		OnError: func(err error) {
			r.mu.Lock()
			r.err = err
			r.mu.Unlock()
			r.once.Do(func() { close(r.done) })
		},
		OnComplete: func() {
			r.mu.Lock()
			r.completed = true
			r.mu.Unlock()
			r.once.Do(func() { close(r.done) })
		},
	}
}

func (r *recorder[T]) wait(t *testing.T) {
	t.Helper()
	select {
	case <-r.done:
	case <-time.After(time.Second):
		t.Fatal("stream did not terminate")
	}
}

func TestSources(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name          string
		source        stream.Stream[int]
		wantValues    []int
		wantErr       error
		wantCompleted bool
	}{
		{name: "just", source: stream.Just(1, 2, 3), wantValues: []int{1, 2, 3}, wantCompleted: true},
		{name: "empty", source: stream.Empty[int](), wantCompleted: true},
		{name: "fail", source: stream.Fail[int](boom), wantErr: boom},
		{name: "task", source: stream.FromTask(func(context.Context) (int, error) { return 7, nil }),
			wantValues: []int{7}, wantCompleted: true},
		{name: "task error", source: stream.FromTask(func(context.Context) (int, error) { return 0, boom }),
			wantErr: boom},
		{name: "map", source: stream.Map(stream.Just(1, 2), func(v int) int { return v * 10 }),
			wantValues: []int{10, 20}, wantCompleted: true},
		{name: "no emission after terminal", source: stream.Create(func(e stream.Emitter[int]) {
			e.Next(1)
			e.Complete()
			e.Next(2)
			e.Error(boom)
		}), wantValues: []int{1}, wantCompleted: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := newRecorder[int]()
			sub := tc.source.Subscribe(rec.observer())
			rec.wait(t)

			assert.Equal(t, tc.wantValues, rec.values)
			assert.Equal(t, tc.wantCompleted, rec.completed)
			assert.ErrorIs(t, rec.err, tc.wantErr)
			assert.True(t, sub.IsUnsubscribed(), "terminal notification releases the subscription")
		})
	}
}

func TestCreateRecoversPanic(t *testing.T) {
	rec := newRecorder[int]()
	stream.Create(func(stream.Emitter[int]) { panic("kaboom") }).Subscribe(rec.observer())
	rec.wait(t)

	require.Error(t, rec.err)
	assert.Contains(t, rec.err.Error(), "panic recovered")
}

func TestSubscribeOnGoroutine(t *testing.T) {
	caller := make(chan struct{})
	var ranInline bool

	rec := newRecorder[int]()
	stream.SubscribeOn(stream.Create(func(e stream.Emitter[int]) {
		// an inline subscribe would block here until the timeout
		select {
		case <-caller:
		case <-time.After(500 * time.Millisecond):
			ranInline = true
		}
		e.Next(1)
		e.Complete()
	}), stream.NewGoroutine()).Subscribe(rec.observer())
	close(caller)

	rec.wait(t)
	assert.False(t, ranInline, "source runs off the subscribing goroutine")
	assert.Equal(t, []int{1}, rec.values)
}

func TestObserveOnExecutorKeepsOrder(t *testing.T) {
	ex := executor.NewPool(4)
	defer ex.Shutdown()

	values := make([]int, 100)
	for i := range values {
		values[i] = i
	}

	rec := newRecorder[int]()
	stream.ObserveOn(stream.Just(values...), stream.FromExecutor(ex)).Subscribe(rec.observer())
	rec.wait(t)

	assert.Equal(t, values, rec.values)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	var emit stream.Emitter[int]
	cancelled := make(chan struct{})

	rec := newRecorder[int]()
	sub := stream.Create(func(e stream.Emitter[int]) {
		emit = e
		e.OnCancel(func() { close(cancelled) })
	}).Subscribe(rec.observer())

	emit.Next(1)
	sub.Unsubscribe()
	emit.Next(2)
	emit.Complete()

	<-cancelled
	assert.Equal(t, []int{1}, rec.values)
	assert.False(t, rec.completed)
	assert.True(t, emit.IsCancelled())
}

func TestFromTaskCancelledWithSubscription(t *testing.T) {
	started := make(chan struct{})
	stopped := make(chan error, 1)

	sub := stream.SubscribeOn(stream.FromTask(func(ctx context.Context) (int, error) {
		close(started)
		<-ctx.Done()
		stopped <- ctx.Err()
		return 0, ctx.Err()
	}), stream.NewGoroutine()).Subscribe(stream.Observer[int]{
		OnError: func(error) { t.Error("no callbacks after unsubscribe") },
	})

	<-started
	sub.Unsubscribe()

	select {
	case err := <-stopped:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("task context was not cancelled")
	}
}

func TestComposite(t *testing.T) {
	c := stream.NewComposite()
	a := stream.NewSubscription(nil)
	b := stream.NewSubscription(nil)

	assert.True(t, c.Add(a))
	assert.True(t, c.Add(b))
	assert.Equal(t, 2, c.Len())

	c.Remove(b)
	c.Dispose()

	assert.True(t, a.IsUnsubscribed())
	assert.False(t, b.IsUnsubscribed())
	assert.True(t, c.IsDisposed())

	late := stream.NewSubscription(nil)
	assert.False(t, c.Add(late))
	assert.True(t, late.IsUnsubscribed())
}

func TestSubscriptionHooksRunOnce(t *testing.T) {
	calls := 0
	sub := stream.NewSubscription(func() { calls++ })
	sub.Unsubscribe()
	sub.Unsubscribe()
	assert.Equal(t, 1, calls)

	sub.OnCancel(func() { calls++ })
	assert.Equal(t, 2, calls, "hook added after cancel runs at once")
}
