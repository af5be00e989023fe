// Package stream is a small push-based stream library: sources, two scheduling
// operators and cancellable subscriptions. Reactive command handlers return a Stream.
//
// A stream delivers zero or more Next notifications followed by at most one terminal
// Error or Complete. Nothing is delivered after a terminal notification or after the
// subscription is cancelled.
package stream

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/code19m/errx"
	"github.com/rise-and-shine/statebus/observability/logger"
)

// Stream is a cold source: each Subscribe starts an independent run.
type Stream[T any] interface {
	Subscribe(o Observer[T]) Subscription
}

// Observer receives notifications. Nil callbacks are skipped; an error with no OnError
// is logged.
type Observer[T any] struct {
	OnNext     func(T)
	OnError    func(error)
	OnComplete func()

	// parent is cancelled by operators downstream; sources link their own
	// subscription to it before they start emitting.
	parent *Disposable
}

func (o Observer[T]) next(v T) {
	if o.OnNext != nil {
		o.OnNext(v)
	}
}

func (o Observer[T]) fail(err error) {
	if o.OnError != nil {
		o.OnError(err)
		return
	}
	logger.Named("statebus.stream").Errorx(errx.Wrap(err, errx.WithDetails(errx.D{
		"reason": "stream error without OnError",
	})))
}

func (o Observer[T]) complete() {
	if o.OnComplete != nil {
		o.OnComplete()
	}
}

// Func adapts a subscribe function to Stream.
type Func[T any] func(o Observer[T]) Subscription

func (f Func[T]) Subscribe(o Observer[T]) Subscription {
	return f(o)
}

// Emitter is handed to Create sources.
type Emitter[T any] interface {
	Next(v T)
	Error(err error)
	Complete()

	// IsCancelled reports whether the subscriber is gone or the stream terminated.
	IsCancelled() bool

	// OnCancel registers teardown for the source.
	OnCancel(fn func())
}

type emitter[T any] struct {
	o          Observer[T]
	sub        *Disposable
	terminated atomic.Bool
}

func (e *emitter[T]) Next(v T) {
	if e.IsCancelled() {
		return
	}
	e.o.next(v)
}

func (e *emitter[T]) Error(err error) {
	if e.sub.IsUnsubscribed() || e.terminated.Swap(true) {
		return
	}
	e.o.fail(err)
	e.sub.Unsubscribe()
}

func (e *emitter[T]) Complete() {
	if e.sub.IsUnsubscribed() || e.terminated.Swap(true) {
		return
	}
	e.o.complete()
	e.sub.Unsubscribe()
}

func (e *emitter[T]) IsCancelled() bool {
	return e.terminated.Load() || e.sub.IsUnsubscribed()
}

func (e *emitter[T]) OnCancel(fn func()) {
	e.sub.OnCancel(fn)
}

// Create builds a stream from a source function run once per subscription on the
// subscribing goroutine. A panic in source is delivered as an error.
func Create[T any](source func(e Emitter[T])) Stream[T] {
	return Func[T](func(o Observer[T]) Subscription {
		em := &emitter[T]{o: o, sub: NewSubscription(nil)}
		if o.parent != nil {
			o.parent.OnCancel(em.sub.Unsubscribe)
		}

		func() {
			defer func() {
				if r := recover(); r != nil {
					err, ok := r.(error)
					if !ok {
						err = errx.New("panic recovered in stream source", errx.WithDetails(errx.D{
							"panic_values": fmt.Sprintf("%v", r),
						}))
					}
					em.Error(err)
				}
			}()
			source(em)
		}()

		return em.sub
	})
}

// Just emits values in order and completes.
func Just[T any](values ...T) Stream[T] {
	return Create(func(e Emitter[T]) {
		for _, v := range values {
			if e.IsCancelled() {
				return
			}
			e.Next(v)
		}
		e.Complete()
	})
}

// Empty completes without emitting.
func Empty[T any]() Stream[T] {
	return Create(func(e Emitter[T]) {
		e.Complete()
	})
}

// Fail terminates with err.
func Fail[T any](err error) Stream[T] {
	return Create(func(e Emitter[T]) {
		e.Error(err)
	})
}

// FromTask runs task on subscribe and emits its single result. The task context is
// cancelled when the subscription is.
func FromTask[T any](task func(ctx context.Context) (T, error)) Stream[T] {
	return Create(func(e Emitter[T]) {
		ctx, cancel := context.WithCancel(context.Background())
		e.OnCancel(cancel)
		defer cancel()

		v, err := task(ctx)
		if err != nil {
			e.Error(err)
			return
		}
		e.Next(v)
		e.Complete()
	})
}

// Map transforms every value.
func Map[T, R any](s Stream[T], fn func(T) R) Stream[R] {
	return Func[R](func(o Observer[R]) Subscription {
		return s.Subscribe(Observer[T]{
			OnNext:     func(v T) { o.next(fn(v)) },
			OnError:    o.fail,
			OnComplete: o.complete,
			parent:     o.parent,
		})
	})
}

// SubscribeOn subscribes to s on a worker of sched.
func SubscribeOn[T any](s Stream[T], sched Scheduler) Stream[T] {
	return Func[T](func(o Observer[T]) Subscription {
		outer := NewSubscription(nil)
		w := sched.CreateWorker()
		outer.OnCancel(w.Dispose)

		w.Schedule(func() {
			if outer.IsUnsubscribed() {
				return
			}
			inner := s.Subscribe(guard(o, outer))
			outer.OnCancel(inner.Unsubscribe)
		})
		return outer
	})
}

// ObserveOn delivers notifications of s on a worker of sched, in order.
func ObserveOn[T any](s Stream[T], sched Scheduler) Stream[T] {
	return Func[T](func(o Observer[T]) Subscription {
		outer := NewSubscription(nil)
		w := sched.CreateWorker()
		outer.OnCancel(w.Dispose)

		inner := s.Subscribe(Observer[T]{
			OnNext: func(v T) {
				w.Schedule(func() {
					if !outer.IsUnsubscribed() {
						o.next(v)
					}
				})
			},
			OnError: func(err error) {
				w.Schedule(func() {
					if !outer.IsUnsubscribed() {
						o.fail(err)
					}
				})
			},
			OnComplete: func() {
				w.Schedule(func() {
					if !outer.IsUnsubscribed() {
						o.complete()
					}
				})
			},
			parent: outer,
		})
		outer.OnCancel(inner.Unsubscribe)
		return outer
	})
}

func guard[T any](o Observer[T], sub *Disposable) Observer[T] {
	return Observer[T]{
		OnNext: func(v T) {
			if !sub.IsUnsubscribed() {
				o.next(v)
			}
		},
		OnError: func(err error) {
			if !sub.IsUnsubscribed() {
				o.fail(err)
			}
		},
		OnComplete: func() {
			if !sub.IsUnsubscribed() {
				o.complete()
			}
		},
		parent: sub,
	}
}
