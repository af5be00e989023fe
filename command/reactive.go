package command

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/code19m/errx"
	"github.com/rise-and-shine/statebus/failure"
	"github.com/rise-and-shine/statebus/stream"
)

var errNoRuntime = errx.New("[command]: reactive runtime detached", errx.WithType(errx.T_Internal))

// dispatchErrors collects errors raised while the dispatch call is still running.
// Once the call has returned, errors go to the runtime's undeliverable handler.
type dispatchErrors struct {
	mu       sync.Mutex
	open     bool
	errs     []error
	fallback func(error)
}

func (d *dispatchErrors) report(err error) {
	if err == nil {
		return
	}
	d.mu.Lock()
	if d.open {
		d.errs = append(d.errs, err)
		d.mu.Unlock()
		return
	}
	d.mu.Unlock()
	d.fallback(err)
}

func (d *dispatchErrors) close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.open = false
	return errors.Join(d.errs...)
}

// executeReactive subscribes to the handler's stream with the runtime's schedulers.
// With inline schedulers everything happens before it returns; otherwise effects
// land later on the scheduler's goroutines.
func (e *Engine[S]) executeReactive(ctx context.Context, cmd any, r *Registration[S], snapshot S) error {
	rt := e.reactiveRuntime()
	if rt == nil {
		return e.fail(cmd, failure.Wrap(errNoRuntime, cmd, "reactive"))
	}

	src, err := e.buildStream(ctx, cmd, r, snapshot)
	if err != nil {
		return e.fail(cmd, err)
	}
	if src == nil {
		return e.succeed(ctx, cmd, nil)
	}

	// emissions may outlive the caller's context
	applyCtx := context.WithoutCancel(ctx)
	errs := &dispatchErrors{open: true, fallback: rt.Undeliverable}

	var (
		emitted    atomic.Bool
		terminated atomic.Bool
		sub        stream.Subscription
		subMu      sync.Mutex
	)
	release := func() {
		terminated.Store(true)
		subMu.Lock()
		s := sub
		subMu.Unlock()
		if s != nil {
			rt.Untrack(s)
		}
	}

	observed := stream.ObserveOn(stream.SubscribeOn(src, rt.SubscribeScheduler()), rt.ObserveScheduler())
	s := observed.Subscribe(stream.Observer[[]Event]{
		OnNext: func(events []Event) {
			emitted.Store(true)
			errs.report(e.succeed(applyCtx, cmd, events))
		},
		OnError: func(err error) {
			errs.report(e.fail(cmd, failure.Wrap(err, cmd, "reactive")))
			release()
		},
		OnComplete: func() {
			if !emitted.Load() {
				errs.report(e.succeed(applyCtx, cmd, nil))
			}
			release()
		},
	})

	subMu.Lock()
	sub = s
	subMu.Unlock()

	if !terminated.Load() {
		rt.Track(s)
		if terminated.Load() {
			rt.Untrack(s)
		}
	}

	return errs.close()
}

func (e *Engine[S]) buildStream(
	ctx context.Context,
	cmd any,
	r *Registration[S],
	snapshot S,
) (src stream.Stream[[]Event], err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = failure.Recover(rec, cmd, "reactive")
		}
	}()
	return r.reactive(ctx, snapshot, cmd), nil
}
