// Package executor runs submitted work on a bounded set of goroutines.
// Async command handlers are bridged through it.
package executor

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/alitto/pond/v2"
	"github.com/code19m/errx"
	"github.com/rise-and-shine/statebus/observability/logger"
)

// CodeExecutorShutdown is returned by Submit after Shutdown.
const CodeExecutorShutdown = "EXECUTOR_SHUTDOWN"

// Executor accepts tasks until it is shut down.
type Executor interface {
	// Submit queues fn. It never blocks on the task itself.
	Submit(fn func()) error

	// Shutdown stops accepting tasks, lets queued ones finish and waits for the workers.
	// Calling it more than once is safe.
	Shutdown()

	IsShutdown() bool
}

// Pool is an Executor running at most n tasks at a time from an unbounded FIFO queue.
// Submitting from inside a running task never blocks, so schedulers may chain work on
// a single-worker pool.
type Pool struct {
	logger logger.Logger
	pool   pond.Pool

	stop    sync.Once
	stopped atomic.Bool
}

// NewPool runs up to workers tasks concurrently. Values below one mean one.
func NewPool(workers int) *Pool {
	return &Pool{
		logger: logger.Named("statebus.executor"),
		pool:   pond.NewPool(max(workers, 1)),
	}
}

// NewSingle runs tasks one at a time in submit order.
func NewSingle() *Pool {
	return NewPool(1)
}

func (p *Pool) Submit(fn func()) error {
	if fn == nil {
		return errx.New("[executor]: task is nil", errx.WithType(errx.T_Validation))
	}

	if p.stopped.Load() {
		return errShutdown()
	}

	err := p.pool.Go(func() { p.run(fn) })
	switch {
	case err == nil:
		return nil
	case errors.Is(err, pond.ErrPoolStopped):
		return errShutdown()
	default:
		return errx.Wrap(err)
	}
}

func (p *Pool) Shutdown() {
	p.stop.Do(func() {
		p.stopped.Store(true)
		p.pool.StopAndWait()
	})
}

func (p *Pool) IsShutdown() bool {
	return p.stopped.Load()
}

func errShutdown() error {
	return errx.New("[executor]: executor is shut down", errx.WithCode(CodeExecutorShutdown))
}

func (p *Pool) run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			stackTrace := make([]byte, 4096) // 4KB
			stackTrace = stackTrace[:runtime.Stack(stackTrace, false)]
			p.logger.
				With("stack_trace", string(stackTrace)).
				With("panic_values", fmt.Sprintf("%v", r)).
				Error("panic recovered in executor task")
		}
	}()
	fn()
}
