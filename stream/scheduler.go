package stream

import (
	"sync"

	"github.com/rise-and-shine/statebus/executor"
	"github.com/rise-and-shine/statebus/observability/logger"
)

// Scheduler hands out Workers. Work scheduled on one Worker runs in FIFO order and never
// concurrently with other work on the same Worker.
type Scheduler interface {
	CreateWorker() Worker
}

// Worker runs scheduled functions. A disposed worker drops pending and future work.
type Worker interface {
	Schedule(fn func())
	Dispose()
}

type immediate struct{}

// Immediate runs work inline on the calling goroutine.
func Immediate() Scheduler {
	return immediate{}
}

func (immediate) CreateWorker() Worker {
	return &immediateWorker{}
}

type immediateWorker struct {
	disposed bool
	mu       sync.Mutex
}

func (w *immediateWorker) Schedule(fn func()) {
	w.mu.Lock()
	disposed := w.disposed
	w.mu.Unlock()
	if !disposed {
		fn()
	}
}

func (w *immediateWorker) Dispose() {
	w.mu.Lock()
	w.disposed = true
	w.mu.Unlock()
}

type launcher func(drain func()) error

type launcherScheduler struct {
	name   string
	launch launcher
}

// NewGoroutine gives every worker its own goroutine, started when work arrives and
// exiting when the worker's queue is empty.
func NewGoroutine() Scheduler {
	return &launcherScheduler{
		name: "goroutine",
		launch: func(drain func()) error {
			go drain()
			return nil
		},
	}
}

// FromExecutor runs worker queues on exec. Work scheduled after exec shuts down is
// dropped and logged.
func FromExecutor(exec executor.Executor) Scheduler {
	return &launcherScheduler{
		name:   "executor",
		launch: exec.Submit,
	}
}

func (s *launcherScheduler) CreateWorker() Worker {
	return &queueWorker{
		launch: s.launch,
		logger: logger.Named("statebus.stream").With("scheduler", s.name),
	}
}

type queueWorker struct {
	launch launcher
	logger logger.Logger

	mu       sync.Mutex
	queue    []func()
	draining bool
	disposed bool
}

func (w *queueWorker) Schedule(fn func()) {
	w.mu.Lock()
	if w.disposed {
		w.mu.Unlock()
		return
	}
	w.queue = append(w.queue, fn)
	if w.draining {
		w.mu.Unlock()
		return
	}
	w.draining = true
	w.mu.Unlock()

	if err := w.launch(w.drain); err != nil {
		w.mu.Lock()
		w.draining = false
		w.queue = nil
		w.mu.Unlock()
		w.logger.Warnx(err)
	}
}

func (w *queueWorker) drain() {
	for {
		w.mu.Lock()
		if w.disposed || len(w.queue) == 0 {
			w.draining = false
			w.queue = nil
			w.mu.Unlock()
			return
		}
		fn := w.queue[0]
		w.queue[0] = nil
		w.queue = w.queue[1:]
		w.mu.Unlock()

		fn()
	}
}

func (w *queueWorker) Dispose() {
	w.mu.Lock()
	w.disposed = true
	w.queue = nil
	w.mu.Unlock()
}
