package reactive

import (
	"sync"

	"github.com/rise-and-shine/statebus/stream"
)

// runtime is what the command engine needs to run stream-returning handlers.
type runtime struct {
	mu          sync.Mutex
	subscribeOn stream.Scheduler
	observeOn   stream.Scheduler

	subs          *stream.Composite
	undeliverable func(error)
}

func (r *runtime) SubscribeScheduler() stream.Scheduler {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.subscribeOn == nil {
		r.subscribeOn = stream.Immediate()
	}
	return r.subscribeOn
}

func (r *runtime) ObserveScheduler() stream.Scheduler {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.observeOn == nil {
		r.observeOn = stream.Immediate()
	}
	return r.observeOn
}

func (r *runtime) setSubscribeScheduler(s stream.Scheduler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subscribeOn = s
}

func (r *runtime) setObserveScheduler(s stream.Scheduler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observeOn = s
}

func (r *runtime) Track(sub stream.Subscription) {
	r.subs.Add(sub)
}

func (r *runtime) Untrack(sub stream.Subscription) {
	r.subs.Remove(sub)
}

func (r *runtime) Undeliverable(err error) {
	r.undeliverable(err)
}
