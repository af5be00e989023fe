package stream

import (
	"sync"
	"sync/atomic"

	"github.com/rise-and-shine/statebus/internal/idset"
)

// Subscription is the handle to a running stream. After Unsubscribe returns no further
// observer callbacks are delivered.
type Subscription interface {
	Unsubscribe()
	IsUnsubscribed() bool
}

// Disposable is a Subscription that runs teardown hooks when cancelled.
type Disposable struct {
	done atomic.Bool

	mu    sync.Mutex
	hooks []func()
}

// NewSubscription returns a Subscription that calls onCancel once when cancelled.
func NewSubscription(onCancel func()) *Disposable {
	d := &Disposable{}
	if onCancel != nil {
		d.hooks = append(d.hooks, onCancel)
	}
	return d
}

// OnCancel registers fn to run on Unsubscribe. If already cancelled fn runs at once.
func (d *Disposable) OnCancel(fn func()) {
	d.mu.Lock()
	if !d.done.Load() {
		d.hooks = append(d.hooks, fn)
		d.mu.Unlock()
		return
	}
	d.mu.Unlock()
	fn()
}

func (d *Disposable) Unsubscribe() {
	d.mu.Lock()
	if d.done.Swap(true) {
		d.mu.Unlock()
		return
	}
	hooks := d.hooks
	d.hooks = nil
	d.mu.Unlock()

	for _, fn := range hooks {
		fn()
	}
}

func (d *Disposable) IsUnsubscribed() bool {
	return d.done.Load()
}

// Composite revokes many subscriptions at once. Adding to a disposed Composite
// unsubscribes the added subscription immediately.
type Composite struct {
	mu       sync.Mutex
	disposed bool
	subs     idset.Set[Subscription]
}

func NewComposite() *Composite {
	return &Composite{}
}

// Add tracks sub and reports whether it was kept.
func (c *Composite) Add(sub Subscription) bool {
	if sub == nil {
		return false
	}

	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		sub.Unsubscribe()
		return false
	}
	_, err := c.subs.Add(sub)
	c.mu.Unlock()

	return err == nil
}

// Remove stops tracking sub without cancelling it.
func (c *Composite) Remove(sub Subscription) {
	if sub == nil {
		return
	}
	c.subs.Remove(sub)
}

// Dispose cancels every tracked subscription. Later adds are cancelled on arrival.
func (c *Composite) Dispose() {
	c.mu.Lock()
	c.disposed = true
	subs := c.subs.Snapshot()
	c.subs.Clear()
	c.mu.Unlock()

	for _, s := range subs {
		s.Unsubscribe()
	}
}

// Clear cancels every tracked subscription but keeps accepting new ones.
func (c *Composite) Clear() {
	c.mu.Lock()
	subs := c.subs.Snapshot()
	c.subs.Clear()
	c.mu.Unlock()

	for _, s := range subs {
		s.Unsubscribe()
	}
}

func (c *Composite) IsDisposed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disposed
}

func (c *Composite) Len() int {
	return c.subs.Len()
}
