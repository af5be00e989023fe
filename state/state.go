// Package state holds the single current application state and notifies listeners
// when events replace it.
package state

import (
	"reflect"
	"sync/atomic"

	"github.com/code19m/errx"
	"github.com/rise-and-shine/statebus/failure"
	"github.com/rise-and-shine/statebus/internal/idset"
)

// CodeNilArgument is returned when a nil state or event is passed in.
const CodeNilArgument = "NIL_ARGUMENT"

// Listener observes a state together with the event that produced it.
type Listener[S any] interface {
	OnState(state S, evt any)
}

// ListenerFunc adapts a function to Listener. Function values are not comparable, so
// register it through NewListener.
type ListenerFunc[S any] func(state S, evt any)

func (f ListenerFunc[S]) OnState(state S, evt any) {
	f(state, evt)
}

// NewListener wraps fn in a pointer so it can be added and removed.
func NewListener[S any](fn func(state S, evt any)) *ListenerFunc[S] {
	l := ListenerFunc[S](fn)
	return &l
}

// Container keeps the current state. Reads and writes of the reference are atomic,
// but concurrent HandleNewState calls are not serialized.
type Container[S any] struct {
	current atomic.Pointer[S]
	equal   func(a, b S) bool

	changed idset.Set[Listener[S]]
	updated idset.Set[Listener[S]]
}

// Option configures a Container.
type Option[S any] func(*Container[S])

// WithEqual sets the value equality used for change detection.
// The default is reflect.DeepEqual.
func WithEqual[S any](eq func(a, b S) bool) Option[S] {
	return func(c *Container[S]) {
		if eq != nil {
			c.equal = eq
		}
	}
}

// New creates a container holding initial. A nil initial state is rejected.
func New[S any](initial S, opts ...Option[S]) (*Container[S], error) {
	if failure.IsNil(initial) {
		return nil, nilArgument("initial state")
	}

	c := &Container[S]{
		equal: func(a, b S) bool { return reflect.DeepEqual(a, b) },
	}
	for _, opt := range opts {
		opt(c)
	}
	c.current.Store(&initial)
	return c, nil
}

// CurrentState returns the state held right now.
func (c *Container[S]) CurrentState() S {
	return *c.current.Load()
}

// HandleNewState notifies updated listeners, and when s differs from the current
// state, replaces it and notifies changed listeners.
func (c *Container[S]) HandleNewState(s S, evt any) error {
	if failure.IsNil(s) {
		return nilArgument("state")
	}
	if failure.IsNil(evt) {
		return nilArgument("event")
	}

	for _, l := range c.updated.Snapshot() {
		l.OnState(s, evt)
	}

	if c.equal(c.CurrentState(), s) {
		return nil
	}

	next := s
	c.current.Store(&next)

	for _, l := range c.changed.Snapshot() {
		l.OnState(s, evt)
	}
	return nil
}

// AddChangedListener registers l for real changes. Adding twice is a no-op.
func (c *Container[S]) AddChangedListener(l Listener[S]) error {
	_, err := c.changed.Add(l)
	return err
}

func (c *Container[S]) RemoveChangedListener(l Listener[S]) {
	c.changed.Remove(l)
}

// AddUpdatedListener registers l for every handled event.
func (c *Container[S]) AddUpdatedListener(l Listener[S]) error {
	_, err := c.updated.Add(l)
	return err
}

func (c *Container[S]) RemoveUpdatedListener(l Listener[S]) {
	c.updated.Remove(l)
}

// Dispose drops every listener.
func (c *Container[S]) Dispose() {
	c.changed.Clear()
	c.updated.Clear()
}

func nilArgument(what string) error {
	return errx.New("[state]: "+what+" is nil",
		errx.WithCode(CodeNilArgument),
		errx.WithType(errx.T_Validation),
	)
}
