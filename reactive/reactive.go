// Package reactive extends statebus with stream-returning command handlers and
// streams of state transitions.
//
// Reactive handlers are subscribed on the subscribe scheduler and observed on the
// observe scheduler. Both default to running inline, in which case a reactive command
// behaves like a sync one. With other schedulers HandleCommand returns before the
// stream finishes, and callers observe the effects through ObserveStateChanges.
package reactive

import (
	"github.com/rise-and-shine/statebus"
	"github.com/rise-and-shine/statebus/observability/logger"
	"github.com/rise-and-shine/statebus/state"
	"github.com/rise-and-shine/statebus/stream"
)

// StateChange is a new state and the event that produced it.
type StateChange[S any] struct {
	State S
	Event any
}

// Bus is a statebus.Bus that also accepts reactive command handlers.
type Bus[S any] struct {
	*statebus.Bus[S]

	rt *runtime
}

// Option configures a reactive Bus.
type Option func(*options)

type options struct {
	busOpts       []statebus.Option
	subscribeOn   stream.Scheduler
	observeOn     stream.Scheduler
	undeliverable func(error)
}

// WithBusOptions passes options to the underlying statebus.Bus.
func WithBusOptions(opts ...statebus.Option) Option {
	return func(o *options) {
		o.busOpts = append(o.busOpts, opts...)
	}
}

func WithSubscribeScheduler(s stream.Scheduler) Option {
	return func(o *options) {
		o.subscribeOn = s
	}
}

func WithObserveScheduler(s stream.Scheduler) Option {
	return func(o *options) {
		o.observeOn = s
	}
}

// WithUndeliverableErrorHandler receives reactive failures that surface after
// HandleCommand returned and that no command logger observed. The default logs them.
func WithUndeliverableErrorHandler(fn func(error)) Option {
	return func(o *options) {
		o.undeliverable = fn
	}
}

// New creates a reactive bus holding initial.
func New[S any](initial S, opts ...Option) (*Bus[S], error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.undeliverable == nil {
		log := logger.Named("statebus.reactive")
		o.undeliverable = log.Errorx
	}

	rt := &runtime{
		subscribeOn:   o.subscribeOn,
		observeOn:     o.observeOn,
		subs:          stream.NewComposite(),
		undeliverable: o.undeliverable,
	}

	base, err := statebus.New(initial, append(o.busOpts, statebus.WithReactiveRuntime(rt))...)
	if err != nil {
		return nil, err
	}
	return &Bus[S]{Bus: base, rt: rt}, nil
}

// MapCommandHandler registers handler for commands of type C. Besides the sync and
// async shapes it accepts handlers returning stream.Stream[command.Event] or
// stream.Stream[[]command.Event].
func MapCommandHandler[S, C any](b *Bus[S], handler any) error {
	return statebus.MapCommandHandler[S, C](b.Bus, handler)
}

func MapEventHandler[S, E any](b *Bus[S], handler any) error {
	return statebus.MapEventHandler[S, E](b.Bus, handler)
}

// SetCommandSubscribeScheduler sets where reactive handler streams are subscribed.
// nil restores the inline default.
func (b *Bus[S]) SetCommandSubscribeScheduler(s stream.Scheduler) {
	b.rt.setSubscribeScheduler(s)
}

// SetCommandObserveScheduler sets where reactive handler emissions are applied.
// nil restores the inline default.
func (b *Bus[S]) SetCommandObserveScheduler(s stream.Scheduler) {
	b.rt.setObserveScheduler(s)
}

// ObserveStateChanges streams transitions to a different state. Every subscription
// registers its own listener and removes it on unsubscribe. The stream completes
// when the bus is disposed.
func (b *Bus[S]) ObserveStateChanges() stream.Stream[StateChange[S]] {
	return b.observe(b.AddStateChangedListener, b.RemoveStateChangedListener)
}

// ObserveStateUpdates streams every applied event, whether or not the state changed.
func (b *Bus[S]) ObserveStateUpdates() stream.Stream[StateChange[S]] {
	return b.observe(b.AddStateUpdatedListener, b.RemoveStateUpdatedListener)
}

func (b *Bus[S]) observe(
	add func(state.Listener[S]) error,
	remove func(state.Listener[S]),
) stream.Stream[StateChange[S]] {
	return stream.Create(func(e stream.Emitter[StateChange[S]]) {
		l := state.NewListener(func(s S, evt any) {
			e.Next(StateChange[S]{State: s, Event: evt})
		})
		if err := add(l); err != nil {
			e.Error(err)
			return
		}

		revoke := stream.NewSubscription(e.Complete)
		e.OnCancel(func() {
			remove(l)
			b.rt.Untrack(revoke)
			revoke.Unsubscribe()
		})
		b.rt.Track(revoke)
	})
}

// Dispose revokes every running reactive subscription, then disposes the bus.
func (b *Bus[S]) Dispose() error {
	b.rt.subs.Dispose()
	return b.Bus.Dispose()
}
