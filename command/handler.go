package command

import (
	"context"

	"github.com/rise-and-shine/statebus/stream"
)

// Event is any value an event handler is mapped for. A nil Event means "no event".
type Event = any

// Task is deferred work run on the command executor.
type Task[T any] func(ctx context.Context) (T, error)

type (
	VoidHandler[S, C any] interface {
		Handle(ctx context.Context, state S, cmd C) error
	}

	SingleHandler[S, C any] interface {
		Handle(ctx context.Context, state S, cmd C) (Event, error)
	}

	MultiHandler[S, C any] interface {
		Handle(ctx context.Context, state S, cmd C) ([]Event, error)
	}

	AsyncSingleHandler[S, C any] interface {
		Handle(ctx context.Context, state S, cmd C) Task[Event]
	}

	AsyncMultiHandler[S, C any] interface {
		Handle(ctx context.Context, state S, cmd C) Task[[]Event]
	}

	ReactiveSingleHandler[S, C any] interface {
		Handle(ctx context.Context, state S, cmd C) stream.Stream[Event]
	}

	ReactiveMultiHandler[S, C any] interface {
		Handle(ctx context.Context, state S, cmd C) stream.Stream[[]Event]
	}
)

type (
	VoidFunc[S, C any]           func(ctx context.Context, state S, cmd C) error
	SingleFunc[S, C any]         func(ctx context.Context, state S, cmd C) (Event, error)
	MultiFunc[S, C any]          func(ctx context.Context, state S, cmd C) ([]Event, error)
	AsyncSingleFunc[S, C any]    func(ctx context.Context, state S, cmd C) Task[Event]
	AsyncMultiFunc[S, C any]     func(ctx context.Context, state S, cmd C) Task[[]Event]
	ReactiveSingleFunc[S, C any] func(ctx context.Context, state S, cmd C) stream.Stream[Event]
	ReactiveMultiFunc[S, C any]  func(ctx context.Context, state S, cmd C) stream.Stream[[]Event]
)

func (f VoidFunc[S, C]) Handle(ctx context.Context, state S, cmd C) error {
	return f(ctx, state, cmd)
}

func (f SingleFunc[S, C]) Handle(ctx context.Context, state S, cmd C) (Event, error) {
	return f(ctx, state, cmd)
}

func (f MultiFunc[S, C]) Handle(ctx context.Context, state S, cmd C) ([]Event, error) {
	return f(ctx, state, cmd)
}

func (f AsyncSingleFunc[S, C]) Handle(ctx context.Context, state S, cmd C) Task[Event] {
	return f(ctx, state, cmd)
}

func (f AsyncMultiFunc[S, C]) Handle(ctx context.Context, state S, cmd C) Task[[]Event] {
	return f(ctx, state, cmd)
}

func (f ReactiveSingleFunc[S, C]) Handle(ctx context.Context, state S, cmd C) stream.Stream[Event] {
	return f(ctx, state, cmd)
}

func (f ReactiveMultiFunc[S, C]) Handle(ctx context.Context, state S, cmd C) stream.Stream[[]Event] {
	return f(ctx, state, cmd)
}
