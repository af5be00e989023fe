package command

import (
	"context"
	"fmt"
	"reflect"

	"github.com/code19m/errx"
	"github.com/rise-and-shine/statebus/failure"
	"github.com/rise-and-shine/statebus/registry"
	"github.com/rise-and-shine/statebus/stream"
)

// Registration is a classified command handler. The invokers are built once by
// Classify so dispatch never probes the handler again.
type Registration[S any] struct {
	Kind        ExecutionKind
	CommandType reflect.Type

	sync     func(ctx context.Context, state S, cmd any) ([]Event, error)
	task     func(ctx context.Context, state S, cmd any) Task[[]Event]
	reactive func(ctx context.Context, state S, cmd any) stream.Stream[[]Event]
}

// Classify probes handler against the seven handler shapes for command type C.
// Besides the Handler interfaces and Func types it accepts the equivalent plain funcs.
func Classify[S, C any](handler any) (*Registration[S], error) {
	r := &Registration[S]{CommandType: registry.TypeOf[C]()}

	switch h := handler.(type) {
	case VoidHandler[S, C]:
		r.Kind, r.sync = KindVoid, voidInvoker(h)
	case func(context.Context, S, C) error:
		r.Kind, r.sync = KindVoid, voidInvoker[S, C](VoidFunc[S, C](h))

	case SingleHandler[S, C]:
		r.Kind, r.sync = KindSyncSingle, singleInvoker(h)
	case func(context.Context, S, C) (Event, error):
		r.Kind, r.sync = KindSyncSingle, singleInvoker[S, C](SingleFunc[S, C](h))

	case MultiHandler[S, C]:
		r.Kind, r.sync = KindSyncMulti, multiInvoker(h)
	case func(context.Context, S, C) ([]Event, error):
		r.Kind, r.sync = KindSyncMulti, multiInvoker[S, C](MultiFunc[S, C](h))

	case AsyncSingleHandler[S, C]:
		r.Kind, r.task = KindAsyncSingle, asyncSingleInvoker(h)
	case func(context.Context, S, C) Task[Event]:
		r.Kind, r.task = KindAsyncSingle, asyncSingleInvoker[S, C](AsyncSingleFunc[S, C](h))

	case AsyncMultiHandler[S, C]:
		r.Kind, r.task = KindAsyncMulti, asyncMultiInvoker(h)
	case func(context.Context, S, C) Task[[]Event]:
		r.Kind, r.task = KindAsyncMulti, asyncMultiInvoker[S, C](AsyncMultiFunc[S, C](h))

	case ReactiveSingleHandler[S, C]:
		r.Kind, r.reactive = KindReactiveSingle, reactiveSingleInvoker(h)
	case func(context.Context, S, C) stream.Stream[Event]:
		r.Kind, r.reactive = KindReactiveSingle, reactiveSingleInvoker[S, C](ReactiveSingleFunc[S, C](h))

	case ReactiveMultiHandler[S, C]:
		r.Kind, r.reactive = KindReactiveMulti, reactiveMultiInvoker(h)
	case func(context.Context, S, C) stream.Stream[[]Event]:
		r.Kind, r.reactive = KindReactiveMulti, reactiveMultiInvoker[S, C](ReactiveMultiFunc[S, C](h))

	default:
		return nil, errx.New("[command]: handler matches no supported handler shape",
			errx.WithCode(registry.CodeUnsupportedHandlerKind),
			errx.WithType(errx.T_Validation),
			errx.WithDetails(errx.D{
				"handler_type": fmt.Sprintf("%T", handler),
				"command_type": r.CommandType.String(),
			}),
		)
	}

	return r, nil
}

// Single adapts a handler returning a concrete event type. A nil E is "no event".
func Single[S, C, E any](fn func(ctx context.Context, state S, cmd C) (E, error)) SingleFunc[S, C] {
	return func(ctx context.Context, state S, cmd C) (Event, error) {
		evt, err := fn(ctx, state, cmd)
		if err != nil {
			return nil, err
		}
		return evt, nil
	}
}

// Multi adapts a handler returning a slice of a concrete event type.
func Multi[S, C, E any](fn func(ctx context.Context, state S, cmd C) ([]E, error)) MultiFunc[S, C] {
	return func(ctx context.Context, state S, cmd C) ([]Event, error) {
		evts, err := fn(ctx, state, cmd)
		if err != nil || evts == nil {
			return nil, err
		}
		out := make([]Event, len(evts))
		for i, e := range evts {
			out[i] = e
		}
		return out, nil
	}
}

func as[C any](cmd any) C {
	return cmd.(C) //nolint:errcheck,forcetypeassert // registry routes by exact type
}

func voidInvoker[S, C any](h VoidHandler[S, C]) func(context.Context, S, any) ([]Event, error) {
	return func(ctx context.Context, s S, cmd any) ([]Event, error) {
		return nil, h.Handle(ctx, s, as[C](cmd))
	}
}

func singleInvoker[S, C any](h SingleHandler[S, C]) func(context.Context, S, any) ([]Event, error) {
	return func(ctx context.Context, s S, cmd any) ([]Event, error) {
		evt, err := h.Handle(ctx, s, as[C](cmd))
		if err != nil {
			return nil, err
		}
		return one(evt), nil
	}
}

func multiInvoker[S, C any](h MultiHandler[S, C]) func(context.Context, S, any) ([]Event, error) {
	return func(ctx context.Context, s S, cmd any) ([]Event, error) {
		return h.Handle(ctx, s, as[C](cmd))
	}
}

func asyncSingleInvoker[S, C any](h AsyncSingleHandler[S, C]) func(context.Context, S, any) Task[[]Event] {
	return func(ctx context.Context, s S, cmd any) Task[[]Event] {
		task := h.Handle(ctx, s, as[C](cmd))
		if task == nil {
			return nil
		}
		return func(ctx context.Context) ([]Event, error) {
			evt, err := task(ctx)
			if err != nil {
				return nil, err
			}
			return one(evt), nil
		}
	}
}

func asyncMultiInvoker[S, C any](h AsyncMultiHandler[S, C]) func(context.Context, S, any) Task[[]Event] {
	return func(ctx context.Context, s S, cmd any) Task[[]Event] {
		return h.Handle(ctx, s, as[C](cmd))
	}
}

func reactiveSingleInvoker[S, C any](h ReactiveSingleHandler[S, C]) func(context.Context, S, any) stream.Stream[[]Event] {
	return func(ctx context.Context, s S, cmd any) stream.Stream[[]Event] {
		src := h.Handle(ctx, s, as[C](cmd))
		if src == nil {
			return nil
		}
		return stream.Map(src, one)
	}
}

func reactiveMultiInvoker[S, C any](h ReactiveMultiHandler[S, C]) func(context.Context, S, any) stream.Stream[[]Event] {
	return func(ctx context.Context, s S, cmd any) stream.Stream[[]Event] {
		return h.Handle(ctx, s, as[C](cmd))
	}
}

func one(evt Event) []Event {
	if failure.IsNil(evt) {
		return nil
	}
	return []Event{evt}
}
