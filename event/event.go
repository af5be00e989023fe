// Package event applies events to the current state.
//
// Every event type has exactly one handler that folds it into a new state. Handler
// failures are reported to the logging fan-out and never returned, unless no event
// logger is registered to see them.
package event

import (
	"context"
	"fmt"
	"reflect"

	"github.com/code19m/errx"
	"github.com/rise-and-shine/statebus/failure"
	"github.com/rise-and-shine/statebus/logging"
	"github.com/rise-and-shine/statebus/observability/logger"
	"github.com/rise-and-shine/statebus/registry"
	"github.com/rise-and-shine/statebus/state"
)

// Handler folds an event of type E into state S.
type Handler[S, E any] interface {
	Apply(state S, evt E) (S, error)
}

// ApplyFunc adapts a function to Handler.
type ApplyFunc[S, E any] func(state S, evt E) (S, error)

func (f ApplyFunc[S, E]) Apply(state S, evt E) (S, error) {
	return f(state, evt)
}

// applier is the classified handler form stored in the registry.
type applier[S any] func(state S, evt any) (S, error)

// Engine routes events to their handlers.
type Engine[S any] struct {
	reg   *registry.Registry[applier[S]]
	state *state.Container[S]
	logs  *logging.Fanout[S]
}

// NewEngine builds an engine writing into c and reporting to logs.
func NewEngine[S any](c *state.Container[S], logs *logging.Fanout[S], opts ...registry.Option) *Engine[S] {
	e := &Engine[S]{state: c, logs: logs}
	opts = append([]registry.Option{registry.WithLogger(logger.Named("statebus.event"))}, opts...)
	e.reg = registry.New("event", e.execute, opts...)
	return e
}

// Map registers handler for events of type E. handler may be a Handler[S, E], an
// ApplyFunc[S, E] or a plain func(S, E) (S, error).
func Map[S, E any](e *Engine[S], handler any) error {
	return e.reg.Register(registry.TypeOf[E](), handler, probe[S, E])
}

func probe[S, E any](handler any) (applier[S], error) {
	var h Handler[S, E]
	switch v := handler.(type) {
	case Handler[S, E]:
		h = v
	case func(S, E) (S, error):
		h = ApplyFunc[S, E](v)
	default:
		return nil, errx.New("[event]: handler does not fold the event into a state",
			errx.WithCode(registry.CodeUnsupportedHandlerKind),
			errx.WithType(errx.T_Validation),
			errx.WithDetails(errx.D{
				"handler_type": fmt.Sprintf("%T", handler),
				"want":         fmt.Sprintf("func(%s, %s) (%[1]s, error)", registry.TypeOf[S](), registry.TypeOf[E]()),
			}),
		)
	}

	return func(s S, evt any) (S, error) {
		typed, ok := evt.(E)
		if !ok {
			var zero S
			return zero, errx.New("[event]: event type mismatch",
				errx.WithType(errx.T_Internal),
				errx.WithDetails(errx.D{"event_type": fmt.Sprintf("%T", evt)}),
			)
		}
		return h.Apply(s, typed)
	}, nil
}

// Apply routes evt to its handler. Only routing failures and unobserved handler
// failures are returned.
func (e *Engine[S]) Apply(ctx context.Context, evt any) error {
	return e.reg.Dispatch(ctx, evt)
}

// Types lists the event types with a handler.
func (e *Engine[S]) Types() []reflect.Type {
	return e.reg.Types()
}

// Dispose clears registrations and disposes the message store.
func (e *Engine[S]) Dispose() error {
	return e.reg.Dispose()
}

func (e *Engine[S]) execute(_ context.Context, evt any, apply applier[S]) error {
	var zero S

	next, err := invoke(apply, e.state.CurrentState(), evt)
	if err != nil {
		return e.logs.OnEventHandlerError(evt, zero, err)
	}
	if failure.IsNil(next) {
		return e.logs.OnEventHandlerError(evt, zero, failure.ErrNilState)
	}

	e.logs.OnEventHandlerResult(evt, next)
	return e.state.HandleNewState(next, evt)
}

func invoke[S any](apply applier[S], current S, evt any) (next S, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = failure.Recover(r, evt, "apply")
		}
	}()

	next, err = apply(current, evt)
	if err != nil {
		return next, failure.Wrap(err, evt, "apply")
	}
	return next, nil
}
