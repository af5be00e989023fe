// Package command executes command handlers against a snapshot of the current state
// and forwards the events they produce.
//
// Handlers come in seven shapes (see ExecutionKind). Whatever the shape, a failure
// takes one path: nothing is forwarded and the error goes to the logging fan-out.
// Success reports the produced events first and then applies them in order.
package command

import (
	"context"
	"errors"
	"reflect"
	"sync"

	"github.com/code19m/errx"
	"github.com/rise-and-shine/statebus/executor"
	"github.com/rise-and-shine/statebus/failure"
	"github.com/rise-and-shine/statebus/logging"
	"github.com/rise-and-shine/statebus/observability/logger"
	"github.com/rise-and-shine/statebus/registry"
	"github.com/rise-and-shine/statebus/stream"
)

// StateReader supplies the snapshot a command runs against.
type StateReader[S any] interface {
	CurrentState() S
}

// EventSink applies produced events.
type EventSink interface {
	Apply(ctx context.Context, evt any) error
}

// ReactiveRuntime is what stream-returning handlers need from the bus. Without one,
// reactive handlers cannot be mapped.
type ReactiveRuntime interface {
	SubscribeScheduler() stream.Scheduler
	ObserveScheduler() stream.Scheduler

	// Track keeps sub until Untrack or until the runtime revokes everything.
	Track(sub stream.Subscription)
	Untrack(sub stream.Subscription)

	// Undeliverable receives errors that surface after the dispatch call returned
	// and that no command or event logger observed.
	Undeliverable(err error)
}

// Engine is safe for concurrent use.
type Engine[S any] struct {
	reg    *registry.Registry[*Registration[S]]
	state  StateReader[S]
	events EventSink
	logs   *logging.Fanout[S]
	logger logger.Logger

	mu       sync.Mutex
	exec     executor.Executor
	ownsExec bool
	reactive ReactiveRuntime
}

// Option configures an Engine.
type Option func(*options)

type options struct {
	exec     executor.Executor
	ownsExec bool
	reactive ReactiveRuntime
	logger   logger.Logger
	regOpts  []registry.Option
}

// WithExecutor sets the executor async handlers run on.
func WithExecutor(exec executor.Executor) Option {
	return func(o *options) { o.exec, o.ownsExec = exec, false }
}

// WithOwnedExecutor is WithExecutor for an executor the engine takes over: SetExecutor
// shuts it down when replacing it.
func WithOwnedExecutor(exec executor.Executor) Option {
	return func(o *options) { o.exec, o.ownsExec = exec, true }
}

// WithReactiveRuntime enables reactive handlers.
func WithReactiveRuntime(rt ReactiveRuntime) Option {
	return func(o *options) { o.reactive = rt }
}

func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithRegistryOptions passes options to the underlying registry, e.g. a message store.
func WithRegistryOptions(opts ...registry.Option) Option {
	return func(o *options) { o.regOpts = append(o.regOpts, opts...) }
}

// NewEngine builds an engine reading snapshots from st, applying events through
// events and reporting outcomes to logs.
func NewEngine[S any](st StateReader[S], events EventSink, logs *logging.Fanout[S], opts ...Option) *Engine[S] {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = logger.Named("statebus.command")
	}

	e := &Engine[S]{
		state:    st,
		events:   events,
		logs:     logs,
		logger:   o.logger,
		exec:     o.exec,
		ownsExec: o.exec != nil && o.ownsExec,
		reactive: o.reactive,
	}
	regOpts := append([]registry.Option{registry.WithLogger(o.logger)}, o.regOpts...)
	e.reg = registry.New("command", e.execute, regOpts...)
	return e
}

// Map classifies handler and registers it for commands of type C.
func Map[S, C any](e *Engine[S], handler any) error {
	return e.reg.Register(registry.TypeOf[C](), handler, func(h any) (*Registration[S], error) {
		r, err := Classify[S, C](h)
		if err != nil {
			return nil, err
		}
		if r.Kind.IsReactive() && e.reactiveRuntime() == nil {
			return nil, errx.New("[command]: reactive handlers need a reactive bus",
				errx.WithCode(registry.CodeUnsupportedHandlerKind),
				errx.WithType(errx.T_Validation),
				errx.WithDetails(errx.D{"command_type": r.CommandType.String(), "kind": r.Kind.String()}),
			)
		}
		return r, nil
	})
}

// Execute dispatches cmd to its handler.
func (e *Engine[S]) Execute(ctx context.Context, cmd any) error {
	return e.reg.Dispatch(ctx, cmd)
}

// KindOf reports how the handler for commandType was classified.
func (e *Engine[S]) KindOf(commandType reflect.Type) (ExecutionKind, bool) {
	r, ok := e.reg.Lookup(commandType)
	if !ok {
		return 0, false
	}
	return r.Kind, true
}

// Types lists the command types with a handler.
func (e *Engine[S]) Types() []reflect.Type {
	return e.reg.Types()
}

// SetExecutor replaces the executor for async handlers. An executor the engine
// created itself is shut down.
func (e *Engine[S]) SetExecutor(exec executor.Executor) {
	e.mu.Lock()
	prev, owned := e.exec, e.ownsExec
	e.exec, e.ownsExec = exec, false
	e.mu.Unlock()

	if owned && prev != nil && prev != exec {
		prev.Shutdown()
	}
}

// SetReactiveRuntime attaches rt. It affects handlers mapped afterwards.
func (e *Engine[S]) SetReactiveRuntime(rt ReactiveRuntime) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.reactive = rt
}

// Executor returns the executor async handlers run on, creating a single-worker
// pool on first use.
func (e *Engine[S]) Executor() executor.Executor {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.exec == nil {
		e.exec, e.ownsExec = executor.NewSingle(), true
	}
	return e.exec
}

// Dispose shuts down the executor and clears every registration.
func (e *Engine[S]) Dispose() error {
	e.mu.Lock()
	exec := e.exec
	e.mu.Unlock()

	if exec != nil {
		exec.Shutdown()
	}
	return e.reg.Dispose()
}

func (e *Engine[S]) reactiveRuntime() ReactiveRuntime {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.reactive
}

func (e *Engine[S]) execute(ctx context.Context, cmd any, r *Registration[S]) error {
	snapshot := e.state.CurrentState()

	switch {
	case r.Kind.IsReactive():
		return e.executeReactive(ctx, cmd, r, snapshot)
	case r.Kind.IsAsync():
		return e.executeAsync(ctx, cmd, r, snapshot)
	default:
		events, err := e.invokeSync(ctx, cmd, r, snapshot)
		if err != nil {
			return e.fail(cmd, err)
		}
		return e.succeed(ctx, cmd, events)
	}
}

func (e *Engine[S]) invokeSync(ctx context.Context, cmd any, r *Registration[S], snapshot S) (events []Event, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = failure.Recover(rec, cmd, "sync")
		}
	}()

	events, err = r.sync(ctx, snapshot, cmd)
	if err != nil {
		return nil, failure.Wrap(err, cmd, "sync")
	}
	return events, nil
}

// succeed reports the result and applies each event in order. Every event is
// attempted; application errors are joined.
func (e *Engine[S]) succeed(ctx context.Context, cmd any, events []Event) error {
	kept := make([]Event, 0, len(events))
	for _, evt := range events {
		if !failure.IsNil(evt) {
			kept = append(kept, evt)
		}
	}

	e.logs.OnCommandHandlerResult(cmd, kept)

	var errs []error
	for _, evt := range kept {
		if err := e.events.Apply(ctx, evt); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (e *Engine[S]) fail(cmd any, err error) error {
	return e.logs.OnCommandHandlerError(cmd, err)
}
