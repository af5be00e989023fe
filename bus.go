// Package statebus is an in-process command/event bus around a single immutable state.
//
// Commands are routed by type to exactly one handler that runs against a snapshot of
// the current state and may produce events. Events are routed to exactly one handler
// that folds them into a new state. Listeners observe the resulting transitions.
//
//	bus, err := statebus.New(Count{})
//	_ = statebus.MapCommandHandler[Count, Increment](bus, func(ctx context.Context, s Count, c Increment) (command.Event, error) {
//		return Incremented{By: c.By}, nil
//	})
//	_ = statebus.MapEventHandler[Count, Incremented](bus, func(s Count, e Incremented) (Count, error) {
//		return Count{N: s.N + e.By}, nil
//	})
//	err = bus.HandleCommand(ctx, Increment{By: 5})
//
// Handler failures go to the registered loggers. A failure with no logger to observe
// it is returned from the dispatch call instead.
package statebus

import (
	"context"
	"errors"
	"sync"

	"github.com/code19m/errx"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/rise-and-shine/statebus/command"
	"github.com/rise-and-shine/statebus/command/wrapper"
	"github.com/rise-and-shine/statebus/event"
	"github.com/rise-and-shine/statebus/executor"
	"github.com/rise-and-shine/statebus/logging"
	"github.com/rise-and-shine/statebus/msgstore"
	"github.com/rise-and-shine/statebus/observability/logger"
	"github.com/rise-and-shine/statebus/registry"
	"github.com/rise-and-shine/statebus/state"
)

const (
	CodeInvalidConfig = "STATEBUS_INVALID_CONFIG"
	CodeInvalidOption = "STATEBUS_INVALID_OPTION"

	CodeUnsupportedHandlerKind = registry.CodeUnsupportedHandlerKind
	CodeNoHandlersRegistered   = registry.CodeNoHandlersRegistered
)

// Bus is safe for concurrent use.
type Bus[S any] struct {
	logger   logger.Logger
	state    *state.Container[S]
	logs     *logging.Fanout[S]
	events   *event.Engine[S]
	commands *command.Engine[S]

	handleCommand wrapper.DispatchFunc
	applyEvent    wrapper.DispatchFunc

	// applyMu is set by WithSerializedDispatch.
	applyMu     *sync.Mutex
	disposeOnce sync.Once
}

// sink feeds command-produced events back through the event wraps.
type sink wrapper.DispatchFunc

func (s sink) Apply(ctx context.Context, evt any) error {
	return s(ctx, evt)
}

// New creates a bus holding initial. initial must not be nil.
func New[S any](initial S, opts ...Option) (*Bus[S], error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	var stateOpts []state.Option[S]
	if o.equal != nil {
		eq, ok := o.equal.(func(a, b S) bool)
		if !ok {
			return nil, errx.New("[statebus]: equality function does not match the state type",
				errx.WithCode(CodeInvalidOption),
				errx.WithType(errx.T_Validation),
				errx.WithDetails(errx.D{"state_type": registry.TypeOf[S]().String()}),
			)
		}
		stateOpts = append(stateOpts, state.WithEqual(eq))
	}

	c, err := state.New(initial, stateOpts...)
	if err != nil {
		return nil, err
	}

	if err = o.applyConfig(); err != nil {
		return nil, err
	}
	if o.logger == nil {
		o.logger = logger.Named("statebus")
	}

	b := &Bus[S]{
		logger: o.logger,
		state:  c,
		logs:   logging.NewFanout[S](o.logger.Named("logging")),
	}
	if o.serialize {
		b.applyMu = &sync.Mutex{}
	}

	b.events = event.NewEngine(c, b.logs,
		registry.WithLogger(o.logger.Named("event")),
		registry.WithStore(o.evtStore),
	)
	b.applyEvent = wrapper.Chain(b.apply, o.evtWraps...)

	cmdOpts := []command.Option{
		command.WithLogger(o.logger.Named("command")),
		command.WithRegistryOptions(registry.WithStore(o.cmdStore)),
	}
	switch {
	case o.exec != nil && o.ownsExec:
		cmdOpts = append(cmdOpts, command.WithOwnedExecutor(o.exec))
	case o.exec != nil:
		cmdOpts = append(cmdOpts, command.WithExecutor(o.exec))
	}
	if o.reactive != nil {
		cmdOpts = append(cmdOpts, command.WithReactiveRuntime(o.reactive))
	}
	b.commands = command.NewEngine[S](c, sink(b.applyEvent), b.logs, cmdOpts...)
	b.handleCommand = wrapper.Chain(b.commands.Execute, o.cmdWraps...)

	return b, nil
}

//nolint:gochecknoglobals // replaced in tests
var openStore = msgstore.Open

// applyConfig fills in whatever the explicit options left unset.
func (o *options) applyConfig() error {
	if o.cfg == nil {
		return nil
	}

	cfg := *o.cfg
	if err := defaults.Set(&cfg); err != nil {
		return errx.Wrap(err, errx.WithCode(CodeInvalidConfig))
	}
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(cfg); err != nil {
		return errx.Wrap(err, errx.WithCode(CodeInvalidConfig), errx.WithType(errx.T_Validation))
	}

	// stores opened here are released again if a later step fails
	var opened []msgstore.Store
	fail := func(err error) error {
		for _, s := range opened {
			if dErr := s.Dispose(); dErr != nil {
				err = errors.Join(err, dErr)
			}
		}
		return err
	}

	if o.cmdStore == nil {
		s, err := openStore(cfg.Store)
		if err != nil {
			return fail(err)
		}
		o.cmdStore = s
		opened = append(opened, s)
	}
	if o.evtStore == nil {
		s, err := openStore(cfg.Store)
		if err != nil {
			return fail(err)
		}
		o.evtStore = s
		opened = append(opened, s)
	}

	if o.logger == nil {
		l, err := logger.New(cfg.Logger)
		if err != nil {
			return fail(errx.Wrap(err, errx.WithCode(CodeInvalidConfig)))
		}
		o.logger = l.Named("statebus")
	}

	o.serialize = o.serialize || cfg.SerializeDispatch
	if o.exec == nil {
		o.exec, o.ownsExec = executor.NewPool(cfg.ExecutorWorkers), true
	}
	return nil
}

// MapCommandHandler registers handler for commands of type C, replacing any earlier one.
// handler is any shape accepted by command.Classify.
func MapCommandHandler[S, C any](b *Bus[S], handler any) error {
	return command.Map[S, C](b.commands, handler)
}

// MapEventHandler registers handler for events of type E, replacing any earlier one.
// handler is an event.Handler[S, E] or a func(S, E) (S, error).
func MapEventHandler[S, E any](b *Bus[S], handler any) error {
	return event.Map[S, E](b.events, handler)
}

// HandleCommand runs the handler mapped for cmd's type and applies the events it
// produces. Async handlers block until their task is done or ctx is cancelled.
// Reactive handlers may finish after HandleCommand returns.
func (b *Bus[S]) HandleCommand(ctx context.Context, cmd any) error {
	return b.handleCommand(ctx, cmd)
}

// HandleEvent folds evt into the current state.
func (b *Bus[S]) HandleEvent(ctx context.Context, evt any) error {
	return b.applyEvent(ctx, evt)
}

func (b *Bus[S]) apply(ctx context.Context, evt any) error {
	if b.applyMu != nil {
		b.applyMu.Lock()
		defer b.applyMu.Unlock()
	}
	return b.events.Apply(ctx, evt)
}

func (b *Bus[S]) CurrentState() S {
	return b.state.CurrentState()
}

// AddLogger registers l for command and event outcomes.
func (b *Bus[S]) AddLogger(l logging.Logger[S]) error {
	return b.logs.AddLogger(l)
}

func (b *Bus[S]) RemoveLogger(l logging.Logger[S]) {
	b.logs.RemoveLogger(l)
}

func (b *Bus[S]) AddCommandLogger(l logging.CommandLogger) error {
	return b.logs.AddCommandLogger(l)
}

func (b *Bus[S]) RemoveCommandLogger(l logging.CommandLogger) {
	b.logs.RemoveCommandLogger(l)
}

func (b *Bus[S]) AddEventLogger(l logging.EventLogger[S]) error {
	return b.logs.AddEventLogger(l)
}

func (b *Bus[S]) RemoveEventLogger(l logging.EventLogger[S]) {
	b.logs.RemoveEventLogger(l)
}

// AddStateChangedListener registers l for transitions to a different state.
func (b *Bus[S]) AddStateChangedListener(l state.Listener[S]) error {
	return b.state.AddChangedListener(l)
}

func (b *Bus[S]) RemoveStateChangedListener(l state.Listener[S]) {
	b.state.RemoveChangedListener(l)
}

// AddStateUpdatedListener registers l for every applied event, changed state or not.
func (b *Bus[S]) AddStateUpdatedListener(l state.Listener[S]) error {
	return b.state.AddUpdatedListener(l)
}

func (b *Bus[S]) RemoveStateUpdatedListener(l state.Listener[S]) {
	b.state.RemoveUpdatedListener(l)
}

// SetCommandHandlerExecutor replaces the executor async handlers run on.
func (b *Bus[S]) SetCommandHandlerExecutor(exec executor.Executor) {
	b.commands.SetExecutor(exec)
}

// CommandHandlerExecutor returns the executor async handlers run on.
func (b *Bus[S]) CommandHandlerExecutor() executor.Executor {
	return b.commands.Executor()
}

// Dispose shuts down the executor, clears handlers, listeners and loggers and
// disposes the message stores. Later dispatches fail with CodeNoHandlersRegistered.
func (b *Bus[S]) Dispose() error {
	var err error
	b.disposeOnce.Do(func() {
		err = errors.Join(b.commands.Dispose(), b.events.Dispose())
		b.state.Dispose()
		b.logs.Clear()
		b.logger.Debug("bus disposed")
	})
	return err
}
