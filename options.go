package statebus

import (
	"github.com/rise-and-shine/statebus/command"
	"github.com/rise-and-shine/statebus/command/wrapper"
	"github.com/rise-and-shine/statebus/executor"
	"github.com/rise-and-shine/statebus/msgstore"
	"github.com/rise-and-shine/statebus/observability/logger"
)

// Option configures a Bus.
type Option func(*options)

type options struct {
	cfg       *Config
	exec      executor.Executor
	ownsExec  bool
	cmdStore  msgstore.Store
	evtStore  msgstore.Store
	equal     any
	logger    logger.Logger
	cmdWraps  []wrapper.WrapFunc
	evtWraps  []wrapper.WrapFunc
	serialize bool
	reactive  command.ReactiveRuntime
}

// WithConfig applies cfg. Explicit options given alongside it win.
func WithConfig(cfg Config) Option {
	return func(o *options) {
		o.cfg = &cfg
	}
}

// WithExecutor sets the executor async command handlers run on. The bus shuts it
// down on Dispose.
func WithExecutor(exec executor.Executor) Option {
	return func(o *options) {
		o.exec = exec
	}
}

// WithCommandStore appends every dispatched command to s.
func WithCommandStore(s msgstore.Store) Option {
	return func(o *options) {
		o.cmdStore = s
	}
}

// WithEventStore appends every dispatched event to s, including events produced by
// command handlers.
func WithEventStore(s msgstore.Store) Option {
	return func(o *options) {
		o.evtStore = s
	}
}

// WithEqual replaces the value equality used to detect state changes.
func WithEqual[S any](eq func(a, b S) bool) Option {
	return func(o *options) {
		o.equal = eq
	}
}

func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithCommandWraps decorates HandleCommand. The first wrap runs outermost.
func WithCommandWraps(wraps ...wrapper.WrapFunc) Option {
	return func(o *options) {
		o.cmdWraps = append(o.cmdWraps, wraps...)
	}
}

// WithEventWraps decorates event application, for events passed to HandleEvent and
// events produced by commands alike.
func WithEventWraps(wraps ...wrapper.WrapFunc) Option {
	return func(o *options) {
		o.evtWraps = append(o.evtWraps, wraps...)
	}
}

// WithSerializedDispatch applies events under a bus-wide mutex so concurrent
// dispatches cannot lose updates. State listeners then run under that mutex and
// must not dispatch to the same bus synchronously.
func WithSerializedDispatch() Option {
	return func(o *options) {
		o.serialize = true
	}
}

// WithReactiveRuntime enables stream-returning command handlers.
func WithReactiveRuntime(rt command.ReactiveRuntime) Option {
	return func(o *options) {
		o.reactive = rt
	}
}
