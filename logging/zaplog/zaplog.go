// Package zaplog writes handler outcomes as structured log lines.
package zaplog

import (
	"github.com/rise-and-shine/statebus/failure"
	"github.com/rise-and-shine/statebus/observability/logger"
)

// Logger logs successes at debug level (info with WithVerbose) and failures at error level.
type Logger[S any] struct {
	log     logger.Logger
	verbose bool
}

// Option configures a Logger.
type Option func(*options)

type options struct {
	verbose bool
}

// WithVerbose logs successes at info level and includes event payloads.
func WithVerbose() Option {
	return func(o *options) { o.verbose = true }
}

// New creates a Logger. A nil l uses the global logger named "statebus.outcome".
func New[S any](l logger.Logger, opts ...Option) *Logger[S] {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if l == nil {
		l = logger.Named("statebus.outcome")
	}
	return &Logger[S]{log: l, verbose: o.verbose}
}

func (l *Logger[S]) OnCommandHandlerResult(cmd any, events []any) {
	entry := l.log.With(
		"command_type", failure.TypeName(cmd),
		"event_count", len(events),
	)
	if l.verbose {
		entry.With("events", events).Info("command handled")
		return
	}
	entry.Debug("command handled")
}

func (l *Logger[S]) OnCommandHandlerError(cmd any, err error) {
	l.log.With("command_type", failure.TypeName(cmd)).Errorx(err)
}

func (l *Logger[S]) OnEventHandlerResult(evt any, state S) {
	entry := l.log.With("event_type", failure.TypeName(evt))
	if l.verbose {
		entry.With("event", evt, "state", state).Info("event applied")
		return
	}
	entry.Debug("event applied")
}

func (l *Logger[S]) OnEventHandlerError(evt any, _ S, err error) {
	l.log.With("event_type", failure.TypeName(evt)).Errorx(err)
}
