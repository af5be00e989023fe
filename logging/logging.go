// Package logging fans handler outcomes out to any number of loggers.
//
// Results are broadcast and silently dropped when nobody listens. Errors are different:
// an error reported while no logger of its category is registered comes back to the
// caller as a *failure.UnobservedError.
package logging

import (
	"fmt"

	"github.com/rise-and-shine/statebus/failure"
	"github.com/rise-and-shine/statebus/internal/idset"
	"github.com/rise-and-shine/statebus/observability/logger"
)

// CommandLogger observes command handler outcomes.
type CommandLogger interface {
	OnCommandHandlerResult(cmd any, events []any)
	OnCommandHandlerError(cmd any, err error)
}

// EventLogger observes event handler outcomes. state is the zero value on failure.
type EventLogger[S any] interface {
	OnEventHandlerResult(evt any, state S)
	OnEventHandlerError(evt any, state S, err error)
}

// Logger observes both.
type Logger[S any] interface {
	CommandLogger
	EventLogger[S]
}

// Fanout is safe for concurrent use; loggers may be added and removed while outcomes
// are being reported.
type Fanout[S any] struct {
	commands idset.Set[CommandLogger]
	events   idset.Set[EventLogger[S]]
	log      logger.Logger
}

// NewFanout creates an empty fan-out. A nil l falls back to the global logger.
func NewFanout[S any](l logger.Logger) *Fanout[S] {
	if l == nil {
		l = logger.Named("statebus.logging")
	}
	return &Fanout[S]{log: l}
}

// AddLogger registers l for both categories.
func (f *Fanout[S]) AddLogger(l Logger[S]) error {
	if err := f.AddCommandLogger(l); err != nil {
		return err
	}
	return f.AddEventLogger(l)
}

func (f *Fanout[S]) RemoveLogger(l Logger[S]) {
	f.RemoveCommandLogger(l)
	f.RemoveEventLogger(l)
}

func (f *Fanout[S]) AddCommandLogger(l CommandLogger) error {
	_, err := f.commands.Add(l)
	return err
}

func (f *Fanout[S]) RemoveCommandLogger(l CommandLogger) {
	f.commands.Remove(l)
}

func (f *Fanout[S]) AddEventLogger(l EventLogger[S]) error {
	_, err := f.events.Add(l)
	return err
}

func (f *Fanout[S]) RemoveEventLogger(l EventLogger[S]) {
	f.events.Remove(l)
}

// Clear removes every logger.
func (f *Fanout[S]) Clear() {
	f.commands.Clear()
	f.events.Clear()
}

func (f *Fanout[S]) OnCommandHandlerResult(cmd any, events []any) {
	for _, l := range f.commands.Snapshot() {
		f.guard(func() { l.OnCommandHandlerResult(cmd, events) })
	}
}

// OnCommandHandlerError fans err out, or returns it wrapped when no command logger
// is registered.
func (f *Fanout[S]) OnCommandHandlerError(cmd any, err error) error {
	loggers := f.commands.Snapshot()
	if len(loggers) == 0 {
		return &failure.UnobservedError{Category: "command", Message: cmd, Cause: err}
	}
	for _, l := range loggers {
		f.guard(func() { l.OnCommandHandlerError(cmd, err) })
	}
	return nil
}

func (f *Fanout[S]) OnEventHandlerResult(evt any, state S) {
	for _, l := range f.events.Snapshot() {
		f.guard(func() { l.OnEventHandlerResult(evt, state) })
	}
}

// OnEventHandlerError fans err out, or returns it wrapped when no event logger
// is registered.
func (f *Fanout[S]) OnEventHandlerError(evt any, state S, err error) error {
	loggers := f.events.Snapshot()
	if len(loggers) == 0 {
		return &failure.UnobservedError{Category: "event", Message: evt, Cause: err}
	}
	for _, l := range loggers {
		f.guard(func() { l.OnEventHandlerError(evt, state, err) })
	}
	return nil
}

// guard keeps one misbehaving logger from starving the others.
func (f *Fanout[S]) guard(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			f.log.With("panic_values", fmt.Sprintf("%v", r)).Error("panic recovered in statebus logger")
		}
	}()
	fn()
}
