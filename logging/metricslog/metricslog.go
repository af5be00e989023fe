// Package metricslog counts handler outcomes in a go-metrics registry.
//
// Metric names are "statebus.<category>.<outcome>" for totals and
// "statebus.<category>.<outcome>.<Type>" per message type.
package metricslog

import (
	"reflect"

	metrics "github.com/rcrowley/go-metrics"
)

const (
	commandSuccess = "statebus.command.success"
	commandFailure = "statebus.command.failure"
	eventSuccess   = "statebus.event.success"
	eventFailure   = "statebus.event.failure"

	// EventsPerCommand is the histogram of how many events each handled command produced.
	EventsPerCommand = "statebus.command.events"
)

// Logger updates counters on every outcome.
type Logger[S any] struct {
	registry metrics.Registry
}

// New records into r, or into metrics.DefaultRegistry when r is nil.
func New[S any](r metrics.Registry) *Logger[S] {
	if r == nil {
		r = metrics.DefaultRegistry
	}
	return &Logger[S]{registry: r}
}

func (l *Logger[S]) OnCommandHandlerResult(cmd any, events []any) {
	l.inc(commandSuccess, cmd)
	metrics.GetOrRegisterHistogram(EventsPerCommand, l.registry, metrics.NewUniformSample(1028)).
		Update(int64(len(events)))
}

func (l *Logger[S]) OnCommandHandlerError(cmd any, _ error) {
	l.inc(commandFailure, cmd)
}

func (l *Logger[S]) OnEventHandlerResult(evt any, _ S) {
	l.inc(eventSuccess, evt)
}

func (l *Logger[S]) OnEventHandlerError(evt any, _ S, _ error) {
	l.inc(eventFailure, evt)
}

// Count reads a counter by its full name. Missing counters read as zero.
func (l *Logger[S]) Count(name string) int64 {
	if c, ok := l.registry.Get(name).(metrics.Counter); ok {
		return c.Count()
	}
	return 0
}

func (l *Logger[S]) inc(base string, msg any) {
	metrics.GetOrRegisterCounter(base, l.registry).Inc(1)
	metrics.GetOrRegisterCounter(base+"."+typeName(msg), l.registry).Inc(1)
}

func typeName(msg any) string {
	t := reflect.TypeOf(msg)
	if t == nil {
		return "nil"
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Name() == "" {
		return t.String()
	}
	return t.Name()
}
