// Package tracelog records one OpenTelemetry span per handler outcome.
package tracelog

import (
	"context"

	"github.com/rise-and-shine/statebus/failure"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "statebus/logging"

// Logger emits short spans named "command.result", "command.error", "event.result"
// and "event.error".
type Logger[S any] struct {
	tracer trace.Tracer
}

// New uses tp, or the global tracer provider when tp is nil.
func New[S any](tp trace.TracerProvider) *Logger[S] {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return &Logger[S]{tracer: tp.Tracer(instrumentationName)}
}

func (l *Logger[S]) OnCommandHandlerResult(cmd any, events []any) {
	l.record("command.result", nil,
		attribute.String("statebus.command.type", failure.TypeName(cmd)),
		attribute.Int("statebus.command.event_count", len(events)),
	)
}

func (l *Logger[S]) OnCommandHandlerError(cmd any, err error) {
	l.record("command.error", err,
		attribute.String("statebus.command.type", failure.TypeName(cmd)),
	)
}

func (l *Logger[S]) OnEventHandlerResult(evt any, _ S) {
	l.record("event.result", nil,
		attribute.String("statebus.event.type", failure.TypeName(evt)),
	)
}

func (l *Logger[S]) OnEventHandlerError(evt any, _ S, err error) {
	l.record("event.error", err,
		attribute.String("statebus.event.type", failure.TypeName(evt)),
	)
}

func (l *Logger[S]) record(name string, err error, attrs ...attribute.KeyValue) {
	_, span := l.tracer.Start(context.Background(), name, trace.WithAttributes(attrs...))
	defer span.End()

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if failure.IsUnobserved(err) {
			span.SetAttributes(attribute.Bool("statebus.unobserved", true))
		}
	}
}
