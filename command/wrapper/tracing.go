package wrapper

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Tracing starts a span per dispatch named "<category> <Type>", e.g. "command Deposit".
// A nil tp uses the global tracer provider.
func Tracing(category string, tp trace.TracerProvider) WrapFunc {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	tracer := tp.Tracer("statebus/" + category)

	return func(next DispatchFunc) DispatchFunc {
		return func(ctx context.Context, msg any) error {
			ctx, span := tracer.Start(ctx, category+" "+messageName(msg),
				trace.WithAttributes(attribute.String("statebus.message.type", messageName(msg))),
			)
			defer span.End()

			err := next(ctx, msg)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			}
			return err
		}
	}
}
