package wrapper

import (
	"context"

	"github.com/google/uuid"
	"github.com/rise-and-shine/statebus/meta"
	"github.com/rise-and-shine/statebus/observability/tracing"
)

// Meta injects trace, dispatch and service metadata into ctx. An existing trace id is
// kept so nested dispatches correlate with the outer one.
func Meta() WrapFunc {
	return func(next DispatchFunc) DispatchFunc {
		return func(ctx context.Context, msg any) error {
			traceID := meta.Get(ctx, meta.TraceID)
			if traceID == "" {
				traceID = tracing.GetStartingTraceID(ctx)
			}
			serviceName, serviceVersion := meta.Service()

			ctx = meta.InjectMetaToContext(ctx, map[meta.ContextKey]string{
				meta.TraceID:        traceID,
				meta.DispatchID:     uuid.NewString(),
				meta.MessageType:    messageName(msg),
				meta.ServiceName:    serviceName,
				meta.ServiceVersion: serviceVersion,
			})

			return next(ctx, msg)
		}
	}
}
