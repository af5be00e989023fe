package wrapper

import (
	"context"
	"time"

	"github.com/rise-and-shine/statebus/observability/logger"
)

// Logger writes one line per dispatch with its duration. Dispatch errors are the
// configuration and unobserved failures the bus returns, so they log at error level.
func Logger(l logger.Logger, category string) WrapFunc {
	if l == nil {
		l = logger.Named("statebus.dispatch")
	}
	l = l.With("category", category)

	return func(next DispatchFunc) DispatchFunc {
		return func(ctx context.Context, msg any) error {
			start := time.Now()

			err := next(ctx, msg)

			entry := l.
				WithContext(ctx).
				With("message_name", messageName(msg)).
				With("execution_time", time.Since(start).String())

			if err != nil {
				entry.Errorx(err)
			} else {
				entry.Debug("dispatched")
			}
			return err
		}
	}
}
