package wrapper

import (
	"context"
	"time"
)

// Timeout bounds each dispatch with a deadline. Async handlers blocked past it are
// reported as failed.
func Timeout(d time.Duration) WrapFunc {
	return func(next DispatchFunc) DispatchFunc {
		if d <= 0 {
			return next
		}
		return func(ctx context.Context, msg any) error {
			ctx, cancel := context.WithTimeout(ctx, d)
			defer cancel()

			return next(ctx, msg)
		}
	}
}
