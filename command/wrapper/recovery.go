package wrapper

import (
	"context"
	"fmt"
	"runtime"

	"github.com/code19m/errx"
	"github.com/rise-and-shine/statebus/observability/logger"
)

// Recovery turns panics escaping the dispatch into errors. Handler panics are already
// recovered by the engines; this catches the ones raised by state listeners.
func Recovery(l logger.Logger) WrapFunc {
	if l == nil {
		l = logger.Named("statebus.recovery")
	}

	return func(next DispatchFunc) DispatchFunc {
		return func(ctx context.Context, msg any) (err error) {
			defer func() {
				if r := recover(); r != nil {
					stackTrace := make([]byte, 4096) // 4KB
					stackTrace = stackTrace[:runtime.Stack(stackTrace, false)]

					l.WithContext(ctx).
						With("stack_trace", string(stackTrace)).
						With("panic_values", fmt.Sprintf("%v", r)).
						Error("panic recovered in dispatch")

					err = errx.New("panic recovered in dispatch", errx.WithDetails(errx.D{
						"message_name": messageName(msg),
						"panic_values": fmt.Sprintf("%v", r),
					}))
				}
			}()

			return next(ctx, msg)
		}
	}
}
