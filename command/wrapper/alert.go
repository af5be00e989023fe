package wrapper

import (
	"context"
	"time"

	"github.com/code19m/errx"
	"github.com/rise-and-shine/statebus/meta"
	"github.com/rise-and-shine/statebus/observability/alert"
	"github.com/rise-and-shine/statebus/observability/logger"
)

const alertTimeout = 3 * time.Second

// Alert reports every error a dispatch returns to p without changing the result.
func Alert(p alert.Provider, l logger.Logger, category string) WrapFunc {
	if p == nil {
		p = alert.Global()
	}
	if l == nil {
		l = logger.Named("statebus.alerting")
	}

	return func(next DispatchFunc) DispatchFunc {
		return func(ctx context.Context, msg any) error {
			err := next(ctx, msg)
			if err == nil {
				return nil
			}

			operation := category + ": " + messageName(msg)
			details := make(map[string]string)
			for k, v := range meta.ExtractMetaFromContext(ctx) {
				details[string(k)] = v
			}
			code := errx.AsErrorX(err).Code()

			sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), alertTimeout)
			go func() {
				defer cancel()

				if sendErr := p.SendError(sendCtx, code, err.Error(), operation, details); sendErr != nil {
					l.With("alert_send_error", sendErr.Error()).Warn("failed to send error alert")
				}
			}()

			return err
		}
	}
}
