// Package alertlog forwards handler failures to an alert provider.
package alertlog

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/code19m/errx"
	"github.com/rise-and-shine/statebus/failure"
	"github.com/rise-and-shine/statebus/observability/alert"
	"github.com/rise-and-shine/statebus/observability/logger"
)

const defaultAlertTimeout = 3 * time.Second

// Logger sends one alert per failure from a background goroutine. Successes are ignored.
type Logger[S any] struct {
	provider alert.Provider
	logger   logger.Logger
	timeout  time.Duration

	wg sync.WaitGroup
}

// Option configures a Logger.
type Option func(*options)

type options struct {
	timeout time.Duration
	logger  logger.Logger
}

// WithTimeout bounds each send. The default is three seconds.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// New sends through p, or through the global provider when p is nil.
func New[S any](p alert.Provider, opts ...Option) *Logger[S] {
	o := &options{timeout: defaultAlertTimeout}
	for _, opt := range opts {
		opt(o)
	}
	if p == nil {
		p = alert.Global()
	}
	if o.logger == nil {
		o.logger = logger.Named("statebus.alerting")
	}
	return &Logger[S]{provider: p, logger: o.logger, timeout: o.timeout}
}

func (l *Logger[S]) OnCommandHandlerResult(any, []any) {}

func (l *Logger[S]) OnCommandHandlerError(cmd any, err error) {
	l.send("command: "+failure.TypeName(cmd), err, map[string]string{
		"command_type": failure.TypeName(cmd),
	})
}

func (l *Logger[S]) OnEventHandlerResult(any, S) {}

func (l *Logger[S]) OnEventHandlerError(evt any, _ S, err error) {
	l.send("event: "+failure.TypeName(evt), err, map[string]string{
		"event_type": failure.TypeName(evt),
	})
}

// Wait blocks until alerts already handed to the provider have been sent.
func (l *Logger[S]) Wait() {
	l.wg.Wait()
}

func (l *Logger[S]) send(operation string, err error, details map[string]string) {
	code := errorCode(err)

	var he *failure.HandlerError
	if errors.As(err, &he) {
		details["stage"] = he.Stage
		if he.Stack != "" {
			details["stack_trace"] = he.Stack
		}
	}

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
		defer cancel()

		if sendErr := l.provider.SendError(ctx, code, err.Error(), operation, details); sendErr != nil {
			l.logger.With("alert_send_error", sendErr.Error()).Warn("failed to send error alert")
		}
	}()
}

func errorCode(err error) string {
	var coded interface{ Code() string }
	if errors.As(err, &coded) {
		if c := coded.Code(); c != "" {
			return c
		}
	}
	return errx.AsErrorX(err).Code()
}
