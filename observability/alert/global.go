package alert

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/code19m/errx"
)

//nolint:gochecknoglobals // global provider singleton
var (
	global   atomic.Value // stores Provider
	setOnce  sync.Once
	initOnce sync.Once
)

// SetGlobal installs the process-wide provider. Only the first call has effect; later
// calls return an error.
func SetGlobal(cfg Config, serviceName, serviceVersion string) error {
	var err error
	called := false

	setOnce.Do(func() {
		initOnce.Do(func() {})
		called = true

		provider, providerErr := NewProvider(cfg, serviceName, serviceVersion)
		if providerErr != nil {
			err = errx.Wrap(providerErr, errx.WithDetails(errx.D{"reason": "global alert provider"}))
			provider = Noop()
		}
		global.Store(provider)
	})

	if !called {
		return errx.New("[alert]: SetGlobal can only be called once")
	}
	return err
}

// Global returns the process-wide provider, a no-op one until SetGlobal succeeds.
func Global() Provider {
	if p, ok := global.Load().(Provider); ok {
		return p
	}
	initOnce.Do(func() {
		global.Store(Noop())
	})
	p, _ := global.Load().(Provider)
	if p == nil {
		return Noop()
	}
	return p
}

// SendError reports through the global provider.
func SendError(ctx context.Context, errCode, msg, operation string, details map[string]string) error {
	return Global().SendError(ctx, errCode, msg, operation, details)
}
