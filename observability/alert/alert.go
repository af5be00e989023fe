// Package alert reports handler failures to the Sentinel error-tracking service.
package alert

import (
	"context"
)

// Provider sends error alerts.
type Provider interface {
	// SendError reports one failure. errCode identifies the error kind, operation names
	// what was being done, details carry extra context.
	SendError(ctx context.Context, errCode, msg, operation string, details map[string]string) error
}

// NewProvider builds the provider selected by cfg: a no-op one when cfg.Disable is set,
// otherwise a Sentinel client.
func NewProvider(cfg Config, serviceName, serviceVersion string) (Provider, error) {
	if cfg.Disable {
		return Noop(), nil
	}
	return NewSentinel(cfg, serviceName, serviceVersion)
}

type noOpProvider struct{}

// Noop returns a provider that drops every alert.
func Noop() Provider {
	return &noOpProvider{}
}

func (n *noOpProvider) SendError(
	_ context.Context,
	_, _, _ string,
	_ map[string]string,
) error {
	return nil
}
