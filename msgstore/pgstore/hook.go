package pgstore

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/rise-and-shine/statebus/observability/logger"
	"github.com/uptrace/bun"
)

var _ bun.QueryHook = (*DebugHook)(nil)

// DebugHook logs store queries. Failed and slow queries are logged even when verbose
// output is off.
type DebugHook struct {
	logger             logger.Logger
	enabled            bool
	verbose            bool
	slowQueryThreshold time.Duration
}

type DebugHookOption func(*DebugHook)

// NewDebugHook is enabled and verbose with a 100ms slow query threshold by default.
func NewDebugHook(l logger.Logger, opts ...DebugHookOption) *DebugHook {
	hook := &DebugHook{
		logger:             l,
		enabled:            true,
		verbose:            true,
		slowQueryThreshold: 100 * time.Millisecond,
	}

	for _, opt := range opts {
		opt(hook)
	}

	return hook
}

func WithEnabled(enabled bool) DebugHookOption {
	return func(h *DebugHook) {
		h.enabled = enabled
	}
}

// WithVerbose logs successful queries at debug level too.
func WithVerbose(verbose bool) DebugHookOption {
	return func(h *DebugHook) {
		h.verbose = verbose
	}
}

// WithSlowQueryThreshold sets when a query is logged as slow. 0 disables it.
func WithSlowQueryThreshold(threshold time.Duration) DebugHookOption {
	return func(h *DebugHook) {
		h.slowQueryThreshold = threshold
	}
}

func (h *DebugHook) BeforeQuery(ctx context.Context, _ *bun.QueryEvent) context.Context {
	return ctx
}

func (h *DebugHook) AfterQuery(ctx context.Context, event *bun.QueryEvent) {
	if !h.enabled {
		return
	}

	duration := time.Since(event.StartTime)
	isNoRows := errors.Is(event.Err, sql.ErrNoRows)
	hasError := event.Err != nil && !isNoRows && !errors.Is(event.Err, sql.ErrTxDone)
	isSlow := h.slowQueryThreshold > 0 && duration >= h.slowQueryThreshold

	if !h.verbose && !hasError && !isNoRows && !isSlow {
		return
	}

	entry := h.logger.
		WithContext(ctx).
		With("query", strings.ReplaceAll(event.Query, `"`, "")).
		With("duration", duration.Round(time.Microsecond))

	if len(event.QueryArgs) > 0 {
		entry = entry.With("args", event.QueryArgs)
	}

	msg := "[pgstore] - " + event.Operation()
	switch {
	case hasError:
		entry.With("error", event.Err).Error(msg)
	case isNoRows:
		entry.With("error", event.Err).Warn(msg)
	case isSlow:
		entry.Warn(msg)
	case h.verbose:
		entry.Debug(msg)
	}
}
