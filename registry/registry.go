// Package registry maps message types to exactly one handler each and dispatches
// messages to them. The command and event engines are built on it.
package registry

import (
	"context"
	"reflect"
	"sync"

	"github.com/code19m/errx"
	"github.com/rise-and-shine/statebus/failure"
	"github.com/rise-and-shine/statebus/msgstore"
	"github.com/rise-and-shine/statebus/observability/logger"
	"github.com/samber/lo"
)

// ProbeFunc classifies a raw handler into the registry's handler form H.
// It is called once per registration.
type ProbeFunc[H any] func(handler any) (H, error)

// ExecFunc runs a resolved handler for msg.
type ExecFunc[H any] func(ctx context.Context, msg any, handler H) error

// Registry is safe for concurrent use. Registration and dispose may run while
// dispatches are in flight.
type Registry[H any] struct {
	name   string
	exec   ExecFunc[H]
	logger logger.Logger

	mu       sync.RWMutex
	handlers map[reflect.Type]H
	store    msgstore.Store
}

// Option configures a Registry.
type Option func(*options)

type options struct {
	store  msgstore.Store
	logger logger.Logger
}

// WithStore sets the store every dispatched message is appended to.
func WithStore(s msgstore.Store) Option {
	return func(o *options) {
		if s != nil {
			o.store = s
		}
	}
}

// WithLogger overrides the default named logger.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// New creates a registry. name scopes its log lines and errors, e.g. "command".
func New[H any](name string, exec ExecFunc[H], opts ...Option) *Registry[H] {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.store == nil {
		o.store = msgstore.Nop()
	}
	if o.logger == nil {
		o.logger = logger.Named("statebus.registry." + name)
	}

	return &Registry[H]{
		name:     name,
		exec:     exec,
		logger:   o.logger,
		handlers: make(map[reflect.Type]H),
		store:    o.store,
	}
}

// TypeOf returns the reflect.Type used to route messages of type T.
func TypeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// Register binds msgType to handler after classifying it with probe.
// A later registration for the same type replaces the earlier one.
func (r *Registry[H]) Register(msgType reflect.Type, handler any, probe ProbeFunc[H]) error {
	if msgType == nil {
		return errx.New("[registry]: message type is nil",
			errx.WithCode(CodeNilHandler),
			errx.WithType(errx.T_Validation),
			errx.WithDetails(errx.D{"registry": r.name}),
		)
	}
	if failure.IsNil(handler) {
		return errx.New("[registry]: handler is nil",
			errx.WithCode(CodeNilHandler),
			errx.WithType(errx.T_Validation),
			errx.WithDetails(errx.D{"registry": r.name, "message_type": msgType.String()}),
		)
	}

	h, err := probe(handler)
	if err != nil {
		if errx.IsCodeIn(err, CodeUnsupportedHandlerKind) {
			return err
		}
		return errx.Wrap(err,
			errx.WithCode(CodeUnsupportedHandlerKind),
			errx.WithType(errx.T_Validation),
			errx.WithDetails(errx.D{"registry": r.name, "message_type": msgType.String()}),
		)
	}

	r.mu.Lock()
	_, replaced := r.handlers[msgType]
	r.handlers[msgType] = h
	r.mu.Unlock()

	if replaced {
		r.logger.With("message_type", msgType.String()).Debug("handler replaced")
	}
	return nil
}

// Dispatch appends msg to the store, resolves its handler and executes it.
// Store failures are logged and never change the dispatch outcome.
func (r *Registry[H]) Dispatch(ctx context.Context, msg any) error {
	if failure.IsNil(msg) {
		return errx.New("[registry]: message is nil",
			errx.WithCode(CodeNilMessage),
			errx.WithType(errx.T_Validation),
			errx.WithDetails(errx.D{"registry": r.name}),
		)
	}

	msgType := reflect.TypeOf(msg)

	r.mu.RLock()
	store := r.store
	h, ok := r.handlers[msgType]
	r.mu.RUnlock()

	if _, err := store.Append(ctx, msg); err != nil {
		r.logger.WithContext(ctx).With("message_type", msgType.String()).Warnx(err)
	}

	if !ok {
		return errx.New("[registry]: no handler registered for message type",
			errx.WithCode(CodeNoHandlersRegistered),
			errx.WithType(errx.T_NotFound),
			errx.WithDetails(errx.D{"registry": r.name, "message_type": msgType.String()}),
		)
	}

	return r.exec(ctx, msg, h)
}

// Lookup returns the handler registered for msgType.
func (r *Registry[H]) Lookup(msgType reflect.Type) (H, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[msgType]
	return h, ok
}

// Filter returns the registered types whose handler satisfies pred.
func (r *Registry[H]) Filter(pred func(reflect.Type, H) bool) []reflect.Type {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return lo.Filter(lo.Keys(r.handlers), func(t reflect.Type, _ int) bool {
		return pred(t, r.handlers[t])
	})
}

// Types returns every registered message type.
func (r *Registry[H]) Types() []reflect.Type {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return lo.Keys(r.handlers)
}

func (r *Registry[H]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handlers)
}

// Dispose clears every registration and disposes the store. Dispatch afterwards fails
// with CodeNoHandlersRegistered.
func (r *Registry[H]) Dispose() error {
	r.mu.Lock()
	store := r.store
	r.handlers = make(map[reflect.Type]H)
	r.store = msgstore.Nop()
	r.mu.Unlock()

	if err := store.Dispose(); err != nil {
		return errx.Wrap(err, errx.WithDetails(errx.D{"registry": r.name}))
	}
	return nil
}
