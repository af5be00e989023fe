package registry_test

import (
	"context"
	"errors"
	"reflect"
	"sort"
	"testing"

	"github.com/code19m/errx"
	"github.com/rise-and-shine/statebus/msgstore"
	"github.com/rise-and-shine/statebus/observability/logger"
	"github.com/rise-and-shine/statebus/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type (
	createUser struct{ Name string }
	deleteUser struct{ ID int }
)

type handlerFunc func(ctx context.Context, msg any) error

func probe(h any) (handlerFunc, error) {
	fn, ok := h.(func(context.Context, any) error)
	if !ok {
		return nil, errors.New("not a handler func")
	}
	return fn, nil
}

func exec(ctx context.Context, msg any, h handlerFunc) error {
	return h(ctx, msg)
}

func newRegistry(store msgstore.Store) *registry.Registry[handlerFunc] {
	return registry.New("test", exec, registry.WithStore(store), registry.WithLogger(logger.Nop()))
}

func TestRegister(t *testing.T) {
	tests := []struct {
		name     string
		handler  any
		wantCode string
	}{
		{name: "valid", handler: func(context.Context, any) error { return nil }},
		{name: "nil", handler: nil, wantCode: registry.CodeNilHandler},
		{name: "typed nil", handler: (func(context.Context, any) error)(nil), wantCode: registry.CodeNilHandler},
		{name: "wrong shape", handler: func() {}, wantCode: registry.CodeUnsupportedHandlerKind},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := newRegistry(nil)
			err := r.Register(registry.TypeOf[createUser](), tc.handler, probe)
			if tc.wantCode == "" {
				require.NoError(t, err)
				assert.Equal(t, 1, r.Len())
				return
			}
			require.Error(t, err)
			assert.True(t, errx.IsCodeIn(err, tc.wantCode), err.Error())
			assert.Equal(t, 0, r.Len())
		})
	}
}

func TestDispatch(t *testing.T) {
	store := msgstore.NewMemory()
	r := newRegistry(store)

	var got []any
	require.NoError(t, r.Register(registry.TypeOf[createUser](), func(_ context.Context, msg any) error {
		got = append(got, msg)
		return nil
	}, probe))

	require.NoError(t, r.Dispatch(context.Background(), createUser{Name: "a"}))
	assert.Equal(t, []any{createUser{Name: "a"}}, got)

	err := r.Dispatch(context.Background(), deleteUser{ID: 1})
	require.Error(t, err)
	assert.True(t, errx.IsCodeIn(err, registry.CodeNoHandlersRegistered))

	// appended regardless of the outcome
	assert.Equal(t, []any{createUser{Name: "a"}, deleteUser{ID: 1}}, store.Messages())
}

func TestDispatchRoutesByExactType(t *testing.T) {
	r := newRegistry(nil)
	require.NoError(t, r.Register(registry.TypeOf[createUser](), func(context.Context, any) error {
		return nil
	}, probe))

	err := r.Dispatch(context.Background(), &createUser{})
	assert.True(t, errx.IsCodeIn(err, registry.CodeNoHandlersRegistered))

	err = r.Dispatch(context.Background(), nil)
	assert.True(t, errx.IsCodeIn(err, registry.CodeNilMessage))
}

func TestRegisterReplaces(t *testing.T) {
	r := newRegistry(nil)
	calls := map[string]int{}

	require.NoError(t, r.Register(registry.TypeOf[createUser](), func(context.Context, any) error {
		calls["first"]++
		return nil
	}, probe))
	require.NoError(t, r.Register(registry.TypeOf[createUser](), func(context.Context, any) error {
		calls["second"]++
		return nil
	}, probe))

	require.NoError(t, r.Dispatch(context.Background(), createUser{}))
	assert.Equal(t, map[string]int{"second": 1}, calls)
	assert.Equal(t, 1, r.Len())
}

func TestHandlerErrorPassesThrough(t *testing.T) {
	r := newRegistry(nil)
	boom := errors.New("boom")
	require.NoError(t, r.Register(registry.TypeOf[createUser](), func(context.Context, any) error {
		return boom
	}, probe))

	assert.ErrorIs(t, r.Dispatch(context.Background(), createUser{}), boom)
}

func TestFilterAndTypes(t *testing.T) {
	r := newRegistry(nil)
	noop := func(context.Context, any) error { return nil }
	require.NoError(t, r.Register(registry.TypeOf[createUser](), noop, probe))
	require.NoError(t, r.Register(registry.TypeOf[deleteUser](), noop, probe))

	names := func(types []reflect.Type) []string {
		out := make([]string, 0, len(types))
		for _, t := range types {
			out = append(out, t.Name())
		}
		sort.Strings(out)
		return out
	}

	assert.Equal(t, []string{"createUser", "deleteUser"}, names(r.Types()))
	assert.Equal(t, []string{"deleteUser"}, names(r.Filter(func(t reflect.Type, _ handlerFunc) bool {
		return t == registry.TypeOf[deleteUser]()
	})))

	_, ok := r.Lookup(registry.TypeOf[createUser]())
	assert.True(t, ok)
}

func TestDispose(t *testing.T) {
	store := msgstore.NewMemory()
	r := newRegistry(store)
	require.NoError(t, r.Register(registry.TypeOf[createUser](), func(context.Context, any) error {
		return nil
	}, probe))

	require.NoError(t, r.Dispose())
	assert.True(t, store.Disposed())
	assert.Equal(t, 0, r.Len())

	err := r.Dispatch(context.Background(), createUser{})
	assert.True(t, errx.IsCodeIn(err, registry.CodeNoHandlersRegistered))
}
