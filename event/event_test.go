package event_test

import (
	"context"
	"errors"
	"testing"

	"github.com/code19m/errx"
	"github.com/rise-and-shine/statebus/event"
	"github.com/rise-and-shine/statebus/failure"
	"github.com/rise-and-shine/statebus/logging"
	"github.com/rise-and-shine/statebus/observability/logger"
	"github.com/rise-and-shine/statebus/registry"
	"github.com/rise-and-shine/statebus/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type (
	count       struct{ N int }
	incremented struct{ By int }
	reset       struct{}
)

type eventErr struct {
	evt any
	err error
}

type fixture struct {
	engine  *event.Engine[*count]
	state   *state.Container[*count]
	logs    *logging.Fanout[*count]
	results []*count
	errs    []eventErr
}

func newFixture(t *testing.T, withLogger bool) *fixture {
	t.Helper()

	c, err := state.New(&count{})
	require.NoError(t, err)

	f := &fixture{state: c, logs: logging.NewFanout[*count](logger.Nop())}
	f.engine = event.NewEngine(c, f.logs, registry.WithLogger(logger.Nop()))

	if withLogger {
		require.NoError(t, f.logs.AddEventLogger(&logging.Funcs[*count]{
			EventResult: func(_ any, s *count) { f.results = append(f.results, s) },
			EventError:  func(evt any, _ *count, err error) { f.errs = append(f.errs, eventErr{evt, err}) },
		}))
	}
	return f
}

func add(s *count, evt incremented) (*count, error) {
	return &count{N: s.N + evt.By}, nil
}

func TestApply(t *testing.T) {
	f := newFixture(t, true)
	require.NoError(t, event.Map[*count, incremented](f.engine, add))

	require.NoError(t, f.engine.Apply(context.Background(), incremented{By: 2}))
	require.NoError(t, f.engine.Apply(context.Background(), incremented{By: 3}))

	assert.Equal(t, &count{N: 5}, f.state.CurrentState())
	assert.Equal(t, []*count{{N: 2}, {N: 5}}, f.results)
	assert.Empty(t, f.errs)
}

type resetHandler struct{}

func (resetHandler) Apply(*count, reset) (*count, error) {
	return &count{}, nil
}

func TestMapShapes(t *testing.T) {
	tests := []struct {
		name     string
		handler  any
		wantCode string
	}{
		{name: "plain func", handler: func(s *count, _ reset) (*count, error) { return s, nil }},
		{name: "apply func", handler: event.ApplyFunc[*count, reset](func(s *count, _ reset) (*count, error) {
			return s, nil
		})},
		{name: "handler", handler: resetHandler{}},
		{name: "wrong event type", handler: add, wantCode: registry.CodeUnsupportedHandlerKind},
		{name: "not a handler", handler: 42, wantCode: registry.CodeUnsupportedHandlerKind},
		{name: "nil", handler: nil, wantCode: registry.CodeNilHandler},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, true)
			err := event.Map[*count, reset](f.engine, tc.handler)
			if tc.wantCode == "" {
				require.NoError(t, err)
				assert.Len(t, f.engine.Types(), 1)
				return
			}
			assert.True(t, errx.IsCodeIn(err, tc.wantCode), err)
		})
	}
}

func TestApplyFailures(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name      string
		handler   func(*count, incremented) (*count, error)
		wantCause error
	}{
		{name: "returns error", handler: func(*count, incremented) (*count, error) { return nil, boom }, wantCause: boom},
		{name: "returns nil state", handler: func(*count, incremented) (*count, error) { return nil, nil },
			wantCause: failure.ErrNilState},
		{name: "panics", handler: func(*count, incremented) (*count, error) { panic(boom) }, wantCause: boom},
	}

	for _, tc := range tests {
		t.Run(tc.name+" with logger", func(t *testing.T) {
			f := newFixture(t, true)
			require.NoError(t, event.Map[*count, incremented](f.engine, tc.handler))

			require.NoError(t, f.engine.Apply(context.Background(), incremented{By: 1}))

			require.Len(t, f.errs, 1)
			assert.ErrorIs(t, f.errs[0].err, tc.wantCause)
			assert.Equal(t, incremented{By: 1}, f.errs[0].evt)
			assert.Equal(t, &count{}, f.state.CurrentState(), "state untouched")
		})

		t.Run(tc.name+" without logger", func(t *testing.T) {
			f := newFixture(t, false)
			require.NoError(t, event.Map[*count, incremented](f.engine, tc.handler))

			err := f.engine.Apply(context.Background(), incremented{By: 1})
			require.Error(t, err)
			assert.True(t, failure.IsUnobserved(err))
			assert.ErrorIs(t, err, tc.wantCause)
		})
	}
}

func TestApplyUnregistered(t *testing.T) {
	f := newFixture(t, true)
	err := f.engine.Apply(context.Background(), incremented{})
	assert.True(t, errx.IsCodeIn(err, registry.CodeNoHandlersRegistered))
	assert.Empty(t, f.errs, "routing errors are not reported to loggers")
}

func TestDispose(t *testing.T) {
	f := newFixture(t, true)
	require.NoError(t, event.Map[*count, incremented](f.engine, add))
	require.NoError(t, f.engine.Dispose())

	err := f.engine.Apply(context.Background(), incremented{By: 1})
	assert.True(t, errx.IsCodeIn(err, registry.CodeNoHandlersRegistered))
}
