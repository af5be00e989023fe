// Package meta_test contains tests for the meta package.
package meta_test

import (
	"context"
	"testing"

	"github.com/rise-and-shine/statebus/meta"
	"github.com/stretchr/testify/assert"
)

func TestInjectMetaToContext(t *testing.T) {
	tests := []struct {
		name        string
		metaData    map[meta.ContextKey]string
		keyToVerify meta.ContextKey
		valueExpect string
		nilValue    bool
	}{
		{
			name:        "inject single value",
			metaData:    map[meta.ContextKey]string{meta.TraceID: "abc-123"},
			keyToVerify: meta.TraceID,
			valueExpect: "abc-123",
		},
		{
			name: "inject multiple values",
			metaData: map[meta.ContextKey]string{
				meta.TraceID:     "trace-123",
				meta.DispatchID:  "dispatch-1",
				meta.MessageType: "counter.Increment",
			},
			keyToVerify: meta.MessageType,
			valueExpect: "counter.Increment",
		},
		{
			name: "skip empty values",
			metaData: map[meta.ContextKey]string{
				meta.TraceID:    "trace-123",
				meta.DispatchID: "",
			},
			keyToVerify: meta.DispatchID,
			nilValue:    true,
		},
		{
			name:        "empty map",
			metaData:    map[meta.ContextKey]string{},
			keyToVerify: meta.TraceID,
			nilValue:    true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ctx := meta.InjectMetaToContext(t.Context(), tc.metaData)

			if tc.nilValue {
				assert.Nil(t, ctx.Value(tc.keyToVerify))
				return
			}
			assert.Equal(t, tc.valueExpect, ctx.Value(tc.keyToVerify))
		})
	}
}

func TestExtractMetaFromContext(t *testing.T) {
	tests := []struct {
		name     string
		ctxSetup func() context.Context
		expected map[meta.ContextKey]string
	}{
		{
			name: "extract known keys",
			ctxSetup: func() context.Context {
				ctx := context.WithValue(t.Context(), meta.TraceID, "trace-123")
				return context.WithValue(ctx, meta.DispatchID, "dispatch-9")
			},
			expected: map[meta.ContextKey]string{
				meta.TraceID:    "trace-123",
				meta.DispatchID: "dispatch-9",
			},
		},
		{
			name: "ignore non-string values",
			ctxSetup: func() context.Context {
				ctx := context.WithValue(t.Context(), meta.TraceID, 12345)
				return context.WithValue(ctx, meta.ServiceName, "billing")
			},
			expected: map[meta.ContextKey]string{meta.ServiceName: "billing"},
		},
		{
			name: "ignore unknown keys",
			ctxSetup: func() context.Context {
				return context.WithValue(t.Context(), meta.ContextKey("custom"), "value")
			},
			expected: map[meta.ContextKey]string{},
		},
		{
			name:     "empty context",
			ctxSetup: t.Context,
			expected: map[meta.ContextKey]string{},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, meta.ExtractMetaFromContext(tc.ctxSetup()))
		})
	}
}

func TestGet(t *testing.T) {
	ctx := meta.InjectMetaToContext(t.Context(), map[meta.ContextKey]string{meta.DispatchID: "d-1"})

	assert.Equal(t, "d-1", meta.Get(ctx, meta.DispatchID))
	assert.Empty(t, meta.Get(ctx, meta.TraceID))
	assert.Empty(t, meta.Get(nil, meta.TraceID)) //nolint:staticcheck // nil context is handled
}
