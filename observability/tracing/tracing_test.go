package tracing_test

import (
	"context"
	"strings"
	"testing"

	"github.com/rise-and-shine/statebus/observability/tracing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestGetStartingTraceID(t *testing.T) {
	t.Run("without span", func(t *testing.T) {
		id := tracing.GetStartingTraceID(context.Background())
		assert.True(t, strings.HasPrefix(id, "man-"), id)
	})

	t.Run("with recording span", func(t *testing.T) {
		tp := sdktrace.NewTracerProvider()
		defer func() { _ = tp.Shutdown(context.Background()) }()

		ctx, span := tp.Tracer("test").Start(context.Background(), "op")
		defer span.End()

		assert.Equal(t, span.SpanContext().TraceID().String(), tracing.GetStartingTraceID(ctx))
	})
}

func TestInitGlobalTracerDisabled(t *testing.T) {
	shutdown, err := tracing.InitGlobalTracer(tracing.Config{Disable: true})
	require.NoError(t, err)
	require.NoError(t, shutdown())

	_, span := tracing.Tracer("test").Start(context.Background(), "op")
	assert.False(t, span.SpanContext().IsValid())
	span.End()
}
