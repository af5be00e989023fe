// Package meta carries dispatch metadata through context.
//
// The bus injects a trace id and a dispatch id for every command it handles so that
// log lines written by handlers, loggers and message stores can be correlated.
package meta

import (
	"context"
	"sync"
)

// ContextKey is a type for keys used in context values for metadata.
type ContextKey string

const (
	// TraceID correlates every log line produced while handling one command.
	TraceID ContextKey = "trace_id"

	// DispatchID identifies a single HandleCommand or HandleEvent call.
	DispatchID ContextKey = "dispatch_id"

	// MessageType is the Go type name of the command or event being dispatched.
	MessageType ContextKey = "message_type"

	// ServiceName identifies the name of current running service.
	ServiceName ContextKey = "service_name"

	// ServiceVersion indicates the version of the service.
	ServiceVersion ContextKey = "service_version"
)

// keys lists every ContextKey in the order they are extracted.
//
//nolint:gochecknoglobals // static lookup table
var keys = []ContextKey{
	TraceID,
	DispatchID,
	MessageType,
	ServiceName,
	ServiceVersion,
}

// InjectMetaToContext adds metadata from the provided map to the context.
// It only adds values that are not empty strings and returns a new context
// with the added values.
func InjectMetaToContext(ctx context.Context, data map[ContextKey]string) context.Context {
	for k, v := range data {
		if v != "" {
			ctx = context.WithValue(ctx, k, v) //nolint:fatcontext // allow due to finite number of keys
		}
	}
	return ctx
}

// ExtractMetaFromContext extracts all known metadata from the provided context.
// Only non-empty string values are included in the returned map.
func ExtractMetaFromContext(ctx context.Context) map[ContextKey]string {
	data := make(map[ContextKey]string)
	if ctx == nil {
		return data
	}
	for _, k := range keys {
		if v, ok := ctx.Value(k).(string); ok && v != "" {
			data[k] = v
		}
	}
	return data
}

// Get returns a single metadata value, or an empty string.
func Get(ctx context.Context, key ContextKey) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(key).(string)
	return v
}

//nolint:gochecknoglobals // process-wide service identity
var (
	serviceName    string
	serviceVersion string
	serviceOnce    sync.Once
)

// SetServiceInfo records the service name and version once at startup.
// Subsequent calls are ignored.
func SetServiceInfo(name, version string) {
	serviceOnce.Do(func() {
		serviceName = name
		serviceVersion = version
	})
}

// Service returns the service identity recorded by SetServiceInfo.
func Service() (string, string) {
	return serviceName, serviceVersion
}
