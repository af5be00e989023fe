// Package wrapper provides dispatch middleware for HandleCommand and HandleEvent.
//
// A WrapFunc decorates a DispatchFunc with a cross-cutting concern. Chain applies
// wrappers so the first one listed runs outermost.
package wrapper

import (
	"context"
	"fmt"
	"strings"
)

// DispatchFunc hands one message to the bus.
type DispatchFunc func(ctx context.Context, msg any) error

// WrapFunc decorates a DispatchFunc.
type WrapFunc func(next DispatchFunc) DispatchFunc

// Chain wraps next with wraps, first wrap outermost.
func Chain(next DispatchFunc, wraps ...WrapFunc) DispatchFunc {
	for i := len(wraps) - 1; i >= 0; i-- {
		if wraps[i] != nil {
			next = wraps[i](next)
		}
	}
	return next
}

// messageName returns the bare type name of msg, used for span names and log fields.
func messageName(msg any) string {
	fullType := fmt.Sprintf("%T", msg)

	fullType = strings.TrimPrefix(fullType, "*")

	parts := strings.Split(fullType, ".")
	if len(parts) > 1 {
		return parts[len(parts)-1]
	}

	return fullType
}
