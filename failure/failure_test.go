package failure_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/rise-and-shine/statebus/failure"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type increment struct{ N int }

func TestHandlerErrorUnwrap(t *testing.T) {
	cause := errors.New("db down")
	err := failure.Wrap(cause, increment{N: 1}, "sync")

	var he *failure.HandlerError
	require.ErrorAs(t, err, &he)
	require.ErrorIs(t, err, cause)
	assert.Equal(t, failure.CodeHandlerExecution, he.Code())
	assert.Contains(t, err.Error(), "failure_test.increment")

	// wrapping twice keeps the first wrapper
	assert.Same(t, he, failure.Wrap(err, increment{}, "async"))
}

func TestUnobservedError(t *testing.T) {
	cause := errors.New("nobody listens")
	err := fmt.Errorf("dispatch: %w", &failure.UnobservedError{Category: "event", Message: increment{}, Cause: cause})

	assert.True(t, failure.IsUnobserved(err))
	assert.ErrorIs(t, err, cause)

	var u *failure.UnobservedError
	require.ErrorAs(t, err, &u)
	assert.Equal(t, failure.CodeNoEventLogger, u.Code())
	assert.False(t, failure.IsUnobserved(cause))
}

func TestRecover(t *testing.T) {
	tests := []struct {
		name  string
		value any
	}{
		{name: "string panic", value: "kaboom"},
		{name: "error panic", value: errors.New("kaboom")},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			he := func() (he *failure.HandlerError) {
				defer func() {
					he = failure.Recover(recover(), increment{}, "sync")
				}()
				panic(tc.value)
			}()

			require.NotNil(t, he)
			assert.NotEmpty(t, he.Stack)
			assert.Equal(t, "sync", he.Stage)
			assert.Error(t, he.Cause)
		})
	}
}

func TestIsNil(t *testing.T) {
	var nilPtr *increment
	var nilMap map[string]int

	assert.True(t, failure.IsNil(nil))
	assert.True(t, failure.IsNil(nilPtr))
	assert.True(t, failure.IsNil(nilMap))
	assert.False(t, failure.IsNil(increment{}))
	assert.False(t, failure.IsNil(0))
	assert.False(t, failure.IsNil(&increment{}))
}
