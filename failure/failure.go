// Package failure holds the error vocabulary shared by the command and event engines
// and the logging fan-out.
package failure

import (
	"errors"
	"fmt"
	"reflect"
	"runtime"

	"github.com/code19m/errx"
)

const (
	// CodeHandlerExecution marks a failure raised by a handler body, an async task or a
	// stream error notification.
	CodeHandlerExecution = "HANDLER_EXECUTION_FAILURE"

	// CodeEventHandlerReturnedNil marks an event handler that produced no state.
	CodeEventHandlerReturnedNil = "EVENT_HANDLER_RETURNED_NIL"

	// CodeNoCommandLogger marks a command failure nobody observed.
	CodeNoCommandLogger = "NO_REGISTERED_COMMAND_LOGGER"

	// CodeNoEventLogger marks an event failure nobody observed.
	CodeNoEventLogger = "NO_REGISTERED_EVENT_LOGGER"

	// CodeIncomparable is returned when a logger or listener cannot be used as a set key.
	CodeIncomparable = "INCOMPARABLE_REGISTRATION"
)

// ErrNilState is the cause reported when an event handler returns a nil state.
var ErrNilState = errx.New("[statebus.event]: event handler returned nil state",
	errx.WithCode(CodeEventHandlerReturnedNil))

// HandlerError wraps whatever made a handler fail.
type HandlerError struct {
	// Message is the command or event being handled.
	Message any
	// Stage names where the failure happened: "sync", "async", "reactive" or "apply".
	Stage string
	// Cause is the returned error, the task error, the stream error or the recovered panic.
	Cause error
	// Stack is set when the failure was a recovered panic.
	Stack string
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("[statebus]: %s handler for %s failed: %v", e.Stage, TypeName(e.Message), e.Cause)
}

func (e *HandlerError) Unwrap() error {
	return e.Cause
}

// Code reports CodeHandlerExecution.
func (e *HandlerError) Code() string {
	return CodeHandlerExecution
}

// UnobservedError is returned from the reporting path when a real failure happened and
// no logger of the matching category was registered to see it.
type UnobservedError struct {
	// Category is "command" or "event".
	Category string
	Message  any
	Cause    error
}

func (e *UnobservedError) Error() string {
	return fmt.Sprintf("[statebus]: no %s logger registered to observe failure of %s: %v",
		e.Category, TypeName(e.Message), e.Cause)
}

func (e *UnobservedError) Unwrap() error {
	return e.Cause
}

// Code reports CodeNoCommandLogger or CodeNoEventLogger.
func (e *UnobservedError) Code() string {
	if e.Category == "event" {
		return CodeNoEventLogger
	}
	return CodeNoCommandLogger
}

// IsUnobserved reports whether err carries an UnobservedError.
func IsUnobserved(err error) bool {
	var u *UnobservedError
	return errors.As(err, &u)
}

// Recover turns a recovered panic value into a HandlerError. Call it from a deferred
// function with the value returned by recover().
func Recover(r any, msg any, stage string) *HandlerError {
	stack := make([]byte, 4096) // 4KB
	stack = stack[:runtime.Stack(stack, false)]

	cause, ok := r.(error)
	if !ok {
		cause = errx.New("panic recovered in handler", errx.WithDetails(errx.D{
			"panic_values": fmt.Sprintf("%v", r),
		}))
	}

	return &HandlerError{
		Message: msg,
		Stage:   stage,
		Cause:   cause,
		Stack:   string(stack),
	}
}

// Wrap builds a HandlerError unless err already is one.
func Wrap(err error, msg any, stage string) error {
	var he *HandlerError
	if errors.As(err, &he) {
		return err
	}
	return &HandlerError{Message: msg, Stage: stage, Cause: err}
}

// TypeName names the runtime type of a message for logs and errors.
func TypeName(msg any) string {
	if msg == nil {
		return "<nil>"
	}
	return reflect.TypeOf(msg).String()
}

// IsNil reports whether v is nil, including typed nils held in an interface.
func IsNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() { //nolint:exhaustive // only nillable kinds matter
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	default:
		return false
	}
}
