package registry

const (
	// CodeNilHandler is returned when a nil handler is registered.
	CodeNilHandler = "NIL_HANDLER"

	// CodeUnsupportedHandlerKind is returned when a handler matches none of the shapes
	// a registry accepts.
	CodeUnsupportedHandlerKind = "UNSUPPORTED_HANDLER_KIND"

	// CodeNoHandlersRegistered is returned when a message type has no handler.
	CodeNoHandlersRegistered = "NO_HANDLERS_REGISTERED"

	// CodeNilMessage is returned when a nil message is dispatched.
	CodeNilMessage = "NIL_MESSAGE"
)
