package command

// ExecutionKind is the shape of a command handler, fixed when the handler is mapped.
type ExecutionKind int

const (
	// KindVoid handlers produce no event.
	KindVoid ExecutionKind = iota + 1
	// KindSyncSingle handlers return at most one event.
	KindSyncSingle
	// KindSyncMulti handlers return any number of events.
	KindSyncMulti
	// KindAsyncSingle handlers return a Task producing at most one event.
	KindAsyncSingle
	// KindAsyncMulti handlers return a Task producing any number of events.
	KindAsyncMulti
	// KindReactiveSingle handlers return a stream of single events.
	KindReactiveSingle
	// KindReactiveMulti handlers return a stream of event batches.
	KindReactiveMulti
)

func (k ExecutionKind) String() string {
	switch k {
	case KindVoid:
		return "void"
	case KindSyncSingle:
		return "sync_single"
	case KindSyncMulti:
		return "sync_multi"
	case KindAsyncSingle:
		return "async_single"
	case KindAsyncMulti:
		return "async_multi"
	case KindReactiveSingle:
		return "reactive_single"
	case KindReactiveMulti:
		return "reactive_multi"
	default:
		return "unknown"
	}
}

// IsAsync reports whether the kind runs on the command executor.
func (k ExecutionKind) IsAsync() bool {
	return k == KindAsyncSingle || k == KindAsyncMulti
}

// IsReactive reports whether the kind returns a stream.
func (k ExecutionKind) IsReactive() bool {
	return k == KindReactiveSingle || k == KindReactiveMulti
}
