package logging

// Funcs adapts optional callbacks to Logger. Register it by pointer.
type Funcs[S any] struct {
	CommandResult func(cmd any, events []any)
	CommandError  func(cmd any, err error)
	EventResult   func(evt any, state S)
	EventError    func(evt any, state S, err error)
}

func (f *Funcs[S]) OnCommandHandlerResult(cmd any, events []any) {
	if f.CommandResult != nil {
		f.CommandResult(cmd, events)
	}
}

func (f *Funcs[S]) OnCommandHandlerError(cmd any, err error) {
	if f.CommandError != nil {
		f.CommandError(cmd, err)
	}
}

func (f *Funcs[S]) OnEventHandlerResult(evt any, state S) {
	if f.EventResult != nil {
		f.EventResult(evt, state)
	}
}

func (f *Funcs[S]) OnEventHandlerError(evt any, state S, err error) {
	if f.EventError != nil {
		f.EventError(evt, state, err)
	}
}
