package command

import (
	"context"

	"github.com/rise-and-shine/statebus/failure"
)

type taskResult struct {
	events []Event
	err    error
}

// executeAsync runs the handler's task on the executor and blocks until the task
// finishes or ctx is done.
func (e *Engine[S]) executeAsync(ctx context.Context, cmd any, r *Registration[S], snapshot S) error {
	task, err := e.buildTask(ctx, cmd, r, snapshot)
	if err != nil {
		return e.fail(cmd, err)
	}
	if task == nil {
		return e.succeed(ctx, cmd, nil)
	}

	done := make(chan taskResult, 1)
	submitErr := e.Executor().Submit(func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- taskResult{err: failure.Recover(rec, cmd, "async")}
			}
		}()

		events, err := task(ctx)
		if err != nil {
			err = failure.Wrap(err, cmd, "async")
		}
		done <- taskResult{events: events, err: err}
	})
	if submitErr != nil {
		return e.fail(cmd, failure.Wrap(submitErr, cmd, "async"))
	}

	select {
	case res := <-done:
		if res.err != nil {
			return e.fail(cmd, res.err)
		}
		return e.succeed(ctx, cmd, res.events)
	case <-ctx.Done():
		return e.fail(cmd, failure.Wrap(ctx.Err(), cmd, "async"))
	}
}

func (e *Engine[S]) buildTask(ctx context.Context, cmd any, r *Registration[S], snapshot S) (task Task[[]Event], err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = failure.Recover(rec, cmd, "async")
		}
	}()
	return r.task(ctx, snapshot, cmd), nil
}
