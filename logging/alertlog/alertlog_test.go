package alertlog_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rise-and-shine/statebus/failure"
	"github.com/rise-and-shine/statebus/logging/alertlog"
	"github.com/rise-and-shine/statebus/observability/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type (
	count       struct{ N int }
	increment   struct{ By int }
	incremented struct{ By int }
)

type sent struct {
	code      string
	msg       string
	operation string
	details   map[string]string
}

type fakeProvider struct {
	mu    sync.Mutex
	sent  []sent
	fails bool
}

func (p *fakeProvider) SendError(_ context.Context, code, msg, operation string, details map[string]string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, sent{code, msg, operation, details})
	if p.fails {
		return errors.New("sentinel unavailable")
	}
	return nil
}

func TestFailuresAreAlerted(t *testing.T) {
	p := &fakeProvider{}
	l := alertlog.New[count](p, alertlog.WithLogger(logger.Nop()))

	l.OnCommandHandlerResult(increment{}, nil)
	l.OnCommandHandlerError(increment{By: 1}, failure.Wrap(errors.New("rejected"), increment{By: 1}, "sync"))
	l.OnEventHandlerError(incremented{By: 1}, count{}, errors.New("broken"))
	l.Wait()

	require.Len(t, p.sent, 2)

	byOp := map[string]sent{}
	for _, s := range p.sent {
		byOp[s.operation] = s
	}

	cmd := byOp["command: alertlog_test.increment"]
	assert.Equal(t, failure.CodeHandlerExecution, cmd.code)
	assert.Equal(t, "sync", cmd.details["stage"])
	assert.Equal(t, "alertlog_test.increment", cmd.details["command_type"])

	evt := byOp["event: alertlog_test.incremented"]
	assert.Equal(t, "broken", evt.msg)
	assert.Equal(t, "alertlog_test.incremented", evt.details["event_type"])
}

func TestSendFailureIsSwallowed(t *testing.T) {
	p := &fakeProvider{fails: true}
	l := alertlog.New[count](p, alertlog.WithLogger(logger.Nop()))

	l.OnEventHandlerError(incremented{}, count{}, errors.New("broken"))
	l.Wait()

	assert.Len(t, p.sent, 1)
}
