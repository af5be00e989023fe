package msgstore

import (
	"context"
	"sync"
)

// Memory keeps every appended message in process. Tests and the example app use it to
// inspect what a bus dispatched.
type Memory struct {
	mu       sync.RWMutex
	records  []Record
	messages []any
	disposed bool
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Append(ctx context.Context, msg any) (Receipt, error) {
	rec, err := Encode(ctx, msg)
	if err != nil {
		return Receipt{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.disposed {
		return Receipt{}, ErrDisposed("memory")
	}
	m.records = append(m.records, rec)
	m.messages = append(m.messages, msg)
	return rec.Receipt(), nil
}

// Messages returns the appended values in order.
func (m *Memory) Messages() []any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]any(nil), m.messages...)
}

// Records returns the encoded envelopes in order.
func (m *Memory) Records() []Record {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Record(nil), m.records...)
}

func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

func (m *Memory) Disposed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.disposed
}

func (m *Memory) Dispose() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.disposed = true
	return nil
}
