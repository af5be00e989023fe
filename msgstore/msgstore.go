// Package msgstore defines the sink every dispatched command and event may be appended
// to for audit. The bus never reads a store back; it appends and, on dispose, releases it.
package msgstore

import (
	"context"
	"encoding/json"
	"time"

	"github.com/code19m/errx"
	"github.com/google/uuid"
	"github.com/rise-and-shine/statebus/failure"
	"github.com/rise-and-shine/statebus/meta"
)

const (
	// CodeStoreDisposed is returned by Append after Dispose.
	CodeStoreDisposed = "MESSAGE_STORE_DISPOSED"

	// CodeEncodeFailed is returned when a message cannot be serialized.
	CodeEncodeFailed = "MESSAGE_ENCODE_FAILED"

	// CodeUnknownDriver is returned by Open for drivers it cannot build.
	CodeUnknownDriver = "MESSAGE_STORE_UNKNOWN_DRIVER"
)

// Store is an append-only message sink.
type Store interface {
	// Append records msg and returns a receipt identifying the stored entry.
	Append(ctx context.Context, msg any) (Receipt, error)

	// Dispose releases the store. Append after Dispose fails.
	Dispose() error
}

// Receipt identifies a stored message.
type Receipt struct {
	ID       string
	Type     string
	StoredAt time.Time
}

// Record is the envelope written by every persistent backend.
type Record struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	StoredAt   time.Time       `json:"stored_at"`
	TraceID    string          `json:"trace_id,omitempty"`
	DispatchID string          `json:"dispatch_id,omitempty"`
	Payload    json.RawMessage `json:"payload"`
}

// Encode wraps msg into a Record with a fresh id.
func Encode(ctx context.Context, msg any) (Record, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return Record{}, errx.Wrap(err,
			errx.WithCode(CodeEncodeFailed),
			errx.WithDetails(errx.D{"type": failure.TypeName(msg)}),
		)
	}

	return Record{
		ID:         uuid.NewString(),
		Type:       failure.TypeName(msg),
		StoredAt:   time.Now().UTC(),
		TraceID:    meta.Get(ctx, meta.TraceID),
		DispatchID: meta.Get(ctx, meta.DispatchID),
		Payload:    payload,
	}, nil
}

// Receipt returns the receipt for r.
func (r Record) Receipt() Receipt {
	return Receipt{ID: r.ID, Type: r.Type, StoredAt: r.StoredAt}
}

// Marshal serializes the whole envelope.
func (r Record) Marshal() ([]byte, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return nil, errx.Wrap(err, errx.WithCode(CodeEncodeFailed))
	}
	return b, nil
}

type nop struct{}

// Nop returns the default store, which records nothing.
func Nop() Store {
	return nop{}
}

func (nop) Append(_ context.Context, msg any) (Receipt, error) {
	return Receipt{Type: failure.TypeName(msg), StoredAt: time.Now().UTC()}, nil
}

func (nop) Dispose() error {
	return nil
}

// ErrDisposed builds the error returned by a disposed store.
func ErrDisposed(store string) error {
	return errx.New("[msgstore]: store is disposed",
		errx.WithCode(CodeStoreDisposed),
		errx.WithDetails(errx.D{"store": store}),
	)
}
