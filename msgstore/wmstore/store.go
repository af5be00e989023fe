// Package wmstore is a message store that publishes every dispatched message to a
// watermill publisher.
//
// Each record is one watermill message whose payload is the JSON envelope and whose
// metadata carries the type, trace id and dispatch id. Publishing is retried.
package wmstore

import (
	"context"
	"sync/atomic"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/avast/retry-go/v4"
	"github.com/code19m/errx"
	"github.com/rise-and-shine/statebus/msgstore"
	"github.com/rise-and-shine/statebus/observability/logger"
)

const (
	MetadataType       = "statebus_type"
	MetadataTraceID    = "trace_id"
	MetadataDispatchID = "dispatch_id"
)

// Store publishes records to a watermill publisher.
type Store struct {
	pub    message.Publisher
	cfg    Config
	logger logger.Logger
	owns   bool

	disposed atomic.Bool
}

type Option func(*Store)

func WithLogger(l logger.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithOwnedPublisher closes the publisher on Dispose.
func WithOwnedPublisher() Option {
	return func(s *Store) {
		s.owns = true
	}
}

// New publishes to pub under cfg.Topic. Zero fields of cfg get their defaults.
func New(pub message.Publisher, cfg Config, opts ...Option) *Store {
	if cfg.Topic == "" {
		cfg.Topic = "statebus.messages"
	}
	if cfg.RetryCount < 1 {
		cfg.RetryCount = 1
	}

	s := &Store{pub: pub, cfg: cfg, logger: logger.Named("statebus.wmstore")}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Append(ctx context.Context, msg any) (msgstore.Receipt, error) {
	if s.disposed.Load() {
		return msgstore.Receipt{}, msgstore.ErrDisposed("watermill")
	}

	rec, err := msgstore.Encode(ctx, msg)
	if err != nil {
		return msgstore.Receipt{}, err
	}
	payload, err := rec.Marshal()
	if err != nil {
		return msgstore.Receipt{}, err
	}

	wm := message.NewMessage(rec.ID, payload)
	wm.SetContext(ctx)
	wm.Metadata.Set(MetadataType, rec.Type)
	wm.Metadata.Set(partitionKey, rec.Type)
	if rec.TraceID != "" {
		wm.Metadata.Set(MetadataTraceID, rec.TraceID)
	}
	if rec.DispatchID != "" {
		wm.Metadata.Set(MetadataDispatchID, rec.DispatchID)
	}

	log := s.logger.WithContext(ctx)
	err = retry.Do(
		func() error {
			return s.pub.Publish(s.cfg.Topic, wm)
		},
		retry.Attempts(uint(s.cfg.RetryCount)),
		retry.Delay(s.cfg.RetryDelay),
		retry.MaxJitter(s.cfg.RetryDelay/2+1),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			log.With("attempt", n+1).With("max_attempts", s.cfg.RetryCount).Warnx(err)
		}),
		retry.Context(ctx),
	)
	if err != nil {
		return msgstore.Receipt{}, errx.Wrap(err, errx.WithDetails(errx.D{
			"topic": s.cfg.Topic,
			"type":  rec.Type,
		}))
	}
	return rec.Receipt(), nil
}

// Dispose stops accepting messages and closes an owned publisher.
func (s *Store) Dispose() error {
	if s.disposed.Swap(true) || !s.owns {
		return nil
	}
	if err := s.pub.Close(); err != nil {
		return errx.Wrap(err)
	}
	return nil
}
