// Package kafkastore is a message store that produces every dispatched message to a
// Kafka topic, keyed by message type.
package kafkastore

import (
	"context"
	"sync/atomic"

	"github.com/IBM/sarama"
	"github.com/avast/retry-go/v4"
	"github.com/code19m/errx"
	"github.com/rise-and-shine/statebus/msgstore"
	"github.com/rise-and-shine/statebus/observability/logger"
	"github.com/samber/lo"
	"go.opentelemetry.io/otel"
)

const (
	HeaderType       = "statebus-type"
	HeaderTraceID    = "trace-id"
	HeaderDispatchID = "dispatch-id"
)

// Store produces records with a sarama SyncProducer.
type Store struct {
	producer sarama.SyncProducer
	cfg      Config
	logger   logger.Logger

	disposed atomic.Bool
}

// New produces with producer, which the store closes on Dispose.
func New(producer sarama.SyncProducer, cfg Config, l logger.Logger) *Store {
	if l == nil {
		l = logger.Named("statebus.kafkastore")
	}
	if cfg.RetryCount < 1 {
		cfg.RetryCount = 1
	}
	return &Store{producer: producer, cfg: cfg, logger: l}
}

// Open connects a sync producer to cfg.Brokers.
func Open(cfg Config) (*Store, error) {
	saramaCfg, err := cfg.SaramaConfig()
	if err != nil {
		return nil, err
	}

	producer, err := sarama.NewSyncProducer(cfg.brokers(), saramaCfg)
	if err != nil {
		return nil, errx.Wrap(err, errx.WithDetails(errx.D{"brokers": cfg.Brokers}))
	}
	return New(producer, cfg, nil), nil
}

func (s *Store) Append(ctx context.Context, msg any) (msgstore.Receipt, error) {
	if s.disposed.Load() {
		return msgstore.Receipt{}, msgstore.ErrDisposed("kafka")
	}

	rec, err := msgstore.Encode(ctx, msg)
	if err != nil {
		return msgstore.Receipt{}, err
	}
	value, err := rec.Marshal()
	if err != nil {
		return msgstore.Receipt{}, err
	}

	pm := &sarama.ProducerMessage{
		Topic: s.cfg.Topic,
		Key:   sarama.StringEncoder(rec.Type),
		Value: sarama.ByteEncoder(value),
		Headers: lo.MapToSlice(
			lo.PickBy(map[string]string{
				HeaderType:       rec.Type,
				HeaderTraceID:    rec.TraceID,
				HeaderDispatchID: rec.DispatchID,
			}, func(_, v string) bool { return v != "" }),
			func(k, v string) sarama.RecordHeader {
				return sarama.RecordHeader{Key: []byte(k), Value: []byte(v)}
			},
		),
	}
	otel.GetTextMapPropagator().Inject(ctx, headerCarrier{msg: pm})

	var partition int32
	var offset int64
	log := s.logger.WithContext(ctx)
	err = retry.Do(
		func() error {
			var sendErr error
			partition, offset, sendErr = s.producer.SendMessage(pm)
			return sendErr
		},
		retry.Attempts(uint(s.cfg.RetryCount)),
		retry.Delay(s.cfg.RetryDelay),
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

	log.With("partition", partition).With("offset", offset).Debugf("stored %s", rec.Type)
	return rec.Receipt(), nil
}

func (s *Store) Dispose() error {
	if s.disposed.Swap(true) {
		return nil
	}
	if err := s.producer.Close(); err != nil {
		return errx.Wrap(err)
	}
	return nil
}
