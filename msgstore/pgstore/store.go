// Package pgstore is a message store that keeps every dispatched message in the
// statebus_messages PostgreSQL table.
package pgstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"sync/atomic"
	"time"

	"github.com/code19m/errx"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rise-and-shine/statebus/msgstore"
	"github.com/uptrace/bun"
)

const (
	CodeConflict = "MESSAGE_STORE_CONFLICT"
	CodeNotFound = "MESSAGE_STORE_NOT_FOUND"

	pgConflictCode = "23505"
)

type message struct {
	bun.BaseModel `bun:"table:statebus_messages,alias:m"`

	ID         string          `bun:"id,pk,type:uuid"`
	Type       string          `bun:"type,notnull"`
	StoredAt   time.Time       `bun:"stored_at,notnull"`
	TraceID    string          `bun:"trace_id"`
	DispatchID string          `bun:"dispatch_id"`
	Payload    json.RawMessage `bun:"payload,type:jsonb,notnull"`
}

func fromRecord(r msgstore.Record) *message {
	return &message{
		ID:         r.ID,
		Type:       r.Type,
		StoredAt:   r.StoredAt,
		TraceID:    r.TraceID,
		DispatchID: r.DispatchID,
		Payload:    r.Payload,
	}
}

func (m *message) record() msgstore.Record {
	return msgstore.Record{
		ID:         m.ID,
		Type:       m.Type,
		StoredAt:   m.StoredAt,
		TraceID:    m.TraceID,
		DispatchID: m.DispatchID,
		Payload:    m.Payload,
	}
}

// Store appends messages to PostgreSQL.
type Store struct {
	db       bun.IDB
	closer   func() error
	disposed atomic.Bool
}

// New uses db without owning it. db may be a *bun.DB or a bun.Tx.
func New(db bun.IDB) *Store {
	return &Store{db: db}
}

// Open connects with cfg and creates the table when cfg.CreateTable is set. The store
// closes the connection on Dispose.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	db, err := NewDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	s := &Store{db: db, closer: db.Close}
	if cfg.CreateTable {
		if err = s.CreateTable(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return s, nil
}

// CreateTable creates statebus_messages and its type index if missing.
func (s *Store) CreateTable(ctx context.Context) error {
	_, err := s.db.NewCreateTable().Model((*message)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return errx.Wrap(err)
	}

	_, err = s.db.NewCreateIndex().
		Model((*message)(nil)).
		Index("statebus_messages_type_idx").
		Column("type", "stored_at").
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return errx.Wrap(err)
	}
	return nil
}

func (s *Store) Append(ctx context.Context, msg any) (msgstore.Receipt, error) {
	if s.disposed.Load() {
		return msgstore.Receipt{}, msgstore.ErrDisposed("postgres")
	}

	rec, err := msgstore.Encode(ctx, msg)
	if err != nil {
		return msgstore.Receipt{}, err
	}

	q := s.db.NewInsert().Model(fromRecord(rec))
	if _, err = q.Exec(ctx); err != nil {
		return msgstore.Receipt{}, wrapErr(err, q)
	}
	return rec.Receipt(), nil
}

// Get loads the record stored under id.
func (s *Store) Get(ctx context.Context, id string) (msgstore.Record, error) {
	m := new(message)
	q := s.db.NewSelect().Model(m).Where("m.id = ?", id)
	if err := q.Scan(ctx); err != nil {
		return msgstore.Record{}, wrapErr(err, q)
	}
	return m.record(), nil
}

// List returns up to limit records in storage order, optionally of one message type.
func (s *Store) List(ctx context.Context, msgType string, limit int) ([]msgstore.Record, error) {
	var rows []message
	q := s.db.NewSelect().Model(&rows).Order("m.stored_at ASC").Limit(limit)
	if msgType != "" {
		q = q.Where("m.type = ?", msgType)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, wrapErr(err, q)
	}

	out := make([]msgstore.Record, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].record())
	}
	return out, nil
}

// Dispose stops accepting messages and closes an owned connection.
func (s *Store) Dispose() error {
	if s.disposed.Swap(true) || s.closer == nil {
		return nil
	}
	if err := s.closer(); err != nil {
		return errx.Wrap(err)
	}
	return nil
}

func wrapErr(err error, q interface{ String() string }) error {
	if errors.Is(err, sql.ErrNoRows) {
		return errx.Wrap(err, errx.WithCode(CodeNotFound), errx.WithType(errx.T_NotFound))
	}

	details := errx.D{"query": safeQuery(q)}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		details["pg.code"] = pgErr.Code
		details["pg.message"] = pgErr.Message
		details["pg.detail"] = pgErr.Detail
		details["pg.table"] = pgErr.TableName
		details["pg.constraint"] = pgErr.ConstraintName
		if pgErr.Code == pgConflictCode {
			return errx.Wrap(err, errx.WithCode(CodeConflict), errx.WithDetails(details))
		}
	}
	return errx.Wrap(err, errx.WithDetails(details))
}

// safeQuery renders q; some bun queries panic in String when the model is incomplete.
func safeQuery(q interface{ String() string }) (s string) {
	defer func() {
		if recover() != nil {
			s = ""
		}
	}()
	return q.String()
}
