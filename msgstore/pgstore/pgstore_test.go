package pgstore_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/rise-and-shine/statebus/msgstore"
	"github.com/rise-and-shine/statebus/msgstore/pgstore"
	"github.com/rise-and-shine/statebus/observability/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var _ msgstore.Store = (*pgstore.Store)(nil)

func TestConfigDSN(t *testing.T) {
	cfg := pgstore.Config{
		Host:           "localhost",
		Port:           5432,
		User:           "bus",
		Password:       "secret",
		Database:       "statebus",
		SSLMode:        "disable",
		SearchPath:     "public",
		ConnectTimeout: 5 * time.Second,
	}
	assert.Equal(t,
		"host=localhost port=5432 user=bus password=secret dbname=statebus sslmode=disable search_path=public connect_timeout=5",
		cfg.DSN(),
	)
}

func TestDebugHook(t *testing.T) {
	slow := time.Now().Add(-time.Second)

	tests := []struct {
		name      string
		opts      []pgstore.DebugHookOption
		event     *bun.QueryEvent
		wantLevel zapcore.Level
		wantLog   bool
	}{
		{
			name:      "verbose success",
			event:     &bun.QueryEvent{Query: `INSERT INTO "statebus_messages"`, StartTime: time.Now()},
			wantLevel: zapcore.DebugLevel,
			wantLog:   true,
		},
		{
			name:    "quiet success",
			opts:    []pgstore.DebugHookOption{pgstore.WithVerbose(false)},
			event:   &bun.QueryEvent{Query: `SELECT 1`, StartTime: time.Now()},
			wantLog: false,
		},
		{
			name:      "failure logged when quiet",
			opts:      []pgstore.DebugHookOption{pgstore.WithVerbose(false)},
			event:     &bun.QueryEvent{Query: `INSERT INTO x`, StartTime: time.Now(), Err: errors.New("broken")},
			wantLevel: zapcore.ErrorLevel,
			wantLog:   true,
		},
		{
			name:      "no rows",
			opts:      []pgstore.DebugHookOption{pgstore.WithVerbose(false)},
			event:     &bun.QueryEvent{Query: `SELECT 1`, StartTime: time.Now(), Err: sql.ErrNoRows},
			wantLevel: zapcore.WarnLevel,
			wantLog:   true,
		},
		{
			name:      "slow",
			opts:      []pgstore.DebugHookOption{pgstore.WithVerbose(false)},
			event:     &bun.QueryEvent{Query: `SELECT 1`, StartTime: slow},
			wantLevel: zapcore.WarnLevel,
			wantLog:   true,
		},
		{
			name:    "disabled",
			opts:    []pgstore.DebugHookOption{pgstore.WithEnabled(false)},
			event:   &bun.QueryEvent{Query: `SELECT 1`, StartTime: time.Now(), Err: errors.New("broken")},
			wantLog: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zapcore.DebugLevel)
			hook := pgstore.NewDebugHook(logger.FromZap(zap.New(core)), tt.opts...)

			ctx := hook.BeforeQuery(context.Background(), tt.event)
			hook.AfterQuery(ctx, tt.event)

			if !tt.wantLog {
				assert.Zero(t, logs.Len())
				return
			}
			require.Equal(t, 1, logs.Len())
			entry := logs.All()[0]
			assert.Equal(t, tt.wantLevel, entry.Level)
			assert.NotContains(t, entry.ContextMap()["query"], `"`)
		})
	}
}
