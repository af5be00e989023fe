package miniostore_test

import (
	"context"
	"testing"
	"time"

	"github.com/code19m/errx"
	"github.com/minio/minio-go/v7"
	"github.com/rise-and-shine/statebus/msgstore"
	"github.com/rise-and-shine/statebus/msgstore/miniostore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ msgstore.Store = (*miniostore.Store)(nil)

func TestObjectKey(t *testing.T) {
	rec := msgstore.Record{
		ID:       "0b5c6f1e-2d7a-4c55-9d1e-3f1a2b3c4d5e",
		Type:     "counter.CountIncremented",
		StoredAt: time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC),
	}

	tests := []struct {
		prefix string
		want   string
	}{
		{"messages", "messages/counter.CountIncremented/2026/03/09/0b5c6f1e-2d7a-4c55-9d1e-3f1a2b3c4d5e.json"},
		{"", "counter.CountIncremented/2026/03/09/0b5c6f1e-2d7a-4c55-9d1e-3f1a2b3c4d5e.json"},
		{"audit/bus/", "audit/bus/counter.CountIncremented/2026/03/09/0b5c6f1e-2d7a-4c55-9d1e-3f1a2b3c4d5e.json"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, miniostore.ObjectKey(tt.prefix, rec))
	}
}

func TestOpenValidatesConfig(t *testing.T) {
	_, err := miniostore.Open(context.Background(), miniostore.Config{Endpoint: "localhost:9000"})
	require.Error(t, err)
	assert.Equal(t, errx.T_Validation, errx.GetType(err))
}

func TestAppendAfterDispose(t *testing.T) {
	client, err := minio.New("localhost:9000", &minio.Options{})
	require.NoError(t, err)

	store := miniostore.New(client, "bucket", "messages")
	require.NoError(t, store.Dispose())

	_, err = store.Append(context.Background(), struct{}{})
	assert.True(t, errx.IsCodeIn(err, msgstore.CodeStoreDisposed))
}
