// Package miniostore is a message store that writes every dispatched message as one
// JSON object in a MinIO bucket.
//
// Objects are laid out as <prefix>/<type>/<yyyy>/<mm>/<dd>/<id>.json.
package miniostore

import (
	"bytes"
	"context"
	"path"
	"sync/atomic"

	"github.com/code19m/errx"
	"github.com/go-playground/validator/v10"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rise-and-shine/statebus/msgstore"
)

const contentType = "application/json"

// Store puts records into a bucket.
type Store struct {
	client   *minio.Client
	bucket   string
	prefix   string
	disposed atomic.Bool
}

// New writes into bucket under prefix using client.
func New(client *minio.Client, bucket, prefix string) *Store {
	return &Store{client: client, bucket: bucket, prefix: prefix}
}

// Open validates cfg, connects and creates the bucket when it does not exist.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		cfg.Bucket = "statebus-messages"
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, errx.Wrap(err, errx.WithType(errx.T_Validation))
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, errx.Wrap(err, errx.WithDetails(errx.D{"endpoint": cfg.Endpoint}))
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, errx.Wrap(err, errx.WithDetails(errx.D{"bucket": cfg.Bucket}))
	}
	if !exists {
		if err = client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, errx.Wrap(err, errx.WithDetails(errx.D{"bucket": cfg.Bucket}))
		}
	}

	return New(client, cfg.Bucket, cfg.Prefix), nil
}

// ObjectKey returns where rec is stored under prefix.
func ObjectKey(prefix string, rec msgstore.Record) string {
	return path.Join(prefix, rec.Type, rec.StoredAt.Format("2006/01/02"), rec.ID+".json")
}

func (s *Store) Append(ctx context.Context, msg any) (msgstore.Receipt, error) {
	if s.disposed.Load() {
		return msgstore.Receipt{}, msgstore.ErrDisposed("minio")
	}

	rec, err := msgstore.Encode(ctx, msg)
	if err != nil {
		return msgstore.Receipt{}, err
	}
	body, err := rec.Marshal()
	if err != nil {
		return msgstore.Receipt{}, err
	}

	key := ObjectKey(s.prefix, rec)
	_, err = s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(body), int64(len(body)), minio.PutObjectOptions{
		ContentType: contentType,
		UserMetadata: map[string]string{
			"statebus-type":        rec.Type,
			"statebus-dispatch-id": rec.DispatchID,
		},
	})
	if err != nil {
		return msgstore.Receipt{}, errx.Wrap(err, errx.WithDetails(errx.D{
			"bucket": s.bucket,
			"key":    key,
		}))
	}
	return rec.Receipt(), nil
}

// Dispose stops accepting messages. The minio client holds no connection to close.
func (s *Store) Dispose() error {
	s.disposed.Store(true)
	return nil
}
