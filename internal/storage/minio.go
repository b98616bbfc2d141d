package storage

import (
	"context"
	"io"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pkg/errors"
)

// Bucket is a thin wrapper around the minio client bound to one bucket.
type Bucket struct {
	client *minio.Client
	name   string
}

// NewBucket creates a MinIO client and ensures the bucket exists.
func NewBucket(ctx context.Context, cfg Config) (*Bucket, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("object storage endpoint missing")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("object storage bucket missing")
	}
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, errors.Wrap(err, "minio new")
	}
	b := &Bucket{client: mc, name: cfg.Bucket}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := mc.MakeBucket(ctx, b.name, minio.MakeBucketOptions{}); err != nil {
		// ignore "already exists" style errors
		exists, xerr := mc.BucketExists(ctx, b.name)
		if xerr != nil || !exists {
			return nil, errors.Wrapf(err, "ensure bucket %q", b.name)
		}
	}
	return b, nil
}

func (b *Bucket) Name() string { return b.name }

// Put uploads size bytes from r under key.
func (b *Bucket) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	_, err := b.client.PutObject(ctx, b.name, key, r, size, minio.PutObjectOptions{ContentType: contentType})
	return errors.Wrapf(err, "put %s/%s", b.name, key)
}

// PresignedGet returns a GET URL for key valid for expires.
func (b *Bucket) PresignedGet(ctx context.Context, key string, expires time.Duration) (string, error) {
	u, err := b.client.PresignedGetObject(ctx, b.name, key, expires, url.Values{})
	if err != nil {
		return "", errors.Wrapf(err, "presign %s/%s", b.name, key)
	}
	return u.String(), nil
}
