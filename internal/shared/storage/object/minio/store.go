package minio

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"docuflow/internal/shared/storage/object"
	"docuflow/internal/shared/telemetry"
)

// Options configures the MinIO backend.
type Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// Store implements ObjectStore on an S3-compatible MinIO server.
type Store struct {
	mc     *minio.Client
	bucket string
}

// New creates the client and makes sure the bucket exists.
func New(ctx context.Context, opts Options) (*Store, error) {
	if strings.TrimSpace(opts.Endpoint) == "" {
		return nil, fmt.Errorf("minio endpoint is required")
	}
	if opts.AccessKey == "" || opts.SecretKey == "" {
		return nil, fmt.Errorf("minio access key and secret key are required")
	}

	mc, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	bucket := opts.Bucket
	if bucket == "" {
		bucket = "docuflow"
	}
	s := &Store{mc: mc, bucket: bucket}
	if err := s.ensureBucket(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureBucket(ctx context.Context) error {
	exists, err := s.mc.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket: %w", err)
	}
	if exists {
		return nil
	}
	if err := s.mc.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("create bucket: %w", err)
	}
	telemetry.Info("minio.bucket_created", map[string]any{"bucket": s.bucket})
	return nil
}

// Save streams r to a generated key under namespace.
func (s *Store) Save(ctx context.Context, namespace, fileName string, r io.Reader) (object.Object, error) {
	up, err := object.PrepareUpload(namespace, fileName, r)
	if err != nil {
		return object.Object{}, err
	}
	if err := s.put(ctx, up.Key, up.ContentType, up.Body); err != nil {
		return object.Object{}, err
	}
	return up.Object(), nil
}

// SaveWithKey stores r at key.
func (s *Store) SaveWithKey(ctx context.Context, key, contentType string, r io.Reader) (int64, error) {
	body := object.NewDigestReader(r)
	if err := s.put(ctx, key, contentType, body); err != nil {
		return 0, err
	}
	return body.N(), nil
}

// Open returns a reader for key. The caller closes it.
func (s *Store) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := s.mc.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	// GetObject is lazy; Stat surfaces missing keys.
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, object.ErrNotFound
		}
		return nil, fmt.Errorf("stat %s: %w", key, err)
	}
	return obj, nil
}

// Delete removes key.
func (s *Store) Delete(ctx context.Context, key string) error {
	return s.mc.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
}

func (s *Store) put(ctx context.Context, key, contentType string, body io.Reader) error {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	// Size -1 streams with multipart upload.
	_, err := s.mc.PutObject(ctx, s.bucket, key, body, -1, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

var _ object.ObjectStore = (*Store)(nil)
