package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioBlobStore keeps pictures in a MinIO bucket.
type MinioBlobStore struct {
	mc     *minio.Client
	bucket string
	urls   objectURLs
}

// NewMinioBlobStore connects to MinIO and makes sure the bucket exists.
func NewMinioBlobStore(ctx context.Context, cfg BlobConfig) (*MinioBlobStore, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("minio endpoint is required")
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("minio access key and secret key are required")
	}

	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	base := cfg.PublicURL
	if base == "" {
		base = fmt.Sprintf("%s://%s/%s", cfg.scheme(), cfg.Endpoint, cfg.Bucket)
	}

	s := &MinioBlobStore{mc: mc, bucket: cfg.Bucket, urls: newObjectURLs(base)}
	if err := s.ensureBucket(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *MinioBlobStore) ensureBucket(ctx context.Context) error {
	exists, err := s.mc.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := s.mc.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("create bucket: %w", err)
		}
		slog.Info("created blob bucket", "bucket", s.bucket)
	}
	return nil
}

func (s *MinioBlobStore) Upload(ctx context.Context, p Picture) (string, error) {
	key := pictureKey(p.Filename)
	_, err := s.mc.PutObject(ctx, s.bucket, key, p.Body, p.Size, minio.PutObjectOptions{
		ContentType: p.ContentType,
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	return s.urls.url(key), nil
}

func (s *MinioBlobStore) Delete(ctx context.Context, url string) error {
	key, ok := s.urls.key(url)
	if !ok {
		return nil
	}
	return s.mc.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
}
