package media

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/princekumarofficial/portfolio-studio/internal/config"
)

// PreviewPrefix is the key prefix under which preview objects are staged.
const PreviewPrefix = "previews/"

// Service stages short-lived preview objects in a MinIO bucket
type Service struct {
	client     *minio.Client
	bucketName string
}

// NewService creates a new staging service and ensures its bucket exists
func NewService(ctx context.Context, cfg config.MinIO) (*Service, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	service := &Service{
		client:     client,
		bucketName: cfg.BucketName,
	}

	if err := service.ensureBucket(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure bucket exists: %w", err)
	}

	return service, nil
}

// ensureBucket creates the bucket if it doesn't exist
func (s *Service) ensureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucketName)
	if err != nil {
		return fmt.Errorf("failed to check if bucket exists: %w", err)
	}

	if !exists {
		err = s.client.MakeBucket(ctx, s.bucketName, minio.MakeBucketOptions{})
		if err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return nil
}

// GenerateObjectKey creates a unique preview key keeping the file extension
func (s *Service) GenerateObjectKey(ext string) string {
	return PreviewPrefix + uuid.New().String() + ext
}

// PutObject uploads body under key
func (s *Service) PutObject(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucketName, key, body, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return nil
}

// GeneratePresignedDownloadURL creates a presigned URL for reading key
func (s *Service) GeneratePresignedDownloadURL(ctx context.Context, key string, expiry time.Duration) (*url.URL, error) {
	u, err := s.client.PresignedGetObject(ctx, s.bucketName, key, expiry, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to generate presigned URL: %w", err)
	}
	return u, nil
}

// DeleteObject removes an object from storage
func (s *Service) DeleteObject(ctx context.Context, key string) error {
	return s.client.RemoveObject(ctx, s.bucketName, key, minio.RemoveObjectOptions{})
}

// DeleteStale removes staged previews last modified before cutoff
func (s *Service) DeleteStale(ctx context.Context, cutoff time.Time) (int, error) {
	list := func(ctx context.Context) <-chan minio.ObjectInfo {
		return s.client.ListObjects(ctx, s.bucketName, minio.ListObjectsOptions{
			Prefix:    PreviewPrefix,
			Recursive: true,
		})
	}
	return deleteStale(ctx, list, s.DeleteObject, cutoff)
}

// deleteStale cancels the listing on every return path; the lister goroutine
// only exits once its channel is drained or its context is done.
func deleteStale(
	ctx context.Context,
	list func(context.Context) <-chan minio.ObjectInfo,
	remove func(context.Context, string) error,
	cutoff time.Time,
) (int, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	removed := 0
	for object := range list(ctx) {
		if object.Err != nil {
			return removed, object.Err
		}
		if !object.LastModified.Before(cutoff) {
			continue
		}
		if err := remove(ctx, object.Key); err != nil {
			return removed, fmt.Errorf("failed to delete %s: %w", object.Key, err)
		}
		removed++
	}

	return removed, nil
}
