package preview

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"time"

	"github.com/princekumarofficial/portfolio-studio/internal/files"
)

// ObjectStager is the slice of the MinIO staging service previews need.
type ObjectStager interface {
	GenerateObjectKey(ext string) string
	PutObject(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	GeneratePresignedDownloadURL(ctx context.Context, key string, expiry time.Duration) (*url.URL, error)
	DeleteObject(ctx context.Context, key string) error
	DeleteStale(ctx context.Context, cutoff time.Time) (int, error)
}

// MinIOProvider stages previews as bucket objects reachable through presigned URLs
type MinIOProvider struct {
	stager ObjectStager
	ttl    time.Duration
}

func NewMinIOProvider(stager ObjectStager, ttl time.Duration) *MinIOProvider {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &MinIOProvider{stager: stager, ttl: ttl}
}

func (p *MinIOProvider) Acquire(ctx context.Context, f *files.File) (Handle, error) {
	body, err := os.Open(f.Path)
	if err != nil {
		return Handle{}, fmt.Errorf("open %s: %w", f.Path, err)
	}
	defer body.Close()

	key := p.stager.GenerateObjectKey(f.Ext())
	if err := p.stager.PutObject(ctx, key, body, f.Size, f.Type); err != nil {
		return Handle{}, err
	}

	u, err := p.stager.GeneratePresignedDownloadURL(ctx, key, p.ttl)
	if err != nil {
		if delErr := p.stager.DeleteObject(ctx, key); delErr != nil {
			return Handle{}, fmt.Errorf("%w (cleanup: %v)", err, delErr)
		}
		return Handle{}, err
	}

	return Handle{ID: key, Key: key, URL: u.String(), MIMEType: f.Type}, nil
}

func (p *MinIOProvider) Release(ctx context.Context, h Handle) error {
	if h.Key == "" {
		return nil
	}
	return p.stager.DeleteObject(ctx, h.Key)
}

func (p *MinIOProvider) Sweep(ctx context.Context, olderThan time.Duration) (int, error) {
	return p.stager.DeleteStale(ctx, time.Now().Add(-olderThan))
}
