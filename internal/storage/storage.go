package storage

import (
	"context"

	"github.com/princekumarofficial/portfolio-studio/internal/files"
	"github.com/princekumarofficial/portfolio-studio/internal/types/media"
)

// Portfolio is the remote system of record for a user's media items.
type Portfolio interface {
	// Create uploads f with its form fields and returns the item the server made.
	Create(ctx context.Context, f *files.File, req media.UploadRequest) (media.MediaItem, error)
	// Save replaces the user's persisted portfolio with items.
	Save(ctx context.Context, userID string, items []media.MediaItem) error
	// Load returns the persisted portfolio; an absent one is an empty slice.
	Load(ctx context.Context, userID string) ([]media.MediaItem, error)
	Delete(ctx context.Context, userID, itemID string) error
}
