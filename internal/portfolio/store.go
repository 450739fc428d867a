// Package portfolio keeps the user's working set of media items in step with
// the snapshot last confirmed by the remote store.
package portfolio

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/princekumarofficial/portfolio-studio/internal/events"
	"github.com/princekumarofficial/portfolio-studio/internal/storage"
	"github.com/princekumarofficial/portfolio-studio/internal/types"
	"github.com/princekumarofficial/portfolio-studio/internal/types/media"
)

// LoadResult describes a successful load.
type LoadResult struct {
	Count int
	// Empty is set when the remote has nothing saved for the user yet.
	Empty bool
}

// Store owns one user's working set and persisted snapshot. The zero value is
// not usable; construct with NewStore.
type Store struct {
	userID    string
	remote    storage.Portfolio
	publisher events.Publisher
	logger    *slog.Logger

	mu          sync.RWMutex
	working     []media.MediaItem
	snapshot    []media.MediaItem
	hasSnapshot bool
}

func NewStore(userID string, remote storage.Portfolio, publisher events.Publisher, logger *slog.Logger) *Store {
	if publisher == nil {
		publisher = events.Discard{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		userID:    userID,
		remote:    remote,
		publisher: publisher,
		logger:    logger,
	}
}

func (s *Store) UserID() string { return s.userID }

func (s *Store) notify(eventType types.EventType, level types.Level, message string, data interface{}) {
	if err := s.publisher.Publish(types.NewEvent(eventType, level, message, data)); err != nil {
		s.logger.Warn("notification not delivered", "type", string(eventType), "error", err.Error())
	}
}

// AddMediaItem appends an item the remote has already created.
func (s *Store) AddMediaItem(item media.MediaItem) {
	s.mu.Lock()
	s.working = append(s.working, item)
	s.mu.Unlock()

	s.notify(types.EventItemAdded, types.LevelInfo,
		fmt.Sprintf("%s added to portfolio", item.Title),
		types.ItemEventData{ItemID: item.ID, Title: item.Title})
}

// SetMediaItems replaces the working set, e.g. after a reorder.
func (s *Store) SetMediaItems(items []media.MediaItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.working = media.CloneItems(items)
}

// DeleteItem removes item. An item the snapshot does not know about is
// dropped locally; a persisted one is deleted remotely first and removed from
// both sets only if that succeeds.
func (s *Store) DeleteItem(ctx context.Context, item media.MediaItem) error {
	data := types.ItemEventData{ItemID: item.ID, Title: item.Title}

	s.mu.Lock()
	if !containsID(s.snapshot, item.ID) {
		s.working = removeID(s.working, item.ID)
		s.mu.Unlock()

		s.notify(types.EventItemRemoved, types.LevelInfo,
			fmt.Sprintf("%s removed (unsaved item)", item.Title), data)
		return nil
	}
	s.mu.Unlock()

	if err := s.remote.Delete(ctx, s.userID, item.ID); err != nil {
		s.logger.Error("failed to delete item",
			"user_id", s.userID,
			"item_id", item.ID,
			"error", err.Error())
		s.notify(types.EventDeleteFailed, types.LevelError,
			fmt.Sprintf("Error deleting item: %s", err.Error()), data)
		return fmt.Errorf("delete item %s: %w", item.ID, err)
	}

	s.mu.Lock()
	s.working = removeID(s.working, item.ID)
	s.snapshot = removeID(s.snapshot, item.ID)
	s.mu.Unlock()

	s.notify(types.EventItemDeleted, types.LevelSuccess,
		fmt.Sprintf("%s deleted successfully", item.Title), data)
	return nil
}

// SavePortfolio persists the working set as it is at the time of the call.
// Edits made while the request is in flight are not part of the snapshot.
func (s *Store) SavePortfolio(ctx context.Context) error {
	s.mu.RLock()
	items := media.CloneItems(s.working)
	s.mu.RUnlock()

	if err := s.remote.Save(ctx, s.userID, items); err != nil {
		s.logger.Error("failed to save portfolio", "user_id", s.userID, "error", err.Error())
		s.notify(types.EventSaveFailed, types.LevelError,
			fmt.Sprintf("Error saving portfolio: %s", err.Error()), nil)
		return fmt.Errorf("save portfolio: %w", err)
	}

	s.mu.Lock()
	s.snapshot = items
	s.hasSnapshot = true
	s.mu.Unlock()

	s.logger.Info("portfolio saved", "user_id", s.userID, "count", len(items))
	s.notify(types.EventPortfolioSaved, types.LevelSuccess, "Portfolio saved successfully",
		types.PortfolioEventData{UserID: s.userID, Count: len(items)})
	return nil
}

// LoadPortfolio replaces both sets with what the remote holds.
func (s *Store) LoadPortfolio(ctx context.Context) (LoadResult, error) {
	items, err := s.remote.Load(ctx, s.userID)
	if err != nil {
		s.logger.Error("failed to load portfolio", "user_id", s.userID, "error", err.Error())
		s.notify(types.EventLoadFailed, types.LevelError,
			fmt.Sprintf("Error loading portfolio: %s", err.Error()), nil)
		return LoadResult{}, fmt.Errorf("load portfolio: %w", err)
	}

	for _, item := range items {
		if err := item.Validate(); err != nil {
			s.notify(types.EventLoadFailed, types.LevelError,
				fmt.Sprintf("Error loading portfolio: %s", err.Error()), nil)
			return LoadResult{}, fmt.Errorf("load portfolio: %w", err)
		}
	}

	s.mu.Lock()
	s.working = media.CloneItems(items)
	s.snapshot = media.CloneItems(items)
	s.hasSnapshot = true
	s.mu.Unlock()

	data := types.PortfolioEventData{UserID: s.userID, Count: len(items)}
	if len(items) == 0 {
		s.notify(types.EventPortfolioEmpty, types.LevelInfo, "No saved portfolio yet", data)
		return LoadResult{Empty: true}, nil
	}

	s.logger.Info("portfolio loaded", "user_id", s.userID, "count", len(items))
	s.notify(types.EventPortfolioLoaded, types.LevelSuccess, "Portfolio loaded successfully", data)
	return LoadResult{Count: len(items)}, nil
}

// Items returns a copy of the working set.
func (s *Store) Items() []media.MediaItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return media.CloneItems(s.working)
}

// Snapshot returns a copy of the persisted snapshot and whether one exists.
func (s *Store) Snapshot() ([]media.MediaItem, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return media.CloneItems(s.snapshot), s.hasSnapshot
}

// Item finds a working-set item by id.
func (s *Store) Item(id string) (media.MediaItem, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, item := range s.working {
		if item.ID == id {
			return item, true
		}
	}
	return media.MediaItem{}, false
}

func (s *Store) HasMediaChanged() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.changedLocked()
}

func (s *Store) CanSave() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.working) > 0 && s.changedLocked()
}

func (s *Store) CanLoad() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hasSnapshot && len(s.snapshot) > 0 && s.changedLocked()
}

func (s *Store) changedLocked() bool {
	if !s.hasSnapshot {
		return len(s.working) > 0
	}
	return !media.EqualItems(s.working, s.snapshot)
}

func containsID(items []media.MediaItem, id string) bool {
	for _, item := range items {
		if item.ID == id {
			return true
		}
	}
	return false
}

// removeID returns a new slice without the items carrying id.
func removeID(items []media.MediaItem, id string) []media.MediaItem {
	out := make([]media.MediaItem, 0, len(items))
	for _, item := range items {
		if item.ID != id {
			out = append(out, item)
		}
	}
	return out
}
