// Package preview owns the renderable handle shown for the selected file.
//
// A Manager holds at most one live Handle. Replacing or clearing the file
// releases the previous handle before anything else happens, and every handle
// is released exactly once.
package preview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/princekumarofficial/portfolio-studio/internal/files"
)

// ErrSuperseded is returned by SetFile when a later SetFile or Clear started
// while the handle was being acquired. The late handle has been released.
var ErrSuperseded = errors.New("preview superseded")

// Handle is a live preview resource
type Handle struct {
	ID       string
	URL      string
	MIMEType string
	// Key locates the staged resource inside the provider.
	Key string
}

// State is what a viewer needs to render the preview. The zero value means
// nothing is shown.
type State struct {
	URL      string
	MIMEType string
}

func (s State) Empty() bool {
	return s.URL == "" && s.MIMEType == ""
}

// Provider creates and frees preview resources
type Provider interface {
	Acquire(ctx context.Context, f *files.File) (Handle, error)
	Release(ctx context.Context, h Handle) error
}

// Sweeper removes resources left behind by sessions that never released them
type Sweeper interface {
	Sweep(ctx context.Context, olderThan time.Duration) (int, error)
}

type Manager struct {
	mu       sync.Mutex
	provider Provider
	current  *Handle
	// generation advances on every SetFile and Clear so a slow Acquire can
	// tell that it lost.
	generation uint64
	logger     *slog.Logger
}

func NewManager(provider Provider, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{provider: provider, logger: logger}
}

// SetFile releases the current handle, then acquires one for f. A nil f just
// clears. If acquisition fails the manager is left empty. The lock is not held
// while the provider acquires, so Clear and State never wait on it.
func (m *Manager) SetFile(ctx context.Context, f *files.File) (State, error) {
	m.mu.Lock()
	m.releaseLocked(ctx)
	m.generation++
	generation := m.generation
	m.mu.Unlock()

	if f == nil {
		return State{}, nil
	}

	h, err := m.provider.Acquire(ctx, f)
	if err != nil {
		return State{}, fmt.Errorf("acquire preview for %s: %w", f.Name, err)
	}
	if h.MIMEType == "" {
		h.MIMEType = f.Type
	}

	m.mu.Lock()
	if m.generation != generation {
		m.mu.Unlock()
		m.release(ctx, h)
		return State{}, ErrSuperseded
	}
	m.current = &h
	m.mu.Unlock()

	return State{URL: h.URL, MIMEType: h.MIMEType}, nil
}

// Clear releases the current handle and abandons any acquisition in flight.
// Safe to call any number of times.
func (m *Manager) Clear(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.generation++
	m.releaseLocked(ctx)
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil {
		return State{}
	}
	return State{URL: m.current.URL, MIMEType: m.current.MIMEType}
}

// Live reports whether a handle is currently held.
func (m *Manager) Live() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.current != nil
}

// releaseLocked forgets the handle before releasing it so a failed release is
// never attempted twice.
func (m *Manager) releaseLocked(ctx context.Context) {
	if m.current == nil {
		return
	}
	h := *m.current
	m.current = nil
	m.release(ctx, h)
}

func (m *Manager) release(ctx context.Context, h Handle) {
	if err := m.provider.Release(ctx, h); err != nil {
		m.logger.Warn("failed to release preview",
			"preview_id", h.ID,
			"error", err.Error())
	}
}
