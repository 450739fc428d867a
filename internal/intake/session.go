// Package intake drives one file from selection to upload: validation,
// preview, metadata probing and submission.
package intake

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/princekumarofficial/portfolio-studio/internal/events"
	"github.com/princekumarofficial/portfolio-studio/internal/files"
	"github.com/princekumarofficial/portfolio-studio/internal/preview"
	"github.com/princekumarofficial/portfolio-studio/internal/probe"
	"github.com/princekumarofficial/portfolio-studio/internal/types"
	"github.com/princekumarofficial/portfolio-studio/internal/types/media"
	"github.com/princekumarofficial/portfolio-studio/internal/validation"
)

var (
	ErrNoFile           = errors.New("no file selected")
	ErrUploadInProgress = errors.New("upload already in progress")
	ErrClosed           = errors.New("intake session closed")
	ErrSuperseded       = errors.New("selection replaced before its preview was ready")
	ErrNoCreator        = errors.New("no upload destination configured")
)

type State int

const (
	StateEmpty State = iota
	StateValidating
	StateRejected
	StatePreviewing
)

func (s State) String() string {
	switch s {
	case StateValidating:
		return "validating"
	case StateRejected:
		return "rejected"
	case StatePreviewing:
		return "previewing"
	default:
		return "empty"
	}
}

// Creator makes the remote item for an uploaded file.
type Creator interface {
	Create(ctx context.Context, f *files.File, req media.UploadRequest) (media.MediaItem, error)
}

// Sink receives items after a successful upload.
type Sink interface {
	AddMediaItem(item media.MediaItem)
}

// Previewer holds the preview for the current file. A SetFile or Clear must
// supersede any SetFile still acquiring, releasing the late handle.
type Previewer interface {
	SetFile(ctx context.Context, f *files.File) (preview.State, error)
	Clear(ctx context.Context)
}

type Prober interface {
	Probe(ctx context.Context, f *files.File) (probe.Metadata, <-chan probe.Update)
}

// Fields are the user-entered parts of an upload.
type Fields struct {
	Title       string
	Description string
	Category    string
}

func (f Fields) trimmed() Fields {
	return Fields{
		Title:       strings.TrimSpace(f.Title),
		Description: strings.TrimSpace(f.Description),
		Category:    strings.TrimSpace(f.Category),
	}
}

func (f Fields) request() media.UploadRequest {
	t := f.trimmed()
	return media.UploadRequest{Title: t.Title, Description: t.Description, Category: t.Category}
}

func (f Fields) complete() bool {
	t := f.trimmed()
	return t.Title != "" && t.Description != "" && t.Category != ""
}

type Options struct {
	Policy    validation.Policy
	Preview   Previewer
	Prober    Prober
	Creator   Creator
	Sink      Sink
	Publisher events.Publisher
	Logger    *slog.Logger
	// OnMetadata, if set, is called after a probe result is merged.
	OnMetadata func(View)
}

// View is a copy of the session state.
type View struct {
	State     State
	Reason    string
	File      *files.File
	Preview   preview.State
	Metadata  probe.Metadata
	Fields    Fields
	Filled    bool
	Uploading bool
	Err       error
}

// Session is one intake form. It is safe for concurrent use.
type Session struct {
	opts   Options
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	probes sync.WaitGroup

	mu         sync.Mutex
	state      State
	reason     string
	file       *files.File
	generation uint64
	preview    preview.State
	metadata   probe.Metadata
	fields     Fields
	uploading  bool
	lastErr    error
	closed     bool
}

func NewSession(opts Options) *Session {
	if opts.Policy.MaxSize == 0 {
		opts.Policy = validation.DefaultPolicy()
	}
	if opts.Publisher == nil {
		opts.Publisher = events.Discard{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		opts:   opts,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

func (s *Session) notify(eventType types.EventType, level types.Level, message string) {
	if err := s.opts.Publisher.Publish(types.NewEvent(eventType, level, message, nil)); err != nil {
		s.logger.Warn("notification not delivered", "type", string(eventType), "error", err.Error())
	}
}

// SelectFile starts a new selection cycle for f. The form fields are cleared
// and any previous preview is released before f is validated. A rejected file
// returns its *validation.ValidationError. A nil f returns to Empty.
//
// The preview is acquired without holding the session lock. If the selection
// changes meanwhile, SelectFile returns ErrSuperseded and leaves the newer
// state alone.
func (s *Session) SelectFile(ctx context.Context, f *files.File) (View, error) {
	s.mu.Lock()
	if s.closed {
		defer s.mu.Unlock()
		return s.viewLocked(), ErrClosed
	}

	s.generation++
	generation := s.generation
	s.fields = Fields{}
	s.metadata = probe.Metadata{}
	s.preview = preview.State{}
	s.reason = ""
	s.lastErr = nil
	s.releasePreviewLocked(ctx)

	s.file = f
	if f == nil {
		s.state = StateEmpty
		defer s.mu.Unlock()
		return s.viewLocked(), nil
	}

	s.state = StateValidating
	outcome := s.opts.Policy.Validate(f)
	if !outcome.OK() {
		s.state = StateRejected
		s.reason = outcome.Reason
		s.logger.Info("file rejected", "file", f.Name, "code", outcome.Code)
		defer s.mu.Unlock()
		return s.viewLocked(), outcome.Err()
	}
	s.mu.Unlock()

	var ps preview.State
	if s.opts.Preview != nil {
		var err error
		ps, err = s.opts.Preview.SetFile(ctx, f)
		if err != nil && !errors.Is(err, preview.ErrSuperseded) {
			s.logger.Warn("preview unavailable", "file", f.Name, "error", err.Error())
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.generation != generation {
		// A newer selection that is still validating or previewing owns the
		// preview already. Otherwise nothing will release the late one.
		if s.closed || (s.state != StateValidating && s.state != StatePreviewing) {
			s.releasePreviewLocked(ctx)
		}
		return s.viewLocked(), ErrSuperseded
	}

	s.preview = ps
	s.state = StatePreviewing
	if s.opts.Prober != nil {
		base, updates := s.opts.Prober.Probe(s.ctx, f)
		s.metadata = base
		s.probes.Add(1)
		go s.awaitProbe(generation, updates)
	}

	return s.viewLocked(), nil
}

// awaitProbe merges the update only if it was computed for the file that is
// still selected.
func (s *Session) awaitProbe(generation uint64, updates <-chan probe.Update) {
	defer s.probes.Done()

	for u := range updates {
		s.mu.Lock()
		if s.closed || s.generation != generation || s.file != u.File || s.state != StatePreviewing {
			s.mu.Unlock()
			continue
		}
		if u.Err != nil {
			s.logger.Warn("metadata probe failed", "file", u.File.Name, "error", u.Err.Error())
		}
		s.metadata = s.metadata.Merge(u)
		view := s.viewLocked()
		s.mu.Unlock()

		if s.opts.OnMetadata != nil {
			s.opts.OnMetadata(view)
		}
	}
}

// Wait blocks until every started probe has been delivered or dropped.
func (s *Session) Wait() {
	s.probes.Wait()
}

// SetFields stores the form fields, trimmed.
func (s *Session) SetFields(f Fields) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fields = f.trimmed()
}

// UpdateFields edits the current fields in place.
func (s *Session) UpdateFields(update func(*Fields)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := s.fields
	update(&f)
	s.fields = f.trimmed()
}

// Filled reports whether the form may be submitted.
func (s *Session) Filled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filledLocked()
}

func (s *Session) filledLocked() bool {
	return s.file != nil && s.state == StatePreviewing && s.fields.complete()
}

// Submit re-validates the selection and uploads it. On success the item is
// handed to the sink and, if the selection did not change meanwhile, the
// session resets to Empty. On failure the selection stays for a retry.
func (s *Session) Submit(ctx context.Context) (media.MediaItem, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return media.MediaItem{}, ErrClosed
	}
	if s.file == nil {
		s.mu.Unlock()
		s.notify(types.EventUploadFailed, types.LevelError, "No file selected.")
		return media.MediaItem{}, ErrNoFile
	}
	if s.uploading {
		s.mu.Unlock()
		return media.MediaItem{}, ErrUploadInProgress
	}

	if err := s.opts.Policy.Validate(s.file).Err(); err != nil {
		s.lastErr = err
		s.mu.Unlock()
		return media.MediaItem{}, err
	}
	req := s.fields.request()
	if err := validation.Fields(req); err != nil {
		s.lastErr = err
		s.mu.Unlock()
		return media.MediaItem{}, err
	}
	if s.state != StatePreviewing {
		s.mu.Unlock()
		return media.MediaItem{}, fmt.Errorf("cannot submit in state %s", s.state)
	}
	if s.opts.Creator == nil {
		s.lastErr = ErrNoCreator
		s.mu.Unlock()
		s.notify(types.EventUploadFailed, types.LevelError, fmt.Sprintf("Error Uploading File: %s", ErrNoCreator.Error()))
		return media.MediaItem{}, ErrNoCreator
	}

	f := s.file
	generation := s.generation
	s.uploading = true
	s.lastErr = nil
	s.mu.Unlock()

	item, err := s.opts.Creator.Create(ctx, f, req)

	s.mu.Lock()
	s.uploading = false
	if err != nil {
		s.lastErr = err
		s.mu.Unlock()

		s.logger.Error("upload failed", "file", f.Name, "error", err.Error())
		s.notify(types.EventUploadFailed, types.LevelError, fmt.Sprintf("Error Uploading File: %s", err.Error()))
		return media.MediaItem{}, fmt.Errorf("upload %s: %w", f.Name, err)
	}

	if s.generation == generation && !s.closed {
		s.resetLocked(ctx)
	}
	s.mu.Unlock()

	if s.opts.Sink != nil {
		s.opts.Sink.AddMediaItem(item)
	}
	s.logger.Info("file uploaded", "file", f.Name, "item_id", item.ID)
	s.notify(types.EventUploadCompleted, types.LevelSuccess, "File uploaded successfully!")
	return item, nil
}

// Clear drops the selection and releases the preview.
func (s *Session) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.generation++
	s.resetLocked(ctx)
}

// Close releases everything the session holds and cancels in-flight probes.
// Later calls are no-ops.
func (s *Session) Close(ctx context.Context) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.generation++
	s.resetLocked(ctx)
	s.closed = true
	s.cancel()
	s.mu.Unlock()

	s.probes.Wait()
}

func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

func (s *Session) resetLocked(ctx context.Context) {
	s.releasePreviewLocked(ctx)
	s.state = StateEmpty
	s.reason = ""
	s.file = nil
	s.preview = preview.State{}
	s.metadata = probe.Metadata{}
	s.fields = Fields{}
	s.lastErr = nil
}

func (s *Session) releasePreviewLocked(ctx context.Context) {
	if s.opts.Preview != nil {
		s.opts.Preview.Clear(ctx)
	}
}

func (s *Session) viewLocked() View {
	return View{
		State:     s.state,
		Reason:    s.reason,
		File:      s.file,
		Preview:   s.preview,
		Metadata:  s.metadata,
		Fields:    s.fields,
		Filled:    s.filledLocked(),
		Uploading: s.uploading,
		Err:       s.lastErr,
	}
}
