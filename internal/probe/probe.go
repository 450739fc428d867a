// Package probe derives display and technical metadata from a local file.
//
// Base fields are computed synchronously. Dimensions and duration need a
// decoder or ffprobe and arrive later on a channel, tagged with the file they
// were computed for so callers can drop results for a file that is no longer
// selected.
package probe

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"os"
	"time"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/princekumarofficial/portfolio-studio/internal/cache"
	"github.com/princekumarofficial/portfolio-studio/internal/files"
	"github.com/princekumarofficial/portfolio-studio/internal/types/media"
)

// Metadata is what the intake form shows for the selected file.
type Metadata struct {
	Size         string                  `json:"size,omitempty"`
	Type         string                  `json:"type,omitempty"`
	LastModified string                  `json:"last_modified,omitempty"`
	IsVideo      bool                    `json:"is_video"`
	Dimensions   string                  `json:"dimensions,omitempty"`
	Duration     string                  `json:"duration,omitempty"`
	Technical    media.TechnicalMetadata `json:"technical,omitempty"`
}

func (m Metadata) Empty() bool {
	return m == Metadata{}
}

// Update carries derived fields for File.
type Update struct {
	File       *files.File
	Dimensions string
	Duration   string
	Technical  media.TechnicalMetadata
	Err        error
}

// Merge returns a copy of m with the derived fields of u filled in.
func (m Metadata) Merge(u Update) Metadata {
	if u.Dimensions != "" {
		m.Dimensions = u.Dimensions
	}
	if u.Duration != "" {
		m.Duration = u.Duration
	}
	if u.Technical.Kind() != media.KindNone {
		m.Technical = u.Technical
	}
	return m
}

// Base computes the fields available without reading the file.
func Base(f *files.File) Metadata {
	if f == nil {
		return Metadata{}
	}
	return Metadata{
		Size:         fmt.Sprintf("%.2f MB", float64(f.Size)/1024/1024),
		Type:         f.Type,
		LastModified: f.ModTime.Local().Format("1/2/2006"),
		IsVideo:      f.IsVideo(),
	}
}

// Cache stores derived results between selections of an unchanged file.
type Cache interface {
	Get(ctx context.Context, fingerprint string, dst interface{}) (bool, error)
	Set(ctx context.Context, fingerprint string, v interface{}) error
}

type Prober struct {
	ffprobe string
	timeout time.Duration
	cache   Cache
	logger  *slog.Logger
}

type Option func(*Prober)

func WithCache(c Cache) Option {
	return func(p *Prober) { p.cache = c }
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Prober) {
		if logger != nil {
			p.logger = logger
		}
	}
}

func NewProber(ffprobeBinary string, timeout time.Duration, opts ...Option) *Prober {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	p := &Prober{
		ffprobe: ffprobeBinary,
		timeout: timeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Probe returns base metadata at once and a channel that yields exactly one
// Update before closing.
func (p *Prober) Probe(ctx context.Context, f *files.File) (Metadata, <-chan Update) {
	ch := make(chan Update, 1)
	if f == nil {
		close(ch)
		return Metadata{}, ch
	}

	go func() {
		defer close(ch)
		ch <- p.derive(ctx, f)
	}()

	return Base(f), ch
}

// Derive runs the slow part of a probe synchronously.
func (p *Prober) Derive(ctx context.Context, f *files.File) Update {
	return p.derive(ctx, f)
}

type cachedUpdate struct {
	Dimensions string               `json:"dimensions,omitempty"`
	Duration   string               `json:"duration,omitempty"`
	Image      *media.ImageMetadata `json:"image,omitempty"`
	Video      *media.VideoMetadata `json:"video,omitempty"`
}

func (p *Prober) derive(ctx context.Context, f *files.File) Update {
	if !f.IsImage() && !f.IsVideo() {
		return Update{File: f}
	}

	fingerprint := cache.Fingerprint(f.Path, f.Size, f.ModTime)
	if u, ok := p.fromCache(ctx, f, fingerprint); ok {
		return u
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	var u Update
	if f.IsImage() {
		u = p.deriveImage(f)
	} else {
		u = p.deriveVideo(ctx, f)
	}

	if u.Err == nil {
		p.toCache(ctx, fingerprint, u)
	}
	return u
}

func (p *Prober) deriveImage(f *files.File) Update {
	in, err := os.Open(f.Path)
	if err != nil {
		return Update{File: f, Err: fmt.Errorf("open image: %w", err)}
	}
	defer in.Close()

	cfg, format, err := image.DecodeConfig(in)
	if err != nil {
		return Update{File: f, Err: fmt.Errorf("decode image: %w", err)}
	}

	return Update{
		File:       f,
		Dimensions: fmt.Sprintf("%d x %d", cfg.Width, cfg.Height),
		Technical:  imageTechnical(cfg.Width, cfg.Height, format, f.ModTime),
	}
}

func (p *Prober) deriveVideo(ctx context.Context, f *files.File) Update {
	result, err := Inspect(ctx, p.ffprobe, f.Path)
	if err != nil {
		return Update{File: f, Err: err}
	}

	u := Update{
		File:     f,
		Duration: RoundedDuration(result.DurationSeconds()),
	}
	if tm, ok := videoTechnical(result, f.ModTime); ok {
		u.Technical = tm
	}
	return u
}

func (p *Prober) fromCache(ctx context.Context, f *files.File, fingerprint string) (Update, bool) {
	if p.cache == nil {
		return Update{}, false
	}

	var cached cachedUpdate
	hit, err := p.cache.Get(ctx, fingerprint, &cached)
	if err != nil {
		p.logger.Warn("probe cache lookup failed", "file", f.Name, "error", err.Error())
		return Update{}, false
	}
	if !hit {
		return Update{}, false
	}

	u := Update{File: f, Dimensions: cached.Dimensions, Duration: cached.Duration}
	switch {
	case cached.Image != nil && f.IsImage():
		u.Technical = media.ImageTechnical(*cached.Image)
	case cached.Video != nil && f.IsVideo():
		u.Technical = media.VideoTechnical(*cached.Video)
	}
	return u, true
}

func (p *Prober) toCache(ctx context.Context, fingerprint string, u Update) {
	if p.cache == nil {
		return
	}

	entry := cachedUpdate{Dimensions: u.Dimensions, Duration: u.Duration}
	if img, ok := u.Technical.Image(); ok {
		entry.Image = &img
	}
	if vid, ok := u.Technical.Video(); ok {
		entry.Video = &vid
	}

	if err := p.cache.Set(ctx, fingerprint, entry); err != nil {
		p.logger.Warn("probe cache store failed", "error", err.Error())
	}
}
