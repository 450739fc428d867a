package probe

import (
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/princekumarofficial/portfolio-studio/internal/files"
	"github.com/princekumarofficial/portfolio-studio/internal/types/media"
)

func writePNG(t *testing.T, dir string, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})

	path := filepath.Join(dir, "photo.png")
	out, err := os.Create(path)
	if err != nil {
		t.Fatalf("Failed to create image: %v", err)
	}
	defer out.Close()
	if err := png.Encode(out, img); err != nil {
		t.Fatalf("Failed to encode image: %v", err)
	}
	return path
}

type mapCache struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func newMapCache() *mapCache {
	return &mapCache{entries: make(map[string][]byte)}
}

func (c *mapCache) Get(_ context.Context, fp string, dst interface{}) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.entries[fp]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(data, dst)
}

func (c *mapCache) Set(_ context.Context, fp string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[fp] = data
	return nil
}

func TestBase(t *testing.T) {
	modTime := time.Date(2024, 3, 7, 12, 0, 0, 0, time.Local)
	f := &files.File{Name: "clip.mp4", Type: "video/mp4", Size: 5 * 1024 * 1024 / 2, ModTime: modTime}

	m := Base(f)
	if m.Size != "2.50 MB" {
		t.Fatalf("Expected 2.50 MB, got %q", m.Size)
	}
	if m.LastModified != "3/7/2024" {
		t.Fatalf("Expected 3/7/2024, got %q", m.LastModified)
	}
	if !m.IsVideo || m.Type != "video/mp4" {
		t.Fatalf("Unexpected base metadata: %+v", m)
	}
	if !Base(nil).Empty() {
		t.Fatal("Expected empty metadata for nil file")
	}
}

func TestProbe_ImageDimensionsArriveAsync(t *testing.T) {
	path := writePNG(t, t.TempDir(), 64, 48)
	f, err := files.Open(path)
	if err != nil {
		t.Fatalf("Failed to open file: %v", err)
	}

	p := NewProber("", time.Second)
	base, updates := p.Probe(context.Background(), f)
	if base.Dimensions != "" {
		t.Fatalf("Expected dimensions to be pending, got %q", base.Dimensions)
	}

	u, ok := <-updates
	if !ok {
		t.Fatal("Expected one update")
	}
	if _, more := <-updates; more {
		t.Fatal("Expected channel to close after one update")
	}
	if u.Err != nil {
		t.Fatalf("Unexpected error: %v", u.Err)
	}
	if u.File != f {
		t.Fatal("Expected update to be tagged with the probed file")
	}

	merged := base.Merge(u)
	if merged.Dimensions != "64 x 48" {
		t.Fatalf("Expected 64 x 48, got %q", merged.Dimensions)
	}
	img, ok := merged.Technical.Image()
	if !ok || img.Resolution != "64x48" || img.Type != "PNG" {
		t.Fatalf("Unexpected technical metadata: %+v (ok=%v)", img, ok)
	}
}

func TestProbe_UsesCache(t *testing.T) {
	dir := t.TempDir()
	path := writePNG(t, dir, 10, 20)
	f, err := files.Open(path)
	if err != nil {
		t.Fatalf("Failed to open file: %v", err)
	}

	c := newMapCache()
	p := NewProber("", time.Second, WithCache(c))

	first := p.Derive(context.Background(), f)
	if first.Err != nil || first.Dimensions != "10 x 20" {
		t.Fatalf("Unexpected first result: %+v", first)
	}
	if len(c.entries) != 1 {
		t.Fatalf("Expected one cache entry, got %d", len(c.entries))
	}

	// The file is gone, so only the cache can answer.
	if err := os.Remove(path); err != nil {
		t.Fatalf("Failed to remove file: %v", err)
	}
	second := p.Derive(context.Background(), f)
	if second.Err != nil || second.Dimensions != "10 x 20" {
		t.Fatalf("Expected cached result, got %+v", second)
	}
	if !second.Technical.Equal(first.Technical) {
		t.Fatalf("Expected cached technical metadata to match")
	}
}

func TestProbe_UndecodableImageReportsError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.png")
	if err := os.WriteFile(path, []byte("not a png"), 0o644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}
	f := &files.File{Path: path, Name: "broken.png", Type: "image/png", Size: 9, ModTime: time.Now()}

	u := NewProber("", time.Second).Derive(context.Background(), f)
	if u.Err == nil {
		t.Fatal("Expected decode error")
	}
	if u.Technical.Kind() != media.KindNone {
		t.Fatal("Expected no technical metadata on failure")
	}
}

func TestProbe_OtherTypesYieldEmptyUpdate(t *testing.T) {
	f := &files.File{Path: "/nonexistent", Name: "notes.txt", Type: "text/plain"}
	u := NewProber("", time.Second).Derive(context.Background(), f)
	if u.Err != nil || u.Dimensions != "" || u.Duration != "" {
		t.Fatalf("Expected empty update, got %+v", u)
	}
}

func TestTechnicalHelpers(t *testing.T) {
	cases := map[int]string{2160: "4K", 1080: "1080p", 720: "720p", 1000: "1000p"}
	for h, want := range cases {
		if got := QualityLabel(h); got != want {
			t.Fatalf("QualityLabel(%d) = %q, want %q", h, got, want)
		}
	}

	if got := AspectRatio(1920, 1080); got != "16:9" {
		t.Fatalf("Expected 16:9, got %q", got)
	}
	if got := AspectRatio(0, 1080); got != "" {
		t.Fatalf("Expected empty ratio, got %q", got)
	}
	if got := ClockDuration(3725.9); got != "01:02:05" {
		t.Fatalf("Expected 01:02:05, got %q", got)
	}
	if got := RoundedDuration(12.6); got != "13 sec" {
		t.Fatalf("Expected 13 sec, got %q", got)
	}
}

func TestParseFFProbe(t *testing.T) {
	output := []byte(`{
		"streams": [
			{"index": 0, "codec_type": "audio", "codec_name": "aac"},
			{"index": 1, "codec_type": "video", "codec_name": "h264", "width": 1280, "height": 720,
			 "duration": "9.5", "tags": {"creation_time": "2023-01-02T03:04:05.000000Z"}}
		],
		"format": {"filename": "clip.mp4", "duration": "", "format_name": "mov,mp4"}
	}`)

	r, err := ParseFFProbe(output)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if d := r.DurationSeconds(); d != 9.5 {
		t.Fatalf("Expected stream duration fallback 9.5, got %v", d)
	}
	if ct := r.CreationTime(); ct != "2023-01-02T03:04:05.000000Z" {
		t.Fatalf("Expected stream creation time, got %q", ct)
	}

	tm, ok := videoTechnical(r, time.Now())
	if !ok {
		t.Fatal("Expected video technical metadata")
	}
	vid, _ := tm.Video()
	if vid.Resolution != "1280x720" || vid.Quality != "720p" || vid.AspectRatio != "16:9" || vid.Duration != "00:00:09" {
		t.Fatalf("Unexpected video metadata: %+v", vid)
	}

	if _, err := ParseFFProbe([]byte("garbage")); err == nil {
		t.Fatal("Expected parse error")
	}
}
