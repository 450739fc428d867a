package main

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/princekumarofficial/portfolio-studio/internal/config"
	"github.com/princekumarofficial/portfolio-studio/internal/preview"
	"github.com/princekumarofficial/portfolio-studio/internal/probe"
	remote "github.com/princekumarofficial/portfolio-studio/internal/services/portfolio"
	"github.com/princekumarofficial/portfolio-studio/internal/types/media"
	"github.com/princekumarofficial/portfolio-studio/internal/validation"
)

// backend is an in-memory stand-in for the portfolio API.
type backend struct {
	mu    sync.Mutex
	saved []media.MediaItem
	saves int
}

func (b *backend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /upload", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"bad form"}`))
			return
		}
		item := media.MediaItem{
			ID:        "item-1",
			Filename:  "item-1.png",
			Title:     r.FormValue("title"),
			Category:  r.FormValue("category"),
			MediaType: "image/png",
		}
		json.NewEncoder(w).Encode(item)
	})
	mux.HandleFunc("POST /save-portfolio", func(w http.ResponseWriter, r *http.Request) {
		var req media.SaveRequest
		json.NewDecoder(r.Body).Decode(&req)
		b.mu.Lock()
		b.saved = req.Items
		b.saves++
		b.mu.Unlock()
		w.Write([]byte(`{"message":"ok"}`))
	})
	mux.HandleFunc("GET /load-portfolio/{user}", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		json.NewEncoder(w).Encode(media.LoadResponse{Items: b.saved})
	})
	return mux
}

// lockedBuffer lets tests read output while probe callbacks still write.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (b *lockedBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf.Reset()
}

func newTestShell(t *testing.T, serverURL string) (*shell, *lockedBuffer) {
	t.Helper()

	provider := mustLocalProvider(t)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	a := &app{
		cfg:    &config.Config{UserID: "user-1"},
		logger: logger,
		policy: validation.DefaultPolicy(),
		prober: probe.NewProber("", time.Second),
		remote: remote.NewClient(serverURL, nil, logger),
	}

	out := &lockedBuffer{}
	s := newShell(a, provider, out)
	t.Cleanup(func() { s.session.Close(context.Background()) })
	return s, out
}

func writeTestPNG(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sunset.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Failed to create image: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, image.NewRGBA(image.Rect(0, 0, 64, 64))); err != nil {
		t.Fatalf("Failed to encode image: %v", err)
	}
	return path
}

func TestShell_UploadAndSave(t *testing.T) {
	b := &backend{}
	server := httptest.NewServer(b.handler())
	defer server.Close()

	s, out := newTestShell(t, server.URL)
	ctx := context.Background()

	for _, line := range []string{
		"select " + writeTestPNG(t),
		"title Sunset",
		"description Over the bay",
		"category Nature",
		"submit",
	} {
		if s.exec(ctx, line) {
			t.Fatalf("Unexpected exit on %q", line)
		}
	}

	if !strings.Contains(out.String(), "Added item-1") {
		t.Fatalf("Expected upload confirmation, got:\n%s", out.String())
	}
	if !s.store.CanSave() {
		t.Fatal("Expected the new item to be savable")
	}

	s.exec(ctx, "save")
	if b.saves != 1 || len(b.saved) != 1 || b.saved[0].Title != "Sunset" {
		t.Fatalf("Expected one saved item, got %d saves: %+v", b.saves, b.saved)
	}
	if s.store.CanSave() || s.store.CanLoad() {
		t.Fatal("Expected clean state after save")
	}

	out.Reset()
	s.exec(ctx, "save")
	if !strings.Contains(out.String(), "Nothing to save.") {
		t.Fatalf("Expected save to be gated, got %q", out.String())
	}
	if b.saves != 1 {
		t.Fatal("Expected no second save request")
	}
}

func TestShell_RejectsOversizedFile(t *testing.T) {
	server := httptest.NewServer((&backend{}).handler())
	defer server.Close()

	s, out := newTestShell(t, server.URL)
	s.session.Close(context.Background())
	s.app.policy = validation.NewPolicy(16, nil)
	s = newShell(s.app, mustLocalProvider(t), out)
	t.Cleanup(func() { s.session.Close(context.Background()) })

	s.exec(context.Background(), "select "+writeTestPNG(t))
	if !strings.Contains(out.String(), "File size exceeds") {
		t.Fatalf("Expected rejection, got:\n%s", out.String())
	}
	if s.session.View().State.String() != "rejected" {
		t.Fatalf("Expected rejected state, got %s", s.session.View().State)
	}
}

func mustLocalProvider(t *testing.T) *preview.LocalProvider {
	t.Helper()
	provider, err := preview.NewLocalProvider(t.TempDir(), 32, 32)
	if err != nil {
		t.Fatalf("Failed to create preview provider: %v", err)
	}
	return provider
}

func TestShell_SubmitNeedsFields(t *testing.T) {
	server := httptest.NewServer((&backend{}).handler())
	defer server.Close()

	s, out := newTestShell(t, server.URL)
	ctx := context.Background()

	s.exec(ctx, "select "+writeTestPNG(t))
	s.exec(ctx, "title Only a title")
	s.exec(ctx, "submit")

	if !strings.Contains(out.String(), "Fill in title, description and category first.") {
		t.Fatalf("Expected submit to be refused, got:\n%s", out.String())
	}
}

func TestSplitCommand(t *testing.T) {
	verb, arg := splitCommand("  Title   My  holiday ")
	if verb != "title" || arg != "My  holiday" {
		t.Fatalf("Unexpected split: %q %q", verb, arg)
	}
	if got := unquote(`"/tmp/my file.png"`); got != "/tmp/my file.png" {
		t.Fatalf("Unexpected unquote: %q", got)
	}
	if got, cut := truncateRunes("héllo", 3); got != "hél" || !cut {
		t.Fatalf("Unexpected truncate: %q %v", got, cut)
	}
}

func TestShell_PrintfFromManyGoroutines(t *testing.T) {
	out := &bytes.Buffer{}
	s := &shell{out: out}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				s.printf("worker %d line %d\n", worker, j)
			}
		}(i)
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	if len(lines) != 400 {
		t.Fatalf("Expected 400 intact lines, got %d", len(lines))
	}
	for _, line := range lines {
		if !strings.HasPrefix(line, "worker ") {
			t.Fatalf("Expected whole lines, got %q", line)
		}
	}
}
