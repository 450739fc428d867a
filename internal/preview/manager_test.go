package preview

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/princekumarofficial/portfolio-studio/internal/files"
)

type recordingProvider struct {
	mu         sync.Mutex
	next       int
	events     []string
	releases   map[string]int
	acquireErr error
	releaseErr error
}

func newRecordingProvider() *recordingProvider {
	return &recordingProvider{releases: make(map[string]int)}
}

func (p *recordingProvider) Acquire(_ context.Context, f *files.File) (Handle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.acquireErr != nil {
		return Handle{}, p.acquireErr
	}
	p.next++
	id := fmt.Sprintf("h%d", p.next)
	p.events = append(p.events, "acquire:"+f.Name+":"+id)
	return Handle{ID: id, Key: id, URL: "blob:" + id}, nil
}

func (p *recordingProvider) Release(_ context.Context, h Handle) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.events = append(p.events, "release:"+h.ID)
	p.releases[h.ID]++
	return p.releaseErr
}

func TestManager_ReleasesBeforeAcquire(t *testing.T) {
	ctx := context.Background()
	provider := newRecordingProvider()
	m := NewManager(provider, nil)

	f1 := &files.File{Name: "f1.png", Type: "image/png"}
	f2 := &files.File{Name: "f2.mp4", Type: "video/mp4"}

	if _, err := m.SetFile(ctx, f1); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	state, err := m.SetFile(ctx, f2)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if state.URL != "blob:h2" || state.MIMEType != "video/mp4" {
		t.Fatalf("Unexpected state %+v", state)
	}

	want := []string{"acquire:f1.png:h1", "release:h1", "acquire:f2.mp4:h2"}
	if fmt.Sprint(provider.events) != fmt.Sprint(want) {
		t.Fatalf("Expected events %v, got %v", want, provider.events)
	}

	m.Clear(ctx)
	m.Clear(ctx)

	if provider.releases["h1"] != 1 || provider.releases["h2"] != 1 {
		t.Fatalf("Expected each handle released exactly once, got %v", provider.releases)
	}
	if !m.State().Empty() || m.Live() {
		t.Fatalf("Expected empty state after clear, got %+v", m.State())
	}
}

func TestManager_NilFileClears(t *testing.T) {
	ctx := context.Background()
	provider := newRecordingProvider()
	m := NewManager(provider, nil)

	if _, err := m.SetFile(ctx, &files.File{Name: "a.png", Type: "image/png"}); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	state, err := m.SetFile(ctx, nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !state.Empty() {
		t.Fatalf("Expected empty state, got %+v", state)
	}
	if provider.releases["h1"] != 1 {
		t.Fatalf("Expected h1 released once, got %d", provider.releases["h1"])
	}
}

func TestManager_FailedReleaseIsNotRetried(t *testing.T) {
	ctx := context.Background()
	provider := newRecordingProvider()
	provider.releaseErr = errors.New("boom")
	m := NewManager(provider, nil)

	if _, err := m.SetFile(ctx, &files.File{Name: "a.png"}); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	m.Clear(ctx)
	m.Clear(ctx)

	if provider.releases["h1"] != 1 {
		t.Fatalf("Expected a single release attempt, got %d", provider.releases["h1"])
	}
}

func TestManager_AcquireFailureLeavesEmpty(t *testing.T) {
	ctx := context.Background()
	provider := newRecordingProvider()
	m := NewManager(provider, nil)

	if _, err := m.SetFile(ctx, &files.File{Name: "a.png"}); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	provider.acquireErr = errors.New("disk full")
	if _, err := m.SetFile(ctx, &files.File{Name: "b.png"}); err == nil {
		t.Fatal("Expected acquire error")
	}
	if m.Live() {
		t.Fatal("Expected no live handle after failed acquire")
	}
	if provider.releases["h1"] != 1 {
		t.Fatalf("Expected previous handle released, got %v", provider.releases)
	}
}

// gatedProvider blocks Acquire until the test opens the gate.
type gatedProvider struct {
	*recordingProvider
	started chan struct{}
	gate    chan struct{}
}

func (p *gatedProvider) Acquire(ctx context.Context, f *files.File) (Handle, error) {
	close(p.started)
	<-p.gate
	return p.recordingProvider.Acquire(ctx, f)
}

func TestManager_ClearDuringAcquireReleasesLateHandle(t *testing.T) {
	ctx := context.Background()
	provider := &gatedProvider{
		recordingProvider: newRecordingProvider(),
		started:           make(chan struct{}),
		gate:              make(chan struct{}),
	}
	m := NewManager(provider, nil)

	done := make(chan error, 1)
	go func() {
		_, err := m.SetFile(ctx, &files.File{Name: "slow.png", Type: "image/png"})
		done <- err
	}()
	<-provider.started

	cleared := make(chan struct{})
	go func() {
		m.Clear(ctx)
		close(cleared)
	}()
	select {
	case <-cleared:
	case <-time.After(time.Second):
		t.Fatal("Expected Clear not to wait for a pending acquire")
	}

	close(provider.gate)
	if err := <-done; !errors.Is(err, ErrSuperseded) {
		t.Fatalf("Expected ErrSuperseded, got %v", err)
	}
	if m.Live() {
		t.Fatal("Expected no live handle")
	}
	if provider.releases["h1"] != 1 {
		t.Fatalf("Expected late handle released once, got %v", provider.releases)
	}
}
