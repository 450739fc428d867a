package preview

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	_ "golang.org/x/image/webp"

	"github.com/princekumarofficial/portfolio-studio/internal/files"
)

const localPrefix = "preview-"

// LocalProvider stages previews in a directory on disk. Images are downscaled
// into a bounded box; everything else is linked to the original.
type LocalProvider struct {
	dir       string
	maxWidth  int
	maxHeight int
}

func NewLocalProvider(dir string, maxWidth, maxHeight int) (*LocalProvider, error) {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "portfolio-previews")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create preview dir: %w", err)
	}
	if maxWidth <= 0 {
		maxWidth = 640
	}
	if maxHeight <= 0 {
		maxHeight = 640
	}
	return &LocalProvider{dir: dir, maxWidth: maxWidth, maxHeight: maxHeight}, nil
}

func (p *LocalProvider) Dir() string {
	return p.dir
}

func (p *LocalProvider) Acquire(ctx context.Context, f *files.File) (Handle, error) {
	if err := ctx.Err(); err != nil {
		return Handle{}, err
	}

	id := uuid.New().String()
	h := Handle{ID: id, MIMEType: f.Type}

	if f.IsImage() {
		path, err := p.thumbnail(id, f)
		if err == nil {
			h.Key = path
			h.URL = fileURL(path)
			return h, nil
		}
		// Undecodable images still get a preview through a link.
	}

	path := filepath.Join(p.dir, localPrefix+id+f.Ext())
	if err := linkOrCopy(f.Path, path); err != nil {
		return Handle{}, err
	}
	h.Key = path
	h.URL = fileURL(path)
	return h, nil
}

func (p *LocalProvider) thumbnail(id string, f *files.File) (string, error) {
	img, err := imaging.Open(f.Path, imaging.AutoOrientation(true))
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}

	ext := f.Ext()
	if _, err := imaging.FormatFromExtension(ext); err != nil {
		ext = ".png"
	}

	thumb := imaging.Fit(img, p.maxWidth, p.maxHeight, imaging.Lanczos)
	path := filepath.Join(p.dir, localPrefix+id+ext)
	if err := imaging.Save(thumb, path); err != nil {
		return "", fmt.Errorf("save thumbnail: %w", err)
	}
	return path, nil
}

func (p *LocalProvider) Release(_ context.Context, h Handle) error {
	if h.Key == "" {
		return nil
	}
	if err := os.Remove(h.Key); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove preview %s: %w", h.Key, err)
	}
	return nil
}

// Sweep removes staged previews older than olderThan.
func (p *LocalProvider) Sweep(ctx context.Context, olderThan time.Duration) (int, error) {
	entries, err := os.ReadDir(p.dir)
	if err != nil {
		return 0, fmt.Errorf("read preview dir: %w", err)
	}

	cutoff := time.Now().Add(-olderThan)
	removed := 0
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if !strings.HasPrefix(entry.Name(), localPrefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(p.dir, entry.Name())); err != nil && !os.IsNotExist(err) {
			return removed, fmt.Errorf("remove %s: %w", entry.Name(), err)
		}
		removed++
	}
	return removed, nil
}

func linkOrCopy(src, dst string) error {
	abs, err := filepath.Abs(src)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", src, err)
	}
	if err := os.Symlink(abs, dst); err == nil {
		return nil
	}

	in, err := os.Open(abs)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return fmt.Errorf("copy preview: %w", err)
	}
	return out.Close()
}

func fileURL(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String()
}
