// Package files describes a local file picked for upload.
package files

import (
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
)

var ErrNotRegular = errors.New("not a regular file")

// File is one selection of a local file. Every call to Open yields a new
// instance, so two selections of the same path are distinct.
type File struct {
	Path    string
	Name    string
	Type    string
	Size    int64
	ModTime time.Time
}

// Open stats path and sniffs its MIME type.
func Open(path string) (*File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("open %s: %w", path, ErrNotRegular)
	}

	return &File{
		Path:    path,
		Name:    filepath.Base(path),
		Type:    DetectType(path),
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

// DetectType sniffs content first and falls back to the extension table.
func DetectType(path string) string {
	if mt, err := mimetype.DetectFile(path); err == nil {
		if t := baseType(mt.String()); t != "" && t != "application/octet-stream" && t != "text/plain" {
			return t
		}
	}
	if t := baseType(mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))); t != "" {
		return t
	}
	return "application/octet-stream"
}

func baseType(t string) string {
	base, _, _ := strings.Cut(t, ";")
	return strings.TrimSpace(base)
}

func (f *File) Ext() string {
	return strings.ToLower(filepath.Ext(f.Name))
}

func (f *File) IsImage() bool {
	return strings.HasPrefix(f.Type, "image/")
}

func (f *File) IsVideo() bool {
	return strings.HasPrefix(f.Type, "video/")
}
