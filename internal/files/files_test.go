package files

import (
	"bytes"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func TestOpen_SniffsPNG(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "photo.dat")

	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 3))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}

	f, err := Open(path)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if f.Type != "image/png" {
		t.Fatalf("Expected image/png, got %q", f.Type)
	}
	if f.Size != int64(buf.Len()) || f.Name != "photo.dat" {
		t.Fatalf("Unexpected file %+v", f)
	}
	if !f.IsImage() || f.IsVideo() {
		t.Fatal("Expected file to be an image")
	}

	again, err := Open(path)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if again == f {
		t.Fatal("Expected each Open to return a distinct selection")
	}
}

func TestOpen_RejectsDirectory(t *testing.T) {
	_, err := Open(t.TempDir())
	if !errors.Is(err, ErrNotRegular) {
		t.Fatalf("Expected ErrNotRegular, got %v", err)
	}
}
