package validation

import (
	"strings"
	"testing"

	"github.com/princekumarofficial/portfolio-studio/internal/files"
	"github.com/princekumarofficial/portfolio-studio/internal/types/media"
)

const mib = 1024 * 1024

func TestPolicy_Size(t *testing.T) {
	p := DefaultPolicy()

	big := p.Validate(&files.File{Name: "big.png", Type: "image/png", Size: 11 * mib})
	if big.OK() || big.Code != CodeTooLarge {
		t.Fatalf("Expected 11MiB file to be rejected as too large, got %+v", big)
	}
	if big.Reason != "File size exceeds 10MB limit." {
		t.Fatalf("Unexpected reason %q", big.Reason)
	}

	small := p.Validate(&files.File{Name: "small.png", Type: "image/png", Size: 9 * mib})
	if !small.OK() {
		t.Fatalf("Expected 9MiB png to be accepted, got %+v", small)
	}
	if small.Err() != nil {
		t.Fatalf("Expected nil error for ok outcome, got %v", small.Err())
	}

	exact := p.Validate(&files.File{Type: "image/png", Size: 10 * mib})
	if !exact.OK() {
		t.Fatalf("Expected exactly 10MiB to be accepted, got %+v", exact)
	}
}

func TestPolicy_QuickTimeRejectedRegardlessOfSize(t *testing.T) {
	p := DefaultPolicy()

	for _, size := range []int64{1, 9 * mib, 50 * mib} {
		out := p.Validate(&files.File{Name: "clip.mov", Type: "video/quicktime", Size: size})
		if out.Code != CodeDeniedType {
			t.Fatalf("Expected quicktime of size %d to be denied by type, got %+v", size, out)
		}
		if !IsValidationError(out.Err()) {
			t.Fatalf("Expected ValidationError, got %v", out.Err())
		}
	}
}

func TestPolicy_NilFileIsOK(t *testing.T) {
	if !DefaultPolicy().Validate(nil).OK() {
		t.Fatal("Expected nil file to pass the policy")
	}
}

func TestNewPolicy_Overrides(t *testing.T) {
	p := NewPolicy(2*mib, []string{"x-msvideo"})

	if out := p.Validate(&files.File{Type: "video/quicktime", Size: 1}); !out.OK() {
		t.Fatalf("Expected quicktime to pass with custom denylist, got %+v", out)
	}
	if out := p.Validate(&files.File{Type: "video/x-msvideo", Size: 1}); out.Code != CodeDeniedType {
		t.Fatalf("Expected avi to be denied, got %+v", out)
	}
	if out := p.Validate(&files.File{Type: "image/png", Size: 3 * mib}); out.Reason != "File size exceeds 2MB limit." {
		t.Fatalf("Unexpected reason %q", out.Reason)
	}
}

func TestFields(t *testing.T) {
	ok := media.UploadRequest{Title: "Sunset", Description: "Over the bay", Category: "Nature"}
	if err := Fields(ok); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	blank := media.UploadRequest{Title: "   ", Description: "d", Category: "c"}
	err := Fields(blank)
	if !IsValidationError(err) || !strings.Contains(err.Error(), "title: notblank") {
		t.Fatalf("Expected blank title error, got %v", err)
	}

	long := media.UploadRequest{Title: strings.Repeat("t", 81), Description: "d", Category: "c"}
	err = Fields(long)
	if err == nil || !strings.Contains(err.Error(), "title: max=80") {
		t.Fatalf("Expected max length error, got %v", err)
	}

	longDesc := media.UploadRequest{Title: "t", Description: strings.Repeat("d", 151), Category: "c"}
	if err := Fields(longDesc); err == nil {
		t.Fatal("Expected description over 150 chars to fail")
	}
}
