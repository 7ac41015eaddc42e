package client

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// pngHeader is the 8-byte PNG signature plus a little padding so content
// sniffing has something to work with.
var pngHeader = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0}

func TestBuildImagePayload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "shot.png")
	if err := os.WriteFile(path, pngHeader, 0o644); err != nil {
		t.Fatal(err)
	}

	images, names, err := buildImagePayload([]string{path, ""})
	if err != nil {
		t.Fatalf("buildImagePayload: %v", err)
	}
	if len(images) != 1 || len(names) != 1 {
		t.Fatalf("got %d images, %d names; empty paths must be skipped", len(images), len(names))
	}
	if images[0].MimeType != "image/png" {
		t.Errorf("mime = %q", images[0].MimeType)
	}
	if !strings.HasPrefix(images[0].Data, "data:image/png;base64,") {
		t.Errorf("data = %q, want data URI prefix", images[0].Data[:min(len(images[0].Data), 40)])
	}
	if names[0] != "shot.png" {
		t.Errorf("name = %q, want basename", names[0])
	}
}

func TestBuildImagePayloadRejectsURLs(t *testing.T) {
	for _, p := range []string{"http://example.com/a.png", "https://example.com/a.png"} {
		if _, _, err := buildImagePayload([]string{p}); err == nil {
			t.Errorf("buildImagePayload(%q) accepted a URL", p)
		}
	}
}

func TestBuildImagePayloadMissingFile(t *testing.T) {
	if _, _, err := buildImagePayload([]string{filepath.Join(t.TempDir(), "nope.png")}); err == nil {
		t.Error("missing file must be an error")
	}
}

func TestGuessMimeTypeFallback(t *testing.T) {
	if got := guessMimeType("photo.jpg", nil); got != "image/jpeg" {
		t.Errorf("by extension: got %q", got)
	}
	// No extension: fall back to content sniffing.
	if got := guessMimeType("photo", pngHeader); got != "image/png" {
		t.Errorf("by content: got %q", got)
	}
	if got := guessMimeType("blob", []byte{0x00, 0x01}); got != "application/octet-stream" {
		t.Errorf("fallback: got %q", got)
	}
}
