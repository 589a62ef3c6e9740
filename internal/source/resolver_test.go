package source

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestResolver(t *testing.T) *Resolver {
	t.Helper()
	return NewResolver(t.TempDir(), testLogger())
}

func writeFile(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("audio"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestResolveLocalFile(t *testing.T) {
	r := newTestResolver(t)
	dir := t.TempDir()
	path := writeFile(t, dir, "track.mp3")

	got, err := r.Resolve(path)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if got != path {
		t.Errorf("Resolve = %q, want %q", got, path)
	}
}

func TestResolveMissingFile(t *testing.T) {
	r := newTestResolver(t)

	_, err := r.Resolve("/nonexistent/track.mp3")
	var resErr *ResolutionError
	if !errors.As(err, &resErr) {
		t.Fatalf("expected ResolutionError, got %v", err)
	}
}

func TestResolveUnsupportedExtension(t *testing.T) {
	r := newTestResolver(t)
	dir := t.TempDir()
	path := writeFile(t, dir, "video.mkv")

	if _, err := r.Resolve(path); err == nil {
		t.Fatal("expected error for unsupported audio type")
	}
}

func TestResolveDirectory(t *testing.T) {
	r := newTestResolver(t)
	dir := t.TempDir()
	writeFile(t, dir, "b.mp3")
	writeFile(t, dir, "a.flac")
	writeFile(t, dir, "notes.txt")

	playlist, err := r.Resolve(dir)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if !strings.HasSuffix(playlist, ".ffconcat") {
		t.Errorf("expected .ffconcat playlist, got %q", playlist)
	}

	data, err := os.ReadFile(playlist)
	if err != nil {
		t.Fatal(err)
	}
	content := string(data)
	if !strings.HasPrefix(content, "ffconcat version 1.0\n") {
		t.Errorf("missing concat header:\n%s", content)
	}
	if strings.Contains(content, "notes.txt") {
		t.Error("playlist contains non-audio file")
	}
	// Sorted by name: a.flac before b.mp3.
	if strings.Index(content, "a.flac") > strings.Index(content, "b.mp3") {
		t.Errorf("playlist entries not sorted:\n%s", content)
	}

	// Re-resolving yields the same playlist path.
	again, err := r.Resolve(dir)
	if err != nil {
		t.Fatal(err)
	}
	if again != playlist {
		t.Errorf("directory resolution not stable: %q vs %q", playlist, again)
	}
}

func TestResolveEmptyDirectory(t *testing.T) {
	r := newTestResolver(t)
	dir := t.TempDir()
	writeFile(t, dir, "readme.md")

	_, err := r.Resolve(dir)
	var resErr *ResolutionError
	if !errors.As(err, &resErr) {
		t.Fatalf("expected ResolutionError for directory without audio, got %v", err)
	}
}

func TestResolveURLDownloadsOnce(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits++
		_, _ = w.Write([]byte("mp3 bytes"))
	}))
	defer srv.Close()

	r := newTestResolver(t)
	url := srv.URL + "/stream/track.mp3"

	first, err := r.Resolve(url)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	data, err := os.ReadFile(first)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "mp3 bytes" {
		t.Errorf("cached file content = %q", data)
	}

	second, err := r.Resolve(url)
	if err != nil {
		t.Fatal(err)
	}
	if second != first {
		t.Errorf("cache path not stable: %q vs %q", first, second)
	}
	if hits != 1 {
		t.Errorf("expected 1 fetch, got %d", hits)
	}
}

func TestResolveURLUnsupportedType(t *testing.T) {
	r := newTestResolver(t)
	if _, err := r.Resolve("http://example.org/show.mp4"); err == nil {
		t.Fatal("expected error for unsupported remote type")
	}
}

func TestResolveURLErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	r := newTestResolver(t)
	if _, err := r.Resolve(srv.URL + "/missing.mp3"); err == nil {
		t.Fatal("expected error for 404 response")
	}
}
