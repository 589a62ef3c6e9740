package config

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"loopcast/internal/stream"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, "endpoints.toml", `
[[endpoints]]
host = "ice.example.com"
port = 8000
mount = "/main"
password = "hackme"
source = "/music/loop.mp3"

[[endpoints]]
host = "ice.example.com"
port = 8000
mount = "/low"
password = "hackme"
source = "/music/loop.mp3"
bitrate = "64k"
username = "relay"
stream_name = "Low Quality"
protocol = "https"
`)

	endpoints, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(endpoints) != 2 {
		t.Fatalf("expected 2 endpoints, got %d", len(endpoints))
	}

	first := endpoints[0]
	if first.Username != stream.DefaultUsername {
		t.Errorf("expected default username, got %q", first.Username)
	}
	if first.Bitrate != stream.DefaultBitrate {
		t.Errorf("expected default bitrate, got %q", first.Bitrate)
	}
	if first.Protocol != stream.DefaultProtocol {
		t.Errorf("expected default protocol, got %q", first.Protocol)
	}

	second := endpoints[1]
	if second.Bitrate != "64k" || second.Username != "relay" || second.Protocol != "https" {
		t.Errorf("explicit fields not preserved: %+v", second)
	}
}

func TestLoadJSON(t *testing.T) {
	path := writeFile(t, "endpoints.json", `{
  "endpoints": [
    {"host": "ice.example.com", "port": 8000, "mount": "/main", "password": "hackme", "source": "/music/loop.mp3"}
  ]
}`)

	endpoints, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(endpoints) != 1 {
		t.Fatalf("expected 1 endpoint, got %d", len(endpoints))
	}
	if endpoints[0].Host != "ice.example.com" {
		t.Errorf("unexpected host %q", endpoints[0].Host)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	var cfgErr *Error
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected *Error, got %v", err)
	}
}

func TestLoadInvalidEndpointFailsWhole(t *testing.T) {
	path := writeFile(t, "endpoints.toml", `
[[endpoints]]
host = "ice.example.com"
port = 8000
mount = "/ok"
password = "hackme"
source = "/music/loop.mp3"

[[endpoints]]
host = "ice.example.com"
port = 8000
mount = "/broken"
source = "/music/loop.mp3"
`)

	_, err := Load(path)
	var cfgErr *Error
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected *Error for missing password, got %v", err)
	}
}

func TestLoadEmptyList(t *testing.T) {
	path := writeFile(t, "endpoints.toml", "endpoints = []\n")
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for empty endpoint list")
	}
}

func TestLoadMalformedTOML(t *testing.T) {
	path := writeFile(t, "endpoints.toml", "[[endpoints\n")
	_, err := Load(path)
	var cfgErr *Error
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected *Error, got %v", err)
	}
}

func TestWatcherReload(t *testing.T) {
	content := `
[[endpoints]]
host = "ice.example.com"
port = 8000
mount = "/main"
password = "hackme"
source = "/music/loop.mp3"
`
	path := writeFile(t, "endpoints.toml", content)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	w := NewWatcher(path, logger, WithDebounce(50*time.Millisecond))

	reloaded := make(chan []stream.Endpoint, 1)
	w.OnReload(func(endpoints []stream.Endpoint) {
		select {
		case reloaded <- endpoints:
		default:
		}
	})

	if err := w.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	updated := content + `
[[endpoints]]
host = "ice.example.com"
port = 8000
mount = "/second"
password = "hackme"
source = "/music/loop.mp3"
`
	if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case endpoints := <-reloaded:
		if len(endpoints) != 2 {
			t.Errorf("expected 2 endpoints after reload, got %d", len(endpoints))
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
}

func TestWatcherBadReloadKeepsHandlersQuiet(t *testing.T) {
	path := writeFile(t, "endpoints.toml", `
[[endpoints]]
host = "ice.example.com"
port = 8000
mount = "/main"
password = "hackme"
source = "/music/loop.mp3"
`)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	errs := make(chan error, 1)
	w := NewWatcher(path, logger,
		WithDebounce(50*time.Millisecond),
		WithErrorHandler(func(err error) {
			select {
			case errs <- err:
			default:
			}
		}))

	called := make(chan struct{}, 1)
	w.OnReload(func([]stream.Endpoint) {
		select {
		case called <- struct{}{}:
		default:
		}
	})

	if err := w.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	if err := os.WriteFile(path, []byte("[[endpoints\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-errs:
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for reload error")
	}

	select {
	case <-called:
		t.Fatal("handlers must not fire on failed reload")
	case <-time.After(200 * time.Millisecond):
	}
}
