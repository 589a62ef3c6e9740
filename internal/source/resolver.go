// Package source resolves configured source descriptors to local files ready
// for streaming. A descriptor is a local audio file, an http(s) URL that gets
// downloaded into a content-addressed cache, or a directory that expands to a
// concat playlist of its audio files. Resolution is idempotent: the same
// descriptor always yields the same path.
package source

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-retryablehttp"
)

// supportedExtensions is the fixed set of audio types accepted for direct
// streaming and directory expansion.
var supportedExtensions = map[string]bool{
	".mp3":  true,
	".wav":  true,
	".ogg":  true,
	".m4a":  true,
	".aac":  true,
	".flac": true,
	".opus": true,
}

// ResolutionError reports a source descriptor that could not be turned into a
// streamable local file.
type ResolutionError struct {
	Descriptor string
	Err        error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("cannot resolve source %q: %v", e.Descriptor, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// Resolver resolves source descriptors against a local cache directory.
type Resolver struct {
	cacheDir string
	client   *retryablehttp.Client
	logger   *slog.Logger
}

// NewResolver creates a resolver that caches downloads and generated
// playlists under cacheDir.
func NewResolver(cacheDir string, logger *slog.Logger) *Resolver {
	client := retryablehttp.NewClient()
	client.RetryMax = 3
	client.Logger = nil

	return &Resolver{
		cacheDir: cacheDir,
		client:   client,
		logger:   logger,
	}
}

// Resolve returns a stable local path for the descriptor.
func (r *Resolver) Resolve(descriptor string) (string, error) {
	if strings.HasPrefix(descriptor, "http://") || strings.HasPrefix(descriptor, "https://") {
		return r.download(descriptor)
	}

	abs, err := filepath.Abs(descriptor)
	if err != nil {
		return "", &ResolutionError{Descriptor: descriptor, Err: err}
	}

	info, err := os.Stat(abs)
	if err != nil {
		return "", &ResolutionError{Descriptor: descriptor, Err: err}
	}

	if info.IsDir() {
		return r.expandDir(abs)
	}

	if !supportedExtensions[strings.ToLower(filepath.Ext(abs))] {
		return "", &ResolutionError{
			Descriptor: descriptor,
			Err:        fmt.Errorf("unsupported audio type %q", filepath.Ext(abs)),
		}
	}

	return abs, nil
}

// download fetches a remote source into the cache. The cache file name is
// derived from the URL hash, so repeated resolutions of the same URL hit the
// cache without touching the network.
func (r *Resolver) download(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", &ResolutionError{Descriptor: rawURL, Err: err}
	}

	ext := strings.ToLower(filepath.Ext(u.Path))
	if !supportedExtensions[ext] {
		return "", &ResolutionError{
			Descriptor: rawURL,
			Err:        fmt.Errorf("unsupported audio type %q", ext),
		}
	}

	cachePath := filepath.Join(r.cacheDir, cacheKey(rawURL)+ext)
	if _, statErr := os.Stat(cachePath); statErr == nil {
		r.logger.Debug("Source cache hit", "url", rawURL, "path", cachePath)
		return cachePath, nil
	}

	if mkErr := os.MkdirAll(r.cacheDir, 0o755); mkErr != nil {
		return "", &ResolutionError{Descriptor: rawURL, Err: mkErr}
	}

	r.logger.Info("Downloading source", "url", rawURL)
	resp, err := r.client.Get(rawURL)
	if err != nil {
		return "", &ResolutionError{Descriptor: rawURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return "", &ResolutionError{
			Descriptor: rawURL,
			Err:        fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}

	// Download to a temp file and rename so a partial fetch never becomes a
	// cache hit.
	tmp, err := os.CreateTemp(r.cacheDir, ".download-*")
	if err != nil {
		return "", &ResolutionError{Descriptor: rawURL, Err: err}
	}
	defer os.Remove(tmp.Name())

	if _, err = io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return "", &ResolutionError{Descriptor: rawURL, Err: err}
	}
	if err = tmp.Close(); err != nil {
		return "", &ResolutionError{Descriptor: rawURL, Err: err}
	}

	if err = os.Rename(tmp.Name(), cachePath); err != nil {
		return "", &ResolutionError{Descriptor: rawURL, Err: err}
	}

	r.logger.Info("Source cached", "url", rawURL, "path", cachePath)
	return cachePath, nil
}

// cacheKey derives a stable cache file name from a descriptor.
func cacheKey(descriptor string) string {
	sum := sha256.Sum256([]byte(descriptor))
	return hex.EncodeToString(sum[:8])
}
