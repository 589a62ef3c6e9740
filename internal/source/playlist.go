package source

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"loopcast/internal/ffmpeg"
)

// expandDir turns a directory into an ffmpeg concat playlist listing every
// supported audio file, sorted by name. The playlist lands in the cache
// directory keyed by the directory path, so repeated resolutions are stable.
func (r *Resolver) expandDir(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", &ResolutionError{Descriptor: dir, Err: err}
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if supportedExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}

	if len(files) == 0 {
		return "", &ResolutionError{
			Descriptor: dir,
			Err:        fmt.Errorf("directory contains no supported audio files"),
		}
	}

	if err = os.MkdirAll(r.cacheDir, 0o755); err != nil {
		return "", &ResolutionError{Descriptor: dir, Err: err}
	}

	var playlist strings.Builder
	playlist.WriteString("ffconcat version 1.0\n")
	for _, f := range files {
		// The concat demuxer requires single quotes around paths, with
		// embedded quotes escaped as '\''.
		playlist.WriteString("file '" + strings.ReplaceAll(f, "'", `'\''`) + "'\n")
	}

	playlistPath := filepath.Join(r.cacheDir, cacheKey(dir)+ffmpeg.PlaylistExt)
	if err = os.WriteFile(playlistPath, []byte(playlist.String()), 0o644); err != nil {
		return "", &ResolutionError{Descriptor: dir, Err: err}
	}

	r.logger.Info("Directory expanded to playlist", "dir", dir, "files", len(files), "playlist", playlistPath)
	return playlistPath, nil
}
