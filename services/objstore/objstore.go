// Package objstore archives raw scraped artifacts before any parsing
// touches them, keyed by collection date. When a parser regresses, the
// archive is what makes the day replayable.
package objstore

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Key addresses one artifact.
type Key struct {
	// Date partitions artifacts by collection day, "2006-01-02".
	Date string
	// Name identifies the artifact within the day, e.g. "chart_popular".
	Name string
	// ContentType picks the file extension, json or html.
	ContentType string
}

func (k Key) filename() string {
	ext := ".html"
	if strings.Contains(k.ContentType, "json") {
		ext = ".json"
	}
	return k.Name + ext
}

// Store archives raw artifacts.
type Store interface {
	Put(ctx context.Context, key Key, body []byte) error
	Get(ctx context.Context, key Key) ([]byte, error)
	// Delete removes an artifact regardless of which extension it was
	// stored under. Deleting a missing artifact is not an error.
	Delete(ctx context.Context, key Key) error
}

// Filesystem stores artifacts under <dir>/raw/<date>/<name>.<ext>.
type Filesystem struct {
	dir string
}

var _ Store = Filesystem{}

func NewFilesystem(dataDir string) Filesystem {
	return Filesystem{dir: filepath.Join(dataDir, "raw")}
}

func (f Filesystem) path(key Key) string {
	return filepath.Join(f.dir, key.Date, key.filename())
}

func (f Filesystem) Put(ctx context.Context, key Key, body []byte) error {
	path := f.path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create artifact directory: %w", err)
	}
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return fmt.Errorf("write artifact %s: %w", path, err)
	}
	slog.DebugContext(ctx, "raw artifact stored", "path", path, "bytes", len(body))
	return nil
}

func (f Filesystem) Get(ctx context.Context, key Key) ([]byte, error) {
	body, err := os.ReadFile(f.path(key))
	if err != nil {
		return nil, fmt.Errorf("read artifact: %w", err)
	}
	return body, nil
}

func (f Filesystem) Delete(ctx context.Context, key Key) error {
	// the content type at delete time may differ from the one at store
	// time, an api fallback to html for example, so match any extension
	matches, err := filepath.Glob(filepath.Join(f.dir, key.Date, key.Name+".*"))
	if err != nil {
		return err
	}
	for _, match := range matches {
		if err := os.Remove(match); err != nil {
			return fmt.Errorf("delete artifact %s: %w", match, err)
		}
		slog.DebugContext(ctx, "raw artifact deleted", "path", match)
	}
	return nil
}
