package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

const defaultFileDir = ".nutricart"

// FileBackend stores each key as one file under a directory. Writes go to a temp file in the same
// directory followed by a rename, so a failed write never truncates the previous value.
type FileBackend struct {
	dir string
}

// NewFileBackend creates (if needed) dir and returns a backend rooted there.
func NewFileBackend(dir string) (*FileBackend, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		dir = defaultFileDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create dir %s: %w", dir, err)
	}
	return &FileBackend{dir: dir}, nil
}

// Dir returns the directory the backend writes to.
func (f *FileBackend) Dir() string { return f.dir }

// Get implements Slot.
func (f *FileBackend) Get(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(f.path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("storage: read %s: %w", key, err)
	}
	return data, nil
}

// Put implements Slot.
func (f *FileBackend) Put(_ context.Context, key string, value []byte) error {
	target := f.path(key)
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage: create dir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "slot-*.tmp")
	if err != nil {
		return fmt.Errorf("storage: write %s: %w", key, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("storage: write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("storage: write %s: %w", key, err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("storage: write %s: %w", key, err)
	}
	return nil
}

// Delete implements Slot.
func (f *FileBackend) Delete(_ context.Context, key string) error {
	if err := os.Remove(f.path(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("storage: delete %s: %w", key, err)
	}
	return nil
}

// Close implements io.Closer.
func (f *FileBackend) Close() error { return nil }

// path maps a (possibly scoped) key to a file. Each "/" separated segment is escaped so keys can
// never walk out of the root directory.
func (f *FileBackend) path(key string) string {
	segments := strings.Split(key, "/")
	parts := make([]string, 0, len(segments)+1)
	parts = append(parts, f.dir)
	for _, seg := range segments {
		if seg == "" {
			continue
		}
		parts = append(parts, escapeSegment(seg)+".json")
	}
	if len(parts) == 1 {
		parts = append(parts, "_.json")
	}
	// only the final segment is a file; the others are directories
	for i := 1; i < len(parts)-1; i++ {
		parts[i] = strings.TrimSuffix(parts[i], ".json")
	}
	return filepath.Join(parts...)
}

func escapeSegment(seg string) string {
	switch seg {
	case ".", "..":
		return strings.ReplaceAll(seg, ".", "%2E")
	}
	return url.PathEscape(seg)
}
