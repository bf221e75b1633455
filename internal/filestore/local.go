// Package filestore keeps MIDI files addressed by the path recorded on
// their asset row.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"mess-o-midi-backend/internal/apperr"
)

// Store is a blob store for MIDI files. Paths are relative keys such as
// "{owner}_{project}_bass_3.mid".
type Store interface {
	Save(ctx context.Context, path string, r io.Reader) error
	Open(ctx context.Context, path string) (io.ReadCloser, error)
	// Remove treats a missing file as already removed.
	Remove(ctx context.Context, path string) error
	// Import adopts a file written on local disk by another process,
	// typically the generation service, under path.
	Import(ctx context.Context, localPath, path string) error
}

// Local stores files in a directory, usually a volume shared with the
// generation service.
type Local struct {
	root string
}

func NewLocal(root string) (*Local, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve upload dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}
	return &Local{root: abs}, nil
}

func (l *Local) Root() string {
	return l.root
}

func (l *Local) resolve(path string) (string, error) {
	if path == "" {
		return "", apperr.Validation("empty file path")
	}
	full := filepath.Join(l.root, filepath.Clean("/"+path))
	if full != l.root && !strings.HasPrefix(full, l.root+string(filepath.Separator)) {
		return "", apperr.Validation("file path escapes storage root")
	}
	return full, nil
}

func (l *Local) Save(_ context.Context, path string, r io.Reader) error {
	full, err := l.resolve(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrStorage, err)
	}

	f, err := os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("%w: %s already exists", apperr.ErrConflict, path)
		}
		return fmt.Errorf("%w: %v", apperr.ErrStorage, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(full)
		return fmt.Errorf("%w: %v", apperr.ErrStorage, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(full)
		return fmt.Errorf("%w: %v", apperr.ErrStorage, err)
	}
	return nil
}

func (l *Local) Open(_ context.Context, path string) (io.ReadCloser, error) {
	full, err := l.resolve(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if errors.Is(err, os.ErrNotExist) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrStorage, err)
	}
	return f, nil
}

func (l *Local) Remove(_ context.Context, path string) error {
	full, err := l.resolve(path)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %v", apperr.ErrStorage, err)
	}
	return nil
}

// Import moves localPath under the root. A file already in place is left
// alone.
func (l *Local) Import(ctx context.Context, localPath, path string) error {
	full, err := l.resolve(path)
	if err != nil {
		return err
	}
	src, err := filepath.Abs(localPath)
	if err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrStorage, err)
	}
	if src == full {
		if _, err := os.Stat(full); err != nil {
			return fmt.Errorf("%w: generated file missing: %v", apperr.ErrStorage, err)
		}
		return nil
	}

	if _, err := os.Stat(full); err == nil {
		return fmt.Errorf("%w: %s already exists", apperr.ErrConflict, path)
	}
	if err := os.Rename(src, full); err == nil {
		return nil
	}

	// Rename fails across devices; fall back to copy and delete.
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("%w: generated file missing: %v", apperr.ErrStorage, err)
	}
	defer in.Close()
	if err := l.Save(ctx, path, in); err != nil {
		return err
	}
	os.Remove(src)
	return nil
}
