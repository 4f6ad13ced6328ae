// Package output persists build artifacts. Every write goes through a
// temporary sibling file that is renamed into place, so a reader never sees
// a partially written artifact.
package output

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/conneroisu/svgsprite/internal/errors"
	"github.com/spf13/afero"
)

// Writer stores artifact bytes at a path.
type Writer interface {
	Write(ctx context.Context, path string, data []byte) error
}

// FSWriter writes artifacts to an afero filesystem.
type FSWriter struct {
	fs       afero.Fs
	dirPerm  os.FileMode
	filePerm os.FileMode
}

// NewFSWriter returns a writer over fs. A nil fs writes to the OS
// filesystem.
func NewFSWriter(fs afero.Fs) *FSWriter {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &FSWriter{fs: fs, dirPerm: 0755, filePerm: 0644}
}

// Write creates the parent directories of path and atomically replaces the
// file with data.
func (w *FSWriter) Write(ctx context.Context, path string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return errors.NewWriteError(path, err)
	}

	cleanPath := filepath.Clean(path)
	dir := filepath.Dir(cleanPath)
	if err := w.fs.MkdirAll(dir, w.dirPerm); err != nil {
		return errors.NewWriteError(path, fmt.Errorf("failed to create directory: %w", err))
	}

	tmp, err := afero.TempFile(w.fs, dir, "."+filepath.Base(cleanPath)+".*.tmp")
	if err != nil {
		return errors.NewWriteError(path, fmt.Errorf("failed to create temp file: %w", err))
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = w.fs.Remove(tmpName)
		return errors.NewWriteError(path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = w.fs.Remove(tmpName)
		return errors.NewWriteError(path, err)
	}
	if err := w.fs.Chmod(tmpName, w.filePerm); err != nil {
		_ = w.fs.Remove(tmpName)
		return errors.NewWriteError(path, err)
	}
	if err := w.fs.Rename(tmpName, cleanPath); err != nil {
		_ = w.fs.Remove(tmpName)
		return errors.NewWriteError(path, fmt.Errorf("failed to move artifact into place: %w", err))
	}

	return nil
}
