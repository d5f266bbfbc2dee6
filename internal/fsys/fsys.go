// Package fsys is the narrow filesystem surface shared by the substitution and
// validation engines. Production code uses OS; tests use Mem.
//
// Missing paths always surface as errors satisfying errors.Is(err, fs.ErrNotExist).
package fsys

import (
	"errors"
	"io/fs"
)

// FileInfo is the subset of file metadata the engines need.
type FileInfo struct {
	Name  string
	Size  int64
	IsDir bool
}

// FS reads and atomically writes files of an analysis tree.
type FS interface {
	ReadFile(path string) ([]byte, error)
	// WriteFileAtomic replaces path so that a concurrent reader sees either the
	// old or the new content, never a partial write.
	WriteFileAtomic(path string, data []byte) error
	Stat(path string) (FileInfo, error)
	// ReadDir returns the direct children of dir sorted by name.
	ReadDir(dir string) ([]FileInfo, error)
	MkdirAll(dir string) error
}

// Exists reports whether path exists.
func Exists(f FS, path string) bool {
	_, err := f.Stat(path)
	return err == nil
}

// IsDir reports whether path exists and is a directory.
func IsDir(f FS, path string) bool {
	info, err := f.Stat(path)
	return err == nil && info.IsDir
}

// IsNotExist reports whether err signals a missing path.
func IsNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
