package assemble

import (
	"path/filepath"
	"sync"

	"tracekit/internal/fsys"
)

// overlay records writes in memory and reads through to base. Dry runs use
// it so that later steps see the output of earlier ones.
type overlay struct {
	base fsys.FS

	mu     sync.RWMutex
	writes map[string][]byte
}

func newOverlay(base fsys.FS) *overlay {
	return &overlay{base: base, writes: make(map[string][]byte)}
}

func (o *overlay) ReadFile(path string) ([]byte, error) {
	o.mu.RLock()
	data, ok := o.writes[filepath.Clean(path)]
	o.mu.RUnlock()
	if ok {
		return append([]byte(nil), data...), nil
	}
	return o.base.ReadFile(path)
}

func (o *overlay) WriteFileAtomic(path string, data []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.writes[filepath.Clean(path)] = append([]byte(nil), data...)
	return nil
}

func (o *overlay) Stat(path string) (fsys.FileInfo, error) {
	o.mu.RLock()
	data, ok := o.writes[filepath.Clean(path)]
	o.mu.RUnlock()
	if ok {
		return fsys.FileInfo{Name: filepath.Base(path), Size: int64(len(data))}, nil
	}
	return o.base.Stat(path)
}

func (o *overlay) ReadDir(dir string) ([]fsys.FileInfo, error) {
	return o.base.ReadDir(dir)
}

func (o *overlay) MkdirAll(string) error { return nil }
