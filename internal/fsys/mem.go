package fsys

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Mem is an in-memory FS. Directories are created explicitly with MkdirAll
// or implicitly by writing a file beneath them.
type Mem struct {
	mu    sync.RWMutex
	files map[string][]byte
	dirs  map[string]bool
}

var _ FS = (*Mem)(nil)

// NewMem returns an empty in-memory filesystem.
func NewMem() *Mem {
	return &Mem{
		files: make(map[string][]byte),
		dirs:  map[string]bool{".": true, "/": true},
	}
}

func clean(path string) string {
	return filepath.ToSlash(filepath.Clean(path))
}

func parentDirs(path string) []string {
	var out []string
	for dir := filepath.ToSlash(filepath.Dir(path)); ; dir = filepath.ToSlash(filepath.Dir(dir)) {
		out = append(out, dir)
		if dir == "." || dir == "/" {
			return out
		}
	}
}

// WriteFile stores data at path and creates its parent directories.
func (m *Mem) WriteFile(path string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := clean(path)
	m.files[p] = append([]byte(nil), data...)
	for _, d := range parentDirs(p) {
		m.dirs[d] = true
	}
}

// Remove deletes a file. It is a no-op for unknown paths.
func (m *Mem) Remove(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, clean(path))
}

func (m *Mem) ReadFile(path string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p := clean(path)
	data, ok := m.files[p]
	if !ok {
		return nil, &fs.PathError{Op: "read", Path: path, Err: fs.ErrNotExist}
	}
	return append([]byte(nil), data...), nil
}

func (m *Mem) WriteFileAtomic(path string, data []byte) error {
	p := clean(path)
	m.mu.RLock()
	parentOK := m.dirs[filepath.ToSlash(filepath.Dir(p))]
	m.mu.RUnlock()
	if !parentOK {
		return fmt.Errorf("fsys: write %s: %w", path, fs.ErrNotExist)
	}
	m.WriteFile(p, data)
	return nil
}

func (m *Mem) Stat(path string) (FileInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p := clean(path)
	if data, ok := m.files[p]; ok {
		return FileInfo{Name: filepath.Base(p), Size: int64(len(data))}, nil
	}
	if m.dirs[p] {
		return FileInfo{Name: filepath.Base(p), IsDir: true}, nil
	}
	return FileInfo{}, &fs.PathError{Op: "stat", Path: path, Err: fs.ErrNotExist}
}

func (m *Mem) ReadDir(dir string) ([]FileInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d := clean(dir)
	if !m.dirs[d] {
		return nil, &fs.PathError{Op: "readdir", Path: dir, Err: fs.ErrNotExist}
	}
	seen := map[string]bool{}
	var out []FileInfo
	for p, data := range m.files {
		if name, ok := childOf(d, p); ok && !seen[name] {
			seen[name] = true
			out = append(out, FileInfo{Name: name, Size: int64(len(data))})
		}
	}
	for p := range m.dirs {
		if name, ok := childOf(d, p); ok && !seen[name] {
			seen[name] = true
			out = append(out, FileInfo{Name: name, IsDir: true})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *Mem) MkdirAll(dir string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d := clean(dir)
	if _, isFile := m.files[d]; isFile {
		return fmt.Errorf("fsys: mkdir %s: not a directory", dir)
	}
	m.dirs[d] = true
	for _, p := range parentDirs(d) {
		m.dirs[p] = true
	}
	return nil
}

// childOf returns the name of p when p is a direct child of dir.
func childOf(dir, p string) (string, bool) {
	if p == dir {
		return "", false
	}
	var rest string
	switch dir {
	case ".":
		if strings.HasPrefix(p, "/") {
			return "", false
		}
		rest = p
	case "/":
		if !strings.HasPrefix(p, "/") {
			return "", false
		}
		rest = p[1:]
	default:
		if !strings.HasPrefix(p, dir+"/") {
			return "", false
		}
		rest = p[len(dir)+1:]
	}
	if rest == "" || strings.Contains(rest, "/") {
		return "", false
	}
	return rest, true
}
