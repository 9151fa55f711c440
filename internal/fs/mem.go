package fs

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sync"
)

var (
	// ErrNotExist is returned when a file does not exist
	ErrNotExist = errors.New("file does not exist")
)

// MemFileSystem is an in-memory FileSystem for testing.
// Writes fail unless the parent directory was created with MkdirAll,
// matching the behaviour of the OS implementation.
type MemFileSystem struct {
	mu    sync.RWMutex
	files map[string][]byte
	dirs  map[string]bool
}

// NewMemFileSystem creates a new in-memory filesystem
func NewMemFileSystem() *MemFileSystem {
	return &MemFileSystem{
		files: make(map[string][]byte),
		dirs:  map[string]bool{"/": true, ".": true},
	}
}

// MkdirAll creates a directory and all necessary parents
func (f *MemFileSystem) MkdirAll(path string, perm fs.FileMode) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for dir := filepath.Clean(path); ; dir = filepath.Dir(dir) {
		if _, isFile := f.files[dir]; isFile {
			return fmt.Errorf("mkdir %s: not a directory", dir)
		}
		f.dirs[dir] = true
		if parent := filepath.Dir(dir); parent == dir {
			break
		}
	}
	return nil
}

// ReadFile returns a copy of the file contents
func (f *MemFileSystem) ReadFile(name string) ([]byte, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	data, ok := f.files[filepath.Clean(name)]
	if !ok {
		return nil, fmt.Errorf("open %s: %w", name, ErrNotExist)
	}
	return append([]byte(nil), data...), nil
}

// WriteFileAtomic replaces the file contents in one step
func (f *MemFileSystem) WriteFileAtomic(name string, data []byte, perm fs.FileMode) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	name = filepath.Clean(name)
	if !f.dirs[filepath.Dir(name)] {
		return fmt.Errorf("write %s: parent directory: %w", name, ErrNotExist)
	}
	f.files[name] = append([]byte(nil), data...)
	return nil
}

// IsNotExist returns true if the error indicates a file doesn't exist
func (f *MemFileSystem) IsNotExist(err error) bool {
	return errors.Is(err, ErrNotExist)
}
