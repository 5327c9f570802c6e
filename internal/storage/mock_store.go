package storage

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/TheMichaelB/mediavault/internal/models"
)

// MockStore provides an in-memory BlobStore for testing. Individual
// paths can be set to fail to exercise error handling.
type MockStore struct {
	mu       sync.RWMutex
	files    map[string][]byte
	dirs     map[string]bool
	failures map[string]error
	readHook func(path string)
}

// NewMockStore creates a mock blob store.
func NewMockStore() *MockStore {
	return &MockStore{
		files:    make(map[string][]byte),
		dirs:     make(map[string]bool),
		failures: make(map[string]error),
	}
}

// FailWith makes every operation on path return err.
func (m *MockStore) FailWith(path string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[path] = err
}

// Corrupt flips the first byte of a stored file.
func (m *MockStore) Corrupt(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if data, ok := m.files[path]; ok && len(data) > 0 {
		data[0] ^= 0xFF
	}
}

func (m *MockStore) Write(path string, data []byte, mode os.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failures[path]; err != nil {
		return err
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	m.files[path] = cp
	return nil
}

// SetReadHook installs a callback run before each Read, outside the
// mock's lock. Used to interleave mutations mid-operation.
func (m *MockStore) SetReadHook(hook func(path string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readHook = hook
}

func (m *MockStore) Read(path string) ([]byte, error) {
	m.mu.RLock()
	hook := m.readHook
	m.mu.RUnlock()
	if hook != nil {
		hook(path)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failures[path]; err != nil {
		return nil, err
	}
	data, ok := m.files[path]
	if !ok {
		return nil, models.ErrItemNotFound
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}

func (m *MockStore) Delete(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failures[path]; err != nil {
		return err
	}
	delete(m.files, path)
	return nil
}

func (m *MockStore) Exists(path string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.files[path]
	return ok, nil
}

func (m *MockStore) ListDir(path string) ([]FileInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	prefix := strings.TrimSuffix(path, "/") + "/"
	var files []FileInfo
	for p, data := range m.files {
		if strings.HasPrefix(p, prefix) && !strings.Contains(strings.TrimPrefix(p, prefix), "/") {
			files = append(files, FileInfo{
				Path:    filepath.ToSlash(p),
				Size:    int64(len(data)),
				ModTime: time.Now(),
			})
		}
	}
	return files, nil
}

func (m *MockStore) EnsureDir(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dirs[path] = true
	return nil
}
