package source

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

var _ Source = (*Memory)(nil)

// Memory is an in-memory source, primarily for tests.
type Memory struct {
	mu    sync.RWMutex
	files map[string]memoryFile
}

type memoryFile struct {
	data    []byte
	modTime time.Time
}

// NewMemory constructs an empty in-memory source.
func NewMemory() *Memory {
	return &Memory{files: make(map[string]memoryFile)}
}

// Add stores content under key, replacing any previous content.
func (m *Memory) Add(key string, content []byte) error {
	clean, err := sanitizeKey(key)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	data := make([]byte, len(content))
	copy(data, content)
	m.files[clean] = memoryFile{data: data, modTime: time.Now().UTC()}
	return nil
}

func (m *Memory) Driver() Driver { return DriverMemory }

func (m *Memory) List(_ context.Context) ([]File, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	files := make([]File, 0, len(m.files))
	for key, f := range m.files {
		if !isSQL(key) {
			continue
		}
		files = append(files, File{Key: key, Size: int64(len(f.data)), ModTime: f.modTime})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Key < files[j].Key })
	return files, nil
}

func (m *Memory) Read(_ context.Context, key string) ([]byte, error) {
	clean, err := sanitizeKey(key)
	if err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.files[clean]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotExist, key)
	}
	data := make([]byte, len(f.data))
	copy(data, f.data)
	return data, nil
}
