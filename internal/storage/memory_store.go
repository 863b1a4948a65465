package storage

import (
	"sync"

	"github.com/annel0/voxel-world/internal/vec"
)

// MemoryStore хранит записи в памяти процесса
type MemoryStore struct {
	mu      sync.RWMutex
	records map[vec.Vec2][]byte
	closed  bool
}

// NewMemoryStore создаёт пустое хранилище в памяти
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[vec.Vec2][]byte)}
}

func (m *MemoryStore) Load(coords vec.Vec2) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	data, ok := m.records[coords]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

func (m *MemoryStore) Save(coords vec.Vec2, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.records[coords] = append([]byte(nil), data...)
	return nil
}

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Len возвращает количество сохранённых записей
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}
