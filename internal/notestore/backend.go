package notestore

import (
	"maps"
	"slices"
	"sync"

	"github.com/starford/quill/internal/models"
)

// Backend is the persistence boundary behind a Store. Any store offering
// get/put/delete by id and a full scan can back the collection; order of
// List results does not matter.
type Backend interface {
	Get(id string) (models.Note, bool, error)
	Put(n models.Note) error
	Delete(id string) error
	List() ([]models.Note, error)
}

// MemoryBackend keeps notes for the lifetime of the process.
type MemoryBackend struct {
	mu    sync.RWMutex
	notes map[string]models.Note
}

// NewMemoryBackend returns an empty MemoryBackend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{notes: make(map[string]models.Note)}
}

func (m *MemoryBackend) Get(id string) (models.Note, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.notes[id]
	return n.Clone(), ok, nil
}

func (m *MemoryBackend) Put(n models.Note) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notes[n.ID] = n.Clone()
	return nil
}

func (m *MemoryBackend) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.notes, id)
	return nil
}

func (m *MemoryBackend) List() ([]models.Note, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Note, 0, len(m.notes))
	for _, id := range slices.Sorted(maps.Keys(m.notes)) {
		out = append(out, m.notes[id].Clone())
	}
	return out, nil
}
