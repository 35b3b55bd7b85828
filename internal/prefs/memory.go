package prefs

import (
	"context"
	"sync"
	"time"

	"github.com/starford/quill/internal/apperr"
	"github.com/starford/quill/internal/models"
)

type savedTheme struct {
	mode models.ThemeMode
	at   time.Time
}

// MemoryRepository is a Repository for the in-memory storage driver.
type MemoryRepository struct {
	mu     sync.RWMutex
	users  map[string]models.User
	themes map[string]savedTheme
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		users:  make(map[string]models.User),
		themes: make(map[string]savedTheme),
	}
}

func (m *MemoryRepository) UpsertUser(_ context.Context, u models.User) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.users[u.ExternalID]; ok {
		u.ID = cur.ID
		u.CreatedAt = cur.CreatedAt
	}
	m.users[u.ExternalID] = u
	return u, nil
}

func (m *MemoryRepository) UserByExternalID(_ context.Context, externalID string) (models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[externalID]
	if !ok {
		return models.User{}, apperr.NotFound("user", externalID)
	}
	return u, nil
}

func (m *MemoryRepository) SaveThemeMode(_ context.Context, externalID string, mode models.ThemeMode, at time.Time) error {
	m.mu.Lock()
	m.themes[externalID] = savedTheme{mode: mode, at: at}
	m.mu.Unlock()
	return nil
}

func (m *MemoryRepository) ThemeMode(_ context.Context, externalID string) (models.ThemeMode, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.themes[externalID]
	return t.mode, ok, nil
}
