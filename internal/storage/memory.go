package storage

import (
	"context"
	"sync"
)

type MemoryStorage struct {
	mu       sync.RWMutex
	sessions map[string]map[string]string
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{sessions: make(map[string]map[string]string)}
}

func (m *MemoryStorage) Get(_ context.Context, sessionID, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, ok := m.sessions[sessionID][key]
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}

func (m *MemoryStorage) Set(_ context.Context, sessionID, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	values, ok := m.sessions[sessionID]
	if !ok {
		values = make(map[string]string)
		m.sessions[sessionID] = values
	}
	values[key] = value
	return nil
}

func (m *MemoryStorage) Delete(_ context.Context, sessionID string, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.sessions[sessionID], key)
	}
	return nil
}

func (m *MemoryStorage) Destroy(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
	return nil
}
