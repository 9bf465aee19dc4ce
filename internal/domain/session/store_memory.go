package session

import (
	"context"
	"sync"
)

// MemoryStore — хранилище сессий в памяти процесса. Используется в тестах и
// как референс семантики контракта Store; персистентности нет.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[int64]Session
}

// NewMemoryStore создаёт пустое in-memory хранилище.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[int64]Session)}
}

// Exists сообщает о наличии сессии пользователя.
func (m *MemoryStore) Exists(_ context.Context, userID int64) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.sessions[userID]
	return ok, nil
}

// Get возвращает сессию или ErrNotFound.
func (m *MemoryStore) Get(_ context.Context, userID int64) (Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[userID]
	if !ok {
		return Session{}, ErrNotFound
	}
	return s, nil
}

// Put записывает сессию, заменяя прежнюю. Значение копируется присваиванием,
// полузаписанных состояний под RWMutex не бывает.
func (m *MemoryStore) Put(_ context.Context, s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.UserID] = s
	return nil
}

// Delete удаляет сессию; повторное удаление — no-op.
func (m *MemoryStore) Delete(_ context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, userID)
	return nil
}

// Close ничего не освобождает: ресурсов нет.
func (m *MemoryStore) Close() error { return nil }
