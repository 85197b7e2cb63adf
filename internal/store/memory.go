package store

import (
	"context"
	"sync"

	"plc-copilot/internal/types"
)

type MemoryStore struct {
	mu          sync.RWMutex
	sessions    map[string][]types.Message
	themes      map[string]string
	maxMessages int
}

// NewMemoryStore keeps at most maxMessages per session; 0 keeps everything.
func NewMemoryStore(maxMessages int) *MemoryStore {
	return &MemoryStore{
		sessions:    make(map[string][]types.Message),
		themes:      make(map[string]string),
		maxMessages: maxMessages,
	}
}

func (m *MemoryStore) Append(_ context.Context, sessionID string, msg types.Message) error {
	if err := checkSession(sessionID); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sessionID] = append(m.sessions[sessionID], msg)
	m.trimLocked(sessionID)
	return nil
}

func (m *MemoryStore) History(_ context.Context, sessionID string) ([]types.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	msgs := m.sessions[sessionID]
	copyMsgs := make([]types.Message, len(msgs))
	copy(copyMsgs, msgs)
	return copyMsgs, nil
}

func (m *MemoryStore) Clear(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
	return nil
}

func (m *MemoryStore) Theme(_ context.Context, sessionID string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if t, ok := m.themes[sessionID]; ok {
		return t, nil
	}
	return DefaultTheme, nil
}

func (m *MemoryStore) SetTheme(_ context.Context, sessionID, theme string) error {
	if err := checkSession(sessionID); err != nil {
		return err
	}
	t, err := NormalizeTheme(theme)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.themes[sessionID] = t
	return nil
}

func (m *MemoryStore) Close() error { return nil }

func (m *MemoryStore) trimLocked(sessionID string) {
	if m.maxMessages <= 0 {
		return
	}
	msgs := m.sessions[sessionID]
	if len(msgs) > m.maxMessages {
		m.sessions[sessionID] = msgs[len(msgs)-m.maxMessages:]
	}
}
