package repository

import (
	"context"
	"errors"
	"strings"
	"sync"

	"financial-planner/internal/domain"
)

// MemoryStore keeps session history in process memory for local runs.
// Each session retains at most maxTurns turns.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string][]domain.Turn
	maxTurns int
}

func NewMemoryStore(maxTurns int) *MemoryStore {
	if maxTurns <= 0 {
		maxTurns = 50
	}
	return &MemoryStore{sessions: make(map[string][]domain.Turn), maxTurns: maxTurns}
}

func (m *MemoryStore) GetHistory(_ context.Context, sessionID string, limit int) ([]domain.Turn, error) {
	if limit <= 0 {
		return nil, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	turns := m.sessions[sessionID]
	if len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	return append([]domain.Turn(nil), turns...), nil
}

func (m *MemoryStore) SaveTurn(_ context.Context, sessionID, message, reply string) error {
	if strings.TrimSpace(sessionID) == "" {
		return errors.New("repository: SaveTurn: session id is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	turns := append(m.sessions[sessionID], domain.Turn{
		PK:        sessionPK(sessionID),
		SessionID: sessionID,
		Message:   message,
		Reply:     reply,
		Status:    statusComplete,
	})
	if len(turns) > m.maxTurns {
		turns = turns[len(turns)-m.maxTurns:]
	}
	m.sessions[sessionID] = turns
	return nil
}
