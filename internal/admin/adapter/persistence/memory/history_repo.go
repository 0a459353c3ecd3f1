package memory

import (
	"context"
	"sync"

	"kinto-admin/internal/admin/domain/model"
)

// HistoryRepository keeps server histories in memory
type HistoryRepository struct {
	mu      sync.RWMutex
	entries map[string][]string
	limit   int
}

// NewHistoryRepository creates a history capped at limit servers per client
func NewHistoryRepository(limit int) *HistoryRepository {
	return &HistoryRepository{entries: make(map[string][]string), limit: limit}
}

func (r *HistoryRepository) Get(_ context.Context, clientID string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string{}, r.entries[clientID]...), nil
}

func (r *HistoryRepository) Add(_ context.Context, clientID, server string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	history := model.PrependServer(r.entries[clientID], server, r.limit)
	r.entries[clientID] = history
	return append([]string{}, history...), nil
}

func (r *HistoryRepository) Clear(_ context.Context, clientID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, clientID)
	return nil
}
