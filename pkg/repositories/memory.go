package repositories

import (
	"context"
	"sync"
)

// InMemoryRepository is a non-persistent Repository used in tests and
// when no cache path is configured.
type InMemoryRepository struct {
	mu     sync.Mutex
	record *SessionRecord
}

var _ Repository = (*InMemoryRepository)(nil)

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{}
}

func (r *InMemoryRepository) Close(ctx context.Context) error {
	return nil
}

func (r *InMemoryRepository) SaveSession(ctx context.Context, record SessionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record = &record
	return nil
}

func (r *InMemoryRepository) LoadLastSession(ctx context.Context) (*SessionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.record == nil {
		return nil, &ErrNotFound{}
	}
	record := *r.record
	return &record, nil
}
