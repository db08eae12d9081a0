package idempotency

import (
	"context"
	"sync"
	"time"
)

// InMemoryRepository keeps idempotency keys in a map. It backs tests and the
// dev server when Postgres is not configured.
type InMemoryRepository struct {
	mu   sync.RWMutex
	keys map[string]*IdempotencyKey
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{keys: make(map[string]*IdempotencyKey)}
}

// Get implements Repository. The returned record is a copy; callers can
// mutate it freely.
func (r *InMemoryRepository) Get(_ context.Context, key string) (*IdempotencyKey, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, ok := r.keys[key]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return record.clone(), nil
}

// Store implements Repository. A zero CreatedAt is filled in with the current
// time, matching what the Postgres repository does.
func (r *InMemoryRepository) Store(_ context.Context, record *IdempotencyKey) error {
	if err := ValidateKey(record.Key); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.keys[record.Key]; exists {
		return ErrKeyExists
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}
	r.keys[record.Key] = record.clone()
	return nil
}

// DeleteOlderThan implements Repository.
func (r *InMemoryRepository) DeleteOlderThan(_ context.Context, age time.Duration) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := time.Now().Add(-age)
	var deleted int64
	for key, record := range r.keys {
		if record.CreatedAt.Before(cutoff) {
			delete(r.keys, key)
			deleted++
		}
	}
	return deleted, nil
}
