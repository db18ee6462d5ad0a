package invite

import (
	"context"
	"sync"
)

// MemoryRegistry is the in-process registry implementation. Register is a
// compare-and-insert under one lock, so concurrent allocations of the same
// code cannot both succeed.
type MemoryRegistry struct {
	mu    sync.Mutex
	codes map[string]int64
}

// NewMemoryRegistry creates an empty in-memory invite registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{codes: make(map[string]int64)}
}

func (r *MemoryRegistry) Register(ctx context.Context, code string, dealID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.codes[code]; exists {
		return ErrCodeExists
	}
	r.codes[code] = dealID
	return nil
}

func (r *MemoryRegistry) Lookup(ctx context.Context, code string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	dealID, ok := r.codes[Normalize(code)]
	if !ok {
		return 0, ErrCodeNotFound
	}
	return dealID, nil
}

func (r *MemoryRegistry) Consume(ctx context.Context, code string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	normalized := Normalize(code)
	dealID, ok := r.codes[normalized]
	if !ok {
		return 0, ErrCodeNotFound
	}
	delete(r.codes, normalized)
	return dealID, nil
}
