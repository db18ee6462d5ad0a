package deal

import (
	"context"
	"sync"
	"time"
)

// MemoryRepository keeps deals in process. One lock serializes all writes,
// so Mutate is a true atomic read-modify-write and listings never observe a
// partially mutated record. Ids are assigned monotonically; listings come
// back in insertion order.
type MemoryRepository struct {
	mu     sync.RWMutex
	byID   map[int64]Deal
	order  []int64
	nextID int64
}

// NewMemoryRepository creates an empty in-memory deal store.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byID: make(map[int64]Deal)}
}

func (r *MemoryRepository) Create(ctx context.Context, d Deal) (Deal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	d.ID = r.nextID
	d.CreatedAt = time.Now().UTC()
	r.byID[d.ID] = d
	r.order = append(r.order, d.ID)
	return d, nil
}

func (r *MemoryRepository) Get(ctx context.Context, id int64) (Deal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.byID[id]
	if !ok {
		return Deal{}, ErrNotFound
	}
	return d, nil
}

// Mutate runs fn against a copy of the deal and commits the copy only when
// fn succeeds, keeping failed validations free of partial writes.
func (r *MemoryRepository) Mutate(ctx context.Context, id int64, fn func(*Deal) error) (Deal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.byID[id]
	if !ok {
		return Deal{}, ErrNotFound
	}

	if err := fn(&d); err != nil {
		return Deal{}, err
	}

	r.byID[id] = d
	return d, nil
}

func (r *MemoryRepository) ListForUser(ctx context.Context, userID int64) ([]Deal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Deal, 0, 8)
	for _, id := range r.order {
		d := r.byID[id]
		if d.CreatorID == userID || d.IsParticipant(userID) {
			out = append(out, d)
		}
	}
	return out, nil
}
