package dispute

import (
	"context"
	"sync"
	"time"

	"escrowflow/ids"
)

// MemoryRepository keeps disputes in process, keyed by deal id.
type MemoryRepository struct {
	mu     sync.RWMutex
	byDeal map[int64]Dispute
	order  []int64
}

// NewMemoryRepository creates an empty in-memory dispute store.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byDeal: make(map[int64]Dispute)}
}

func (r *MemoryRepository) Create(ctx context.Context, d Dispute) (Dispute, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byDeal[d.DealID]; exists {
		return Dispute{}, ErrAlreadyExists
	}

	d.ID = ids.New()
	d.Status = StatusOpen
	d.CreatedAt = time.Now().UTC()
	r.byDeal[d.DealID] = d
	r.order = append(r.order, d.DealID)
	return d, nil
}

func (r *MemoryRepository) GetByDeal(ctx context.Context, dealID int64) (Dispute, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.byDeal[dealID]
	if !ok {
		return Dispute{}, ErrNotFound
	}
	return copyDispute(d), nil
}

func (r *MemoryRepository) AppendMessage(ctx context.Context, dealID int64, msg Message) (Dispute, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.byDeal[dealID]
	if !ok {
		return Dispute{}, ErrNotFound
	}

	msg.CreatedAt = time.Now().UTC()
	d.Messages = append(d.Messages, msg)
	r.byDeal[dealID] = d
	return copyDispute(d), nil
}

func (r *MemoryRepository) Resolve(ctx context.Context, dealID int64, resolution string, resolvedBy int64, at time.Time) (Dispute, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.byDeal[dealID]
	if !ok {
		return Dispute{}, ErrNotFound
	}
	if d.Status == StatusResolved {
		return Dispute{}, ErrAlreadyResolved
	}

	d.Status = StatusResolved
	d.Resolution = resolution
	d.ResolvedBy = &resolvedBy
	d.ResolvedAt = &at
	r.byDeal[dealID] = d
	return copyDispute(d), nil
}

func (r *MemoryRepository) ListOpen(ctx context.Context) ([]Dispute, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Dispute, 0, 4)
	for _, dealID := range r.order {
		if d := r.byDeal[dealID]; d.Status == StatusOpen {
			out = append(out, copyDispute(d))
		}
	}
	return out, nil
}

// copyDispute detaches the message slice so callers never observe a
// partially appended conversation.
func copyDispute(d Dispute) Dispute {
	msgs := make([]Message, len(d.Messages))
	copy(msgs, d.Messages)
	d.Messages = msgs
	return d
}
