package notify

import (
	"context"
	"sync"
	"time"

	"escrowflow/ids"
)

// MemorySink keeps notifications in process, per user, in delivery order.
type MemorySink struct {
	mu     sync.RWMutex
	byUser map[int64][]Notification
}

// NewMemorySink creates an empty in-memory notification sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{byUser: make(map[int64][]Notification)}
}

func (s *MemorySink) Push(ctx context.Context, n Notification) (Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n.ID = ids.New()
	n.Read = false
	n.CreatedAt = time.Now().UTC()
	s.byUser[n.UserID] = append(s.byUser[n.UserID], n)
	return n, nil
}

func (s *MemorySink) ListForUser(ctx context.Context, userID int64) ([]Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Notification, len(s.byUser[userID]))
	copy(out, s.byUser[userID])
	return out, nil
}

func (s *MemorySink) MarkRead(ctx context.Context, userID int64, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	queue := s.byUser[userID]
	for i := range queue {
		if queue[i].ID == id {
			queue[i].Read = true
			return nil
		}
	}
	return ErrNotFound
}
