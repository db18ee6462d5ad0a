package txlog

import (
	"context"
	"sync"
	"time"

	"escrowflow/ids"
)

// MemoryLog keeps the transaction trail in process, in append order.
type MemoryLog struct {
	mu   sync.RWMutex
	recs []Record
}

// NewMemoryLog creates an empty in-memory transaction log.
func NewMemoryLog() *MemoryLog {
	return &MemoryLog{}
}

func (l *MemoryLog) Append(ctx context.Context, rec Record) (Record, error) {
	if err := validate(rec); err != nil {
		return Record{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	rec.ID = ids.New()
	rec.CreatedAt = time.Now().UTC()
	l.recs = append(l.recs, rec)
	return rec, nil
}

func (l *MemoryLog) ListForDeal(ctx context.Context, dealID int64) ([]Record, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Record, 0, 4)
	for _, rec := range l.recs {
		if rec.DealID == dealID {
			out = append(out, rec)
		}
	}
	return out, nil
}
