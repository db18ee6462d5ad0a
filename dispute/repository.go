package dispute

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound signals no dispute exists for the deal.
	ErrNotFound = errors.New("dispute: not found")
	// ErrAlreadyExists signals the deal already has a dispute.
	ErrAlreadyExists = errors.New("dispute: already exists for deal")
	// ErrAlreadyResolved signals the dispute was settled before.
	ErrAlreadyResolved = errors.New("dispute: already resolved")
)

// Repository is the injected persistence abstraction for disputes.
type Repository interface {
	Create(ctx context.Context, d Dispute) (Dispute, error)
	GetByDeal(ctx context.Context, dealID int64) (Dispute, error)
	AppendMessage(ctx context.Context, dealID int64, msg Message) (Dispute, error)
	Resolve(ctx context.Context, dealID int64, resolution string, resolvedBy int64, at time.Time) (Dispute, error)
	ListOpen(ctx context.Context) ([]Dispute, error)
}
