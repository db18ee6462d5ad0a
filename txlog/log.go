package txlog

import (
	"context"
	"errors"
	"time"
)

// Type classifies a monetary event.
type Type string

const (
	TypeEscrowDeposit     Type = "escrow_deposit"
	TypePayout            Type = "payout"
	TypeDisputeResolution Type = "dispute_resolution"
)

// Record is an immutable monetary event tied to a deal. Records are never
// updated or deleted; the log is the audit trail.
type Record struct {
	ID         string
	DealID     int64
	Type       Type
	Amount     int64
	ReleasedTo string
	CreatedAt  time.Time
}

var (
	// ErrInvalidType rejects appends with an unknown event type.
	ErrInvalidType = errors.New("txlog: invalid transaction type")
	// ErrInvalidAmount rejects non-positive amounts.
	ErrInvalidAmount = errors.New("txlog: amount must be positive")
)

// Log is the append-only transaction store. No update or delete operations
// are exposed.
type Log interface {
	Append(ctx context.Context, rec Record) (Record, error)
	ListForDeal(ctx context.Context, dealID int64) ([]Record, error)
}

func validate(rec Record) error {
	switch rec.Type {
	case TypeEscrowDeposit, TypePayout, TypeDisputeResolution:
	default:
		return ErrInvalidType
	}
	if rec.Amount <= 0 {
		return ErrInvalidAmount
	}
	return nil
}
