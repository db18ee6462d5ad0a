package notify

import (
	"context"
	"errors"
	"time"
)

const (
	// TypeInvitation is sent to a user invited to a deal by username.
	TypeInvitation = "deal_invitation"
	// TypeDisputeOpened is sent to the counterparty when a dispute is raised.
	TypeDisputeOpened = "dispute_opened"
	// TypeDisputeResolved is sent to both parties after resolution.
	TypeDisputeResolved = "dispute_resolved"
)

// Notification is a fire-and-forget notice owned by its recipient. The read
// flag is the only mutable field.
type Notification struct {
	ID        string
	UserID    int64
	DealID    int64
	Type      string
	Message   string
	Read      bool
	CreatedAt time.Time
}

// ErrNotFound signals the notification does not exist or belongs to another
// user.
var ErrNotFound = errors.New("notify: notification not found")

// Sink is the per-user notification queue.
type Sink interface {
	Push(ctx context.Context, n Notification) (Notification, error)
	ListForUser(ctx context.Context, userID int64) ([]Notification, error)
	MarkRead(ctx context.Context, userID int64, id string) error
}
