package dispute

import "time"

// Status represents the lifecycle of a dispute record.
type Status string

const (
	StatusOpen     Status = "open"
	StatusResolved Status = "resolved"
)

// Message is one entry in a dispute's ordered conversation.
type Message struct {
	UserID    int64
	Body      string
	CreatedAt time.Time
}

// Dispute escalates a deal, locking release until an administrator settles
// it. A deal has at most one dispute, keyed by deal id.
type Dispute struct {
	ID         string
	DealID     int64
	RaisedBy   int64
	Reason     string
	Status     Status
	Messages   []Message
	Resolution string
	ResolvedBy *int64
	CreatedAt  time.Time
	ResolvedAt *time.Time
}
