package dispute

import (
	"context"
	"errors"
	"fmt"
	"time"

	"escrowflow/deal"
	"escrowflow/identity"
	"escrowflow/notify"
)

var (
	// ErrAdminRequired signals resolution was attempted without the admin
	// capability.
	ErrAdminRequired = errors.New("dispute: admin role required")
	// ErrReasonRequired rejects disputes raised without a reason.
	ErrReasonRequired = errors.New("dispute: reason required")
	// ErrEmptyMessage rejects blank dispute messages.
	ErrEmptyMessage = errors.New("dispute: message body required")
)

// DealLedger is the slice of the deal engine the dispute engine drives.
type DealLedger interface {
	MarkDisputed(ctx context.Context, actorID, dealID int64) (deal.Deal, error)
	ReleaseDisputed(ctx context.Context, dealID int64, releasedTo deal.Role) (deal.Deal, error)
}

// Notifier delivers dispute notices. Delivery is best-effort.
type Notifier interface {
	Push(ctx context.Context, n notify.Notification) (notify.Notification, error)
}

// Service layers the dispute lifecycle on top of the deal ledger.
type Service struct {
	repo    Repository
	deals   DealLedger
	notices Notifier
	now     func() time.Time
}

// NewService wires the dispute engine.
func NewService(repo Repository, deals DealLedger, notices Notifier) *Service {
	return &Service{
		repo:    repo,
		deals:   deals,
		notices: notices,
		now:     time.Now,
	}
}

// WithClock overrides the timestamp source. Intended for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Raise opens a dispute on a deal. The deal engine validates that the actor
// is a participant and that the deal awaits confirmation; the dispute
// record is created only after that transition commits.
func (s *Service) Raise(ctx context.Context, userID, dealID int64, reason string) (Dispute, error) {
	if reason == "" {
		return Dispute{}, ErrReasonRequired
	}

	disputed, err := s.deals.MarkDisputed(ctx, userID, dealID)
	if err != nil {
		return Dispute{}, err
	}

	created, err := s.repo.Create(ctx, Dispute{
		DealID:   dealID,
		RaisedBy: userID,
		Reason:   reason,
	})
	if err != nil {
		return Dispute{}, err
	}

	if other := counterparty(disputed, userID); other != 0 {
		_, _ = s.notices.Push(ctx, notify.Notification{
			UserID:  other,
			DealID:  dealID,
			Type:    notify.TypeDisputeOpened,
			Message: fmt.Sprintf("A dispute was opened on deal #%d: %s", dealID, reason),
		})
	}

	return created, nil
}

// AddMessage appends to the dispute's ordered conversation. The poster is
// not checked for deal membership; the source behaves the same way.
func (s *Service) AddMessage(ctx context.Context, userID, dealID int64, body string) (Dispute, error) {
	if body == "" {
		return Dispute{}, ErrEmptyMessage
	}
	return s.repo.AppendMessage(ctx, dealID, Message{UserID: userID, Body: body})
}

// GetByDeal fetches the dispute for a deal, if any.
func (s *Service) GetByDeal(ctx context.Context, dealID int64) (Dispute, error) {
	return s.repo.GetByDeal(ctx, dealID)
}

// ListOpen returns all unresolved disputes for the administrative view.
func (s *Service) ListOpen(ctx context.Context) ([]Dispute, error) {
	return s.repo.ListOpen(ctx)
}

// Resolve settles a dispute in favor of one side. The admin capability is
// an explicit parameter: callers without it are rejected before any
// mutation.
func (s *Service) Resolve(ctx context.Context, actorID int64, actorRole identity.Role, dealID int64, releaseTo deal.Role) (Dispute, error) {
	if actorRole != identity.RoleAdmin {
		return Dispute{}, ErrAdminRequired
	}
	if !releaseTo.Valid() {
		return Dispute{}, fmt.Errorf("dispute: invalid release target %q", releaseTo)
	}

	if _, err := s.repo.GetByDeal(ctx, dealID); err != nil {
		return Dispute{}, err
	}

	released, err := s.deals.ReleaseDisputed(ctx, dealID, releaseTo)
	if err != nil {
		return Dispute{}, err
	}

	resolution := fmt.Sprintf("funds released to %s", releaseTo)
	resolved, err := s.repo.Resolve(ctx, dealID, resolution, actorID, s.now().UTC())
	if err != nil {
		return Dispute{}, err
	}

	for _, party := range []*int64{released.PayerID, released.ProviderID} {
		if party == nil {
			continue
		}
		_, _ = s.notices.Push(ctx, notify.Notification{
			UserID:  *party,
			DealID:  dealID,
			Type:    notify.TypeDisputeResolved,
			Message: fmt.Sprintf("Dispute on deal #%d resolved: %s", dealID, resolution),
		})
	}

	return resolved, nil
}

func counterparty(d deal.Deal, userID int64) int64 {
	if d.PayerID != nil && *d.PayerID != userID {
		return *d.PayerID
	}
	if d.ProviderID != nil && *d.ProviderID != userID {
		return *d.ProviderID
	}
	return 0
}
