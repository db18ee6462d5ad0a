package deal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"escrowflow/identity"
	"escrowflow/invite"
	"escrowflow/notify"
	"escrowflow/obs"
	"escrowflow/txlog"
)

var (
	// ErrValidation wraps rejected create parameters.
	ErrValidation = errors.New("deal: invalid parameters")
	// ErrInvalidInviteCode signals an unknown or already consumed code.
	ErrInvalidInviteCode = errors.New("deal: invalid invite code")
	// ErrSelfJoin signals the creator tried to join their own deal.
	ErrSelfJoin = errors.New("deal: cannot join own deal")
	// ErrAlreadyPaired signals the deal already has both parties.
	ErrAlreadyPaired = errors.New("deal: already paired")
	// ErrNotPayer signals the actor is not the deal's payer.
	ErrNotPayer = errors.New("deal: actor is not the payer")
	// ErrNotProvider signals the actor is not the deal's provider.
	ErrNotProvider = errors.New("deal: actor is not the provider")
	// ErrNotParticipant signals the actor is neither payer nor provider.
	ErrNotParticipant = errors.New("deal: actor is not a participant")
	// ErrInvalidState signals the operation is not valid in the deal's
	// current status.
	ErrInvalidState = errors.New("deal: invalid state for operation")
	// ErrCannotCancelFunded signals cancellation after escrow was deposited.
	ErrCannotCancelFunded = errors.New("deal: cannot cancel a funded deal")
	// ErrInviteeMismatch signals an acceptance by someone other than the
	// invited user.
	ErrInviteeMismatch = errors.New("deal: invitation is for another user")
)

// Users resolves invite-by-username targets.
type Users interface {
	FindByUsername(ctx context.Context, username string) (identity.User, error)
}

// TransactionLog records monetary events for the audit trail.
type TransactionLog interface {
	Append(ctx context.Context, rec txlog.Record) (txlog.Record, error)
}

// Notifier delivers asynchronous deal notices. Delivery is best-effort.
type Notifier interface {
	Push(ctx context.Context, n notify.Notification) (notify.Notification, error)
}

// Service owns the deal state machine. Every guarded operation runs its
// validation and transition inside the repository's atomic mutate, so a
// precondition can never be overtaken between check and commit.
type Service struct {
	repo    Repository
	invites invite.Registry
	users   Users
	txs     TransactionLog
	notices Notifier
	now     func() time.Time
}

// NewService wires the deal engine with its collaborators.
func NewService(repo Repository, invites invite.Registry, users Users, txs TransactionLog, notices Notifier) *Service {
	return &Service{
		repo:    repo,
		invites: invites,
		users:   users,
		txs:     txs,
		notices: notices,
		now:     time.Now,
	}
}

// WithClock overrides the timestamp source. Intended for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// CreateParams are the terms of a new deal. Amount is in minor currency
// units.
type CreateParams struct {
	ServiceDescription string
	Amount             int64
	Deadline           time.Time
	CreatorRole        Role
	InviteType         InviteType
	InvitedUsername    string
}

// Create opens a deal in waiting_for_other_party with the creator on their
// chosen side. A code invite gets a fresh single-use code; a username
// invite is resolved once, at creation; a target that does not exist yet
// simply leaves the invitation unresolved.
func (s *Service) Create(ctx context.Context, creatorID int64, params CreateParams) (Deal, error) {
	if params.ServiceDescription == "" {
		return Deal{}, fmt.Errorf("%w: service description required", ErrValidation)
	}
	if params.Amount <= 0 {
		return Deal{}, fmt.Errorf("%w: amount must be positive", ErrValidation)
	}
	if !params.CreatorRole.Valid() {
		return Deal{}, fmt.Errorf("%w: unknown creator role %q", ErrValidation, params.CreatorRole)
	}
	if params.InviteType != InviteByCode && params.InviteType != InviteByUsername {
		return Deal{}, fmt.Errorf("%w: unknown invite type %q", ErrValidation, params.InviteType)
	}
	if params.InviteType == InviteByUsername && params.InvitedUsername == "" {
		return Deal{}, fmt.Errorf("%w: invited username required", ErrValidation)
	}

	d := Deal{
		ServiceDescription: params.ServiceDescription,
		Amount:             params.Amount,
		Deadline:           params.Deadline,
		CreatorID:          creatorID,
		CreatorRole:        params.CreatorRole,
		InviteType:         params.InviteType,
		InvitedUsername:    params.InvitedUsername,
		Status:             StatusWaitingForOtherParty,
		PaymentStatus:      PaymentUnpaid,
	}
	if params.CreatorRole == RolePayer {
		d.PayerID = &creatorID
	} else {
		d.ProviderID = &creatorID
	}

	var invitedUser *identity.User
	if params.InviteType == InviteByUsername {
		user, err := s.users.FindByUsername(ctx, params.InvitedUsername)
		switch {
		case err == nil:
			if user.ID == creatorID {
				return Deal{}, ErrSelfJoin
			}
			d.InvitedUserID = &user.ID
			invitedUser = &user
		case errors.Is(err, identity.ErrUserNotFound):
			// One-shot resolution: the invite stays unresolved.
		default:
			return Deal{}, fmt.Errorf("deal: resolve invitee: %w", err)
		}
	}

	created, err := s.repo.Create(ctx, d)
	if err != nil {
		return Deal{}, fmt.Errorf("deal: create: %w", err)
	}

	if params.InviteType == InviteByCode {
		code, err := invite.Issue(ctx, s.invites, created.ID)
		if err != nil {
			return Deal{}, err
		}
		created, err = s.repo.Mutate(ctx, created.ID, func(d *Deal) error {
			d.InviteCode = code
			return nil
		})
		if err != nil {
			return Deal{}, fmt.Errorf("deal: attach invite code: %w", err)
		}
	}

	if invitedUser != nil {
		_, _ = s.notices.Push(ctx, notify.Notification{
			UserID:  invitedUser.ID,
			DealID:  created.ID,
			Type:    notify.TypeInvitation,
			Message: fmt.Sprintf("You have been invited to deal #%d: %s", created.ID, created.ServiceDescription),
		})
	}

	obs.CountDealTransition(string(created.Status))
	return created, nil
}

// JoinByCode binds the joining user to the role complementary to the
// creator's. The code is removed from the registry exactly once, on the
// first successful join.
func (s *Service) JoinByCode(ctx context.Context, userID int64, code string) (Deal, error) {
	dealID, err := s.invites.Lookup(ctx, code)
	if err != nil {
		if errors.Is(err, invite.ErrCodeNotFound) {
			return Deal{}, ErrInvalidInviteCode
		}
		return Deal{}, fmt.Errorf("deal: lookup invite: %w", err)
	}

	joined, err := s.repo.Mutate(ctx, dealID, func(d *Deal) error {
		return s.pairSecondParty(d, userID)
	})
	if err != nil {
		return Deal{}, err
	}

	if _, err := s.invites.Consume(ctx, code); err != nil && !errors.Is(err, invite.ErrCodeNotFound) {
		return Deal{}, fmt.Errorf("deal: consume invite: %w", err)
	}

	obs.CountDealTransition(string(joined.Status))
	return joined, nil
}

// AcceptInvitation pairs a username-invited user into the deal. Only the
// user resolved at creation time may accept.
func (s *Service) AcceptInvitation(ctx context.Context, userID, dealID int64) (Deal, error) {
	joined, err := s.repo.Mutate(ctx, dealID, func(d *Deal) error {
		if d.InviteType != InviteByUsername {
			return ErrInvalidState
		}
		if d.InvitedUserID == nil || *d.InvitedUserID != userID {
			return ErrInviteeMismatch
		}
		return s.pairSecondParty(d, userID)
	})
	if err != nil {
		return Deal{}, err
	}

	obs.CountDealTransition(string(joined.Status))
	return joined, nil
}

func (s *Service) pairSecondParty(d *Deal, userID int64) error {
	if d.Status != StatusWaitingForOtherParty {
		return ErrAlreadyPaired
	}
	if d.CreatorID == userID {
		return ErrSelfJoin
	}

	role := d.CreatorRole.Complement()
	if role == RolePayer {
		d.PayerID = &userID
	} else {
		d.ProviderID = &userID
	}
	d.InviteCode = ""
	d.Status = StatusWaitingForFunding
	return nil
}

// Fund deposits the escrow. Only the payer may fund, and only from
// waiting_for_funding.
func (s *Service) Fund(ctx context.Context, payerID, dealID int64) (Deal, error) {
	funded, err := s.repo.Mutate(ctx, dealID, func(d *Deal) error {
		if d.Status != StatusWaitingForFunding {
			return ErrInvalidState
		}
		if d.PayerID == nil || *d.PayerID != payerID {
			return ErrNotPayer
		}
		now := s.now().UTC()
		d.PaymentStatus = PaymentFunded
		d.Status = StatusWorkInProgress
		d.FundedAt = &now
		return nil
	})
	if err != nil {
		return Deal{}, err
	}

	if _, err := s.txs.Append(ctx, txlog.Record{
		DealID: funded.ID,
		Type:   txlog.TypeEscrowDeposit,
		Amount: funded.Amount,
	}); err != nil {
		return Deal{}, fmt.Errorf("deal: record escrow deposit: %w", err)
	}

	obs.CountDealTransition(string(funded.Status))
	return funded, nil
}

// MarkComplete is the provider declaring the work done.
func (s *Service) MarkComplete(ctx context.Context, providerID, dealID int64) (Deal, error) {
	completed, err := s.repo.Mutate(ctx, dealID, func(d *Deal) error {
		if d.Status != StatusWorkInProgress {
			return ErrInvalidState
		}
		if d.ProviderID == nil || *d.ProviderID != providerID {
			return ErrNotProvider
		}
		now := s.now().UTC()
		d.Status = StatusAwaitingConfirmation
		d.CompletedAt = &now
		return nil
	})
	if err != nil {
		return Deal{}, err
	}

	obs.CountDealTransition(string(completed.Status))
	return completed, nil
}

// ConfirmAndRelease is the payer confirming delivery, releasing the escrow
// to the provider.
func (s *Service) ConfirmAndRelease(ctx context.Context, payerID, dealID int64) (Deal, error) {
	released, err := s.repo.Mutate(ctx, dealID, func(d *Deal) error {
		if d.Status != StatusAwaitingConfirmation {
			return ErrInvalidState
		}
		if d.PayerID == nil || *d.PayerID != payerID {
			return ErrNotPayer
		}
		now := s.now().UTC()
		d.Status = StatusReleased
		d.ReleasedAt = &now
		return nil
	})
	if err != nil {
		return Deal{}, err
	}

	if _, err := s.txs.Append(ctx, txlog.Record{
		DealID:     released.ID,
		Type:       txlog.TypePayout,
		Amount:     released.Amount,
		ReleasedTo: string(RoleProvider),
	}); err != nil {
		return Deal{}, fmt.Errorf("deal: record payout: %w", err)
	}

	obs.CountDealTransition(string(released.Status))
	return released, nil
}

// Cancel aborts a deal before any escrow is deposited.
func (s *Service) Cancel(ctx context.Context, userID, dealID int64) (Deal, error) {
	var staleCode string
	cancelled, err := s.repo.Mutate(ctx, dealID, func(d *Deal) error {
		if d.CreatorID != userID && !d.IsParticipant(userID) {
			return ErrNotParticipant
		}
		switch d.Status {
		case StatusWaitingForOtherParty, StatusWaitingForFunding:
			staleCode = d.InviteCode
			d.Status = StatusCancelled
			d.InviteCode = ""
			return nil
		case StatusCancelled:
			return ErrInvalidState
		default:
			return ErrCannotCancelFunded
		}
	})
	if err != nil {
		return Deal{}, err
	}

	// The code may already be gone if the second party joined first.
	if staleCode != "" {
		if _, err := s.invites.Consume(ctx, staleCode); err != nil && !errors.Is(err, invite.ErrCodeNotFound) {
			return Deal{}, fmt.Errorf("deal: retire invite code: %w", err)
		}
	}

	obs.CountDealTransition(string(cancelled.Status))
	return cancelled, nil
}

// Get fetches a single deal.
func (s *Service) Get(ctx context.Context, dealID int64) (Deal, error) {
	return s.repo.Get(ctx, dealID)
}

// ListForUser returns every deal where the user is creator, payer, or
// provider, in insertion order.
func (s *Service) ListForUser(ctx context.Context, userID int64) ([]Deal, error) {
	return s.repo.ListForUser(ctx, userID)
}

// MarkDisputed moves a deal into the disputed branch. Only a participant
// may raise, and only while the deal awaits the payer's confirmation.
// Invoked by the dispute engine, not by callers directly.
func (s *Service) MarkDisputed(ctx context.Context, actorID, dealID int64) (Deal, error) {
	disputed, err := s.repo.Mutate(ctx, dealID, func(d *Deal) error {
		if !d.IsParticipant(actorID) {
			return ErrNotParticipant
		}
		if d.Status != StatusAwaitingConfirmation {
			return ErrInvalidState
		}
		d.Status = StatusDisputed
		return nil
	})
	if err != nil {
		return Deal{}, err
	}

	obs.CountDealTransition(string(disputed.Status))
	return disputed, nil
}

// ReleaseDisputed settles a disputed deal in favor of one side and records
// the redirected funds. Invoked by the dispute engine after administrative
// resolution.
func (s *Service) ReleaseDisputed(ctx context.Context, dealID int64, releasedTo Role) (Deal, error) {
	if !releasedTo.Valid() {
		return Deal{}, fmt.Errorf("deal: invalid release target %q", releasedTo)
	}

	released, err := s.repo.Mutate(ctx, dealID, func(d *Deal) error {
		if d.Status != StatusDisputed {
			return ErrInvalidState
		}
		now := s.now().UTC()
		d.Status = StatusReleased
		d.ReleasedAt = &now
		return nil
	})
	if err != nil {
		return Deal{}, err
	}

	if _, err := s.txs.Append(ctx, txlog.Record{
		DealID:     released.ID,
		Type:       txlog.TypeDisputeResolution,
		Amount:     released.Amount,
		ReleasedTo: string(releasedTo),
	}); err != nil {
		return Deal{}, fmt.Errorf("deal: record dispute resolution: %w", err)
	}

	obs.CountDealTransition(string(released.Status))
	return released, nil
}
