package dispute

import (
	"context"
	"errors"
	"testing"
	"time"

	"escrowflow/deal"
	"escrowflow/identity"
	"escrowflow/invite"
	"escrowflow/notify"
	"escrowflow/txlog"
)

type fixture struct {
	svc      *Service
	deals    *deal.Service
	users    *identity.Service
	txs      *txlog.MemoryLog
	sink     *notify.MemorySink
	payer    identity.User
	provider identity.User
}

// newFixture builds a deal already in completed_awaiting_confirmation, the
// only state the dispute branch opens from.
func newFixture(t *testing.T) (*fixture, deal.Deal) {
	t.Helper()
	ctx := context.Background()

	users := identity.NewService(identity.NewMemoryRepository(), "test-secret")
	txs := txlog.NewMemoryLog()
	sink := notify.NewMemorySink()
	deals := deal.NewService(deal.NewMemoryRepository(), invite.NewMemoryRegistry(), users, txs, sink)
	svc := NewService(NewMemoryRepository(), deals, sink)

	register := func(name string) identity.User {
		u, err := users.Register(ctx, identity.RegisterRequest{
			Username: name,
			Email:    name + "@example.com",
			Password: "strongpassword",
		})
		if err != nil {
			t.Fatalf("register %s: %v", name, err)
		}
		return u
	}

	f := &fixture{svc: svc, deals: deals, users: users, txs: txs, sink: sink}
	f.payer = register("payer")
	f.provider = register("provider")

	d, err := deals.Create(ctx, f.payer.ID, deal.CreateParams{
		ServiceDescription: "app development",
		Amount:             100,
		Deadline:           time.Now().AddDate(0, 1, 0),
		CreatorRole:        deal.RolePayer,
		InviteType:         deal.InviteByCode,
	})
	if err != nil {
		t.Fatalf("create deal: %v", err)
	}
	if _, err := deals.JoinByCode(ctx, f.provider.ID, d.InviteCode); err != nil {
		t.Fatalf("join: %v", err)
	}
	if _, err := deals.Fund(ctx, f.payer.ID, d.ID); err != nil {
		t.Fatalf("fund: %v", err)
	}
	if _, err := deals.MarkComplete(ctx, f.provider.ID, d.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}
	return f, d
}

func TestRaiseAndResolve(t *testing.T) {
	f, d := newFixture(t)
	ctx := context.Background()

	raised, err := f.svc.Raise(ctx, f.payer.ID, d.ID, "work not delivered")
	if err != nil {
		t.Fatalf("raise: %v", err)
	}
	if raised.Status != StatusOpen || raised.RaisedBy != f.payer.ID {
		t.Fatalf("unexpected dispute: %+v", raised)
	}

	current, err := f.deals.Get(ctx, d.ID)
	if err != nil {
		t.Fatalf("get deal: %v", err)
	}
	if current.Status != deal.StatusDisputed {
		t.Fatalf("expected deal disputed, got %s", current.Status)
	}

	// The counterparty was notified.
	notices, _ := f.sink.ListForUser(ctx, f.provider.ID)
	if len(notices) != 1 || notices[0].Type != notify.TypeDisputeOpened {
		t.Fatalf("expected dispute_opened notice for provider, got %v", notices)
	}

	resolved, err := f.svc.Resolve(ctx, 99, identity.RoleAdmin, d.ID, deal.RoleProvider)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.Status != StatusResolved || resolved.ResolvedAt == nil {
		t.Fatalf("expected resolved dispute, got %+v", resolved)
	}

	current, _ = f.deals.Get(ctx, d.ID)
	if current.Status != deal.StatusReleased {
		t.Fatalf("expected deal released, got %s", current.Status)
	}

	recs, _ := f.txs.ListForDeal(ctx, d.ID)
	var resolutionRecs int
	for _, rec := range recs {
		if rec.Type == txlog.TypeDisputeResolution {
			resolutionRecs++
			if rec.ReleasedTo != string(deal.RoleProvider) {
				t.Fatalf("expected release to provider, got %q", rec.ReleasedTo)
			}
			if rec.Amount != 100 {
				t.Fatalf("expected amount 100, got %d", rec.Amount)
			}
		}
	}
	if resolutionRecs != 1 {
		t.Fatalf("expected exactly one dispute_resolution transaction, got %d", resolutionRecs)
	}
}

func TestRaiseGuards(t *testing.T) {
	f, d := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Raise(ctx, f.payer.ID, d.ID, ""); !errors.Is(err, ErrReasonRequired) {
		t.Fatalf("expected ErrReasonRequired, got %v", err)
	}

	if _, err := f.svc.Raise(ctx, 12345, d.ID, "not mine"); !errors.Is(err, deal.ErrNotParticipant) {
		t.Fatalf("expected ErrNotParticipant, got %v", err)
	}

	if _, err := f.svc.Raise(ctx, f.payer.ID, 9999, "ghost"); !errors.Is(err, deal.ErrNotFound) {
		t.Fatalf("expected deal.ErrNotFound, got %v", err)
	}

	if _, err := f.svc.Raise(ctx, f.provider.ID, d.ID, "first"); err != nil {
		t.Fatalf("raise: %v", err)
	}
	// The deal is now disputed; a second raise fails on the state guard.
	if _, err := f.svc.Raise(ctx, f.payer.ID, d.ID, "second"); !errors.Is(err, deal.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState on second raise, got %v", err)
	}
}

func TestRaiseOnReleasedDealFails(t *testing.T) {
	f, d := newFixture(t)
	ctx := context.Background()

	if _, err := f.deals.ConfirmAndRelease(ctx, f.payer.ID, d.ID); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	if _, err := f.svc.Raise(ctx, f.payer.ID, d.ID, "too late"); !errors.Is(err, deal.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState on released deal, got %v", err)
	}
}

func TestMessages(t *testing.T) {
	f, d := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.AddMessage(ctx, f.payer.ID, d.ID, "hello?"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound before dispute exists, got %v", err)
	}

	if _, err := f.svc.Raise(ctx, f.payer.ID, d.ID, "missing deliverable"); err != nil {
		t.Fatalf("raise: %v", err)
	}

	if _, err := f.svc.AddMessage(ctx, f.payer.ID, d.ID, ""); !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("expected ErrEmptyMessage, got %v", err)
	}

	if _, err := f.svc.AddMessage(ctx, f.payer.ID, d.ID, "where is the work?"); err != nil {
		t.Fatalf("add message: %v", err)
	}
	got, err := f.svc.AddMessage(ctx, f.provider.ID, d.ID, "uploading now")
	if err != nil {
		t.Fatalf("add message: %v", err)
	}

	if len(got.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(got.Messages))
	}
	if got.Messages[0].UserID != f.payer.ID || got.Messages[1].UserID != f.provider.ID {
		t.Fatal("expected messages in append order")
	}
	if got.Messages[1].CreatedAt.Before(got.Messages[0].CreatedAt) {
		t.Fatal("expected non-decreasing message timestamps")
	}
}

func TestResolveGuards(t *testing.T) {
	f, d := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Resolve(ctx, f.payer.ID, identity.RoleUser, d.ID, deal.RolePayer); !errors.Is(err, ErrAdminRequired) {
		t.Fatalf("expected ErrAdminRequired, got %v", err)
	}

	if _, err := f.svc.Resolve(ctx, 99, identity.RoleAdmin, d.ID, deal.RolePayer); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound before dispute exists, got %v", err)
	}

	if _, err := f.svc.Raise(ctx, f.payer.ID, d.ID, "broken"); err != nil {
		t.Fatalf("raise: %v", err)
	}

	if _, err := f.svc.Resolve(ctx, 99, identity.RoleAdmin, d.ID, "nobody"); err == nil {
		t.Fatal("expected error for invalid release target")
	}

	if _, err := f.svc.Resolve(ctx, 99, identity.RoleAdmin, d.ID, deal.RolePayer); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	// Replay fails on the deal state guard; no second payout is recorded.
	if _, err := f.svc.Resolve(ctx, 99, identity.RoleAdmin, d.ID, deal.RolePayer); !errors.Is(err, deal.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState on replay, got %v", err)
	}

	recs, _ := f.txs.ListForDeal(ctx, d.ID)
	var payouts int64
	for _, rec := range recs {
		if rec.Type != txlog.TypeEscrowDeposit {
			payouts += rec.Amount
		}
	}
	if payouts != 100 {
		t.Fatalf("expected total payouts of 100, got %d", payouts)
	}
}

func TestListOpen(t *testing.T) {
	f, d := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Raise(ctx, f.payer.ID, d.ID, "unfinished"); err != nil {
		t.Fatalf("raise: %v", err)
	}

	open, err := f.svc.ListOpen(ctx)
	if err != nil {
		t.Fatalf("list open: %v", err)
	}
	if len(open) != 1 || open[0].DealID != d.ID {
		t.Fatalf("expected one open dispute for deal %d, got %v", d.ID, open)
	}

	if _, err := f.svc.Resolve(ctx, 99, identity.RoleAdmin, d.ID, deal.RoleProvider); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	open, err = f.svc.ListOpen(ctx)
	if err != nil {
		t.Fatalf("list open: %v", err)
	}
	if len(open) != 0 {
		t.Fatalf("expected no open disputes, got %d", len(open))
	}
}
