// Package actors contains the concurrent workloads for the stress test.
// Each actor hammers one slice of the deal lifecycle through the service
// layer; invariants are checked separately by the oracles, so actors
// tolerate every domain error and keep going.
package actors

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"escrowflow/deal"
	"escrowflow/dispute"
	"escrowflow/identity"
)

func fatal(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func pause(minMS, spreadMS int) {
	time.Sleep(time.Duration(minMS+rand.Intn(spreadMS)) * time.Millisecond)
}

// Creator opens code-invite deals as the payer and fans each code out so
// several joiners race for the same deal.
func Creator(ctx context.Context, deals *deal.Service, payerID int64, fanout int, codes chan<- string, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}

		created, err := deals.Create(ctx, payerID, deal.CreateParams{
			ServiceDescription: "stress work item",
			Amount:             int64(1 + rand.Intn(1000)),
			Deadline:           time.Now().AddDate(0, 0, 7),
			CreatorRole:        deal.RolePayer,
			InviteType:         deal.InviteByCode,
		})
		if err != nil {
			if fatal(err) {
				return err
			}
			pause(10, 20)
			continue
		}

		for i := 0; i < fanout; i++ {
			select {
			case codes <- created.InviteCode:
			case <-stop:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		pause(10, 20)
	}
}

// Joiner races to bind as provider. Only one joiner per code can win; the
// rest see invalid-code or already-paired errors. Won deal ids are pushed
// to work twice so the funder and the canceller fight over each deal.
func Joiner(ctx context.Context, deals *deal.Service, providerID int64, codes <-chan string, work chan<- int64, stop <-chan struct{}) error {
	for {
		var code string
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		case code = <-codes:
		}

		joined, err := deals.JoinByCode(ctx, providerID, code)
		if err != nil {
			if fatal(err) {
				return err
			}
			continue
		}

		for i := 0; i < 2; i++ {
			select {
			case work <- joined.ID:
			case <-stop:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// Funder deposits escrow on joined deals and hands the funded ones to the
// settlers.
func Funder(ctx context.Context, deals *deal.Service, payerID int64, work <-chan int64, funded chan<- int64, stop <-chan struct{}) error {
	for {
		var dealID int64
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		case dealID = <-work:
		}

		if _, err := deals.Fund(ctx, payerID, dealID); err != nil {
			if fatal(err) {
				return err
			}
			continue
		}

		select {
		case funded <- dealID:
		case <-stop:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Canceller competes with the funder: for each deal exactly one of
// fund/cancel may win.
func Canceller(ctx context.Context, deals *deal.Service, payerID int64, work <-chan int64, stop <-chan struct{}) error {
	for {
		var dealID int64
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		case dealID = <-work:
		}

		pause(0, 10)
		if _, err := deals.Cancel(ctx, payerID, dealID); err != nil && fatal(err) {
			return err
		}
	}
}

// Settler finishes funded deals: the provider marks them complete, then the
// payer either confirms release or raises a dispute that the admin settles.
func Settler(ctx context.Context, deals *deal.Service, disputes *dispute.Service, payerID, providerID, adminID int64, funded <-chan int64, stop <-chan struct{}) error {
	for {
		var dealID int64
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		case dealID = <-funded:
		}

		if _, err := deals.MarkComplete(ctx, providerID, dealID); err != nil {
			if fatal(err) {
				return err
			}
			continue
		}

		if rand.Intn(3) == 0 {
			if _, err := disputes.Raise(ctx, payerID, dealID, "stress dispute"); err != nil {
				if fatal(err) {
					return err
				}
				continue
			}
			releaseTo := deal.RolePayer
			if rand.Intn(2) == 0 {
				releaseTo = deal.RoleProvider
			}
			if _, err := disputes.Resolve(ctx, adminID, identity.RoleAdmin, dealID, releaseTo); err != nil && fatal(err) {
				return err
			}
		} else {
			if _, err := deals.ConfirmAndRelease(ctx, payerID, dealID); err != nil && fatal(err) {
				return err
			}
		}
		pause(5, 15)
	}
}
