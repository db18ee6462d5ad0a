package deal

import (
	"context"
	"errors"
)

var (
	// ErrNotFound signals an unknown deal id.
	ErrNotFound = errors.New("deal: not found")
)

// Repository is the injected persistence abstraction for deals. Mutate must
// execute its callback as a single atomic read-modify-write against the
// current record: the callback sees the committed state, and either all of
// its changes become visible or none do.
type Repository interface {
	Create(ctx context.Context, d Deal) (Deal, error)
	Get(ctx context.Context, id int64) (Deal, error)
	Mutate(ctx context.Context, id int64, fn func(*Deal) error) (Deal, error)
	ListForUser(ctx context.Context, userID int64) ([]Deal, error)
}
