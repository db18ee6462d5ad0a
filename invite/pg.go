package invite

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGRegistry implements Registry backed by PostgreSQL. The primary key on
// the code column makes Register a true compare-and-insert.
type PGRegistry struct {
	pool *pgxpool.Pool
}

// NewPGRegistry wires a pgxpool-backed registry implementation.
func NewPGRegistry(pool *pgxpool.Pool) *PGRegistry {
	return &PGRegistry{pool: pool}
}

func (r *PGRegistry) Register(ctx context.Context, code string, dealID int64) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO invite_codes (code, deal_id) VALUES ($1, $2)`, code, dealID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrCodeExists
		}
		return fmt.Errorf("invite: register code: %w", err)
	}
	return nil
}

func (r *PGRegistry) Lookup(ctx context.Context, code string) (int64, error) {
	var dealID int64
	err := r.pool.QueryRow(ctx, `SELECT deal_id FROM invite_codes WHERE code = $1`, Normalize(code)).Scan(&dealID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrCodeNotFound
		}
		return 0, fmt.Errorf("invite: lookup code: %w", err)
	}
	return dealID, nil
}

// Consume deletes the code and returns its deal id. DELETE ... RETURNING is
// atomic, so only one of several concurrent consumers wins.
func (r *PGRegistry) Consume(ctx context.Context, code string) (int64, error) {
	var dealID int64
	err := r.pool.QueryRow(ctx, `DELETE FROM invite_codes WHERE code = $1 RETURNING deal_id`, Normalize(code)).Scan(&dealID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrCodeNotFound
		}
		return 0, fmt.Errorf("invite: consume code: %w", err)
	}
	return dealID, nil
}
