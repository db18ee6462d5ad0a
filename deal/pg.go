package deal

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const dealColumns = `
	id, service_description, amount, deadline,
	creator_id, creator_role, payer_id, provider_id,
	invite_type, COALESCE(invite_code, ''), COALESCE(invited_username, ''), invited_user_id,
	status, payment_status,
	created_at, funded_at, completed_at, released_at
`

// PGRepository implements Repository backed by PostgreSQL. Mutate wraps a
// SELECT ... FOR UPDATE and the write in one transaction so concurrent
// guarded operations on the same deal serialize and only one transition
// wins.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewPGRepository wires a pgxpool-backed deal repository.
func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

func (r *PGRepository) Create(ctx context.Context, d Deal) (Deal, error) {
	const insertSQL = `
		INSERT INTO deals (
			service_description, amount, deadline,
			creator_id, creator_role, payer_id, provider_id,
			invite_type, invite_code, invited_username, invited_user_id,
			status, payment_status
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, ''), NULLIF($10, ''), $11, $12, $13)
		RETURNING ` + dealColumns

	row := r.pool.QueryRow(ctx, insertSQL,
		d.ServiceDescription,
		d.Amount,
		d.Deadline,
		d.CreatorID,
		d.CreatorRole,
		d.PayerID,
		d.ProviderID,
		d.InviteType,
		d.InviteCode,
		d.InvitedUsername,
		d.InvitedUserID,
		d.Status,
		d.PaymentStatus,
	)
	created, err := scanDeal(row)
	if err != nil {
		return Deal{}, fmt.Errorf("deal: insert: %w", err)
	}
	return created, nil
}

func (r *PGRepository) Get(ctx context.Context, id int64) (Deal, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+dealColumns+` FROM deals WHERE id = $1`, id)
	d, err := scanDeal(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Deal{}, ErrNotFound
		}
		return Deal{}, fmt.Errorf("deal: get: %w", err)
	}
	return d, nil
}

func (r *PGRepository) Mutate(ctx context.Context, id int64, fn func(*Deal) error) (Deal, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Deal{}, fmt.Errorf("deal: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `SELECT `+dealColumns+` FROM deals WHERE id = $1 FOR UPDATE`, id)
	d, err := scanDeal(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Deal{}, ErrNotFound
		}
		return Deal{}, fmt.Errorf("deal: lock row: %w", err)
	}

	if err := fn(&d); err != nil {
		return Deal{}, err
	}

	const updateSQL = `
		UPDATE deals
		SET payer_id = $2,
		    provider_id = $3,
		    invite_code = NULLIF($4, ''),
		    status = $5,
		    payment_status = $6,
		    funded_at = $7,
		    completed_at = $8,
		    released_at = $9
		WHERE id = $1
	`
	if _, err := tx.Exec(ctx, updateSQL,
		d.ID,
		d.PayerID,
		d.ProviderID,
		d.InviteCode,
		d.Status,
		d.PaymentStatus,
		d.FundedAt,
		d.CompletedAt,
		d.ReleasedAt,
	); err != nil {
		return Deal{}, fmt.Errorf("deal: update: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Deal{}, fmt.Errorf("deal: commit mutate: %w", err)
	}

	return d, nil
}

func (r *PGRepository) ListForUser(ctx context.Context, userID int64) ([]Deal, error) {
	const query = `
		SELECT ` + dealColumns + `
		FROM deals
		WHERE creator_id = $1 OR payer_id = $1 OR provider_id = $1
		ORDER BY id ASC
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("deal: list: %w", err)
	}
	defer rows.Close()

	out := make([]Deal, 0, 8)
	for rows.Next() {
		d, err := scanDeal(rows)
		if err != nil {
			return nil, fmt.Errorf("deal: scan: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("deal: iterate: %w", err)
	}
	return out, nil
}

func scanDeal(row pgx.Row) (Deal, error) {
	var d Deal
	err := row.Scan(
		&d.ID,
		&d.ServiceDescription,
		&d.Amount,
		&d.Deadline,
		&d.CreatorID,
		&d.CreatorRole,
		&d.PayerID,
		&d.ProviderID,
		&d.InviteType,
		&d.InviteCode,
		&d.InvitedUsername,
		&d.InvitedUserID,
		&d.Status,
		&d.PaymentStatus,
		&d.CreatedAt,
		&d.FundedAt,
		&d.CompletedAt,
		&d.ReleasedAt,
	)
	if err != nil {
		return Deal{}, err
	}
	return d, nil
}
