package dispute

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"escrowflow/ids"
)

// PGRepository implements Repository backed by PostgreSQL. The unique key on
// deal_id enforces the one-dispute-per-deal invariant at the store.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewPGRepository wires a pgxpool-backed dispute repository.
func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

func (r *PGRepository) Create(ctx context.Context, d Dispute) (Dispute, error) {
	d.ID = ids.New()
	d.Status = StatusOpen
	const insertSQL = `
		INSERT INTO disputes (id, deal_id, raised_by, reason, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`
	if err := r.pool.QueryRow(ctx, insertSQL, d.ID, d.DealID, d.RaisedBy, d.Reason, d.Status).Scan(&d.CreatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Dispute{}, ErrAlreadyExists
		}
		return Dispute{}, fmt.Errorf("dispute: create: %w", err)
	}
	return d, nil
}

func (r *PGRepository) GetByDeal(ctx context.Context, dealID int64) (Dispute, error) {
	const selectSQL = `
		SELECT id, deal_id, raised_by, reason, status,
		       COALESCE(resolution, ''), resolved_by, created_at, resolved_at
		FROM disputes
		WHERE deal_id = $1
	`
	var d Dispute
	err := r.pool.QueryRow(ctx, selectSQL, dealID).Scan(
		&d.ID, &d.DealID, &d.RaisedBy, &d.Reason, &d.Status,
		&d.Resolution, &d.ResolvedBy, &d.CreatedAt, &d.ResolvedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Dispute{}, ErrNotFound
		}
		return Dispute{}, fmt.Errorf("dispute: get by deal: %w", err)
	}

	if d.Messages, err = r.listMessages(ctx, dealID); err != nil {
		return Dispute{}, err
	}
	return d, nil
}

func (r *PGRepository) AppendMessage(ctx context.Context, dealID int64, msg Message) (Dispute, error) {
	const insertSQL = `
		INSERT INTO dispute_messages (deal_id, user_id, body)
		SELECT $1, $2, $3 WHERE EXISTS (SELECT 1 FROM disputes WHERE deal_id = $1)
	`
	tag, err := r.pool.Exec(ctx, insertSQL, dealID, msg.UserID, msg.Body)
	if err != nil {
		return Dispute{}, fmt.Errorf("dispute: append message: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return Dispute{}, ErrNotFound
	}
	return r.GetByDeal(ctx, dealID)
}

func (r *PGRepository) Resolve(ctx context.Context, dealID int64, resolution string, resolvedBy int64, at time.Time) (Dispute, error) {
	const updateSQL = `
		UPDATE disputes
		SET status = $2, resolution = $3, resolved_by = $4, resolved_at = $5
		WHERE deal_id = $1 AND status <> $2
	`
	tag, err := r.pool.Exec(ctx, updateSQL, dealID, StatusResolved, resolution, resolvedBy, at)
	if err != nil {
		return Dispute{}, fmt.Errorf("dispute: resolve: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Distinguish a missing dispute from a replayed resolution.
		if _, err := r.GetByDeal(ctx, dealID); errors.Is(err, ErrNotFound) {
			return Dispute{}, ErrNotFound
		}
		return Dispute{}, ErrAlreadyResolved
	}
	return r.GetByDeal(ctx, dealID)
}

func (r *PGRepository) ListOpen(ctx context.Context) ([]Dispute, error) {
	const query = `
		SELECT id, deal_id, raised_by, reason, status,
		       COALESCE(resolution, ''), resolved_by, created_at, resolved_at
		FROM disputes
		WHERE status = $1
		ORDER BY created_at ASC
	`

	rows, err := r.pool.Query(ctx, query, StatusOpen)
	if err != nil {
		return nil, fmt.Errorf("dispute: list open: %w", err)
	}
	defer rows.Close()

	out := make([]Dispute, 0, 4)
	for rows.Next() {
		var d Dispute
		if err := rows.Scan(
			&d.ID, &d.DealID, &d.RaisedBy, &d.Reason, &d.Status,
			&d.Resolution, &d.ResolvedBy, &d.CreatedAt, &d.ResolvedAt,
		); err != nil {
			return nil, fmt.Errorf("dispute: scan: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("dispute: iterate: %w", err)
	}
	return out, nil
}

func (r *PGRepository) listMessages(ctx context.Context, dealID int64) ([]Message, error) {
	const query = `
		SELECT user_id, body, created_at
		FROM dispute_messages
		WHERE deal_id = $1
		ORDER BY id ASC
	`

	rows, err := r.pool.Query(ctx, query, dealID)
	if err != nil {
		return nil, fmt.Errorf("dispute: list messages: %w", err)
	}
	defer rows.Close()

	msgs := make([]Message, 0, 8)
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.UserID, &m.Body, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("dispute: scan message: %w", err)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("dispute: iterate messages: %w", err)
	}
	return msgs, nil
}
