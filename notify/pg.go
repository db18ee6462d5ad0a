package notify

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"escrowflow/ids"
)

// PGSink implements Sink backed by PostgreSQL.
type PGSink struct {
	pool *pgxpool.Pool
}

// NewPGSink wires a pgxpool-backed notification sink.
func NewPGSink(pool *pgxpool.Pool) *PGSink {
	return &PGSink{pool: pool}
}

func (s *PGSink) Push(ctx context.Context, n Notification) (Notification, error) {
	n.ID = ids.New()
	n.Read = false
	const insertSQL = `
		INSERT INTO notifications (id, user_id, deal_id, type, message)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`
	if err := s.pool.QueryRow(ctx, insertSQL, n.ID, n.UserID, n.DealID, n.Type, n.Message).Scan(&n.CreatedAt); err != nil {
		return Notification{}, fmt.Errorf("notify: push: %w", err)
	}
	return n, nil
}

func (s *PGSink) ListForUser(ctx context.Context, userID int64) ([]Notification, error) {
	const query = `
		SELECT id, user_id, deal_id, type, message, read, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY id ASC
	`

	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("notify: list: %w", err)
	}
	defer rows.Close()

	out := make([]Notification, 0, 8)
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.DealID, &n.Type, &n.Message, &n.Read, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("notify: scan: %w", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("notify: iterate: %w", err)
	}
	return out, nil
}

func (s *PGSink) MarkRead(ctx context.Context, userID int64, id string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE notifications SET read = TRUE WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("notify: mark read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
