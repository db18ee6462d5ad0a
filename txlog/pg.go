package txlog

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"escrowflow/ids"
)

// PGLog implements Log backed by PostgreSQL. Only INSERT and SELECT are
// issued against the transactions table.
type PGLog struct {
	pool *pgxpool.Pool
}

// NewPGLog wires a pgxpool-backed transaction log.
func NewPGLog(pool *pgxpool.Pool) *PGLog {
	return &PGLog{pool: pool}
}

func (l *PGLog) Append(ctx context.Context, rec Record) (Record, error) {
	if err := validate(rec); err != nil {
		return Record{}, err
	}

	rec.ID = ids.New()
	const insertSQL = `
		INSERT INTO transactions (id, deal_id, type, amount, released_to)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''))
		RETURNING created_at
	`
	if err := l.pool.QueryRow(ctx, insertSQL, rec.ID, rec.DealID, rec.Type, rec.Amount, rec.ReleasedTo).Scan(&rec.CreatedAt); err != nil {
		return Record{}, fmt.Errorf("txlog: append: %w", err)
	}
	return rec, nil
}

func (l *PGLog) ListForDeal(ctx context.Context, dealID int64) ([]Record, error) {
	const query = `
		SELECT id, deal_id, type, amount, COALESCE(released_to, ''), created_at
		FROM transactions
		WHERE deal_id = $1
		ORDER BY id ASC
	`

	rows, err := l.pool.Query(ctx, query, dealID)
	if err != nil {
		return nil, fmt.Errorf("txlog: list: %w", err)
	}
	defer rows.Close()

	out := make([]Record, 0, 4)
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.DealID, &rec.Type, &rec.Amount, &rec.ReleasedTo, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("txlog: scan: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("txlog: iterate: %w", err)
	}
	return out, nil
}
