// Package oracles holds SQL invariants evaluated during the stress run.
// Every query returns rows only when the invariant is broken.
package oracles

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Oracle struct {
	Name string
	SQL  string
}

func All() []Oracle {
	return []Oracle{
		{
			Name: "O1_no_self_pairing",
			SQL: `SELECT id FROM deals
                  WHERE payer_id IS NOT NULL AND payer_id = provider_id`,
		},
		{
			Name: "O2_fund_cancel_exclusive",
			SQL: `SELECT id FROM deals
                  WHERE status = 'cancelled'
                    AND (payment_status = 'funded' OR funded_at IS NOT NULL)`,
		},
		{
			Name: "O3_deposit_exactly_once",
			SQL: `SELECT deal_id, COUNT(*) FROM transactions
                  WHERE type = 'escrow_deposit'
                  GROUP BY deal_id HAVING COUNT(*) > 1`,
		},
		{
			Name: "O4_single_release",
			SQL: `SELECT deal_id, COUNT(*) FROM transactions
                  WHERE type IN ('payout', 'dispute_resolution')
                  GROUP BY deal_id HAVING COUNT(*) > 1`,
		},
		{
			Name: "O5_release_implies_released",
			SQL: `SELECT t.id FROM transactions t
                  JOIN deals d ON d.id = t.deal_id
                  WHERE t.type IN ('payout', 'dispute_resolution')
                    AND d.status <> 'released'`,
		},
		{
			Name: "O6_transaction_amount_matches_deal",
			SQL: `SELECT t.id FROM transactions t
                  JOIN deals d ON d.id = t.deal_id
                  WHERE t.amount <> d.amount`,
		},
		{
			Name: "O7_timestamp_order",
			SQL: `SELECT id FROM deals
                  WHERE (funded_at IS NOT NULL AND completed_at IS NOT NULL AND completed_at < funded_at)
                     OR (completed_at IS NOT NULL AND released_at IS NOT NULL AND released_at < completed_at)`,
		},
		{
			Name: "O8_invite_code_consumed",
			SQL: `SELECT c.code FROM invite_codes c
                  JOIN deals d ON d.id = c.deal_id
                  WHERE d.status NOT IN ('waiting_for_other_party', 'waiting_for_funding', 'cancelled')`,
		},
		{
			Name: "O9_status_domain",
			SQL: `SELECT id FROM deals
                  WHERE status NOT IN ('waiting_for_other_party', 'waiting_for_funding',
                                       'work_in_progress', 'completed_awaiting_confirmation',
                                       'released', 'disputed', 'cancelled')`,
		},
		{
			Name: "O10_one_dispute_per_deal",
			SQL: `SELECT deal_id, COUNT(*) FROM disputes
                  GROUP BY deal_id HAVING COUNT(*) > 1`,
		},
	}
}

// Run executes all oracles and returns the first failure (name and sample
// row text) or an empty name when all pass.
func Run(ctx context.Context, pool *pgxpool.Pool) (string, string, error) {
	for _, o := range All() {
		rows, err := pool.Query(ctx, o.SQL)
		if err != nil {
			return o.Name, "", fmt.Errorf("oracle %s: %w", o.Name, err)
		}
		if rows.Next() {
			vals, err := rows.Values()
			rows.Close()
			if err != nil {
				return o.Name, "", err
			}
			return o.Name, fmt.Sprintf("%v", vals), nil
		}
		rows.Close()
	}
	return "", "", nil
}
