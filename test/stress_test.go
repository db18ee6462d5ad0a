package test

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"

	"escrowflow/deal"
	"escrowflow/dispute"
	"escrowflow/identity"
	"escrowflow/invite"
	"escrowflow/notify"
	"escrowflow/test/actors"
	"escrowflow/test/chaos"
	"escrowflow/test/infra"
	"escrowflow/test/oracles"
	"escrowflow/txlog"
)

var (
	flDuration    = flag.Duration("duration", 90*time.Second, "how long to run stress")
	flConcurrency = flag.Int("concurrency", 8, "number of concurrent actors")
	flSeed        = flag.Int64("seed", time.Now().UnixNano(), "random seed")
	flDSN         = flag.String("dsn", "", "existing Postgres DSN to reuse (avoids Docker)")
)

func TestEscrowConcurrency(t *testing.T) {
	flag.Parse()
	seed := *flSeed
	rand.Seed(seed)

	var (
		pgC        *infra.PGContainer
		dsn        string
		err        error
		usedShared bool
	)
	ctx, cancel := context.WithTimeout(context.Background(), *flDuration+60*time.Second)
	defer cancel()

	switch {
	case *flDSN != "":
		dsn = *flDSN
		usedShared = true
		pgC = &infra.PGContainer{}
	case os.Getenv("ESCROW_TEST_PG_DSN") != "":
		dsn = os.Getenv("ESCROW_TEST_PG_DSN")
		usedShared = true
		pgC = &infra.PGContainer{}
	default:
		if dockerAvailable(ctx) {
			pgC, dsn, err = infra.StartPostgres16(ctx, "")
			if err != nil {
				t.Fatalf("start postgres: %v", err)
			}
		} else {
			dsn, err = infra.InitLocalDatabase(ctx)
			if err != nil {
				t.Skipf("no Docker and no local postgres: %v", err)
			}
			pgC = &infra.PGContainer{}
		}
	}
	defer pgC.Terminate(context.Background())

	pool, teardown, err := infra.ApplyMigrations(ctx, dsn, usedShared)
	if err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	defer pool.Close()
	defer func() {
		if err := teardown(context.Background()); err != nil {
			t.Logf("teardown warning: %v", err)
		}
	}()

	users := identity.NewService(identity.NewPGRepository(pool), "stress-secret")
	deals := deal.NewService(
		deal.NewPGRepository(pool),
		invite.NewPGRegistry(pool),
		users,
		txlog.NewPGLog(pool),
		notify.NewPGSink(pool),
	)
	disputes := dispute.NewService(dispute.NewPGRepository(pool), deals, notify.NewPGSink(pool))

	seedData := mustSeed(t, ctx, pool)

	g, ctx2 := errgroup.WithContext(ctx)
	stop := make(chan struct{})
	codes := make(chan string, 256)
	work := make(chan int64, 256)
	funded := make(chan int64, 256)

	for i := 0; i < *flConcurrency; i++ {
		g.Go(func() error {
			return actors.Creator(ctx2, deals, seedData.payerID, 4, codes, stop)
		})
		g.Go(func() error {
			return actors.Joiner(ctx2, deals, seedData.providerID, codes, work, stop)
		})
	}
	g.Go(func() error { return actors.Funder(ctx2, deals, seedData.payerID, work, funded, stop) })
	g.Go(func() error { return actors.Canceller(ctx2, deals, seedData.payerID, work, stop) })
	g.Go(func() error {
		return actors.Settler(ctx2, deals, disputes, seedData.payerID, seedData.providerID, seedData.adminID, funded, stop)
	})
	go chaos.TerminateRandomBackend(ctx2, pool, stop)

	deadline := time.Now().Add(*flDuration)
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	var failed bool
loop:
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			break loop
		case <-ticker.C:
			name, row, err := oracles.Run(ctx2, pool)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					break loop
				}
				t.Fatalf("oracle error: %v", err)
			}
			if name != "" {
				failed = true
				dumpRecent(t, ctx2, pool)
				t.Fatalf("Oracle %s failed. First row: %s (seed=%d)", name, row, seed)
			}
		}
	}

	close(stop)
	if err := g.Wait(); err != nil && !failed {
		if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("actors errored: %v", err)
		}
	}
}

func dockerAvailable(ctx context.Context) bool {
	if _, err := exec.LookPath("docker"); err != nil {
		return false
	}
	c := exec.CommandContext(ctx, "docker", "info")
	c.Stdout = io.Discard
	c.Stderr = io.Discard
	return c.Run() == nil
}

type seedIDs struct {
	payerID    int64
	providerID int64
	adminID    int64
}

func mustSeed(t *testing.T, ctx context.Context, pool *pgxpool.Pool) seedIDs {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("stresspass"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}

	var s seedIDs
	insert := func(name, role string) int64 {
		var id int64
		err := pool.QueryRow(ctx,
			`INSERT INTO users (username, email, password_hash, role) VALUES ($1, $2, $3, $4) RETURNING id`,
			fmt.Sprintf("%s_%d", name, rand.Int63()),
			fmt.Sprintf("%s_%d@example.com", name, rand.Int63()),
			string(hash), role,
		).Scan(&id)
		if err != nil {
			t.Fatalf("seed %s: %v", name, err)
		}
		return id
	}

	s.payerID = insert("payer", "user")
	s.providerID = insert("provider", "user")
	s.adminID = insert("admin", "admin")
	return s
}

func dumpRecent(t *testing.T, ctx context.Context, pool *pgxpool.Pool) {
	t.Helper()
	type dump struct {
		name string
		sql  string
	}
	dumps := []dump{
		{"deals", `SELECT id, status, payment_status, payer_id, provider_id, funded_at, released_at FROM deals ORDER BY id DESC LIMIT 50`},
		{"transactions", `SELECT id, deal_id, type, amount, released_to FROM transactions ORDER BY id DESC LIMIT 50`},
		{"disputes", `SELECT id, deal_id, status, resolution FROM disputes ORDER BY created_at DESC LIMIT 50`},
		{"invite_codes", `SELECT code, deal_id, created_at FROM invite_codes ORDER BY created_at DESC LIMIT 50`},
	}
	for _, d := range dumps {
		rows, err := pool.Query(ctx, d.sql)
		if err != nil {
			t.Logf("dump %s error: %v", d.name, err)
			continue
		}
		cols := rows.FieldDescriptions()
		t.Logf("-- %s --", d.name)
		for rows.Next() {
			vals, _ := rows.Values()
			buf := make([]any, 0, len(vals))
			for i := range vals {
				buf = append(buf, fmt.Sprintf("%s=%v", string(cols[i].Name), vals[i]))
			}
			t.Logf("%s", buf)
		}
		rows.Close()
	}
}
