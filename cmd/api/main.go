package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"escrowflow/config"
	"escrowflow/db"
	"escrowflow/deal"
	"escrowflow/dispute"
	"escrowflow/httpapi"
	"escrowflow/identity"
	"escrowflow/invite"
	"escrowflow/notify"
	"escrowflow/obs"
	"escrowflow/txlog"
)

type stores struct {
	users    identity.Repository
	deals    deal.Repository
	invites  invite.Registry
	disputes dispute.Repository
	txs      txlog.Log
	notices  notify.Sink
}

// buildStores selects postgres-backed stores when DATABASE_URL is set and
// falls back to the in-memory implementations otherwise.
func buildStores(ctx context.Context, cfg *config.Config) (stores, func(), error) {
	if cfg.Database.URL == "" {
		obs.Event("stores_ready", map[string]any{"backend": "memory"})
		return stores{
			users:    identity.NewMemoryRepository(),
			deals:    deal.NewMemoryRepository(),
			invites:  invite.NewMemoryRegistry(),
			disputes: dispute.NewMemoryRepository(),
			txs:      txlog.NewMemoryLog(),
			notices:  notify.NewMemorySink(),
		}, func() {}, nil
	}

	pool, err := db.NewPool(ctx, cfg.Database.URL)
	if err != nil {
		return stores{}, nil, fmt.Errorf("bootstrap database pool: %w", err)
	}
	obs.Event("stores_ready", map[string]any{"backend": "postgres"})
	return stores{
		users:    identity.NewPGRepository(pool),
		deals:    deal.NewPGRepository(pool),
		invites:  invite.NewPGRegistry(pool),
		disputes: dispute.NewPGRepository(pool),
		txs:      txlog.NewPGLog(pool),
		notices:  notify.NewPGSink(pool),
	}, pool.Close, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	obs.Init()

	st, closeStores, err := buildStores(ctx, cfg)
	if err != nil {
		log.Fatalf("bootstrap stores: %v", err)
	}
	defer closeStores()

	users := identity.NewService(st.users, cfg.Auth.JWTSecret)
	deals := deal.NewService(st.deals, st.invites, users, st.txs, st.notices)
	disputes := dispute.NewService(st.disputes, deals, st.notices)

	api := httpapi.NewServer(users, deals, disputes, st.txs, st.notices)
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		obs.Event("server_listening", map[string]any{"addr": srv.Addr})
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown: %v", err)
		}
		obs.Event("server_stopped", nil)
	}
}
