// Command navald runs naval matches over plain websockets, without a Nakama cluster.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"navalwar/internal/app"
	"navalwar/internal/config"
	"navalwar/internal/ports/sqlstore"
	"navalwar/internal/ports/ws"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// nakamaStyleEnv exposes NAVAL_* process variables under the naval_* keys the config layer reads.
func nakamaStyleEnv() map[string]string {
	out := make(map[string]string)
	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if ok && strings.HasPrefix(k, "NAVAL_") {
			out[strings.ToLower(k)] = v
		}
	}
	return out
}

func main() {
	addr := flag.String("addr", envOr("NAVAL_ADDR", ":8080"), "listen address")
	configPath := flag.String("config", envOr("NAVAL_CONFIG", "data/naval_config.json"), "game config file")
	dbPath := flag.String("db", envOr("NAVAL_DB", "data/naval.db"), "sqlite snapshot database")
	secret := flag.String("ticket-secret", os.Getenv("NAVAL_TICKET_SECRET"), "HS256 key for seat tickets")
	dev := flag.Bool("dev", false, "human-readable debug logging")
	anyOrigin := flag.Bool("any-origin", false, "accept websocket upgrades from any origin")
	flag.Parse()

	logger, err := ws.NewZapLogger(*dev)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if err := config.LoadGameConfig(*configPath); err != nil {
		logger.Error("navald: %v", err)
		os.Exit(1)
	}
	cfg := *config.GetGameConfig()
	if err := cfg.ApplyEnv(nakamaStyleEnv()); err != nil {
		logger.Error("navald: %v", err)
		os.Exit(1)
	}
	if *secret != "" {
		cfg.TicketSecret = *secret
	}
	if cfg.TicketSecret == "" {
		logger.Error("navald: a ticket secret is required (-ticket-secret or NAVAL_TICKET_SECRET)")
		os.Exit(1)
	}

	store, err := sqlstore.Open(*dbPath)
	if err != nil {
		logger.Error("navald: %v", err)
		os.Exit(1)
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := app.NewRegistry(ctx, func() *app.Service {
		return app.NewService(nil, cfg.ClockSettings())
	}, store, logger, app.WithTickInterval(cfg.TickInterval()))
	resumeMatches(ctx, registry, store, logger)

	tickets := app.NewTicketService(cfg.TicketSecret, "navald", cfg.TicketTTL())
	var opts []ws.Option
	if *anyOrigin {
		opts = append(opts, ws.WithOriginCheck(func(*http.Request) bool { return true }))
	}
	srv := &http.Server{
		Addr:              *addr,
		Handler:           ws.NewServer(registry, tickets, logger, opts...).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("navald: listening on %s", *addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("navald: %v", err)
	}
	registry.Wait()
}

// resumeMatches restarts the clocks of the most recent unfinished matches.
func resumeMatches(ctx context.Context, registry *app.Registry, store *sqlstore.Store, logger *ws.ZapLogger) {
	ids, err := store.MatchIDs(ctx, 100)
	if err != nil {
		logger.Warn("navald: cannot list stored matches: %v", err)
		return
	}
	for _, id := range ids {
		if _, err := registry.Get(ctx, id); err != nil {
			logger.Warn("navald: cannot resume match %s: %v", id, err)
			continue
		}
		registry.Release(id)
	}
	logger.Info("navald: %d live matches after restart", registry.Len())
}
