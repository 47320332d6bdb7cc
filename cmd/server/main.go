package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/tragent/account-engine/internal/account"
	"github.com/tragent/account-engine/internal/api"
	"github.com/tragent/account-engine/internal/automaton"
	"github.com/tragent/account-engine/internal/catalog"
	"github.com/tragent/account-engine/internal/config"
	"github.com/tragent/account-engine/internal/limits"
	"github.com/tragent/account-engine/internal/store"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"), os.Getenv)
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	// --- Initialize state slot ---
	slot, cleanup, err := openSlot(context.Background(), cfg)
	if err != nil {
		slog.Error("state backend init failed", "err", err)
		os.Exit(1)
	}
	defer func() {
		for _, fn := range cleanup {
			fn()
		}
	}()

	// --- Exposure limits ---
	limiter := limits.NewExposureLimiter(cfg.MaxPerToken, cfg.MaxTotalExposure)
	if limiter.Enabled() {
		slog.Info("exposure limits enabled",
			"max_per_token", cfg.MaxPerToken.String(),
			"max_total", cfg.MaxTotalExposure.String(),
		)
	}

	// --- WebSocket hub ---
	hub := api.NewHub()
	go hub.Run()

	// --- Account service ---
	cat := catalog.Mock()
	accounts := account.NewService(context.Background(), store.NewPersister(slot, cfg.StateKey), cat, account.Options{
		Limiter:  limiter,
		Notifier: hub,
	})

	// --- Automaton agents ---
	registry := automaton.NewRegistry(slot, automaton.DefaultRegistryKey, nil)
	provider := automaton.NewProvider(cfg.ConwayAPIURL, cfg.ConwayAPIKey)

	// --- HTTP router ---
	handler := api.NewHandler(accounts, cat, registry, provider)
	r := api.NewRouter(handler, hub)

	// --- Server ---
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("account-engine listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	slog.Info("shutting down account-engine...")
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "err", err)
	}
	hub.Stop()
	// Flush the last state before the backends close.
	accounts.Close()
	fmt.Println("account-engine stopped")
}

// openSlot picks the state backend: PostgreSQL (optionally behind a Redis
// cache), then Redis alone, then a local directory, then memory.
func openSlot(ctx context.Context, cfg config.Config) (store.Slot, []func(), error) {
	var cleanup []func()

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		rdb = redis.NewClient(opt)
		cleanup = append(cleanup, func() { rdb.Close() })
	}

	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, cleanup, fmt.Errorf("database connection failed: %w", err)
		}
		cleanup = append(cleanup, pool.Close)

		pg := store.NewPostgresSlot(pool)
		if err := pg.Migrate(ctx); err != nil {
			return nil, cleanup, fmt.Errorf("database migration failed: %w", err)
		}
		slog.Info("connected to PostgreSQL")

		// Wrap with Redis read-through cache if configured.
		if rdb != nil {
			slog.Info("Redis cache enabled", "ttl", cfg.CacheTTL.String())
			return store.NewCachedSlot(pg, rdb, cfg.CacheTTL), cleanup, nil
		}
		return pg, cleanup, nil
	}

	if rdb != nil {
		slog.Info("using Redis state slot")
		return store.NewRedisSlot(rdb, "tragent:"), cleanup, nil
	}

	if cfg.StateDir != "" {
		fs, err := store.NewFileSlot(cfg.StateDir)
		if err != nil {
			return nil, cleanup, err
		}
		slog.Info("using file state slot", "dir", cfg.StateDir)
		return fs, cleanup, nil
	}

	slog.Warn("no DATABASE_URL, REDIS_URL or STATE_DIR set, using in-memory state (data will not persist)")
	return store.NewMemorySlot(), cleanup, nil
}
