// Package main is the entry point for the Wishing Well API server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"wishing-well/internal/checkout"
	"wishing-well/internal/config"
	"wishing-well/internal/handler"
	"wishing-well/internal/pkg/cache"
	"wishing-well/internal/pkg/db"
	"wishing-well/internal/pkg/lock"
	"wishing-well/internal/repository"
	"wishing-well/internal/service"
)

func main() {
	// Configure zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// Load configuration
	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log.Info().Msg("Configuration loaded successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection pool
	dbPool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbPool.Close()

	// Run database migrations
	if err := runMigrations(ctx, dbPool); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	// Initialize the optional feed snapshot cache
	feedCache, err := cache.New(ctx, &cfg.Redis)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to redis")
	}
	defer feedCache.Close()

	// Initialize repositories
	sessionRepo := repository.NewSessionRepository(dbPool.Pool)
	wishRepo := repository.NewWishRepository(dbPool.Pool)
	boostRepo := repository.NewBoostRepository(dbPool.Pool)

	// Initialize session lock
	sessionLock := lock.NewSessionLock()

	// Initialize services
	sessionService := service.NewSessionService(dbPool.Pool, sessionRepo)
	wishService := service.NewWishService(dbPool.Pool, sessionRepo, wishRepo, sessionLock, feedCache, cfg.Ranking)
	boostService := service.NewBoostService(dbPool.Pool, sessionRepo, wishRepo, boostRepo, sessionLock, cfg.Boost.Cooldown)

	stripeClient := checkout.NewClient(cfg.Stripe.SecretKey, cfg.Stripe.APIBase)
	checkoutService := service.NewCheckoutService(
		stripeClient,
		sessionRepo,
		cfg.Stripe.DefaultPriceID,
		cfg.Quota.DefaultPackCredits,
	)

	gin.SetMode(gin.ReleaseMode)
	router := handler.NewRouter(&handler.Dependencies{
		Config:   cfg,
		Sessions: sessionService,
		Wishes:   wishService,
		Boosts:   boostService,
		Checkout: checkoutService,
		Health:   dbPool,
	})

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info().Str("addr", server.Addr).Msg("Server is starting...")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}
	log.Info().Msg("Server stopped gracefully")
}

// runMigrations executes database migrations.
func runMigrations(ctx context.Context, pool *db.Pool) error {
	log.Info().Msg("Running database migrations...")

	// Migration 1: Create sessions table (the quota ledger)
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS sessions (
			token TEXT PRIMARY KEY,
			free_wish_used BOOLEAN NOT NULL DEFAULT FALSE,
			purchased_wishes INTEGER NOT NULL DEFAULT 0 CHECK (purchased_wishes >= 0),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 1: sessions table created")

	// Migration 2: Create wishes table
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS wishes (
			id UUID PRIMARY KEY,
			text VARCHAR(200) NOT NULL,
			boosts BIGINT NOT NULL DEFAULT 0,
			is_public BOOLEAN NOT NULL DEFAULT TRUE,
			flagged BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_wishes_boosts_created ON wishes(boosts DESC, created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_wishes_created ON wishes(created_at DESC);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 2: wishes table created")

	// Migration 3: Create boost event log
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS wishes_boosts (
			id UUID PRIMARY KEY,
			wish_id UUID NOT NULL REFERENCES wishes(id) ON DELETE CASCADE,
			who TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_wishes_boosts_rate ON wishes_boosts(wish_id, who, created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_wishes_boosts_created ON wishes_boosts(created_at DESC);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 3: wishes_boosts table created")

	// Migration 4: Create checkout crediting ledger
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS credited_checkouts (
			checkout_session_id TEXT PRIMARY KEY,
			token TEXT NOT NULL,
			credits INTEGER NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 4: credited_checkouts table created")

	log.Info().Msg("All migrations completed successfully")
	return nil
}
