// Package main is the entry point for the lottery marketplace server.
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

	"lotto-market/internal/config"
	"lotto-market/internal/handlers"
	"lotto-market/internal/lotto"
	"lotto-market/internal/pkg/db"
	"lotto-market/internal/pkg/lock"
	"lotto-market/internal/repository"
	"lotto-market/internal/service"
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

	// Initialize repositories
	ticketRepo := repository.NewTicketRepository(dbPool.Pool)
	walletRepo := repository.NewWalletRepository(dbPool.Pool)
	drawRepo := repository.NewDrawRepository(dbPool.Pool)

	// Per-ticket lock shared by sale and redemption
	ticketLock := lock.New()

	rng := lotto.NewSource()

	// Initialize services
	poolService := service.NewPoolService(
		dbPool.Pool,
		ticketRepo,
		walletRepo,
		drawRepo,
		ticketLock,
		rng,
		cfg.Pool.MaxBatchSize,
	)
	drawService := service.NewDrawService(dbPool.Pool, ticketRepo, drawRepo, rng)
	walletService := service.NewWalletService(dbPool.Pool, walletRepo, ticketRepo, drawRepo, ticketLock)

	// Initialize HTTP router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	handler := handlers.NewHTTPHandler(poolService, drawService, walletService, dbPool)
	handler.RegisterRoutes(router)

	server := &http.Server{
		Addr:    cfg.Server.Addr(),
		Handler: router,
	}

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}
	log.Info().Msg("Server stopped gracefully")
}

// runMigrations executes database migrations.
func runMigrations(ctx context.Context, pool *db.Pool) error {
	log.Info().Msg("Running database migrations...")

	// Migration 1: Create tickets table
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS tickets (
			id BIGSERIAL PRIMARY KEY,
			number VARCHAR(6) NOT NULL,
			price BIGINT NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'available',
			user_id BIGINT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_tickets_status ON tickets(status);
		CREATE INDEX IF NOT EXISTS idx_tickets_user ON tickets(user_id);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 1: tickets table created")

	// Migration 2: Create wallets table
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS wallets (
			user_id BIGINT PRIMARY KEY,
			balance BIGINT NOT NULL DEFAULT 0 CHECK (balance >= 0),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 2: wallets table created")

	// Migration 3: Create draws table
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS draws (
			id BIGSERIAL PRIMARY KEY,
			mode VARCHAR(20) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 3: draws table created")

	// Migration 4: Create prizes and winner_records tables
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS prizes (
			id BIGSERIAL PRIMARY KEY,
			draw_id BIGINT NOT NULL REFERENCES draws(id) ON DELETE CASCADE,
			prize_rank INT NOT NULL,
			prize_number VARCHAR(6) NOT NULL,
			prize_amount BIGINT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_prizes_draw ON prizes(draw_id);

		CREATE TABLE IF NOT EXISTS winner_records (
			id BIGSERIAL PRIMARY KEY,
			ticket_id BIGINT NOT NULL REFERENCES tickets(id) ON DELETE CASCADE,
			draw_id BIGINT NOT NULL REFERENCES draws(id) ON DELETE CASCADE,
			prize_rank INT NOT NULL,
			prize_amount BIGINT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_winner_records_ticket ON winner_records(ticket_id);
		CREATE INDEX IF NOT EXISTS idx_winner_records_draw ON winner_records(draw_id);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 4: prizes and winner_records tables created")

	log.Info().Msg("All migrations completed successfully")
	return nil
}
