// Package service provides business logic implementations.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"lotto-market/internal/lotto"
	"lotto-market/internal/model"
	"lotto-market/internal/pkg/lock"
	"lotto-market/internal/repository"
)

// Ticket pool errors.
var (
	ErrInvalidCount  = errors.New("count must be positive")
	ErrInvalidPrice  = errors.New("price must be positive")
	ErrBatchTooLarge = errors.New("batch size exceeds the configured maximum")
)

// PoolService manages the ticket pool: bulk generation, listings, and the
// atomic sale of a ticket against a wallet balance.
type PoolService struct {
	pool       *pgxpool.Pool
	tickets    *repository.TicketRepository
	wallets    *repository.WalletRepository
	draws      *repository.DrawRepository
	ticketLock *lock.KeyedLock
	rng        lotto.Source
	maxBatch   int
}

// NewPoolService creates a new PoolService instance.
func NewPoolService(
	pool *pgxpool.Pool,
	tickets *repository.TicketRepository,
	wallets *repository.WalletRepository,
	draws *repository.DrawRepository,
	ticketLock *lock.KeyedLock,
	rng lotto.Source,
	maxBatch int,
) *PoolService {
	return &PoolService{
		pool:       pool,
		tickets:    tickets,
		wallets:    wallets,
		draws:      draws,
		ticketLock: ticketLock,
		rng:        rng,
		maxBatch:   maxBatch,
	}
}

// Generate creates count available tickets with distinct 6-digit numbers and
// a shared price. Numbers are unique within the batch only; the pool may
// already hold the same number from an earlier batch.
func (s *PoolService) Generate(ctx context.Context, count int, price int64) ([]model.Ticket, error) {
	if count <= 0 {
		return nil, ErrInvalidCount
	}
	if price <= 0 {
		return nil, ErrInvalidPrice
	}
	if s.maxBatch > 0 && count > s.maxBatch {
		return nil, ErrBatchTooLarge
	}

	numbers, err := lotto.GenerateNumbers(s.rng, count)
	if err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tickets, err := s.tickets.CreateBatch(ctx, tx, numbers, price)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit ticket batch: %w", err)
	}

	return tickets, nil
}

// ListAll returns every ticket in the pool.
func (s *PoolService) ListAll(ctx context.Context) ([]model.Ticket, error) {
	return s.tickets.ListAll(ctx)
}

// ListAvailable returns the tickets still for sale.
func (s *PoolService) ListAvailable(ctx context.Context) ([]model.Ticket, error) {
	return s.tickets.ListByStatus(ctx, model.TicketAvailable)
}

// ListByUser returns the tickets owned by a user.
func (s *PoolService) ListByUser(ctx context.Context, userID int64) ([]model.Ticket, error) {
	return s.tickets.ListByUser(ctx, userID)
}

// Sell performs the atomic sale of a ticket: the ticket must be available
// and the buyer's wallet must cover its price. The debit and the ownership
// transfer commit together or not at all. Returns the buyer's new balance.
func (s *PoolService) Sell(ctx context.Context, ticketID, userID int64) (int64, error) {
	s.ticketLock.Lock(ticketID)
	defer s.ticketLock.Unlock(ticketID)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	ticket, err := s.tickets.GetForUpdate(ctx, tx, ticketID)
	if err != nil {
		return 0, err
	}
	if ticket.Sold() {
		return 0, repository.ErrTicketSold
	}

	balance, err := s.wallets.Debit(ctx, tx, userID, ticket.Price)
	if err != nil {
		return 0, err
	}

	if err := s.tickets.MarkSold(ctx, tx, ticketID, userID); err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit sale: %w", err)
	}

	return balance, nil
}

// Reset deletes every ticket together with all prize and winner record rows.
// Owner operation; draw history rows are kept.
func (s *PoolService) Reset(ctx context.Context) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := s.draws.ClearResults(ctx, tx); err != nil {
		return err
	}
	if err := s.tickets.DeleteAll(ctx, tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit reset: %w", err)
	}

	return nil
}
