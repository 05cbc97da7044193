package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"lotto-market/internal/model"
	"lotto-market/internal/pkg/lock"
	"lotto-market/internal/repository"
)

// Wallet and redemption errors.
var (
	ErrInvalidAmount = errors.New("amount must be positive")
	ErrNoPrizeWon    = errors.New("ticket did not win any prize")
)

// RedeemedPrize is one rank paid out during a redemption.
type RedeemedPrize struct {
	Rank   int   `json:"prize_rank"`
	Amount int64 `json:"prize_amount"`
}

// RedemptionResult is the outcome of redeeming a ticket: every matched rank
// paid in a single credit, after which the ticket no longer exists.
type RedemptionResult struct {
	TicketID int64           `json:"ticket_id"`
	Total    int64           `json:"total_amount"`
	Prizes   []RedeemedPrize `json:"prizes"`
	Balance  int64           `json:"new_balance"`
}

// WalletService handles wallet top-ups, balance queries, and prize
// redemption against the live winner records.
type WalletService struct {
	pool       *pgxpool.Pool
	wallets    *repository.WalletRepository
	tickets    *repository.TicketRepository
	draws      *repository.DrawRepository
	ticketLock *lock.KeyedLock
}

// NewWalletService creates a new WalletService instance.
func NewWalletService(
	pool *pgxpool.Pool,
	wallets *repository.WalletRepository,
	tickets *repository.TicketRepository,
	draws *repository.DrawRepository,
	ticketLock *lock.KeyedLock,
) *WalletService {
	return &WalletService{
		pool:       pool,
		wallets:    wallets,
		tickets:    tickets,
		draws:      draws,
		ticketLock: ticketLock,
	}
}

// TopUp adds amount to a user's wallet, creating it on first use.
func (s *WalletService) TopUp(ctx context.Context, userID, amount int64) (*model.Wallet, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	return s.wallets.TopUp(ctx, userID, amount)
}

// Balance retrieves a user's current balance.
func (s *WalletService) Balance(ctx context.Context, userID int64) (int64, error) {
	wallet, err := s.wallets.Get(ctx, userID)
	if err != nil {
		return 0, err
	}
	return wallet.Balance, nil
}

// Wallets returns every wallet.
func (s *WalletService) Wallets(ctx context.Context) ([]model.Wallet, error) {
	return s.wallets.List(ctx)
}

// Winnings returns the user's tickets that currently hold winner records,
// one entry per (ticket, rank) match.
func (s *WalletService) Winnings(ctx context.Context, userID int64) ([]model.Winning, error) {
	return s.draws.WinningsByUser(ctx, userID)
}

// Redeem pays out every winner record held by the caller's ticket in one
// credit, then deletes the ticket and its records. One-shot and
// irreversible: a second attempt on the same ticket finds no records and
// fails with ErrNoPrizeWon. A ticket matching several ranks is paid the sum
// of all of them.
func (s *WalletService) Redeem(ctx context.Context, userID, ticketID int64) (*RedemptionResult, error) {
	s.ticketLock.Lock(ticketID)
	defer s.ticketLock.Unlock(ticketID)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	records, err := s.draws.WinnerRecordsForTicket(ctx, tx, ticketID, userID)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNoPrizeWon
	}

	result := &RedemptionResult{TicketID: ticketID}
	for _, record := range records {
		result.Total += record.Amount
		result.Prizes = append(result.Prizes, RedeemedPrize{
			Rank:   record.Rank,
			Amount: record.Amount,
		})
	}

	balance, err := s.wallets.Credit(ctx, tx, userID, result.Total)
	if err != nil {
		return nil, err
	}
	result.Balance = balance

	if err := s.draws.DeleteWinnerRecordsForTicket(ctx, tx, ticketID); err != nil {
		return nil, err
	}
	if err := s.tickets.Delete(ctx, tx, ticketID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit redemption: %w", err)
	}

	return result, nil
}
