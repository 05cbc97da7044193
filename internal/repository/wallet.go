package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"lotto-market/internal/model"
)

// WalletRepository handles wallet balance persistence.
type WalletRepository struct {
	pool *pgxpool.Pool
}

// NewWalletRepository creates a new WalletRepository instance.
func NewWalletRepository(pool *pgxpool.Pool) *WalletRepository {
	return &WalletRepository{pool: pool}
}

func scanWallet(row pgx.Row) (*model.Wallet, error) {
	var w model.Wallet
	err := row.Scan(
		&w.UserID,
		&w.Balance,
		&w.CreatedAt,
		&w.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// Get retrieves a wallet by user id.
// Returns ErrWalletNotFound if the wallet does not exist.
func (r *WalletRepository) Get(ctx context.Context, userID int64) (*model.Wallet, error) {
	const query = `
		SELECT user_id, balance, created_at, updated_at
		FROM wallets
		WHERE user_id = $1
	`

	w, err := scanWallet(r.pool.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}

	return w, nil
}

// TopUp adds amount to a user's wallet, creating the wallet on first use.
// Returns the updated wallet.
func (r *WalletRepository) TopUp(ctx context.Context, userID, amount int64) (*model.Wallet, error) {
	const query = `
		INSERT INTO wallets (user_id, balance, created_at, updated_at)
		VALUES ($1, $2, NOW(), NOW())
		ON CONFLICT (user_id)
		DO UPDATE SET balance = wallets.balance + $2, updated_at = NOW()
		RETURNING user_id, balance, created_at, updated_at
	`

	w, err := scanWallet(r.pool.QueryRow(ctx, query, userID, amount))
	if err != nil {
		return nil, fmt.Errorf("failed to top up wallet: %w", err)
	}

	return w, nil
}

// Debit subtracts amount from a user's wallet in one guarded statement.
// Returns the new balance, ErrInsufficient when the balance is too low, or
// ErrWalletNotFound when the user has no wallet.
func (r *WalletRepository) Debit(ctx context.Context, db Querier, userID, amount int64) (int64, error) {
	const query = `
		UPDATE wallets
		SET balance = balance - $2, updated_at = NOW()
		WHERE user_id = $1 AND balance >= $2
		RETURNING balance
	`

	var balance int64
	err := db.QueryRow(ctx, query, userID, amount).Scan(&balance)
	if err == nil {
		return balance, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("failed to debit wallet: %w", err)
	}

	// Zero rows: either the wallet is missing or the guard rejected it.
	var exists bool
	if err := db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM wallets WHERE user_id = $1)`, userID).Scan(&exists); err != nil {
		return 0, fmt.Errorf("failed to check wallet existence: %w", err)
	}
	if !exists {
		return 0, ErrWalletNotFound
	}
	return 0, ErrInsufficient
}

// Credit adds amount to a user's wallet and returns the new balance.
// Returns ErrWalletNotFound if the wallet does not exist.
func (r *WalletRepository) Credit(ctx context.Context, db Querier, userID, amount int64) (int64, error) {
	const query = `
		UPDATE wallets
		SET balance = balance + $2, updated_at = NOW()
		WHERE user_id = $1
		RETURNING balance
	`

	var balance int64
	err := db.QueryRow(ctx, query, userID, amount).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrWalletNotFound
		}
		return 0, fmt.Errorf("failed to credit wallet: %w", err)
	}

	return balance, nil
}

// List retrieves every wallet ordered by user id.
func (r *WalletRepository) List(ctx context.Context) ([]model.Wallet, error) {
	const query = `
		SELECT user_id, balance, created_at, updated_at
		FROM wallets
		ORDER BY user_id ASC
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list wallets: %w", err)
	}
	defer rows.Close()

	var wallets []model.Wallet
	for rows.Next() {
		w, err := scanWallet(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan wallet: %w", err)
		}
		wallets = append(wallets, *w)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating wallets: %w", err)
	}

	return wallets, nil
}
