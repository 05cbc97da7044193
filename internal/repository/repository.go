// Package repository provides data access layer implementations.
package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Common errors for repository operations.
var (
	ErrTicketNotFound = errors.New("ticket not found")
	ErrTicketSold     = errors.New("ticket already sold")
	ErrWalletNotFound = errors.New("wallet not found")
	ErrInsufficient   = errors.New("insufficient balance")
	ErrDrawNotFound   = errors.New("draw not found")
)

// Querier is the subset of pgx operations the repositories need. It is
// satisfied by both *pgxpool.Pool and pgx.Tx, so the same repository method
// can run standalone or as one step of a larger transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}
