package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"lotto-market/internal/model"
)

// TicketRepository handles ticket pool persistence.
type TicketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository creates a new TicketRepository instance.
func NewTicketRepository(pool *pgxpool.Pool) *TicketRepository {
	return &TicketRepository{pool: pool}
}

func scanTicket(row pgx.Row) (*model.Ticket, error) {
	var t model.Ticket
	err := row.Scan(
		&t.ID,
		&t.Number,
		&t.Price,
		&t.Status,
		&t.UserID,
		&t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func scanTickets(rows pgx.Rows) ([]model.Ticket, error) {
	defer rows.Close()

	var tickets []model.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ticket: %w", err)
		}
		tickets = append(tickets, *t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tickets: %w", err)
	}

	return tickets, nil
}

// CreateBatch inserts a batch of available tickets with the given numbers
// and a shared price, returning the created rows in insertion order.
func (r *TicketRepository) CreateBatch(ctx context.Context, db Querier, numbers []string, price int64) ([]model.Ticket, error) {
	const query = `
		INSERT INTO tickets (number, price, status, created_at)
		VALUES ($1, $2, 'available', NOW())
		RETURNING id, number, price, status, user_id, created_at
	`

	batch := &pgx.Batch{}
	for _, number := range numbers {
		batch.Queue(query, number, price)
	}

	results := db.SendBatch(ctx, batch)
	defer results.Close()

	tickets := make([]model.Ticket, 0, len(numbers))
	for range numbers {
		t, err := scanTicket(results.QueryRow())
		if err != nil {
			return nil, fmt.Errorf("failed to create ticket: %w", err)
		}
		tickets = append(tickets, *t)
	}

	return tickets, nil
}

// GetByID retrieves a ticket by its id.
// Returns ErrTicketNotFound if the ticket does not exist.
func (r *TicketRepository) GetByID(ctx context.Context, db Querier, id int64) (*model.Ticket, error) {
	const query = `
		SELECT id, number, price, status, user_id, created_at
		FROM tickets
		WHERE id = $1
	`

	t, err := scanTicket(db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTicketNotFound
		}
		return nil, fmt.Errorf("failed to get ticket: %w", err)
	}

	return t, nil
}

// GetForUpdate retrieves a ticket and row-locks it for the duration of the
// surrounding transaction. Used by sale and redemption to serialize
// check-then-act sequences across processes.
func (r *TicketRepository) GetForUpdate(ctx context.Context, db Querier, id int64) (*model.Ticket, error) {
	const query = `
		SELECT id, number, price, status, user_id, created_at
		FROM tickets
		WHERE id = $1
		FOR UPDATE
	`

	t, err := scanTicket(db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTicketNotFound
		}
		return nil, fmt.Errorf("failed to get ticket: %w", err)
	}

	return t, nil
}

// ListAll retrieves every ticket ordered by id.
func (r *TicketRepository) ListAll(ctx context.Context) ([]model.Ticket, error) {
	const query = `
		SELECT id, number, price, status, user_id, created_at
		FROM tickets
		ORDER BY id ASC
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list tickets: %w", err)
	}
	return scanTickets(rows)
}

// ListByStatus retrieves tickets with the given status ordered by id.
func (r *TicketRepository) ListByStatus(ctx context.Context, status string) ([]model.Ticket, error) {
	const query = `
		SELECT id, number, price, status, user_id, created_at
		FROM tickets
		WHERE status = $1
		ORDER BY id ASC
	`

	rows, err := r.pool.Query(ctx, query, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list tickets: %w", err)
	}
	return scanTickets(rows)
}

// ListByUser retrieves all tickets owned by a user.
func (r *TicketRepository) ListByUser(ctx context.Context, userID int64) ([]model.Ticket, error) {
	const query = `
		SELECT id, number, price, status, user_id, created_at
		FROM tickets
		WHERE user_id = $1
		ORDER BY id ASC
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tickets: %w", err)
	}
	return scanTickets(rows)
}

// Snapshot returns the pool for a draw mode: every ticket for
// model.ModeAllNumbers, sold tickets otherwise. It runs on the supplied
// Querier so confirm can read the pool inside its own transaction.
func (r *TicketRepository) Snapshot(ctx context.Context, db Querier, mode string) ([]model.Ticket, error) {
	query := `
		SELECT id, number, price, status, user_id, created_at
		FROM tickets
		ORDER BY id ASC
	`
	args := []any{}
	if mode != model.ModeAllNumbers {
		query = `
			SELECT id, number, price, status, user_id, created_at
			FROM tickets
			WHERE status = $1
			ORDER BY id ASC
		`
		args = append(args, model.TicketSold)
	}

	rows, err := db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot tickets: %w", err)
	}
	return scanTickets(rows)
}

// MarkSold transitions an available ticket to sold and assigns its owner.
// Returns ErrTicketSold if the ticket was not available.
func (r *TicketRepository) MarkSold(ctx context.Context, db Querier, ticketID, userID int64) error {
	const query = `
		UPDATE tickets
		SET status = 'sold', user_id = $2
		WHERE id = $1 AND status = 'available'
	`

	result, err := db.Exec(ctx, query, ticketID, userID)
	if err != nil {
		return fmt.Errorf("failed to mark ticket sold: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrTicketSold
	}

	return nil
}

// Delete removes a ticket. Returns ErrTicketNotFound when no row matched.
func (r *TicketRepository) Delete(ctx context.Context, db Querier, id int64) error {
	result, err := db.Exec(ctx, `DELETE FROM tickets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete ticket: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrTicketNotFound
	}

	return nil
}

// DeleteAll removes every ticket. Used by the owner reset operation.
func (r *TicketRepository) DeleteAll(ctx context.Context, db Querier) error {
	if _, err := db.Exec(ctx, `DELETE FROM tickets`); err != nil {
		return fmt.Errorf("failed to delete tickets: %w", err)
	}
	return nil
}
