package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"lotto-market/internal/model"
)

// DrawRepository handles draw, prize, and winner record persistence.
type DrawRepository struct {
	pool *pgxpool.Pool
}

// NewDrawRepository creates a new DrawRepository instance.
func NewDrawRepository(pool *pgxpool.Pool) *DrawRepository {
	return &DrawRepository{pool: pool}
}

// InsertDraw persists a new draw row and returns it with its generated id.
func (r *DrawRepository) InsertDraw(ctx context.Context, db Querier, mode string) (*model.Draw, error) {
	const query = `
		INSERT INTO draws (mode, created_at)
		VALUES ($1, NOW())
		RETURNING id, mode, created_at
	`

	var d model.Draw
	err := db.QueryRow(ctx, query, mode).Scan(&d.ID, &d.Mode, &d.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert draw: %w", err)
	}

	return &d, nil
}

// InsertPrize persists one rank's winning value and amount for a draw.
func (r *DrawRepository) InsertPrize(ctx context.Context, db Querier, drawID int64, rank int, number string, amount int64) (*model.Prize, error) {
	const query = `
		INSERT INTO prizes (draw_id, prize_rank, prize_number, prize_amount)
		VALUES ($1, $2, $3, $4)
		RETURNING id, draw_id, prize_rank, prize_number, prize_amount
	`

	var p model.Prize
	err := db.QueryRow(ctx, query, drawID, rank, number, amount).Scan(
		&p.ID,
		&p.DrawID,
		&p.Rank,
		&p.Number,
		&p.Amount,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert prize: %w", err)
	}

	return &p, nil
}

// InsertWinnerRecords persists one redemption-eligibility row per matched
// ticket for a rank.
func (r *DrawRepository) InsertWinnerRecords(ctx context.Context, db Querier, drawID int64, rank int, amount int64, ticketIDs []int64) error {
	if len(ticketIDs) == 0 {
		return nil
	}

	const query = `
		INSERT INTO winner_records (ticket_id, draw_id, prize_rank, prize_amount)
		VALUES ($1, $2, $3, $4)
	`

	batch := &pgx.Batch{}
	for _, ticketID := range ticketIDs {
		batch.Queue(query, ticketID, drawID, rank, amount)
	}

	results := db.SendBatch(ctx, batch)
	defer results.Close()

	for range ticketIDs {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to insert winner record: %w", err)
		}
	}

	return nil
}

// ClearResults deletes all prize and winner record rows. Confirm calls this
// so that only the newest draw's redemption set is live.
func (r *DrawRepository) ClearResults(ctx context.Context, db Querier) error {
	if _, err := db.Exec(ctx, `DELETE FROM winner_records`); err != nil {
		return fmt.Errorf("failed to clear winner records: %w", err)
	}
	if _, err := db.Exec(ctx, `DELETE FROM prizes`); err != nil {
		return fmt.Errorf("failed to clear prizes: %w", err)
	}
	return nil
}

// ListDraws retrieves all draws, most recent first.
func (r *DrawRepository) ListDraws(ctx context.Context) ([]model.Draw, error) {
	const query = `
		SELECT id, mode, created_at
		FROM draws
		ORDER BY id DESC
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list draws: %w", err)
	}
	defer rows.Close()

	var draws []model.Draw
	for rows.Next() {
		var d model.Draw
		if err := rows.Scan(&d.ID, &d.Mode, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan draw: %w", err)
		}
		draws = append(draws, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating draws: %w", err)
	}

	return draws, nil
}

// LatestDraw retrieves the most recent draw.
// Returns ErrDrawNotFound when no draw has been confirmed yet.
func (r *DrawRepository) LatestDraw(ctx context.Context) (*model.Draw, error) {
	const query = `
		SELECT id, mode, created_at
		FROM draws
		ORDER BY id DESC
		LIMIT 1
	`

	var d model.Draw
	err := r.pool.QueryRow(ctx, query).Scan(&d.ID, &d.Mode, &d.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDrawNotFound
		}
		return nil, fmt.Errorf("failed to get latest draw: %w", err)
	}

	return &d, nil
}

// PrizesByDraw retrieves the prize rows for a draw ordered by rank.
func (r *DrawRepository) PrizesByDraw(ctx context.Context, drawID int64) ([]model.Prize, error) {
	const query = `
		SELECT id, draw_id, prize_rank, prize_number, prize_amount
		FROM prizes
		WHERE draw_id = $1
		ORDER BY prize_rank ASC
	`

	rows, err := r.pool.Query(ctx, query, drawID)
	if err != nil {
		return nil, fmt.Errorf("failed to list prizes: %w", err)
	}
	defer rows.Close()

	var prizes []model.Prize
	for rows.Next() {
		var p model.Prize
		if err := rows.Scan(&p.ID, &p.DrawID, &p.Rank, &p.Number, &p.Amount); err != nil {
			return nil, fmt.Errorf("failed to scan prize: %w", err)
		}
		prizes = append(prizes, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating prizes: %w", err)
	}

	return prizes, nil
}

func scanWinnerRecords(rows pgx.Rows) ([]model.WinnerRecord, error) {
	defer rows.Close()

	var records []model.WinnerRecord
	for rows.Next() {
		var w model.WinnerRecord
		if err := rows.Scan(&w.ID, &w.TicketID, &w.DrawID, &w.Rank, &w.Amount); err != nil {
			return nil, fmt.Errorf("failed to scan winner record: %w", err)
		}
		records = append(records, w)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating winner records: %w", err)
	}

	return records, nil
}

// WinnerRecordsByDraw retrieves all winner records for a draw.
func (r *DrawRepository) WinnerRecordsByDraw(ctx context.Context, drawID int64) ([]model.WinnerRecord, error) {
	const query = `
		SELECT id, ticket_id, draw_id, prize_rank, prize_amount
		FROM winner_records
		WHERE draw_id = $1
		ORDER BY prize_rank ASC, ticket_id ASC
	`

	rows, err := r.pool.Query(ctx, query, drawID)
	if err != nil {
		return nil, fmt.Errorf("failed to list winner records: %w", err)
	}
	return scanWinnerRecords(rows)
}

// WinnerRecordsForTicket retrieves the winner records for one ticket,
// restricted to the given owner. Rows are locked for the surrounding
// redemption transaction.
func (r *DrawRepository) WinnerRecordsForTicket(ctx context.Context, db Querier, ticketID, userID int64) ([]model.WinnerRecord, error) {
	const query = `
		SELECT w.id, w.ticket_id, w.draw_id, w.prize_rank, w.prize_amount
		FROM winner_records w
		JOIN tickets t ON w.ticket_id = t.id
		WHERE w.ticket_id = $1 AND t.user_id = $2
		ORDER BY w.prize_rank ASC
		FOR UPDATE OF w
	`

	rows, err := db.Query(ctx, query, ticketID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get winner records: %w", err)
	}
	return scanWinnerRecords(rows)
}

// DeleteWinnerRecordsForTicket removes every winner record held by a ticket.
func (r *DrawRepository) DeleteWinnerRecordsForTicket(ctx context.Context, db Querier, ticketID int64) error {
	if _, err := db.Exec(ctx, `DELETE FROM winner_records WHERE ticket_id = $1`, ticketID); err != nil {
		return fmt.Errorf("failed to delete winner records: %w", err)
	}
	return nil
}

// WinningsByUser joins a user's tickets against the live winner records,
// one row per (ticket, rank) match.
func (r *DrawRepository) WinningsByUser(ctx context.Context, userID int64) ([]model.Winning, error) {
	const query = `
		SELECT t.id AS ticket_id, t.number, t.price, w.prize_rank, w.prize_amount
		FROM tickets t
		JOIN winner_records w ON t.id = w.ticket_id
		WHERE t.user_id = $1
		ORDER BY t.id ASC, w.prize_rank ASC
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get winnings: %w", err)
	}
	defer rows.Close()

	var winnings []model.Winning
	for rows.Next() {
		var w model.Winning
		if err := rows.Scan(&w.TicketID, &w.Number, &w.Price, &w.Rank, &w.Amount); err != nil {
			return nil, fmt.Errorf("failed to scan winning: %w", err)
		}
		winnings = append(winnings, w)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating winnings: %w", err)
	}

	return winnings, nil
}
