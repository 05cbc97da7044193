package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"

	"lotto-market/internal/lotto"
	"lotto-market/internal/model"
	"lotto-market/internal/repository"
)

// Draw errors.
var (
	ErrNoTickets      = errors.New("no tickets to draw from")
	ErrMissingResults = errors.New("draw results are required")
)

// DrawPreview is a non-committing trial draw: sampled winning values plus
// the fixed amount table for display. Nothing is persisted.
type DrawPreview struct {
	Mode    string         `json:"mode"`
	Results map[int]string `json:"results"`
	Amounts map[int]int64  `json:"amounts"`
	Pool    int            `json:"pool_size"`
}

// PrizeResult summarizes one rank of a confirmed draw.
type PrizeResult struct {
	Rank    int    `json:"prize_rank"`
	Number  string `json:"prize_number"`
	Amount  int64  `json:"prize_amount"`
	Winners int    `json:"winners"`
}

// DrawSummary is the outcome of a confirmed draw.
type DrawSummary struct {
	DrawID int64         `json:"draw_id"`
	Mode   string        `json:"mode"`
	Prizes []PrizeResult `json:"prizes"`
}

// LatestResult pairs the most recent draw with its prize rows.
type LatestResult struct {
	Draw   model.Draw    `json:"draw"`
	Prizes []model.Prize `json:"prizes"`
}

// DrawService runs draws over the ticket pool. Preview samples winning
// values without touching storage; Confirm persists a draw, its prizes, and
// the winner records for every matching ticket as a single transaction.
type DrawService struct {
	pool    *pgxpool.Pool
	tickets *repository.TicketRepository
	draws   *repository.DrawRepository
	rng     lotto.Source

	// confirmMu makes confirm globally exclusive: two confirms must never
	// interleave their clear-and-repopulate sequences.
	confirmMu sync.Mutex
}

// NewDrawService creates a new DrawService instance.
func NewDrawService(
	pool *pgxpool.Pool,
	tickets *repository.TicketRepository,
	draws *repository.DrawRepository,
	rng lotto.Source,
) *DrawService {
	return &DrawService{
		pool:    pool,
		tickets: tickets,
		draws:   draws,
		rng:     rng,
	}
}

// Preview samples winning values for every rank from the current pool
// snapshot. Purely advisory: repeated previews re-sample and nothing is
// written. Returns ErrNoTickets when the snapshot is empty.
func (s *DrawService) Preview(ctx context.Context, mode string) (*DrawPreview, error) {
	snapshot, err := s.tickets.Snapshot(ctx, s.pool, mode)
	if err != nil {
		return nil, err
	}
	if len(snapshot) == 0 {
		return nil, ErrNoTickets
	}

	numbers := make([]string, len(snapshot))
	for i, t := range snapshot {
		numbers[i] = t.Number
	}

	results, err := lotto.SampleResults(s.rng, numbers)
	if err != nil {
		return nil, err
	}

	return &DrawPreview{
		Mode:    mode,
		Results: results,
		Amounts: lotto.Amounts,
		Pool:    len(snapshot),
	}, nil
}

// Confirm executes a draw with the given results map (usually produced by
// Preview, but accepted verbatim from the caller). In one transaction it
// snapshots the pool, clears the previous draw's prize and winner rows,
// persists the new draw and its prizes with the fixed amounts, matches every
// ticket per rank, and records the winners. Any failure rolls the whole
// draw back.
func (s *DrawService) Confirm(ctx context.Context, mode string, results map[int]string) (*DrawSummary, error) {
	if len(results) == 0 {
		return nil, ErrMissingResults
	}

	s.confirmMu.Lock()
	defer s.confirmMu.Unlock()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	snapshot, err := s.tickets.Snapshot(ctx, tx, mode)
	if err != nil {
		return nil, err
	}
	if len(snapshot) == 0 {
		return nil, ErrNoTickets
	}

	if err := s.draws.ClearResults(ctx, tx); err != nil {
		return nil, err
	}

	draw, err := s.draws.InsertDraw(ctx, tx, mode)
	if err != nil {
		return nil, err
	}

	summary := &DrawSummary{DrawID: draw.ID, Mode: mode}
	for _, rank := range lotto.Ranks() {
		value, ok := results[rank]
		if !ok {
			continue
		}
		amount, ok := lotto.Amount(rank)
		if !ok {
			continue
		}

		if _, err := s.draws.InsertPrize(ctx, tx, draw.ID, rank, value, amount); err != nil {
			return nil, err
		}

		matched := lotto.Match(snapshot, rank, value)
		ticketIDs := make([]int64, len(matched))
		for i, t := range matched {
			ticketIDs[i] = t.ID
		}
		if err := s.draws.InsertWinnerRecords(ctx, tx, draw.ID, rank, amount, ticketIDs); err != nil {
			return nil, err
		}

		summary.Prizes = append(summary.Prizes, PrizeResult{
			Rank:    rank,
			Number:  value,
			Amount:  amount,
			Winners: len(matched),
		})
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit draw: %w", err)
	}

	return summary, nil
}

// ListDraws returns all confirmed draws, most recent first.
func (s *DrawService) ListDraws(ctx context.Context) ([]model.Draw, error) {
	return s.draws.ListDraws(ctx)
}

// Latest returns the most recent draw together with its prizes.
func (s *DrawService) Latest(ctx context.Context) (*LatestResult, error) {
	draw, err := s.draws.LatestDraw(ctx)
	if err != nil {
		return nil, err
	}

	prizes, err := s.draws.PrizesByDraw(ctx, draw.ID)
	if err != nil {
		return nil, err
	}

	return &LatestResult{Draw: *draw, Prizes: prizes}, nil
}

// Prizes returns the prize rows for a draw.
func (s *DrawService) Prizes(ctx context.Context, drawID int64) ([]model.Prize, error) {
	return s.draws.PrizesByDraw(ctx, drawID)
}

// WinnerRecords returns the winner records for a draw.
func (s *DrawService) WinnerRecords(ctx context.Context, drawID int64) ([]model.WinnerRecord, error) {
	return s.draws.WinnerRecordsByDraw(ctx, drawID)
}
