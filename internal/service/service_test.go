// Integration tests for the marketplace services. Tests use
// testcontainers-go to spin up a PostgreSQL container and exercise the
// sale, draw, and redemption flows end to end.
package service

import (
	"context"
	"math/rand"
	"os/exec"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"lotto-market/internal/model"
	"lotto-market/internal/pkg/lock"
	"lotto-market/internal/repository"
)

// checkDockerAvailable checks if Docker is available and running
func checkDockerAvailable() bool {
	cmd := exec.Command("docker", "info")
	err := cmd.Run()
	return err == nil
}

type testEnv struct {
	pool    *pgxpool.Pool
	tickets *repository.TicketRepository
	wallets *repository.WalletRepository
	draws   *repository.DrawRepository
	poolSvc *PoolService
	drawSvc *DrawService
	walSvc  *WalletService
}

// setupServices creates a PostgreSQL container and wires the full service
// stack on top of it, the same way the server entry point does.
// Skips the test if Docker is not available.
func setupServices(t *testing.T) (*testEnv, func()) {
	if !checkDockerAvailable() {
		t.Skip("Docker is not available, skipping integration test")
	}

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)

	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS tickets (
			id BIGSERIAL PRIMARY KEY,
			number VARCHAR(6) NOT NULL,
			price BIGINT NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'available',
			user_id BIGINT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS wallets (
			user_id BIGINT PRIMARY KEY,
			balance BIGINT NOT NULL DEFAULT 0 CHECK (balance >= 0),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS draws (
			id BIGSERIAL PRIMARY KEY,
			mode VARCHAR(20) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS prizes (
			id BIGSERIAL PRIMARY KEY,
			draw_id BIGINT NOT NULL REFERENCES draws(id) ON DELETE CASCADE,
			prize_rank INT NOT NULL,
			prize_number VARCHAR(6) NOT NULL,
			prize_amount BIGINT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS winner_records (
			id BIGSERIAL PRIMARY KEY,
			ticket_id BIGINT NOT NULL REFERENCES tickets(id) ON DELETE CASCADE,
			draw_id BIGINT NOT NULL REFERENCES draws(id) ON DELETE CASCADE,
			prize_rank INT NOT NULL,
			prize_amount BIGINT NOT NULL
		);
	`)
	require.NoError(t, err)

	tickets := repository.NewTicketRepository(pool)
	wallets := repository.NewWalletRepository(pool)
	draws := repository.NewDrawRepository(pool)
	ticketLock := lock.New()
	rng := rand.New(rand.NewSource(1))

	env := &testEnv{
		pool:    pool,
		tickets: tickets,
		wallets: wallets,
		draws:   draws,
		poolSvc: NewPoolService(pool, tickets, wallets, draws, ticketLock, rng, 10000),
		drawSvc: NewDrawService(pool, tickets, draws, rng),
		walSvc:  NewWalletService(pool, wallets, tickets, draws, ticketLock),
	}

	cleanup := func() {
		pool.Close()
		_ = pgContainer.Terminate(ctx)
	}

	return env, cleanup
}

// seedTickets inserts tickets with known numbers so draw results can be
// pinned exactly.
func seedTickets(t *testing.T, env *testEnv, numbers []string, price int64) []model.Ticket {
	tickets, err := env.tickets.CreateBatch(context.Background(), env.pool, numbers, price)
	require.NoError(t, err)
	return tickets
}

// ============================================================================
// Ticket pool
// ============================================================================

func TestGenerate(t *testing.T) {
	env, cleanup := setupServices(t)
	defer cleanup()

	ctx := context.Background()

	tickets, err := env.poolSvc.Generate(ctx, 50, 80)
	require.NoError(t, err)
	require.Len(t, tickets, 50)

	seen := make(map[string]struct{})
	for _, ticket := range tickets {
		assert.Len(t, ticket.Number, 6)
		assert.Equal(t, model.TicketAvailable, ticket.Status)
		_, dup := seen[ticket.Number]
		assert.False(t, dup, "duplicate number %s in batch", ticket.Number)
		seen[ticket.Number] = struct{}{}
	}

	all, err := env.poolSvc.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 50)
}

func TestGenerateValidation(t *testing.T) {
	env, cleanup := setupServices(t)
	defer cleanup()

	ctx := context.Background()

	_, err := env.poolSvc.Generate(ctx, 0, 100)
	assert.ErrorIs(t, err, ErrInvalidCount)

	_, err = env.poolSvc.Generate(ctx, 10, 0)
	assert.ErrorIs(t, err, ErrInvalidPrice)

	_, err = env.poolSvc.Generate(ctx, 10001, 100)
	assert.ErrorIs(t, err, ErrBatchTooLarge)
}

func TestSell(t *testing.T) {
	env, cleanup := setupServices(t)
	defer cleanup()

	ctx := context.Background()
	tickets := seedTickets(t, env, []string{"123456"}, 100)
	ticketID := tickets[0].ID

	_, err := env.walSvc.TopUp(ctx, 7, 300)
	require.NoError(t, err)

	balance, err := env.poolSvc.Sell(ctx, ticketID, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(200), balance)

	owned, err := env.poolSvc.ListByUser(ctx, 7)
	require.NoError(t, err)
	require.Len(t, owned, 1)
	assert.Equal(t, model.TicketSold, owned[0].Status)

	// Second buyer loses regardless of funds
	_, err = env.walSvc.TopUp(ctx, 8, 300)
	require.NoError(t, err)
	_, err = env.poolSvc.Sell(ctx, ticketID, 8)
	assert.ErrorIs(t, err, repository.ErrTicketSold)
}

func TestSellInsufficientFunds(t *testing.T) {
	env, cleanup := setupServices(t)
	defer cleanup()

	ctx := context.Background()
	tickets := seedTickets(t, env, []string{"123456"}, 100)

	_, err := env.walSvc.TopUp(ctx, 7, 50)
	require.NoError(t, err)

	_, err = env.poolSvc.Sell(ctx, tickets[0].ID, 7)
	assert.ErrorIs(t, err, repository.ErrInsufficient)

	// Neither side of the failed sale sticks
	balance, err := env.walSvc.Balance(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(50), balance)

	available, err := env.poolSvc.ListAvailable(ctx)
	require.NoError(t, err)
	assert.Len(t, available, 1)
}

func TestSellUnknownEntities(t *testing.T) {
	env, cleanup := setupServices(t)
	defer cleanup()

	ctx := context.Background()
	tickets := seedTickets(t, env, []string{"123456"}, 100)

	_, err := env.poolSvc.Sell(ctx, tickets[0].ID, 99)
	assert.ErrorIs(t, err, repository.ErrWalletNotFound)

	_, err = env.walSvc.TopUp(ctx, 7, 300)
	require.NoError(t, err)
	_, err = env.poolSvc.Sell(ctx, 424242, 7)
	assert.ErrorIs(t, err, repository.ErrTicketNotFound)
}

func TestSellConcurrent(t *testing.T) {
	env, cleanup := setupServices(t)
	defer cleanup()

	ctx := context.Background()
	tickets := seedTickets(t, env, []string{"123456"}, 100)
	ticketID := tickets[0].ID

	const buyers = 8
	for i := 1; i <= buyers; i++ {
		_, err := env.walSvc.TopUp(ctx, int64(i), 100)
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0
	for i := 1; i <= buyers; i++ {
		wg.Add(1)
		go func(userID int64) {
			defer wg.Done()
			if _, err := env.poolSvc.Sell(ctx, ticketID, userID); err == nil {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}(int64(i))
	}
	wg.Wait()

	assert.Equal(t, 1, winners, "exactly one buyer may win the ticket")

	// Exactly one wallet paid
	list, err := env.walSvc.Wallets(ctx)
	require.NoError(t, err)
	var total int64
	for _, w := range list {
		total += w.Balance
	}
	assert.Equal(t, int64(buyers*100-100), total)
}

// ============================================================================
// Draws
// ============================================================================

func TestPreviewWritesNothing(t *testing.T) {
	env, cleanup := setupServices(t)
	defer cleanup()

	ctx := context.Background()
	seedTickets(t, env, []string{"111222", "333111", "444555", "987654"}, 100)

	preview, err := env.drawSvc.Preview(ctx, model.ModeAllNumbers)
	require.NoError(t, err)
	assert.Equal(t, 4, preview.Pool)
	assert.Len(t, preview.Results, 5)
	assert.Equal(t, int64(10000), preview.Amounts[1])

	draws, err := env.drawSvc.ListDraws(ctx)
	require.NoError(t, err)
	assert.Empty(t, draws)
}

func TestPreviewEmptyPool(t *testing.T) {
	env, cleanup := setupServices(t)
	defer cleanup()

	_, err := env.drawSvc.Preview(context.Background(), model.ModeSoldOnly)
	assert.ErrorIs(t, err, ErrNoTickets)
}

func TestConfirmMatching(t *testing.T) {
	env, cleanup := setupServices(t)
	defer cleanup()

	ctx := context.Background()
	tickets := seedTickets(t, env, []string{"111222", "333111", "444555"}, 100)

	summary, err := env.drawSvc.Confirm(ctx, model.ModeAllNumbers, map[int]string{
		1: "111222",
		4: "222",
	})
	require.NoError(t, err)
	require.Len(t, summary.Prizes, 2)

	assert.Equal(t, 1, summary.Prizes[0].Rank)
	assert.Equal(t, int64(10000), summary.Prizes[0].Amount)
	assert.Equal(t, 1, summary.Prizes[0].Winners)

	assert.Equal(t, 4, summary.Prizes[1].Rank)
	assert.Equal(t, int64(500), summary.Prizes[1].Amount)
	assert.Equal(t, 1, summary.Prizes[1].Winners)

	// Both records point at ticket 111222: exact on rank 1, suffix on rank 4
	records, err := env.drawSvc.WinnerRecords(ctx, summary.DrawID)
	require.NoError(t, err)
	require.Len(t, records, 2)
	for _, record := range records {
		assert.Equal(t, tickets[0].ID, record.TicketID)
	}
}

func TestConfirmSingleActiveDraw(t *testing.T) {
	env, cleanup := setupServices(t)
	defer cleanup()

	ctx := context.Background()
	seedTickets(t, env, []string{"111222", "333111"}, 100)

	first, err := env.drawSvc.Confirm(ctx, model.ModeAllNumbers, map[int]string{1: "111222"})
	require.NoError(t, err)
	second, err := env.drawSvc.Confirm(ctx, model.ModeAllNumbers, map[int]string{1: "333111"})
	require.NoError(t, err)

	// Only the newest draw's redemption set is live
	records, err := env.drawSvc.WinnerRecords(ctx, first.DrawID)
	require.NoError(t, err)
	assert.Empty(t, records)

	records, err = env.drawSvc.WinnerRecords(ctx, second.DrawID)
	require.NoError(t, err)
	assert.Len(t, records, 1)

	// Draw history keeps both rows
	draws, err := env.drawSvc.ListDraws(ctx)
	require.NoError(t, err)
	require.Len(t, draws, 2)
	assert.Equal(t, second.DrawID, draws[0].ID)

	latest, err := env.drawSvc.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.DrawID, latest.Draw.ID)
	require.Len(t, latest.Prizes, 1)
	assert.Equal(t, "333111", latest.Prizes[0].Number)
}

func TestConfirmEmptyPoolWritesNothing(t *testing.T) {
	env, cleanup := setupServices(t)
	defer cleanup()

	ctx := context.Background()
	// Tickets exist but none are sold, so the sold-only snapshot is empty
	seedTickets(t, env, []string{"111222"}, 100)

	_, err := env.drawSvc.Confirm(ctx, model.ModeSoldOnly, map[int]string{1: "111222"})
	assert.ErrorIs(t, err, ErrNoTickets)

	draws, err := env.drawSvc.ListDraws(ctx)
	require.NoError(t, err)
	assert.Empty(t, draws)
}

func TestConfirmRequiresResults(t *testing.T) {
	env, cleanup := setupServices(t)
	defer cleanup()

	_, err := env.drawSvc.Confirm(context.Background(), model.ModeAllNumbers, nil)
	assert.ErrorIs(t, err, ErrMissingResults)
}

// ============================================================================
// Redemption
// ============================================================================

func TestRedeemMultiRank(t *testing.T) {
	env, cleanup := setupServices(t)
	defer cleanup()

	ctx := context.Background()
	tickets := seedTickets(t, env, []string{"444555"}, 100)
	ticketID := tickets[0].ID

	_, err := env.walSvc.TopUp(ctx, 7, 1000)
	require.NoError(t, err)
	_, err = env.poolSvc.Sell(ctx, ticketID, 7)
	require.NoError(t, err)

	// 444555 matches rank 4 on "555" and rank 5 on "55"
	_, err = env.drawSvc.Confirm(ctx, model.ModeSoldOnly, map[int]string{4: "555", 5: "55"})
	require.NoError(t, err)

	winnings, err := env.walSvc.Winnings(ctx, 7)
	require.NoError(t, err)
	assert.Len(t, winnings, 2)

	result, err := env.walSvc.Redeem(ctx, 7, ticketID)
	require.NoError(t, err)
	assert.Equal(t, int64(700), result.Total)
	require.Len(t, result.Prizes, 2)
	assert.Equal(t, int64(1000-100+700), result.Balance)

	// Redemption consumed the ticket
	all, err := env.poolSvc.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	// One-shot: a second attempt finds nothing to pay
	_, err = env.walSvc.Redeem(ctx, 7, ticketID)
	assert.ErrorIs(t, err, ErrNoPrizeWon)

	balance, err := env.walSvc.Balance(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(1600), balance)
}

func TestRedeemOwnership(t *testing.T) {
	env, cleanup := setupServices(t)
	defer cleanup()

	ctx := context.Background()
	tickets := seedTickets(t, env, []string{"444555"}, 100)
	ticketID := tickets[0].ID

	_, err := env.walSvc.TopUp(ctx, 7, 200)
	require.NoError(t, err)
	_, err = env.poolSvc.Sell(ctx, ticketID, 7)
	require.NoError(t, err)
	_, err = env.drawSvc.Confirm(ctx, model.ModeSoldOnly, map[int]string{5: "55"})
	require.NoError(t, err)

	// Someone else's ticket looks prizeless to the caller
	_, err = env.walSvc.Redeem(ctx, 8, ticketID)
	assert.ErrorIs(t, err, ErrNoPrizeWon)

	// The rightful owner still collects
	result, err := env.walSvc.Redeem(ctx, 7, ticketID)
	require.NoError(t, err)
	assert.Equal(t, int64(200), result.Total)
}

func TestRedeemLosingTicket(t *testing.T) {
	env, cleanup := setupServices(t)
	defer cleanup()

	ctx := context.Background()
	tickets := seedTickets(t, env, []string{"123456", "444555"}, 100)

	_, err := env.walSvc.TopUp(ctx, 7, 500)
	require.NoError(t, err)
	_, err = env.poolSvc.Sell(ctx, tickets[0].ID, 7)
	require.NoError(t, err)
	_, err = env.poolSvc.Sell(ctx, tickets[1].ID, 7)
	require.NoError(t, err)

	_, err = env.drawSvc.Confirm(ctx, model.ModeSoldOnly, map[int]string{5: "55"})
	require.NoError(t, err)

	_, err = env.walSvc.Redeem(ctx, 7, tickets[0].ID)
	assert.ErrorIs(t, err, ErrNoPrizeWon)

	// The losing ticket survives the failed redemption
	owned, err := env.poolSvc.ListByUser(ctx, 7)
	require.NoError(t, err)
	assert.Len(t, owned, 2)
}

func TestTopUpValidation(t *testing.T) {
	env, cleanup := setupServices(t)
	defer cleanup()

	_, err := env.walSvc.TopUp(context.Background(), 7, 0)
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, err = env.walSvc.TopUp(context.Background(), 7, -10)
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

// ============================================================================
// Reset
// ============================================================================

func TestReset(t *testing.T) {
	env, cleanup := setupServices(t)
	defer cleanup()

	ctx := context.Background()
	seedTickets(t, env, []string{"111222", "333111"}, 100)

	summary, err := env.drawSvc.Confirm(ctx, model.ModeAllNumbers, map[int]string{1: "111222"})
	require.NoError(t, err)

	require.NoError(t, env.poolSvc.Reset(ctx))

	all, err := env.poolSvc.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	prizes, err := env.drawSvc.Prizes(ctx, summary.DrawID)
	require.NoError(t, err)
	assert.Empty(t, prizes)

	// Draw history survives a reset
	draws, err := env.drawSvc.ListDraws(ctx)
	require.NoError(t, err)
	assert.Len(t, draws, 1)
}
