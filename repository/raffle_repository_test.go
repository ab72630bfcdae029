package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dskdao/models"
	"dskdao/repository/testutil"
)

func TestRaffleRepository_GetByID(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewRaffleRepository(testDB.DB)
	ctx := context.Background()

	t.Run("raffle not found", func(t *testing.T) {
		raffle, err := repo.GetByID(ctx, 999999)
		require.NoError(t, err)
		assert.Nil(t, raffle)
	})

	t.Run("raffle found", func(t *testing.T) {
		id := testutil.CreateTestRaffle(t, testDB.DB, "Monthly Giveaway", 50, 100, 10)

		raffle, err := repo.GetByID(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, raffle)

		assert.Equal(t, "Monthly Giveaway", raffle.Title)
		assert.Equal(t, int64(50), raffle.TicketPrice)
		assert.Equal(t, int64(100), raffle.MaxEntries)
		assert.Equal(t, int64(10), raffle.MaxEntriesPerUser)
		assert.Equal(t, models.RaffleStatusActive, raffle.Status)
		assert.Equal(t, int64(0), raffle.TotalTicketsSold)
		assert.Nil(t, raffle.WinnerDiscordID)
	})
}

func TestRaffleRepository_GetActive(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewRaffleRepository(testDB.DB)
	ctx := context.Background()

	open := testutil.CreateTestRaffle(t, testDB.DB, "Open", 50, 100, 0)
	ended := testutil.CreateTestRaffle(t, testDB.DB, "Ended", 50, 100, 0)
	_, err := testDB.DB.Exec(ctx, `UPDATE raffles SET status = 'ended' WHERE id = $1`, ended)
	require.NoError(t, err)
	expired := testutil.CreateTestRaffle(t, testDB.DB, "Expired", 50, 100, 0)
	_, err = testDB.DB.Exec(ctx, `UPDATE raffles SET end_date = NOW() - INTERVAL '1 hour' WHERE id = $1`, expired)
	require.NoError(t, err)

	raffles, err := repo.GetActive(ctx, time.Now().UTC())
	require.NoError(t, err)
	require.Len(t, raffles, 1)
	assert.Equal(t, open, raffles[0].ID)
}

func TestRaffleRepository_AddTickets(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewRaffleRepository(testDB.DB)
	ctx := context.Background()

	t.Run("accumulates tickets and participants", func(t *testing.T) {
		id := testutil.CreateTestRaffle(t, testDB.DB, "Counting", 50, 10, 0)

		ok, err := repo.AddTickets(ctx, id, 3, 1)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = repo.AddTickets(ctx, id, 2, 0)
		require.NoError(t, err)
		assert.True(t, ok)

		raffle, err := repo.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, int64(5), raffle.TotalTicketsSold)
		assert.Equal(t, int64(1), raffle.TotalParticipants)
	})

	t.Run("capacity guard", func(t *testing.T) {
		id := testutil.CreateTestRaffle(t, testDB.DB, "Tiny", 50, 5, 0)

		ok, err := repo.AddTickets(ctx, id, 4, 1)
		require.NoError(t, err)
		assert.True(t, ok)

		// Would exceed max entries
		ok, err = repo.AddTickets(ctx, id, 2, 1)
		require.NoError(t, err)
		assert.False(t, ok)

		// Exactly filling the last slot is allowed
		ok, err = repo.AddTickets(ctx, id, 1, 1)
		require.NoError(t, err)
		assert.True(t, ok)

		raffle, err := repo.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, int64(5), raffle.TotalTicketsSold)
	})
}

func TestRaffleRepository_AddTickets_ConcurrentAllocation(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	ctx := context.Background()
	id := testutil.CreateTestRaffle(t, testDB.DB, "Contested", 50, 100, 0)

	// Each buyer locks the row, reads the sold count and claims the next
	// ticket, the way the purchase path allocates ticket numbers.
	const buyers = 10
	tickets := make(chan int64, buyers)
	var wg sync.WaitGroup
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			tx, err := testDB.DB.Begin(ctx)
			if !assert.NoError(t, err) {
				return
			}
			defer tx.Rollback(ctx)

			txRepo := newRaffleRepositoryWithTx(tx)
			raffle, err := txRepo.GetForUpdate(ctx, id)
			if !assert.NoError(t, err) {
				return
			}
			ok, err := txRepo.AddTickets(ctx, id, 1, 1)
			if !assert.NoError(t, err) || !assert.True(t, ok) {
				return
			}
			if !assert.NoError(t, tx.Commit(ctx)) {
				return
			}
			tickets <- raffle.TotalTicketsSold + 1
		}()
	}
	wg.Wait()
	close(tickets)

	// Every ticket number 1..N handed out exactly once
	seen := make(map[int64]bool, buyers)
	for ticket := range tickets {
		assert.False(t, seen[ticket], "ticket %d allocated twice", ticket)
		seen[ticket] = true
	}
	require.Len(t, seen, buyers)
	for n := int64(1); n <= buyers; n++ {
		assert.True(t, seen[n], "ticket %d never allocated", n)
	}

	repo := NewRaffleRepository(testDB.DB)
	raffle, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(buyers), raffle.TotalTicketsSold)
}

func TestRaffleRepository_AddTickets_ConcurrentCapacity(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewRaffleRepository(testDB.DB)
	ctx := context.Background()

	const buyers = 10
	id := testutil.CreateTestRaffle(t, testDB.DB, "Nearly Full", 50, 3, 0)

	results := make(chan bool, buyers)
	var wg sync.WaitGroup
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := repo.AddTickets(ctx, id, 1, 1)
			assert.NoError(t, err)
			results <- ok
		}()
	}
	wg.Wait()
	close(results)

	successes := 0
	for ok := range results {
		if ok {
			successes++
		}
	}
	assert.Equal(t, 3, successes)

	raffle, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(3), raffle.TotalTicketsSold)
}

func TestRaffleRepository_UpdateStatus(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewRaffleRepository(testDB.DB)
	ctx := context.Background()

	id := testutil.CreateTestRaffle(t, testDB.DB, "Lifecycle", 50, 100, 0)

	ok, err := repo.UpdateStatus(ctx, id, models.RaffleStatusActive, models.RaffleStatusCancelled)
	require.NoError(t, err)
	assert.True(t, ok)

	// Already cancelled, the guard rejects a second transition
	ok, err = repo.UpdateStatus(ctx, id, models.RaffleStatusActive, models.RaffleStatusCancelled)
	require.NoError(t, err)
	assert.False(t, ok)

	raffle, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.RaffleStatusCancelled, raffle.Status)
}

func TestRaffleRepository_SetWinner(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewRaffleRepository(testDB.DB)
	ctx := context.Background()

	testutil.CreateTestUser(t, testDB.DB, 123456, "winner", 0)
	id := testutil.CreateTestRaffle(t, testDB.DB, "Drawable", 50, 100, 0)
	drawnAt := time.Now().UTC().Truncate(time.Second)

	ok, err := repo.SetWinner(ctx, id, 123456, 7, drawnAt)
	require.NoError(t, err)
	assert.True(t, ok)

	raffle, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.RaffleStatusEnded, raffle.Status)
	require.NotNil(t, raffle.WinnerDiscordID)
	assert.Equal(t, int64(123456), *raffle.WinnerDiscordID)
	require.NotNil(t, raffle.WinningTicket)
	assert.Equal(t, int64(7), *raffle.WinningTicket)
	require.NotNil(t, raffle.DrawnAt)

	// Exactly once: the raffle is no longer active and has a winner
	ok, err = repo.SetWinner(ctx, id, 789012, 8, drawnAt)
	require.NoError(t, err)
	assert.False(t, ok)

	raffle, err = repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(123456), *raffle.WinnerDiscordID)
}
