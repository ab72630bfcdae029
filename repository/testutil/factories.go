package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"dskdao/database"
	"dskdao/models"
)

// CreateTestUser inserts a user with the given redeemable balance
func CreateTestUser(t *testing.T, db *database.DB, discordID int64, username string, balance int64) *models.User {
	t.Helper()

	user := &models.User{
		DiscordID:         discordID,
		Username:          username,
		RedeemableBalance: balance,
		TotalEarned:       balance,
	}
	_, err := db.Exec(context.Background(), `
		INSERT INTO users (discord_id, username, redeemable_balance, soul_bound_balance, total_earned)
		VALUES ($1, $2, $3, 0, $3)`,
		discordID, username, balance)
	require.NoError(t, err)

	return user
}

// CreateTestItem inserts an active shop item and returns its ID
func CreateTestItem(t *testing.T, db *database.DB, name string, price, amount int64, category models.ItemCategory) int64 {
	t.Helper()

	var id int64
	err := db.QueryRow(context.Background(), `
		INSERT INTO items (name, description, price, amount, active, category)
		VALUES ($1, $2, $3, $4, true, $5)
		RETURNING id`,
		name, "test item", price, amount, category).Scan(&id)
	require.NoError(t, err)

	return id
}

// CreateTestLootboxReward inserts one reward table row for a lootbox item
func CreateTestLootboxReward(t *testing.T, db *database.DB, lootboxID int64, itemID *int64, points, quantity, weight int64) {
	t.Helper()

	_, err := db.Exec(context.Background(), `
		INSERT INTO lootbox_rewards (lootbox_id, item_id, points, quantity, weight)
		VALUES ($1, $2, $3, $4, $5)`,
		lootboxID, itemID, points, quantity, weight)
	require.NoError(t, err)
}

// CreateTestRaffle inserts an active raffle open for the next 24 hours and
// returns its ID
func CreateTestRaffle(t *testing.T, db *database.DB, title string, ticketPrice, maxEntries, maxPerUser int64) int64 {
	t.Helper()

	now := time.Now().UTC()
	var id int64
	err := db.QueryRow(context.Background(), `
		INSERT INTO raffles (title, ticket_price, max_entries, max_entries_per_user, status, start_date, end_date)
		VALUES ($1, $2, $3, $4, 'active', $5, $6)
		RETURNING id`,
		title, ticketPrice, maxEntries, maxPerUser, now.Add(-time.Hour), now.Add(24*time.Hour)).Scan(&id)
	require.NoError(t, err)

	return id
}
