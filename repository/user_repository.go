package repository

import (
	"context"
	"fmt"

	"dskdao/database"
	"dskdao/models"
	"github.com/jackc/pgx/v5"
)

// UserRepository implements the service.UserRepository interface
type UserRepository struct {
	q queryable
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{q: db.Pool}
}

// newUserRepositoryWithTx creates a new user repository with a transaction
func newUserRepositoryWithTx(tx queryable) *UserRepository {
	return &UserRepository{q: tx}
}

const userColumns = `discord_id, username, redeemable_balance, soul_bound_balance, total_earned, created_at, updated_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var user models.User
	err := row.Scan(
		&user.DiscordID,
		&user.Username,
		&user.RedeemableBalance,
		&user.SoulBoundBalance,
		&user.TotalEarned,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByDiscordID retrieves a user by their Discord ID
func (r *UserRepository) GetByDiscordID(ctx context.Context, discordID int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE discord_id = $1`

	user, err := scanUser(r.q.QueryRow(ctx, query, discordID))
	if err != nil {
		return nil, fmt.Errorf("failed to get user %d: %w", discordID, err)
	}
	return user, nil
}

// GetForUpdate retrieves a user with a row lock. Concurrent operations on
// the same user's balances serialize on this lock until commit.
func (r *UserRepository) GetForUpdate(ctx context.Context, discordID int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE discord_id = $1 FOR UPDATE`

	user, err := scanUser(r.q.QueryRow(ctx, query, discordID))
	if err != nil {
		return nil, fmt.Errorf("failed to lock user %d: %w", discordID, err)
	}
	return user, nil
}

// Create creates a new user with the initial redeemable balance
func (r *UserRepository) Create(ctx context.Context, discordID int64, username string, initialBalance int64) (*models.User, error) {
	query := `
		INSERT INTO users (discord_id, username, redeemable_balance, total_earned)
		VALUES ($1, $2, $3, $3)
		RETURNING ` + userColumns

	user, err := scanUser(r.q.QueryRow(ctx, query, discordID, username, initialBalance))
	if err != nil {
		return nil, fmt.Errorf("failed to create user %d: %w", discordID, err)
	}
	return user, nil
}

// SetBalance writes the new balance for one point type and bumps the
// total earned counter by earnedDelta
func (r *UserRepository) SetBalance(ctx context.Context, discordID int64, pointType models.PointType, newBalance int64, earnedDelta int64) error {
	column := "redeemable_balance"
	if pointType == models.PointTypeSoulBound {
		column = "soul_bound_balance"
	}

	query := fmt.Sprintf(`
		UPDATE users
		SET %s = $1, total_earned = total_earned + $2, updated_at = NOW()
		WHERE discord_id = $3
	`, column)

	result, err := r.q.Exec(ctx, query, newBalance, earnedDelta, discordID)
	if err != nil {
		return fmt.Errorf("failed to set %s for user %d: %w", column, discordID, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("user %d not found", discordID)
	}

	return nil
}
