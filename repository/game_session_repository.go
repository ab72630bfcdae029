package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"dskdao/database"
	"dskdao/models"
	"github.com/jackc/pgx/v5"
)

// GameSessionRepository implements the service.GameSessionRepository interface
type GameSessionRepository struct {
	q queryable
}

// NewGameSessionRepository creates a new game session repository
func NewGameSessionRepository(db *database.DB) *GameSessionRepository {
	return &GameSessionRepository{q: db.Pool}
}

// newGameSessionRepositoryWithTx creates a new game session repository with a transaction
func newGameSessionRepositoryWithTx(tx queryable) *GameSessionRepository {
	return &GameSessionRepository{q: tx}
}

// Create inserts an immutable session record
func (r *GameSessionRepository) Create(ctx context.Context, session *models.GameSession) error {
	outcomeJSON, err := json.Marshal(session.Outcome)
	if err != nil {
		return fmt.Errorf("failed to marshal game outcome: %w", err)
	}

	query := `
		INSERT INTO game_sessions (id, discord_id, game_id, bet_amount, result, win_amount, multiplier, outcome)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`

	err = r.q.QueryRow(ctx, query,
		session.ID,
		session.DiscordID,
		session.GameID,
		session.BetAmount,
		session.Result,
		session.WinAmount,
		session.Multiplier,
		outcomeJSON,
	).Scan(&session.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create game session for user %d: %w", session.DiscordID, err)
	}

	return nil
}

// GetByID retrieves a session by its ID
func (r *GameSessionRepository) GetByID(ctx context.Context, id string) (*models.GameSession, error) {
	query := `
		SELECT id, discord_id, game_id, bet_amount, result, win_amount, multiplier, outcome, created_at
		FROM game_sessions
		WHERE id = $1
	`

	var session models.GameSession
	var outcomeJSON []byte

	err := r.q.QueryRow(ctx, query, id).Scan(
		&session.ID,
		&session.DiscordID,
		&session.GameID,
		&session.BetAmount,
		&session.Result,
		&session.WinAmount,
		&session.Multiplier,
		&outcomeJSON,
		&session.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get game session %s: %w", id, err)
	}

	if len(outcomeJSON) > 0 {
		if err := json.Unmarshal(outcomeJSON, &session.Outcome); err != nil {
			return nil, fmt.Errorf("failed to unmarshal game outcome: %w", err)
		}
	}

	return &session, nil
}

// Leaderboard aggregates net winnings (payouts minus wagers) per user since
// the given time, ordered descending
func (r *GameSessionRepository) Leaderboard(ctx context.Context, gameID models.GameID, since time.Time, limit int) ([]*models.LeaderboardEntry, error) {
	query := `
		SELECT g.discord_id, u.username, SUM(g.win_amount - g.bet_amount) AS net_winnings
		FROM game_sessions g
		JOIN users u ON u.discord_id = g.discord_id
		WHERE g.game_id = $1 AND g.created_at >= $2
		GROUP BY g.discord_id, u.username
		ORDER BY net_winnings DESC
		LIMIT $3
	`

	rows, err := r.q.Query(ctx, query, gameID, since, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get leaderboard for game %s: %w", gameID, err)
	}
	defer rows.Close()

	var entries []*models.LeaderboardEntry
	rank := 1
	for rows.Next() {
		var entry models.LeaderboardEntry
		if err := rows.Scan(&entry.DiscordID, &entry.Username, &entry.NetWinnings); err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard entry: %w", err)
		}
		entry.Rank = rank
		rank++
		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate leaderboard: %w", err)
	}

	return entries, nil
}
