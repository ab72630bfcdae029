package repository

import (
	"context"
	"fmt"
	"time"

	"dskdao/database"
	"dskdao/models"
	"github.com/jackc/pgx/v5"
)

// RaffleRepository implements the service.RaffleRepository interface
type RaffleRepository struct {
	q queryable
}

// NewRaffleRepository creates a new raffle repository
func NewRaffleRepository(db *database.DB) *RaffleRepository {
	return &RaffleRepository{q: db.Pool}
}

// newRaffleRepositoryWithTx creates a new raffle repository with a transaction
func newRaffleRepositoryWithTx(tx queryable) *RaffleRepository {
	return &RaffleRepository{q: tx}
}

const raffleColumns = `id, title, ticket_price, max_entries, max_entries_per_user, status,
	start_date, end_date, total_tickets_sold, total_participants,
	winner_discord_id, winning_ticket, drawn_at, created_at, updated_at`

func scanRaffle(row pgx.Row) (*models.Raffle, error) {
	var raffle models.Raffle
	err := row.Scan(
		&raffle.ID,
		&raffle.Title,
		&raffle.TicketPrice,
		&raffle.MaxEntries,
		&raffle.MaxEntriesPerUser,
		&raffle.Status,
		&raffle.StartDate,
		&raffle.EndDate,
		&raffle.TotalTicketsSold,
		&raffle.TotalParticipants,
		&raffle.WinnerDiscordID,
		&raffle.WinningTicket,
		&raffle.DrawnAt,
		&raffle.CreatedAt,
		&raffle.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &raffle, nil
}

// GetByID retrieves a raffle by its ID
func (r *RaffleRepository) GetByID(ctx context.Context, id int64) (*models.Raffle, error) {
	query := `SELECT ` + raffleColumns + ` FROM raffles WHERE id = $1`

	raffle, err := scanRaffle(r.q.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get raffle %d: %w", id, err)
	}
	return raffle, nil
}

// GetForUpdate retrieves a raffle with a row lock. Concurrent ticket
// allocations for the same raffle serialize on this lock until commit.
func (r *RaffleRepository) GetForUpdate(ctx context.Context, id int64) (*models.Raffle, error) {
	query := `SELECT ` + raffleColumns + ` FROM raffles WHERE id = $1 FOR UPDATE`

	raffle, err := scanRaffle(r.q.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("failed to lock raffle %d: %w", id, err)
	}
	return raffle, nil
}

// GetActive returns raffles open for entries at the given time
func (r *RaffleRepository) GetActive(ctx context.Context, now time.Time) ([]*models.Raffle, error) {
	query := `SELECT ` + raffleColumns + `
		FROM raffles
		WHERE status = 'active' AND start_date <= $1 AND end_date > $1
		ORDER BY end_date`

	rows, err := r.q.Query(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to get active raffles: %w", err)
	}
	defer rows.Close()

	var raffles []*models.Raffle
	for rows.Next() {
		var raffle models.Raffle
		err := rows.Scan(
			&raffle.ID,
			&raffle.Title,
			&raffle.TicketPrice,
			&raffle.MaxEntries,
			&raffle.MaxEntriesPerUser,
			&raffle.Status,
			&raffle.StartDate,
			&raffle.EndDate,
			&raffle.TotalTicketsSold,
			&raffle.TotalParticipants,
			&raffle.WinnerDiscordID,
			&raffle.WinningTicket,
			&raffle.DrawnAt,
			&raffle.CreatedAt,
			&raffle.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan raffle: %w", err)
		}
		raffles = append(raffles, &raffle)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate raffles: %w", err)
	}

	return raffles, nil
}

// AddTickets adds ticketsDelta sold tickets and participantsDelta
// participants, guarded so the sold counter never exceeds max entries
func (r *RaffleRepository) AddTickets(ctx context.Context, raffleID int64, ticketsDelta, participantsDelta int64) (bool, error) {
	query := `
		UPDATE raffles
		SET total_tickets_sold = total_tickets_sold + $1,
		    total_participants = total_participants + $2,
		    updated_at = NOW()
		WHERE id = $3 AND total_tickets_sold + $1 <= max_entries
	`

	result, err := r.q.Exec(ctx, query, ticketsDelta, participantsDelta, raffleID)
	if err != nil {
		return false, fmt.Errorf("failed to add tickets to raffle %d: %w", raffleID, err)
	}

	return result.RowsAffected() > 0, nil
}

// UpdateStatus transitions a raffle between statuses, enforcing the one-way
// lifecycle at the database level
func (r *RaffleRepository) UpdateStatus(ctx context.Context, raffleID int64, from, to models.RaffleStatus) (bool, error) {
	query := `
		UPDATE raffles
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3
	`

	result, err := r.q.Exec(ctx, query, to, raffleID, from)
	if err != nil {
		return false, fmt.Errorf("failed to update raffle %d status: %w", raffleID, err)
	}

	return result.RowsAffected() > 0, nil
}

// SetWinner records the winner exactly once and ends the raffle
func (r *RaffleRepository) SetWinner(ctx context.Context, raffleID int64, winnerDiscordID, winningTicket int64, drawnAt time.Time) (bool, error) {
	query := `
		UPDATE raffles
		SET winner_discord_id = $1, winning_ticket = $2, drawn_at = $3,
		    status = 'ended', updated_at = NOW()
		WHERE id = $4 AND status = 'active' AND winner_discord_id IS NULL
	`

	result, err := r.q.Exec(ctx, query, winnerDiscordID, winningTicket, drawnAt, raffleID)
	if err != nil {
		return false, fmt.Errorf("failed to set winner for raffle %d: %w", raffleID, err)
	}

	return result.RowsAffected() > 0, nil
}
