package repository

import (
	"context"
	"fmt"

	"dskdao/database"
	"dskdao/models"
	"github.com/jackc/pgx/v5"
)

// RaffleEntryRepository implements the service.RaffleEntryRepository interface
type RaffleEntryRepository struct {
	q queryable
}

// NewRaffleEntryRepository creates a new raffle entry repository
func NewRaffleEntryRepository(db *database.DB) *RaffleEntryRepository {
	return &RaffleEntryRepository{q: db.Pool}
}

// newRaffleEntryRepositoryWithTx creates a new raffle entry repository with a transaction
func newRaffleEntryRepositoryWithTx(tx queryable) *RaffleEntryRepository {
	return &RaffleEntryRepository{q: tx}
}

const raffleEntryColumns = `id, raffle_id, discord_id, ticket_numbers, purchase_price, transaction_id, created_at, updated_at`

func scanRaffleEntry(row pgx.Row) (*models.RaffleEntry, error) {
	var entry models.RaffleEntry
	err := row.Scan(
		&entry.ID,
		&entry.RaffleID,
		&entry.DiscordID,
		&entry.TicketNumbers,
		&entry.PurchasePrice,
		&entry.TransactionID,
		&entry.CreatedAt,
		&entry.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// GetByRaffleAndUser retrieves a user's entry for a raffle
func (r *RaffleEntryRepository) GetByRaffleAndUser(ctx context.Context, raffleID, discordID int64) (*models.RaffleEntry, error) {
	query := `SELECT ` + raffleEntryColumns + ` FROM raffle_entries WHERE raffle_id = $1 AND discord_id = $2`

	entry, err := scanRaffleEntry(r.q.QueryRow(ctx, query, raffleID, discordID))
	if err != nil {
		return nil, fmt.Errorf("failed to get raffle entry for user %d in raffle %d: %w", discordID, raffleID, err)
	}
	return entry, nil
}

// Create inserts an entry with its first ticket batch
func (r *RaffleEntryRepository) Create(ctx context.Context, entry *models.RaffleEntry) error {
	query := `
		INSERT INTO raffle_entries (raffle_id, discord_id, ticket_numbers, purchase_price, transaction_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`

	err := r.q.QueryRow(ctx, query,
		entry.RaffleID,
		entry.DiscordID,
		entry.TicketNumbers,
		entry.PurchasePrice,
		entry.TransactionID,
	).Scan(&entry.ID, &entry.CreatedAt, &entry.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create raffle entry for user %d: %w", entry.DiscordID, err)
	}

	return nil
}

// AppendTickets appends a contiguous ticket batch to an existing entry
func (r *RaffleEntryRepository) AppendTickets(ctx context.Context, entryID int64, tickets []int64, price int64) error {
	query := `
		UPDATE raffle_entries
		SET ticket_numbers = ticket_numbers || $1,
		    purchase_price = purchase_price + $2,
		    updated_at = NOW()
		WHERE id = $3
	`

	result, err := r.q.Exec(ctx, query, tickets, price, entryID)
	if err != nil {
		return fmt.Errorf("failed to append tickets to entry %d: %w", entryID, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("raffle entry %d not found", entryID)
	}

	return nil
}

// GetByRaffle returns all entries for a raffle
func (r *RaffleEntryRepository) GetByRaffle(ctx context.Context, raffleID int64) ([]*models.RaffleEntry, error) {
	query := `SELECT ` + raffleEntryColumns + ` FROM raffle_entries WHERE raffle_id = $1 ORDER BY id`

	rows, err := r.q.Query(ctx, query, raffleID)
	if err != nil {
		return nil, fmt.Errorf("failed to get entries for raffle %d: %w", raffleID, err)
	}
	defer rows.Close()

	var entries []*models.RaffleEntry
	for rows.Next() {
		var entry models.RaffleEntry
		err := rows.Scan(
			&entry.ID,
			&entry.RaffleID,
			&entry.DiscordID,
			&entry.TicketNumbers,
			&entry.PurchasePrice,
			&entry.TransactionID,
			&entry.CreatedAt,
			&entry.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan raffle entry: %w", err)
		}
		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate raffle entries: %w", err)
	}

	return entries, nil
}

// FindByTicket resolves the entry holding the given ticket number
func (r *RaffleEntryRepository) FindByTicket(ctx context.Context, raffleID, ticket int64) (*models.RaffleEntry, error) {
	query := `SELECT ` + raffleEntryColumns + ` FROM raffle_entries WHERE raffle_id = $1 AND $2 = ANY(ticket_numbers)`

	entry, err := scanRaffleEntry(r.q.QueryRow(ctx, query, raffleID, ticket))
	if err != nil {
		return nil, fmt.Errorf("failed to find ticket %d in raffle %d: %w", ticket, raffleID, err)
	}
	return entry, nil
}
