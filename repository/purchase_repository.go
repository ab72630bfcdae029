package repository

import (
	"context"
	"fmt"

	"dskdao/database"
	"dskdao/models"
)

// PurchaseRepository implements the service.PurchaseRepository interface
type PurchaseRepository struct {
	q queryable
}

// NewPurchaseRepository creates a new purchase repository
func NewPurchaseRepository(db *database.DB) *PurchaseRepository {
	return &PurchaseRepository{q: db.Pool}
}

// newPurchaseRepositoryWithTx creates a new purchase repository with a transaction
func newPurchaseRepositoryWithTx(tx queryable) *PurchaseRepository {
	return &PurchaseRepository{q: tx}
}

// Create inserts a purchase record
func (r *PurchaseRepository) Create(ctx context.Context, purchase *models.Purchase) error {
	query := `
		INSERT INTO purchases (item_id, discord_id, quantity, unit_price, total_price, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`

	err := r.q.QueryRow(ctx, query,
		purchase.ItemID,
		purchase.DiscordID,
		purchase.Quantity,
		purchase.UnitPrice,
		purchase.TotalPrice,
		purchase.Status,
	).Scan(&purchase.ID, &purchase.CreatedAt, &purchase.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create purchase for user %d: %w", purchase.DiscordID, err)
	}

	return nil
}

// UpdateStatus transitions a purchase's status. The lifecycle is one-way:
// completed and failed are terminal.
func (r *PurchaseRepository) UpdateStatus(ctx context.Context, id int64, status models.PurchaseStatus) error {
	query := `
		UPDATE purchases
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = 'pending'
	`

	result, err := r.q.Exec(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("failed to update purchase %d status: %w", id, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("purchase %d not found or already settled", id)
	}

	return nil
}

// GetByUser returns a user's purchases newest-first
func (r *PurchaseRepository) GetByUser(ctx context.Context, discordID int64, limit int) ([]*models.Purchase, error) {
	query := `
		SELECT id, item_id, discord_id, quantity, unit_price, total_price, status, created_at, updated_at
		FROM purchases
		WHERE discord_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.q.Query(ctx, query, discordID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get purchases for user %d: %w", discordID, err)
	}
	defer rows.Close()

	var purchases []*models.Purchase
	for rows.Next() {
		var p models.Purchase
		err := rows.Scan(
			&p.ID,
			&p.ItemID,
			&p.DiscordID,
			&p.Quantity,
			&p.UnitPrice,
			&p.TotalPrice,
			&p.Status,
			&p.CreatedAt,
			&p.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan purchase: %w", err)
		}
		purchases = append(purchases, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate purchases: %w", err)
	}

	return purchases, nil
}
