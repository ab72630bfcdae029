package repository

import (
	"context"
	"fmt"

	"dskdao/database"
	"dskdao/models"
	"github.com/jackc/pgx/v5"
)

// ItemRepository implements the service.ItemRepository interface
type ItemRepository struct {
	q queryable
}

// NewItemRepository creates a new item repository
func NewItemRepository(db *database.DB) *ItemRepository {
	return &ItemRepository{q: db.Pool}
}

// newItemRepositoryWithTx creates a new item repository with a transaction
func newItemRepositoryWithTx(tx queryable) *ItemRepository {
	return &ItemRepository{q: tx}
}

const itemColumns = `id, name, description, price, amount, active, category, created_at, updated_at`

func scanItem(row pgx.Row) (*models.Item, error) {
	var item models.Item
	err := row.Scan(
		&item.ID,
		&item.Name,
		&item.Description,
		&item.Price,
		&item.Amount,
		&item.Active,
		&item.Category,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// GetByID retrieves an item by its ID
func (r *ItemRepository) GetByID(ctx context.Context, id int64) (*models.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE id = $1`

	item, err := scanItem(r.q.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get item %d: %w", id, err)
	}
	return item, nil
}

// GetActive returns all active items with stock remaining
func (r *ItemRepository) GetActive(ctx context.Context) ([]*models.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE active AND amount > 0 ORDER BY id`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get active items: %w", err)
	}
	defer rows.Close()

	var items []*models.Item
	for rows.Next() {
		var item models.Item
		err := rows.Scan(
			&item.ID,
			&item.Name,
			&item.Description,
			&item.Price,
			&item.Amount,
			&item.Active,
			&item.Category,
			&item.CreatedAt,
			&item.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, &item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate items: %w", err)
	}

	return items, nil
}

// DecrementStock decrements stock only if the item is active and has enough
// remaining. The returned price is snapshotted at decrement time so the
// caller charges the price it reserved at.
func (r *ItemRepository) DecrementStock(ctx context.Context, itemID int64, quantity int64) (int64, bool, error) {
	if quantity <= 0 {
		return 0, false, fmt.Errorf("quantity must be positive")
	}

	query := `
		UPDATE items
		SET amount = amount - $1, updated_at = NOW()
		WHERE id = $2 AND active AND amount >= $1
		RETURNING price
	`

	var price int64
	err := r.q.QueryRow(ctx, query, quantity, itemID).Scan(&price)
	if err == pgx.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to decrement stock for item %d: %w", itemID, err)
	}

	return price, true, nil
}

// GetLootboxTable loads the ordered reward table for a lootbox item.
// Entries are ordered by row ID: insertion order, fixed for the life of the
// table, so a draw maps deterministically to an entry.
func (r *ItemRepository) GetLootboxTable(ctx context.Context, lootboxID int64) (*models.LootboxTable, error) {
	query := `
		SELECT id, lootbox_id, item_id, points, quantity, weight
		FROM lootbox_rewards
		WHERE lootbox_id = $1
		ORDER BY id
	`

	rows, err := r.q.Query(ctx, query, lootboxID)
	if err != nil {
		return nil, fmt.Errorf("failed to get lootbox table %d: %w", lootboxID, err)
	}
	defer rows.Close()

	var entries []models.LootboxReward
	for rows.Next() {
		var e models.LootboxReward
		if err := rows.Scan(&e.ID, &e.LootboxID, &e.ItemID, &e.Points, &e.Quantity, &e.Weight); err != nil {
			return nil, fmt.Errorf("failed to scan lootbox reward: %w", err)
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate lootbox rewards: %w", err)
	}

	table, err := models.NewLootboxTable(lootboxID, entries)
	if err != nil {
		return nil, fmt.Errorf("invalid lootbox table %d: %w", lootboxID, err)
	}

	return table, nil
}
