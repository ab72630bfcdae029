package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"dskdao/database"
	"dskdao/models"
)

// TransactionRepository implements the append-only ledger
type TransactionRepository struct {
	q queryable
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *database.DB) *TransactionRepository {
	return &TransactionRepository{q: db.Pool}
}

// newTransactionRepositoryWithTx creates a new transaction repository with a transaction
func newTransactionRepositoryWithTx(tx queryable) *TransactionRepository {
	return &TransactionRepository{q: tx}
}

// Record appends one ledger entry
func (r *TransactionRepository) Record(ctx context.Context, txn *models.Transaction) error {
	metadataJSON, err := json.Marshal(txn.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal transaction metadata: %w", err)
	}

	query := `
		INSERT INTO transactions
		(discord_id, point_type, change_amount, balance_before, balance_after, transaction_type, description, metadata, related_id, related_type)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at
	`

	err = r.q.QueryRow(ctx, query,
		txn.DiscordID,
		txn.PointType,
		txn.ChangeAmount,
		txn.BalanceBefore,
		txn.BalanceAfter,
		txn.Type,
		txn.Description,
		metadataJSON,
		txn.RelatedID,
		txn.RelatedType,
	).Scan(&txn.ID, &txn.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to record transaction for user %d: %w", txn.DiscordID, err)
	}

	return nil
}

// GetByUser returns ledger entries newest-first with offset pagination
func (r *TransactionRepository) GetByUser(ctx context.Context, discordID int64, filter models.TransactionFilter, offset, limit int) ([]*models.Transaction, error) {
	query := `
		SELECT id, discord_id, point_type, change_amount, balance_before, balance_after,
		       transaction_type, description, metadata, related_id, related_type, created_at
		FROM transactions
		WHERE discord_id = $1
	`
	args := []any{discordID}

	if filter.PointType != nil {
		args = append(args, *filter.PointType)
		query += fmt.Sprintf(" AND point_type = $%d", len(args))
	}
	if filter.Type != nil {
		args = append(args, *filter.Type)
		query += fmt.Sprintf(" AND transaction_type = $%d", len(args))
	}

	args = append(args, limit, offset)
	query += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get transactions for user %d: %w", discordID, err)
	}
	defer rows.Close()

	var txns []*models.Transaction
	for rows.Next() {
		var txn models.Transaction
		var metadataJSON []byte

		err := rows.Scan(
			&txn.ID,
			&txn.DiscordID,
			&txn.PointType,
			&txn.ChangeAmount,
			&txn.BalanceBefore,
			&txn.BalanceAfter,
			&txn.Type,
			&txn.Description,
			&metadataJSON,
			&txn.RelatedID,
			&txn.RelatedType,
			&txn.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}

		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &txn.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal transaction metadata: %w", err)
			}
		}

		txns = append(txns, &txn)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}

	return txns, nil
}

// SumByUser replays the ledger deltas for one point type
func (r *TransactionRepository) SumByUser(ctx context.Context, discordID int64, pointType models.PointType) (int64, error) {
	query := `
		SELECT COALESCE(SUM(change_amount), 0)
		FROM transactions
		WHERE discord_id = $1 AND point_type = $2
	`

	var sum int64
	if err := r.q.QueryRow(ctx, query, discordID, pointType).Scan(&sum); err != nil {
		return 0, fmt.Errorf("failed to sum transactions for user %d: %w", discordID, err)
	}

	return sum, nil
}
