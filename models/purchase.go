package models

import "time"

// PurchaseStatus is the one-way purchase lifecycle. A failed purchase is
// never resurrected to completed.
type PurchaseStatus string

const (
	PurchaseStatusPending   PurchaseStatus = "pending"
	PurchaseStatusCompleted PurchaseStatus = "completed"
	PurchaseStatusFailed    PurchaseStatus = "failed"
)

// Purchase records one shop purchase
type Purchase struct {
	ID         int64          `db:"id"`
	ItemID     int64          `db:"item_id"`
	DiscordID  int64          `db:"discord_id"`
	Quantity   int64          `db:"quantity"`
	UnitPrice  int64          `db:"unit_price"`
	TotalPrice int64          `db:"total_price"`
	Status     PurchaseStatus `db:"status"`
	CreatedAt  time.Time      `db:"created_at"`
	UpdatedAt  time.Time      `db:"updated_at"`
}

// LootboxResult is the outcome of resolving one lootbox
type LootboxResult struct {
	ItemID   *int64
	ItemName string
	Points   int64
	Quantity int64
}

// PurchaseResult is returned to the caller. LootboxError carries a failed
// lootbox follow-up alongside an already committed purchase; it never rolls
// the purchase back.
type PurchaseResult struct {
	Purchase      *Purchase
	NewBalance    int64
	LootboxResult *LootboxResult
	LootboxError  error
}
