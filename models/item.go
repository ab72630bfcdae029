package models

import (
	"fmt"
	"time"
)

// ItemCategory classifies shop items
type ItemCategory string

const (
	ItemCategoryGeneral     ItemCategory = "general"
	ItemCategoryLootbox     ItemCategory = "lootbox"
	ItemCategoryCollectible ItemCategory = "collectible"
)

// Item is a purchasable shop item. Amount is the remaining stock; an item
// with Amount == 0 is unpurchasable regardless of Active.
type Item struct {
	ID          int64        `db:"id"`
	Name        string       `db:"name"`
	Description string       `db:"description"`
	Price       int64        `db:"price"`
	Amount      int64        `db:"amount"`
	Active      bool         `db:"active"`
	Category    ItemCategory `db:"category"`
	CreatedAt   time.Time    `db:"created_at"`
	UpdatedAt   time.Time    `db:"updated_at"`
}

// LootboxReward is one weighted entry of a lootbox reward table. Exactly one
// of ItemID / Points is set: an item grant or a redeemable point grant.
type LootboxReward struct {
	ID        int64  `db:"id"`
	LootboxID int64  `db:"lootbox_id"`
	ItemID    *int64 `db:"item_id"`
	Points    int64  `db:"points"`
	Quantity  int64  `db:"quantity"`
	Weight    int64  `db:"weight"`
}

// LootboxTable is an ordered reward table. Entry order is fixed at
// construction so the mapping from a random draw to an outcome is
// reproducible given the same seed.
type LootboxTable struct {
	LootboxID   int64
	Entries     []LootboxReward
	TotalWeight int64
}

// NewLootboxTable validates entries and computes the total weight.
// Weights must be positive so every entry stays reachable.
func NewLootboxTable(lootboxID int64, entries []LootboxReward) (*LootboxTable, error) {
	var total int64
	for i, e := range entries {
		if e.Weight <= 0 {
			return nil, fmt.Errorf("lootbox %d entry %d: weight must be positive, got %d", lootboxID, i, e.Weight)
		}
		if e.Quantity <= 0 {
			return nil, fmt.Errorf("lootbox %d entry %d: quantity must be positive, got %d", lootboxID, i, e.Quantity)
		}
		if e.ItemID == nil && e.Points <= 0 {
			return nil, fmt.Errorf("lootbox %d entry %d: must grant an item or points", lootboxID, i)
		}
		total += e.Weight
	}
	return &LootboxTable{
		LootboxID:   lootboxID,
		Entries:     entries,
		TotalWeight: total,
	}, nil
}
