package models

import (
	"time"
)

// TransactionType represents the type of balance change
type TransactionType string

const (
	TransactionTypeInitial         TransactionType = "initial"
	TransactionTypePurchase        TransactionType = "purchase"
	TransactionTypeLootboxOpen     TransactionType = "lootbox_open"
	TransactionTypeGameWager       TransactionType = "game_wager"
	TransactionTypeGamePayout      TransactionType = "game_payout"
	TransactionTypeRaffleEntry     TransactionType = "raffle_entry"
	TransactionTypeAdminAdjustment TransactionType = "admin_adjustment"
	TransactionTypeDiscordReward   TransactionType = "discord_reward"
)

// RelatedType represents what type of entity the related_id refers to
type RelatedType string

const (
	RelatedTypeItem        RelatedType = "item"
	RelatedTypePurchase    RelatedType = "purchase"
	RelatedTypeGameSession RelatedType = "game_session"
	RelatedTypeRaffle      RelatedType = "raffle"
)

// Transaction is one immutable ledger entry. The ledger is the source of
// truth for balances: replaying ChangeAmount per point type from account
// creation must reproduce the user's current balance.
type Transaction struct {
	ID            int64           `db:"id"`
	DiscordID     int64           `db:"discord_id"`
	PointType     PointType       `db:"point_type"`
	ChangeAmount  int64           `db:"change_amount"`
	BalanceBefore int64           `db:"balance_before"`
	BalanceAfter  int64           `db:"balance_after"`
	Type          TransactionType `db:"transaction_type"`
	Description   string          `db:"description"`
	Metadata      map[string]any  `db:"metadata"`
	RelatedID     *int64          `db:"related_id"`
	RelatedType   *RelatedType    `db:"related_type"`
	CreatedAt     time.Time       `db:"created_at"`
}

// TransactionFilter narrows transaction history queries
type TransactionFilter struct {
	PointType *PointType
	Type      *TransactionType
}
