package events

import (
	"dskdao/models"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeBalanceChange  EventType = "balance_change"
	EventTypeUserCreated    EventType = "user_created"
	EventTypePurchase       EventType = "purchase_completed"
	EventTypeLootboxOpened  EventType = "lootbox_opened"
	EventTypeGamePlayed     EventType = "game_played"
	EventTypeRaffleEntry    EventType = "raffle_entry_purchased"
	EventTypeRaffleDrawn    EventType = "raffle_drawn"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// BalanceChangeEvent represents a balance change that occurred
type BalanceChangeEvent struct {
	DiscordID       int64
	PointType       models.PointType
	OldBalance      int64
	NewBalance      int64
	ChangeAmount    int64
	TransactionType models.TransactionType
}

func (e BalanceChangeEvent) Type() EventType {
	return EventTypeBalanceChange
}

// UserCreatedEvent represents a new user creation
type UserCreatedEvent struct {
	DiscordID      int64
	Username       string
	InitialBalance int64
}

func (e UserCreatedEvent) Type() EventType {
	return EventTypeUserCreated
}

// PurchaseEvent represents a completed shop purchase
type PurchaseEvent struct {
	PurchaseID int64
	DiscordID  int64
	ItemID     int64
	ItemName   string
	Quantity   int64
	TotalPrice int64
}

func (e PurchaseEvent) Type() EventType {
	return EventTypePurchase
}

// LootboxOpenedEvent represents a resolved lootbox
type LootboxOpenedEvent struct {
	DiscordID  int64
	LootboxID  int64
	ItemID     *int64
	ItemName   string
	Points     int64
	Quantity   int64
}

func (e LootboxOpenedEvent) Type() EventType {
	return EventTypeLootboxOpened
}

// GamePlayedEvent represents one settled game session
type GamePlayedEvent struct {
	SessionID string
	DiscordID int64
	GameID    models.GameID
	BetAmount int64
	WinAmount int64
	Result    models.GameResult
}

func (e GamePlayedEvent) Type() EventType {
	return EventTypeGamePlayed
}

// RaffleEntryEvent represents a raffle ticket purchase
type RaffleEntryEvent struct {
	RaffleID      int64
	DiscordID     int64
	TicketNumbers []int64
	TotalCost     int64
}

func (e RaffleEntryEvent) Type() EventType {
	return EventTypeRaffleEntry
}

// RaffleDrawnEvent represents a raffle winner selection
type RaffleDrawnEvent struct {
	RaffleID        int64
	Title           string
	WinnerDiscordID int64
	WinningTicket   int64
}

func (e RaffleDrawnEvent) Type() EventType {
	return EventTypeRaffleDrawn
}
