package service

import (
	"context"
	"time"

	"dskdao/events"
	"dskdao/models"
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	// GetByDiscordID retrieves a user, or nil if the user does not exist
	GetByDiscordID(ctx context.Context, discordID int64) (*models.User, error)

	// GetForUpdate retrieves a user with a row lock, serializing concurrent
	// balance mutations for the same user. Must run inside a transaction.
	GetForUpdate(ctx context.Context, discordID int64) (*models.User, error)

	// Create creates a new user with the initial redeemable balance
	Create(ctx context.Context, discordID int64, username string, initialBalance int64) (*models.User, error)

	// SetBalance writes the new balance for one point type and adds
	// earnedDelta to the user's total earned counter
	SetBalance(ctx context.Context, discordID int64, pointType models.PointType, newBalance int64, earnedDelta int64) error
}

// TransactionRepository defines the interface for the append-only ledger
type TransactionRepository interface {
	// Record appends one ledger entry and fills in its ID and timestamp
	Record(ctx context.Context, txn *models.Transaction) error

	// GetByUser returns ledger entries newest-first with offset pagination
	GetByUser(ctx context.Context, discordID int64, filter models.TransactionFilter, offset, limit int) ([]*models.Transaction, error)

	// SumByUser replays the ledger for one point type; the result must equal
	// the user's current balance for that type
	SumByUser(ctx context.Context, discordID int64, pointType models.PointType) (int64, error)
}

// ItemRepository defines the interface for shop item data access
type ItemRepository interface {
	// GetByID retrieves an item, or nil if it does not exist
	GetByID(ctx context.Context, id int64) (*models.Item, error)

	// GetActive returns all active items with stock remaining
	GetActive(ctx context.Context) ([]*models.Item, error)

	// DecrementStock atomically decrements stock if the item is active and
	// has at least quantity remaining. Returns the snapshotted unit price
	// and false when the guard rejected the decrement.
	DecrementStock(ctx context.Context, itemID int64, quantity int64) (int64, bool, error)

	// GetLootboxTable loads the ordered reward table for a lootbox item
	GetLootboxTable(ctx context.Context, lootboxID int64) (*models.LootboxTable, error)
}

// PurchaseRepository defines the interface for purchase records
type PurchaseRepository interface {
	// Create inserts a purchase and fills in its ID and timestamps
	Create(ctx context.Context, purchase *models.Purchase) error

	// UpdateStatus transitions a purchase's status
	UpdateStatus(ctx context.Context, id int64, status models.PurchaseStatus) error

	// GetByUser returns a user's purchases newest-first
	GetByUser(ctx context.Context, discordID int64, limit int) ([]*models.Purchase, error)
}

// RaffleRepository defines the interface for raffle data access
type RaffleRepository interface {
	// GetByID retrieves a raffle, or nil if it does not exist
	GetByID(ctx context.Context, id int64) (*models.Raffle, error)

	// GetForUpdate retrieves a raffle with a row lock, serializing ticket
	// allocation. Must run inside a transaction.
	GetForUpdate(ctx context.Context, id int64) (*models.Raffle, error)

	// GetActive returns raffles open for entries at the given time
	GetActive(ctx context.Context, now time.Time) ([]*models.Raffle, error)

	// AddTickets adds ticketsDelta to the sold counter (guarded against
	// exceeding max entries) and participantsDelta to the participant count.
	// Returns false when the capacity guard rejected the update.
	AddTickets(ctx context.Context, raffleID int64, ticketsDelta, participantsDelta int64) (bool, error)

	// UpdateStatus transitions a raffle from one status to another.
	// Returns false when the raffle was not in the expected status.
	UpdateStatus(ctx context.Context, raffleID int64, from, to models.RaffleStatus) (bool, error)

	// SetWinner records the winner exactly once and transitions the raffle
	// to ended. Returns false if a winner was already set.
	SetWinner(ctx context.Context, raffleID int64, winnerDiscordID, winningTicket int64, drawnAt time.Time) (bool, error)
}

// RaffleEntryRepository defines the interface for raffle entry data access
type RaffleEntryRepository interface {
	// GetByRaffleAndUser retrieves a user's entry, or nil if none exists
	GetByRaffleAndUser(ctx context.Context, raffleID, discordID int64) (*models.RaffleEntry, error)

	// Create inserts an entry and fills in its ID
	Create(ctx context.Context, entry *models.RaffleEntry) error

	// AppendTickets appends ticket numbers to an existing entry and adds
	// price to its accumulated purchase price
	AppendTickets(ctx context.Context, entryID int64, tickets []int64, price int64) error

	// GetByRaffle returns all entries for a raffle
	GetByRaffle(ctx context.Context, raffleID int64) ([]*models.RaffleEntry, error)

	// FindByTicket resolves the entry holding the given ticket number
	FindByTicket(ctx context.Context, raffleID, ticket int64) (*models.RaffleEntry, error)
}

// GameSessionRepository defines the interface for game session records
type GameSessionRepository interface {
	// Create inserts an immutable session record
	Create(ctx context.Context, session *models.GameSession) error

	// GetByID retrieves a session, or nil if it does not exist
	GetByID(ctx context.Context, id string) (*models.GameSession, error)

	// Leaderboard aggregates net winnings per user since the given time,
	// ordered descending
	Leaderboard(ctx context.Context, gameID models.GameID, since time.Time, limit int) ([]*models.LeaderboardEntry, error)
}

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(event events.Event)
}

// UnitOfWork binds all repositories to a single database transaction
type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	UserRepository() UserRepository
	TransactionRepository() TransactionRepository
	ItemRepository() ItemRepository
	PurchaseRepository() PurchaseRepository
	RaffleRepository() RaffleRepository
	RaffleEntryRepository() RaffleEntryRepository
	GameSessionRepository() GameSessionRepository
	EventBus() EventPublisher
}

// UnitOfWorkFactory creates units of work
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}

// UserService defines the interface for user operations
type UserService interface {
	// GetOrCreateUser retrieves an existing user or creates one with the
	// configured starting balance
	GetOrCreateUser(ctx context.Context, discordID int64, username string) (*models.User, error)

	// GrantDiscordReward credits points earned through Discord activity
	GrantDiscordReward(ctx context.Context, discordID int64, pointType models.PointType, amount int64, reason string) (*models.Balances, error)
}

// BalanceService defines the interface for balance reads and admin mutations
type BalanceService interface {
	// GetBalance returns both balances for a user
	GetBalance(ctx context.Context, discordID int64) (*models.Balances, error)

	// GetTransactionHistory returns ledger entries newest-first
	GetTransactionHistory(ctx context.Context, discordID int64, filter models.TransactionFilter, page, limit int) ([]*models.Transaction, error)

	// AdjustBalance applies a privileged admin adjustment. This is the only
	// path permitted to decrease a soul-bound balance.
	AdjustBalance(ctx context.Context, discordID int64, pointType models.PointType, amount int64, reason string, adminDiscordID int64) (*models.Balances, error)
}

// ShopService defines the interface for shop purchases
type ShopService interface {
	// Purchase buys quantity units of an item, resolving lootboxes in a
	// best-effort follow-up transaction
	Purchase(ctx context.Context, discordID, itemID, quantity int64) (*models.PurchaseResult, error)

	// GetActiveItems lists purchasable items
	GetActiveItems(ctx context.Context) ([]*models.Item, error)

	// GetPurchaseHistory returns a user's purchases newest-first
	GetPurchaseHistory(ctx context.Context, discordID int64, limit int) ([]*models.Purchase, error)
}

// GameService defines the interface for games of chance
type GameService interface {
	// Play wagers betAmount on one play and settles it atomically
	Play(ctx context.Context, discordID int64, gameID models.GameID, betAmount int64, riskLevel models.RiskLevel) (*models.PlayResult, error)

	// GetLeaderboard returns net-winnings rankings for a game and period
	GetLeaderboard(ctx context.Context, gameID models.GameID, period models.LeaderboardPeriod, limit int) ([]*models.LeaderboardEntry, error)

	// GetSession retrieves one settled play record
	GetSession(ctx context.Context, gameID models.GameID, sessionID string) (*models.GameSession, error)
}

// RaffleService defines the interface for raffle operations
type RaffleService interface {
	// PurchaseEntries buys numberOfEntries tickets in one atomic operation
	PurchaseEntries(ctx context.Context, discordID, raffleID, numberOfEntries int64) (*models.RaffleEntryResult, error)

	// GetActiveRaffles lists raffles currently open for entries
	GetActiveRaffles(ctx context.Context) ([]*models.Raffle, error)

	// ActivateRaffle opens a draft raffle for entries
	ActivateRaffle(ctx context.Context, raffleID int64) error

	// CancelRaffle cancels a draft or active raffle. Sold ticket numbers
	// are voided, never recycled.
	CancelRaffle(ctx context.Context, raffleID int64) error

	// DrawWinner selects a uniform random winning ticket and records the
	// winner exactly once
	DrawWinner(ctx context.Context, raffleID int64) (*models.Raffle, error)
}
