package service

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"dskdao/events"
	"dskdao/models"
)

// MockUserRepository is a mock implementation of UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetByDiscordID(ctx context.Context, discordID int64) (*models.User, error) {
	args := m.Called(ctx, discordID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetForUpdate(ctx context.Context, discordID int64) (*models.User, error) {
	args := m.Called(ctx, discordID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) Create(ctx context.Context, discordID int64, username string, initialBalance int64) (*models.User, error) {
	args := m.Called(ctx, discordID, username, initialBalance)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) SetBalance(ctx context.Context, discordID int64, pointType models.PointType, newBalance int64, earnedDelta int64) error {
	args := m.Called(ctx, discordID, pointType, newBalance, earnedDelta)
	return args.Error(0)
}

// MockTransactionRepository is a mock implementation of TransactionRepository
type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) Record(ctx context.Context, txn *models.Transaction) error {
	args := m.Called(ctx, txn)
	return args.Error(0)
}

func (m *MockTransactionRepository) GetByUser(ctx context.Context, discordID int64, filter models.TransactionFilter, offset, limit int) ([]*models.Transaction, error) {
	args := m.Called(ctx, discordID, filter, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) SumByUser(ctx context.Context, discordID int64, pointType models.PointType) (int64, error) {
	args := m.Called(ctx, discordID, pointType)
	return args.Get(0).(int64), args.Error(1)
}

// MockItemRepository is a mock implementation of ItemRepository
type MockItemRepository struct {
	mock.Mock
}

func (m *MockItemRepository) GetByID(ctx context.Context, id int64) (*models.Item, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Item), args.Error(1)
}

func (m *MockItemRepository) GetActive(ctx context.Context) ([]*models.Item, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Item), args.Error(1)
}

func (m *MockItemRepository) DecrementStock(ctx context.Context, itemID int64, quantity int64) (int64, bool, error) {
	args := m.Called(ctx, itemID, quantity)
	return args.Get(0).(int64), args.Bool(1), args.Error(2)
}

func (m *MockItemRepository) GetLootboxTable(ctx context.Context, lootboxID int64) (*models.LootboxTable, error) {
	args := m.Called(ctx, lootboxID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.LootboxTable), args.Error(1)
}

// MockPurchaseRepository is a mock implementation of PurchaseRepository
type MockPurchaseRepository struct {
	mock.Mock
}

func (m *MockPurchaseRepository) Create(ctx context.Context, purchase *models.Purchase) error {
	args := m.Called(ctx, purchase)
	return args.Error(0)
}

func (m *MockPurchaseRepository) UpdateStatus(ctx context.Context, id int64, status models.PurchaseStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockPurchaseRepository) GetByUser(ctx context.Context, discordID int64, limit int) ([]*models.Purchase, error) {
	args := m.Called(ctx, discordID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Purchase), args.Error(1)
}

// MockRaffleRepository is a mock implementation of RaffleRepository
type MockRaffleRepository struct {
	mock.Mock
}

func (m *MockRaffleRepository) GetByID(ctx context.Context, id int64) (*models.Raffle, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Raffle), args.Error(1)
}

func (m *MockRaffleRepository) GetForUpdate(ctx context.Context, id int64) (*models.Raffle, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Raffle), args.Error(1)
}

func (m *MockRaffleRepository) GetActive(ctx context.Context, now time.Time) ([]*models.Raffle, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Raffle), args.Error(1)
}

func (m *MockRaffleRepository) AddTickets(ctx context.Context, raffleID int64, ticketsDelta, participantsDelta int64) (bool, error) {
	args := m.Called(ctx, raffleID, ticketsDelta, participantsDelta)
	return args.Bool(0), args.Error(1)
}

func (m *MockRaffleRepository) UpdateStatus(ctx context.Context, raffleID int64, from, to models.RaffleStatus) (bool, error) {
	args := m.Called(ctx, raffleID, from, to)
	return args.Bool(0), args.Error(1)
}

func (m *MockRaffleRepository) SetWinner(ctx context.Context, raffleID int64, winnerDiscordID, winningTicket int64, drawnAt time.Time) (bool, error) {
	args := m.Called(ctx, raffleID, winnerDiscordID, winningTicket, drawnAt)
	return args.Bool(0), args.Error(1)
}

// MockRaffleEntryRepository is a mock implementation of RaffleEntryRepository
type MockRaffleEntryRepository struct {
	mock.Mock
}

func (m *MockRaffleEntryRepository) GetByRaffleAndUser(ctx context.Context, raffleID, discordID int64) (*models.RaffleEntry, error) {
	args := m.Called(ctx, raffleID, discordID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RaffleEntry), args.Error(1)
}

func (m *MockRaffleEntryRepository) Create(ctx context.Context, entry *models.RaffleEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockRaffleEntryRepository) AppendTickets(ctx context.Context, entryID int64, tickets []int64, price int64) error {
	args := m.Called(ctx, entryID, tickets, price)
	return args.Error(0)
}

func (m *MockRaffleEntryRepository) GetByRaffle(ctx context.Context, raffleID int64) ([]*models.RaffleEntry, error) {
	args := m.Called(ctx, raffleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.RaffleEntry), args.Error(1)
}

func (m *MockRaffleEntryRepository) FindByTicket(ctx context.Context, raffleID, ticket int64) (*models.RaffleEntry, error) {
	args := m.Called(ctx, raffleID, ticket)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RaffleEntry), args.Error(1)
}

// MockGameSessionRepository is a mock implementation of GameSessionRepository
type MockGameSessionRepository struct {
	mock.Mock
}

func (m *MockGameSessionRepository) Create(ctx context.Context, session *models.GameSession) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockGameSessionRepository) GetByID(ctx context.Context, id string) (*models.GameSession, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.GameSession), args.Error(1)
}

func (m *MockGameSessionRepository) Leaderboard(ctx context.Context, gameID models.GameID, since time.Time, limit int) ([]*models.LeaderboardEntry, error) {
	args := m.Called(ctx, gameID, since, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.LeaderboardEntry), args.Error(1)
}

// recordingEventBus collects published events for assertions
type recordingEventBus struct {
	published []events.Event
}

func (b *recordingEventBus) Publish(event events.Event) {
	b.published = append(b.published, event)
}

// MockUnitOfWork is a mock implementation of UnitOfWork. Repositories are
// configured with SetRepositories; unset repositories panic on access so a
// test fails loudly when code touches something it did not declare.
type MockUnitOfWork struct {
	mock.Mock

	users     UserRepository
	txns      TransactionRepository
	items     ItemRepository
	purchases PurchaseRepository
	raffles   RaffleRepository
	entries   RaffleEntryRepository
	sessions  GameSessionRepository
	eventBus  *recordingEventBus
}

// SetRepositories wires the mock repositories into the unit of work. Pass nil
// for repositories the test does not expect to be used.
func (m *MockUnitOfWork) SetRepositories(
	users UserRepository,
	txns TransactionRepository,
	items ItemRepository,
	purchases PurchaseRepository,
	raffles RaffleRepository,
	entries RaffleEntryRepository,
	sessions GameSessionRepository,
) {
	m.users = users
	m.txns = txns
	m.items = items
	m.purchases = purchases
	m.raffles = raffles
	m.entries = entries
	m.sessions = sessions
	m.eventBus = &recordingEventBus{}
}

// PublishedEvents returns the events published during the unit of work
func (m *MockUnitOfWork) PublishedEvents() []events.Event {
	return m.eventBus.published
}

func (m *MockUnitOfWork) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUnitOfWork) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) UserRepository() UserRepository {
	if m.users == nil {
		panic("UserRepository not configured in MockUnitOfWork")
	}
	return m.users
}

func (m *MockUnitOfWork) TransactionRepository() TransactionRepository {
	if m.txns == nil {
		panic("TransactionRepository not configured in MockUnitOfWork")
	}
	return m.txns
}

func (m *MockUnitOfWork) ItemRepository() ItemRepository {
	if m.items == nil {
		panic("ItemRepository not configured in MockUnitOfWork")
	}
	return m.items
}

func (m *MockUnitOfWork) PurchaseRepository() PurchaseRepository {
	if m.purchases == nil {
		panic("PurchaseRepository not configured in MockUnitOfWork")
	}
	return m.purchases
}

func (m *MockUnitOfWork) RaffleRepository() RaffleRepository {
	if m.raffles == nil {
		panic("RaffleRepository not configured in MockUnitOfWork")
	}
	return m.raffles
}

func (m *MockUnitOfWork) RaffleEntryRepository() RaffleEntryRepository {
	if m.entries == nil {
		panic("RaffleEntryRepository not configured in MockUnitOfWork")
	}
	return m.entries
}

func (m *MockUnitOfWork) GameSessionRepository() GameSessionRepository {
	if m.sessions == nil {
		panic("GameSessionRepository not configured in MockUnitOfWork")
	}
	return m.sessions
}

func (m *MockUnitOfWork) EventBus() EventPublisher {
	return m.eventBus
}

// MockUnitOfWorkFactory is a mock implementation of UnitOfWorkFactory
type MockUnitOfWorkFactory struct {
	mock.Mock
}

func (m *MockUnitOfWorkFactory) Create() UnitOfWork {
	args := m.Called()
	return args.Get(0).(UnitOfWork)
}
