package repository

import (
	"context"
	"fmt"

	"dskdao/database"
	"dskdao/events"
	"dskdao/service"
	"github.com/jackc/pgx/v5"
)

// unitOfWork implements the service.UnitOfWork interface
type unitOfWork struct {
	db               *database.DB
	tx               pgx.Tx
	ctx              context.Context
	transactionalBus *events.TransactionalBus
	userRepo         service.UserRepository
	transactionRepo  service.TransactionRepository
	itemRepo         service.ItemRepository
	purchaseRepo     service.PurchaseRepository
	raffleRepo       service.RaffleRepository
	raffleEntryRepo  service.RaffleEntryRepository
	gameSessionRepo  service.GameSessionRepository
}

type unitOfWorkFactory struct {
	db       *database.DB
	eventBus *events.Bus
}

// NewUnitOfWorkFactory creates a new UnitOfWork factory
func NewUnitOfWorkFactory(db *database.DB, eventBus *events.Bus) service.UnitOfWorkFactory {
	return &unitOfWorkFactory{
		db:       db,
		eventBus: eventBus,
	}
}

func (f *unitOfWorkFactory) Create() service.UnitOfWork {
	return &unitOfWork{
		db:               f.db,
		transactionalBus: events.NewTransactionalBus(f.eventBus),
	}
}

// Begin starts a new transaction
func (u *unitOfWork) Begin(ctx context.Context) error {
	if u.tx != nil {
		return fmt.Errorf("transaction already started")
	}

	tx, err := u.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	u.tx = tx
	u.ctx = ctx

	// Create repositories bound to the transaction
	u.userRepo = newUserRepositoryWithTx(tx)
	u.transactionRepo = newTransactionRepositoryWithTx(tx)
	u.itemRepo = newItemRepositoryWithTx(tx)
	u.purchaseRepo = newPurchaseRepositoryWithTx(tx)
	u.raffleRepo = newRaffleRepositoryWithTx(tx)
	u.raffleEntryRepo = newRaffleEntryRepositoryWithTx(tx)
	u.gameSessionRepo = newGameSessionRepositoryWithTx(tx)

	return nil
}

// Commit commits the transaction and flushes pending events
func (u *unitOfWork) Commit() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to commit")
	}

	if err := u.tx.Commit(u.ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	u.tx = nil

	if u.transactionalBus != nil {
		u.transactionalBus.Flush(u.ctx)
	}

	return nil
}

// Rollback rolls back the transaction and discards pending events
func (u *unitOfWork) Rollback() error {
	if u.tx == nil {
		return nil // Nothing to rollback
	}

	err := u.tx.Rollback(u.ctx)
	if err != nil && err != pgx.ErrTxClosed {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}

	u.tx = nil

	if u.transactionalBus != nil {
		u.transactionalBus.Discard()
	}

	return nil
}

func (u *unitOfWork) UserRepository() service.UserRepository {
	if u.userRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.userRepo
}

func (u *unitOfWork) TransactionRepository() service.TransactionRepository {
	if u.transactionRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.transactionRepo
}

func (u *unitOfWork) ItemRepository() service.ItemRepository {
	if u.itemRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.itemRepo
}

func (u *unitOfWork) PurchaseRepository() service.PurchaseRepository {
	if u.purchaseRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.purchaseRepo
}

func (u *unitOfWork) RaffleRepository() service.RaffleRepository {
	if u.raffleRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.raffleRepo
}

func (u *unitOfWork) RaffleEntryRepository() service.RaffleEntryRepository {
	if u.raffleEntryRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.raffleEntryRepo
}

func (u *unitOfWork) GameSessionRepository() service.GameSessionRepository {
	if u.gameSessionRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.gameSessionRepo
}

// EventBus returns the transactional event bus for this unit of work
func (u *unitOfWork) EventBus() service.EventPublisher {
	if u.transactionalBus == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.transactionalBus
}
