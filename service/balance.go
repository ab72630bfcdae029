package service

import (
	"context"
	"fmt"

	"dskdao/config"
	"dskdao/events"
	"dskdao/models"
)

// BalanceAdjustment describes one balance mutation and its ledger entry
type BalanceAdjustment struct {
	DiscordID   int64
	PointType   models.PointType
	Delta       int64
	Type        models.TransactionType
	Description string
	Metadata    map[string]any
	RelatedID   *int64
	RelatedType *models.RelatedType
}

// ApplyBalanceChange is the single entry point for all balance mutations.
// It must be called inside an enclosing unit of work: it locks the user row,
// validates the resulting balance, writes it, and appends exactly one ledger
// entry whose BalanceAfter matches the written balance.
func ApplyBalanceChange(ctx context.Context, uow UnitOfWork, adj BalanceAdjustment) (*models.Transaction, error) {
	if !adj.PointType.Valid() {
		return nil, fmt.Errorf("%w: unknown point type %q", ErrValidation, adj.PointType)
	}
	if adj.Delta == 0 {
		return nil, fmt.Errorf("%w: adjustment delta must be non-zero", ErrValidation)
	}

	// Soul-bound points are not spendable; only an admin adjustment may
	// decrease them.
	if adj.PointType == models.PointTypeSoulBound && adj.Delta < 0 && adj.Type != models.TransactionTypeAdminAdjustment {
		return nil, fmt.Errorf("%w: soul-bound points cannot be spent", ErrValidation)
	}

	user, err := uow.UserRepository().GetForUpdate(ctx, adj.DiscordID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("%w: user %d", ErrNotFound, adj.DiscordID)
	}

	current := user.BalanceFor(adj.PointType)
	newBalance := current + adj.Delta
	if newBalance < 0 {
		return nil, fmt.Errorf("%w: have %d %s, need %d", ErrInsufficientBalance, current, adj.PointType, -adj.Delta)
	}

	var earnedDelta int64
	if adj.Delta > 0 {
		earnedDelta = adj.Delta
	}

	if err := uow.UserRepository().SetBalance(ctx, adj.DiscordID, adj.PointType, newBalance, earnedDelta); err != nil {
		return nil, fmt.Errorf("failed to write balance: %w", err)
	}

	txn := &models.Transaction{
		DiscordID:     adj.DiscordID,
		PointType:     adj.PointType,
		ChangeAmount:  adj.Delta,
		BalanceBefore: current,
		BalanceAfter:  newBalance,
		Type:          adj.Type,
		Description:   adj.Description,
		Metadata:      adj.Metadata,
		RelatedID:     adj.RelatedID,
		RelatedType:   adj.RelatedType,
	}

	if err := uow.TransactionRepository().Record(ctx, txn); err != nil {
		return nil, fmt.Errorf("failed to record transaction: %w", err)
	}

	uow.EventBus().Publish(events.BalanceChangeEvent{
		DiscordID:       adj.DiscordID,
		PointType:       adj.PointType,
		OldBalance:      current,
		NewBalance:      newBalance,
		ChangeAmount:    adj.Delta,
		TransactionType: adj.Type,
	})

	return txn, nil
}

// balanceService implements the BalanceService interface
type balanceService struct {
	uowFactory UnitOfWorkFactory
}

// NewBalanceService creates a new balance service
func NewBalanceService(uowFactory UnitOfWorkFactory) BalanceService {
	return &balanceService{uowFactory: uowFactory}
}

func (s *balanceService) GetBalance(ctx context.Context, discordID int64) (*models.Balances, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback() // No-op if already committed

	user, err := uow.UserRepository().GetByDiscordID(ctx, discordID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("%w: user %d", ErrNotFound, discordID)
	}

	return &models.Balances{
		Redeemable:  user.RedeemableBalance,
		SoulBound:   user.SoulBoundBalance,
		TotalEarned: user.TotalEarned,
	}, nil
}

func (s *balanceService) GetTransactionHistory(ctx context.Context, discordID int64, filter models.TransactionFilter, page, limit int) ([]*models.Transaction, error) {
	if page < 1 {
		return nil, fmt.Errorf("%w: page must be >= 1", ErrValidation)
	}
	if limit < 1 || limit > 100 {
		return nil, fmt.Errorf("%w: limit must be between 1 and 100", ErrValidation)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	txns, err := uow.TransactionRepository().GetByUser(ctx, discordID, filter, (page-1)*limit, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction history: %w", err)
	}

	return txns, nil
}

func (s *balanceService) AdjustBalance(ctx context.Context, discordID int64, pointType models.PointType, amount int64, reason string, adminDiscordID int64) (*models.Balances, error) {
	if reason == "" {
		return nil, fmt.Errorf("%w: adjustment reason is required", ErrValidation)
	}

	var balances *models.Balances
	err := withConflictRetry(ctx, config.Get().TxRetryAttempts, func(ctx context.Context) error {
		uow := s.uowFactory.Create()
		if err := uow.Begin(ctx); err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer uow.Rollback()

		_, err := ApplyBalanceChange(ctx, uow, BalanceAdjustment{
			DiscordID:   discordID,
			PointType:   pointType,
			Delta:       amount,
			Type:        models.TransactionTypeAdminAdjustment,
			Description: reason,
			Metadata: map[string]any{
				"admin_discord_id": adminDiscordID,
			},
		})
		if err != nil {
			return err
		}

		user, err := uow.UserRepository().GetByDiscordID(ctx, discordID)
		if err != nil {
			return fmt.Errorf("failed to re-read user: %w", err)
		}
		balances = &models.Balances{
			Redeemable:  user.RedeemableBalance,
			SoulBound:   user.SoulBoundBalance,
			TotalEarned: user.TotalEarned,
		}

		return uow.Commit()
	})
	if err != nil {
		return nil, err
	}

	return balances, nil
}
