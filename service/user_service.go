package service

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"dskdao/config"
	"dskdao/events"
	"dskdao/models"
)

// userService implements the UserService interface
type userService struct {
	uowFactory UnitOfWorkFactory
}

// NewUserService creates a new user service
func NewUserService(uowFactory UnitOfWorkFactory) UserService {
	return &userService{uowFactory: uowFactory}
}

// GetOrCreateUser retrieves an existing user or creates one with the
// configured starting balance. Creation writes the initial ledger entry so
// replaying the ledger reproduces the starting balance.
func (s *userService) GetOrCreateUser(ctx context.Context, discordID int64, username string) (*models.User, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback() // No-op if committed

	user, err := uow.UserRepository().GetByDiscordID(ctx, discordID)
	if err != nil {
		return nil, err
	}
	if user != nil {
		return user, nil
	}

	initialBalance := config.Get().StartingBalance
	user, err = uow.UserRepository().Create(ctx, discordID, username, initialBalance)
	if err != nil {
		return nil, fmt.Errorf("failed to create user %d: %w", discordID, err)
	}

	if initialBalance > 0 {
		err = uow.TransactionRepository().Record(ctx, &models.Transaction{
			DiscordID:     discordID,
			PointType:     models.PointTypeRedeemable,
			ChangeAmount:  initialBalance,
			BalanceBefore: 0,
			BalanceAfter:  initialBalance,
			Type:          models.TransactionTypeInitial,
			Description:   "Starting balance",
		})
		if err != nil {
			return nil, fmt.Errorf("failed to record initial balance: %w", err)
		}
	}

	uow.EventBus().Publish(events.UserCreatedEvent{
		DiscordID:      discordID,
		Username:       username,
		InitialBalance: initialBalance,
	})

	if err := uow.Commit(); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"discordID": discordID,
		"username":  username,
		"balance":   initialBalance,
	}).Info("Created new user")

	return user, nil
}

// GrantDiscordReward credits points earned through Discord activity such as
// chatting or reactions
func (s *userService) GrantDiscordReward(ctx context.Context, discordID int64, pointType models.PointType, amount int64, reason string) (*models.Balances, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: reward amount must be positive", ErrValidation)
	}
	if reason == "" {
		return nil, fmt.Errorf("%w: reward reason is required", ErrValidation)
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
			Type:        models.TransactionTypeDiscordReward,
			Description: reason,
		})
		if err != nil {
			return err
		}

		user, err := uow.UserRepository().GetByDiscordID(ctx, discordID)
		if err != nil {
			return err
		}

		if err := uow.Commit(); err != nil {
			return err
		}

		balances = &models.Balances{
			Redeemable:  user.RedeemableBalance,
			SoulBound:   user.SoulBoundBalance,
			TotalEarned: user.TotalEarned,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return balances, nil
}
