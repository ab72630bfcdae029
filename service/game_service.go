package service

import (
	"context"
	"fmt"
	"time"

	"dskdao/config"
	"dskdao/events"
	"dskdao/models"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// LeaderboardCache caches per-game net winnings rankings. Implementations
// may report a miss, in which case the service falls back to the store.
type LeaderboardCache interface {
	// AddNetWinnings accumulates a settled session's net result
	AddNetWinnings(ctx context.Context, gameID models.GameID, discordID int64, username string, net int64) error

	// Top returns the ranked entries for a period; ok is false on a miss
	Top(ctx context.Context, gameID models.GameID, period models.LeaderboardPeriod, limit int) ([]*models.LeaderboardEntry, bool, error)
}

// gameService implements the GameService interface
type gameService struct {
	uowFactory  UnitOfWorkFactory
	engine      *WagerEngine
	leaderboard LeaderboardCache
}

// NewGameService creates a new game service. leaderboard may be nil, in
// which case rankings always come from the store.
func NewGameService(uowFactory UnitOfWorkFactory, engine *WagerEngine, leaderboard LeaderboardCache) GameService {
	return &gameService{
		uowFactory:  uowFactory,
		engine:      engine,
		leaderboard: leaderboard,
	}
}

// Play wagers betAmount on one play. The wager is debited before the
// simulation and the payout credited after, all inside one transaction, so
// the user never holds an uncollateralized in-flight bet.
func (s *gameService) Play(ctx context.Context, discordID int64, gameID models.GameID, betAmount int64, riskLevel models.RiskLevel) (*models.PlayResult, error) {
	if gameID != models.GameIDPlinko {
		return nil, fmt.Errorf("%w: game %q", ErrNotFound, gameID)
	}
	if !riskLevel.Valid() {
		return nil, fmt.Errorf("%w: unknown risk level %q", ErrValidation, riskLevel)
	}

	cfg := config.Get()
	if betAmount < cfg.PlinkoMinBet || betAmount > cfg.PlinkoMaxBet {
		return nil, fmt.Errorf("%w: bet %d outside range [%d, %d]", ErrInvalidBet, betAmount, cfg.PlinkoMinBet, cfg.PlinkoMaxBet)
	}

	var result *models.PlayResult
	var username string

	err := withConflictRetry(ctx, cfg.TxRetryAttempts, func(ctx context.Context) error {
		uow := s.uowFactory.Create()
		if err := uow.Begin(ctx); err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer uow.Rollback() // No-op if already committed

		sessionID := uuid.NewString()
		relatedType := models.RelatedTypeGameSession

		// Debit first: the wager is collateralized before any randomness
		debitTxn, err := ApplyBalanceChange(ctx, uow, BalanceAdjustment{
			DiscordID:   discordID,
			PointType:   models.PointTypeRedeemable,
			Delta:       -betAmount,
			Type:        models.TransactionTypeGameWager,
			Description: fmt.Sprintf("Plinko wager (%s risk)", riskLevel),
			Metadata: map[string]any{
				"game_id":    gameID,
				"session_id": sessionID,
				"risk_level": riskLevel,
			},
			RelatedType: &relatedType,
		})
		if err != nil {
			return err
		}

		outcome, winAmount, err := s.engine.Play(betAmount, riskLevel, DefaultPlinkoRows)
		if err != nil {
			return err
		}

		newBalance := debitTxn.BalanceAfter
		if winAmount > 0 {
			creditTxn, err := ApplyBalanceChange(ctx, uow, BalanceAdjustment{
				DiscordID:   discordID,
				PointType:   models.PointTypeRedeemable,
				Delta:       winAmount,
				Type:        models.TransactionTypeGamePayout,
				Description: fmt.Sprintf("Plinko payout (%.2fx)", outcome.Multiplier),
				Metadata: map[string]any{
					"game_id":    gameID,
					"session_id": sessionID,
					"multiplier": outcome.Multiplier,
				},
				RelatedType: &relatedType,
			})
			if err != nil {
				return err
			}
			newBalance = creditTxn.BalanceAfter
		}

		gameResult := models.GameResultLose
		if outcome.Multiplier > 1 {
			gameResult = models.GameResultWin
		}

		session := &models.GameSession{
			ID:         sessionID,
			DiscordID:  discordID,
			GameID:     gameID,
			BetAmount:  betAmount,
			Result:     gameResult,
			WinAmount:  winAmount,
			Multiplier: outcome.Multiplier,
			Outcome:    outcome,
		}
		if err := uow.GameSessionRepository().Create(ctx, session); err != nil {
			return err
		}

		user, err := uow.UserRepository().GetByDiscordID(ctx, discordID)
		if err != nil {
			return fmt.Errorf("failed to re-read user: %w", err)
		}
		username = user.Username

		uow.EventBus().Publish(events.GamePlayedEvent{
			SessionID: sessionID,
			DiscordID: discordID,
			GameID:    gameID,
			BetAmount: betAmount,
			WinAmount: winAmount,
			Result:    gameResult,
		})

		if err := uow.Commit(); err != nil {
			return err
		}

		result = &models.PlayResult{
			SessionID:  sessionID,
			Result:     gameResult,
			WinAmount:  winAmount,
			NewBalance: newBalance,
			Outcome:    outcome,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Leaderboard update is best-effort cache maintenance
	if s.leaderboard != nil {
		net := result.WinAmount - betAmount
		if err := s.leaderboard.AddNetWinnings(ctx, gameID, discordID, username, net); err != nil {
			log.WithFields(log.Fields{
				"gameID":    gameID,
				"discordID": discordID,
				"error":     err,
			}).Warn("Failed to update leaderboard cache")
		}
	}

	return result, nil
}

// GetLeaderboard returns rankings from the cache when available, falling
// back to a store aggregate
func (s *gameService) GetLeaderboard(ctx context.Context, gameID models.GameID, period models.LeaderboardPeriod, limit int) ([]*models.LeaderboardEntry, error) {
	if limit < 1 || limit > 100 {
		return nil, fmt.Errorf("%w: limit must be between 1 and 100", ErrValidation)
	}

	if s.leaderboard != nil {
		entries, ok, err := s.leaderboard.Top(ctx, gameID, period, limit)
		if err != nil {
			log.WithFields(log.Fields{
				"gameID": gameID,
				"period": period,
				"error":  err,
			}).Warn("Leaderboard cache read failed, falling back to store")
		} else if ok {
			return entries, nil
		}
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	entries, err := uow.GameSessionRepository().Leaderboard(ctx, gameID, PeriodStart(period, time.Now().UTC()), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get leaderboard: %w", err)
	}

	return entries, nil
}

// GetSession retrieves one settled play record
func (s *gameService) GetSession(ctx context.Context, gameID models.GameID, sessionID string) (*models.GameSession, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	session, err := uow.GameSessionRepository().GetByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get game session: %w", err)
	}
	if session == nil || session.GameID != gameID {
		return nil, fmt.Errorf("%w: session %s", ErrNotFound, sessionID)
	}

	return session, nil
}

// PeriodStart returns the inclusive lower time bound for a leaderboard period
func PeriodStart(period models.LeaderboardPeriod, now time.Time) time.Time {
	switch period {
	case models.LeaderboardPeriodDaily:
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	case models.LeaderboardPeriodWeekly:
		midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		offset := (int(now.Weekday()) + 6) % 7 // Monday start
		return midnight.AddDate(0, 0, -offset)
	default:
		return time.Time{}
	}
}
