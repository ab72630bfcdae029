package service

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"dskdao/config"
	"dskdao/events"
	"dskdao/models"
)

// raffleService implements the RaffleService interface
type raffleService struct {
	uowFactory UnitOfWorkFactory
	rng        *rand.Rand
	now        func() time.Time
}

// NewRaffleService creates a new raffle service. The rand source drives
// winner draws and is injected so draws are reproducible under a fixed seed.
// One service is shared across requests, so draws are serialized internally.
func NewRaffleService(uowFactory UnitOfWorkFactory, src rand.Source) RaffleService {
	return &raffleService{
		uowFactory: uowFactory,
		rng:        newLockedRand(src),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// PurchaseEntries buys numberOfEntries tickets in one atomic operation.
// Ticket numbers are allocated contiguously from the raffle's sold counter;
// the raffle row lock serializes concurrent allocations so numbers are never
// duplicated or recycled.
func (s *raffleService) PurchaseEntries(ctx context.Context, discordID, raffleID, numberOfEntries int64) (*models.RaffleEntryResult, error) {
	if numberOfEntries <= 0 {
		return nil, fmt.Errorf("%w: number of entries must be positive", ErrValidation)
	}

	var result *models.RaffleEntryResult

	err := withConflictRetry(ctx, config.Get().TxRetryAttempts, func(ctx context.Context) error {
		uow := s.uowFactory.Create()
		if err := uow.Begin(ctx); err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer uow.Rollback() // No-op if already committed

		raffle, err := uow.RaffleRepository().GetForUpdate(ctx, raffleID)
		if err != nil {
			return err
		}
		if raffle == nil {
			return fmt.Errorf("%w: raffle %d", ErrNotFound, raffleID)
		}
		if !raffle.OpenAt(s.now()) {
			return fmt.Errorf("%w: raffle %d", ErrRaffleNotActive, raffleID)
		}
		if raffle.TotalTicketsSold+numberOfEntries > raffle.MaxEntries {
			return fmt.Errorf("%w: raffle %d has %d tickets left, requested %d",
				ErrSoldOut, raffleID, raffle.MaxEntries-raffle.TotalTicketsSold, numberOfEntries)
		}

		entry, err := uow.RaffleEntryRepository().GetByRaffleAndUser(ctx, raffleID, discordID)
		if err != nil {
			return err
		}

		var existingTickets int64
		if entry != nil {
			existingTickets = int64(len(entry.TicketNumbers))
		}
		if raffle.MaxEntriesPerUser != 0 && existingTickets+numberOfEntries > raffle.MaxEntriesPerUser {
			return fmt.Errorf("%w: raffle %d allows %d entries per user, user has %d and requested %d",
				ErrPerUserLimitExceeded, raffleID, raffle.MaxEntriesPerUser, existingTickets, numberOfEntries)
		}

		totalCost := raffle.TicketPrice * numberOfEntries
		relatedType := models.RelatedTypeRaffle
		txn, err := ApplyBalanceChange(ctx, uow, BalanceAdjustment{
			DiscordID:   discordID,
			PointType:   models.PointTypeRedeemable,
			Delta:       -totalCost,
			Type:        models.TransactionTypeRaffleEntry,
			Description: fmt.Sprintf("Bought %d tickets for raffle %q", numberOfEntries, raffle.Title),
			Metadata: map[string]any{
				"raffle_id":    raffleID,
				"entry_count":  numberOfEntries,
				"ticket_price": raffle.TicketPrice,
			},
			RelatedID:   &raffleID,
			RelatedType: &relatedType,
		})
		if err != nil {
			return err
		}

		// Participant count bumps only on the user's first entry
		var participantsDelta int64
		if entry == nil {
			participantsDelta = 1
		}
		ok, err := uow.RaffleRepository().AddTickets(ctx, raffleID, numberOfEntries, participantsDelta)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: raffle %d", ErrSoldOut, raffleID)
		}

		// Contiguous range (sold+1 .. sold+count], never reused
		tickets := make([]int64, numberOfEntries)
		for i := range tickets {
			tickets[i] = raffle.TotalTicketsSold + int64(i) + 1
		}

		if entry == nil {
			entry = &models.RaffleEntry{
				RaffleID:      raffleID,
				DiscordID:     discordID,
				TicketNumbers: tickets,
				PurchasePrice: totalCost,
				TransactionID: &txn.ID,
			}
			if err := uow.RaffleEntryRepository().Create(ctx, entry); err != nil {
				return err
			}
		} else {
			if err := uow.RaffleEntryRepository().AppendTickets(ctx, entry.ID, tickets, totalCost); err != nil {
				return err
			}
		}

		uow.EventBus().Publish(events.RaffleEntryEvent{
			RaffleID:      raffleID,
			DiscordID:     discordID,
			TicketNumbers: tickets,
			TotalCost:     totalCost,
		})

		if err := uow.Commit(); err != nil {
			return err
		}

		result = &models.RaffleEntryResult{
			EntryID:          entry.ID,
			TicketNumbers:    tickets,
			TotalCost:        totalCost,
			UserTotalEntries: existingTickets + numberOfEntries,
			NewBalance:       txn.BalanceAfter,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// GetActiveRaffles lists raffles currently open for entries
func (s *raffleService) GetActiveRaffles(ctx context.Context) ([]*models.Raffle, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	raffles, err := uow.RaffleRepository().GetActive(ctx, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to get active raffles: %w", err)
	}

	return raffles, nil
}

// ActivateRaffle opens a draft raffle for entries
func (s *raffleService) ActivateRaffle(ctx context.Context, raffleID int64) error {
	return s.transition(ctx, raffleID, models.RaffleStatusDraft, models.RaffleStatusActive)
}

// CancelRaffle cancels a draft or active raffle. Allocated ticket numbers
// are voided, never recycled.
func (s *raffleService) CancelRaffle(ctx context.Context, raffleID int64) error {
	if err := s.transition(ctx, raffleID, models.RaffleStatusActive, models.RaffleStatusCancelled); err == nil {
		return nil
	}
	return s.transition(ctx, raffleID, models.RaffleStatusDraft, models.RaffleStatusCancelled)
}

func (s *raffleService) transition(ctx context.Context, raffleID int64, from, to models.RaffleStatus) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	raffle, err := uow.RaffleRepository().GetByID(ctx, raffleID)
	if err != nil {
		return err
	}
	if raffle == nil {
		return fmt.Errorf("%w: raffle %d", ErrNotFound, raffleID)
	}

	ok, err := uow.RaffleRepository().UpdateStatus(ctx, raffleID, from, to)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: raffle %d is %s, cannot move %s -> %s", ErrValidation, raffleID, raffle.Status, from, to)
	}

	return uow.Commit()
}

// DrawWinner selects a uniform random winning ticket from the sold pool and
// records the winner exactly once
func (s *raffleService) DrawWinner(ctx context.Context, raffleID int64) (*models.Raffle, error) {
	var raffle *models.Raffle

	err := withConflictRetry(ctx, config.Get().TxRetryAttempts, func(ctx context.Context) error {
		uow := s.uowFactory.Create()
		if err := uow.Begin(ctx); err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer uow.Rollback()

		var err error
		raffle, err = uow.RaffleRepository().GetForUpdate(ctx, raffleID)
		if err != nil {
			return err
		}
		if raffle == nil {
			return fmt.Errorf("%w: raffle %d", ErrNotFound, raffleID)
		}
		if raffle.Status != models.RaffleStatusActive {
			return fmt.Errorf("%w: raffle %d is %s", ErrRaffleNotActive, raffleID, raffle.Status)
		}
		if raffle.TotalTicketsSold == 0 {
			return fmt.Errorf("%w: raffle %d has no tickets sold", ErrValidation, raffleID)
		}

		winningTicket := s.rng.Int63n(raffle.TotalTicketsSold) + 1
		entry, err := uow.RaffleEntryRepository().FindByTicket(ctx, raffleID, winningTicket)
		if err != nil {
			return err
		}
		if entry == nil {
			return fmt.Errorf("ticket %d of raffle %d has no owner", winningTicket, raffleID)
		}

		drawnAt := s.now()
		ok, err := uow.RaffleRepository().SetWinner(ctx, raffleID, entry.DiscordID, winningTicket, drawnAt)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: raffle %d winner already drawn", ErrValidation, raffleID)
		}

		raffle.Status = models.RaffleStatusEnded
		raffle.WinnerDiscordID = &entry.DiscordID
		raffle.WinningTicket = &winningTicket
		raffle.DrawnAt = &drawnAt

		uow.EventBus().Publish(events.RaffleDrawnEvent{
			RaffleID:        raffleID,
			Title:           raffle.Title,
			WinnerDiscordID: entry.DiscordID,
			WinningTicket:   winningTicket,
		})

		return uow.Commit()
	})
	if err != nil {
		return nil, err
	}

	return raffle, nil
}
