package service

import (
	"context"
	"fmt"

	"dskdao/config"
	"dskdao/events"
	"dskdao/models"
	log "github.com/sirupsen/logrus"
)

// shopService implements the ShopService interface
type shopService struct {
	uowFactory UnitOfWorkFactory
	resolver   *LootboxResolver
}

// NewShopService creates a new shop service
func NewShopService(uowFactory UnitOfWorkFactory, resolver *LootboxResolver) ShopService {
	return &shopService{
		uowFactory: uowFactory,
		resolver:   resolver,
	}
}

// Purchase buys quantity units of an item in one atomic transaction. When
// the item is a lootbox, the box is resolved in a separate follow-up
// transaction: a follow-up failure is reported on the result but never rolls
// back the committed purchase.
func (s *shopService) Purchase(ctx context.Context, discordID, itemID, quantity int64) (*models.PurchaseResult, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive", ErrValidation)
	}

	var result *models.PurchaseResult
	var item *models.Item

	err := withConflictRetry(ctx, config.Get().TxRetryAttempts, func(ctx context.Context) error {
		uow := s.uowFactory.Create()
		if err := uow.Begin(ctx); err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer uow.Rollback() // No-op if already committed

		var err error
		item, err = uow.ItemRepository().GetByID(ctx, itemID)
		if err != nil {
			return fmt.Errorf("failed to get item: %w", err)
		}
		if item == nil {
			return fmt.Errorf("%w: item %d", ErrNotFound, itemID)
		}
		if !item.Active {
			return fmt.Errorf("%w: item %d", ErrItemInactive, itemID)
		}
		if item.Amount < quantity {
			return fmt.Errorf("%w: item %d has %d left, need %d", ErrOutOfStock, itemID, item.Amount, quantity)
		}
		if item.Category == models.ItemCategoryLootbox && quantity != 1 {
			return fmt.Errorf("%w: lootboxes are purchased one at a time", ErrValidation)
		}

		// Guarded decrement: the price is snapshotted at reservation time so
		// a concurrent price change cannot race the charge.
		unitPrice, ok, err := uow.ItemRepository().DecrementStock(ctx, itemID, quantity)
		if err != nil {
			return fmt.Errorf("failed to reserve stock: %w", err)
		}
		if !ok {
			return fmt.Errorf("%w: item %d depleted concurrently", ErrOutOfStock, itemID)
		}

		totalPrice := unitPrice * quantity
		purchase := &models.Purchase{
			ItemID:     itemID,
			DiscordID:  discordID,
			Quantity:   quantity,
			UnitPrice:  unitPrice,
			TotalPrice: totalPrice,
			Status:     models.PurchaseStatusPending,
		}
		if err := uow.PurchaseRepository().Create(ctx, purchase); err != nil {
			return err
		}

		relatedType := models.RelatedTypePurchase
		txn, err := ApplyBalanceChange(ctx, uow, BalanceAdjustment{
			DiscordID:   discordID,
			PointType:   models.PointTypeRedeemable,
			Delta:       -totalPrice,
			Type:        models.TransactionTypePurchase,
			Description: fmt.Sprintf("Purchased %dx %s", quantity, item.Name),
			Metadata: map[string]any{
				"item_id":    itemID,
				"quantity":   quantity,
				"unit_price": unitPrice,
			},
			RelatedID:   &purchase.ID,
			RelatedType: &relatedType,
		})
		if err != nil {
			return err
		}

		if err := uow.PurchaseRepository().UpdateStatus(ctx, purchase.ID, models.PurchaseStatusCompleted); err != nil {
			return err
		}
		purchase.Status = models.PurchaseStatusCompleted

		uow.EventBus().Publish(events.PurchaseEvent{
			PurchaseID: purchase.ID,
			DiscordID:  discordID,
			ItemID:     itemID,
			ItemName:   item.Name,
			Quantity:   quantity,
			TotalPrice: totalPrice,
		})

		if err := uow.Commit(); err != nil {
			return err
		}

		result = &models.PurchaseResult{
			Purchase:   purchase,
			NewBalance: txn.BalanceAfter,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Lootbox resolution runs after the purchase committed. Its failure is
	// surfaced alongside the successful purchase, never rolled back.
	if item.Category == models.ItemCategoryLootbox {
		lootboxResult, err := s.openLootbox(ctx, discordID, item, result.Purchase.ID)
		if err != nil {
			log.WithFields(log.Fields{
				"discordID":  discordID,
				"lootboxID":  item.ID,
				"purchaseID": result.Purchase.ID,
				"error":      err,
			}).Error("Lootbox resolution failed after committed purchase")
			result.LootboxError = err
		} else {
			result.LootboxResult = lootboxResult
		}
	}

	return result, nil
}

// openLootbox resolves one lootbox and grants its reward in its own
// transaction
func (s *shopService) openLootbox(ctx context.Context, discordID int64, lootbox *models.Item, purchaseID int64) (*models.LootboxResult, error) {
	var result *models.LootboxResult

	err := withConflictRetry(ctx, config.Get().TxRetryAttempts, func(ctx context.Context) error {
		uow := s.uowFactory.Create()
		if err := uow.Begin(ctx); err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer uow.Rollback()

		table, err := uow.ItemRepository().GetLootboxTable(ctx, lootbox.ID)
		if err != nil {
			return err
		}

		reward, err := s.resolver.Resolve(table)
		if err != nil {
			return err
		}

		itemName := ""

		if reward.ItemID != nil {
			// Item reward: take the won item out of stock and record the
			// grant as a zero-price completed purchase plus a zero-delta
			// ledger entry.
			wonItem, err := uow.ItemRepository().GetByID(ctx, *reward.ItemID)
			if err != nil {
				return fmt.Errorf("failed to get reward item: %w", err)
			}
			if wonItem == nil {
				return fmt.Errorf("%w: reward item %d", ErrNotFound, *reward.ItemID)
			}
			itemName = wonItem.Name

			if _, ok, err := uow.ItemRepository().DecrementStock(ctx, *reward.ItemID, reward.Quantity); err != nil {
				return fmt.Errorf("failed to reserve reward stock: %w", err)
			} else if !ok {
				return fmt.Errorf("%w: reward item %d unavailable", ErrOutOfStock, *reward.ItemID)
			}

			grant := &models.Purchase{
				ItemID:    *reward.ItemID,
				DiscordID: discordID,
				Quantity:  reward.Quantity,
				Status:    models.PurchaseStatusPending,
			}
			if err := uow.PurchaseRepository().Create(ctx, grant); err != nil {
				return err
			}
			if err := uow.PurchaseRepository().UpdateStatus(ctx, grant.ID, models.PurchaseStatusCompleted); err != nil {
				return err
			}

			user, err := uow.UserRepository().GetForUpdate(ctx, discordID)
			if err != nil {
				return fmt.Errorf("failed to lock user: %w", err)
			}
			if user == nil {
				return fmt.Errorf("%w: user %d", ErrNotFound, discordID)
			}

			// The grant entry relates to the won item; the originating
			// purchase stays reachable through the metadata.
			relatedItem := *reward.ItemID
			relatedType := models.RelatedTypeItem
			txn := &models.Transaction{
				DiscordID:     discordID,
				PointType:     models.PointTypeRedeemable,
				ChangeAmount:  0,
				BalanceBefore: user.RedeemableBalance,
				BalanceAfter:  user.RedeemableBalance,
				Type:          models.TransactionTypeLootboxOpen,
				Description:   fmt.Sprintf("Opened %s: won %dx %s", lootbox.Name, reward.Quantity, wonItem.Name),
				Metadata: map[string]any{
					"lootbox_id":  lootbox.ID,
					"purchase_id": purchaseID,
					"quantity":    reward.Quantity,
				},
				RelatedID:   &relatedItem,
				RelatedType: &relatedType,
			}
			if err := uow.TransactionRepository().Record(ctx, txn); err != nil {
				return err
			}
		} else {
			// Point reward: credit the balance through the single entry point
			relatedType := models.RelatedTypePurchase
			_, err := ApplyBalanceChange(ctx, uow, BalanceAdjustment{
				DiscordID:   discordID,
				PointType:   models.PointTypeRedeemable,
				Delta:       reward.Points,
				Type:        models.TransactionTypeLootboxOpen,
				Description: fmt.Sprintf("Opened %s: won %d points", lootbox.Name, reward.Points),
				Metadata: map[string]any{
					"lootbox_id": lootbox.ID,
					"points":     reward.Points,
				},
				RelatedID:   &purchaseID,
				RelatedType: &relatedType,
			})
			if err != nil {
				return err
			}
		}

		uow.EventBus().Publish(events.LootboxOpenedEvent{
			DiscordID: discordID,
			LootboxID: lootbox.ID,
			ItemID:    reward.ItemID,
			ItemName:  itemName,
			Points:    reward.Points,
			Quantity:  reward.Quantity,
		})

		if err := uow.Commit(); err != nil {
			return err
		}

		result = &models.LootboxResult{
			ItemID:   reward.ItemID,
			ItemName: itemName,
			Points:   reward.Points,
			Quantity: reward.Quantity,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// GetActiveItems lists purchasable items
func (s *shopService) GetActiveItems(ctx context.Context) ([]*models.Item, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	items, err := uow.ItemRepository().GetActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get active items: %w", err)
	}

	return items, nil
}

// GetPurchaseHistory returns a user's purchases newest-first
func (s *shopService) GetPurchaseHistory(ctx context.Context, discordID int64, limit int) ([]*models.Purchase, error) {
	if limit < 1 || limit > 100 {
		return nil, fmt.Errorf("%w: limit must be between 1 and 100", ErrValidation)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	purchases, err := uow.PurchaseRepository().GetByUser(ctx, discordID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get purchases for user %d: %w", discordID, err)
	}

	return purchases, nil
}
