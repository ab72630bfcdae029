package service

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"dskdao/models"
)

func newShopMocks(t *testing.T) (*MockUnitOfWork, *MockUnitOfWorkFactory, *MockUserRepository, *MockTransactionRepository, *MockItemRepository, *MockPurchaseRepository) {
	t.Helper()

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockUserRepo := new(MockUserRepository)
	mockTxnRepo := new(MockTransactionRepository)
	mockItemRepo := new(MockItemRepository)
	mockPurchaseRepo := new(MockPurchaseRepository)

	mockUoW.SetRepositories(mockUserRepo, mockTxnRepo, mockItemRepo, mockPurchaseRepo, nil, nil, nil)
	mockFactory.On("Create").Return(mockUoW)

	return mockUoW, mockFactory, mockUserRepo, mockTxnRepo, mockItemRepo, mockPurchaseRepo
}

func TestShopService_Purchase(t *testing.T) {
	ctx := context.Background()
	mockUoW, mockFactory, mockUserRepo, mockTxnRepo, mockItemRepo, mockPurchaseRepo := newShopMocks(t)

	item := &models.Item{
		ID:       10,
		Name:     "Sticker Pack",
		Price:    200,
		Amount:   3,
		Active:   true,
		Category: models.ItemCategoryGeneral,
	}
	user := &models.User{
		DiscordID:         123456,
		RedeemableBalance: 500,
	}

	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockItemRepo.On("GetByID", ctx, int64(10)).Return(item, nil)
	mockItemRepo.On("DecrementStock", ctx, int64(10), int64(1)).Return(int64(200), true, nil)
	mockPurchaseRepo.On("Create", ctx, mock.MatchedBy(func(p *models.Purchase) bool {
		return p.ItemID == 10 && p.Quantity == 1 && p.TotalPrice == 200 && p.Status == models.PurchaseStatusPending
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*models.Purchase).ID = 77
	}).Return(nil)
	mockUserRepo.On("GetForUpdate", ctx, int64(123456)).Return(user, nil)
	mockUserRepo.On("SetBalance", ctx, int64(123456), models.PointTypeRedeemable, int64(300), int64(0)).Return(nil)
	mockTxnRepo.On("Record", ctx, mock.MatchedBy(func(txn *models.Transaction) bool {
		return txn.ChangeAmount == -200 &&
			txn.BalanceBefore == 500 &&
			txn.BalanceAfter == 300 &&
			txn.Type == models.TransactionTypePurchase &&
			txn.RelatedID != nil && *txn.RelatedID == 77
	})).Return(nil)
	mockPurchaseRepo.On("UpdateStatus", ctx, int64(77), models.PurchaseStatusCompleted).Return(nil)

	svc := NewShopService(mockFactory, NewLootboxResolver(rand.NewSource(1)))
	result, err := svc.Purchase(ctx, 123456, 10, 1)

	require.NoError(t, err)
	assert.Equal(t, int64(300), result.NewBalance)
	assert.Equal(t, models.PurchaseStatusCompleted, result.Purchase.Status)
	assert.Nil(t, result.LootboxResult)
	assert.NoError(t, result.LootboxError)

	mockItemRepo.AssertExpectations(t)
	mockPurchaseRepo.AssertExpectations(t)
	mockUserRepo.AssertExpectations(t)
	mockTxnRepo.AssertExpectations(t)
}

func TestShopService_Purchase_InvalidQuantity(t *testing.T) {
	_, mockFactory, _, _, _, _ := newShopMocks(t)
	svc := NewShopService(mockFactory, NewLootboxResolver(rand.NewSource(1)))

	_, err := svc.Purchase(context.Background(), 123456, 10, 0)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Purchase(context.Background(), 123456, 10, -2)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestShopService_Purchase_ItemNotFound(t *testing.T) {
	ctx := context.Background()
	mockUoW, mockFactory, _, _, mockItemRepo, _ := newShopMocks(t)

	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)
	mockItemRepo.On("GetByID", ctx, int64(99)).Return(nil, nil)

	svc := NewShopService(mockFactory, NewLootboxResolver(rand.NewSource(1)))
	_, err := svc.Purchase(ctx, 123456, 99, 1)

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestShopService_Purchase_InactiveItem(t *testing.T) {
	ctx := context.Background()
	mockUoW, mockFactory, _, _, mockItemRepo, _ := newShopMocks(t)

	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)
	mockItemRepo.On("GetByID", ctx, int64(10)).Return(&models.Item{
		ID:     10,
		Amount: 5,
		Active: false,
	}, nil)

	svc := NewShopService(mockFactory, NewLootboxResolver(rand.NewSource(1)))
	_, err := svc.Purchase(ctx, 123456, 10, 1)

	assert.ErrorIs(t, err, ErrItemInactive)
}

func TestShopService_Purchase_OutOfStock(t *testing.T) {
	ctx := context.Background()
	mockUoW, mockFactory, _, _, mockItemRepo, _ := newShopMocks(t)

	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)
	mockItemRepo.On("GetByID", ctx, int64(10)).Return(&models.Item{
		ID:     10,
		Amount: 2,
		Active: true,
	}, nil)

	svc := NewShopService(mockFactory, NewLootboxResolver(rand.NewSource(1)))
	_, err := svc.Purchase(ctx, 123456, 10, 3)

	assert.ErrorIs(t, err, ErrOutOfStock)
	mockItemRepo.AssertNotCalled(t, "DecrementStock")
}

func TestShopService_Purchase_ConcurrentDepletion(t *testing.T) {
	ctx := context.Background()
	mockUoW, mockFactory, _, _, mockItemRepo, _ := newShopMocks(t)

	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)
	mockItemRepo.On("GetByID", ctx, int64(10)).Return(&models.Item{
		ID:     10,
		Amount: 1,
		Active: true,
	}, nil)
	// The guarded decrement loses the race
	mockItemRepo.On("DecrementStock", ctx, int64(10), int64(1)).Return(int64(0), false, nil)

	svc := NewShopService(mockFactory, NewLootboxResolver(rand.NewSource(1)))
	_, err := svc.Purchase(ctx, 123456, 10, 1)

	assert.ErrorIs(t, err, ErrOutOfStock)
}

func TestShopService_Purchase_LootboxQuantityLimit(t *testing.T) {
	ctx := context.Background()
	mockUoW, mockFactory, _, _, mockItemRepo, _ := newShopMocks(t)

	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)
	mockItemRepo.On("GetByID", ctx, int64(20)).Return(&models.Item{
		ID:       20,
		Amount:   10,
		Active:   true,
		Category: models.ItemCategoryLootbox,
	}, nil)

	svc := NewShopService(mockFactory, NewLootboxResolver(rand.NewSource(1)))
	_, err := svc.Purchase(ctx, 123456, 20, 2)

	assert.ErrorIs(t, err, ErrValidation)
}

func TestShopService_Purchase_InsufficientBalanceRollsBack(t *testing.T) {
	ctx := context.Background()
	mockUoW, mockFactory, mockUserRepo, _, mockItemRepo, mockPurchaseRepo := newShopMocks(t)

	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)
	mockItemRepo.On("GetByID", ctx, int64(10)).Return(&models.Item{
		ID:     10,
		Name:   "Sticker Pack",
		Price:  200,
		Amount: 3,
		Active: true,
	}, nil)
	mockItemRepo.On("DecrementStock", ctx, int64(10), int64(1)).Return(int64(200), true, nil)
	mockPurchaseRepo.On("Create", ctx, mock.Anything).Return(nil)
	mockUserRepo.On("GetForUpdate", ctx, int64(123456)).Return(&models.User{
		DiscordID:         123456,
		RedeemableBalance: 150,
	}, nil)

	svc := NewShopService(mockFactory, NewLootboxResolver(rand.NewSource(1)))
	_, err := svc.Purchase(ctx, 123456, 10, 1)

	assert.ErrorIs(t, err, ErrInsufficientBalance)
	mockUoW.AssertNotCalled(t, "Commit")
	mockPurchaseRepo.AssertNotCalled(t, "UpdateStatus")
}

func TestShopService_Purchase_LootboxPointReward(t *testing.T) {
	ctx := context.Background()
	mockUoW, mockFactory, mockUserRepo, mockTxnRepo, mockItemRepo, mockPurchaseRepo := newShopMocks(t)

	lootbox := &models.Item{
		ID:       20,
		Name:     "Mystery Box",
		Price:    100,
		Amount:   5,
		Active:   true,
		Category: models.ItemCategoryLootbox,
	}
	table, err := models.NewLootboxTable(20, []models.LootboxReward{
		{ID: 1, LootboxID: 20, Points: 50, Quantity: 1, Weight: 1},
	})
	require.NoError(t, err)

	// The purchase and the lootbox follow-up each run their own unit of
	// work; both resolve onto the same mocks here.
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockItemRepo.On("GetByID", ctx, int64(20)).Return(lootbox, nil)
	mockItemRepo.On("DecrementStock", ctx, int64(20), int64(1)).Return(int64(100), true, nil)
	mockItemRepo.On("GetLootboxTable", ctx, int64(20)).Return(table, nil)
	mockPurchaseRepo.On("Create", ctx, mock.Anything).Run(func(args mock.Arguments) {
		args.Get(1).(*models.Purchase).ID = 88
	}).Return(nil)
	mockPurchaseRepo.On("UpdateStatus", ctx, int64(88), models.PurchaseStatusCompleted).Return(nil)

	// First lock debits the box price, second credits the point reward
	mockUserRepo.On("GetForUpdate", ctx, int64(123456)).Return(&models.User{
		DiscordID:         123456,
		RedeemableBalance: 500,
	}, nil).Once()
	mockUserRepo.On("GetForUpdate", ctx, int64(123456)).Return(&models.User{
		DiscordID:         123456,
		RedeemableBalance: 400,
	}, nil).Once()
	mockUserRepo.On("SetBalance", ctx, int64(123456), models.PointTypeRedeemable, int64(400), int64(0)).Return(nil)
	mockUserRepo.On("SetBalance", ctx, int64(123456), models.PointTypeRedeemable, int64(450), int64(50)).Return(nil)
	mockTxnRepo.On("Record", ctx, mock.Anything).Return(nil)

	svc := NewShopService(mockFactory, NewLootboxResolver(rand.NewSource(1)))
	result, err := svc.Purchase(ctx, 123456, 20, 1)

	require.NoError(t, err)
	require.NotNil(t, result.LootboxResult)
	assert.Equal(t, int64(50), result.LootboxResult.Points)
	assert.Nil(t, result.LootboxResult.ItemID)
	assert.NoError(t, result.LootboxError)
	mockUserRepo.AssertExpectations(t)
}

func TestShopService_Purchase_LootboxItemReward(t *testing.T) {
	ctx := context.Background()
	mockUoW, mockFactory, mockUserRepo, mockTxnRepo, mockItemRepo, mockPurchaseRepo := newShopMocks(t)

	lootbox := &models.Item{
		ID:       20,
		Name:     "Mystery Box",
		Price:    100,
		Amount:   5,
		Active:   true,
		Category: models.ItemCategoryLootbox,
	}
	wonItemID := int64(30)
	table, err := models.NewLootboxTable(20, []models.LootboxReward{
		{ID: 1, LootboxID: 20, ItemID: &wonItemID, Quantity: 1, Weight: 1},
	})
	require.NoError(t, err)

	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockItemRepo.On("GetByID", ctx, int64(20)).Return(lootbox, nil)
	mockItemRepo.On("GetByID", ctx, int64(30)).Return(&models.Item{
		ID:     30,
		Name:   "Plush Mascot",
		Amount: 2,
		Active: true,
	}, nil)
	mockItemRepo.On("DecrementStock", ctx, int64(20), int64(1)).Return(int64(100), true, nil)
	mockItemRepo.On("DecrementStock", ctx, int64(30), int64(1)).Return(int64(0), true, nil)
	mockItemRepo.On("GetLootboxTable", ctx, int64(20)).Return(table, nil)

	// The box purchase and the item grant are separate purchase rows
	mockPurchaseRepo.On("Create", ctx, mock.MatchedBy(func(p *models.Purchase) bool {
		return p.ItemID == 20
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*models.Purchase).ID = 88
	}).Return(nil)
	mockPurchaseRepo.On("Create", ctx, mock.MatchedBy(func(p *models.Purchase) bool {
		return p.ItemID == 30 && p.TotalPrice == 0 && p.Quantity == 1
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*models.Purchase).ID = 89
	}).Return(nil)
	mockPurchaseRepo.On("UpdateStatus", ctx, int64(88), models.PurchaseStatusCompleted).Return(nil)
	mockPurchaseRepo.On("UpdateStatus", ctx, int64(89), models.PurchaseStatusCompleted).Return(nil)

	mockUserRepo.On("GetForUpdate", ctx, int64(123456)).Return(&models.User{
		DiscordID:         123456,
		RedeemableBalance: 500,
	}, nil).Once()
	mockUserRepo.On("GetForUpdate", ctx, int64(123456)).Return(&models.User{
		DiscordID:         123456,
		RedeemableBalance: 400,
	}, nil).Once()
	mockUserRepo.On("SetBalance", ctx, int64(123456), models.PointTypeRedeemable, int64(400), int64(0)).Return(nil)

	mockTxnRepo.On("Record", ctx, mock.MatchedBy(func(txn *models.Transaction) bool {
		return txn.Type == models.TransactionTypePurchase
	})).Return(nil)
	// The grant entry is zero-delta and relates to the won item
	mockTxnRepo.On("Record", ctx, mock.MatchedBy(func(txn *models.Transaction) bool {
		return txn.Type == models.TransactionTypeLootboxOpen &&
			txn.ChangeAmount == 0 &&
			txn.BalanceBefore == 400 &&
			txn.BalanceAfter == 400 &&
			txn.RelatedID != nil && *txn.RelatedID == 30 &&
			txn.RelatedType != nil && *txn.RelatedType == models.RelatedTypeItem &&
			txn.Metadata["purchase_id"] == int64(88)
	})).Return(nil)

	svc := NewShopService(mockFactory, NewLootboxResolver(rand.NewSource(1)))
	result, err := svc.Purchase(ctx, 123456, 20, 1)

	require.NoError(t, err)
	require.NotNil(t, result.LootboxResult)
	require.NotNil(t, result.LootboxResult.ItemID)
	assert.Equal(t, int64(30), *result.LootboxResult.ItemID)
	assert.Equal(t, "Plush Mascot", result.LootboxResult.ItemName)
	assert.Zero(t, result.LootboxResult.Points)
	mockItemRepo.AssertExpectations(t)
	mockPurchaseRepo.AssertExpectations(t)
	mockTxnRepo.AssertExpectations(t)
}

func TestShopService_Purchase_LootboxFailureIsPartialSuccess(t *testing.T) {
	ctx := context.Background()
	mockUoW, mockFactory, mockUserRepo, mockTxnRepo, mockItemRepo, mockPurchaseRepo := newShopMocks(t)

	lootbox := &models.Item{
		ID:       20,
		Name:     "Mystery Box",
		Price:    100,
		Amount:   5,
		Active:   true,
		Category: models.ItemCategoryLootbox,
	}

	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockItemRepo.On("GetByID", ctx, int64(20)).Return(lootbox, nil)
	mockItemRepo.On("DecrementStock", ctx, int64(20), int64(1)).Return(int64(100), true, nil)
	mockItemRepo.On("GetLootboxTable", ctx, int64(20)).Return(nil, errors.New("reward table corrupted"))
	mockPurchaseRepo.On("Create", ctx, mock.Anything).Run(func(args mock.Arguments) {
		args.Get(1).(*models.Purchase).ID = 88
	}).Return(nil)
	mockPurchaseRepo.On("UpdateStatus", ctx, int64(88), models.PurchaseStatusCompleted).Return(nil)
	mockUserRepo.On("GetForUpdate", ctx, int64(123456)).Return(&models.User{
		DiscordID:         123456,
		RedeemableBalance: 500,
	}, nil)
	mockUserRepo.On("SetBalance", ctx, int64(123456), models.PointTypeRedeemable, int64(400), int64(0)).Return(nil)
	mockTxnRepo.On("Record", ctx, mock.Anything).Return(nil)

	svc := NewShopService(mockFactory, NewLootboxResolver(rand.NewSource(1)))
	result, err := svc.Purchase(ctx, 123456, 20, 1)

	// The committed purchase survives; the follow-up failure is reported
	require.NoError(t, err)
	assert.Equal(t, models.PurchaseStatusCompleted, result.Purchase.Status)
	assert.Error(t, result.LootboxError)
	assert.Nil(t, result.LootboxResult)
}

func TestShopService_GetActiveItems(t *testing.T) {
	ctx := context.Background()
	mockUoW, mockFactory, _, _, mockItemRepo, _ := newShopMocks(t)

	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)
	mockItemRepo.On("GetActive", ctx).Return([]*models.Item{
		{ID: 1, Name: "Sticker Pack"},
		{ID: 2, Name: "Mystery Box"},
	}, nil)

	svc := NewShopService(mockFactory, NewLootboxResolver(rand.NewSource(1)))
	items, err := svc.GetActiveItems(ctx)

	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestShopService_GetPurchaseHistory(t *testing.T) {
	ctx := context.Background()
	mockUoW, mockFactory, _, _, _, mockPurchaseRepo := newShopMocks(t)

	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)
	mockPurchaseRepo.On("GetByUser", ctx, int64(123456), 20).Return([]*models.Purchase{
		{ID: 2, ItemID: 10, DiscordID: 123456},
		{ID: 1, ItemID: 11, DiscordID: 123456},
	}, nil)

	svc := NewShopService(mockFactory, NewLootboxResolver(rand.NewSource(1)))
	purchases, err := svc.GetPurchaseHistory(ctx, 123456, 20)

	require.NoError(t, err)
	require.Len(t, purchases, 2)
	assert.Equal(t, int64(2), purchases[0].ID)
	mockPurchaseRepo.AssertExpectations(t)
}

func TestShopService_GetPurchaseHistory_LimitValidation(t *testing.T) {
	_, mockFactory, _, _, _, _ := newShopMocks(t)
	svc := NewShopService(mockFactory, NewLootboxResolver(rand.NewSource(1)))

	_, err := svc.GetPurchaseHistory(context.Background(), 123456, 0)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.GetPurchaseHistory(context.Background(), 123456, 101)
	assert.ErrorIs(t, err, ErrValidation)
}
