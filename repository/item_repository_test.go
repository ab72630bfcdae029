package repository

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dskdao/models"
	"dskdao/repository/testutil"
)

func TestItemRepository_GetByID(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewItemRepository(testDB.DB)
	ctx := context.Background()

	t.Run("item not found", func(t *testing.T) {
		item, err := repo.GetByID(ctx, 999999)
		require.NoError(t, err)
		assert.Nil(t, item)
	})

	t.Run("item found", func(t *testing.T) {
		id := testutil.CreateTestItem(t, testDB.DB, "Sticker Pack", 200, 5, models.ItemCategoryGeneral)

		item, err := repo.GetByID(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, item)

		assert.Equal(t, "Sticker Pack", item.Name)
		assert.Equal(t, int64(200), item.Price)
		assert.Equal(t, int64(5), item.Amount)
		assert.True(t, item.Active)
		assert.Equal(t, models.ItemCategoryGeneral, item.Category)
	})
}

func TestItemRepository_GetActive(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewItemRepository(testDB.DB)
	ctx := context.Background()

	inStock := testutil.CreateTestItem(t, testDB.DB, "In Stock", 100, 3, models.ItemCategoryGeneral)
	outOfStock := testutil.CreateTestItem(t, testDB.DB, "Out of Stock", 100, 0, models.ItemCategoryGeneral)
	inactive := testutil.CreateTestItem(t, testDB.DB, "Retired", 100, 3, models.ItemCategoryGeneral)
	_, err := testDB.DB.Exec(ctx, `UPDATE items SET active = false WHERE id = $1`, inactive)
	require.NoError(t, err)

	items, err := repo.GetActive(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, inStock, items[0].ID)
	for _, item := range items {
		assert.NotEqual(t, outOfStock, item.ID)
		assert.NotEqual(t, inactive, item.ID)
	}
}

func TestItemRepository_DecrementStock(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewItemRepository(testDB.DB)
	ctx := context.Background()

	t.Run("decrements and snapshots price", func(t *testing.T) {
		id := testutil.CreateTestItem(t, testDB.DB, "Consumable", 150, 5, models.ItemCategoryGeneral)

		price, ok, err := repo.DecrementStock(ctx, id, 2)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, int64(150), price)

		item, err := repo.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, int64(3), item.Amount)
	})

	t.Run("insufficient stock leaves row untouched", func(t *testing.T) {
		id := testutil.CreateTestItem(t, testDB.DB, "Scarce", 150, 2, models.ItemCategoryGeneral)

		_, ok, err := repo.DecrementStock(ctx, id, 3)
		require.NoError(t, err)
		assert.False(t, ok)

		item, err := repo.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, int64(2), item.Amount)
	})

	t.Run("exact remaining stock succeeds", func(t *testing.T) {
		id := testutil.CreateTestItem(t, testDB.DB, "Last Ones", 150, 2, models.ItemCategoryGeneral)

		_, ok, err := repo.DecrementStock(ctx, id, 2)
		require.NoError(t, err)
		assert.True(t, ok)

		item, err := repo.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, int64(0), item.Amount)
	})

	t.Run("inactive item is not sellable", func(t *testing.T) {
		id := testutil.CreateTestItem(t, testDB.DB, "Retired", 150, 5, models.ItemCategoryGeneral)
		_, err := testDB.DB.Exec(ctx, `UPDATE items SET active = false WHERE id = $1`, id)
		require.NoError(t, err)

		_, ok, err := repo.DecrementStock(ctx, id, 1)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("non-positive quantity rejected", func(t *testing.T) {
		id := testutil.CreateTestItem(t, testDB.DB, "Whatever", 150, 5, models.ItemCategoryGeneral)

		_, _, err := repo.DecrementStock(ctx, id, 0)
		assert.Error(t, err)
	})
}

func TestItemRepository_DecrementStock_Concurrent(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewItemRepository(testDB.DB)
	ctx := context.Background()

	const buyers = 10
	id := testutil.CreateTestItem(t, testDB.DB, "Hot Drop", 150, 3, models.ItemCategoryGeneral)

	results := make(chan bool, buyers)
	var wg sync.WaitGroup
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok, err := repo.DecrementStock(ctx, id, 1)
			assert.NoError(t, err)
			results <- ok
		}()
	}
	wg.Wait()
	close(results)

	// Exactly stock-many buyers win, the rest hit the guard
	successes := 0
	for ok := range results {
		if ok {
			successes++
		}
	}
	assert.Equal(t, 3, successes)

	item, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(0), item.Amount)
}

func TestItemRepository_GetLootboxTable(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewItemRepository(testDB.DB)
	ctx := context.Background()

	t.Run("loads entries in insertion order", func(t *testing.T) {
		lootboxID := testutil.CreateTestItem(t, testDB.DB, "Mystery Box", 500, 10, models.ItemCategoryLootbox)
		prizeID := testutil.CreateTestItem(t, testDB.DB, "Rare Prize", 0, 100, models.ItemCategoryCollectible)

		testutil.CreateTestLootboxReward(t, testDB.DB, lootboxID, nil, 50, 1, 70)
		testutil.CreateTestLootboxReward(t, testDB.DB, lootboxID, &prizeID, 0, 1, 30)

		table, err := repo.GetLootboxTable(ctx, lootboxID)
		require.NoError(t, err)
		require.Len(t, table.Entries, 2)
		assert.Equal(t, int64(100), table.TotalWeight)

		entries := table.Entries
		assert.Nil(t, entries[0].ItemID)
		assert.Equal(t, int64(50), entries[0].Points)
		require.NotNil(t, entries[1].ItemID)
		assert.Equal(t, prizeID, *entries[1].ItemID)
	})

	t.Run("empty table", func(t *testing.T) {
		lootboxID := testutil.CreateTestItem(t, testDB.DB, "Empty Box", 500, 10, models.ItemCategoryLootbox)

		table, err := repo.GetLootboxTable(ctx, lootboxID)
		require.NoError(t, err)
		assert.Empty(t, table.Entries)
	})
}
