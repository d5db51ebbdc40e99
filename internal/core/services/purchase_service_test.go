// internal/core/services/purchase_service_test.go
package services_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/satyam-tomar/vending-machine-api/internal/adapters/memorystore"
	"github.com/satyam-tomar/vending-machine-api/internal/core/domain"
	"github.com/satyam-tomar/vending-machine-api/internal/core/ports"
	"github.com/satyam-tomar/vending-machine-api/internal/core/services"
	"github.com/satyam-tomar/vending-machine-api/test/helpers"
	"github.com/satyam-tomar/vending-machine-api/test/mocks"
)

func newPurchaseService(store ports.InventoryStore, tasks ports.TaskEnqueuer, opts services.Options) *services.PurchaseService {
	return services.NewPurchaseService(store, nil, tasks, opts, helpers.TestLogger())
}

func TestPurchaseService_Purchase(t *testing.T) {
	ctx := context.Background()

	t.Run("vends_one_unit_and_returns_change", func(t *testing.T) {
		store := memorystore.New(helpers.TestLogger())
		slot := helpers.CreateTestSlot()
		helpers.SeedSlot(t, store, slot)
		item := helpers.CreateTestItem(slot.ID, func(i *domain.Item) {
			i.Price = 137
			i.Quantity = 3
		})
		helpers.SeedItem(t, store, item)

		service := newPurchaseService(store, nil, testOptions())
		receipt, err := service.Purchase(ctx, item.ID, 200)
		require.NoError(t, err)

		assert.Equal(t, item.Name, receipt.Item)
		assert.Equal(t, int64(137), receipt.Price)
		assert.Equal(t, int64(200), receipt.CashInserted)
		assert.Equal(t, int64(63), receipt.ChangeReturned)
		assert.Equal(t, int64(1), receipt.Change[50])
		assert.Equal(t, int64(1), receipt.Change[10])
		assert.Equal(t, int64(3), receipt.Change[1])
		assert.Equal(t, 2, receipt.RemainingQuantity)
		assert.Equal(t, "Purchase successful", receipt.Message)

		stored, err := store.GetItem(ctx, item.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, stored.Quantity)

		storedSlot, err := store.GetSlot(ctx, slot.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, storedSlot.CurrentItemCount)
	})

	t.Run("exact_cash_returns_no_change", func(t *testing.T) {
		store := memorystore.New(helpers.TestLogger())
		slot := helpers.CreateTestSlot()
		helpers.SeedSlot(t, store, slot)
		item := helpers.CreateTestItem(slot.ID)
		helpers.SeedItem(t, store, item)

		service := newPurchaseService(store, nil, testOptions())
		receipt, err := service.Purchase(ctx, item.ID, item.Price)
		require.NoError(t, err)
		assert.Equal(t, int64(0), receipt.ChangeReturned)
		assert.Empty(t, receipt.Change)
	})

	t.Run("rejects_insufficient_cash_without_stock_change", func(t *testing.T) {
		store := memorystore.New(helpers.TestLogger())
		slot := helpers.CreateTestSlot()
		helpers.SeedSlot(t, store, slot)
		item := helpers.CreateTestItem(slot.ID, func(i *domain.Item) { i.Price = 150 })
		helpers.SeedItem(t, store, item)

		service := newPurchaseService(store, nil, testOptions())
		_, err := service.Purchase(ctx, item.ID, 100)

		var cashErr *domain.InsufficientCashError
		require.ErrorAs(t, err, &cashErr)
		assert.Equal(t, int64(150), cashErr.Required)
		assert.Equal(t, int64(100), cashErr.Inserted)

		stored, err := store.GetItem(ctx, item.ID)
		require.NoError(t, err)
		assert.Equal(t, item.Quantity, stored.Quantity)
	})

	t.Run("rejects_unknown_item", func(t *testing.T) {
		store := memorystore.New(helpers.TestLogger())
		service := newPurchaseService(store, nil, testOptions())

		_, err := service.Purchase(ctx, uuid.New(), 100)
		require.ErrorIs(t, err, domain.ErrItemNotFound)
	})

	t.Run("rejects_sold_out_item", func(t *testing.T) {
		store := memorystore.New(helpers.TestLogger())
		slot := helpers.CreateTestSlot()
		helpers.SeedSlot(t, store, slot)
		item := helpers.CreateTestItem(slot.ID, func(i *domain.Item) { i.Quantity = 0 })
		helpers.SeedItem(t, store, item)

		service := newPurchaseService(store, nil, testOptions())
		_, err := service.Purchase(ctx, item.ID, 200)
		require.ErrorIs(t, err, domain.ErrOutOfStock)
	})
}

func TestPurchaseService_Purchase_RetainsEmptyItem(t *testing.T) {
	// The last unit sold must leave a zero-quantity row behind so later
	// buyers see out-of-stock rather than a vanished item.
	ctx := context.Background()
	store := memorystore.New(helpers.TestLogger())
	slot := helpers.CreateTestSlot()
	helpers.SeedSlot(t, store, slot)
	item := helpers.CreateTestItem(slot.ID, func(i *domain.Item) { i.Quantity = 1 })
	helpers.SeedItem(t, store, item)

	service := newPurchaseService(store, nil, testOptions())
	receipt, err := service.Purchase(ctx, item.ID, item.Price)
	require.NoError(t, err)
	assert.Equal(t, 0, receipt.RemainingQuantity)

	stored, err := store.GetItem(ctx, item.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, 0, stored.Quantity)

	_, err = service.Purchase(ctx, item.ID, item.Price)
	require.ErrorIs(t, err, domain.ErrOutOfStock)
}

func TestPurchaseService_Purchase_EnqueuesRestockAlertOnSellout(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ctx := context.Background()
	store := memorystore.New(helpers.TestLogger())
	slot := helpers.CreateTestSlot()
	helpers.SeedSlot(t, store, slot)
	item := helpers.CreateTestItem(slot.ID, func(i *domain.Item) { i.Quantity = 1 })
	helpers.SeedItem(t, store, item)

	mockTasks := mocks.NewMockTaskEnqueuer(ctrl)
	mockTasks.EXPECT().
		EnqueueRestockAlert(gomock.Any(), ports.RestockAlertPayload{
			SlotID:   slot.ID.String(),
			SlotCode: slot.Code,
			ItemID:   item.ID.String(),
			ItemName: item.Name,
		}).
		Return(nil)
	mockTasks.EXPECT().EnqueueReportRefresh(gomock.Any()).Return(nil)

	service := newPurchaseService(store, mockTasks, testOptions())
	_, err := service.Purchase(ctx, item.ID, item.Price)
	require.NoError(t, err)
}

func TestPurchaseService_Purchase_NoAlertWhileStockRemains(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ctx := context.Background()
	store := memorystore.New(helpers.TestLogger())
	slot := helpers.CreateTestSlot()
	helpers.SeedSlot(t, store, slot)
	item := helpers.CreateTestItem(slot.ID, func(i *domain.Item) { i.Quantity = 2 })
	helpers.SeedItem(t, store, item)

	mockTasks := mocks.NewMockTaskEnqueuer(ctrl)
	mockTasks.EXPECT().EnqueueReportRefresh(gomock.Any()).Return(nil)

	service := newPurchaseService(store, mockTasks, testOptions())
	_, err := service.Purchase(ctx, item.ID, item.Price)
	require.NoError(t, err)
}

func TestPurchaseService_ConcurrentPurchases_LastUnit(t *testing.T) {
	ctx := context.Background()
	store := memorystore.New(helpers.TestLogger())
	slot := helpers.CreateTestSlot()
	helpers.SeedSlot(t, store, slot)
	item := helpers.CreateTestItem(slot.ID, func(i *domain.Item) { i.Quantity = 1 })
	helpers.SeedItem(t, store, item)

	opts := testOptions()
	opts.LockDelay = 5 * time.Millisecond
	service := newPurchaseService(store, nil, opts)

	const buyers = 8
	errs := make([]error, buyers)
	var wg sync.WaitGroup
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = service.Purchase(ctx, item.ID, item.Price)
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
			continue
		}
		require.ErrorIs(t, err, domain.ErrOutOfStock)
	}
	assert.Equal(t, 1, successes)

	stored, err := store.GetItem(ctx, item.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, 0, stored.Quantity)

	storedSlot, err := store.GetSlot(ctx, slot.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, storedSlot.CurrentItemCount)
}

func TestPurchaseService_ConcurrentPurchases_NeverOversell(t *testing.T) {
	ctx := context.Background()
	store := memorystore.New(helpers.TestLogger())
	slot := helpers.CreateTestSlot()
	helpers.SeedSlot(t, store, slot)
	item := helpers.CreateTestItem(slot.ID, func(i *domain.Item) { i.Quantity = 3 })
	helpers.SeedItem(t, store, item)

	opts := testOptions()
	opts.LockDelay = 2 * time.Millisecond
	service := newPurchaseService(store, nil, opts)

	const buyers = 6
	errs := make([]error, buyers)
	var wg sync.WaitGroup
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = service.Purchase(ctx, item.ID, item.Price)
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
			continue
		}
		require.ErrorIs(t, err, domain.ErrOutOfStock)
	}
	assert.Equal(t, 3, successes)

	stored, err := store.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.Quantity)
}

func TestPurchaseService_ChangeBreakdown(t *testing.T) {
	service := newPurchaseService(memorystore.New(helpers.TestLogger()), nil, testOptions())

	breakdown := service.ChangeBreakdown(287)
	assert.Equal(t, int64(287), breakdown.Change)
	assert.Equal(t, int64(1), breakdown.Denominations[200])
	assert.Equal(t, int64(1), breakdown.Denominations[50])
	assert.Equal(t, int64(1), breakdown.Denominations[20])
	assert.Equal(t, int64(1), breakdown.Denominations[10])
	assert.Equal(t, int64(1), breakdown.Denominations[5])
	assert.Equal(t, int64(2), breakdown.Denominations[1])

	empty := service.ChangeBreakdown(0)
	assert.Equal(t, int64(0), empty.Change)
	assert.Empty(t, empty.Denominations)
}
