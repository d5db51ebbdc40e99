// internal/core/services/inventory_service_test.go
package services_test

import (
	"context"
	"errors"
	"math"
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

func newInventoryService(store ports.InventoryStore, opts services.Options) *services.InventoryService {
	return services.NewInventoryService(store, nil, nil, opts, helpers.TestLogger())
}

func TestInventoryService_AddItem(t *testing.T) {
	tests := []struct {
		name          string
		entry         ports.ItemEntry
		seedItems     []*domain.Item
		expectedErr   error
		errorContains string
	}{
		{
			name:  "adds_item_and_updates_counter",
			entry: ports.ItemEntry{Name: "Cola", Price: 150, Quantity: 3},
		},
		{
			name:        "rejects_zero_quantity",
			entry:       ports.ItemEntry{Name: "Cola", Price: 150, Quantity: 0},
			expectedErr: domain.ErrQuantityMustBePositive,
		},
		{
			name:        "rejects_negative_quantity",
			entry:       ports.ItemEntry{Name: "Cola", Price: 150, Quantity: -2},
			expectedErr: domain.ErrQuantityMustBePositive,
		},
		{
			name:          "rejects_missing_name",
			entry:         ports.ItemEntry{Name: "", Price: 150, Quantity: 1},
			errorContains: "name is required",
		},
		{
			name:          "rejects_negative_price",
			entry:         ports.ItemEntry{Name: "Cola", Price: -1, Quantity: 1},
			errorContains: "price cannot be negative",
		},
		{
			// One over the limit: 7 seeded + 4 into a capacity-10 slot.
			name:  "rejects_add_one_beyond_capacity",
			entry: ports.ItemEntry{Name: "Cola", Price: 150, Quantity: 4},
			seedItems: []*domain.Item{
				{Name: "Water", Price: 100, Quantity: 7},
			},
			expectedErr: domain.ErrCapacityExceeded,
		},
		{
			name:  "rejects_quantity_that_overflows_capacity_check",
			entry: ports.ItemEntry{Name: "Cola", Price: 150, Quantity: math.MaxInt},
			seedItems: []*domain.Item{
				{Name: "Water", Price: 100, Quantity: 5},
			},
			expectedErr: domain.ErrCapacityExceeded,
		},
		{
			name:  "allows_fill_to_exact_capacity",
			entry: ports.ItemEntry{Name: "Cola", Price: 150, Quantity: 3},
			seedItems: []*domain.Item{
				{Name: "Water", Price: 100, Quantity: 7},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			store := memorystore.New(helpers.TestLogger())
			slot := helpers.CreateTestSlot()
			helpers.SeedSlot(t, store, slot)

			seeded := 0
			for _, it := range tt.seedItems {
				it.SlotID = slot.ID
				it.ID = uuid.New()
				helpers.SeedItem(t, store, it)
				seeded += it.Quantity
			}

			service := newInventoryService(store, testOptions())
			item, err := service.AddItem(ctx, slot.ID, tt.entry)

			if tt.expectedErr != nil {
				require.ErrorIs(t, err, tt.expectedErr)

				stored, serr := store.GetSlot(ctx, slot.ID)
				require.NoError(t, serr)
				assert.Equal(t, seeded, stored.CurrentItemCount)
				return
			}
			if tt.errorContains != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorContains)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, item)
			assert.NotEqual(t, uuid.Nil, item.ID)

			stored, err := store.GetSlot(ctx, slot.ID)
			require.NoError(t, err)
			assert.Equal(t, seeded+tt.entry.Quantity, stored.CurrentItemCount)
		})
	}
}

func TestInventoryService_AddItem_UnknownSlot(t *testing.T) {
	store := memorystore.New(helpers.TestLogger())
	service := newInventoryService(store, testOptions())

	_, err := service.AddItem(context.Background(), uuid.New(), ports.ItemEntry{Name: "Cola", Price: 150, Quantity: 1})
	require.ErrorIs(t, err, domain.ErrSlotNotFound)
}

func TestInventoryService_AddBulk(t *testing.T) {
	ctx := context.Background()

	t.Run("adds_all_entries_atomically", func(t *testing.T) {
		store := memorystore.New(helpers.TestLogger())
		slot := helpers.CreateTestSlot()
		helpers.SeedSlot(t, store, slot)

		service := newInventoryService(store, testOptions())
		added, err := service.AddBulk(ctx, slot.ID, []ports.ItemEntry{
			{Name: "Cola", Price: 150, Quantity: 4},
			{Name: "Water", Price: 100, Quantity: 3},
		})
		require.NoError(t, err)
		assert.Equal(t, 2, added)

		stored, err := store.GetSlot(ctx, slot.ID)
		require.NoError(t, err)
		assert.Equal(t, 7, stored.CurrentItemCount)

		items, err := store.ItemsBySlot(ctx, slot.ID)
		require.NoError(t, err)
		assert.Len(t, items, 2)
	})

	t.Run("skips_non_positive_quantities", func(t *testing.T) {
		store := memorystore.New(helpers.TestLogger())
		slot := helpers.CreateTestSlot()
		helpers.SeedSlot(t, store, slot)

		service := newInventoryService(store, testOptions())
		added, err := service.AddBulk(ctx, slot.ID, []ports.ItemEntry{
			{Name: "Cola", Price: 150, Quantity: 2},
			{Name: "Ghost", Price: 100, Quantity: 0},
		})
		require.NoError(t, err)
		assert.Equal(t, 1, added)
	})

	t.Run("rejects_when_summed_quantity_exceeds_capacity", func(t *testing.T) {
		store := memorystore.New(helpers.TestLogger())
		slot := helpers.CreateTestSlot()
		helpers.SeedSlot(t, store, slot)

		service := newInventoryService(store, testOptions())
		_, err := service.AddBulk(ctx, slot.ID, []ports.ItemEntry{
			{Name: "Cola", Price: 150, Quantity: 6},
			{Name: "Water", Price: 100, Quantity: 6},
		})
		require.ErrorIs(t, err, domain.ErrCapacityExceeded)

		// Failing bulk add must leave the slot untouched.
		items, err := store.ItemsBySlot(ctx, slot.ID)
		require.NoError(t, err)
		assert.Empty(t, items)

		stored, err := store.GetSlot(ctx, slot.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, stored.CurrentItemCount)
	})

	t.Run("rejects_entry_that_overflows_capacity_check", func(t *testing.T) {
		store := memorystore.New(helpers.TestLogger())
		slot := helpers.CreateTestSlot()
		helpers.SeedSlot(t, store, slot)

		service := newInventoryService(store, testOptions())
		_, err := service.AddBulk(ctx, slot.ID, []ports.ItemEntry{
			{Name: "Cola", Price: 150, Quantity: 5},
			{Name: "Water", Price: 100, Quantity: math.MaxInt},
		})
		require.ErrorIs(t, err, domain.ErrCapacityExceeded)

		items, err := store.ItemsBySlot(ctx, slot.ID)
		require.NoError(t, err)
		assert.Empty(t, items)

		stored, err := store.GetSlot(ctx, slot.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, stored.CurrentItemCount)
	})

	t.Run("empty_request_is_a_noop", func(t *testing.T) {
		store := memorystore.New(helpers.TestLogger())
		slot := helpers.CreateTestSlot()
		helpers.SeedSlot(t, store, slot)

		service := newInventoryService(store, testOptions())
		added, err := service.AddBulk(ctx, slot.ID, nil)
		require.NoError(t, err)
		assert.Equal(t, 0, added)
	})
}

func TestInventoryService_ListItems(t *testing.T) {
	ctx := context.Background()
	store := memorystore.New(helpers.TestLogger())
	slot := helpers.CreateTestSlot()
	helpers.SeedSlot(t, store, slot)
	helpers.SeedItem(t, store, helpers.CreateTestItem(slot.ID))

	service := newInventoryService(store, testOptions())

	items, err := service.ListItems(ctx, slot.ID)
	require.NoError(t, err)
	assert.Len(t, items, 1)

	_, err = service.ListItems(ctx, uuid.New())
	require.ErrorIs(t, err, domain.ErrSlotNotFound)
}

func TestInventoryService_GetItem(t *testing.T) {
	ctx := context.Background()
	store := memorystore.New(helpers.TestLogger())
	slot := helpers.CreateTestSlot()
	helpers.SeedSlot(t, store, slot)
	item := helpers.CreateTestItem(slot.ID)
	helpers.SeedItem(t, store, item)

	service := newInventoryService(store, testOptions())

	got, err := service.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, item.Name, got.Name)

	_, err = service.GetItem(ctx, uuid.New())
	require.ErrorIs(t, err, domain.ErrItemNotFound)
}

func TestInventoryService_UpdatePrice(t *testing.T) {
	ctx := context.Background()

	t.Run("updates_price", func(t *testing.T) {
		store := memorystore.New(helpers.TestLogger())
		slot := helpers.CreateTestSlot()
		helpers.SeedSlot(t, store, slot)
		item := helpers.CreateTestItem(slot.ID)
		helpers.SeedItem(t, store, item)

		service := newInventoryService(store, testOptions())
		require.NoError(t, service.UpdatePrice(ctx, item.ID, 250))

		stored, err := store.GetItem(ctx, item.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(250), stored.Price)
	})

	t.Run("rejects_non_positive_price", func(t *testing.T) {
		store := memorystore.New(helpers.TestLogger())
		service := newInventoryService(store, testOptions())

		err := service.UpdatePrice(ctx, uuid.New(), 0)
		require.ErrorIs(t, err, domain.ErrPriceMustBePositive)
	})

	t.Run("rejects_unknown_item", func(t *testing.T) {
		store := memorystore.New(helpers.TestLogger())
		service := newInventoryService(store, testOptions())

		err := service.UpdatePrice(ctx, uuid.New(), 100)
		require.ErrorIs(t, err, domain.ErrItemNotFound)
	})
}

func TestInventoryService_RemoveQuantity(t *testing.T) {
	ctx := context.Background()
	amount := func(n int) *int { return &n }

	tests := []struct {
		name              string
		seedQuantity      int
		amount            *int
		expectedErr       error
		expectItemDeleted bool
		expectedRemaining int
		expectedCounter   int
	}{
		{
			name:              "partial_removal_keeps_item",
			seedQuantity:      5,
			amount:            amount(2),
			expectedRemaining: 3,
			expectedCounter:   3,
		},
		{
			name:              "removal_to_zero_deletes_item",
			seedQuantity:      2,
			amount:            amount(2),
			expectItemDeleted: true,
			expectedCounter:   0,
		},
		{
			name:              "nil_amount_removes_item_entirely",
			seedQuantity:      5,
			amount:            nil,
			expectItemDeleted: true,
			expectedCounter:   0,
		},
		{
			name:         "rejects_amount_above_stock",
			seedQuantity: 2,
			amount:       amount(3),
			expectedErr:  domain.ErrQuantityExceedsAvailable,
		},
		{
			name:         "rejects_non_positive_amount",
			seedQuantity: 2,
			amount:       amount(0),
			expectedErr:  domain.ErrQuantityMustBePositive,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memorystore.New(helpers.TestLogger())
			slot := helpers.CreateTestSlot()
			helpers.SeedSlot(t, store, slot)
			item := helpers.CreateTestItem(slot.ID, func(i *domain.Item) { i.Quantity = tt.seedQuantity })
			helpers.SeedItem(t, store, item)

			service := newInventoryService(store, testOptions())
			err := service.RemoveQuantity(ctx, slot.ID, item.ID, tt.amount)

			if tt.expectedErr != nil {
				require.ErrorIs(t, err, tt.expectedErr)
				return
			}
			require.NoError(t, err)

			stored, err := store.GetItem(ctx, item.ID)
			require.NoError(t, err)
			if tt.expectItemDeleted {
				assert.Nil(t, stored)
			} else {
				require.NotNil(t, stored)
				assert.Equal(t, tt.expectedRemaining, stored.Quantity)
			}

			storedSlot, err := store.GetSlot(ctx, slot.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.expectedCounter, storedSlot.CurrentItemCount)
		})
	}
}

func TestInventoryService_RemoveQuantity_WrongSlot(t *testing.T) {
	ctx := context.Background()
	store := memorystore.New(helpers.TestLogger())
	slotA := helpers.CreateTestSlot(func(s *domain.Slot) { s.Code = "A1" })
	slotB := helpers.CreateTestSlot(func(s *domain.Slot) { s.Code = "B1" })
	helpers.SeedSlot(t, store, slotA)
	helpers.SeedSlot(t, store, slotB)
	item := helpers.CreateTestItem(slotA.ID)
	helpers.SeedItem(t, store, item)

	service := newInventoryService(store, testOptions())
	err := service.RemoveQuantity(ctx, slotB.ID, item.ID, nil)
	require.ErrorIs(t, err, domain.ErrItemNotFound)
}

func TestInventoryService_RemoveBulk(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*memorystore.Store, *domain.Slot, []*domain.Item) {
		store := memorystore.New(helpers.TestLogger())
		slot := helpers.CreateTestSlot(func(s *domain.Slot) { s.Capacity = 20 })
		helpers.SeedSlot(t, store, slot)

		items := []*domain.Item{
			helpers.CreateTestItem(slot.ID, func(i *domain.Item) { i.Name = "Cola"; i.Quantity = 3 }),
			helpers.CreateTestItem(slot.ID, func(i *domain.Item) { i.Name = "Water"; i.Quantity = 2 }),
			helpers.CreateTestItem(slot.ID, func(i *domain.Item) { i.Name = "Chips"; i.Quantity = 4 }),
		}
		for _, it := range items {
			helpers.SeedItem(t, store, it)
		}
		return store, slot, items
	}

	t.Run("removes_selected_items", func(t *testing.T) {
		store, slot, items := setup(t)
		service := newInventoryService(store, testOptions())

		removed, err := service.RemoveBulk(ctx, slot.ID, []uuid.UUID{items[0].ID, items[2].ID})
		require.NoError(t, err)
		assert.Equal(t, 2, removed)

		remaining, err := store.ItemsBySlot(ctx, slot.ID)
		require.NoError(t, err)
		require.Len(t, remaining, 1)
		assert.Equal(t, "Water", remaining[0].Name)

		storedSlot, err := store.GetSlot(ctx, slot.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, storedSlot.CurrentItemCount)
	})

	t.Run("nil_set_clears_the_slot", func(t *testing.T) {
		store, slot, _ := setup(t)
		service := newInventoryService(store, testOptions())

		removed, err := service.RemoveBulk(ctx, slot.ID, nil)
		require.NoError(t, err)
		assert.Equal(t, 3, removed)

		remaining, err := store.ItemsBySlot(ctx, slot.ID)
		require.NoError(t, err)
		assert.Empty(t, remaining)

		storedSlot, err := store.GetSlot(ctx, slot.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, storedSlot.CurrentItemCount)
	})

	t.Run("empty_set_is_a_noop", func(t *testing.T) {
		store, slot, _ := setup(t)
		service := newInventoryService(store, testOptions())

		removed, err := service.RemoveBulk(ctx, slot.ID, []uuid.UUID{})
		require.NoError(t, err)
		assert.Equal(t, 0, removed)

		remaining, err := store.ItemsBySlot(ctx, slot.ID)
		require.NoError(t, err)
		assert.Len(t, remaining, 3)
	})

	t.Run("duplicate_ids_remove_the_item_once", func(t *testing.T) {
		store, slot, items := setup(t)
		service := newInventoryService(store, testOptions())

		// Must complete instead of wedging on a second lock of the same row.
		type result struct {
			removed int
			err     error
		}
		done := make(chan result, 1)
		go func() {
			removed, err := service.RemoveBulk(ctx, slot.ID, []uuid.UUID{items[0].ID, items[0].ID})
			done <- result{removed, err}
		}()

		select {
		case res := <-done:
			require.NoError(t, res.err)
			assert.Equal(t, 1, res.removed)
		case <-time.After(2 * time.Second):
			t.Fatal("bulk removal with duplicate ids did not complete")
		}

		remaining, err := store.ItemsBySlot(ctx, slot.ID)
		require.NoError(t, err)
		assert.Len(t, remaining, 2)

		storedSlot, err := store.GetSlot(ctx, slot.ID)
		require.NoError(t, err)
		assert.Equal(t, 6, storedSlot.CurrentItemCount)
	})

	t.Run("missing_item_fails_without_removing_anything", func(t *testing.T) {
		store, slot, items := setup(t)
		service := newInventoryService(store, testOptions())

		_, err := service.RemoveBulk(ctx, slot.ID, []uuid.UUID{items[0].ID, uuid.New()})
		require.ErrorIs(t, err, domain.ErrItemsNotFound)

		remaining, err := store.ItemsBySlot(ctx, slot.ID)
		require.NoError(t, err)
		assert.Len(t, remaining, 3)

		storedSlot, err := store.GetSlot(ctx, slot.ID)
		require.NoError(t, err)
		assert.Equal(t, 9, storedSlot.CurrentItemCount)
	})
}

func TestInventoryService_DetectsCounterMismatch(t *testing.T) {
	ctx := context.Background()
	store := memorystore.New(helpers.TestLogger())
	slot := helpers.CreateTestSlot()
	helpers.SeedSlot(t, store, slot)

	// Corrupt the counter without touching any item rows.
	uow, err := store.Begin(ctx)
	require.NoError(t, err)
	_, err = uow.LockSlot(ctx, slot.ID)
	require.NoError(t, err)
	require.NoError(t, uow.SetSlotItemCount(ctx, slot.ID, 5))
	require.NoError(t, uow.Commit(ctx))

	service := newInventoryService(store, testOptions())
	_, err = service.AddItem(ctx, slot.ID, ports.ItemEntry{Name: "Cola", Price: 150, Quantity: 1})
	require.ErrorIs(t, err, domain.ErrSlotCountInconsistent)
}

func TestInventoryService_ConcurrentAdds_RespectCapacity(t *testing.T) {
	ctx := context.Background()
	store := memorystore.New(helpers.TestLogger())
	slot := helpers.CreateTestSlot(func(s *domain.Slot) { s.Capacity = 10 })
	helpers.SeedSlot(t, store, slot)

	opts := testOptions()
	opts.LockDelay = 5 * time.Millisecond
	service := newInventoryService(store, opts)

	const workers = 4
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = service.AddItem(ctx, slot.ID, ports.ItemEntry{Name: "Cola", Price: 150, Quantity: 6})
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
			continue
		}
		require.ErrorIs(t, err, domain.ErrCapacityExceeded)
	}
	assert.Equal(t, 1, successes)

	stored, err := store.GetSlot(ctx, slot.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, stored.CurrentItemCount)
}

func TestInventoryService_AddItem_CommitFault(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	slotID := uuid.New()
	slot := &domain.Slot{ID: slotID, Code: "A1", Capacity: 10}

	mockStore := mocks.NewMockInventoryStore(ctrl)
	mockUow := mocks.NewMockUnitOfWork(ctrl)

	mockStore.EXPECT().Begin(gomock.Any()).Return(mockUow, nil)
	mockUow.EXPECT().LockSlot(gomock.Any(), slotID).Return(slot, nil)
	mockUow.EXPECT().ItemsBySlot(gomock.Any(), slotID).Return(nil, nil)
	mockUow.EXPECT().InsertItem(gomock.Any(), gomock.Any()).Return(nil)
	mockUow.EXPECT().SetSlotItemCount(gomock.Any(), slotID, 1).Return(nil)
	mockUow.EXPECT().Commit(gomock.Any()).
		Return(&domain.StorageError{Op: "commit", Err: errors.New("connection lost")})
	mockUow.EXPECT().Rollback(gomock.Any()).Return(nil)

	service := newInventoryService(mockStore, testOptions())
	_, err := service.AddItem(context.Background(), slotID, ports.ItemEntry{Name: "Cola", Price: 150, Quantity: 1})

	var storageErr *domain.StorageError
	require.ErrorAs(t, err, &storageErr)
	assert.False(t, domain.IsDomainError(err))
}
