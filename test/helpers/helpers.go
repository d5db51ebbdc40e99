// test/helpers/helpers.go
package helpers

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/satyam-tomar/vending-machine-api/internal/core/domain"
	"github.com/satyam-tomar/vending-machine-api/internal/core/ports"
)

// TestRedis represents a test Redis instance
type TestRedis struct {
	Client *redis.Client
	Server *miniredis.Miniredis
}

// TestLogger returns a test logger
func TestLogger() *slog.Logger {
	if testing.Verbose() {
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

// SetupTestRedis creates a mock Redis instance for testing
func SetupTestRedis(t *testing.T) *TestRedis {
	t.Helper()

	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})

	return &TestRedis{
		Client: client,
		Server: mr,
	}
}

// CreateTestSlot builds a valid slot, optionally customized
func CreateTestSlot(opts ...func(*domain.Slot)) *domain.Slot {
	slot := &domain.Slot{
		ID:       uuid.New(),
		Code:     "A1",
		Capacity: 10,
	}
	for _, opt := range opts {
		opt(slot)
	}
	return slot
}

// CreateTestItem builds a valid item, optionally customized
func CreateTestItem(slotID uuid.UUID, opts ...func(*domain.Item)) *domain.Item {
	item := &domain.Item{
		ID:       uuid.New(),
		SlotID:   slotID,
		Name:     "Cola",
		Price:    150,
		Quantity: 3,
	}
	for _, opt := range opts {
		opt(item)
	}
	return item
}

// SeedSlot writes a slot directly into the store, bypassing service checks.
func SeedSlot(t *testing.T, store ports.InventoryStore, slot *domain.Slot) {
	t.Helper()

	ctx := context.Background()
	slot.PrepareForStorage()

	uow, err := store.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, uow.InsertSlot(ctx, slot))
	require.NoError(t, uow.Commit(ctx))
}

// SeedItem writes an item directly into the store and bumps the owning slot's
// counter to stay consistent.
func SeedItem(t *testing.T, store ports.InventoryStore, item *domain.Item) {
	t.Helper()

	ctx := context.Background()
	item.PrepareForStorage()

	uow, err := store.Begin(ctx)
	require.NoError(t, err)

	slot, err := uow.LockSlot(ctx, item.SlotID)
	require.NoError(t, err)
	require.NotNil(t, slot, "seed slot before seeding items")

	require.NoError(t, uow.InsertItem(ctx, item))
	require.NoError(t, uow.SetSlotItemCount(ctx, item.SlotID, slot.CurrentItemCount+item.Quantity))
	require.NoError(t, uow.Commit(ctx))
}
