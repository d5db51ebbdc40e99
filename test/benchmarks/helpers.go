// test/benchmarks/helpers.go
package benchmarks

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"

	"github.com/satyam-tomar/vending-machine-api/internal/adapters/memorystore"
	"github.com/satyam-tomar/vending-machine-api/internal/core/ports"
	"github.com/satyam-tomar/vending-machine-api/internal/core/services"
)

// benchEnv bundles the in-memory store with the three services so every
// benchmark runs against the same wiring the API uses.
type benchEnv struct {
	store     *memorystore.Store
	slots     *services.SlotService
	inventory *services.InventoryService
	purchase  *services.PurchaseService
}

func benchOptions() services.Options {
	return services.Options{
		MaxSlots:      1 << 16,
		Denominations: []int64{500, 200, 100, 50, 20, 10, 5, 1},
	}
}

func newBenchEnv(b *testing.B) *benchEnv {
	b.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memorystore.New(log)
	opts := benchOptions()

	return &benchEnv{
		store:     store,
		slots:     services.NewSlotService(store, nil, opts, log),
		inventory: services.NewInventoryService(store, nil, nil, opts, log),
		purchase:  services.NewPurchaseService(store, nil, nil, opts, log),
	}
}

// seedSlot creates one slot with the given capacity and fails the benchmark
// on error.
func (e *benchEnv) seedSlot(b *testing.B, code string, capacity int) uuid.UUID {
	b.Helper()

	slot, err := e.slots.Create(context.Background(), code, capacity)
	if err != nil {
		b.Fatalf("seed slot %s: %v", code, err)
	}
	return slot.ID
}

// seedItem stocks one item into the slot and fails the benchmark on error.
func (e *benchEnv) seedItem(b *testing.B, slotID uuid.UUID, name string, price int64, quantity int) uuid.UUID {
	b.Helper()

	item, err := e.inventory.AddItem(context.Background(), slotID, ports.ItemEntry{
		Name:     name,
		Price:    price,
		Quantity: quantity,
	})
	if err != nil {
		b.Fatalf("seed item %s: %v", name, err)
	}
	return item.ID
}

// seedMachine fills numSlots slots with one stocked item each and returns the
// item IDs, for read-path benchmarks that want a populated machine.
func (e *benchEnv) seedMachine(b *testing.B, numSlots int) []uuid.UUID {
	b.Helper()

	itemIDs := make([]uuid.UUID, 0, numSlots)
	for i := 0; i < numSlots; i++ {
		slotID := e.seedSlot(b, fmt.Sprintf("B%d", i), 50)
		itemIDs = append(itemIDs, e.seedItem(b, slotID, fmt.Sprintf("Snack %d", i), int64(100+i), 10))
	}
	return itemIDs
}
