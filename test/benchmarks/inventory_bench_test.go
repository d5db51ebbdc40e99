package benchmarks

import (
	"context"
	"fmt"
	"testing"

	"github.com/satyam-tomar/vending-machine-api/internal/core/ports"
)

func BenchmarkInventoryOperations(b *testing.B) {
	ctx := context.Background()

	b.Run("AddItem", func(b *testing.B) {
		env := newBenchEnv(b)
		slotID := env.seedSlot(b, "A1", 1<<20)

		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			_, _ = env.inventory.AddItem(ctx, slotID, ports.ItemEntry{
				Name:     fmt.Sprintf("Item %d", i),
				Price:    150,
				Quantity: 1,
			})
		}
	})

	b.Run("AddBulk", func(b *testing.B) {
		env := newBenchEnv(b)
		slotID := env.seedSlot(b, "A1", 1<<30)

		entries := make([]ports.ItemEntry, 50)
		for i := range entries {
			entries[i] = ports.ItemEntry{
				Name:     fmt.Sprintf("Bulk %d", i),
				Price:    100,
				Quantity: 2,
			}
		}

		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			_, _ = env.inventory.AddBulk(ctx, slotID, entries)
		}
	})

	b.Run("GetItem", func(b *testing.B) {
		env := newBenchEnv(b)
		itemIDs := env.seedMachine(b, 100)

		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			_, _ = env.inventory.GetItem(ctx, itemIDs[i%len(itemIDs)])
		}
	})

	b.Run("ListItems", func(b *testing.B) {
		env := newBenchEnv(b)
		slotID := env.seedSlot(b, "A1", 200)
		for i := 0; i < 100; i++ {
			env.seedItem(b, slotID, fmt.Sprintf("Snack %d", i), 100, 1)
		}

		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			_, _ = env.inventory.ListItems(ctx, slotID)
		}
	})

	b.Run("FullView", func(b *testing.B) {
		env := newBenchEnv(b)
		env.seedMachine(b, 100)

		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			_, _ = env.slots.FullView(ctx)
		}
	})
}

func BenchmarkPurchase(b *testing.B) {
	ctx := context.Background()

	b.Run("Sequential", func(b *testing.B) {
		env := newBenchEnv(b)
		slotID := env.seedSlot(b, "A1", 1<<30)
		itemID := env.seedItem(b, slotID, "Cola", 150, b.N+1)

		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			if _, err := env.purchase.Purchase(ctx, itemID, 200); err != nil {
				b.Fatalf("purchase: %v", err)
			}
		}
	})

	// Parallel buyers draining a shared item measure lock contention on the
	// vend path. Sold-out errors near the end of the run are expected.
	b.Run("Contended", func(b *testing.B) {
		env := newBenchEnv(b)
		slotID := env.seedSlot(b, "A1", 1<<30)
		itemID := env.seedItem(b, slotID, "Cola", 150, b.N+1)

		b.ResetTimer()
		b.RunParallel(func(pb *testing.PB) {
			for pb.Next() {
				_, _ = env.purchase.Purchase(ctx, itemID, 200)
			}
		})
	})
}

func BenchmarkChangeBreakdown(b *testing.B) {
	env := newBenchEnv(b)
	amounts := []int64{0, 1, 99, 287, 499, 1234}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		env.purchase.ChangeBreakdown(amounts[i%len(amounts)])
	}
}
