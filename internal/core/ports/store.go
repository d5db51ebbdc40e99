// internal/core/ports/store.go
package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/satyam-tomar/vending-machine-api/internal/core/domain"
)

// InventoryStore is the persistence port consumed by the inventory core.
// Mutations never go through it directly: every write happens inside a
// UnitOfWork obtained from Begin. The read methods serve the advisory
// reporting views and take no locks, so they may observe a slightly stale
// snapshot. That is acceptable for reporting, never for mutation.
type InventoryStore interface {
	// Begin opens a unit of work. All locks acquired through it are held
	// until Commit or Rollback.
	Begin(ctx context.Context) (UnitOfWork, error)

	ListSlots(ctx context.Context) ([]domain.Slot, error)
	// GetSlot returns the slot or nil when absent. Unlocked read.
	GetSlot(ctx context.Context, slotID uuid.UUID) (*domain.Slot, error)
	FullView(ctx context.Context) ([]SlotView, error)
	ItemsBySlot(ctx context.Context, slotID uuid.UUID) ([]domain.Item, error)
	// GetItem returns the item or nil when absent. Unlocked read; purchase
	// uses it only to resolve the owning slot before taking locks.
	GetItem(ctx context.Context, itemID uuid.UUID) (*domain.Item, error)
}

// UnitOfWork is a bounded sequence of reads and writes that commits or rolls
// back as a whole. Lock acquisition order is fixed and global: a slot row is
// always locked before any item row it owns. LockSlot and LockItem may block
// until a concurrent holder releases the row; a row this unit of work already
// holds is returned without blocking again, and returned entities include the
// unit of work's own staged writes. A nil entity with a nil error means the
// row does not exist, including rows this unit of work staged for deletion.
//
// After Commit or Rollback the unit of work is spent; further calls return a
// StorageError.
type UnitOfWork interface {
	LockSlot(ctx context.Context, slotID uuid.UUID) (*domain.Slot, error)
	LockItem(ctx context.Context, itemID uuid.UUID) (*domain.Item, error)

	CountSlots(ctx context.Context) (int64, error)
	SlotCodeExists(ctx context.Context, code string) (bool, error)
	// ItemsBySlot, inside a unit of work, observes the transaction's own
	// staged writes.
	ItemsBySlot(ctx context.Context, slotID uuid.UUID) ([]domain.Item, error)

	InsertSlot(ctx context.Context, slot *domain.Slot) error
	DeleteSlot(ctx context.Context, slotID uuid.UUID) error
	SetSlotItemCount(ctx context.Context, slotID uuid.UUID, count int) error

	InsertItem(ctx context.Context, item *domain.Item) error
	SetItemQuantity(ctx context.Context, itemID uuid.UUID, quantity int) error
	SetItemPrice(ctx context.Context, itemID uuid.UUID, price int64) error
	DeleteItem(ctx context.Context, itemID uuid.UUID) error

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// SlotView is the reporting projection of a slot with its contained items.
type SlotView struct {
	ID               uuid.UUID     `json:"id"`
	Code             string        `json:"code"`
	Capacity         int           `json:"capacity"`
	CurrentItemCount int           `json:"current_item_count"`
	Items            []domain.Item `json:"items"`
}
