// internal/core/ports/services.go
package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/satyam-tomar/vending-machine-api/internal/core/domain"
)

// SlotService defines the application service port for slot administration.
type SlotService interface {
	Create(ctx context.Context, code string, capacity int) (*domain.Slot, error)
	List(ctx context.Context) ([]domain.Slot, error)
	FullView(ctx context.Context) ([]SlotView, error)
	Delete(ctx context.Context, slotID uuid.UUID) error
}

// InventoryService defines the application service port for stocking
// operations. Every method runs inside exactly one unit of work with the
// fixed slot-before-item lock order.
type InventoryService interface {
	AddItem(ctx context.Context, slotID uuid.UUID, entry ItemEntry) (*domain.Item, error)
	// AddBulk validates the summed quantity against remaining capacity before
	// any row is written; entries with non-positive quantity are skipped.
	// Returns the number of entries added.
	AddBulk(ctx context.Context, slotID uuid.UUID, entries []ItemEntry) (int, error)
	ListItems(ctx context.Context, slotID uuid.UUID) ([]domain.Item, error)
	GetItem(ctx context.Context, itemID uuid.UUID) (*domain.Item, error)
	UpdatePrice(ctx context.Context, itemID uuid.UUID, price int64) error
	// RemoveQuantity removes amount units from the item; a nil amount removes
	// the item entirely. Items that reach zero quantity are deleted.
	RemoveQuantity(ctx context.Context, slotID, itemID uuid.UUID, amount *int) error
	// RemoveBulk deletes the identified items, or every item in the slot when
	// itemIDs is nil. An empty non-nil set is a successful no-op. Returns the
	// number of items deleted.
	RemoveBulk(ctx context.Context, slotID uuid.UUID, itemIDs []uuid.UUID) (int, error)
}

// PurchaseService defines the purchase workflow port.
type PurchaseService interface {
	Purchase(ctx context.Context, itemID uuid.UUID, cashInserted int64) (*Receipt, error)
	ChangeBreakdown(amount int64) ChangeBreakdown
}

// ItemEntry is one requested item in an add or bulk-add intent.
type ItemEntry struct {
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Quantity int    `json:"quantity"`
}

// Receipt is the result of a successful purchase.
type Receipt struct {
	Item              string          `json:"item"`
	Price             int64           `json:"price"`
	CashInserted      int64           `json:"cash_inserted"`
	ChangeReturned    int64           `json:"change_returned"`
	Change            map[int64]int64 `json:"change_breakdown"`
	RemainingQuantity int             `json:"remaining_quantity"`
	Message           string          `json:"message"`
}

// ChangeBreakdown is the advisory greedy split of a change amount.
type ChangeBreakdown struct {
	Change        int64           `json:"change"`
	Denominations map[int64]int64 `json:"denominations"`
}
