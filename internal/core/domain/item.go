// internal/core/domain/item.go
package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Item represents a purchasable unit stocked inside a slot. Price is in
// currency minor units. An item belongs to exactly one slot for its lifetime;
// SlotID is a lookup relation, never a transfer handle.
type Item struct {
	ID        uuid.UUID `json:"id"`
	SlotID    uuid.UUID `json:"slot_id"`
	Name      string    `json:"name"`
	Price     int64     `json:"price"`
	Quantity  int       `json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate performs domain validation for item creation. Creation allows a
// zero price (free vend) but requires a positive quantity.
func (i *Item) Validate() error {
	if i.Name == "" {
		return fmt.Errorf("name is required")
	}
	if i.Price < 0 {
		return fmt.Errorf("price cannot be negative")
	}
	if i.Quantity <= 0 {
		return fmt.Errorf("quantity must be positive")
	}
	return nil
}

// PrepareForStorage prepares the item for database storage
func (i *Item) PrepareForStorage() {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}

	now := time.Now()
	if i.CreatedAt.IsZero() {
		i.CreatedAt = now
	}
	i.UpdatedAt = now
}
