// internal/core/domain/slot.go
package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Slot represents a physical compartment of the vending machine. It holds
// zero or more items and carries a denormalized item counter that must equal
// the sum of the owned item quantities whenever no transaction is in flight.
type Slot struct {
	ID               uuid.UUID `json:"id"`
	Code             string    `json:"code"`
	Capacity         int       `json:"capacity"`
	CurrentItemCount int       `json:"current_item_count"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Validate performs domain validation on the slot
func (s *Slot) Validate() error {
	if s.Code == "" {
		return fmt.Errorf("code is required")
	}
	if s.Capacity <= 0 {
		return fmt.Errorf("capacity must be positive")
	}
	return nil
}

// Remaining returns the free capacity of the slot.
func (s *Slot) Remaining() int {
	return s.Capacity - s.CurrentItemCount
}

// PrepareForStorage prepares the slot for database storage
func (s *Slot) PrepareForStorage() {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}

	now := time.Now()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now
}
