// internal/core/domain/errors.go
package domain

import (
	"errors"
	"fmt"
)

// The inventory error taxonomy is closed: every store and service operation
// returns a success value or one of the errors below. Callers branch with
// errors.Is / errors.As, never by matching message strings.
var (
	ErrSlotNotFound             = errors.New("slot not found")
	ErrSlotNotEmpty             = errors.New("slot is not empty")
	ErrSlotLimitReached         = errors.New("slot limit reached")
	ErrSlotCodeExists           = errors.New("slot code already exists")
	ErrItemNotFound             = errors.New("item not found")
	ErrItemsNotFound            = errors.New("one or more items not found in slot")
	ErrCapacityExceeded         = errors.New("total items would exceed slot capacity")
	ErrQuantityMustBePositive   = errors.New("quantity must be positive")
	ErrQuantityExceedsAvailable = errors.New("quantity exceeds available stock")
	ErrPriceMustBePositive      = errors.New("price must be positive")
	ErrOutOfStock               = errors.New("item out of stock")

	// ErrSlotCountInconsistent signals that the slot counter disagreed with
	// the sum of item quantities before the operation began. It is a defect
	// signal, not a user error, and is logged as such.
	ErrSlotCountInconsistent = errors.New("slot item count inconsistent with stored items")
)

// InsufficientCashError is returned by purchase when the inserted cash does
// not cover the item price.
type InsufficientCashError struct {
	Required int64
	Inserted int64
}

func (e *InsufficientCashError) Error() string {
	return fmt.Sprintf("insufficient cash: required %d, inserted %d", e.Required, e.Inserted)
}

// StorageError wraps unexpected storage-layer faults (connection loss, failed
// commit) so they are never mistaken for domain errors.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage failure during %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// IsDomainError reports whether err belongs to the closed inventory taxonomy,
// as opposed to a storage fault or a programming error.
func IsDomainError(err error) bool {
	for _, target := range []error{
		ErrSlotNotFound, ErrSlotNotEmpty, ErrSlotLimitReached, ErrSlotCodeExists,
		ErrItemNotFound, ErrItemsNotFound, ErrCapacityExceeded,
		ErrQuantityMustBePositive, ErrQuantityExceedsAvailable,
		ErrPriceMustBePositive, ErrOutOfStock, ErrSlotCountInconsistent,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	var cashErr *InsufficientCashError
	return errors.As(err, &cashErr)
}
