package domain_test

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satyam-tomar/vending-machine-api/internal/core/domain"
)

func TestSlot_Validate(t *testing.T) {
	tests := []struct {
		name      string
		slot      *domain.Slot
		wantError bool
		errorMsg  string
	}{
		{
			name:      "valid_slot",
			slot:      &domain.Slot{Code: "A1", Capacity: 10},
			wantError: false,
		},
		{
			name:      "missing_code",
			slot:      &domain.Slot{Capacity: 10},
			wantError: true,
			errorMsg:  "code is required",
		},
		{
			name:      "zero_capacity",
			slot:      &domain.Slot{Code: "A1", Capacity: 0},
			wantError: true,
			errorMsg:  "capacity must be positive",
		},
		{
			name:      "negative_capacity",
			slot:      &domain.Slot{Code: "A1", Capacity: -3},
			wantError: true,
			errorMsg:  "capacity must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.slot.Validate()
			if tt.wantError {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestItem_Validate(t *testing.T) {
	tests := []struct {
		name      string
		item      *domain.Item
		wantError bool
		errorMsg  string
	}{
		{
			name:      "valid_item",
			item:      &domain.Item{Name: "Cola", Price: 150, Quantity: 3},
			wantError: false,
		},
		{
			name:      "zero_price_allowed_at_creation",
			item:      &domain.Item{Name: "Sample", Price: 0, Quantity: 1},
			wantError: false,
		},
		{
			name:      "missing_name",
			item:      &domain.Item{Price: 150, Quantity: 1},
			wantError: true,
			errorMsg:  "name is required",
		},
		{
			name:      "negative_price",
			item:      &domain.Item{Name: "Cola", Price: -1, Quantity: 1},
			wantError: true,
			errorMsg:  "price cannot be negative",
		},
		{
			name:      "zero_quantity",
			item:      &domain.Item{Name: "Cola", Price: 150, Quantity: 0},
			wantError: true,
			errorMsg:  "quantity must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.item.Validate()
			if tt.wantError {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSlot_PrepareForStorage(t *testing.T) {
	slot := &domain.Slot{Code: "B2", Capacity: 8}
	slot.PrepareForStorage()

	assert.NotEqual(t, uuid.Nil, slot.ID)
	assert.False(t, slot.CreatedAt.IsZero())
	assert.False(t, slot.UpdatedAt.IsZero())

	// A second call keeps identity and creation time stable
	id, created := slot.ID, slot.CreatedAt
	slot.PrepareForStorage()
	assert.Equal(t, id, slot.ID)
	assert.Equal(t, created, slot.CreatedAt)
}

func TestSlot_Remaining(t *testing.T) {
	slot := &domain.Slot{Code: "A1", Capacity: 10, CurrentItemCount: 7}
	assert.Equal(t, 3, slot.Remaining())
}

func TestIsDomainError(t *testing.T) {
	assert.True(t, domain.IsDomainError(domain.ErrSlotNotFound))
	assert.True(t, domain.IsDomainError(domain.ErrOutOfStock))
	assert.True(t, domain.IsDomainError(&domain.InsufficientCashError{Required: 150, Inserted: 100}))

	// wrapped domain errors still match
	assert.True(t, domain.IsDomainError(errors.Join(domain.ErrCapacityExceeded)))

	assert.False(t, domain.IsDomainError(errors.New("connection refused")))
	assert.False(t, domain.IsDomainError(&domain.StorageError{Op: "commit", Err: errors.New("broken pipe")}))
}

func TestInsufficientCashError_Message(t *testing.T) {
	err := &domain.InsufficientCashError{Required: 150, Inserted: 100}
	assert.Contains(t, err.Error(), "required 150")
	assert.Contains(t, err.Error(), "inserted 100")
}
