// internal/core/services/inventory.go
package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/satyam-tomar/vending-machine-api/internal/core/domain"
	"github.com/satyam-tomar/vending-machine-api/internal/core/ports"
)

// InventoryService handles stocking operations. Every mutation runs inside
// exactly one unit of work and acquires the owning slot row lock before any
// item row lock.
type InventoryService struct {
	store  ports.InventoryStore
	cache  ports.CacheRepository
	tasks  ports.TaskEnqueuer
	opts   Options
	logger *slog.Logger
}

// Statically assert that *InventoryService implements the InventoryService interface.
var _ ports.InventoryService = (*InventoryService)(nil)

// NewInventoryService creates a new inventory service. cache and tasks may be
// nil.
func NewInventoryService(store ports.InventoryStore, cache ports.CacheRepository, tasks ports.TaskEnqueuer, opts Options, logger *slog.Logger) *InventoryService {
	return &InventoryService{
		store:  store,
		cache:  cache,
		tasks:  tasks,
		opts:   opts,
		logger: logger.With(slog.String("service", "inventory")),
	}
}

// AddItem stocks a single item into a slot.
func (s *InventoryService) AddItem(ctx context.Context, slotID uuid.UUID, entry ports.ItemEntry) (*domain.Item, error) {
	if entry.Quantity <= 0 {
		return nil, domain.ErrQuantityMustBePositive
	}

	item := &domain.Item{
		SlotID:   slotID,
		Name:     entry.Name,
		Price:    entry.Price,
		Quantity: entry.Quantity,
	}
	if err := item.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	uow, err := s.store.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin unit of work: %w", err)
	}
	defer func() { _ = uow.Rollback(ctx) }()

	slot, err := s.lockConsistentSlot(ctx, uow, slotID)
	if err != nil {
		return nil, err
	}

	s.opts.pause()

	// Compare against the remaining capacity; summing first could overflow.
	if entry.Quantity > slot.Capacity-slot.CurrentItemCount {
		return nil, domain.ErrCapacityExceeded
	}

	item.PrepareForStorage()
	if err := uow.InsertItem(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to insert item: %w", err)
	}
	if err := uow.SetSlotItemCount(ctx, slotID, slot.CurrentItemCount+entry.Quantity); err != nil {
		return nil, fmt.Errorf("failed to update slot count: %w", err)
	}

	if err := uow.Commit(ctx); err != nil {
		return nil, err
	}

	s.afterMutation(ctx)
	s.logger.InfoContext(ctx, "added item",
		slog.String("slot_id", slotID.String()),
		slog.String("item_id", item.ID.String()),
		slog.String("name", item.Name),
		slog.Int("quantity", item.Quantity))

	return item, nil
}

// AddBulk stocks several items into a slot atomically. The summed quantity is
// validated against the remaining capacity before any row is written, so a
// failing bulk add leaves the slot untouched. Entries with non-positive
// quantity are skipped. Returns the number of entries added.
func (s *InventoryService) AddBulk(ctx context.Context, slotID uuid.UUID, entries []ports.ItemEntry) (int, error) {
	accepted := make([]*domain.Item, 0, len(entries))
	for _, entry := range entries {
		if entry.Quantity <= 0 {
			continue
		}
		item := &domain.Item{
			SlotID:   slotID,
			Name:     entry.Name,
			Price:    entry.Price,
			Quantity: entry.Quantity,
		}
		if err := item.Validate(); err != nil {
			return 0, fmt.Errorf("validation failed for entry %q: %w", entry.Name, err)
		}
		accepted = append(accepted, item)
	}

	uow, err := s.store.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin unit of work: %w", err)
	}
	defer func() { _ = uow.Rollback(ctx) }()

	slot, err := s.lockConsistentSlot(ctx, uow, slotID)
	if err != nil {
		return 0, err
	}

	s.opts.pause()

	// Charge each entry against the remaining capacity one at a time so the
	// running total can never overflow past the check.
	total := 0
	remaining := slot.Capacity - slot.CurrentItemCount
	for _, item := range accepted {
		if item.Quantity > remaining {
			return 0, domain.ErrCapacityExceeded
		}
		remaining -= item.Quantity
		total += item.Quantity
	}

	for _, item := range accepted {
		item.PrepareForStorage()
		if err := uow.InsertItem(ctx, item); err != nil {
			return 0, fmt.Errorf("failed to insert item: %w", err)
		}
	}
	if total > 0 {
		if err := uow.SetSlotItemCount(ctx, slotID, slot.CurrentItemCount+total); err != nil {
			return 0, fmt.Errorf("failed to update slot count: %w", err)
		}
	}

	if err := uow.Commit(ctx); err != nil {
		return 0, err
	}

	if len(accepted) > 0 {
		s.afterMutation(ctx)
	}
	s.logger.InfoContext(ctx, "added items in bulk",
		slog.String("slot_id", slotID.String()),
		slog.Int("entries", len(accepted)),
		slog.Int("total_quantity", total))

	return len(accepted), nil
}

// ListItems returns the items stocked in a slot.
func (s *InventoryService) ListItems(ctx context.Context, slotID uuid.UUID) ([]domain.Item, error) {
	slot, err := s.store.GetSlot(ctx, slotID)
	if err != nil {
		return nil, fmt.Errorf("failed to get slot: %w", err)
	}
	if slot == nil {
		return nil, domain.ErrSlotNotFound
	}

	items, err := s.store.ItemsBySlot(ctx, slotID)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	return items, nil
}

// GetItem returns a single item by ID.
func (s *InventoryService) GetItem(ctx context.Context, itemID uuid.UUID) (*domain.Item, error) {
	item, err := s.store.GetItem(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	if item == nil {
		return nil, domain.ErrItemNotFound
	}
	return item, nil
}

// UpdatePrice changes the price of a stocked item. Only the item row is
// locked; the slot counter is not involved.
func (s *InventoryService) UpdatePrice(ctx context.Context, itemID uuid.UUID, price int64) error {
	if price <= 0 {
		return domain.ErrPriceMustBePositive
	}

	uow, err := s.store.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin unit of work: %w", err)
	}
	defer func() { _ = uow.Rollback(ctx) }()

	item, err := uow.LockItem(ctx, itemID)
	if err != nil {
		return fmt.Errorf("failed to lock item: %w", err)
	}
	if item == nil {
		return domain.ErrItemNotFound
	}

	s.opts.pause()

	if err := uow.SetItemPrice(ctx, itemID, price); err != nil {
		return fmt.Errorf("failed to set price: %w", err)
	}

	if err := uow.Commit(ctx); err != nil {
		return err
	}

	s.afterMutation(ctx)
	s.logger.InfoContext(ctx, "updated item price",
		slog.String("item_id", itemID.String()),
		slog.Int64("price", price))

	return nil
}

// RemoveQuantity removes amount units from an item in a slot; a nil amount
// removes the item entirely. An item whose quantity reaches zero is deleted.
func (s *InventoryService) RemoveQuantity(ctx context.Context, slotID, itemID uuid.UUID, amount *int) error {
	if amount != nil && *amount <= 0 {
		return domain.ErrQuantityMustBePositive
	}

	uow, err := s.store.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin unit of work: %w", err)
	}
	defer func() { _ = uow.Rollback(ctx) }()

	slot, err := s.lockConsistentSlot(ctx, uow, slotID)
	if err != nil {
		return err
	}

	item, err := uow.LockItem(ctx, itemID)
	if err != nil {
		return fmt.Errorf("failed to lock item: %w", err)
	}
	if item == nil || item.SlotID != slotID {
		return domain.ErrItemNotFound
	}

	s.opts.pause()

	removed := item.Quantity
	if amount != nil {
		if *amount > item.Quantity {
			return domain.ErrQuantityExceedsAvailable
		}
		removed = *amount
	}

	newQty := item.Quantity - removed
	if newQty == 0 {
		if err := uow.DeleteItem(ctx, itemID); err != nil {
			return fmt.Errorf("failed to delete item: %w", err)
		}
	} else {
		if err := uow.SetItemQuantity(ctx, itemID, newQty); err != nil {
			return fmt.Errorf("failed to set quantity: %w", err)
		}
	}
	if err := uow.SetSlotItemCount(ctx, slotID, slot.CurrentItemCount-removed); err != nil {
		return fmt.Errorf("failed to update slot count: %w", err)
	}

	if err := uow.Commit(ctx); err != nil {
		return err
	}

	s.afterMutation(ctx)
	s.logger.InfoContext(ctx, "removed item quantity",
		slog.String("slot_id", slotID.String()),
		slog.String("item_id", itemID.String()),
		slog.Int("removed", removed),
		slog.Int("remaining", newQty))

	return nil
}

// RemoveBulk deletes the identified items from a slot, or every item in the
// slot when itemIDs is nil. The operation is atomic: if any identified item
// is missing from the slot, nothing is removed. An empty non-nil set is a
// successful no-op and repeated IDs count once. Returns the number of items
// deleted.
func (s *InventoryService) RemoveBulk(ctx context.Context, slotID uuid.UUID, itemIDs []uuid.UUID) (int, error) {
	uow, err := s.store.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin unit of work: %w", err)
	}
	defer func() { _ = uow.Rollback(ctx) }()

	slot, err := s.lockConsistentSlot(ctx, uow, slotID)
	if err != nil {
		return 0, err
	}

	s.opts.pause()

	if itemIDs == nil {
		items, err := uow.ItemsBySlot(ctx, slotID)
		if err != nil {
			return 0, fmt.Errorf("failed to list items: %w", err)
		}
		itemIDs = make([]uuid.UUID, 0, len(items))
		for _, it := range items {
			itemIDs = append(itemIDs, it.ID)
		}
	} else {
		itemIDs = dedupeIDs(itemIDs)
	}

	removed := 0
	for _, id := range itemIDs {
		item, err := uow.LockItem(ctx, id)
		if err != nil {
			return 0, fmt.Errorf("failed to lock item: %w", err)
		}
		if item == nil || item.SlotID != slotID {
			return 0, domain.ErrItemsNotFound
		}
		if err := uow.DeleteItem(ctx, id); err != nil {
			return 0, fmt.Errorf("failed to delete item: %w", err)
		}
		removed += item.Quantity
	}

	if len(itemIDs) > 0 {
		if err := uow.SetSlotItemCount(ctx, slotID, slot.CurrentItemCount-removed); err != nil {
			return 0, fmt.Errorf("failed to update slot count: %w", err)
		}
	}

	if err := uow.Commit(ctx); err != nil {
		return 0, err
	}

	if len(itemIDs) > 0 {
		s.afterMutation(ctx)
	}
	s.logger.InfoContext(ctx, "removed items in bulk",
		slog.String("slot_id", slotID.String()),
		slog.Int("items", len(itemIDs)),
		slog.Int("total_quantity", removed))

	return len(itemIDs), nil
}

// dedupeIDs drops repeated IDs so each row is locked and deleted once.
func dedupeIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	unique := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	return unique
}

// lockConsistentSlot acquires the slot row lock and verifies the denormalized
// item counter against the stored items. A mismatch is a defect signal and
// fails the operation before any write.
func (s *InventoryService) lockConsistentSlot(ctx context.Context, uow ports.UnitOfWork, slotID uuid.UUID) (*domain.Slot, error) {
	slot, err := uow.LockSlot(ctx, slotID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock slot: %w", err)
	}
	if slot == nil {
		return nil, domain.ErrSlotNotFound
	}

	items, err := uow.ItemsBySlot(ctx, slotID)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	sum := 0
	for _, it := range items {
		sum += it.Quantity
	}
	if sum != slot.CurrentItemCount {
		s.logger.ErrorContext(ctx, "slot counter mismatch",
			slog.String("slot_id", slotID.String()),
			slog.Int("counter", slot.CurrentItemCount),
			slog.Int("item_sum", sum))
		return nil, domain.ErrSlotCountInconsistent
	}
	return slot, nil
}

// afterMutation invalidates the cached report and schedules a background
// rebuild. Both are best-effort.
func (s *InventoryService) afterMutation(ctx context.Context) {
	if s.cache != nil {
		if err := s.cache.Delete(ctx, FullViewCacheKey); err != nil {
			s.logger.WarnContext(ctx, "failed to invalidate report cache",
				slog.String("error", err.Error()))
		}
	}
	if s.tasks != nil {
		if err := s.tasks.EnqueueReportRefresh(ctx); err != nil {
			s.logger.WarnContext(ctx, "failed to enqueue report refresh",
				slog.String("error", err.Error()))
		}
	}
}
