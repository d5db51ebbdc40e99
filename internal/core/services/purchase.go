// internal/core/services/purchase.go
package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/satyam-tomar/vending-machine-api/internal/core/domain"
	"github.com/satyam-tomar/vending-machine-api/internal/core/ports"
)

// PurchaseService handles the customer-facing vend workflow.
type PurchaseService struct {
	store  ports.InventoryStore
	cache  ports.CacheRepository
	tasks  ports.TaskEnqueuer
	opts   Options
	logger *slog.Logger
}

// Statically assert that *PurchaseService implements the PurchaseService interface.
var _ ports.PurchaseService = (*PurchaseService)(nil)

// NewPurchaseService creates a new purchase service. cache and tasks may be
// nil.
func NewPurchaseService(store ports.InventoryStore, cache ports.CacheRepository, tasks ports.TaskEnqueuer, opts Options, logger *slog.Logger) *PurchaseService {
	return &PurchaseService{
		store:  store,
		cache:  cache,
		tasks:  tasks,
		opts:   opts,
		logger: logger.With(slog.String("service", "purchase")),
	}
}

// Purchase vends one unit of an item. The owning slot is resolved through an
// unlocked read, then slot and item rows are locked in that order and every
// condition is re-validated against the locked state. A sold item that
// reaches zero quantity stays in the slot so concurrent buyers observe an
// out-of-stock item rather than a missing one.
func (s *PurchaseService) Purchase(ctx context.Context, itemID uuid.UUID, cashInserted int64) (*ports.Receipt, error) {
	pre, err := s.store.GetItem(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve item: %w", err)
	}
	if pre == nil {
		return nil, domain.ErrItemNotFound
	}

	uow, err := s.store.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin unit of work: %w", err)
	}
	defer func() { _ = uow.Rollback(ctx) }()

	slot, err := uow.LockSlot(ctx, pre.SlotID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock slot: %w", err)
	}
	if slot == nil {
		// Slot removed between the unlocked read and the lock.
		return nil, domain.ErrItemNotFound
	}

	item, err := uow.LockItem(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock item: %w", err)
	}
	if item == nil || item.SlotID != slot.ID {
		return nil, domain.ErrItemNotFound
	}

	s.opts.pause()

	if item.Quantity <= 0 {
		return nil, domain.ErrOutOfStock
	}
	if cashInserted < item.Price {
		return nil, &domain.InsufficientCashError{Required: item.Price, Inserted: cashInserted}
	}

	remaining := item.Quantity - 1
	if err := uow.SetItemQuantity(ctx, itemID, remaining); err != nil {
		return nil, fmt.Errorf("failed to set quantity: %w", err)
	}
	if err := uow.SetSlotItemCount(ctx, slot.ID, slot.CurrentItemCount-1); err != nil {
		return nil, fmt.Errorf("failed to update slot count: %w", err)
	}

	if err := uow.Commit(ctx); err != nil {
		return nil, err
	}

	change := cashInserted - item.Price
	receipt := &ports.Receipt{
		Item:              item.Name,
		Price:             item.Price,
		CashInserted:      cashInserted,
		ChangeReturned:    change,
		Change:            domain.Breakdown(change, s.opts.Denominations),
		RemainingQuantity: remaining,
		Message:           "Purchase successful",
	}

	s.afterPurchase(ctx, slot, item, remaining)
	s.logger.InfoContext(ctx, "dispensed item",
		slog.String("slot_id", slot.ID.String()),
		slog.String("item_id", itemID.String()),
		slog.String("name", item.Name),
		slog.Int64("change", change),
		slog.Int("remaining", remaining))

	return receipt, nil
}

// ChangeBreakdown returns the advisory greedy split of a change amount over
// the machine's denomination set.
func (s *PurchaseService) ChangeBreakdown(amount int64) ports.ChangeBreakdown {
	return ports.ChangeBreakdown{
		Change:        amount,
		Denominations: domain.Breakdown(amount, s.opts.Denominations),
	}
}

// afterPurchase invalidates the cached report and raises a restock alert when
// the vend emptied the item. Both are best-effort.
func (s *PurchaseService) afterPurchase(ctx context.Context, slot *domain.Slot, item *domain.Item, remaining int) {
	if s.cache != nil {
		if err := s.cache.Delete(ctx, FullViewCacheKey); err != nil {
			s.logger.WarnContext(ctx, "failed to invalidate report cache",
				slog.String("error", err.Error()))
		}
	}
	if s.tasks == nil {
		return
	}
	if remaining == 0 {
		err := s.tasks.EnqueueRestockAlert(ctx, ports.RestockAlertPayload{
			SlotID:   slot.ID.String(),
			SlotCode: slot.Code,
			ItemID:   item.ID.String(),
			ItemName: item.Name,
		})
		if err != nil {
			s.logger.WarnContext(ctx, "failed to enqueue restock alert",
				slog.String("error", err.Error()))
		}
	}
	if err := s.tasks.EnqueueReportRefresh(ctx); err != nil {
		s.logger.WarnContext(ctx, "failed to enqueue report refresh",
			slog.String("error", err.Error()))
	}
}
