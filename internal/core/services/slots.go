// internal/core/services/slots.go
package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/satyam-tomar/vending-machine-api/internal/core/domain"
	"github.com/satyam-tomar/vending-machine-api/internal/core/ports"
)

// SlotService handles slot administration: creation, listing, reporting and
// removal of empty slots.
type SlotService struct {
	store  ports.InventoryStore
	cache  ports.CacheRepository
	opts   Options
	logger *slog.Logger
}

// Statically assert that *SlotService implements the SlotService interface.
var _ ports.SlotService = (*SlotService)(nil)

// NewSlotService creates a new slot service. cache may be nil, in which case
// FullView always reads through to the store.
func NewSlotService(store ports.InventoryStore, cache ports.CacheRepository, opts Options, logger *slog.Logger) *SlotService {
	return &SlotService{
		store:  store,
		cache:  cache,
		opts:   opts,
		logger: logger.With(slog.String("service", "slots")),
	}
}

// Create adds a new empty slot. The machine-wide slot limit and code
// uniqueness are both checked inside the unit of work; a concurrent create
// racing on the same code loses at commit with ErrSlotCodeExists.
func (s *SlotService) Create(ctx context.Context, code string, capacity int) (*domain.Slot, error) {
	slot := &domain.Slot{Code: code, Capacity: capacity}
	if err := slot.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	uow, err := s.store.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin unit of work: %w", err)
	}
	defer func() { _ = uow.Rollback(ctx) }()

	count, err := uow.CountSlots(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count slots: %w", err)
	}
	if count >= int64(s.opts.MaxSlots) {
		return nil, domain.ErrSlotLimitReached
	}

	exists, err := uow.SlotCodeExists(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to check slot code: %w", err)
	}
	if exists {
		return nil, domain.ErrSlotCodeExists
	}

	slot.PrepareForStorage()
	if err := uow.InsertSlot(ctx, slot); err != nil {
		return nil, fmt.Errorf("failed to insert slot: %w", err)
	}

	if err := uow.Commit(ctx); err != nil {
		return nil, err
	}

	s.invalidateReport(ctx)
	s.logger.InfoContext(ctx, "created slot",
		slog.String("slot_id", slot.ID.String()),
		slog.String("code", slot.Code),
		slog.Int("capacity", slot.Capacity))

	return slot, nil
}

// List returns all slots ordered by code.
func (s *SlotService) List(ctx context.Context) ([]domain.Slot, error) {
	slots, err := s.store.ListSlots(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list slots: %w", err)
	}
	return slots, nil
}

// FullView returns every slot with its items. The result is served from the
// reporting cache when available; mutations invalidate it.
func (s *SlotService) FullView(ctx context.Context) ([]ports.SlotView, error) {
	if s.cache == nil {
		return s.store.FullView(ctx)
	}

	var views []ports.SlotView
	err := s.cache.GetOrSet(ctx, FullViewCacheKey, &views, func() (interface{}, error) {
		return s.store.FullView(ctx)
	}, FullViewCacheTTL)
	if err != nil {
		// Cache trouble degrades to a direct read, never to a failed report.
		s.logger.WarnContext(ctx, "report cache unavailable, reading through",
			slog.String("error", err.Error()))
		return s.store.FullView(ctx)
	}
	return views, nil
}

// Delete removes a slot that holds no items.
func (s *SlotService) Delete(ctx context.Context, slotID uuid.UUID) error {
	uow, err := s.store.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin unit of work: %w", err)
	}
	defer func() { _ = uow.Rollback(ctx) }()

	slot, err := uow.LockSlot(ctx, slotID)
	if err != nil {
		return fmt.Errorf("failed to lock slot: %w", err)
	}
	if slot == nil {
		return domain.ErrSlotNotFound
	}

	s.opts.pause()

	items, err := uow.ItemsBySlot(ctx, slotID)
	if err != nil {
		return fmt.Errorf("failed to list slot items: %w", err)
	}
	if len(items) > 0 || slot.CurrentItemCount > 0 {
		return domain.ErrSlotNotEmpty
	}

	if err := uow.DeleteSlot(ctx, slotID); err != nil {
		return fmt.Errorf("failed to delete slot: %w", err)
	}

	if err := uow.Commit(ctx); err != nil {
		return err
	}

	s.invalidateReport(ctx)
	s.logger.InfoContext(ctx, "deleted slot",
		slog.String("slot_id", slotID.String()),
		slog.String("code", slot.Code))

	return nil
}

func (s *SlotService) invalidateReport(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, FullViewCacheKey); err != nil {
		s.logger.WarnContext(ctx, "failed to invalidate report cache",
			slog.String("error", err.Error()))
	}
}
