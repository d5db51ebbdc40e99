// internal/adapters/memorystore/store.go
package memorystore

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/satyam-tomar/vending-machine-api/internal/core/domain"
	"github.com/satyam-tomar/vending-machine-api/internal/core/ports"
)

// Store is an in-memory InventoryStore with real row-lock semantics: each
// slot and item row carries its own mutex, a unit of work blocks on lock
// acquisition exactly like a SELECT FOR UPDATE would, and staged writes
// become visible atomically at commit. It backs the unit and race tests and
// the "memory" storage driver for local development.
type Store struct {
	mu     sync.RWMutex
	slots  map[uuid.UUID]*slotRecord
	items  map[uuid.UUID]*itemRecord
	codes  map[string]uuid.UUID
	logger *slog.Logger
}

type slotRecord struct {
	lock sync.Mutex
	slot domain.Slot
}

type itemRecord struct {
	lock sync.Mutex
	item domain.Item
}

var _ ports.InventoryStore = (*Store)(nil)

// New creates an empty in-memory store
func New(logger *slog.Logger) *Store {
	return &Store{
		slots:  make(map[uuid.UUID]*slotRecord),
		items:  make(map[uuid.UUID]*itemRecord),
		codes:  make(map[string]uuid.UUID),
		logger: logger.With(slog.String("store", "memory")),
	}
}

// Begin opens a unit of work
func (s *Store) Begin(ctx context.Context) (ports.UnitOfWork, error) {
	return &unitOfWork{
		store:       s,
		deleteSlots: make(map[uuid.UUID]bool),
		slotCounts:  make(map[uuid.UUID]int),
		deleteItems: make(map[uuid.UUID]bool),
		itemQty:     make(map[uuid.UUID]int),
		itemPrice:   make(map[uuid.UUID]int64),
	}, nil
}

// ListSlots returns a snapshot of all slots ordered by code.
func (s *Store) ListSlots(ctx context.Context) ([]domain.Slot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	slots := make([]domain.Slot, 0, len(s.slots))
	for _, rec := range s.slots {
		slots = append(slots, rec.slot)
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i].Code < slots[j].Code })
	return slots, nil
}

// GetSlot returns the committed slot or nil. Unlocked read.
func (s *Store) GetSlot(ctx context.Context, slotID uuid.UUID) (*domain.Slot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.slots[slotID]
	if !ok {
		return nil, nil
	}
	cp := rec.slot
	return &cp, nil
}

// FullView returns every slot with its contained items. Advisory snapshot,
// no row locks taken.
func (s *Store) FullView(ctx context.Context) ([]ports.SlotView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	views := make([]ports.SlotView, 0, len(s.slots))
	for _, rec := range s.slots {
		views = append(views, ports.SlotView{
			ID:               rec.slot.ID,
			Code:             rec.slot.Code,
			Capacity:         rec.slot.Capacity,
			CurrentItemCount: rec.slot.CurrentItemCount,
			Items:            s.itemsOfLocked(rec.slot.ID),
		})
	}
	sort.Slice(views, func(i, j int) bool { return views[i].Code < views[j].Code })
	return views, nil
}

// ItemsBySlot returns the committed items of a slot.
func (s *Store) ItemsBySlot(ctx context.Context, slotID uuid.UUID) ([]domain.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.itemsOfLocked(slotID), nil
}

// GetItem returns the committed item or nil. Unlocked read.
func (s *Store) GetItem(ctx context.Context, itemID uuid.UUID) (*domain.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.items[itemID]
	if !ok {
		return nil, nil
	}
	cp := rec.item
	return &cp, nil
}

// itemsOfLocked collects the items of a slot; caller holds s.mu.
func (s *Store) itemsOfLocked(slotID uuid.UUID) []domain.Item {
	items := make([]domain.Item, 0)
	for _, rec := range s.items {
		if rec.item.SlotID == slotID {
			items = append(items, rec.item)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].ID.String() < items[j].ID.String()
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	return items
}

// unitOfWork stages writes against the store and applies them atomically at
// commit while holding the row locks acquired through it.
type unitOfWork struct {
	store *Store
	done  bool

	lockedSlots []*slotRecord
	lockedItems []*itemRecord

	insertSlots []domain.Slot
	deleteSlots map[uuid.UUID]bool
	slotCounts  map[uuid.UUID]int
	insertItems []domain.Item
	deleteItems map[uuid.UUID]bool
	itemQty     map[uuid.UUID]int
	itemPrice   map[uuid.UUID]int64
}

var _ ports.UnitOfWork = (*unitOfWork)(nil)

func (u *unitOfWork) spent(op string) error {
	return &domain.StorageError{Op: op, Err: errors.New("unit of work already finished")}
}

// LockSlot blocks until the slot row lock is acquired and returns the row as
// this unit of work sees it, staged writes included. A row already locked by
// the same unit of work is returned without blocking again. Returns nil when
// the slot does not exist (including when it was deleted while waiting for
// the lock, or staged for deletion by this unit of work).
func (u *unitOfWork) LockSlot(ctx context.Context, slotID uuid.UUID) (*domain.Slot, error) {
	if u.done {
		return nil, u.spent("lock slot")
	}
	if u.deleteSlots[slotID] {
		return nil, nil
	}
	for _, staged := range u.insertSlots {
		if staged.ID == slotID {
			cp := staged
			u.overlaySlot(&cp)
			return &cp, nil
		}
	}

	u.store.mu.RLock()
	rec, ok := u.store.slots[slotID]
	u.store.mu.RUnlock()
	if !ok {
		return nil, nil
	}

	if !u.holdsSlot(rec) {
		// Block outside the map lock so a concurrent commit can proceed.
		rec.lock.Lock()

		u.store.mu.RLock()
		_, present := u.store.slots[slotID]
		u.store.mu.RUnlock()
		if !present {
			rec.lock.Unlock()
			return nil, nil
		}
		u.lockedSlots = append(u.lockedSlots, rec)
	}

	u.store.mu.RLock()
	cp := rec.slot
	u.store.mu.RUnlock()
	u.overlaySlot(&cp)
	return &cp, nil
}

// LockItem blocks until the item row lock is acquired; same contract as
// LockSlot.
func (u *unitOfWork) LockItem(ctx context.Context, itemID uuid.UUID) (*domain.Item, error) {
	if u.done {
		return nil, u.spent("lock item")
	}
	if u.deleteItems[itemID] {
		return nil, nil
	}
	for _, staged := range u.insertItems {
		if staged.ID == itemID {
			cp := staged
			u.overlayItem(&cp)
			return &cp, nil
		}
	}

	u.store.mu.RLock()
	rec, ok := u.store.items[itemID]
	u.store.mu.RUnlock()
	if !ok {
		return nil, nil
	}

	if !u.holdsItem(rec) {
		rec.lock.Lock()

		u.store.mu.RLock()
		_, present := u.store.items[itemID]
		u.store.mu.RUnlock()
		if !present {
			rec.lock.Unlock()
			return nil, nil
		}
		u.lockedItems = append(u.lockedItems, rec)
	}

	u.store.mu.RLock()
	cp := rec.item
	u.store.mu.RUnlock()
	u.overlayItem(&cp)
	return &cp, nil
}

func (u *unitOfWork) holdsSlot(rec *slotRecord) bool {
	for _, held := range u.lockedSlots {
		if held == rec {
			return true
		}
	}
	return false
}

func (u *unitOfWork) holdsItem(rec *itemRecord) bool {
	for _, held := range u.lockedItems {
		if held == rec {
			return true
		}
	}
	return false
}

// overlaySlot applies this unit of work's staged writes to a committed copy.
func (u *unitOfWork) overlaySlot(slot *domain.Slot) {
	if count, ok := u.slotCounts[slot.ID]; ok {
		slot.CurrentItemCount = count
	}
}

func (u *unitOfWork) overlayItem(item *domain.Item) {
	if qty, ok := u.itemQty[item.ID]; ok {
		item.Quantity = qty
	}
	if price, ok := u.itemPrice[item.ID]; ok {
		item.Price = price
	}
}

func (u *unitOfWork) CountSlots(ctx context.Context) (int64, error) {
	if u.done {
		return 0, u.spent("count slots")
	}

	u.store.mu.RLock()
	count := int64(len(u.store.slots))
	u.store.mu.RUnlock()

	count += int64(len(u.insertSlots))
	for id := range u.deleteSlots {
		u.store.mu.RLock()
		_, ok := u.store.slots[id]
		u.store.mu.RUnlock()
		if ok {
			count--
		}
	}
	return count, nil
}

func (u *unitOfWork) SlotCodeExists(ctx context.Context, code string) (bool, error) {
	if u.done {
		return false, u.spent("slot code lookup")
	}

	for _, sl := range u.insertSlots {
		if sl.Code == code {
			return true, nil
		}
	}

	u.store.mu.RLock()
	id, ok := u.store.codes[code]
	u.store.mu.RUnlock()
	return ok && !u.deleteSlots[id], nil
}

// ItemsBySlot merges the committed items of the slot with this transaction's
// staged writes.
func (u *unitOfWork) ItemsBySlot(ctx context.Context, slotID uuid.UUID) ([]domain.Item, error) {
	if u.done {
		return nil, u.spent("list slot items")
	}

	u.store.mu.RLock()
	committed := u.store.itemsOfLocked(slotID)
	u.store.mu.RUnlock()

	items := make([]domain.Item, 0, len(committed))
	for _, it := range committed {
		if u.deleteItems[it.ID] {
			continue
		}
		if qty, ok := u.itemQty[it.ID]; ok {
			it.Quantity = qty
		}
		if price, ok := u.itemPrice[it.ID]; ok {
			it.Price = price
		}
		items = append(items, it)
	}
	for _, it := range u.insertItems {
		if it.SlotID == slotID && !u.deleteItems[it.ID] {
			items = append(items, it)
		}
	}
	return items, nil
}

func (u *unitOfWork) InsertSlot(ctx context.Context, slot *domain.Slot) error {
	if u.done {
		return u.spent("insert slot")
	}
	u.insertSlots = append(u.insertSlots, *slot)
	return nil
}

func (u *unitOfWork) DeleteSlot(ctx context.Context, slotID uuid.UUID) error {
	if u.done {
		return u.spent("delete slot")
	}
	u.deleteSlots[slotID] = true
	return nil
}

func (u *unitOfWork) SetSlotItemCount(ctx context.Context, slotID uuid.UUID, count int) error {
	if u.done {
		return u.spent("set slot item count")
	}
	u.slotCounts[slotID] = count
	return nil
}

func (u *unitOfWork) InsertItem(ctx context.Context, item *domain.Item) error {
	if u.done {
		return u.spent("insert item")
	}
	u.insertItems = append(u.insertItems, *item)
	return nil
}

func (u *unitOfWork) SetItemQuantity(ctx context.Context, itemID uuid.UUID, quantity int) error {
	if u.done {
		return u.spent("set item quantity")
	}
	u.itemQty[itemID] = quantity
	return nil
}

func (u *unitOfWork) SetItemPrice(ctx context.Context, itemID uuid.UUID, price int64) error {
	if u.done {
		return u.spent("set item price")
	}
	u.itemPrice[itemID] = price
	return nil
}

func (u *unitOfWork) DeleteItem(ctx context.Context, itemID uuid.UUID) error {
	if u.done {
		return u.spent("delete item")
	}
	u.deleteItems[itemID] = true
	return nil
}

// Commit applies every staged write atomically, then releases the row locks.
func (u *unitOfWork) Commit(ctx context.Context) error {
	if u.done {
		return u.spent("commit")
	}

	now := time.Now()
	u.store.mu.Lock()

	// Unique-code check runs at commit, mirroring the database constraint:
	// slot creation locks no row, so two concurrent creates only collide here.
	for _, sl := range u.insertSlots {
		if existing, ok := u.store.codes[sl.Code]; ok && !u.deleteSlots[existing] {
			u.store.mu.Unlock()
			u.finish()
			return domain.ErrSlotCodeExists
		}
	}

	for i := range u.insertSlots {
		sl := u.insertSlots[i]
		u.store.slots[sl.ID] = &slotRecord{slot: sl}
		u.store.codes[sl.Code] = sl.ID
	}
	for id, count := range u.slotCounts {
		if u.deleteSlots[id] {
			continue
		}
		if rec, ok := u.store.slots[id]; ok {
			rec.slot.CurrentItemCount = count
			rec.slot.UpdatedAt = now
		}
	}
	for i := range u.insertItems {
		it := u.insertItems[i]
		if u.deleteItems[it.ID] {
			continue
		}
		u.store.items[it.ID] = &itemRecord{item: it}
	}
	for id, qty := range u.itemQty {
		if rec, ok := u.store.items[id]; ok {
			rec.item.Quantity = qty
			rec.item.UpdatedAt = now
		}
	}
	for id, price := range u.itemPrice {
		if rec, ok := u.store.items[id]; ok {
			rec.item.Price = price
			rec.item.UpdatedAt = now
		}
	}
	for id := range u.deleteItems {
		delete(u.store.items, id)
	}
	for id := range u.deleteSlots {
		if rec, ok := u.store.slots[id]; ok {
			delete(u.store.codes, rec.slot.Code)
			delete(u.store.slots, id)
		}
	}

	u.store.mu.Unlock()
	u.finish()
	return nil
}

// Rollback discards staged writes and releases the row locks. Safe to call
// after Commit, matching the deferred-rollback idiom of SQL transactions.
func (u *unitOfWork) Rollback(ctx context.Context) error {
	if u.done {
		return nil
	}
	u.finish()
	return nil
}

// finish releases row locks in reverse acquisition order and marks the unit
// of work as spent.
func (u *unitOfWork) finish() {
	for i := len(u.lockedItems) - 1; i >= 0; i-- {
		u.lockedItems[i].lock.Unlock()
	}
	for i := len(u.lockedSlots) - 1; i >= 0; i-- {
		u.lockedSlots[i].lock.Unlock()
	}
	u.lockedItems = nil
	u.lockedSlots = nil
	u.done = true
}
