// internal/adapters/db/store.go
package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/satyam-tomar/vending-machine-api/internal/core/domain"
	"github.com/satyam-tomar/vending-machine-api/internal/core/ports"
)

const (
	slotColumns = "id, code, capacity, current_item_count, created_at, updated_at"
	itemColumns = "id, slot_id, name, price, quantity, created_at, updated_at"

	pgUniqueViolation = "23505"
)

// Store implements ports.InventoryStore on PostgreSQL. Row locks are taken
// with SELECT FOR UPDATE inside a transaction per unit of work, so lock
// waiting and release follow the database's own semantics.
type Store struct {
	db     *Database
	logger *slog.Logger
}

var _ ports.InventoryStore = (*Store)(nil)

// NewStore creates a new PostgreSQL-backed inventory store
func NewStore(database *Database, logger *slog.Logger) *Store {
	return &Store{
		db:     database,
		logger: logger.With(slog.String("store", "postgres")),
	}
}

func storageErr(op string, err error) error {
	return &domain.StorageError{Op: op, Err: err}
}

// Begin opens a unit of work backed by a database transaction.
func (s *Store) Begin(ctx context.Context) (ports.UnitOfWork, error) {
	tx, err := s.db.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, storageErr("begin", err)
	}
	return &unitOfWork{tx: tx}, nil
}

// ListSlots returns all slots ordered by code.
func (s *Store) ListSlots(ctx context.Context) ([]domain.Slot, error) {
	query, args, err := squirrel.Select(slotColumns).
		From("slots").
		OrderBy("code ASC").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, storageErr("list slots", err)
	}

	rows, err := s.db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, storageErr("list slots", err)
	}
	defer rows.Close()

	return scanSlots(rows)
}

// GetSlot returns the slot or nil. Unlocked read.
func (s *Store) GetSlot(ctx context.Context, slotID uuid.UUID) (*domain.Slot, error) {
	row := s.db.pool.QueryRow(ctx,
		fmt.Sprintf("SELECT %s FROM slots WHERE id = $1", slotColumns), slotID)
	slot, err := scanSlot(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, storageErr("get slot", err)
	}
	return slot, nil
}

// FullView returns every slot with its contained items. Two plain reads, no
// locks; the result is a reporting snapshot.
func (s *Store) FullView(ctx context.Context) ([]ports.SlotView, error) {
	slots, err := s.ListSlots(ctx)
	if err != nil {
		return nil, err
	}

	query, args, err := squirrel.Select(itemColumns).
		From("items").
		OrderBy("slot_id ASC", "created_at ASC").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, storageErr("full view", err)
	}

	rows, err := s.db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, storageErr("full view", err)
	}
	defer rows.Close()

	items, err := scanItems(rows)
	if err != nil {
		return nil, err
	}

	bySlot := make(map[uuid.UUID][]domain.Item, len(slots))
	for _, it := range items {
		bySlot[it.SlotID] = append(bySlot[it.SlotID], it)
	}

	views := make([]ports.SlotView, 0, len(slots))
	for _, sl := range slots {
		slotItems := bySlot[sl.ID]
		if slotItems == nil {
			slotItems = []domain.Item{}
		}
		views = append(views, ports.SlotView{
			ID:               sl.ID,
			Code:             sl.Code,
			Capacity:         sl.Capacity,
			CurrentItemCount: sl.CurrentItemCount,
			Items:            slotItems,
		})
	}
	return views, nil
}

// ItemsBySlot returns the committed items of a slot.
func (s *Store) ItemsBySlot(ctx context.Context, slotID uuid.UUID) ([]domain.Item, error) {
	query, args, err := squirrel.Select(itemColumns).
		From("items").
		Where(squirrel.Eq{"slot_id": slotID}).
		OrderBy("created_at ASC", "id ASC").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, storageErr("list items", err)
	}

	rows, err := s.db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, storageErr("list items", err)
	}
	defer rows.Close()

	return scanItems(rows)
}

// GetItem returns the item or nil. Unlocked read.
func (s *Store) GetItem(ctx context.Context, itemID uuid.UUID) (*domain.Item, error) {
	row := s.db.pool.QueryRow(ctx,
		fmt.Sprintf("SELECT %s FROM items WHERE id = $1", itemColumns), itemID)
	item, err := scanItem(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, storageErr("get item", err)
	}
	return item, nil
}

// unitOfWork wraps one pgx transaction.
type unitOfWork struct {
	tx pgx.Tx
}

var _ ports.UnitOfWork = (*unitOfWork)(nil)

// LockSlot blocks on the slot row lock, database-side.
func (u *unitOfWork) LockSlot(ctx context.Context, slotID uuid.UUID) (*domain.Slot, error) {
	row := u.tx.QueryRow(ctx,
		fmt.Sprintf("SELECT %s FROM slots WHERE id = $1 FOR UPDATE", slotColumns), slotID)
	slot, err := scanSlot(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, storageErr("lock slot", err)
	}
	return slot, nil
}

// LockItem blocks on the item row lock, database-side.
func (u *unitOfWork) LockItem(ctx context.Context, itemID uuid.UUID) (*domain.Item, error) {
	row := u.tx.QueryRow(ctx,
		fmt.Sprintf("SELECT %s FROM items WHERE id = $1 FOR UPDATE", itemColumns), itemID)
	item, err := scanItem(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, storageErr("lock item", err)
	}
	return item, nil
}

func (u *unitOfWork) CountSlots(ctx context.Context) (int64, error) {
	var count int64
	if err := u.tx.QueryRow(ctx, "SELECT COUNT(*) FROM slots").Scan(&count); err != nil {
		return 0, storageErr("count slots", err)
	}
	return count, nil
}

func (u *unitOfWork) SlotCodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := u.tx.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM slots WHERE code = $1)", code).Scan(&exists)
	if err != nil {
		return false, storageErr("slot code lookup", err)
	}
	return exists, nil
}

// ItemsBySlot reads inside the transaction, so it observes the transaction's
// own writes.
func (u *unitOfWork) ItemsBySlot(ctx context.Context, slotID uuid.UUID) ([]domain.Item, error) {
	rows, err := u.tx.Query(ctx,
		fmt.Sprintf("SELECT %s FROM items WHERE slot_id = $1 ORDER BY created_at ASC, id ASC", itemColumns),
		slotID)
	if err != nil {
		return nil, storageErr("list items", err)
	}
	defer rows.Close()

	return scanItems(rows)
}

func (u *unitOfWork) InsertSlot(ctx context.Context, slot *domain.Slot) error {
	query, args, err := squirrel.Insert("slots").
		Columns("id", "code", "capacity", "current_item_count", "created_at", "updated_at").
		Values(slot.ID, slot.Code, slot.Capacity, slot.CurrentItemCount, slot.CreatedAt, slot.UpdatedAt).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return storageErr("insert slot", err)
	}

	if _, err := u.tx.Exec(ctx, query, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return domain.ErrSlotCodeExists
		}
		return storageErr("insert slot", err)
	}
	return nil
}

func (u *unitOfWork) DeleteSlot(ctx context.Context, slotID uuid.UUID) error {
	if _, err := u.tx.Exec(ctx, "DELETE FROM slots WHERE id = $1", slotID); err != nil {
		return storageErr("delete slot", err)
	}
	return nil
}

func (u *unitOfWork) SetSlotItemCount(ctx context.Context, slotID uuid.UUID, count int) error {
	_, err := u.tx.Exec(ctx,
		"UPDATE slots SET current_item_count = $1, updated_at = $2 WHERE id = $3",
		count, time.Now(), slotID)
	if err != nil {
		return storageErr("set slot item count", err)
	}
	return nil
}

func (u *unitOfWork) InsertItem(ctx context.Context, item *domain.Item) error {
	query, args, err := squirrel.Insert("items").
		Columns("id", "slot_id", "name", "price", "quantity", "created_at", "updated_at").
		Values(item.ID, item.SlotID, item.Name, item.Price, item.Quantity, item.CreatedAt, item.UpdatedAt).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return storageErr("insert item", err)
	}

	if _, err := u.tx.Exec(ctx, query, args...); err != nil {
		return storageErr("insert item", err)
	}
	return nil
}

func (u *unitOfWork) SetItemQuantity(ctx context.Context, itemID uuid.UUID, quantity int) error {
	_, err := u.tx.Exec(ctx,
		"UPDATE items SET quantity = $1, updated_at = $2 WHERE id = $3",
		quantity, time.Now(), itemID)
	if err != nil {
		return storageErr("set item quantity", err)
	}
	return nil
}

func (u *unitOfWork) SetItemPrice(ctx context.Context, itemID uuid.UUID, price int64) error {
	_, err := u.tx.Exec(ctx,
		"UPDATE items SET price = $1, updated_at = $2 WHERE id = $3",
		price, time.Now(), itemID)
	if err != nil {
		return storageErr("set item price", err)
	}
	return nil
}

func (u *unitOfWork) DeleteItem(ctx context.Context, itemID uuid.UUID) error {
	if _, err := u.tx.Exec(ctx, "DELETE FROM items WHERE id = $1", itemID); err != nil {
		return storageErr("delete item", err)
	}
	return nil
}

func (u *unitOfWork) Commit(ctx context.Context) error {
	if err := u.tx.Commit(ctx); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return domain.ErrSlotCodeExists
		}
		return storageErr("commit", err)
	}
	return nil
}

// Rollback is safe to call after Commit, matching the deferred rollback
// idiom.
func (u *unitOfWork) Rollback(ctx context.Context) error {
	if err := u.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return storageErr("rollback", err)
	}
	return nil
}

// Scanning helpers

func scanSlot(row pgx.Row) (*domain.Slot, error) {
	var slot domain.Slot
	err := row.Scan(&slot.ID, &slot.Code, &slot.Capacity, &slot.CurrentItemCount,
		&slot.CreatedAt, &slot.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &slot, nil
}

func scanSlots(rows pgx.Rows) ([]domain.Slot, error) {
	slots := make([]domain.Slot, 0)
	for rows.Next() {
		var slot domain.Slot
		err := rows.Scan(&slot.ID, &slot.Code, &slot.Capacity, &slot.CurrentItemCount,
			&slot.CreatedAt, &slot.UpdatedAt)
		if err != nil {
			return nil, storageErr("scan slot", err)
		}
		slots = append(slots, slot)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("scan slots", err)
	}
	return slots, nil
}

func scanItem(row pgx.Row) (*domain.Item, error) {
	var item domain.Item
	err := row.Scan(&item.ID, &item.SlotID, &item.Name, &item.Price, &item.Quantity,
		&item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func scanItems(rows pgx.Rows) ([]domain.Item, error) {
	items := make([]domain.Item, 0)
	for rows.Next() {
		var item domain.Item
		err := rows.Scan(&item.ID, &item.SlotID, &item.Name, &item.Price, &item.Quantity,
			&item.CreatedAt, &item.UpdatedAt)
		if err != nil {
			return nil, storageErr("scan item", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("scan items", err)
	}
	return items, nil
}
