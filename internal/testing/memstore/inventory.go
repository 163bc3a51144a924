package memstore

import (
	"context"
	"slices"
	"sort"

	"github.com/hotel-pms/hotel-pms/internal/inventory"
)

// InventoryRepo implements inventory.RepositoryPort.
type InventoryRepo struct{ s *Store }

// Inventory returns the inventory view of the store.
func (s *Store) Inventory() *InventoryRepo { return &InventoryRepo{s: s} }

// WithTx runs fn as one transaction.
func (r *InventoryRepo) WithTx(ctx context.Context, fn func(context.Context, inventory.TxRepository) error) error {
	return r.s.atomically(func(st *state) error {
		return fn(ctx, &invTx{s: r.s, st: st})
	})
}

func (r *InventoryRepo) GetBasic(_ context.Context, id int64) (inventory.BasicInventory, error) {
	var (
		item inventory.BasicInventory
		ok   bool
	)
	r.s.locked(func(st *state) { item, ok = st.basics[id] })
	if !ok {
		return inventory.BasicInventory{}, inventory.ErrBasicNotFound
	}
	return item, nil
}

func (r *InventoryRepo) ListBasics(_ context.Context, filter inventory.BasicFilter) ([]inventory.BasicInventory, error) {
	var out []inventory.BasicInventory
	r.s.locked(func(st *state) {
		for _, b := range st.basics {
			if filter.Category != "" && b.Category != filter.Category {
				continue
			}
			if filter.ActiveOnly && !b.Active {
				continue
			}
			out = append(out, b)
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *InventoryRepo) ListRoomBasics(_ context.Context, roomNumber string) ([]inventory.RoomBasic, error) {
	var out []inventory.RoomBasic
	r.s.locked(func(st *state) {
		for _, rb := range st.roomBasics {
			if rb.RoomNumber == roomNumber {
				out = append(out, rb)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return out[i].BasicID < out[j].BasicID
	})
	return out, nil
}

func (r *InventoryRepo) StockCard(_ context.Context, basicID int64, limit int) ([]inventory.Movement, error) {
	var out []inventory.Movement
	r.s.locked(func(st *state) {
		for i := len(st.movements) - 1; i >= 0; i-- {
			if st.movements[i].BasicID == basicID {
				out = append(out, st.movements[i])
			}
		}
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ScanBelowMinimum copies the matching rows before calling fn so that fn
// may use the store.
func (r *InventoryRepo) ScanBelowMinimum(_ context.Context, fn func(inventory.BasicInventory) error) error {
	var rows []inventory.BasicInventory
	r.s.locked(func(st *state) {
		for _, b := range st.basics {
			if b.BelowMinimum() {
				rows = append(rows, b)
			}
		}
	})
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })
	for _, b := range rows {
		if err := fn(b); err != nil {
			return err
		}
	}
	return nil
}

type invTx struct {
	s  *Store
	st *state
}

func (t *invTx) ListRequiredBasics(_ context.Context, roomNumber string) ([]inventory.RoomBasic, error) {
	var out []inventory.RoomBasic
	for _, rb := range t.st.roomBasics {
		if rb.RoomNumber == roomNumber && rb.Required && t.st.basics[rb.BasicID].Active {
			out = append(out, rb)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BasicID < out[j].BasicID })
	return out, nil
}

func (t *invTx) GetBasicForUpdate(_ context.Context, id int64) (inventory.BasicInventory, error) {
	item, ok := t.st.basics[id]
	if !ok {
		return inventory.BasicInventory{}, inventory.ErrBasicNotFound
	}
	return item, nil
}

func (t *invTx) UpdateStock(_ context.Context, id int64, stock int) error {
	item, ok := t.st.basics[id]
	if !ok {
		return inventory.ErrBasicNotFound
	}
	if stock < 0 {
		// Mirrors the CHECK (stock >= 0) constraint.
		return inventory.ErrNegativeStock
	}
	item.Stock = stock
	item.UpdatedAt = t.s.Now()
	t.st.basics[id] = item
	return nil
}

func (t *invTx) InsertMovement(_ context.Context, mv inventory.Movement) error {
	t.st.movements = append(t.st.movements, mv)
	return nil
}

func (t *invTx) ListMovementsByRef(_ context.Context, refType, refID string) ([]inventory.Movement, error) {
	var out []inventory.Movement
	for _, mv := range t.st.movements {
		if mv.RefType == refType && mv.RefID == refID {
			out = append(out, mv)
		}
	}
	return slices.Clip(out), nil
}

func (t *invTx) InsertBasic(_ context.Context, item inventory.BasicInventory) (int64, error) {
	item.ID = t.st.nextID()
	item.CreatedAt = t.s.Now()
	item.UpdatedAt = item.CreatedAt
	t.st.basics[item.ID] = item
	return item.ID, nil
}

func (t *invTx) UpdateBasic(_ context.Context, item inventory.BasicInventory) error {
	current, ok := t.st.basics[item.ID]
	if !ok {
		return inventory.ErrBasicNotFound
	}
	item.Stock = current.Stock
	item.CreatedAt = current.CreatedAt
	item.UpdatedAt = t.s.Now()
	t.st.basics[item.ID] = item
	return nil
}

func (t *invTx) UpsertRoomBasic(_ context.Context, rb inventory.RoomBasic) (int64, error) {
	for id, existing := range t.st.roomBasics {
		if existing.RoomNumber == rb.RoomNumber && existing.BasicID == rb.BasicID {
			rb.ID = id
			t.st.roomBasics[id] = rb
			return id, nil
		}
	}
	rb.ID = t.st.nextID()
	t.st.roomBasics[rb.ID] = rb
	return rb.ID, nil
}

func (t *invTx) DeleteRoomBasic(_ context.Context, roomNumber string, basicID int64) error {
	for id, rb := range t.st.roomBasics {
		if rb.RoomNumber == roomNumber && rb.BasicID == basicID {
			delete(t.st.roomBasics, id)
			return nil
		}
	}
	return inventory.ErrRoomBasicNotFound
}
