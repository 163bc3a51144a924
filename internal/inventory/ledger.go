package inventory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/hotel-pms/hotel-pms/internal/shared"
)

// The functions below mutate stock inside a caller-owned transaction so that
// booking and procurement can combine them with their own writes.

// Allocate consumes the required basics of a room for the given booking. All
// rows are locked and checked before any is decremented; one shortfall aborts
// the whole allocation.
func Allocate(ctx context.Context, tx TxRepository, roomNumber string, bookingID int64) (Allocation, error) {
	ref := strconv.FormatInt(bookingID, 10)
	alloc := Allocation{RoomNumber: roomNumber, RefID: ref}
	lines, err := tx.ListRequiredBasics(ctx, roomNumber)
	if err != nil {
		return Allocation{}, err
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].BasicID < lines[j].BasicID })

	items := make([]BasicInventory, len(lines))
	for i, line := range lines {
		item, err := lockBasic(ctx, tx, line.BasicID)
		if err != nil {
			return Allocation{}, err
		}
		if item.Stock < line.Quantity {
			return Allocation{}, shared.Inventory("basic_inventory", item.ID, ErrInsufficientStock,
				"%s: room %s needs %d, %d in stock", item.Name, roomNumber, line.Quantity, item.Stock)
		}
		items[i] = item
	}

	now := time.Now().UTC()
	for i, line := range lines {
		mv, err := apply(ctx, tx, items[i], -line.Quantity, MovementAllocate, RefBooking, ref, "room "+roomNumber, now)
		if err != nil {
			return Allocation{}, err
		}
		alloc.Lines = append(alloc.Lines, mv)
	}
	return alloc, nil
}

// Release returns whatever the booking still holds. It replays the recorded
// allocate movements rather than the current room template, and releasing
// twice is a no-op.
func Release(ctx context.Context, tx TxRepository, roomNumber string, bookingID int64) (Allocation, error) {
	ref := strconv.FormatInt(bookingID, 10)
	alloc := Allocation{RoomNumber: roomNumber, RefID: ref}
	history, err := tx.ListMovementsByRef(ctx, RefBooking, ref)
	if err != nil {
		return Allocation{}, err
	}
	held := make(map[int64]int)
	for _, mv := range history {
		switch mv.Kind {
		case MovementAllocate, MovementRelease:
			held[mv.BasicID] -= mv.Quantity
		}
	}
	ids := make([]int64, 0, len(held))
	for id, qty := range held {
		if qty > 0 {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	now := time.Now().UTC()
	for _, id := range ids {
		item, err := lockBasic(ctx, tx, id)
		if err != nil {
			return Allocation{}, err
		}
		mv, err := apply(ctx, tx, item, held[id], MovementRelease, RefBooking, ref, "room "+roomNumber, now)
		if err != nil {
			return Allocation{}, err
		}
		alloc.Lines = append(alloc.Lines, mv)
	}
	return alloc, nil
}

// Receive adds purchased quantities to stock.
func Receive(ctx context.Context, tx TxRepository, purchaseID int64, lines []ReceiptLine) ([]Movement, error) {
	totals := make(map[int64]int)
	for _, line := range lines {
		if line.Quantity <= 0 {
			return nil, shared.Validation("purchase_item", line.BasicID, "quantity must be at least 1")
		}
		totals[line.BasicID] += line.Quantity
	}
	ids := make([]int64, 0, len(totals))
	for id := range totals {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	ref := strconv.FormatInt(purchaseID, 10)
	now := time.Now().UTC()
	movements := make([]Movement, 0, len(ids))
	for _, id := range ids {
		item, err := lockBasic(ctx, tx, id)
		if err != nil {
			return nil, err
		}
		mv, err := apply(ctx, tx, item, totals[id], MovementReceive, RefPurchase, ref, fmt.Sprintf("purchase %d", purchaseID), now)
		if err != nil {
			return nil, err
		}
		movements = append(movements, mv)
	}
	return movements, nil
}

// Adjust applies a manual correction, rejecting results below zero.
func Adjust(ctx context.Context, tx TxRepository, input AdjustInput) (Movement, error) {
	if input.Delta == 0 {
		return Movement{}, shared.Validation("basic_inventory", input.BasicID, "adjustment must not be zero")
	}
	item, err := lockBasic(ctx, tx, input.BasicID)
	if err != nil {
		return Movement{}, err
	}
	if item.Stock+input.Delta < 0 {
		return Movement{}, shared.Inventory("basic_inventory", item.ID, ErrNegativeStock,
			"adjusting by %d leaves %d", input.Delta, item.Stock+input.Delta)
	}
	return apply(ctx, tx, item, input.Delta, MovementAdjust, RefAdjustment, uuid.NewString(), input.Note, time.Now().UTC())
}

func lockBasic(ctx context.Context, tx TxRepository, id int64) (BasicInventory, error) {
	item, err := tx.GetBasicForUpdate(ctx, id)
	if err != nil {
		if errors.Is(err, ErrBasicNotFound) {
			return BasicInventory{}, shared.NotFound("basic_inventory", id)
		}
		return BasicInventory{}, err
	}
	return item, nil
}

func apply(ctx context.Context, tx TxRepository, item BasicInventory, delta int, kind MovementKind, refType, refID, note string, at time.Time) (Movement, error) {
	after := item.Stock + delta
	if after < 0 {
		return Movement{}, shared.Inventory("basic_inventory", item.ID, ErrInsufficientStock,
			"%s: %d in stock, %d requested", item.Name, item.Stock, -delta)
	}
	if err := tx.UpdateStock(ctx, item.ID, after); err != nil {
		return Movement{}, err
	}
	mv := Movement{
		ID:          uuid.New(),
		BasicID:     item.ID,
		Kind:        kind,
		Quantity:    delta,
		StockBefore: item.Stock,
		StockAfter:  after,
		RefType:     refType,
		RefID:       refID,
		Note:        note,
		ActorID:     shared.ActorID(ctx),
		CreatedAt:   at,
	}
	if err := tx.InsertMovement(ctx, mv); err != nil {
		return Movement{}, err
	}
	return mv, nil
}
