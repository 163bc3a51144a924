package inventory

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"strconv"
	"strings"

	"github.com/hotel-pms/hotel-pms/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetBasic(ctx context.Context, id int64) (BasicInventory, error)
	ListBasics(ctx context.Context, filter BasicFilter) ([]BasicInventory, error)
	ListRoomBasics(ctx context.Context, roomNumber string) ([]RoomBasic, error)
	StockCard(ctx context.Context, basicID int64, limit int) ([]Movement, error)
	ScanBelowMinimum(ctx context.Context, fn func(BasicInventory) error) error
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates inventory operations.
type Service struct {
	repo   RepositoryPort
	audit  AuditPort
	logger *slog.Logger
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, logger: logger}
}

// Allocate consumes a room's required basics for a booking in its own transaction.
// Booking transitions call the package-level Allocate inside their own
// transaction instead; this entry point moves stock for a booking outside
// a status change.
func (s *Service) Allocate(ctx context.Context, roomNumber string, bookingID int64) (Allocation, error) {
	var alloc Allocation
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		alloc, err = Allocate(ctx, tx, roomNumber, bookingID)
		return err
	})
	if err != nil {
		return Allocation{}, shared.Attach(err, "room", roomNumber)
	}
	s.record(ctx, "inventory:allocate", "booking", strconv.FormatInt(bookingID, 10), map[string]any{"room": roomNumber, "lines": len(alloc.Lines)})
	return alloc, nil
}

// Release returns a booking's allocated basics in its own transaction.
// Like Allocate it is the standalone form of what cancellation does inline.
func (s *Service) Release(ctx context.Context, roomNumber string, bookingID int64) (Allocation, error) {
	var alloc Allocation
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		alloc, err = Release(ctx, tx, roomNumber, bookingID)
		return err
	})
	if err != nil {
		return Allocation{}, shared.Attach(err, "room", roomNumber)
	}
	s.record(ctx, "inventory:release", "booking", strconv.FormatInt(bookingID, 10), map[string]any{"room": roomNumber, "lines": len(alloc.Lines)})
	return alloc, nil
}

// Receive books purchased quantities into stock in its own transaction.
// Procurement receives inside the purchase transaction; this form books a
// receipt on its own.
func (s *Service) Receive(ctx context.Context, purchaseID int64, lines []ReceiptLine) ([]Movement, error) {
	var movements []Movement
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		movements, err = Receive(ctx, tx, purchaseID, lines)
		return err
	})
	if err != nil {
		return nil, shared.Attach(err, "purchase", purchaseID)
	}
	return movements, nil
}

// Adjust applies a manual stock correction.
func (s *Service) Adjust(ctx context.Context, input AdjustInput) (Movement, error) {
	var mv Movement
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		mv, err = Adjust(ctx, tx, input)
		return err
	})
	if err != nil {
		return Movement{}, shared.Attach(err, "basic_inventory", input.BasicID)
	}
	s.record(ctx, "inventory:adjust", "basic_inventory", strconv.FormatInt(input.BasicID, 10), map[string]any{
		"delta": input.Delta,
		"stock": mv.StockAfter,
		"note":  input.Note,
	})
	return mv, nil
}

// OpeningStockNote labels the adjustment that books an item's initial stock.
const OpeningStockNote = "opening stock"

// CreateBasic registers a new supply item. Initial stock is recorded as an
// adjustment movement in the same transaction.
func (s *Service) CreateBasic(ctx context.Context, input BasicInput) (BasicInventory, error) {
	item := BasicInventory{
		Name:         strings.TrimSpace(input.Name),
		Description:  strings.TrimSpace(input.Description),
		Stock:        input.InitialStock,
		MinimumStock: input.MinimumStock,
		UnitPrice:    input.UnitPrice,
		Category:     input.Category,
		Active:       input.Active,
	}
	if err := validateBasic(item); err != nil {
		return BasicInventory{}, err
	}
	if item.Stock < 0 {
		return BasicInventory{}, shared.Validation("basic_inventory", "", "initial stock must not be negative")
	}
	opening := item.Stock
	item.Stock = 0
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.InsertBasic(ctx, item)
		if err != nil {
			return err
		}
		item.ID = id
		if opening == 0 {
			return nil
		}
		// Opening stock enters through the ledger so the stock card adds up.
		_, err = Adjust(ctx, tx, AdjustInput{BasicID: id, Delta: opening, Note: OpeningStockNote})
		return err
	})
	if err != nil {
		return BasicInventory{}, err
	}
	s.record(ctx, "inventory:create", "basic_inventory", strconv.FormatInt(item.ID, 10), map[string]any{"name": item.Name, "stock": opening})
	return s.GetBasic(ctx, item.ID)
}

// UpdateBasic changes attributes of an item. Stock is only moved through the ledger.
func (s *Service) UpdateBasic(ctx context.Context, id int64, patch BasicPatch) (BasicInventory, error) {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		item, err := lockBasic(ctx, tx, id)
		if err != nil {
			return err
		}
		if patch.Name != nil {
			item.Name = strings.TrimSpace(*patch.Name)
		}
		if patch.Description != nil {
			item.Description = strings.TrimSpace(*patch.Description)
		}
		if patch.MinimumStock != nil {
			item.MinimumStock = *patch.MinimumStock
		}
		if patch.UnitPrice != nil {
			item.UnitPrice = *patch.UnitPrice
		}
		if patch.Category != nil {
			item.Category = *patch.Category
		}
		if patch.Active != nil {
			item.Active = *patch.Active
		}
		if err := validateBasic(item); err != nil {
			return err
		}
		return tx.UpdateBasic(ctx, item)
	})
	if err != nil {
		return BasicInventory{}, shared.Attach(err, "basic_inventory", id)
	}
	s.record(ctx, "inventory:update", "basic_inventory", strconv.FormatInt(id, 10), nil)
	return s.GetBasic(ctx, id)
}

// SetRoomBasic creates or replaces the template line for (room, item).
func (s *Service) SetRoomBasic(ctx context.Context, rb RoomBasic) (RoomBasic, error) {
	rb.RoomNumber = strings.TrimSpace(rb.RoomNumber)
	if rb.RoomNumber == "" {
		return RoomBasic{}, shared.Validation("room_basic", "", "room number required")
	}
	if rb.Quantity < 1 {
		return RoomBasic{}, shared.Validation("room_basic", rb.BasicID, "quantity must be at least 1")
	}
	if rb.Priority < 1 || rb.Priority > 5 {
		return RoomBasic{}, shared.Validation("room_basic", rb.BasicID, "priority must be between 1 and 5")
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := lockBasic(ctx, tx, rb.BasicID); err != nil {
			return err
		}
		id, err := tx.UpsertRoomBasic(ctx, rb)
		if err != nil {
			return err
		}
		rb.ID = id
		return nil
	})
	if err != nil {
		return RoomBasic{}, shared.Attach(err, "room", rb.RoomNumber)
	}
	s.record(ctx, "inventory:room_basic", "room", rb.RoomNumber, map[string]any{"basic_id": rb.BasicID, "quantity": rb.Quantity, "required": rb.Required})
	return rb, nil
}

// RemoveRoomBasic deletes the template line for (room, item).
func (s *Service) RemoveRoomBasic(ctx context.Context, roomNumber string, basicID int64) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.DeleteRoomBasic(ctx, roomNumber, basicID)
	})
	if errors.Is(err, ErrRoomBasicNotFound) {
		return shared.NotFound("room_basic", fmt.Sprintf("%s/%d", roomNumber, basicID))
	}
	return err
}

// GetBasic returns one item.
func (s *Service) GetBasic(ctx context.Context, id int64) (BasicInventory, error) {
	item, err := s.repo.GetBasic(ctx, id)
	if errors.Is(err, ErrBasicNotFound) {
		return BasicInventory{}, shared.NotFound("basic_inventory", id)
	}
	return item, err
}

// ListBasics lists items.
func (s *Service) ListBasics(ctx context.Context, filter BasicFilter) ([]BasicInventory, error) {
	return s.repo.ListBasics(ctx, filter)
}

// ListRoomBasics lists a room's template.
func (s *Service) ListRoomBasics(ctx context.Context, roomNumber string) ([]RoomBasic, error) {
	return s.repo.ListRoomBasics(ctx, roomNumber)
}

// StockCard lists the movements of an item, newest first.
func (s *Service) StockCard(ctx context.Context, basicID int64, limit int) ([]Movement, error) {
	if _, err := s.GetBasic(ctx, basicID); err != nil {
		return nil, err
	}
	return s.repo.StockCard(ctx, basicID, limit)
}

// errStopScan ends a repository scan early when the consumer stops ranging.
var errStopScan = errors.New("inventory: scan stopped")

// BelowMinimum yields the active items whose stock is below their minimum.
// Rows are produced lazily from the repository cursor; breaking out of the
// loop closes it.
func (s *Service) BelowMinimum(ctx context.Context) iter.Seq2[BasicInventory, error] {
	return func(yield func(BasicInventory, error) bool) {
		err := s.repo.ScanBelowMinimum(ctx, func(item BasicInventory) error {
			if !yield(item, nil) {
				return errStopScan
			}
			return nil
		})
		if err != nil && !errors.Is(err, errStopScan) {
			yield(BasicInventory{}, err)
		}
	}
}

func (s *Service) record(ctx context.Context, action, entity, entityID string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  shared.ActorID(ctx),
		Action:   action,
		Entity:   entity,
		EntityID: entityID,
		Meta:     meta,
	}); err != nil {
		s.logger.Warn("inventory audit", slog.String("action", action), slog.Any("error", err))
	}
}

func validateBasic(item BasicInventory) error {
	switch {
	case item.Name == "":
		return shared.Validation("basic_inventory", item.ID, "name required")
	case !item.Category.Valid():
		return shared.Validation("basic_inventory", item.ID, "unknown category %q", item.Category)
	case item.MinimumStock < 0:
		return shared.Validation("basic_inventory", item.ID, "minimum stock must not be negative")
	case item.UnitPrice.IsNegative():
		return shared.Validation("basic_inventory", item.ID, "unit price must not be negative")
	}
	return nil
}
