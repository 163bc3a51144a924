package booking

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hotel-pms/hotel-pms/internal/inventory"
	"github.com/hotel-pms/hotel-pms/internal/observability"
	"github.com/hotel-pms/hotel-pms/internal/payments"
	"github.com/hotel-pms/hotel-pms/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetBooking(ctx context.Context, id int64) (Booking, error)
	ListBookings(ctx context.Context, filter ListFilter, page shared.Page) ([]Booking, int, error)
	ListStatusEvents(ctx context.Context, bookingID int64) ([]StatusEvent, error)
}

// CapacityProvider supplies the guest limit of a room's category.
type CapacityProvider interface {
	MaxGuests(ctx context.Context, roomNumber string) (int, error)
}

// AccountReader reads the payment side of a booking.
type AccountReader interface {
	Summary(ctx context.Context, bookingID int64) (payments.Summary, error)
	Payments(ctx context.Context, bookingID int64) ([]payments.Payment, error)
	Charges(ctx context.Context, bookingID int64) ([]payments.ExtraCharge, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service drives bookings through their lifecycle.
type Service struct {
	repo     RepositoryPort
	capacity CapacityProvider
	accounts AccountReader
	idem     *shared.IdempotencyStore
	audit    AuditPort
	metrics  *observability.DomainMetrics
	logger   *slog.Logger
	now      func() time.Time
}

// NewService builds Service. accounts, idem, audit and metrics may be nil.
func NewService(repo RepositoryPort, capacity CapacityProvider, accounts AccountReader, idem *shared.IdempotencyStore, audit AuditPort, metrics *observability.DomainMetrics, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:     repo,
		capacity: capacity,
		accounts: accounts,
		idem:     idem,
		audit:    audit,
		metrics:  metrics,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

const idempotencyModule = "bookings"

// Create registers a pending booking after checking the stay, the guest count
// against the room category and overlap with other active stays of the room.
func (s *Service) Create(ctx context.Context, input CreateInput) (Booking, error) {
	b := Booking{
		RoomNumber:  strings.TrimSpace(input.RoomNumber),
		GuestName:   strings.TrimSpace(input.GuestName),
		CheckIn:     input.CheckIn.UTC(),
		CheckOut:    input.CheckOut.UTC(),
		PointOfSale: input.PointOfSale,
		GuestCount:  input.GuestCount,
		TotalAmount: input.TotalAmount,
		Status:      StatusPending,
		Notes:       strings.TrimSpace(input.Notes),
		CreatedBy:   shared.ActorID(ctx),
	}
	if err := validateCreate(b); err != nil {
		return Booking{}, err
	}
	maxGuests, err := s.capacity.MaxGuests(ctx, b.RoomNumber)
	if err != nil {
		return Booking{}, err
	}
	if b.GuestCount > maxGuests {
		return Booking{}, shared.Validation("room", b.RoomNumber, "%d guests exceed the category limit of %d", b.GuestCount, maxGuests)
	}

	key := strings.TrimSpace(input.IdempotencyKey)
	if key != "" && s.idem != nil {
		fp := shared.Fingerprint(b.RoomNumber, b.CheckIn.Format(time.RFC3339), b.CheckOut.Format(time.RFC3339), strconv.Itoa(b.GuestCount), b.TotalAmount.String())
		if err := s.idem.CheckAndInsert(ctx, key, idempotencyModule, fp); err != nil {
			return Booking{}, err
		}
	}

	at := s.now()
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.LockRoom(ctx, b.RoomNumber); err != nil {
			if errors.Is(err, ErrRoomNotFound) {
				return shared.NotFound("room", b.RoomNumber)
			}
			return err
		}
		overlap, err := tx.HasOverlap(ctx, b.RoomNumber, b.CheckIn, b.CheckOut)
		if err != nil {
			return err
		}
		if overlap {
			return shared.NewError(shared.KindValidation, "room", b.RoomNumber, ErrOverlap,
				"already booked between %s and %s", b.CheckIn.Format(time.DateOnly), b.CheckOut.Format(time.DateOnly))
		}
		id, err := tx.InsertBooking(ctx, b)
		if err != nil {
			return err
		}
		b.ID = id
		return tx.InsertStatusEvent(ctx, StatusEvent{BookingID: id, To: StatusPending, ActorID: b.CreatedBy, At: at})
	})
	if err != nil {
		if key != "" && s.idem != nil {
			if delErr := s.idem.Delete(ctx, key, idempotencyModule); delErr != nil {
				s.logger.Warn("release idempotency key", slog.String("key", key), slog.Any("error", delErr))
			}
		}
		s.metrics.Rejected("booking", err)
		return Booking{}, err
	}
	s.metrics.Transition(string(StatusPending))
	s.record(ctx, "booking:create", b.ID, map[string]any{
		"room":   b.RoomNumber,
		"guests": b.GuestCount,
		"total":  b.TotalAmount.String(),
	})
	return s.Get(ctx, b.ID)
}

// Confirm moves a pending booking to confirmed.
func (s *Service) Confirm(ctx context.Context, id int64) (Booking, error) {
	return s.apply(ctx, id, CommandConfirm, "")
}

// CheckIn moves a confirmed booking to checked-in and consumes the room's
// required basics in the same transaction.
func (s *Service) CheckIn(ctx context.Context, id int64) (Booking, error) {
	return s.apply(ctx, id, CommandCheckIn, "")
}

// Complete closes a stay once its account is settled.
func (s *Service) Complete(ctx context.Context, id int64) (Booking, error) {
	return s.apply(ctx, id, CommandComplete, "")
}

// Invoice marks a completed booking facturada. Invoicing twice returns the
// booking unchanged.
func (s *Service) Invoice(ctx context.Context, id int64) (Booking, error) {
	return s.apply(ctx, id, CommandInvoice, "")
}

// Cancel ends a booking before completion, returning any allocated basics.
func (s *Service) Cancel(ctx context.Context, id int64, reason string) (Booking, error) {
	return s.apply(ctx, id, CommandCancel, strings.TrimSpace(reason))
}

func (s *Service) apply(ctx context.Context, id int64, cmd Command, reason string) (Booking, error) {
	var (
		from     Status
		decision Decision
		moved    []inventory.Movement
	)
	actor := shared.ActorID(ctx)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		moved = nil
		b, err := tx.GetBookingForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, ErrBookingNotFound) {
				return shared.NotFound("booking", id)
			}
			return err
		}
		from = b.Status
		decision, err = Transition(b.Status, cmd)
		if err != nil {
			return err
		}
		if decision.NoOp {
			return nil
		}
		at := s.now()
		for _, effect := range decision.Effects {
			switch effect {
			case EffectAllocateInventory:
				alloc, err := inventory.Allocate(ctx, tx.Inventory(), b.RoomNumber, b.ID)
				if err != nil {
					return err
				}
				moved = append(moved, alloc.Lines...)
			case EffectReleaseInventory:
				alloc, err := inventory.Release(ctx, tx.Inventory(), b.RoomNumber, b.ID)
				if err != nil {
					return err
				}
				moved = append(moved, alloc.Lines...)
			case EffectRequireSettlement:
				ledger, err := payments.LoadLedger(ctx, tx.Payments(), payments.BookingRef{ID: b.ID, Status: string(b.Status), TotalAmount: b.TotalAmount})
				if err != nil {
					return err
				}
				if err := ledger.CheckSettled(); err != nil {
					return err
				}
			case EffectSoftDelete:
				b.DeletedAt = &at
				b.CancelReason = reason
			}
		}
		b.Status = decision.Next
		if err := tx.UpdateStatus(ctx, b); err != nil {
			return err
		}
		return tx.InsertStatusEvent(ctx, StatusEvent{BookingID: b.ID, From: from, To: b.Status, ActorID: actor, Note: reason, At: at})
	})
	if err != nil {
		s.metrics.Rejected("booking", err)
		return Booking{}, shared.Attach(err, "booking", id)
	}
	if !decision.NoOp {
		s.metrics.Transition(string(decision.Next))
		for _, mv := range moved {
			s.metrics.StockMoved(string(mv.Kind), 1)
		}
		s.record(ctx, "booking:"+string(cmd), id, map[string]any{
			"from":      from,
			"to":        decision.Next,
			"movements": len(moved),
		})
	}
	return s.Get(ctx, id)
}

// Get returns one booking.
func (s *Service) Get(ctx context.Context, id int64) (Booking, error) {
	b, err := s.repo.GetBooking(ctx, id)
	if errors.Is(err, ErrBookingNotFound) {
		return Booking{}, shared.NotFound("booking", id)
	}
	return b, err
}

// List returns one page of bookings.
func (s *Service) List(ctx context.Context, filter ListFilter, page shared.Page) ([]Booking, shared.Pagination, error) {
	if filter.Status != "" {
		if _, err := ParseStatus(string(filter.Status)); err != nil {
			return nil, shared.Pagination{}, err
		}
	}
	page = page.Normalize()
	items, total, err := s.repo.ListBookings(ctx, filter, page)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return items, shared.NewPagination(page, total), nil
}

// History returns the status events of a booking.
func (s *Service) History(ctx context.Context, id int64) ([]StatusEvent, error) {
	return s.repo.ListStatusEvents(ctx, id)
}

// Folio reads a booking, its account and its history concurrently.
func (s *Service) Folio(ctx context.Context, id int64) (Folio, error) {
	if s.accounts == nil {
		return Folio{}, errors.New("booking: account reader not configured")
	}
	var folio Folio
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		b, err := s.Get(gctx, id)
		folio.Booking = b
		return err
	})
	g.Go(func() error {
		summary, err := s.accounts.Summary(gctx, id)
		folio.Summary = summary
		return err
	})
	g.Go(func() error {
		pays, err := s.accounts.Payments(gctx, id)
		folio.Payments = pays
		return err
	})
	g.Go(func() error {
		charges, err := s.accounts.Charges(gctx, id)
		folio.Charges = charges
		return err
	})
	g.Go(func() error {
		events, err := s.History(gctx, id)
		folio.History = events
		return err
	})
	if err := g.Wait(); err != nil {
		return Folio{}, err
	}
	return folio, nil
}

func validateCreate(b Booking) error {
	switch {
	case b.RoomNumber == "":
		return shared.Validation("booking", "", "room number required")
	case b.CheckIn.IsZero() || b.CheckOut.IsZero():
		return shared.Validation("booking", "", "check-in and check-out required")
	case !b.CheckIn.Before(b.CheckOut):
		return shared.Validation("booking", "", "check-in must be before check-out")
	case b.GuestCount < 1:
		return shared.Validation("booking", "", "at least one guest required")
	case b.TotalAmount.IsNegative():
		return shared.Validation("booking", "", "total amount must not be negative")
	case !b.PointOfSale.Valid():
		return shared.Validation("booking", "", "unknown point of sale %q", b.PointOfSale)
	}
	return nil
}

func (s *Service) record(ctx context.Context, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  shared.ActorID(ctx),
		Action:   action,
		Entity:   "booking",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
	}); err != nil {
		s.logger.Warn("booking audit", slog.String("action", action), slog.Any("error", err))
	}
}
