package memstore

import (
	"context"
	"sort"
	"time"

	"github.com/hotel-pms/hotel-pms/internal/booking"
	"github.com/hotel-pms/hotel-pms/internal/inventory"
	"github.com/hotel-pms/hotel-pms/internal/payments"
	"github.com/hotel-pms/hotel-pms/internal/shared"
)

// BookingRepo implements booking.RepositoryPort.
type BookingRepo struct{ s *Store }

// Bookings returns the booking view of the store.
func (s *Store) Bookings() *BookingRepo { return &BookingRepo{s: s} }

// WithTx runs fn as one transaction spanning bookings, payments and stock.
func (r *BookingRepo) WithTx(ctx context.Context, fn func(context.Context, booking.TxRepository) error) error {
	return r.s.atomically(func(st *state) error {
		return fn(ctx, &bookTx{s: r.s, st: st})
	})
}

func (r *BookingRepo) GetBooking(_ context.Context, id int64) (booking.Booking, error) {
	var (
		b  booking.Booking
		ok bool
	)
	r.s.locked(func(st *state) { b, ok = st.bookings[id] })
	if !ok {
		return booking.Booking{}, booking.ErrBookingNotFound
	}
	return b, nil
}

func (r *BookingRepo) ListBookings(_ context.Context, filter booking.ListFilter, page shared.Page) ([]booking.Booking, int, error) {
	var all []booking.Booking
	r.s.locked(func(st *state) {
		for _, b := range st.bookings {
			switch {
			case !filter.IncludeCancelled && b.DeletedAt != nil:
			case filter.Status != "" && b.Status != filter.Status:
			case filter.RoomNumber != "" && b.RoomNumber != filter.RoomNumber:
			case filter.From != nil && !b.CheckOut.After(*filter.From):
			case filter.To != nil && !b.CheckIn.Before(*filter.To):
			default:
				all = append(all, b)
			}
		}
	})
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CheckIn.Equal(all[j].CheckIn) {
			return all[i].CheckIn.Before(all[j].CheckIn)
		}
		return all[i].ID < all[j].ID
	})
	total := len(all)
	start := min(page.Offset(), total)
	end := min(start+page.Limit(), total)
	return all[start:end], total, nil
}

func (r *BookingRepo) ListStatusEvents(_ context.Context, bookingID int64) ([]booking.StatusEvent, error) {
	var out []booking.StatusEvent
	r.s.locked(func(st *state) {
		for _, ev := range st.events {
			if ev.BookingID == bookingID {
				out = append(out, ev)
			}
		}
	})
	return out, nil
}

type bookTx struct {
	s  *Store
	st *state
}

func (t *bookTx) Inventory() inventory.TxRepository { return &invTx{s: t.s, st: t.st} }

func (t *bookTx) Payments() payments.TxRepository { return &payTx{s: t.s, st: t.st} }

func (t *bookTx) LockRoom(_ context.Context, roomNumber string) error {
	if _, ok := t.st.rooms[roomNumber]; !ok {
		return booking.ErrRoomNotFound
	}
	return nil
}

func (t *bookTx) HasOverlap(_ context.Context, roomNumber string, checkIn, checkOut time.Time) (bool, error) {
	for _, b := range t.st.bookings {
		if b.RoomNumber == roomNumber && b.DeletedAt == nil && b.Status.Active() &&
			b.CheckIn.Before(checkOut) && b.CheckOut.After(checkIn) {
			return true, nil
		}
	}
	return false, nil
}

func (t *bookTx) InsertBooking(_ context.Context, b booking.Booking) (int64, error) {
	b.ID = t.st.nextID()
	b.CreatedAt = t.s.Now()
	b.UpdatedAt = b.CreatedAt
	t.st.bookings[b.ID] = b
	return b.ID, nil
}

func (t *bookTx) GetBookingForUpdate(_ context.Context, id int64) (booking.Booking, error) {
	b, ok := t.st.bookings[id]
	if !ok {
		return booking.Booking{}, booking.ErrBookingNotFound
	}
	return b, nil
}

func (t *bookTx) UpdateStatus(_ context.Context, b booking.Booking) error {
	current, ok := t.st.bookings[b.ID]
	if !ok {
		return booking.ErrBookingNotFound
	}
	current.Status = b.Status
	current.CancelReason = b.CancelReason
	current.DeletedAt = b.DeletedAt
	current.UpdatedAt = t.s.Now()
	t.st.bookings[b.ID] = current
	return nil
}

func (t *bookTx) InsertStatusEvent(_ context.Context, ev booking.StatusEvent) error {
	ev.ID = t.st.nextID()
	t.st.events = append(t.st.events, ev)
	return nil
}
