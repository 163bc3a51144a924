package memstore

import (
	"context"
	"sort"

	"github.com/hotel-pms/hotel-pms/internal/payments"
)

// PaymentsRepo implements payments.RepositoryPort.
type PaymentsRepo struct{ s *Store }

// Payments returns the payments view of the store.
func (s *Store) Payments() *PaymentsRepo { return &PaymentsRepo{s: s} }

// WithTx runs fn as one transaction.
func (r *PaymentsRepo) WithTx(ctx context.Context, fn func(context.Context, payments.TxRepository) error) error {
	return r.s.atomically(func(st *state) error {
		return fn(ctx, &payTx{s: r.s, st: st})
	})
}

func (r *PaymentsRepo) GetBookingRef(_ context.Context, bookingID int64) (payments.BookingRef, error) {
	var (
		ref payments.BookingRef
		err error
	)
	r.s.locked(func(st *state) { ref, err = bookingRef(st, bookingID) })
	return ref, err
}

func (r *PaymentsRepo) GetPayment(_ context.Context, id int64) (payments.Payment, error) {
	var (
		p  payments.Payment
		ok bool
	)
	r.s.locked(func(st *state) { p, ok = st.payments[id] })
	if !ok {
		return payments.Payment{}, payments.ErrPaymentNotFound
	}
	return p, nil
}

func (r *PaymentsRepo) GetCharge(_ context.Context, id int64) (payments.ExtraCharge, error) {
	var (
		c  payments.ExtraCharge
		ok bool
	)
	r.s.locked(func(st *state) { c, ok = st.charges[id] })
	if !ok {
		return payments.ExtraCharge{}, payments.ErrChargeNotFound
	}
	return c, nil
}

func (r *PaymentsRepo) ListPayments(_ context.Context, bookingID int64) ([]payments.Payment, error) {
	var out []payments.Payment
	r.s.locked(func(st *state) { out = listPayments(st, bookingID) })
	return out, nil
}

func (r *PaymentsRepo) ListCharges(_ context.Context, bookingID int64) ([]payments.ExtraCharge, error) {
	var out []payments.ExtraCharge
	r.s.locked(func(st *state) { out = listCharges(st, bookingID) })
	return out, nil
}

type payTx struct {
	s  *Store
	st *state
}

func (t *payTx) LockBooking(_ context.Context, bookingID int64) (payments.BookingRef, error) {
	return bookingRef(t.st, bookingID)
}

func (t *payTx) ListPayments(_ context.Context, bookingID int64) ([]payments.Payment, error) {
	return listPayments(t.st, bookingID), nil
}

func (t *payTx) ListCharges(_ context.Context, bookingID int64) ([]payments.ExtraCharge, error) {
	return listCharges(t.st, bookingID), nil
}

func (t *payTx) InsertPayment(_ context.Context, p payments.Payment) (int64, error) {
	p.ID = t.st.nextID()
	p.CreatedAt = t.s.Now()
	p.UpdatedAt = p.CreatedAt
	t.st.payments[p.ID] = p
	return p.ID, nil
}

func (t *payTx) GetPaymentForUpdate(_ context.Context, id int64) (payments.Payment, error) {
	p, ok := t.st.payments[id]
	if !ok {
		return payments.Payment{}, payments.ErrPaymentNotFound
	}
	return p, nil
}

func (t *payTx) UpdatePaymentStatus(_ context.Context, id int64, status payments.Status) error {
	p, ok := t.st.payments[id]
	if !ok {
		return payments.ErrPaymentNotFound
	}
	p.Status = status
	p.UpdatedAt = t.s.Now()
	t.st.payments[id] = p
	return nil
}

func (t *payTx) InsertCharge(_ context.Context, c payments.ExtraCharge) (int64, error) {
	c.ID = t.st.nextID()
	c.CreatedAt = t.s.Now()
	t.st.charges[c.ID] = c
	return c.ID, nil
}

func (t *payTx) DeleteCharge(_ context.Context, id int64) error {
	if _, ok := t.st.charges[id]; !ok {
		return payments.ErrChargeNotFound
	}
	delete(t.st.charges, id)
	return nil
}

func bookingRef(st *state, id int64) (payments.BookingRef, error) {
	b, ok := st.bookings[id]
	if !ok {
		return payments.BookingRef{}, payments.ErrBookingNotFound
	}
	return payments.BookingRef{ID: b.ID, Status: string(b.Status), TotalAmount: b.TotalAmount}, nil
}

func listPayments(st *state, bookingID int64) []payments.Payment {
	var out []payments.Payment
	for _, p := range st.payments {
		if p.BookingID == bookingID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func listCharges(st *state, bookingID int64) []payments.ExtraCharge {
	var out []payments.ExtraCharge
	for _, c := range st.charges {
		if c.BookingID == bookingID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
