package booking_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/hotel-pms/hotel-pms/internal/booking"
	"github.com/hotel-pms/hotel-pms/internal/payments"
	"github.com/hotel-pms/hotel-pms/internal/rooms"
	"github.com/hotel-pms/hotel-pms/internal/shared"
	"github.com/hotel-pms/hotel-pms/internal/testing/memstore"
)

type fixture struct {
	store    *memstore.Store
	bookings *booking.Service
	payments *payments.Service
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	store := memstore.New()
	suite := store.AddCategory("Suite", 2, 200000)
	store.AddRoom("101", suite)
	store.AddRoom("102", suite)
	pay := payments.NewService(store.Payments(), booking.PaymentPhase, nil, nil, nil, nil)
	svc := booking.NewService(store.Bookings(), rooms.NewService(store.Rooms()), pay, nil, nil, nil, nil)
	return fixture{store: store, bookings: svc, payments: pay}
}

var day = time.Date(2026, 3, 1, 15, 0, 0, 0, time.UTC)

func (f fixture) create(t *testing.T, room string, offset int, total int64) booking.Booking {
	t.Helper()
	b, err := f.bookings.Create(context.Background(), booking.CreateInput{
		RoomNumber:  room,
		GuestName:   "Ana",
		CheckIn:     day.AddDate(0, 0, offset),
		CheckOut:    day.AddDate(0, 0, offset+2),
		PointOfSale: booking.PointOfSaleLocal,
		GuestCount:  2,
		TotalAmount: decimal.NewFromInt(total),
	})
	require.NoError(t, err)
	return b
}

func (f fixture) pay(ctx context.Context, id int64, amount int64, typ payments.Type) error {
	_, err := f.payments.RecordPayment(ctx, payments.RecordInput{
		BookingID: id,
		Amount:    decimal.NewFromInt(amount),
		Method:    shared.MethodCash,
		Type:      typ,
	})
	return err
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	base := booking.CreateInput{
		RoomNumber:  "101",
		CheckIn:     day,
		CheckOut:    day.AddDate(0, 0, 1),
		PointOfSale: booking.PointOfSaleOnline,
		GuestCount:  1,
		TotalAmount: decimal.NewFromInt(100),
	}

	in := base
	in.CheckOut = in.CheckIn
	_, err := f.bookings.Create(ctx, in)
	require.ErrorIs(t, err, shared.ErrValidation)

	in = base
	in.GuestCount = 3
	_, err = f.bookings.Create(ctx, in)
	require.ErrorIs(t, err, shared.ErrValidation)

	in = base
	in.PointOfSale = "phone"
	_, err = f.bookings.Create(ctx, in)
	require.ErrorIs(t, err, shared.ErrValidation)

	in = base
	in.TotalAmount = decimal.NewFromInt(-1)
	_, err = f.bookings.Create(ctx, in)
	require.ErrorIs(t, err, shared.ErrValidation)

	in = base
	in.RoomNumber = "999"
	_, err = f.bookings.Create(ctx, in)
	require.ErrorIs(t, err, shared.ErrNotFound)

	b, err := f.bookings.Create(ctx, base)
	require.NoError(t, err)
	require.Equal(t, booking.StatusPending, b.Status)
}

func TestCreateRejectsOverlap(t *testing.T) {
	f := newFixture(t)
	first := f.create(t, "101", 0, 100)

	_, err := f.bookings.Create(context.Background(), booking.CreateInput{
		RoomNumber:  "101",
		CheckIn:     first.CheckIn.AddDate(0, 0, 1),
		CheckOut:    first.CheckOut.AddDate(0, 0, 1),
		PointOfSale: booking.PointOfSaleLocal,
		GuestCount:  1,
	})
	require.ErrorIs(t, err, shared.ErrValidation)
	require.ErrorIs(t, err, booking.ErrOverlap)

	_, err = f.bookings.Cancel(context.Background(), first.ID, "changed plans")
	require.NoError(t, err)
	f.create(t, "101", 1, 100)
}

func TestLifecycleWithPayments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.create(t, "101", 0, 200000)

	_, err := f.bookings.Confirm(ctx, b.ID)
	require.NoError(t, err)
	require.NoError(t, f.pay(ctx, b.ID, 100000, payments.TypeAdvance))

	_, err = f.bookings.CheckIn(ctx, b.ID)
	require.NoError(t, err)

	_, err = f.bookings.Complete(ctx, b.ID)
	require.ErrorIs(t, err, shared.ErrPayment)
	got, err := f.bookings.Get(ctx, b.ID)
	require.NoError(t, err)
	require.Equal(t, booking.StatusCheckedIn, got.Status)

	require.NoError(t, f.pay(ctx, b.ID, 100000, payments.TypeComplete))
	done, err := f.bookings.Complete(ctx, b.ID)
	require.NoError(t, err)
	require.Equal(t, booking.StatusCompleted, done.Status)

	err = f.pay(ctx, b.ID, 1, payments.TypeComplete)
	require.ErrorIs(t, err, shared.ErrPayment)

	invoiced, err := f.bookings.Invoice(ctx, b.ID)
	require.NoError(t, err)
	require.Equal(t, booking.StatusInvoiced, invoiced.Status)
	again, err := f.bookings.Invoice(ctx, b.ID)
	require.NoError(t, err)
	require.Equal(t, booking.StatusInvoiced, again.Status)

	history, err := f.bookings.History(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, history, 5)
	require.Equal(t, booking.StatusInvoiced, history[4].To)

	folio, err := f.bookings.Folio(ctx, b.ID)
	require.NoError(t, err)
	require.Equal(t, payments.DerivedPaid, folio.Summary.Status)
	require.Len(t, folio.Payments, 2)
}

func TestInvalidTransitionLeavesStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.create(t, "101", 0, 100)

	_, err := f.bookings.CheckIn(ctx, b.ID)
	require.ErrorIs(t, err, shared.ErrState)
	var de *shared.Error
	require.ErrorAs(t, err, &de)
	require.Equal(t, "booking", de.Entity)

	_, err = f.bookings.Cancel(ctx, b.ID, "")
	require.NoError(t, err)
	_, err = f.bookings.Confirm(ctx, b.ID)
	require.ErrorIs(t, err, shared.ErrState)

	got, err := f.bookings.Get(ctx, b.ID)
	require.NoError(t, err)
	require.Equal(t, booking.StatusCancelled, got.Status)
	require.NotNil(t, got.DeletedAt)

	_, err = f.bookings.Confirm(ctx, 4242)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestCheckInAllocatesAndCancelReleases(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	towels := f.store.AddBasic("towel", 10, 2)
	soap := f.store.AddBasic("soap", 1, 0)
	f.store.SetRoomBasic("101", towels.ID, 4)
	f.store.SetRoomBasic("101", soap.ID, 2)

	b := f.create(t, "101", 0, 100)
	_, err := f.bookings.Confirm(ctx, b.ID)
	require.NoError(t, err)

	_, err = f.bookings.CheckIn(ctx, b.ID)
	require.ErrorIs(t, err, shared.ErrInventory)
	require.Equal(t, 10, f.store.Stock(towels.ID), "allocation is all-or-nothing")
	require.Equal(t, 1, f.store.Stock(soap.ID))
	got, err := f.bookings.Get(ctx, b.ID)
	require.NoError(t, err)
	require.Equal(t, booking.StatusConfirmed, got.Status)

	f.store.SetRoomBasic("101", soap.ID, 1)
	_, err = f.bookings.CheckIn(ctx, b.ID)
	require.NoError(t, err)
	require.Equal(t, 6, f.store.Stock(towels.ID))
	require.Equal(t, 0, f.store.Stock(soap.ID))

	// The template changes after check-in; release still returns what was taken.
	f.store.SetRoomBasic("101", towels.ID, 1)
	_, err = f.bookings.Cancel(ctx, b.ID, "no show")
	require.NoError(t, err)
	require.Equal(t, 10, f.store.Stock(towels.ID))
	require.Equal(t, 1, f.store.Stock(soap.ID))
}

func TestConcurrentCheckInForLastUnit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	robe := f.store.AddBasic("robe", 1, 0)
	f.store.SetRoomBasic("101", robe.ID, 1)
	f.store.SetRoomBasic("102", robe.ID, 1)

	first := f.create(t, "101", 0, 100)
	second := f.create(t, "102", 0, 100)
	for _, id := range []int64{first.ID, second.ID} {
		_, err := f.bookings.Confirm(ctx, id)
		require.NoError(t, err)
	}

	var (
		wg   sync.WaitGroup
		errs = make([]error, 2)
	)
	for i, id := range []int64{first.ID, second.ID} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = f.bookings.CheckIn(ctx, id)
		}()
	}
	wg.Wait()

	var ok, short int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case shared.KindOf(err) == shared.KindInventory:
			short++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	require.Equal(t, 1, ok)
	require.Equal(t, 1, short)
	require.Equal(t, 0, f.store.Stock(robe.ID))
}

func TestListHidesCancelled(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.create(t, "101", 0, 100)
	f.create(t, "102", 0, 100)
	_, err := f.bookings.Cancel(ctx, a.ID, "")
	require.NoError(t, err)

	items, page, err := f.bookings.List(ctx, booking.ListFilter{}, shared.Page{})
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, 1, page.Total)

	items, _, err = f.bookings.List(ctx, booking.ListFilter{IncludeCancelled: true}, shared.Page{})
	require.NoError(t, err)
	require.Len(t, items, 2)

	_, _, err = f.bookings.List(ctx, booking.ListFilter{Status: "archived"}, shared.Page{})
	require.ErrorIs(t, err, shared.ErrValidation)
}
