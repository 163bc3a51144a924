package payments_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hotel-pms/hotel-pms/internal/booking"
	"github.com/hotel-pms/hotel-pms/internal/payments"
	"github.com/hotel-pms/hotel-pms/internal/shared"
	"github.com/hotel-pms/hotel-pms/internal/testing/memstore"
)

func newService(t *testing.T, idem *shared.IdempotencyStore) (*payments.Service, *memstore.Store) {
	t.Helper()
	store := memstore.New()
	return payments.NewService(store.Payments(), booking.PaymentPhase, idem, nil, nil, nil), store
}

func amount(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func record(bookingID, value int64, typ payments.Type) payments.RecordInput {
	return payments.RecordInput{BookingID: bookingID, Amount: amount(value), Method: shared.MethodCash, Type: typ}
}

func TestRecordPaymentValidation(t *testing.T) {
	svc, store := newService(t, nil)
	ctx := context.Background()
	b := store.AddBooking("101", booking.StatusConfirmed, 100)

	cases := map[string]payments.RecordInput{
		"zero amount":    record(b.ID, 0, payments.TypeAdvance),
		"unknown type":   record(b.ID, 10, "deposit"),
		"missing id":     record(0, 10, payments.TypeAdvance),
		"unknown method": {BookingID: b.ID, Amount: amount(10), Method: "barter", Type: payments.TypeAdvance},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.RecordPayment(ctx, in)
			require.ErrorIs(t, err, shared.ErrValidation)
		})
	}

	_, err := svc.RecordPayment(ctx, record(999, 10, payments.TypeAdvance))
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestRecordPaymentPhases(t *testing.T) {
	svc, store := newService(t, nil)
	ctx := context.Background()

	cancelled := store.AddBooking("101", booking.StatusCancelled, 100)
	_, err := svc.RecordPayment(ctx, record(cancelled.ID, 10, payments.TypeAdvance))
	require.ErrorIs(t, err, shared.ErrState)

	invoiced := store.AddBooking("102", booking.StatusInvoiced, 100)
	_, err = svc.RecordPayment(ctx, record(invoiced.ID, 10, payments.TypeComplete))
	require.ErrorIs(t, err, shared.ErrState)

	completed := store.AddBooking("103", booking.StatusCompleted, 100)
	_, err = svc.RecordPayment(ctx, record(completed.ID, 10, payments.TypeAdvance))
	require.ErrorIs(t, err, shared.ErrState)
	p, err := svc.RecordPayment(ctx, record(completed.ID, 100, payments.TypeComplete))
	require.NoError(t, err)
	assert.Equal(t, payments.StatusCompleted, p.Status)
}

func TestOverpaymentRejectedAndRollback(t *testing.T) {
	svc, store := newService(t, nil)
	ctx := context.Background()
	b := store.AddBooking("101", booking.StatusCheckedIn, 200000)

	_, err := svc.RecordPayment(ctx, record(b.ID, 200000, payments.TypeAdvance))
	require.ErrorIs(t, err, shared.ErrPayment, "advances stay below the total")

	_, err = svc.RecordPayment(ctx, record(b.ID, 100000, payments.TypeAdvance))
	require.NoError(t, err)
	_, err = svc.RecordPayment(ctx, record(b.ID, 100001, payments.TypeComplete))
	require.ErrorIs(t, err, shared.ErrPayment)
	require.ErrorIs(t, err, payments.ErrOverpayment)

	list, err := svc.Payments(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)

	_, err = svc.RecordPayment(ctx, record(b.ID, 100000, payments.TypeComplete))
	require.NoError(t, err)
	summary, err := svc.Summary(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, payments.DerivedPaid, summary.Status)
	assert.True(t, summary.Outstanding.IsZero())
}

func TestPendingPaymentSettlement(t *testing.T) {
	svc, store := newService(t, nil)
	ctx := context.Background()
	b := store.AddBooking("101", booking.StatusConfirmed, 100)

	in := record(b.ID, 60, payments.TypeAdvance)
	in.Method = shared.MethodWompi
	in.Pending = true
	first, err := svc.RecordPayment(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, payments.StatusPending, first.Status)

	second, err := svc.RecordPayment(ctx, in)
	require.NoError(t, err, "pending payments do not count toward paid")

	summary, err := svc.Summary(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, payments.DerivedUnpaid, summary.Status)

	settled, err := svc.Settle(ctx, first.ID, payments.OutcomeCompleted)
	require.NoError(t, err)
	assert.Equal(t, payments.StatusCompleted, settled.Status)

	_, err = svc.Settle(ctx, second.ID, payments.OutcomeCompleted)
	require.ErrorIs(t, err, shared.ErrPayment, "the second advance would reach the total")
	still, err := svc.GetPayment(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, payments.StatusPending, still.Status)

	failed, err := svc.Settle(ctx, second.ID, payments.OutcomeFailed)
	require.NoError(t, err)
	assert.Equal(t, payments.StatusFailed, failed.Status)

	_, err = svc.Settle(ctx, second.ID, payments.OutcomeCompleted)
	require.ErrorIs(t, err, shared.ErrState)
	_, err = svc.Settle(ctx, first.ID, "maybe")
	require.ErrorIs(t, err, shared.ErrValidation)
	_, err = svc.Settle(ctx, 999, payments.OutcomeCompleted)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestRefund(t *testing.T) {
	svc, store := newService(t, nil)
	ctx := context.Background()
	b := store.AddBooking("101", booking.StatusCheckedIn, 100)

	p, err := svc.RecordPayment(ctx, record(b.ID, 100, payments.TypeComplete))
	require.NoError(t, err)
	store.SetBookingStatus(b.ID, booking.StatusInvoiced)

	refunded, err := svc.Refund(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, payments.StatusRefunded, refunded.Status)

	_, err = svc.Refund(ctx, p.ID)
	require.ErrorIs(t, err, shared.ErrState)

	summary, err := svc.Summary(ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, summary.Paid.IsZero())
}

func TestExtraCharges(t *testing.T) {
	svc, store := newService(t, nil)
	ctx := context.Background()
	b := store.AddBooking("101", booking.StatusCheckedIn, 100)

	_, err := svc.AddExtraCharge(ctx, payments.ChargeInput{BookingID: b.ID, Quantity: 1, UnitPrice: amount(10)})
	require.ErrorIs(t, err, shared.ErrValidation)
	_, err = svc.AddExtraCharge(ctx, payments.ChargeInput{BookingID: b.ID, Description: "minibar", Quantity: 0, UnitPrice: amount(10)})
	require.ErrorIs(t, err, shared.ErrValidation)

	minibar, err := svc.AddExtraCharge(ctx, payments.ChargeInput{BookingID: b.ID, Description: "minibar", Quantity: 2, UnitPrice: amount(15)})
	require.NoError(t, err)
	laundry, err := svc.AddExtraCharge(ctx, payments.ChargeInput{BookingID: b.ID, Description: "laundry", Quantity: 1, UnitPrice: amount(20)})
	require.NoError(t, err)

	_, err = svc.RecordPayment(ctx, record(b.ID, 30, payments.TypeExtraCharges))
	require.NoError(t, err)
	_, err = svc.RecordPayment(ctx, record(b.ID, 21, payments.TypeExtraCharges))
	require.ErrorIs(t, err, shared.ErrPayment)

	err = svc.RemoveExtraCharge(ctx, minibar.ID)
	require.ErrorIs(t, err, shared.ErrPayment, "the extras payment would be left uncovered")
	require.NoError(t, svc.RemoveExtraCharge(ctx, laundry.ID))
	require.ErrorIs(t, svc.RemoveExtraCharge(ctx, laundry.ID), shared.ErrNotFound)

	summary, err := svc.Summary(ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, summary.ExtrasTotal.Equal(amount(30)))
	assert.True(t, summary.Required.Equal(amount(130)))
	assert.Equal(t, payments.DerivedPartial, summary.Status)

	store.SetBookingStatus(b.ID, booking.StatusCompleted)
	_, err = svc.AddExtraCharge(ctx, payments.ChargeInput{BookingID: b.ID, Description: "late checkout", Quantity: 1, UnitPrice: amount(5)})
	require.ErrorIs(t, err, shared.ErrState)
	require.ErrorIs(t, svc.RemoveExtraCharge(ctx, minibar.ID), shared.ErrState)
}

func TestComplimentaryChargeAtZeroPrice(t *testing.T) {
	svc, store := newService(t, nil)
	ctx := context.Background()
	b := store.AddBooking("101", booking.StatusCheckedIn, 100)

	_, err := svc.AddExtraCharge(ctx, payments.ChargeInput{BookingID: b.ID, Description: "welcome drink", Quantity: 2, UnitPrice: amount(0)})
	require.NoError(t, err)
	_, err = svc.AddExtraCharge(ctx, payments.ChargeInput{BookingID: b.ID, Description: "minibar", Quantity: 1, UnitPrice: amount(-1)})
	require.ErrorIs(t, err, shared.ErrValidation)

	summary, err := svc.Summary(ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, summary.ExtrasTotal.IsZero())
	assert.True(t, summary.Required.Equal(amount(100)))
}

func TestRecordPaymentIdempotency(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	svc, store := newService(t, shared.NewIdempotencyStore(client, time.Hour))
	ctx := context.Background()
	b := store.AddBooking("101", booking.StatusConfirmed, 100)

	in := record(b.ID, 40, payments.TypeAdvance)
	in.IdempotencyKey = "pay-1"
	_, err := svc.RecordPayment(ctx, in)
	require.NoError(t, err)
	_, err = svc.RecordPayment(ctx, in)
	require.ErrorIs(t, err, shared.ErrIdempotencyReplay)

	other := in
	other.Amount = amount(41)
	_, err = svc.RecordPayment(ctx, other)
	require.ErrorIs(t, err, shared.ErrValidation)

	rejected := record(b.ID, 500, payments.TypeAdvance)
	rejected.IdempotencyKey = "pay-2"
	_, err = svc.RecordPayment(ctx, rejected)
	require.ErrorIs(t, err, shared.ErrPayment)
	rejected.Amount = amount(50)
	_, err = svc.RecordPayment(ctx, rejected)
	require.NoError(t, err, "a rejected attempt releases its key")

	list, err := svc.Payments(ctx, b.ID)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}
