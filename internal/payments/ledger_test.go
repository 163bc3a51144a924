package payments

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/hotel-pms/hotel-pms/internal/shared"
)

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func completed(id int64, amount int64, t Type) Payment {
	return Payment{ID: id, Amount: d(amount), Status: StatusCompleted, Type: t}
}

func TestLedgerAdvanceThenCompleteSettles(t *testing.T) {
	l := Ledger{BookingID: 1, BookingTotal: d(200000)}
	require.Equal(t, DerivedUnpaid, l.Status())

	require.NoError(t, l.CheckPayment(d(100000), TypeAdvance))
	l.Payments = append(l.Payments, completed(1, 100000, TypeAdvance))
	require.Equal(t, DerivedPartial, l.Status())
	require.ErrorIs(t, l.CheckSettled(), shared.ErrPayment)

	require.NoError(t, l.CheckPayment(d(100000), TypeComplete))
	l.Payments = append(l.Payments, completed(2, 100000, TypeComplete))
	require.Equal(t, DerivedPaid, l.Status())
	require.True(t, l.Outstanding().IsZero())
	require.NoError(t, l.CheckSettled())

	err := l.CheckPayment(d(1), TypeComplete)
	require.ErrorIs(t, err, shared.ErrPayment)
	require.ErrorIs(t, err, ErrOverpayment)
}

func TestLedgerAdvancesStayBelowTotal(t *testing.T) {
	l := Ledger{BookingID: 1, BookingTotal: d(100)}
	require.ErrorIs(t, l.CheckPayment(d(100), TypeAdvance), ErrOverpayment)
	require.NoError(t, l.CheckPayment(d(99), TypeAdvance))
}

func TestLedgerCountsOnlyCompletedPayments(t *testing.T) {
	l := Ledger{BookingTotal: d(100), Payments: []Payment{
		{Amount: d(50), Status: StatusPending, Type: TypeComplete},
		{Amount: d(50), Status: StatusFailed, Type: TypeComplete},
		{Amount: d(50), Status: StatusRefunded, Type: TypeComplete},
		completed(4, 30, TypeAdvance),
	}}
	require.True(t, l.Paid().Equal(d(30)))
	require.True(t, l.Outstanding().Equal(d(70)))
	require.Equal(t, DerivedPartial, l.Status())
}

func TestLedgerExtraCharges(t *testing.T) {
	l := Ledger{
		BookingID:    7,
		BookingTotal: d(100),
		Charges: []ExtraCharge{
			{ID: 1, Quantity: 2, UnitPrice: d(15)},
			{ID: 2, Quantity: 1, UnitPrice: d(20)},
		},
	}
	require.True(t, l.ExtrasTotal().Equal(d(50)))
	require.True(t, l.Required().Equal(d(150)))

	require.NoError(t, l.CheckPayment(d(50), TypeExtraCharges))
	require.ErrorIs(t, l.CheckPayment(d(51), TypeExtraCharges), ErrOverpayment)

	l.Payments = []Payment{completed(1, 25, TypeExtraCharges), completed(2, 100, TypeComplete)}
	require.ErrorIs(t, l.CheckChargeRemoval(1), shared.ErrPayment)
	require.NoError(t, l.CheckChargeRemoval(2))
	require.ErrorIs(t, l.CheckSettled(), ErrNotSettled)
}

func TestLedgerZeroTotalNeedsNoCompletePayment(t *testing.T) {
	l := Ledger{BookingTotal: decimal.Zero}
	require.Equal(t, DerivedPaid, l.Status())
	require.NoError(t, l.CheckSettled())
}

func TestLedgerRejectsUnknownType(t *testing.T) {
	l := Ledger{BookingTotal: d(10)}
	err := l.CheckPayment(d(1), Type("gift"))
	require.ErrorIs(t, err, shared.ErrValidation)
	require.False(t, errors.Is(err, shared.ErrPayment))
}

func TestLedgerSummary(t *testing.T) {
	l := Ledger{
		BookingID:    3,
		BookingTotal: d(80),
		Charges:      []ExtraCharge{{Quantity: 1, UnitPrice: d(20)}},
		Payments:     []Payment{completed(1, 60, TypeAdvance)},
	}
	s := l.Summary()
	require.Equal(t, int64(3), s.BookingID)
	require.True(t, s.Required.Equal(d(100)))
	require.True(t, s.Paid.Equal(d(60)))
	require.True(t, s.Outstanding.Equal(d(40)))
	require.Equal(t, DerivedPartial, s.Status)
}
