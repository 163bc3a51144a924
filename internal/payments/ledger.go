package payments

import (
	"github.com/shopspring/decimal"

	"github.com/hotel-pms/hotel-pms/internal/shared"
)

// Ledger is a booking's payments and charges at one instant. Every rule of
// reconciliation is evaluated against it; the zero tolerance on overpayment
// means Paid may reach Required but never pass it.
type Ledger struct {
	BookingID    int64
	BookingTotal decimal.Decimal
	Payments     []Payment
	Charges      []ExtraCharge
}

// ExtrasTotal sums the extra charges.
func (l Ledger) ExtrasTotal() decimal.Decimal {
	total := decimal.Zero
	for _, c := range l.Charges {
		total = total.Add(c.Total())
	}
	return total
}

// Required is what completed payments must cover.
func (l Ledger) Required() decimal.Decimal {
	return l.BookingTotal.Add(l.ExtrasTotal())
}

// Paid sums completed payments. Pending, failed and refunded ones do not count.
func (l Ledger) Paid() decimal.Decimal {
	return l.paidWhere(func(Payment) bool { return true })
}

// PaidByType sums completed payments of one type.
func (l Ledger) PaidByType(t Type) decimal.Decimal {
	return l.paidWhere(func(p Payment) bool { return p.Type == t })
}

func (l Ledger) paidWhere(match func(Payment) bool) decimal.Decimal {
	total := decimal.Zero
	for _, p := range l.Payments {
		if p.Status == StatusCompleted && match(p) {
			total = total.Add(p.Amount)
		}
	}
	return total
}

// Outstanding is what is still owed, never negative.
func (l Ledger) Outstanding() decimal.Decimal {
	out := l.Required().Sub(l.Paid())
	if out.IsNegative() {
		return decimal.Zero
	}
	return out
}

// Status derives unpaid, partial or paid. A booking that owes nothing is paid.
func (l Ledger) Status() Derived {
	required, paid := l.Required(), l.Paid()
	switch {
	case paid.GreaterThanOrEqual(required):
		return DerivedPaid
	case paid.IsZero():
		return DerivedUnpaid
	default:
		return DerivedPartial
	}
}

// CheckPayment validates a new completed payment of amount and type.
func (l Ledger) CheckPayment(amount decimal.Decimal, t Type) error {
	if !amount.IsPositive() {
		return shared.Validation("payment", "", "amount must be greater than zero")
	}
	paid := l.Paid().Add(amount)
	if paid.GreaterThan(l.Required()) {
		return shared.Payment("booking", l.BookingID, ErrOverpayment,
			"payment of %s would bring paid to %s, only %s is owed", amount, paid, l.Required())
	}
	switch t {
	case TypeAdvance:
		advances := l.PaidByType(TypeAdvance).Add(amount)
		if advances.GreaterThanOrEqual(l.BookingTotal) {
			return shared.Payment("booking", l.BookingID, ErrOverpayment,
				"advances of %s must stay below the booking total %s; settle the rest with a complete payment", advances, l.BookingTotal)
		}
	case TypeExtraCharges:
		extras := l.PaidByType(TypeExtraCharges).Add(amount)
		if extras.GreaterThan(l.ExtrasTotal()) {
			return shared.Payment("booking", l.BookingID, ErrOverpayment,
				"extra charge payments of %s exceed extra charges of %s", extras, l.ExtrasTotal())
		}
	case TypeComplete:
	default:
		return shared.Validation("payment", "", "unknown payment type %q", t)
	}
	return nil
}

// CheckSettled reports whether the booking may be completed: everything owed
// is paid and, when there is a base amount, a complete payment closed it.
func (l Ledger) CheckSettled() error {
	if l.Paid().LessThan(l.Required()) {
		return shared.Payment("booking", l.BookingID, ErrNotSettled,
			"paid %s of %s", l.Paid(), l.Required())
	}
	if l.BookingTotal.IsPositive() && l.PaidByType(TypeComplete).IsZero() {
		return shared.Payment("booking", l.BookingID, ErrNotSettled,
			"a complete payment is required before completion")
	}
	return nil
}

// CheckChargeRemoval validates dropping the charge with the given id.
func (l Ledger) CheckChargeRemoval(chargeID int64) error {
	remaining := Ledger{BookingID: l.BookingID, BookingTotal: l.BookingTotal, Payments: l.Payments}
	for _, c := range l.Charges {
		if c.ID != chargeID {
			remaining.Charges = append(remaining.Charges, c)
		}
	}
	if l.Paid().GreaterThan(remaining.Required()) {
		return shared.Payment("booking", l.BookingID, ErrOverpayment,
			"removing charge %d leaves %s owed against %s paid", chargeID, remaining.Required(), l.Paid())
	}
	if l.PaidByType(TypeExtraCharges).GreaterThan(remaining.ExtrasTotal()) {
		return shared.Payment("booking", l.BookingID, ErrOverpayment,
			"removing charge %d leaves extra charge payments uncovered", chargeID)
	}
	return nil
}

// Summary renders the reconciled view.
func (l Ledger) Summary() Summary {
	return Summary{
		BookingID:    l.BookingID,
		BookingTotal: l.BookingTotal,
		ExtrasTotal:  l.ExtrasTotal(),
		Required:     l.Required(),
		Paid:         l.Paid(),
		Outstanding:  l.Outstanding(),
		Status:       l.Status(),
	}
}
