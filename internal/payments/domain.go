// Package payments reconciles guest payments and extra charges against a
// booking's total.
package payments

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hotel-pms/hotel-pms/internal/shared"
)

// Status is the processing state of a payment.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusRefunded  Status = "refunded"
)

// Type says what a payment is meant to cover.
type Type string

const (
	TypeAdvance      Type = "advance"
	TypeComplete     Type = "complete"
	TypeExtraCharges Type = "extra_charges"
)

// Valid reports whether t is a known payment type.
func (t Type) Valid() bool {
	switch t {
	case TypeAdvance, TypeComplete, TypeExtraCharges:
		return true
	}
	return false
}

// Derived is the payment standing of a booking. It is computed, never stored.
type Derived string

const (
	DerivedUnpaid  Derived = "unpaid"
	DerivedPartial Derived = "partial"
	DerivedPaid    Derived = "paid"
)

// Phase is the part of the booking lifecycle that decides which payment
// operations are open.
type Phase int

const (
	// PhaseOpen covers every state before completion.
	PhaseOpen Phase = iota
	// PhaseSettled is a completed stay that has not been invoiced.
	PhaseSettled
	// PhaseInvoiced is a stay that has been invoiced.
	PhaseInvoiced
	// PhaseCancelled is a cancelled booking.
	PhaseCancelled
)

// PhaseFunc maps a stored booking status to its payment phase.
type PhaseFunc func(status string) (Phase, error)

var (
	// ErrOverpayment is the cause of payments that would exceed what is owed.
	ErrOverpayment = errors.New("payment exceeds amount owed")
	// ErrNotSettled is the cause of completion attempts with money outstanding.
	ErrNotSettled = errors.New("booking not settled")
	// ErrBookingNotFound indicates the referenced booking does not exist.
	ErrBookingNotFound = errors.New("booking not found")
	// ErrPaymentNotFound indicates an unknown payment id.
	ErrPaymentNotFound = errors.New("payment not found")
	// ErrChargeNotFound indicates an unknown extra charge id.
	ErrChargeNotFound = errors.New("extra charge not found")
)

// Payment is money received against a booking.
type Payment struct {
	ID             int64                `json:"id"`
	BookingID      int64                `json:"booking_id"`
	Amount         decimal.Decimal      `json:"amount"`
	Method         shared.PaymentMethod `json:"method"`
	Status         Status               `json:"status"`
	Type           Type                 `json:"type"`
	TransactionRef string               `json:"transaction_ref,omitempty"`
	PaidAt         time.Time            `json:"paid_at"`
	CreatedBy      int64                `json:"created_by,omitempty"`
	CreatedAt      time.Time            `json:"created_at"`
	UpdatedAt      time.Time            `json:"updated_at"`
}

// ExtraCharge is an add-on billed to a booking.
type ExtraCharge struct {
	ID          int64           `json:"id"`
	BookingID   int64           `json:"booking_id"`
	Description string          `json:"description"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	ChargeDate  time.Time       `json:"charge_date"`
	CreatedBy   int64           `json:"created_by,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Total is quantity times unit price.
func (c ExtraCharge) Total() decimal.Decimal {
	return c.UnitPrice.Mul(decimal.NewFromInt(int64(c.Quantity)))
}

// BookingRef is the slice of a booking that reconciliation needs.
type BookingRef struct {
	ID          int64
	Status      string
	TotalAmount decimal.Decimal
}

// RecordInput describes a payment to record.
type RecordInput struct {
	BookingID      int64
	Amount         decimal.Decimal
	Method         shared.PaymentMethod
	Type           Type
	Pending        bool
	TransactionRef string
	PaidAt         time.Time
	IdempotencyKey string
}

// ChargeInput describes an extra charge to add.
type ChargeInput struct {
	BookingID   int64
	Description string
	Quantity    int
	UnitPrice   decimal.Decimal
	ChargeDate  time.Time
}

// Outcome settles a pending payment.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeFailed    Outcome = "failed"
)

// Summary is the reconciled view of a booking's account.
type Summary struct {
	BookingID    int64           `json:"booking_id"`
	BookingTotal decimal.Decimal `json:"booking_total"`
	ExtrasTotal  decimal.Decimal `json:"extras_total"`
	Required     decimal.Decimal `json:"required"`
	Paid         decimal.Decimal `json:"paid"`
	Outstanding  decimal.Decimal `json:"outstanding"`
	Status       Derived         `json:"status"`
}
