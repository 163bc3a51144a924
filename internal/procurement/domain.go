// Package procurement records supply purchases and feeds paid ones into stock.
package procurement

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hotel-pms/hotel-pms/internal/shared"
)

// PaymentStatus is how much of a purchase has been paid.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPartial PaymentStatus = "partial"
	PaymentPaid    PaymentStatus = "paid"
)

// StatusFor derives the payment status of a purchase. ok is false when paid
// exceeds total.
func StatusFor(total, paid decimal.Decimal) (status PaymentStatus, ok bool) {
	switch {
	case paid.GreaterThan(total):
		return "", false
	case paid.Equal(total):
		return PaymentPaid, true
	case paid.IsZero():
		return PaymentPending, true
	default:
		return PaymentPartial, true
	}
}

// Purchase is a supplier invoice with its lines.
type Purchase struct {
	ID            int64                `json:"id"`
	Supplier      string               `json:"supplier"`
	InvoiceNumber string               `json:"invoice_number"`
	PurchaseDate  time.Time            `json:"purchase_date"`
	TotalAmount   decimal.Decimal      `json:"total_amount"`
	PaidAmount    decimal.Decimal      `json:"paid_amount"`
	PaymentMethod shared.PaymentMethod `json:"payment_method"`
	PaymentStatus PaymentStatus        `json:"payment_status"`
	ReceivedAt    *time.Time           `json:"received_at,omitempty"`
	Notes         string               `json:"notes,omitempty"`
	CreatedBy     int64                `json:"created_by,omitempty"`
	CreatedAt     time.Time            `json:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at"`
	Items         []PurchaseItem       `json:"items,omitempty"`
}

// PurchaseItem is one line of a purchase. A zero BasicID is a line that does
// not feed stock.
type PurchaseItem struct {
	ID          int64           `json:"id"`
	PurchaseID  int64           `json:"purchase_id"`
	BasicID     int64           `json:"basic_id,omitempty"`
	Description string          `json:"description"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
}

// Total is quantity times price.
func (i PurchaseItem) Total() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// PurchasePayment is one installment paid to a supplier.
type PurchasePayment struct {
	ID         int64                `json:"id"`
	PurchaseID int64                `json:"purchase_id"`
	Amount     decimal.Decimal      `json:"amount"`
	Method     shared.PaymentMethod `json:"method"`
	PaidAt     time.Time            `json:"paid_at"`
	CreatedBy  int64                `json:"created_by,omitempty"`
}

// ItemInput is a purchase line to record.
type ItemInput struct {
	BasicID     int64
	Description string
	Quantity    int
	Price       decimal.Decimal
}

// RecordInput describes a purchase to record.
type RecordInput struct {
	Supplier       string
	InvoiceNumber  string
	PurchaseDate   time.Time
	PaymentMethod  shared.PaymentMethod
	PaidAmount     decimal.Decimal
	Notes          string
	Items          []ItemInput
	IdempotencyKey string
}

// PaymentInput is an installment against an existing purchase.
type PaymentInput struct {
	PurchaseID int64
	Amount     decimal.Decimal
	Method     shared.PaymentMethod
}

// ListFilter narrows purchase listings.
type ListFilter struct {
	Supplier string
	Status   PaymentStatus
	From     *time.Time
	To       *time.Time
}

var (
	// ErrPurchaseNotFound indicates an unknown purchase id.
	ErrPurchaseNotFound = errors.New("purchase not found")
	// ErrOverpaid is the cause of payments beyond the purchase total.
	ErrOverpaid = errors.New("purchase overpaid")
	// ErrDuplicateInvoice indicates the supplier invoice was already recorded.
	ErrDuplicateInvoice = errors.New("supplier invoice already recorded")
)
