// Package expenses keeps the cash-out ledger for costs outside purchasing.
package expenses

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hotel-pms/hotel-pms/internal/shared"
)

// Expense is one ledger entry. Entries are append-only.
type Expense struct {
	ID            int64                `json:"id"`
	Payee         string               `json:"payee"`
	Amount        decimal.Decimal      `json:"amount"`
	Category      string               `json:"category"`
	PaymentMethod shared.PaymentMethod `json:"payment_method"`
	Receipt       string               `json:"receipt,omitempty"`
	Notes         string               `json:"notes,omitempty"`
	ExpenseDate   time.Time            `json:"expense_date"`
	CreatedBy     int64                `json:"created_by"`
	CreatedAt     time.Time            `json:"created_at"`
}

// RecordInput describes an expense to record.
type RecordInput struct {
	Payee         string
	Amount        decimal.Decimal
	Category      string
	PaymentMethod shared.PaymentMethod
	Receipt       string
	Notes         string
	ExpenseDate   time.Time
}

// ListFilter narrows listings. From and To bound the expense date inclusively.
type ListFilter struct {
	Category string
	From     *time.Time
	To       *time.Time
}

// CategoryTotal aggregates expenses of one category.
type CategoryTotal struct {
	Category string          `json:"category"`
	Count    int             `json:"count"`
	Total    decimal.Decimal `json:"total"`
}

// Summary totals expenses over a period.
type Summary struct {
	From       *time.Time      `json:"from,omitempty"`
	To         *time.Time      `json:"to,omitempty"`
	Total      decimal.Decimal `json:"total"`
	Categories []CategoryTotal `json:"categories"`
}

// ErrExpenseNotFound indicates an unknown expense id.
var ErrExpenseNotFound = errors.New("expense not found")
