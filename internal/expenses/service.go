package expenses

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hotel-pms/hotel-pms/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	InsertExpense(ctx context.Context, e Expense) (int64, error)
	GetExpense(ctx context.Context, id int64) (Expense, error)
	ListExpenses(ctx context.Context, filter ListFilter, page shared.Page) ([]Expense, int, error)
	SumByCategory(ctx context.Context, filter ListFilter) ([]CategoryTotal, error)
}

// Authorizer checks the caller carried in ctx against a permission.
type Authorizer interface {
	Authorize(ctx context.Context, perm string) error
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service records and reports expenses.
type Service struct {
	repo   RepositoryPort
	authz  Authorizer
	audit  AuditPort
	logger *slog.Logger
}

// NewService builds Service.
func NewService(repo RepositoryPort, authz Authorizer, audit AuditPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, authz: authz, audit: audit, logger: logger}
}

// RecordExpense appends an expense for the caller. It has no effect on
// bookings or stock.
func (s *Service) RecordExpense(ctx context.Context, input RecordInput) (Expense, error) {
	if err := s.authz.Authorize(ctx, shared.PermExpensesCreate); err != nil {
		return Expense{}, err
	}
	e := Expense{
		Payee:         strings.TrimSpace(input.Payee),
		Amount:        input.Amount,
		Category:      strings.ToLower(strings.TrimSpace(input.Category)),
		PaymentMethod: input.PaymentMethod,
		Receipt:       strings.TrimSpace(input.Receipt),
		Notes:         strings.TrimSpace(input.Notes),
		ExpenseDate:   input.ExpenseDate,
		CreatedBy:     shared.ActorID(ctx),
	}
	switch {
	case e.Payee == "":
		return Expense{}, shared.Validation("expense", "", "payee required")
	case !e.Amount.IsPositive():
		return Expense{}, shared.Validation("expense", "", "amount must be greater than zero")
	case e.Category == "":
		return Expense{}, shared.Validation("expense", "", "category required")
	case !e.PaymentMethod.Valid():
		return Expense{}, shared.Validation("expense", "", "unknown payment method %q", e.PaymentMethod)
	}
	if e.ExpenseDate.IsZero() {
		e.ExpenseDate = time.Now().UTC()
	}
	id, err := s.repo.InsertExpense(ctx, e)
	if err != nil {
		return Expense{}, err
	}
	e.ID = id
	if s.audit != nil {
		if err := s.audit.Record(ctx, shared.AuditLog{
			ActorID:  e.CreatedBy,
			Action:   "expense:create",
			Entity:   "expense",
			EntityID: strconv.FormatInt(id, 10),
			Meta:     map[string]any{"amount": e.Amount.String(), "category": e.Category},
		}); err != nil {
			s.logger.Warn("expenses audit", slog.Any("error", err))
		}
	}
	return s.Get(ctx, id)
}

// Get returns one expense.
func (s *Service) Get(ctx context.Context, id int64) (Expense, error) {
	e, err := s.repo.GetExpense(ctx, id)
	if errors.Is(err, ErrExpenseNotFound) {
		return Expense{}, shared.NotFound("expense", id)
	}
	return e, err
}

// List returns one page of expenses.
func (s *Service) List(ctx context.Context, filter ListFilter, page shared.Page) ([]Expense, shared.Pagination, error) {
	if err := s.authz.Authorize(ctx, shared.PermExpensesView); err != nil {
		return nil, shared.Pagination{}, err
	}
	if err := checkRange(filter); err != nil {
		return nil, shared.Pagination{}, err
	}
	filter.Category = strings.ToLower(strings.TrimSpace(filter.Category))
	page = page.Normalize()
	items, total, err := s.repo.ListExpenses(ctx, filter, page)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return items, shared.NewPagination(page, total), nil
}

// Summary totals expenses per category over [from, to].
func (s *Service) Summary(ctx context.Context, from, to *time.Time) (Summary, error) {
	if err := s.authz.Authorize(ctx, shared.PermExpensesView); err != nil {
		return Summary{}, err
	}
	filter := ListFilter{From: from, To: to}
	if err := checkRange(filter); err != nil {
		return Summary{}, err
	}
	totals, err := s.repo.SumByCategory(ctx, filter)
	if err != nil {
		return Summary{}, err
	}
	sum := Summary{From: from, To: to, Total: decimal.Zero, Categories: totals}
	for _, ct := range totals {
		sum.Total = sum.Total.Add(ct.Total)
	}
	return sum, nil
}

func checkRange(filter ListFilter) error {
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return shared.Validation("expense", "", "range end before start")
	}
	return nil
}
