package memstore

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/hotel-pms/hotel-pms/internal/expenses"
	"github.com/hotel-pms/hotel-pms/internal/shared"
)

// ExpenseRepo implements expenses.RepositoryPort.
type ExpenseRepo struct{ s *Store }

// Expenses returns the expense view of the store.
func (s *Store) Expenses() *ExpenseRepo { return &ExpenseRepo{s: s} }

func (r *ExpenseRepo) InsertExpense(_ context.Context, e expenses.Expense) (int64, error) {
	err := r.s.atomically(func(st *state) error {
		e.ID = st.nextID()
		e.CreatedAt = r.s.Now()
		st.expenses[e.ID] = e
		return nil
	})
	return e.ID, err
}

func (r *ExpenseRepo) GetExpense(_ context.Context, id int64) (expenses.Expense, error) {
	var (
		e  expenses.Expense
		ok bool
	)
	r.s.locked(func(st *state) { e, ok = st.expenses[id] })
	if !ok {
		return expenses.Expense{}, expenses.ErrExpenseNotFound
	}
	return e, nil
}

func (r *ExpenseRepo) ListExpenses(_ context.Context, filter expenses.ListFilter, page shared.Page) ([]expenses.Expense, int, error) {
	all := r.matching(filter)
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	total := len(all)
	start := min(page.Offset(), total)
	end := min(start+page.Limit(), total)
	return all[start:end], total, nil
}

func (r *ExpenseRepo) SumByCategory(_ context.Context, filter expenses.ListFilter) ([]expenses.CategoryTotal, error) {
	totals := map[string]*expenses.CategoryTotal{}
	for _, e := range r.matching(filter) {
		ct, ok := totals[e.Category]
		if !ok {
			ct = &expenses.CategoryTotal{Category: e.Category, Total: decimal.Zero}
			totals[e.Category] = ct
		}
		ct.Count++
		ct.Total = ct.Total.Add(e.Amount)
	}
	out := make([]expenses.CategoryTotal, 0, len(totals))
	for _, ct := range totals {
		out = append(out, *ct)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out, nil
}

func (r *ExpenseRepo) matching(filter expenses.ListFilter) []expenses.Expense {
	var out []expenses.Expense
	r.s.locked(func(st *state) {
		for _, e := range st.expenses {
			switch {
			case filter.Category != "" && e.Category != filter.Category:
			case filter.From != nil && e.ExpenseDate.Before(*filter.From):
			case filter.To != nil && e.ExpenseDate.After(*filter.To):
			default:
				out = append(out, e)
			}
		}
	})
	return out
}
