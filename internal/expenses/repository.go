package expenses

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hotel-pms/hotel-pms/internal/shared"
)

// Repository persists expenses in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// InsertExpense appends an entry.
func (r *Repository) InsertExpense(ctx context.Context, e Expense) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO expenses (payee, amount, category, payment_method, receipt, notes, expense_date, created_by)
VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), $7, $8) RETURNING id`,
		e.Payee, e.Amount, e.Category, string(e.PaymentMethod), e.Receipt, e.Notes, e.ExpenseDate, e.CreatedBy).Scan(&id)
	return id, err
}

// GetExpense returns one entry.
func (r *Repository) GetExpense(ctx context.Context, id int64) (Expense, error) {
	e, err := scanExpense(r.pool.QueryRow(ctx, expenseSelect+` WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Expense{}, ErrExpenseNotFound
	}
	return e, err
}

// ListExpenses returns one page of entries, newest first.
func (r *Repository) ListExpenses(ctx context.Context, filter ListFilter, page shared.Page) ([]Expense, int, error) {
	clause, args := filterClause(filter)
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM expenses`+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	args = append(args, page.Limit(), page.Offset())
	rows, err := r.pool.Query(ctx, expenseSelect+clause+fmt.Sprintf(" ORDER BY expense_date DESC, id DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, e)
	}
	return out, total, rows.Err()
}

// SumByCategory totals entries per category.
func (r *Repository) SumByCategory(ctx context.Context, filter ListFilter) ([]CategoryTotal, error) {
	clause, args := filterClause(filter)
	rows, err := r.pool.Query(ctx, `SELECT category, COUNT(*), COALESCE(SUM(amount), 0) FROM expenses`+clause+` GROUP BY category ORDER BY category`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []CategoryTotal
	for rows.Next() {
		var ct CategoryTotal
		if err := rows.Scan(&ct.Category, &ct.Count, &ct.Total); err != nil {
			return nil, err
		}
		out = append(out, ct)
	}
	return out, rows.Err()
}

const expenseSelect = `SELECT id, payee, amount, category, payment_method, COALESCE(receipt, ''), COALESCE(notes, ''), expense_date, created_by, created_at FROM expenses`

func scanExpense(row pgx.Row) (Expense, error) {
	var (
		e      Expense
		method string
	)
	err := row.Scan(&e.ID, &e.Payee, &e.Amount, &e.Category, &method, &e.Receipt, &e.Notes, &e.ExpenseDate, &e.CreatedBy, &e.CreatedAt)
	e.PaymentMethod = shared.PaymentMethod(method)
	return e, err
}

func filterClause(filter ListFilter) (string, []any) {
	var (
		where []string
		args  []any
	)
	if filter.Category != "" {
		args = append(args, filter.Category)
		where = append(where, fmt.Sprintf("category = $%d", len(args)))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		where = append(where, fmt.Sprintf("expense_date >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		where = append(where, fmt.Sprintf("expense_date <= $%d", len(args)))
	}
	if len(where) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(where, " AND "), args
}
