package expenses_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hotel-pms/hotel-pms/internal/expenses"
	"github.com/hotel-pms/hotel-pms/internal/rbac"
	"github.com/hotel-pms/hotel-pms/internal/shared"
	"github.com/hotel-pms/hotel-pms/internal/testing/memstore"
)

func asRole(role string) context.Context {
	return shared.ContextWithIdentity(context.Background(), shared.Identity{UserID: 4, Role: role})
}

func TestRecordAndSummarise(t *testing.T) {
	store := memstore.New()
	svc := expenses.NewService(store.Expenses(), rbac.NewService(), nil, nil)
	ctx := asRole(rbac.RoleManager)
	march := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	entries := []expenses.RecordInput{
		{Payee: "EPM", Amount: decimal.NewFromInt(320000), Category: "Utilities", PaymentMethod: shared.MethodTransfer, ExpenseDate: march},
		{Payee: "Claro", Amount: decimal.NewFromInt(90000), Category: "utilities ", PaymentMethod: shared.MethodTransfer, ExpenseDate: march.AddDate(0, 0, 2)},
		{Payee: "Ferreteria", Amount: decimal.NewFromInt(45000), Category: "repairs", PaymentMethod: shared.MethodCash, ExpenseDate: march.AddDate(0, 1, 0)},
	}
	for _, in := range entries {
		e, err := svc.RecordExpense(ctx, in)
		require.NoError(t, err)
		assert.Equal(t, int64(4), e.CreatedBy)
	}

	list, page, err := svc.List(ctx, expenses.ListFilter{Category: "UTILITIES"}, shared.Page{})
	require.NoError(t, err)
	assert.Len(t, list, 2)
	assert.Equal(t, 2, page.Total)

	from, to := march, march.AddDate(0, 0, 30)
	sum, err := svc.Summary(ctx, &from, &to)
	require.NoError(t, err)
	require.Len(t, sum.Categories, 1)
	assert.Equal(t, "utilities", sum.Categories[0].Category)
	assert.Equal(t, 2, sum.Categories[0].Count)
	assert.True(t, sum.Total.Equal(decimal.NewFromInt(410000)))

	sum, err = svc.Summary(ctx, nil, nil)
	require.NoError(t, err)
	assert.Len(t, sum.Categories, 2)
	assert.True(t, sum.Total.Equal(decimal.NewFromInt(455000)))

	_, err = svc.Summary(ctx, &to, &from)
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestRecordExpenseValidation(t *testing.T) {
	store := memstore.New()
	svc := expenses.NewService(store.Expenses(), rbac.NewService(), nil, nil)
	ctx := asRole(rbac.RoleAdmin)
	valid := expenses.RecordInput{Payee: "EPM", Amount: decimal.NewFromInt(1), Category: "utilities", PaymentMethod: shared.MethodCash}

	mutations := map[string]func(*expenses.RecordInput){
		"payee":    func(in *expenses.RecordInput) { in.Payee = "" },
		"amount":   func(in *expenses.RecordInput) { in.Amount = decimal.Zero },
		"category": func(in *expenses.RecordInput) { in.Category = " " },
		"method":   func(in *expenses.RecordInput) { in.PaymentMethod = "iou" },
	}
	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			in := valid
			mutate(&in)
			_, err := svc.RecordExpense(ctx, in)
			require.ErrorIs(t, err, shared.ErrValidation)
		})
	}

	e, err := svc.RecordExpense(ctx, valid)
	require.NoError(t, err)
	assert.False(t, e.ExpenseDate.IsZero())

	_, err = svc.Get(ctx, 999)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestExpensesRequirePermission(t *testing.T) {
	store := memstore.New()
	svc := expenses.NewService(store.Expenses(), rbac.NewService(), nil, nil)

	_, err := svc.RecordExpense(asRole(rbac.RoleHousekeeping), expenses.RecordInput{Payee: "x", Amount: decimal.NewFromInt(1), Category: "misc", PaymentMethod: shared.MethodCash})
	require.ErrorIs(t, err, shared.ErrForbidden)

	_, _, err = svc.List(asRole(rbac.RoleReceptionist), expenses.ListFilter{}, shared.Page{})
	require.ErrorIs(t, err, shared.ErrForbidden)
}
