package procurement_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hotel-pms/hotel-pms/internal/inventory"
	"github.com/hotel-pms/hotel-pms/internal/procurement"
	"github.com/hotel-pms/hotel-pms/internal/rbac"
	"github.com/hotel-pms/hotel-pms/internal/shared"
	"github.com/hotel-pms/hotel-pms/internal/testing/memstore"
)

func managerCtx() context.Context {
	return shared.ContextWithIdentity(context.Background(), shared.Identity{UserID: 7, Role: rbac.RoleManager})
}

func newService(t *testing.T) (*procurement.Service, *memstore.Store) {
	t.Helper()
	store := memstore.New()
	return procurement.NewService(store.Purchases(), rbac.NewService(), nil, nil, nil), store
}

func towelsPurchase(basicID int64, paid int64) procurement.RecordInput {
	return procurement.RecordInput{
		Supplier:      "Textiles Andinos",
		InvoiceNumber: "FV-1001",
		PaymentMethod: shared.MethodTransfer,
		PaidAmount:    decimal.NewFromInt(paid),
		Items: []procurement.ItemInput{
			{BasicID: basicID, Quantity: 10, Price: decimal.NewFromInt(8000)},
			{Description: "delivery", Quantity: 1, Price: decimal.NewFromInt(20000)},
		},
	}
}

func TestRecordPurchasePaidReceivesStock(t *testing.T) {
	svc, store := newService(t)
	towel := store.AddBasic("towel", 3, 5)

	p, err := svc.RecordPurchase(managerCtx(), towelsPurchase(towel.ID, 100000))
	require.NoError(t, err)
	assert.Equal(t, procurement.PaymentPaid, p.PaymentStatus)
	assert.True(t, p.TotalAmount.Equal(decimal.NewFromInt(100000)))
	assert.NotNil(t, p.ReceivedAt)
	assert.Len(t, p.Items, 2)
	assert.Equal(t, int64(7), p.CreatedBy)
	assert.Equal(t, 13, store.Stock(towel.ID))

	pays, err := svc.Payments(managerCtx(), p.ID)
	require.NoError(t, err)
	require.Len(t, pays, 1)
}

func TestPartialPurchaseReceivesOnceWhenPaid(t *testing.T) {
	svc, store := newService(t)
	ctx := managerCtx()
	towel := store.AddBasic("towel", 3, 5)

	p, err := svc.RecordPurchase(ctx, towelsPurchase(towel.ID, 40000))
	require.NoError(t, err)
	assert.Equal(t, procurement.PaymentPartial, p.PaymentStatus)
	assert.Nil(t, p.ReceivedAt)
	assert.Equal(t, 3, store.Stock(towel.ID))

	_, err = svc.RegisterPayment(ctx, procurement.PaymentInput{PurchaseID: p.ID, Amount: decimal.NewFromInt(60001)})
	require.ErrorIs(t, err, shared.ErrPayment)
	require.ErrorIs(t, err, procurement.ErrOverpaid)
	assert.Equal(t, 3, store.Stock(towel.ID))

	p, err = svc.RegisterPayment(ctx, procurement.PaymentInput{PurchaseID: p.ID, Amount: decimal.NewFromInt(30000)})
	require.NoError(t, err)
	assert.Equal(t, procurement.PaymentPartial, p.PaymentStatus)
	assert.Equal(t, 3, store.Stock(towel.ID))

	p, err = svc.RegisterPayment(ctx, procurement.PaymentInput{PurchaseID: p.ID, Amount: decimal.NewFromInt(30000), Method: shared.MethodCash})
	require.NoError(t, err)
	assert.Equal(t, procurement.PaymentPaid, p.PaymentStatus)
	assert.NotNil(t, p.ReceivedAt)
	assert.Equal(t, 13, store.Stock(towel.ID))

	_, err = svc.RegisterPayment(ctx, procurement.PaymentInput{PurchaseID: p.ID, Amount: decimal.NewFromInt(1)})
	require.ErrorIs(t, err, shared.ErrState)
	assert.Equal(t, 13, store.Stock(towel.ID))

	var receipts int
	for _, mv := range store.Movements() {
		if mv.Kind == inventory.MovementReceive {
			receipts++
		}
	}
	assert.Equal(t, 1, receipts)

	pays, err := svc.Payments(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, pays, 3)
	assert.Equal(t, shared.MethodTransfer, pays[1].Method, "method defaults to the purchase's")
}

func TestRecordPurchaseValidation(t *testing.T) {
	svc, store := newService(t)
	ctx := managerCtx()
	towel := store.AddBasic("towel", 0, 0)

	in := towelsPurchase(towel.ID, 0)
	in.Supplier = " "
	_, err := svc.RecordPurchase(ctx, in)
	require.ErrorIs(t, err, shared.ErrValidation)

	in = towelsPurchase(towel.ID, 0)
	in.Items = nil
	_, err = svc.RecordPurchase(ctx, in)
	require.ErrorIs(t, err, shared.ErrValidation)

	in = towelsPurchase(towel.ID, 0)
	in.Items[1].Description = ""
	_, err = svc.RecordPurchase(ctx, in)
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.RecordPurchase(ctx, towelsPurchase(towel.ID, 100001))
	require.ErrorIs(t, err, shared.ErrPayment)

	_, err = svc.RecordPurchase(ctx, towelsPurchase(999, 100000))
	require.ErrorIs(t, err, shared.ErrNotFound, "receiving an unknown basic aborts the purchase")
	list, _, err := svc.List(ctx, procurement.ListFilter{}, shared.Page{})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestDuplicateSupplierInvoice(t *testing.T) {
	svc, store := newService(t)
	ctx := managerCtx()
	towel := store.AddBasic("towel", 0, 0)

	_, err := svc.RecordPurchase(ctx, towelsPurchase(towel.ID, 0))
	require.NoError(t, err)
	_, err = svc.RecordPurchase(ctx, towelsPurchase(towel.ID, 0))
	require.ErrorIs(t, err, procurement.ErrDuplicateInvoice)
	require.ErrorIs(t, err, shared.ErrValidation)

	in := towelsPurchase(towel.ID, 0)
	in.InvoiceNumber = ""
	p, err := svc.RecordPurchase(ctx, in)
	require.NoError(t, err)
	assert.Contains(t, p.InvoiceNumber, "PUR-")
}

func TestPurchasesRequirePermission(t *testing.T) {
	svc, store := newService(t)
	towel := store.AddBasic("towel", 0, 0)

	_, err := svc.RecordPurchase(context.Background(), towelsPurchase(towel.ID, 0))
	require.ErrorIs(t, err, shared.ErrUnauthenticated)

	reception := shared.ContextWithIdentity(context.Background(), shared.Identity{UserID: 3, Role: rbac.RoleReceptionist})
	_, err = svc.RecordPurchase(reception, towelsPurchase(towel.ID, 0))
	require.ErrorIs(t, err, shared.ErrForbidden)
	_, _, err = svc.List(reception, procurement.ListFilter{}, shared.Page{})
	require.ErrorIs(t, err, shared.ErrForbidden)
}

func TestStatusFor(t *testing.T) {
	d := decimal.NewFromInt
	cases := []struct {
		total, paid int64
		want        procurement.PaymentStatus
		ok          bool
	}{
		{100, 0, procurement.PaymentPending, true},
		{100, 40, procurement.PaymentPartial, true},
		{100, 100, procurement.PaymentPaid, true},
		{0, 0, procurement.PaymentPaid, true},
		{100, 101, "", false},
	}
	for _, tc := range cases {
		got, ok := procurement.StatusFor(d(tc.total), d(tc.paid))
		assert.Equal(t, tc.ok, ok)
		assert.Equal(t, tc.want, got)
	}
}
