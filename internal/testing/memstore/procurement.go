package memstore

import (
	"context"
	"slices"
	"sort"
	"strings"

	"github.com/hotel-pms/hotel-pms/internal/inventory"
	"github.com/hotel-pms/hotel-pms/internal/procurement"
	"github.com/hotel-pms/hotel-pms/internal/shared"
)

// PurchaseRepo implements procurement.RepositoryPort.
type PurchaseRepo struct{ s *Store }

// Purchases returns the procurement view of the store.
func (s *Store) Purchases() *PurchaseRepo { return &PurchaseRepo{s: s} }

// WithTx runs fn as one transaction spanning purchases and stock.
func (r *PurchaseRepo) WithTx(ctx context.Context, fn func(context.Context, procurement.TxRepository) error) error {
	return r.s.atomically(func(st *state) error {
		return fn(ctx, &purTx{s: r.s, st: st})
	})
}

func (r *PurchaseRepo) GetPurchase(_ context.Context, id int64) (procurement.Purchase, error) {
	var (
		p  procurement.Purchase
		ok bool
	)
	r.s.locked(func(st *state) {
		p, ok = st.purchases[id]
		p.Items = slices.Clone(st.purchaseItems[id])
	})
	if !ok {
		return procurement.Purchase{}, procurement.ErrPurchaseNotFound
	}
	return p, nil
}

func (r *PurchaseRepo) ListPurchases(_ context.Context, filter procurement.ListFilter, page shared.Page) ([]procurement.Purchase, int, error) {
	var all []procurement.Purchase
	r.s.locked(func(st *state) {
		for _, p := range st.purchases {
			switch {
			case filter.Supplier != "" && !strings.Contains(strings.ToLower(p.Supplier), strings.ToLower(filter.Supplier)):
			case filter.Status != "" && p.PaymentStatus != filter.Status:
			case filter.From != nil && p.PurchaseDate.Before(*filter.From):
			case filter.To != nil && p.PurchaseDate.After(*filter.To):
			default:
				all = append(all, p)
			}
		}
	})
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	total := len(all)
	start := min(page.Offset(), total)
	end := min(start+page.Limit(), total)
	return all[start:end], total, nil
}

func (r *PurchaseRepo) ListPayments(_ context.Context, purchaseID int64) ([]procurement.PurchasePayment, error) {
	var out []procurement.PurchasePayment
	r.s.locked(func(st *state) {
		for _, p := range st.purchasePayments {
			if p.PurchaseID == purchaseID {
				out = append(out, p)
			}
		}
	})
	return out, nil
}

type purTx struct {
	s  *Store
	st *state
}

func (t *purTx) Inventory() inventory.TxRepository { return &invTx{s: t.s, st: t.st} }

func (t *purTx) InsertPurchase(_ context.Context, p procurement.Purchase) (int64, error) {
	for _, existing := range t.st.purchases {
		if existing.Supplier == p.Supplier && existing.InvoiceNumber == p.InvoiceNumber {
			return 0, procurement.ErrDuplicateInvoice
		}
	}
	p.ID = t.st.nextID()
	p.Items = nil
	p.CreatedAt = t.s.Now()
	p.UpdatedAt = p.CreatedAt
	t.st.purchases[p.ID] = p
	return p.ID, nil
}

func (t *purTx) InsertItem(_ context.Context, item procurement.PurchaseItem) (int64, error) {
	item.ID = t.st.nextID()
	t.st.purchaseItems[item.PurchaseID] = append(t.st.purchaseItems[item.PurchaseID], item)
	return item.ID, nil
}

func (t *purTx) GetPurchaseForUpdate(_ context.Context, id int64) (procurement.Purchase, error) {
	p, ok := t.st.purchases[id]
	if !ok {
		return procurement.Purchase{}, procurement.ErrPurchaseNotFound
	}
	return p, nil
}

func (t *purTx) ListItems(_ context.Context, purchaseID int64) ([]procurement.PurchaseItem, error) {
	return slices.Clone(t.st.purchaseItems[purchaseID]), nil
}

func (t *purTx) UpdatePayment(_ context.Context, p procurement.Purchase) error {
	current, ok := t.st.purchases[p.ID]
	if !ok {
		return procurement.ErrPurchaseNotFound
	}
	current.PaidAmount = p.PaidAmount
	current.PaymentStatus = p.PaymentStatus
	current.ReceivedAt = p.ReceivedAt
	current.UpdatedAt = t.s.Now()
	t.st.purchases[p.ID] = current
	return nil
}

func (t *purTx) InsertPayment(_ context.Context, pay procurement.PurchasePayment) (int64, error) {
	pay.ID = t.st.nextID()
	t.st.purchasePayments = append(t.st.purchasePayments, pay)
	return pay.ID, nil
}
