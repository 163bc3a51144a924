package procurement

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hotel-pms/hotel-pms/internal/inventory"
	"github.com/hotel-pms/hotel-pms/internal/platform/db"
	"github.com/hotel-pms/hotel-pms/internal/shared"
)

// TxRepository exposes transactional operations used by service.
type TxRepository interface {
	InsertPurchase(ctx context.Context, p Purchase) (int64, error)
	InsertItem(ctx context.Context, item PurchaseItem) (int64, error)
	GetPurchaseForUpdate(ctx context.Context, id int64) (Purchase, error)
	ListItems(ctx context.Context, purchaseID int64) ([]PurchaseItem, error)
	UpdatePayment(ctx context.Context, p Purchase) error
	InsertPayment(ctx context.Context, pay PurchasePayment) (int64, error)
	Inventory() inventory.TxRepository
}

// Repository persists purchases in PostgreSQL.
type Repository struct {
	pool   *pgxpool.Pool
	policy db.RetryPolicy
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool, policy db.RetryPolicy) *Repository {
	return &Repository{pool: pool, policy: policy}
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx executes the callback inside a retried repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.RunInTx(ctx, r.pool, r.policy, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

func (r *txRepo) Inventory() inventory.TxRepository { return inventory.NewTxRepository(r.tx) }

func (r *txRepo) InsertPurchase(ctx context.Context, p Purchase) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO purchases (supplier, invoice_number, purchase_date, total_amount, paid_amount, payment_method, payment_status, received_at, notes, created_by)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, ''), NULLIF($10::bigint, 0)) RETURNING id`,
		p.Supplier, p.InvoiceNumber, p.PurchaseDate, p.TotalAmount, p.PaidAmount, string(p.PaymentMethod), string(p.PaymentStatus), p.ReceivedAt, p.Notes, p.CreatedBy).Scan(&id)
	if db.IsUniqueViolation(err, "uq_purchases_supplier_invoice") {
		return 0, ErrDuplicateInvoice
	}
	return id, err
}

func (r *txRepo) InsertItem(ctx context.Context, item PurchaseItem) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO purchase_items (purchase_id, basic_id, description, quantity, price)
VALUES ($1, NULLIF($2::bigint, 0), $3, $4, $5) RETURNING id`,
		item.PurchaseID, item.BasicID, item.Description, item.Quantity, item.Price).Scan(&id)
	return id, err
}

func (r *txRepo) GetPurchaseForUpdate(ctx context.Context, id int64) (Purchase, error) {
	return getPurchase(ctx, r.tx, purchaseSelect+` WHERE id=$1 FOR UPDATE`, id)
}

func (r *txRepo) ListItems(ctx context.Context, purchaseID int64) ([]PurchaseItem, error) {
	return listItems(ctx, r.tx, purchaseID)
}

func (r *txRepo) UpdatePayment(ctx context.Context, p Purchase) error {
	tag, err := r.tx.Exec(ctx, `UPDATE purchases SET paid_amount=$2, payment_status=$3, received_at=$4, updated_at=NOW() WHERE id=$1`,
		p.ID, p.PaidAmount, string(p.PaymentStatus), p.ReceivedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrPurchaseNotFound
	}
	return nil
}

func (r *txRepo) InsertPayment(ctx context.Context, pay PurchasePayment) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO purchase_payments (purchase_id, amount, method, paid_at, created_by)
VALUES ($1, $2, $3, $4, NULLIF($5::bigint, 0)) RETURNING id`,
		pay.PurchaseID, pay.Amount, string(pay.Method), pay.PaidAt, pay.CreatedBy).Scan(&id)
	return id, err
}

// GetPurchase returns a purchase with its items.
func (r *Repository) GetPurchase(ctx context.Context, id int64) (Purchase, error) {
	p, err := getPurchase(ctx, r.pool, purchaseSelect+` WHERE id=$1`, id)
	if err != nil {
		return Purchase{}, err
	}
	p.Items, err = listItems(ctx, r.pool, id)
	return p, err
}

// ListPurchases returns one page of purchase headers, newest first.
func (r *Repository) ListPurchases(ctx context.Context, filter ListFilter, page shared.Page) ([]Purchase, int, error) {
	var (
		where []string
		args  []any
	)
	if filter.Supplier != "" {
		args = append(args, "%"+filter.Supplier+"%")
		where = append(where, fmt.Sprintf("supplier ILIKE $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		where = append(where, fmt.Sprintf("payment_status = $%d", len(args)))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		where = append(where, fmt.Sprintf("purchase_date >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		where = append(where, fmt.Sprintf("purchase_date <= $%d", len(args)))
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM purchases`+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	args = append(args, page.Limit(), page.Offset())
	rows, err := r.pool.Query(ctx, purchaseSelect+clause+fmt.Sprintf(" ORDER BY purchase_date DESC, id DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []Purchase
	for rows.Next() {
		p, err := scanPurchase(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	return out, total, rows.Err()
}

// ListPayments returns the installments of a purchase.
func (r *Repository) ListPayments(ctx context.Context, purchaseID int64) ([]PurchasePayment, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, purchase_id, amount, method, paid_at, COALESCE(created_by, 0) FROM purchase_payments WHERE purchase_id=$1 ORDER BY paid_at, id`, purchaseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []PurchasePayment
	for rows.Next() {
		var (
			p      PurchasePayment
			method string
		)
		if err := rows.Scan(&p.ID, &p.PurchaseID, &p.Amount, &method, &p.PaidAt, &p.CreatedBy); err != nil {
			return nil, err
		}
		p.Method = shared.PaymentMethod(method)
		out = append(out, p)
	}
	return out, rows.Err()
}

const purchaseSelect = `SELECT id, supplier, invoice_number, purchase_date, total_amount, paid_amount, payment_method, payment_status, received_at,
COALESCE(notes, ''), COALESCE(created_by, 0), created_at, updated_at FROM purchases`

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func scanPurchase(row pgx.Row) (Purchase, error) {
	var (
		p              Purchase
		method, status string
		receivedAt     *time.Time
	)
	err := row.Scan(&p.ID, &p.Supplier, &p.InvoiceNumber, &p.PurchaseDate, &p.TotalAmount, &p.PaidAmount, &method, &status, &receivedAt,
		&p.Notes, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt)
	p.PaymentMethod = shared.PaymentMethod(method)
	p.PaymentStatus = PaymentStatus(status)
	p.ReceivedAt = receivedAt
	return p, err
}

func getPurchase(ctx context.Context, q querier, sql string, id int64) (Purchase, error) {
	p, err := scanPurchase(q.QueryRow(ctx, sql, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Purchase{}, ErrPurchaseNotFound
	}
	return p, err
}

func listItems(ctx context.Context, q querier, purchaseID int64) ([]PurchaseItem, error) {
	rows, err := q.Query(ctx, `SELECT id, purchase_id, COALESCE(basic_id, 0), description, quantity, price FROM purchase_items WHERE purchase_id=$1 ORDER BY id`, purchaseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []PurchaseItem
	for rows.Next() {
		var it PurchaseItem
		if err := rows.Scan(&it.ID, &it.PurchaseID, &it.BasicID, &it.Description, &it.Quantity, &it.Price); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}
