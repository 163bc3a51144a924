package payments

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hotel-pms/hotel-pms/internal/platform/db"
	"github.com/hotel-pms/hotel-pms/internal/shared"
)

// TxRepository exposes transactional operations used by service.
type TxRepository interface {
	// LockBooking claims the booking row for the rest of the transaction by
	// writing it, so a concurrent ledger writer fails serialization and retries
	// with a fresh snapshot instead of reading a stale payment list.
	LockBooking(ctx context.Context, bookingID int64) (BookingRef, error)
	ListPayments(ctx context.Context, bookingID int64) ([]Payment, error)
	ListCharges(ctx context.Context, bookingID int64) ([]ExtraCharge, error)
	InsertPayment(ctx context.Context, p Payment) (int64, error)
	GetPaymentForUpdate(ctx context.Context, id int64) (Payment, error)
	UpdatePaymentStatus(ctx context.Context, id int64, status Status) error
	InsertCharge(ctx context.Context, c ExtraCharge) (int64, error)
	DeleteCharge(ctx context.Context, id int64) error
}

// Repository persists payments in PostgreSQL.
type Repository struct {
	pool   *pgxpool.Pool
	policy db.RetryPolicy
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool, policy db.RetryPolicy) *Repository {
	return &Repository{pool: pool, policy: policy}
}

// NewTxRepository binds payment queries to a transaction owned by another module.
func NewTxRepository(tx pgx.Tx) TxRepository {
	return &txRepo{tx: tx}
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

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// GetBookingRef reads the booking total without locking.
func (r *Repository) GetBookingRef(ctx context.Context, bookingID int64) (BookingRef, error) {
	return bookingRef(ctx, r.pool, `SELECT id, status, total_amount FROM bookings WHERE id=$1`, bookingID)
}

// GetPayment returns a payment.
func (r *Repository) GetPayment(ctx context.Context, id int64) (Payment, error) {
	return getPayment(ctx, r.pool, paymentSelect+` WHERE id=$1`, id)
}

// GetCharge returns an extra charge.
func (r *Repository) GetCharge(ctx context.Context, id int64) (ExtraCharge, error) {
	var c ExtraCharge
	err := r.pool.QueryRow(ctx, chargeSelect+` WHERE id=$1`, id).
		Scan(&c.ID, &c.BookingID, &c.Description, &c.Quantity, &c.UnitPrice, &c.ChargeDate, &c.CreatedBy, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ExtraCharge{}, ErrChargeNotFound
	}
	return c, err
}

// ListPayments lists a booking's payments in the order they were taken.
func (r *Repository) ListPayments(ctx context.Context, bookingID int64) ([]Payment, error) {
	return listPayments(ctx, r.pool, bookingID)
}

// ListCharges lists a booking's extra charges.
func (r *Repository) ListCharges(ctx context.Context, bookingID int64) ([]ExtraCharge, error) {
	return listCharges(ctx, r.pool, bookingID)
}

func (r *txRepo) LockBooking(ctx context.Context, bookingID int64) (BookingRef, error) {
	return bookingRef(ctx, r.tx, `UPDATE bookings SET ledger_seq = ledger_seq + 1 WHERE id=$1 RETURNING id, status, total_amount`, bookingID)
}

func (r *txRepo) ListPayments(ctx context.Context, bookingID int64) ([]Payment, error) {
	return listPayments(ctx, r.tx, bookingID)
}

func (r *txRepo) ListCharges(ctx context.Context, bookingID int64) ([]ExtraCharge, error) {
	return listCharges(ctx, r.tx, bookingID)
}

func (r *txRepo) InsertPayment(ctx context.Context, p Payment) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO payments (booking_id, amount, method, status, payment_type, transaction_ref, paid_at, created_by)
VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, NULLIF($8::bigint, 0)) RETURNING id`,
		p.BookingID, p.Amount, string(p.Method), string(p.Status), string(p.Type), p.TransactionRef, p.PaidAt, p.CreatedBy).Scan(&id)
	return id, err
}

func (r *txRepo) GetPaymentForUpdate(ctx context.Context, id int64) (Payment, error) {
	return getPayment(ctx, r.tx, paymentSelect+` WHERE id=$1 FOR UPDATE`, id)
}

func (r *txRepo) UpdatePaymentStatus(ctx context.Context, id int64, status Status) error {
	tag, err := r.tx.Exec(ctx, `UPDATE payments SET status=$2, updated_at=NOW() WHERE id=$1`, id, string(status))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrPaymentNotFound
	}
	return nil
}

func (r *txRepo) InsertCharge(ctx context.Context, c ExtraCharge) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO extra_charges (booking_id, description, quantity, unit_price, charge_date, created_by)
VALUES ($1, $2, $3, $4, $5, NULLIF($6::bigint, 0)) RETURNING id`,
		c.BookingID, c.Description, c.Quantity, c.UnitPrice, c.ChargeDate, c.CreatedBy).Scan(&id)
	return id, err
}

func (r *txRepo) DeleteCharge(ctx context.Context, id int64) error {
	tag, err := r.tx.Exec(ctx, `DELETE FROM extra_charges WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrChargeNotFound
	}
	return nil
}

const paymentSelect = `SELECT id, booking_id, amount, method, status, payment_type, COALESCE(transaction_ref, ''), paid_at, COALESCE(created_by, 0), created_at, updated_at FROM payments`

const chargeSelect = `SELECT id, booking_id, description, quantity, unit_price, charge_date, COALESCE(created_by, 0), created_at FROM extra_charges`

func bookingRef(ctx context.Context, q querier, sql string, id int64) (BookingRef, error) {
	var ref BookingRef
	err := q.QueryRow(ctx, sql, id).Scan(&ref.ID, &ref.Status, &ref.TotalAmount)
	if errors.Is(err, pgx.ErrNoRows) {
		return BookingRef{}, ErrBookingNotFound
	}
	return ref, err
}

func scanPayment(row pgx.Row) (Payment, error) {
	var (
		p                   Payment
		method, status, typ string
	)
	err := row.Scan(&p.ID, &p.BookingID, &p.Amount, &method, &status, &typ, &p.TransactionRef, &p.PaidAt, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt)
	p.Method = shared.PaymentMethod(method)
	p.Status = Status(status)
	p.Type = Type(typ)
	return p, err
}

func getPayment(ctx context.Context, q querier, sql string, id int64) (Payment, error) {
	p, err := scanPayment(q.QueryRow(ctx, sql, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Payment{}, ErrPaymentNotFound
	}
	return p, err
}

func listPayments(ctx context.Context, q querier, bookingID int64) ([]Payment, error) {
	rows, err := q.Query(ctx, paymentSelect+` WHERE booking_id=$1 ORDER BY paid_at, id`, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func listCharges(ctx context.Context, q querier, bookingID int64) ([]ExtraCharge, error) {
	rows, err := q.Query(ctx, chargeSelect+` WHERE booking_id=$1 ORDER BY charge_date, id`, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ExtraCharge
	for rows.Next() {
		var c ExtraCharge
		if err := rows.Scan(&c.ID, &c.BookingID, &c.Description, &c.Quantity, &c.UnitPrice, &c.ChargeDate, &c.CreatedBy, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
