package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hotel-pms/hotel-pms/internal/inventory"
	"github.com/hotel-pms/hotel-pms/internal/payments"
	"github.com/hotel-pms/hotel-pms/internal/platform/db"
	"github.com/hotel-pms/hotel-pms/internal/shared"
)

// TxRepository exposes transactional operations used by service. Inventory
// and Payments bind the other ledgers to the same transaction.
type TxRepository interface {
	// LockRoom writes the room row so concurrent creations for the room
	// serialize and the later overlap check sees committed bookings.
	LockRoom(ctx context.Context, roomNumber string) error
	HasOverlap(ctx context.Context, roomNumber string, checkIn, checkOut time.Time) (bool, error)
	InsertBooking(ctx context.Context, b Booking) (int64, error)
	GetBookingForUpdate(ctx context.Context, id int64) (Booking, error)
	UpdateStatus(ctx context.Context, b Booking) error
	InsertStatusEvent(ctx context.Context, ev StatusEvent) error
	Inventory() inventory.TxRepository
	Payments() payments.TxRepository
}

// Repository persists bookings in PostgreSQL.
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

func (r *txRepo) Payments() payments.TxRepository { return payments.NewTxRepository(r.tx) }

func (r *txRepo) LockRoom(ctx context.Context, roomNumber string) error {
	var number string
	err := r.tx.QueryRow(ctx, `UPDATE rooms SET booking_seq = booking_seq + 1 WHERE number=$1 RETURNING number`, roomNumber).Scan(&number)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrRoomNotFound
	}
	return err
}

func (r *txRepo) HasOverlap(ctx context.Context, roomNumber string, checkIn, checkOut time.Time) (bool, error) {
	var exists bool
	err := r.tx.QueryRow(ctx, `SELECT EXISTS (
	SELECT 1 FROM bookings
	WHERE room_number=$1 AND deleted_at IS NULL
	  AND status IN ('pending', 'confirmed', 'checked-in')
	  AND check_in < $3 AND check_out > $2)`, roomNumber, checkIn, checkOut).Scan(&exists)
	return exists, err
}

func (r *txRepo) InsertBooking(ctx context.Context, b Booking) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO bookings (room_number, guest_name, check_in, check_out, point_of_sale, guest_count, total_amount, status, notes, created_by)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, ''), NULLIF($10::bigint, 0)) RETURNING id`,
		b.RoomNumber, b.GuestName, b.CheckIn, b.CheckOut, string(b.PointOfSale), b.GuestCount, b.TotalAmount, string(b.Status), b.Notes, b.CreatedBy).Scan(&id)
	return id, err
}

func (r *txRepo) GetBookingForUpdate(ctx context.Context, id int64) (Booking, error) {
	return getBooking(ctx, r.tx, bookingSelect+` WHERE id=$1 FOR UPDATE`, id)
}

func (r *txRepo) UpdateStatus(ctx context.Context, b Booking) error {
	tag, err := r.tx.Exec(ctx, `UPDATE bookings SET status=$2, cancel_reason=NULLIF($3, ''), deleted_at=$4, updated_at=NOW() WHERE id=$1`,
		b.ID, string(b.Status), b.CancelReason, b.DeletedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrBookingNotFound
	}
	return nil
}

func (r *txRepo) InsertStatusEvent(ctx context.Context, ev StatusEvent) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO booking_status_events (booking_id, from_status, to_status, actor_id, note, occurred_at)
VALUES ($1, NULLIF($2, ''), $3, NULLIF($4::bigint, 0), NULLIF($5, ''), $6)`,
		ev.BookingID, string(ev.From), string(ev.To), ev.ActorID, ev.Note, ev.At)
	return err
}

// GetBooking returns a booking, including cancelled ones.
func (r *Repository) GetBooking(ctx context.Context, id int64) (Booking, error) {
	return getBooking(ctx, r.pool, bookingSelect+` WHERE id=$1`, id)
}

// ListBookings returns one page of bookings ordered by check-in and the
// total number of matches.
func (r *Repository) ListBookings(ctx context.Context, filter ListFilter, page shared.Page) ([]Booking, int, error) {
	var (
		where []string
		args  []any
	)
	if !filter.IncludeCancelled {
		where = append(where, "deleted_at IS NULL")
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.RoomNumber != "" {
		args = append(args, filter.RoomNumber)
		where = append(where, fmt.Sprintf("room_number = $%d", len(args)))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		where = append(where, fmt.Sprintf("check_out > $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		where = append(where, fmt.Sprintf("check_in < $%d", len(args)))
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM bookings`+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	args = append(args, page.Limit(), page.Offset())
	rows, err := r.pool.Query(ctx, bookingSelect+clause+fmt.Sprintf(" ORDER BY check_in, id LIMIT $%d OFFSET $%d", len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, b)
	}
	return out, total, rows.Err()
}

// ListStatusEvents returns the history of a booking, oldest first.
func (r *Repository) ListStatusEvents(ctx context.Context, bookingID int64) ([]StatusEvent, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, booking_id, COALESCE(from_status, ''), to_status, COALESCE(actor_id, 0), COALESCE(note, ''), occurred_at
FROM booking_status_events WHERE booking_id=$1 ORDER BY occurred_at, id`, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []StatusEvent
	for rows.Next() {
		var (
			ev       StatusEvent
			from, to string
		)
		if err := rows.Scan(&ev.ID, &ev.BookingID, &from, &to, &ev.ActorID, &ev.Note, &ev.At); err != nil {
			return nil, err
		}
		ev.From, ev.To = Status(from), Status(to)
		out = append(out, ev)
	}
	return out, rows.Err()
}

const bookingSelect = `SELECT id, room_number, guest_name, check_in, check_out, point_of_sale, guest_count, total_amount, status,
COALESCE(notes, ''), COALESCE(cancel_reason, ''), COALESCE(created_by, 0), created_at, updated_at, deleted_at FROM bookings`

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func scanBooking(row pgx.Row) (Booking, error) {
	var (
		b           Booking
		pos, status string
	)
	err := row.Scan(&b.ID, &b.RoomNumber, &b.GuestName, &b.CheckIn, &b.CheckOut, &pos, &b.GuestCount, &b.TotalAmount, &status,
		&b.Notes, &b.CancelReason, &b.CreatedBy, &b.CreatedAt, &b.UpdatedAt, &b.DeletedAt)
	b.PointOfSale = PointOfSale(pos)
	b.Status = Status(status)
	return b, err
}

func getBooking(ctx context.Context, q querier, sql string, id int64) (Booking, error) {
	b, err := scanBooking(q.QueryRow(ctx, sql, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Booking{}, ErrBookingNotFound
	}
	return b, err
}
