package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hotel-pms/hotel-pms/internal/platform/db"
)

// TxRepository exposes transactional operations used by the ledger functions.
type TxRepository interface {
	ListRequiredBasics(ctx context.Context, roomNumber string) ([]RoomBasic, error)
	GetBasicForUpdate(ctx context.Context, id int64) (BasicInventory, error)
	UpdateStock(ctx context.Context, id int64, stock int) error
	InsertMovement(ctx context.Context, mv Movement) error
	ListMovementsByRef(ctx context.Context, refType, refID string) ([]Movement, error)
	InsertBasic(ctx context.Context, item BasicInventory) (int64, error)
	UpdateBasic(ctx context.Context, item BasicInventory) error
	UpsertRoomBasic(ctx context.Context, rb RoomBasic) (int64, error)
	DeleteRoomBasic(ctx context.Context, roomNumber string, basicID int64) error
}

// Repository persists inventory data in PostgreSQL.
type Repository struct {
	pool   *pgxpool.Pool
	policy db.RetryPolicy
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool, policy db.RetryPolicy) *Repository {
	return &Repository{pool: pool, policy: policy}
}

// NewTxRepository binds the inventory queries to a transaction owned by
// another module.
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

const basicColumns = `id, name, description, stock, minimum_stock, unit_price, category, is_active, created_at, updated_at`

func scanBasic(row pgx.Row) (BasicInventory, error) {
	var b BasicInventory
	var category string
	err := row.Scan(&b.ID, &b.Name, &b.Description, &b.Stock, &b.MinimumStock, &b.UnitPrice, &category, &b.Active, &b.CreatedAt, &b.UpdatedAt)
	b.Category = Category(category)
	return b, err
}

// GetBasic returns a single item.
func (r *Repository) GetBasic(ctx context.Context, id int64) (BasicInventory, error) {
	item, err := scanBasic(r.pool.QueryRow(ctx, `SELECT `+basicColumns+` FROM basic_inventory WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return BasicInventory{}, ErrBasicNotFound
	}
	return item, err
}

// ListBasics returns items ordered by category and name.
func (r *Repository) ListBasics(ctx context.Context, filter BasicFilter) ([]BasicInventory, error) {
	var (
		where []string
		args  []any
	)
	if filter.Category != "" {
		args = append(args, string(filter.Category))
		where = append(where, fmt.Sprintf("category = $%d", len(args)))
	}
	if filter.ActiveOnly {
		where = append(where, "is_active")
	}
	query := `SELECT ` + basicColumns + ` FROM basic_inventory`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY category, name"
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []BasicInventory
	for rows.Next() {
		item, err := scanBasic(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// ScanBelowMinimum streams active items whose stock is under their minimum.
// Iteration stops at the first error returned by fn.
func (r *Repository) ScanBelowMinimum(ctx context.Context, fn func(BasicInventory) error) error {
	rows, err := r.pool.Query(ctx, `SELECT `+basicColumns+` FROM basic_inventory WHERE is_active AND stock < minimum_stock ORDER BY id`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		item, err := scanBasic(rows)
		if err != nil {
			return err
		}
		if err := fn(item); err != nil {
			return err
		}
	}
	return rows.Err()
}

// ListRoomBasics returns the supply template of a room.
func (r *Repository) ListRoomBasics(ctx context.Context, roomNumber string) ([]RoomBasic, error) {
	return queryRoomBasics(ctx, r.pool, `SELECT id, room_number, basic_id, quantity, is_required, priority
FROM room_basics WHERE room_number=$1 ORDER BY priority, basic_id`, roomNumber)
}

// StockCard returns the latest movements of an item.
func (r *Repository) StockCard(ctx context.Context, basicID int64, limit int) ([]Movement, error) {
	if limit <= 0 {
		limit = 200
	}
	return queryMovements(ctx, r.pool, `SELECT id, basic_id, kind, quantity, stock_before, stock_after, ref_type, ref_id, note, COALESCE(actor_id, 0), created_at
FROM stock_movements WHERE basic_id=$1 ORDER BY created_at DESC, id LIMIT $2`, basicID, limit)
}

func (r *txRepo) ListRequiredBasics(ctx context.Context, roomNumber string) ([]RoomBasic, error) {
	return queryRoomBasics(ctx, r.tx, `SELECT rb.id, rb.room_number, rb.basic_id, rb.quantity, rb.is_required, rb.priority
FROM room_basics rb JOIN basic_inventory b ON b.id = rb.basic_id
WHERE rb.room_number=$1 AND rb.is_required AND b.is_active
ORDER BY rb.basic_id`, roomNumber)
}

func (r *txRepo) GetBasicForUpdate(ctx context.Context, id int64) (BasicInventory, error) {
	item, err := scanBasic(r.tx.QueryRow(ctx, `SELECT `+basicColumns+` FROM basic_inventory WHERE id=$1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return BasicInventory{}, ErrBasicNotFound
	}
	return item, err
}

func (r *txRepo) UpdateStock(ctx context.Context, id int64, stock int) error {
	tag, err := r.tx.Exec(ctx, `UPDATE basic_inventory SET stock=$2, updated_at=NOW() WHERE id=$1`, id, stock)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrBasicNotFound
	}
	return nil
}

func (r *txRepo) InsertMovement(ctx context.Context, mv Movement) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO stock_movements (id, basic_id, kind, quantity, stock_before, stock_after, ref_type, ref_id, note, actor_id, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULLIF($10::bigint, 0), $11)`,
		mv.ID, mv.BasicID, string(mv.Kind), mv.Quantity, mv.StockBefore, mv.StockAfter, mv.RefType, mv.RefID, mv.Note, mv.ActorID, mv.CreatedAt)
	return err
}

func (r *txRepo) ListMovementsByRef(ctx context.Context, refType, refID string) ([]Movement, error) {
	return queryMovements(ctx, r.tx, `SELECT id, basic_id, kind, quantity, stock_before, stock_after, ref_type, ref_id, note, COALESCE(actor_id, 0), created_at
FROM stock_movements WHERE ref_type=$1 AND ref_id=$2 ORDER BY created_at, id`, refType, refID)
}

func (r *txRepo) InsertBasic(ctx context.Context, item BasicInventory) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO basic_inventory (name, description, stock, minimum_stock, unit_price, category, is_active)
VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		item.Name, item.Description, item.Stock, item.MinimumStock, item.UnitPrice, string(item.Category), item.Active).Scan(&id)
	return id, err
}

func (r *txRepo) UpdateBasic(ctx context.Context, item BasicInventory) error {
	tag, err := r.tx.Exec(ctx, `UPDATE basic_inventory SET name=$2, description=$3, minimum_stock=$4, unit_price=$5, category=$6, is_active=$7, updated_at=NOW() WHERE id=$1`,
		item.ID, item.Name, item.Description, item.MinimumStock, item.UnitPrice, string(item.Category), item.Active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrBasicNotFound
	}
	return nil
}

func (r *txRepo) UpsertRoomBasic(ctx context.Context, rb RoomBasic) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO room_basics (room_number, basic_id, quantity, is_required, priority)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT ON CONSTRAINT uq_room_basics DO UPDATE SET quantity=EXCLUDED.quantity, is_required=EXCLUDED.is_required, priority=EXCLUDED.priority
RETURNING id`, rb.RoomNumber, rb.BasicID, rb.Quantity, rb.Required, rb.Priority).Scan(&id)
	return id, err
}

func (r *txRepo) DeleteRoomBasic(ctx context.Context, roomNumber string, basicID int64) error {
	tag, err := r.tx.Exec(ctx, `DELETE FROM room_basics WHERE room_number=$1 AND basic_id=$2`, roomNumber, basicID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrRoomBasicNotFound
	}
	return nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func queryRoomBasics(ctx context.Context, q querier, sql string, args ...any) ([]RoomBasic, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []RoomBasic
	for rows.Next() {
		var rb RoomBasic
		if err := rows.Scan(&rb.ID, &rb.RoomNumber, &rb.BasicID, &rb.Quantity, &rb.Required, &rb.Priority); err != nil {
			return nil, err
		}
		out = append(out, rb)
	}
	return out, rows.Err()
}

func queryMovements(ctx context.Context, q querier, sql string, args ...any) ([]Movement, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Movement
	for rows.Next() {
		var mv Movement
		var kind string
		if err := rows.Scan(&mv.ID, &mv.BasicID, &kind, &mv.Quantity, &mv.StockBefore, &mv.StockAfter, &mv.RefType, &mv.RefID, &mv.Note, &mv.ActorID, &mv.CreatedAt); err != nil {
			return nil, err
		}
		mv.Kind = MovementKind(kind)
		out = append(out, mv)
	}
	return out, rows.Err()
}
