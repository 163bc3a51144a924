package rooms

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads the room catalogue from PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const roomSelect = `SELECT r.number, r.floor, r.category_id, c.name, c.max_guests, r.is_active
FROM rooms r JOIN room_categories c ON c.id = r.category_id`

// GetRoom returns a room with its category capacity.
func (r *Repository) GetRoom(ctx context.Context, number string) (Room, error) {
	var room Room
	err := r.pool.QueryRow(ctx, roomSelect+` WHERE r.number=$1`, number).
		Scan(&room.Number, &room.Floor, &room.CategoryID, &room.Category, &room.MaxGuests, &room.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		return Room{}, ErrRoomNotFound
	}
	return room, err
}

// ListRooms returns every room ordered by number.
func (r *Repository) ListRooms(ctx context.Context) ([]Room, error) {
	rows, err := r.pool.Query(ctx, roomSelect+` ORDER BY r.number`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Room
	for rows.Next() {
		var room Room
		if err := rows.Scan(&room.Number, &room.Floor, &room.CategoryID, &room.Category, &room.MaxGuests, &room.Active); err != nil {
			return nil, err
		}
		out = append(out, room)
	}
	return out, rows.Err()
}

// ListCategories returns every category ordered by name.
func (r *Repository) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, max_guests, base_price FROM room_categories ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.MaxGuests, &c.BasePrice); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
