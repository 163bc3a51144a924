// Package pgtest opens a migrated Postgres pool for integration tests.
// Tests using it are skipped unless PG_DSN points at a disposable database.
package pgtest

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/hotel-pms/hotel-pms/internal/platform/db"
	"github.com/hotel-pms/hotel-pms/migrations"
)

// Pool connects to PG_DSN and applies the embedded migrations.
func Pool(t testing.TB) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("PG_DSN")
	if dsn == "" {
		t.Skip("PG_DSN not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := db.New(ctx, db.Options{DSN: dsn, MaxConns: 8, AppName: "hotel-test"})
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, err = migrations.Apply(ctx, pool)
	require.NoError(t, err)
	return pool
}

// Room inserts an active room in a fresh category and returns its number.
// Names carry a random suffix so packages can share one database.
func Room(t testing.TB, pool *pgxpool.Pool, maxGuests int) string {
	t.Helper()
	ctx := context.Background()
	suffix := uuid.NewString()[:8]

	var categoryID int64
	err := pool.QueryRow(ctx, `INSERT INTO room_categories (name, max_guests, base_price) VALUES ($1, $2, 0) RETURNING id`,
		"cat-"+suffix, maxGuests).Scan(&categoryID)
	require.NoError(t, err)

	number := "R-" + suffix
	_, err = pool.Exec(ctx, `INSERT INTO rooms (number, floor, category_id) VALUES ($1, 1, $2)`, number, categoryID)
	require.NoError(t, err)
	return number
}

// Booking inserts a booking in the given status for tomorrow night and returns its id.
func Booking(t testing.TB, pool *pgxpool.Pool, room, status string, total decimal.Decimal) int64 {
	t.Helper()
	checkIn := time.Now().UTC().Truncate(24*time.Hour).Add(24 * time.Hour)
	var id int64
	err := pool.QueryRow(context.Background(), `INSERT INTO bookings (room_number, guest_name, check_in, check_out, point_of_sale, guest_count, total_amount, status)
VALUES ($1, 'Race Guest', $2, $3, 'local', 1, $4, $5) RETURNING id`,
		room, checkIn, checkIn.Add(24*time.Hour), total, status).Scan(&id)
	require.NoError(t, err)
	return id
}
