package booking_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/hotel-pms/hotel-pms/internal/booking"
	"github.com/hotel-pms/hotel-pms/internal/payments"
	"github.com/hotel-pms/hotel-pms/internal/platform/db"
	"github.com/hotel-pms/hotel-pms/internal/rooms"
	"github.com/hotel-pms/hotel-pms/internal/shared"
	"github.com/hotel-pms/hotel-pms/internal/testing/pgtest"
)

func TestConcurrentCreatesForOneRoomAdmitOnePostgres(t *testing.T) {
	pool := pgtest.Pool(t)
	room := pgtest.Room(t, pool, 2)
	policy := db.RetryPolicy{MaxRetries: 10, BaseDelay: 5 * time.Millisecond, MaxDelay: 100 * time.Millisecond}
	accounts := payments.NewService(payments.NewRepository(pool, policy), booking.PaymentPhase, nil, nil, nil, nil)
	svc := booking.NewService(booking.NewRepository(pool, policy), rooms.NewService(rooms.NewRepository(pool)), accounts, nil, nil, nil, nil)
	ctx := context.Background()

	checkIn := time.Now().UTC().Truncate(24*time.Hour).Add(72 * time.Hour)
	const workers = 4
	errs := make([]error, workers)
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			// Windows differ but all overlap the first night.
			_, errs[i] = svc.Create(ctx, booking.CreateInput{
				RoomNumber:  room,
				GuestName:   "Guest",
				CheckIn:     checkIn.Add(time.Duration(i) * time.Hour),
				CheckOut:    checkIn.Add(48 * time.Hour),
				PointOfSale: booking.PointOfSaleLocal,
				GuestCount:  1,
				TotalAmount: decimal.NewFromInt(150000),
			})
		}(i)
	}
	close(start)
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		require.True(t, errors.Is(err, booking.ErrOverlap) || errors.Is(err, shared.ErrConflict), err.Error())
	}
	require.Equal(t, 1, succeeded)

	var active int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM bookings WHERE room_number=$1 AND deleted_at IS NULL`, room).Scan(&active))
	require.Equal(t, 1, active)
}
