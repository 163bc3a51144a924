// Package memstore is an in-memory implementation of every module repository,
// used by service tests. A transaction holds the store lock for its whole
// duration and is rolled back to a snapshot when its callback fails.
package memstore

import (
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hotel-pms/hotel-pms/internal/booking"
	"github.com/hotel-pms/hotel-pms/internal/expenses"
	"github.com/hotel-pms/hotel-pms/internal/inventory"
	"github.com/hotel-pms/hotel-pms/internal/payments"
	"github.com/hotel-pms/hotel-pms/internal/procurement"
	"github.com/hotel-pms/hotel-pms/internal/rooms"
)

// Store holds every table in memory.
type Store struct {
	mu   sync.Mutex
	data state
	// Now stamps created rows; tests may replace it.
	Now func() time.Time
}

type state struct {
	seq              int64
	categories       map[int64]rooms.Category
	rooms            map[string]rooms.Room
	basics           map[int64]inventory.BasicInventory
	roomBasics       map[int64]inventory.RoomBasic
	movements        []inventory.Movement
	bookings         map[int64]booking.Booking
	events           []booking.StatusEvent
	payments         map[int64]payments.Payment
	charges          map[int64]payments.ExtraCharge
	purchases        map[int64]procurement.Purchase
	purchaseItems    map[int64][]procurement.PurchaseItem
	purchasePayments []procurement.PurchasePayment
	expenses         map[int64]expenses.Expense
}

// New returns an empty store.
func New() *Store {
	return &Store{
		data: state{
			categories:    map[int64]rooms.Category{},
			rooms:         map[string]rooms.Room{},
			basics:        map[int64]inventory.BasicInventory{},
			roomBasics:    map[int64]inventory.RoomBasic{},
			bookings:      map[int64]booking.Booking{},
			payments:      map[int64]payments.Payment{},
			charges:       map[int64]payments.ExtraCharge{},
			purchases:     map[int64]procurement.Purchase{},
			purchaseItems: map[int64][]procurement.PurchaseItem{},
			expenses:      map[int64]expenses.Expense{},
		},
		Now: func() time.Time { return time.Now().UTC() },
	}
}

func (s state) clone() state {
	items := make(map[int64][]procurement.PurchaseItem, len(s.purchaseItems))
	for id, lines := range s.purchaseItems {
		items[id] = slices.Clone(lines)
	}
	return state{
		seq:              s.seq,
		categories:       maps.Clone(s.categories),
		rooms:            maps.Clone(s.rooms),
		basics:           maps.Clone(s.basics),
		roomBasics:       maps.Clone(s.roomBasics),
		movements:        slices.Clone(s.movements),
		bookings:         maps.Clone(s.bookings),
		events:           slices.Clone(s.events),
		payments:         maps.Clone(s.payments),
		charges:          maps.Clone(s.charges),
		purchases:        maps.Clone(s.purchases),
		purchaseItems:    items,
		purchasePayments: slices.Clone(s.purchasePayments),
		expenses:         maps.Clone(s.expenses),
	}
}

func (s *state) nextID() int64 {
	s.seq++
	return s.seq
}

// atomically runs fn with the store locked and restores the previous state
// when fn fails.
func (s *Store) atomically(fn func(st *state) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.data.clone()
	if err := fn(&s.data); err != nil {
		s.data = snapshot
		return err
	}
	return nil
}

func (s *Store) locked(fn func(st *state)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.data)
}

// AddCategory seeds a room category.
func (s *Store) AddCategory(name string, maxGuests int, basePrice int64) rooms.Category {
	var c rooms.Category
	s.locked(func(st *state) {
		c = rooms.Category{ID: st.nextID(), Name: name, MaxGuests: maxGuests, BasePrice: decimal.NewFromInt(basePrice)}
		st.categories[c.ID] = c
	})
	return c
}

// AddRoom seeds an active room in category.
func (s *Store) AddRoom(number string, category rooms.Category) rooms.Room {
	r := rooms.Room{Number: number, Floor: 1, CategoryID: category.ID, Category: category.Name, MaxGuests: category.MaxGuests, Active: true}
	s.locked(func(st *state) { st.rooms[number] = r })
	return r
}

// AddBasic seeds an active basic item.
func (s *Store) AddBasic(name string, stock, minimum int) inventory.BasicInventory {
	var b inventory.BasicInventory
	s.locked(func(st *state) {
		now := s.Now()
		b = inventory.BasicInventory{
			ID:           st.nextID(),
			Name:         name,
			Stock:        stock,
			MinimumStock: minimum,
			UnitPrice:    decimal.NewFromInt(1000),
			Category:     inventory.CategoryBathroom,
			Active:       true,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		st.basics[b.ID] = b
	})
	return b
}

// SetRoomBasic seeds a required room template line.
func (s *Store) SetRoomBasic(room string, basicID int64, quantity int) {
	s.locked(func(st *state) {
		rb := inventory.RoomBasic{RoomNumber: room, BasicID: basicID, Quantity: quantity, Required: true, Priority: 1}
		for id, existing := range st.roomBasics {
			if existing.RoomNumber == room && existing.BasicID == basicID {
				rb.ID = id
			}
		}
		if rb.ID == 0 {
			rb.ID = st.nextID()
		}
		st.roomBasics[rb.ID] = rb
	})
}

// Stock returns the current stock of a basic item.
func (s *Store) Stock(basicID int64) int {
	var stock int
	s.locked(func(st *state) { stock = st.basics[basicID].Stock })
	return stock
}

// Movements returns every stock movement recorded so far.
func (s *Store) Movements() []inventory.Movement {
	var out []inventory.Movement
	s.locked(func(st *state) { out = slices.Clone(st.movements) })
	return out
}

// AddBooking seeds a booking for room with the given status and total.
func (s *Store) AddBooking(room string, status booking.Status, total int64) booking.Booking {
	var b booking.Booking
	s.locked(func(st *state) {
		now := s.Now()
		b = booking.Booking{
			ID:          st.nextID(),
			RoomNumber:  room,
			GuestName:   "Guest",
			CheckIn:     now,
			CheckOut:    now.AddDate(0, 0, 1),
			PointOfSale: booking.PointOfSaleLocal,
			GuestCount:  1,
			TotalAmount: decimal.NewFromInt(total),
			Status:      status,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		st.bookings[b.ID] = b
	})
	return b
}

// SetBookingStatus moves a seeded booking without going through the lifecycle.
func (s *Store) SetBookingStatus(id int64, status booking.Status) {
	s.locked(func(st *state) {
		b := st.bookings[id]
		b.Status = status
		st.bookings[id] = b
	})
}
