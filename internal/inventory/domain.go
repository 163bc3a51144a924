package inventory

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Category groups basic supplies by where they are consumed.
type Category string

const (
	CategoryRoom     Category = "Room"
	CategoryBathroom Category = "Bathroom"
	CategoryKitchen  Category = "Kitchen"
	CategoryOther    Category = "Other"
)

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategoryRoom, CategoryBathroom, CategoryKitchen, CategoryOther:
		return true
	}
	return false
}

// MovementKind enumerates stock card entries.
type MovementKind string

const (
	MovementAllocate MovementKind = "allocate"
	MovementRelease  MovementKind = "release"
	MovementReceive  MovementKind = "receive"
	MovementAdjust   MovementKind = "adjust"
)

// Reference types recorded on movements.
const (
	RefBooking    = "booking"
	RefPurchase   = "purchase"
	RefAdjustment = "adjustment"
)

var (
	// ErrInsufficientStock is the cause of every rejected allocation.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrNegativeStock guards manual adjustments.
	ErrNegativeStock = errors.New("stock would become negative")
	// ErrBasicNotFound indicates a missing basic inventory row.
	ErrBasicNotFound = errors.New("basic inventory not found")
	// ErrRoomBasicNotFound indicates a missing room basics row.
	ErrRoomBasicNotFound = errors.New("room basic not found")
)

// BasicInventory is a consumable supply tracked by unit count.
type BasicInventory struct {
	ID           int64           `json:"id"`
	Name         string          `json:"name"`
	Description  string          `json:"description,omitempty"`
	Stock        int             `json:"stock"`
	MinimumStock int             `json:"minimum_stock"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	Category     Category        `json:"category"`
	Active       bool            `json:"active"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// BelowMinimum reports whether the item needs restocking.
func (b BasicInventory) BelowMinimum() bool {
	return b.Active && b.Stock < b.MinimumStock
}

// RoomBasic is one line of a room's supply template.
type RoomBasic struct {
	ID         int64  `json:"id"`
	RoomNumber string `json:"room_number"`
	BasicID    int64  `json:"basic_id"`
	Quantity   int    `json:"quantity"`
	Required   bool   `json:"required"`
	Priority   int    `json:"priority"`
}

// Movement is an append-only stock card entry.
type Movement struct {
	ID          uuid.UUID    `json:"id"`
	BasicID     int64        `json:"basic_id"`
	Kind        MovementKind `json:"kind"`
	Quantity    int          `json:"quantity"`
	StockBefore int          `json:"stock_before"`
	StockAfter  int          `json:"stock_after"`
	RefType     string       `json:"ref_type"`
	RefID       string       `json:"ref_id"`
	Note        string       `json:"note,omitempty"`
	ActorID     int64        `json:"actor_id,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}

// Allocation is the result of consuming a room's required basics.
type Allocation struct {
	RoomNumber string     `json:"room_number"`
	RefID      string     `json:"ref_id"`
	Lines      []Movement `json:"lines"`
}

// ReceiptLine is one incoming quantity for a basic item.
type ReceiptLine struct {
	BasicID  int64
	Quantity int
}

// BasicInput describes a new or updated basic item.
type BasicInput struct {
	Name         string
	Description  string
	MinimumStock int
	UnitPrice    decimal.Decimal
	Category     Category
	Active       bool
	InitialStock int
}

// BasicPatch updates mutable attributes. Nil fields are left as is.
type BasicPatch struct {
	Name         *string
	Description  *string
	MinimumStock *int
	UnitPrice    *decimal.Decimal
	Category     *Category
	Active       *bool
}

// AdjustInput is a manual correction of stock.
type AdjustInput struct {
	BasicID int64
	Delta   int
	Note    string
}

// BasicFilter narrows ListBasics.
type BasicFilter struct {
	Category   Category
	ActiveOnly bool
}
