// Package rooms is the room catalogue: room numbers, their categories and the
// guest capacity each category allows.
package rooms

import (
	"errors"

	"github.com/shopspring/decimal"
)

// ErrRoomNotFound indicates an unknown room number.
var ErrRoomNotFound = errors.New("room not found")

// Category is a class of rooms sharing capacity and base rate.
type Category struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	MaxGuests int             `json:"max_guests"`
	BasePrice decimal.Decimal `json:"base_price"`
}

// Room is a bookable unit.
type Room struct {
	Number     string `json:"number"`
	Floor      int    `json:"floor"`
	CategoryID int64  `json:"category_id"`
	Category   string `json:"category"`
	MaxGuests  int    `json:"max_guests"`
	Active     bool   `json:"active"`
}
