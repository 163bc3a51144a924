// Package booking runs the reservation lifecycle from creation to invoice.
package booking

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hotel-pms/hotel-pms/internal/payments"
	"github.com/hotel-pms/hotel-pms/internal/shared"
)

// Status is the lifecycle state of a booking.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCheckedIn Status = "checked-in"
	StatusCompleted Status = "completed"
	StatusInvoiced  Status = "facturada"
	StatusCancelled Status = "cancelled"
)

var statuses = []Status{StatusPending, StatusConfirmed, StatusCheckedIn, StatusCompleted, StatusInvoiced, StatusCancelled}

// ParseStatus converts a stored or wire value into a Status.
func ParseStatus(raw string) (Status, error) {
	for _, s := range statuses {
		if string(s) == raw {
			return s, nil
		}
	}
	return "", shared.Validation("status", raw, "unknown booking status")
}

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == StatusInvoiced || s == StatusCancelled
}

// Active reports whether the booking still holds its room.
func (s Status) Active() bool {
	return s == StatusPending || s == StatusConfirmed || s == StatusCheckedIn
}

// PaymentPhase tells the payments module which operations a booking status allows.
func PaymentPhase(raw string) (payments.Phase, error) {
	s, err := ParseStatus(raw)
	if err != nil {
		return 0, err
	}
	switch s {
	case StatusCompleted:
		return payments.PhaseSettled, nil
	case StatusInvoiced:
		return payments.PhaseInvoiced, nil
	case StatusCancelled:
		return payments.PhaseCancelled, nil
	default:
		return payments.PhaseOpen, nil
	}
}

// PointOfSale is the channel a booking came through.
type PointOfSale string

const (
	PointOfSaleOnline PointOfSale = "online"
	PointOfSaleLocal  PointOfSale = "local"
)

// Valid reports whether p is a known channel.
func (p PointOfSale) Valid() bool {
	return p == PointOfSaleOnline || p == PointOfSaleLocal
}

// Command is a requested lifecycle step.
type Command string

const (
	CommandConfirm  Command = "confirm"
	CommandCheckIn  Command = "check-in"
	CommandComplete Command = "complete"
	CommandInvoice  Command = "invoice"
	CommandCancel   Command = "cancel"
)

// Effect is work the service performs in the same transaction as a transition.
type Effect string

const (
	EffectAllocateInventory Effect = "allocate_inventory"
	EffectReleaseInventory  Effect = "release_inventory"
	EffectRequireSettlement Effect = "require_settlement"
	EffectSoftDelete        Effect = "soft_delete"
)

// Decision is the outcome of applying a command to a status.
type Decision struct {
	Next    Status
	Effects []Effect
	NoOp    bool
}

// Has reports whether the decision carries effect e.
func (d Decision) Has(e Effect) bool {
	for _, x := range d.Effects {
		if x == e {
			return true
		}
	}
	return false
}

// ErrInvalidTransition is the cause of every rejected transition.
var ErrInvalidTransition = errors.New("invalid booking transition")

// Transition decides the next status for cmd. It has no side effects; the
// returned effects are carried out by the caller.
func Transition(current Status, cmd Command) (Decision, error) {
	switch cmd {
	case CommandConfirm:
		if current == StatusPending {
			return Decision{Next: StatusConfirmed}, nil
		}
	case CommandCheckIn:
		if current == StatusConfirmed {
			return Decision{Next: StatusCheckedIn, Effects: []Effect{EffectAllocateInventory}}, nil
		}
	case CommandComplete:
		if current == StatusCheckedIn {
			return Decision{Next: StatusCompleted, Effects: []Effect{EffectRequireSettlement}}, nil
		}
	case CommandInvoice:
		switch current {
		case StatusCompleted:
			return Decision{Next: StatusInvoiced}, nil
		case StatusInvoiced:
			return Decision{Next: StatusInvoiced, NoOp: true}, nil
		}
	case CommandCancel:
		switch current {
		case StatusPending, StatusConfirmed:
			return Decision{Next: StatusCancelled, Effects: []Effect{EffectSoftDelete}}, nil
		case StatusCheckedIn:
			return Decision{Next: StatusCancelled, Effects: []Effect{EffectReleaseInventory, EffectSoftDelete}}, nil
		}
	default:
		return Decision{}, shared.Validation("command", string(cmd), "unknown booking command")
	}
	return Decision{}, shared.State("booking", "", ErrInvalidTransition, "cannot %s a %s booking", cmd, current)
}

// Booking is a reservation of a room over a stay window.
type Booking struct {
	ID           int64           `json:"id"`
	RoomNumber   string          `json:"room_number"`
	GuestName    string          `json:"guest_name"`
	CheckIn      time.Time       `json:"check_in"`
	CheckOut     time.Time       `json:"check_out"`
	PointOfSale  PointOfSale     `json:"point_of_sale"`
	GuestCount   int             `json:"guest_count"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	Status       Status          `json:"status"`
	Notes        string          `json:"notes,omitempty"`
	CancelReason string          `json:"cancel_reason,omitempty"`
	CreatedBy    int64           `json:"created_by,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
	DeletedAt    *time.Time      `json:"deleted_at,omitempty"`
}

// Nights is the number of nights in the stay, rounded up.
func (b Booking) Nights() int {
	hours := b.CheckOut.Sub(b.CheckIn).Hours()
	n := int(hours / 24)
	if float64(n*24) < hours {
		n++
	}
	return n
}

// StatusEvent is one entry of a booking's status history.
type StatusEvent struct {
	ID        int64     `json:"id"`
	BookingID int64     `json:"booking_id"`
	From      Status    `json:"from"`
	To        Status    `json:"to"`
	ActorID   int64     `json:"actor_id,omitempty"`
	Note      string    `json:"note,omitempty"`
	At        time.Time `json:"at"`
}

// CreateInput describes a new booking.
type CreateInput struct {
	RoomNumber     string
	GuestName      string
	CheckIn        time.Time
	CheckOut       time.Time
	PointOfSale    PointOfSale
	GuestCount     int
	TotalAmount    decimal.Decimal
	Notes          string
	IdempotencyKey string
}

// ListFilter narrows booking listings.
type ListFilter struct {
	Status           Status
	RoomNumber       string
	From             *time.Time
	To               *time.Time
	IncludeCancelled bool
}

// Folio is a booking together with its account.
type Folio struct {
	Booking  Booking                `json:"booking"`
	Summary  payments.Summary       `json:"summary"`
	Payments []payments.Payment     `json:"payments"`
	Charges  []payments.ExtraCharge `json:"charges"`
	History  []StatusEvent          `json:"history"`
}

var (
	// ErrBookingNotFound indicates an unknown booking id.
	ErrBookingNotFound = errors.New("booking not found")
	// ErrRoomNotFound indicates an unknown room number.
	ErrRoomNotFound = errors.New("room not found")
	// ErrOverlap is the cause of bookings that collide with an active stay.
	ErrOverlap = errors.New("room already booked for the stay")
)
