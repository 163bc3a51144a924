package invoicing

import (
	"context"
	"fmt"
	"time"

	"github.com/hotel-pms/hotel-pms/internal/booking"
	"github.com/hotel-pms/hotel-pms/internal/payments"
	"github.com/hotel-pms/hotel-pms/internal/shared"
)

// FolioSource reads a booking with its account.
type FolioSource interface {
	Folio(ctx context.Context, id int64) (booking.Folio, error)
}

// Service builds invoices for facturada bookings.
type Service struct {
	folios    FolioSource
	renderer  *Renderer
	hotelName string
	now       func() time.Time
}

// NewService builds Service.
func NewService(folios FolioSource, renderer *Renderer, hotelName string) *Service {
	return &Service{folios: folios, renderer: renderer, hotelName: hotelName, now: time.Now}
}

// Document assembles the invoice of booking id.
func (s *Service) Document(ctx context.Context, id int64) (Document, error) {
	folio, err := s.folios.Folio(ctx, id)
	if err != nil {
		return Document{}, err
	}
	b := folio.Booking
	if b.Status != booking.StatusInvoiced {
		return Document{}, shared.State("booking", id, nil, "booking is %s, only facturada bookings have an invoice", b.Status)
	}
	doc := Document{
		HotelName: s.hotelName,
		Number:    fmt.Sprintf("FAC-%06d", b.ID),
		IssuedAt:  s.issuedAt(folio),
		Booking:   b,
		Summary:   folio.Summary,
	}
	doc.Lines = append(doc.Lines, Line{
		Description: fmt.Sprintf("Alojamiento habitación %s (%d noches)", b.RoomNumber, b.Nights()),
		Quantity:    1,
		UnitPrice:   b.TotalAmount,
		Total:       b.TotalAmount,
	})
	for _, c := range folio.Charges {
		doc.Lines = append(doc.Lines, Line{
			Description: c.Description,
			Quantity:    c.Quantity,
			UnitPrice:   c.UnitPrice,
			Total:       c.Total(),
		})
	}
	for _, p := range folio.Payments {
		if p.Status == payments.StatusCompleted {
			doc.Payments = append(doc.Payments, p)
		}
	}
	return doc, nil
}

// PDF renders the invoice of booking id.
func (s *Service) PDF(ctx context.Context, id int64) ([]byte, error) {
	doc, err := s.Document(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.renderer.PDF(ctx, doc)
}

// issuedAt is the time the booking became facturada.
func (s *Service) issuedAt(folio booking.Folio) time.Time {
	for i := len(folio.History) - 1; i >= 0; i-- {
		if folio.History[i].To == booking.StatusInvoiced {
			return folio.History[i].At
		}
	}
	return s.now()
}

