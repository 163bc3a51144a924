package invoicing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/hotel-pms/hotel-pms/internal/booking"
	"github.com/hotel-pms/hotel-pms/internal/payments"
	"github.com/hotel-pms/hotel-pms/internal/rbac"
	"github.com/hotel-pms/hotel-pms/internal/shared"
)

type stubFolios map[int64]booking.Folio

func (s stubFolios) Folio(_ context.Context, id int64) (booking.Folio, error) {
	f, ok := s[id]
	if !ok {
		return booking.Folio{}, shared.NotFound("booking", id)
	}
	return f, nil
}

type capturePDF struct{ html string }

func (c *capturePDF) RenderHTML(_ context.Context, html string) ([]byte, error) {
	c.html = html
	return []byte("%PDF-1.7"), nil
}

func folio(id int64, status booking.Status) booking.Folio {
	in := time.Date(2026, 3, 1, 15, 0, 0, 0, time.UTC)
	invoicedAt := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)
	return booking.Folio{
		Booking: booking.Booking{
			ID: id, RoomNumber: "204", GuestName: "Camila Ríos", GuestCount: 2,
			CheckIn: in, CheckOut: in.AddDate(0, 0, 3), Status: status,
			TotalAmount: decimal.NewFromInt(600000),
		},
		Summary: payments.Summary{
			BookingTotal: decimal.NewFromInt(600000),
			ExtrasTotal:  decimal.NewFromInt(30000),
			Required:     decimal.NewFromInt(630000),
			Paid:         decimal.NewFromInt(630000),
			Outstanding:  decimal.Zero,
			Status:       payments.DerivedPaid,
		},
		Charges: []payments.ExtraCharge{{ID: 1, Description: "Minibar", Quantity: 2, UnitPrice: decimal.NewFromInt(15000)}},
		Payments: []payments.Payment{
			{ID: 1, Amount: decimal.NewFromInt(630000), Type: payments.TypeComplete, Method: shared.MethodCash, Status: payments.StatusCompleted},
			{ID: 2, Amount: decimal.NewFromInt(5000), Type: payments.TypeExtraCharges, Method: shared.MethodWompi, Status: payments.StatusFailed},
		},
		History: []booking.StatusEvent{{To: booking.StatusInvoiced, At: invoicedAt}},
	}
}

func newService(t *testing.T) (*Service, *capturePDF) {
	t.Helper()
	pdf := &capturePDF{}
	renderer, err := NewRenderer(pdf, language.MustParse("es-CO"))
	require.NoError(t, err)
	folios := stubFolios{7: folio(7, booking.StatusInvoiced), 8: folio(8, booking.StatusCompleted)}
	return NewService(folios, renderer, "Hotel Los Andes"), pdf
}

func TestDocumentOnlyForInvoicedBookings(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	doc, err := svc.Document(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "FAC-000007", doc.Number)
	assert.Equal(t, time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC), doc.IssuedAt)
	require.Len(t, doc.Lines, 2)
	assert.True(t, doc.Lines[1].Total.Equal(decimal.NewFromInt(30000)))
	require.Len(t, doc.Payments, 1, "failed payments are left off")

	_, err = svc.Document(ctx, 8)
	require.ErrorIs(t, err, shared.ErrState)
	_, err = svc.Document(ctx, 9)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestPDFRendersLocalisedAmounts(t *testing.T) {
	svc, pdf := newService(t)

	out, err := svc.PDF(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.7", string(out))
	assert.Contains(t, pdf.html, "FAC-000007")
	assert.Contains(t, pdf.html, "Camila Ríos")
	assert.Regexp(t, `630[.,\s\x{a0}]?000`, pdf.html)
	assert.Contains(t, pdf.html, "(3 noches)")
	assert.Contains(t, pdf.html, "04/03/2026")
}

func TestHandlerServesPDF(t *testing.T) {
	svc, _ := newService(t)
	router := chi.NewRouter()
	NewHandler(svc, rbac.Middleware{Service: rbac.NewService()}, nil).MountRoutes(router)
	ctx := shared.ContextWithIdentity(context.Background(), shared.Identity{UserID: 1, Role: rbac.RoleReceptionist})

	req := httptest.NewRequest(http.MethodGet, "/bookings/7/invoice.pdf", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, "%PDF-1.7", rec.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/bookings/8/invoice.pdf", nil).WithContext(ctx)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusConflict, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/bookings/7/invoice.pdf", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
