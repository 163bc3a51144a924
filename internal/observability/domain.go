package observability

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hotel-pms/hotel-pms/internal/shared"
)

// DomainMetrics counts business outcomes. All methods are safe on a nil receiver.
type DomainMetrics struct {
	transitions *prometheus.CounterVec
	payments    *prometheus.CounterVec
	rejections  *prometheus.CounterVec
	stockMoves  *prometheus.CounterVec
}

// NewDomainMetrics registers the collectors against registerer.
func NewDomainMetrics(registerer prometheus.Registerer) *DomainMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	m := &DomainMetrics{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hotel_booking_transitions_total",
			Help: "Booking status transitions by target status.",
		}, []string{"to"}),
		payments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hotel_payments_recorded_total",
			Help: "Payments recorded by type and method.",
		}, []string{"type", "method"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hotel_operation_rejections_total",
			Help: "Rejected operations by module and error kind.",
		}, []string{"module", "kind"}),
		stockMoves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hotel_stock_movements_total",
			Help: "Stock card entries by movement kind.",
		}, []string{"kind"}),
	}
	registerer.MustRegister(m.transitions, m.payments, m.rejections, m.stockMoves)
	return m
}

// Transition counts a booking reaching status.
func (m *DomainMetrics) Transition(status string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(status).Inc()
}

// PaymentRecorded counts a recorded payment.
func (m *DomainMetrics) PaymentRecorded(paymentType, method string) {
	if m == nil {
		return
	}
	m.payments.WithLabelValues(paymentType, method).Inc()
}

// StockMoved counts stock card entries.
func (m *DomainMetrics) StockMoved(kind string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.stockMoves.WithLabelValues(kind).Add(float64(n))
}

// Rejected counts a failed operation when err carries a domain kind.
func (m *DomainMetrics) Rejected(module string, err error) {
	if m == nil || err == nil {
		return
	}
	kind := shared.KindOf(err)
	if kind == "" {
		kind = "internal"
	}
	m.rejections.WithLabelValues(module, string(kind)).Inc()
}
