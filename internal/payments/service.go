package payments

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/hotel-pms/hotel-pms/internal/observability"
	"github.com/hotel-pms/hotel-pms/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetBookingRef(ctx context.Context, bookingID int64) (BookingRef, error)
	GetPayment(ctx context.Context, id int64) (Payment, error)
	GetCharge(ctx context.Context, id int64) (ExtraCharge, error)
	ListPayments(ctx context.Context, bookingID int64) ([]Payment, error)
	ListCharges(ctx context.Context, bookingID int64) ([]ExtraCharge, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service reconciles payments against bookings.
type Service struct {
	repo    RepositoryPort
	phase   PhaseFunc
	idem    *shared.IdempotencyStore
	audit   AuditPort
	metrics *observability.DomainMetrics
	logger  *slog.Logger
}

// NewService builds Service. phase maps booking statuses to payment phases;
// idem may be nil when idempotency keys are not used.
func NewService(repo RepositoryPort, phase PhaseFunc, idem *shared.IdempotencyStore, audit AuditPort, metrics *observability.DomainMetrics, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, phase: phase, idem: idem, audit: audit, metrics: metrics, logger: logger}
}

const idempotencyModule = "payments"

// LoadLedger reads the payments and charges of a booking locked by the caller.
func LoadLedger(ctx context.Context, tx TxRepository, ref BookingRef) (Ledger, error) {
	pays, err := tx.ListPayments(ctx, ref.ID)
	if err != nil {
		return Ledger{}, err
	}
	charges, err := tx.ListCharges(ctx, ref.ID)
	if err != nil {
		return Ledger{}, err
	}
	return Ledger{BookingID: ref.ID, BookingTotal: ref.TotalAmount, Payments: pays, Charges: charges}, nil
}

// RecordPayment adds a payment to a booking. Completed payments are checked
// against the ledger under the booking lock; pending ones are checked again
// when they settle.
func (s *Service) RecordPayment(ctx context.Context, input RecordInput) (Payment, error) {
	if err := validateRecord(input); err != nil {
		return Payment{}, err
	}
	key := strings.TrimSpace(input.IdempotencyKey)
	if key != "" && s.idem != nil {
		fp := shared.Fingerprint(strconv.FormatInt(input.BookingID, 10), input.Amount.String(), string(input.Method), string(input.Type))
		if err := s.idem.CheckAndInsert(ctx, key, idempotencyModule, fp); err != nil {
			return Payment{}, err
		}
	}

	paidAt := input.PaidAt
	if paidAt.IsZero() {
		paidAt = time.Now().UTC()
	}
	payment := Payment{
		BookingID:      input.BookingID,
		Amount:         input.Amount,
		Method:         input.Method,
		Status:         StatusCompleted,
		Type:           input.Type,
		TransactionRef: strings.TrimSpace(input.TransactionRef),
		PaidAt:         paidAt,
		CreatedBy:      shared.ActorID(ctx),
	}
	if input.Pending {
		payment.Status = StatusPending
	}

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		ref, err := s.lockBooking(ctx, tx, input.BookingID)
		if err != nil {
			return err
		}
		if err := s.checkPhase(ref, input.Type); err != nil {
			return err
		}
		ledger, err := LoadLedger(ctx, tx, ref)
		if err != nil {
			return err
		}
		if err := ledger.CheckPayment(input.Amount, input.Type); err != nil {
			return err
		}
		id, err := tx.InsertPayment(ctx, payment)
		if err != nil {
			return err
		}
		payment.ID = id
		return nil
	})
	if err != nil {
		if key != "" && s.idem != nil {
			if delErr := s.idem.Delete(ctx, key, idempotencyModule); delErr != nil {
				s.logger.Warn("release idempotency key", slog.String("key", key), slog.Any("error", delErr))
			}
		}
		s.metrics.Rejected("payments", err)
		return Payment{}, shared.Attach(err, "booking", input.BookingID)
	}
	if payment.Status == StatusCompleted {
		s.metrics.PaymentRecorded(string(payment.Type), string(payment.Method))
	}
	s.record(ctx, "payment:record", payment.ID, map[string]any{
		"booking_id": payment.BookingID,
		"amount":     payment.Amount.String(),
		"type":       payment.Type,
		"status":     payment.Status,
	})
	return s.GetPayment(ctx, payment.ID)
}

// Settle resolves a pending payment. A completed outcome is held to the same
// rules as a payment recorded as completed.
func (s *Service) Settle(ctx context.Context, paymentID int64, outcome Outcome) (Payment, error) {
	if outcome != OutcomeCompleted && outcome != OutcomeFailed {
		return Payment{}, shared.Validation("payment", paymentID, "unknown outcome %q", outcome)
	}
	err := s.withPayment(ctx, paymentID, func(ctx context.Context, tx TxRepository, ref BookingRef, p Payment) error {
		if p.Status != StatusPending {
			return shared.State("payment", p.ID, nil, "payment is %s, only pending payments settle", p.Status)
		}
		if outcome == OutcomeFailed {
			return tx.UpdatePaymentStatus(ctx, p.ID, StatusFailed)
		}
		if err := s.checkPhase(ref, p.Type); err != nil {
			return err
		}
		ledger, err := LoadLedger(ctx, tx, ref)
		if err != nil {
			return err
		}
		if err := ledger.CheckPayment(p.Amount, p.Type); err != nil {
			return err
		}
		return tx.UpdatePaymentStatus(ctx, p.ID, StatusCompleted)
	})
	if err != nil {
		s.metrics.Rejected("payments", err)
		return Payment{}, shared.Attach(err, "payment", paymentID)
	}
	s.record(ctx, "payment:settle", paymentID, map[string]any{"outcome": outcome})
	p, err := s.GetPayment(ctx, paymentID)
	if err == nil && p.Status == StatusCompleted {
		s.metrics.PaymentRecorded(string(p.Type), string(p.Method))
	}
	return p, err
}

// Refund marks a completed payment refunded. Refunds lower Paid and are
// allowed in every phase.
func (s *Service) Refund(ctx context.Context, paymentID int64) (Payment, error) {
	err := s.withPayment(ctx, paymentID, func(ctx context.Context, tx TxRepository, _ BookingRef, p Payment) error {
		if p.Status != StatusCompleted {
			return shared.State("payment", p.ID, nil, "payment is %s, only completed payments can be refunded", p.Status)
		}
		return tx.UpdatePaymentStatus(ctx, p.ID, StatusRefunded)
	})
	if err != nil {
		s.metrics.Rejected("payments", err)
		return Payment{}, shared.Attach(err, "payment", paymentID)
	}
	s.record(ctx, "payment:refund", paymentID, nil)
	return s.GetPayment(ctx, paymentID)
}

// AddExtraCharge bills an add-on to a booking that is still open.
func (s *Service) AddExtraCharge(ctx context.Context, input ChargeInput) (ExtraCharge, error) {
	charge := ExtraCharge{
		BookingID:   input.BookingID,
		Description: strings.TrimSpace(input.Description),
		Quantity:    input.Quantity,
		UnitPrice:   input.UnitPrice,
		ChargeDate:  input.ChargeDate,
		CreatedBy:   shared.ActorID(ctx),
	}
	switch {
	case charge.Description == "":
		return ExtraCharge{}, shared.Validation("extra_charge", "", "description required")
	case charge.Quantity < 1:
		return ExtraCharge{}, shared.Validation("extra_charge", "", "quantity must be at least 1")
	case charge.UnitPrice.IsNegative():
		return ExtraCharge{}, shared.Validation("extra_charge", "", "unit price must not be negative")
	}
	if charge.ChargeDate.IsZero() {
		charge.ChargeDate = time.Now().UTC()
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		ref, err := s.lockBooking(ctx, tx, input.BookingID)
		if err != nil {
			return err
		}
		if err := s.requireOpen(ref); err != nil {
			return err
		}
		id, err := tx.InsertCharge(ctx, charge)
		if err != nil {
			return err
		}
		charge.ID = id
		return nil
	})
	if err != nil {
		s.metrics.Rejected("payments", err)
		return ExtraCharge{}, shared.Attach(err, "booking", input.BookingID)
	}
	s.record(ctx, "charge:add", charge.ID, map[string]any{
		"booking_id": charge.BookingID,
		"total":      charge.Total().String(),
	})
	return charge, nil
}

// RemoveExtraCharge deletes a charge while the booking is open, as long as the
// payments already taken stay covered.
func (s *Service) RemoveExtraCharge(ctx context.Context, chargeID int64) error {
	charge, err := s.repo.GetCharge(ctx, chargeID)
	if err != nil {
		if errors.Is(err, ErrChargeNotFound) {
			return shared.NotFound("extra_charge", chargeID)
		}
		return err
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		ref, err := s.lockBooking(ctx, tx, charge.BookingID)
		if err != nil {
			return err
		}
		if err := s.requireOpen(ref); err != nil {
			return err
		}
		ledger, err := LoadLedger(ctx, tx, ref)
		if err != nil {
			return err
		}
		if err := ledger.CheckChargeRemoval(chargeID); err != nil {
			return err
		}
		if err := tx.DeleteCharge(ctx, chargeID); err != nil {
			if errors.Is(err, ErrChargeNotFound) {
				return shared.NotFound("extra_charge", chargeID)
			}
			return err
		}
		return nil
	})
	if err != nil {
		s.metrics.Rejected("payments", err)
		return shared.Attach(err, "extra_charge", chargeID)
	}
	s.record(ctx, "charge:remove", chargeID, map[string]any{"booking_id": charge.BookingID})
	return nil
}

// Summary returns the reconciled account of a booking.
func (s *Service) Summary(ctx context.Context, bookingID int64) (Summary, error) {
	ref, err := s.repo.GetBookingRef(ctx, bookingID)
	if err != nil {
		if errors.Is(err, ErrBookingNotFound) {
			return Summary{}, shared.NotFound("booking", bookingID)
		}
		return Summary{}, err
	}
	pays, err := s.repo.ListPayments(ctx, bookingID)
	if err != nil {
		return Summary{}, err
	}
	charges, err := s.repo.ListCharges(ctx, bookingID)
	if err != nil {
		return Summary{}, err
	}
	return Ledger{BookingID: ref.ID, BookingTotal: ref.TotalAmount, Payments: pays, Charges: charges}.Summary(), nil
}

// Payments lists the payments of a booking.
func (s *Service) Payments(ctx context.Context, bookingID int64) ([]Payment, error) {
	return s.repo.ListPayments(ctx, bookingID)
}

// Charges lists the extra charges of a booking.
func (s *Service) Charges(ctx context.Context, bookingID int64) ([]ExtraCharge, error) {
	return s.repo.ListCharges(ctx, bookingID)
}

// GetPayment returns one payment.
func (s *Service) GetPayment(ctx context.Context, id int64) (Payment, error) {
	p, err := s.repo.GetPayment(ctx, id)
	if errors.Is(err, ErrPaymentNotFound) {
		return Payment{}, shared.NotFound("payment", id)
	}
	return p, err
}

// withPayment locks the owning booking before the payment row so that every
// writer of a booking's ledger takes locks in the same order.
func (s *Service) withPayment(ctx context.Context, paymentID int64, fn func(context.Context, TxRepository, BookingRef, Payment) error) error {
	current, err := s.GetPayment(ctx, paymentID)
	if err != nil {
		return err
	}
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		ref, err := s.lockBooking(ctx, tx, current.BookingID)
		if err != nil {
			return err
		}
		p, err := tx.GetPaymentForUpdate(ctx, paymentID)
		if err != nil {
			if errors.Is(err, ErrPaymentNotFound) {
				return shared.NotFound("payment", paymentID)
			}
			return err
		}
		return fn(ctx, tx, ref, p)
	})
}

func (s *Service) lockBooking(ctx context.Context, tx TxRepository, bookingID int64) (BookingRef, error) {
	ref, err := tx.LockBooking(ctx, bookingID)
	if err != nil {
		if errors.Is(err, ErrBookingNotFound) {
			return BookingRef{}, shared.NotFound("booking", bookingID)
		}
		return BookingRef{}, err
	}
	return ref, nil
}

func (s *Service) phaseOf(ref BookingRef) (Phase, error) {
	if s.phase == nil {
		return PhaseOpen, nil
	}
	phase, err := s.phase(ref.Status)
	if err != nil {
		return 0, shared.State("booking", ref.ID, err, "unknown booking status %q", ref.Status)
	}
	return phase, nil
}

func (s *Service) checkPhase(ref BookingRef, t Type) error {
	phase, err := s.phaseOf(ref)
	if err != nil {
		return err
	}
	switch phase {
	case PhaseInvoiced:
		return shared.State("booking", ref.ID, nil, "booking is invoiced, payments are closed")
	case PhaseCancelled:
		return shared.State("booking", ref.ID, nil, "booking is cancelled, payments are closed")
	case PhaseSettled:
		if t == TypeAdvance {
			return shared.State("booking", ref.ID, nil, "advance payments are only taken before completion")
		}
	}
	return nil
}

func (s *Service) requireOpen(ref BookingRef) error {
	phase, err := s.phaseOf(ref)
	if err != nil {
		return err
	}
	if phase != PhaseOpen {
		return shared.State("booking", ref.ID, nil, "booking is %s, extra charges are closed", ref.Status)
	}
	return nil
}

func validateRecord(input RecordInput) error {
	switch {
	case input.BookingID <= 0:
		return shared.Validation("payment", "", "booking id required")
	case !input.Amount.IsPositive():
		return shared.Validation("payment", "", "amount must be greater than zero")
	case !input.Method.Valid():
		return shared.Validation("payment", "", "unknown payment method %q", input.Method)
	case !input.Type.Valid():
		return shared.Validation("payment", "", "unknown payment type %q", input.Type)
	}
	return nil
}

func (s *Service) record(ctx context.Context, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	entity := "payment"
	if strings.HasPrefix(action, "charge:") {
		entity = "extra_charge"
	}
	if err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  shared.ActorID(ctx),
		Action:   action,
		Entity:   entity,
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
	}); err != nil {
		s.logger.Warn("payments audit", slog.String("action", action), slog.Any("error", err))
	}
}
