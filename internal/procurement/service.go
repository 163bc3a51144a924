package procurement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hotel-pms/hotel-pms/internal/inventory"
	"github.com/hotel-pms/hotel-pms/internal/shared"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetPurchase(ctx context.Context, id int64) (Purchase, error)
	ListPurchases(ctx context.Context, filter ListFilter, page shared.Page) ([]Purchase, int, error)
	ListPayments(ctx context.Context, purchaseID int64) ([]PurchasePayment, error)
}

// Authorizer checks the caller carried in ctx against a permission.
type Authorizer interface {
	Authorize(ctx context.Context, perm string) error
}

// AuditPort reused from shared.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service orchestrates purchase flows.
type Service struct {
	repo   RepositoryPort
	authz  Authorizer
	idem   *shared.IdempotencyStore
	audit  AuditPort
	logger *slog.Logger
}

// NewService constructs procurement service.
func NewService(repo RepositoryPort, authz Authorizer, idem *shared.IdempotencyStore, audit AuditPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, authz: authz, idem: idem, audit: audit, logger: logger}
}

const idempotencyModule = "purchases"

// RecordPurchase stores a supplier invoice. A purchase paid in full at
// recording time is received into stock in the same transaction; partial
// payments leave stock untouched until the purchase is fully paid.
func (s *Service) RecordPurchase(ctx context.Context, input RecordInput) (Purchase, error) {
	if err := s.authz.Authorize(ctx, shared.PermPurchasesCreate); err != nil {
		return Purchase{}, err
	}
	p := Purchase{
		Supplier:      strings.TrimSpace(input.Supplier),
		InvoiceNumber: strings.TrimSpace(input.InvoiceNumber),
		PurchaseDate:  input.PurchaseDate,
		PaidAmount:    input.PaidAmount,
		PaymentMethod: input.PaymentMethod,
		Notes:         strings.TrimSpace(input.Notes),
		CreatedBy:     shared.ActorID(ctx),
	}
	if p.Supplier == "" {
		return Purchase{}, shared.Validation("purchase", "", "supplier required")
	}
	if !p.PaymentMethod.Valid() {
		return Purchase{}, shared.Validation("purchase", "", "unknown payment method %q", p.PaymentMethod)
	}
	if p.PaidAmount.IsNegative() {
		return Purchase{}, shared.Validation("purchase", "", "paid amount must not be negative")
	}
	items, total, err := buildItems(input.Items)
	if err != nil {
		return Purchase{}, err
	}
	p.Items, p.TotalAmount = items, total
	status, ok := StatusFor(total, p.PaidAmount)
	if !ok {
		return Purchase{}, shared.Payment("purchase", "", ErrOverpaid, "paid %s exceeds total %s", p.PaidAmount, total)
	}
	p.PaymentStatus = status
	if p.PurchaseDate.IsZero() {
		p.PurchaseDate = time.Now().UTC()
	}
	if p.InvoiceNumber == "" {
		p.InvoiceNumber = generateNumber("PUR")
	}

	key := strings.TrimSpace(input.IdempotencyKey)
	if key != "" && s.idem != nil {
		fp := shared.Fingerprint(p.Supplier, p.InvoiceNumber, total.String(), p.PaidAmount.String())
		if err := s.idem.CheckAndInsert(ctx, key, idempotencyModule, fp); err != nil {
			return Purchase{}, err
		}
	}

	var received int
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		received = 0
		if p.PaymentStatus == PaymentPaid {
			now := time.Now().UTC()
			p.ReceivedAt = &now
		}
		id, err := tx.InsertPurchase(ctx, p)
		if err != nil {
			if errors.Is(err, ErrDuplicateInvoice) {
				return shared.NewError(shared.KindValidation, "purchase", p.InvoiceNumber, err, "invoice already recorded for %s", p.Supplier)
			}
			return err
		}
		p.ID = id
		for i := range p.Items {
			p.Items[i].PurchaseID = id
			itemID, err := tx.InsertItem(ctx, p.Items[i])
			if err != nil {
				return err
			}
			p.Items[i].ID = itemID
		}
		if p.PaidAmount.IsPositive() {
			if _, err := tx.InsertPayment(ctx, PurchasePayment{
				PurchaseID: id,
				Amount:     p.PaidAmount,
				Method:     p.PaymentMethod,
				PaidAt:     p.PurchaseDate,
				CreatedBy:  p.CreatedBy,
			}); err != nil {
				return err
			}
		}
		if p.PaymentStatus == PaymentPaid {
			movements, err := inventory.Receive(ctx, tx.Inventory(), id, receiptLines(p.Items))
			if err != nil {
				return err
			}
			received = len(movements)
		}
		return nil
	})
	if err != nil {
		if key != "" && s.idem != nil {
			if delErr := s.idem.Delete(ctx, key, idempotencyModule); delErr != nil {
				s.logger.Warn("release idempotency key", slog.String("key", key), slog.Any("error", delErr))
			}
		}
		return Purchase{}, err
	}
	s.record(ctx, "purchase:create", p.ID, map[string]any{
		"supplier": p.Supplier,
		"total":    p.TotalAmount.String(),
		"status":   p.PaymentStatus,
		"received": received,
	})
	return s.Get(ctx, p.ID)
}

// RegisterPayment adds an installment. The purchase is received into stock
// exactly once, when the installment makes it paid.
func (s *Service) RegisterPayment(ctx context.Context, input PaymentInput) (Purchase, error) {
	if err := s.authz.Authorize(ctx, shared.PermPurchasesCreate); err != nil {
		return Purchase{}, err
	}
	if !input.Amount.IsPositive() {
		return Purchase{}, shared.Validation("purchase", input.PurchaseID, "amount must be greater than zero")
	}
	if input.Method != "" && !input.Method.Valid() {
		return Purchase{}, shared.Validation("purchase", input.PurchaseID, "unknown payment method %q", input.Method)
	}
	var (
		status   PaymentStatus
		received int
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		received = 0
		p, err := tx.GetPurchaseForUpdate(ctx, input.PurchaseID)
		if err != nil {
			if errors.Is(err, ErrPurchaseNotFound) {
				return shared.NotFound("purchase", input.PurchaseID)
			}
			return err
		}
		if p.PaymentStatus == PaymentPaid {
			return shared.State("purchase", p.ID, nil, "purchase is already paid")
		}
		paid := p.PaidAmount.Add(input.Amount)
		next, ok := StatusFor(p.TotalAmount, paid)
		if !ok {
			return shared.Payment("purchase", p.ID, ErrOverpaid, "paying %s would bring paid to %s of %s", input.Amount, paid, p.TotalAmount)
		}
		method := input.Method
		if method == "" {
			method = p.PaymentMethod
		}
		now := time.Now().UTC()
		if _, err := tx.InsertPayment(ctx, PurchasePayment{
			PurchaseID: p.ID,
			Amount:     input.Amount,
			Method:     method,
			PaidAt:     now,
			CreatedBy:  shared.ActorID(ctx),
		}); err != nil {
			return err
		}
		p.PaidAmount, p.PaymentStatus = paid, next
		if next == PaymentPaid && p.ReceivedAt == nil {
			items, err := tx.ListItems(ctx, p.ID)
			if err != nil {
				return err
			}
			movements, err := inventory.Receive(ctx, tx.Inventory(), p.ID, receiptLines(items))
			if err != nil {
				return err
			}
			received = len(movements)
			p.ReceivedAt = &now
		}
		status = next
		return tx.UpdatePayment(ctx, p)
	})
	if err != nil {
		return Purchase{}, shared.Attach(err, "purchase", input.PurchaseID)
	}
	s.record(ctx, "purchase:payment", input.PurchaseID, map[string]any{
		"amount":   input.Amount.String(),
		"status":   status,
		"received": received,
	})
	return s.Get(ctx, input.PurchaseID)
}

// Get returns a purchase with its items.
func (s *Service) Get(ctx context.Context, id int64) (Purchase, error) {
	p, err := s.repo.GetPurchase(ctx, id)
	if errors.Is(err, ErrPurchaseNotFound) {
		return Purchase{}, shared.NotFound("purchase", id)
	}
	return p, err
}

// List returns one page of purchases.
func (s *Service) List(ctx context.Context, filter ListFilter, page shared.Page) ([]Purchase, shared.Pagination, error) {
	if err := s.authz.Authorize(ctx, shared.PermPurchasesView); err != nil {
		return nil, shared.Pagination{}, err
	}
	page = page.Normalize()
	items, total, err := s.repo.ListPurchases(ctx, filter, page)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return items, shared.NewPagination(page, total), nil
}

// Payments lists the installments of a purchase.
func (s *Service) Payments(ctx context.Context, purchaseID int64) ([]PurchasePayment, error) {
	return s.repo.ListPayments(ctx, purchaseID)
}

func buildItems(inputs []ItemInput) ([]PurchaseItem, decimal.Decimal, error) {
	if len(inputs) == 0 {
		return nil, decimal.Zero, shared.Validation("purchase", "", "at least one item required")
	}
	items := make([]PurchaseItem, 0, len(inputs))
	total := decimal.Zero
	for i, in := range inputs {
		item := PurchaseItem{
			BasicID:     in.BasicID,
			Description: strings.TrimSpace(in.Description),
			Quantity:    in.Quantity,
			Price:       in.Price,
		}
		switch {
		case item.BasicID < 0:
			return nil, decimal.Zero, shared.Validation("purchase_item", i, "invalid basic id")
		case item.BasicID == 0 && item.Description == "":
			return nil, decimal.Zero, shared.Validation("purchase_item", i, "description required for lines without a basic item")
		case item.Quantity < 1:
			return nil, decimal.Zero, shared.Validation("purchase_item", i, "quantity must be at least 1")
		case item.Price.IsNegative():
			return nil, decimal.Zero, shared.Validation("purchase_item", i, "price must not be negative")
		}
		total = total.Add(item.Total())
		items = append(items, item)
	}
	return items, total, nil
}

func receiptLines(items []PurchaseItem) []inventory.ReceiptLine {
	var lines []inventory.ReceiptLine
	for _, it := range items {
		if it.BasicID > 0 {
			lines = append(lines, inventory.ReceiptLine{BasicID: it.BasicID, Quantity: it.Quantity})
		}
	}
	return lines
}

func generateNumber(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}

func (s *Service) record(ctx context.Context, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  shared.ActorID(ctx),
		Action:   action,
		Entity:   "purchase",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
	}); err != nil {
		s.logger.Warn("procurement audit", slog.String("action", action), slog.Any("error", err))
	}
}
