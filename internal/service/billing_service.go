package service

import (
	"context"
	"strings"
	"time"

	"centrovision-data/internal/apperr"
	"centrovision-data/internal/domain"
	"centrovision-data/internal/dualaccess"
	"centrovision-data/internal/repository"

	"go.uber.org/zap"
)

// BillingService is the Caja module: invoices, payments and the daily close.
type BillingService struct {
	runner *dualaccess.Runner
	repos  dualaccess.Backends[repository.BillingRepository]
	logger *zap.Logger
	now    func() time.Time
}

func NewBillingService(runner *dualaccess.Runner, repos dualaccess.Backends[repository.BillingRepository], logger *zap.Logger) *BillingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BillingService{runner: runner, repos: repos, logger: logger, now: time.Now}
}

var invoiceItemTypes = map[string]bool{"consulta": true, "cirugia": true, "producto": true, "servicio": true}

// CreateInvoice prices the lines and stores a pending invoice.
func (s *BillingService) CreateInvoice(ctx context.Context, inv *domain.Invoice) (*domain.Invoice, error) {
	if inv == nil {
		return nil, apperr.Validation("invoice is required")
	}
	if err := required("branch_id", inv.BranchID); err != nil {
		return nil, err
	}
	if err := required("patient_id", inv.PatientID); err != nil {
		return nil, err
	}
	if len(inv.Items) == 0 {
		return nil, apperr.Validation("invoice needs at least one line")
	}
	for i := range inv.Items {
		it := &inv.Items[i]
		it.Description = strings.TrimSpace(it.Description)
		if it.ItemType == "" {
			it.ItemType = "servicio"
		}
		switch {
		case !invoiceItemTypes[it.ItemType]:
			return nil, apperr.Validation("line %d: unknown item type %q", i+1, it.ItemType)
		case it.Description == "":
			return nil, apperr.Validation("line %d: description is required", i+1)
		case it.Quantity <= 0:
			return nil, apperr.Validation("line %d: quantity must be greater than zero", i+1)
		case it.UnitPrice < 0:
			return nil, apperr.Validation("line %d: unit price cannot be negative", i+1)
		}
	}
	if inv.Discount < 0 {
		return nil, apperr.Validation("discount cannot be negative")
	}
	domain.PriceInvoice(inv)
	if inv.Discount > inv.Subtotal {
		return nil, apperr.Validation("discount %.2f exceeds subtotal %.2f", inv.Discount, inv.Subtotal)
	}
	if inv.CreatedBy == "" {
		inv.CreatedBy = callerID(ctx)
	}
	return dualaccess.Do(ctx, s.runner, familyBilling, "CreateInvoice", s.repos,
		func(ctx context.Context, r repository.BillingRepository) (*domain.Invoice, error) {
			return r.CreateInvoice(ctx, inv)
		})
}

func (s *BillingService) GetInvoice(ctx context.Context, id string) (*domain.Invoice, error) {
	if err := required("id", id); err != nil {
		return nil, err
	}
	return dualaccess.Do(ctx, s.runner, familyBilling, "GetInvoice", s.repos,
		func(ctx context.Context, r repository.BillingRepository) (*domain.Invoice, error) {
			return r.GetInvoice(ctx, id)
		})
}

func (s *BillingService) ListInvoices(ctx context.Context, f repository.InvoiceFilters) ([]*domain.Invoice, error) {
	switch f.Status {
	case "", domain.InvoicePending, domain.InvoicePartial, domain.InvoicePaid:
	default:
		return nil, apperr.Validation("unknown invoice status %q", f.Status)
	}
	return dualaccess.Do(ctx, s.runner, familyBilling, "ListInvoices", s.repos,
		func(ctx context.Context, r repository.BillingRepository) ([]*domain.Invoice, error) {
			return r.ListInvoices(ctx, f)
		})
}

// RecordPayment applies a payment to an invoice. The amount must be positive
// and no larger than the outstanding balance.
func (s *BillingService) RecordPayment(ctx context.Context, p *domain.Payment) (*domain.Payment, error) {
	if p == nil {
		return nil, apperr.Validation("payment is required")
	}
	if err := required("invoice_id", p.InvoiceID); err != nil {
		return nil, err
	}
	if !p.Method.Valid() {
		return nil, apperr.Validation("unknown payment method %q", p.Method)
	}
	p.Amount = domain.Round2(p.Amount)
	if p.Amount <= 0 {
		return nil, apperr.Validation("amount must be greater than zero")
	}
	if p.ReceivedBy == "" {
		p.ReceivedBy = callerID(ctx)
	}
	return dualaccess.Do(ctx, s.runner, familyBilling, "RecordPayment", s.repos,
		func(ctx context.Context, r repository.BillingRepository) (*domain.Payment, error) {
			inv, err := r.GetInvoice(ctx, p.InvoiceID)
			if err != nil {
				return nil, err
			}
			if inv.Status == domain.InvoicePaid {
				return nil, apperr.BusinessRule("invoice %s is already paid", inv.Number)
			}
			if p.Amount > domain.Round2(inv.Balance) {
				return nil, apperr.BusinessRule("payment %.2f exceeds balance %.2f", p.Amount, inv.Balance)
			}
			if p.BranchID == "" {
				p.BranchID = inv.BranchID
			}
			return r.CreatePayment(ctx, p)
		})
}

func (s *BillingService) ListPayments(ctx context.Context, f repository.PaymentFilters) ([]*domain.Payment, error) {
	if f.Date != "" {
		if err := validDay("date", f.Date); err != nil {
			return nil, err
		}
	}
	if f.InvoiceID == "" && f.BranchID == "" {
		return nil, apperr.Validation("invoice_id or branch_id is required")
	}
	return dualaccess.Do(ctx, s.runner, familyBilling, "ListPayments", s.repos,
		func(ctx context.Context, r repository.BillingRepository) ([]*domain.Payment, error) {
			return r.ListPayments(ctx, f)
		})
}

type CloseCashRequest struct {
	BranchID string `json:"branch_id"`
	Date     string `json:"date"`
	Notes    string `json:"notes"`
}

// CloseCash totals the branch's payments of one day per method and stores the
// closure. Only cashiers and admins may close, and each day closes once.
func (s *BillingService) CloseCash(ctx context.Context, req CloseCashRequest) (*domain.CashClosure, error) {
	user, err := requireRole(ctx, "closing the cash register", domain.RoleCashier, domain.RoleAdmin)
	if err != nil {
		return nil, err
	}
	if err := required("branch_id", req.BranchID); err != nil {
		return nil, err
	}
	if req.Date == "" {
		req.Date = s.now().UTC().Format(dayLayout)
	}
	if err := validDay("date", req.Date); err != nil {
		return nil, err
	}
	return dualaccess.Do(ctx, s.runner, familyBilling, "CloseCash", s.repos,
		func(ctx context.Context, r repository.BillingRepository) (*domain.CashClosure, error) {
			existing, err := r.ListCashClosures(ctx, repository.ClosureFilters{BranchID: req.BranchID, Date: req.Date, Limit: 1})
			if err != nil {
				return nil, err
			}
			if len(existing) > 0 {
				return nil, apperr.BusinessRule("cash register for %s is already closed", req.Date)
			}
			payments, err := r.ListPayments(ctx, repository.PaymentFilters{BranchID: req.BranchID, Date: req.Date})
			if err != nil {
				return nil, err
			}
			list := make([]domain.Payment, 0, len(payments))
			for _, p := range payments {
				list = append(list, *p)
			}
			totals, total := domain.SummarizePayments(list)
			closure, err := r.CreateCashClosure(ctx, &domain.CashClosure{
				BranchID:     req.BranchID,
				Date:         req.Date,
				Totals:       totals,
				Total:        total,
				PaymentCount: len(list),
				Notes:        strings.TrimSpace(req.Notes),
				ClosedBy:     user.UserID,
			})
			if err != nil {
				return nil, err
			}
			s.logger.Info("Cash register closed",
				zap.String("branch_id", req.BranchID),
				zap.String("date", req.Date),
				zap.Float64("total", total),
				zap.Int("payments", len(list)),
			)
			return closure, nil
		})
}

func (s *BillingService) ListCashClosures(ctx context.Context, f repository.ClosureFilters) ([]*domain.CashClosure, error) {
	if err := required("branch_id", f.BranchID); err != nil {
		return nil, err
	}
	if f.Date != "" {
		if err := validDay("date", f.Date); err != nil {
			return nil, err
		}
	}
	return dualaccess.Do(ctx, s.runner, familyBilling, "ListCashClosures", s.repos,
		func(ctx context.Context, r repository.BillingRepository) ([]*domain.CashClosure, error) {
			return r.ListCashClosures(ctx, f)
		})
}
