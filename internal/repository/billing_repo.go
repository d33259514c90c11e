package repository

import (
	"context"

	"centrovision-data/internal/domain"
)

// BillingRepository covers invoices, payments and cash closures (Caja).
type BillingRepository interface {
	// CreateInvoice stores a priced invoice and its lines; the backend assigns the number.
	CreateInvoice(ctx context.Context, inv *domain.Invoice) (*domain.Invoice, error)
	GetInvoice(ctx context.Context, id string) (*domain.Invoice, error)
	// ListInvoices returns invoice headers without lines.
	ListInvoices(ctx context.Context, filters InvoiceFilters) ([]*domain.Invoice, error)

	// CreatePayment records the payment and updates the invoice balance and status atomically.
	CreatePayment(ctx context.Context, p *domain.Payment) (*domain.Payment, error)
	ListPayments(ctx context.Context, filters PaymentFilters) ([]*domain.Payment, error)

	CreateCashClosure(ctx context.Context, c *domain.CashClosure) (*domain.CashClosure, error)
	ListCashClosures(ctx context.Context, filters ClosureFilters) ([]*domain.CashClosure, error)
}

type InvoiceFilters struct {
	BranchID  string
	PatientID string
	Status    domain.InvoiceStatus
	Limit     int
}

// PaymentFilters narrows ListPayments. Date is one YYYY-MM-DD day.
type PaymentFilters struct {
	InvoiceID string
	BranchID  string
	Date      string
}

type ClosureFilters struct {
	BranchID string
	Date     string
	Limit    int
}
