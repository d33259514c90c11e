package repository

import (
	"context"

	"centrovision-data/internal/bridge"
	"centrovision-data/internal/domain"
)

type LocalBillingRepository struct {
	bridge bridge.Invoker
}

func NewLocalBillingRepository(b bridge.Invoker) *LocalBillingRepository {
	return &LocalBillingRepository{bridge: b}
}

// localInvoiceRow uses invoice_number, balance_due, inline "items" and
// line_total per line.
type localInvoiceRow struct {
	ID            string                `json:"id"`
	InvoiceNumber string                `json:"invoice_number"`
	BranchID      string                `json:"branch_id"`
	PatientID     string                `json:"patient_id"`
	Status        string                `json:"status"`
	Subtotal      float64               `json:"subtotal"`
	Discount      float64               `json:"discount"`
	Total         float64               `json:"total"`
	BalanceDue    float64               `json:"balance_due"`
	CreatedBy     string                `json:"created_by"`
	CreatedAt     string                `json:"created_at"`
	Items         []localInvoiceItemRow `json:"items"`
}

type localInvoiceItemRow struct {
	ID          string  `json:"id"`
	InvoiceID   string  `json:"invoice_id"`
	ItemType    string  `json:"item_type"`
	ItemID      string  `json:"item_id"`
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	LineTotal   float64 `json:"line_total"`
}

func (r localInvoiceRow) toDomain() *domain.Invoice {
	inv := &domain.Invoice{
		ID:        r.ID,
		Number:    r.InvoiceNumber,
		BranchID:  r.BranchID,
		PatientID: r.PatientID,
		Status:    domain.InvoiceStatus(r.Status),
		Subtotal:  r.Subtotal,
		Discount:  r.Discount,
		Total:     r.Total,
		Balance:   r.BalanceDue,
		CreatedBy: r.CreatedBy,
		CreatedAt: parseLocalTime(r.CreatedAt),
		Items:     make([]domain.InvoiceItem, 0, len(r.Items)),
	}
	for _, it := range r.Items {
		inv.Items = append(inv.Items, domain.InvoiceItem{
			ID:          it.ID,
			InvoiceID:   it.InvoiceID,
			ItemType:    it.ItemType,
			ItemID:      it.ItemID,
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			Total:       it.LineTotal,
		})
	}
	return inv
}

func (r *LocalBillingRepository) CreateInvoice(ctx context.Context, inv *domain.Invoice) (*domain.Invoice, error) {
	args := localInvoiceRow{
		BranchID:   inv.BranchID,
		PatientID:  inv.PatientID,
		Status:     string(inv.Status),
		Subtotal:   inv.Subtotal,
		Discount:   inv.Discount,
		Total:      inv.Total,
		BalanceDue: inv.Balance,
		CreatedBy:  inv.CreatedBy,
	}
	for _, it := range inv.Items {
		args.Items = append(args.Items, localInvoiceItemRow{
			ItemType:    it.ItemType,
			ItemID:      it.ItemID,
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			LineTotal:   it.Total,
		})
	}
	var row localInvoiceRow
	if err := r.bridge.Invoke(ctx, "create_invoice", args, &row); err != nil {
		return nil, err
	}
	return row.toDomain(), nil
}

func (r *LocalBillingRepository) GetInvoice(ctx context.Context, id string) (*domain.Invoice, error) {
	var row localInvoiceRow
	if err := r.bridge.Invoke(ctx, "get_invoice", map[string]string{"id": id}, &row); err != nil {
		return nil, err
	}
	return row.toDomain(), nil
}

func (r *LocalBillingRepository) ListInvoices(ctx context.Context, f InvoiceFilters) ([]*domain.Invoice, error) {
	args := map[string]any{
		"branch_id":  f.BranchID,
		"patient_id": f.PatientID,
		"status":     string(f.Status),
		"limit":      f.Limit,
	}
	var rows []localInvoiceRow
	if err := r.bridge.Invoke(ctx, "get_invoices", args, &rows); err != nil {
		return nil, err
	}
	out := make([]*domain.Invoice, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

// localPaymentRow names the method payment_method.
type localPaymentRow struct {
	ID            string  `json:"id"`
	InvoiceID     string  `json:"invoice_id"`
	BranchID      string  `json:"branch_id"`
	Amount        float64 `json:"amount"`
	PaymentMethod string  `json:"payment_method"`
	Reference     string  `json:"reference"`
	ReceivedBy    string  `json:"received_by"`
	CreatedAt     string  `json:"created_at"`
}

func (p localPaymentRow) toDomain() *domain.Payment {
	return &domain.Payment{
		ID:         p.ID,
		InvoiceID:  p.InvoiceID,
		BranchID:   p.BranchID,
		Amount:     p.Amount,
		Method:     domain.PaymentMethod(p.PaymentMethod),
		Reference:  p.Reference,
		ReceivedBy: p.ReceivedBy,
		CreatedAt:  parseLocalTime(p.CreatedAt),
	}
}

func (r *LocalBillingRepository) CreatePayment(ctx context.Context, p *domain.Payment) (*domain.Payment, error) {
	var row localPaymentRow
	err := r.bridge.Invoke(ctx, "create_payment", localPaymentRow{
		InvoiceID:     p.InvoiceID,
		BranchID:      p.BranchID,
		Amount:        p.Amount,
		PaymentMethod: string(p.Method),
		Reference:     p.Reference,
		ReceivedBy:    p.ReceivedBy,
	}, &row)
	if err != nil {
		return nil, err
	}
	return row.toDomain(), nil
}

func (r *LocalBillingRepository) ListPayments(ctx context.Context, f PaymentFilters) ([]*domain.Payment, error) {
	args := map[string]string{"invoice_id": f.InvoiceID, "branch_id": f.BranchID, "date": f.Date}
	var rows []localPaymentRow
	if err := r.bridge.Invoke(ctx, "get_payments", args, &rows); err != nil {
		return nil, err
	}
	out := make([]*domain.Payment, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

// localClosureRow stores one column per payment method.
type localClosureRow struct {
	ID            string  `json:"id"`
	BranchID      string  `json:"branch_id"`
	ClosureDate   string  `json:"closure_date"`
	TotalCash     float64 `json:"total_cash"`
	TotalCard     float64 `json:"total_card"`
	TotalTransfer float64 `json:"total_transfer"`
	TotalCheck    float64 `json:"total_check"`
	Total         float64 `json:"total"`
	PaymentCount  int     `json:"payment_count"`
	Notes         string  `json:"notes"`
	ClosedBy      string  `json:"closed_by"`
	CreatedAt     string  `json:"created_at"`
}

func (c localClosureRow) toDomain() *domain.CashClosure {
	return &domain.CashClosure{
		ID:       c.ID,
		BranchID: c.BranchID,
		Date:     c.ClosureDate,
		Totals: map[domain.PaymentMethod]float64{
			domain.PaymentCash:     c.TotalCash,
			domain.PaymentCard:     c.TotalCard,
			domain.PaymentTransfer: c.TotalTransfer,
			domain.PaymentCheck:    c.TotalCheck,
		},
		Total:        c.Total,
		PaymentCount: c.PaymentCount,
		Notes:        c.Notes,
		ClosedBy:     c.ClosedBy,
		CreatedAt:    parseLocalTime(c.CreatedAt),
	}
}

func (r *LocalBillingRepository) CreateCashClosure(ctx context.Context, c *domain.CashClosure) (*domain.CashClosure, error) {
	var row localClosureRow
	err := r.bridge.Invoke(ctx, "create_cash_closure", localClosureRow{
		BranchID:      c.BranchID,
		ClosureDate:   c.Date,
		TotalCash:     c.Totals[domain.PaymentCash],
		TotalCard:     c.Totals[domain.PaymentCard],
		TotalTransfer: c.Totals[domain.PaymentTransfer],
		TotalCheck:    c.Totals[domain.PaymentCheck],
		Total:         c.Total,
		PaymentCount:  c.PaymentCount,
		Notes:         c.Notes,
		ClosedBy:      c.ClosedBy,
	}, &row)
	if err != nil {
		return nil, err
	}
	return row.toDomain(), nil
}

func (r *LocalBillingRepository) ListCashClosures(ctx context.Context, f ClosureFilters) ([]*domain.CashClosure, error) {
	var rows []localClosureRow
	args := map[string]any{"branch_id": f.BranchID, "date": f.Date, "limit": f.Limit}
	if err := r.bridge.Invoke(ctx, "get_cash_closures", args, &rows); err != nil {
		return nil, err
	}
	out := make([]*domain.CashClosure, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}
