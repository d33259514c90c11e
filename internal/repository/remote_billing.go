package repository

import (
	"context"
	"time"

	"centrovision-data/internal/apperr"
	"centrovision-data/internal/domain"
	"centrovision-data/internal/remote"
)

type RemoteBillingRepository struct {
	client *remote.Client
}

func NewRemoteBillingRepository(client *remote.Client) *RemoteBillingRepository {
	return &RemoteBillingRepository{client: client}
}

// remoteInvoiceRow embeds the invoice_items relation; line totals are "total".
type remoteInvoiceRow struct {
	ID           string                 `json:"id"`
	Number       string                 `json:"number"`
	BranchID     string                 `json:"branch_id"`
	PatientID    string                 `json:"patient_id"`
	Status       string                 `json:"status"`
	Subtotal     float64                `json:"subtotal"`
	Discount     float64                `json:"discount"`
	Total        float64                `json:"total"`
	Balance      float64                `json:"balance"`
	CreatedBy    *string                `json:"created_by"`
	CreatedAt    time.Time              `json:"created_at"`
	InvoiceItems []remoteInvoiceItemRow `json:"invoice_items"`
}

type remoteInvoiceItemRow struct {
	ID          string  `json:"id"`
	InvoiceID   string  `json:"invoice_id"`
	ItemType    string  `json:"item_type"`
	ItemID      *string `json:"item_id"`
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	Total       float64 `json:"total"`
}

func (r remoteInvoiceRow) toDomain() *domain.Invoice {
	inv := &domain.Invoice{
		ID:        r.ID,
		Number:    r.Number,
		BranchID:  r.BranchID,
		PatientID: r.PatientID,
		Status:    domain.InvoiceStatus(r.Status),
		Subtotal:  r.Subtotal,
		Discount:  r.Discount,
		Total:     r.Total,
		Balance:   r.Balance,
		CreatedBy: deref(r.CreatedBy),
		CreatedAt: r.CreatedAt,
		Items:     make([]domain.InvoiceItem, 0, len(r.InvoiceItems)),
	}
	for _, it := range r.InvoiceItems {
		inv.Items = append(inv.Items, domain.InvoiceItem{
			ID:          it.ID,
			InvoiceID:   it.InvoiceID,
			ItemType:    it.ItemType,
			ItemID:      deref(it.ItemID),
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			Total:       it.Total,
		})
	}
	return inv
}

// CreateInvoice calls create_invoice, which numbers the invoice and inserts
// header and lines in one transaction.
func (r *RemoteBillingRepository) CreateInvoice(ctx context.Context, inv *domain.Invoice) (*domain.Invoice, error) {
	items := make([]map[string]any, 0, len(inv.Items))
	for _, it := range inv.Items {
		items = append(items, map[string]any{
			"item_type":   it.ItemType,
			"item_id":     nullable(it.ItemID),
			"description": it.Description,
			"quantity":    it.Quantity,
			"unit_price":  it.UnitPrice,
			"total":       it.Total,
		})
	}
	var row remoteInvoiceRow
	err := r.client.RPC(ctx, "create_invoice", map[string]any{
		"p_invoice": map[string]any{
			"branch_id":  inv.BranchID,
			"patient_id": inv.PatientID,
			"status":     string(inv.Status),
			"subtotal":   inv.Subtotal,
			"discount":   inv.Discount,
			"total":      inv.Total,
			"balance":    inv.Balance,
			"created_by": nullable(inv.CreatedBy),
		},
		"p_items": items,
	}, &row)
	if err != nil {
		return nil, err
	}
	return row.toDomain(), nil
}

func (r *RemoteBillingRepository) GetInvoice(ctx context.Context, id string) (*domain.Invoice, error) {
	var row remoteInvoiceRow
	if err := r.client.From("invoices").Select("*, invoice_items(*)").Eq("id", id).Single(ctx, &row); err != nil {
		return nil, err
	}
	return row.toDomain(), nil
}

func (r *RemoteBillingRepository) ListInvoices(ctx context.Context, f InvoiceFilters) ([]*domain.Invoice, error) {
	q := r.client.From("invoices")
	if f.BranchID != "" {
		q.Eq("branch_id", f.BranchID)
	}
	if f.PatientID != "" {
		q.Eq("patient_id", f.PatientID)
	}
	if f.Status != "" {
		q.Eq("status", string(f.Status))
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	var rows []remoteInvoiceRow
	if err := q.Order("created_at", false).Limit(limit).Execute(ctx, &rows); err != nil {
		return nil, err
	}
	out := make([]*domain.Invoice, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

type remotePaymentRow struct {
	ID         string    `json:"id"`
	InvoiceID  string    `json:"invoice_id"`
	BranchID   string    `json:"branch_id"`
	Amount     float64   `json:"amount"`
	Method     string    `json:"method"`
	Reference  *string   `json:"reference"`
	ReceivedBy *string   `json:"received_by"`
	CreatedAt  time.Time `json:"created_at"`
}

func (p remotePaymentRow) toDomain() *domain.Payment {
	return &domain.Payment{
		ID:         p.ID,
		InvoiceID:  p.InvoiceID,
		BranchID:   p.BranchID,
		Amount:     p.Amount,
		Method:     domain.PaymentMethod(p.Method),
		Reference:  deref(p.Reference),
		ReceivedBy: deref(p.ReceivedBy),
		CreatedAt:  p.CreatedAt,
	}
}

// CreatePayment calls record_payment, which locks the invoice, rejects
// overpayment and moves balance and status.
func (r *RemoteBillingRepository) CreatePayment(ctx context.Context, p *domain.Payment) (*domain.Payment, error) {
	var row remotePaymentRow
	err := r.client.RPC(ctx, "record_payment", map[string]any{
		"p_invoice_id":  p.InvoiceID,
		"p_amount":      p.Amount,
		"p_method":      string(p.Method),
		"p_reference":   p.Reference,
		"p_received_by": nullable(p.ReceivedBy),
	}, &row)
	if err != nil {
		return nil, err
	}
	return row.toDomain(), nil
}

func (r *RemoteBillingRepository) ListPayments(ctx context.Context, f PaymentFilters) ([]*domain.Payment, error) {
	q := r.client.From("payments")
	if f.InvoiceID != "" {
		q.Eq("invoice_id", f.InvoiceID)
	}
	if f.BranchID != "" {
		q.Eq("branch_id", f.BranchID)
	}
	if f.Date != "" {
		q.Gte("created_at", f.Date).Lt("created_at", nextDay(f.Date))
	}
	var rows []remotePaymentRow
	if err := q.Order("created_at", true).Execute(ctx, &rows); err != nil {
		return nil, err
	}
	out := make([]*domain.Payment, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

// remoteClosureRow keeps per-method totals in one JSON column.
type remoteClosureRow struct {
	ID           string             `json:"id"`
	BranchID     string             `json:"branch_id"`
	Date         string             `json:"date"`
	Totals       map[string]float64 `json:"totals"`
	Total        float64            `json:"total"`
	PaymentCount int                `json:"payment_count"`
	Notes        *string            `json:"notes"`
	ClosedBy     string             `json:"closed_by"`
	CreatedAt    time.Time          `json:"created_at"`
}

func (c remoteClosureRow) toDomain() *domain.CashClosure {
	totals := make(map[domain.PaymentMethod]float64, len(domain.PaymentMethods))
	for _, m := range domain.PaymentMethods {
		totals[m] = c.Totals[string(m)]
	}
	return &domain.CashClosure{
		ID:           c.ID,
		BranchID:     c.BranchID,
		Date:         c.Date,
		Totals:       totals,
		Total:        c.Total,
		PaymentCount: c.PaymentCount,
		Notes:        deref(c.Notes),
		ClosedBy:     c.ClosedBy,
		CreatedAt:    c.CreatedAt,
	}
}

func (r *RemoteBillingRepository) CreateCashClosure(ctx context.Context, c *domain.CashClosure) (*domain.CashClosure, error) {
	totals := make(map[string]float64, len(c.Totals))
	for m, v := range c.Totals {
		totals[string(m)] = v
	}
	var created []remoteClosureRow
	err := r.client.Insert(ctx, "cash_closures", map[string]any{
		"branch_id":     c.BranchID,
		"date":          c.Date,
		"totals":        totals,
		"total":         c.Total,
		"payment_count": c.PaymentCount,
		"notes":         c.Notes,
		"closed_by":     c.ClosedBy,
	}, &created)
	if err != nil {
		return nil, err
	}
	if len(created) == 0 {
		return nil, apperr.External("billing.CreateCashClosure", errEmptyRepresentation)
	}
	return created[0].toDomain(), nil
}

func (r *RemoteBillingRepository) ListCashClosures(ctx context.Context, f ClosureFilters) ([]*domain.CashClosure, error) {
	q := r.client.From("cash_closures").Eq("branch_id", f.BranchID)
	if f.Date != "" {
		q.Eq("date", f.Date)
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 30
	}
	var rows []remoteClosureRow
	if err := q.Order("date", false).Limit(limit).Execute(ctx, &rows); err != nil {
		return nil, err
	}
	out := make([]*domain.CashClosure, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}
