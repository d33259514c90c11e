package localdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"centrovision-data/internal/apperr"
	"centrovision-data/internal/bridge"
	"centrovision-data/internal/domain"
)

// invoiceRow is the local invoice shape (invoice_number, balance_due, items
// inline as "items").
type invoiceRow struct {
	ID            string           `json:"id"`
	InvoiceNumber string           `json:"invoice_number"`
	BranchID      string           `json:"branch_id"`
	PatientID     string           `json:"patient_id"`
	Status        string           `json:"status"`
	Subtotal      float64          `json:"subtotal"`
	Discount      float64          `json:"discount"`
	Total         float64          `json:"total"`
	BalanceDue    float64          `json:"balance_due"`
	CreatedBy     string           `json:"created_by"`
	CreatedAt     string           `json:"created_at"`
	Items         []invoiceItemRow `json:"items"`
}

type invoiceItemRow struct {
	ID          string  `json:"id"`
	InvoiceID   string  `json:"invoice_id"`
	ItemType    string  `json:"item_type"`
	ItemID      string  `json:"item_id"`
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	LineTotal   float64 `json:"line_total"`
}

const invoiceSelect = `
	SELECT id, invoice_number, branch_id, patient_id, status, subtotal, discount, total,
	       balance_due, created_by, created_at
	FROM invoices`

func scanInvoice(sc rowScanner) (invoiceRow, error) {
	var r invoiceRow
	err := sc.Scan(&r.ID, &r.InvoiceNumber, &r.BranchID, &r.PatientID, &r.Status, &r.Subtotal, &r.Discount,
		&r.Total, &r.BalanceDue, &r.CreatedBy, &r.CreatedAt)
	return r, err
}

// nextInvoiceNumber numbers invoices per branch and year: <branch code>-<year>-<seq>.
func (s *Store) nextInvoiceNumber(ctx context.Context, tx *sql.Tx, branchID string) (string, error) {
	var code string
	if err := tx.QueryRowContext(ctx, `SELECT code FROM branches WHERE id = ?`, branchID).Scan(&code); err != nil {
		if err == sql.ErrNoRows {
			code = "LOC"
		} else {
			return "", err
		}
	}
	year := s.now().UTC().Year()
	prefix := fmt.Sprintf("%s-%d-", code, year)
	var n int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM invoices WHERE invoice_number LIKE ?`, prefix+"%").Scan(&n); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%05d", prefix, n+1), nil
}

// createInvoice stores a priced invoice with its lines in one transaction.
func (s *Store) createInvoice(ctx context.Context, raw json.RawMessage) (any, error) {
	inv, err := bridge.Decode[invoiceRow](raw)
	if err != nil {
		return nil, apperr.Validation("%v", err)
	}
	inv.ID = s.newID()
	inv.CreatedAt = s.timestamp()

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		number, err := s.nextInvoiceNumber(ctx, tx, inv.BranchID)
		if err != nil {
			return classifySQL("create_invoice", err)
		}
		inv.InvoiceNumber = number
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO invoices (id, invoice_number, branch_id, patient_id, status, subtotal, discount, total,
			                       balance_due, created_by, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			inv.ID, inv.InvoiceNumber, inv.BranchID, inv.PatientID, inv.Status, inv.Subtotal, inv.Discount,
			inv.Total, inv.BalanceDue, inv.CreatedBy, inv.CreatedAt); err != nil {
			return classifySQL("create_invoice", err)
		}
		for i := range inv.Items {
			it := &inv.Items[i]
			it.ID = s.newID()
			it.InvoiceID = inv.ID
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO invoice_items (id, invoice_id, item_type, item_id, description, quantity, unit_price, line_total)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				it.ID, it.InvoiceID, it.ItemType, it.ItemID, it.Description, it.Quantity, it.UnitPrice, it.LineTotal); err != nil {
				return classifySQL("create_invoice", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return inv, nil
}

func (s *Store) invoiceItems(ctx context.Context, invoiceID string) ([]invoiceItemRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, invoice_id, item_type, item_id, description, quantity, unit_price, line_total
		 FROM invoice_items WHERE invoice_id = ?`, invoiceID)
	if err != nil {
		return nil, classifySQL("get_invoice", err)
	}
	defer rows.Close()
	out := []invoiceItemRow{}
	for rows.Next() {
		var it invoiceItemRow
		if err := rows.Scan(&it.ID, &it.InvoiceID, &it.ItemType, &it.ItemID, &it.Description, &it.Quantity, &it.UnitPrice, &it.LineTotal); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (s *Store) getInvoice(ctx context.Context, raw json.RawMessage) (any, error) {
	id, err := decodeID(raw)
	if err != nil {
		return nil, err
	}
	inv, err := scanInvoice(s.db.QueryRowContext(ctx, invoiceSelect+" WHERE id = ?", id))
	if err != nil {
		return nil, classifySQL("get_invoice", err)
	}
	if inv.Items, err = s.invoiceItems(ctx, id); err != nil {
		return nil, err
	}
	return inv, nil
}

// getInvoices lists invoice headers without lines.
func (s *Store) getInvoices(ctx context.Context, raw json.RawMessage) (any, error) {
	a, err := bridge.Decode[struct {
		BranchID  string `json:"branch_id"`
		PatientID string `json:"patient_id"`
		Status    string `json:"status"`
		Limit     int    `json:"limit"`
	}](raw)
	if err != nil {
		return nil, apperr.Validation("%v", err)
	}
	where := []string{}
	args := []any{}
	if a.BranchID != "" {
		where = append(where, "branch_id = ?")
		args = append(args, a.BranchID)
	}
	if a.PatientID != "" {
		where = append(where, "patient_id = ?")
		args = append(args, a.PatientID)
	}
	if a.Status != "" {
		where = append(where, "status = ?")
		args = append(args, a.Status)
	}
	if a.Limit <= 0 {
		a.Limit = 100
	}
	q := invoiceSelect
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	args = append(args, a.Limit)
	rows, err := s.db.QueryContext(ctx, q+" ORDER BY created_at DESC LIMIT ?", args...)
	if err != nil {
		return nil, classifySQL("get_invoices", err)
	}
	defer rows.Close()
	out := []invoiceRow{}
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		inv.Items = []invoiceItemRow{}
		out = append(out, inv)
	}
	return out, rows.Err()
}

// paymentRow is the local payment shape (payment_method instead of method).
type paymentRow struct {
	ID            string  `json:"id"`
	InvoiceID     string  `json:"invoice_id"`
	BranchID      string  `json:"branch_id"`
	Amount        float64 `json:"amount"`
	PaymentMethod string  `json:"payment_method"`
	Reference     string  `json:"reference"`
	ReceivedBy    string  `json:"received_by"`
	CreatedAt     string  `json:"created_at"`
}

// createPayment records the payment and moves the invoice balance/status in
// one transaction. Paying more than the balance is rejected.
func (s *Store) createPayment(ctx context.Context, raw json.RawMessage) (any, error) {
	p, err := bridge.Decode[paymentRow](raw)
	if err != nil {
		return nil, apperr.Validation("%v", err)
	}
	p.ID = s.newID()
	p.CreatedAt = s.timestamp()

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		var balance float64
		var branchID, status string
		if err := tx.QueryRowContext(ctx,
			`SELECT balance_due, branch_id, status FROM invoices WHERE id = ?`, p.InvoiceID).Scan(&balance, &branchID, &status); err != nil {
			return classifySQL("create_payment", err)
		}
		if status == string(domain.InvoicePaid) {
			return apperr.BusinessRule("invoice %s is already paid", p.InvoiceID)
		}
		if domain.Round2(p.Amount) > domain.Round2(balance) {
			return apperr.BusinessRule("payment %.2f exceeds balance %.2f", p.Amount, balance)
		}
		if p.BranchID == "" {
			p.BranchID = branchID
		}
		newBalance, newStatus := domain.ApplyPayment(balance, p.Amount)
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO payments (id, invoice_id, branch_id, amount, payment_method, reference, received_by, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			p.ID, p.InvoiceID, p.BranchID, p.Amount, p.PaymentMethod, p.Reference, p.ReceivedBy, p.CreatedAt); err != nil {
			return classifySQL("create_payment", err)
		}
		_, err := tx.ExecContext(ctx,
			`UPDATE invoices SET balance_due = ?, status = ? WHERE id = ?`, newBalance, string(newStatus), p.InvoiceID)
		return classifySQL("create_payment", err)
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Store) getPayments(ctx context.Context, raw json.RawMessage) (any, error) {
	a, err := bridge.Decode[struct {
		InvoiceID string `json:"invoice_id"`
		BranchID  string `json:"branch_id"`
		Date      string `json:"date"`
	}](raw)
	if err != nil {
		return nil, apperr.Validation("%v", err)
	}
	where := []string{}
	args := []any{}
	if a.InvoiceID != "" {
		where = append(where, "invoice_id = ?")
		args = append(args, a.InvoiceID)
	}
	if a.BranchID != "" {
		where = append(where, "branch_id = ?")
		args = append(args, a.BranchID)
	}
	if a.Date != "" {
		from, to, err := dayRange(a.Date, a.Date)
		if err != nil {
			return nil, err
		}
		where = append(where, "created_at >= ? AND created_at < ?")
		args = append(args, from, to)
	}
	q := `SELECT id, invoice_id, branch_id, amount, payment_method, reference, received_by, created_at FROM payments`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	rows, err := s.db.QueryContext(ctx, q+" ORDER BY created_at", args...)
	if err != nil {
		return nil, classifySQL("get_payments", err)
	}
	defer rows.Close()
	out := []paymentRow{}
	for rows.Next() {
		var p paymentRow
		if err := rows.Scan(&p.ID, &p.InvoiceID, &p.BranchID, &p.Amount, &p.PaymentMethod, &p.Reference, &p.ReceivedBy, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// closureRow is the local cash closure shape: one column per payment method.
type closureRow struct {
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

func (s *Store) createCashClosure(ctx context.Context, raw json.RawMessage) (any, error) {
	c, err := bridge.Decode[closureRow](raw)
	if err != nil {
		return nil, apperr.Validation("%v", err)
	}
	if _, err := time.Parse(dayLayout, c.ClosureDate); err != nil {
		return nil, apperr.Validation("invalid closure date %q", c.ClosureDate)
	}
	c.ID = s.newID()
	c.CreatedAt = s.timestamp()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO cash_closures (id, branch_id, closure_date, total_cash, total_card, total_transfer, total_check,
		                            total, payment_count, notes, closed_by, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.BranchID, c.ClosureDate, c.TotalCash, c.TotalCard, c.TotalTransfer, c.TotalCheck,
		c.Total, c.PaymentCount, c.Notes, c.ClosedBy, c.CreatedAt)
	if err != nil {
		return nil, classifySQL("create_cash_closure", err)
	}
	return c, nil
}

func (s *Store) getCashClosures(ctx context.Context, raw json.RawMessage) (any, error) {
	a, err := bridge.Decode[struct {
		BranchID string `json:"branch_id"`
		Date     string `json:"date"`
		Limit    int    `json:"limit"`
	}](raw)
	if err != nil {
		return nil, apperr.Validation("%v", err)
	}
	if a.Limit <= 0 {
		a.Limit = 30
	}
	q := `SELECT id, branch_id, closure_date, total_cash, total_card, total_transfer, total_check,
	             total, payment_count, notes, closed_by, created_at
	      FROM cash_closures WHERE branch_id = ?`
	args := []any{a.BranchID}
	if a.Date != "" {
		q += " AND closure_date = ?"
		args = append(args, a.Date)
	}
	args = append(args, a.Limit)
	rows, err := s.db.QueryContext(ctx, q+" ORDER BY closure_date DESC LIMIT ?", args...)
	if err != nil {
		return nil, classifySQL("get_cash_closures", err)
	}
	defer rows.Close()
	out := []closureRow{}
	for rows.Next() {
		var c closureRow
		if err := rows.Scan(&c.ID, &c.BranchID, &c.ClosureDate, &c.TotalCash, &c.TotalCard, &c.TotalTransfer, &c.TotalCheck,
			&c.Total, &c.PaymentCount, &c.Notes, &c.ClosedBy, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
