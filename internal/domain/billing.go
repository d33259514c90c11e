package domain

import (
	"time"
)

type InvoiceStatus string

const (
	InvoicePending InvoiceStatus = "pending"
	InvoicePartial InvoiceStatus = "partial"
	InvoicePaid    InvoiceStatus = "paid"
)

type Invoice struct {
	ID        string        `json:"id"`
	Number    string        `json:"number"`
	BranchID  string        `json:"branch_id"`
	PatientID string        `json:"patient_id"`
	Status    InvoiceStatus `json:"status"`
	Subtotal  float64       `json:"subtotal"`
	Discount  float64       `json:"discount"`
	Total     float64       `json:"total"`
	Balance   float64       `json:"balance"`
	Items     []InvoiceItem `json:"items"`
	CreatedBy string        `json:"created_by,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
}

// InvoiceItem is one billed line. ItemType is consulta, cirugia, producto or servicio.
type InvoiceItem struct {
	ID          string  `json:"id"`
	InvoiceID   string  `json:"invoice_id"`
	ItemType    string  `json:"item_type"`
	ItemID      string  `json:"item_id,omitempty"`
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	Total       float64 `json:"total"`
}

// PriceInvoice fills line totals, subtotal, total and balance from the lines
// and the discount.
func PriceInvoice(inv *Invoice) {
	var subtotal float64
	for i := range inv.Items {
		inv.Items[i].Total = Round2(inv.Items[i].Quantity * inv.Items[i].UnitPrice)
		subtotal += inv.Items[i].Total
	}
	inv.Subtotal = Round2(subtotal)
	inv.Discount = Round2(inv.Discount)
	inv.Total = Round2(inv.Subtotal - inv.Discount)
	inv.Balance = inv.Total
	inv.Status = InvoicePending
}

type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "efectivo"
	PaymentCard     PaymentMethod = "tarjeta"
	PaymentTransfer PaymentMethod = "transferencia"
	PaymentCheck    PaymentMethod = "cheque"
)

var PaymentMethods = []PaymentMethod{PaymentCash, PaymentCard, PaymentTransfer, PaymentCheck}

func (m PaymentMethod) Valid() bool {
	for _, v := range PaymentMethods {
		if v == m {
			return true
		}
	}
	return false
}

type Payment struct {
	ID         string        `json:"id"`
	InvoiceID  string        `json:"invoice_id"`
	BranchID   string        `json:"branch_id"`
	Amount     float64       `json:"amount"`
	Method     PaymentMethod `json:"method"`
	Reference  string        `json:"reference,omitempty"`
	ReceivedBy string        `json:"received_by,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
}

// ApplyPayment returns the invoice balance and status after paying amount.
func ApplyPayment(balance, amount float64) (float64, InvoiceStatus) {
	left := Round2(balance - amount)
	if left <= 0 {
		return 0, InvoicePaid
	}
	return left, InvoicePartial
}

// CashClosure is the end-of-day cash register close for one branch.
type CashClosure struct {
	ID           string                    `json:"id"`
	BranchID     string                    `json:"branch_id"`
	Date         string                    `json:"date"`
	Totals       map[PaymentMethod]float64 `json:"totals"`
	Total        float64                   `json:"total"`
	PaymentCount int                       `json:"payment_count"`
	Notes        string                    `json:"notes,omitempty"`
	ClosedBy     string                    `json:"closed_by"`
	CreatedAt    time.Time                 `json:"created_at"`
}

// SummarizePayments totals payments per method.
func SummarizePayments(payments []Payment) (map[PaymentMethod]float64, float64) {
	totals := make(map[PaymentMethod]float64, len(PaymentMethods))
	for _, m := range PaymentMethods {
		totals[m] = 0
	}
	var total float64
	for _, p := range payments {
		totals[p.Method] = Round2(totals[p.Method] + p.Amount)
		total += p.Amount
	}
	return totals, Round2(total)
}
