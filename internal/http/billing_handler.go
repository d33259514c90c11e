package httpapi

import (
	"net/http"

	"centrovision-data/internal/domain"
	"centrovision-data/internal/repository"
	"centrovision-data/internal/service"
)

func (h *Handlers) ListInvoices(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	list, err := h.svc.Billing.ListInvoices(r.Context(), repository.InvoiceFilters{
		BranchID:  q.Get("branch_id"),
		PatientID: q.Get("patient_id"),
		Status:    domain.InvoiceStatus(q.Get("status")),
		Limit:     parseInt(q.Get("limit"), 50),
	})
	if err != nil {
		h.fail(w, r, "ListInvoices", err)
		return
	}
	respond(w, r, list)
}

func (h *Handlers) GetInvoice(w http.ResponseWriter, r *http.Request) {
	inv, err := h.svc.Billing.GetInvoice(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, r, "GetInvoice", err)
		return
	}
	respond(w, r, inv)
}

func (h *Handlers) CreateInvoice(w http.ResponseWriter, r *http.Request) {
	var inv domain.Invoice
	if err := readBodyJSON(r, maxJSONBody, &inv); err != nil {
		h.fail(w, r, "CreateInvoice", err)
		return
	}
	created, err := h.svc.Billing.CreateInvoice(r.Context(), &inv)
	if err != nil {
		h.fail(w, r, "CreateInvoice", err)
		return
	}
	respond(w, r, created)
}

func (h *Handlers) ListPayments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	list, err := h.svc.Billing.ListPayments(r.Context(), repository.PaymentFilters{
		InvoiceID: q.Get("invoice_id"),
		BranchID:  q.Get("branch_id"),
		Date:      q.Get("date"),
	})
	if err != nil {
		h.fail(w, r, "ListPayments", err)
		return
	}
	respond(w, r, list)
}

func (h *Handlers) RecordPayment(w http.ResponseWriter, r *http.Request) {
	var p domain.Payment
	if err := readBodyJSON(r, maxJSONBody, &p); err != nil {
		h.fail(w, r, "RecordPayment", err)
		return
	}
	created, err := h.svc.Billing.RecordPayment(r.Context(), &p)
	if err != nil {
		h.fail(w, r, "RecordPayment", err)
		return
	}
	respond(w, r, created)
}

func (h *Handlers) ListCashClosures(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	list, err := h.svc.Billing.ListCashClosures(r.Context(), repository.ClosureFilters{
		BranchID: q.Get("branch_id"),
		Date:     q.Get("date"),
		Limit:    parseInt(q.Get("limit"), 30),
	})
	if err != nil {
		h.fail(w, r, "ListCashClosures", err)
		return
	}
	respond(w, r, list)
}

func (h *Handlers) CloseCash(w http.ResponseWriter, r *http.Request) {
	var req service.CloseCashRequest
	if err := readBodyJSON(r, maxJSONBody, &req); err != nil {
		h.fail(w, r, "CloseCash", err)
		return
	}
	c, err := h.svc.Billing.CloseCash(r.Context(), req)
	if err != nil {
		h.fail(w, r, "CloseCash", err)
		return
	}
	respond(w, r, c)
}
