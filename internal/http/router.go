package httpapi

import (
	"net/http"

	"go.uber.org/zap"
)

// Router uses the standard library http.ServeMux with method patterns.
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

// HandleHandler registers an http.Handler (metrics).
func (r *Router) HandleHandler(pattern string, h http.Handler) {
	r.mux.Handle(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// RegisterRoutes mounts every API operation. Everything except connectivity
// and health requires a resolved caller.
func (r *Router) RegisterRoutes(h *Handlers) {
	r.Handle("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, Ok("ok"))
	})
	r.Handle("GET /api/v1/connectivity", h.GetConnectivity)
	r.Handle("POST /api/v1/connectivity/refresh", h.RefreshConnectivity)

	auth := h.requirePrincipal

	// admin
	r.Handle("GET /api/v1/me", auth(h.GetCurrentUser))
	r.Handle("GET /api/v1/branches", auth(h.ListBranches))
	r.Handle("GET /api/v1/profiles", auth(h.ListProfiles))
	r.Handle("PUT /api/v1/profiles/{id}/role", auth(h.SetUserRole))

	// inventory
	r.Handle("GET /api/v1/suppliers", auth(h.ListSuppliers))
	r.Handle("GET /api/v1/inventory/items", auth(h.ListItems))
	r.Handle("POST /api/v1/inventory/items", auth(h.CreateItem))
	r.Handle("GET /api/v1/inventory/items/{id}", auth(h.GetItem))
	r.Handle("PATCH /api/v1/inventory/items/{id}", auth(h.UpdateItem))
	r.Handle("DELETE /api/v1/inventory/items/{id}", auth(h.DeleteItem))
	r.Handle("GET /api/v1/inventory/items/{id}/movements", auth(h.ListMovements))
	r.Handle("POST /api/v1/inventory/movements", auth(h.RecordMovement))
	r.Handle("GET /api/v1/inventory/template", auth(h.InventoryTemplate))
	r.Handle("GET /api/v1/inventory/export", auth(h.ExportInventory))
	r.Handle("POST /api/v1/inventory/import/validate", auth(h.ValidateInventoryImport))
	r.Handle("POST /api/v1/inventory/import", auth(h.ImportInventory))

	// consultation and surgery
	r.Handle("GET /api/v1/encounters", auth(h.ListEncounters))
	r.Handle("POST /api/v1/encounters", auth(h.CreateEncounter))
	r.Handle("GET /api/v1/encounters/{id}", auth(h.GetEncounter))
	r.Handle("PATCH /api/v1/encounters/{id}", auth(h.UpdateEncounter))
	r.Handle("PUT /api/v1/encounters/{id}/exams/{eye}", auth(h.SaveEyeExam))
	r.Handle("GET /api/v1/surgeries", auth(h.ListSurgeries))
	r.Handle("POST /api/v1/surgeries", auth(h.ScheduleSurgery))
	r.Handle("GET /api/v1/surgeries/{id}", auth(h.GetSurgery))
	r.Handle("PATCH /api/v1/surgeries/{id}/status", auth(h.UpdateSurgeryStatus))

	// caja
	r.Handle("GET /api/v1/invoices", auth(h.ListInvoices))
	r.Handle("POST /api/v1/invoices", auth(h.CreateInvoice))
	r.Handle("GET /api/v1/invoices/{id}", auth(h.GetInvoice))
	r.Handle("GET /api/v1/payments", auth(h.ListPayments))
	r.Handle("POST /api/v1/payments", auth(h.RecordPayment))
	r.Handle("GET /api/v1/cash-closures", auth(h.ListCashClosures))
	r.Handle("POST /api/v1/cash-closures", auth(h.CloseCash))

	// crm
	r.Handle("GET /api/v1/crm/pipelines/{pipeline}/stages", auth(h.ListStages))
	r.Handle("GET /api/v1/crm/pipelines/{pipeline}/leads", auth(h.ListLeads))
	r.Handle("POST /api/v1/crm/leads", auth(h.CreateLead))
	r.Handle("PATCH /api/v1/crm/leads/{id}/stage", auth(h.MoveLead))

	r.Handle("GET /api/v1/analytics/dashboard", auth(h.Dashboard))
	r.Handle("GET /api/v1/documents/{bucket}/{path...}", auth(h.DocumentLink))

	r.Handle("GET /api/v1/preferences", auth(h.ListPreferences))
	r.Handle("PUT /api/v1/preferences/{key}", auth(h.SetPreference))
}
