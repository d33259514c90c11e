package httpapi

import (
	"net/http"

	"centrovision-data/internal/domain"
	"centrovision-data/internal/repository"
)

func (h *Handlers) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	respond(w, r, domain.PrincipalFrom(r.Context()))
}

func (h *Handlers) ListBranches(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.Admin.ListBranches(r.Context())
	if err != nil {
		h.fail(w, r, "ListBranches", err)
		return
	}
	respond(w, r, list)
}

func (h *Handlers) ListProfiles(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.Admin.ListProfiles(r.Context())
	if err != nil {
		h.fail(w, r, "ListProfiles", err)
		return
	}
	respond(w, r, list)
}

func (h *Handlers) SetUserRole(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Role domain.Role `json:"role"`
	}
	if err := readBodyJSON(r, maxJSONBody, &payload); err != nil {
		h.fail(w, r, "SetUserRole", err)
		return
	}
	p, err := h.svc.Admin.SetUserRole(r.Context(), r.PathValue("id"), payload.Role)
	if err != nil {
		h.fail(w, r, "SetUserRole", err)
		return
	}
	respond(w, r, p)
}

func (h *Handlers) ListStages(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.CRM.ListStages(r.Context(), r.PathValue("pipeline"))
	if err != nil {
		h.fail(w, r, "ListStages", err)
		return
	}
	respond(w, r, list)
}

func (h *Handlers) ListLeads(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.CRM.ListLeads(r.Context(), r.PathValue("pipeline"))
	if err != nil {
		h.fail(w, r, "ListLeads", err)
		return
	}
	respond(w, r, list)
}

func (h *Handlers) CreateLead(w http.ResponseWriter, r *http.Request) {
	var lead domain.Lead
	if err := readBodyJSON(r, maxJSONBody, &lead); err != nil {
		h.fail(w, r, "CreateLead", err)
		return
	}
	created, err := h.svc.CRM.CreateLead(r.Context(), &lead)
	if err != nil {
		h.fail(w, r, "CreateLead", err)
		return
	}
	respond(w, r, created)
}

func (h *Handlers) MoveLead(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		StageID string `json:"stage_id"`
	}
	if err := readBodyJSON(r, maxJSONBody, &payload); err != nil {
		h.fail(w, r, "MoveLead", err)
		return
	}
	lead, err := h.svc.CRM.MoveLead(r.Context(), r.PathValue("id"), payload.StageID)
	if err != nil {
		h.fail(w, r, "MoveLead", err)
		return
	}
	respond(w, r, lead)
}

func (h *Handlers) Dashboard(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	summary, err := h.svc.Analytics.Dashboard(r.Context(), repository.DashboardFilters{
		BranchID: q.Get("branch_id"),
		From:     q.Get("from"),
		To:       q.Get("to"),
	})
	if err != nil {
		h.fail(w, r, "Dashboard", err)
		return
	}
	respond(w, r, summary)
}

func (h *Handlers) DocumentLink(w http.ResponseWriter, r *http.Request) {
	link, err := h.svc.Documents.Link(r.Context(), r.PathValue("bucket"), r.PathValue("path"))
	if err != nil {
		h.fail(w, r, "DocumentLink", err)
		return
	}
	respond(w, r, link)
}

func (h *Handlers) ListPreferences(w http.ResponseWriter, r *http.Request) {
	prefs, err := h.svc.Preferences.All(r.Context())
	if err != nil {
		h.fail(w, r, "ListPreferences", err)
		return
	}
	respond(w, r, prefs)
}

func (h *Handlers) SetPreference(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Value string `json:"value"`
	}
	if err := readBodyJSON(r, maxJSONBody, &payload); err != nil {
		h.fail(w, r, "SetPreference", err)
		return
	}
	key := r.PathValue("key")
	if err := h.svc.Preferences.Set(r.Context(), key, payload.Value); err != nil {
		h.fail(w, r, "SetPreference", err)
		return
	}
	respond(w, r, map[string]string{key: payload.Value})
}
