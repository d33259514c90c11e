package httpapi

import (
	"net/http"

	"centrovision-data/internal/domain"
	"centrovision-data/internal/repository"
)

func (h *Handlers) ListEncounters(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.Consultation.ListEncounters(r.Context(), r.URL.Query().Get("patient_id"))
	if err != nil {
		h.fail(w, r, "ListEncounters", err)
		return
	}
	respond(w, r, list)
}

func (h *Handlers) GetEncounter(w http.ResponseWriter, r *http.Request) {
	e, err := h.svc.Consultation.GetEncounter(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, r, "GetEncounter", err)
		return
	}
	respond(w, r, e)
}

func (h *Handlers) CreateEncounter(w http.ResponseWriter, r *http.Request) {
	var e domain.Encounter
	if err := readBodyJSON(r, maxJSONBody, &e); err != nil {
		h.fail(w, r, "CreateEncounter", err)
		return
	}
	created, err := h.svc.Consultation.CreateEncounter(r.Context(), &e)
	if err != nil {
		h.fail(w, r, "CreateEncounter", err)
		return
	}
	respond(w, r, created)
}

func (h *Handlers) UpdateEncounter(w http.ResponseWriter, r *http.Request) {
	var patch domain.EncounterPatch
	if err := readBodyJSON(r, maxJSONBody, &patch); err != nil {
		h.fail(w, r, "UpdateEncounter", err)
		return
	}
	e, err := h.svc.Consultation.UpdateEncounter(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		h.fail(w, r, "UpdateEncounter", err)
		return
	}
	respond(w, r, e)
}

// SaveEyeExam takes encounter and eye from the path; the body carries the measurements.
func (h *Handlers) SaveEyeExam(w http.ResponseWriter, r *http.Request) {
	var x domain.EyeExam
	if err := readBodyJSON(r, maxJSONBody, &x); err != nil {
		h.fail(w, r, "SaveEyeExam", err)
		return
	}
	x.EncounterID = r.PathValue("id")
	x.Eye = domain.Eye(r.PathValue("eye"))
	saved, err := h.svc.Consultation.SaveEyeExam(r.Context(), &x)
	if err != nil {
		h.fail(w, r, "SaveEyeExam", err)
		return
	}
	respond(w, r, saved)
}

func (h *Handlers) ListSurgeries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	list, err := h.svc.Surgery.ListSurgeries(r.Context(), repository.SurgeryFilters{
		BranchID: q.Get("branch_id"),
		From:     q.Get("from"),
		To:       q.Get("to"),
	})
	if err != nil {
		h.fail(w, r, "ListSurgeries", err)
		return
	}
	respond(w, r, list)
}

func (h *Handlers) GetSurgery(w http.ResponseWriter, r *http.Request) {
	s, err := h.svc.Surgery.GetSurgery(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, r, "GetSurgery", err)
		return
	}
	respond(w, r, s)
}

func (h *Handlers) ScheduleSurgery(w http.ResponseWriter, r *http.Request) {
	var s domain.Surgery
	if err := readBodyJSON(r, maxJSONBody, &s); err != nil {
		h.fail(w, r, "ScheduleSurgery", err)
		return
	}
	created, err := h.svc.Surgery.ScheduleSurgery(r.Context(), &s)
	if err != nil {
		h.fail(w, r, "ScheduleSurgery", err)
		return
	}
	respond(w, r, created)
}

func (h *Handlers) UpdateSurgeryStatus(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Status domain.SurgeryStatus `json:"status"`
	}
	if err := readBodyJSON(r, maxJSONBody, &payload); err != nil {
		h.fail(w, r, "UpdateSurgeryStatus", err)
		return
	}
	s, err := h.svc.Surgery.UpdateSurgeryStatus(r.Context(), r.PathValue("id"), payload.Status)
	if err != nil {
		h.fail(w, r, "UpdateSurgeryStatus", err)
		return
	}
	respond(w, r, s)
}
