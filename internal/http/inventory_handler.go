package httpapi

import (
	"bytes"
	"net/http"
	"strings"
	"time"

	"centrovision-data/internal/domain"
	"centrovision-data/internal/repository"
)

func itemFiltersFrom(r *http.Request) repository.ItemFilters {
	q := r.URL.Query()
	return repository.ItemFilters{
		BranchID:        strings.TrimSpace(q.Get("branch_id")),
		Category:        domain.Category(strings.TrimSpace(q.Get("category"))),
		Search:          q.Get("search"),
		IncludeInactive: parseBool(q.Get("include_inactive")),
	}
}

func (h *Handlers) ListSuppliers(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.Inventory.ListSuppliers(r.Context())
	if err != nil {
		h.fail(w, r, "ListSuppliers", err)
		return
	}
	respond(w, r, list)
}

func (h *Handlers) ListItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.Inventory.ListItems(r.Context(), itemFiltersFrom(r))
	if err != nil {
		h.fail(w, r, "ListItems", err)
		return
	}
	respond(w, r, items)
}

func (h *Handlers) GetItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.svc.Inventory.GetItem(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, r, "GetItem", err)
		return
	}
	respond(w, r, item)
}

func (h *Handlers) CreateItem(w http.ResponseWriter, r *http.Request) {
	var item domain.InventoryItem
	if err := readBodyJSON(r, maxJSONBody, &item); err != nil {
		h.fail(w, r, "CreateItem", err)
		return
	}
	item.Active = true
	created, err := h.svc.Inventory.CreateItem(r.Context(), &item)
	if err != nil {
		h.fail(w, r, "CreateItem", err)
		return
	}
	respond(w, r, created)
}

func (h *Handlers) UpdateItem(w http.ResponseWriter, r *http.Request) {
	var patch domain.InventoryItemPatch
	if err := readBodyJSON(r, maxJSONBody, &patch); err != nil {
		h.fail(w, r, "UpdateItem", err)
		return
	}
	item, err := h.svc.Inventory.UpdateItem(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		h.fail(w, r, "UpdateItem", err)
		return
	}
	respond(w, r, item)
}

func (h *Handlers) DeleteItem(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.svc.Inventory.DeleteItem(r.Context(), id); err != nil {
		h.fail(w, r, "DeleteItem", err)
		return
	}
	respond(w, r, map[string]string{"id": id})
}

func (h *Handlers) ListMovements(w http.ResponseWriter, r *http.Request) {
	limit := parseInt(r.URL.Query().Get("limit"), 100)
	list, err := h.svc.Inventory.ListMovements(r.Context(), r.PathValue("id"), limit)
	if err != nil {
		h.fail(w, r, "ListMovements", err)
		return
	}
	respond(w, r, list)
}

func (h *Handlers) RecordMovement(w http.ResponseWriter, r *http.Request) {
	var m domain.InventoryMovement
	if err := readBodyJSON(r, maxJSONBody, &m); err != nil {
		h.fail(w, r, "RecordMovement", err)
		return
	}
	created, err := h.svc.Inventory.RecordMovement(r.Context(), &m)
	if err != nil {
		h.fail(w, r, "RecordMovement", err)
		return
	}
	respond(w, r, created)
}

func (h *Handlers) InventoryTemplate(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.svc.Inventory.ImportTemplate(&buf); err != nil {
		h.fail(w, r, "InventoryTemplate", err)
		return
	}
	writeSpreadsheet(w, r, "plantilla_inventario.xlsx", buf.Bytes())
}

func (h *Handlers) ExportInventory(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.svc.Inventory.ExportItems(r.Context(), itemFiltersFrom(r), &buf); err != nil {
		h.fail(w, r, "ExportInventory", err)
		return
	}
	name := "inventario_" + time.Now().Format("20060102") + ".xlsx"
	writeSpreadsheet(w, r, name, buf.Bytes())
}

func (h *Handlers) ValidateInventoryImport(w http.ResponseWriter, r *http.Request) {
	body, done, err := readUpload(r)
	if err != nil {
		h.fail(w, r, "ValidateInventoryImport", err)
		return
	}
	defer done()
	report, err := h.svc.Inventory.ValidateImport(r.Context(), r.URL.Query().Get("branch_id"), body)
	if err != nil {
		h.fail(w, r, "ValidateInventoryImport", err)
		return
	}
	respond(w, r, report)
}

func (h *Handlers) ImportInventory(w http.ResponseWriter, r *http.Request) {
	body, done, err := readUpload(r)
	if err != nil {
		h.fail(w, r, "ImportInventory", err)
		return
	}
	defer done()
	res, err := h.svc.Inventory.ImportValid(r.Context(), r.URL.Query().Get("branch_id"), body)
	if err != nil {
		h.fail(w, r, "ImportInventory", err)
		return
	}
	respond(w, r, res)
}
