// Package repository holds one contract per operation family and its two
// implementations: remote_* against the hosted backend and local_* against
// the Local Command Bridge. Each implementation reconciles its backend's row
// shape into the shared domain types, so callers never see either raw shape.
package repository

import (
	"errors"
	"strings"
	"time"

	"centrovision-data/internal/domain"
)

var errEmptyRepresentation = errors.New("backend returned no row")

const dayLayout = "2006-01-02"

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// nextDay returns the exclusive upper bound of a YYYY-MM-DD day.
func nextDay(day string) string {
	t, err := time.Parse(dayLayout, day)
	if err != nil {
		return day
	}
	return t.AddDate(0, 0, 1).Format(dayLayout)
}

// sanitizeSearch strips characters with meaning in the hosted filter grammar.
func sanitizeSearch(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ',', '(', ')', '*', '.', ':':
			return ' '
		}
		return r
	}, s)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// searchPattern builds a case-insensitive contains pattern in which the
// caller's text matches literally.
func searchPattern(s string) string {
	return "*" + likeEscaper.Replace(sanitizeSearch(s)) + "*"
}

// parseLocalTime reads the local store's timestamp text. Unparseable values
// become the zero time.
func parseLocalTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func itemPatchValues(p domain.InventoryItemPatch) map[string]any {
	v := map[string]any{}
	if p.Code != nil {
		v["code"] = *p.Code
	}
	if p.Name != nil {
		v["name"] = *p.Name
	}
	if p.Category != nil {
		v["category"] = string(*p.Category)
	}
	if p.SupplierID != nil {
		v["supplier_id"] = nullable(*p.SupplierID)
	}
	if p.UnitPrice != nil {
		v["unit_price"] = *p.UnitPrice
	}
	if p.CostPrice != nil {
		v["cost_price"] = *p.CostPrice
	}
	if p.MinStock != nil {
		v["min_stock"] = *p.MinStock
	}
	if p.Notes != nil {
		v["notes"] = *p.Notes
	}
	return v
}

func encounterPatchValues(p domain.EncounterPatch) map[string]string {
	v := map[string]string{}
	if p.ChiefComplaint != nil {
		v["chief_complaint"] = *p.ChiefComplaint
	}
	if p.Diagnosis != nil {
		v["diagnosis"] = *p.Diagnosis
	}
	if p.Plan != nil {
		v["plan"] = *p.Plan
	}
	if p.Status != nil {
		v["status"] = *p.Status
	}
	return v
}

// localTimestamp formats t the way the local store writes timestamps.
func localTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}
