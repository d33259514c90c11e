// Package service holds the feature modules. Each module validates and
// authorizes a request first, then runs its data operation through the
// dual-access runner against exactly one of its two repository backends.
package service

import (
	"context"
	"strings"
	"time"

	"centrovision-data/internal/apperr"
	"centrovision-data/internal/domain"
)

// Operation family names used in logs and metrics.
const (
	familyInventory    = "inventory"
	familyConsultation = "consultation"
	familySurgery      = "surgery"
	familyBilling      = "billing"
	familyCRM          = "crm"
	familyAnalytics    = "analytics"
	familyAdmin        = "admin"
	familyDocuments    = "documents"
)

const dayLayout = "2006-01-02"

func required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return apperr.Validation("%s is required", field)
	}
	return nil
}

func validDay(field, value string) error {
	if _, err := time.Parse(dayLayout, value); err != nil {
		return apperr.Validation("%s must be a YYYY-MM-DD date, got %q", field, value)
	}
	return nil
}

// requireRole returns the calling user when it holds one of roles.
func requireRole(ctx context.Context, action string, roles ...domain.Role) (*domain.UserProfile, error) {
	p := domain.PrincipalFrom(ctx)
	if p == nil {
		return nil, apperr.Authorization("%s requires a signed-in user", action)
	}
	if !p.HasRole(roles...) {
		names := make([]string, 0, len(roles))
		for _, r := range roles {
			names = append(names, string(r))
		}
		return nil, apperr.Authorization("%s requires role %s", action, strings.Join(names, " or "))
	}
	return p, nil
}

// callerID is the signed-in user's id, or "" when the request is anonymous.
func callerID(ctx context.Context) string {
	if p := domain.PrincipalFrom(ctx); p != nil {
		return p.UserID
	}
	return ""
}

// Services bundles the feature modules served by one process.
type Services struct {
	Inventory    *InventoryService
	Consultation *ConsultationService
	Surgery      *SurgeryService
	Billing      *BillingService
	CRM          *CRMService
	Analytics    *AnalyticsService
	Admin        *AdminService
	Documents    *DocumentService
	Preferences  *PreferenceService
}
