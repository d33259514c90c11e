package domain

import (
	"context"
	"time"
)

type Role string

const (
	RoleAdmin       Role = "admin"
	RoleDoctor      Role = "doctor"
	RoleNurse       Role = "nurse"
	RoleOptometrist Role = "optometrist"
	RoleReception   Role = "reception"
	RoleCashier     Role = "cashier"
)

var Roles = []Role{RoleAdmin, RoleDoctor, RoleNurse, RoleOptometrist, RoleReception, RoleCashier}

func (r Role) Valid() bool {
	for _, v := range Roles {
		if v == r {
			return true
		}
	}
	return false
}

type Branch struct {
	ID      string `json:"id"`
	Code    string `json:"code"`
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
	Active  bool   `json:"active"`
}

// UserProfile is an application user with its clinic role.
type UserProfile struct {
	UserID   string `json:"user_id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Role     Role   `json:"role"`
	BranchID string `json:"branch_id,omitempty"`
}

// HasRole reports whether the profile holds any of roles.
func (p *UserProfile) HasRole(roles ...Role) bool {
	if p == nil {
		return false
	}
	for _, r := range roles {
		if p.Role == r {
			return true
		}
	}
	return false
}

type principalKey struct{}

// WithPrincipal attaches the calling user to ctx.
func WithPrincipal(ctx context.Context, p *UserProfile) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the calling user, or nil.
func PrincipalFrom(ctx context.Context) *UserProfile {
	p, _ := ctx.Value(principalKey{}).(*UserProfile)
	return p
}

// DashboardSummary is the analytics overview of one branch over a period.
type DashboardSummary struct {
	BranchID          string                    `json:"branch_id"`
	From              string                    `json:"from"`
	To                string                    `json:"to"`
	Consultations     int                       `json:"consultations"`
	Surgeries         int                       `json:"surgeries"`
	Revenue           float64                   `json:"revenue"`
	PaymentsByMethod  map[PaymentMethod]float64 `json:"payments_by_method"`
	LowStockItems     int                       `json:"low_stock_items"`
	NewLeads          int                       `json:"new_leads"`
	OutstandingAmount float64                   `json:"outstanding_amount"`
}

// DocumentLink is a retrievable location for a stored document.
type DocumentLink struct {
	Bucket    string     `json:"bucket"`
	Path      string     `json:"path"`
	URL       string     `json:"url"`
	Local     bool       `json:"local"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}
