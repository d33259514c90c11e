package repository

import (
	"context"

	"centrovision-data/internal/bridge"
	"centrovision-data/internal/domain"
	"centrovision-data/internal/remote"
)

// DashboardFilters selects one branch over an inclusive YYYY-MM-DD range.
type DashboardFilters struct {
	BranchID string
	From     string
	To       string
}

type AnalyticsRepository interface {
	Dashboard(ctx context.Context, filters DashboardFilters) (*domain.DashboardSummary, error)
}

type RemoteAnalyticsRepository struct {
	client *remote.Client
}

func NewRemoteAnalyticsRepository(client *remote.Client) *RemoteAnalyticsRepository {
	return &RemoteAnalyticsRepository{client: client}
}

// remoteDashboardRow is what get_dashboard_summary returns; per-method
// revenue arrives as a list.
type remoteDashboardRow struct {
	TotalConsultations int     `json:"total_consultations"`
	TotalSurgeries     int     `json:"total_surgeries"`
	Revenue            float64 `json:"revenue"`
	PaymentsByMethod   []struct {
		Method string  `json:"method"`
		Total  float64 `json:"total"`
	} `json:"payments_by_method"`
	LowStockCount      int     `json:"low_stock_count"`
	NewLeads           int     `json:"new_leads"`
	OutstandingBalance float64 `json:"outstanding_balance"`
}

func (r *RemoteAnalyticsRepository) Dashboard(ctx context.Context, f DashboardFilters) (*domain.DashboardSummary, error) {
	var row remoteDashboardRow
	err := r.client.RPC(ctx, "get_dashboard_summary", map[string]any{
		"p_branch_id": f.BranchID,
		"p_from":      f.From,
		"p_to":        f.To,
	}, &row)
	if err != nil {
		return nil, err
	}
	byMethod := make(map[string]float64, len(row.PaymentsByMethod))
	for _, p := range row.PaymentsByMethod {
		byMethod[p.Method] += p.Total
	}
	return &domain.DashboardSummary{
		BranchID:          f.BranchID,
		From:              f.From,
		To:                f.To,
		Consultations:     row.TotalConsultations,
		Surgeries:         row.TotalSurgeries,
		Revenue:           domain.Round2(row.Revenue),
		PaymentsByMethod:  paymentsByMethod(byMethod),
		LowStockItems:     row.LowStockCount,
		NewLeads:          row.NewLeads,
		OutstandingAmount: domain.Round2(row.OutstandingBalance),
	}, nil
}

type LocalAnalyticsRepository struct {
	bridge bridge.Invoker
}

func NewLocalAnalyticsRepository(b bridge.Invoker) *LocalAnalyticsRepository {
	return &LocalAnalyticsRepository{bridge: b}
}

type localDashboardRow struct {
	Consultations int                `json:"consultations"`
	Surgeries     int                `json:"surgeries"`
	RevenueTotal  float64            `json:"revenue_total"`
	Payments      map[string]float64 `json:"payments"`
	LowStock      int                `json:"low_stock"`
	Leads         int                `json:"leads"`
	Outstanding   float64            `json:"outstanding"`
}

func (r *LocalAnalyticsRepository) Dashboard(ctx context.Context, f DashboardFilters) (*domain.DashboardSummary, error) {
	var row localDashboardRow
	args := map[string]string{"branch_id": f.BranchID, "from": f.From, "to": f.To}
	if err := r.bridge.Invoke(ctx, "get_dashboard_summary", args, &row); err != nil {
		return nil, err
	}
	return &domain.DashboardSummary{
		BranchID:          f.BranchID,
		From:              f.From,
		To:                f.To,
		Consultations:     row.Consultations,
		Surgeries:         row.Surgeries,
		Revenue:           domain.Round2(row.RevenueTotal),
		PaymentsByMethod:  paymentsByMethod(row.Payments),
		LowStockItems:     row.LowStock,
		NewLeads:          row.Leads,
		OutstandingAmount: domain.Round2(row.Outstanding),
	}, nil
}

// paymentsByMethod reports every known method, zero when absent.
func paymentsByMethod(in map[string]float64) map[domain.PaymentMethod]float64 {
	out := make(map[domain.PaymentMethod]float64, len(domain.PaymentMethods))
	for _, m := range domain.PaymentMethods {
		out[m] = domain.Round2(in[string(m)])
	}
	return out
}
