package localdb

import (
	"context"
	"database/sql"
	"encoding/json"

	"centrovision-data/internal/apperr"
	"centrovision-data/internal/bridge"
)

// dashboardRow is the local summary shape.
type dashboardRow struct {
	Consultations int                `json:"consultations"`
	Surgeries     int                `json:"surgeries"`
	RevenueTotal  float64            `json:"revenue_total"`
	Payments      map[string]float64 `json:"payments"`
	LowStock      int                `json:"low_stock"`
	Leads         int                `json:"leads"`
	Outstanding   float64            `json:"outstanding"`
}

func (s *Store) getDashboardSummary(ctx context.Context, raw json.RawMessage) (any, error) {
	a, err := bridge.Decode[struct {
		BranchID string `json:"branch_id"`
		From     string `json:"from"`
		To       string `json:"to"`
	}](raw)
	if err != nil {
		return nil, apperr.Validation("%v", err)
	}
	from, to, err := dayRange(a.From, a.To)
	if err != nil {
		return nil, err
	}

	d := dashboardRow{Payments: map[string]float64{}}
	counts := []struct {
		dest  any
		query string
		args  []any
	}{
		{&d.Consultations, `SELECT COUNT(*) FROM encounters WHERE branch_id = ? AND encounter_date >= ? AND encounter_date < ?`, []any{a.BranchID, from, to}},
		{&d.Surgeries, `SELECT COUNT(*) FROM surgeries WHERE branch_id = ? AND status != 'cancelled' AND scheduled_at >= ? AND scheduled_at < ?`, []any{a.BranchID, from, to}},
		{&d.RevenueTotal, `SELECT COALESCE(SUM(amount), 0) FROM payments WHERE branch_id = ? AND created_at >= ? AND created_at < ?`, []any{a.BranchID, from, to}},
		{&d.LowStock, `SELECT COUNT(*) FROM inventory_items WHERE branch_id = ? AND active = 1 AND min_stock > 0 AND current_stock <= min_stock`, []any{a.BranchID}},
		{&d.Leads, `SELECT COUNT(*) FROM crm_leads WHERE created_at >= ? AND created_at < ?`, []any{from, to}},
		{&d.Outstanding, `SELECT COALESCE(SUM(balance_due), 0) FROM invoices WHERE branch_id = ? AND status != 'paid'`, []any{a.BranchID}},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, c.query, c.args...).Scan(c.dest); err != nil {
			return nil, classifySQL("get_dashboard_summary", err)
		}
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT payment_method, SUM(amount) FROM payments
		 WHERE branch_id = ? AND created_at >= ? AND created_at < ?
		 GROUP BY payment_method`, a.BranchID, from, to)
	if err != nil {
		return nil, classifySQL("get_dashboard_summary", err)
	}
	defer rows.Close()
	for rows.Next() {
		var method string
		var total sql.NullFloat64
		if err := rows.Scan(&method, &total); err != nil {
			return nil, err
		}
		d.Payments[method] = total.Float64
	}
	return d, rows.Err()
}
