package service

import (
	"context"
	"time"

	"centrovision-data/internal/apperr"
	"centrovision-data/internal/domain"
	"centrovision-data/internal/dualaccess"
	"centrovision-data/internal/repository"
)

// maxDashboardDays bounds the dashboard period.
const maxDashboardDays = 366

type AnalyticsService struct {
	runner *dualaccess.Runner
	repos  dualaccess.Backends[repository.AnalyticsRepository]
}

func NewAnalyticsService(runner *dualaccess.Runner, repos dualaccess.Backends[repository.AnalyticsRepository]) *AnalyticsService {
	return &AnalyticsService{runner: runner, repos: repos}
}

// Dashboard summarizes one branch over the inclusive day range [From, To].
func (s *AnalyticsService) Dashboard(ctx context.Context, f repository.DashboardFilters) (*domain.DashboardSummary, error) {
	if err := required("branch_id", f.BranchID); err != nil {
		return nil, err
	}
	from, err := time.Parse(dayLayout, f.From)
	if err != nil {
		return nil, apperr.Validation("from must be a YYYY-MM-DD date, got %q", f.From)
	}
	to, err := time.Parse(dayLayout, f.To)
	if err != nil {
		return nil, apperr.Validation("to must be a YYYY-MM-DD date, got %q", f.To)
	}
	if to.Before(from) {
		return nil, apperr.Validation("from %s is after to %s", f.From, f.To)
	}
	// both ends are inclusive
	if days := int(to.Sub(from).Hours()/24) + 1; days > maxDashboardDays {
		return nil, apperr.Validation("period cannot exceed %d days", maxDashboardDays)
	}
	return dualaccess.Do(ctx, s.runner, familyAnalytics, "Dashboard", s.repos,
		func(ctx context.Context, r repository.AnalyticsRepository) (*domain.DashboardSummary, error) {
			return r.Dashboard(ctx, f)
		})
}
