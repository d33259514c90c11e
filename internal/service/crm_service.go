package service

import (
	"context"
	"strings"

	"centrovision-data/internal/apperr"
	"centrovision-data/internal/domain"
	"centrovision-data/internal/dualaccess"
	"centrovision-data/internal/repository"

	"go.uber.org/zap"
)

type CRMService struct {
	runner *dualaccess.Runner
	repos  dualaccess.Backends[repository.CRMRepository]
	logger *zap.Logger
}

func NewCRMService(runner *dualaccess.Runner, repos dualaccess.Backends[repository.CRMRepository], logger *zap.Logger) *CRMService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CRMService{runner: runner, repos: repos, logger: logger}
}

func (s *CRMService) ListStages(ctx context.Context, pipeline string) ([]*domain.PipelineStage, error) {
	if err := required("pipeline", pipeline); err != nil {
		return nil, err
	}
	return dualaccess.Do(ctx, s.runner, familyCRM, "ListStages", s.repos,
		func(ctx context.Context, r repository.CRMRepository) ([]*domain.PipelineStage, error) {
			return r.ListStages(ctx, pipeline)
		})
}

func (s *CRMService) ListLeads(ctx context.Context, pipeline string) ([]*domain.Lead, error) {
	if err := required("pipeline", pipeline); err != nil {
		return nil, err
	}
	return dualaccess.Do(ctx, s.runner, familyCRM, "ListLeads", s.repos,
		func(ctx context.Context, r repository.CRMRepository) ([]*domain.Lead, error) {
			return r.ListLeads(ctx, pipeline)
		})
}

// CreateLead adds a lead; without a stage it lands in the pipeline's first stage.
func (s *CRMService) CreateLead(ctx context.Context, lead *domain.Lead) (*domain.Lead, error) {
	if lead == nil {
		return nil, apperr.Validation("lead is required")
	}
	lead.FullName = strings.TrimSpace(lead.FullName)
	if err := required("pipeline", lead.Pipeline); err != nil {
		return nil, err
	}
	if err := required("full_name", lead.FullName); err != nil {
		return nil, err
	}
	if lead.Phone == "" && lead.Email == "" {
		return nil, apperr.Validation("phone or email is required")
	}
	return dualaccess.Do(ctx, s.runner, familyCRM, "CreateLead", s.repos,
		func(ctx context.Context, r repository.CRMRepository) (*domain.Lead, error) {
			if lead.StageID == "" {
				stages, err := r.ListStages(ctx, lead.Pipeline)
				if err != nil {
					return nil, err
				}
				if len(stages) == 0 {
					return nil, apperr.NotFound("pipeline %s has no stages", lead.Pipeline)
				}
				lead.StageID = stages[0].ID
			}
			return r.CreateLead(ctx, lead)
		})
}

func (s *CRMService) MoveLead(ctx context.Context, leadID, stageID string) (*domain.Lead, error) {
	if err := required("lead_id", leadID); err != nil {
		return nil, err
	}
	if err := required("stage_id", stageID); err != nil {
		return nil, err
	}
	return dualaccess.Do(ctx, s.runner, familyCRM, "MoveLead", s.repos,
		func(ctx context.Context, r repository.CRMRepository) (*domain.Lead, error) {
			return r.MoveLead(ctx, leadID, stageID)
		})
}
