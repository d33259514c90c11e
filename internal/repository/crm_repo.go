package repository

import (
	"context"

	"centrovision-data/internal/domain"
)

type CRMRepository interface {
	// ListStages returns the pipeline's stages ordered by position.
	ListStages(ctx context.Context, pipeline string) ([]*domain.PipelineStage, error)
	// ListLeads returns the pipeline's leads, most recently touched first.
	ListLeads(ctx context.Context, pipeline string) ([]*domain.Lead, error)
	CreateLead(ctx context.Context, lead *domain.Lead) (*domain.Lead, error)
	// MoveLead moves a lead to another stage of its own pipeline.
	MoveLead(ctx context.Context, leadID, stageID string) (*domain.Lead, error)
}
