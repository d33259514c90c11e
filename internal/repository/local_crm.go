package repository

import (
	"context"

	"centrovision-data/internal/bridge"
	"centrovision-data/internal/domain"
)

type LocalCRMRepository struct {
	bridge bridge.Invoker
}

func NewLocalCRMRepository(b bridge.Invoker) *LocalCRMRepository {
	return &LocalCRMRepository{bridge: b}
}

type localStageRow struct {
	ID       string `json:"id"`
	Pipeline string `json:"pipeline"`
	Name     string `json:"name"`
	Position int    `json:"position"`
	Color    string `json:"color"`
}

// localLeadRow carries the stage name flat.
type localLeadRow struct {
	ID        string `json:"id"`
	Pipeline  string `json:"pipeline"`
	StageID   string `json:"stage_id"`
	StageName string `json:"stage_name"`
	FullName  string `json:"full_name"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
	Source    string `json:"source"`
	Notes     string `json:"notes"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

func (l localLeadRow) toDomain() *domain.Lead {
	return &domain.Lead{
		ID:        l.ID,
		Pipeline:  l.Pipeline,
		StageID:   l.StageID,
		StageName: l.StageName,
		FullName:  l.FullName,
		Phone:     l.Phone,
		Email:     l.Email,
		Source:    l.Source,
		Notes:     l.Notes,
		CreatedAt: parseLocalTime(l.CreatedAt),
		UpdatedAt: parseLocalTime(l.UpdatedAt),
	}
}

func (r *LocalCRMRepository) ListStages(ctx context.Context, pipeline string) ([]*domain.PipelineStage, error) {
	var rows []localStageRow
	if err := r.bridge.Invoke(ctx, "get_pipeline_stages", map[string]string{"pipeline": pipeline}, &rows); err != nil {
		return nil, err
	}
	out := make([]*domain.PipelineStage, 0, len(rows))
	for _, s := range rows {
		out = append(out, &domain.PipelineStage{ID: s.ID, Pipeline: s.Pipeline, Name: s.Name, Position: s.Position, Color: s.Color})
	}
	return out, nil
}

func (r *LocalCRMRepository) ListLeads(ctx context.Context, pipeline string) ([]*domain.Lead, error) {
	var rows []localLeadRow
	if err := r.bridge.Invoke(ctx, "get_leads", map[string]string{"pipeline": pipeline}, &rows); err != nil {
		return nil, err
	}
	out := make([]*domain.Lead, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *LocalCRMRepository) CreateLead(ctx context.Context, lead *domain.Lead) (*domain.Lead, error) {
	var row localLeadRow
	err := r.bridge.Invoke(ctx, "create_lead", localLeadRow{
		Pipeline: lead.Pipeline,
		StageID:  lead.StageID,
		FullName: lead.FullName,
		Phone:    lead.Phone,
		Email:    lead.Email,
		Source:   lead.Source,
		Notes:    lead.Notes,
	}, &row)
	if err != nil {
		return nil, err
	}
	return row.toDomain(), nil
}

func (r *LocalCRMRepository) MoveLead(ctx context.Context, leadID, stageID string) (*domain.Lead, error) {
	var row localLeadRow
	if err := r.bridge.Invoke(ctx, "move_lead", map[string]string{"id": leadID, "stage_id": stageID}, &row); err != nil {
		return nil, err
	}
	return row.toDomain(), nil
}
