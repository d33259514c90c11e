package repository

import (
	"context"
	"time"

	"centrovision-data/internal/apperr"
	"centrovision-data/internal/domain"
	"centrovision-data/internal/remote"
)

type RemoteCRMRepository struct {
	client *remote.Client
}

func NewRemoteCRMRepository(client *remote.Client) *RemoteCRMRepository {
	return &RemoteCRMRepository{client: client}
}

// remoteStageRow orders stages by sort_order.
type remoteStageRow struct {
	ID        string  `json:"id"`
	Pipeline  string  `json:"pipeline"`
	Name      string  `json:"name"`
	SortOrder int     `json:"sort_order"`
	Color     *string `json:"color"`
}

func (s remoteStageRow) toDomain() *domain.PipelineStage {
	return &domain.PipelineStage{
		ID:       s.ID,
		Pipeline: s.Pipeline,
		Name:     s.Name,
		Position: s.SortOrder,
		Color:    deref(s.Color),
	}
}

// remoteLeadRow embeds its stage as a nested object.
type remoteLeadRow struct {
	ID       string  `json:"id"`
	Pipeline string  `json:"pipeline"`
	StageID  string  `json:"stage_id"`
	FullName string  `json:"full_name"`
	Phone    *string `json:"phone"`
	Email    *string `json:"email"`
	Source   *string `json:"source"`
	Notes    *string `json:"notes"`
	Stage    *struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"stage"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (l remoteLeadRow) toDomain() *domain.Lead {
	lead := &domain.Lead{
		ID:        l.ID,
		Pipeline:  l.Pipeline,
		StageID:   l.StageID,
		FullName:  l.FullName,
		Phone:     deref(l.Phone),
		Email:     deref(l.Email),
		Source:    deref(l.Source),
		Notes:     deref(l.Notes),
		CreatedAt: l.CreatedAt,
		UpdatedAt: l.UpdatedAt,
	}
	if l.Stage != nil {
		lead.StageName = l.Stage.Name
	}
	return lead
}

const leadColumns = "*, stage:crm_pipeline_stages(id,name)"

func (r *RemoteCRMRepository) ListStages(ctx context.Context, pipeline string) ([]*domain.PipelineStage, error) {
	var rows []remoteStageRow
	err := r.client.From("crm_pipeline_stages").Eq("pipeline", pipeline).Order("sort_order", true).Execute(ctx, &rows)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.PipelineStage, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *RemoteCRMRepository) ListLeads(ctx context.Context, pipeline string) ([]*domain.Lead, error) {
	var rows []remoteLeadRow
	err := r.client.From("crm_leads").Select(leadColumns).Eq("pipeline", pipeline).Order("updated_at", false).Execute(ctx, &rows)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.Lead, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *RemoteCRMRepository) getLead(ctx context.Context, id string) (*domain.Lead, error) {
	var row remoteLeadRow
	if err := r.client.From("crm_leads").Select(leadColumns).Eq("id", id).Single(ctx, &row); err != nil {
		return nil, err
	}
	return row.toDomain(), nil
}

func (r *RemoteCRMRepository) CreateLead(ctx context.Context, lead *domain.Lead) (*domain.Lead, error) {
	var created []remoteLeadRow
	err := r.client.Insert(ctx, "crm_leads", map[string]any{
		"pipeline":  lead.Pipeline,
		"stage_id":  lead.StageID,
		"full_name": lead.FullName,
		"phone":     nullable(lead.Phone),
		"email":     nullable(lead.Email),
		"source":    nullable(lead.Source),
		"notes":     nullable(lead.Notes),
	}, &created)
	if err != nil {
		return nil, err
	}
	if len(created) == 0 {
		return nil, apperr.External("crm.CreateLead", errEmptyRepresentation)
	}
	return r.getLead(ctx, created[0].ID)
}

// MoveLead checks the target stage belongs to the lead's pipeline before
// updating; the table has no cross-row constraint for it.
func (r *RemoteCRMRepository) MoveLead(ctx context.Context, leadID, stageID string) (*domain.Lead, error) {
	var stage remoteStageRow
	if err := r.client.From("crm_pipeline_stages").Eq("id", stageID).Single(ctx, &stage); err != nil {
		return nil, err
	}
	var updated []remoteLeadRow
	err := r.client.From("crm_leads").Eq("id", leadID).Eq("pipeline", stage.Pipeline).
		Update(ctx, map[string]any{"stage_id": stageID, "updated_at": time.Now().UTC()}, &updated)
	if err != nil {
		return nil, err
	}
	if len(updated) == 0 {
		return nil, apperr.NotFound("lead %s not found in pipeline %s", leadID, stage.Pipeline)
	}
	return r.getLead(ctx, leadID)
}
