package localdb

import (
	"context"
	"encoding/json"

	"centrovision-data/internal/apperr"
	"centrovision-data/internal/bridge"
)

type stageRow struct {
	ID       string `json:"id"`
	Pipeline string `json:"pipeline"`
	Name     string `json:"name"`
	Position int    `json:"position"`
	Color    string `json:"color"`
}

type pipelineArgs struct {
	Pipeline string `json:"pipeline"`
}

func (s *Store) getPipelineStages(ctx context.Context, raw json.RawMessage) (any, error) {
	a, err := bridge.Decode[pipelineArgs](raw)
	if err != nil {
		return nil, apperr.Validation("%v", err)
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, pipeline, name, position, color FROM crm_pipeline_stages WHERE pipeline = ? ORDER BY position`, a.Pipeline)
	if err != nil {
		return nil, classifySQL("get_pipeline_stages", err)
	}
	defer rows.Close()
	out := []stageRow{}
	for rows.Next() {
		var r stageRow
		if err := rows.Scan(&r.ID, &r.Pipeline, &r.Name, &r.Position, &r.Color); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// leadRow is the local lead shape with the stage name flattened in.
type leadRow struct {
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

const leadSelect = `
	SELECT l.id, l.pipeline, l.stage_id, COALESCE(st.name, ''), l.full_name, l.phone, l.email,
	       l.source, l.notes, l.created_at, l.updated_at
	FROM crm_leads l
	LEFT JOIN crm_pipeline_stages st ON st.id = l.stage_id`

func scanLead(sc rowScanner) (leadRow, error) {
	var r leadRow
	err := sc.Scan(&r.ID, &r.Pipeline, &r.StageID, &r.StageName, &r.FullName, &r.Phone, &r.Email,
		&r.Source, &r.Notes, &r.CreatedAt, &r.UpdatedAt)
	return r, err
}

func (s *Store) getLeads(ctx context.Context, raw json.RawMessage) (any, error) {
	a, err := bridge.Decode[pipelineArgs](raw)
	if err != nil {
		return nil, apperr.Validation("%v", err)
	}
	rows, err := s.db.QueryContext(ctx, leadSelect+` WHERE l.pipeline = ? ORDER BY l.updated_at DESC`, a.Pipeline)
	if err != nil {
		return nil, classifySQL("get_leads", err)
	}
	defer rows.Close()
	out := []leadRow{}
	for rows.Next() {
		r, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) createLead(ctx context.Context, raw json.RawMessage) (any, error) {
	r, err := bridge.Decode[leadRow](raw)
	if err != nil {
		return nil, apperr.Validation("%v", err)
	}
	id := s.newID()
	now := s.timestamp()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO crm_leads (id, pipeline, stage_id, full_name, phone, email, source, notes, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, r.Pipeline, r.StageID, r.FullName, r.Phone, r.Email, r.Source, r.Notes, now, now)
	if err != nil {
		return nil, classifySQL("create_lead", err)
	}
	out, err := scanLead(s.db.QueryRowContext(ctx, leadSelect+" WHERE l.id = ?", id))
	if err != nil {
		return nil, classifySQL("create_lead", err)
	}
	return out, nil
}

// moveLead moves a lead to another stage of the same pipeline.
func (s *Store) moveLead(ctx context.Context, raw json.RawMessage) (any, error) {
	a, err := bridge.Decode[struct {
		ID      string `json:"id"`
		StageID string `json:"stage_id"`
	}](raw)
	if err != nil {
		return nil, apperr.Validation("%v", err)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE crm_leads SET stage_id = ?, updated_at = ?
		 WHERE id = ? AND pipeline = (SELECT pipeline FROM crm_pipeline_stages WHERE id = ?)`,
		a.StageID, s.timestamp(), a.ID, a.StageID)
	if err != nil {
		return nil, classifySQL("move_lead", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, apperr.NotFound("lead %s or stage %s not found in the same pipeline", a.ID, a.StageID)
	}
	out, err := scanLead(s.db.QueryRowContext(ctx, leadSelect+" WHERE l.id = ?", a.ID))
	if err != nil {
		return nil, classifySQL("move_lead", err)
	}
	return out, nil
}
