package domain

import "time"

// PipelineStage is one column of a CRM pipeline.
type PipelineStage struct {
	ID       string `json:"id"`
	Pipeline string `json:"pipeline"`
	Name     string `json:"name"`
	Position int    `json:"position"`
	Color    string `json:"color,omitempty"`
}

type Lead struct {
	ID        string    `json:"id"`
	Pipeline  string    `json:"pipeline"`
	StageID   string    `json:"stage_id"`
	StageName string    `json:"stage_name,omitempty"`
	FullName  string    `json:"full_name"`
	Phone     string    `json:"phone,omitempty"`
	Email     string    `json:"email,omitempty"`
	Source    string    `json:"source,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
