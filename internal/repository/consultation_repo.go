package repository

import (
	"context"

	"centrovision-data/internal/domain"
)

type ConsultationRepository interface {
	ListEncounters(ctx context.Context, patientID string) ([]*domain.Encounter, error)
	// GetEncounter returns the encounter with its per-eye exams.
	GetEncounter(ctx context.Context, id string) (*domain.Encounter, error)
	CreateEncounter(ctx context.Context, e *domain.Encounter) (*domain.Encounter, error)
	UpdateEncounter(ctx context.Context, id string, patch domain.EncounterPatch) (*domain.Encounter, error)
	// UpsertEyeExam keeps a single exam per encounter and eye.
	UpsertEyeExam(ctx context.Context, x *domain.EyeExam) (*domain.EyeExam, error)
}

type SurgeryRepository interface {
	ListSurgeries(ctx context.Context, filters SurgeryFilters) ([]*domain.Surgery, error)
	GetSurgery(ctx context.Context, id string) (*domain.Surgery, error)
	CreateSurgery(ctx context.Context, s *domain.Surgery) (*domain.Surgery, error)
	// UpdateSurgeryStatus moves the surgery only while it is still in from.
	UpdateSurgeryStatus(ctx context.Context, id string, from, to domain.SurgeryStatus) (*domain.Surgery, error)
}

// SurgeryFilters narrows ListSurgeries. From/To are inclusive YYYY-MM-DD days.
type SurgeryFilters struct {
	BranchID string
	From     string
	To       string
}
