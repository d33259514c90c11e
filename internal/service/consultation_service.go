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

type ConsultationService struct {
	runner *dualaccess.Runner
	repos  dualaccess.Backends[repository.ConsultationRepository]
	logger *zap.Logger
}

func NewConsultationService(runner *dualaccess.Runner, repos dualaccess.Backends[repository.ConsultationRepository], logger *zap.Logger) *ConsultationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConsultationService{runner: runner, repos: repos, logger: logger}
}

func (s *ConsultationService) ListEncounters(ctx context.Context, patientID string) ([]*domain.Encounter, error) {
	if err := required("patient_id", patientID); err != nil {
		return nil, err
	}
	return dualaccess.Do(ctx, s.runner, familyConsultation, "ListEncounters", s.repos,
		func(ctx context.Context, r repository.ConsultationRepository) ([]*domain.Encounter, error) {
			return r.ListEncounters(ctx, patientID)
		})
}

// GetEncounter returns the encounter with its per-eye exam records.
func (s *ConsultationService) GetEncounter(ctx context.Context, id string) (*domain.Encounter, error) {
	if err := required("id", id); err != nil {
		return nil, err
	}
	return dualaccess.Do(ctx, s.runner, familyConsultation, "GetEncounter", s.repos,
		func(ctx context.Context, r repository.ConsultationRepository) (*domain.Encounter, error) {
			return r.GetEncounter(ctx, id)
		})
}

func validEncounterStatus(status string) bool {
	return status == domain.EncounterOpen || status == domain.EncounterClosed
}

func (s *ConsultationService) CreateEncounter(ctx context.Context, e *domain.Encounter) (*domain.Encounter, error) {
	if e == nil {
		return nil, apperr.Validation("encounter is required")
	}
	if e.DoctorID == "" {
		e.DoctorID = callerID(ctx)
	}
	for _, f := range []struct{ name, value string }{
		{"patient_id", e.PatientID},
		{"doctor_id", e.DoctorID},
		{"branch_id", e.BranchID},
		{"type", e.Type},
	} {
		if err := required(f.name, f.value); err != nil {
			return nil, err
		}
	}
	if e.Status == "" {
		e.Status = domain.EncounterOpen
	}
	if !validEncounterStatus(e.Status) {
		return nil, apperr.Validation("unknown encounter status %q", e.Status)
	}
	return dualaccess.Do(ctx, s.runner, familyConsultation, "CreateEncounter", s.repos,
		func(ctx context.Context, r repository.ConsultationRepository) (*domain.Encounter, error) {
			return r.CreateEncounter(ctx, e)
		})
}

func (s *ConsultationService) UpdateEncounter(ctx context.Context, id string, patch domain.EncounterPatch) (*domain.Encounter, error) {
	if err := required("id", id); err != nil {
		return nil, err
	}
	if patch == (domain.EncounterPatch{}) {
		return nil, apperr.Validation("nothing to update")
	}
	if patch.Status != nil && !validEncounterStatus(*patch.Status) {
		return nil, apperr.Validation("unknown encounter status %q", *patch.Status)
	}
	return dualaccess.Do(ctx, s.runner, familyConsultation, "UpdateEncounter", s.repos,
		func(ctx context.Context, r repository.ConsultationRepository) (*domain.Encounter, error) {
			return r.UpdateEncounter(ctx, id, patch)
		})
}

// validateEyeExam enforces the per-eye ranges: axis 0-180 degrees, IOP 0-80 mmHg.
func validateEyeExam(x *domain.EyeExam) error {
	if err := required("encounter_id", x.EncounterID); err != nil {
		return err
	}
	x.Eye = domain.Eye(strings.ToUpper(string(x.Eye)))
	if x.Eye != domain.EyeRight && x.Eye != domain.EyeLeft {
		return apperr.Validation("eye must be OD or OS, got %q", x.Eye)
	}
	if x.Axis != nil && (*x.Axis < 0 || *x.Axis > 180) {
		return apperr.Validation("axis must be between 0 and 180, got %d", *x.Axis)
	}
	if x.IOP != nil && (*x.IOP < 0 || *x.IOP > 80) {
		return apperr.Validation("iop must be between 0 and 80, got %g", *x.IOP)
	}
	return nil
}

// SaveEyeExam creates or replaces the exam record of one eye.
func (s *ConsultationService) SaveEyeExam(ctx context.Context, x *domain.EyeExam) (*domain.EyeExam, error) {
	if x == nil {
		return nil, apperr.Validation("exam is required")
	}
	if err := validateEyeExam(x); err != nil {
		return nil, err
	}
	return dualaccess.Do(ctx, s.runner, familyConsultation, "SaveEyeExam", s.repos,
		func(ctx context.Context, r repository.ConsultationRepository) (*domain.EyeExam, error) {
			return r.UpsertEyeExam(ctx, x)
		})
}

type SurgeryService struct {
	runner *dualaccess.Runner
	repos  dualaccess.Backends[repository.SurgeryRepository]
	logger *zap.Logger
}

func NewSurgeryService(runner *dualaccess.Runner, repos dualaccess.Backends[repository.SurgeryRepository], logger *zap.Logger) *SurgeryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SurgeryService{runner: runner, repos: repos, logger: logger}
}

func (s *SurgeryService) ListSurgeries(ctx context.Context, f repository.SurgeryFilters) ([]*domain.Surgery, error) {
	if err := required("branch_id", f.BranchID); err != nil {
		return nil, err
	}
	for _, d := range []struct{ name, value string }{{"from", f.From}, {"to", f.To}} {
		if d.value == "" {
			continue
		}
		if err := validDay(d.name, d.value); err != nil {
			return nil, err
		}
	}
	if f.From != "" && f.To != "" && f.From > f.To {
		return nil, apperr.Validation("from %s is after to %s", f.From, f.To)
	}
	return dualaccess.Do(ctx, s.runner, familySurgery, "ListSurgeries", s.repos,
		func(ctx context.Context, r repository.SurgeryRepository) ([]*domain.Surgery, error) {
			return r.ListSurgeries(ctx, f)
		})
}

func (s *SurgeryService) GetSurgery(ctx context.Context, id string) (*domain.Surgery, error) {
	if err := required("id", id); err != nil {
		return nil, err
	}
	return dualaccess.Do(ctx, s.runner, familySurgery, "GetSurgery", s.repos,
		func(ctx context.Context, r repository.SurgeryRepository) (*domain.Surgery, error) {
			return r.GetSurgery(ctx, id)
		})
}

func (s *SurgeryService) ScheduleSurgery(ctx context.Context, sg *domain.Surgery) (*domain.Surgery, error) {
	if sg == nil {
		return nil, apperr.Validation("surgery is required")
	}
	if sg.DoctorID == "" {
		sg.DoctorID = callerID(ctx)
	}
	for _, f := range []struct{ name, value string }{
		{"patient_id", sg.PatientID},
		{"doctor_id", sg.DoctorID},
		{"branch_id", sg.BranchID},
		{"procedure", sg.Procedure},
	} {
		if err := required(f.name, f.value); err != nil {
			return nil, err
		}
	}
	sg.Eye = domain.Eye(strings.ToUpper(string(sg.Eye)))
	switch sg.Eye {
	case domain.EyeRight, domain.EyeLeft, domain.EyeBoth:
	default:
		return nil, apperr.Validation("eye must be OD, OS or OU, got %q", sg.Eye)
	}
	if sg.ScheduledAt.IsZero() {
		return nil, apperr.Validation("scheduled_at is required")
	}
	sg.Status = domain.SurgeryScheduled
	return dualaccess.Do(ctx, s.runner, familySurgery, "ScheduleSurgery", s.repos,
		func(ctx context.Context, r repository.SurgeryRepository) (*domain.Surgery, error) {
			return r.CreateSurgery(ctx, sg)
		})
}

// UpdateSurgeryStatus moves a scheduled surgery to completed or cancelled.
// The write is conditional on the status read, so a concurrent change is
// reported as a business-rule error instead of being overwritten.
func (s *SurgeryService) UpdateSurgeryStatus(ctx context.Context, id string, to domain.SurgeryStatus) (*domain.Surgery, error) {
	if err := required("id", id); err != nil {
		return nil, err
	}
	switch to {
	case domain.SurgeryScheduled, domain.SurgeryCompleted, domain.SurgeryCancelled:
	default:
		return nil, apperr.Validation("unknown surgery status %q", to)
	}
	return dualaccess.Do(ctx, s.runner, familySurgery, "UpdateSurgeryStatus", s.repos,
		func(ctx context.Context, r repository.SurgeryRepository) (*domain.Surgery, error) {
			current, err := r.GetSurgery(ctx, id)
			if err != nil {
				return nil, err
			}
			if !current.Status.CanTransition(to) {
				s.logger.Warn("Surgery transition rejected",
					zap.String("surgery_id", id),
					zap.String("from", string(current.Status)),
					zap.String("to", string(to)),
				)
				return nil, apperr.BusinessRule("surgery cannot move from %s to %s", current.Status, to)
			}
			return r.UpdateSurgeryStatus(ctx, id, current.Status, to)
		})
}
