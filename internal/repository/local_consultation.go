package repository

import (
	"context"
	"sort"

	"centrovision-data/internal/bridge"
	"centrovision-data/internal/domain"
)

type LocalConsultationRepository struct {
	bridge bridge.Invoker
}

func NewLocalConsultationRepository(b bridge.Invoker) *LocalConsultationRepository {
	return &LocalConsultationRepository{bridge: b}
}

type localEncounterRow struct {
	ID             string `json:"id"`
	PatientID      string `json:"patient_id"`
	DoctorID       string `json:"doctor_id"`
	BranchID       string `json:"branch_id"`
	EncounterType  string `json:"encounter_type"`
	EncounterDate  string `json:"encounter_date"`
	ChiefComplaint string `json:"chief_complaint"`
	Diagnosis      string `json:"diagnosis"`
	Plan           string `json:"plan"`
	Status         string `json:"status"`
}

// localExamRow names the eye "side" and the visual acuity "va".
type localExamRow struct {
	ID          string   `json:"id"`
	EncounterID string   `json:"encounter_id"`
	Side        string   `json:"side"`
	VA          string   `json:"va"`
	Sphere      *float64 `json:"sphere"`
	Cylinder    *float64 `json:"cylinder"`
	Axis        *int     `json:"axis"`
	IOP         *float64 `json:"iop"`
	Notes       string   `json:"notes"`
}

func (x localExamRow) toDomain() domain.EyeExam {
	return domain.EyeExam{
		ID:           x.ID,
		EncounterID:  x.EncounterID,
		Eye:          domain.Eye(x.Side),
		VisualAcuity: x.VA,
		Sphere:       x.Sphere,
		Cylinder:     x.Cylinder,
		Axis:         x.Axis,
		IOP:          x.IOP,
		Notes:        x.Notes,
	}
}

func (e localEncounterRow) toDomain(exams []localExamRow) *domain.Encounter {
	enc := &domain.Encounter{
		ID:             e.ID,
		PatientID:      e.PatientID,
		DoctorID:       e.DoctorID,
		BranchID:       e.BranchID,
		Type:           e.EncounterType,
		Date:           parseLocalTime(e.EncounterDate),
		ChiefComplaint: e.ChiefComplaint,
		Diagnosis:      e.Diagnosis,
		Plan:           e.Plan,
		Status:         e.Status,
		Exams:          make([]domain.EyeExam, 0, len(exams)),
	}
	for _, x := range exams {
		enc.Exams = append(enc.Exams, x.toDomain())
	}
	sort.Slice(enc.Exams, func(i, j int) bool { return enc.Exams[i].Eye < enc.Exams[j].Eye })
	return enc
}

func (r *LocalConsultationRepository) ListEncounters(ctx context.Context, patientID string) ([]*domain.Encounter, error) {
	var rows []localEncounterRow
	if err := r.bridge.Invoke(ctx, "get_encounters", map[string]string{"patient_id": patientID}, &rows); err != nil {
		return nil, err
	}
	out := make([]*domain.Encounter, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain(nil))
	}
	return out, nil
}

func (r *LocalConsultationRepository) GetEncounter(ctx context.Context, id string) (*domain.Encounter, error) {
	var res struct {
		Encounter localEncounterRow `json:"encounter"`
		Exams     []localExamRow    `json:"exams"`
	}
	if err := r.bridge.Invoke(ctx, "get_encounter", map[string]string{"id": id}, &res); err != nil {
		return nil, err
	}
	return res.Encounter.toDomain(res.Exams), nil
}

func (r *LocalConsultationRepository) CreateEncounter(ctx context.Context, e *domain.Encounter) (*domain.Encounter, error) {
	args := localEncounterRow{
		PatientID:      e.PatientID,
		DoctorID:       e.DoctorID,
		BranchID:       e.BranchID,
		EncounterType:  e.Type,
		ChiefComplaint: e.ChiefComplaint,
		Diagnosis:      e.Diagnosis,
		Plan:           e.Plan,
		Status:         e.Status,
	}
	if !e.Date.IsZero() {
		args.EncounterDate = localTimestamp(e.Date)
	}
	var row localEncounterRow
	if err := r.bridge.Invoke(ctx, "create_encounter", args, &row); err != nil {
		return nil, err
	}
	return row.toDomain(nil), nil
}

func (r *LocalConsultationRepository) UpdateEncounter(ctx context.Context, id string, patch domain.EncounterPatch) (*domain.Encounter, error) {
	args := map[string]any{"id": id, "patch": encounterPatchValues(patch)}
	if err := r.bridge.Invoke(ctx, "update_encounter", args, nil); err != nil {
		return nil, err
	}
	return r.GetEncounter(ctx, id)
}

func (r *LocalConsultationRepository) UpsertEyeExam(ctx context.Context, x *domain.EyeExam) (*domain.EyeExam, error) {
	var row localExamRow
	err := r.bridge.Invoke(ctx, "upsert_exam_eye", localExamRow{
		EncounterID: x.EncounterID,
		Side:        string(x.Eye),
		VA:          x.VisualAcuity,
		Sphere:      x.Sphere,
		Cylinder:    x.Cylinder,
		Axis:        x.Axis,
		IOP:         x.IOP,
		Notes:       x.Notes,
	}, &row)
	if err != nil {
		return nil, err
	}
	exam := row.toDomain()
	return &exam, nil
}

type LocalSurgeryRepository struct {
	bridge bridge.Invoker
}

func NewLocalSurgeryRepository(b bridge.Invoker) *LocalSurgeryRepository {
	return &LocalSurgeryRepository{bridge: b}
}

// localSurgeryRow names the procedure procedure_name.
type localSurgeryRow struct {
	ID            string `json:"id"`
	PatientID     string `json:"patient_id"`
	DoctorID      string `json:"doctor_id"`
	BranchID      string `json:"branch_id"`
	ProcedureName string `json:"procedure_name"`
	Eye           string `json:"eye"`
	ScheduledAt   string `json:"scheduled_at"`
	Status        string `json:"status"`
	Notes         string `json:"notes"`
}

func (s localSurgeryRow) toDomain() *domain.Surgery {
	return &domain.Surgery{
		ID:          s.ID,
		PatientID:   s.PatientID,
		DoctorID:    s.DoctorID,
		BranchID:    s.BranchID,
		Procedure:   s.ProcedureName,
		Eye:         domain.Eye(s.Eye),
		ScheduledAt: parseLocalTime(s.ScheduledAt),
		Status:      domain.SurgeryStatus(s.Status),
		Notes:       s.Notes,
	}
}

func (r *LocalSurgeryRepository) ListSurgeries(ctx context.Context, f SurgeryFilters) ([]*domain.Surgery, error) {
	var rows []localSurgeryRow
	args := map[string]string{"branch_id": f.BranchID, "from": f.From, "to": f.To}
	if err := r.bridge.Invoke(ctx, "get_surgeries", args, &rows); err != nil {
		return nil, err
	}
	out := make([]*domain.Surgery, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *LocalSurgeryRepository) GetSurgery(ctx context.Context, id string) (*domain.Surgery, error) {
	var row localSurgeryRow
	if err := r.bridge.Invoke(ctx, "get_surgery", map[string]string{"id": id}, &row); err != nil {
		return nil, err
	}
	return row.toDomain(), nil
}

func (r *LocalSurgeryRepository) CreateSurgery(ctx context.Context, s *domain.Surgery) (*domain.Surgery, error) {
	var row localSurgeryRow
	err := r.bridge.Invoke(ctx, "create_surgery", localSurgeryRow{
		PatientID:     s.PatientID,
		DoctorID:      s.DoctorID,
		BranchID:      s.BranchID,
		ProcedureName: s.Procedure,
		Eye:           string(s.Eye),
		ScheduledAt:   localTimestamp(s.ScheduledAt),
		Notes:         s.Notes,
	}, &row)
	if err != nil {
		return nil, err
	}
	return row.toDomain(), nil
}

func (r *LocalSurgeryRepository) UpdateSurgeryStatus(ctx context.Context, id string, from, to domain.SurgeryStatus) (*domain.Surgery, error) {
	var row localSurgeryRow
	args := map[string]string{"id": id, "from_status": string(from), "status": string(to)}
	if err := r.bridge.Invoke(ctx, "update_surgery_status", args, &row); err != nil {
		return nil, err
	}
	return row.toDomain(), nil
}
