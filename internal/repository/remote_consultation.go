package repository

import (
	"context"
	"sort"
	"time"

	"centrovision-data/internal/apperr"
	"centrovision-data/internal/domain"
	"centrovision-data/internal/remote"
)

type RemoteConsultationRepository struct {
	client *remote.Client
}

func NewRemoteConsultationRepository(client *remote.Client) *RemoteConsultationRepository {
	return &RemoteConsultationRepository{client: client}
}

// remoteEncounterRow embeds the exam_eye relation when selected.
type remoteEncounterRow struct {
	ID             string          `json:"id"`
	PatientID      string          `json:"patient_id"`
	DoctorID       string          `json:"doctor_id"`
	BranchID       string          `json:"branch_id"`
	Type           string          `json:"type"`
	Date           time.Time       `json:"date"`
	ChiefComplaint *string         `json:"chief_complaint"`
	Diagnosis      *string         `json:"diagnosis"`
	Plan           *string         `json:"plan"`
	Status         string          `json:"status"`
	ExamEye        []remoteExamRow `json:"exam_eye"`
}

type remoteExamRow struct {
	ID           string   `json:"id"`
	EncounterID  string   `json:"encounter_id"`
	Eye          string   `json:"eye"`
	VisualAcuity *string  `json:"visual_acuity"`
	Sphere       *float64 `json:"sphere"`
	Cylinder     *float64 `json:"cylinder"`
	Axis         *int     `json:"axis"`
	IOP          *float64 `json:"iop"`
	Notes        *string  `json:"notes"`
}

func (x remoteExamRow) toDomain() domain.EyeExam {
	return domain.EyeExam{
		ID:           x.ID,
		EncounterID:  x.EncounterID,
		Eye:          domain.Eye(x.Eye),
		VisualAcuity: deref(x.VisualAcuity),
		Sphere:       x.Sphere,
		Cylinder:     x.Cylinder,
		Axis:         x.Axis,
		IOP:          x.IOP,
		Notes:        deref(x.Notes),
	}
}

func (e remoteEncounterRow) toDomain() *domain.Encounter {
	enc := &domain.Encounter{
		ID:             e.ID,
		PatientID:      e.PatientID,
		DoctorID:       e.DoctorID,
		BranchID:       e.BranchID,
		Type:           e.Type,
		Date:           e.Date,
		ChiefComplaint: deref(e.ChiefComplaint),
		Diagnosis:      deref(e.Diagnosis),
		Plan:           deref(e.Plan),
		Status:         e.Status,
		Exams:          make([]domain.EyeExam, 0, len(e.ExamEye)),
	}
	for _, x := range e.ExamEye {
		enc.Exams = append(enc.Exams, x.toDomain())
	}
	sort.Slice(enc.Exams, func(i, j int) bool { return enc.Exams[i].Eye < enc.Exams[j].Eye })
	return enc
}

const encounterListColumns = "id,patient_id,doctor_id,branch_id,type,date,chief_complaint,diagnosis,plan,status"

func (r *RemoteConsultationRepository) ListEncounters(ctx context.Context, patientID string) ([]*domain.Encounter, error) {
	var rows []remoteEncounterRow
	err := r.client.From("encounters").
		Select(encounterListColumns).
		Eq("patient_id", patientID).
		Order("date", false).
		Execute(ctx, &rows)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.Encounter, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *RemoteConsultationRepository) GetEncounter(ctx context.Context, id string) (*domain.Encounter, error) {
	var row remoteEncounterRow
	if err := r.client.From("encounters").Select("*, exam_eye(*)").Eq("id", id).Single(ctx, &row); err != nil {
		return nil, err
	}
	return row.toDomain(), nil
}

func (r *RemoteConsultationRepository) CreateEncounter(ctx context.Context, e *domain.Encounter) (*domain.Encounter, error) {
	values := map[string]any{
		"patient_id":      e.PatientID,
		"doctor_id":       e.DoctorID,
		"branch_id":       e.BranchID,
		"type":            e.Type,
		"chief_complaint": e.ChiefComplaint,
		"diagnosis":       e.Diagnosis,
		"plan":            e.Plan,
		"status":          e.Status,
	}
	if !e.Date.IsZero() {
		values["date"] = e.Date.UTC().Format(time.RFC3339)
	}
	var created []remoteEncounterRow
	if err := r.client.Insert(ctx, "encounters", values, &created); err != nil {
		return nil, err
	}
	if len(created) == 0 {
		return nil, apperr.External("consultation.CreateEncounter", errEmptyRepresentation)
	}
	return created[0].toDomain(), nil
}

func (r *RemoteConsultationRepository) UpdateEncounter(ctx context.Context, id string, patch domain.EncounterPatch) (*domain.Encounter, error) {
	values := encounterPatchValues(patch)
	if len(values) > 0 {
		var updated []remoteEncounterRow
		if err := r.client.From("encounters").Eq("id", id).Update(ctx, values, &updated); err != nil {
			return nil, err
		}
		if len(updated) == 0 {
			return nil, apperr.NotFound("encounter %s not found", id)
		}
	}
	return r.GetEncounter(ctx, id)
}

func (r *RemoteConsultationRepository) UpsertEyeExam(ctx context.Context, x *domain.EyeExam) (*domain.EyeExam, error) {
	values := map[string]any{
		"encounter_id":  x.EncounterID,
		"eye":           string(x.Eye),
		"visual_acuity": x.VisualAcuity,
		"sphere":        x.Sphere,
		"cylinder":      x.Cylinder,
		"axis":          x.Axis,
		"iop":           x.IOP,
		"notes":         x.Notes,
	}
	var rows []remoteExamRow
	if err := r.client.Upsert(ctx, "exam_eye", "encounter_id,eye", values, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, apperr.External("consultation.UpsertEyeExam", errEmptyRepresentation)
	}
	exam := rows[0].toDomain()
	return &exam, nil
}

type RemoteSurgeryRepository struct {
	client *remote.Client
}

func NewRemoteSurgeryRepository(client *remote.Client) *RemoteSurgeryRepository {
	return &RemoteSurgeryRepository{client: client}
}

type remoteSurgeryRow struct {
	ID          string    `json:"id"`
	PatientID   string    `json:"patient_id"`
	DoctorID    string    `json:"doctor_id"`
	BranchID    string    `json:"branch_id"`
	Procedure   string    `json:"procedure"`
	Eye         string    `json:"eye"`
	ScheduledAt time.Time `json:"scheduled_at"`
	Status      string    `json:"status"`
	Notes       *string   `json:"notes"`
}

func (s remoteSurgeryRow) toDomain() *domain.Surgery {
	return &domain.Surgery{
		ID:          s.ID,
		PatientID:   s.PatientID,
		DoctorID:    s.DoctorID,
		BranchID:    s.BranchID,
		Procedure:   s.Procedure,
		Eye:         domain.Eye(s.Eye),
		ScheduledAt: s.ScheduledAt,
		Status:      domain.SurgeryStatus(s.Status),
		Notes:       deref(s.Notes),
	}
}

func (r *RemoteSurgeryRepository) ListSurgeries(ctx context.Context, f SurgeryFilters) ([]*domain.Surgery, error) {
	q := r.client.From("surgeries")
	if f.BranchID != "" {
		q.Eq("branch_id", f.BranchID)
	}
	if f.From != "" {
		q.Gte("scheduled_at", f.From)
	}
	if f.To != "" {
		q.Lt("scheduled_at", nextDay(f.To))
	}
	var rows []remoteSurgeryRow
	if err := q.Order("scheduled_at", true).Execute(ctx, &rows); err != nil {
		return nil, err
	}
	out := make([]*domain.Surgery, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *RemoteSurgeryRepository) GetSurgery(ctx context.Context, id string) (*domain.Surgery, error) {
	var row remoteSurgeryRow
	if err := r.client.From("surgeries").Eq("id", id).Single(ctx, &row); err != nil {
		return nil, err
	}
	return row.toDomain(), nil
}

func (r *RemoteSurgeryRepository) CreateSurgery(ctx context.Context, s *domain.Surgery) (*domain.Surgery, error) {
	var created []remoteSurgeryRow
	err := r.client.Insert(ctx, "surgeries", map[string]any{
		"patient_id":   s.PatientID,
		"doctor_id":    s.DoctorID,
		"branch_id":    s.BranchID,
		"procedure":    s.Procedure,
		"eye":          string(s.Eye),
		"scheduled_at": s.ScheduledAt.UTC().Format(time.RFC3339),
		"status":       string(domain.SurgeryScheduled),
		"notes":        s.Notes,
	}, &created)
	if err != nil {
		return nil, err
	}
	if len(created) == 0 {
		return nil, apperr.External("surgery.CreateSurgery", errEmptyRepresentation)
	}
	return created[0].toDomain(), nil
}

func (r *RemoteSurgeryRepository) UpdateSurgeryStatus(ctx context.Context, id string, from, to domain.SurgeryStatus) (*domain.Surgery, error) {
	var updated []remoteSurgeryRow
	err := r.client.From("surgeries").
		Eq("id", id).
		Eq("status", string(from)).
		Update(ctx, map[string]any{"status": string(to)}, &updated)
	if err != nil {
		return nil, err
	}
	if len(updated) == 0 {
		return nil, apperr.BusinessRule("surgery %s is no longer %s", id, from)
	}
	return updated[0].toDomain(), nil
}
