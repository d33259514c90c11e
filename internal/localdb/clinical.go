package localdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"centrovision-data/internal/apperr"
	"centrovision-data/internal/bridge"
)

type encounterRow struct {
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

const encounterSelect = `
	SELECT id, patient_id, doctor_id, branch_id, encounter_type, encounter_date,
	       chief_complaint, diagnosis, plan, status
	FROM encounters`

func scanEncounter(sc rowScanner) (encounterRow, error) {
	var e encounterRow
	err := sc.Scan(&e.ID, &e.PatientID, &e.DoctorID, &e.BranchID, &e.EncounterType, &e.EncounterDate,
		&e.ChiefComplaint, &e.Diagnosis, &e.Plan, &e.Status)
	return e, err
}

func (s *Store) getEncounters(ctx context.Context, raw json.RawMessage) (any, error) {
	a, err := bridge.Decode[struct {
		PatientID string `json:"patient_id"`
	}](raw)
	if err != nil {
		return nil, apperr.Validation("%v", err)
	}
	rows, err := s.db.QueryContext(ctx, encounterSelect+` WHERE patient_id = ? ORDER BY encounter_date DESC`, a.PatientID)
	if err != nil {
		return nil, classifySQL("get_encounters", err)
	}
	defer rows.Close()
	out := []encounterRow{}
	for rows.Next() {
		e, err := scanEncounter(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// getEncounter returns {"encounter": ..., "exams": [...]}.
func (s *Store) getEncounter(ctx context.Context, raw json.RawMessage) (any, error) {
	id, err := decodeID(raw)
	if err != nil {
		return nil, err
	}
	e, err := scanEncounter(s.db.QueryRowContext(ctx, encounterSelect+` WHERE id = ?`, id))
	if err != nil {
		return nil, classifySQL("get_encounter", err)
	}
	exams, err := s.examsFor(ctx, id)
	if err != nil {
		return nil, err
	}
	return map[string]any{"encounter": e, "exams": exams}, nil
}

func (s *Store) createEncounter(ctx context.Context, raw json.RawMessage) (any, error) {
	e, err := bridge.Decode[encounterRow](raw)
	if err != nil {
		return nil, apperr.Validation("%v", err)
	}
	e.ID = s.newID()
	if e.EncounterDate == "" {
		e.EncounterDate = s.timestamp()
	}
	if e.Status == "" {
		e.Status = "open"
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO encounters (id, patient_id, doctor_id, branch_id, encounter_type, encounter_date,
		                         chief_complaint, diagnosis, plan, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.PatientID, e.DoctorID, e.BranchID, e.EncounterType, e.EncounterDate,
		e.ChiefComplaint, e.Diagnosis, e.Plan, e.Status)
	if err != nil {
		return nil, classifySQL("create_encounter", err)
	}
	return e, nil
}

var encounterColumns = map[string]bool{"chief_complaint": true, "diagnosis": true, "plan": true, "status": true}

func (s *Store) updateEncounter(ctx context.Context, raw json.RawMessage) (any, error) {
	a, err := bridge.Decode[struct {
		ID    string            `json:"id"`
		Patch map[string]string `json:"patch"`
	}](raw)
	if err != nil {
		return nil, apperr.Validation("%v", err)
	}
	if len(a.Patch) == 0 {
		return scanEncounterByID(ctx, s.db, a.ID)
	}
	sets := []string{}
	args := []any{}
	for col, v := range a.Patch {
		if !encounterColumns[col] {
			return nil, apperr.Validation("column %q cannot be updated", col)
		}
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}
	args = append(args, a.ID)
	res, err := s.db.ExecContext(ctx, "UPDATE encounters SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return nil, classifySQL("update_encounter", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, apperr.NotFound("encounter %s not found", a.ID)
	}
	return scanEncounterByID(ctx, s.db, a.ID)
}

func scanEncounterByID(ctx context.Context, db *sql.DB, id string) (any, error) {
	e, err := scanEncounter(db.QueryRowContext(ctx, encounterSelect+` WHERE id = ?`, id))
	if err != nil {
		return nil, classifySQL("get_encounter", err)
	}
	return e, nil
}

// examRow is the local per-eye exam shape (side and va instead of eye and
// visual_acuity).
type examRow struct {
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

func (s *Store) examsFor(ctx context.Context, encounterID string) ([]examRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, encounter_id, side, va, sphere, cylinder, axis, iop, notes
		 FROM exam_eye WHERE encounter_id = ? ORDER BY side`, encounterID)
	if err != nil {
		return nil, classifySQL("get_exam_eyes", err)
	}
	defer rows.Close()
	out := []examRow{}
	for rows.Next() {
		var x examRow
		var sphere, cyl, iop sql.NullFloat64
		var axis sql.NullInt64
		if err := rows.Scan(&x.ID, &x.EncounterID, &x.Side, &x.VA, &sphere, &cyl, &axis, &iop, &x.Notes); err != nil {
			return nil, err
		}
		x.Sphere = floatPtr(sphere)
		x.Cylinder = floatPtr(cyl)
		x.IOP = floatPtr(iop)
		if axis.Valid {
			v := int(axis.Int64)
			x.Axis = &v
		}
		out = append(out, x)
	}
	return out, rows.Err()
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func (s *Store) getExamEyes(ctx context.Context, raw json.RawMessage) (any, error) {
	a, err := bridge.Decode[struct {
		EncounterID string `json:"encounter_id"`
	}](raw)
	if err != nil {
		return nil, apperr.Validation("%v", err)
	}
	return s.examsFor(ctx, a.EncounterID)
}

// upsertExamEye keeps one exam per (encounter, side).
func (s *Store) upsertExamEye(ctx context.Context, raw json.RawMessage) (any, error) {
	x, err := bridge.Decode[examRow](raw)
	if err != nil {
		return nil, apperr.Validation("%v", err)
	}
	x.ID = s.newID()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO exam_eye (id, encounter_id, side, va, sphere, cylinder, axis, iop, notes)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(encounter_id, side) DO UPDATE SET
		   va = excluded.va, sphere = excluded.sphere, cylinder = excluded.cylinder,
		   axis = excluded.axis, iop = excluded.iop, notes = excluded.notes`,
		x.ID, x.EncounterID, x.Side, x.VA, x.Sphere, x.Cylinder, x.Axis, x.IOP, x.Notes)
	if err != nil {
		return nil, classifySQL("upsert_exam_eye", err)
	}
	if err := s.db.QueryRowContext(ctx,
		`SELECT id FROM exam_eye WHERE encounter_id = ? AND side = ?`, x.EncounterID, x.Side).Scan(&x.ID); err != nil {
		return nil, classifySQL("upsert_exam_eye", err)
	}
	return x, nil
}

// surgeryRow is the local surgery shape (procedure_name instead of procedure).
type surgeryRow struct {
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

const surgerySelect = `
	SELECT id, patient_id, doctor_id, branch_id, procedure_name, eye, scheduled_at, status, notes
	FROM surgeries`

func scanSurgery(sc rowScanner) (surgeryRow, error) {
	var r surgeryRow
	err := sc.Scan(&r.ID, &r.PatientID, &r.DoctorID, &r.BranchID, &r.ProcedureName, &r.Eye, &r.ScheduledAt, &r.Status, &r.Notes)
	return r, err
}

func (s *Store) getSurgeries(ctx context.Context, raw json.RawMessage) (any, error) {
	a, err := bridge.Decode[struct {
		BranchID string `json:"branch_id"`
		From     string `json:"from"`
		To       string `json:"to"`
	}](raw)
	if err != nil {
		return nil, apperr.Validation("%v", err)
	}
	where := []string{}
	args := []any{}
	if a.BranchID != "" {
		where = append(where, "branch_id = ?")
		args = append(args, a.BranchID)
	}
	if a.From != "" {
		from, err := dayStart("from", a.From)
		if err != nil {
			return nil, err
		}
		where = append(where, "scheduled_at >= ?")
		args = append(args, from)
	}
	if a.To != "" {
		to, err := dayStart("to", a.To)
		if err != nil {
			return nil, err
		}
		where = append(where, "scheduled_at < ?")
		args = append(args, nextDayStart(to))
	}
	q := surgerySelect
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	rows, err := s.db.QueryContext(ctx, q+" ORDER BY scheduled_at", args...)
	if err != nil {
		return nil, classifySQL("get_surgeries", err)
	}
	defer rows.Close()
	out := []surgeryRow{}
	for rows.Next() {
		r, err := scanSurgery(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) getSurgery(ctx context.Context, raw json.RawMessage) (any, error) {
	id, err := decodeID(raw)
	if err != nil {
		return nil, err
	}
	r, err := scanSurgery(s.db.QueryRowContext(ctx, surgerySelect+" WHERE id = ?", id))
	if err != nil {
		return nil, classifySQL("get_surgery", err)
	}
	return r, nil
}

func (s *Store) createSurgery(ctx context.Context, raw json.RawMessage) (any, error) {
	r, err := bridge.Decode[surgeryRow](raw)
	if err != nil {
		return nil, apperr.Validation("%v", err)
	}
	r.ID = s.newID()
	r.Status = "scheduled"
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO surgeries (id, patient_id, doctor_id, branch_id, procedure_name, eye, scheduled_at, status, notes)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.PatientID, r.DoctorID, r.BranchID, r.ProcedureName, r.Eye, r.ScheduledAt, r.Status, r.Notes)
	if err != nil {
		return nil, classifySQL("create_surgery", err)
	}
	return r, nil
}

// updateSurgeryStatus only moves a surgery that is still in from_status.
func (s *Store) updateSurgeryStatus(ctx context.Context, raw json.RawMessage) (any, error) {
	a, err := bridge.Decode[struct {
		ID         string `json:"id"`
		FromStatus string `json:"from_status"`
		Status     string `json:"status"`
	}](raw)
	if err != nil {
		return nil, apperr.Validation("%v", err)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE surgeries SET status = ? WHERE id = ? AND status = ?`, a.Status, a.ID, a.FromStatus)
	if err != nil {
		return nil, classifySQL("update_surgery_status", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, apperr.BusinessRule("surgery %s is no longer %s", a.ID, a.FromStatus)
	}
	r, err := scanSurgery(s.db.QueryRowContext(ctx, surgerySelect+" WHERE id = ?", a.ID))
	if err != nil {
		return nil, classifySQL("update_surgery_status", err)
	}
	return r, nil
}
