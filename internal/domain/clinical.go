package domain

import (
	"time"
)

type Eye string

const (
	EyeRight Eye = "OD"
	EyeLeft  Eye = "OS"
	EyeBoth  Eye = "OU"
)

// Encounter is one consultation.
type Encounter struct {
	ID             string    `json:"id"`
	PatientID      string    `json:"patient_id"`
	DoctorID       string    `json:"doctor_id"`
	BranchID       string    `json:"branch_id"`
	Type           string    `json:"type"`
	Date           time.Time `json:"date"`
	ChiefComplaint string    `json:"chief_complaint,omitempty"`
	Diagnosis      string    `json:"diagnosis,omitempty"`
	Plan           string    `json:"plan,omitempty"`
	Status         string    `json:"status"`
	Exams          []EyeExam `json:"exams"`
}

const (
	EncounterOpen   = "open"
	EncounterClosed = "closed"
)

type EncounterPatch struct {
	ChiefComplaint *string `json:"chief_complaint,omitempty"`
	Diagnosis      *string `json:"diagnosis,omitempty"`
	Plan           *string `json:"plan,omitempty"`
	Status         *string `json:"status,omitempty"`
}

// EyeExam is the per-eye record of an encounter (one per eye).
type EyeExam struct {
	ID           string   `json:"id"`
	EncounterID  string   `json:"encounter_id"`
	Eye          Eye      `json:"eye"`
	VisualAcuity string   `json:"visual_acuity,omitempty"`
	Sphere       *float64 `json:"sphere,omitempty"`
	Cylinder     *float64 `json:"cylinder,omitempty"`
	Axis         *int     `json:"axis,omitempty"`
	IOP          *float64 `json:"iop,omitempty"`
	Notes        string   `json:"notes,omitempty"`
}

type SurgeryStatus string

const (
	SurgeryScheduled SurgeryStatus = "scheduled"
	SurgeryCompleted SurgeryStatus = "completed"
	SurgeryCancelled SurgeryStatus = "cancelled"
)

// CanTransition reports whether a surgery may move from s to next.
func (s SurgeryStatus) CanTransition(next SurgeryStatus) bool {
	return s == SurgeryScheduled && (next == SurgeryCompleted || next == SurgeryCancelled)
}

type Surgery struct {
	ID          string        `json:"id"`
	PatientID   string        `json:"patient_id"`
	DoctorID    string        `json:"doctor_id"`
	BranchID    string        `json:"branch_id"`
	Procedure   string        `json:"procedure"`
	Eye         Eye           `json:"eye"`
	ScheduledAt time.Time     `json:"scheduled_at"`
	Status      SurgeryStatus `json:"status"`
	Notes       string        `json:"notes,omitempty"`
}
