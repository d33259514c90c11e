package service

import (
	"context"
	"testing"
	"time"

	"centrovision-data/internal/apperr"
	"centrovision-data/internal/connectivity"
	"centrovision-data/internal/domain"
	"centrovision-data/internal/dualaccess"
	"centrovision-data/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newSurgeryService(mode connectivity.Mode) (*SurgeryService, *MockSurgeryRepository, *MockSurgeryRepository) {
	remote := new(MockSurgeryRepository)
	local := new(MockSurgeryRepository)
	svc := NewSurgeryService(runnerIn(mode),
		dualaccess.Backends[repository.SurgeryRepository]{Remote: remote, Local: local}, zap.NewNop())
	return svc, remote, local
}

func TestValidateEyeExam(t *testing.T) {
	axis := func(v int) *int { return &v }
	iop := func(v float64) *float64 { return &v }

	x := &domain.EyeExam{EncounterID: "e1", Eye: "od", Axis: axis(180), IOP: iop(21)}
	require.NoError(t, validateEyeExam(x))
	assert.Equal(t, domain.EyeRight, x.Eye)

	cases := []struct {
		name string
		exam domain.EyeExam
	}{
		{"both eyes", domain.EyeExam{EncounterID: "e1", Eye: domain.EyeBoth}},
		{"axis over 180", domain.EyeExam{EncounterID: "e1", Eye: domain.EyeLeft, Axis: axis(181)}},
		{"negative axis", domain.EyeExam{EncounterID: "e1", Eye: domain.EyeLeft, Axis: axis(-1)}},
		{"iop over 80", domain.EyeExam{EncounterID: "e1", Eye: domain.EyeLeft, IOP: iop(80.5)}},
		{"no encounter", domain.EyeExam{Eye: domain.EyeLeft}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			exam := tc.exam
			assert.True(t, apperr.Is(validateEyeExam(&exam), apperr.KindValidation))
		})
	}
}

func TestCreateEncounter_DefaultsDoctorAndStatus(t *testing.T) {
	var got *domain.Encounter
	local := &stubConsultationRepo{create: func(e *domain.Encounter) { got = e }}
	svc := NewConsultationService(runnerIn(connectivity.ModeLocal),
		dualaccess.Backends[repository.ConsultationRepository]{Local: local}, zap.NewNop())

	_, err := svc.CreateEncounter(withUser("doc1", domain.RoleDoctor),
		&domain.Encounter{PatientID: "p1", BranchID: "b1", Type: "primera_vez"})
	require.NoError(t, err)
	assert.Equal(t, "doc1", got.DoctorID)
	assert.Equal(t, domain.EncounterOpen, got.Status)
}

func TestCreateEncounter_RemoteUnwiredIsExternal(t *testing.T) {
	svc := NewConsultationService(runnerIn(connectivity.ModeRemote),
		dualaccess.Backends[repository.ConsultationRepository]{Local: &stubConsultationRepo{}}, zap.NewNop())

	_, err := svc.CreateEncounter(withUser("doc1", domain.RoleDoctor),
		&domain.Encounter{PatientID: "p1", BranchID: "b1", Type: "control"})
	assert.True(t, apperr.Is(err, apperr.KindExternal))
}

func TestUpdateEncounter_UnknownStatus(t *testing.T) {
	svc := NewConsultationService(runnerIn(connectivity.ModeLocal),
		dualaccess.Backends[repository.ConsultationRepository]{Local: &stubConsultationRepo{}}, nil)
	status := "archived"
	_, err := svc.UpdateEncounter(context.Background(), "e1", domain.EncounterPatch{Status: &status})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestScheduleSurgery_Validation(t *testing.T) {
	svc, remote, _ := newSurgeryService(connectivity.ModeRemote)
	at := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	_, err := svc.ScheduleSurgery(withUser("doc1", domain.RoleDoctor),
		&domain.Surgery{PatientID: "p1", BranchID: "b1", Procedure: "Faco", Eye: "XX", ScheduledAt: at})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = svc.ScheduleSurgery(withUser("doc1", domain.RoleDoctor),
		&domain.Surgery{PatientID: "p1", BranchID: "b1", Procedure: "Faco", Eye: "OU"})
	assert.Equal(t, "scheduled_at is required", apperr.Message(err))

	remote.On("CreateSurgery", mock.Anything, mock.MatchedBy(func(s *domain.Surgery) bool {
		return s.Status == domain.SurgeryScheduled && s.DoctorID == "doc1" && s.Eye == domain.EyeBoth
	})).Return(&domain.Surgery{ID: "s1"}, nil)
	got, err := svc.ScheduleSurgery(withUser("doc1", domain.RoleDoctor),
		&domain.Surgery{PatientID: "p1", BranchID: "b1", Procedure: "Faco", Eye: "ou", ScheduledAt: at, Status: domain.SurgeryCompleted})
	require.NoError(t, err)
	assert.Equal(t, "s1", got.ID)
}

func TestUpdateSurgeryStatus_Transitions(t *testing.T) {
	cases := []struct {
		from    domain.SurgeryStatus
		to      domain.SurgeryStatus
		allowed bool
	}{
		{domain.SurgeryScheduled, domain.SurgeryCompleted, true},
		{domain.SurgeryScheduled, domain.SurgeryCancelled, true},
		{domain.SurgeryCompleted, domain.SurgeryCancelled, false},
		{domain.SurgeryCancelled, domain.SurgeryScheduled, false},
		{domain.SurgeryScheduled, domain.SurgeryScheduled, false},
	}
	for _, tc := range cases {
		t.Run(string(tc.from)+"->"+string(tc.to), func(t *testing.T) {
			svc, _, local := newSurgeryService(connectivity.ModeLocal)
			local.On("GetSurgery", mock.Anything, "s1").Return(&domain.Surgery{ID: "s1", Status: tc.from}, nil)
			local.On("UpdateSurgeryStatus", mock.Anything, "s1", tc.from, tc.to).
				Return(&domain.Surgery{ID: "s1", Status: tc.to}, nil)

			got, err := svc.UpdateSurgeryStatus(context.Background(), "s1", tc.to)
			if tc.allowed {
				require.NoError(t, err)
				assert.Equal(t, tc.to, got.Status)
				return
			}
			assert.True(t, apperr.Is(err, apperr.KindBusinessRule))
			local.AssertNotCalled(t, "UpdateSurgeryStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestListSurgeries_RangeChecked(t *testing.T) {
	svc, _, _ := newSurgeryService(connectivity.ModeLocal)
	_, err := svc.ListSurgeries(context.Background(), repository.SurgeryFilters{BranchID: "b1", From: "2026-03-10", To: "2026-03-01"})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

// stubConsultationRepo records CreateEncounter and echoes its input.
type stubConsultationRepo struct {
	repository.ConsultationRepository
	create func(*domain.Encounter)
}

func (s *stubConsultationRepo) CreateEncounter(_ context.Context, e *domain.Encounter) (*domain.Encounter, error) {
	if s.create != nil {
		s.create(e)
	}
	return e, nil
}
