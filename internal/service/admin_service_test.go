package service

import (
	"context"
	"testing"

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

func TestSetUserRole_Gating(t *testing.T) {
	remote := new(MockAdminRepository)
	svc := NewAdminService(runnerIn(connectivity.ModeRemote),
		dualaccess.Backends[repository.AdminRepository]{Remote: remote}, zap.NewNop())

	_, err := svc.SetUserRole(withUser("u1", domain.RoleReception), "u2", domain.RoleDoctor)
	assert.True(t, apperr.Is(err, apperr.KindAuthorization))

	_, err = svc.SetUserRole(withUser("admin1", domain.RoleAdmin), "u2", "janitor")
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = svc.SetUserRole(withUser("admin1", domain.RoleAdmin), "admin1", domain.RoleDoctor)
	assert.True(t, apperr.Is(err, apperr.KindBusinessRule))

	remote.AssertNotCalled(t, "UpdateRole", mock.Anything, mock.Anything, mock.Anything)

	remote.On("UpdateRole", mock.Anything, "u2", domain.RoleOptometrist).
		Return(&domain.UserProfile{UserID: "u2", Role: domain.RoleOptometrist}, nil)
	got, err := svc.SetUserRole(withUser("admin1", domain.RoleAdmin), "u2", domain.RoleOptometrist)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleOptometrist, got.Role)
}

func TestCurrentUser_FollowsMode(t *testing.T) {
	remote := new(MockAdminRepository)
	local := new(MockAdminRepository)
	local.On("CurrentUser", mock.Anything).Return(nil, apperr.Authorization("desktop shell unavailable"))

	svc := NewAdminService(runnerIn(connectivity.ModeOffline),
		dualaccess.Backends[repository.AdminRepository]{Remote: remote, Local: local}, nil)
	_, err := svc.CurrentUser(context.Background())
	assert.True(t, apperr.Is(err, apperr.KindAuthorization))
	remote.AssertNotCalled(t, "CurrentUser", mock.Anything)
}

func TestCRM_CreateLeadDefaultsToFirstStage(t *testing.T) {
	local := new(MockCRMRepository)
	svc := NewCRMService(runnerIn(connectivity.ModeLocal),
		dualaccess.Backends[repository.CRMRepository]{Local: local}, zap.NewNop())

	local.On("ListStages", mock.Anything, "cirugia").Return([]*domain.PipelineStage{
		{ID: "st1", Pipeline: "cirugia", Name: "Nuevo", Position: 1},
		{ID: "st2", Pipeline: "cirugia", Name: "Contactado", Position: 2},
	}, nil)
	local.On("CreateLead", mock.Anything, mock.MatchedBy(func(l *domain.Lead) bool {
		return l.StageID == "st1" && l.FullName == "Ana Pérez"
	})).Return(&domain.Lead{ID: "l1", StageID: "st1"}, nil)

	got, err := svc.CreateLead(context.Background(), &domain.Lead{Pipeline: "cirugia", FullName: " Ana Pérez ", Phone: "5551234"})
	require.NoError(t, err)
	assert.Equal(t, "l1", got.ID)

	_, err = svc.CreateLead(context.Background(), &domain.Lead{Pipeline: "cirugia", FullName: "Sin contacto"})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestCRM_EmptyPipelineIsNotFound(t *testing.T) {
	remote := new(MockCRMRepository)
	svc := NewCRMService(runnerIn(connectivity.ModeRemote),
		dualaccess.Backends[repository.CRMRepository]{Remote: remote}, zap.NewNop())
	remote.On("ListStages", mock.Anything, "optica").Return([]*domain.PipelineStage{}, nil)

	_, err := svc.CreateLead(context.Background(), &domain.Lead{Pipeline: "optica", FullName: "Luis", Email: "l@x.mx"})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	remote.AssertNotCalled(t, "CreateLead", mock.Anything, mock.Anything)
}

func TestDashboard_Validation(t *testing.T) {
	svc := NewAnalyticsService(runnerIn(connectivity.ModeRemote), dualaccess.Backends[repository.AnalyticsRepository]{})
	for _, f := range []repository.DashboardFilters{
		{From: "2026-01-01", To: "2026-01-31"},
		{BranchID: "b1", From: "2026-01-31", To: "2026-01-01"},
		{BranchID: "b1", From: "2026/01/01", To: "2026-01-31"},
		{BranchID: "b1", From: "2024-01-01", To: "2026-01-31"},
	} {
		_, err := svc.Dashboard(context.Background(), f)
		assert.True(t, apperr.Is(err, apperr.KindValidation), "%+v", f)
	}
}

func TestDashboard_PeriodLimitCountsBothEnds(t *testing.T) {
	remote := &MockAnalyticsRepository{}
	svc := NewAnalyticsService(runnerIn(connectivity.ModeRemote), dualaccess.Backends[repository.AnalyticsRepository]{Remote: remote})

	full := repository.DashboardFilters{BranchID: "b1", From: "2025-01-01", To: "2026-01-01"}
	remote.On("Dashboard", mock.Anything, full).Return(&domain.DashboardSummary{}, nil)
	_, err := svc.Dashboard(context.Background(), full)
	require.NoError(t, err)

	_, err = svc.Dashboard(context.Background(), repository.DashboardFilters{BranchID: "b1", From: "2025-01-01", To: "2026-01-02"})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	assert.Contains(t, apperr.Message(err), "366")
	remote.AssertNumberOfCalls(t, "Dashboard", 1)
}

func TestDocumentLink_RejectsTraversal(t *testing.T) {
	svc := NewDocumentService(runnerIn(connectivity.ModeLocal), dualaccess.Backends[repository.DocumentRepository]{})
	_, err := svc.Link(context.Background(), "estudios", "p1/../../etc/passwd")
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = svc.Link(context.Background(), "", "p1/oct.pdf")
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}
