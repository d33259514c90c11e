package service

import (
	"context"

	"centrovision-data/internal/apperr"
	"centrovision-data/internal/domain"
	"centrovision-data/internal/dualaccess"
	"centrovision-data/internal/repository"

	"go.uber.org/zap"
)

type AdminService struct {
	runner *dualaccess.Runner
	repos  dualaccess.Backends[repository.AdminRepository]
	logger *zap.Logger
}

func NewAdminService(runner *dualaccess.Runner, repos dualaccess.Backends[repository.AdminRepository], logger *zap.Logger) *AdminService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminService{runner: runner, repos: repos, logger: logger}
}

// CurrentUser resolves the caller: the access token in ctx on the remote
// path, the desktop session on the local path.
func (s *AdminService) CurrentUser(ctx context.Context) (*domain.UserProfile, error) {
	return dualaccess.Do(ctx, s.runner, familyAdmin, "CurrentUser", s.repos,
		func(ctx context.Context, r repository.AdminRepository) (*domain.UserProfile, error) {
			return r.CurrentUser(ctx)
		})
}

func (s *AdminService) ListBranches(ctx context.Context) ([]*domain.Branch, error) {
	return dualaccess.Do(ctx, s.runner, familyAdmin, "ListBranches", s.repos,
		func(ctx context.Context, r repository.AdminRepository) ([]*domain.Branch, error) {
			return r.ListBranches(ctx)
		})
}

func (s *AdminService) ListProfiles(ctx context.Context) ([]*domain.UserProfile, error) {
	return dualaccess.Do(ctx, s.runner, familyAdmin, "ListProfiles", s.repos,
		func(ctx context.Context, r repository.AdminRepository) ([]*domain.UserProfile, error) {
			return r.ListProfiles(ctx)
		})
}

// SetUserRole changes a user's role. Admin only; admins cannot change their own role.
func (s *AdminService) SetUserRole(ctx context.Context, userID string, role domain.Role) (*domain.UserProfile, error) {
	caller, err := requireRole(ctx, "changing user roles", domain.RoleAdmin)
	if err != nil {
		return nil, err
	}
	if err := required("user_id", userID); err != nil {
		return nil, err
	}
	if !role.Valid() {
		return nil, apperr.Validation("unknown role %q", role)
	}
	if caller.UserID == userID {
		return nil, apperr.BusinessRule("admins cannot change their own role")
	}
	p, err := dualaccess.Do(ctx, s.runner, familyAdmin, "SetUserRole", s.repos,
		func(ctx context.Context, r repository.AdminRepository) (*domain.UserProfile, error) {
			return r.UpdateRole(ctx, userID, role)
		})
	if err != nil {
		return nil, err
	}
	s.logger.Info("User role changed",
		zap.String("user_id", userID),
		zap.String("role", string(role)),
		zap.String("by", caller.UserID),
	)
	return p, nil
}
