package repository

import (
	"context"
	"errors"

	"centrovision-data/internal/apperr"
	"centrovision-data/internal/bridge"
	"centrovision-data/internal/domain"
	"centrovision-data/internal/remote"
)

type AdminRepository interface {
	// CurrentUser resolves the caller's profile. The remote path reads the
	// token from ctx; the local path uses the desktop session.
	CurrentUser(ctx context.Context) (*domain.UserProfile, error)
	ListBranches(ctx context.Context) ([]*domain.Branch, error)
	ListProfiles(ctx context.Context) ([]*domain.UserProfile, error)
	UpdateRole(ctx context.Context, userID string, role domain.Role) (*domain.UserProfile, error)
}

type RemoteAdminRepository struct {
	client *remote.Client
}

func NewRemoteAdminRepository(client *remote.Client) *RemoteAdminRepository {
	return &RemoteAdminRepository{client: client}
}

// remoteProfileRow keys profiles by id, the auth user id.
type remoteProfileRow struct {
	ID       string  `json:"id"`
	Email    string  `json:"email"`
	FullName string  `json:"full_name"`
	Role     string  `json:"role"`
	BranchID *string `json:"branch_id"`
}

func (p remoteProfileRow) toDomain() *domain.UserProfile {
	return &domain.UserProfile{
		UserID:   p.ID,
		Email:    p.Email,
		FullName: p.FullName,
		Role:     domain.Role(p.Role),
		BranchID: deref(p.BranchID),
	}
}

func (r *RemoteAdminRepository) CurrentUser(ctx context.Context) (*domain.UserProfile, error) {
	user, err := r.client.User(ctx, remote.AccessToken(ctx))
	if err != nil {
		return nil, err
	}
	var row remoteProfileRow
	err = r.client.From("profiles").Eq("id", user.ID).Single(ctx, &row)
	if apperr.Is(err, apperr.KindNotFound) {
		return nil, apperr.Authorization("user %s has no profile", user.ID)
	}
	if err != nil {
		return nil, err
	}
	p := row.toDomain()
	if p.Email == "" {
		p.Email = user.Email
	}
	return p, nil
}

func (r *RemoteAdminRepository) ListBranches(ctx context.Context) ([]*domain.Branch, error) {
	var rows []*domain.Branch
	if err := r.client.From("branches").Order("name", true).Execute(ctx, &rows); err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []*domain.Branch{}
	}
	return rows, nil
}

func (r *RemoteAdminRepository) ListProfiles(ctx context.Context) ([]*domain.UserProfile, error) {
	var rows []remoteProfileRow
	if err := r.client.From("profiles").Order("full_name", true).Execute(ctx, &rows); err != nil {
		return nil, err
	}
	out := make([]*domain.UserProfile, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *RemoteAdminRepository) UpdateRole(ctx context.Context, userID string, role domain.Role) (*domain.UserProfile, error) {
	var updated []remoteProfileRow
	if err := r.client.From("profiles").Eq("id", userID).Update(ctx, map[string]any{"role": string(role)}, &updated); err != nil {
		return nil, err
	}
	if len(updated) == 0 {
		return nil, apperr.NotFound("profile %s not found", userID)
	}
	return updated[0].toDomain(), nil
}

type LocalAdminRepository struct {
	bridge bridge.Invoker
}

func NewLocalAdminRepository(b bridge.Invoker) *LocalAdminRepository {
	return &LocalAdminRepository{bridge: b}
}

type localProfileRow struct {
	UserID   string `json:"user_id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
	BranchID string `json:"branch_id"`
}

func (p localProfileRow) toDomain() *domain.UserProfile {
	return &domain.UserProfile{
		UserID:   p.UserID,
		Email:    p.Email,
		FullName: p.FullName,
		Role:     domain.Role(p.Role),
		BranchID: p.BranchID,
	}
}

func (r *LocalAdminRepository) CurrentUser(ctx context.Context) (*domain.UserProfile, error) {
	var row localProfileRow
	err := r.bridge.Invoke(ctx, "get_current_user", nil, &row)
	if errors.Is(err, bridge.ErrShellUnavailable) {
		return nil, apperr.Authorization("desktop shell unavailable")
	}
	if err != nil {
		return nil, err
	}
	return row.toDomain(), nil
}

func (r *LocalAdminRepository) ListBranches(ctx context.Context) ([]*domain.Branch, error) {
	var rows []*domain.Branch
	if err := r.bridge.Invoke(ctx, "get_branches", nil, &rows); err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []*domain.Branch{}
	}
	return rows, nil
}

func (r *LocalAdminRepository) ListProfiles(ctx context.Context) ([]*domain.UserProfile, error) {
	var rows []localProfileRow
	if err := r.bridge.Invoke(ctx, "get_profiles", nil, &rows); err != nil {
		return nil, err
	}
	out := make([]*domain.UserProfile, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *LocalAdminRepository) UpdateRole(ctx context.Context, userID string, role domain.Role) (*domain.UserProfile, error) {
	var row localProfileRow
	args := map[string]string{"user_id": userID, "role": string(role)}
	if err := r.bridge.Invoke(ctx, "update_profile_role", args, &row); err != nil {
		return nil, err
	}
	return row.toDomain(), nil
}
