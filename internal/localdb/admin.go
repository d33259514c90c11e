package localdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"centrovision-data/internal/apperr"
	"centrovision-data/internal/bridge"
)

type profileRow struct {
	UserID   string `json:"user_id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
	BranchID string `json:"branch_id"`
}

const profileSelect = `SELECT p.user_id, p.email, p.full_name, p.role, COALESCE(p.branch_id, '') FROM profiles p`

func scanProfile(sc rowScanner) (profileRow, error) {
	var p profileRow
	err := sc.Scan(&p.UserID, &p.Email, &p.FullName, &p.Role, &p.BranchID)
	return p, err
}

// getCurrentUser returns the profile of the signed-in desktop user.
func (s *Store) getCurrentUser(ctx context.Context, _ json.RawMessage) (any, error) {
	p, err := scanProfile(s.db.QueryRowContext(ctx,
		profileSelect+` JOIN session ss ON ss.user_id = p.user_id WHERE ss.id = 1`))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.Authorization("no active desktop session")
	}
	if err != nil {
		return nil, classifySQL("get_current_user", err)
	}
	return p, nil
}

func (s *Store) getProfiles(ctx context.Context, _ json.RawMessage) (any, error) {
	rows, err := s.db.QueryContext(ctx, profileSelect+` ORDER BY p.full_name`)
	if err != nil {
		return nil, classifySQL("get_profiles", err)
	}
	defer rows.Close()
	out := []profileRow{}
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) updateProfileRole(ctx context.Context, raw json.RawMessage) (any, error) {
	a, err := bridge.Decode[struct {
		UserID string `json:"user_id"`
		Role   string `json:"role"`
	}](raw)
	if err != nil {
		return nil, apperr.Validation("%v", err)
	}
	res, err := s.db.ExecContext(ctx, `UPDATE profiles SET role = ? WHERE user_id = ?`, a.Role, a.UserID)
	if err != nil {
		return nil, classifySQL("update_profile_role", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, apperr.NotFound("profile %s not found", a.UserID)
	}
	p, err := scanProfile(s.db.QueryRowContext(ctx, profileSelect+` WHERE p.user_id = ?`, a.UserID))
	if err != nil {
		return nil, classifySQL("update_profile_role", err)
	}
	return p, nil
}

type branchRow struct {
	ID      string `json:"id"`
	Code    string `json:"code"`
	Name    string `json:"name"`
	Address string `json:"address"`
	Active  bool   `json:"active"`
}

func (s *Store) getBranches(ctx context.Context, _ json.RawMessage) (any, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, code, name, address, active FROM branches ORDER BY name`)
	if err != nil {
		return nil, classifySQL("get_branches", err)
	}
	defer rows.Close()
	out := []branchRow{}
	for rows.Next() {
		var b branchRow
		if err := rows.Scan(&b.ID, &b.Code, &b.Name, &b.Address, &b.Active); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
