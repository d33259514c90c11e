package remote

import (
	"context"

	"centrovision-data/internal/apperr"
)

// AuthUser is the subset of the hosted auth user object used by the app.
type AuthUser struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	AppMetadata struct {
		Role string `json:"role"`
	} `json:"app_metadata"`
	UserMetadata struct {
		FullName string `json:"full_name"`
		BranchID string `json:"branch_id"`
	} `json:"user_metadata"`
}

// User resolves the session token into the authenticated user.
func (c *Client) User(ctx context.Context, token string) (*AuthUser, error) {
	if token == "" {
		return nil, apperr.Authorization("missing access token")
	}
	req, apiErr := c.request(WithAccessToken(ctx, token))
	var user AuthUser
	req.SetResult(&user)
	resp, err := req.Get("/auth/v1/user")
	if err := c.check("auth user", resp, err, apiErr); err != nil {
		return nil, err
	}
	return &user, nil
}
