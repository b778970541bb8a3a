package supabase

import (
	"context"

	"github.com/golang-jwt/jwt/v5"

	"github.com/panelprompt/auth-api/internal/core/domain"
)

type signupRequest struct {
	Email    string         `json:"email"`
	Password string         `json:"password"`
	Data     map[string]any `json:"data,omitempty"`
}

type passwordGrantRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authUser struct {
	ID               string  `json:"id"`
	Email            string  `json:"email"`
	EmailConfirmedAt *string `json:"email_confirmed_at"`
}

// sessionResponse is returned by the token endpoint, and by signup when
// auto-confirm is on. With confirmation enabled signup returns the bare user,
// which lands in the embedded authUser.
type sessionResponse struct {
	authUser
	AccessToken string    `json:"access_token"`
	User        *authUser `json:"user"`
}

func (r *sessionResponse) identity() *domain.Identity {
	u := r.User
	if u == nil || u.ID == "" {
		u = &r.authUser
	}
	id := u.ID
	if id == "" {
		id = subjectOf(r.AccessToken)
	}
	if id == "" {
		return nil
	}
	return &domain.Identity{
		ID:             id,
		Email:          u.Email,
		EmailConfirmed: u.EmailConfirmedAt != nil && *u.EmailConfirmedAt != "",
	}
}

// CreateAccount registers a GoTrue user with metadata in user_metadata.
func (c *Client) CreateAccount(ctx context.Context, email, password string, metadata map[string]any) (*domain.Identity, error) {
	var out sessionResponse
	var apiErr apiError

	resp, err := c.rest.R().
		SetContext(ctx).
		SetBody(signupRequest{Email: email, Password: password, Data: metadata}).
		SetResult(&out).
		SetError(&apiErr).
		Post("/auth/v1/signup")
	if err != nil {
		return nil, transportError("signup", err)
	}
	if resp.IsError() {
		return nil, classifyAuth("signup", resp, &apiErr)
	}
	return out.identity(), nil
}

// VerifyCredential runs the password grant. The session GoTrue issues is
// not kept.
func (c *Client) VerifyCredential(ctx context.Context, email, password string) (*domain.Identity, error) {
	var out sessionResponse
	var apiErr apiError

	resp, err := c.rest.R().
		SetContext(ctx).
		SetQueryParam("grant_type", "password").
		SetBody(passwordGrantRequest{Email: email, Password: password}).
		SetResult(&out).
		SetError(&apiErr).
		Post("/auth/v1/token")
	if err != nil {
		return nil, transportError("verify", err)
	}
	if resp.IsError() {
		return nil, classifyAuth("verify", resp, &apiErr)
	}
	return out.identity(), nil
}

// subjectOf reads the sub claim of a GoTrue access token. The token came
// straight from the provider on this connection, so the signature is not checked.
func subjectOf(token string) string {
	if token == "" {
		return ""
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return ""
	}
	sub, err := claims.GetSubject()
	if err != nil {
		return ""
	}
	return sub
}
