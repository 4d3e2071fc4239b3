package api

import (
	"context"
	"net/http"

	"github.com/juju/errors"

	"github.com/SigNoz/ecommerce-go-storefront/internal/models"
)

// AuthService covers login, registration and the current profile.
type AuthService struct {
	c *Client
}

// Login exchanges credentials for a bearer token and stores it. Any
// previous credential is dropped first.
func (s *AuthService) Login(ctx context.Context, creds models.LoginCredentials) (*models.AuthResponse, error) {
	if err := s.c.tokens.Clear(); err != nil {
		return nil, errors.Annotate(err, "clearing previous credential")
	}
	var out models.AuthResponse
	if err := s.c.do(ctx, http.MethodPost, "/auth/login/", nil, creds, &out); err != nil {
		return nil, errors.Trace(err)
	}
	if out.Tokens.Access == "" {
		return nil, errors.New("login response carried no access token")
	}
	if err := s.c.tokens.SetToken(out.Tokens.Access); err != nil {
		return nil, errors.Annotate(err, "storing credential")
	}
	return &out, nil
}

// Register creates an account. It does not log the new user in.
func (s *AuthService) Register(ctx context.Context, data models.RegisterData) (*models.User, error) {
	var out models.AuthResponse
	if err := s.c.do(ctx, http.MethodPost, "/auth/register/", nil, data, &out); err != nil {
		return nil, errors.Trace(err)
	}
	return &out.User, nil
}

// Me returns the profile of the logged-in user.
func (s *AuthService) Me(ctx context.Context) (*models.User, error) {
	var out models.User
	if err := s.c.do(ctx, http.MethodGet, "/auth/me/", nil, nil, &out); err != nil {
		return nil, errors.Trace(err)
	}
	return &out, nil
}

// UpdateProfile changes the editable profile fields.
func (s *AuthService) UpdateProfile(ctx context.Context, update models.ProfileUpdate) (*models.User, error) {
	var out models.User
	if err := s.c.do(ctx, http.MethodPut, "/auth/profile/", nil, update, &out); err != nil {
		return nil, errors.Trace(err)
	}
	return &out, nil
}

// Logout forgets the stored credential. The backend keeps no session.
func (s *AuthService) Logout() error {
	return errors.Trace(s.c.tokens.Clear())
}
