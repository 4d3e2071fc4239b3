package state

import (
	"context"

	"github.com/juju/errors"

	"github.com/SigNoz/ecommerce-go-storefront/internal/metrics"
	"github.com/SigNoz/ecommerce-go-storefront/internal/models"
)

// AuthAPI is the part of the gateway the auth store uses.
type AuthAPI interface {
	Login(ctx context.Context, creds models.LoginCredentials) (*models.AuthResponse, error)
	Register(ctx context.Context, data models.RegisterData) (*models.User, error)
	Me(ctx context.Context) (*models.User, error)
	UpdateProfile(ctx context.Context, update models.ProfileUpdate) (*models.User, error)
	Logout() error
}

// TokenSource reports the stored credential.
type TokenSource interface {
	Token() (string, error)
}

// AuthState is a snapshot of the auth store.
type AuthState struct {
	User    *models.User
	Loading bool
	Err     string
}

// AuthStore tracks the logged-in user.
type AuthStore struct {
	core
	api    AuthAPI
	tokens TokenSource
	user   *models.User
}

func NewAuthStore(api AuthAPI, tokens TokenSource, m *metrics.AppMetrics) *AuthStore {
	s := &AuthStore{api: api, tokens: tokens}
	s.init("auth", m)
	return s
}

// Snapshot returns a copy of the current state.
func (s *AuthStore) Snapshot() AuthState {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := AuthState{Loading: s.loading > 0, Err: s.err}
	if s.user != nil {
		u := *s.user
		out.User = &u
	}
	return out
}

// IsAuthenticated reports whether a credential is stored. The user profile
// may not have been loaded yet.
func (s *AuthStore) IsAuthenticated() bool {
	token, err := s.tokens.Token()
	return err == nil && token != ""
}

// IsAdmin reports whether the loaded user is an admin.
func (s *AuthStore) IsAdmin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user != nil && s.user.IsAdmin()
}

// Login authenticates and records the returned user.
func (s *AuthStore) Login(ctx context.Context, creds models.LoginCredentials) (*models.User, error) {
	resp, err := read(ctx, &s.core, "user", func(ctx context.Context) (*models.AuthResponse, error) {
		return s.api.Login(ctx, creds)
	}, func(resp *models.AuthResponse) {
		u := resp.User
		s.user = &u
	})
	if err != nil {
		return nil, errors.Trace(err)
	}
	logger.Infof("logged in as %s", resp.User.Email)
	return &resp.User, nil
}

// Register creates an account without logging in.
func (s *AuthStore) Register(ctx context.Context, data models.RegisterData) (*models.User, error) {
	var user *models.User
	err := s.mutate(ctx, func(ctx context.Context) (err error) {
		user, err = s.api.Register(ctx, data)
		return err
	})
	return user, errors.Trace(err)
}

// LoadUser fetches the profile of the logged-in user.
func (s *AuthStore) LoadUser(ctx context.Context) (*models.User, error) {
	return read(ctx, &s.core, "user", s.api.Me, func(u *models.User) {
		s.user = u
	})
}

// UpdateProfile saves the profile, then reloads the user.
func (s *AuthStore) UpdateProfile(ctx context.Context, update models.ProfileUpdate) (*models.User, error) {
	err := s.mutate(ctx, func(ctx context.Context) error {
		_, err := s.api.UpdateProfile(ctx, update)
		return err
	})
	if err != nil {
		return nil, errors.Trace(err)
	}
	user, err := s.LoadUser(ctx)
	return user, errors.Trace(resync(err))
}

// Logout forgets the credential and the user. A profile load in flight
// is dropped.
func (s *AuthStore) Logout() error {
	err := s.api.Logout()
	s.mu.Lock()
	s.user = nil
	s.err = ""
	s.supersede("user")
	s.mu.Unlock()
	s.notify()
	return errors.Trace(err)
}

// HandleUnauthorized is the gateway's 401 hook: the credential is already
// gone, so only the user is dropped. The request that failed still reports
// its own error.
func (s *AuthStore) HandleUnauthorized() {
	s.mu.Lock()
	s.user = nil
	s.err = "Session expired, please log in again"
	s.mu.Unlock()
	s.notify()
}
