package views

import (
	"context"
	"strings"

	"github.com/juju/errors"

	"github.com/SigNoz/ecommerce-go-storefront/internal/models"
	"github.com/SigNoz/ecommerce-go-storefront/internal/state"
)

// LoginForm is the login screen.
type LoginForm struct {
	deps Deps
}

func NewLoginForm(deps Deps) *LoginForm {
	return &LoginForm{deps: deps}
}

// Submit logs in and loads the cart of the new session.
func (v *LoginForm) Submit(ctx context.Context, email, password string) (*models.User, error) {
	errs := FormErrors{}
	errs.required("email", email)
	errs.required("password", password)
	if err := errs.err(); err != nil {
		return nil, v.deps.report(err)
	}
	user, err := v.deps.sessionUser(v.deps.Auth.Login(ctx, models.LoginCredentials{Email: strings.TrimSpace(email), Password: password}))
	if err != nil {
		_ = v.deps.report(err)
		return nil, err
	}
	v.deps.Cart.Reset()
	v.deps.Orders.Reset()
	if _, err := v.deps.Cart.Fetch(ctx); err != nil {
		_ = v.deps.report(err)
	}
	v.deps.Notifier.Success("Welcome back, " + displayName(*user) + "!")
	return user, nil
}

// Logout ends the session and forgets the session's data.
func Logout(deps Deps) error {
	err := deps.Auth.Logout()
	deps.Cart.Reset()
	deps.Orders.Reset()
	if err != nil {
		return deps.report(err)
	}
	deps.Notifier.Success("Logged out")
	return nil
}

// sessionUser settles the result of a user read. When the read was
// superseded the user applied by the newer read is returned; if that read
// has not landed yet the error stays ErrStale, which report does not show
// but callers still get.
func (d Deps) sessionUser(user *models.User, err error) (*models.User, error) {
	if err == nil && user != nil {
		return user, nil
	}
	if err != nil && !errors.Is(err, state.ErrStale) {
		return nil, err
	}
	if u := d.Auth.Snapshot().User; u != nil {
		return u, nil
	}
	if err == nil {
		err = state.ErrStale
	}
	return nil, errors.Trace(err)
}

func displayName(u models.User) string {
	if name := u.Name(); name != "" {
		return name
	}
	return u.Username
}

// RegisterForm is the sign-up screen.
type RegisterForm struct {
	deps Deps
}

func NewRegisterForm(deps Deps) *RegisterForm {
	return &RegisterForm{deps: deps}
}

// Validate checks data the way the backend will.
func (v *RegisterForm) Validate(data models.RegisterData) error {
	errs := FormErrors{}
	if len(strings.TrimSpace(data.Username)) < 3 {
		errs["username"] = "must be at least 3 characters"
	}
	if !emailPattern.MatchString(strings.TrimSpace(data.Email)) {
		errs["email"] = "invalid email address"
	}
	errs.required("first_name", data.FirstName)
	errs.required("last_name", data.LastName)
	if len(data.Password) < 8 {
		errs["password"] = "must be at least 8 characters"
	}
	if data.PasswordConfirm != data.Password {
		errs["password_confirm"] = "passwords do not match"
	}
	return errs.err()
}

// Submit creates the account. The user must log in afterwards.
func (v *RegisterForm) Submit(ctx context.Context, data models.RegisterData) (*models.User, error) {
	if err := v.Validate(data); err != nil {
		return nil, v.deps.report(err)
	}
	data.Email = strings.TrimSpace(data.Email)
	data.Username = strings.TrimSpace(data.Username)
	user, err := v.deps.Auth.Register(ctx, data)
	if err != nil {
		return nil, v.deps.report(err)
	}
	v.deps.Notifier.Success("Registration successful! Please log in.")
	return user, nil
}

// ProfileForm edits the logged-in user's profile.
type ProfileForm struct {
	deps Deps
}

func NewProfileForm(deps Deps) *ProfileForm {
	return &ProfileForm{deps: deps}
}

// Open loads the profile.
func (v *ProfileForm) Open(ctx context.Context) (*models.User, error) {
	if err := RequireLogin(v.deps.Auth); err != nil {
		return nil, err
	}
	user, err := v.deps.sessionUser(v.deps.Auth.LoadUser(ctx))
	if err != nil {
		_ = v.deps.report(err)
		return nil, err
	}
	return user, nil
}

func (v *ProfileForm) Validate(update models.ProfileUpdate) error {
	errs := FormErrors{}
	errs.required("first_name", update.FirstName)
	errs.required("last_name", update.LastName)
	return errs.err()
}

// Submit saves the profile.
func (v *ProfileForm) Submit(ctx context.Context, update models.ProfileUpdate) (*models.User, error) {
	if err := RequireLogin(v.deps.Auth); err != nil {
		return nil, err
	}
	if err := v.Validate(update); err != nil {
		return nil, v.deps.report(err)
	}
	user, err := v.deps.sessionUser(v.deps.Auth.UpdateProfile(ctx, update))
	if err != nil {
		_ = v.deps.report(err)
		return nil, err
	}
	v.deps.Notifier.Success("Profile updated")
	return user, nil
}
