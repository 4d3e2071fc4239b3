package services

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/juju/errors"
	"golang.org/x/crypto/bcrypt"

	"github.com/SigNoz/ecommerce-go-storefront/internal/models"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// UserService handles accounts and bearer tokens
type UserService struct {
	store *Store
}

// NewUserService creates a new user service
func NewUserService(store *Store) *UserService {
	return &UserService{store: store}
}

// Register creates a customer account.
func (s *UserService) Register(data models.RegisterData) (*models.AuthResponse, error) {
	switch {
	case len(strings.TrimSpace(data.Username)) < 3:
		return nil, errors.NotValidf("username shorter than 3 characters")
	case !emailPattern.MatchString(data.Email):
		return nil, errors.NotValidf("email %q", data.Email)
	case len(data.Password) < 8:
		return nil, errors.NotValidf("password shorter than 8 characters")
	case data.Password != data.PasswordConfirm:
		return nil, errors.NotValidf("password confirmation")
	}

	s.store.mu.Lock()
	for _, rec := range s.store.users {
		if strings.EqualFold(rec.user.Email, data.Email) {
			s.store.mu.Unlock()
			return nil, errors.AlreadyExistsf("user with email %q", data.Email)
		}
		if rec.user.Username == data.Username {
			s.store.mu.Unlock()
			return nil, errors.AlreadyExistsf("user %q", data.Username)
		}
	}
	s.store.mu.Unlock()

	user, err := s.store.addUser(models.User{
		Username:  data.Username,
		Email:     data.Email,
		FirstName: data.FirstName,
		LastName:  data.LastName,
		Role:      models.RoleCustomer,
		Phone:     data.Phone,
		Address:   data.Address,
	}, data.Password)
	if err != nil {
		return nil, errors.Annotate(err, "hashing password")
	}
	logger.Infof("registered user %d (%s)", user.ID, user.Email)
	return &models.AuthResponse{User: user, Tokens: s.issue(user.ID)}, nil
}

// Login checks credentials and issues a new token.
func (s *UserService) Login(creds models.LoginCredentials) (*models.AuthResponse, error) {
	s.store.mu.Lock()
	var found *userRecord
	for _, rec := range s.store.users {
		if strings.EqualFold(rec.user.Email, creds.Email) {
			found = rec
			break
		}
	}
	s.store.mu.Unlock()

	if found == nil || bcrypt.CompareHashAndPassword(found.passwordHash, []byte(creds.Password)) != nil {
		return nil, errors.Unauthorizedf("invalid email or password")
	}
	return &models.AuthResponse{User: found.user, Tokens: s.issue(found.user.ID)}, nil
}

func (s *UserService) issue(userID int64) models.Tokens {
	tokens := models.Tokens{Access: uuid.NewString(), Refresh: uuid.NewString()}
	s.store.mu.Lock()
	s.store.tokens[tokens.Access] = userID
	s.store.mu.Unlock()
	return tokens
}

// Authenticate resolves a bearer token to its user.
func (s *UserService) Authenticate(token string) (models.User, error) {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	id, ok := s.store.tokens[token]
	if !ok {
		return models.User{}, errors.Unauthorizedf("invalid token")
	}
	rec, ok := s.store.users[id]
	if !ok {
		return models.User{}, errors.Unauthorizedf("user no longer exists")
	}
	return rec.user, nil
}

// Revoke invalidates a token.
func (s *UserService) Revoke(token string) {
	s.store.mu.Lock()
	delete(s.store.tokens, token)
	s.store.mu.Unlock()
}

// GetUser returns a user by id
func (s *UserService) GetUser(id int64) (*models.User, error) {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	rec, ok := s.store.users[id]
	if !ok {
		return nil, errors.NotFoundf("user %d", id)
	}
	u := rec.user
	return &u, nil
}

// UpdateProfile changes the editable fields of a user.
func (s *UserService) UpdateProfile(id int64, update models.ProfileUpdate) (*models.User, error) {
	if strings.TrimSpace(update.FirstName) == "" || strings.TrimSpace(update.LastName) == "" {
		return nil, errors.NotValidf("empty name")
	}
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	rec, ok := s.store.users[id]
	if !ok {
		return nil, errors.NotFoundf("user %d", id)
	}
	rec.user.FirstName = update.FirstName
	rec.user.LastName = update.LastName
	rec.user.Phone = update.Phone
	rec.user.Address = update.Address
	u := rec.user
	return &u, nil
}
