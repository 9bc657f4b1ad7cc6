// Package users implements registration, login and the admin account
// operations on top of the credential store.
package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"weatherapi/m/domain"
	"weatherapi/m/internal/auth"
	"weatherapi/m/internal/common"
	"weatherapi/m/internal/logging"
	"weatherapi/m/internal/repositories/users"
)

// Service implements account registration, login and admin operations.
type Service struct {
	repo     users.Repository
	issuer   *auth.Issuer
	logger   logging.Logger
	hashCost int
}

// NewService constructs a Service that hashes with bcrypt.DefaultCost.
func NewService(repo users.Repository, issuer *auth.Issuer, logger logging.Logger) *Service {
	return &Service{repo: repo, issuer: issuer, logger: logger, hashCost: bcrypt.DefaultCost}
}

// Credentials are the fields needed to create an account.
type Credentials struct {
	Email    string
	Username string
	Password string
}

// Register creates a USER account.
func (s *Service) Register(ctx context.Context, c Credentials) (*domain.User, error) {
	return s.create(ctx, c, domain.RoleUser)
}

// CreateUser is the admin variant of Register; new accounts are always USER.
func (s *Service) CreateUser(ctx context.Context, c Credentials) (*domain.User, error) {
	return s.create(ctx, c, domain.RoleUser)
}

// EnsureAccount creates an account with the given role unless one already
// exists for the email or username. It reports whether it created one.
func (s *Service) EnsureAccount(ctx context.Context, c Credentials, role domain.Role) (bool, error) {
	_, err := s.create(ctx, c, role)
	if errors.Is(err, common.ErrDuplicateIdentity) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Service) create(ctx context.Context, c Credentials, role domain.Role) (*domain.User, error) {
	email := normalizeEmail(c.Email)
	username := strings.TrimSpace(c.Username)
	if email == "" || username == "" || c.Password == "" {
		return nil, fmt.Errorf("%w: email, username and password are required", common.ErrMissingParameter)
	}

	exists, err := s.repo.ExistsByEmailOrUsername(ctx, email, username)
	if err != nil {
		return nil, fmt.Errorf("check existing user: %w", err)
	}
	if exists {
		s.logger.Info(ctx, "user already exists", "email", email, "username", username)
		return nil, common.ErrDuplicateIdentity
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(c.Password), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.repo.Create(ctx, &domain.User{
		Username: username,
		Email:    email,
		Password: string(hashed),
		Role:     role,
	})
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	s.logger.Info(ctx, "user created", "user_id", user.ID, "role", user.Role)
	return user, nil
}

// Login checks the password and returns a signed token. Unknown email and
// wrong password are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return "", fmt.Errorf("%w: email and password are required", common.ErrMissingParameter)
	}

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrUserNotFound) {
			return "", common.ErrInvalidCredentials
		}
		return "", fmt.Errorf("load user: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return "", common.ErrInvalidCredentials
	}

	token, err := s.issuer.Issue(user.ID, user.Role)
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}
	return token, nil
}

// HasAdmin reports whether at least one ADMIN account exists.
func (s *Service) HasAdmin(ctx context.Context) (bool, error) {
	n, err := s.repo.CountByRole(ctx, domain.RoleAdmin)
	if err != nil {
		return false, fmt.Errorf("count admins: %w", err)
	}
	return n > 0, nil
}

// ListUsers returns every account without credentials.
func (s *Service) ListUsers(ctx context.Context) ([]domain.UserSummary, error) {
	list, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return list, nil
}

// UpdateRole validates the role before touching the store. An id that matches
// no account, including zero, yields common.ErrUserNotFound.
func (s *Service) UpdateRole(ctx context.Context, id int64, role string) (*domain.UserSummary, error) {
	parsed, err := domain.ParseRole(role)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", common.ErrInvalidRole, role)
	}
	if id <= 0 {
		return nil, common.ErrUserNotFound
	}
	if err := s.repo.UpdateRole(ctx, id, parsed); err != nil {
		return nil, err
	}
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.logger.Info(ctx, "user role updated", "user_id", id, "role", parsed)
	summary := user.Summary()
	return &summary, nil
}

// DeleteUser removes the account and, by cascade, its query history.
func (s *Service) DeleteUser(ctx context.Context, id int64) error {
	if id <= 0 {
		return common.ErrUserNotFound
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info(ctx, "user deleted", "user_id", id)
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
