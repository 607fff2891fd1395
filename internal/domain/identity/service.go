package identity

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/k1maruuu/eyes/internal/platform/auth"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserLocked         = errors.New("account is locked")
	ErrUserInactive       = errors.New("account is inactive")
)

// Service handles staff accounts and credential verification. Repeated failed
// logins lock the account by deactivating it; an admin reactivates.
type Service struct {
	users         Repository
	issuer        *auth.TokenIssuer
	maxLoginFails int
}

func NewService(users Repository, issuer *auth.TokenIssuer, maxLoginFails int) *Service {
	return &Service{users: users, issuer: issuer, maxLoginFails: maxLoginFails}
}

// Login verifies the password and returns a signed access token. Failed
// attempts count toward the lockout threshold; a success resets the counter.
func (s *Service) Login(ctx context.Context, email, password string) (string, *User, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}
	if !u.IsActive {
		if u.LoginAttempts >= s.maxLoginFails {
			return "", nil, ErrUserLocked
		}
		return "", nil, ErrUserInactive
	}
	if bcrypt.CompareHashAndPassword([]byte(u.HashedPassword), []byte(password)) != nil {
		u.LoginAttempts++
		if u.LoginAttempts >= s.maxLoginFails {
			u.IsActive = false
		}
		if uerr := s.users.Update(ctx, u); uerr != nil {
			return "", nil, uerr
		}
		if !u.IsActive {
			return "", nil, ErrUserLocked
		}
		return "", nil, ErrInvalidCredentials
	}
	u.LoginAttempts = 0
	now := time.Now().UTC()
	u.LastLoginAt = &now
	if err := s.users.Update(ctx, u); err != nil {
		return "", nil, err
	}
	token, err := s.issuer.Issue(u.ID, u.Role, u.OrganizationID)
	if err != nil {
		return "", nil, err
	}
	return token, u, nil
}

// Register creates a staff account with a bcrypt-hashed password.
func (s *Service) Register(ctx context.Context, u *User, password string) error {
	if u.Email == "" || u.FullName == "" {
		return errors.New("email and full_name are required")
	}
	if len(password) < 8 {
		return errors.New("password must be at least 8 characters")
	}
	switch u.Role {
	case auth.RoleAdmin, auth.RoleFeldsher, auth.RoleSurgeon:
	case "":
		u.Role = auth.RoleFeldsher
	default:
		return errors.New("unknown role")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.HashedPassword = string(hash)
	u.IsActive = true
	return s.users.Create(ctx, u)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.users.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*User, int, error) {
	return s.users.List(ctx, limit, offset)
}

// Unlock reactivates a locked account and clears the attempt counter.
func (s *Service) Unlock(ctx context.Context, id uuid.UUID) (*User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	u.IsActive = true
	u.LoginAttempts = 0
	if err := s.users.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}
