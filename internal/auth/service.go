package auth

import (
	"context"
	"errors"
	"time"

	"github.com/gatehouse-web/gatehouse/internal/shared"
)

// dummyHash is a valid bcrypt hash compared against when no row exists,
// so a missing email costs the same as a wrong password.
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// Service wraps registration and authentication business rules.
type Service struct {
	repo   Repository
	hasher PasswordHasher
}

// NewService constructs a new Service.
func NewService(repo Repository, hasher PasswordHasher) *Service {
	return &Service{repo: repo, hasher: hasher}
}

// RegisterInput carries the registration form fields.
type RegisterInput struct {
	Name        string
	DateOfBirth time.Time
	Email       string
	Password    string
}

// Register hashes the password and inserts a new user. A duplicate email
// surfaces shared.ErrDuplicateEmail; any other persistence failure is
// returned wrapped.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*User, error) {
	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, err
	}
	user := &User{
		Name:         input.Name,
		DateOfBirth:  input.DateOfBirth,
		Email:        input.Email,
		PasswordHash: hash,
	}
	id, err := s.repo.CreateUser(ctx, user)
	if err != nil {
		return nil, err
	}
	user.ID = id
	return user, nil
}

// Authenticate validates email/password credentials. A missing user and a
// wrong password are indistinguishable to the caller.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			_ = s.hasher.Compare(dummyHash, password)
			return nil, shared.ErrInvalidCredentials
		}
		return nil, err
	}
	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	return user, nil
}
