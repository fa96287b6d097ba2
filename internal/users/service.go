package users

import (
	"context"
	"crypto/subtle"

	"github.com/gatehouse-web/gatehouse/internal/shared"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	ListUsers(ctx context.Context) ([]User, error)
}

// Service handles the owner-gated export.
type Service struct {
	repo        RepositoryPort
	downloadKey string
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, downloadKey string) *Service {
	return &Service{repo: repo, downloadKey: downloadKey}
}

// Export returns all users after checking the supplied secret. A
// mismatched secret fails with shared.ErrAccessDenied before any store
// read happens.
func (s *Service) Export(ctx context.Context, secret string) ([]User, error) {
	if subtle.ConstantTimeCompare([]byte(secret), []byte(s.downloadKey)) != 1 {
		return nil, shared.ErrAccessDenied
	}
	return s.repo.ListUsers(ctx)
}
