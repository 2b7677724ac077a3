// Package whitelist exposes admin operations over whitelist entries.
package whitelist

import (
	"context"
	"log/slog"

	"sqlgate/internal/domain"
)

// Service wraps the whitelist repository with admin checks.
type Service struct {
	repo   domain.WhitelistRepository
	logger *slog.Logger
}

// New creates the whitelist admin service.
func New(repo domain.WhitelistRepository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger.With("component", "whitelist")}
}

// List returns a page of whitelist entries, newest first. Requires admin
// privileges.
func (s *Service) List(ctx context.Context, page domain.PageRequest) ([]domain.WhitelistEntry, int64, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, 0, err
	}
	return s.repo.List(ctx, page)
}

// Get returns one entry by id. Requires admin privileges.
func (s *Service) Get(ctx context.Context, id string) (*domain.WhitelistEntry, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

// Disable soft-disables an entry: it no longer matches lookups but stays
// on record, and its fingerprint may be re-approved later.
func (s *Service) Disable(ctx context.Context, id string) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}
	if err := s.repo.Disable(ctx, id); err != nil {
		return err
	}
	p, _ := domain.PrincipalFromContext(ctx)
	s.logger.Info("whitelist entry disabled", "id", id, "admin", p.Username)
	return nil
}

// Delete removes an entry outright.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	p, _ := domain.PrincipalFromContext(ctx)
	s.logger.Info("whitelist entry deleted", "id", id, "admin", p.Username)
	return nil
}

func requireAdmin(ctx context.Context) error {
	p, ok := domain.PrincipalFromContext(ctx)
	if !ok {
		return domain.ErrValidation("authentication required")
	}
	if !p.IsAdmin() {
		return domain.ErrRoleNotAllowed("role %q lacks admin privileges", p.Role)
	}
	return nil
}
