// Package governance implements the read-only audit surface.
package governance

import (
	"context"

	"sqlgate/internal/domain"
)

// AuditService provides filtered audit log listing.
type AuditService struct {
	repo domain.AuditRepository
}

// NewAuditService creates the audit service.
func NewAuditService(repo domain.AuditRepository) *AuditService {
	return &AuditService{repo: repo}
}

// List returns a filtered, paginated slice of the audit log. Requires
// admin privileges: the audit trail is a compliance record.
func (s *AuditService) List(ctx context.Context, filter domain.AuditFilter) ([]domain.AuditLogEntry, int64, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, 0, err
	}
	return s.repo.List(ctx, filter)
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
