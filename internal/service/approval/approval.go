// Package approval implements the admin approval workflow over pending
// queries.
package approval

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"sqlgate/internal/domain"
)

// Decision carries the admin's approve parameters.
type Decision struct {
	AddToWhitelist     bool
	ServerRestrictions []string
	PowerBIOnly        bool
	Tags               []string
	Description        string
}

// Service drives pending → {approved, rejected} transitions. Both are
// terminal and irreversible: the pending row is consumed.
type Service struct {
	approvals domain.ApprovalRepository
	audit     domain.AuditRepository
	notifier  domain.Notifier
	logger    *slog.Logger
}

// New creates the approval service.
func New(approvals domain.ApprovalRepository, audit domain.AuditRepository, notifier domain.Notifier, logger *slog.Logger) *Service {
	return &Service{
		approvals: approvals,
		audit:     audit,
		notifier:  notifier,
		logger:    logger.With("component", "approval"),
	}
}

// List returns all open pending approvals. Requires admin privileges.
func (s *Service) List(ctx context.Context) ([]domain.PendingApproval, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	return s.approvals.List(ctx)
}

// Get returns one pending approval by id. Requires admin privileges.
func (s *Service) Get(ctx context.Context, id string) (*domain.PendingApproval, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	return s.approvals.GetByID(ctx, id)
}

// Approve consumes the pending row and, when requested, creates the
// whitelist entry in the same transaction. A concurrent whitelist insert
// for the same fingerprint fails the whole operation with
// DuplicateFingerprintError and leaves the pending row intact.
// Returns the whitelist entry ID, or "" when none was created.
func (s *Service) Approve(ctx context.Context, id string, d Decision) (string, error) {
	if err := requireAdmin(ctx); err != nil {
		return "", err
	}
	approver, _ := domain.PrincipalFromContext(ctx)

	pending, err := s.approvals.GetByID(ctx, id)
	if err != nil {
		return "", err
	}

	var entry *domain.WhitelistEntry
	if d.AddToWhitelist {
		entry = &domain.WhitelistEntry{
			ID:                 uuid.NewString(),
			Fingerprint:        pending.Fingerprint,
			RawText:            pending.RawText,
			QueryType:          pending.QueryType,
			ApprovedBy:         approver.Username,
			ApprovedAt:         time.Now().UTC(),
			ServerRestrictions: d.ServerRestrictions,
			PowerBIOnly:        d.PowerBIOnly,
			Tags:               d.Tags,
			Description:        d.Description,
		}
	}

	if err := s.approvals.Approve(ctx, id, entry); err != nil {
		return "", err
	}

	if err := s.audit.Finalize(ctx, pending.AuditID, domain.AuditStatusApproved, nil, nil, nil); err != nil {
		s.logger.Error("audit finalize failed", "audit_id", pending.AuditID, "error", err)
	}
	whitelistID := ""
	if entry != nil {
		whitelistID = entry.ID
		if err := s.audit.SetWhitelistID(ctx, pending.AuditID, entry.ID); err != nil {
			s.logger.Error("audit whitelist link failed", "audit_id", pending.AuditID, "error", err)
		}
	}

	s.logger.Info("pending query approved",
		"approval_id", id, "approver", approver.Username,
		"whitelisted", entry != nil, "submitter", pending.Submitter)
	go s.notify(pending.Submitter, true, "")
	return whitelistID, nil
}

// Reject consumes the pending row without creating a whitelist entry and
// records the reason on the audit entry.
func (s *Service) Reject(ctx context.Context, id, reason string) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}
	approver, _ := domain.PrincipalFromContext(ctx)

	pending, err := s.approvals.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.approvals.Reject(ctx, id); err != nil {
		return err
	}

	msg := reason
	if err := s.audit.Finalize(ctx, pending.AuditID, domain.AuditStatusRejected, &msg, nil, nil); err != nil {
		s.logger.Error("audit finalize failed", "audit_id", pending.AuditID, "error", err)
	}

	s.logger.Info("pending query rejected",
		"approval_id", id, "approver", approver.Username,
		"submitter", pending.Submitter, "reason", reason)
	go s.notify(pending.Submitter, false, reason)
	return nil
}

// notify is fire-and-forget and runs off the request path: a slow or
// failed notification is logged and never stalls or rolls back the
// decision.
func (s *Service) notify(username string, approved bool, reason string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.notifier.Notify(ctx, username, approved, reason); err != nil {
		s.logger.Warn("submitter notification failed", "username", username, "error", err)
	}
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
