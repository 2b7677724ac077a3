// Package gateway implements the query submission pipeline: classify,
// authorize, rate-limit, whitelist check, execute, audit.
package gateway

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"sqlgate/internal/classify"
	"sqlgate/internal/domain"
	"sqlgate/internal/fingerprint"
	"sqlgate/internal/policy"
	"sqlgate/internal/ratelimit"
)

// AdapterProvider hands out the engine adapter for a server. Implemented
// by engine.Manager.
type AdapterProvider interface {
	Adapter(ctx context.Context, server *domain.ServerConfig) (domain.EngineAdapter, error)
}

// Observer receives pipeline events, normally the Prometheus observer.
type Observer interface {
	QuerySubmitted(server, status string)
	QueryRejected(kind string)
	QueryExecuted(server string, seconds float64)
	RateLimited()
}

type nopObserver struct{}

func (nopObserver) QuerySubmitted(string, string) {}
func (nopObserver) QueryRejected(string)          {}
func (nopObserver) QueryExecuted(string, float64) {}
func (nopObserver) RateLimited()                  {}

// Config bounds every execution the gateway performs.
type Config struct {
	MaxRows int
	Timeout time.Duration
}

// Service runs the submission pipeline.
type Service struct {
	registry  domain.ServerRegistry
	policy    *policy.Engine
	limiter   *ratelimit.Limiter
	whitelist domain.WhitelistRepository
	approvals domain.ApprovalRepository
	audit     domain.AuditRepository
	engines   AdapterProvider
	observer  Observer
	cfg       Config
	logger    *slog.Logger
}

// New creates the gateway service.
func New(
	registry domain.ServerRegistry,
	pol *policy.Engine,
	limiter *ratelimit.Limiter,
	whitelist domain.WhitelistRepository,
	approvals domain.ApprovalRepository,
	audit domain.AuditRepository,
	engines AdapterProvider,
	cfg Config,
	logger *slog.Logger,
) *Service {
	if cfg.MaxRows <= 0 {
		cfg.MaxRows = 1000
	}
	return &Service{
		registry:  registry,
		policy:    pol,
		limiter:   limiter,
		whitelist: whitelist,
		approvals: approvals,
		audit:     audit,
		engines:   engines,
		observer:  nopObserver{},
		cfg:       cfg,
		logger:    logger.With("component", "gateway"),
	}
}

// SetObserver attaches a metrics observer. Optional.
func (s *Service) SetObserver(o Observer) {
	if o != nil {
		s.observer = o
	}
}

// SubmitQuery runs one SQL submission through the full pipeline. Policy,
// rate-limit, and whitelist rejections come back in the result with Err
// set and a rejected audit entry written; the returned error is reserved
// for metastore failures.
func (s *Service) SubmitQuery(ctx context.Context, p domain.Principal, sqlText, targetServer string) (*domain.SubmitResult, error) {
	fp := fingerprint.Hash(sqlText)

	q, err := classify.Classify(sqlText)
	if err != nil {
		return s.reject(ctx, p, sqlText, fp, targetServer, err)
	}
	q.Fingerprint = fp

	server, err := s.registry.Get(targetServer)
	if err != nil {
		return s.reject(ctx, p, sqlText, fp, targetServer, err)
	}
	if !server.IsActive {
		return s.reject(ctx, p, sqlText, fp, targetServer,
			domain.ErrValidation("server %q is not active", server.Alias))
	}

	if err := s.policy.Authorize(p.Role, q.Type, server); err != nil {
		return s.reject(ctx, p, sqlText, fp, targetServer, err)
	}

	if err := s.limiter.Allow(ctx, p.Identity(), p.Role); err != nil {
		s.observer.RateLimited()
		return s.reject(ctx, p, sqlText, fp, targetServer, err)
	}

	entry, err := s.whitelist.Lookup(ctx, fp)
	switch {
	case err == nil:
		if !entry.AllowsServer(server.Alias) {
			return s.reject(ctx, p, sqlText, fp, targetServer,
				domain.ErrServerNotAuthorized(
					"whitelist entry %s does not permit server %q", entry.ID, server.Alias))
		}
		if p.Role == domain.RolePowerBI && !entry.PowerBIOnly {
			return s.reject(ctx, p, sqlText, fp, targetServer,
				domain.ErrQueryTypeNotPermitted(
					"role %q may only run whitelist entries flagged for it", p.Role))
		}
		return s.execute(ctx, p, server, q, entry, domain.SubmitStatusSuccess)

	case domain.ErrorKind(err) == domain.KindNotFound:
		if p.IsAdmin() && server.AutoApprove {
			return s.autoApprove(ctx, p, server, q)
		}
		return s.queueForApproval(ctx, p, server, q)

	default:
		return nil, err
	}
}

// autoApprove inserts the whitelist entry directly for an admin on an
// auto-approve server, then executes. Losing the insert race to a
// concurrent approval is fine: the query is whitelisted either way.
func (s *Service) autoApprove(ctx context.Context, p domain.Principal, server *domain.ServerConfig, q *domain.Query) (*domain.SubmitResult, error) {
	entry := &domain.WhitelistEntry{
		ID:          uuid.NewString(),
		Fingerprint: q.Fingerprint,
		RawText:     q.RawText,
		QueryType:   q.Type,
		ApprovedBy:  p.Username,
		ApprovedAt:  time.Now().UTC(),
	}
	if err := s.whitelist.Insert(ctx, entry); err != nil {
		if domain.ErrorKind(err) != domain.KindDuplicateFingerprint {
			return nil, err
		}
		existing, lerr := s.whitelist.Lookup(ctx, q.Fingerprint)
		if lerr != nil {
			return nil, lerr
		}
		entry = existing
	}
	s.logger.Info("query auto-approved",
		"fingerprint", q.Fingerprint, "approver", p.Username, "server", server.Alias)
	return s.execute(ctx, p, server, q, entry, domain.SubmitStatusAutoApproved)
}

// queueForApproval creates the pending approval for a first-time
// submission. A resubmission while the approval is still open returns the
// existing pending row without stacking a second one.
func (s *Service) queueForApproval(ctx context.Context, p domain.Principal, server *domain.ServerConfig, q *domain.Query) (*domain.SubmitResult, error) {
	if existing, err := s.approvals.GetByFingerprint(ctx, q.Fingerprint); err == nil {
		return &domain.SubmitResult{
			Status:  domain.SubmitStatusPendingApproval,
			AuditID: existing.AuditID,
		}, nil
	} else if domain.ErrorKind(err) != domain.KindNotFound {
		return nil, err
	}

	now := time.Now().UTC()
	auditEntry := &domain.AuditLogEntry{
		ID:           uuid.NewString(),
		Username:     p.Username,
		Role:         p.Role,
		ClientIP:     p.ClientIP,
		QueryText:    q.RawText,
		Fingerprint:  q.Fingerprint,
		TargetServer: server.Alias,
		Status:       domain.AuditStatusPending,
		CreatedAt:    now,
	}
	if err := s.audit.Insert(ctx, auditEntry); err != nil {
		return nil, err
	}

	pending := &domain.PendingApproval{
		ID:            uuid.NewString(),
		Fingerprint:   q.Fingerprint,
		RawText:       q.RawText,
		Submitter:     p.Username,
		SubmitterRole: p.Role,
		TargetServer:  server.Alias,
		QueryType:     q.Type,
		Tables:        q.Tables,
		AuditID:       auditEntry.ID,
		CreatedAt:     now,
	}
	if err := s.approvals.Create(ctx, pending); err != nil {
		return nil, err
	}

	s.observer.QuerySubmitted(server.Alias, string(domain.SubmitStatusPendingApproval))
	s.logger.Info("query queued for approval",
		"approval_id", pending.ID, "submitter", p.Username, "server", server.Alias)
	return &domain.SubmitResult{
		Status:  domain.SubmitStatusPendingApproval,
		AuditID: auditEntry.ID,
	}, nil
}

// execute runs a whitelisted query: pending audit entry first, then the
// backend, then exactly-once finalization.
func (s *Service) execute(ctx context.Context, p domain.Principal, server *domain.ServerConfig, q *domain.Query, entry *domain.WhitelistEntry, okStatus domain.SubmitStatus) (*domain.SubmitResult, error) {
	auditEntry := &domain.AuditLogEntry{
		ID:           uuid.NewString(),
		Username:     p.Username,
		Role:         p.Role,
		ClientIP:     p.ClientIP,
		QueryText:    q.RawText,
		Fingerprint:  q.Fingerprint,
		WhitelistID:  &entry.ID,
		TargetServer: server.Alias,
		Status:       domain.AuditStatusPending,
		CreatedAt:    time.Now().UTC(),
	}
	// The pending entry must be durable before the backend is contacted.
	if err := s.audit.Insert(ctx, auditEntry); err != nil {
		return nil, err
	}

	adapter, err := s.engines.Adapter(ctx, server)
	if err != nil {
		return s.finalizeError(ctx, auditEntry.ID, server.Alias, err), nil
	}

	res, err := adapter.Execute(ctx, q, domain.ExecOptions{
		MaxRows: s.cfg.MaxRows,
		Timeout: s.cfg.Timeout,
	})
	if err != nil {
		return s.finalizeError(ctx, auditEntry.ID, server.Alias, err), nil
	}

	execMs := res.ExecutionTimeMs
	rows := res.RowCount
	if err := s.audit.Finalize(ctx, auditEntry.ID, domain.AuditStatusSuccess, nil, &execMs, &rows); err != nil {
		s.logger.Error("audit finalize failed", "audit_id", auditEntry.ID, "error", err)
	}

	s.observer.QuerySubmitted(server.Alias, string(okStatus))
	s.observer.QueryExecuted(server.Alias, float64(execMs)/1000)
	return &domain.SubmitResult{
		Status:  okStatus,
		AuditID: auditEntry.ID,
		Result:  res,
	}, nil
}

// finalizeError records an execution failure against the pending audit
// entry and maps it into the submit result. Never retried here: write
// queries must not risk duplicate side effects.
func (s *Service) finalizeError(ctx context.Context, auditID, serverAlias string, cause error) *domain.SubmitResult {
	msg := cause.Error()
	if err := s.audit.Finalize(ctx, auditID, domain.AuditStatusError, &msg, nil, nil); err != nil {
		s.logger.Error("audit finalize failed", "audit_id", auditID, "error", err)
	}
	s.observer.QuerySubmitted(serverAlias, "error")
	s.logger.Warn("query execution failed",
		"audit_id", auditID, "server", serverAlias, "kind", domain.ErrorKind(cause), "error", msg)
	return &domain.SubmitResult{
		Status:  domain.SubmitStatusRejected,
		AuditID: auditID,
		Err:     cause,
	}
}

// reject writes the rejected audit entry and returns the terminal result.
// Rejections happen before any backend contact and are never retried.
func (s *Service) reject(ctx context.Context, p domain.Principal, sqlText, fp, targetServer string, cause error) (*domain.SubmitResult, error) {
	msg := cause.Error()
	auditEntry := &domain.AuditLogEntry{
		ID:           uuid.NewString(),
		Username:     p.Username,
		Role:         p.Role,
		ClientIP:     p.ClientIP,
		QueryText:    sqlText,
		Fingerprint:  fp,
		TargetServer: targetServer,
		Status:       domain.AuditStatusRejected,
		ErrorMessage: &msg,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.audit.Insert(ctx, auditEntry); err != nil {
		return nil, errors.Join(cause, err)
	}

	kind := domain.ErrorKind(cause)
	s.observer.QueryRejected(kind)
	s.logger.Info("query rejected",
		"audit_id", auditEntry.ID, "user", p.Username, "server", targetServer, "kind", kind)
	return &domain.SubmitResult{
		Status:  domain.SubmitStatusRejected,
		AuditID: auditEntry.ID,
		Err:     cause,
	}, nil
}
