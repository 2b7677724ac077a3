package domain

import (
	"context"
	"time"
)

// PendingApproval is a submitted, not-yet-whitelisted query awaiting an
// admin decision. Consumed (deleted) on approve or reject.
type PendingApproval struct {
	ID            string
	Fingerprint   string
	RawText       string
	Submitter     string
	SubmitterRole string
	TargetServer  string
	QueryType     QueryType
	Tables        []string
	AuditID       string
	CreatedAt     time.Time
}

// ApprovalRepository persists pending approvals. Approve and Reject are
// terminal: both delete the row, Approve optionally creating the linked
// whitelist entry in the same transaction.
type ApprovalRepository interface {
	Create(ctx context.Context, p *PendingApproval) error
	GetByID(ctx context.Context, id string) (*PendingApproval, error)
	// GetByFingerprint returns the open pending approval for a fingerprint,
	// or NotFoundError. Used to avoid stacking duplicate approvals when the
	// same query is resubmitted.
	GetByFingerprint(ctx context.Context, fingerprint string) (*PendingApproval, error)
	List(ctx context.Context) ([]PendingApproval, error)
	// Approve deletes the pending row and, when entry is non-nil, inserts
	// the whitelist entry atomically. The whole operation fails with
	// DuplicateFingerprintError if an active entry was concurrently created.
	Approve(ctx context.Context, id string, entry *WhitelistEntry) error
	// Reject deletes the pending row.
	Reject(ctx context.Context, id string) error
}
