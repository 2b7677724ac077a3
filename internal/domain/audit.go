package domain

import (
	"context"
	"time"
)

// Audit entry statuses. An entry starts as pending and moves exactly once
// to a terminal status.
const (
	AuditStatusPending  = "pending"
	AuditStatusApproved = "approved"
	AuditStatusRejected = "rejected"
	AuditStatusSuccess  = "success"
	AuditStatusError    = "error"
)

// AuditLogEntry is an append-only record of one query attempt.
// Entries are never deleted (compliance record).
type AuditLogEntry struct {
	ID              string
	Username        string
	Role            string
	ClientIP        string
	QueryText       string
	Fingerprint     string
	WhitelistID     *string
	TargetServer    string
	Status          string
	ErrorMessage    *string
	ExecutionTimeMs *int64
	RowsAffected    *int64
	CreatedAt       time.Time
}

// AuditFilter holds filter parameters for audit listing.
type AuditFilter struct {
	Username     *string
	TargetServer *string
	Status       *string
	From         *time.Time
	To           *time.Time
	Page         PageRequest
}

// AuditRepository provides append-only audit log operations.
type AuditRepository interface {
	// Insert writes the entry. For execution attempts the pending entry
	// must be inserted before the backend is contacted.
	Insert(ctx context.Context, e *AuditLogEntry) error
	// Finalize applies the terminal status for an entry exactly once: the
	// update is keyed by id and only applied while the entry is still
	// pending. Repeat calls are no-ops.
	Finalize(ctx context.Context, id, status string, errMsg *string, execMs, rowsAffected *int64) error
	// SetWhitelistID links an entry to the whitelist entry created by an
	// approval.
	SetWhitelistID(ctx context.Context, id, whitelistID string) error
	List(ctx context.Context, filter AuditFilter) ([]AuditLogEntry, int64, error)
}
