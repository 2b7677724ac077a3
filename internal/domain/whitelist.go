package domain

import (
	"context"
	"time"
)

// WhitelistEntry is a pre-approved query permitted to execute without a
// per-call admin decision. Never mutated except soft-disable; deleted
// explicitly by an admin.
type WhitelistEntry struct {
	ID          string
	Fingerprint string
	RawText     string
	QueryType   QueryType
	ApprovedBy  string
	ApprovedAt  time.Time
	// ServerRestrictions limits execution to the named server aliases.
	// Empty means any server.
	ServerRestrictions []string
	PowerBIOnly        bool
	Tags               []string
	Description        string
	Disabled           bool
}

// AllowsServer reports whether the entry permits execution on the given
// server alias. An empty restriction set permits every server.
func (e *WhitelistEntry) AllowsServer(alias string) bool {
	if len(e.ServerRestrictions) == 0 {
		return true
	}
	for _, s := range e.ServerRestrictions {
		if s == alias {
			return true
		}
	}
	return false
}

// WhitelistRepository provides operations over whitelist entries.
// Lookup is the hot path and is indexed by fingerprint.
type WhitelistRepository interface {
	// Lookup returns the active entry for the fingerprint, or NotFoundError.
	Lookup(ctx context.Context, fingerprint string) (*WhitelistEntry, error)
	// Insert stores a new entry. Returns DuplicateFingerprintError when an
	// active entry already exists for the fingerprint; concurrent inserts
	// for the same fingerprint resolve to exactly one winner.
	Insert(ctx context.Context, e *WhitelistEntry) error
	GetByID(ctx context.Context, id string) (*WhitelistEntry, error)
	List(ctx context.Context, page PageRequest) ([]WhitelistEntry, int64, error)
	Disable(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}
