package domain

import (
	"context"
	"time"
)

// Credential is an opaque username/password pair for a backend server.
type Credential struct {
	Username string
	Password string
}

// CredentialStore resolves the credential for a server alias. The gateway
// treats the credential as opaque and fetches it once per connection
// establishment.
type CredentialStore interface {
	Lookup(ctx context.Context, serverAlias string) (Credential, error)
}

// Notifier informs a submitter of an approval decision. Fire-and-forget:
// callers log failures and never roll back the decision.
type Notifier interface {
	Notify(ctx context.Context, username string, approved bool, reason string) error
}

// ExecOptions bound a single backend execution.
type ExecOptions struct {
	MaxRows int
	Timeout time.Duration
	Params  []interface{}
}

// EngineAdapter executes queries against one configured backend server.
// Implementations own a bounded connection pool and translate every
// backend failure into ExecutionError, TimeoutError, or
// ConnectionUnavailableError.
type EngineAdapter interface {
	// Execute runs the query. Read queries return at most opts.MaxRows
	// rows with Truncated set when more were available; write/ddl/procedure
	// queries commit and return RowCount with an empty result set.
	Execute(ctx context.Context, q *Query, opts ExecOptions) (*QueryResult, error)
	// Close releases the underlying pool.
	Close() error
}
