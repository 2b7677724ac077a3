package domain

// QueryType is the coarse classification of a SQL statement.
type QueryType string

const (
	QueryTypeRead      QueryType = "read"
	QueryTypeWrite     QueryType = "write"
	QueryTypeDDL       QueryType = "ddl"
	QueryTypeProcedure QueryType = "procedure"
)

// Query is the classifier output for a single SQL statement.
// Immutable once classified.
type Query struct {
	RawText     string
	Fingerprint string
	Type        QueryType
	// Tables holds the referenced table names, best-effort.
	// An empty slice means extraction failed or found nothing; it never
	// blocks execution.
	Tables []string
}

// QueryResult holds the normalized output of a backend execution.
type QueryResult struct {
	Columns  []string
	Rows     [][]interface{}
	RowCount int64
	// Truncated is set when a read query had more rows than the caller's
	// max-rows bound.
	Truncated       bool
	ExecutionTimeMs int64
}

// SubmitStatus is the terminal disposition of a submitted query.
type SubmitStatus string

const (
	SubmitStatusSuccess         SubmitStatus = "success"
	SubmitStatusRejected        SubmitStatus = "rejected"
	SubmitStatusPendingApproval SubmitStatus = "pending_approval"
	SubmitStatusAutoApproved    SubmitStatus = "auto_approved"
)

// SubmitResult is the response of the gateway pipeline for one submission.
type SubmitResult struct {
	Status  SubmitStatus
	AuditID string
	Result  *QueryResult // nil unless Status is success or auto_approved
	Err     error        // terminal error, nil on success
}
