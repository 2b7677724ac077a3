package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"sqlgate/internal/domain"
)

const approvalColumns = `id, fingerprint, raw_text, submitter, submitter_role, target_server,
	query_type, tables_referenced, audit_id, created_at`

// ApprovalRepo persists pending approvals. Approve and Reject consume the
// row; Approve optionally creates the whitelist entry in the same
// transaction.
type ApprovalRepo struct {
	db *sql.DB
}

func NewApprovalRepo(db *sql.DB) *ApprovalRepo {
	return &ApprovalRepo{db: db}
}

func (r *ApprovalRepo) Create(ctx context.Context, p *domain.PendingApproval) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO pending_approvals (`+approvalColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Fingerprint, p.RawText, p.Submitter, p.SubmitterRole, p.TargetServer,
		string(p.QueryType), joinList(p.Tables), p.AuditID, p.CreatedAt)
	return mapUniqueFingerprint(err, p.Fingerprint)
}

func (r *ApprovalRepo) GetByID(ctx context.Context, id string) (*domain.PendingApproval, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+approvalColumns+` FROM pending_approvals WHERE id = ?`, id)
	return scanApproval(row)
}

func (r *ApprovalRepo) GetByFingerprint(ctx context.Context, fingerprint string) (*domain.PendingApproval, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+approvalColumns+` FROM pending_approvals WHERE fingerprint = ?`, fingerprint)
	return scanApproval(row)
}

func (r *ApprovalRepo) List(ctx context.Context) ([]domain.PendingApproval, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+approvalColumns+` FROM pending_approvals ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list pending approvals: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var pending []domain.PendingApproval
	for rows.Next() {
		p, err := scanApprovalRows(rows)
		if err != nil {
			return nil, err
		}
		pending = append(pending, *p)
	}
	return pending, rows.Err()
}

// Approve deletes the pending row and, when entry is non-nil, inserts the
// whitelist entry in the same transaction. A concurrent whitelist insert
// for the same fingerprint fails the whole operation with
// DuplicateFingerprintError and leaves the pending row intact.
func (r *ApprovalRepo) Approve(ctx context.Context, id string, entry *domain.WhitelistEntry) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin approve tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx, `DELETE FROM pending_approvals WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if err := requireAffected(res, "pending approval %s", id); err != nil {
		return err
	}

	if entry != nil {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO whitelist_entries (`+whitelistColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			entry.ID, entry.Fingerprint, entry.RawText, string(entry.QueryType),
			entry.ApprovedBy, entry.ApprovedAt, joinList(entry.ServerRestrictions),
			boolToInt(entry.PowerBIOnly), joinList(entry.Tags), entry.Description,
			boolToInt(entry.Disabled))
		if err != nil {
			return mapUniqueFingerprint(err, entry.Fingerprint)
		}
	}

	return tx.Commit()
}

// Reject deletes the pending row.
func (r *ApprovalRepo) Reject(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM pending_approvals WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireAffected(res, "pending approval %s", id)
}

func scanApproval(row *sql.Row) (*domain.PendingApproval, error) {
	p, err := scanApprovalRows(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound("pending approval not found")
	}
	return p, err
}

func scanApprovalRows(row rowScanner) (*domain.PendingApproval, error) {
	var p domain.PendingApproval
	var queryType, tables string

	err := row.Scan(&p.ID, &p.Fingerprint, &p.RawText, &p.Submitter, &p.SubmitterRole,
		&p.TargetServer, &queryType, &tables, &p.AuditID, &p.CreatedAt)
	if err != nil {
		return nil, err
	}

	p.QueryType = domain.QueryType(queryType)
	p.Tables = splitList(tables)
	return &p, nil
}
