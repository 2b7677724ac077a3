package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"sqlgate/internal/domain"
)

const auditColumns = `id, username, role, client_ip, query_text, fingerprint, whitelist_id,
	target_server, status, error_message, execution_time_ms, rows_affected, created_at`

// AuditRepo persists the append-only audit log. Entries are never deleted.
type AuditRepo struct {
	db *sql.DB
}

func NewAuditRepo(db *sql.DB) *AuditRepo {
	return &AuditRepo{db: db}
}

func (r *AuditRepo) Insert(ctx context.Context, e *domain.AuditLogEntry) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO audit_log (`+auditColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Username, e.Role, e.ClientIP, e.QueryText, e.Fingerprint, e.WhitelistID,
		e.TargetServer, e.Status, e.ErrorMessage, e.ExecutionTimeMs, e.RowsAffected, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// Finalize applies the terminal status exactly once: the update only
// matches while the entry is still pending, so repeated calls for the same
// attempt are no-ops.
func (r *AuditRepo) Finalize(ctx context.Context, id, status string, errMsg *string, execMs, rowsAffected *int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE audit_log SET status = ?, error_message = ?, execution_time_ms = ?, rows_affected = ?
		 WHERE id = ? AND status = ?`,
		status, errMsg, execMs, rowsAffected, id, domain.AuditStatusPending)
	if err != nil {
		return fmt.Errorf("finalize audit entry %s: %w", id, err)
	}
	return nil
}

func (r *AuditRepo) SetWhitelistID(ctx context.Context, id, whitelistID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE audit_log SET whitelist_id = ? WHERE id = ?`, whitelistID, id)
	if err != nil {
		return fmt.Errorf("link audit entry %s: %w", id, err)
	}
	return nil
}

func (r *AuditRepo) List(ctx context.Context, filter domain.AuditFilter) ([]domain.AuditLogEntry, int64, error) {
	var conds []string
	var args []interface{}

	if filter.Username != nil {
		conds = append(conds, "username = ?")
		args = append(args, *filter.Username)
	}
	if filter.TargetServer != nil {
		conds = append(conds, "target_server = ?")
		args = append(args, *filter.TargetServer)
	}
	if filter.Status != nil {
		conds = append(conds, "status = ?")
		args = append(args, *filter.Status)
	}
	if filter.From != nil {
		conds = append(conds, "created_at >= ?")
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		conds = append(conds, "created_at <= ?")
		args = append(args, *filter.To)
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_log`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count audit entries: %w", err)
	}

	listArgs := append(args, filter.Page.Limit(), filter.Page.Offset())
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+auditColumns+` FROM audit_log`+where+` ORDER BY created_at DESC, id LIMIT ? OFFSET ?`,
		listArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var entries []domain.AuditLogEntry
	for rows.Next() {
		var e domain.AuditLogEntry
		err := rows.Scan(&e.ID, &e.Username, &e.Role, &e.ClientIP, &e.QueryText, &e.Fingerprint,
			&e.WhitelistID, &e.TargetServer, &e.Status, &e.ErrorMessage, &e.ExecutionTimeMs,
			&e.RowsAffected, &e.CreatedAt)
		if err != nil {
			return nil, 0, err
		}
		entries = append(entries, e)
	}
	return entries, total, rows.Err()
}
