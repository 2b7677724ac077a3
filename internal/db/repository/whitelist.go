package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"sqlgate/internal/domain"
)

const whitelistColumns = `id, fingerprint, raw_text, query_type, approved_by, approved_at,
	server_restrictions, powerbi_only, tags, description, disabled`

// WhitelistRepo persists whitelist entries. The fingerprint lookup is
// served by a partial unique index over active entries.
type WhitelistRepo struct {
	db *sql.DB
}

func NewWhitelistRepo(db *sql.DB) *WhitelistRepo {
	return &WhitelistRepo{db: db}
}

func (r *WhitelistRepo) Lookup(ctx context.Context, fingerprint string) (*domain.WhitelistEntry, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+whitelistColumns+` FROM whitelist_entries WHERE fingerprint = ? AND disabled = 0`,
		fingerprint)
	return scanWhitelistEntry(row)
}

func (r *WhitelistRepo) GetByID(ctx context.Context, id string) (*domain.WhitelistEntry, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+whitelistColumns+` FROM whitelist_entries WHERE id = ?`, id)
	return scanWhitelistEntry(row)
}

// Insert stores a new entry. The partial unique index makes concurrent
// inserts for one fingerprint resolve to exactly one winner; the loser gets
// DuplicateFingerprintError.
func (r *WhitelistRepo) Insert(ctx context.Context, e *domain.WhitelistEntry) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO whitelist_entries (`+whitelistColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Fingerprint, e.RawText, string(e.QueryType), e.ApprovedBy, e.ApprovedAt,
		joinList(e.ServerRestrictions), boolToInt(e.PowerBIOnly), joinList(e.Tags),
		e.Description, boolToInt(e.Disabled))
	return mapUniqueFingerprint(err, e.Fingerprint)
}

func (r *WhitelistRepo) List(ctx context.Context, page domain.PageRequest) ([]domain.WhitelistEntry, int64, error) {
	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM whitelist_entries`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count whitelist entries: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+whitelistColumns+` FROM whitelist_entries ORDER BY approved_at DESC, id LIMIT ? OFFSET ?`,
		page.Limit(), page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("list whitelist entries: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var entries []domain.WhitelistEntry
	for rows.Next() {
		e, err := scanWhitelistEntryRows(rows)
		if err != nil {
			return nil, 0, err
		}
		entries = append(entries, *e)
	}
	return entries, total, rows.Err()
}

func (r *WhitelistRepo) Disable(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE whitelist_entries SET disabled = 1 WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireAffected(res, "whitelist entry %s", id)
}

func (r *WhitelistRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM whitelist_entries WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireAffected(res, "whitelist entry %s", id)
}

func requireAffected(res sql.Result, format string, args ...interface{}) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound(format+" not found", args...)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanWhitelistEntry(row *sql.Row) (*domain.WhitelistEntry, error) {
	e, err := scanWhitelistEntryRows(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound("whitelist entry not found")
	}
	return e, err
}

func scanWhitelistEntryRows(row rowScanner) (*domain.WhitelistEntry, error) {
	var e domain.WhitelistEntry
	var queryType, restrictions, tags string
	var powerbiOnly, disabled int64

	err := row.Scan(&e.ID, &e.Fingerprint, &e.RawText, &queryType, &e.ApprovedBy, &e.ApprovedAt,
		&restrictions, &powerbiOnly, &tags, &e.Description, &disabled)
	if err != nil {
		return nil, err
	}

	e.QueryType = domain.QueryType(queryType)
	e.ServerRestrictions = splitList(restrictions)
	e.Tags = splitList(tags)
	e.PowerBIOnly = powerbiOnly != 0
	e.Disabled = disabled != 0
	return &e, nil
}
