// Package repository implements the domain repository interfaces on the
// SQLite metastore.
package repository

import (
	"strings"

	"sqlgate/internal/domain"
)

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// joinList flattens a string set into its stored form. Aliases and tags
// never contain commas.
func joinList(items []string) string {
	return strings.Join(items, ",")
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

// mapUniqueFingerprint translates a UNIQUE violation on a fingerprint
// column into the domain error; other errors pass through.
func mapUniqueFingerprint(err error, fingerprint string) error {
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return domain.ErrDuplicateFingerprint("an active entry already exists for fingerprint %s", fingerprint)
	}
	return err
}
