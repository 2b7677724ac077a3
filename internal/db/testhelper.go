package db

import (
	"path/filepath"
	"testing"
)

// OpenTestMetastore opens a migrated metastore in t.TempDir() and registers
// cleanup. Tests that don't need the read/write split can use Write for
// everything.
func OpenTestMetastore(t *testing.T) *Metastore {
	t.Helper()

	store, err := Open(filepath.Join(t.TempDir(), "test.sqlite"), 4)
	if err != nil {
		t.Fatalf("open test metastore: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	if err := RunMigrations(store.Write); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	return store
}
