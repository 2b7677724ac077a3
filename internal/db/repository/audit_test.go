package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internaldb "sqlgate/internal/db"
	"sqlgate/internal/domain"
)

func setupAuditRepo(t *testing.T) *AuditRepo {
	t.Helper()
	store := internaldb.OpenTestMetastore(t)
	return NewAuditRepo(store.Write)
}

func ptrStr(s string) *string { return &s }
func ptrInt64(i int64) *int64 { return &i }

func makeAuditEntry(username, server, status string) *domain.AuditLogEntry {
	return &domain.AuditLogEntry{
		ID:           uuid.NewString(),
		Username:     username,
		Role:         domain.RoleAnalyst,
		ClientIP:     "10.0.0.7",
		QueryText:    "SELECT * FROM orders",
		Fingerprint:  "fp-audit",
		TargetServer: server,
		Status:       status,
		CreatedAt:    time.Now().UTC(),
	}
}

func TestAuditRepo_InsertAndList(t *testing.T) {
	repo := setupAuditRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Insert(ctx, makeAuditEntry("alice", "prod", domain.AuditStatusSuccess)))
	require.NoError(t, repo.Insert(ctx, makeAuditEntry("bob", "staging", domain.AuditStatusRejected)))

	entries, total, err := repo.List(ctx, domain.AuditFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, entries, 2)
}

func TestAuditRepo_Filters(t *testing.T) {
	repo := setupAuditRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Insert(ctx, makeAuditEntry("alice", "prod", domain.AuditStatusSuccess)))
	require.NoError(t, repo.Insert(ctx, makeAuditEntry("alice", "staging", domain.AuditStatusError)))
	require.NoError(t, repo.Insert(ctx, makeAuditEntry("bob", "prod", domain.AuditStatusSuccess)))

	entries, total, err := repo.List(ctx, domain.AuditFilter{Username: ptrStr("alice")})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	for _, e := range entries {
		assert.Equal(t, "alice", e.Username)
	}

	_, total, err = repo.List(ctx, domain.AuditFilter{
		Username:     ptrStr("alice"),
		TargetServer: ptrStr("prod"),
		Status:       ptrStr(domain.AuditStatusSuccess),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func TestAuditRepo_TimeRangeFilter(t *testing.T) {
	repo := setupAuditRepo(t)
	ctx := context.Background()

	old := makeAuditEntry("alice", "prod", domain.AuditStatusSuccess)
	old.CreatedAt = time.Now().UTC().Add(-2 * time.Hour)
	require.NoError(t, repo.Insert(ctx, old))
	require.NoError(t, repo.Insert(ctx, makeAuditEntry("alice", "prod", domain.AuditStatusSuccess)))

	from := time.Now().UTC().Add(-time.Hour)
	_, total, err := repo.List(ctx, domain.AuditFilter{From: &from})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func TestAuditRepo_FinalizeExactlyOnce(t *testing.T) {
	repo := setupAuditRepo(t)
	ctx := context.Background()

	e := makeAuditEntry("alice", "prod", domain.AuditStatusPending)
	require.NoError(t, repo.Insert(ctx, e))

	require.NoError(t, repo.Finalize(ctx, e.ID, domain.AuditStatusSuccess, nil, ptrInt64(12), ptrInt64(100)))

	// A second finalize (late error path racing the success path) is a no-op.
	require.NoError(t, repo.Finalize(ctx, e.ID, domain.AuditStatusError, ptrStr("late failure"), nil, nil))

	entries, _, err := repo.List(ctx, domain.AuditFilter{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.AuditStatusSuccess, entries[0].Status)
	assert.Nil(t, entries[0].ErrorMessage)
	require.NotNil(t, entries[0].ExecutionTimeMs)
	assert.Equal(t, int64(12), *entries[0].ExecutionTimeMs)
}

func TestAuditRepo_SetWhitelistID(t *testing.T) {
	repo := setupAuditRepo(t)
	ctx := context.Background()

	e := makeAuditEntry("alice", "prod", domain.AuditStatusPending)
	require.NoError(t, repo.Insert(ctx, e))
	require.NoError(t, repo.SetWhitelistID(ctx, e.ID, "wl-1"))

	entries, _, err := repo.List(ctx, domain.AuditFilter{})
	require.NoError(t, err)
	require.NotNil(t, entries[0].WhitelistID)
	assert.Equal(t, "wl-1", *entries[0].WhitelistID)
}
