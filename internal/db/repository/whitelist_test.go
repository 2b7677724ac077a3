package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internaldb "sqlgate/internal/db"
	"sqlgate/internal/domain"
)

func setupWhitelistRepo(t *testing.T) *WhitelistRepo {
	t.Helper()
	store := internaldb.OpenTestMetastore(t)
	return NewWhitelistRepo(store.Write)
}

func makeEntry(fingerprint string) *domain.WhitelistEntry {
	return &domain.WhitelistEntry{
		ID:          uuid.NewString(),
		Fingerprint: fingerprint,
		RawText:     "SELECT * FROM orders",
		QueryType:   domain.QueryTypeRead,
		ApprovedBy:  "admin_user",
		ApprovedAt:  time.Now().UTC(),
		Tags:        []string{"reporting"},
		Description: "weekly orders export",
	}
}

func TestWhitelistRepo_InsertAndLookup(t *testing.T) {
	repo := setupWhitelistRepo(t)
	ctx := context.Background()

	in := makeEntry("fp-1")
	in.ServerRestrictions = []string{"prod", "staging"}
	in.PowerBIOnly = true
	require.NoError(t, repo.Insert(ctx, in))

	got, err := repo.Lookup(ctx, "fp-1")
	require.NoError(t, err)
	assert.Equal(t, in.ID, got.ID)
	assert.Equal(t, domain.QueryTypeRead, got.QueryType)
	assert.Equal(t, []string{"prod", "staging"}, got.ServerRestrictions)
	assert.True(t, got.PowerBIOnly)
	assert.Equal(t, []string{"reporting"}, got.Tags)
}

func TestWhitelistRepo_LookupMissing(t *testing.T) {
	repo := setupWhitelistRepo(t)

	_, err := repo.Lookup(context.Background(), "nope")
	var notFound *domain.NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestWhitelistRepo_DuplicateFingerprint(t *testing.T) {
	repo := setupWhitelistRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Insert(ctx, makeEntry("fp-dup")))

	err := repo.Insert(ctx, makeEntry("fp-dup"))
	var dup *domain.DuplicateFingerprintError
	assert.ErrorAs(t, err, &dup)
}

func TestWhitelistRepo_ConcurrentInsertOneWinner(t *testing.T) {
	repo := setupWhitelistRepo(t)
	ctx := context.Background()

	const n = 8
	errs := make([]error, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			errs[i] = repo.Insert(ctx, makeEntry("fp-race"))
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
			continue
		}
		var dup *domain.DuplicateFingerprintError
		assert.ErrorAs(t, err, &dup)
	}
	assert.Equal(t, 1, winners)
}

func TestWhitelistRepo_DisableAllowsReinsert(t *testing.T) {
	repo := setupWhitelistRepo(t)
	ctx := context.Background()

	first := makeEntry("fp-cycle")
	require.NoError(t, repo.Insert(ctx, first))
	require.NoError(t, repo.Disable(ctx, first.ID))

	// Disabled entries no longer match lookups.
	_, err := repo.Lookup(ctx, "fp-cycle")
	var notFound *domain.NotFoundError
	require.ErrorAs(t, err, &notFound)

	// And the fingerprint can be re-approved.
	require.NoError(t, repo.Insert(ctx, makeEntry("fp-cycle")))
}

func TestWhitelistRepo_Delete(t *testing.T) {
	repo := setupWhitelistRepo(t)
	ctx := context.Background()

	e := makeEntry("fp-del")
	require.NoError(t, repo.Insert(ctx, e))
	require.NoError(t, repo.Delete(ctx, e.ID))

	var notFound *domain.NotFoundError
	assert.ErrorAs(t, repo.Delete(ctx, e.ID), &notFound)
}

func TestWhitelistRepo_List(t *testing.T) {
	repo := setupWhitelistRepo(t)
	ctx := context.Background()

	for i, fp := range []string{"fp-a", "fp-b", "fp-c"} {
		e := makeEntry(fp)
		e.ApprovedAt = time.Now().UTC().Add(time.Duration(i) * time.Minute)
		require.NoError(t, repo.Insert(ctx, e))
	}

	entries, total, err := repo.List(ctx, domain.PageRequest{MaxResults: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, entries, 2)
	// Newest first.
	assert.Equal(t, "fp-c", entries[0].Fingerprint)
}
