package ratelimit

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sqlgate/internal/domain"
)

func fixedBudget(n int) BudgetFunc {
	return func(string) int { return n }
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLimiter_RejectsOverBudget(t *testing.T) {
	l := New(NewMemoryStore(), time.Minute, fixedBudget(3), discardLogger())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, l.Allow(ctx, "user:alice", "analyst"))
	}

	err := l.Allow(ctx, "user:alice", "analyst")
	require.Error(t, err)

	var rateErr *domain.RateLimitError
	require.ErrorAs(t, err, &rateErr)
	assert.False(t, rateErr.RetryAfter.IsZero())
	assert.True(t, rateErr.RetryAfter.After(time.Now()))
}

func TestLimiter_IdentitiesAreIndependent(t *testing.T) {
	l := New(NewMemoryStore(), time.Minute, fixedBudget(1), discardLogger())
	ctx := context.Background()

	require.NoError(t, l.Allow(ctx, "user:alice", "readonly"))
	require.NoError(t, l.Allow(ctx, "user:bob", "readonly"))
	require.NoError(t, l.Allow(ctx, "ip:10.0.0.1", "readonly"))

	assert.Error(t, l.Allow(ctx, "user:alice", "readonly"))
}

func TestMemoryStore_WindowSlides(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	base := time.Now()
	window := time.Minute

	for i := 0; i < 5; i++ {
		_, _, err := s.Hit(ctx, "user:alice", base.Add(time.Duration(i)*time.Second), window)
		require.NoError(t, err)
	}

	// Just past the window the old hits are evicted and counting restarts.
	count, oldest, err := s.Hit(ctx, "user:alice", base.Add(window+3*time.Second), window)
	require.NoError(t, err)
	assert.Equal(t, 2, count) // hit at base+4s is still inside, plus this one
	assert.Equal(t, base.Add(4*time.Second), oldest)

	count, _, err = s.Hit(ctx, "user:alice", base.Add(3*window), window)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

// Attempts made while over budget still count: the window never drains for
// a client that keeps hammering, and the retry horizon keeps moving.
func TestMemoryStore_OverBudgetAttemptsKeepWindowFull(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	base := time.Now()
	window := time.Minute

	for i := 0; i < 3; i++ {
		_, _, err := s.Hit(ctx, "user:alice", base, window)
		require.NoError(t, err)
	}

	// A rejected attempt near the end of the window is still recorded ...
	count, _, err := s.Hit(ctx, "user:alice", base.Add(59*time.Second), window)
	require.NoError(t, err)
	assert.Equal(t, 4, count)

	// ... so once the original burst expires, that attempt still occupies
	// the window instead of it resetting to empty.
	count, oldest, err := s.Hit(ctx, "user:alice", base.Add(61*time.Second), window)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, base.Add(59*time.Second), oldest)
}

func TestMemoryStore_ConcurrentHits(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	now := time.Now()

	const n = 64
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			_, _, err := s.Hit(ctx, "user:alice", now, time.Minute)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	count, _, err := s.Hit(ctx, "user:alice", now, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, n+1, count)
}

func TestMemoryStore_Sweep(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	base := time.Now()

	_, _, err := s.Hit(ctx, "user:stale", base, time.Minute)
	require.NoError(t, err)
	_, _, err = s.Hit(ctx, "user:fresh", base.Add(2*time.Minute), time.Minute)
	require.NoError(t, err)

	removed := s.Sweep(base.Add(2*time.Minute), time.Minute)
	assert.Equal(t, 1, removed)
}

type failingStore struct{}

func (failingStore) Hit(context.Context, string, time.Time, time.Duration) (int, time.Time, error) {
	return 0, time.Time{}, errors.New("store down")
}

func TestLimiter_FailsOpenOnStoreError(t *testing.T) {
	l := New(failingStore{}, time.Minute, fixedBudget(0), discardLogger())
	assert.NoError(t, l.Allow(context.Background(), "user:alice", "analyst"))
}
