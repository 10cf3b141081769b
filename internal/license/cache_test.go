package license

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apierrors "seopilot/internal/errors"
	"seopilot/internal/infrastructure"
	"seopilot/internal/store"
	"seopilot/pkg/contracts/domain"
)

type mockChecker struct {
	mock.Mock
	repo *Repository
}

func (m *mockChecker) Check(ctx context.Context, key string) (domain.LicenseRecord, error) {
	args := m.Called(ctx, key)
	if status, ok := args.Get(0).(domain.LicenseStatus); ok && status != "" {
		_ = m.repo.SaveStatus(ctx, status)
	}
	rec, _ := m.repo.Record(ctx)
	return rec, args.Error(1)
}

func newTestCache(t *testing.T, now *time.Time) (*Cache, *Repository, *mockChecker) {
	t.Helper()
	repo := NewRepository(store.NewMemoryStore())
	checker := &mockChecker{repo: repo}
	cache := NewCache(repo, checker, 24*time.Hour, testLogger(), infrastructure.NoopBusinessMetrics()).
		WithClock(func() time.Time { return *now })
	return cache, repo, checker
}

func TestMaybeCheck(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("fresh check is skipped", func(t *testing.T) {
		now := start
		cache, repo, checker := newTestCache(t, &now)
		require.NoError(t, repo.SaveKey(ctx, testKey))
		require.NoError(t, repo.SaveLastCheck(ctx, now.Add(-23*time.Hour)))

		outcome, err := cache.MaybeCheck(ctx)
		require.NoError(t, err)
		assert.False(t, outcome.Checked)
		checker.AssertNotCalled(t, "Check", mock.Anything, mock.Anything)
	})

	t.Run("stale check runs and records time", func(t *testing.T) {
		now := start
		cache, repo, checker := newTestCache(t, &now)
		require.NoError(t, repo.SaveKey(ctx, testKey))
		require.NoError(t, repo.SaveLastCheck(ctx, now.Add(-25*time.Hour)))
		checker.On("Check", mock.Anything, testKey).Return(domain.LicenseStatusSuccess, nil).Once()

		outcome, err := cache.MaybeCheck(ctx)
		require.NoError(t, err)
		assert.True(t, outcome.Checked)
		assert.Equal(t, domain.LicenseStatusSuccess, outcome.Status)

		last, err := repo.LastCheck(ctx)
		require.NoError(t, err)
		assert.Equal(t, now.Unix(), last.Unix())
		checker.AssertExpectations(t)
	})

	t.Run("never checked runs", func(t *testing.T) {
		now := start
		cache, repo, checker := newTestCache(t, &now)
		require.NoError(t, repo.SaveKey(ctx, testKey))
		checker.On("Check", mock.Anything, testKey).Return(domain.LicenseStatusSuccess, nil).Once()

		outcome, err := cache.MaybeCheck(ctx)
		require.NoError(t, err)
		assert.True(t, outcome.Checked)
		checker.AssertExpectations(t)
	})

	t.Run("empty key is invalid without a call", func(t *testing.T) {
		now := start
		cache, repo, checker := newTestCache(t, &now)
		require.NoError(t, repo.SaveStatus(ctx, domain.LicenseStatusSuccess))

		outcome, err := cache.MaybeCheck(ctx)
		require.NoError(t, err)
		assert.True(t, outcome.Checked)
		assert.Equal(t, domain.LicenseStatusInvalid, outcome.Status)
		checker.AssertNotCalled(t, "Check", mock.Anything, mock.Anything)

		last, err := repo.LastCheck(ctx)
		require.NoError(t, err)
		assert.Equal(t, now.Unix(), last.Unix())
	})

	t.Run("failed check still records time", func(t *testing.T) {
		now := start
		cache, repo, checker := newTestCache(t, &now)
		require.NoError(t, repo.SaveKey(ctx, testKey))
		require.NoError(t, repo.SaveStatus(ctx, domain.LicenseStatusSuccess))
		checker.On("Check", mock.Anything, testKey).
			Return(domain.LicenseStatus(""), apierrors.Transport(errors.New("dial tcp: refused"))).Once()

		outcome, err := cache.MaybeCheck(ctx)
		require.NoError(t, err)
		assert.True(t, outcome.Checked)
		assert.NotEmpty(t, outcome.Error)
		assert.Equal(t, domain.LicenseStatusSuccess, outcome.Status)

		last, err := repo.LastCheck(ctx)
		require.NoError(t, err)
		assert.Equal(t, now.Unix(), last.Unix())

		// within the window the failed check is not repeated
		now = now.Add(time.Hour)
		outcome, err = cache.MaybeCheck(ctx)
		require.NoError(t, err)
		assert.False(t, outcome.Checked)
		checker.AssertNumberOfCalls(t, "Check", 1)
	})
}

func TestForceCheck(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	cache, repo, checker := newTestCache(t, &now)
	require.NoError(t, repo.SaveKey(ctx, testKey))
	require.NoError(t, repo.SaveLastCheck(ctx, now.Add(-time.Minute)))
	checker.On("Check", mock.Anything, testKey).Return(domain.LicenseStatusExpired, nil).Once()

	outcome, err := cache.ForceCheck(ctx)
	require.NoError(t, err)
	assert.True(t, outcome.Checked)
	assert.Equal(t, domain.LicenseStatusExpired, outcome.Status)
	checker.AssertExpectations(t)
}

func TestGate(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(store.NewMemoryStore())
	gate := NewGate(repo)

	err := gate.Require(ctx)
	assert.Equal(t, apierrors.KindLicense, apierrors.KindOf(err), "unchecked is not active")

	for _, status := range []domain.LicenseStatus{
		domain.LicenseStatusExpired,
		domain.LicenseStatusInvalid,
		domain.LicenseStatusLimitReached,
		"error",
	} {
		require.NoError(t, repo.SaveStatus(ctx, status))
		assert.True(t, apierrors.Is(gate.Require(ctx), apierrors.KindLicense), status)
	}

	require.NoError(t, repo.SaveStatus(ctx, domain.LicenseStatusSuccess))
	assert.NoError(t, gate.Require(ctx))
}

func TestScheduler(t *testing.T) {
	now := time.Now()
	cache, _, _ := newTestCache(t, &now)

	_, err := NewScheduler(cache, "not a schedule", time.Second, testLogger())
	assert.Error(t, err)

	s, err := NewScheduler(cache, "@daily", time.Second, testLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func TestSchedulerTickRunsCheck(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	cache, repo, checker := newTestCache(t, &now)
	require.NoError(t, repo.SaveKey(ctx, testKey))
	require.NoError(t, repo.SaveLastCheck(ctx, now.Add(-25*time.Hour)))

	traced := mock.MatchedBy(func(ctx context.Context) bool {
		return infrastructure.GetTraceID(ctx) != ""
	})
	checker.On("Check", traced, testKey).Return(domain.LicenseStatusSuccess, nil).Once()

	s, err := NewScheduler(cache, "@daily", time.Second, testLogger())
	require.NoError(t, err)
	s.tick()

	checker.AssertExpectations(t)
	status, err := repo.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.LicenseStatusSuccess, status)
}
