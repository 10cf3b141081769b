package license

import (
	"context"
	"log/slog"
	"time"

	apierrors "seopilot/internal/errors"
	"seopilot/internal/infrastructure"
	"seopilot/pkg/contracts/domain"
)

// Checker is the part of Client the cache drives
type Checker interface {
	Check(ctx context.Context, key string) (domain.LicenseRecord, error)
}

// CheckOutcome reports what MaybeCheck did
type CheckOutcome struct {
	Checked bool                 `json:"checked"`
	Record  domain.LicenseRecord `json:"-"`
	Status  domain.LicenseStatus `json:"status"`
	// Error describes a check that could not reach the server
	Error string `json:"error,omitempty"`
}

// Cache limits license checks to one per TTL window
type Cache struct {
	repo    *Repository
	checker Checker
	ttl     time.Duration
	now     func() time.Time
	logger  *slog.Logger
	metrics *infrastructure.BusinessMetrics
}

// NewCache creates a cache that checks at most once per ttl
func NewCache(repo *Repository, checker Checker, ttl time.Duration, logger *slog.Logger, metrics *infrastructure.BusinessMetrics) *Cache {
	return &Cache{
		repo:    repo,
		checker: checker,
		ttl:     ttl,
		now:     time.Now,
		logger:  logger.With(slog.String("component", "license_cache")),
		metrics: metrics,
	}
}

// WithClock replaces the clock. Used by tests.
func (c *Cache) WithClock(now func() time.Time) *Cache {
	c.now = now
	return c
}

// MaybeCheck runs a check when the last one is older than the TTL. An empty
// key marks the license invalid without contacting the server. The check
// time is recorded whether or not the check succeeded.
func (c *Cache) MaybeCheck(ctx context.Context) (CheckOutcome, error) {
	now := c.now()

	last, err := c.repo.LastCheck(ctx)
	if err != nil {
		return CheckOutcome{}, apierrors.Internal(err)
	}
	if !last.IsZero() && now.Sub(last) < c.ttl {
		if c.metrics != nil {
			c.metrics.LicenseCacheHits.Add(ctx, 1)
		}
		rec, err := c.repo.Record(ctx)
		if err != nil {
			return CheckOutcome{}, apierrors.Internal(err)
		}
		return CheckOutcome{Checked: false, Record: rec, Status: rec.Status}, nil
	}

	key, err := c.repo.Key(ctx)
	if err != nil {
		return CheckOutcome{}, apierrors.Internal(err)
	}

	outcome := CheckOutcome{Checked: true}
	if key == "" {
		if err := c.repo.SaveStatus(ctx, domain.LicenseStatusInvalid); err != nil {
			return CheckOutcome{}, apierrors.Internal(err)
		}
		c.logger.InfoContext(ctx, "No license key stored, status set to invalid")
	} else {
		_, cerr := c.checker.Check(ctx, key)
		switch {
		case apierrors.Is(cerr, apierrors.KindTransport):
			outcome.Error = "license server unreachable"
		case cerr != nil:
			return CheckOutcome{}, cerr
		}
	}

	if err := c.repo.SaveLastCheck(ctx, now); err != nil {
		return CheckOutcome{}, apierrors.Internal(err)
	}

	rec, err := c.repo.Record(ctx)
	if err != nil {
		return CheckOutcome{}, apierrors.Internal(err)
	}
	outcome.Record = rec
	outcome.Status = rec.Status
	return outcome, nil
}

// ForceCheck clears the last check time and runs MaybeCheck, so a check
// always happens
func (c *Cache) ForceCheck(ctx context.Context) (CheckOutcome, error) {
	if err := c.repo.SaveLastCheck(ctx, time.Time{}); err != nil {
		return CheckOutcome{}, apierrors.Internal(err)
	}
	return c.MaybeCheck(ctx)
}
