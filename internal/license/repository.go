package license

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"seopilot/internal/store"
	"seopilot/pkg/contracts/domain"
)

// Option keys that make up the license record
const (
	KeyLicenseKey       = "license_key"
	KeyLicenseStatus    = "license_status"
	KeyLicenseLastCheck = "license_last_check"
)

// Repository reads and writes the license record in the option store
type Repository struct {
	store store.Store
}

// NewRepository creates a repository over s
func NewRepository(s store.Store) *Repository {
	return &Repository{store: s}
}

// Key returns the stored license key, or "" when none was saved
func (r *Repository) Key(ctx context.Context) (string, error) {
	return store.GetString(ctx, r.store, KeyLicenseKey, "")
}

// SaveKey persists the license key
func (r *Repository) SaveKey(ctx context.Context, key string) error {
	if err := r.store.Set(ctx, KeyLicenseKey, key); err != nil {
		return fmt.Errorf("save license key: %w", err)
	}
	return nil
}

// Status returns the stored status, or unchecked when none was saved
func (r *Repository) Status(ctx context.Context) (domain.LicenseStatus, error) {
	v, err := store.GetString(ctx, r.store, KeyLicenseStatus, string(domain.LicenseStatusUnchecked))
	return domain.LicenseStatus(v), err
}

// SaveStatus persists the status
func (r *Repository) SaveStatus(ctx context.Context, status domain.LicenseStatus) error {
	if err := r.store.Set(ctx, KeyLicenseStatus, string(status)); err != nil {
		return fmt.Errorf("save license status: %w", err)
	}
	return nil
}

// LastCheck returns the time of the last check. The zero time means never.
func (r *Repository) LastCheck(ctx context.Context) (time.Time, error) {
	v, err := r.store.Get(ctx, KeyLicenseLastCheck)
	if errors.Is(err, store.ErrNotFound) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	secs, err := strconv.ParseInt(v, 10, 64)
	if err != nil || secs <= 0 {
		return time.Time{}, nil
	}
	return time.Unix(secs, 0), nil
}

// SaveLastCheck persists t as unix seconds. The zero time is stored as 0.
func (r *Repository) SaveLastCheck(ctx context.Context, t time.Time) error {
	var secs int64
	if !t.IsZero() {
		secs = t.Unix()
	}
	if err := r.store.Set(ctx, KeyLicenseLastCheck, strconv.FormatInt(secs, 10)); err != nil {
		return fmt.Errorf("save license last check: %w", err)
	}
	return nil
}

// Record loads the full license record
func (r *Repository) Record(ctx context.Context) (domain.LicenseRecord, error) {
	var rec domain.LicenseRecord
	var err error
	if rec.Key, err = r.Key(ctx); err != nil {
		return rec, err
	}
	if rec.Status, err = r.Status(ctx); err != nil {
		return rec, err
	}
	if rec.LastCheck, err = r.LastCheck(ctx); err != nil {
		return rec, err
	}
	return rec, nil
}
