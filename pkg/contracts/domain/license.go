// Package domain contains the core domain models for seopilot.
// These types are shared by the store, service and transport layers.
package domain

import (
	"time"
)

// LicenseStatus is the locally persisted license state.
// Check adopts the server's result string verbatim, so values outside the
// named constants can appear.
type LicenseStatus string

const (
	LicenseStatusUnchecked    LicenseStatus = "unchecked"
	LicenseStatusSuccess      LicenseStatus = "success"
	LicenseStatusExpired      LicenseStatus = "expired"
	LicenseStatusInvalid      LicenseStatus = "invalid"
	LicenseStatusLimitReached LicenseStatus = "limit_reached"
)

// Active reports whether the status unlocks optimization.
func (s LicenseStatus) Active() bool {
	return s == LicenseStatusSuccess
}

// LicenseRecord is the local license state
type LicenseRecord struct {
	Key       string        `json:"key"`
	Status    LicenseStatus `json:"status"`
	LastCheck time.Time     `json:"last_check"`
}
