package config

import "time"

// Application constants
const (
	AppName   = "seopilot"
	EnvPrefix = "SEOPILOT"

	// License server defaults
	DefaultLicenseServerURL = "https://licensing.seopilot.app"
	DefaultItemReference    = "SEO Pilot Pro"

	// License timeouts and cadence
	LicenseActivateTimeout = 15 * time.Second
	LicenseCheckTimeout    = 10 * time.Second
	LicenseCacheDuration   = 24 * time.Hour

	// Sessions and nonces
	SessionTimeout = 12 * time.Hour
	NonceLifetime  = 24 * time.Hour

	// CapabilityManageOptions is required by every admin action
	CapabilityManageOptions = "manage_options"

	// Rate Limiting
	DefaultRateLimit = 20 // requests per second
	DefaultBurstSize = 40

	// Store drivers
	StoreDriverMemory   = "memory"
	StoreDriverRedis    = "redis"
	StoreDriverPostgres = "postgres"

	DefaultLogLevel = "info"
)
