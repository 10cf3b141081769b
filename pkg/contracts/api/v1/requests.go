// Package api contains the admin gateway request and response contracts.
// Version v1 represents the current stable API version.
package api

import (
	"encoding/json"
	"time"

	"seopilot/pkg/contracts"
	"seopilot/pkg/contracts/domain"
)

// Envelope is the uniform response body of every admin action
type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
}

// ErrorData is the Data payload of a failed Envelope
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// SessionRequest logs an administrator in
type SessionRequest struct {
	Username string `json:"username" validate:"required,max=100"`
	Password string `json:"password" validate:"required,max=200"`
}

// SessionResponse carries a session token
type SessionResponse struct {
	Token        string   `json:"token"`
	ExpiresIn    int64    `json:"expires_in"`
	Capabilities []string `json:"capabilities"`
}

// NonceResponse carries an action nonce
type NonceResponse struct {
	Action string `json:"action"`
	Nonce  string `json:"nonce"`
}

// PostTypeRequest names a content category
type PostTypeRequest struct {
	PostType string `json:"post_type" validate:"required,max=20"`
}

// SaveSettingsRequest is a partial settings update
type SaveSettingsRequest struct {
	PostType string               `json:"post_type" validate:"required,max=20"`
	Settings domain.SettingsPatch `json:"settings"`
}

// SavePromptsRequest replaces the prompt set of a content category
type SavePromptsRequest struct {
	PostType string                `json:"post_type" validate:"required,max=20"`
	Prompts  domain.PromptTemplate `json:"prompts"`
}

// BulkStartRequest starts a bulk job
type BulkStartRequest struct {
	ItemIDs []string `json:"item_ids" validate:"required,min=1,max=5000,dive,required,max=64"`
}

// BulkStepRequest advances a bulk job by one item
type BulkStepRequest struct {
	JobID  string `json:"job_id" validate:"required,uuid"`
	Cursor int    `json:"cursor" validate:"min=0"`
}

// JobRequest names a bulk job
type JobRequest struct {
	JobID string `json:"job_id" validate:"required,uuid"`
}

// OptimizeSingleRequest optimizes one item
type OptimizeSingleRequest struct {
	ItemID string `json:"item_id" validate:"required,max=64"`
}

// SaveLicenseKeyRequest stores and activates a license key
type SaveLicenseKeyRequest struct {
	LicenseKey string `json:"license_key" validate:"required,max=128"`
}

// ImportSettingsRequest carries an export document
type ImportSettingsRequest struct {
	Document json.RawMessage `json:"document" validate:"required"`
}

// CategoryResponse carries the settings and prompts of one content category
type CategoryResponse struct {
	PostType string                 `json:"post_type"`
	Settings domain.ContentSettings `json:"settings"`
	Prompts  domain.PromptTemplate  `json:"prompts"`
}

// LicenseStatusResponse reports the local license state. The key is masked.
type LicenseStatusResponse struct {
	Key       string               `json:"key"`
	Status    domain.LicenseStatus `json:"status"`
	Active    bool                 `json:"active"`
	LastCheck *time.Time           `json:"last_check,omitempty"`
}

// LicenseCheckResponse reports the outcome of a manual license check
type LicenseCheckResponse struct {
	LicenseStatusResponse
	Checked bool   `json:"checked"`
	Error   string `json:"error,omitempty"`
}

// HealthResponse is returned by the health endpoint
type HealthResponse struct {
	Status  string                `json:"status"`
	Version string                `json:"version"`
	Build   contracts.VersionInfo `json:"build"`
	Checks  map[string]string     `json:"checks"`
	Jobs    map[string]int        `json:"jobs,omitempty"`
	Hub     map[string]int64      `json:"hub,omitempty"`
}
