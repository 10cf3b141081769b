package domain

import (
	"time"
)

// JobState is the bulk job lifecycle state
type JobState string

const (
	JobStateNotStarted JobState = "not_started"
	JobStateRunning    JobState = "running"
	JobStateCompleted  JobState = "completed"
	JobStateAborted    JobState = "aborted"
)

// Terminal reports whether no further steps are accepted.
func (s JobState) Terminal() bool {
	return s == JobStateCompleted || s == JobStateAborted
}

// JobHandle identifies a started bulk job
type JobHandle struct {
	ID        string    `json:"job_id"`
	Total     int       `json:"total"`
	State     JobState  `json:"state"`
	StartedAt time.Time `json:"started_at"`
}

// ItemOutcome is the per-item result of a bulk step
type ItemOutcome string

const (
	ItemPending   ItemOutcome = "pending"
	ItemSucceeded ItemOutcome = "succeeded"
	ItemFailed    ItemOutcome = "failed"
)

// ItemResult records what happened to one item of a bulk job
type ItemResult struct {
	ItemID  string      `json:"item_id"`
	Outcome ItemOutcome `json:"outcome"`
	Message string      `json:"message,omitempty"`
}

// StepResult is returned after every bulk step
type StepResult struct {
	JobID        string `json:"job_id"`
	ItemID       string `json:"item_id"`
	CurrentIndex int    `json:"current_index"`
	Total        int    `json:"total"`
	Done         bool   `json:"done"`
	Succeeded    bool   `json:"succeeded"`
	Message      string `json:"message"`
}

// JobSnapshot is a read-only copy of a bulk job
type JobSnapshot struct {
	ID        string       `json:"job_id"`
	State     JobState     `json:"state"`
	Cursor    int          `json:"cursor"`
	Total     int          `json:"total"`
	Results   []ItemResult `json:"results"`
	StartedAt time.Time    `json:"started_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// JobEvent is pushed to admin browsers after every job transition
type JobEvent struct {
	Type      string      `json:"type"`
	JobID     string      `json:"job_id"`
	State     JobState    `json:"state"`
	Step      *StepResult `json:"step,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// Job event types
const (
	JobEventStarted   = "bulk:started"
	JobEventProgress  = "bulk:progress"
	JobEventCompleted = "bulk:completed"
	JobEventAborted   = "bulk:aborted"
)
