package operations

import (
	"time"

	"seopilot/pkg/contracts/domain"
)

// Job is the mutable state of one bulk job
type Job struct {
	ID        string
	ItemIDs   []string
	Cursor    int
	State     domain.JobState
	Results   []domain.ItemResult
	StartedAt time.Time
	UpdatedAt time.Time
}

// newJob creates a running job with every item pending
func newJob(id string, itemIDs []string, now time.Time) *Job {
	ids := make([]string, len(itemIDs))
	copy(ids, itemIDs)
	results := make([]domain.ItemResult, len(ids))
	for i, itemID := range ids {
		results[i] = domain.ItemResult{ItemID: itemID, Outcome: domain.ItemPending}
	}
	return &Job{
		ID:        id,
		ItemIDs:   ids,
		State:     domain.JobStateRunning,
		Results:   results,
		StartedAt: now,
		UpdatedAt: now,
	}
}

// Total returns the number of items in the job
func (j *Job) Total() int {
	return len(j.ItemIDs)
}

// clone returns a deep copy so callers never share slices with the store
func (j *Job) clone() *Job {
	c := *j
	c.ItemIDs = append([]string(nil), j.ItemIDs...)
	c.Results = append([]domain.ItemResult(nil), j.Results...)
	return &c
}

// Snapshot converts the job to its read-only API form
func (j *Job) Snapshot() domain.JobSnapshot {
	return domain.JobSnapshot{
		ID:        j.ID,
		State:     j.State,
		Cursor:    j.Cursor,
		Total:     j.Total(),
		Results:   append([]domain.ItemResult(nil), j.Results...),
		StartedAt: j.StartedAt,
		UpdatedAt: j.UpdatedAt,
	}
}

// Handle returns the identifier handed back by Start
func (j *Job) Handle() domain.JobHandle {
	return domain.JobHandle{
		ID:        j.ID,
		Total:     j.Total(),
		State:     j.State,
		StartedAt: j.StartedAt,
	}
}
