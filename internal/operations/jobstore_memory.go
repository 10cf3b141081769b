package operations

import (
	"fmt"
	"sync"

	apierrors "seopilot/internal/errors"
	"seopilot/pkg/contracts/domain"
)

// MemoryJobStore is an in-memory implementation of JobStore. At most one job
// is running at a time.
type MemoryJobStore struct {
	mu   sync.RWMutex
	jobs map[string]*Job
}

// NewMemoryJobStore creates a new in-memory job store
func NewMemoryJobStore() *MemoryJobStore {
	return &MemoryJobStore{
		jobs: make(map[string]*Job),
	}
}

// CreateJob stores a new job. It fails with a conflict while another job is running.
func (s *MemoryJobStore) CreateJob(job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[job.ID]; exists {
		return apierrors.Conflict(fmt.Sprintf("job %s already exists", job.ID))
	}
	for _, existing := range s.jobs {
		if existing.State == domain.JobStateRunning {
			return apierrors.Conflict(fmt.Sprintf("job %s is already running", existing.ID))
		}
	}

	s.jobs[job.ID] = job.clone()
	return nil
}

// GetJob retrieves a copy of a job by ID
func (s *MemoryJobStore) GetJob(id string) (*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, exists := s.jobs[id]
	if !exists {
		return nil, apierrors.NotFound("job " + id)
	}
	return job.clone(), nil
}

// UpdateJob applies fn to the stored job under the store lock and returns a
// copy of the result. When fn fails the job is left untouched.
func (s *MemoryJobStore) UpdateJob(id string, fn func(*Job) error) (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, exists := s.jobs[id]
	if !exists {
		return nil, apierrors.NotFound("job " + id)
	}
	working := job.clone()
	if err := fn(working); err != nil {
		return nil, err
	}
	s.jobs[id] = working
	return working.clone(), nil
}

// GetStats returns job counts by state
func (s *MemoryJobStore) GetStats() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]int{"total_jobs": len(s.jobs)}
	for _, state := range []domain.JobState{domain.JobStateRunning, domain.JobStateCompleted, domain.JobStateAborted} {
		stats[string(state)] = 0
	}
	for _, job := range s.jobs {
		stats[string(job.State)]++
	}
	return stats
}
