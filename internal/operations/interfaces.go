package operations

import (
	"context"

	"seopilot/internal/optimizer"
	"seopilot/pkg/contracts/domain"
)

// WebSocketHub interface for sending WebSocket messages
type WebSocketHub interface {
	BroadcastUpdate(eventType, jobID, status string, metadata interface{})
}

// EventPublisher receives a JobEvent after every job transition
type EventPublisher interface {
	PublishJobEvent(ctx context.Context, event domain.JobEvent)
}

// LicenseGate blocks bulk work while the license is inactive
type LicenseGate interface {
	Require(ctx context.Context) error
}

// ItemOptimizer optimizes one item
type ItemOptimizer interface {
	OptimizeItem(ctx context.Context, id string) (optimizer.Result, error)
}

// JobStore holds bulk job state
type JobStore interface {
	CreateJob(job *Job) error
	GetJob(id string) (*Job, error)
	UpdateJob(id string, fn func(*Job) error) (*Job, error)
}
