package operations

import (
	"context"
	"log/slog"
	"sync"

	"seopilot/pkg/contracts/domain"
)

// StatusBroadcaster forwards job events to the websocket hub and remembers
// the latest event of every job so late subscribers can catch up.
type StatusBroadcaster struct {
	mu     sync.RWMutex
	latest map[string]domain.JobEvent
	hub    WebSocketHub
	logger *slog.Logger
}

// NewStatusBroadcaster creates a new status broadcaster. hub may be nil.
func NewStatusBroadcaster(hub WebSocketHub, logger *slog.Logger) *StatusBroadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &StatusBroadcaster{
		latest: make(map[string]domain.JobEvent),
		hub:    hub,
		logger: logger.With(slog.String("component", "status_broadcaster")),
	}
}

// PublishJobEvent implements EventPublisher
func (sb *StatusBroadcaster) PublishJobEvent(ctx context.Context, event domain.JobEvent) {
	sb.mu.Lock()
	sb.latest[event.JobID] = event
	sb.mu.Unlock()

	if sb.hub == nil {
		sb.logger.DebugContext(ctx, "no websocket hub configured for status broadcast",
			slog.String("job_id", event.JobID))
		return
	}

	sb.logger.DebugContext(ctx, "broadcasting job event",
		slog.String("type", event.Type),
		slog.String("job_id", event.JobID),
		slog.String("state", string(event.State)))
	sb.hub.BroadcastUpdate(event.Type, event.JobID, string(event.State), event)
}

// Latest returns the most recent event of a job
func (sb *StatusBroadcaster) Latest(jobID string) (domain.JobEvent, bool) {
	sb.mu.RLock()
	defer sb.mu.RUnlock()
	event, ok := sb.latest[jobID]
	return event, ok
}

// Snapshot returns the latest event of every known job
func (sb *StatusBroadcaster) Snapshot() []domain.JobEvent {
	sb.mu.RLock()
	defer sb.mu.RUnlock()
	events := make([]domain.JobEvent, 0, len(sb.latest))
	for _, event := range sb.latest {
		events = append(events, event)
	}
	return events
}
