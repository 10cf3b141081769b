package operations

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	apierrors "seopilot/internal/errors"
	"seopilot/internal/infrastructure"
	"seopilot/pkg/contracts/domain"
)

// Runner drives bulk jobs one item per Step call
type Runner struct {
	gate      LicenseGate
	optimizer ItemOptimizer
	jobs      JobStore
	publisher EventPublisher
	logger    *slog.Logger
	tracer    trace.Tracer
	metrics   *infrastructure.BusinessMetrics
	now       func() time.Time
}

// NewRunner creates a bulk job runner. publisher may be nil.
func NewRunner(gate LicenseGate, optimizer ItemOptimizer, jobs JobStore, publisher EventPublisher,
	logger *slog.Logger, tracer trace.Tracer, metrics *infrastructure.BusinessMetrics) *Runner {
	return &Runner{
		gate:      gate,
		optimizer: optimizer,
		jobs:      jobs,
		publisher: publisher,
		logger:    logger.With(slog.String("component", "bulk_runner")),
		tracer:    tracer,
		metrics:   metrics,
		now:       time.Now,
	}
}

// Start creates a running job over itemIDs with the cursor at 0. It fails
// with a conflict while another job is running.
func (r *Runner) Start(ctx context.Context, itemIDs []string) (domain.JobHandle, error) {
	ctx, span := r.tracer.Start(ctx, "operations.bulk_start", trace.WithAttributes(attribute.Int("bulk.total", len(itemIDs))))
	defer span.End()

	if err := r.gate.Require(ctx); err != nil {
		return domain.JobHandle{}, err
	}
	if len(itemIDs) == 0 {
		return domain.JobHandle{}, apierrors.Validation("item_ids", "at least one item is required")
	}
	for _, id := range itemIDs {
		if strings.TrimSpace(id) == "" {
			return domain.JobHandle{}, apierrors.Validation("item_ids", "item ids must not be empty")
		}
	}

	job := newJob(uuid.NewString(), itemIDs, r.now().UTC())
	if err := r.jobs.CreateJob(job); err != nil {
		r.logger.WarnContext(ctx, "Bulk job rejected", slog.String("error", err.Error()))
		return domain.JobHandle{}, err
	}

	r.logger.InfoContext(ctx, "Bulk job started",
		slog.String("job_id", job.ID),
		slog.Int("total", job.Total()))
	r.publish(ctx, domain.JobEventStarted, job, nil)

	return job.Handle(), nil
}

// Step optimizes the item at cursor and moves the job cursor to cursor+1.
// A failed item is recorded and skipped. The job completes once the last
// index has been stepped.
func (r *Runner) Step(ctx context.Context, jobID string, cursor int) (domain.StepResult, error) {
	ctx, span := r.tracer.Start(ctx, "operations.bulk_step", trace.WithAttributes(
		attribute.String("bulk.job_id", jobID),
		attribute.Int("bulk.cursor", cursor)))
	defer span.End()

	if err := r.gate.Require(ctx); err != nil {
		return domain.StepResult{}, err
	}

	job, err := r.jobs.GetJob(jobID)
	if err != nil {
		return domain.StepResult{}, err
	}
	if job.State != domain.JobStateRunning {
		return domain.StepResult{}, apierrors.Conflict(fmt.Sprintf("job %s is %s", jobID, job.State))
	}
	if cursor < 0 || cursor >= job.Total() {
		return domain.StepResult{}, apierrors.Validation("cursor",
			fmt.Sprintf("cursor %d out of range [0, %d)", cursor, job.Total()))
	}
	// Items are reached in order. Re-stepping an earlier index is allowed.
	if cursor > job.Cursor {
		return domain.StepResult{}, apierrors.Validation("cursor",
			fmt.Sprintf("cursor %d is ahead of the next item %d", cursor, job.Cursor))
	}

	itemID := job.ItemIDs[cursor]
	outcome := domain.ItemResult{ItemID: itemID, Outcome: domain.ItemSucceeded}
	message := fmt.Sprintf("Optimized item %s (%d/%d)", itemID, cursor+1, job.Total())

	if _, err := r.optimizer.OptimizeItem(ctx, itemID); err != nil {
		if apierrors.Is(err, apierrors.KindLicense) {
			return domain.StepResult{}, err
		}
		infrastructure.RecordError(ctx, err)
		r.logger.WarnContext(ctx, "Bulk item failed, skipping",
			slog.String("job_id", jobID),
			slog.String("item_id", itemID),
			slog.Int("cursor", cursor),
			slog.String("error", err.Error()))
		outcome.Outcome = domain.ItemFailed
		outcome.Message = err.Error()
		message = fmt.Sprintf("Failed to optimize item %s: %v", itemID, err)
	}

	done := cursor+1 >= job.Total()
	updated, err := r.jobs.UpdateJob(jobID, func(j *Job) error {
		if j.State != domain.JobStateRunning {
			return apierrors.Conflict(fmt.Sprintf("job %s is %s", jobID, j.State))
		}
		j.Results[cursor] = outcome
		j.Cursor = cursor + 1
		j.UpdatedAt = r.now().UTC()
		if done {
			j.State = domain.JobStateCompleted
		}
		return nil
	})
	if err != nil {
		return domain.StepResult{}, err
	}

	if r.metrics != nil {
		r.metrics.BulkStepsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", string(outcome.Outcome))))
	}

	result := domain.StepResult{
		JobID:        jobID,
		ItemID:       itemID,
		CurrentIndex: cursor,
		Total:        updated.Total(),
		Done:         done,
		Succeeded:    outcome.Outcome == domain.ItemSucceeded,
		Message:      message,
	}

	r.publish(ctx, domain.JobEventProgress, updated, &result)
	if done && updated.State == domain.JobStateCompleted {
		r.logger.InfoContext(ctx, "Bulk job completed",
			slog.String("job_id", jobID),
			slog.Int("total", updated.Total()),
			slog.Int("failed", countFailed(updated.Results)))
		r.publish(ctx, domain.JobEventCompleted, updated, nil)
	}

	return result, nil
}

// Abort stops a running job. Aborting an aborted job is a no-op.
func (r *Runner) Abort(ctx context.Context, jobID string) (domain.JobSnapshot, error) {
	ctx, span := r.tracer.Start(ctx, "operations.bulk_abort", trace.WithAttributes(attribute.String("bulk.job_id", jobID)))
	defer span.End()

	changed := false
	job, err := r.jobs.UpdateJob(jobID, func(j *Job) error {
		switch j.State {
		case domain.JobStateAborted:
			return nil
		case domain.JobStateCompleted:
			return apierrors.Conflict(fmt.Sprintf("job %s already completed", jobID))
		}
		j.State = domain.JobStateAborted
		j.UpdatedAt = r.now().UTC()
		changed = true
		return nil
	})
	if err != nil {
		return domain.JobSnapshot{}, err
	}

	if changed {
		r.logger.InfoContext(ctx, "Bulk job aborted",
			slog.String("job_id", jobID),
			slog.Int("cursor", job.Cursor),
			slog.Int("total", job.Total()))
		r.publish(ctx, domain.JobEventAborted, job, nil)
	}
	return job.Snapshot(), nil
}

// Job returns a snapshot of a job with its per-item results
func (r *Runner) Job(jobID string) (domain.JobSnapshot, error) {
	job, err := r.jobs.GetJob(jobID)
	if err != nil {
		return domain.JobSnapshot{}, err
	}
	return job.Snapshot(), nil
}

func (r *Runner) publish(ctx context.Context, eventType string, job *Job, step *domain.StepResult) {
	if r.publisher == nil {
		return
	}
	r.publisher.PublishJobEvent(ctx, domain.JobEvent{
		Type:      eventType,
		JobID:     job.ID,
		State:     job.State,
		Step:      step,
		Timestamp: r.now().UTC(),
	})
}

func countFailed(results []domain.ItemResult) int {
	n := 0
	for _, res := range results {
		if res.Outcome == domain.ItemFailed {
			n++
		}
	}
	return n
}
