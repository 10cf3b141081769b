package operations

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	apierrors "seopilot/internal/errors"
	"seopilot/internal/infrastructure"
	"seopilot/internal/license"
	"seopilot/internal/optimizer"
	"seopilot/internal/store"
	"seopilot/pkg/contracts/domain"
)

type fakeOptimizer struct {
	mu    sync.Mutex
	fail  map[string]error
	calls []string
	// during runs while the item is being optimized
	during func(id string)
}

func (f *fakeOptimizer) OptimizeItem(ctx context.Context, id string) (optimizer.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, id)
	err, failed := f.fail[id]
	during := f.during
	f.mu.Unlock()

	if during != nil {
		during(id)
	}
	if failed {
		return optimizer.Result{}, err
	}
	return optimizer.Result{ItemID: id, Changed: []string{optimizer.FieldTitle}}, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.JobEvent
}

func (p *recordingPublisher) PublishJobEvent(ctx context.Context, event domain.JobEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

type runnerFixture struct {
	runner    *Runner
	licenses  *license.Repository
	optimizer *fakeOptimizer
	publisher *recordingPublisher
	jobs      *MemoryJobStore
}

func newRunnerFixture(t *testing.T) *runnerFixture {
	t.Helper()
	licenses := license.NewRepository(store.NewMemoryStore())
	require.NoError(t, licenses.SaveStatus(context.Background(), domain.LicenseStatusSuccess))

	f := &runnerFixture{
		licenses:  licenses,
		optimizer: &fakeOptimizer{fail: map[string]error{}},
		publisher: &recordingPublisher{},
		jobs:      NewMemoryJobStore(),
	}
	f.runner = NewRunner(license.NewGate(licenses), f.optimizer, f.jobs, f.publisher,
		slog.New(slog.NewJSONHandler(io.Discard, nil)), tracenoop.NewTracerProvider().Tracer("test"),
		infrastructure.NoopBusinessMetrics())
	return f
}

func TestRunnerProcessesAllItemsSkippingFailures(t *testing.T) {
	ctx := context.Background()
	f := newRunnerFixture(t)
	f.optimizer.fail["B"] = errors.New("generator down")

	handle, err := f.runner.Start(ctx, []string{"A", "B", "C"})
	require.NoError(t, err)
	assert.Equal(t, 3, handle.Total)
	assert.Equal(t, domain.JobStateRunning, handle.State)
	assert.NotEmpty(t, handle.ID)

	var steps []domain.StepResult
	for cursor := 0; cursor < 3; cursor++ {
		step, err := f.runner.Step(ctx, handle.ID, cursor)
		require.NoError(t, err)
		steps = append(steps, step)
	}

	assert.True(t, steps[0].Succeeded)
	assert.False(t, steps[0].Done)
	assert.False(t, steps[1].Succeeded)
	assert.Contains(t, steps[1].Message, "generator down")
	assert.True(t, steps[2].Succeeded)
	assert.True(t, steps[2].Done)
	assert.Equal(t, 2, steps[2].CurrentIndex)
	assert.Equal(t, "C", steps[2].ItemID)

	snap, err := f.runner.Job(handle.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStateCompleted, snap.State)
	assert.Equal(t, 3, snap.Cursor)
	assert.Equal(t, []domain.ItemOutcome{domain.ItemSucceeded, domain.ItemFailed, domain.ItemSucceeded},
		[]domain.ItemOutcome{snap.Results[0].Outcome, snap.Results[1].Outcome, snap.Results[2].Outcome})
	assert.Equal(t, []string{"A", "B", "C"}, f.optimizer.calls)

	assert.Equal(t, []string{
		domain.JobEventStarted,
		domain.JobEventProgress,
		domain.JobEventProgress,
		domain.JobEventProgress,
		domain.JobEventCompleted,
	}, f.publisher.types())
}

func TestRunnerSingleItemCompletesOnFirstStep(t *testing.T) {
	ctx := context.Background()
	f := newRunnerFixture(t)

	handle, err := f.runner.Start(ctx, []string{"only"})
	require.NoError(t, err)

	step, err := f.runner.Step(ctx, handle.ID, 0)
	require.NoError(t, err)
	assert.True(t, step.Done)

	_, err = f.runner.Step(ctx, handle.ID, 0)
	assert.True(t, apierrors.Is(err, apierrors.KindConflict), "completed jobs accept no steps")
}

func TestRunnerStartValidation(t *testing.T) {
	ctx := context.Background()
	f := newRunnerFixture(t)

	_, err := f.runner.Start(ctx, nil)
	assert.True(t, apierrors.Is(err, apierrors.KindValidation))

	_, err = f.runner.Start(ctx, []string{"A", " "})
	assert.True(t, apierrors.Is(err, apierrors.KindValidation))

	assert.Equal(t, 0, f.jobs.GetStats()["total_jobs"])
}

func TestRunnerRejectsStartWhileRunning(t *testing.T) {
	ctx := context.Background()
	f := newRunnerFixture(t)

	first, err := f.runner.Start(ctx, []string{"A", "B"})
	require.NoError(t, err)

	_, err = f.runner.Start(ctx, []string{"C"})
	require.Error(t, err)
	assert.True(t, apierrors.Is(err, apierrors.KindConflict))

	running, err := f.jobs.GetJob(first.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStateRunning, running.State, "the running job is untouched")
	assert.Equal(t, 1, f.jobs.GetStats()[string(domain.JobStateRunning)])

	_, err = f.runner.Abort(ctx, first.ID)
	require.NoError(t, err)
	_, err = f.runner.Start(ctx, []string{"C"})
	assert.NoError(t, err, "a new job may start once the previous one stopped")
}

func TestRunnerLicenseGate(t *testing.T) {
	ctx := context.Background()
	f := newRunnerFixture(t)

	handle, err := f.runner.Start(ctx, []string{"A", "B"})
	require.NoError(t, err)

	require.NoError(t, f.licenses.SaveStatus(ctx, domain.LicenseStatusExpired))

	_, err = f.runner.Step(ctx, handle.ID, 0)
	assert.True(t, apierrors.Is(err, apierrors.KindLicense))
	assert.Empty(t, f.optimizer.calls, "no item is touched while the license is inactive")

	snap, err := f.runner.Job(handle.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, snap.Cursor)

	_, err = f.runner.Abort(ctx, handle.ID)
	require.NoError(t, err)
	_, err = f.runner.Start(ctx, []string{"C"})
	assert.True(t, apierrors.Is(err, apierrors.KindLicense))
}

func TestRunnerStepErrors(t *testing.T) {
	ctx := context.Background()
	f := newRunnerFixture(t)

	handle, err := f.runner.Start(ctx, []string{"A", "B"})
	require.NoError(t, err)

	tests := []struct {
		name   string
		jobID  string
		cursor int
		kind   apierrors.Kind
	}{
		{"negative cursor", handle.ID, -1, apierrors.KindValidation},
		{"cursor past end", handle.ID, 2, apierrors.KindValidation},
		{"cursor ahead of next item", handle.ID, 1, apierrors.KindValidation},
		{"unknown job", "missing", 0, apierrors.KindNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.runner.Step(ctx, tt.jobID, tt.cursor)
			require.Error(t, err)
			assert.Equal(t, tt.kind, apierrors.KindOf(err))
		})
	}

	_, err = f.runner.Abort(ctx, handle.ID)
	require.NoError(t, err)
	_, err = f.runner.Step(ctx, handle.ID, 0)
	assert.True(t, apierrors.Is(err, apierrors.KindConflict))
}

func TestRunnerCursorLastWriterWins(t *testing.T) {
	ctx := context.Background()
	f := newRunnerFixture(t)

	handle, err := f.runner.Start(ctx, []string{"A", "B", "C", "D"})
	require.NoError(t, err)

	_, err = f.runner.Step(ctx, handle.ID, 0)
	require.NoError(t, err)
	_, err = f.runner.Step(ctx, handle.ID, 1)
	require.NoError(t, err)
	// a stale tab re-steps the first item
	_, err = f.runner.Step(ctx, handle.ID, 0)
	require.NoError(t, err)

	snap, err := f.runner.Job(handle.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Cursor)
	assert.Equal(t, domain.JobStateRunning, snap.State)
	assert.Equal(t, domain.ItemSucceeded, snap.Results[1].Outcome)
	assert.Equal(t, []string{"A", "B", "A"}, f.optimizer.calls)
}

func TestRunnerRejectsSkipAhead(t *testing.T) {
	ctx := context.Background()
	f := newRunnerFixture(t)

	handle, err := f.runner.Start(ctx, []string{"A", "B", "C"})
	require.NoError(t, err)

	_, err = f.runner.Step(ctx, handle.ID, 2)
	require.Error(t, err)
	assert.True(t, apierrors.Is(err, apierrors.KindValidation))
	assert.Empty(t, f.optimizer.calls)

	snap, err := f.runner.Job(handle.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, snap.Cursor)
	assert.Equal(t, domain.JobStateRunning, snap.State)
	for _, r := range snap.Results {
		assert.Equal(t, domain.ItemPending, r.Outcome)
	}

	var step domain.StepResult
	for cursor := 0; cursor < 3; cursor++ {
		step, err = f.runner.Step(ctx, handle.ID, cursor)
		require.NoError(t, err)
	}
	assert.True(t, step.Done)
	assert.Equal(t, []string{"A", "B", "C"}, f.optimizer.calls)
}

func TestRunnerAbortDuringStep(t *testing.T) {
	ctx := context.Background()
	f := newRunnerFixture(t)

	handle, err := f.runner.Start(ctx, []string{"A", "B"})
	require.NoError(t, err)
	f.optimizer.during = func(string) {
		_, err := f.runner.Abort(ctx, handle.ID)
		require.NoError(t, err)
	}

	_, err = f.runner.Step(ctx, handle.ID, 0)
	require.Error(t, err)
	assert.True(t, apierrors.Is(err, apierrors.KindConflict))

	snap, err := f.runner.Job(handle.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStateAborted, snap.State)
	assert.Equal(t, 0, snap.Cursor)
	assert.Equal(t, domain.ItemPending, snap.Results[0].Outcome)
	assert.Equal(t, []string{domain.JobEventStarted, domain.JobEventAborted}, f.publisher.types())
}

func TestRunnerAbort(t *testing.T) {
	ctx := context.Background()
	f := newRunnerFixture(t)

	handle, err := f.runner.Start(ctx, []string{"A", "B"})
	require.NoError(t, err)

	snap, err := f.runner.Abort(ctx, handle.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStateAborted, snap.State)

	_, err = f.runner.Abort(ctx, handle.ID)
	assert.NoError(t, err, "abort is idempotent")
	assert.Equal(t, []string{domain.JobEventStarted, domain.JobEventAborted}, f.publisher.types())

	_, err = f.runner.Abort(ctx, "missing")
	assert.True(t, apierrors.Is(err, apierrors.KindNotFound))
}

func TestMemoryJobStoreReturnsCopies(t *testing.T) {
	s := NewMemoryJobStore()
	require.NoError(t, s.CreateJob(newJob("j1", []string{"A"}, time.Now())))

	job, err := s.GetJob("j1")
	require.NoError(t, err)
	job.ItemIDs[0] = "mutated"
	job.Results[0].Outcome = domain.ItemFailed

	again, err := s.GetJob("j1")
	require.NoError(t, err)
	assert.Equal(t, "A", again.ItemIDs[0])
	assert.Equal(t, domain.ItemPending, again.Results[0].Outcome)

	_, err = s.UpdateJob("j1", func(j *Job) error {
		j.Cursor = 1
		return errors.New("rejected")
	})
	require.Error(t, err)
	again, _ = s.GetJob("j1")
	assert.Equal(t, 0, again.Cursor, "failed updates leave the job untouched")

	stats := s.GetStats()
	assert.Equal(t, 1, stats["total_jobs"])
	assert.Equal(t, 1, stats[string(domain.JobStateRunning)])
}

type recordingHub struct {
	mu       sync.Mutex
	messages []string
}

func (h *recordingHub) BroadcastUpdate(eventType, jobID, status string, metadata interface{}) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append(h.messages, eventType+"|"+jobID+"|"+status)
}

func TestStatusBroadcaster(t *testing.T) {
	ctx := context.Background()
	hub := &recordingHub{}
	sb := NewStatusBroadcaster(hub, slog.New(slog.NewJSONHandler(io.Discard, nil)))

	sb.PublishJobEvent(ctx, domain.JobEvent{Type: domain.JobEventStarted, JobID: "j1", State: domain.JobStateRunning})
	sb.PublishJobEvent(ctx, domain.JobEvent{Type: domain.JobEventAborted, JobID: "j1", State: domain.JobStateAborted})

	assert.Equal(t, []string{"bulk:started|j1|running", "bulk:aborted|j1|aborted"}, hub.messages)

	latest, ok := sb.Latest("j1")
	require.True(t, ok)
	assert.Equal(t, domain.JobStateAborted, latest.State)
	assert.Len(t, sb.Snapshot(), 1)

	NewStatusBroadcaster(nil, nil).PublishJobEvent(ctx, domain.JobEvent{JobID: "j2"})
}
