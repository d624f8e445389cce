package river

import (
	"context"
	"log/slog"

	"github.com/riverqueue/river"

	"github.com/neomorfeo/goodnews/internal/domain"
)

// EventWorker processes lifecycle event jobs from the River queue.
// For now it logs the change; cache purges and notifications hang off here.
type EventWorker struct {
	river.WorkerDefaults[LifecycleEventArgs]
}

// Work processes a single event job.
func (w *EventWorker) Work(ctx context.Context, job *river.Job[LifecycleEventArgs]) error {
	slog.InfoContext(ctx, "processing lifecycle event",
		"verb", job.Args.Verb,
		"family", job.Args.Family,
		"entity_id", job.Args.EntityID,
		"status", job.Args.Status,
		"job_id", job.ID,
		"attempt", job.Attempt,
	)
	return nil
}

// SweepArgs asks for one scheduler pass over a family.
type SweepArgs struct {
	Family string `json:"family"`
}

// Kind returns the unique job type identifier used by River's job routing.
func (SweepArgs) Kind() string { return "lifecycle.sweep" }

// InsertOpts disables retries: a failed sweep waits for the next tick.
func (SweepArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{MaxAttempts: 1}
}

// Sweeper runs one scheduler pass over a family.
type Sweeper interface {
	Sweep(ctx context.Context, family domain.Family) (int64, error)
}

// SweepWorker runs periodic sweep jobs.
type SweepWorker struct {
	river.WorkerDefaults[SweepArgs]
	sweeper Sweeper
}

// NewSweepWorker creates a worker that delegates to sweeper.
func NewSweepWorker(sweeper Sweeper) *SweepWorker {
	return &SweepWorker{sweeper: sweeper}
}

// Work runs the sweep. Failures cancel the job instead of retrying it; the
// sweeper has already logged them.
func (w *SweepWorker) Work(ctx context.Context, job *river.Job[SweepArgs]) error {
	n, err := w.sweeper.Sweep(ctx, domain.Family(job.Args.Family))
	if err != nil {
		return river.JobCancel(err)
	}
	slog.DebugContext(ctx, "sweep job finished",
		"family", job.Args.Family,
		"swept", n,
		"job_id", job.ID,
	)
	return nil
}
