package river

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riversqlite"
	"github.com/riverqueue/river/rivermigrate"

	"github.com/neomorfeo/goodnews/internal/domain"
)

// Options configures the River client.
type Options struct {
	// Sweeper enables the periodic sweep jobs when set.
	Sweeper Sweeper
	// SweepIntervals maps each family to how often it is swept. Families
	// without an interval are not scheduled.
	SweepIntervals map[domain.Family]time.Duration
}

// Setup creates a River client with the workers registered and runs River's
// internal migrations. The caller must call client.Start() to begin
// processing jobs and client.Stop() for graceful shutdown.
func Setup(ctx context.Context, db *sql.DB, opts Options) (*Client, error) {
	if err := Migrate(ctx, db); err != nil {
		return nil, err
	}

	workers := river.NewWorkers()
	river.AddWorker(workers, &EventWorker{})

	var periodic []*river.PeriodicJob
	if opts.Sweeper != nil {
		river.AddWorker(workers, NewSweepWorker(opts.Sweeper))
		periodic = PeriodicSweeps(opts.SweepIntervals)
	}

	client, err := river.NewClient(riversqlite.New(db), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: 2},
		},
		Workers:      workers,
		PeriodicJobs: periodic,
	})
	if err != nil {
		return nil, fmt.Errorf("creating river client: %w", err)
	}

	return client, nil
}

// Migrate runs River's own migrations (river_job, river_leader, ...). These
// are separate from the app's goose migrations.
func Migrate(ctx context.Context, db *sql.DB) error {
	migrator, err := rivermigrate.New(riversqlite.New(db), nil)
	if err != nil {
		return fmt.Errorf("creating river migrator: %w", err)
	}
	if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil); err != nil {
		return fmt.Errorf("running river migrations: %w", err)
	}
	return nil
}

// PeriodicSweeps builds one periodic job per family, each enqueued at its
// own interval and once at leader start. Every family is its own job, so a
// failure in one never holds back the others.
func PeriodicSweeps(intervals map[domain.Family]time.Duration) []*river.PeriodicJob {
	var jobs []*river.PeriodicJob
	for _, family := range domain.Families {
		interval, ok := intervals[family]
		if !ok || interval <= 0 {
			continue
		}
		args := SweepArgs{Family: string(family)}
		jobs = append(jobs, river.NewPeriodicJob(
			river.PeriodicInterval(interval),
			func() (river.JobArgs, *river.InsertOpts) {
				return args, nil
			},
			&river.PeriodicJobOpts{RunOnStart: true},
		))
	}
	return jobs
}
