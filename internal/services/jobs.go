package services

import (
	"context"

	"tally/internal/core"
	"tally/internal/jobs"
	"tally/internal/permissions"
	"tally/internal/session"
)

// BackgroundJobs returns the periodic work the server and the worker
// binary both run: expired session reaping, recurring transaction
// materialization, and the permission cache sweep.
func BackgroundJobs(sessions *session.Manager, processor *RecurringProcessor, registry *permissions.Registry, clock core.Clock) []jobs.Job {
	return []jobs.Job{
		jobs.Func{
			JobName: "session-cleanup",
			Fn: func(ctx context.Context) error {
				_, err := sessions.Reap(ctx)
				return err
			},
		},
		jobs.Func{
			JobName: "recurring-transactions",
			Fn: func(ctx context.Context) error {
				_, err := processor.ProcessDue(ctx, clock())
				return err
			},
		},
		jobs.Func{
			JobName: "permission-cache-sweep",
			Fn: func(ctx context.Context) error {
				registry.SweepCache()
				return nil
			},
		},
	}
}
