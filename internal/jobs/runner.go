// Package jobs runs the periodic background work: session reaping,
// recurring transaction materialization, cache sweeping. Jobs execute
// in order, one failure never stops the others, and the loop keeps
// going until the context is cancelled.
package jobs

import (
	"context"
	"fmt"
	"time"

	"tally/internal/log"
)

// Job is one unit of periodic work.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Func adapts a function to a Job.
type Func struct {
	JobName string
	Fn      func(ctx context.Context) error
}

func (f Func) Name() string { return f.JobName }

func (f Func) Run(ctx context.Context) error { return f.Fn(ctx) }

// Runner executes an ordered list of jobs on a fixed interval.
type Runner struct {
	jobs     []Job
	interval time.Duration
	logger   *log.Logger
}

func NewRunner(interval time.Duration, logger *log.Logger, jobs ...Job) *Runner {
	return &Runner{
		jobs:     jobs,
		interval: interval,
		logger:   logger.WithComponent(log.ComponentJobs),
	}
}

// Run executes every job once immediately, then again each interval
// until ctx is cancelled. Cancellation is honored at the top of each
// cycle; an in-flight job finishes before the loop exits.
func (r *Runner) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.RunOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("job runner stopping")
			return ctx.Err()
		case <-ticker.C:
			r.RunOnce(ctx)
		}
	}
}

// RunOnce executes every job in order, isolating failures and panics
// per job.
func (r *Runner) RunOnce(ctx context.Context) {
	for _, job := range r.jobs {
		if ctx.Err() != nil {
			return
		}

		start := time.Now()
		if err := r.runIsolated(ctx, job); err != nil {
			r.logger.ErrorContext(ctx, "job failed",
				log.FieldJob, job.Name(),
				log.FieldError, err,
			)
			continue
		}
		r.logger.Debug("job finished",
			log.FieldJob, job.Name(),
			log.FieldDuration, time.Since(start).Milliseconds(),
		)
	}
}

func (r *Runner) runIsolated(ctx context.Context, job Job) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return job.Run(ctx)
}
