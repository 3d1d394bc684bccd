package jobs

import "context"

// Scheduler is a background task with an owned lifecycle.
type Scheduler interface {
	Start(ctx context.Context)
	Stop()
}

// Runner starts and stops a set of schedulers together.
type Runner struct {
	schedulers []Scheduler
}

func NewRunner(schedulers ...Scheduler) *Runner {
	return &Runner{schedulers: schedulers}
}

func (r *Runner) Start(ctx context.Context) {
	for _, s := range r.schedulers {
		s.Start(ctx)
	}
}

// Stop stops every scheduler in reverse order, waiting for in-flight ticks.
func (r *Runner) Stop() {
	for i := len(r.schedulers) - 1; i >= 0; i-- {
		r.schedulers[i].Stop()
	}
}
