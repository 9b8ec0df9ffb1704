package colsched

import "context"

// CollectorRunner is the subset of collectors.Collector the scheduler
// needs. Declared locally (duck-typed) rather than importing the
// collectors package, so the scheduler has no dependency on concrete
// collector implementations.
type CollectorRunner interface {
	Name() string
	Collect(ctx context.Context, params map[string]string) (int, error)
}

// CollectorJob adapts a CollectorRunner to the scheduler's Job interface.
type CollectorJob struct {
	runner CollectorRunner
}

// NewCollectorJob wraps runner for scheduling.
func NewCollectorJob(runner CollectorRunner) *CollectorJob {
	return &CollectorJob{runner: runner}
}

// Name delegates to the wrapped collector's registry name.
func (j *CollectorJob) Name() string { return j.runner.Name() }

// Run invokes Collect with no manual params (neither cron ticks nor RunNow
// pass query parameters; the admin /collect endpoint calls Collect directly
// with its own).
func (j *CollectorJob) Run(ctx context.Context) error {
	_, err := j.runner.Collect(ctx, nil)
	return err
}
