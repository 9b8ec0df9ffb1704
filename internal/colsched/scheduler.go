package colsched

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	coreerrors "github.com/aristath/marketcore/internal/corepipeline/errors"
	"github.com/aristath/marketcore/internal/domain"
)

// ShutdownGrace is the bounded grace period for in-flight ticks at
// shutdown (spec §4.2).
const ShutdownGrace = 30 * time.Second

// Job is anything the scheduler can run periodically: a collector wrapped
// in a Collect(ctx) call, or any other periodic task. Concrete collectors
// satisfy this directly since collectors.Collector.Collect already has a
// compatible shape modulo the params map, which the scheduler always
// passes as nil (manual params only apply to admin-triggered runs).
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

type registeredJob struct {
	job      Job
	breaker  *Breaker
	interval time.Duration
	mu       sync.Mutex // serializes ticks for this job (spec §4.2: "a new tick does not start if the previous one has not finished")
	entryID  cron.EntryID
}

// Scheduler drives periodic collection at per-collector configurable
// intervals, behind a per-job circuit breaker (spec §4.2). Grounded on
// internal/scheduler/scheduler.go's cron.New(cron.WithSeconds()) wrapper.
type Scheduler struct {
	cron *cron.Cron
	log  zerolog.Logger

	mu   sync.Mutex
	jobs map[string]*registeredJob
}

// New constructs a Scheduler.
func New(log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithSeconds()),
		log:  log.With().Str("component", "collection_scheduler").Logger(),
		jobs: make(map[string]*registeredJob),
	}
}

// AddJob registers job to run every interval, guarded by a fresh circuit
// breaker with the spec defaults.
func (s *Scheduler) AddJob(job Job, interval time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[job.Name()]; exists {
		return fmt.Errorf("colsched: job %q already registered", job.Name())
	}

	entry := &registeredJob{
		job:      job,
		breaker:  NewBreaker(job.Name(), DefaultThreshold, DefaultResetTimeout),
		interval: interval,
	}

	spec := fmt.Sprintf("@every %s", interval.String())
	id, err := s.cron.AddFunc(spec, func() { s.tick(entry) })
	if err != nil {
		return fmt.Errorf("colsched: schedule job %q: %w", job.Name(), err)
	}
	entry.entryID = id
	s.jobs[job.Name()] = entry
	return nil
}

// RunNow executes job immediately, outside its cron schedule, honouring
// the same breaker and serialization rules. The returned count is always 0,
// since Job.Run does not report one. The admin /collect endpoint does not
// go through RunNow; it calls the collector's Collect directly.
func (s *Scheduler) RunNow(ctx context.Context, name string) (int, error) {
	s.mu.Lock()
	entry, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return 0, fmt.Errorf("colsched: unknown job %q", name)
	}
	if err := s.runTick(ctx, entry); err != nil {
		return 0, err
	}
	return 0, nil
}

func (s *Scheduler) tick(entry *registeredJob) {
	ctx, cancel := context.WithTimeout(context.Background(), entry.interval)
	defer cancel()
	if err := s.runTick(ctx, entry); err != nil {
		s.log.Error().Err(err).Str("job", entry.job.Name()).Msg("scheduled tick failed")
	}
}

// runTick serializes ticks for one job (a new tick waits for the previous
// to finish rather than running concurrently with it), applies the
// circuit-breaker gate, and records the outcome.
func (s *Scheduler) runTick(ctx context.Context, entry *registeredJob) error {
	entry.mu.Lock()
	defer entry.mu.Unlock()

	now := time.Now()
	if entry.breaker.IsOpen() {
		if !entry.breaker.AllowProbe(now) {
			return &coreerrors.CircuitBreakerOpen{Service: entry.job.Name()}
		}
		// Past the reset window: this tick is a probe. Fall through and
		// let RecordSuccess/RecordFailure resolve the breaker below.
	}

	err := entry.job.Run(ctx)
	if err != nil {
		entry.breaker.RecordFailure(time.Now())
		return err
	}
	entry.breaker.RecordSuccess(time.Now())
	return nil
}

// Start starts the cron driver.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Msg("collection scheduler started")
}

// Stop signals shutdown and waits up to ShutdownGrace for in-flight ticks,
// then returns regardless (spec §4.2).
func (s *Scheduler) Stop() {
	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(ShutdownGrace):
		s.log.Warn().Msg("collection scheduler shutdown grace period expired with ticks still in flight")
	}
	s.log.Info().Msg("collection scheduler stopped")
}

// JobStatus is the scheduler's per-job status snapshot (spec §4.2).
type JobStatus struct {
	Name           string                     `json:"name"`
	Interval       time.Duration              `json:"interval"`
	NextRun        time.Time                  `json:"next_run_time"`
	CircuitBreaker domain.CircuitBreakerState `json:"circuit_breaker"`
}

// Status returns a snapshot of every registered job.
func (s *Scheduler) Status() []JobStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := make(map[cron.EntryID]time.Time)
	for _, e := range s.cron.Entries() {
		entries[e.ID] = e.Next
	}

	out := make([]JobStatus, 0, len(s.jobs))
	for name, entry := range s.jobs {
		out = append(out, JobStatus{
			Name:           name,
			Interval:       entry.interval,
			NextRun:        entries[entry.entryID],
			CircuitBreaker: entry.breaker.Snapshot(),
		})
	}
	return out
}

// OpenBreakerCount returns how many registered jobs currently have an open
// breaker, for the aggregate health summary.
func (s *Scheduler) OpenBreakerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, entry := range s.jobs {
		if entry.breaker.IsOpen() {
			count++
		}
	}
	return count
}
