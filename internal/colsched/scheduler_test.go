package colsched

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreerrors "github.com/aristath/marketcore/internal/corepipeline/errors"
)

type fakeJob struct {
	name    string
	results []error
	calls   int
}

func (f *fakeJob) Name() string { return f.name }

func (f *fakeJob) Run(ctx context.Context) error {
	idx := f.calls
	f.calls++
	if idx < len(f.results) {
		return f.results[idx]
	}
	return nil
}

func TestRunNowOpensBreakerAfterFiveFailuresThenFastFails(t *testing.T) {
	job := &fakeJob{name: "flaky", results: []error{
		errors.New("fail 1"), errors.New("fail 2"), errors.New("fail 3"),
		errors.New("fail 4"), errors.New("fail 5"),
	}}
	s := New(zerolog.Nop())
	require.NoError(t, s.AddJob(job, time.Minute))

	for i := 0; i < 5; i++ {
		_, err := s.RunNow(context.Background(), "flaky")
		assert.Error(t, err)
		var cbErr *coreerrors.CircuitBreakerOpen
		assert.False(t, errors.As(err, &cbErr), "first 5 failures should surface the job's own error, not a breaker-open error")
	}

	_, err := s.RunNow(context.Background(), "flaky")
	var cbErr *coreerrors.CircuitBreakerOpen
	require.ErrorAs(t, err, &cbErr)
	assert.Equal(t, "flaky", cbErr.Service)
	assert.Equal(t, 5, job.calls, "the breaker must fast-fail the 6th tick without invoking the job")
}

func TestRunNowUnknownJob(t *testing.T) {
	s := New(zerolog.Nop())
	_, err := s.RunNow(context.Background(), "missing")
	assert.Error(t, err)
}

func TestStatusReportsCircuitBreakerSnapshot(t *testing.T) {
	job := &fakeJob{name: "steady"}
	s := New(zerolog.Nop())
	require.NoError(t, s.AddJob(job, time.Minute))

	_, err := s.RunNow(context.Background(), "steady")
	require.NoError(t, err)

	statuses := s.Status()
	require.Len(t, statuses, 1)
	assert.Equal(t, "steady", statuses[0].Name)
	assert.False(t, statuses[0].CircuitBreaker.IsOpen)
	assert.Equal(t, 0, s.OpenBreakerCount())
}
