package flense

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// dialTimeoutError mimics the net.Error a failed dial produces.
type dialTimeoutError struct {
	timeout   bool
	temporary bool
}

func (e *dialTimeoutError) Error() string   { return "dial tcp: i/o timeout" }
func (e *dialTimeoutError) Timeout() bool   { return e.timeout }
func (e *dialTimeoutError) Temporary() bool { return e.temporary }

// clientTimeoutError mimics the error net/http produces when the
// client's own request timeout fires: a timeout net.Error that also
// matches context.DeadlineExceeded.
type clientTimeoutError struct{}

func (e *clientTimeoutError) Error() string {
	return "context deadline exceeded (Client.Timeout exceeded while awaiting headers)"
}
func (e *clientTimeoutError) Timeout() bool   { return true }
func (e *clientTimeoutError) Temporary() bool { return false }
func (e *clientTimeoutError) Unwrap() error   { return context.DeadlineExceeded }

// scriptedFetch pops one response per call, repeating the last entry.
func scriptedFetch(calls *int, script []func() (*Job, error)) func(context.Context, string) (*Job, error) {
	return func(ctx context.Context, id string) (*Job, error) {
		n := *calls
		*calls++
		if n >= len(script) {
			n = len(script) - 1
		}
		return script[n]()
	}
}

func transientFailure() (*Job, error) {
	return nil, &url.Error{Op: "Get", URL: "http://flense.test", Err: &dialTimeoutError{timeout: true}}
}

func activeSnapshot() (*Job, error) {
	return &Job{ID: "job-t", State: JobStateActive}, nil
}

func completedSnapshot() (*Job, error) {
	return &Job{ID: "job-t", State: JobStateCompleted}, nil
}

func evaluateTerminal(job *Job) (bool, error) {
	return job.State.Terminal(), nil
}

func TestWaitWithPollingRecoversFromTransientErrors(t *testing.T) {
	var calls int
	fetch := scriptedFetch(&calls, []func() (*Job, error){
		transientFailure,
		transientFailure,
		transientFailure,
		completedSnapshot,
	})

	job, err := waitWithPolling(context.Background(), "job-t", time.Millisecond, "parse job", fetch, evaluateTerminal)
	require.NoError(t, err)
	assert.Equal(t, JobStateCompleted, job.State)
	assert.Equal(t, 4, calls, "three transient failures absorbed before the successful fetch")
}

func TestWaitWithPollingTransientBudgetExhausted(t *testing.T) {
	var calls int
	fetch := scriptedFetch(&calls, []func() (*Job, error){transientFailure})

	_, err := waitWithPolling(context.Background(), "job-t", time.Millisecond, "parse job", fetch, evaluateTerminal)
	require.Error(t, err)

	var netErr net.Error
	assert.ErrorAs(t, err, &netErr)
	assert.Equal(t, 1+transientFetchRetryBudget, calls, "fourth consecutive failure aborts")
}

func TestWaitWithPollingBudgetRefillsAfterSuccess(t *testing.T) {
	var calls int
	fetch := scriptedFetch(&calls, []func() (*Job, error){
		transientFailure,
		transientFailure,
		activeSnapshot,
		transientFailure,
		transientFailure,
		transientFailure,
		completedSnapshot,
	})

	job, err := waitWithPolling(context.Background(), "job-t", time.Millisecond, "parse job", fetch, evaluateTerminal)
	require.NoError(t, err)
	assert.Equal(t, JobStateCompleted, job.State)
	assert.Equal(t, 7, calls, "a successful fetch refills the retry budget")
}

func TestWaitWithPollingNonTransientErrorAborts(t *testing.T) {
	var calls int
	boom := errors.New("boom")
	fetch := scriptedFetch(&calls, []func() (*Job, error){
		func() (*Job, error) { return nil, boom },
	})

	_, err := waitWithPolling(context.Background(), "job-t", time.Millisecond, "parse job", fetch, evaluateTerminal)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestIsTransientError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		transient bool
	}{
		{
			name:      "dial timeout",
			err:       &dialTimeoutError{timeout: true},
			transient: true,
		},
		{
			name:      "temporary condition",
			err:       &dialTimeoutError{temporary: true},
			transient: true,
		},
		{
			name:      "wrapped in url.Error",
			err:       &url.Error{Op: "Get", URL: "http://flense.test", Err: &dialTimeoutError{timeout: true}},
			transient: true,
		},
		{
			name:      "net error that is neither",
			err:       &dialTimeoutError{},
			transient: false,
		},
		{
			name:      "plain error",
			err:       errors.New("boom"),
			transient: false,
		},
		{
			name:      "context cancelled",
			err:       fmt.Errorf("get job: %w", context.Canceled),
			transient: false,
		},
		{
			// The http client reports its per-request timeout as a
			// timeout net.Error that also matches the context deadline;
			// the deadline match wins, so it aborts rather than
			// consuming the retry budget.
			name:      "client request timeout",
			err:       &url.Error{Op: "Get", URL: "http://flense.test", Err: &clientTimeoutError{}},
			transient: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.transient, isTransientError(tt.err))
		})
	}
}
