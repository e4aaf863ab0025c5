package flense

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"
)

const transientFetchRetryBudget = 3

// WaitForJob polls the job status at the client's poll interval until a
// terminal state is observed. The loop imposes no deadline of its own;
// cancellation is the caller's context. Completed jobs yield the
// extracted markdown (falling back to plain content), failed and
// cancelled jobs yield a JobFailedError.
func (c *client) WaitForJob(ctx context.Context, jobID string) (*JobResult, error) {
	if jobID == "" {
		return nil, ErrEmptyJobID
	}

	job, err := waitWithPolling(ctx, jobID, c.pollInterval, "parse job", c.GetJob, func(job *Job) (bool, error) {
		c.logger.Debug("job polled",
			zap.String("jobId", jobID),
			zap.String("state", string(job.State)),
		)

		switch job.State {
		case JobStateCompleted:
			return true, nil
		case JobStateFailed:
			msg := job.Error
			if msg == "" {
				msg = "unknown error"
			}
			return false, &JobFailedError{JobID: jobID, Message: msg}
		case JobStateCancelled:
			// Cancelled jobs never progress; polling past this point
			// would spin forever.
			return false, &JobFailedError{JobID: jobID, Message: "job cancelled"}
		default:
			return false, nil
		}
	})
	if err != nil {
		return nil, err
	}

	return &JobResult{
		JobID:    jobID,
		State:    job.State,
		Markdown: job.Text(),
	}, nil
}

// waitWithPolling repeatedly fetches a status snapshot until evaluate
// reports done, fails, or ctx ends. Up to transientFetchRetryBudget
// consecutive transient network errors are tolerated; a successful fetch
// refills the budget, anything else aborts immediately.
func waitWithPolling[T any](ctx context.Context, id string, pollInterval time.Duration, operation string,
	fetch func(context.Context, string) (*T, error),
	evaluate func(*T) (bool, error),
) (*T, error) {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	retriesLeft := transientFetchRetryBudget

	for {
		result, err := fetch(ctx, id)
		switch {
		case err == nil:
			retriesLeft = transientFetchRetryBudget

			done, evalErr := evaluate(result)
			if evalErr != nil {
				return nil, evalErr
			}
			if done {
				return result, nil
			}
		case retriesLeft > 0 && isTransientError(err):
			retriesLeft--
		default:
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for %s cancelled: %w", operation, ctx.Err())
		case <-ticker.C:
		}
	}
}

// isTransientError reports whether a fetch failure merits another poll.
// Errors carrying a context cancellation or deadline never qualify; the
// net/http client surfaces its per-request timeout as a wrapped
// context.DeadlineExceeded, so those abort too. What remains is
// dial-level timeouts and temporary conditions such as connection resets.
func isTransientError(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var netErr net.Error
	return errors.As(err, &netErr) && (netErr.Timeout() || netErr.Temporary())
}
