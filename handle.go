package flense

import (
	"context"
	"sync"
)

// createFunc issues the single job-creation request for a handle.
type createFunc func(ctx context.Context, opts ParseOptions) (*CreateJobResponse, error)

// JobHandle is a local proxy for a not-yet-created parse job. Creation is
// lazy and exactly-once: whichever of Resolve, Wait, or Subscribe runs
// first issues the single creation request; every other consumer shares
// that outcome, success or failure. The guarantee holds under concurrent
// use — the trigger is a mutex-guarded memoization cell, not a per-call
// request.
type JobHandle struct {
	client *client
	create createFunc

	mu        sync.Mutex
	opts      ParseOptions
	triggered bool

	done chan struct{}
	resp *CreateJobResponse
	err  error
}

func newJobHandle(c *client, create createFunc) *JobHandle {
	return &JobHandle{
		client: c,
		create: create,
		done:   make(chan struct{}),
	}
}

// setOption applies a toggle if creation has not fired yet. Calls after
// the first trigger are silent no-ops: the creation payload has already
// been built and sent, so there is nothing left to configure.
func (h *JobHandle) setOption(apply func(*ParseOptions)) *JobHandle {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.triggered {
		apply(&h.opts)
	}
	return h
}

// EnableOCR turns on OCR for scanned pages.
func (h *JobHandle) EnableOCR() *JobHandle {
	return h.setOption(func(o *ParseOptions) { o.OCR = true })
}

// EnableTables turns on table detection and extraction.
func (h *JobHandle) EnableTables() *JobHandle {
	return h.setOption(func(o *ParseOptions) { o.Tables = true })
}

// EnableImages turns on embedded image extraction.
func (h *JobHandle) EnableImages() *JobHandle {
	return h.setOption(func(o *ParseOptions) { o.Images = true })
}

// EnablePageStreaming asks the server to push per-page content events.
func (h *JobHandle) EnablePageStreaming() *JobHandle {
	return h.setOption(func(o *ParseOptions) { o.PageStreaming = true })
}

// DisableCache bypasses the server-side result cache.
func (h *JobHandle) DisableCache() *JobHandle {
	return h.setOption(func(o *ParseOptions) { o.NoCache = true })
}

// ApplyOptions copies a prepared options struct onto the handle, for
// callers that assemble configuration up front rather than fluently.
func (h *JobHandle) ApplyOptions(opts ParseOptions) *JobHandle {
	return h.setOption(func(o *ParseOptions) { *o = opts })
}

// Options returns the configuration as currently staged (or as frozen at
// trigger time, once creation has fired).
func (h *JobHandle) Options() ParseOptions {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.opts
}

// ID returns the resolved job identifier without blocking. The second
// return is false until creation has completed successfully.
func (h *JobHandle) ID() (string, bool) {
	select {
	case <-h.done:
		if h.err != nil {
			return "", false
		}
		return h.resp.JobID, true
	default:
		return "", false
	}
}

// trigger fires the creation request if this is the first consumption.
// The configuration is snapshotted under the lock, so toggles applied
// afterwards can never reach the wire. The network call itself runs
// outside the lock; concurrent consumers block on the done channel
// instead of re-issuing the request.
func (h *JobHandle) trigger(ctx context.Context) {
	h.mu.Lock()
	if h.triggered {
		h.mu.Unlock()
		return
	}
	h.triggered = true
	opts := h.opts
	h.mu.Unlock()

	h.resp, h.err = h.create(ctx, opts)
	close(h.done)
}

// Resolve triggers creation (at most once, ever) and returns the job
// identifier. If the first trigger failed, the memoized error is
// returned to every consumer; the handle never retries creation.
func (h *JobHandle) Resolve(ctx context.Context) (string, error) {
	go h.trigger(ctx)

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-h.done:
	}

	if h.err != nil {
		return "", h.err
	}
	return h.resp.JobID, nil
}

// CreateResponse returns the full creation response (quota fields
// included) once the handle has resolved.
func (h *JobHandle) CreateResponse(ctx context.Context) (*CreateJobResponse, error) {
	if _, err := h.Resolve(ctx); err != nil {
		return nil, err
	}
	return h.resp, nil
}

// Wait resolves the handle and polls until the job reaches a terminal
// state, returning the extracted markdown.
func (h *JobHandle) Wait(ctx context.Context) (*JobResult, error) {
	jobID, err := h.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	return h.client.WaitForJob(ctx, jobID)
}

// Subscribe resolves the handle, then opens an event-stream subscription
// dispatching into cb. The returned function cancels the subscription;
// it is idempotent, and calling it before the job identifier has
// resolved guarantees the stream never opens. Cancellation does not stop
// server-side processing, and it does not abort the (shared) creation
// request itself.
func (h *JobHandle) Subscribe(ctx context.Context, cb Callbacks) UnsubscribeFunc {
	subCtx, cancel := context.WithCancel(ctx)

	go func() {
		// Resolve against the outer context: an unsubscribe must not
		// poison the memoized creation result for other consumers.
		jobID, err := h.Resolve(ctx)
		if err != nil {
			if subCtx.Err() == nil {
				cb.reportError(err)
			}
			return
		}

		if subCtx.Err() != nil {
			// Unsubscribed while creation was in flight.
			return
		}

		h.client.streamJob(subCtx, jobID, cb)
	}()

	return UnsubscribeFunc(cancel)
}
