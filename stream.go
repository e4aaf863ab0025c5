package flense

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
)

// Callbacks receives the demultiplexed events of one job subscription.
// Every field is optional; nil callbacks are skipped. Callbacks are
// invoked sequentially in server-transmission order, on the
// subscription's goroutine.
type Callbacks struct {
	OnStatus   func(*Job)
	OnProgress func(*Progress)
	OnContent  func(*ContentChunk)
	OnComplete func(*Job)
	OnFailed   func(*Job)
	OnError    func(error)
}

func (cb Callbacks) reportError(err error) {
	if cb.OnError != nil {
		cb.OnError(err)
	}
}

// UnsubscribeFunc closes a subscription. Safe to call multiple times and
// safe to call before the stream has opened (the stream then never opens).
type UnsubscribeFunc func()

// SubscribeJob opens an event-stream subscription for an already-created
// job. Prefer JobHandle.Subscribe when holding a handle; this entry point
// exists for resuming observation of a job by identifier.
func (c *client) SubscribeJob(ctx context.Context, jobID string, cb Callbacks) (UnsubscribeFunc, error) {
	if jobID == "" {
		return nil, ErrEmptyJobID
	}

	subCtx, cancel := context.WithCancel(ctx)
	go c.streamJob(subCtx, jobID, cb)

	return UnsubscribeFunc(cancel), nil
}

// streamJob owns one subscription from connect to close. It returns when
// a terminal event arrives, the server ends the stream, the transport
// fails, or ctx is cancelled. Consumer-requested cancellation is silent;
// transport failures go to the error callback.
func (c *client) streamJob(ctx context.Context, jobID string, cb Callbacks) {
	if ctx.Err() != nil {
		return
	}

	resp, err := c.streamClient.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		SetHeader("Accept", "text/event-stream").
		SetHeader("Cache-Control", "no-cache").
		SetPathParam("jobID", jobID).
		Get(EndpointJobEvents)

	if err != nil {
		if ctx.Err() == nil {
			cb.reportError(fmt.Errorf("subscribe to job %s failed: %w", jobID, err))
		}
		return
	}

	body := resp.RawBody()
	defer body.Close()

	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		raw, _ := io.ReadAll(body)
		cb.reportError(&APIError{
			Operation:  "subscribe to job",
			StatusCode: resp.StatusCode(),
			Body:       string(raw),
		})
		return
	}

	c.logger.Debug("event stream opened", zap.String("jobId", jobID))

	// Closing the body is the only way to unblock the scanner when the
	// consumer cancels mid-stream.
	finished := make(chan struct{})
	defer close(finished)
	go func() {
		select {
		case <-ctx.Done():
			body.Close()
		case <-finished:
		}
	}()

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	var eventName string
	var data strings.Builder

	for scanner.Scan() {
		line := scanner.Text()

		switch {
		case line == "":
			// Blank line ends one event.
			if eventName != "" || data.Len() > 0 {
				if closed := c.dispatchEvent(jobID, eventName, data.String(), cb); closed {
					c.logger.Debug("event stream closed by terminal event",
						zap.String("jobId", jobID),
						zap.String("event", eventName),
					)
					return
				}
			}
			eventName = ""
			data.Reset()

		case strings.HasPrefix(line, ":"):
			// Comment / keep-alive.

		case strings.HasPrefix(line, "event:"):
			eventName = strings.TrimSpace(strings.TrimPrefix(line, "event:"))

		case strings.HasPrefix(line, "data:"):
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimSpace(strings.TrimPrefix(line, "data:")))
		}
	}

	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		cb.reportError(fmt.Errorf("event stream for job %s broke: %w", jobID, err))
	}
}

// dispatchEvent decodes one named event and invokes the matching
// callbacks. The return value reports whether the stream must close:
// complete, failed, cancelled, and timeout are terminal, and a decode
// failure inside a terminal handler still closes the stream — the server
// will not retransmit a terminal event. Decode failures on non-terminal
// events are surfaced via the error callback and leave the stream open.
func (c *client) dispatchEvent(jobID, name, payload string, cb Callbacks) bool {
	switch name {
	case EventStatus:
		job, err := decodeJobEvent(name, payload)
		if err != nil {
			cb.reportError(err)
			return false
		}
		invokeStatus(job, cb)
		return false

	case EventProgress:
		var p Progress
		if err := json.Unmarshal([]byte(payload), &p); err != nil {
			cb.reportError(decodeError(name, err))
			return false
		}
		if cb.OnProgress != nil {
			cb.OnProgress(&p)
		}
		return false

	case EventContent:
		var chunk ContentChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			cb.reportError(decodeError(name, err))
			return false
		}
		if cb.OnContent != nil {
			cb.OnContent(&chunk)
		}
		return false

	case EventComplete:
		job, err := decodeJobEvent(name, payload)
		if err != nil {
			cb.reportError(err)
			return true
		}
		if cb.OnStatus != nil {
			cb.OnStatus(job)
		}
		if cb.OnComplete != nil {
			cb.OnComplete(job)
		}
		return true

	case EventFailed:
		job, err := decodeJobEvent(name, payload)
		if err != nil {
			cb.reportError(err)
			return true
		}
		if cb.OnStatus != nil {
			cb.OnStatus(job)
		}
		if cb.OnFailed != nil {
			cb.OnFailed(job)
		}
		return true

	case EventCancelled:
		// Cancelled is terminal but deliberately does not route through
		// the complete/failed callbacks.
		job, err := decodeJobEvent(name, payload)
		if err != nil {
			cb.reportError(err)
			return true
		}
		if cb.OnStatus != nil {
			cb.OnStatus(job)
		}
		return true

	case EventTimeout:
		// Server-side stream duration limit. No payload, no callback.
		return true

	default:
		// Unknown event names are skipped so new server event types do
		// not break older clients.
		c.logger.Debug("ignoring unknown event",
			zap.String("jobId", jobID),
			zap.String("event", name),
		)
		return false
	}
}

// invokeStatus fans a status snapshot out to the status callback and,
// when the snapshot carries a terminal outcome, to complete/failed too.
func invokeStatus(job *Job, cb Callbacks) {
	if cb.OnStatus != nil {
		cb.OnStatus(job)
	}
	switch job.State {
	case JobStateCompleted:
		if cb.OnComplete != nil {
			cb.OnComplete(job)
		}
	case JobStateFailed:
		if cb.OnFailed != nil {
			cb.OnFailed(job)
		}
	}
}

func decodeJobEvent(name, payload string) (*Job, error) {
	var job Job
	if err := json.Unmarshal([]byte(payload), &job); err != nil {
		return nil, decodeError(name, err)
	}
	return &job, nil
}

func decodeError(event string, err error) error {
	return fmt.Errorf("decode %s event failed: %w", event, err)
}
