package flense

import (
	"errors"
	"fmt"

	"github.com/go-resty/resty/v2"
)

var (
	ErrMissingAPIKey    = errors.New("api key is required (use WithAPIKey or set " + EnvAPIKey + ")")
	ErrEmptyDocumentURL = errors.New("document url cannot be empty")
	ErrEmptyJobID       = errors.New("job id cannot be empty")
	ErrEmptyFilename    = errors.New("filename cannot be empty")
	ErrEmptyArtifactURL = errors.New("artifact url cannot be empty")
	ErrNilReader        = errors.New("reader cannot be nil")
	ErrNilWriter        = errors.New("writer cannot be nil")
)

// APIError reports a non-2xx HTTP response, carrying the raw body so
// callers can surface whatever the server said.
type APIError struct {
	Operation  string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s failed with status %d", e.Operation, e.StatusCode)
	}
	return fmt.Sprintf("%s failed with status %d: %s", e.Operation, e.StatusCode, e.Body)
}

// JobFailedError reports a job that reached the failed (or cancelled)
// terminal state server-side.
type JobFailedError struct {
	JobID   string
	Message string
}

func (e *JobFailedError) Error() string {
	return fmt.Sprintf("job %s failed: %s", e.JobID, e.Message)
}

// apiError builds an APIError from a completed resty response.
func apiError(operation string, resp *resty.Response) error {
	return &APIError{
		Operation:  operation,
		StatusCode: resp.StatusCode(),
		Body:       string(resp.Body()),
	}
}

// errRejected formats a failure for a 2xx response whose envelope still
// reports success=false.
func errRejected(operation, message string) error {
	if message == "" {
		message = "unknown error"
	}
	return fmt.Errorf("%s rejected by server: %s", operation, message)
}
