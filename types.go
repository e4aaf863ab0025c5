package flense

import "time"

// JobState enumerates server-side job lifecycle states.
type JobState string

const (
	JobStateCreated   JobState = "created"
	JobStateActive    JobState = "active"
	JobStateCompleted JobState = "completed"
	JobStateFailed    JobState = "failed"
	JobStateCancelled JobState = "cancelled"
	JobStateArchived  JobState = "archived"
)

// Terminal reports whether the job will not progress beyond this state.
func (s JobState) Terminal() bool {
	switch s {
	case JobStateCompleted, JobStateFailed, JobStateCancelled:
		return true
	default:
		return false
	}
}

// ParseOptions carries the per-job feature toggles. The zero value is the
// fastest configuration: every extractor off, server cache enabled.
type ParseOptions struct {
	OCR           bool `json:"ocr"`     // run OCR on scanned pages
	Tables        bool `json:"tables"`  // detect and extract tables
	Images        bool `json:"images"`  // extract embedded images
	PageStreaming bool `json:"pages"`   // emit per-page content events
	NoCache       bool `json:"noCache"` // bypass the server-side result cache
}

// JobOutput is the result bundle attached to a completed job.
type JobOutput struct {
	DocumentID string   `json:"documentId,omitempty"`
	Content    string   `json:"content,omitempty"`
	Markdown   string   `json:"markdown,omitempty"`
	DurationMs int64    `json:"durationMs,omitempty"`
	Images     []string `json:"images,omitempty"` // artifact URLs, present when image extraction is on
}

// Job is a snapshot of one server-side parse operation. The client only
// ever reads these; all mutation happens server-side.
type Job struct {
	ID          string     `json:"id"`
	State       JobState   `json:"state"`
	Output      *JobOutput `json:"output,omitempty"`
	Error       string     `json:"error,omitempty"`
	CreatedAt   *time.Time `json:"createdAt,omitempty"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	Attempts    int        `json:"attempts,omitempty"`
}

// Text returns the extracted markdown, falling back to plain content when
// the server produced no markdown.
func (j *Job) Text() string {
	if j.Output == nil {
		return ""
	}
	if j.Output.Markdown != "" {
		return j.Output.Markdown
	}
	return j.Output.Content
}

// CreateJobRequest is the JSON payload for queueing a parse job by URL.
type CreateJobRequest struct {
	DocumentURL string       `json:"documentUrl"`
	Filename    string       `json:"filename"`
	MimeType    string       `json:"mimeType"`
	DocumentID  string       `json:"documentId"`
	Options     ParseOptions `json:"options"`
}

// CreateJobResponse is the server's answer to either job-creation call.
type CreateJobResponse struct {
	Success    bool   `json:"success"`
	JobID      string `json:"jobId"`
	DocumentID string `json:"documentId,omitempty"`
	Remaining  *int   `json:"remaining,omitempty"` // quota left, absent on unlimited plans
	Unlimited  bool   `json:"unlimited,omitempty"`
	Message    string `json:"message,omitempty"`
}

// JobResult is what Wait returns once a job completes.
type JobResult struct {
	JobID    string
	State    JobState
	Markdown string
}

// ParseResult is the response of the synchronous parse endpoint. It has
// no job identifier; the document never enters the queue.
type ParseResult struct {
	Success  bool   `json:"success"`
	Markdown string `json:"markdown,omitempty"`
	Content  string `json:"content,omitempty"`
	Message  string `json:"message,omitempty"`
}

// Text returns the markdown, falling back to plain content.
func (r *ParseResult) Text() string {
	if r.Markdown != "" {
		return r.Markdown
	}
	return r.Content
}

// Progress is a transient processing snapshot pushed on the event stream.
// Only the most recent snapshot is meaningful.
type Progress struct {
	Progress    float64 `json:"progress"` // overall percentage, 0-100
	Stage       string  `json:"stage"`    // human-readable stage label
	CurrentPage int     `json:"currentPage,omitempty"`
	TotalPages  int     `json:"totalPages,omitempty"`
	EstimatedMs int64   `json:"estimatedMs,omitempty"`
}

// ContentChunk is one page worth of extracted content. Chunks may arrive
// in completion order rather than page order.
type ContentChunk struct {
	Page     int    `json:"page"`
	Content  string `json:"content"`
	Markdown string `json:"markdown,omitempty"`
}

// Text returns the chunk markdown, falling back to plain content.
func (c *ContentChunk) Text() string {
	if c.Markdown != "" {
		return c.Markdown
	}
	return c.Content
}
