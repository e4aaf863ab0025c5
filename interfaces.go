package flense

import (
	"context"
	"io"
)

// Info provides metadata about the client
type Info interface {
	Name() string
	Version() string
}

// Jobs handles asynchronous parse jobs. The Create* methods perform no
// network I/O; they return a handle whose creation request fires on
// first consumption.
type Jobs interface {
	CreateJobFromURL(documentURL string) *JobHandle
	CreateJobFromFile(path string) *JobHandle
	CreateJobFromReader(r io.Reader, filename string) *JobHandle
	GetJob(ctx context.Context, jobID string) (*Job, error)
	WaitForJob(ctx context.Context, jobID string) (*JobResult, error)
	SubscribeJob(ctx context.Context, jobID string, cb Callbacks) (UnsubscribeFunc, error)
}

// SyncParser handles the one-shot parse endpoint that bypasses the queue.
type SyncParser interface {
	ParseSync(ctx context.Context, r io.Reader, filename string) (*ParseResult, error)
	ParseSyncFile(ctx context.Context, path string) (*ParseResult, error)
}

// ArtifactDownloader fetches extracted artifacts (image URLs in job output).
type ArtifactDownloader interface {
	DownloadArtifact(ctx context.Context, url string) ([]byte, error)
	DownloadArtifactTo(ctx context.Context, url string, dst io.Writer) error
}

// Client combines all flense operations
type Client interface {
	Info
	Jobs
	SyncParser
	ArtifactDownloader
}
