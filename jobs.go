package flense

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CreateJobFromURL returns a handle for parsing a remote document. No
// network call happens until the handle is first consumed.
func (c *client) CreateJobFromURL(documentURL string) *JobHandle {
	return newJobHandle(c, func(ctx context.Context, opts ParseOptions) (*CreateJobResponse, error) {
		return c.createJobFromURL(ctx, documentURL, opts)
	})
}

// CreateJobFromFile returns a handle for parsing a local file. The file
// is opened and read when the handle is first consumed, not now.
func (c *client) CreateJobFromFile(path string) *JobHandle {
	return newJobHandle(c, func(ctx context.Context, opts ParseOptions) (*CreateJobResponse, error) {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		defer f.Close()

		return c.createJobFromReader(ctx, f, filepath.Base(path), opts)
	})
}

// CreateJobFromReader returns a handle for parsing arbitrary content. The
// reader is consumed when the handle is first consumed; it must stay
// usable until then.
func (c *client) CreateJobFromReader(r io.Reader, filename string) *JobHandle {
	return newJobHandle(c, func(ctx context.Context, opts ParseOptions) (*CreateJobResponse, error) {
		return c.createJobFromReader(ctx, r, filename, opts)
	})
}

func (c *client) createJobFromURL(ctx context.Context, documentURL string, opts ParseOptions) (*CreateJobResponse, error) {
	if documentURL == "" {
		return nil, ErrEmptyDocumentURL
	}

	filename := FilenameFromURL(documentURL)
	req := CreateJobRequest{
		DocumentURL: documentURL,
		Filename:    filename,
		MimeType:    MIMETypeForFilename(filename),
		DocumentID:  uuid.NewString(),
		Options:     opts,
	}

	var result CreateJobResponse
	resp, err := c.restyClient.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&result).
		Post(EndpointCreateJob)

	if err != nil {
		return nil, fmt.Errorf("create job failed: %w", err)
	}

	if !resp.IsSuccess() {
		return nil, apiError("create job", resp)
	}

	if !result.Success {
		return nil, errRejected("create job", result.Message)
	}

	c.logger.Debug("job created",
		zap.String("jobId", result.JobID),
		zap.String("documentUrl", documentURL),
	)

	return &result, nil
}

func (c *client) createJobFromReader(ctx context.Context, r io.Reader, filename string, opts ParseOptions) (*CreateJobResponse, error) {
	if r == nil {
		return nil, ErrNilReader
	}
	if filename == "" {
		return nil, ErrEmptyFilename
	}

	optionsJSON, err := json.Marshal(opts)
	if err != nil {
		return nil, fmt.Errorf("encode options: %w", err)
	}

	var result CreateJobResponse
	resp, err := c.restyClient.R().
		SetContext(ctx).
		SetFileReader(multipartFileField, filename, r).
		SetMultipartField("options", "", "application/json", strings.NewReader(string(optionsJSON))).
		SetResult(&result).
		Post(EndpointParseFile)

	if err != nil {
		return nil, fmt.Errorf("create job from file failed: %w", err)
	}

	if !resp.IsSuccess() {
		return nil, apiError("create job from file", resp)
	}

	if !result.Success {
		return nil, errRejected("create job from file", result.Message)
	}

	c.logger.Debug("job created",
		zap.String("jobId", result.JobID),
		zap.String("filename", filename),
	)

	return &result, nil
}

// GetJob fetches one status snapshot for a job.
func (c *client) GetJob(ctx context.Context, jobID string) (*Job, error) {
	if jobID == "" {
		return nil, ErrEmptyJobID
	}

	var job Job
	resp, err := c.restyClient.R().
		SetContext(ctx).
		SetPathParam("jobID", jobID).
		SetResult(&job).
		Get(EndpointJob)

	if err != nil {
		return nil, fmt.Errorf("get job %s failed: %w", jobID, err)
	}

	if !resp.IsSuccess() {
		return nil, apiError("get job", resp)
	}

	return &job, nil
}
