package flense

import (
	"context"
	"fmt"
	"io"
)

// DownloadArtifact fetches an extracted artifact (an image URL from a
// job's output bundle). Artifact URLs are absolute, so the stream
// client's base URL does not apply.
func (c *client) DownloadArtifact(ctx context.Context, url string) ([]byte, error) {
	if url == "" {
		return nil, ErrEmptyArtifactURL
	}

	resp, err := c.streamClient.R().
		SetContext(ctx).
		Get(url)

	if err != nil {
		return nil, fmt.Errorf("download artifact from %s failed: %w", url, err)
	}

	if !resp.IsSuccess() {
		return nil, apiError("download artifact", resp)
	}

	data := resp.Body()
	if len(data) == 0 {
		return nil, fmt.Errorf("downloaded artifact is empty")
	}

	return data, nil
}

// DownloadArtifactTo streams an artifact into dst without buffering the
// whole payload.
func (c *client) DownloadArtifactTo(ctx context.Context, url string, dst io.Writer) error {
	if url == "" {
		return ErrEmptyArtifactURL
	}
	if dst == nil {
		return ErrNilWriter
	}

	resp, err := c.streamClient.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(url)

	if err != nil {
		return fmt.Errorf("download artifact from %s failed: %w", url, err)
	}

	body := resp.RawBody()
	defer body.Close()

	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		raw, _ := io.ReadAll(body)
		return &APIError{
			Operation:  "download artifact",
			StatusCode: resp.StatusCode(),
			Body:       string(raw),
		}
	}

	if _, err := io.Copy(dst, body); err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}

	return nil
}
