package flense

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ParseSync parses a document in a single blocking call, bypassing the
// job queue. There is no job identifier and no progress reporting; the
// call suspends until the server returns the extracted result.
func (c *client) ParseSync(ctx context.Context, r io.Reader, filename string) (*ParseResult, error) {
	if r == nil {
		return nil, ErrNilReader
	}
	if filename == "" {
		return nil, ErrEmptyFilename
	}

	var result ParseResult
	resp, err := c.restyClient.R().
		SetContext(ctx).
		SetFileReader(multipartFileField, filename, r).
		SetResult(&result).
		Post(EndpointParseSync)

	if err != nil {
		return nil, fmt.Errorf("parse sync failed: %w", err)
	}

	if !resp.IsSuccess() {
		return nil, apiError("parse sync", resp)
	}

	if !result.Success {
		return nil, errRejected("parse sync", result.Message)
	}

	return &result, nil
}

// ParseSyncFile is ParseSync over a local file.
func (c *client) ParseSyncFile(ctx context.Context, path string) (*ParseResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	return c.ParseSync(ctx, f, filepath.Base(path))
}
