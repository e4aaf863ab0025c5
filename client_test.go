package flense_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	flense "github.com/flense-dev/flense-go"
)

func writeJSONResp(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func newTestClient(t *testing.T, baseURL string) flense.Client {
	t.Helper()

	cli, err := flense.NewClient(
		flense.WithAPIKey("test-key"),
		flense.WithBaseURL(baseURL),
		flense.WithPollInterval(5*time.Millisecond),
	)
	require.NoError(t, err)
	return cli
}

func TestNewClient(t *testing.T) {
	t.Run("MissingKey", func(t *testing.T) {
		t.Setenv(flense.EnvAPIKey, "")
		_, err := flense.NewClient()
		require.ErrorIs(t, err, flense.ErrMissingAPIKey)
	})

	t.Run("EnvFallback", func(t *testing.T) {
		t.Setenv(flense.EnvAPIKey, "env-key")
		cli, err := flense.NewClient()
		require.NoError(t, err)
		assert.Equal(t, "flense", cli.Name())
		assert.Equal(t, "v1", cli.Version())
	})
}

func TestCreateJobFromURL(t *testing.T) {
	var captured flense.CreateJobRequest
	var gotAuth string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/queue/jobs", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		writeJSONResp(t, w, map[string]any{
			"success": true,
			"jobId":   "job-123",
		})
	}))
	defer srv.Close()

	cli := newTestClient(t, srv.URL)

	handle := cli.CreateJobFromURL("https://example.com/papers/report.docx").
		EnableOCR().
		EnableTables()

	jobID, err := handle.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "job-123", jobID)

	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, "https://example.com/papers/report.docx", captured.DocumentURL)
	assert.Equal(t, "report.docx", captured.Filename)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.wordprocessingml.document", captured.MimeType)
	assert.True(t, captured.Options.OCR)
	assert.True(t, captured.Options.Tables)
	assert.False(t, captured.Options.Images)

	_, err = uuid.Parse(captured.DocumentID)
	assert.NoError(t, err, "documentId should be a generated uuid")
}

func TestCreateJobFromReader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/queue/parse", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()

		content, err := io.ReadAll(file)
		require.NoError(t, err)
		assert.Equal(t, "hello", string(content))
		assert.Equal(t, "notes.txt", header.Filename)

		var opts flense.ParseOptions
		require.NoError(t, json.Unmarshal([]byte(r.FormValue("options")), &opts))
		assert.True(t, opts.Tables)
		assert.True(t, opts.NoCache)

		writeJSONResp(t, w, map[string]any{
			"success": true,
			"jobId":   "job-456",
		})
	}))
	defer srv.Close()

	cli := newTestClient(t, srv.URL)

	handle := cli.CreateJobFromReader(strings.NewReader("hello"), "notes.txt").
		EnableTables().
		DisableCache()

	jobID, err := handle.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "job-456", jobID)
}

func TestCreateJobErrors(t *testing.T) {
	t.Run("HTTPError", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusPaymentRequired)
			_, _ = w.Write([]byte("quota exhausted"))
		}))
		defer srv.Close()

		cli := newTestClient(t, srv.URL)
		_, err := cli.CreateJobFromURL("https://example.com/a.pdf").Resolve(context.Background())
		require.Error(t, err)

		var apiErr *flense.APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusPaymentRequired, apiErr.StatusCode)
		assert.Contains(t, apiErr.Body, "quota exhausted")
	})

	t.Run("RejectedEnvelope", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSONResp(t, w, map[string]any{
				"success": false,
				"message": "unsupported document type",
			})
		}))
		defer srv.Close()

		cli := newTestClient(t, srv.URL)
		_, err := cli.CreateJobFromURL("https://example.com/a.pdf").Resolve(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported document type")
	})

	t.Run("EmptyURL", func(t *testing.T) {
		cli := newTestClient(t, "http://unused.invalid")
		_, err := cli.CreateJobFromURL("").Resolve(context.Background())
		require.ErrorIs(t, err, flense.ErrEmptyDocumentURL)
	})
}

func TestGetJob(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/queue/jobs/job-789", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		writeJSONResp(t, w, map[string]any{
			"id":    "job-789",
			"state": "active",
		})
	}))
	defer srv.Close()

	cli := newTestClient(t, srv.URL)
	job, err := cli.GetJob(context.Background(), "job-789")
	require.NoError(t, err)
	assert.Equal(t, "job-789", job.ID)
	assert.Equal(t, flense.JobStateActive, job.State)
	assert.False(t, job.State.Terminal())

	_, err = cli.GetJob(context.Background(), "")
	require.ErrorIs(t, err, flense.ErrEmptyJobID)
}

func TestParseSync(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/flense/", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "inline.pdf", header.Filename)

		writeJSONResp(t, w, map[string]any{
			"success":  true,
			"markdown": "# Inline",
		})
	}))
	defer srv.Close()

	cli := newTestClient(t, srv.URL)
	result, err := cli.ParseSync(context.Background(), strings.NewReader("%PDF"), "inline.pdf")
	require.NoError(t, err)
	assert.Equal(t, "# Inline", result.Text())

	_, err = cli.ParseSync(context.Background(), nil, "inline.pdf")
	require.ErrorIs(t, err, flense.ErrNilReader)

	_, err = cli.ParseSync(context.Background(), strings.NewReader("x"), "")
	require.ErrorIs(t, err, flense.ErrEmptyFilename)
}

func TestDownloadArtifact(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/assets/fig1.png" {
			_, _ = w.Write([]byte("png-bytes"))
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	cli := newTestClient(t, srv.URL)

	data, err := cli.DownloadArtifact(context.Background(), srv.URL+"/assets/fig1.png")
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))

	var sink strings.Builder
	require.NoError(t, cli.DownloadArtifactTo(context.Background(), srv.URL+"/assets/fig1.png", &sink))
	assert.Equal(t, "png-bytes", sink.String())

	_, err = cli.DownloadArtifact(context.Background(), "")
	require.ErrorIs(t, err, flense.ErrEmptyArtifactURL)

	_, err = cli.DownloadArtifact(context.Background(), srv.URL+"/assets/missing.png")
	var apiErr *flense.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
}
