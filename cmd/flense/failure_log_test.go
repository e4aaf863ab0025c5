package main

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFailureLogRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "failures.log")
	log := newFailureLog(path)

	require.NoError(t, log.record("job-1", "report.pdf", errors.New("bad pdf")))
	require.NoError(t, log.record("", "scan.png", errors.New("upload refused")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	require.Len(t, lines, 2)

	assert.Contains(t, lines[0], "job=job-1")
	assert.Contains(t, lines[0], `source="report.pdf"`)
	assert.Contains(t, lines[0], `error="bad pdf"`)
	assert.Contains(t, lines[1], "job=-", "missing job id recorded as a dash")
}

func TestFailureLogNoteReturnsOriginalError(t *testing.T) {
	cause := errors.New("bad pdf")

	log := newFailureLog(filepath.Join(t.TempDir(), "failures.log"))
	assert.ErrorIs(t, log.note("job-1", "report.pdf", cause), cause)

	disabled := newFailureLog("")
	assert.ErrorIs(t, disabled.note("job-1", "report.pdf", cause), cause)
}

func TestFailureLogDisabledWritesNothing(t *testing.T) {
	dir := t.TempDir()
	log := newFailureLog("")

	require.NoError(t, log.record("job-1", "report.pdf", errors.New("bad pdf")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
