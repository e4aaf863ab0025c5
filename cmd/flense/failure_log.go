package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// failureLog appends one record per failed document to a text file so
// batch runs can be re-driven from their failures. A nil log or an
// empty path discards records.
type failureLog struct {
	path string
	mu   sync.Mutex
}

func newFailureLog(path string) *failureLog {
	return &failureLog{path: path}
}

// note records a failure and hands the original error back, annotated
// when the record itself could not be written.
func (l *failureLog) note(jobID, source string, err error) error {
	if recErr := l.record(jobID, source, err); recErr != nil {
		return fmt.Errorf("%w; also failed to write fail log: %v", err, recErr)
	}
	return err
}

func (l *failureLog) record(jobID, source string, err error) error {
	if l == nil || l.path == "" {
		return nil
	}
	if jobID == "" {
		jobID = "-"
	}

	line := fmt.Sprintf("time=%s level=ERROR job=%s source=%q error=%q\n",
		time.Now().Format(time.RFC3339), jobID, source, fmt.Sprint(err))

	l.mu.Lock()
	defer l.mu.Unlock()

	if dir := filepath.Dir(l.path); dir != "" && dir != "." {
		if mkErr := os.MkdirAll(dir, 0o755); mkErr != nil {
			return mkErr
		}
	}

	f, openErr := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if openErr != nil {
		return openErr
	}
	defer f.Close()

	_, writeErr := f.WriteString(line)
	return writeErr
}
