package schema

import (
	"errors"
	"fmt"
)

// ErrEmptyResult is matched by EmptyResultError through errors.Is.
var ErrEmptyResult = errors.New("no files matched")

// EmptyResultError reports that the build pattern matched zero tracked files.
type EmptyResultError struct {
	RepoPath string
	Pattern  string
	Tracked  int
}

func (e *EmptyResultError) Error() string {
	return fmt.Sprintf("pattern %q matched none of the %d tracked files in %s", e.Pattern, e.Tracked, e.RepoPath)
}

// Is lets errors.Is(err, ErrEmptyResult) succeed.
func (e *EmptyResultError) Is(target error) bool {
	return target == ErrEmptyResult
}

// HistoryExtractionError reports a failed or unparseable history operation.
type HistoryExtractionError struct {
	Op     string // git operation, e.g. "log" or "cat-file"
	File   string
	Commit string
	Err    error
}

func (e *HistoryExtractionError) Error() string {
	msg := "history extraction failed"
	if e.Op != "" {
		msg += " during " + e.Op
	}
	if e.File != "" {
		msg += " for " + e.File
	}
	if e.Commit != "" {
		msg += " at " + e.Commit
	}
	return fmt.Sprintf("%s: %v", msg, e.Err)
}

func (e *HistoryExtractionError) Unwrap() error { return e.Err }

// MetricsExtractionError reports a metrics collaborator failure on one snapshot.
type MetricsExtractionError struct {
	Tool     string
	File     string
	Commit   string
	Snapshot string
	Err      error
}

func (e *MetricsExtractionError) Error() string {
	return fmt.Sprintf("%s metrics failed for %s (snapshot %s at %s): %v", e.Tool, e.File, e.Snapshot, e.Commit, e.Err)
}

func (e *MetricsExtractionError) Unwrap() error { return e.Err }
