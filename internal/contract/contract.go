// Package contract provides interfaces and shared utilities for internal architecture.
package contract

import (
	"context"
	"time"

	"github.com/huangsam/xrays/schema"
)

// GitClient is the history collaborator used by the record builder.
// This allows the core analysis logic to be tested without needing a real git executable.
type GitClient interface {
	// Run executes a git command and returns its stdout.
	// Its use should be minimized in favor of the explicit methods below.
	Run(ctx context.Context, repoPath string, args ...string) ([]byte, error)

	// GetRepoRoot returns the absolute path to the root of the Git repository
	// containing the given context path.
	GetRepoRoot(ctx context.Context, contextPath string) (string, error)

	// GetRepoHash returns the current HEAD commit hash of the repository.
	GetRepoHash(ctx context.Context, repoPath string) (string, error)

	// ListFiles returns every version-controlled file, relative to the repository root.
	ListFiles(ctx context.Context, repoPath string) ([]string, error)

	// GetFileHistory returns the commits touching path, newest first, following renames.
	GetFileHistory(ctx context.Context, repoPath string, path string) ([]schema.CommitSnapshot, error)

	// GetFileSnapshot returns the raw bytes of name as it existed at commit.
	GetFileSnapshot(ctx context.Context, repoPath string, commit string, name string) ([]byte, error)
}

// MetricsCounter is the metrics collaborator used by the record builder.
// Binary or empty content must yield zero metrics rather than an error.
type MetricsCounter interface {
	// Backend names the implementation; it is part of the metrics cache key.
	Backend() schema.MetricsBackend

	// Count measures one snapshot. name selects the language by extension.
	Count(ctx context.Context, name string, content []byte) (schema.SnapshotMetrics, error)
}

// CacheManager defines the interface for managing cache stores.
// This allows the cache layer to be mocked for testing.
type CacheManager interface {
	GetMetricsStore() CacheStore
	GetAnalysisStore() AnalysisStore
}

// CacheStore defines the interface for cache data storage.
// This allows mocking the store for testing.
type CacheStore interface {
	Get(key string) ([]byte, int, int64, error)
	Set(key string, value []byte, version int, timestamp int64) error
	GetStatus() (schema.CacheStatus, error)
	Close() error
}

// AnalysisStore defines the interface for tracking compute runs.
type AnalysisStore interface {
	// BeginAnalysis creates a new run in the running state and returns its unique ID
	BeginAnalysis(startTime time.Time, repoPath, filePattern string, configParams map[string]any) (int64, error)

	// EndAnalysis records the terminal state of a run
	EndAnalysis(analysisID int64, summary schema.RunSummary) error

	// GetStatus returns status information about the analysis store
	GetStatus() (schema.AnalysisStatus, error)

	// GetAllAnalysisRuns returns every recorded run ordered by ID
	GetAllAnalysisRuns() ([]schema.AnalysisRunRecord, error)

	// Close closes the underlying connection
	Close() error
}
