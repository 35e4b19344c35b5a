package core

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/huangsam/xrays/internal/contract"
	"github.com/huangsam/xrays/internal/iocache"
	"github.com/huangsam/xrays/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var when0 = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func snapshot(commit string, days int, name string) schema.CommitSnapshot {
	when := when0.AddDate(0, 0, days)
	return schema.CommitSnapshot{Commit: commit, AuthorDate: when, CommitDate: when, SnapshotName: name}
}

func builderConfig() *contract.Config {
	return &contract.Config{RepoPath: "/repo", FilePattern: ".*", Workers: 2}
}

func TestMatchingFiles(t *testing.T) {
	tracked := []string{"src/b.py", "src/a.py", "docs/readme.md", "src/sub/c.py", "xsrc/d.py"}

	tests := []struct {
		name     string
		pattern  string
		prefix   string
		expected []string
	}{
		{"all", ".*", "", []string{"docs/readme.md", "src/a.py", "src/b.py", "src/sub/c.py", "xsrc/d.py"}},
		{"full match only", `.*\.py`, "", []string{"src/a.py", "src/b.py", "src/sub/c.py", "xsrc/d.py"}},
		{"anchored", `src/[^/]*\.py`, "", []string{"src/a.py", "src/b.py"}},
		{"path prefix", ".*", "src/", []string{"src/a.py", "src/b.py", "src/sub/c.py"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &contract.MockGitClient{}
			client.On("ListFiles", mock.Anything, "/repo").Return(tracked, nil)
			cfg := builderConfig()
			cfg.FilePattern = tt.pattern
			cfg.PathPrefix = tt.prefix

			files, err := NewRecordBuilder(cfg, client, nil, nil).MatchingFiles(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.expected, files)
		})
	}

	t.Run("no match", func(t *testing.T) {
		client := &contract.MockGitClient{}
		client.On("ListFiles", mock.Anything, "/repo").Return(tracked, nil)
		cfg := builderConfig()
		cfg.FilePattern = `.*\.rs`

		_, err := NewRecordBuilder(cfg, client, nil, nil).MatchingFiles(context.Background())
		require.ErrorIs(t, err, schema.ErrEmptyResult)
		var emptyErr *schema.EmptyResultError
		require.ErrorAs(t, err, &emptyErr)
		assert.Equal(t, 5, emptyErr.Tracked)
	})

	t.Run("list failure", func(t *testing.T) {
		client := &contract.MockGitClient{}
		client.On("ListFiles", mock.Anything, "/repo").Return(nil, assert.AnError)
		_, err := NewRecordBuilder(builderConfig(), client, nil, nil).MatchingFiles(context.Background())
		assert.ErrorIs(t, err, assert.AnError)
	})
}

func TestRecordBuilder_Build(t *testing.T) {
	client := &contract.MockGitClient{}
	client.On("ListFiles", mock.Anything, "/repo").Return([]string{"b.py", "a.py"}, nil)
	client.On("GetFileHistory", mock.Anything, "/repo", "a.py").Return([]schema.CommitSnapshot{
		snapshot("c3", 3, "a.py"),
		snapshot("c1", 1, "old_a.py"),
	}, nil)
	client.On("GetFileHistory", mock.Anything, "/repo", "b.py").Return([]schema.CommitSnapshot{
		snapshot("c2", 2, "b.py"),
	}, nil)
	client.On("GetFileSnapshot", mock.Anything, "/repo", "c3", "a.py").Return([]byte("a3"), nil)
	client.On("GetFileSnapshot", mock.Anything, "/repo", "c1", "old_a.py").Return([]byte("a1"), nil)
	client.On("GetFileSnapshot", mock.Anything, "/repo", "c2", "b.py").Return([]byte("b2"), nil)

	counter := &contract.MockMetricsCounter{}
	counter.On("Count", mock.Anything, "a.py", []byte("a3")).Return(schema.SnapshotMetrics{LinesCode: 30, LinesComment: 3, Indentation: 12}, nil)
	counter.On("Count", mock.Anything, "old_a.py", []byte("a1")).Return(schema.SnapshotMetrics{LinesCode: 10, Indentation: 4}, nil)
	counter.On("Count", mock.Anything, "b.py", []byte("b2")).Return(schema.SnapshotMetrics{LinesCode: 5}, nil)

	output, err := NewRecordBuilder(builderConfig(), client, counter, nil).Build(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"a.py", "b.py"}, output.Files)
	require.Len(t, output.Records, 3)
	assert.Equal(t, schema.FileRevisionRecord{
		File: "a.py", CommitFilename: "old_a.py", Commit: "c1",
		AuthorDate: when0.AddDate(0, 0, 1), CommitDate: when0.AddDate(0, 0, 1),
		Indentation: 4, LinesCode: 10,
	}, output.Records[0])
	assert.Equal(t, "c3", output.Records[1].Commit)
	assert.Equal(t, int64(3), output.Records[1].LinesComment)
	assert.Equal(t, "b.py", output.Records[2].File)

	client.AssertExpectations(t)
	counter.AssertExpectations(t)
}

func TestRecordBuilder_DeletedSnapshot(t *testing.T) {
	deleted := snapshot("c2", 2, "gone.py")
	deleted.Deleted = true

	client := &contract.MockGitClient{}
	client.On("ListFiles", mock.Anything, "/repo").Return([]string{"gone.py"}, nil)
	client.On("GetFileHistory", mock.Anything, "/repo", "gone.py").Return([]schema.CommitSnapshot{deleted}, nil)
	counter := &contract.MockMetricsCounter{}

	output, err := NewRecordBuilder(builderConfig(), client, counter, nil).Build(context.Background())
	require.NoError(t, err)
	require.Len(t, output.Records, 1)
	assert.Zero(t, output.Records[0].LinesCode)
	client.AssertNotCalled(t, "GetFileSnapshot", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	counter.AssertNotCalled(t, "Count", mock.Anything, mock.Anything, mock.Anything)
}

func TestRecordBuilder_HistoryError(t *testing.T) {
	historyErr := &schema.HistoryExtractionError{Op: "log", File: "a.py", Err: errors.New("exit status 128")}

	client := &contract.MockGitClient{}
	client.On("ListFiles", mock.Anything, "/repo").Return([]string{"a.py"}, nil)
	client.On("GetFileHistory", mock.Anything, "/repo", "a.py").Return(nil, historyErr)

	output, err := NewRecordBuilder(builderConfig(), client, &contract.MockMetricsCounter{}, nil).Build(context.Background())
	assert.Nil(t, output)
	var target *schema.HistoryExtractionError
	require.ErrorAs(t, err, &target)
	assert.Equal(t, "a.py", target.File)
}

func TestRecordBuilder_MetricsError(t *testing.T) {
	client := &contract.MockGitClient{}
	client.On("ListFiles", mock.Anything, "/repo").Return([]string{"a.py"}, nil)
	client.On("GetFileHistory", mock.Anything, "/repo", "a.py").Return([]schema.CommitSnapshot{snapshot("c1", 1, "a.py")}, nil)
	client.On("GetFileSnapshot", mock.Anything, "/repo", "c1", "a.py").Return([]byte("x"), nil)
	counter := &contract.MockMetricsCounter{}
	counter.On("Count", mock.Anything, "a.py", []byte("x")).Return(schema.SnapshotMetrics{}, assert.AnError)

	_, err := NewRecordBuilder(builderConfig(), client, counter, nil).Build(context.Background())
	var metricsErr *schema.MetricsExtractionError
	require.ErrorAs(t, err, &metricsErr)
	assert.Equal(t, "mock", metricsErr.Tool)
	assert.Equal(t, "a.py", metricsErr.File)
	assert.Equal(t, "c1", metricsErr.Commit)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestRecordBuilder_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := &contract.MockGitClient{}
	client.On("ListFiles", mock.Anything, "/repo").Return([]string{"a.py", "b.py"}, nil)

	output, err := NewRecordBuilder(builderConfig(), client, &contract.MockMetricsCounter{}, nil).Build(ctx)
	assert.Nil(t, output)
	assert.ErrorIs(t, err, context.Canceled)
	client.AssertNotCalled(t, "GetFileHistory", mock.Anything, mock.Anything, mock.Anything)
}

func TestRecordBuilder_MetricsCache(t *testing.T) {
	cached := schema.SnapshotMetrics{LinesCode: 7, Indentation: 3}
	cachedJSON, err := json.Marshal(cached)
	require.NoError(t, err)
	hitKey := metricsCacheKey("mock", "c1", "a.py")
	missKey := metricsCacheKey("mock", "c2", "a.py")

	store := &iocache.MockCacheStore{}
	store.On("Get", hitKey).Return(cachedJSON, metricsCacheVersion, int64(1), nil)
	store.On("Get", missKey).Return(nil, 0, int64(0), sql.ErrNoRows)
	store.On("Set", missKey, mock.Anything, metricsCacheVersion, mock.AnythingOfType("int64")).Return(nil)
	mgr := &iocache.MockCacheManager{}
	mgr.On("GetMetricsStore").Return(store)

	client := &contract.MockGitClient{}
	client.On("ListFiles", mock.Anything, "/repo").Return([]string{"a.py"}, nil)
	client.On("GetFileHistory", mock.Anything, "/repo", "a.py").Return([]schema.CommitSnapshot{
		snapshot("c2", 2, "a.py"),
		snapshot("c1", 1, "a.py"),
	}, nil)
	client.On("GetFileSnapshot", mock.Anything, "/repo", "c2", "a.py").Return([]byte("new"), nil)
	counter := &contract.MockMetricsCounter{}
	counter.On("Count", mock.Anything, "a.py", []byte("new")).Return(schema.SnapshotMetrics{LinesCode: 9}, nil)

	output, err := NewRecordBuilder(builderConfig(), client, counter, mgr).Build(context.Background())
	require.NoError(t, err)
	require.Len(t, output.Records, 2)
	assert.Equal(t, int64(7), output.Records[0].LinesCode)
	assert.Equal(t, int64(9), output.Records[1].LinesCode)

	client.AssertNotCalled(t, "GetFileSnapshot", mock.Anything, "/repo", "c1", "a.py")
	store.AssertExpectations(t)
}

func TestMetricsCacheKey(t *testing.T) {
	key := metricsCacheKey(schema.NativeMetricsBackend, "abc", "a.py")
	assert.Len(t, key, 64)
	assert.Equal(t, key, metricsCacheKey(schema.NativeMetricsBackend, "abc", "a.py"))
	assert.NotEqual(t, key, metricsCacheKey(schema.ClocMetricsBackend, "abc", "a.py"))
	assert.NotEqual(t, key, metricsCacheKey(schema.NativeMetricsBackend, "abc", "b.py"))
}

func TestLoadCachedMetrics_VersionMismatch(t *testing.T) {
	store := &iocache.MockCacheStore{}
	store.On("Get", "k").Return([]byte(`{"lines_code":1}`), metricsCacheVersion+1, int64(1), nil)
	_, ok := loadCachedMetrics(store, "k")
	assert.False(t, ok)

	_, ok = loadCachedMetrics(nil, "k")
	assert.False(t, ok)
}
