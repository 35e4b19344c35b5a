package contract

import (
	"context"

	"github.com/huangsam/xrays/schema"
	"github.com/stretchr/testify/mock"
)

// MockGitClient is a mock implementation of GitClient for testing.
type MockGitClient struct {
	mock.Mock
}

var _ GitClient = &MockGitClient{} // Compile-time check

// Run implements the GitClient interface.
func (m *MockGitClient) Run(ctx context.Context, repoPath string, args ...string) ([]byte, error) {
	mockArgs := []any{ctx, repoPath}
	for _, arg := range args {
		mockArgs = append(mockArgs, arg)
	}
	ret := m.Called(mockArgs...)
	output, _ := ret.Get(0).([]byte)
	return output, ret.Error(1)
}

// GetRepoRoot implements the GitClient interface.
func (m *MockGitClient) GetRepoRoot(ctx context.Context, contextPath string) (string, error) {
	ret := m.Called(ctx, contextPath)
	return ret.String(0), ret.Error(1)
}

// GetRepoHash implements the GitClient interface.
func (m *MockGitClient) GetRepoHash(ctx context.Context, repoPath string) (string, error) {
	ret := m.Called(ctx, repoPath)
	return ret.String(0), ret.Error(1)
}

// ListFiles implements the GitClient interface.
func (m *MockGitClient) ListFiles(ctx context.Context, repoPath string) ([]string, error) {
	ret := m.Called(ctx, repoPath)
	files, _ := ret.Get(0).([]string)
	return files, ret.Error(1)
}

// GetFileHistory implements the GitClient interface.
func (m *MockGitClient) GetFileHistory(ctx context.Context, repoPath string, path string) ([]schema.CommitSnapshot, error) {
	ret := m.Called(ctx, repoPath, path)
	history, _ := ret.Get(0).([]schema.CommitSnapshot)
	return history, ret.Error(1)
}

// GetFileSnapshot implements the GitClient interface.
func (m *MockGitClient) GetFileSnapshot(ctx context.Context, repoPath string, commit string, name string) ([]byte, error) {
	ret := m.Called(ctx, repoPath, commit, name)
	content, _ := ret.Get(0).([]byte)
	return content, ret.Error(1)
}

// MockMetricsCounter is a mock implementation of MetricsCounter for testing.
type MockMetricsCounter struct {
	mock.Mock
}

var _ MetricsCounter = &MockMetricsCounter{} // Compile-time check

// Backend implements the MetricsCounter interface.
func (m *MockMetricsCounter) Backend() schema.MetricsBackend {
	return schema.MetricsBackend("mock")
}

// Count implements the MetricsCounter interface.
func (m *MockMetricsCounter) Count(ctx context.Context, name string, content []byte) (schema.SnapshotMetrics, error) {
	ret := m.Called(ctx, name, content)
	metrics, _ := ret.Get(0).(schema.SnapshotMetrics)
	return metrics, ret.Error(1)
}
