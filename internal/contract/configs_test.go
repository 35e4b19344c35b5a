package contract

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/huangsam/xrays/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// validInput returns a raw input that passes validation without a repository.
func validInput() *ConfigRawInput {
	return &ConfigRawInput{
		Limit:          DefaultResultLimit,
		Workers:        4,
		Precision:      DefaultPrecision,
		Output:         "text",
		Color:          "yes",
		Progress:       "no",
		RevisionCutoff: DefaultRevisionCutoff,
		CouplingCutoff: DefaultCouplingCutoff,
	}
}

// resolvedTempDir returns a temp dir with symlinks resolved (macOS /var vs /private/var).
func resolvedTempDir(t *testing.T) string {
	t.Helper()
	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	return dir
}

func TestProcessAndValidate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*ConfigRawInput)
		expectError string
	}{
		{name: "valid minimal config", mutate: func(*ConfigRawInput) {}},
		{
			name:        "invalid file pattern",
			mutate:      func(in *ConfigRawInput) { in.FilePattern = "src/(" },
			expectError: "invalid --file-pattern",
		},
		{
			name:        "invalid filter",
			mutate:      func(in *ConfigRawInput) { in.Filter = "[z-a]" },
			expectError: "invalid --filter",
		},
		{
			name:        "negative revision cutoff",
			mutate:      func(in *ConfigRawInput) { in.RevisionCutoff = -1 },
			expectError: "revision-cutoff cannot be negative",
		},
		{
			name:        "negative coupling cutoff",
			mutate:      func(in *ConfigRawInput) { in.CouplingCutoff = -1 },
			expectError: "coupling-cutoff cannot be negative",
		},
		{
			name:        "negative commit file cap",
			mutate:      func(in *ConfigRawInput) { in.MaxCommitFiles = -3 },
			expectError: "max-commit-files cannot be negative",
		},
		{
			name:        "invalid limit (zero)",
			mutate:      func(in *ConfigRawInput) { in.Limit = 0 },
			expectError: "limit must be greater than 0",
		},
		{
			name:        "invalid limit (too large)",
			mutate:      func(in *ConfigRawInput) { in.Limit = MaxResultLimit + 1 },
			expectError: "cannot exceed",
		},
		{
			name:        "invalid workers",
			mutate:      func(in *ConfigRawInput) { in.Workers = 0 },
			expectError: "workers must be greater than 0",
		},
		{
			name:        "invalid git backend",
			mutate:      func(in *ConfigRawInput) { in.GitBackend = "svn" },
			expectError: "invalid git backend",
		},
		{
			name:        "invalid metrics backend",
			mutate:      func(in *ConfigRawInput) { in.MetricsBackend = "tokei" },
			expectError: "invalid metrics backend",
		},
		{
			name:        "invalid precision",
			mutate:      func(in *ConfigRawInput) { in.Precision = 7 },
			expectError: "precision must be between 1 and 6",
		},
		{
			name:        "invalid output",
			mutate:      func(in *ConfigRawInput) { in.Output = "xml" },
			expectError: "invalid output format",
		},
		{
			name:        "parquet output needs a file",
			mutate:      func(in *ConfigRawInput) { in.Output = "parquet" },
			expectError: "--output-file is required",
		},
		{
			name:        "invalid color value",
			mutate:      func(in *ConfigRawInput) { in.Color = "maybe" },
			expectError: "invalid --color value",
		},
		{
			name:        "invalid cache backend",
			mutate:      func(in *ConfigRawInput) { in.CacheBackend = "redis" },
			expectError: "invalid cache backend",
		},
		{
			name: "mysql cache without connection string",
			mutate: func(in *ConfigRawInput) {
				in.CacheBackend = "mysql"
			},
			expectError: "connection string is required",
		},
		{
			name: "same sqlite database for cache and analysis",
			mutate: func(in *ConfigRawInput) {
				in.CacheBackend = "sqlite"
				in.AnalysisBackend = "sqlite"
			},
			expectError: "different SQLite database files",
		},
		{
			name:        "data file with directories",
			mutate:      func(in *ConfigRawInput) { in.DataFile = "nested/table.parquet" },
			expectError: "data-file must be a file name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := validInput()
			tt.mutate(input)
			cfg := &Config{}
			mockClient := new(MockGitClient)

			err := ProcessAndValidate(context.Background(), cfg, mockClient, input)
			if tt.expectError != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectError)
				return
			}
			require.NoError(t, err)
			mockClient.AssertNotCalled(t, "GetRepoRoot", mock.Anything, mock.Anything)
		})
	}
}

func TestProcessAndValidate_Defaults(t *testing.T) {
	cfg := &Config{}
	input := validInput()
	input.DataDirStr = "."

	require.NoError(t, ProcessAndValidate(context.Background(), cfg, new(MockGitClient), input))

	assert.Equal(t, DefaultFilePattern, cfg.FilePattern)
	assert.Equal(t, schema.ExecGitBackend, cfg.GitBackend)
	assert.Equal(t, schema.NativeMetricsBackend, cfg.MetricsBackend)
	assert.Equal(t, schema.NoneBackend, cfg.CacheBackend)
	assert.True(t, cfg.UseColors)
	assert.False(t, cfg.ShowProgress)

	wd, err := os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, wd, cfg.DataDir)
	assert.Equal(t, filepath.Join(wd, schema.DefaultDataFile), cfg.DataFile)
}

func TestProcessAndValidate_RepositoryPath(t *testing.T) {
	ctx := context.Background()

	t.Run("repository root", func(t *testing.T) {
		root := resolvedTempDir(t)
		mockClient := new(MockGitClient)
		mockClient.On("GetRepoRoot", ctx, root).Return(root, nil).Once()

		cfg := &Config{}
		input := validInput()
		input.RepoPathStr = root
		require.NoError(t, ProcessAndValidate(ctx, cfg, mockClient, input))

		assert.Equal(t, root, cfg.RepoPath)
		assert.Empty(t, cfg.PathPrefix)
		mockClient.AssertExpectations(t)
	})

	t.Run("subdirectory sets a prefix", func(t *testing.T) {
		root := resolvedTempDir(t)
		sub := filepath.Join(root, "pkg", "core")
		require.NoError(t, os.MkdirAll(sub, 0o755))
		mockClient := new(MockGitClient)
		mockClient.On("GetRepoRoot", ctx, sub).Return(root, nil).Once()

		cfg := &Config{}
		input := validInput()
		input.RepoPathStr = sub
		require.NoError(t, ProcessAndValidate(ctx, cfg, mockClient, input))

		assert.Equal(t, root, cfg.RepoPath)
		assert.Equal(t, "pkg/core/", cfg.PathPrefix)
	})

	t.Run("missing path", func(t *testing.T) {
		input := validInput()
		input.RepoPathStr = filepath.Join(t.TempDir(), "missing")
		err := ProcessAndValidate(ctx, &Config{}, new(MockGitClient), input)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("regular file", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "file.txt")
		require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
		input := validInput()
		input.RepoPathStr = file
		err := ProcessAndValidate(ctx, &Config{}, new(MockGitClient), input)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "is not a directory")
	})

	t.Run("not a repository", func(t *testing.T) {
		root := resolvedTempDir(t)
		mockClient := new(MockGitClient)
		mockClient.On("GetRepoRoot", ctx, root).Return("", errors.New("not a git repository")).Once()

		input := validInput()
		input.RepoPathStr = root
		err := ProcessAndValidate(ctx, &Config{}, mockClient, input)
		assert.EqualError(t, err, "not a git repository")
	})
}

func TestValidateDatabaseConnectionString(t *testing.T) {
	tests := []struct {
		name    string
		backend schema.DatabaseBackend
		connStr string
		wantErr bool
	}{
		{"sqlite empty", schema.SQLiteBackend, "", false},
		{"none empty", schema.NoneBackend, "", false},
		{"mysql valid", schema.MySQLBackend, "user:pass@tcp(localhost:3306)/xrays", false},
		{"mysql missing tcp", schema.MySQLBackend, "user:pass@localhost/xrays", true},
		{"postgres valid", schema.PostgreSQLBackend, "host=localhost port=5432 dbname=xrays", false},
		{"postgres missing dbname", schema.PostgreSQLBackend, "host=localhost", true},
		{"postgres empty", schema.PostgreSQLBackend, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDatabaseConnectionString(tt.backend, tt.connStr)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfigClone(t *testing.T) {
	original := &Config{RepoPath: "/repo", ResultLimit: 5}
	clone := original.Clone()
	clone.ResultLimit = 50
	assert.Equal(t, 5, original.ResultLimit)
	assert.Equal(t, "/repo", clone.RepoPath)
}
