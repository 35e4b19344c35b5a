package contract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"github.com/huangsam/xrays/schema"
)

// Default values for configuration.
const (
	DefaultFilePattern    = ".*"
	DefaultRevisionCutoff = 10
	DefaultCouplingCutoff = 10
	DefaultResultLimit    = 25
	MaxResultLimit        = 10000
	DefaultPrecision      = 3
)

// DefaultWorkers is the default number of concurrent workers to use.
var DefaultWorkers = runtime.GOMAXPROCS(0)

// ProfileConfig holds profiling settings.
type ProfileConfig struct {
	Enabled bool
	Prefix  string
}

// Config holds the runtime configuration for compute runs and queries.
// This struct remains the "final, validated" config.
type Config struct {
	RepoPath    string // repository root
	PathPrefix  string // set when a subdirectory of the repository was given
	DataDir     string
	DataFile    string // absolute path of the record table
	FilePattern string

	PathFilter     string
	RevisionCutoff int
	CouplingCutoff int
	MaxCommitFiles int
	Symmetric      bool
	ResultLimit    int

	Workers        int
	GitBackend     schema.GitBackend
	MetricsBackend schema.MetricsBackend

	Precision  int
	Output     schema.OutputMode
	OutputFile string
	Width      int // Terminal width override (0 = auto-detect)

	CacheBackend   schema.DatabaseBackend
	CacheDBConnect string // Please use env var as this is plaintext

	AnalysisBackend   schema.DatabaseBackend
	AnalysisDBConnect string // Please use env var as this is plaintext

	UseColors    bool // Enable colored labels in table output
	ShowProgress bool // Render a progress bar while building
}

// ConfigRawInput holds the raw inputs from all sources (flags, env, config file).
// Viper unmarshals into this struct.
type ConfigRawInput struct {
	// These are set manually from positional args, so no tag
	RepoPathStr string
	DataDirStr  string

	// --- Fields from rootCmd.PersistentFlags() ---
	Filter            string `mapstructure:"filter"`
	Limit             int    `mapstructure:"limit"`
	Output            string `mapstructure:"output"`
	OutputFile        string `mapstructure:"output-file"`
	Precision         int    `mapstructure:"precision"`
	Width             int    `mapstructure:"width"`
	Color             string `mapstructure:"color"`
	DataFile          string `mapstructure:"data-file"`
	CacheBackend      string `mapstructure:"cache-backend"`
	CacheDBConnect    string `mapstructure:"cache-db-connect"`
	AnalysisBackend   string `mapstructure:"analysis-backend"`
	AnalysisDBConnect string `mapstructure:"analysis-db-connect"`

	// --- Fields from computeCmd.Flags() ---
	FilePattern    string `mapstructure:"file-pattern"`
	Workers        int    `mapstructure:"workers"`
	GitBackend     string `mapstructure:"git-backend"`
	MetricsBackend string `mapstructure:"metrics-backend"`
	Progress       string `mapstructure:"progress"`

	// --- Fields from hotspotsCmd and couplingCmd flags ---
	RevisionCutoff int  `mapstructure:"revision-cutoff"`
	CouplingCutoff int  `mapstructure:"coupling-cutoff"`
	MaxCommitFiles int  `mapstructure:"max-commit-files"`
	Symmetric      bool `mapstructure:"symmetric"`
}

// Clone returns a copy of the Config struct.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// ProcessAndValidate performs all complex parsing and validation on the raw inputs
// and updates the final Config struct. The git client is only consulted when a
// repository path was given.
func ProcessAndValidate(ctx context.Context, cfg *Config, client GitClient, input *ConfigRawInput) error {
	if err := validateSimpleInputs(cfg, input); err != nil {
		return err
	}
	if err := validateBackendConfigs(cfg, input); err != nil {
		return err
	}
	if err := resolveDataPaths(cfg, input); err != nil {
		return err
	}
	if input.RepoPathStr != "" {
		if err := resolveGitPath(ctx, cfg, client, input); err != nil {
			return err
		}
	}
	return nil
}

// ValidateDatabaseConnectionString validates the format of database connection strings
// for MySQL and PostgreSQL backends.
func ValidateDatabaseConnectionString(backend schema.DatabaseBackend, connStr string) error {
	switch backend {
	case schema.SQLiteBackend, schema.NoneBackend:
		return nil
	case schema.MySQLBackend:
		if connStr == "" {
			return fmt.Errorf("a connection string is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "@tcp(") {
			return fmt.Errorf("MySQL connection string must contain '@tcp(' for host:port specification")
		}
		if !strings.Contains(connStr, "/") {
			return fmt.Errorf("MySQL connection string must contain '/' followed by database name")
		}
	case schema.PostgreSQLBackend:
		if connStr == "" {
			return fmt.Errorf("a connection string is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "host=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'host=' parameter")
		}
		if !strings.Contains(connStr, "dbname=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'dbname=' parameter")
		}
	}
	return nil
}

// validateSimpleInputs processes and validates all non-path related fields.
func validateSimpleInputs(cfg *Config, input *ConfigRawInput) error {
	cfg.OutputFile = input.OutputFile
	cfg.Width = input.Width
	cfg.Symmetric = input.Symmetric

	colors, err := ParseBoolString(input.Color)
	if err != nil {
		return fmt.Errorf("invalid --color value: %w", err)
	}
	cfg.UseColors = colors

	progress, err := ParseBoolString(input.Progress)
	if err != nil {
		return fmt.Errorf("invalid --progress value: %w", err)
	}
	cfg.ShowProgress = progress

	// --- 1. Regular expressions ---
	cfg.FilePattern = input.FilePattern
	if cfg.FilePattern == "" {
		cfg.FilePattern = DefaultFilePattern
	}
	if _, err := regexp.Compile(cfg.FilePattern); err != nil {
		return fmt.Errorf("invalid --file-pattern %q: %w", cfg.FilePattern, err)
	}
	cfg.PathFilter = input.Filter
	if _, err := regexp.Compile(cfg.PathFilter); err != nil {
		return fmt.Errorf("invalid --filter %q: %w", cfg.PathFilter, err)
	}

	// --- 2. Cutoffs and limits ---
	if input.RevisionCutoff < 0 {
		return fmt.Errorf("revision-cutoff cannot be negative (received %d)", input.RevisionCutoff)
	}
	cfg.RevisionCutoff = input.RevisionCutoff
	if input.CouplingCutoff < 0 {
		return fmt.Errorf("coupling-cutoff cannot be negative (received %d)", input.CouplingCutoff)
	}
	cfg.CouplingCutoff = input.CouplingCutoff
	if input.MaxCommitFiles < 0 {
		return fmt.Errorf("max-commit-files cannot be negative (received %d)", input.MaxCommitFiles)
	}
	cfg.MaxCommitFiles = input.MaxCommitFiles
	if input.Limit <= 0 || input.Limit > MaxResultLimit {
		return fmt.Errorf("limit must be greater than 0 and cannot exceed %d (received %d)", MaxResultLimit, input.Limit)
	}
	cfg.ResultLimit = input.Limit

	// --- 3. Workers Validation ---
	if input.Workers <= 0 {
		return fmt.Errorf("workers must be greater than 0 (received %d)", input.Workers)
	}
	cfg.Workers = input.Workers

	// --- 4. Collaborator backends ---
	cfg.GitBackend = schema.GitBackend(strings.ToLower(input.GitBackend))
	if cfg.GitBackend == "" {
		cfg.GitBackend = schema.ExecGitBackend
	}
	if _, ok := schema.ValidGitBackends[cfg.GitBackend]; !ok {
		return fmt.Errorf("invalid git backend '%s'. must be exec, gogit", input.GitBackend)
	}
	cfg.MetricsBackend = schema.MetricsBackend(strings.ToLower(input.MetricsBackend))
	if cfg.MetricsBackend == "" {
		cfg.MetricsBackend = schema.NativeMetricsBackend
	}
	if _, ok := schema.ValidMetricsBackends[cfg.MetricsBackend]; !ok {
		return fmt.Errorf("invalid metrics backend '%s'. must be native, cloc", input.MetricsBackend)
	}

	// --- 5. Precision and Output Validation ---
	if input.Precision < 1 || input.Precision > 6 {
		return fmt.Errorf("precision must be between 1 and 6 (received %d)", input.Precision)
	}
	cfg.Precision = input.Precision

	cfg.Output = schema.OutputMode(strings.ToLower(input.Output))
	if _, ok := schema.ValidOutputModes[cfg.Output]; !ok {
		return fmt.Errorf("invalid output format '%s'. must be text, csv, json, parquet", cfg.Output)
	}
	if cfg.Output == schema.ParquetOut && cfg.OutputFile == "" {
		return fmt.Errorf("--output-file is required when --output is parquet")
	}

	return nil
}

// validateBackendConfigs validates cache and analysis backend configurations.
func validateBackendConfigs(cfg *Config, input *ConfigRawInput) error {
	// --- Cache Backend Validation ---
	cfg.CacheBackend = schema.DatabaseBackend(strings.ToLower(input.CacheBackend))
	if cfg.CacheBackend == "" {
		cfg.CacheBackend = schema.NoneBackend
	}
	if _, ok := schema.ValidDatabaseBackends[cfg.CacheBackend]; !ok {
		return fmt.Errorf("invalid cache backend '%s'. must be sqlite, mysql, postgresql, none", input.CacheBackend)
	}
	cfg.CacheDBConnect = input.CacheDBConnect
	if err := ValidateDatabaseConnectionString(cfg.CacheBackend, cfg.CacheDBConnect); err != nil {
		return err
	}

	// --- Analysis Backend Validation ---
	cfg.AnalysisBackend = schema.DatabaseBackend(strings.ToLower(input.AnalysisBackend))
	if cfg.AnalysisBackend == "" {
		return nil
	}
	if _, ok := schema.ValidDatabaseBackends[cfg.AnalysisBackend]; !ok {
		return fmt.Errorf("invalid analysis backend '%s'. must be sqlite, mysql, postgresql, none", input.AnalysisBackend)
	}
	cfg.AnalysisDBConnect = input.AnalysisDBConnect
	if err := ValidateDatabaseConnectionString(cfg.AnalysisBackend, cfg.AnalysisDBConnect); err != nil {
		return err
	}

	// Validate that cache and analysis use different databases
	if cfg.CacheBackend == cfg.AnalysisBackend && cfg.CacheBackend != schema.NoneBackend {
		if cfg.CacheBackend == schema.SQLiteBackend {
			cacheDBPath := cfg.CacheDBConnect
			if cacheDBPath == "" {
				cacheDBPath = GetCacheDBFilePath()
			}
			analysisDBPath := cfg.AnalysisDBConnect
			if analysisDBPath == "" {
				analysisDBPath = GetAnalysisDBFilePath()
			}
			if cacheDBPath == analysisDBPath {
				return fmt.Errorf("cache and analysis storage must use different SQLite database files. Both resolve to %q", cacheDBPath)
			}
		} else if cfg.CacheDBConnect == cfg.AnalysisDBConnect {
			return fmt.Errorf("cache and analysis storage must use different %s databases", cfg.CacheBackend)
		}
	}
	return nil
}

// resolveDataPaths resolves the data directory and the record table path.
func resolveDataPaths(cfg *Config, input *ConfigRawInput) error {
	name := input.DataFile
	if name == "" {
		name = schema.DefaultDataFile
	}
	if filepath.Base(name) != name {
		return fmt.Errorf("data-file must be a file name, not a path (received %q)", name)
	}
	if input.DataDirStr == "" {
		return nil
	}
	dir, err := filepath.Abs(input.DataDirStr)
	if err != nil {
		return err
	}
	cfg.DataDir = filepath.Clean(dir)
	cfg.DataFile = filepath.Join(cfg.DataDir, name)
	return nil
}

// resolveGitPath resolves the Git repository root. When the given path is a
// subdirectory, its repository-relative prefix restricts the files built.
func resolveGitPath(ctx context.Context, cfg *Config, client GitClient, input *ConfigRawInput) error {
	absSearchPath, err := filepath.Abs(input.RepoPathStr)
	if err != nil {
		return err
	}
	absSearchPath = filepath.Clean(absSearchPath)

	info, err := os.Stat(absSearchPath)
	if err != nil {
		return fmt.Errorf("repository path %q: %w", input.RepoPathStr, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("repository path %q is not a directory", input.RepoPathStr)
	}

	gitRoot, err := client.GetRepoRoot(ctx, absSearchPath)
	if err != nil {
		return err
	}
	cfg.RepoPath = gitRoot

	if resolved, err := filepath.EvalSymlinks(absSearchPath); err == nil {
		absSearchPath = resolved
	}
	if resolved, err := filepath.EvalSymlinks(gitRoot); err == nil {
		gitRoot = resolved
	}
	if absSearchPath != gitRoot {
		relativePath, err := filepath.Rel(gitRoot, absSearchPath)
		if err != nil {
			return err
		}
		if relativePath != "." {
			cfg.PathPrefix = strings.ReplaceAll(relativePath, string(os.PathSeparator), "/") + "/"
		}
	}
	return nil
}

// ProcessProfilingConfig enables profiling when a prefix is given.
func ProcessProfilingConfig(profile *ProfileConfig, profilePrefix string) error {
	if profilePrefix != "" {
		profile.Enabled = true
		profile.Prefix = profilePrefix
	}
	return nil
}
