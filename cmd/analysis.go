package cmd

import (
	"fmt"
	"os"

	"github.com/huangsam/xrays/internal/contract"
	"github.com/huangsam/xrays/internal/iocache"
	"github.com/huangsam/xrays/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// analysisBackendConfig reads and validates the analysis backend settings.
// An unset backend means none.
func analysisBackendConfig() (schema.DatabaseBackend, string, error) {
	if err := loadConfigFile(); err != nil {
		return "", "", err
	}
	backend := schema.DatabaseBackend(viper.GetString("analysis-backend"))
	if backend == "" {
		backend = schema.NoneBackend
	}
	connStr := viper.GetString("analysis-db-connect")
	if err := contract.ValidateDatabaseConnectionString(backend, connStr); err != nil {
		return "", "", err
	}
	return backend, connStr, nil
}

// analysisSetup loads minimal configuration needed for analysis operations.
// This is used by commands that need analysis access without full shared setup.
func analysisSetup() error {
	backend, connStr, err := analysisBackendConfig()
	if err != nil {
		return err
	}

	// Initialize stores with the loaded config (no cache for analysis commands)
	if err := iocache.InitStores("", "", backend, connStr); err != nil {
		return fmt.Errorf("failed to initialize analysis: %w", err)
	}

	cfg.AnalysisBackend = backend
	cfg.AnalysisDBConnect = connStr
	cfg.OutputFile = viper.GetString("output-file")
	return nil
}

// analysisSetupWrapper wraps analysisSetup to provide PreRunE for analysis commands.
func analysisSetupWrapper(_ *cobra.Command, _ []string) error {
	return analysisSetup()
}

// analysisMigrateSetup loads the backend settings without opening the store,
// since opening it already migrates to the latest version.
func analysisMigrateSetup(_ *cobra.Command, _ []string) error {
	backend, connStr, err := analysisBackendConfig()
	if err != nil {
		return err
	}
	cfg.AnalysisBackend = backend
	cfg.AnalysisDBConnect = connStr
	return nil
}

// analysisCmd focused on run tracking data management.
//
// Note: Analysis subcommands use minimal initialization (analysisSetup) instead of
// the full sharedSetup used by compute. This avoids Git repo validation
// and complex config processing for simple analysis operations.
var analysisCmd = &cobra.Command{
	Use:   "analysis",
	Short: "Manage compute run tracking and exports",
	Long: `Manage the history of compute runs.

When --analysis-backend is set, every compute run is recorded with:
- Repository, file pattern and configuration
- Start time, end time and duration
- Status (running, complete, failed, cancelled) and error message
- Number of files and records built

Supported backends: SQLite, MySQL, PostgreSQL, or None (disabled)

Subcommands:
  status  - Show run tracking statistics
  export  - Export runs to Parquet for analytics
  clear   - Remove all tracking data
  migrate - Run database schema migrations

Examples:
  # Check tracking status
  xrays analysis status --analysis-backend sqlite

  # Export for analysis in pandas/DuckDB
  xrays analysis export --analysis-backend sqlite --output-file runs.parquet`,
}

// analysisClearCmd clears the analysis data.
var analysisClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all compute run tracking data",
	Long: `Delete all stored compute runs and the schema version history.

WARNING: This action cannot be undone. Consider exporting data first.

Examples:
  # Export before clearing
  xrays analysis export --output-file backup.parquet
  xrays analysis clear`,
	PreRunE: analysisMigrateSetup,
	Run: func(_ *cobra.Command, _ []string) {
		path := storePath(cfg.AnalysisDBConnect, contract.GetAnalysisDBFilePath())
		if err := iocache.ClearAnalysis(cfg.AnalysisBackend, path, cfg.AnalysisDBConnect); err != nil {
			contract.LogFatal("Failed to clear analysis data", err)
		}
		fmt.Println("Analysis data cleared successfully.")
	},
}

// analysisStatusCmd shows analysis status.
var analysisStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display run tracking statistics and connection details",
	Long: `Show detailed information about compute run tracking.

Displays:
- Backend type and connection status
- Schema version and whether a newer one is available
- Total number of runs and records built
- Last and oldest run timestamps
- Runs grouped by status

Examples:
  # Check run tracking status
  xrays analysis status --analysis-backend sqlite`,
	PreRunE: analysisSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		status, err := iocache.Manager.GetAnalysisStore().GetStatus()
		if err != nil {
			contract.LogFatal("Failed to get analysis status", err)
		}
		iocache.PrintAnalysisStatus(os.Stdout, status)
	},
}

// analysisExportCmd exports analysis data to a Parquet file.
var analysisExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export compute runs to Parquet for BI tools and analytics",
	Long: `Export all recorded compute runs to a Parquet file.

Requires: --output-file parameter

Examples:
  # Export all runs
  xrays analysis export --output-file runs.parquet

  # Use with DuckDB for analysis
  duckdb -c "SELECT status, avg(run_duration_ms) FROM read_parquet('runs.parquet') GROUP BY status"`,
	PreRunE: analysisSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := iocache.ExportAnalysisRuns(os.Stdout, iocache.Manager.GetAnalysisStore(), cfg.OutputFile); err != nil {
			contract.LogFatal("Failed to export analysis data", err)
		}
	},
}

// analysisMigrateCmd runs database migrations for the analysis store.
var analysisMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database schema migrations (upgrades/downgrades)",
	Long: `Manage database schema versions for the run tracking store.

By default, migrates to the latest version. Use --target-version for specific versions.
Opening the store for a compute run also migrates to the latest version.

Examples:
  # Migrate to latest version (default)
  xrays analysis migrate --analysis-backend sqlite

  # Migrate to specific version
  xrays analysis migrate --analysis-backend sqlite --target-version 2

  # Rollback to initial state
  xrays analysis migrate --analysis-backend sqlite --target-version 0`,
	PreRunE: analysisMigrateSetup,
	Run: func(_ *cobra.Command, _ []string) {
		targetVersion := viper.GetInt("target-version")
		result, err := iocache.MigrateAnalysis(cfg.AnalysisBackend, cfg.AnalysisDBConnect, targetVersion)
		if err != nil {
			contract.LogFatal("Failed to run migrations", err)
		}
		if !result.Changed {
			fmt.Printf("Schema already at version %d.\n", result.To)
			return
		}
		fmt.Printf("Migrated schema from version %d to %d.\n", result.From, result.To)
	},
}
