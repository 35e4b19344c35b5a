// Package cmd defines the command-line interface for xrays.
package cmd

import (
	"github.com/huangsam/xrays/internal/contract"
	"github.com/huangsam/xrays/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

func init() {
	// Call initConfig on Cobra's initialization
	cobra.OnInitialize(initConfig)

	// Add primary subcommands to the root command
	rootCmd.AddCommand(computeCmd)
	rootCmd.AddCommand(hotspotsCmd)
	rootCmd.AddCommand(couplingCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(analysisCmd)

	// Add the cache subcommands to the parent cache command
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheStatusCmd)

	// Add the analysis subcommands to the parent analysis command
	analysisCmd.AddCommand(analysisClearCmd)
	analysisCmd.AddCommand(analysisStatusCmd)
	analysisCmd.AddCommand(analysisExportCmd)
	analysisCmd.AddCommand(analysisMigrateCmd)

	// Bind all persistent flags of rootCmd to Viper
	rootCmd.PersistentFlags().StringP("filter", "f", "", "Regular expression selecting file paths to query")
	rootCmd.PersistentFlags().IntP("limit", "l", contract.DefaultResultLimit, "Number of results to display")
	rootCmd.PersistentFlags().String("output", string(schema.TextOut), "Output format: text or csv or json or parquet")
	rootCmd.PersistentFlags().String("output-file", "", "Optional path to write output to")
	rootCmd.PersistentFlags().Int("precision", contract.DefaultPrecision, "Decimal precision for numeric columns")
	rootCmd.PersistentFlags().Int("width", 0, "Terminal width override (0 = auto-detect)")
	rootCmd.PersistentFlags().String("color", "yes", "Enable colored labels in output (yes/no/true/false/1/0)")
	rootCmd.PersistentFlags().String("data-file", schema.DefaultDataFile, "Record table file name inside DATA_DIR")
	rootCmd.PersistentFlags().String("cache-backend", string(schema.SQLiteBackend), "Snapshot metrics cache backend: sqlite or mysql or postgresql or none")
	rootCmd.PersistentFlags().String("cache-db-connect", "", "Database connection string for mysql/postgresql (e.g., user:pass@tcp(host:port)/dbname)")
	rootCmd.PersistentFlags().String("analysis-backend", "", "Run tracking backend: sqlite or mysql or postgresql or none")
	rootCmd.PersistentFlags().String("analysis-db-connect", "", "Database connection string for run tracking (must differ from cache-db-connect)")
	rootCmd.PersistentFlags().String("profile", "", "Enable profiling and write profiles to files with this prefix")
	rootCmd.PersistentFlags().String("config", "", "Path to config file")
	bindFlags("root", rootCmd.PersistentFlags())

	// Bind all flags of computeCmd to Viper
	computeCmd.Flags().String("file-pattern", contract.DefaultFilePattern, "Regular expression a repository-relative path must fully match")
	computeCmd.Flags().Int("workers", contract.DefaultWorkers, "Number of concurrent workers")
	computeCmd.Flags().String("git-backend", string(schema.ExecGitBackend), "History collaborator: exec or gogit")
	computeCmd.Flags().String("metrics-backend", string(schema.NativeMetricsBackend), "Metrics collaborator: native or cloc")
	computeCmd.Flags().String("progress", "yes", "Show a progress bar on stderr (yes/no/true/false/1/0)")
	bindFlags("compute", computeCmd.Flags())

	// Bind all flags of hotspotsCmd to Viper
	hotspotsCmd.Flags().Int("revision-cutoff", contract.DefaultRevisionCutoff, "Minimum number of commits a file needs to be listed")
	bindFlags("hotspots", hotspotsCmd.Flags())

	// Bind all flags of couplingCmd to Viper
	couplingCmd.Flags().Int("coupling-cutoff", contract.DefaultCouplingCutoff, "Minimum number of shared commits for a pair to be listed")
	couplingCmd.Flags().Int("max-commit-files", 0, "Skip commits touching more than this many files (0 disables the cap)")
	couplingCmd.Flags().Bool("symmetric", false, "List both orderings of every pair")
	bindFlags("coupling", couplingCmd.Flags())

	// Bind all flags of analysisMigrateCmd to Viper
	analysisMigrateCmd.Flags().Int("target-version", -1, "Target migration version (-1 means latest, 0 means rollback to initial state)")
	bindFlags("analysis migrate", analysisMigrateCmd.Flags())
}

func bindFlags(name string, flags *pflag.FlagSet) {
	if err := viper.BindPFlags(flags); err != nil {
		contract.LogFatal("Error binding "+name+" flags", err)
	}
}
