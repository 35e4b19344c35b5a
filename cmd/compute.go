package cmd

import (
	"github.com/huangsam/xrays/core"
	"github.com/spf13/cobra"
)

// computeCmd builds the record table.
var computeCmd = &cobra.Command{
	Use:   "compute GIT_ROOT DATA_DIR",
	Short: "Build the record table for a repository.",
	Long: `Walk the full history of every tracked file matching --file-pattern and
measure each version of it. The result is written to DATA_DIR/hotspots.parquet,
one row per file and commit, and replaces any previous table only on success.

When GIT_ROOT is a subdirectory of a repository, only files below it are built.
Snapshot metrics are cached by commit and path, so repeated runs over the same
history skip re-measuring.

Examples:
  # Build a table for every tracked file
  xrays compute ~/src/project ./data

  # Only Python sources, eight workers
  xrays compute --file-pattern '.*\.py' --workers 8 ~/src/project ./data

  # Track the run in a SQLite analysis store
  xrays compute --analysis-backend sqlite ~/src/project ./data`,
	Args: cobra.ExactArgs(2),
	PreRunE: func(_ *cobra.Command, args []string) error {
		return sharedSetup(rootCtx, args[0], args[1], true)
	},
	RunE: func(_ *cobra.Command, _ []string) error {
		return core.ExecuteCompute(rootCtx, cfg, cacheManager)
	},
}
