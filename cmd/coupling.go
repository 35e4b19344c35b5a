package cmd

import (
	"github.com/huangsam/xrays/core"
	"github.com/spf13/cobra"
)

// couplingCmd lists files that change together.
var couplingCmd = &cobra.Command{
	Use:   "coupling DATA_DIR",
	Short: "List pairs of files that change together.",
	Long: `Count, for every pair of files matching --filter, the commits that touched
both. Pairs sharing fewer than --coupling-cutoff commits are left out.

Large sweeping commits (formatting, license headers, vendoring) couple
everything with everything; --max-commit-files skips commits touching more
files than the cap and reports how many were skipped.

Examples:
  # Pairs sharing at least 10 commits
  xrays coupling ./data

  # Ignore commits that touch more than 30 files
  xrays coupling ./data --max-commit-files 30

  # Both orderings, for heatmaps
  xrays coupling ./data --symmetric --output json --output-file coupling.json`,
	Args:    cobra.ExactArgs(1),
	PreRunE: querySetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		return core.ExecuteCoupling(rootCtx, cfg, cacheManager)
	},
}
