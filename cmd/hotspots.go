package cmd

import (
	"github.com/huangsam/xrays/core"
	"github.com/spf13/cobra"
)

// hotspotsCmd ranks files by urgency.
var hotspotsCmd = &cobra.Command{
	Use:   "hotspots DATA_DIR",
	Short: "Rank files by hotspot urgency.",
	Long: `Summarize the record table in DATA_DIR per file and rank by urgency.

Urgency multiplies the indentation of a file's latest version, relative to the
deepest file, by the square root of its revision count relative to the most
revised file. Both maxima are taken over the files matching --filter. Files
with fewer than --revision-cutoff commits are left out.

Labels: Critical (>= 0.8), High (>= 0.6), Moderate (>= 0.4), Low.

Examples:
  # Top 25 files with at least 10 commits
  xrays hotspots ./data

  # Only the src tree, lower cutoff
  xrays hotspots ./data --filter '^src/' --revision-cutoff 3

  # Export for a notebook
  xrays hotspots ./data --output csv --output-file hotspots.csv`,
	Args:    cobra.ExactArgs(1),
	PreRunE: querySetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		return core.ExecuteHotspots(rootCtx, cfg, cacheManager)
	},
}
