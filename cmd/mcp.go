package cmd

import (
	"github.com/huangsam/xrays/internal/mcp"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command.
var mcpCmd = &cobra.Command{
	Use:   "mcp DATA_DIR",
	Short: "Start the xrays MCP server",
	Long: `Launch an MCP server on stdio that answers hotspot and coupling queries
over the record table in DATA_DIR. Flags given here become the defaults for
every tool call.`,
	Args:    cobra.ExactArgs(1),
	PreRunE: querySetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		return mcp.StartMCPServer(rootCtx, cfg)
	},
}
