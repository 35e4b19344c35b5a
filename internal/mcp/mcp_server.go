// Package mcp provides the Model Context Protocol (MCP) server implementation.
package mcp

import (
	"context"

	"github.com/huangsam/xrays/internal/contract"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// NewMCPServer initializes and configures the xrays MCP server without starting it.
// Every tool reads the record table at baseCfg.DataFile on each call, so a
// fresh compute run is picked up without a restart.
func NewMCPServer(baseCfg *contract.Config) *server.MCPServer {
	s := server.NewMCPServer(
		"xrays Query Server",
		"1.0.0",
		server.WithLogging(),
	)

	h := &toolHandler{baseCfg: baseCfg}

	// --- 1. Tool: summarize_hotspots ---
	s.AddTool(mcp.NewTool("summarize_hotspots",
		mcp.WithDescription("Rank files by hotspot urgency: indentation of the latest version weighted by the square root of revision count."),
		mcp.WithString("filter", mcp.Description("Regular expression matched anywhere in the file path. Empty matches every file.")),
		mcp.WithNumber("revision_cutoff", mcp.Description("Minimum number of distinct commits a file needs to be listed.")),
		mcp.WithNumber("limit", mcp.Description("Limit the number of results returned.")),
	), h.handleSummarizeHotspots)

	// --- 2. Tool: change_coupling ---
	s.AddTool(mcp.NewTool("change_coupling",
		mcp.WithDescription("List pairs of files that were changed together in many commits."),
		mcp.WithString("filter", mcp.Description("Regular expression matched anywhere in the file path. Empty matches every file.")),
		mcp.WithNumber("coupling_cutoff", mcp.Description("Minimum number of shared commits for a pair to be listed.")),
		mcp.WithNumber("max_commit_files", mcp.Description("Skip commits touching more than this many files (0 disables the cap).")),
		mcp.WithBoolean("symmetric", mcp.Description("Return both orderings of every pair.")),
		mcp.WithNumber("limit", mcp.Description("Limit the number of results returned.")),
	), h.handleChangeCoupling)

	// --- 3. Tool: table_info ---
	s.AddTool(mcp.NewTool("table_info",
		mcp.WithDescription("Describe the loaded record table: path, record, file and commit counts, and the commit date range."),
	), h.handleTableInfo)

	return s
}

// StartMCPServer starts the xrays MCP server on stdio.
func StartMCPServer(_ context.Context, baseCfg *contract.Config) error {
	s := NewMCPServer(baseCfg)
	return server.ServeStdio(s)
}
