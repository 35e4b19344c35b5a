package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/huangsam/xrays/core"
	"github.com/huangsam/xrays/internal/contract"
	"github.com/huangsam/xrays/schema"
	"github.com/mark3labs/mcp-go/mcp"
)

// toolHandler holds common dependencies for MCP tool handlers.
type toolHandler struct {
	baseCfg *contract.Config
}

// rankedHotspot is a summary row as returned to clients.
type rankedHotspot struct {
	Rank  int    `json:"rank"`
	Label string `json:"label"`
	schema.FileHotspotSummary
}

type hotspotsResponse struct {
	Results []rankedHotspot `json:"results"`
	Total   int             `json:"total"`
}

type couplingResponse struct {
	Edges          []schema.ChangeCouplingEdge `json:"edges"`
	Total          int                         `json:"total"`
	SkippedCommits int                         `json:"skipped_commits"`
}

// queryConfig clones the base config and applies the arguments shared by the query tools.
func (h *toolHandler) queryConfig(request mcp.CallToolRequest) (*contract.Config, error) {
	cfg := h.baseCfg.Clone()
	cfg.PathFilter = request.GetString("filter", cfg.PathFilter)
	if l := request.GetInt("limit", 0); l != 0 {
		if l < 0 || l > contract.MaxResultLimit {
			return nil, fmt.Errorf("limit must be greater than 0 and cannot exceed %d (received %d)", contract.MaxResultLimit, l)
		}
		cfg.ResultLimit = l
	}
	return cfg, nil
}

func nonNegative(name string, v int) error {
	if v < 0 {
		return fmt.Errorf("%s cannot be negative (received %d)", name, v)
	}
	return nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonData)), nil
}

func (h *toolHandler) handleSummarizeHotspots(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg, err := h.queryConfig(request)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid parameters: %v", err)), nil
	}
	cfg.RevisionCutoff = request.GetInt("revision_cutoff", cfg.RevisionCutoff)
	if err := nonNegative("revision_cutoff", cfg.RevisionCutoff); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid parameters: %v", err)), nil
	}

	ranked, total, err := core.GetHotspotResults(ctx, cfg)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("query failed: %v", err)), nil
	}

	resp := hotspotsResponse{Results: make([]rankedHotspot, len(ranked)), Total: total}
	for i, s := range ranked {
		resp.Results[i] = rankedHotspot{Rank: i + 1, Label: contract.GetPlainLabel(s.Urgency), FileHotspotSummary: s}
	}
	return jsonResult(resp)
}

func (h *toolHandler) handleChangeCoupling(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg, err := h.queryConfig(request)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid parameters: %v", err)), nil
	}
	cfg.CouplingCutoff = request.GetInt("coupling_cutoff", cfg.CouplingCutoff)
	cfg.MaxCommitFiles = request.GetInt("max_commit_files", cfg.MaxCommitFiles)
	cfg.Symmetric = request.GetBool("symmetric", cfg.Symmetric)
	if err := nonNegative("coupling_cutoff", cfg.CouplingCutoff); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid parameters: %v", err)), nil
	}
	if err := nonNegative("max_commit_files", cfg.MaxCommitFiles); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid parameters: %v", err)), nil
	}

	result, total, err := core.GetCouplingResults(ctx, cfg)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("query failed: %v", err)), nil
	}
	return jsonResult(couplingResponse{Edges: result.Edges, Total: total, SkippedCommits: result.SkippedCommits})
}

func (h *toolHandler) handleTableInfo(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	info, err := core.GetTableInfo(ctx, h.baseCfg)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("query failed: %v", err)), nil
	}
	return jsonResult(info)
}
