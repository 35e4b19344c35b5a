package mcp_test

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/huangsam/xrays/internal/contract"
	mcp_internal "github.com/huangsam/xrays/internal/mcp"
	"github.com/huangsam/xrays/internal/parquet"
	"github.com/huangsam/xrays/schema"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day0 = time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

func rec(file, commit string, day int, indentation int64) schema.FileRevisionRecord {
	when := day0.AddDate(0, 0, day)
	return schema.FileRevisionRecord{
		File: file, CommitFilename: file, Commit: commit,
		AuthorDate: when, CommitDate: when, Indentation: indentation, LinesCode: indentation,
	}
}

// newTestServerConfig writes a table where x.go and y.go share three commits
// and z.go shares one with each of them.
func newTestServerConfig(t *testing.T) *contract.Config {
	t.Helper()
	dataFile := filepath.Join(t.TempDir(), schema.DefaultDataFile)
	records := []schema.FileRevisionRecord{
		rec("x.go", "c1", 1, 8), rec("y.go", "c1", 1, 2),
		rec("x.go", "c2", 2, 16), rec("y.go", "c2", 2, 2),
		rec("x.go", "c3", 3, 32), rec("y.go", "c3", 3, 4), rec("z.go", "c3", 3, 1),
	}
	require.NoError(t, parquet.WriteRecordTable(dataFile, records))
	return &contract.Config{
		DataFile:       dataFile,
		RevisionCutoff: 10,
		CouplingCutoff: 10,
		ResultLimit:    25,
	}
}

func callTool(t *testing.T, cfg *contract.Config, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	s := mcp_internal.NewMCPServer(cfg)
	tool := s.GetTool(name)
	require.NotNil(t, tool, "Tool %s should exist", name)

	res, err := tool.Handler(context.Background(), mcp.CallToolRequest{
		Params: mcp.CallToolParams{Name: name, Arguments: args},
	})
	require.NoError(t, err, "The MCP handler should not return a raw error for tool logic failures")
	require.NotNil(t, res)
	return res
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestSummarizeHotspots(t *testing.T) {
	cfg := newTestServerConfig(t)

	res := callTool(t, cfg, "summarize_hotspots", map[string]any{"revision_cutoff": 2.0})
	require.False(t, res.IsError, resultText(t, res))

	var resp struct {
		Results []struct {
			Rank      int     `json:"rank"`
			Label     string  `json:"label"`
			File      string  `json:"file"`
			Revisions int     `json:"revisions"`
			Urgency   float64 `json:"urgency"`
		} `json:"results"`
		Total int `json:"total"`
	}
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &resp))
	assert.Equal(t, 2, resp.Total)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "x.go", resp.Results[0].File)
	assert.Equal(t, 1, resp.Results[0].Rank)
	assert.Equal(t, 3, resp.Results[0].Revisions)
	assert.Equal(t, "Critical", resp.Results[0].Label)
	assert.Equal(t, "y.go", resp.Results[1].File)
	assert.InDelta(t, 0.125, resp.Results[1].Urgency, 1e-9)

	t.Run("filter and limit", func(t *testing.T) {
		res := callTool(t, cfg, "summarize_hotspots", map[string]any{"revision_cutoff": 0.0, "filter": `^[yz]`, "limit": 1.0})
		require.False(t, res.IsError)
		require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &resp))
		assert.Equal(t, 2, resp.Total)
		require.Len(t, resp.Results, 1)
		assert.Equal(t, "y.go", resp.Results[0].File)
	})

	t.Run("base cutoff applies", func(t *testing.T) {
		res := callTool(t, cfg, "summarize_hotspots", nil)
		require.False(t, res.IsError)
		require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &resp))
		assert.Zero(t, resp.Total)
		assert.Empty(t, resp.Results)
	})
}

func TestChangeCoupling(t *testing.T) {
	cfg := newTestServerConfig(t)

	var resp struct {
		Edges          []schema.ChangeCouplingEdge `json:"edges"`
		Total          int                         `json:"total"`
		SkippedCommits int                         `json:"skipped_commits"`
	}

	res := callTool(t, cfg, "change_coupling", map[string]any{"coupling_cutoff": 1.0})
	require.False(t, res.IsError, resultText(t, res))
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &resp))
	assert.Equal(t, 3, resp.Total)
	assert.Equal(t, []schema.ChangeCouplingEdge{
		{FileX: "x.go", FileY: "y.go", Commits: 3},
		{FileX: "x.go", FileY: "z.go", Commits: 1},
		{FileX: "y.go", FileY: "z.go", Commits: 1},
	}, resp.Edges)

	t.Run("symmetric", func(t *testing.T) {
		res := callTool(t, cfg, "change_coupling", map[string]any{"coupling_cutoff": 3.0, "symmetric": true})
		require.False(t, res.IsError)
		require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &resp))
		assert.Equal(t, []schema.ChangeCouplingEdge{
			{FileX: "x.go", FileY: "y.go", Commits: 3},
			{FileX: "y.go", FileY: "x.go", Commits: 3},
		}, resp.Edges)
	})

	t.Run("max commit files", func(t *testing.T) {
		res := callTool(t, cfg, "change_coupling", map[string]any{"coupling_cutoff": 1.0, "max_commit_files": 2.0})
		require.False(t, res.IsError)
		require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &resp))
		assert.Equal(t, 1, resp.SkippedCommits)
		assert.Equal(t, []schema.ChangeCouplingEdge{{FileX: "x.go", FileY: "y.go", Commits: 2}}, resp.Edges)
	})
}

func TestTableInfo(t *testing.T) {
	cfg := newTestServerConfig(t)

	res := callTool(t, cfg, "table_info", nil)
	require.False(t, res.IsError, resultText(t, res))

	var info schema.TableInfo
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &info))
	assert.Equal(t, cfg.DataFile, info.Path)
	assert.Equal(t, 7, info.Records)
	assert.Equal(t, 3, info.Files)
	assert.Equal(t, 3, info.Commits)
	assert.True(t, info.LastCommit.Equal(day0.AddDate(0, 0, 3)))
}

func TestMCPServerHandlers_Errors(t *testing.T) {
	cfg := newTestServerConfig(t)

	tests := []struct {
		name     string
		tool     string
		args     map[string]any
		expected string
	}{
		{"negative revision cutoff", "summarize_hotspots", map[string]any{"revision_cutoff": -1.0}, "revision_cutoff cannot be negative"},
		{"negative coupling cutoff", "change_coupling", map[string]any{"coupling_cutoff": -2.0}, "coupling_cutoff cannot be negative"},
		{"negative max commit files", "change_coupling", map[string]any{"max_commit_files": -1.0}, "max_commit_files cannot be negative"},
		{"limit too large", "summarize_hotspots", map[string]any{"limit": 20000.0}, "cannot exceed"},
		{"invalid filter", "change_coupling", map[string]any{"filter": "("}, "invalid path filter"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := callTool(t, cfg, tt.tool, tt.args)
			assert.True(t, res.IsError, "The response should indicate an error state")
			assert.Contains(t, resultText(t, res), tt.expected)
		})
	}

	t.Run("missing table", func(t *testing.T) {
		missing := &contract.Config{DataFile: filepath.Join(t.TempDir(), "hotspots.parquet"), ResultLimit: 25}
		for _, name := range []string{"summarize_hotspots", "change_coupling", "table_info"} {
			res := callTool(t, missing, name, nil)
			assert.True(t, res.IsError)
			assert.Contains(t, resultText(t, res), "run 'xrays compute' first")
		}
	})
}
