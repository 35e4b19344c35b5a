//go:build integration

// Package integration contains integration tests for xrays.
// These tests are excluded from normal test runs due to build tags.
// To run these tests: go test -tags integration ./integration
package integration

import (
	"encoding/json"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/huangsam/xrays/internal/testrepo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type hotspotRow struct {
	Rank      int     `json:"rank"`
	File      string  `json:"file"`
	Revisions int     `json:"revisions"`
	Urgency   float64 `json:"urgency"`
}

// TestHotspotsVerification builds a table for the fixture repository and
// checks every revision count against git log --follow.
func TestHotspotsVerification(t *testing.T) {
	fixture := testrepo.NewFixture(t)
	dataDir := filepath.Join(t.TempDir(), "data")

	out, err := runXrays(t, nil, "compute", "--cache-backend", "none", fixture.Root, dataDir)
	require.NoError(t, err)
	assert.Contains(t, out, "Built 7 records for 3 files")

	out, err = runXrays(t, nil, "hotspots", dataDir, "--revision-cutoff", "0", "--output", "json")
	require.NoError(t, err)

	var rows []hotspotRow
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 3)
	assert.Equal(t, "lib/app.py", rows[0].File)

	for _, row := range rows {
		t.Run(row.File, func(t *testing.T) {
			gitCmd := exec.Command("git", "log", "--follow", "--oneline", "--", row.File)
			gitCmd.Dir = fixture.Root
			gitOutput, err := gitCmd.Output()
			require.NoError(t, err)
			gitLines := strings.Split(strings.TrimSpace(string(gitOutput)), "\n")
			assert.Equal(t, len(gitLines), row.Revisions, "Revision count mismatch for %s", row.File)
		})
	}
}

// TestCouplingVerification checks the one pair the fixture changes together.
func TestCouplingVerification(t *testing.T) {
	fixture := testrepo.NewFixture(t)
	dataDir := filepath.Join(t.TempDir(), "data")

	_, err := runXrays(t, nil, "compute", "--cache-backend", "none", "--file-pattern", `.*\.py`, fixture.Root, dataDir)
	require.NoError(t, err)

	out, err := runXrays(t, nil, "coupling", dataDir, "--coupling-cutoff", "1", "--output", "csv")
	require.NoError(t, err)
	assert.Equal(t, "rank,file_x,file_y,commits\n1,lib/app.py,util.py,2\n", out)
}

// TestQueryWithoutTable expects a hint to run compute first.
func TestQueryWithoutTable(t *testing.T) {
	_, err := runXrays(t, nil, "hotspots", t.TempDir())
	require.Error(t, err)
	exitErr, ok := err.(*exec.ExitError)
	require.True(t, ok)
	assert.Contains(t, string(exitErr.Stderr), "run 'xrays compute' first")
}
