package metrics

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/huangsam/xrays/internal/contract"
	"github.com/huangsam/xrays/schema"
)

// strippedExt is the extension cloc appends to comment-stripped copies.
const strippedExt = "stripped"

// clocReport is the subset of `cloc --json` output that is read.
type clocReport struct {
	Sum struct {
		Code    int64 `json:"code"`
		Comment int64 `json:"comment"`
	} `json:"SUM"`
}

// ClocCounter measures snapshots with the external cloc tool. Each snapshot
// is written to a private temp directory, counted with `cloc --json` and
// stripped with `cloc --strip-comments` to sum indentation.
type ClocCounter struct {
	Binary string
}

var _ contract.MetricsCounter = &ClocCounter{} // Compile-time check

// NewClocCounter creates a counter that runs cloc from PATH.
func NewClocCounter() *ClocCounter {
	return &ClocCounter{Binary: "cloc"}
}

// Backend implements the MetricsCounter interface.
func (c *ClocCounter) Backend() schema.MetricsBackend {
	return schema.ClocMetricsBackend
}

// Count implements the MetricsCounter interface.
func (c *ClocCounter) Count(ctx context.Context, name string, content []byte) (schema.SnapshotMetrics, error) {
	if len(content) == 0 {
		return schema.SnapshotMetrics{}, nil
	}
	fail := func(err error) (schema.SnapshotMetrics, error) {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return schema.SnapshotMetrics{}, ctxErr
		}
		return schema.SnapshotMetrics{}, &schema.MetricsExtractionError{Tool: "cloc", File: name, Snapshot: name, Err: err}
	}

	workDir, err := os.MkdirTemp("", "xrays-cloc-")
	if err != nil {
		return fail(err)
	}
	defer func() { _ = os.RemoveAll(workDir) }()

	base := filepath.Base(name)
	if err := os.WriteFile(filepath.Join(workDir, base), content, 0o600); err != nil {
		return fail(err)
	}

	out, err := c.run(ctx, workDir, "--json", "--quiet", base)
	if err != nil {
		return fail(err)
	}
	var m schema.SnapshotMetrics
	if len(bytes.TrimSpace(out)) > 0 {
		var report clocReport
		if err := json.Unmarshal(out, &report); err != nil {
			return fail(fmt.Errorf("unexpected cloc output: %w", err))
		}
		m.LinesCode = report.Sum.Code
		m.LinesComment = report.Sum.Comment
	}

	if _, err := c.run(ctx, workDir, "--strip-comments="+strippedExt, "--quiet", base); err != nil {
		return fail(err)
	}
	stripped, err := os.ReadFile(filepath.Join(workDir, base+"."+strippedExt))
	if errors.Is(err, os.ErrNotExist) {
		return m, nil // cloc skips empty and unrecognized files
	} else if err != nil {
		return fail(err)
	}
	for _, line := range splitLines(stripped) {
		m.Indentation += leadingWidth(line)
	}
	return m, nil
}

// run executes cloc inside dir and returns its stdout.
func (c *ClocCounter) run(ctx context.Context, dir string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, c.Binary, args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil, fmt.Errorf("cloc %s: %s", strings.Join(args, " "), strings.TrimSpace(string(exitErr.Stderr)))
	} else if err != nil {
		return nil, fmt.Errorf("cloc is not available: %w. Install cloc or use --metrics-backend native", err)
	}
	return out, nil
}
