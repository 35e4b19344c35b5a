// Package outwriter has output and writer logic.
package outwriter

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/huangsam/xrays/internal/contract"
	"github.com/huangsam/xrays/schema"
)

// OutWriter provides a unified interface for all output operations.
type OutWriter struct{}

// NewOutWriter creates a new instance of the output writer.
func NewOutWriter() *OutWriter {
	return &OutWriter{}
}

// WriteHotspots prints ranked hotspot summaries.
func (ow *OutWriter) WriteHotspots(summaries []schema.FileHotspotSummary, total int, cfg *contract.Config, duration time.Duration) error {
	return WriteHotspotResults(summaries, total, cfg, duration)
}

// WriteCoupling prints change-coupling edges.
func (ow *OutWriter) WriteCoupling(result schema.CouplingResult, total int, cfg *contract.Config, duration time.Duration) error {
	return WriteCouplingResults(result, total, cfg, duration)
}

// WriteCompute prints the summary of a compute run to stdout.
func (ow *OutWriter) WriteCompute(summary schema.ComputeSummary, cfg *contract.Config) error {
	return WriteComputeSummary(os.Stdout, summary, cfg)
}

// WriteComputeSummary reports what a compute run produced. JSON mode emits the
// summary object; every other mode prints a short human-readable report.
func WriteComputeSummary(w io.Writer, summary schema.ComputeSummary, cfg *contract.Config) error {
	if cfg.Output == schema.JSONOut {
		return writeJSON(w, summary)
	}
	_, err := fmt.Fprintf(w, "Built %s records for %s files in %v\nRecord table: %s\n",
		humanize.Comma(int64(summary.Records)),
		humanize.Comma(int64(summary.Files)),
		summary.Duration.Round(time.Millisecond),
		summary.DataFile)
	if err != nil {
		return err
	}
	if summary.AnalysisID > 0 {
		_, err = fmt.Fprintf(w, "Analysis run: %d\n", summary.AnalysisID)
	}
	return err
}
