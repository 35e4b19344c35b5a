package iocache

import (
	"errors"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/huangsam/xrays/internal/contract"
	"github.com/huangsam/xrays/internal/parquet"
)

// ExportAnalysisRuns writes every recorded run to outputFile as Parquet and
// reports progress to w.
func ExportAnalysisRuns(w io.Writer, store contract.AnalysisStore, outputFile string) error {
	if outputFile == "" {
		return errors.New("--output-file is required for export command")
	}
	if store == nil {
		return errors.New("analysis store is not initialized")
	}

	status, err := store.GetStatus()
	if err != nil {
		return fmt.Errorf("failed to get analysis status: %w", err)
	}
	if status.TotalRuns == 0 {
		return errors.New("no analysis data found to export")
	}
	_, _ = fmt.Fprintf(w, "Exporting %s runs from %s backend...\n", humanize.Comma(int64(status.TotalRuns)), status.Backend)

	runs, err := store.GetAllAnalysisRuns()
	if err != nil {
		return fmt.Errorf("failed to retrieve analysis runs: %w", err)
	}
	if err := parquet.WriteAnalysisRunsParquet(parquet.ConvertAnalysisRunRecords(runs), outputFile); err != nil {
		return fmt.Errorf("failed to write analysis runs: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Exported %d analysis runs to: %s\n", len(runs), outputFile)
	return nil
}
