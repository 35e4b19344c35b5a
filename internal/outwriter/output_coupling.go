package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/huangsam/xrays/internal/contract"
	"github.com/huangsam/xrays/internal/parquet"
	"github.com/huangsam/xrays/schema"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// couplingFixedWidth is the table width taken by the rank and count columns.
const couplingFixedWidth = 20

// WriteCouplingResults outputs change-coupling edges in the configured
// format. total is the number of edges before the result limit.
func WriteCouplingResults(result schema.CouplingResult, total int, cfg *contract.Config, duration time.Duration) error {
	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeCouplingJSON(w, result, total)
		}, "Wrote JSON")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeCouplingCSV(w, result.Edges)
		}, "Wrote CSV")
	case schema.ParquetOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return parquet.WriteCoupling(w, result.Edges)
		}, "Wrote Parquet")
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeCouplingTable(w, result, total, cfg, duration)
		}, "Wrote table")
	}
}

func writeCouplingTable(w io.Writer, result schema.CouplingResult, total int, cfg *contract.Config, duration time.Duration) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Rank", "File X", "File Y", "Commits"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	pathWidth := GetMaxTablePathWidth(cfg, couplingFixedWidth, 2)
	data := make([][]string, 0, len(result.Edges))
	for i, e := range result.Edges {
		data = append(data, []string{
			strconv.Itoa(i + 1),
			contract.TruncatePath(e.FileX, pathWidth),
			contract.TruncatePath(e.FileY, pathWidth),
			strconv.Itoa(e.Commits),
		})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "Showing top %d of %d pairs sharing at least %d commits\n", len(result.Edges), total, cfg.CouplingCutoff); err != nil {
		return err
	}
	if result.SkippedCommits > 0 {
		if _, err := fmt.Fprintf(w, "Skipped %d commits touching more than %d files\n", result.SkippedCommits, cfg.MaxCommitFiles); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "Query completed in %v over %s\n", duration.Round(time.Millisecond), cfg.DataFile)
	return err
}

func writeCouplingCSV(w io.Writer, edges []schema.ChangeCouplingEdge) error {
	return writeCSVWithHeader(w, []string{"rank", "file_x", "file_y", "commits"}, func(cw *csv.Writer) error {
		for i, e := range edges {
			if err := cw.Write([]string{strconv.Itoa(i + 1), e.FileX, e.FileY, strconv.Itoa(e.Commits)}); err != nil {
				return err
			}
		}
		return nil
	})
}

func writeCouplingJSON(w io.Writer, result schema.CouplingResult, total int) error {
	type jsonEdge struct {
		Rank int `json:"rank"`
		schema.ChangeCouplingEdge
	}
	edges := make([]jsonEdge, len(result.Edges))
	for i, e := range result.Edges {
		edges[i] = jsonEdge{Rank: i + 1, ChangeCouplingEdge: e}
	}
	return writeJSON(w, struct {
		Edges          []jsonEdge `json:"edges"`
		TotalEdges     int        `json:"total_edges"`
		SkippedCommits int        `json:"skipped_commits"`
	}{edges, total, result.SkippedCommits})
}
