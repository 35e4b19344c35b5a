package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/huangsam/xrays/internal/contract"
	"github.com/huangsam/xrays/internal/parquet"
	"github.com/huangsam/xrays/schema"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// hotspotFixedWidth is the table width taken by every column except the path.
const hotspotFixedWidth = 50

// WriteHotspotResults outputs ranked hotspot summaries in the configured
// format. total is the number of summaries before the result limit.
func WriteHotspotResults(summaries []schema.FileHotspotSummary, total int, cfg *contract.Config, duration time.Duration) error {
	fmtFloat := floatFormatter(cfg.Precision)

	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeHotspotJSON(w, summaries)
		}, "Wrote JSON")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeHotspotCSV(w, summaries, fmtFloat)
		}, "Wrote CSV")
	case schema.ParquetOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return parquet.WriteHotspots(w, summaries)
		}, "Wrote Parquet")
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeHotspotTable(w, summaries, total, cfg, fmtFloat, duration)
		}, "Wrote table")
	}
}

func urgencyLabel(urgency float64, colors bool) string {
	if colors {
		return contract.GetColorLabel(urgency)
	}
	return contract.GetPlainLabel(urgency)
}

func writeHotspotTable(w io.Writer, summaries []schema.FileHotspotSummary, total int, cfg *contract.Config, fmtFloat func(float64) string, duration time.Duration) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Rank", "File", "Revs", "LOC", "Indent", "Urgency", "Label"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	pathWidth := GetMaxTablePathWidth(cfg, hotspotFixedWidth, 1)
	data := make([][]string, 0, len(summaries))
	for i, s := range summaries {
		data = append(data, []string{
			strconv.Itoa(i + 1),
			contract.TruncatePath(s.File, pathWidth),
			strconv.Itoa(s.Revisions),
			humanize.Comma(s.LinesCode),
			humanize.Comma(s.Indentation),
			fmtFloat(s.Urgency),
			urgencyLabel(s.Urgency, cfg.UseColors),
		})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "Showing top %d of %d files with at least %d revisions\n", len(summaries), total, cfg.RevisionCutoff); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Query completed in %v over %s\n", duration.Round(time.Millisecond), cfg.DataFile)
	return err
}

func writeHotspotCSV(w io.Writer, summaries []schema.FileHotspotSummary, fmtFloat func(float64) string) error {
	header := []string{"rank", "file", "revisions", "lines_code", "indentation", "urgency", "label"}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for i, s := range summaries {
			rec := []string{
				strconv.Itoa(i + 1),
				s.File,
				strconv.Itoa(s.Revisions),
				strconv.FormatInt(s.LinesCode, 10),
				strconv.FormatInt(s.Indentation, 10),
				fmtFloat(s.Urgency),
				contract.GetPlainLabel(s.Urgency),
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
		return nil
	})
}

func writeHotspotJSON(w io.Writer, summaries []schema.FileHotspotSummary) error {
	type jsonHotspot struct {
		Rank  int    `json:"rank"`
		Label string `json:"label"`
		schema.FileHotspotSummary
	}
	output := make([]jsonHotspot, len(summaries))
	for i, s := range summaries {
		output[i] = jsonHotspot{Rank: i + 1, Label: contract.GetPlainLabel(s.Urgency), FileHotspotSummary: s}
	}
	return writeJSON(w, output)
}
