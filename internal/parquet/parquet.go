// Package parquet reads and writes the record table and derived tables
// using github.com/parquet-go/parquet-go.
package parquet

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/huangsam/xrays/schema"
	"github.com/parquet-go/parquet-go"
)

// RecordRow is one row of the persisted record table.
type RecordRow struct {
	File           string    `parquet:"file,snappy"`
	CommitFilename string    `parquet:"commit_filename,snappy"`
	Commit         string    `parquet:"commit,snappy"`
	AuthorDate     time.Time `parquet:"author_date,snappy"`
	CommitDate     time.Time `parquet:"commit_date,snappy"`
	Indentation    int64     `parquet:"indentation,snappy"`
	LinesCode      int64     `parquet:"lines_code,snappy"`
	LinesComment   int64     `parquet:"lines_comment,snappy"`
}

// HotspotRow is a ranked hotspot summary.
type HotspotRow struct {
	File        string  `parquet:"file,snappy"`
	Revisions   int64   `parquet:"revisions,snappy"`
	LinesCode   int64   `parquet:"lines_code,snappy"`
	Indentation int64   `parquet:"indentation,snappy"`
	Urgency     float64 `parquet:"urgency,snappy"`
}

// CouplingRow is one change-coupling edge.
type CouplingRow struct {
	FileX   string `parquet:"file_x,snappy"`
	FileY   string `parquet:"file_y,snappy"`
	Commits int64  `parquet:"commits,snappy"`
}

// AnalysisRun maps to the xrays_analysis_runs table.
type AnalysisRun struct {
	AnalysisID    int64      `parquet:"analysis_id,snappy"`
	RepoPath      string     `parquet:"repo_path,snappy"`
	FilePattern   string     `parquet:"file_pattern,snappy"`
	StartTime     time.Time  `parquet:"start_time,snappy"`
	EndTime       *time.Time `parquet:"end_time,optional,snappy"`
	RunDurationMs *int64     `parquet:"run_duration_ms,optional,snappy"`
	Status        string     `parquet:"status,snappy"`
	TotalFiles    int64      `parquet:"total_files,snappy"`
	TotalRecords  int64      `parquet:"total_records,snappy"`
	ErrorMessage  *string    `parquet:"error_message,optional,snappy"`
	ConfigParams  *string    `parquet:"config_params,optional,snappy"`
}

// writeRows encodes rows to w with a schema inferred from T.
func writeRows[T any](w io.Writer, rows []T) error {
	writer := parquet.NewGenericWriter[T](w)
	if _, err := writer.Write(rows); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return nil
}

// writeFileAtomic writes rows to a temp file beside path and renames it
// into place, so readers never observe a partial table.
func writeFileAtomic[T any](path string, rows []T) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	tmpName := tmp.Name()
	if err := writeRows(tmp, rows); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close output file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to move table into place: %w", err)
	}
	return nil
}

// readRows decodes every row of a parquet file.
func readRows[T any](path string) ([]T, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = file.Close() }()

	reader := parquet.NewGenericReader[T](file)
	defer func() { _ = reader.Close() }()

	rows := make([]T, reader.NumRows())
	total := 0
	for total < len(rows) {
		n, err := reader.Read(rows[total:])
		total += n
		if errors.Is(err, io.EOF) || (err == nil && n == 0) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	}
	return rows[:total], nil
}

// WriteRecordTable persists the record table at path.
func WriteRecordTable(path string, records []schema.FileRevisionRecord) error {
	rows := make([]RecordRow, len(records))
	for i, r := range records {
		rows[i] = RecordRow{
			File:           r.File,
			CommitFilename: r.CommitFilename,
			Commit:         r.Commit,
			AuthorDate:     r.AuthorDate,
			CommitDate:     r.CommitDate,
			Indentation:    r.Indentation,
			LinesCode:      r.LinesCode,
			LinesComment:   r.LinesComment,
		}
	}
	return writeFileAtomic(path, rows)
}

// ReadRecordTable loads a record table written by WriteRecordTable.
// Timestamps come back in UTC.
func ReadRecordTable(path string) ([]schema.FileRevisionRecord, error) {
	rows, err := readRows[RecordRow](path)
	if err != nil {
		return nil, err
	}
	records := make([]schema.FileRevisionRecord, len(rows))
	for i, r := range rows {
		records[i] = schema.FileRevisionRecord{
			File:           r.File,
			CommitFilename: r.CommitFilename,
			Commit:         r.Commit,
			AuthorDate:     r.AuthorDate.UTC(),
			CommitDate:     r.CommitDate.UTC(),
			Indentation:    r.Indentation,
			LinesCode:      r.LinesCode,
			LinesComment:   r.LinesComment,
		}
	}
	return records, nil
}

// WriteHotspots encodes ranked hotspot summaries to w.
func WriteHotspots(w io.Writer, summaries []schema.FileHotspotSummary) error {
	rows := make([]HotspotRow, len(summaries))
	for i, s := range summaries {
		rows[i] = HotspotRow{
			File:        s.File,
			Revisions:   int64(s.Revisions),
			LinesCode:   s.LinesCode,
			Indentation: s.Indentation,
			Urgency:     s.Urgency,
		}
	}
	return writeRows(w, rows)
}

// WriteCoupling encodes change-coupling edges to w.
func WriteCoupling(w io.Writer, edges []schema.ChangeCouplingEdge) error {
	rows := make([]CouplingRow, len(edges))
	for i, e := range edges {
		rows[i] = CouplingRow{FileX: e.FileX, FileY: e.FileY, Commits: int64(e.Commits)}
	}
	return writeRows(w, rows)
}

// ConvertAnalysisRunRecords converts schema.AnalysisRunRecord to AnalysisRun for Parquet export.
func ConvertAnalysisRunRecords(records []schema.AnalysisRunRecord) []AnalysisRun {
	result := make([]AnalysisRun, len(records))
	for i, record := range records {
		result[i] = AnalysisRun{
			AnalysisID:    record.AnalysisID,
			RepoPath:      record.RepoPath,
			FilePattern:   record.FilePattern,
			StartTime:     record.StartTime,
			EndTime:       record.EndTime,
			RunDurationMs: record.RunDurationMs,
			Status:        string(record.Status),
			TotalFiles:    record.TotalFiles,
			TotalRecords:  record.TotalRecords,
			ErrorMessage:  record.ErrorMessage,
			ConfigParams:  record.ConfigParams,
		}
	}
	return result
}

// WriteAnalysisRunsParquet writes analysis runs to a Parquet file.
func WriteAnalysisRunsParquet(data []AnalysisRun, outputPath string) error {
	return writeFileAtomic(outputPath, data)
}

// ReadAnalysisRunsParquet loads an export written by WriteAnalysisRunsParquet.
func ReadAnalysisRunsParquet(path string) ([]AnalysisRun, error) {
	return readRows[AnalysisRun](path)
}
