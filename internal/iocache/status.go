package iocache

import (
	"fmt"
	"io"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/huangsam/xrays/schema"
)

const statusTimeFormat = "2006-01-02 15:04:05"

// PrintCacheStatus writes cache status information.
func PrintCacheStatus(w io.Writer, status schema.CacheStatus) {
	_, _ = fmt.Fprintf(w, "Cache Backend: %s\n", status.Backend)
	_, _ = fmt.Fprintf(w, "Connected: %t\n", status.Connected)
	if !status.Connected {
		return
	}
	_, _ = fmt.Fprintf(w, "Total Entries: %s\n", humanize.Comma(int64(status.TotalEntries)))
	if status.TotalEntries > 0 {
		_, _ = fmt.Fprintf(w, "Last Entry: %s (%s)\n", status.LastEntryTime.Format(statusTimeFormat), humanize.Time(status.LastEntryTime))
		_, _ = fmt.Fprintf(w, "Oldest Entry: %s (%s)\n", status.OldestEntryTime.Format(statusTimeFormat), humanize.Time(status.OldestEntryTime))
	}
	_, _ = fmt.Fprintf(w, "Table Size: %s\n", humanize.Bytes(uint64(max(status.TableSizeBytes, 0))))
}

// PrintAnalysisStatus writes analysis status information.
func PrintAnalysisStatus(w io.Writer, status schema.AnalysisStatus) {
	_, _ = fmt.Fprintf(w, "Analysis Backend: %s\n", status.Backend)
	_, _ = fmt.Fprintf(w, "Connected: %t\n", status.Connected)
	if !status.Connected {
		return
	}
	_, _ = fmt.Fprintf(w, "Schema Version: %d", status.MigrationVersion)
	if status.MigrationAvailable {
		_, _ = fmt.Fprint(w, " (newer migration available)")
	}
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintf(w, "Total Runs: %s\n", humanize.Comma(int64(status.TotalRuns)))
	if status.TotalRuns == 0 {
		return
	}
	_, _ = fmt.Fprintf(w, "Last Run ID: %d\n", status.LastRunID)
	_, _ = fmt.Fprintf(w, "Last Run: %s (%s)\n", status.LastRunTime.Format(statusTimeFormat), humanize.Time(status.LastRunTime))
	_, _ = fmt.Fprintf(w, "Oldest Run: %s (%s)\n", status.OldestRunTime.Format(statusTimeFormat), humanize.Time(status.OldestRunTime))
	_, _ = fmt.Fprintf(w, "Total Records Built: %s\n", humanize.Comma(status.TotalRecordsBuilt))

	statuses := make([]string, 0, len(status.RunsByStatus))
	for s := range status.RunsByStatus {
		statuses = append(statuses, string(s))
	}
	sort.Strings(statuses)
	_, _ = fmt.Fprintln(w, "Runs By Status:")
	for _, s := range statuses {
		_, _ = fmt.Fprintf(w, "  %s: %d\n", s, status.RunsByStatus[schema.RunStatus(s)])
	}
}
