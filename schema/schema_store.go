package schema

import "time"

// CacheStatus represents the status of the snapshot metrics cache.
type CacheStatus struct {
	Backend         string    `json:"backend"`
	Connected       bool      `json:"connected"`
	TotalEntries    int       `json:"total_entries"`
	LastEntryTime   time.Time `json:"last_entry_time"`
	OldestEntryTime time.Time `json:"oldest_entry_time"`
	TableSizeBytes  int64     `json:"table_size_bytes"`
}

// AnalysisStatus represents the status of the run tracking store.
type AnalysisStatus struct {
	Backend            string              `json:"backend"`
	Connected          bool                `json:"connected"`
	TotalRuns          int                 `json:"total_runs"`
	LastRunID          int64               `json:"last_run_id"`
	LastRunTime        time.Time           `json:"last_run_time"`
	OldestRunTime      time.Time           `json:"oldest_run_time"`
	TotalRecordsBuilt  int64               `json:"total_records_built"`
	RunsByStatus       map[RunStatus]int64 `json:"runs_by_status"`
	MigrationVersion   uint                `json:"migration_version"`
	MigrationAvailable bool                `json:"migration_available"`
}

// AnalysisRunRecord represents a row from the xrays_analysis_runs table.
type AnalysisRunRecord struct {
	AnalysisID    int64
	RepoPath      string
	FilePattern   string
	StartTime     time.Time
	EndTime       *time.Time
	RunDurationMs *int64
	Status        RunStatus
	TotalFiles    int64
	TotalRecords  int64
	ErrorMessage  *string
	ConfigParams  *string
}

// RunSummary is what a finished compute run reports to the analysis store.
type RunSummary struct {
	EndTime      time.Time
	Status       RunStatus
	TotalFiles   int
	TotalRecords int
	Err          error
}
